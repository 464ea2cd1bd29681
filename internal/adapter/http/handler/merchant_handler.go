package handler

import (
	"trade-envelope/internal/adapter/http/dto"
	"trade-envelope/internal/adapter/http/middleware"
	"trade-envelope/internal/core/ports"
	"trade-envelope/pkg/apperror"
	"trade-envelope/pkg/response"

	"github.com/gin-gonic/gin"
)

// MerchantHandler manages gateway merchants and their credentials.
type MerchantHandler struct {
	merchantSvc     ports.MerchantService
	notificationSvc ports.NotificationService
}

// NewMerchantHandler creates a new merchant handler.
func NewMerchantHandler(merchantSvc ports.MerchantService, notificationSvc ports.NotificationService) *MerchantHandler {
	return &MerchantHandler{merchantSvc: merchantSvc, notificationSvc: notificationSvc}
}

// Register stores a new merchant's HashKey and HashIV.
func (h *MerchantHandler) Register(c *gin.Context) {
	var req dto.RegisterMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	dto.SanitizeStruct(&req)

	merchant, err := h.merchantSvc.Register(c.Request.Context(), ports.RegisterMerchantRequest{
		GatewayMerchantID: req.GatewayMerchantID,
		Name:              req.Name,
		HashKey:           req.HashKey,
		HashIV:            req.HashIV,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewMerchantResponse(merchant))
}

// Get returns a merchant's profile.
func (h *MerchantHandler) Get(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.Validation("invalid merchant id"))
		return
	}

	merchant, err := h.merchantSvc.Get(c.Request.Context(), merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewMerchantResponse(merchant))
}

// RotateCredentials replaces the merchant's HashKey and HashIV.
func (h *MerchantHandler) RotateCredentials(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.Validation("invalid merchant id"))
		return
	}

	var req dto.RotateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	if err := h.merchantSvc.RotateCredentials(c.Request.Context(), merchantID, req.HashKey, req.HashIV); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "credentials rotated"})
}

// Suspend disables envelope operations for the merchant.
func (h *MerchantHandler) Suspend(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.Validation("invalid merchant id"))
		return
	}

	if err := h.merchantSvc.Suspend(c.Request.Context(), merchantID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "merchant suspended"})
}

// ListNotifications returns recorded gateway notifications for one order.
func (h *MerchantHandler) ListNotifications(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.Validation("invalid merchant id"))
		return
	}

	orderNo := c.Query("merchant_order_no")
	if orderNo == "" {
		response.Error(c, apperror.Validation("merchant_order_no is required"))
		return
	}

	notifications, err := h.notificationSvc.ListByOrder(c.Request.Context(), merchantID, orderNo)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		out = append(out, dto.NewNotificationResponse(&notifications[i]))
	}
	response.OK(c, out)
}
