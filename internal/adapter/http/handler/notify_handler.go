package handler

import (
	"errors"

	"trade-envelope/internal/adapter/http/dto"
	"trade-envelope/internal/core/ports"
	"trade-envelope/pkg/apperror"
	"trade-envelope/pkg/response"

	"github.com/gin-gonic/gin"
)

// NotifyHandler receives the gateway's server-to-server payment callbacks.
type NotifyHandler struct {
	notificationSvc ports.NotificationService
}

// NewNotifyHandler creates a new notify handler.
func NewNotifyHandler(notificationSvc ports.NotificationService) *NotifyHandler {
	return &NotifyHandler{notificationSvc: notificationSvc}
}

// Notify verifies and records one callback. A repeated delivery is
// acknowledged with 200 so the gateway stops retrying.
func (h *NotifyHandler) Notify(c *gin.Context) {
	merchantID, ok := scopedMerchant(c)
	if !ok {
		return
	}

	var form dto.NotifyForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, bindError(err))
		return
	}

	n, err := h.notificationSvc.Handle(c.Request.Context(), merchantID, form.Notification())
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == apperror.ErrNotificationReplayed().Code {
			response.OK(c, gin.H{"message": appErr.Message})
			return
		}
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewNotificationResponse(n))
}
