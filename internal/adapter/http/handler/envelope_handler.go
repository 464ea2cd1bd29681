package handler

import (
	"context"
	"errors"
	"net/http"

	"trade-envelope/internal/adapter/http/dto"
	"trade-envelope/internal/adapter/http/middleware"
	"trade-envelope/internal/core/ports"
	"trade-envelope/pkg/apperror"
	"trade-envelope/pkg/envelope"
	"trade-envelope/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EnvelopeHandler exposes envelope operations to internal callers.
type EnvelopeHandler struct {
	envelopeSvc ports.EnvelopeService
}

// NewEnvelopeHandler creates a new envelope handler.
func NewEnvelopeHandler(envelopeSvc ports.EnvelopeService) *EnvelopeHandler {
	return &EnvelopeHandler{envelopeSvc: envelopeSvc}
}

// Encrypt produces hex TradeInfo from params or a raw string.
func (h *EnvelopeHandler) Encrypt(c *gin.Context) {
	merchantID, ok := scopedMerchant(c)
	if !ok {
		return
	}

	var req dto.PayloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	payload, ok := req.Payload()
	if !ok {
		response.Error(c, apperror.Validation("exactly one of params or raw is required"))
		return
	}

	tradeInfo, err := h.envelopeSvc.Encrypt(c.Request.Context(), merchantID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.CiphertextResponse{TradeInfo: tradeInfo})
}

// Decrypt recovers the plaintext of hex TradeInfo.
func (h *EnvelopeHandler) Decrypt(c *gin.Context) {
	merchantID, ok := scopedMerchant(c)
	if !ok {
		return
	}

	var req dto.CiphertextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	out, err := h.envelopeSvc.Decrypt(c.Request.Context(), merchantID, req.TradeInfo)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DecryptResponse{Plaintext: out.Plaintext, Params: out.Params})
}

// TradeSha hashes hex TradeInfo.
func (h *EnvelopeHandler) TradeSha(c *gin.Context) {
	merchantID, ok := scopedMerchant(c)
	if !ok {
		return
	}

	var req dto.CiphertextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	sha, err := h.envelopeSvc.TradeSha(c.Request.Context(), merchantID, req.TradeInfo)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ChecksumResponse{Value: sha})
}

// CheckCode computes a CheckCode for the requested variant.
func (h *EnvelopeHandler) CheckCode(c *gin.Context) {
	h.checksum(c, h.envelopeSvc.CheckCode)
}

// CheckValue computes a CheckValue for the requested variant.
func (h *EnvelopeHandler) CheckValue(c *gin.Context) {
	h.checksum(c, h.envelopeSvc.CheckValue)
}

type checksumFunc func(ctx context.Context, merchantID uuid.UUID, v envelope.Variant, p envelope.Payload) (string, error)

func (h *EnvelopeHandler) checksum(c *gin.Context, compute checksumFunc) {
	merchantID, ok := scopedMerchant(c)
	if !ok {
		return
	}

	var req dto.ChecksumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	variant, err := envelope.ParseVariant(req.Variant)
	if err != nil {
		response.Error(c, apperror.FromEnvelope(err))
		return
	}
	payload, ok := req.Payload()
	if !ok {
		response.Error(c, apperror.Validation("exactly one of params or raw is required"))
		return
	}

	value, err := compute(c.Request.Context(), merchantID, variant, payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ChecksumResponse{Variant: string(variant), Value: value})
}

// TradeRequest builds the MerchantID/TradeInfo/TradeSha/Version form for an MPG checkout.
func (h *EnvelopeHandler) TradeRequest(c *gin.Context) {
	merchantID, ok := scopedMerchant(c)
	if !ok {
		return
	}

	var req dto.TradeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	tr, err := h.envelopeSvc.BuildTradeRequest(c.Request.Context(), merchantID, req.Params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTradeRequestResponse(tr))
}

func scopedMerchant(c *gin.Context) (uuid.UUID, bool) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.Validation("invalid merchant id"))
	}
	return merchantID, ok
}

// bindError maps a request binding failure. A body cut off by MaxBodySize
// is a 413, anything else a validation error.
func bindError(err error) *apperror.AppError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ErrPayloadTooLarge(err)
	}
	return apperror.Validation(err.Error())
}
