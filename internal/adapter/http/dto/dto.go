package dto

import (
	"time"

	"trade-envelope/internal/core/domain"
	"trade-envelope/internal/core/ports"
	"trade-envelope/pkg/envelope"
)

// RegisterMerchantRequest is the request body for registering gateway credentials.
type RegisterMerchantRequest struct {
	GatewayMerchantID string `json:"gateway_merchant_id" binding:"required,max=32,safe_id" sanitize:"-"`
	Name              string `json:"name" binding:"max=128"`
	HashKey           string `json:"hash_key" binding:"required,printascii" sanitize:"-"`
	HashIV            string `json:"hash_iv" binding:"required,printascii" sanitize:"-"`
}

// RotateCredentialsRequest is the request body for replacing HashKey/HashIV.
type RotateCredentialsRequest struct {
	HashKey string `json:"hash_key" binding:"required,printascii"`
	HashIV  string `json:"hash_iv" binding:"required,printascii"`
}

// MerchantResponse is a merchant without its credentials.
type MerchantResponse struct {
	ID                string `json:"id"`
	GatewayMerchantID string `json:"gateway_merchant_id"`
	Name              string `json:"name"`
	Status            string `json:"status"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// NewMerchantResponse converts a domain merchant.
func NewMerchantResponse(m *domain.Merchant) MerchantResponse {
	return MerchantResponse{
		ID:                m.ID.String(),
		GatewayMerchantID: m.GatewayMerchantID,
		Name:              m.Name,
		Status:            string(m.Status),
		CreatedAt:         m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         m.UpdatedAt.Format(time.RFC3339),
	}
}

// PayloadRequest carries exactly one of an ordered params object or a raw string.
type PayloadRequest struct {
	Params envelope.Params `json:"params,omitempty"`
	Raw    *string         `json:"raw,omitempty"`
}

// Payload returns the envelope payload, or false when the request names
// both or neither.
func (r PayloadRequest) Payload() (envelope.Payload, bool) {
	switch {
	case r.Params != nil && r.Raw == nil:
		return r.Params, true
	case r.Params == nil && r.Raw != nil:
		return envelope.Raw(*r.Raw), true
	default:
		return nil, false
	}
}

// ChecksumRequest is the request body for CheckCode and CheckValue.
type ChecksumRequest struct {
	Variant string `json:"variant" binding:"required"`
	PayloadRequest
}

// CiphertextRequest carries hex TradeInfo.
type CiphertextRequest struct {
	TradeInfo string `json:"trade_info" binding:"required"`
}

// TradeRequestRequest is the request body for building an MPG checkout form.
type TradeRequestRequest struct {
	Params envelope.Params `json:"params" binding:"required"`
}

// CiphertextResponse is hex TradeInfo.
type CiphertextResponse struct {
	TradeInfo string `json:"trade_info"`
}

// DecryptResponse is decrypted TradeInfo; Params is omitted for JSON plaintext.
type DecryptResponse struct {
	Plaintext string          `json:"plaintext"`
	Params    envelope.Params `json:"params,omitempty"`
}

// ChecksumResponse is a computed digest.
type ChecksumResponse struct {
	Variant string `json:"variant,omitempty"`
	Value   string `json:"value"`
}

// TradeRequestResponse holds the MPG form fields, named as the gateway expects.
type TradeRequestResponse struct {
	MerchantID string `json:"MerchantID"`
	TradeInfo  string `json:"TradeInfo"`
	TradeSha   string `json:"TradeSha"`
	Version    string `json:"Version"`
}

// NewTradeRequestResponse converts a service trade request.
func NewTradeRequestResponse(tr *ports.TradeRequest) TradeRequestResponse {
	return TradeRequestResponse{
		MerchantID: tr.MerchantID,
		TradeInfo:  tr.TradeInfo,
		TradeSha:   tr.TradeSha,
		Version:    tr.Version,
	}
}

// NotifyForm is the form-encoded callback the gateway posts to NotifyURL.
type NotifyForm struct {
	Status     string `form:"Status"`
	MerchantID string `form:"MerchantID" binding:"required"`
	Version    string `form:"Version"`
	TradeInfo  string `form:"TradeInfo" binding:"required"`
	TradeSha   string `form:"TradeSha" binding:"required"`
}

// Notification converts the form for the notification service.
func (f NotifyForm) Notification() ports.GatewayNotification {
	return ports.GatewayNotification{
		Status:     f.Status,
		MerchantID: f.MerchantID,
		Version:    f.Version,
		TradeInfo:  f.TradeInfo,
		TradeSha:   f.TradeSha,
	}
}

// NotificationResponse is a recorded gateway notification.
type NotificationResponse struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
	MerchantOrderNo string `json:"merchant_order_no"`
	TradeNo         string `json:"trade_no"`
	Amount          int64  `json:"amount"`
	PaymentType     string `json:"payment_type,omitempty"`
	ReceivedAt      string `json:"received_at"`
}

// NewNotificationResponse converts a domain notification.
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:              n.ID.String(),
		Status:          n.Status,
		Message:         n.Message,
		MerchantOrderNo: n.MerchantOrderNo,
		TradeNo:         n.TradeNo,
		Amount:          n.Amount,
		PaymentType:     n.PaymentType,
		ReceivedAt:      n.ReceivedAt.Format(time.RFC3339),
	}
}
