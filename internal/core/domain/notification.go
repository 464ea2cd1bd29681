package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationStatusSuccess is the gateway's Status for a paid trade.
const NotificationStatusSuccess = "SUCCESS"

// Notification is a verified, decrypted payment notification pushed by the gateway.
type Notification struct {
	ID              uuid.UUID `json:"id"`
	MerchantID      uuid.UUID `json:"merchant_id"`
	Status          string    `json:"status"`
	Message         string    `json:"message"`
	MerchantOrderNo string    `json:"merchant_order_no"`
	TradeNo         string    `json:"trade_no"`
	Amount          int64     `json:"amount"`
	PaymentType     string    `json:"payment_type"`
	TradeSha        string    `json:"trade_sha"`
	TradeInfo       string    `json:"trade_info"` // decrypted form string or JSON
	ReceivedAt      time.Time `json:"received_at"`
}

// IsSuccess returns true if the gateway reported the trade as paid.
func (n *Notification) IsSuccess() bool {
	return n.Status == NotificationStatusSuccess
}

// NotificationReplayKey identifies one delivery of a notification.
// The gateway retries with the same TradeSha, so it doubles as a nonce.
func NotificationReplayKey(merchantID uuid.UUID, tradeSha string) string {
	return merchantID.String() + ":" + tradeSha
}
