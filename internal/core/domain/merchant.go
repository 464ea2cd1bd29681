package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MerchantStatus represents the state of a merchant account.
type MerchantStatus string

const (
	MerchantStatusActive    MerchantStatus = "ACTIVE"
	MerchantStatusSuspended MerchantStatus = "SUSPENDED"
)

// ErrDuplicateMerchant is returned by repositories when the gateway merchant
// ID is already registered.
var ErrDuplicateMerchant = errors.New("gateway merchant id already registered")

// Merchant is a gateway merchant whose HashKey/HashIV we hold.
type Merchant struct {
	ID                uuid.UUID      `json:"id"`
	GatewayMerchantID string         `json:"gateway_merchant_id"` // issued by the gateway, e.g. MS12345678
	Name              string         `json:"name"`
	HashKeyEnc        string         `json:"-"` // AES-GCM at rest, never expose
	HashIVEnc         string         `json:"-"` // AES-GCM at rest, never expose
	Status            MerchantStatus `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// IsActive returns true if the merchant account is active.
func (m *Merchant) IsActive() bool {
	return m.Status == MerchantStatusActive
}
