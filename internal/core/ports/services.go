package ports

import (
	"context"
	"time"

	"trade-envelope/internal/core/domain"
	"trade-envelope/pkg/envelope"

	"github.com/google/uuid"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks
//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

// EncryptionService protects secrets at rest (AES-256-GCM).
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenService handles JWT operations for internal API callers.
type TokenService interface {
	Generate(claims TokenClaims) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
// A zero MerchantID lets the caller act for any merchant.
type TokenClaims struct {
	Subject    string
	MerchantID uuid.UUID
	Admin      bool
}

// CanActFor reports whether the caller may use merchantID's credentials.
func (c *TokenClaims) CanActFor(merchantID uuid.UUID) bool {
	return c.Admin || c.MerchantID == uuid.Nil || c.MerchantID == merchantID
}

// NonceStore remembers single-use values for replay protection.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error)
	// Release forgets a nonce so a retry can succeed.
	Release(ctx context.Context, scope string, nonce string) error
}

// --- Service Ports (Business Logic) ---

// SessionResolver loads an active merchant and its envelope session.
type SessionResolver interface {
	Resolve(ctx context.Context, merchantID uuid.UUID) (*envelope.Session, *domain.Merchant, error)
}

// MerchantService manages gateway merchant credentials.
type MerchantService interface {
	SessionResolver
	Register(ctx context.Context, req RegisterMerchantRequest) (*domain.Merchant, error)
	Get(ctx context.Context, merchantID uuid.UUID) (*domain.Merchant, error)
	RotateCredentials(ctx context.Context, merchantID uuid.UUID, hashKey, hashIV string) error
	Suspend(ctx context.Context, merchantID uuid.UUID) error
}

// RegisterMerchantRequest holds input for merchant registration.
type RegisterMerchantRequest struct {
	GatewayMerchantID string
	Name              string
	HashKey           string
	HashIV            string
}

// EnvelopeService runs envelope operations with a stored merchant's credentials.
type EnvelopeService interface {
	Encrypt(ctx context.Context, merchantID uuid.UUID, payload envelope.Payload) (string, error)
	Decrypt(ctx context.Context, merchantID uuid.UUID, tradeInfo string) (*DecryptedTrade, error)
	TradeSha(ctx context.Context, merchantID uuid.UUID, tradeInfo string) (string, error)
	CheckCode(ctx context.Context, merchantID uuid.UUID, variant envelope.Variant, payload envelope.Payload) (string, error)
	CheckValue(ctx context.Context, merchantID uuid.UUID, variant envelope.Variant, payload envelope.Payload) (string, error)
	BuildTradeRequest(ctx context.Context, merchantID uuid.UUID, params envelope.Params) (*TradeRequest, error)
}

// DecryptedTrade is decrypted TradeInfo. Params is nil when the plaintext
// is not form encoded (RespondType=JSON).
type DecryptedTrade struct {
	Plaintext string
	Params    envelope.Params
}

// TradeRequest is the form an MPG checkout posts to the gateway.
type TradeRequest struct {
	MerchantID string
	TradeInfo  string
	TradeSha   string
	Version    string
}

// NotificationService verifies and records gateway notifications.
type NotificationService interface {
	Handle(ctx context.Context, merchantID uuid.UUID, n GatewayNotification) (*domain.Notification, error)
	ListByOrder(ctx context.Context, merchantID uuid.UUID, merchantOrderNo string) ([]domain.Notification, error)
}

// GatewayNotification is the form the gateway posts to NotifyURL.
type GatewayNotification struct {
	Status     string
	MerchantID string
	Version    string
	TradeInfo  string
	TradeSha   string
}
