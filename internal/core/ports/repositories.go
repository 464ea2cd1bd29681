package ports

import (
	"context"

	"trade-envelope/internal/core/domain"

	"github.com/google/uuid"
)

// MerchantRepository defines persistence operations for merchants.
// Getters return nil, nil when nothing matches.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	GetByGatewayID(ctx context.Context, gatewayMerchantID string) (*domain.Merchant, error)
	Update(ctx context.Context, merchant *domain.Merchant) error
}

// NotificationRepository persists verified gateway notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByOrder(ctx context.Context, merchantID uuid.UUID, merchantOrderNo string) ([]domain.Notification, error)
}
