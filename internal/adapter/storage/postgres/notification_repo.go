package postgres

import (
	"context"
	"fmt"

	"trade-envelope/internal/core/domain"

	"github.com/google/uuid"
)

// NotificationRepo implements ports.NotificationRepository.
type NotificationRepo struct {
	pool Pool
}

// NewNotificationRepo creates a new NotificationRepo.
func NewNotificationRepo(pool Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Create stores a verified notification.
func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	query := `INSERT INTO notifications (id, merchant_id, status, message, merchant_order_no, trade_no, amount, payment_type, trade_sha, trade_info, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		n.ID, n.MerchantID, n.Status, n.Message,
		n.MerchantOrderNo, n.TradeNo, n.Amount, n.PaymentType,
		n.TradeSha, n.TradeInfo, n.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListByOrder returns every notification for one merchant order, oldest first.
func (r *NotificationRepo) ListByOrder(ctx context.Context, merchantID uuid.UUID, merchantOrderNo string) ([]domain.Notification, error) {
	query := `SELECT id, merchant_id, status, message, merchant_order_no, trade_no, amount, payment_type, trade_sha, trade_info, received_at
		FROM notifications
		WHERE merchant_id = $1 AND merchant_order_no = $2
		ORDER BY received_at ASC`

	rows, err := r.pool.Query(ctx, query, merchantID, merchantOrderNo)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID, &n.MerchantID, &n.Status, &n.Message,
			&n.MerchantOrderNo, &n.TradeNo, &n.Amount, &n.PaymentType,
			&n.TradeSha, &n.TradeInfo, &n.ReceivedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}
