package postgres

import (
	"context"
	"errors"
	"fmt"

	"trade-envelope/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const merchantColumns = `id, gateway_merchant_id, name, hash_key_enc, hash_iv_enc, status, created_at, updated_at`

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

// Create inserts a new merchant into the database.
func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	query := `INSERT INTO merchants (` + merchantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.GatewayMerchantID, m.Name,
		m.HashKeyEnc, m.HashIVEnc, m.Status,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insert merchant: %w", domain.ErrDuplicateMerchant)
		}
		return fmt.Errorf("insert merchant: %w", err)
	}
	return nil
}

// GetByID fetches a merchant by its UUID.
func (r *MerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`
	m, err := scanMerchant(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get merchant by id: %w", err)
	}
	return m, nil
}

// GetByGatewayID fetches a merchant by the ID the gateway issued it.
func (r *MerchantRepo) GetByGatewayID(ctx context.Context, gatewayMerchantID string) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE gateway_merchant_id = $1`
	m, err := scanMerchant(r.pool.QueryRow(ctx, query, gatewayMerchantID))
	if err != nil {
		return nil, fmt.Errorf("get merchant by gateway id: %w", err)
	}
	return m, nil
}

// Update updates a merchant record.
func (r *MerchantRepo) Update(ctx context.Context, m *domain.Merchant) error {
	query := `UPDATE merchants
		SET name=$1, hash_key_enc=$2, hash_iv_enc=$3, status=$4, updated_at=NOW()
		WHERE id=$5`
	tag, err := r.pool.Exec(ctx, query,
		m.Name, m.HashKeyEnc, m.HashIVEnc, m.Status, m.ID,
	)
	if err != nil {
		return fmt.Errorf("update merchant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update merchant %s: no rows affected", m.ID)
	}
	return nil
}

// scanMerchant returns nil, nil when the row does not exist.
func scanMerchant(row pgx.Row) (*domain.Merchant, error) {
	m := &domain.Merchant{}
	err := row.Scan(
		&m.ID, &m.GatewayMerchantID, &m.Name,
		&m.HashKeyEnc, &m.HashIVEnc, &m.Status,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}
