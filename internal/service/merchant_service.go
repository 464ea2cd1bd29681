package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trade-envelope/internal/core/domain"
	"trade-envelope/internal/core/ports"
	"trade-envelope/pkg/apperror"
	"trade-envelope/pkg/envelope"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type merchantService struct {
	merchantRepo ports.MerchantRepository
	encSvc       ports.EncryptionService
	log          zerolog.Logger
}

// NewMerchantService creates a new merchant credential service.
func NewMerchantService(
	merchantRepo ports.MerchantRepository,
	encSvc ports.EncryptionService,
	log zerolog.Logger,
) ports.MerchantService {
	return &merchantService{
		merchantRepo: merchantRepo,
		encSvc:       encSvc,
		log:          log,
	}
}

func (s *merchantService) Register(ctx context.Context, req ports.RegisterMerchantRequest) (*domain.Merchant, error) {
	if err := envelope.ValidateCredentials([]byte(req.HashKey), []byte(req.HashIV)); err != nil {
		return nil, apperror.FromEnvelope(err)
	}

	existing, err := s.merchantRepo.GetByGatewayID(ctx, req.GatewayMerchantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if existing != nil {
		return nil, apperror.ErrMerchantExists()
	}

	keyEnc, ivEnc, err := s.sealCredentials(req.HashKey, req.HashIV)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	merchant := &domain.Merchant{
		ID:                uuid.New(),
		GatewayMerchantID: req.GatewayMerchantID,
		Name:              req.Name,
		HashKeyEnc:        keyEnc,
		HashIVEnc:         ivEnc,
		Status:            domain.MerchantStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.merchantRepo.Create(ctx, merchant); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, domain.ErrDuplicateMerchant) {
			return nil, apperror.ErrMerchantExists()
		}
		return nil, apperror.ErrDatabaseError(err)
	}

	s.log.Info().
		Str("merchant_id", merchant.ID.String()).
		Str("gateway_merchant_id", merchant.GatewayMerchantID).
		Msg("merchant registered")

	return merchant, nil
}

func (s *merchantService) Get(ctx context.Context, merchantID uuid.UUID) (*domain.Merchant, error) {
	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	return merchant, nil
}

func (s *merchantService) RotateCredentials(ctx context.Context, merchantID uuid.UUID, hashKey, hashIV string) error {
	if err := envelope.ValidateCredentials([]byte(hashKey), []byte(hashIV)); err != nil {
		return apperror.FromEnvelope(err)
	}

	merchant, err := s.Get(ctx, merchantID)
	if err != nil {
		return err
	}

	keyEnc, ivEnc, err := s.sealCredentials(hashKey, hashIV)
	if err != nil {
		return err
	}

	merchant.HashKeyEnc = keyEnc
	merchant.HashIVEnc = ivEnc
	merchant.UpdatedAt = time.Now()

	if err := s.merchantRepo.Update(ctx, merchant); err != nil {
		return apperror.ErrDatabaseError(err)
	}

	s.log.Info().Str("merchant_id", merchantID.String()).Msg("merchant credentials rotated")
	return nil
}

func (s *merchantService) Suspend(ctx context.Context, merchantID uuid.UUID) error {
	merchant, err := s.Get(ctx, merchantID)
	if err != nil {
		return err
	}
	if merchant.Status == domain.MerchantStatusSuspended {
		return nil
	}

	merchant.Status = domain.MerchantStatusSuspended
	merchant.UpdatedAt = time.Now()

	if err := s.merchantRepo.Update(ctx, merchant); err != nil {
		return apperror.ErrDatabaseError(err)
	}

	s.log.Warn().Str("merchant_id", merchantID.String()).Msg("merchant suspended")
	return nil
}

// Resolve opens an envelope session for an active merchant.
func (s *merchantService) Resolve(ctx context.Context, merchantID uuid.UUID) (*envelope.Session, *domain.Merchant, error) {
	merchant, err := s.Get(ctx, merchantID)
	if err != nil {
		return nil, nil, err
	}
	if !merchant.IsActive() {
		return nil, nil, apperror.ErrMerchantSuspended()
	}

	hashKey, err := s.encSvc.Decrypt(merchant.HashKeyEnc)
	if err != nil {
		return nil, nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt hash key: %w", err))
	}
	hashIV, err := s.encSvc.Decrypt(merchant.HashIVEnc)
	if err != nil {
		return nil, nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt hash iv: %w", err))
	}

	return envelope.NewSession([]byte(hashKey), []byte(hashIV)), merchant, nil
}

func (s *merchantService) sealCredentials(hashKey, hashIV string) (string, string, error) {
	keyEnc, err := s.encSvc.Encrypt(hashKey)
	if err != nil {
		return "", "", apperror.ErrEncryptionFailure(fmt.Errorf("encrypt hash key: %w", err))
	}
	ivEnc, err := s.encSvc.Encrypt(hashIV)
	if err != nil {
		return "", "", apperror.ErrEncryptionFailure(fmt.Errorf("encrypt hash iv: %w", err))
	}
	return keyEnc, ivEnc, nil
}
