package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"trade-envelope/internal/core/domain"
	"trade-envelope/internal/core/ports"
	"trade-envelope/pkg/apperror"
	"trade-envelope/pkg/envelope"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const notifyNonceScope = "notify"

type notificationService struct {
	resolver   ports.SessionResolver
	repo       ports.NotificationRepository
	nonceStore ports.NonceStore
	replayTTL  time.Duration
	log        zerolog.Logger
}

// NewNotificationService creates the service that verifies gateway
// notifications and records them.
func NewNotificationService(
	resolver ports.SessionResolver,
	repo ports.NotificationRepository,
	nonceStore ports.NonceStore,
	replayTTL time.Duration,
	log zerolog.Logger,
) ports.NotificationService {
	return &notificationService{
		resolver:   resolver,
		repo:       repo,
		nonceStore: nonceStore,
		replayTTL:  replayTTL,
		log:        log,
	}
}

// jsonTradeInfo is the decrypted TradeInfo when RespondType=JSON.
type jsonTradeInfo struct {
	Status  string          `json:"Status"`
	Message string          `json:"Message"`
	Result  envelope.Params `json:"Result"`
}

func (s *notificationService) Handle(ctx context.Context, merchantID uuid.UUID, n ports.GatewayNotification) (*domain.Notification, error) {
	session, merchant, err := s.resolver.Resolve(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if n.MerchantID != merchant.GatewayMerchantID {
		return nil, apperror.Validation("MerchantID does not belong to this merchant")
	}

	// 1. Authenticate the ciphertext before touching it.
	ok, err := session.VerifyTradeSha(envelope.Raw(n.TradeInfo), n.TradeSha)
	if err != nil {
		return nil, apperror.FromEnvelope(err)
	}
	if !ok {
		s.log.Warn().
			Str("merchant_id", merchantID.String()).
			Msg("notification TradeSha mismatch")
		return nil, apperror.ErrChecksumMismatch()
	}

	// 2. Replay guard. A redis outage must not drop payments, so it only warns.
	replayKey := domain.NotificationReplayKey(merchant.ID, n.TradeSha)
	claimed := false
	isNew, err := s.nonceStore.CheckAndSet(ctx, notifyNonceScope, replayKey, s.replayTTL)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Str("merchant_id", merchantID.String()).Msg("replay guard unavailable")
	case !isNew:
		return nil, apperror.ErrNotificationReplayed()
	default:
		claimed = true
	}

	notification, err := s.record(ctx, session, merchant, n)
	if err != nil {
		if claimed {
			if relErr := s.nonceStore.Release(ctx, notifyNonceScope, replayKey); relErr != nil {
				s.log.Error().Err(relErr).Str("merchant_id", merchantID.String()).Msg("failed to release notification nonce")
			}
		}
		return nil, err
	}

	s.log.Info().
		Str("merchant_id", merchantID.String()).
		Str("merchant_order_no", notification.MerchantOrderNo).
		Str("trade_no", notification.TradeNo).
		Str("status", notification.Status).
		Msg("gateway notification recorded")

	return notification, nil
}

func (s *notificationService) record(ctx context.Context, session *envelope.Session, merchant *domain.Merchant, n ports.GatewayNotification) (*domain.Notification, error) {
	plaintext, err := session.Decrypt(n.TradeInfo)
	if err != nil {
		return nil, apperror.FromEnvelope(err)
	}

	status, message, result, err := parseTradeInfo(plaintext)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = n.Status
	}

	notification := &domain.Notification{
		ID:         uuid.New(),
		MerchantID: merchant.ID,
		Status:     status,
		Message:    message,
		TradeSha:   n.TradeSha,
		TradeInfo:  plaintext,
		ReceivedAt: time.Now(),
	}
	notification.MerchantOrderNo, _ = result.Get("MerchantOrderNo")
	notification.TradeNo, _ = result.Get("TradeNo")
	notification.PaymentType, _ = result.Get("PaymentType")
	if amt, ok := result.Get("Amt"); ok {
		// Amt is decimal TWD; leading zeros are not an octal prefix.
		notification.Amount, err = strconv.ParseInt(amt, 10, 64)
		if err != nil {
			return nil, apperror.Validation(fmt.Sprintf("invalid Amt %q", amt))
		}
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return notification, nil
}

// parseTradeInfo reads decrypted TradeInfo in either RespondType.
func parseTradeInfo(plaintext string) (status, message string, result envelope.Params, err error) {
	if isJSON(plaintext) {
		var body jsonTradeInfo
		if err := json.Unmarshal([]byte(plaintext), &body); err != nil {
			return "", "", nil, apperror.ErrDecode(err)
		}
		return body.Status, body.Message, body.Result, nil
	}

	params, err := envelope.ParseParams(plaintext)
	if err != nil {
		return "", "", nil, apperror.FromEnvelope(err)
	}
	status, _ = params.Get("Status")
	message, _ = params.Get("Message")
	return status, message, params, nil
}

func (s *notificationService) ListByOrder(ctx context.Context, merchantID uuid.UUID, merchantOrderNo string) ([]domain.Notification, error) {
	notifications, err := s.repo.ListByOrder(ctx, merchantID, merchantOrderNo)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return notifications, nil
}
