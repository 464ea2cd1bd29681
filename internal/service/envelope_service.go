package service

import (
	"context"
	"strings"

	"trade-envelope/internal/core/ports"
	"trade-envelope/pkg/apperror"
	"trade-envelope/pkg/envelope"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type envelopeService struct {
	resolver   ports.SessionResolver
	mpgVersion string
	log        zerolog.Logger
}

// NewEnvelopeService creates the service that runs envelope operations
// with a stored merchant's HashKey and HashIV.
func NewEnvelopeService(resolver ports.SessionResolver, mpgVersion string, log zerolog.Logger) ports.EnvelopeService {
	return &envelopeService{
		resolver:   resolver,
		mpgVersion: mpgVersion,
		log:        log,
	}
}

func (s *envelopeService) Encrypt(ctx context.Context, merchantID uuid.UUID, payload envelope.Payload) (string, error) {
	session, _, err := s.resolver.Resolve(ctx, merchantID)
	if err != nil {
		return "", err
	}
	out, err := session.Encrypt(payload)
	if err != nil {
		return "", s.engineError(merchantID, "encrypt", err)
	}
	return out, nil
}

func (s *envelopeService) Decrypt(ctx context.Context, merchantID uuid.UUID, tradeInfo string) (*ports.DecryptedTrade, error) {
	session, _, err := s.resolver.Resolve(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	plaintext, err := session.Decrypt(tradeInfo)
	if err != nil {
		return nil, s.engineError(merchantID, "decrypt", err)
	}

	out := &ports.DecryptedTrade{Plaintext: plaintext}
	if isJSON(plaintext) {
		return out, nil
	}
	params, err := envelope.ParseParams(plaintext)
	if err != nil {
		return nil, s.engineError(merchantID, "decrypt", err)
	}
	out.Params = params
	return out, nil
}

func (s *envelopeService) TradeSha(ctx context.Context, merchantID uuid.UUID, tradeInfo string) (string, error) {
	session, _, err := s.resolver.Resolve(ctx, merchantID)
	if err != nil {
		return "", err
	}
	sha, err := session.TradeSha(envelope.Raw(tradeInfo))
	if err != nil {
		return "", s.engineError(merchantID, "trade_sha", err)
	}
	return sha, nil
}

func (s *envelopeService) CheckCode(ctx context.Context, merchantID uuid.UUID, variant envelope.Variant, payload envelope.Payload) (string, error) {
	session, _, err := s.resolver.Resolve(ctx, merchantID)
	if err != nil {
		return "", err
	}
	code, err := session.CheckCode(variant, payload)
	if err != nil {
		return "", s.engineError(merchantID, "check_code", err)
	}
	return code, nil
}

func (s *envelopeService) CheckValue(ctx context.Context, merchantID uuid.UUID, variant envelope.Variant, payload envelope.Payload) (string, error) {
	session, _, err := s.resolver.Resolve(ctx, merchantID)
	if err != nil {
		return "", err
	}
	value, err := session.CheckValue(variant, payload)
	if err != nil {
		return "", s.engineError(merchantID, "check_value", err)
	}
	return value, nil
}

// BuildTradeRequest encrypts MPG trade params and signs the result.
// MerchantID and Version are filled in when the caller left them out.
func (s *envelopeService) BuildTradeRequest(ctx context.Context, merchantID uuid.UUID, params envelope.Params) (*ports.TradeRequest, error) {
	session, merchant, err := s.resolver.Resolve(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	params = append(envelope.Params(nil), params...)
	if gwID, ok := params.Get("MerchantID"); !ok {
		if err := params.Set("MerchantID", merchant.GatewayMerchantID); err != nil {
			return nil, apperror.InternalError(err)
		}
	} else if gwID != merchant.GatewayMerchantID {
		return nil, apperror.Validation("MerchantID does not match the merchant's gateway ID")
	}
	version, ok := params.Get("Version")
	if !ok {
		version = s.mpgVersion
		if err := params.Set("Version", version); err != nil {
			return nil, apperror.InternalError(err)
		}
	}

	trade := session.Trade(params)
	tradeInfo, err := trade.Encrypt()
	if err != nil {
		return nil, s.engineError(merchantID, "trade_request", err)
	}
	tradeSha, err := session.TradeSha(envelope.Raw(tradeInfo))
	if err != nil {
		return nil, s.engineError(merchantID, "trade_request", err)
	}

	return &ports.TradeRequest{
		MerchantID: merchant.GatewayMerchantID,
		TradeInfo:  tradeInfo,
		TradeSha:   tradeSha,
		Version:    version,
	}, nil
}

func (s *envelopeService) engineError(merchantID uuid.UUID, op string, err error) error {
	appErr := apperror.FromEnvelope(err)
	s.log.Debug().
		Str("merchant_id", merchantID.String()).
		Str("op", op).
		Str("error_code", appErr.Code).
		Err(err).
		Msg("envelope operation rejected")
	return appErr
}

func isJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}
