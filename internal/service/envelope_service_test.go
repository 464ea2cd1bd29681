package service

import (
	"context"
	"testing"

	"trade-envelope/internal/core/domain"
	"trade-envelope/internal/core/ports"
	"trade-envelope/internal/core/ports/mocks"
	"trade-envelope/pkg/apperror"
	"trade-envelope/pkg/envelope"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	vectorTradeInfo = "ff91c8aa01379e4de621a44e5f11f72e4d25bdb1a18242db6cef9ef07d80b0165e476fd1d9acaa53170272c82d122961e1a0700a7427cfa1cf90db7f6d6593bbc93102a4d4b9b66d9974c13c31a7ab4bba1d4e0790f0cbbbd7ad64c6d3c8012a601ceaa808bff70f94a8efa5a4f984b9d41304ffd879612177c622f75f4214fa"
	vectorTradeForm = "MerchantID=3430112&RespondType=JSON&TimeStamp=1485232229&Version=1.4&MerchantOrderNo=S_1485232229&Amt=40&ItemDesc=UnitTest"
	vectorTradeSha  = "EA0A6CC37F40C1EA5692E7CBB8AE097653DF3E91365E6A9CD7E91312413C7BB8"
)

func testMerchant() *domain.Merchant {
	return &domain.Merchant{
		ID:                uuid.New(),
		GatewayMerchantID: "3430112",
		Status:            domain.MerchantStatusActive,
	}
}

func newEnvelopeServiceMocks(t *testing.T, merchant *domain.Merchant) ports.EnvelopeService {
	t.Helper()
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockSessionResolver(ctrl)
	resolver.EXPECT().Resolve(gomock.Any(), merchant.ID).
		Return(envelope.NewSession([]byte(testHashKey), []byte(testHashIV)), merchant, nil).
		AnyTimes()
	return NewEnvelopeService(resolver, "2.0", zerolog.Nop())
}

func vectorParams(t *testing.T) envelope.Params {
	t.Helper()
	p, err := envelope.ParseParams(vectorTradeForm)
	require.NoError(t, err)
	return p
}

func TestEnvelopeService_Encrypt(t *testing.T) {
	m := testMerchant()
	svc := newEnvelopeServiceMocks(t, m)

	out, err := svc.Encrypt(context.Background(), m.ID, vectorParams(t))
	require.NoError(t, err)
	assert.Equal(t, vectorTradeInfo, out)
}

func TestEnvelopeService_Decrypt(t *testing.T) {
	m := testMerchant()
	svc := newEnvelopeServiceMocks(t, m)

	out, err := svc.Decrypt(context.Background(), m.ID, vectorTradeInfo)
	require.NoError(t, err)
	assert.Equal(t, vectorTradeForm, out.Plaintext)
	amt, ok := out.Params.Get("Amt")
	assert.True(t, ok)
	assert.Equal(t, "40", amt)
}

func TestEnvelopeService_Decrypt_JSONPlaintext(t *testing.T) {
	m := testMerchant()
	svc := newEnvelopeServiceMocks(t, m)
	ctx := context.Background()

	body := `{"Status":"SUCCESS","Result":{"Amt":40}}`
	ciphertext, err := svc.Encrypt(ctx, m.ID, envelope.Raw(body))
	require.NoError(t, err)

	out, err := svc.Decrypt(ctx, m.ID, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, body, out.Plaintext)
	assert.Nil(t, out.Params)
}

func TestEnvelopeService_Decrypt_BadHex(t *testing.T) {
	m := testMerchant()
	svc := newEnvelopeServiceMocks(t, m)

	_, err := svc.Decrypt(context.Background(), m.ID, "zz")
	assertAppCode(t, err, "ENV_001")
}

func TestEnvelopeService_TradeSha(t *testing.T) {
	m := testMerchant()
	svc := newEnvelopeServiceMocks(t, m)

	sha, err := svc.TradeSha(context.Background(), m.ID, vectorTradeInfo)
	require.NoError(t, err)
	assert.Equal(t, vectorTradeSha, sha)
}

func TestEnvelopeService_Checksums(t *testing.T) {
	m := testMerchant()
	svc := newEnvelopeServiceMocks(t, m)
	ctx := context.Background()

	params := envelope.Params{{Name: "MerchantOrderNo", Value: "840f022"}, {Name: "Amt", Value: "100"}}

	code, err := svc.CheckCode(ctx, m.ID, envelope.VariantDefault, params)
	require.NoError(t, err)
	assert.Len(t, code, 64)

	value, err := svc.CheckValue(ctx, m.ID, envelope.VariantDefault, params)
	require.NoError(t, err)
	assert.Len(t, value, 64)
	assert.NotEqual(t, code, value)

	_, err = svc.CheckCode(ctx, m.ID, envelope.VariantMPGGateway, params)
	assertAppCode(t, err, "ENV_002")

	_, err = svc.CheckValue(ctx, m.ID, envelope.VariantWinningRequest, params)
	assertAppCode(t, err, "ENV_003")
}

func TestEnvelopeService_ResolveError(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockSessionResolver(ctrl)
	resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(nil, nil, apperror.ErrMerchantSuspended())
	svc := NewEnvelopeService(resolver, "2.0", zerolog.Nop())

	_, err := svc.Encrypt(context.Background(), uuid.New(), envelope.Raw("x"))
	assertAppCode(t, err, "MER_002")
}

func TestEnvelopeService_BuildTradeRequest(t *testing.T) {
	m := testMerchant()
	svc := newEnvelopeServiceMocks(t, m)

	req, err := svc.BuildTradeRequest(context.Background(), m.ID, vectorParams(t))
	require.NoError(t, err)
	assert.Equal(t, "3430112", req.MerchantID)
	assert.Equal(t, "1.4", req.Version)
	assert.Equal(t, vectorTradeInfo, req.TradeInfo)
	assert.Equal(t, vectorTradeSha, req.TradeSha)
}

func TestEnvelopeService_BuildTradeRequest_FillsDefaults(t *testing.T) {
	m := testMerchant()
	svc := newEnvelopeServiceMocks(t, m)
	ctx := context.Background()

	params := envelope.Params{{Name: "MerchantOrderNo", Value: "S_1"}, {Name: "Amt", Value: "40"}}
	req, err := svc.BuildTradeRequest(ctx, m.ID, params)
	require.NoError(t, err)
	assert.Equal(t, "2.0", req.Version)
	assert.Len(t, params, 2, "caller params are not modified")

	out, err := svc.Decrypt(ctx, m.ID, req.TradeInfo)
	require.NoError(t, err)
	assert.Equal(t, "MerchantOrderNo=S_1&Amt=40&MerchantID=3430112&Version=2.0", out.Plaintext)
}

func TestEnvelopeService_BuildTradeRequest_ForeignMerchantID(t *testing.T) {
	m := testMerchant()
	svc := newEnvelopeServiceMocks(t, m)

	params := envelope.Params{{Name: "MerchantID", Value: "MS999"}}
	_, err := svc.BuildTradeRequest(context.Background(), m.ID, params)
	assertAppCode(t, err, "REQ_001")
}
