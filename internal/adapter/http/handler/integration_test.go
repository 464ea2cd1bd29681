package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	httpHandler "trade-envelope/internal/adapter/http/handler"
	redisStorage "trade-envelope/internal/adapter/storage/redis"
	"trade-envelope/internal/core/ports"
	"trade-envelope/internal/service"
	"trade-envelope/pkg/envelope"
	"trade-envelope/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testHashKey   = "12345678901234567890123456789012"
	testHashIV    = "1234567890123456"
	testGatewayID = "3430112"

	// Vendor reference vectors for the key/IV above.
	vectorParams    = `{"MerchantID":3430112,"RespondType":"JSON","TimeStamp":1485232229,"Version":1.4,"MerchantOrderNo":"S_1485232229","Amt":40,"ItemDesc":"UnitTest"}`
	vectorTradeInfo = "ff91c8aa01379e4de621a44e5f11f72e4d25bdb1a18242db6cef9ef07d80b0165e476fd1d9acaa53170272c82d122961e1a0700a7427cfa1cf90db7f6d6593bbc93102a4d4b9b66d9974c13c31a7ab4bba1d4e0790f0cbbbd7ad64c6d3c8012a601ceaa808bff70f94a8efa5a4f984b9d41304ffd879612177c622f75f4214fa"
	vectorTradeForm = "MerchantID=3430112&RespondType=JSON&TimeStamp=1485232229&Version=1.4&MerchantOrderNo=S_1485232229&Amt=40&ItemDesc=UnitTest"
	vectorTradeSha  = "EA0A6CC37F40C1EA5692E7CBB8AE097653DF3E91365E6A9CD7E91312413C7BB8"
)

// testApp runs the real router, services and redis stores against
// miniredis and in-memory repositories.
type testApp struct {
	server        *httptest.Server
	redis         *miniredis.Miniredis
	tokens        *service.JWTTokenService
	notifications *inMemoryNotificationRepo
	adminToken    string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.New("error", false)

	encSvc, err := service.NewAESEncryptionService("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", "test")
	require.NoError(t, err)
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", time.Hour, "test-issuer")

	merchantRepo := newInMemoryMerchantRepo()
	notificationRepo := newInMemoryNotificationRepo()

	merchantSvc := service.NewMerchantService(merchantRepo, encSvc, log)
	envelopeSvc := service.NewEnvelopeService(merchantSvc, "2.0", log)
	notificationSvc := service.NewNotificationService(merchantSvc, notificationRepo, redisStorage.NewNonceStore(rdb), time.Hour, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		MerchantSvc:     merchantSvc,
		EnvelopeSvc:     envelopeSvc,
		NotificationSvc: notificationSvc,
		TokenSvc:        tokenSvc,
		RateLimitStore:  redisStorage.NewRateLimitStore(rdb),
		HealthCheckers:  []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:          log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	admin, _, err := tokenSvc.Generate(ports.TokenClaims{Subject: "ops", Admin: true})
	require.NoError(t, err)

	return &testApp{
		server:        server,
		redis:         mr,
		tokens:        tokenSvc,
		notifications: notificationRepo,
		adminToken:    admin,
	}
}

type apiResponse struct {
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
	Message   string          `json:"message"`
}

func (a *testApp) postJSON(t *testing.T, path, token, body string) (int, apiResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.do(t, req)
}

func (a *testApp) get(t *testing.T, path, token string) (int, apiResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return a.do(t, req)
}

func (a *testApp) postNotify(t *testing.T, merchantID string, form url.Values) (int, apiResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/api/v1/notify/"+merchantID, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(t, req)
}

func (a *testApp) do(t *testing.T, req *http.Request) (int, apiResponse) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

// registerMerchant registers the vendor test merchant and returns its ID
// and a token scoped to it.
func (a *testApp) registerMerchant(t *testing.T) (string, string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"gateway_merchant_id": testGatewayID,
		"name":                "Unit Test Shop",
		"hash_key":            testHashKey,
		"hash_iv":             testHashIV,
	})
	status, resp := a.postJSON(t, "/api/v1/merchants", a.adminToken, string(body))
	require.Equal(t, http.StatusCreated, status, resp.Message)

	var merchant struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &merchant))

	token, _, err := a.tokens.Generate(ports.TokenClaims{Subject: "checkout", MerchantID: uuid.MustParse(merchant.ID)})
	require.NoError(t, err)
	return merchant.ID, token
}

func sealedNotification(t *testing.T, plaintext string) url.Values {
	t.Helper()
	session := envelope.NewSession([]byte(testHashKey), []byte(testHashIV))
	tradeInfo, err := session.Encrypt(envelope.Raw(plaintext))
	require.NoError(t, err)
	tradeSha, err := session.TradeSha(envelope.Raw(tradeInfo))
	require.NoError(t, err)
	return url.Values{
		"Status":     {"SUCCESS"},
		"MerchantID": {testGatewayID},
		"Version":    {"2.0"},
		"TradeInfo":  {tradeInfo},
		"TradeSha":   {tradeSha},
	}
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	app.redis.Close()
	resp2, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
}

func TestIntegration_EnvelopeVectors(t *testing.T) {
	app := newTestApp(t)
	merchantID, token := app.registerMerchant(t)
	base := "/api/v1/envelope/" + merchantID

	status, resp := app.postJSON(t, base+"/encrypt", token, `{"params":`+vectorParams+`}`)
	require.Equal(t, http.StatusOK, status, resp.Message)
	var cipherResp struct {
		TradeInfo string `json:"trade_info"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &cipherResp))
	assert.Equal(t, vectorTradeInfo, cipherResp.TradeInfo)

	status, resp = app.postJSON(t, base+"/trade-sha", token, `{"trade_info":"`+vectorTradeInfo+`"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Data), vectorTradeSha)

	// Uppercase hex decodes too.
	status, resp = app.postJSON(t, base+"/decrypt", token, `{"trade_info":"`+strings.ToUpper(vectorTradeInfo)+`"}`)
	require.Equal(t, http.StatusOK, status)
	var plain struct {
		Plaintext string          `json:"plaintext"`
		Params    envelope.Params `json:"params"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &plain))
	assert.Equal(t, vectorTradeForm, plain.Plaintext)
	amt, ok := plain.Params.Get("Amt")
	assert.True(t, ok)
	assert.Equal(t, "40", amt)

	status, resp = app.postJSON(t, base+"/decrypt", token, `{"trade_info":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ENV_001", resp.ErrorCode)
}

func TestIntegration_TradeRequest(t *testing.T) {
	app := newTestApp(t)
	merchantID, token := app.registerMerchant(t)

	status, resp := app.postJSON(t, "/api/v1/envelope/"+merchantID+"/trade-request", token, `{"params":`+vectorParams+`}`)
	require.Equal(t, http.StatusOK, status, resp.Message)

	var form map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &form))
	assert.Equal(t, testGatewayID, form["MerchantID"])
	assert.Equal(t, vectorTradeInfo, form["TradeInfo"])
	assert.Equal(t, vectorTradeSha, form["TradeSha"])
	assert.Equal(t, "1.4", form["Version"])
}

func TestIntegration_Checksums(t *testing.T) {
	app := newTestApp(t)
	merchantID, token := app.registerMerchant(t)
	base := "/api/v1/envelope/" + merchantID

	// Checksums ignore insertion order.
	_, first := app.postJSON(t, base+"/check-value", token, `{"variant":"default","params":{"Amt":100,"MerchantID":"3430112","MerchantOrderNo":"S_1"}}`)
	status, second := app.postJSON(t, base+"/check-value", token, `{"variant":"default","params":{"MerchantOrderNo":"S_1","MerchantID":"3430112","Amt":100}}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, string(first.Data), string(second.Data))

	status, resp := app.postJSON(t, base+"/check-code", token, `{"variant":"mpg_gateway","params":{"Amt":100}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ENV_002", resp.ErrorCode)

	status, resp = app.postJSON(t, base+"/check-code", token, `{"variant":"default","raw":"Amt=100"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "ENV_003", resp.ErrorCode)
}

func TestIntegration_MerchantScope(t *testing.T) {
	app := newTestApp(t)
	merchantID, token := app.registerMerchant(t)

	status, _ := app.get(t, "/api/v1/merchants/"+merchantID, token)
	assert.Equal(t, http.StatusOK, status)

	// A token scoped to one merchant cannot use another's credentials.
	other, _, err := app.tokens.Generate(ports.TokenClaims{Subject: "other", MerchantID: uuid.New()})
	require.NoError(t, err)
	status, resp := app.postJSON(t, "/api/v1/envelope/"+merchantID+"/encrypt", other, `{"raw":"x"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "AUTH_002", resp.ErrorCode)

	status, _ = app.postJSON(t, "/api/v1/envelope/"+merchantID+"/encrypt", "", `{"raw":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestIntegration_SuspendedMerchant(t *testing.T) {
	app := newTestApp(t)
	merchantID, token := app.registerMerchant(t)

	status, _ := app.postJSON(t, "/api/v1/merchants/"+merchantID+"/suspend", app.adminToken, "")
	require.Equal(t, http.StatusOK, status)

	status, resp := app.postJSON(t, "/api/v1/envelope/"+merchantID+"/encrypt", token, `{"raw":"x"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "MER_002", resp.ErrorCode)
}

func TestIntegration_RotateCredentials(t *testing.T) {
	app := newTestApp(t)
	merchantID, token := app.registerMerchant(t)

	status, resp := app.postJSON(t, "/api/v1/merchants/"+merchantID+"/rotate", app.adminToken,
		`{"hash_key":"short","hash_iv":"1234567890123456"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ENV_004", resp.ErrorCode)

	status, _ = app.postJSON(t, "/api/v1/merchants/"+merchantID+"/rotate", app.adminToken,
		`{"hash_key":"abcdefghijklmnopqrstuvwxyzabcdef","hash_iv":"abcdefghijklmnop"}`)
	require.Equal(t, http.StatusOK, status)

	status, resp = app.postJSON(t, "/api/v1/envelope/"+merchantID+"/encrypt", token, `{"params":`+vectorParams+`}`)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(resp.Data), vectorTradeInfo)
}

func TestIntegration_NotifyFlow(t *testing.T) {
	app := newTestApp(t)
	merchantID, token := app.registerMerchant(t)

	form := sealedNotification(t, "Status=SUCCESS&Message=OK&MerchantID=3430112&Amt=40&TradeNo=23092714215835071&MerchantOrderNo=S_1&PaymentType=CREDIT")

	status, resp := app.postNotify(t, merchantID, form)
	require.Equal(t, http.StatusOK, status, resp.Message)
	var recorded struct {
		MerchantOrderNo string `json:"merchant_order_no"`
		Amount          int64  `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &recorded))
	assert.Equal(t, "S_1", recorded.MerchantOrderNo)
	assert.Equal(t, int64(40), recorded.Amount)

	// The gateway retries with the same TradeSha; it is acknowledged, not recorded.
	status, _ = app.postNotify(t, merchantID, form)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, app.notifications.count())

	status, resp = app.get(t, "/api/v1/merchants/"+merchantID+"/notifications?merchant_order_no=S_1", token)
	require.Equal(t, http.StatusOK, status)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)
}

func TestIntegration_NotifyTampered(t *testing.T) {
	app := newTestApp(t)
	merchantID, _ := app.registerMerchant(t)

	form := sealedNotification(t, "Status=SUCCESS&MerchantID=3430112&Amt=40&MerchantOrderNo=S_1")
	form.Set("TradeSha", strings.Repeat("0", 64))

	status, resp := app.postNotify(t, merchantID, form)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "SEC_001", resp.ErrorCode)
	assert.Equal(t, 0, app.notifications.count())
}

// TestConcurrentRegistrations registers one gateway merchant ID many times at
// once; exactly one wins and the rest see a conflict, never a 500.
func TestConcurrentRegistrations(t *testing.T) {
	app := newTestApp(t)

	body, _ := json.Marshal(map[string]string{
		"gateway_merchant_id": testGatewayID,
		"hash_key":            testHashKey,
		"hash_iv":             testHashIV,
	})

	const concurrency = 20
	var wg sync.WaitGroup
	var created, conflicts atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/merchants", bytes.NewReader(body))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+app.adminToken)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict:
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created.Load())
	assert.Equal(t, int64(concurrency-1), conflicts.Load())
}

// TestConcurrentNotifyDeliveries fires the same notification many times at
// once; the nonce store must let exactly one through.
func TestConcurrentNotifyDeliveries(t *testing.T) {
	app := newTestApp(t)
	merchantID, _ := app.registerMerchant(t)

	form := sealedNotification(t, "Status=SUCCESS&MerchantID=3430112&Amt=40&MerchantOrderNo=S_CONCURRENT")
	body := form.Encode()

	const concurrency = 50
	var wg sync.WaitGroup
	var okCount atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/notify/"+merchantID, bytes.NewBufferString(body))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				okCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(concurrency), okCount.Load())
	assert.Equal(t, 1, app.notifications.count())
}
