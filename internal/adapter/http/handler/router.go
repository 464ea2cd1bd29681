package handler

import (
	"trade-envelope/internal/adapter/http/middleware"
	redisStore "trade-envelope/internal/adapter/storage/redis"
	"trade-envelope/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const defaultMaxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	MerchantSvc     ports.MerchantService
	EnvelopeSvc     ports.EnvelopeService
	NotificationSvc ports.NotificationService
	TokenSvc        ports.TokenService
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	MaxBodyBytes    int64
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()

	// rl returns the group's rate limiter, or a no-op without a store.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public: gateway callbacks, authenticated by TradeSha ---
	notifyHandler := NewNotifyHandler(deps.NotificationSvc)
	v1.POST("/notify/:merchant_id", rl("notify"), middleware.MerchantScope("merchant_id"), notifyHandler.Notify)

	// --- JWT-authenticated internal API ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	merchantHandler := NewMerchantHandler(deps.MerchantSvc, deps.NotificationSvc)
	merchants := v1.Group("/merchants", jwtAuth, rl("merchants"))
	{
		merchants.POST("", middleware.RequireAdmin(), merchantHandler.Register)

		scoped := merchants.Group("/:merchant_id", middleware.MerchantScope("merchant_id"))
		scoped.GET("", merchantHandler.Get)
		scoped.GET("/notifications", merchantHandler.ListNotifications)
		scoped.POST("/rotate", middleware.RequireAdmin(), merchantHandler.RotateCredentials)
		scoped.POST("/suspend", middleware.RequireAdmin(), merchantHandler.Suspend)
	}

	envelopeHandler := NewEnvelopeHandler(deps.EnvelopeSvc)
	envelopes := v1.Group("/envelope/:merchant_id", jwtAuth, rl("envelope"), middleware.MerchantScope("merchant_id"))
	{
		envelopes.POST("/encrypt", envelopeHandler.Encrypt)
		envelopes.POST("/decrypt", envelopeHandler.Decrypt)
		envelopes.POST("/trade-sha", envelopeHandler.TradeSha)
		envelopes.POST("/check-code", envelopeHandler.CheckCode)
		envelopes.POST("/check-value", envelopeHandler.CheckValue)
		envelopes.POST("/trade-request", envelopeHandler.TradeRequest)
	}

	return r
}
