package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-envelope/config"
	httpHandler "trade-envelope/internal/adapter/http/handler"
	pgStorage "trade-envelope/internal/adapter/storage/postgres"
	redisStorage "trade-envelope/internal/adapter/storage/redis"
	"trade-envelope/internal/core/ports"
	"trade-envelope/internal/service"
	"trade-envelope/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", "", "path to config file (default ./config.yaml or ./config/config.yaml)")
	issueFor := pflag.String("issue-token", "", "print a JWT for this subject and exit")
	admin := pflag.Bool("admin", false, "with --issue-token: grant the admin claim")
	merchant := pflag.String("merchant", "", "with --issue-token: restrict the token to one merchant UUID")
	pflag.Parse()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.JWT.Secret == "" {
		fmt.Fprintln(os.Stderr, "jwt.secret is required (TENV_JWT_SECRET)")
		os.Exit(1)
	}
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	if *issueFor != "" {
		if err := issueToken(tokenSvc, *issueFor, *admin, *merchant); err != nil {
			fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
			os.Exit(1)
		}
		return
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting trade envelope service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Repositories and stores
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	notificationRepo := pgStorage.NewNotificationRepo(pool)
	nonceStore := redisStorage.NewNonceStore(rdb)

	var rateLimitStore *redisStorage.RateLimitStore
	if cfg.Gateway.RateLimit {
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}

	// Services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key, cfg.AES.Salt)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	merchantSvc := service.NewMerchantService(merchantRepo, encSvc, log)
	envelopeSvc := service.NewEnvelopeService(merchantSvc, cfg.Gateway.MPGVersion, log)
	notificationSvc := service.NewNotificationService(merchantSvc, notificationRepo, nonceStore, cfg.Gateway.NotifyReplayTTL, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		MerchantSvc:     merchantSvc,
		EnvelopeSvc:     envelopeSvc,
		NotificationSvc: notificationSvc,
		TokenSvc:        tokenSvc,
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  []ports.HealthChecker{pgStorage.NewHealthCheck(pool), redisStorage.NewHealthCheck(rdb)},
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		Logger:          log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func issueToken(tokenSvc ports.TokenService, subject string, admin bool, merchant string) error {
	claims := ports.TokenClaims{Subject: subject, Admin: admin}
	if merchant != "" {
		id, err := uuid.Parse(merchant)
		if err != nil {
			return fmt.Errorf("parsing --merchant: %w", err)
		}
		claims.MerchantID = id
	}

	token, expiresAt, err := tokenSvc.Generate(claims)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n# expires %s\n", token, expiresAt.Format(time.RFC3339))
	return nil
}
