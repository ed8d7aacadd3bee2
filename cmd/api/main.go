package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/currency-exchange-api/internal/application/currency"
	"github.com/currency-exchange-api/internal/application/verification"
	"github.com/currency-exchange-api/internal/config"
	"github.com/currency-exchange-api/internal/infrastructure/dynamo"
	"github.com/currency-exchange-api/internal/infrastructure/events"
	jwtinfra "github.com/currency-exchange-api/internal/infrastructure/jwt"
	"github.com/currency-exchange-api/internal/infrastructure/ratesapi"
	redisinfra "github.com/currency-exchange-api/internal/infrastructure/redis"
	s3infra "github.com/currency-exchange-api/internal/infrastructure/s3"
	"github.com/currency-exchange-api/internal/infrastructure/smtp"
	"github.com/currency-exchange-api/internal/infrastructure/sns"
	transporthttp "github.com/currency-exchange-api/internal/transport/http"
	"github.com/joho/godotenv"
)

const sweepInterval = time.Minute

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dynamo client: %w", err)
	}
	if err := dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables); err != nil {
		logger.Warn("table bootstrap incomplete", "err", err)
	}

	currencyRepo := dynamo.NewCurrencyRepo(dynamoClient, cfg.DynamoTables.Currencies)
	if n, err := currency.NewService(currency.ServiceDeps{CurrencyRepo: currencyRepo}).Seed(ctx); err != nil {
		logger.Warn("seeding currencies failed", "err", err)
	} else if n > 0 {
		logger.Info("seeded currencies", "count", n)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	codes, err := newVerificationStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	smsSender, err := sns.NewSender(ctx, cfg)
	if err != nil {
		return fmt.Errorf("sns sender: %w", err)
	}

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("closing event publisher", "err", err)
		}
	}()

	deps := &transporthttp.Deps{
		UserRepo:        dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		CurrencyRepo:    currencyRepo,
		TransactionRepo: dynamo.NewTransactionRepo(dynamoClient, cfg.DynamoTables.Transactions),
		WatchlistRepo:   dynamo.NewWatchlistRepo(dynamoClient, cfg.DynamoTables.Watchlists),
		RateAlertRepo:   dynamo.NewRateAlertRepo(dynamoClient, cfg.DynamoTables.RateAlerts),
		ReservationRepo: dynamo.NewReservationRepo(dynamoClient, cfg.DynamoTables.Reservations),
		Codes:           codes,
		Oracle:          ratesapi.NewLoggingOracle(logger, ratesapi.NewCachingOracle(cfg.RateCacheTTL, ratesapi.NewClient(cfg))),
		Events:          publisher,
		Mailer:          smtp.NewMailer(cfg),
		SMSSender:       smsSender,
		JWTProvider:     jwtProvider,
	}
	if receipts := newReceiptStore(ctx, cfg, logger); receipts != nil {
		deps.Receipts = receipts
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newVerificationStore picks the code store backend. The in-memory store is
// swept in the background until ctx ends.
func newVerificationStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (verification.Store, error) {
	opts := verification.Options{CodeTTL: cfg.VerificationCodeTTL, ResendCooldown: cfg.ResendCooldown}
	switch cfg.VerificationBackend {
	case "redis":
		store := redisinfra.NewVerificationStore(redisinfra.NewClient(cfg), opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("redis verification store: %w", err)
		}
		logger.Info("verification store ready", "backend", "redis", "addr", cfg.RedisAddr)
		return store, nil
	case "", "memory":
		store := verification.NewMemoryStore(opts)
		go store.Run(ctx, sweepInterval)
		logger.Info("verification store ready", "backend", "memory")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown verification backend %q", cfg.VerificationBackend)
	}
}

// newReceiptStore returns nil when receipts are disabled or the bucket is unreachable.
func newReceiptStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) *s3infra.ReceiptStore {
	if cfg.S3BucketName == "" {
		return nil
	}
	client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		logger.Warn("receipts disabled", "err", err)
		return nil
	}
	store := s3infra.NewReceiptStore(client, cfg.S3BucketName)
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Warn("receipts disabled", "bucket", cfg.S3BucketName, "err", err)
		return nil
	}
	return store
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
