package http

import (
	"context"
	"time"

	"github.com/currency-exchange-api/internal/application/verification"
	"github.com/currency-exchange-api/internal/domain"
	"github.com/currency-exchange-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/currency-exchange-api/internal/infrastructure/jwt"
	"github.com/currency-exchange-api/internal/infrastructure/smtp"
	"github.com/currency-exchange-api/internal/infrastructure/sns"
)

// RateOracle is the minimal interface the router requires from a live rate source.
type RateOracle interface {
	Latest(ctx context.Context, base domain.CurrencyCode) (domain.RateTable, error)
}

// ReceiptStore is the minimal interface the router requires from receipt storage.
// Leave it nil to skip receipts.
type ReceiptStore interface {
	Upload(ctx context.Context, key, contentType string, body []byte) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// EventPublisher is the minimal interface the router requires from the event bus.
type EventPublisher interface {
	PublishTransaction(ctx context.Context, ev domain.TransactionEvent) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo        *dynamo.UserRepo
	CurrencyRepo    *dynamo.CurrencyRepo
	TransactionRepo *dynamo.TransactionRepo
	WatchlistRepo   *dynamo.WatchlistRepo
	RateAlertRepo   *dynamo.RateAlertRepo
	ReservationRepo *dynamo.ReservationRepo
	Codes           verification.Store
	Oracle          RateOracle
	Receipts        ReceiptStore
	Events          EventPublisher
	Mailer          smtp.Mailer
	SMSSender       sns.SMSSender
	JWTProvider     *jwtinfra.Provider
}
