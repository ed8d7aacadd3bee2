package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/currency-exchange-api/internal/application/calculator"
	"github.com/currency-exchange-api/internal/domain"
	"github.com/currency-exchange-api/internal/pkg/id"
	"github.com/shopspring/decimal"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	receiptURLTTL       = 15 * time.Minute
)

type Service interface {
	Perform(ctx context.Context, userID string, req domain.ExchangeRequest) (*domain.Transaction, error)
	History(ctx context.Context, userID string, limit int) ([]domain.Transaction, error)
	Get(ctx context.Context, userID, transactionID string) (*domain.Transaction, error)
	ReceiptURL(ctx context.Context, userID, transactionID string) (string, error)
}

type rateSource interface {
	GetRate(ctx context.Context, pair domain.Pair) (domain.RateQuote, error)
	Redeem(ctx context.Context, userID, reservationID string, pair domain.Pair) (*domain.RateReservation, error)
}

type transactionStore interface {
	Put(ctx context.Context, tx *domain.Transaction) error
	Get(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit int32) ([]domain.Transaction, error)
}

type receiptStore interface {
	Upload(ctx context.Context, key, contentType string, body []byte) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type eventPublisher interface {
	PublishTransaction(ctx context.Context, ev domain.TransactionEvent) error
}

type service struct {
	calc     *calculator.Calculator
	rates    rateSource
	repo     transactionStore
	receipts receiptStore
	events   eventPublisher
}

// ServiceDeps wires the exchange service. Receipts and Events are optional.
type ServiceDeps struct {
	Calculator      *calculator.Calculator
	Rates           rateSource
	TransactionRepo transactionStore
	Receipts        receiptStore
	Events          eventPublisher
}

func NewService(deps ServiceDeps) Service {
	calc := deps.Calculator
	if calc == nil {
		calc = calculator.New(calculator.DefaultPolicy())
	}
	return &service{
		calc:     calc,
		rates:    deps.Rates,
		repo:     deps.TransactionRepo,
		receipts: deps.Receipts,
		events:   deps.Events,
	}
}

// Perform prices and records an exchange. A reservation, when given, supplies
// the rate and is consumed; otherwise the current rate is used.
func (s *service) Perform(ctx context.Context, userID string, req domain.ExchangeRequest) (*domain.Transaction, error) {
	pair, err := domain.NewPair(req.From, req.To)
	if err != nil {
		return nil, err
	}
	if pair.Same() {
		return nil, domain.NewValidationError("to", "must differ from the source currency")
	}
	if err := s.calc.CheckAmount(req.Amount); err != nil {
		return nil, err
	}

	var (
		rate   decimal.Decimal
		source string
	)
	if req.ReservationID != "" {
		r, err := s.rates.Redeem(ctx, userID, req.ReservationID, pair)
		if err != nil {
			return nil, err
		}
		rate, source = r.Rate, domain.SourceReserved
	} else {
		q, err := s.rates.GetRate(ctx, pair)
		if err != nil {
			return nil, err
		}
		rate, source = q.Rate, q.Source
	}

	calc, err := s.calc.ComputeExchange(string(pair.From), string(pair.To), req.Amount, req.FeeMode, rate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tx := &domain.Transaction{
		TransactionID: id.New(),
		Reference:     id.WithPrefix("TXN"),
		UserID:        userID,
		FromCurrency:  pair.From,
		ToCurrency:    pair.To,
		FromAmount:    calc.OriginalAmount,
		ToAmount:      calc.NetAmount,
		ExchangeRate:  calc.ExchangeRate,
		FeeMode:       calc.FeeMode,
		FeeAmount:     calc.FeeAmount,
		TotalCost:     calc.TotalCost,
		RateSource:    source,
		ReservationID: req.ReservationID,
		Status:        domain.TxCompleted,
		CreatedAt:     now,
		CompletedAt:   &now,
	}
	s.archiveReceipt(ctx, tx, calc)
	if err := s.repo.Put(ctx, tx); err != nil {
		return nil, fmt.Errorf("saving transaction: %w", err)
	}
	s.publish(ctx, tx)
	return tx, nil
}

func receiptKey(tx *domain.Transaction) string {
	return fmt.Sprintf("receipts/%s/%s.json", tx.UserID, tx.TransactionID)
}

// archiveReceipt is best effort; on failure the transaction is stored without
// a receipt key.
func (s *service) archiveReceipt(ctx context.Context, tx *domain.Transaction, calc domain.CalculationResult) {
	if s.receipts == nil {
		return
	}
	body, err := json.Marshal(struct {
		Transaction *domain.Transaction      `json:"transaction"`
		Calculation domain.CalculationResult `json:"calculation"`
	}{tx, calc})
	if err != nil {
		slog.Error("encoding receipt", "transaction_id", tx.TransactionID, "err", err)
		return
	}
	key := receiptKey(tx)
	if err := s.receipts.Upload(ctx, key, "application/json", body); err != nil {
		slog.Error("uploading receipt", "transaction_id", tx.TransactionID, "err", err)
		return
	}
	tx.ReceiptKey = key
}

func (s *service) publish(ctx context.Context, tx *domain.Transaction) {
	if s.events == nil {
		return
	}
	ev := domain.TransactionEvent{Type: domain.EventTransactionCompleted, Transaction: tx, OccurredAt: time.Now().UTC()}
	if err := s.events.PublishTransaction(ctx, ev); err != nil {
		slog.Error("publishing transaction event", "transaction_id", tx.TransactionID, "err", err)
	}
}

func (s *service) History(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.ListByUser(ctx, userID, int32(limit))
}

func (s *service) Get(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	tx, err := s.repo.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.UserID != userID {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, domain.ErrNotFound)
	}
	return tx, nil
}

func (s *service) ReceiptURL(ctx context.Context, userID, transactionID string) (string, error) {
	tx, err := s.Get(ctx, userID, transactionID)
	if err != nil {
		return "", err
	}
	if s.receipts == nil || tx.ReceiptKey == "" {
		return "", fmt.Errorf("no receipt for transaction %s: %w", transactionID, domain.ErrNotFound)
	}
	return s.receipts.PresignedURL(ctx, tx.ReceiptKey, receiptURLTTL)
}
