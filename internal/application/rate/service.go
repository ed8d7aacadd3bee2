// Package rate resolves exchange rates (oracle first, static table second)
// and manages short-lived rate reservations.
package rate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/currency-exchange-api/internal/domain"
	"github.com/currency-exchange-api/internal/pkg/id"
	"github.com/shopspring/decimal"
)

const (
	DefaultReservationTTL = 15 * time.Minute
	dateLayout            = "2006-01-02"
)

type Service interface {
	GetRate(ctx context.Context, pair domain.Pair) (domain.RateQuote, error)
	GetAllRates(ctx context.Context, base string) (domain.RateTable, error)
	Historical(ctx context.Context, date, base string) (domain.RateTable, error)
	TestConnection(ctx context.Context) domain.ConnectionStatus
	Reserve(ctx context.Context, userID string, req domain.ReserveRequest) (*domain.RateReservation, error)
	GetReservation(ctx context.Context, userID, reservationID string) (*domain.RateReservation, error)
	Redeem(ctx context.Context, userID, reservationID string, pair domain.Pair) (*domain.RateReservation, error)
}

type rateOracle interface {
	Latest(ctx context.Context, base domain.CurrencyCode) (domain.RateTable, error)
}

type reservationStore interface {
	Put(ctx context.Context, r *domain.RateReservation) error
	Get(ctx context.Context, reservationID string) (*domain.RateReservation, error)
	MarkUsed(ctx context.Context, reservationID string) error
}

type service struct {
	oracle         rateOracle
	reservations   reservationStore
	reservationTTL time.Duration
	nowF           func() time.Time
}

type ServiceDeps struct {
	Oracle         rateOracle
	Reservations   reservationStore
	ReservationTTL time.Duration
}

func NewService(deps ServiceDeps) Service {
	ttl := deps.ReservationTTL
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	return &service{
		oracle:         deps.Oracle,
		reservations:   deps.Reservations,
		reservationTTL: ttl,
		nowF:           func() time.Time { return time.Now().UTC() },
	}
}

// GetRate prices pair. Oracle failures and unknown codes fall back to the
// static table; only when both miss is a RateUnavailableError returned.
func (s *service) GetRate(ctx context.Context, pair domain.Pair) (domain.RateQuote, error) {
	now := s.nowF()
	if pair.Same() {
		return domain.RateQuote{From: pair.From, To: pair.To, Rate: decimal.NewFromInt(1), Source: domain.SourceIdentity, FetchedAt: now}, nil
	}

	var cause error
	table, err := s.oracle.Latest(ctx, pair.From)
	if err == nil {
		if r, ok := table.Rates[pair.To]; ok && r.IsPositive() {
			return domain.RateQuote{From: pair.From, To: pair.To, Rate: r, Source: domain.SourceLive, FetchedAt: table.FetchedAt}, nil
		}
		cause = fmt.Errorf("oracle has no rate for %s", pair.To)
	} else {
		cause = err
	}
	if errors.Is(cause, context.Canceled) {
		return domain.RateQuote{}, cause
	}

	if r, ok := fallbackRate(pair); ok {
		slog.Warn("using fallback rate", "pair", pair.String(), "cause", cause)
		return domain.RateQuote{From: pair.From, To: pair.To, Rate: r, Source: domain.SourceFallback, FetchedAt: now}, nil
	}
	return domain.RateQuote{}, &domain.RateUnavailableError{Pair: pair, Cause: cause}
}

func parseBase(base string) (domain.CurrencyCode, error) {
	if base == "" {
		return domain.USD, nil
	}
	code, ok := domain.NormalizeCode(base)
	if !ok {
		return "", domain.NewValidationError("base", "must be a 3-letter currency code")
	}
	return code, nil
}

func (s *service) GetAllRates(ctx context.Context, base string) (domain.RateTable, error) {
	code, err := parseBase(base)
	if err != nil {
		return domain.RateTable{}, err
	}
	table, err := s.oracle.Latest(ctx, code)
	if err == nil {
		return table, nil
	}
	rates, ok := fallbackTable(code)
	if !ok {
		return domain.RateTable{}, &domain.RateUnavailableError{Pair: domain.Pair{From: code, To: code}, Cause: err}
	}
	slog.Warn("using fallback rate table", "base", code, "cause", err)
	return domain.RateTable{Base: code, Rates: rates, Source: domain.SourceFallback, FetchedAt: s.nowF()}, nil
}

// Historical answers from the static table; the upstream plan has no history.
func (s *service) Historical(_ context.Context, date, base string) (domain.RateTable, error) {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return domain.RateTable{}, domain.NewValidationError("date", "must be YYYY-MM-DD")
	}
	now := s.nowF()
	if d.After(now) {
		return domain.RateTable{}, domain.NewValidationError("date", "must not be in the future")
	}
	code, err := parseBase(base)
	if err != nil {
		return domain.RateTable{}, err
	}
	rates, ok := fallbackTable(code)
	if !ok {
		return domain.RateTable{}, &domain.RateUnavailableError{Pair: domain.Pair{From: code, To: code}}
	}
	return domain.RateTable{Base: code, Rates: rates, Source: domain.SourceFallback, Date: date, FetchedAt: now}, nil
}

func (s *service) TestConnection(ctx context.Context) domain.ConnectionStatus {
	begin := time.Now()
	_, err := s.oracle.Latest(ctx, domain.USD)
	st := domain.ConnectionStatus{
		Connected: err == nil,
		Source:    domain.SourceLive,
		LatencyMS: time.Since(begin).Milliseconds(),
		CheckedAt: s.nowF(),
	}
	if err != nil {
		st.Source = domain.SourceFallback
		st.Error = err.Error()
	}
	return st
}

func (s *service) Reserve(ctx context.Context, userID string, req domain.ReserveRequest) (*domain.RateReservation, error) {
	pair, err := domain.NewPair(req.From, req.To)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be greater than 0")
	}
	q, err := s.GetRate(ctx, pair)
	if err != nil {
		return nil, err
	}
	now := s.nowF()
	r := &domain.RateReservation{
		ReservationID: id.WithPrefix("RES"),
		UserID:        userID,
		FromCurrency:  pair.From,
		ToCurrency:    pair.To,
		Amount:        req.Amount,
		Rate:          q.Rate,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.reservationTTL),
	}
	if err := s.reservations.Put(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetReservation returns an active reservation owned by userID. Expired,
// used and foreign reservations all read as not found.
func (s *service) GetReservation(ctx context.Context, userID, reservationID string) (*domain.RateReservation, error) {
	r, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID || !r.Active(s.nowF()) {
		return nil, fmt.Errorf("reservation %s: %w", reservationID, domain.ErrNotFound)
	}
	return r, nil
}

// Redeem marks a reservation used so its rate can price exactly one exchange.
func (s *service) Redeem(ctx context.Context, userID, reservationID string, pair domain.Pair) (*domain.RateReservation, error) {
	r, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, fmt.Errorf("reservation belongs to another user: %w", domain.ErrForbidden)
	}
	if r.FromCurrency != pair.From || r.ToCurrency != pair.To {
		return nil, domain.NewValidationError("reservation_id", fmt.Sprintf("reserved for %s/%s", r.FromCurrency, r.ToCurrency))
	}
	if r.Used {
		return nil, fmt.Errorf("reservation already used: %w", domain.ErrConflict)
	}
	if !r.Active(s.nowF()) {
		return nil, fmt.Errorf("reservation expired: %w", domain.ErrBadRequest)
	}
	if err := s.reservations.MarkUsed(ctx, reservationID); err != nil {
		return nil, err
	}
	r.Used = true
	return r, nil
}
