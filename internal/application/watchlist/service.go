package watchlist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/currency-exchange-api/internal/domain"
	"github.com/currency-exchange-api/internal/pkg/id"
	"github.com/shopspring/decimal"
)

var (
	hundred      = decimal.NewFromInt(100)
	maxThreshold = hundred
)

type Service interface {
	List(ctx context.Context, userID string) ([]domain.WatchlistItem, error)
	Add(ctx context.Context, userID string, req domain.AddWatchlistRequest) (*domain.WatchlistItem, error)
	Remove(ctx context.Context, userID, watchlistID string) error
	SetAlert(ctx context.Context, userID string, req domain.SetAlertRequest) (*domain.RateAlert, error)
	ListAlerts(ctx context.Context, userID string) ([]domain.AlertStatus, error)
	DeleteAlert(ctx context.Context, userID, from, to string) error
}

type rateSource interface {
	GetRate(ctx context.Context, pair domain.Pair) (domain.RateQuote, error)
}

type watchlistStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.WatchlistItem, error)
	Put(ctx context.Context, item *domain.WatchlistItem) error
	Delete(ctx context.Context, userID, watchlistID string) error
}

type alertStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.RateAlert, error)
	Put(ctx context.Context, a *domain.RateAlert) error
	Delete(ctx context.Context, userID string, pair domain.Pair) error
}

type service struct {
	rates  rateSource
	items  watchlistStore
	alerts alertStore
}

type ServiceDeps struct {
	Rates         rateSource
	WatchlistRepo watchlistStore
	AlertRepo     alertStore
}

func NewService(deps ServiceDeps) Service {
	return &service{rates: deps.Rates, items: deps.WatchlistRepo, alerts: deps.AlertRepo}
}

// List returns the user's pairs with fresh rates. A pair whose rate cannot be
// fetched keeps its stored rate.
func (s *service) List(ctx context.Context, userID string) ([]domain.WatchlistItem, error) {
	items, err := s.items.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		pair := domain.Pair{From: items[i].FromCurrency, To: items[i].ToCurrency}
		q, err := s.rates.GetRate(ctx, pair)
		if err != nil {
			slog.Warn("watchlist rate refresh failed", "pair", pair.String(), "err", err)
			continue
		}
		items[i].LastRate = q.Rate
		items[i].RateSource = q.Source
		items[i].UpdatedAt = q.FetchedAt
	}
	return items, nil
}

func watchPair(from, to string) (domain.Pair, error) {
	pair, err := domain.NewPair(from, to)
	if err != nil {
		return domain.Pair{}, err
	}
	if pair.Same() {
		return domain.Pair{}, domain.NewValidationError("to_currency", "must differ from from_currency")
	}
	return pair, nil
}

func (s *service) Add(ctx context.Context, userID string, req domain.AddWatchlistRequest) (*domain.WatchlistItem, error) {
	pair, err := watchPair(req.From, req.To)
	if err != nil {
		return nil, err
	}
	existing, err := s.items.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, it := range existing {
		if it.FromCurrency == pair.From && it.ToCurrency == pair.To {
			return nil, fmt.Errorf("%s already on watchlist: %w", pair, domain.ErrConflict)
		}
	}

	now := time.Now().UTC()
	item := &domain.WatchlistItem{
		WatchlistID:  id.New(),
		UserID:       userID,
		FromCurrency: pair.From,
		ToCurrency:   pair.To,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if q, err := s.rates.GetRate(ctx, pair); err == nil {
		item.LastRate = q.Rate
		item.RateSource = q.Source
	} else {
		slog.Warn("watchlist initial rate unavailable", "pair", pair.String(), "err", err)
	}
	if err := s.items.Put(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) Remove(ctx context.Context, userID, watchlistID string) error {
	return s.items.Delete(ctx, userID, watchlistID)
}

// SetAlert records the current rate as the baseline; an existing alert for
// the pair is replaced.
func (s *service) SetAlert(ctx context.Context, userID string, req domain.SetAlertRequest) (*domain.RateAlert, error) {
	pair, err := watchPair(req.From, req.To)
	if err != nil {
		return nil, err
	}
	if !req.Threshold.IsPositive() || req.Threshold.GreaterThan(maxThreshold) {
		return nil, domain.NewValidationError("threshold", "must be greater than 0 and at most 100")
	}
	q, err := s.rates.GetRate(ctx, pair)
	if err != nil {
		return nil, err
	}
	a := &domain.RateAlert{
		UserID:           userID,
		FromCurrency:     pair.From,
		ToCurrency:       pair.To,
		ThresholdPercent: req.Threshold,
		BaselineRate:     q.Rate,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.alerts.Put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) ListAlerts(ctx context.Context, userID string) ([]domain.AlertStatus, error) {
	alerts, err := s.alerts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AlertStatus, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, s.evaluate(ctx, a))
	}
	return out, nil
}

func (s *service) evaluate(ctx context.Context, a domain.RateAlert) domain.AlertStatus {
	st := domain.AlertStatus{Alert: a, PreviousRate: a.BaselineRate, CurrentRate: a.BaselineRate, ChangePercent: decimal.Zero}
	pair := domain.Pair{From: a.FromCurrency, To: a.ToCurrency}
	q, err := s.rates.GetRate(ctx, pair)
	if err != nil {
		slog.Warn("alert rate refresh failed", "pair", pair.String(), "err", err)
		return st
	}
	st.CurrentRate = q.Rate
	if !a.BaselineRate.IsPositive() {
		return st
	}
	st.ChangePercent = q.Rate.Sub(a.BaselineRate).Div(a.BaselineRate).Mul(hundred).Round(2)
	st.Triggered = st.ChangePercent.Abs().GreaterThanOrEqual(a.ThresholdPercent)
	return st
}

func (s *service) DeleteAlert(ctx context.Context, userID, from, to string) error {
	pair, err := domain.NewPair(from, to)
	if err != nil {
		return err
	}
	return s.alerts.Delete(ctx, userID, pair)
}
