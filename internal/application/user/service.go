package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/currency-exchange-api/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName            = "name"
	fieldDefaultCurrency = "default_currency"
	fieldPasswordHash    = "password_hash"
)

type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error)
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
	Stats(ctx context.Context, userID string) (*domain.UserStats, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type transactionStore interface {
	AllByUser(ctx context.Context, userID string) ([]domain.Transaction, error)
}

type watchlistStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.WatchlistItem, error)
}

type alertStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.RateAlert, error)
}

type service struct {
	repo         userStore
	transactions transactionStore
	watchlist    watchlistStore
	alerts       alertStore
}

type ServiceDeps struct {
	UserRepo        userStore
	TransactionRepo transactionStore
	WatchlistRepo   watchlistStore
	AlertRepo       alertStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:         deps.UserRepo,
		transactions: deps.TransactionRepo,
		watchlist:    deps.WatchlistRepo,
		alerts:       deps.AlertRepo,
	}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "must not be blank")
		}
		updates[fieldName] = name
	}
	if req.DefaultCurrency != nil {
		code, ok := domain.NormalizeCode(*req.DefaultCurrency)
		if !ok {
			return nil, domain.NewValidationError("default_currency", "must be a 3-letter currency code")
		}
		updates[fieldDefaultCurrency] = string(code)
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, userID)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, userID, map[string]interface{}{fieldPasswordHash: string(hash)})
}

// Stats sums exchanged amounts per source currency over the user's whole
// history.
func (s *service) Stats(ctx context.Context, userID string) (*domain.UserStats, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions.AllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.watchlist.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	alerts, err := s.alerts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	volume := map[string]decimal.Decimal{}
	for _, tx := range txs {
		if tx.Status != domain.TxCompleted {
			continue
		}
		code := string(tx.FromCurrency)
		volume[code] = volume[code].Add(tx.FromAmount)
	}
	st := &domain.UserStats{
		TransactionCount: len(txs),
		VolumeByCurrency: make(map[string]string, len(volume)),
		WatchlistSize:    len(items),
		AlertCount:       len(alerts),
		MemberSince:      u.CreatedAt,
	}
	for code, v := range volume {
		st.VolumeByCurrency[code] = v.StringFixed(2)
	}
	return st, nil
}
