package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/currency-exchange-api/internal/domain"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName   = "name"
	fieldSymbol = "symbol"
	fieldActive = "is_active"
)

// defaults is the catalogue written on first start.
var defaults = []domain.Currency{
	{Code: "USD", Name: "US Dollar", Symbol: "$"},
	{Code: "EUR", Name: "Euro", Symbol: "€"},
	{Code: "GBP", Name: "British Pound", Symbol: "£"},
	{Code: "JPY", Name: "Japanese Yen", Symbol: "¥"},
	{Code: "CNY", Name: "Chinese Yuan", Symbol: "¥"},
	{Code: "KRW", Name: "South Korean Won", Symbol: "₩"},
	{Code: "MXN", Name: "Mexican Peso", Symbol: "$"},
	{Code: "CAD", Name: "Canadian Dollar", Symbol: "C$"},
	{Code: "AUD", Name: "Australian Dollar", Symbol: "A$"},
	{Code: "CHF", Name: "Swiss Franc", Symbol: "CHF"},
}

type Service interface {
	Seed(ctx context.Context) (int, error)
	List(ctx context.Context, includeInactive bool) ([]domain.Currency, error)
	Get(ctx context.Context, code string) (*domain.Currency, error)
	Create(ctx context.Context, req domain.CreateCurrencyRequest) (*domain.Currency, error)
	Update(ctx context.Context, code string, req domain.UpdateCurrencyRequest) (*domain.Currency, error)
	Delete(ctx context.Context, code string) error
}

type currencyStore interface {
	Get(ctx context.Context, code domain.CurrencyCode) (*domain.Currency, error)
	Create(ctx context.Context, c *domain.Currency) error
	List(ctx context.Context) ([]domain.Currency, error)
	Update(ctx context.Context, code domain.CurrencyCode, updates map[string]interface{}) error
}

type service struct {
	repo currencyStore
}

type ServiceDeps struct {
	CurrencyRepo currencyStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.CurrencyRepo}
}

// Seed inserts every default currency that is not stored yet and reports how
// many were added. Existing rows are left alone.
func (s *service) Seed(ctx context.Context) (int, error) {
	added := 0
	now := time.Now().UTC()
	for _, c := range defaults {
		c := c
		c.Active = true
		c.CreatedAt = now
		c.UpdatedAt = now
		err := s.repo.Create(ctx, &c)
		switch {
		case err == nil:
			added++
		case errors.Is(err, domain.ErrConflict):
		default:
			return added, fmt.Errorf("seeding %s: %w", c.Code, err)
		}
	}
	if added > 0 {
		slog.Info("currency catalogue seeded", "added", added)
	}
	return added, nil
}

func (s *service) List(ctx context.Context, includeInactive bool) ([]domain.Currency, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Currency, 0, len(all))
	for _, c := range all {
		if c.Active || includeInactive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func parseCode(code string) (domain.CurrencyCode, error) {
	c, ok := domain.NormalizeCode(code)
	if !ok {
		return "", domain.NewValidationError("code", "must be a 3-letter currency code")
	}
	return c, nil
}

func (s *service) Get(ctx context.Context, code string) (*domain.Currency, error) {
	c, err := parseCode(code)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, c)
}

func (s *service) Create(ctx context.Context, req domain.CreateCurrencyRequest) (*domain.Currency, error) {
	code, err := parseCode(req.Code)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &domain.Currency{
		Code:      code,
		Name:      req.Name,
		Symbol:    req.Symbol,
		Active:    req.Active == nil || *req.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Update(ctx context.Context, code string, req domain.UpdateCurrencyRequest) (*domain.Currency, error) {
	c, err := parseCode(code)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates[fieldName] = *req.Name
	}
	if req.Symbol != nil {
		updates[fieldSymbol] = *req.Symbol
	}
	if req.Active != nil {
		updates[fieldActive] = *req.Active
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, c)
	}
	if err := s.repo.Update(ctx, c, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, c)
}

// Delete deactivates the currency; rows are never removed.
func (s *service) Delete(ctx context.Context, code string) error {
	c, err := parseCode(code)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, c, map[string]interface{}{fieldActive: false})
}
