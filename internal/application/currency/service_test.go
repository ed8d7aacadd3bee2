package currency

import (
	"context"
	"errors"
	"testing"

	"github.com/currency-exchange-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCurrencyStore struct{ mock.Mock }

func (m *mockCurrencyStore) Get(ctx context.Context, code domain.CurrencyCode) (*domain.Currency, error) {
	args := m.Called(ctx, code)
	if c, _ := args.Get(0).(*domain.Currency); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCurrencyStore) Create(ctx context.Context, c *domain.Currency) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockCurrencyStore) List(ctx context.Context) ([]domain.Currency, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Currency), args.Error(1)
}
func (m *mockCurrencyStore) Update(ctx context.Context, code domain.CurrencyCode, updates map[string]interface{}) error {
	return m.Called(ctx, code, updates).Error(0)
}

func TestSeed_SkipsExisting(t *testing.T) {
	repo := &mockCurrencyStore{}
	repo.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Currency) bool { return c.Code == "USD" || c.Code == "EUR" })).
		Return(domain.ErrConflict)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Currency")).Return(nil)

	added, err := NewService(ServiceDeps{CurrencyRepo: repo}).Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(defaults)-2, added)
	repo.AssertNumberOfCalls(t, "Create", len(defaults))
}

func TestSeed_StopsOnStoreError(t *testing.T) {
	repo := &mockCurrencyStore{}
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	added, err := NewService(ServiceDeps{CurrencyRepo: repo}).Seed(context.Background())
	assert.Error(t, err)
	assert.Zero(t, added)
	repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestList_FiltersInactiveAndSorts(t *testing.T) {
	repo := &mockCurrencyStore{}
	repo.On("List", mock.Anything).Return([]domain.Currency{
		{Code: "USD", Active: true}, {Code: "CHF", Active: false}, {Code: "EUR", Active: true},
	}, nil).Twice()
	svc := NewService(ServiceDeps{CurrencyRepo: repo})

	got, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.CurrencyCode("EUR"), got[0].Code)

	got, err = svc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, domain.CurrencyCode("CHF"), got[0].Code)
}

func TestList_LeavesStoreSliceUntouched(t *testing.T) {
	stored := []domain.Currency{{Code: "USD", Active: true}, {Code: "CHF", Active: false}, {Code: "EUR", Active: true}}
	repo := &mockCurrencyStore{}
	repo.On("List", mock.Anything).Return(stored, nil)

	_, err := NewService(ServiceDeps{CurrencyRepo: repo}).List(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []domain.CurrencyCode{"USD", "CHF", "EUR"},
		[]domain.CurrencyCode{stored[0].Code, stored[1].Code, stored[2].Code})
}

func TestGet_NormalizesCode(t *testing.T) {
	repo := &mockCurrencyStore{}
	repo.On("Get", mock.Anything, domain.CurrencyCode("GBP")).Return(&domain.Currency{Code: "GBP"}, nil)

	c, err := NewService(ServiceDeps{CurrencyRepo: repo}).Get(context.Background(), " gbp ")
	require.NoError(t, err)
	assert.Equal(t, domain.CurrencyCode("GBP"), c.Code)

	_, err = NewService(ServiceDeps{CurrencyRepo: repo}).Get(context.Background(), "pounds")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreate_DefaultsActive(t *testing.T) {
	repo := &mockCurrencyStore{}
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Currency")).Return(nil)

	c, err := NewService(ServiceDeps{CurrencyRepo: repo}).Create(context.Background(),
		domain.CreateCurrencyRequest{Code: "sgd", Name: "Singapore Dollar", Symbol: "S$"})
	require.NoError(t, err)
	assert.Equal(t, domain.CurrencyCode("SGD"), c.Code)
	assert.True(t, c.Active)
}

func TestCreate_Duplicate(t *testing.T) {
	repo := &mockCurrencyStore{}
	repo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrConflict)

	_, err := NewService(ServiceDeps{CurrencyRepo: repo}).Create(context.Background(),
		domain.CreateCurrencyRequest{Code: "USD", Name: "US Dollar"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdate_BuildsPartialMap(t *testing.T) {
	repo := &mockCurrencyStore{}
	name := "Euro (EMU)"
	repo.On("Update", mock.Anything, domain.EUR, map[string]interface{}{fieldName: name}).Return(nil)
	repo.On("Get", mock.Anything, domain.EUR).Return(&domain.Currency{Code: "EUR", Name: name}, nil)

	c, err := NewService(ServiceDeps{CurrencyRepo: repo}).Update(context.Background(), "EUR",
		domain.UpdateCurrencyRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, c.Name)
	repo.AssertExpectations(t)
}

func TestDelete_IsSoft(t *testing.T) {
	repo := &mockCurrencyStore{}
	repo.On("Update", mock.Anything, domain.CurrencyCode("JPY"), map[string]interface{}{fieldActive: false}).Return(nil)

	require.NoError(t, NewService(ServiceDeps{CurrencyRepo: repo}).Delete(context.Background(), "jpy"))
	repo.AssertExpectations(t)
}
