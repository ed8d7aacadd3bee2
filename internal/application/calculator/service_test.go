package calculator

import (
	"context"
	"errors"
	"testing"

	"github.com/currency-exchange-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRates struct{ mock.Mock }

func (m *mockRates) GetRate(ctx context.Context, pair domain.Pair) (domain.RateQuote, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(domain.RateQuote), args.Error(1)
}

func quote(from, to, rate string) domain.RateQuote {
	return domain.RateQuote{From: domain.CurrencyCode(from), To: domain.CurrencyCode(to), Rate: d(rate), Source: domain.SourceLive}
}

func pair(from, to string) domain.Pair {
	return domain.Pair{From: domain.CurrencyCode(from), To: domain.CurrencyCode(to)}
}

// --- Calculate ---

func TestCalculate_UsesOracleRate(t *testing.T) {
	rates := &mockRates{}
	rates.On("GetRate", mock.Anything, pair("USD", "EUR")).Return(quote("USD", "EUR", "0.85"), nil)
	svc := NewService(ServiceDeps{Rates: rates})

	res, err := svc.Calculate(context.Background(), domain.CalculateRequest{From: "usd", To: "eur", Amount: d("100")})
	require.NoError(t, err)
	assertDec(t, "82.46", res.NetAmount)
	rates.AssertExpectations(t)
}

func TestCalculate_InvalidAmountSkipsOracle(t *testing.T) {
	rates := &mockRates{}
	svc := NewService(ServiceDeps{Rates: rates})

	_, err := svc.Calculate(context.Background(), domain.CalculateRequest{From: "USD", To: "EUR", Amount: d("-1")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	rates.AssertNotCalled(t, "GetRate", mock.Anything, mock.Anything)
}

func TestCalculate_RateUnavailablePropagates(t *testing.T) {
	rates := &mockRates{}
	rerr := &domain.RateUnavailableError{Pair: pair("USD", "ZZZ")}
	rates.On("GetRate", mock.Anything, pair("USD", "ZZZ")).Return(domain.RateQuote{}, rerr)
	svc := NewService(ServiceDeps{Rates: rates})

	_, err := svc.Calculate(context.Background(), domain.CalculateRequest{From: "USD", To: "ZZZ", Amount: d("10")})
	assert.ErrorIs(t, err, domain.ErrRateUnavailable)
}

func TestCalculateReverse(t *testing.T) {
	rates := &mockRates{}
	rates.On("GetRate", mock.Anything, pair("USD", "EUR")).Return(quote("USD", "EUR", "0.85"), nil)
	svc := NewService(ServiceDeps{Rates: rates})

	res, err := svc.CalculateReverse(context.Background(), domain.ReverseRequest{From: "USD", To: "EUR", TargetAmount: d("850")})
	require.NoError(t, err)
	assert.Equal(t, "1010.10", res.RequiredAmount.StringFixed(2))
}

func TestCalculateWithSpread(t *testing.T) {
	rates := &mockRates{}
	rates.On("GetRate", mock.Anything, pair("USD", "EUR")).Return(quote("USD", "EUR", "0.85"), nil)
	svc := NewService(ServiceDeps{Rates: rates})

	res, err := svc.CalculateWithSpread(context.Background(), domain.SpreadRequest{From: "USD", To: "EUR", Amount: d("1000")})
	require.NoError(t, err)
	assertDec(t, "0.85085", res.Spread.High)
}

// --- CalculateBatch ---

func TestCalculateBatch_PerPairFailures(t *testing.T) {
	rates := &mockRates{}
	rates.On("GetRate", mock.Anything, pair("USD", "EUR")).Return(quote("USD", "EUR", "0.85"), nil)
	rates.On("GetRate", mock.Anything, pair("GBP", "ZZZ")).Return(domain.RateQuote{}, &domain.RateUnavailableError{Pair: pair("GBP", "ZZZ")})
	svc := NewService(ServiceDeps{Rates: rates})

	items, err := svc.CalculateBatch(context.Background(), domain.BatchRequest{
		Amount:        d("100"),
		CurrencyPairs: map[string]string{"USD": "EUR", "GBP": "ZZZ", "xx": "EUR"},
	})
	require.NoError(t, err)
	require.Len(t, items, 3)

	// sorted by source key: GBP, USD, xx
	assert.Equal(t, "GBP_ZZZ", items[0].Pair.Key())
	assert.ErrorIs(t, items[0].Err, domain.ErrRateUnavailable)
	assert.Equal(t, "USD_EUR", items[1].Pair.Key())
	require.NotNil(t, items[1].Result)
	assert.Equal(t, "XX_EUR", items[2].Pair.Key())
	var ve *domain.ValidationError
	assert.True(t, errors.As(items[2].Err, &ve))
	rates.AssertExpectations(t)
}

func TestCalculateBatch_BadAmount(t *testing.T) {
	svc := NewService(ServiceDeps{Rates: &mockRates{}})
	_, err := svc.CalculateBatch(context.Background(), domain.BatchRequest{Amount: d("2000000"), CurrencyPairs: map[string]string{"USD": "EUR"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
