package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculationResult is the priced outcome of one exchange. It is a value type;
// callers receive copies.
type CalculationResult struct {
	FromCurrency   CurrencyCode    `json:"from_currency"`
	ToCurrency     CurrencyCode    `json:"to_currency"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	GrossAmount    decimal.Decimal `json:"gross_converted_amount"`
	FeeMode        FeeMode         `json:"fee_mode"`
	FeeRate        decimal.Decimal `json:"fee_rate"`
	FeeAmount      decimal.Decimal `json:"fee_amount"`
	NetAmount      decimal.Decimal `json:"net_converted_amount"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	EffectiveRate  decimal.Decimal `json:"effective_rate"`
	RateMargin     decimal.Decimal `json:"rate_margin"`
	CalculatedAt   time.Time       `json:"calculated_at"`
}

// ReverseResult answers "how much must I send so the recipient gets TargetAmount".
type ReverseResult struct {
	FromCurrency   CurrencyCode      `json:"from_currency"`
	ToCurrency     CurrencyCode      `json:"to_currency"`
	TargetAmount   decimal.Decimal   `json:"target_amount"`
	RequiredAmount decimal.Decimal   `json:"required_amount"`
	ExchangeRate   decimal.Decimal   `json:"exchange_rate"`
	Verification   CalculationResult `json:"verification"`
	CalculatedAt   time.Time         `json:"calculated_at"`
}

// RateSpread summarises the band used by a spread calculation.
type RateSpread struct {
	Current          decimal.Decimal `json:"current"`
	High             decimal.Decimal `json:"high"`
	Low              decimal.Decimal `json:"low"`
	SpreadPercentage decimal.Decimal `json:"spread_percentage"`
}

type SpreadResult struct {
	Current     CalculationResult `json:"current_calculation"`
	Optimistic  CalculationResult `json:"optimistic_calculation"`
	Pessimistic CalculationResult `json:"pessimistic_calculation"`
	Spread      RateSpread        `json:"rate_spread"`
}

// PricedPair is one batch input: a pair plus the rate to price it with.
// A zero Rate means the rate could not be obtained; Err carries why.
type PricedPair struct {
	Pair Pair
	Rate decimal.Decimal
	Err  error
}

// BatchItem is either a Result or an Error for one pair, never both.
type BatchItem struct {
	Pair   Pair
	Result *CalculationResult
	Err    error
}

type CalculateRequest struct {
	From    string          `json:"from" validate:"required"`
	To      string          `json:"to" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
	FeeMode string          `json:"fee_mode" validate:"omitempty,fee_mode"`
}

type ReverseRequest struct {
	From         string          `json:"from" validate:"required"`
	To           string          `json:"to" validate:"required"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	FeeMode      string          `json:"fee_mode" validate:"omitempty,fee_mode"`
}

type SpreadRequest struct {
	From   string          `json:"from" validate:"required"`
	To     string          `json:"to" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// BatchRequest maps source currency to target currency, e.g. {"USD":"EUR"}.
type BatchRequest struct {
	Amount        decimal.Decimal   `json:"amount"`
	FeeMode       string            `json:"fee_mode" validate:"omitempty,fee_mode"`
	CurrencyPairs map[string]string `json:"currency_pairs" validate:"required,min=1"`
}
