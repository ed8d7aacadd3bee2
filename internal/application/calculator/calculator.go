// Package calculator prices currency exchanges: fees, converted amounts,
// reverse quotes, spread bands and batches. Calculator itself is pure and
// safe for concurrent use; Service resolves rates before delegating to it.
package calculator

import (
	"time"

	"github.com/currency-exchange-api/internal/domain"
	"github.com/shopspring/decimal"
)

// Policy holds the fee schedule and rounding rules.
type Policy struct {
	FeeRates     map[domain.FeeMode]decimal.Decimal
	MinFee       decimal.Decimal
	MaxFee       decimal.Decimal
	MaxAmount    decimal.Decimal
	Spread       decimal.Decimal // fractional, 0.001 = 0.1%
	AmountPlaces int32
	RatePlaces   int32
}

func DefaultPolicy() Policy {
	return Policy{
		FeeRates: map[domain.FeeMode]decimal.Decimal{
			domain.FeeStandard: decimal.RequireFromString("0.010"),
			domain.FeeExpress:  decimal.RequireFromString("0.015"),
			domain.FeeEconomy:  decimal.RequireFromString("0.005"),
		},
		MinFee:       decimal.RequireFromString("2.99"),
		MaxFee:       decimal.RequireFromString("50.00"),
		MaxAmount:    decimal.NewFromInt(1_000_000),
		Spread:       decimal.RequireFromString("0.001"),
		AmountPlaces: 2,
		RatePlaces:   6,
	}
}

type Calculator struct {
	policy Policy
	now    func() time.Time
}

func New(policy Policy) *Calculator {
	return &Calculator{policy: policy, now: func() time.Time { return time.Now().UTC() }}
}

// FeeRate returns the fractional fee for mode; unknown modes get the standard rate.
func (c *Calculator) FeeRate(mode domain.FeeMode) decimal.Decimal {
	if r, ok := c.policy.FeeRates[mode]; ok {
		return r
	}
	return c.policy.FeeRates[domain.FeeStandard]
}

// Fee is amount × rate clamped to [MinFee, MaxFee], rounded to amount precision.
func (c *Calculator) Fee(amount, feeRate decimal.Decimal) decimal.Decimal {
	return c.clampFee(amount.Mul(feeRate)).Round(c.policy.AmountPlaces)
}

func (c *Calculator) clampFee(fee decimal.Decimal) decimal.Decimal {
	if fee.LessThan(c.policy.MinFee) {
		return c.policy.MinFee
	}
	if fee.GreaterThan(c.policy.MaxFee) {
		return c.policy.MaxFee
	}
	return fee
}

func (c *Calculator) checkAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.NewValidationError(field, "must be positive")
	}
	if amount.GreaterThan(c.policy.MaxAmount) {
		return domain.NewValidationError(field, "exceeds maximum limit of "+c.policy.MaxAmount.String())
	}
	return nil
}

// CheckAmount applies the amount bounds ComputeExchange enforces.
func (c *Calculator) CheckAmount(amount decimal.Decimal) error {
	return c.checkAmount("amount", amount)
}

// ComputeExchange prices converting amount of from into to at rate.
func (c *Calculator) ComputeExchange(from, to string, amount decimal.Decimal, feeMode string, rate decimal.Decimal) (domain.CalculationResult, error) {
	pair, err := domain.NewPair(from, to)
	if err != nil {
		return domain.CalculationResult{}, err
	}
	if err := c.checkAmount("amount", amount); err != nil {
		return domain.CalculationResult{}, err
	}
	if !rate.IsPositive() {
		return domain.CalculationResult{}, &domain.RateUnavailableError{Pair: pair}
	}
	return c.compute(pair, amount, domain.ResolveFeeMode(feeMode), rate), nil
}

func (c *Calculator) compute(pair domain.Pair, amount decimal.Decimal, mode domain.FeeMode, rate decimal.Decimal) domain.CalculationResult {
	feeRate := c.FeeRate(mode)
	fee := c.Fee(amount, feeRate)
	gross := amount.Mul(rate).Round(c.policy.RatePlaces)

	// The fee is in the source currency; it is converted at the same rate
	// before being taken off the gross.
	net := gross.Sub(fee.Mul(rate)).Round(c.policy.AmountPlaces)
	if net.IsNegative() {
		net = decimal.Zero
	}
	effective := net.Div(amount).Round(c.policy.RatePlaces)

	return domain.CalculationResult{
		FromCurrency:   pair.From,
		ToCurrency:     pair.To,
		OriginalAmount: amount,
		ExchangeRate:   rate,
		GrossAmount:    gross,
		FeeMode:        mode,
		FeeRate:        feeRate,
		FeeAmount:      fee,
		NetAmount:      net,
		TotalCost:      amount.Add(fee),
		EffectiveRate:  effective,
		RateMargin:     rate.Sub(effective),
		CalculatedAt:   c.now(),
	}
}

// ComputeReverse finds the source amount whose net conversion is targetAmount.
func (c *Calculator) ComputeReverse(from, to string, targetAmount decimal.Decimal, feeMode string, rate decimal.Decimal) (domain.ReverseResult, error) {
	pair, err := domain.NewPair(from, to)
	if err != nil {
		return domain.ReverseResult{}, err
	}
	if err := c.checkAmount("target_amount", targetAmount); err != nil {
		return domain.ReverseResult{}, err
	}
	if !rate.IsPositive() {
		return domain.ReverseResult{}, &domain.RateUnavailableError{Pair: pair}
	}
	mode := domain.ResolveFeeMode(feeMode)
	feeRate := c.FeeRate(mode)

	base := targetAmount.Div(rate)
	required := base.Div(decimal.NewFromInt(1).Sub(feeRate))
	// Outside the fee band the fee is a constant, so add it instead of scaling.
	if fee := required.Mul(feeRate); fee.LessThan(c.policy.MinFee) {
		required = base.Add(c.policy.MinFee)
	} else if fee.GreaterThan(c.policy.MaxFee) {
		required = base.Add(c.policy.MaxFee)
	}
	if required.GreaterThan(c.policy.MaxAmount) {
		return domain.ReverseResult{}, domain.NewValidationError("target_amount", "required amount exceeds maximum limit of "+c.policy.MaxAmount.String())
	}

	verification := c.compute(pair, required, mode, rate)
	return domain.ReverseResult{
		FromCurrency:   pair.From,
		ToCurrency:     pair.To,
		TargetAmount:   targetAmount,
		RequiredAmount: required.Round(c.policy.AmountPlaces),
		ExchangeRate:   rate,
		Verification:   verification,
		CalculatedAt:   verification.CalculatedAt,
	}, nil
}

// ComputeWithSpread prices amount at rate and at rate ± the policy spread,
// all in standard mode.
func (c *Calculator) ComputeWithSpread(from, to string, amount, rate decimal.Decimal) (domain.SpreadResult, error) {
	current, err := c.ComputeExchange(from, to, amount, string(domain.FeeStandard), rate)
	if err != nil {
		return domain.SpreadResult{}, err
	}
	one := decimal.NewFromInt(1)
	high := rate.Mul(one.Add(c.policy.Spread))
	low := rate.Mul(one.Sub(c.policy.Spread))
	pair := domain.Pair{From: current.FromCurrency, To: current.ToCurrency}

	return domain.SpreadResult{
		Current:     current,
		Optimistic:  c.compute(pair, amount, domain.FeeStandard, high),
		Pessimistic: c.compute(pair, amount, domain.FeeStandard, low),
		Spread: domain.RateSpread{
			Current:          rate,
			High:             high,
			Low:              low,
			SpreadPercentage: c.policy.Spread.Mul(decimal.NewFromInt(100)),
		},
	}, nil
}

// ComputeBatch prices amount over every pair. A bad amount fails the whole
// batch; a bad pair only fails its own item.
func (c *Calculator) ComputeBatch(amount decimal.Decimal, feeMode string, pairs []domain.PricedPair) ([]domain.BatchItem, error) {
	if err := c.checkAmount("amount", amount); err != nil {
		return nil, err
	}
	items := make([]domain.BatchItem, 0, len(pairs))
	for _, pp := range pairs {
		item := domain.BatchItem{Pair: pp.Pair}
		if pp.Err != nil {
			item.Err = pp.Err
			items = append(items, item)
			continue
		}
		res, err := c.ComputeExchange(string(pp.Pair.From), string(pp.Pair.To), amount, feeMode, pp.Rate)
		if err != nil {
			item.Err = err
		} else {
			item.Result = &res
		}
		items = append(items, item)
	}
	return items, nil
}
