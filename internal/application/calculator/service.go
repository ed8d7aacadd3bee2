package calculator

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/currency-exchange-api/internal/domain"
)

// Service prices requests using live rates.
type Service interface {
	Calculate(ctx context.Context, req domain.CalculateRequest) (domain.CalculationResult, error)
	CalculateReverse(ctx context.Context, req domain.ReverseRequest) (domain.ReverseResult, error)
	CalculateWithSpread(ctx context.Context, req domain.SpreadRequest) (domain.SpreadResult, error)
	CalculateBatch(ctx context.Context, req domain.BatchRequest) ([]domain.BatchItem, error)
}

type rateSource interface {
	GetRate(ctx context.Context, pair domain.Pair) (domain.RateQuote, error)
}

type service struct {
	calc  *Calculator
	rates rateSource
}

type ServiceDeps struct {
	Calculator *Calculator
	Rates      rateSource
}

func NewService(deps ServiceDeps) Service {
	calc := deps.Calculator
	if calc == nil {
		calc = New(DefaultPolicy())
	}
	return &service{calc: calc, rates: deps.Rates}
}

func (s *service) Calculate(ctx context.Context, req domain.CalculateRequest) (domain.CalculationResult, error) {
	pair, err := domain.NewPair(req.From, req.To)
	if err != nil {
		return domain.CalculationResult{}, err
	}
	if err := s.calc.checkAmount("amount", req.Amount); err != nil {
		return domain.CalculationResult{}, err
	}
	q, err := s.rates.GetRate(ctx, pair)
	if err != nil {
		return domain.CalculationResult{}, err
	}
	return s.calc.ComputeExchange(string(pair.From), string(pair.To), req.Amount, req.FeeMode, q.Rate)
}

func (s *service) CalculateReverse(ctx context.Context, req domain.ReverseRequest) (domain.ReverseResult, error) {
	pair, err := domain.NewPair(req.From, req.To)
	if err != nil {
		return domain.ReverseResult{}, err
	}
	if err := s.calc.checkAmount("target_amount", req.TargetAmount); err != nil {
		return domain.ReverseResult{}, err
	}
	q, err := s.rates.GetRate(ctx, pair)
	if err != nil {
		return domain.ReverseResult{}, err
	}
	return s.calc.ComputeReverse(string(pair.From), string(pair.To), req.TargetAmount, req.FeeMode, q.Rate)
}

func (s *service) CalculateWithSpread(ctx context.Context, req domain.SpreadRequest) (domain.SpreadResult, error) {
	pair, err := domain.NewPair(req.From, req.To)
	if err != nil {
		return domain.SpreadResult{}, err
	}
	if err := s.calc.checkAmount("amount", req.Amount); err != nil {
		return domain.SpreadResult{}, err
	}
	q, err := s.rates.GetRate(ctx, pair)
	if err != nil {
		return domain.SpreadResult{}, err
	}
	return s.calc.ComputeWithSpread(string(pair.From), string(pair.To), req.Amount, q.Rate)
}

// CalculateBatch looks up every pair in key order; lookup failures are
// recorded on the item and do not stop the batch.
func (s *service) CalculateBatch(ctx context.Context, req domain.BatchRequest) ([]domain.BatchItem, error) {
	if err := s.calc.checkAmount("amount", req.Amount); err != nil {
		return nil, err
	}
	froms := make([]string, 0, len(req.CurrencyPairs))
	for from := range req.CurrencyPairs {
		froms = append(froms, from)
	}
	sort.Strings(froms)

	priced := make([]domain.PricedPair, 0, len(froms))
	for _, from := range froms {
		to := req.CurrencyPairs[from]
		pair, err := domain.NewPair(from, to)
		if err != nil {
			raw := domain.Pair{
				From: domain.CurrencyCode(strings.ToUpper(strings.TrimSpace(from))),
				To:   domain.CurrencyCode(strings.ToUpper(strings.TrimSpace(to))),
			}
			priced = append(priced, domain.PricedPair{Pair: raw, Err: err})
			continue
		}
		q, err := s.rates.GetRate(ctx, pair)
		if err != nil {
			slog.Warn("batch rate lookup failed", "pair", pair.String(), "err", err)
			priced = append(priced, domain.PricedPair{Pair: pair, Err: err})
			continue
		}
		priced = append(priced, domain.PricedPair{Pair: pair, Rate: q.Rate})
	}
	return s.calc.ComputeBatch(req.Amount, req.FeeMode, priced)
}
