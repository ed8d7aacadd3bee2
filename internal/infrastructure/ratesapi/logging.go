package ratesapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/currency-exchange-api/internal/domain"
)

type loggingOracle struct {
	next   Oracle
	logger *slog.Logger
}

func NewLoggingOracle(logger *slog.Logger, next Oracle) Oracle {
	return &loggingOracle{next: next, logger: logger}
}

func (o *loggingOracle) Latest(ctx context.Context, base domain.CurrencyCode) (table domain.RateTable, err error) {
	defer func(begin time.Time) {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		o.logger.Log(ctx, level, "rates api lookup",
			"base", base,
			"rates", len(table.Rates),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return o.next.Latest(ctx, base)
}
