package ratesapi

import (
	"context"
	"sync"
	"time"

	"github.com/currency-exchange-api/internal/domain"
)

type cachedTable struct {
	table     domain.RateTable
	expiresAt time.Time
}

// cachingOracle keeps each base currency's table for ttl. Failed lookups are
// not cached.
type cachingOracle struct {
	next  Oracle
	ttl   time.Duration
	lock  sync.RWMutex
	cache map[domain.CurrencyCode]cachedTable
	nowF  func() time.Time
}

func NewCachingOracle(ttl time.Duration, next Oracle) Oracle {
	return &cachingOracle{
		next:  next,
		ttl:   ttl,
		cache: map[domain.CurrencyCode]cachedTable{},
		nowF:  time.Now,
	}
}

func (o *cachingOracle) Latest(ctx context.Context, base domain.CurrencyCode) (domain.RateTable, error) {
	o.lock.RLock()
	c, ok := o.cache[base]
	o.lock.RUnlock()
	if ok && o.nowF().Before(c.expiresAt) {
		return c.table, nil
	}

	// Concurrent misses for the same base may each call next; last write wins.
	table, err := o.next.Latest(ctx, base)
	if err != nil {
		return domain.RateTable{}, err
	}
	o.lock.Lock()
	o.cache[base] = cachedTable{table: table, expiresAt: o.nowF().Add(o.ttl)}
	o.lock.Unlock()
	return table, nil
}
