// Package verification stores one-time codes with a TTL, an attempt limit and
// a per-key resend cooldown.
package verification

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"sync"
	"time"

	"github.com/currency-exchange-api/internal/domain"
)

const (
	DefaultCodeTTL        = 5 * time.Minute
	DefaultResendCooldown = time.Minute
	MaxAttempts           = 5
)

// Store is the contract shared by the in-process and Redis implementations.
type Store interface {
	// Issue replaces any live code for (identifier, purpose) and resets its attempts.
	// ttl <= 0 means the store default.
	Issue(ctx context.Context, identifier string, purpose domain.Purpose, code string, ttl time.Duration) error
	// Verify consumes the code on success. Wrong codes count against MaxAttempts.
	Verify(ctx context.Context, identifier string, purpose domain.Purpose, code string) (domain.Confirmation, error)
	CheckRateLimit(ctx context.Context, identifier string, purpose domain.Purpose) (domain.RateLimitStatus, error)
	RecordSent(ctx context.Context, identifier string, purpose domain.Purpose) error
	// TryRecordSent stamps a send only when the cooldown has passed, as one
	// atomic step. CanSend reports whether this caller won the slot.
	TryRecordSent(ctx context.Context, identifier string, purpose domain.Purpose) (domain.RateLimitStatus, error)
	// Clear drops every code and send stamp held for identifier.
	Clear(ctx context.Context, identifier string) error
	Stats(ctx context.Context) (domain.VerificationStats, error)
}

// Key is the composite map key for both caches.
type Key struct {
	Purpose    domain.Purpose
	Identifier string
}

type entry struct {
	code      string
	attempts  int
	createdAt time.Time
	expiresAt time.Time
}

type Options struct {
	CodeTTL        time.Duration
	ResendCooldown time.Duration
}

// MemoryStore keeps codes in process memory. One mutex guards both maps so
// the increment-then-compare in Verify is atomic per key.
type MemoryStore struct {
	mu       sync.Mutex
	codes    map[Key]*entry
	sent     map[Key]time.Time
	ttl      time.Duration
	cooldown time.Duration
	nowF     func() time.Time
}

func NewMemoryStore(opts Options) *MemoryStore {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = DefaultCodeTTL
	}
	if opts.ResendCooldown <= 0 {
		opts.ResendCooldown = DefaultResendCooldown
	}
	return &MemoryStore{
		codes:    make(map[Key]*entry),
		sent:     make(map[Key]time.Time),
		ttl:      opts.CodeTTL,
		cooldown: opts.ResendCooldown,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

func checkKey(identifier string, purpose domain.Purpose) (Key, error) {
	if identifier == "" {
		return Key{}, domain.NewValidationError("identifier", "is required")
	}
	p, err := domain.ParsePurpose(string(purpose))
	if err != nil {
		return Key{}, err
	}
	return Key{Purpose: p, Identifier: identifier}, nil
}

func (s *MemoryStore) Issue(_ context.Context, identifier string, purpose domain.Purpose, code string, ttl time.Duration) error {
	k, err := checkKey(identifier, purpose)
	if err != nil {
		return err
	}
	if code == "" {
		return domain.NewValidationError("code", "is required")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.nowF()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[k] = &entry{code: code, createdAt: now, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Verify(_ context.Context, identifier string, purpose domain.Purpose, code string) (domain.Confirmation, error) {
	k, err := checkKey(identifier, purpose)
	if err != nil {
		return domain.Confirmation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowF()
	e, ok := s.codes[k]
	if !ok || !now.Before(e.expiresAt) {
		delete(s.codes, k)
		return domain.Confirmation{}, domain.ErrCodeExpired
	}
	e.attempts++
	if e.attempts > MaxAttempts {
		delete(s.codes, k)
		return domain.Confirmation{}, domain.ErrTooManyAttempts
	}
	if subtle.ConstantTimeCompare([]byte(e.code), []byte(code)) != 1 {
		remaining := MaxAttempts - e.attempts
		if remaining <= 0 {
			delete(s.codes, k)
			return domain.Confirmation{}, domain.ErrTooManyAttempts
		}
		return domain.Confirmation{}, &domain.InvalidCodeError{Remaining: remaining}
	}
	delete(s.codes, k)
	return domain.Confirmation{Identifier: identifier, Purpose: k.Purpose, VerifiedAt: now}, nil
}

func (s *MemoryStore) CheckRateLimit(_ context.Context, identifier string, purpose domain.Purpose) (domain.RateLimitStatus, error) {
	k, err := checkKey(identifier, purpose)
	if err != nil {
		return domain.RateLimitStatus{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.sent[k]
	if !ok {
		return domain.RateLimitStatus{CanSend: true}, nil
	}
	if elapsed := s.nowF().Sub(last); elapsed < s.cooldown {
		return domain.RateLimitStatus{CanSend: false, TimeLeft: s.cooldown - elapsed}, nil
	}
	delete(s.sent, k)
	return domain.RateLimitStatus{CanSend: true}, nil
}

func (s *MemoryStore) RecordSent(_ context.Context, identifier string, purpose domain.Purpose) error {
	k, err := checkKey(identifier, purpose)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[k] = s.nowF()
	return nil
}

func (s *MemoryStore) TryRecordSent(_ context.Context, identifier string, purpose domain.Purpose) (domain.RateLimitStatus, error) {
	k, err := checkKey(identifier, purpose)
	if err != nil {
		return domain.RateLimitStatus{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	if last, ok := s.sent[k]; ok {
		if elapsed := now.Sub(last); elapsed < s.cooldown {
			return domain.RateLimitStatus{CanSend: false, TimeLeft: s.cooldown - elapsed}, nil
		}
	}
	s.sent[k] = now
	return domain.RateLimitStatus{CanSend: true}, nil
}

func (s *MemoryStore) Clear(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.codes {
		if k.Identifier == identifier {
			delete(s.codes, k)
		}
	}
	for k := range s.sent {
		if k.Identifier == identifier {
			delete(s.sent, k)
		}
	}
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (domain.VerificationStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	var st domain.VerificationStats
	for _, e := range s.codes {
		if now.Before(e.expiresAt) {
			st.ActiveCodes++
		}
	}
	for _, t := range s.sent {
		if now.Sub(t) < s.cooldown {
			st.ActiveRateLimits++
		}
	}
	return st, nil
}

// Sweep removes expired codes and send stamps and reports how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	n := 0
	for k, e := range s.codes {
		if !now.Before(e.expiresAt) {
			delete(s.codes, k)
			n++
		}
	}
	for k, t := range s.sent {
		if now.Sub(t) >= s.cooldown {
			delete(s.sent, k)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("verification sweep", "removed", n)
			}
		}
	}
}
