package redisinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/currency-exchange-api/internal/application/verification"
	"github.com/currency-exchange-api/internal/config"
	"github.com/currency-exchange-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	codePrefix = "verification:code:"
	sentPrefix = "verification:sent:"
)

// verify result codes returned by verifyScript.
const (
	resExpired = iota
	resInvalid
	resTooMany
	resOK
)

// verifyScript runs the whole attempt check server side so concurrent
// verifies from different processes cannot both see the same attempt count.
//
// KEYS[1] code hash, ARGV[1] submitted code, ARGV[2] max attempts.
var verifyScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {0, 0}
end
local max = tonumber(ARGV[2])
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
if attempts > max then
  redis.call('DEL', KEYS[1])
  return {2, 0}
end
if redis.call('HGET', KEYS[1], 'code') ~= ARGV[1] then
  local remaining = max - attempts
  if remaining <= 0 then
    redis.call('DEL', KEYS[1])
    return {2, 0}
  end
  return {1, remaining}
end
redis.call('DEL', KEYS[1])
return {3, 0}
`)

// VerificationStore is a verification.Store shared across API replicas.
// Expiry is delegated to Redis key TTLs.
type VerificationStore struct {
	client   *redis.Client
	ttl      time.Duration
	cooldown time.Duration
	nowF     func() time.Time
}

var _ verification.Store = (*VerificationStore)(nil)

func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func NewVerificationStore(client *redis.Client, opts verification.Options) *VerificationStore {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = verification.DefaultCodeTTL
	}
	if opts.ResendCooldown <= 0 {
		opts.ResendCooldown = verification.DefaultResendCooldown
	}
	return &VerificationStore{
		client:   client,
		ttl:      opts.CodeTTL,
		cooldown: opts.ResendCooldown,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

func codeKey(purpose domain.Purpose, identifier string) string {
	return codePrefix + string(purpose) + ":" + identifier
}

func sentKey(purpose domain.Purpose, identifier string) string {
	return sentPrefix + string(purpose) + ":" + identifier
}

func checkKey(identifier string, purpose domain.Purpose) (domain.Purpose, error) {
	if identifier == "" {
		return "", domain.NewValidationError("identifier", "is required")
	}
	return domain.ParsePurpose(string(purpose))
}

func (s *VerificationStore) Issue(ctx context.Context, identifier string, purpose domain.Purpose, code string, ttl time.Duration) error {
	purpose, err := checkKey(identifier, purpose)
	if err != nil {
		return err
	}
	if code == "" {
		return domain.NewValidationError("code", "is required")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	key := codeKey(purpose, identifier)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "code", code, "attempts", 0, "created_at", s.nowF().UnixMilli())
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis issue code: %w", err)
	}
	return nil
}

func (s *VerificationStore) Verify(ctx context.Context, identifier string, purpose domain.Purpose, code string) (domain.Confirmation, error) {
	purpose, err := checkKey(identifier, purpose)
	if err != nil {
		return domain.Confirmation{}, err
	}
	res, err := verifyScript.Run(ctx, s.client, []string{codeKey(purpose, identifier)}, code, verification.MaxAttempts).Int64Slice()
	if err != nil {
		return domain.Confirmation{}, fmt.Errorf("redis verify code: %w", err)
	}
	if len(res) != 2 {
		return domain.Confirmation{}, fmt.Errorf("redis verify code: unexpected reply %v", res)
	}
	switch res[0] {
	case resExpired:
		return domain.Confirmation{}, domain.ErrCodeExpired
	case resInvalid:
		return domain.Confirmation{}, &domain.InvalidCodeError{Remaining: int(res[1])}
	case resTooMany:
		return domain.Confirmation{}, domain.ErrTooManyAttempts
	}
	return domain.Confirmation{Identifier: identifier, Purpose: purpose, VerifiedAt: s.nowF()}, nil
}

func (s *VerificationStore) CheckRateLimit(ctx context.Context, identifier string, purpose domain.Purpose) (domain.RateLimitStatus, error) {
	purpose, err := checkKey(identifier, purpose)
	if err != nil {
		return domain.RateLimitStatus{}, err
	}
	left, err := s.client.PTTL(ctx, sentKey(purpose, identifier)).Result()
	if err != nil {
		return domain.RateLimitStatus{}, fmt.Errorf("redis check rate limit: %w", err)
	}
	// PTTL reports -2 for a missing key and -1 for one without expiry.
	if left <= 0 {
		return domain.RateLimitStatus{CanSend: true}, nil
	}
	return domain.RateLimitStatus{CanSend: false, TimeLeft: left}, nil
}

func (s *VerificationStore) RecordSent(ctx context.Context, identifier string, purpose domain.Purpose) error {
	purpose, err := checkKey(identifier, purpose)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sentKey(purpose, identifier), s.nowF().UnixMilli(), s.cooldown).Err(); err != nil {
		return fmt.Errorf("redis record sent: %w", err)
	}
	return nil
}

// TryRecordSent claims the cooldown slot with SET NX so concurrent senders
// cannot both pass.
func (s *VerificationStore) TryRecordSent(ctx context.Context, identifier string, purpose domain.Purpose) (domain.RateLimitStatus, error) {
	purpose, err := checkKey(identifier, purpose)
	if err != nil {
		return domain.RateLimitStatus{}, err
	}
	key := sentKey(purpose, identifier)
	ok, err := s.client.SetNX(ctx, key, s.nowF().UnixMilli(), s.cooldown).Result()
	if err != nil {
		return domain.RateLimitStatus{}, fmt.Errorf("redis record sent: %w", err)
	}
	if ok {
		return domain.RateLimitStatus{CanSend: true}, nil
	}
	left, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return domain.RateLimitStatus{}, fmt.Errorf("redis record sent: %w", err)
	}
	return domain.RateLimitStatus{CanSend: false, TimeLeft: max(left, 0)}, nil
}

func (s *VerificationStore) Clear(ctx context.Context, identifier string) error {
	purposes := []domain.Purpose{domain.PurposeRegister, domain.PurposeLogin, domain.PurposeReset}
	keys := make([]string, 0, 2*len(purposes))
	for _, p := range purposes {
		keys = append(keys, codeKey(p, identifier), sentKey(p, identifier))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

func (s *VerificationStore) Stats(ctx context.Context) (domain.VerificationStats, error) {
	codes, err := s.count(ctx, codePrefix+"*")
	if err != nil {
		return domain.VerificationStats{}, err
	}
	sent, err := s.count(ctx, sentPrefix+"*")
	if err != nil {
		return domain.VerificationStats{}, err
	}
	return domain.VerificationStats{ActiveCodes: codes, ActiveRateLimits: sent}, nil
}

func (s *VerificationStore) count(ctx context.Context, pattern string) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, pattern, 200).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	return n, nil
}

// Ping reports whether Redis is reachable.
func (s *VerificationStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
