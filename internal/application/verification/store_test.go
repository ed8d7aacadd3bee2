package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/currency-exchange-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newStore() (*MemoryStore, *fakeClock) {
	clk := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(Options{})
	s.nowF = clk.Now
	return s, clk
}

const email = "alice@example.com"

func TestIssueVerify_SucceedsExactlyOnce(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, email, domain.PurposeLogin, "123456", 0))

	conf, err := s.Verify(ctx, email, domain.PurposeLogin, "123456")
	require.NoError(t, err)
	assert.Equal(t, email, conf.Identifier)
	assert.Equal(t, domain.PurposeLogin, conf.Purpose)
	assert.Equal(t, clk.Now(), conf.VerifiedAt)

	_, err = s.Verify(ctx, email, domain.PurposeLogin, "123456")
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestVerify_FiveWrongCodes(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, email, domain.PurposeRegister, "123456", 0))

	for _, want := range []int{4, 3, 2, 1} {
		_, err := s.Verify(ctx, email, domain.PurposeRegister, "000000")
		var ice *domain.InvalidCodeError
		require.True(t, errors.As(err, &ice), "got %v", err)
		assert.Equal(t, want, ice.Remaining)
	}
	_, err := s.Verify(ctx, email, domain.PurposeRegister, "000000")
	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)

	// entry is gone, even the right code no longer works
	_, err = s.Verify(ctx, email, domain.PurposeRegister, "123456")
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestVerify_CorrectOnLastAttempt(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, email, domain.PurposeLogin, "123456", 0))
	for i := 0; i < 4; i++ {
		_, err := s.Verify(ctx, email, domain.PurposeLogin, "999999")
		require.ErrorIs(t, err, domain.ErrInvalidCode)
	}
	_, err := s.Verify(ctx, email, domain.PurposeLogin, "123456")
	assert.NoError(t, err)
}

func TestIssue_ResetsAttempts(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, email, domain.PurposeLogin, "111111", 0))
	for i := 0; i < 3; i++ {
		_, _ = s.Verify(ctx, email, domain.PurposeLogin, "000000")
	}
	require.NoError(t, s.Issue(ctx, email, domain.PurposeLogin, "222222", 0))

	_, err := s.Verify(ctx, email, domain.PurposeLogin, "000000")
	var ice *domain.InvalidCodeError
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, 4, ice.Remaining)

	_, err = s.Verify(ctx, email, domain.PurposeLogin, "111111")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestVerify_ExpiredAfterTTL(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, email, domain.PurposeReset, "123456", 30*time.Second))

	clk.Advance(30 * time.Second)
	_, err := s.Verify(ctx, email, domain.PurposeReset, "123456")
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestVerify_DefaultTTLIsFiveMinutes(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, email, domain.PurposeLogin, "123456", 0))

	clk.Advance(4*time.Minute + 59*time.Second)
	_, err := s.Verify(ctx, email, domain.PurposeLogin, "123456")
	assert.NoError(t, err)

	require.NoError(t, s.Issue(ctx, email, domain.PurposeLogin, "123456", 0))
	clk.Advance(5 * time.Minute)
	_, err = s.Verify(ctx, email, domain.PurposeLogin, "123456")
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestPurposesAreIndependent(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, email, domain.PurposeLogin, "111111", 0))
	require.NoError(t, s.Issue(ctx, email, domain.PurposeRegister, "222222", 0))

	_, err := s.Verify(ctx, email, domain.PurposeRegister, "111111")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
	_, err = s.Verify(ctx, email, domain.PurposeLogin, "111111")
	assert.NoError(t, err)
}

func TestUnknownPurposeRejected(t *testing.T) {
	s, _ := newStore()
	err := s.Issue(context.Background(), email, domain.Purpose("signup"), "123456", 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestVerify_ConcurrentCallersConsumeOnce(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, email, domain.PurposeLogin, "123456", 0))

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Verify(ctx, email, domain.PurposeLogin, "123456"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestVerify_ConcurrentWrongCodesNeverExceedLimit(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, email, domain.PurposeLogin, "123456", 0))

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[int]int{}
	tooMany := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Verify(ctx, email, domain.PurposeLogin, "000000")
			mu.Lock()
			defer mu.Unlock()
			var ice *domain.InvalidCodeError
			if errors.As(err, &ice) {
				seen[ice.Remaining]++
			} else if errors.Is(err, domain.ErrTooManyAttempts) {
				tooMany++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, map[int]int{4: 1, 3: 1, 2: 1, 1: 1}, seen)
	assert.Equal(t, 1, tooMany)
}

// --- rate limit ---

func TestRateLimit_WindowThenAllowed(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()

	st, err := s.CheckRateLimit(ctx, email, domain.PurposeLogin)
	require.NoError(t, err)
	assert.True(t, st.CanSend)

	require.NoError(t, s.RecordSent(ctx, email, domain.PurposeLogin))
	st, err = s.CheckRateLimit(ctx, email, domain.PurposeLogin)
	require.NoError(t, err)
	assert.False(t, st.CanSend)
	assert.Equal(t, 60, st.Seconds())

	clk.Advance(45 * time.Second)
	st, _ = s.CheckRateLimit(ctx, email, domain.PurposeLogin)
	assert.False(t, st.CanSend)
	assert.Equal(t, 15, st.Seconds())

	clk.Advance(15 * time.Second)
	st, _ = s.CheckRateLimit(ctx, email, domain.PurposeLogin)
	assert.True(t, st.CanSend)
}

func TestRateLimit_SeparateFromCodes(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	require.NoError(t, s.RecordSent(ctx, email, domain.PurposeLogin))

	_, err := s.Verify(ctx, email, domain.PurposeLogin, "123456")
	assert.ErrorIs(t, err, domain.ErrCodeExpired)

	st, _ := s.CheckRateLimit(ctx, email, domain.PurposeRegister)
	assert.True(t, st.CanSend)
}

func TestTryRecordSent_OnlyOneConcurrentWinner(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := s.TryRecordSent(ctx, email, domain.PurposeLogin)
			if err == nil && st.CanSend {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, won)

	st, err := s.TryRecordSent(ctx, email, domain.PurposeLogin)
	require.NoError(t, err)
	assert.False(t, st.CanSend)
	assert.Equal(t, 60, st.Seconds())

	clk.Advance(time.Minute)
	st, err = s.TryRecordSent(ctx, email, domain.PurposeLogin)
	require.NoError(t, err)
	assert.True(t, st.CanSend)
}

func TestPurpose_IsCaseInsensitive(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, email, domain.Purpose("Login"), "123456", 0))

	conf, err := s.Verify(ctx, email, domain.PurposeLogin, "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.PurposeLogin, conf.Purpose)

	require.NoError(t, s.RecordSent(ctx, email, domain.Purpose(" RESET ")))
	st, err := s.CheckRateLimit(ctx, email, domain.PurposeReset)
	require.NoError(t, err)
	assert.False(t, st.CanSend)
}

// --- Clear / Stats / Sweep ---

func TestClearAndStats(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, email, domain.PurposeLogin, "111111", 0))
	require.NoError(t, s.Issue(ctx, email, domain.PurposeReset, "222222", 0))
	require.NoError(t, s.Issue(ctx, "+15550001111", domain.PurposeLogin, "333333", time.Second))
	require.NoError(t, s.RecordSent(ctx, email, domain.PurposeLogin))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationStats{ActiveCodes: 3, ActiveRateLimits: 1}, st)

	clk.Advance(2 * time.Second)
	st, _ = s.Stats(ctx)
	assert.Equal(t, 2, st.ActiveCodes)

	require.NoError(t, s.Clear(ctx, email))
	st, _ = s.Stats(ctx)
	assert.Equal(t, domain.VerificationStats{}, st)
}

func TestSweep_RemovesExpired(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()
	require.NoError(t, s.Issue(ctx, email, domain.PurposeLogin, "111111", 10*time.Second))
	require.NoError(t, s.Issue(ctx, "bob@example.com", domain.PurposeLogin, "222222", 0))
	require.NoError(t, s.RecordSent(ctx, email, domain.PurposeLogin))

	clk.Advance(time.Minute)
	assert.Equal(t, 2, s.Sweep())
	assert.Len(t, s.codes, 1)
	assert.Empty(t, s.sent)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, _ := newStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
