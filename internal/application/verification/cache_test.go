package verification

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock for driving expiry without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T) (*CodeCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewCodeCache(zerolog.Nop(), time.Hour, WithClock(clock.Now))
	t.Cleanup(c.Stop)
	return c, clock
}

func TestIssueCode_Format(t *testing.T) {
	c, _ := newTestCache(t)
	sixDigits := regexp.MustCompile(`^[1-9]\d{5}$`)
	for i := 0; i < 50; i++ {
		code, err := c.IssueCode("a@b.com", "u1")
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
	}
}

func TestVerifyCode_HappyPathAndConsumption(t *testing.T) {
	c, _ := newTestCache(t)
	code, err := c.IssueCode("a@b.com", "u1")
	require.NoError(t, err)

	assert.True(t, c.VerifyCode("a@b.com", code, "u1"))

	// The cache does not enforce single use; the caller consumes the code.
	c.Remove("a@b.com")
	assert.False(t, c.VerifyCode("a@b.com", code, "u1"))
}

func TestVerifyCode_WrongCodeKeepsEntry(t *testing.T) {
	c, _ := newTestCache(t)
	code, err := c.IssueCode("a@b.com", "u1")
	require.NoError(t, err)

	assert.False(t, c.VerifyCode("a@b.com", "000000", "u1"))
	// A failed guess must not consume the pending code.
	assert.True(t, c.VerifyCode("a@b.com", code, "u1"))
}

func TestVerifyCode_WrongOwnerKeepsEntry(t *testing.T) {
	c, _ := newTestCache(t)
	code, err := c.IssueCode("a@b.com", "u1")
	require.NoError(t, err)

	assert.False(t, c.VerifyCode("a@b.com", code, "u2"))
	assert.True(t, c.VerifyCode("a@b.com", code, "u1"))
}

func TestVerifyCode_UnknownEmail(t *testing.T) {
	c, _ := newTestCache(t)
	assert.False(t, c.VerifyCode("nobody@b.com", "123456", "u1"))
}

func TestVerifyCode_ExpiryEvicts(t *testing.T) {
	c, clock := newTestCache(t)
	code, err := c.IssueCode("a@b.com", "u1")
	require.NoError(t, err)

	clock.Advance(10*time.Minute + time.Second)

	assert.False(t, c.VerifyCode("a@b.com", code, "u1"))

	// The entry was evicted, so even winding the clock back cannot
	// resurrect it.
	clock.Advance(-5 * time.Minute)
	assert.False(t, c.VerifyCode("a@b.com", code, "u1"))
}

func TestVerifyCode_ValidAtBoundary(t *testing.T) {
	c, clock := newTestCache(t)
	code, err := c.IssueCode("a@b.com", "u1")
	require.NoError(t, err)

	// now == expiresAt is still valid.
	clock.Advance(10 * time.Minute)
	assert.True(t, c.VerifyCode("a@b.com", code, "u1"))
}

func TestIssueCode_ReplacesPriorCode(t *testing.T) {
	c, _ := newTestCache(t)
	first, err := c.IssueCode("a@b.com", "u1")
	require.NoError(t, err)
	second, err := c.IssueCode("a@b.com", "u2")
	require.NoError(t, err)

	// The old code and the old owner are both gone; last requester wins.
	assert.False(t, c.VerifyCode("a@b.com", first, "u1"))
	if first != second {
		assert.True(t, c.VerifyCode("a@b.com", second, "u2"))
	}
}

func TestSweep_EvictsOnlyExpiredEntries(t *testing.T) {
	c, clock := newTestCache(t)
	_, err := c.IssueCode("old@b.com", "u1")
	require.NoError(t, err)

	clock.Advance(9 * time.Minute)
	fresh, err := c.IssueCode("fresh@b.com", "u2")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute) // old is past its 10m, fresh is not
	c.sweep()

	c.mu.Lock()
	_, oldAlive := c.entries["old@b.com"]
	_, freshAlive := c.entries["fresh@b.com"]
	c.mu.Unlock()
	assert.False(t, oldAlive)
	assert.True(t, freshAlive)
	assert.True(t, c.VerifyCode("fresh@b.com", fresh, "u2"))
}

func TestStop_IsIdempotent(t *testing.T) {
	c, _ := newTestCache(t)
	c.Stop()
	c.Stop()
}
