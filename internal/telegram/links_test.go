package telegram

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newStore(ttl time.Duration) (*LinkStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	s := NewLinkStore(ttl)
	s.now = clock.Now
	return s, clock
}

func TestIssueAndConsume(t *testing.T) {
	s, clock := newStore(10 * time.Minute)

	code, exp, err := s.Issue("user-1")
	require.NoError(t, err)
	assert.True(t, wellFormedCode(code))
	assert.Equal(t, clock.Now().Add(10*time.Minute), exp)

	uid, ok := s.Consume(code)
	assert.True(t, ok)
	assert.Equal(t, "user-1", uid)
}

func TestConsumeIsSingleUse(t *testing.T) {
	s, _ := newStore(10 * time.Minute)
	code, _, err := s.Issue("user-1")
	require.NoError(t, err)

	_, ok := s.Consume(code)
	require.True(t, ok)

	_, ok = s.Consume(code)
	assert.False(t, ok)
}

func TestExpiredCodeIsRejectedAndDiscarded(t *testing.T) {
	s, clock := newStore(10 * time.Minute)
	code, _, err := s.Issue("user-1")
	require.NoError(t, err)

	clock.Advance(10*time.Minute + time.Second)

	_, ok := s.Consume(code)
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestCodeValidUntilExactExpiry(t *testing.T) {
	s, clock := newStore(time.Minute)
	code, _, err := s.Issue("user-1")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, ok := s.Consume(code)
	assert.True(t, ok)
}

func TestIssueSweepsExpiredEntries(t *testing.T) {
	s, clock := newStore(time.Minute)
	for i := 0; i < 5; i++ {
		_, _, err := s.Issue("stale")
		require.NoError(t, err)
	}
	clock.Advance(2 * time.Minute)

	_, _, err := s.Issue("fresh")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestUnknownCode(t *testing.T) {
	s, _ := newStore(time.Minute)
	_, ok := s.Consume("deadbeef")
	assert.False(t, ok)
}

func TestConcurrentIssueAndConsume(t *testing.T) {
	s, _ := newStore(time.Minute)

	const n = 100
	codes := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, _, err := s.Issue("user")
			assert.NoError(t, err)
			codes[i] = c
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate code")
		seen[c] = true
	}

	// every code raced by several consumers wins exactly once
	var wins atomic.Int32
	for _, c := range codes {
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func(c string) {
				defer wg.Done()
				if _, ok := s.Consume(c); ok {
					wins.Add(1)
				}
			}(c)
		}
	}
	wg.Wait()
	assert.EqualValues(t, n, wins.Load())
	assert.Zero(t, s.Len())
}
