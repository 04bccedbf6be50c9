package xlimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

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
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, cfg Config) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l, err := New(cfg, WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l, clock
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"zero disabled", Config{}, true},
		{"enabled", Config{Limit: 10, Window: time.Second}, true},
		{"missing window", Config{Limit: 10}, false},
		{"negative limit", Config{Limit: -1}, false},
		{"negative burst", Config{Limit: 1, Window: time.Second, Burst: -1}, false},
		{"negative max keys", Config{MaxKeys: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestNew_Disabled(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = New(Config{Limit: 1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAllow_BurstThenRefill(t *testing.T) {
	l, clock := newLimiter(t, Config{Limit: 2, Window: time.Second})

	r := l.Allow("10.0.0.1")
	assert.True(t, r.Allowed)
	assert.Equal(t, 2, r.Limit)
	assert.Equal(t, 1, r.Remaining)
	assert.True(t, l.Allow("10.0.0.1").Allowed)

	r = l.Allow("10.0.0.1")
	assert.False(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)
	assert.InDelta(t, float64(500*time.Millisecond), float64(r.RetryAfter), float64(time.Millisecond))

	// 被拒绝的请求不消耗令牌：半个窗口后恰好补充一个
	clock.Advance(500 * time.Millisecond)
	assert.True(t, l.Allow("10.0.0.1").Allowed)
	assert.False(t, l.Allow("10.0.0.1").Allowed)

	st := l.Stats()
	assert.Equal(t, uint64(3), st.Allowed)
	assert.Equal(t, uint64(2), st.Limited)
	assert.Equal(t, 1, st.Keys)
}

func TestAllow_KeysIndependent(t *testing.T) {
	l, _ := newLimiter(t, Config{Limit: 1, Window: time.Minute})

	assert.True(t, l.Allow("a").Allowed)
	assert.False(t, l.Allow("a").Allowed)
	assert.True(t, l.Allow("b").Allowed)
}

func TestAllow_Burst(t *testing.T) {
	l, _ := newLimiter(t, Config{Limit: 1, Window: time.Second, Burst: 3})

	for i := range 3 {
		assert.True(t, l.Allow("k").Allowed, "request %d", i)
	}
	assert.False(t, l.Allow("k").Allowed)
	assert.Equal(t, 3, l.Config().Burst)
}

func TestAllow_MaxKeysEvicts(t *testing.T) {
	l, _ := newLimiter(t, Config{Limit: 1, Window: time.Hour, MaxKeys: 2})

	assert.True(t, l.Allow("a").Allowed)
	assert.True(t, l.Allow("b").Allowed)
	assert.True(t, l.Allow("c").Allowed) // 淘汰 a
	assert.Equal(t, 2, l.Stats().Keys)

	assert.True(t, l.Allow("a").Allowed, "evicted key starts with a full bucket")
}

func TestAllow_Concurrent(t *testing.T) {
	l, _ := newLimiter(t, Config{Limit: 100, Window: time.Hour})

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Go(func() {
			for range 50 {
				l.Allow(fmt.Sprintf("k%d", i%2))
			}
		})
	}
	wg.Wait()

	st := l.Stats()
	assert.Equal(t, uint64(200), st.Allowed)
	assert.Zero(t, st.Limited)
	assert.Equal(t, 2, st.Keys)
}

func TestConfig_Refill(t *testing.T) {
	assert.Equal(t, time.Second, Config{Limit: 2, Window: time.Second}.refill())
	assert.Equal(t, 3*time.Second, Config{Limit: 1, Window: time.Second, Burst: 3}.refill())
	assert.Equal(t, time.Millisecond, Config{Limit: 1_000_000, Window: time.Second}.refill())
}
