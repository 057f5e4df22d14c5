package guard

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/shared-rooms/domain/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
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

func newTestGuard(clock *fakeClock) *Guard {
	return New(DefaultConfig()).WithClock(clock.Now)
}

func TestGuard_TripsAfterThreshold(t *testing.T) {
	clock := newFakeClock()
	g := newTestGuard(clock)

	assert.False(t, g.RecordFailure())
	assert.False(t, g.RecordFailure())
	require.NoError(t, g.Check())

	assert.True(t, g.RecordFailure(), "third failure within the window trips")

	err := g.Check()
	require.Error(t, err)
	assert.True(t, errors.Is(err, room.ErrLockedOut))

	var authErr *room.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 60*time.Second, authErr.RetryAfter)
}

func TestGuard_FailuresOutsideWindowDoNotCount(t *testing.T) {
	clock := newFakeClock()
	g := newTestGuard(clock)

	for i := 0; i < 10; i++ {
		assert.False(t, g.RecordFailure())
		clock.Advance(600 * time.Millisecond)
	}
	assert.NoError(t, g.Check())
	assert.LessOrEqual(t, g.Failures(), 2)
}

func TestGuard_LockoutSelfHeals(t *testing.T) {
	clock := newFakeClock()
	g := newTestGuard(clock)

	for i := 0; i < 3; i++ {
		g.RecordFailure()
	}
	require.True(t, g.Locked())

	clock.Advance(30 * time.Second)
	var authErr *room.AuthError
	require.ErrorAs(t, g.Check(), &authErr)
	assert.Equal(t, 30*time.Second, authErr.RetryAfter)

	// failures during the lockout are not counted and do not extend it
	assert.False(t, g.RecordFailure())

	clock.Advance(30 * time.Second)
	assert.NoError(t, g.Check())
	assert.Equal(t, 0, g.Failures(), "failure list is cleared when the lockout lifts")

	assert.False(t, g.RecordFailure())
	assert.NoError(t, g.Check())
}

func TestGuard_Options(t *testing.T) {
	clock := newFakeClock()
	g := New(DefaultConfig(), WithThreshold(0), WithWindow(time.Minute), WithLockout(time.Second)).WithClock(clock.Now)

	cfg := g.Config()
	assert.Equal(t, 2, cfg.Threshold, "non-positive threshold falls back to default")
	assert.Equal(t, time.Minute, cfg.Window)
	assert.Equal(t, time.Second, cfg.Lockout)
}

func TestGuard_ConcurrentFailures(t *testing.T) {
	g := New(DefaultConfig())

	var wg sync.WaitGroup
	trips := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trips <- g.RecordFailure()
		}()
	}
	wg.Wait()
	close(trips)

	count := 0
	for tripped := range trips {
		if tripped {
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one failure trips the lockout")
	assert.True(t, g.Locked())
}

func TestGuard_OnTrip(t *testing.T) {
	clock := newFakeClock()
	g := newTestGuard(clock)

	var trips []time.Time
	g.OnTrip(func(until time.Time) { trips = append(trips, until) })

	for i := 0; i < 5; i++ {
		g.RecordFailure()
	}
	require.Len(t, trips, 1)
	assert.Equal(t, clock.Now().Add(60*time.Second), trips[0])
}
