package draft

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type expiries struct {
	mu     sync.Mutex
	epochs []uint64
	failed []error
}

func (e *expiries) expire(epoch uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epochs = append(e.epochs, epoch)
}

func (e *expiries) fail(epoch uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed = append(e.failed, err)
}

func (e *expiries) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.epochs)
}

func (e *expiries) failures() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.failed)
}

// tick advances the fake clock one second at a time, waiting for the countdown to observe
// each tick so none is coalesced.
func tick(t *testing.T, clock *clockwork.FakeClock, timer *Timer, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		want := timer.Remaining() - 1
		clock.Advance(time.Second)
		require.Eventually(t, func() bool { return timer.Remaining() == want }, time.Second, time.Millisecond)
	}
}

func TestTimerExpiresOnceWithItsEpoch(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	rec := &expiries{}
	timer := NewTimer(uuid.New(), clock, 5, TimerHooks{Expire: rec.expire, Fail: rec.fail})

	epoch := timer.Start(3)
	assert.True(t, timer.Running())
	assert.Equal(t, 3, timer.Remaining())

	tick(t, clock, timer, 3)

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, []uint64{epoch}, rec.epochs)
	rec.mu.Unlock()
	assert.False(t, timer.Running())

	clock.Advance(5 * time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestTimerStopFreezesRemaining(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	rec := &expiries{}
	timer := NewTimer(uuid.New(), clock, 5, TimerHooks{Expire: rec.expire})

	first := timer.Start(5)
	tick(t, clock, timer, 2)

	assert.Equal(t, 3, timer.Stop())
	assert.Greater(t, timer.Epoch(), first)
	assert.False(t, timer.Running())

	clock.Advance(10 * time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 3, timer.Remaining())
	assert.Equal(t, 0, rec.count())
}

func TestTimerRestartReplacesCountdown(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	rec := &expiries{}
	timer := NewTimer(uuid.New(), clock, 5, TimerHooks{Expire: rec.expire})

	first := timer.Start(2)
	tick(t, clock, timer, 1)
	second := timer.Start(2)
	require.NotEqual(t, first, second)

	tick(t, clock, timer, 2)

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, []uint64{second}, rec.epochs)
	rec.mu.Unlock()
}

func TestTimerRestartsAfterPanicThenFails(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	rec := &expiries{}
	var mu sync.Mutex
	calls := 0
	timer := NewTimer(uuid.New(), clock, 2, TimerHooks{
		Expire: func(epoch uint64) {
			mu.Lock()
			calls++
			mu.Unlock()
			panic("expire handler blew up")
		},
		Fail: rec.fail,
	})
	seen := func() int {
		mu.Lock()
		defer mu.Unlock()
		return calls
	}

	timer.Start(1)
	for want := 1; want <= 3; want++ {
		clock.Advance(time.Second)
		require.Eventually(t, func() bool { return seen() == want }, time.Second, time.Millisecond)
	}

	require.Eventually(t, func() bool { return rec.failures() == 1 }, time.Second, time.Millisecond)
	rec.mu.Lock()
	assert.ErrorIs(t, rec.failed[0], ErrInfrastructure)
	rec.mu.Unlock()
	assert.False(t, timer.Running())
}
