package draft

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Timer is the authoritative per-session countdown. It ticks once per second and, on
// reaching zero, hands its epoch to the expire callback exactly once. Every Start and Stop
// bumps the epoch, so a countdown that was cancelled can never be mistaken for the
// current one.
type Timer struct {
	draftID      uuid.UUID
	clock        clockwork.Clock
	restartLimit int

	expire func(epoch uint64)
	fail   func(epoch uint64, err error)

	mu        sync.Mutex
	remaining int
	epoch     uint64
	stop      chan struct{}
}

// TimerHooks are the callbacks a Timer drives. Expire is required.
type TimerHooks struct {
	Expire func(epoch uint64)
	Fail   func(epoch uint64, err error)
}

// NewTimer creates a stopped timer.
func NewTimer(draftID uuid.UUID, clock clockwork.Clock, restartLimit int, hooks TimerHooks) *Timer {
	return &Timer{
		draftID:      draftID,
		clock:        clock,
		restartLimit: restartLimit,
		expire:       hooks.Expire,
		fail:         hooks.Fail,
	}
}

// Start cancels any running countdown and starts a new one from remaining seconds.
// It returns the epoch of the new countdown.
func (t *Timer) Start(remaining int) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	t.epoch++
	t.remaining = remaining
	stop := make(chan struct{})
	t.stop = stop

	// Create the ticker before returning so a caller advancing a fake clock never races the goroutine.
	ticker := t.clock.NewTicker(time.Second)
	go t.supervise(t.epoch, ticker, stop)
	return t.epoch
}

// Stop cancels the countdown and returns the seconds that were left.
func (t *Timer) Stop() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	t.epoch++
	return t.remaining
}

// Remaining returns the seconds left on the current (or frozen) countdown.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Epoch returns the current countdown generation.
func (t *Timer) Epoch() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch
}

// Running reports whether a countdown is in progress.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

func (t *Timer) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// supervise restarts a crashed countdown loop from the last known remaining value.
func (t *Timer) supervise(epoch uint64, ticker clockwork.Ticker, stop chan struct{}) {
	defer ticker.Stop()

	restarts := 0
	for {
		done, err := t.run(epoch, ticker, stop)
		if done {
			return
		}

		restarts++
		if !t.current(epoch) {
			return
		}
		if restarts > t.restartLimit {
			log.Error().
				Err(err).
				Str("draft_id", t.draftID.String()).
				Int("restarts", restarts-1).
				Msg("countdown failed permanently")
			t.mu.Lock()
			if t.epoch == epoch {
				t.stop = nil
			}
			t.mu.Unlock()
			if t.fail != nil {
				t.fail(epoch, err)
			}
			return
		}

		log.Warn().
			Err(err).
			Str("draft_id", t.draftID.String()).
			Int("remaining", t.Remaining()).
			Int("restart", restarts).
			Msg("restarting countdown from last known remaining")
	}
}

func (t *Timer) current(epoch uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch == epoch
}

func (t *Timer) run(epoch uint64, ticker clockwork.Ticker, stop chan struct{}) (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			done = false
			err = fmt.Errorf("%w: countdown panic: %v", ErrInfrastructure, r)
		}
	}()

	for {
		select {
		case <-stop:
			return true, nil
		case <-ticker.Chan():
			t.mu.Lock()
			if t.epoch != epoch {
				t.mu.Unlock()
				return true, nil
			}
			if t.remaining > 0 {
				t.remaining--
			}
			remaining := t.remaining
			if remaining == 0 {
				t.stop = nil
			}
			t.mu.Unlock()

			if remaining == 0 {
				t.expire(epoch)
				return true, nil
			}
		}
	}
}
