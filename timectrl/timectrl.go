package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the TimeController advances time.
type Mode int

const (
	// RealTime fires listeners on a wall-clock ticker and reports the clock as is.
	RealTime Mode = iota
	// Accelerated advances the clock by Step on every tick, as quickly as the
	// ticker runs. It requires a clock that implements Advancer.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// Advancer is a clock that can be moved forward explicitly.
type Advancer interface {
	Clock
	Advance(d time.Duration)
}

// TimeController is the owning scheduler for periodic work such as refreshing
// the orientation model before a batch of reads. On every tick it notifies
// registered listeners with the current reading of its clock.
type TimeController struct {
	mu    sync.RWMutex
	Clock Clock
	Tick  time.Duration
	Step  time.Duration
	Mode  Mode

	// lastTick is the clock reading delivered on the most recent tick.
	lastTick int64

	listeners []func(nowMillis int64)
}

// NewTimeController constructs a controller. Step defaults to Tick.
func NewTimeController(clock Clock, tick time.Duration, mode Mode) *TimeController {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TimeController{
		Clock:    clock,
		Tick:     tick,
		Step:     tick,
		Mode:     mode,
		lastTick: clock.NowMillis(),
	}
}

// LastTickMillis returns the clock reading delivered on the most recent tick.
func (tc *TimeController) LastTickMillis() int64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.lastTick
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn func(nowMillis int64)) {
	tc.mu.Lock()
	tc.listeners = append(tc.listeners, fn)
	tc.mu.Unlock()
}

// Start runs the controller in a separate goroutine until ctx is cancelled or,
// when duration is positive, until duration of controller time has elapsed.
// It returns a channel that is closed when the controller finishes.
func (tc *TimeController) Start(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		advancer, _ := tc.Clock.(Advancer)
		elapsed := time.Duration(0)

		ticker := time.NewTicker(tc.Tick)
		defer ticker.Stop()

		for {
			if duration > 0 && elapsed >= duration {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			step := tc.Tick
			if tc.Mode == Accelerated && advancer != nil {
				step = tc.Step
				advancer.Advance(step)
			}
			elapsed += step

			now := tc.Clock.NowMillis()
			tc.mu.Lock()
			tc.lastTick = now
			listeners := append([]func(int64){}, tc.listeners...)
			tc.mu.Unlock()

			for _, fn := range listeners {
				fn(now)
			}
		}
	}()
	return done
}
