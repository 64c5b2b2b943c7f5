package timectrl

import "sync"

// TravelClock is the "B" side of a TransitioningCompositeClock: a clock that can
// be pointed at an arbitrary instant.
type TravelClock interface {
	Clock
	SetTravelMillis(millis int64)
}

// TimeTravelClock reports a user-chosen instant. By default the instant is
// pinned; a running clock instead advances 1:1 with a reference clock from the
// moment the instant was set.
type TimeTravelClock struct {
	mu       sync.Mutex
	ref      Clock
	running  bool
	travel   int64
	refAtSet int64
}

// NewTimeTravelClock returns a pinned travel clock reading 0 until set.
func NewTimeTravelClock() *TimeTravelClock {
	return &TimeTravelClock{}
}

// NewRunningTimeTravelClock returns a travel clock that keeps ticking with ref
// after SetTravelMillis.
func NewRunningTimeTravelClock(ref Clock) *TimeTravelClock {
	if ref == nil {
		ref = SystemClock{}
	}
	return &TimeTravelClock{ref: ref, running: true}
}

// SetTravelMillis points the clock at millis.
func (c *TimeTravelClock) SetTravelMillis(millis int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.travel = millis
	if c.running {
		c.refAtSet = c.ref.NowMillis()
	}
}

// NowMillis implements Clock.
func (c *TimeTravelClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return c.travel
	}
	return c.travel + (c.ref.NowMillis() - c.refAtSet)
}
