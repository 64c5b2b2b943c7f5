package timectrl

import (
	"math"
	"sync"
)

// TransitionTimeMillis is how long the composite clock takes to blend from one
// time source to the other.
const TransitionTimeMillis int64 = 2500

// State is the state of a TransitioningCompositeClock.
type State int

const (
	// SteadyOnA follows the real clock.
	SteadyOnA State = iota
	// TransitioningAToB is blending from the reported time towards a travel instant.
	TransitioningAToB
	// SteadyOnB follows the travel clock.
	SteadyOnB
	// TransitioningBToA is blending back towards real time.
	TransitioningBToA
)

func (s State) String() string {
	switch s {
	case SteadyOnA:
		return "steady_on_real"
	case TransitioningAToB:
		return "transitioning_to_travel"
	case SteadyOnB:
		return "steady_on_travel"
	case TransitioningBToA:
		return "transitioning_to_real"
	default:
		return "unknown"
	}
}

// Transitioning reports whether s is one of the blending states.
func (s State) Transitioning() bool {
	return s == TransitioningAToB || s == TransitioningBToA
}

// TransitionFunc observes state changes of a composite clock. It is called
// without the clock's lock held, so it may read the clock.
type TransitionFunc func(from, to State)

// TransitioningCompositeClock wraps a real clock (A) and a travel clock (B) and
// moves between them smoothly. While transitioning, reported time follows a
// smoothstep curve from the value reported when the transition began to the
// destination, over TransitionTimeMillis of real time, so neither the reported
// time nor its rate jumps at either end of the window.
//
// It is safe for concurrent use.
type TransitioningCompositeClock struct {
	mu     sync.Mutex
	real   Clock
	travel TravelClock
	state  State

	startMillis     int64
	endMillis       int64
	transitionStart int64

	onTransition TransitionFunc
}

// NewTransitioningCompositeClock returns a composite clock that starts steady on
// the real clock. A nil travel clock defaults to a pinned TimeTravelClock.
func NewTransitioningCompositeClock(real Clock, travel TravelClock) *TransitioningCompositeClock {
	if real == nil {
		real = SystemClock{}
	}
	if travel == nil {
		travel = NewTimeTravelClock()
	}
	return &TransitioningCompositeClock{
		real:   real,
		travel: travel,
		state:  SteadyOnA,
	}
}

// OnTransition registers fn to be called on every state change.
func (c *TransitioningCompositeClock) OnTransition(fn TransitionFunc) {
	c.mu.Lock()
	c.onTransition = fn
	c.mu.Unlock()
}

// GoTimeTravel begins a transition from the currently reported time to
// targetMillis. It may be called in any state; a transition already in
// progress is re-anchored at the current interpolated value.
func (c *TransitioningCompositeClock) GoTimeTravel(targetMillis int64) {
	c.mu.Lock()
	from := c.state
	current, _ := c.nowLocked()
	c.travel.SetTravelMillis(targetMillis)
	c.startMillis = current
	c.endMillis = targetMillis
	c.transitionStart = c.real.NowMillis()
	c.state = TransitioningAToB
	fn := c.onTransition
	c.mu.Unlock()

	notify(fn, from, TransitioningAToB)
}

// ReturnToRealTime begins a transition from the currently reported time back to
// real time. The destination is fixed when the call is made: the real clock's
// reading plus TransitionTimeMillis, which is exactly what the real clock will
// read when the window closes.
func (c *TransitioningCompositeClock) ReturnToRealTime() {
	c.mu.Lock()
	from := c.state
	current, _ := c.nowLocked()
	realNow := c.real.NowMillis()
	c.startMillis = current
	c.endMillis = realNow + TransitionTimeMillis
	c.transitionStart = realNow
	c.state = TransitioningBToA
	fn := c.onTransition
	c.mu.Unlock()

	notify(fn, from, TransitioningBToA)
}

// NowMillis implements Clock.
func (c *TransitioningCompositeClock) NowMillis() int64 {
	c.mu.Lock()
	from := c.state
	now, collapsed := c.nowLocked()
	to := c.state
	fn := c.onTransition
	c.mu.Unlock()

	if collapsed {
		notify(fn, from, to)
	}
	return now
}

// State returns the current state, collapsing a finished transition first.
func (c *TransitioningCompositeClock) State() State {
	c.NowMillis()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsTimeTravelling reports whether the clock is on, or heading to, the travel clock.
func (c *TransitioningCompositeClock) IsTimeTravelling() bool {
	s := c.State()
	return s == SteadyOnB || s == TransitioningAToB
}

// RealClock returns the underlying real clock.
func (c *TransitioningCompositeClock) RealClock() Clock { return c.real }

// nowLocked computes the reported time and collapses a finished transition.
// The second result reports whether a collapse happened.
func (c *TransitioningCompositeClock) nowLocked() (int64, bool) {
	collapsed := false
	if c.state.Transitioning() {
		elapsed := c.real.NowMillis() - c.transitionStart
		x := clamp01(float64(elapsed) / float64(TransitionTimeMillis))
		if x < 1 {
			return int64(math.Round(Interpolate(float64(c.startMillis), float64(c.endMillis), x))), false
		}
		if c.state == TransitioningAToB {
			c.state = SteadyOnB
		} else {
			c.state = SteadyOnA
		}
		collapsed = true
	}

	if c.state == SteadyOnB {
		return c.travel.NowMillis(), collapsed
	}
	return c.real.NowMillis(), collapsed
}

// Interpolate blends from start to end with the smoothstep curve 3x² - 2x³.
// It returns start at x=0, end at x=1 and the midpoint at x=0.5, and its
// derivative with respect to x vanishes at both ends. x is clamped to [0, 1].
func Interpolate(start, end, x float64) float64 {
	switch {
	case x <= 0:
		return start
	case x >= 1:
		return end
	}
	return start + (end-start)*x*x*(3-2*x)
}

func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

func notify(fn TransitionFunc, from, to State) {
	if fn != nil && from != to {
		fn(from, to)
	}
}
