package timectrl

import (
	"sync"
	"time"
)

// Clock is a source of time in milliseconds since the Unix epoch. The
// orientation model and anything else that depends on "now" read time through
// a Clock so tests and time travel can substitute their own.
type Clock interface {
	NowMillis() int64
}

// Time converts the current reading of c to a UTC time.Time.
func Time(c Clock) time.Time {
	return time.UnixMilli(c.NowMillis()).UTC()
}

// SystemClock reports wall-clock time.
type SystemClock struct{}

// NowMillis implements Clock.
func (SystemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// FakeClock is a manually driven clock for tests and accelerated simulation.
// It is safe for concurrent use.
type FakeClock struct {
	mu  sync.Mutex
	now int64
}

// NewFakeClock returns a FakeClock reading startMillis.
func NewFakeClock(startMillis int64) *FakeClock {
	return &FakeClock{now: startMillis}
}

// NewFakeClockAt returns a FakeClock reading t.
func NewFakeClockAt(t time.Time) *FakeClock {
	return NewFakeClock(t.UnixMilli())
}

// NowMillis implements Clock.
func (c *FakeClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to millis.
func (c *FakeClock) Set(millis int64) {
	c.mu.Lock()
	c.now = millis
	c.mu.Unlock()
}

// Advance moves the clock forward by d (backwards if d is negative).
func (c *FakeClock) Advance(d time.Duration) {
	c.AdvanceMillis(d.Milliseconds())
}

// AdvanceMillis moves the clock forward by ms milliseconds.
func (c *FakeClock) AdvanceMillis(ms int64) {
	c.mu.Lock()
	c.now += ms
	c.mu.Unlock()
}
