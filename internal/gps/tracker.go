package gps

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/sky-map-team/skyorient/internal/logging"
	"github.com/sky-map-team/skyorient/model"
)

// SourceGPS labels location updates coming from the receiver.
const SourceGPS = "gps"

// LocationSetter is the part of the orientation model the tracker drives.
type LocationSetter interface {
	SetLocation(model.LatLong)
}

// LocationRecorder counts applied location updates.
type LocationRecorder interface {
	IncLocationUpdate(source string)
}

type noopRecorder struct{}

func (noopRecorder) IncLocationUpdate(string) {}

// Tracker forwards fixes to a LocationSetter, skipping those that moved less
// than MinMoveMeters from the last forwarded one. Every SetLocation forces a
// sky frame recomputation, so jitter from a stationary receiver is dropped.
type Tracker struct {
	target        LocationSetter
	minMoveMeters float64
	metrics       LocationRecorder
	log           logging.Logger

	mu   sync.Mutex
	last model.LatLong
	have bool
}

// NewTracker builds a tracker. metrics and log may be nil.
func NewTracker(target LocationSetter, minMoveMeters float64, metrics LocationRecorder, log logging.Logger) *Tracker {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	if minMoveMeters < 0 {
		minMoveMeters = 0
	}
	return &Tracker{
		target:        target,
		minMoveMeters: minMoveMeters,
		metrics:       metrics,
		log:           logging.OrNoop(log).With(logging.Component("gps")),
	}
}

// Update applies fix if it is the first one or far enough from the last
// applied one. It reports whether the target was updated.
func (t *Tracker) Update(ctx context.Context, fix Fix) bool {
	t.mu.Lock()
	if t.have && t.last.DistanceKm(fix.Location)*1000 < t.minMoveMeters {
		t.mu.Unlock()
		return false
	}
	t.last = fix.Location
	t.have = true
	t.mu.Unlock()

	t.target.SetLocation(fix.Location)
	t.metrics.IncLocationUpdate(SourceGPS)
	t.log.Info(ctx, "observer location updated from GPS",
		logging.String("location", fix.Location.String()),
		logging.String("sentence", fix.Kind),
	)
	return true
}

// Last returns the last applied location.
func (t *Tracker) Last() (model.LatLong, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.have
}

// Consume reads NMEA lines from r until EOF, a read error or ctx is done.
// Unparseable lines are logged at debug level and skipped.
func (t *Tracker) Consume(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		fix, ok, err := ParseSentence(line)
		if err != nil {
			t.log.Debug(ctx, "skipping NMEA line", logging.Err(err))
			continue
		}
		if ok {
			t.Update(ctx, fix)
		}
	}
	return scanner.Err()
}
