package core

import (
	"context"
	"sync"
	"time"

	"github.com/sky-map-team/skyorient/internal/logging"
	"github.com/sky-map-team/skyorient/model"
	"github.com/sky-map-team/skyorient/timectrl"
)

// DefaultFieldOfViewDegrees is the field of view a new model starts with.
const DefaultFieldOfViewDegrees = 45.0

// Device-frame constants projected into the sky: the direction looking into
// the screen and the direction towards the top of the screen.
var (
	screenInto = Vector3{X: 0, Y: 0, Z: -1}
	screenUp   = Vector3{X: 0, Y: 1, Z: 0}
)

// Sensor readings a new model starts with: a device lying roughly flat with its
// top edge pointing at magnetic north.
var (
	initialAcceleration  = Vector3{X: 0, Y: -1, Z: -9}
	initialMagneticField = Vector3{X: 0, Y: -1, Z: 0}
)

// MetricsRecorder receives events from the orientation model.
type MetricsRecorder interface {
	ObserveCelestialRefresh(forced bool, d time.Duration)
	IncCelestialCacheHit()
	IncDegenerateInput(input string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveCelestialRefresh(bool, time.Duration) {}
func (noopRecorder) IncCelestialCacheHit()                       {}
func (noopRecorder) IncDegenerateInput(string)                   {}

// Degenerate input labels passed to MetricsRecorder.IncDegenerateInput.
const (
	InputAcceleration  = "acceleration"
	InputMagneticField = "magnetic_field"
)

// OrientationModel fuses accelerometer and magnetometer readings with a clock
// and an observer location to work out where in the sky the device points.
//
// It keeps two frames. The device frame (north, up and east in device
// coordinates) is rebuilt from the latest sensor readings on every pointing
// read. The sky frame (north, up and east in sky coordinates) depends only on
// time and location, is corrected for magnetic declination, and is recomputed
// at most once per CelestialUpdateIntervalMillis of clock time unless forced.
//
// All methods are safe for concurrent use. The model lock is always taken
// before any lock inside the clock or the declination calculator.
type OrientationModel struct {
	mu sync.Mutex

	location    model.LatLong
	clock       timectrl.Clock
	declination MagneticDeclinationCalculator
	zenith      ZenithCalculator

	acceleration  Vector3
	magneticField Vector3

	fieldOfView        float64
	autoUpdatePointing bool

	celestial         CelestialCache
	phoneBasisInverse Matrix33
	pointing          model.Pointing

	log     logging.Logger
	metrics MetricsRecorder
}

// Option customises OrientationModel construction.
type Option func(*OrientationModel)

// WithClock sets the time source. The default is the system clock.
func WithClock(c timectrl.Clock) Option {
	return func(m *OrientationModel) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLocation sets the initial observer location.
func WithLocation(loc model.LatLong) Option {
	return func(m *OrientationModel) {
		m.location = loc
	}
}

// WithZenithCalculator sets how the zenith is derived from time and location.
// The default is MeanSiderealZenith.
func WithZenithCalculator(z ZenithCalculator) Option {
	return func(m *OrientationModel) {
		if z != nil {
			m.zenith = z
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(m *OrientationModel) {
		m.log = logging.OrNoop(l)
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(r MetricsRecorder) Option {
	return func(m *OrientationModel) {
		if r != nil {
			m.metrics = r
		}
	}
}

// NewOrientationModel builds a model around a declination calculator (nil
// means zero declination) and computes both frames once.
func NewOrientationModel(calc MagneticDeclinationCalculator, opts ...Option) *OrientationModel {
	if calc == nil {
		calc = ZeroDeclinationCalculator{}
	}
	m := &OrientationModel{
		location:           model.NewLatLong(0, 0),
		clock:              timectrl.SystemClock{},
		declination:        calc,
		zenith:             MeanSiderealZenith{},
		acceleration:       initialAcceleration,
		magneticField:      initialMagneticField,
		fieldOfView:        DefaultFieldOfViewDegrees,
		autoUpdatePointing: true,
		celestial:          NewCelestialCache(),
		phoneBasisInverse:  Identity(),
		pointing:           model.DefaultPointing(),
		log:                logging.Noop(),
		metrics:            noopRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.log = m.log.With(logging.Component("orientation_model"))

	m.mu.Lock()
	m.refreshPhoneBasisLocked()
	m.refreshCelestialLocked(true)
	m.mu.Unlock()
	return m
}

// SetLocation moves the observer and recomputes the sky frame immediately.
func (m *OrientationModel) SetLocation(loc model.LatLong) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.location = loc
	m.invalidateLocked()
}

// SetClock swaps the time source and recomputes the sky frame immediately. A
// nil clock selects the system clock.
func (m *OrientationModel) SetClock(c timectrl.Clock) {
	if c == nil {
		c = timectrl.SystemClock{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = c
	m.invalidateLocked()
}

// SetMagneticDeclinationCalculator swaps the declination source and recomputes
// the sky frame immediately. A nil calculator means zero declination.
func (m *OrientationModel) SetMagneticDeclinationCalculator(calc MagneticDeclinationCalculator) {
	if calc == nil {
		calc = ZeroDeclinationCalculator{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.declination = calc
	m.invalidateLocked()
}

// SetPhoneSensorValues records the latest readings. Nothing is recomputed until
// the next read.
func (m *OrientationModel) SetPhoneSensorValues(acceleration, magneticField Vector3) {
	m.mu.Lock()
	m.acceleration = acceleration
	m.magneticField = magneticField
	m.mu.Unlock()
}

// SetFieldOfView records the display field of view. It has no effect on the
// orientation itself.
func (m *OrientationModel) SetFieldOfView(degrees float64) {
	m.mu.Lock()
	m.fieldOfView = degrees
	m.mu.Unlock()
}

// FieldOfView returns the display field of view in degrees.
func (m *OrientationModel) FieldOfView() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fieldOfView
}

// SetAutoUpdatePointing controls whether reads recompute the pointing. While
// disabled, Pointing keeps returning the last computed value.
func (m *OrientationModel) SetAutoUpdatePointing(enabled bool) {
	m.mu.Lock()
	m.autoUpdatePointing = enabled
	m.mu.Unlock()
}

// AutoUpdatePointing reports whether reads recompute the pointing.
func (m *OrientationModel) AutoUpdatePointing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoUpdatePointing
}

// Location returns the observer location.
func (m *OrientationModel) Location() model.LatLong {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.location
}

// Clock returns the model's time source.
func (m *OrientationModel) Clock() timectrl.Clock {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock
}

// TimeMillis returns the model's current time.
func (m *OrientationModel) TimeMillis() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.NowMillis()
}

// Pointing returns where the device is looking: the line of sight (into the
// screen) and the perpendicular (towards the top of the screen), both as unit
// vectors in sky coordinates. The result is a snapshot owned by the caller.
func (m *OrientationModel) Pointing() model.Pointing {
	return m.Refresh(false)
}

// Refresh rebuilds the device frame, refreshes the sky frame if it is stale
// (or unconditionally when force is set) and, unless auto-update is off,
// recomputes the pointing. Schedulers call it before a batch of reads.
func (m *OrientationModel) Refresh(force bool) model.Pointing {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refreshPhoneBasisLocked()
	now := m.refreshCelestialLocked(force)
	if m.autoUpdatePointing {
		m.updatePointingLocked(now)
	}
	return m.pointing
}

// North returns true north on the horizon in sky coordinates.
func (m *OrientationModel) North() Vector3 { return m.frame().TrueNorth }

// South returns true south on the horizon in sky coordinates.
func (m *OrientationModel) South() Vector3 { return m.frame().TrueNorth.Negate() }

// East returns east on the horizon in sky coordinates.
func (m *OrientationModel) East() Vector3 { return m.frame().TrueEast }

// West returns west on the horizon in sky coordinates.
func (m *OrientationModel) West() Vector3 { return m.frame().TrueEast.Negate() }

// Zenith returns the point directly overhead in sky coordinates.
func (m *OrientationModel) Zenith() Vector3 { return m.frame().Up }

// Nadir returns the point directly underfoot in sky coordinates.
func (m *OrientationModel) Nadir() Vector3 { return m.frame().Up.Negate() }

// Directions returns all six local directions from a single sky frame.
func (m *OrientationModel) Directions() model.Directions {
	f := m.frame()
	return model.Directions{
		North:  f.TrueNorth.Model(),
		South:  f.TrueNorth.Negate().Model(),
		East:   f.TrueEast.Model(),
		West:   f.TrueEast.Negate().Model(),
		Zenith: f.Up.Model(),
		Nadir:  f.Up.Negate().Model(),
	}
}

func (m *OrientationModel) frame() CelestialFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCelestialLocked(false)
	return m.celestial.Frame
}

func (m *OrientationModel) invalidateLocked() {
	m.celestial = m.celestial.Invalidate()
	m.refreshCelestialLocked(true)
}

// refreshPhoneBasisLocked rebuilds the inverse device basis, whose rows are
// north, up and east in device coordinates. On degenerate readings the
// previous basis is kept.
func (m *OrientationModel) refreshPhoneBasisLocked() {
	down, err := m.acceleration.Unit()
	if err != nil {
		m.degenerateLocked(InputAcceleration, m.acceleration)
		return
	}
	up := down.Negate()

	// Field lines run from magnetic south to magnetic north, so the measured
	// field points away from north.
	fieldDir, err := m.magneticField.Unit()
	if err != nil {
		m.degenerateLocked(InputMagneticField, m.magneticField)
		return
	}
	toNorth := fieldDir.Negate()

	north, err := toNorth.RejectFrom(down).Unit()
	if err != nil {
		m.degenerateLocked(InputMagneticField, m.magneticField)
		return
	}
	east, err := north.Cross(up).Unit()
	if err != nil {
		m.degenerateLocked(InputMagneticField, m.magneticField)
		return
	}

	m.phoneBasisInverse = NewMatrix33FromRows(north, up, east)
}

func (m *OrientationModel) degenerateLocked(input string, v Vector3) {
	m.metrics.IncDegenerateInput(input)
	m.log.Debug(context.Background(), "degenerate sensor reading, keeping previous device frame",
		logging.String("input", input),
		logging.String("value", v.String()),
	)
}

// refreshCelestialLocked recomputes the sky frame when due and returns the
// clock reading it was checked against.
func (m *OrientationModel) refreshCelestialLocked(force bool) int64 {
	now := m.clock.NowMillis()
	forced := force || !m.celestial.Valid()

	start := time.Now()
	next, changed := m.celestial.MaybeRefresh(now, force, m.computeCelestialLocked)
	if !changed {
		m.metrics.IncCelestialCacheHit()
		return now
	}
	m.celestial = next
	m.metrics.ObserveCelestialRefresh(forced, time.Since(start))
	return now
}

func (m *OrientationModel) computeCelestialLocked(now int64) CelestialFrame {
	m.declination.SetLocationAndTime(m.location, now)
	declination := m.declination.DeclinationDegrees()
	up := ZenithVector(m.zenith, time.UnixMilli(now).UTC(), m.location)

	m.log.Debug(context.Background(), "celestial frame refreshed",
		logging.Int64("time_millis", now),
		logging.String("location", m.location.String()),
		logging.Float64("declination_deg", declination),
	)
	return ComputeCelestialFrame(up, declination)
}

// updatePointingLocked maps the device constants into the sky through
// T = MagneticBasis * PhoneBasisInverse.
func (m *OrientationModel) updatePointingLocked(now int64) {
	t := m.celestial.Frame.MagneticBasis.Mul(m.phoneBasisInverse)
	m.pointing = model.Pointing{
		LineOfSight:   t.MulVec(screenInto).Model(),
		Perpendicular: t.MulVec(screenUp).Model(),
		TimeMillis:    now,
	}
}
