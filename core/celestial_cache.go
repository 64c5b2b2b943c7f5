package core

// CelestialUpdateIntervalMillis is how long a computed sky frame stays valid
// unless a refresh is forced.
const CelestialUpdateIntervalMillis int64 = 60_000

// InvalidUpdateMillis marks a CelestialCache that has never been filled or has
// been invalidated.
const InvalidUpdateMillis int64 = -1

// CelestialFrame is the observer's local frame expressed in sky coordinates.
// TrueNorth, Up and TrueEast are the geographic directions handed to callers;
// MagneticBasis has columns [magnetic north, up, magnetic east] and is only used
// to map device coordinates into the sky.
type CelestialFrame struct {
	TrueNorth     Vector3
	Up            Vector3
	TrueEast      Vector3
	MagneticBasis Matrix33
}

// ComputeCelestialFrame builds the frame for a zenith direction and a magnetic
// declination in degrees, east positive. Magnetic north is true north turned
// towards east by the declination, which is a negative rotation about up.
//
// When the zenith coincides with a celestial pole the projection of the pole
// axis onto the horizon vanishes, so the x axis is used as the north reference
// instead. The frame stays orthonormal, though "north" is then arbitrary.
func ComputeCelestialFrame(up Vector3, declinationDegrees float64) CelestialFrame {
	if u, err := up.Unit(); err == nil {
		up = u
	} else {
		up = ZAxis
	}

	trueNorth, err := ZAxis.RejectFrom(up).Unit()
	if err != nil {
		trueNorth, err = XAxis.RejectFrom(up).Unit()
		if err != nil {
			trueNorth = YAxis
		}
	}
	trueEast := trueNorth.Cross(up)

	magneticNorth := RotateAbout(trueNorth, -declinationDegrees, up)
	magneticEast := magneticNorth.Cross(up)

	return CelestialFrame{
		TrueNorth:     trueNorth,
		Up:            up,
		TrueEast:      trueEast,
		MagneticBasis: NewMatrix33FromColumns(magneticNorth, up, magneticEast),
	}
}

// CelestialCache holds the last computed sky frame and when it was computed.
type CelestialCache struct {
	LastUpdateMillis int64
	Frame            CelestialFrame
}

// NewCelestialCache returns an invalid cache.
func NewCelestialCache() CelestialCache {
	return CelestialCache{LastUpdateMillis: InvalidUpdateMillis}
}

// Valid reports whether the cache holds a computed frame.
func (c CelestialCache) Valid() bool { return c.LastUpdateMillis != InvalidUpdateMillis }

// Invalidate returns a copy of c that the next MaybeRefresh recomputes.
func (c CelestialCache) Invalidate() CelestialCache {
	c.LastUpdateMillis = InvalidUpdateMillis
	return c
}

// Stale reports whether a refresh at now is due. Time running backwards counts
// the same as time running forwards, so time travel into the past refreshes.
func (c CelestialCache) Stale(now int64) bool {
	if !c.Valid() {
		return true
	}
	d := now - c.LastUpdateMillis
	if d < 0 {
		d = -d
	}
	return d >= CelestialUpdateIntervalMillis
}

// MaybeRefresh returns the cache to use at now. Unless force is set or the
// cache is stale, it returns c unchanged and false. Otherwise compute is called
// with now and the result is returned with true. MaybeRefresh has no side
// effects of its own.
func (c CelestialCache) MaybeRefresh(now int64, force bool, compute func(nowMillis int64) CelestialFrame) (CelestialCache, bool) {
	if !force && !c.Stale(now) {
		return c, false
	}
	return CelestialCache{LastUpdateMillis: now, Frame: compute(now)}, true
}
