package core

import (
	"math"
	"sync"
	"time"

	"github.com/sky-map-team/skyorient/model"
)

// MagneticDeclinationCalculator reports the angle between true north and
// magnetic north for the last location and time it was given. Positive values
// mean magnetic north lies east of true north.
type MagneticDeclinationCalculator interface {
	DeclinationDegrees() float64
	SetLocationAndTime(loc model.LatLong, timeMillis int64)
}

// ZeroDeclinationCalculator treats magnetic north as true north.
type ZeroDeclinationCalculator struct{}

func (ZeroDeclinationCalculator) DeclinationDegrees() float64             { return 0 }
func (ZeroDeclinationCalculator) SetLocationAndTime(model.LatLong, int64) {}

// DeclinationModel returns the calculator for a configured model name:
// "dipole", or zero declination for anything else.
func DeclinationModel(name string) MagneticDeclinationCalculator {
	if name == "dipole" {
		return NewDipoleDeclinationCalculator()
	}
	return ZeroDeclinationCalculator{}
}

// IGRF-13 degree-1 Gauss coefficients at epoch 2020.0 and their secular
// variation, in nT and nT/year.
const (
	igrfG10 = -29404.8
	igrfG11 = -1450.9
	igrfH11 = 4652.5

	igrfG10SV = 5.7
	igrfG11SV = 7.4
	igrfH11SV = -25.9
)

var igrfEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// DipoleDeclinationCalculator approximates declination with a centred tilted
// dipole: the bearing from the observer to the boreal geomagnetic pole. It is
// good to a few degrees away from the poles, which is enough to line up a sky
// map by eye. It is safe for concurrent use.
type DipoleDeclinationCalculator struct {
	mu          sync.Mutex
	declination float64
}

// NewDipoleDeclinationCalculator returns a calculator with zero declination
// until SetLocationAndTime is called.
func NewDipoleDeclinationCalculator() *DipoleDeclinationCalculator {
	return &DipoleDeclinationCalculator{}
}

// DeclinationDegrees implements MagneticDeclinationCalculator.
func (c *DipoleDeclinationCalculator) DeclinationDegrees() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.declination
}

// SetLocationAndTime implements MagneticDeclinationCalculator.
func (c *DipoleDeclinationCalculator) SetLocationAndTime(loc model.LatLong, timeMillis int64) {
	poleLat, poleLon := GeomagneticPole(time.UnixMilli(timeMillis))
	d := bearingDegrees(loc.Latitude(), loc.Longitude(), poleLat, poleLon)

	c.mu.Lock()
	c.declination = d
	c.mu.Unlock()
}

// GeomagneticPole returns the latitude and longitude in degrees of the boreal
// geomagnetic pole at t, from the degree-1 IGRF terms.
func GeomagneticPole(t time.Time) (lat, lon float64) {
	years := t.Sub(igrfEpoch).Hours() / (24 * 365.25)
	g10 := igrfG10 + igrfG10SV*years
	g11 := igrfG11 + igrfG11SV*years
	h11 := igrfH11 + igrfH11SV*years

	b0 := math.Sqrt(g10*g10 + g11*g11 + h11*h11)
	colat := math.Acos(-g10 / b0)
	lon = math.Atan2(-h11, -g11)
	return 90 - colat*radToDeg, lon * radToDeg
}

// bearingDegrees is the initial great-circle bearing from (lat1, lon1) to
// (lat2, lon2), east of north in (-180, 180].
func bearingDegrees(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dLon := (lon2 - lon1) * degToRad

	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	if math.Abs(x) < 1e-12 && math.Abs(y) < 1e-12 {
		// At the pole itself every bearing is as good as another.
		return 0
	}
	return math.Atan2(y, x) * radToDeg
}
