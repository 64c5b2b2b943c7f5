package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"

	"github.com/sky-map-team/skyorient/model"
)

// ZenithCalculator maps an instant and an observer to the right ascension and
// declination of the observer's zenith.
type ZenithCalculator interface {
	ZenithRaDec(t time.Time, loc model.LatLong) model.RaDec
}

// MeanSiderealZenith uses Greenwich mean sidereal time (IAU-82).
type MeanSiderealZenith struct{}

// ZenithRaDec implements ZenithCalculator.
func (MeanSiderealZenith) ZenithRaDec(t time.Time, loc model.LatLong) model.RaDec {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	jd += float64(t.Nanosecond()) / float64(24*time.Hour)
	gmst := satellite.ThetaG_JD(jd) * radToDeg

	return zenithFromSidereal(gmst, loc)
}

// ApparentSiderealZenith uses Greenwich apparent sidereal time, which adds the
// equation of the equinoxes to the mean value.
type ApparentSiderealZenith struct{}

// ZenithRaDec implements ZenithCalculator.
func (ApparentSiderealZenith) ZenithRaDec(t time.Time, loc model.LatLong) model.RaDec {
	jd := julian.TimeToJD(t.UTC())
	gast := sidereal.Apparent(jd).Angle().Rad() * radToDeg
	return zenithFromSidereal(gast, loc)
}

// zenithFromSidereal turns Greenwich sidereal time in degrees into the zenith
// RA/Dec: local sidereal time is the RA on the meridian, and the zenith's
// declination equals the observer's latitude.
func zenithFromSidereal(greenwichDeg float64, loc model.LatLong) model.RaDec {
	ra := math.Mod(greenwichDeg+loc.Longitude(), 360)
	if ra < 0 {
		ra += 360
	}
	return model.RaDec{RA: ra, Dec: loc.Latitude()}
}

// ZenithVector returns the unit sky-frame vector of the zenith.
func ZenithVector(calc ZenithCalculator, t time.Time, loc model.LatLong) Vector3 {
	return GeocentricFromRaDec(calc.ZenithRaDec(t, loc))
}

// SiderealModel returns the zenith calculator for a configured model name:
// "apparent", or "mean" for anything else.
func SiderealModel(name string) ZenithCalculator {
	if name == "apparent" {
		return ApparentSiderealZenith{}
	}
	return MeanSiderealZenith{}
}
