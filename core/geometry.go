package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/sky-map-team/skyorient/model"
)

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// RotateAbout rotates v by degrees around axis following the right-hand rule.
// The axis does not need to be normalised; a zero axis leaves v unchanged.
func RotateAbout(v Vector3, degrees float64, axis Vector3) Vector3 {
	if degrees == 0 || axis.Norm() < minNorm {
		return v
	}
	p := r3.Rotate(r3.Vec{X: v.X, Y: v.Y, Z: v.Z}, degrees*degToRad, r3.Vec{X: axis.X, Y: axis.Y, Z: axis.Z})
	return Vector3{X: p.X, Y: p.Y, Z: p.Z}
}

// GeocentricFromRaDec returns the unit vector in sky coordinates for a right
// ascension and declination given in degrees. RA 0 / Dec 0 is the x axis and
// the celestial north pole is the z axis.
func GeocentricFromRaDec(rd model.RaDec) Vector3 {
	ra := rd.RA * degToRad
	dec := rd.Dec * degToRad
	return Vector3{
		X: math.Cos(ra) * math.Cos(dec),
		Y: math.Sin(ra) * math.Cos(dec),
		Z: math.Sin(dec),
	}
}

// RaDecFromGeocentric is the inverse of GeocentricFromRaDec.
func RaDecFromGeocentric(v Vector3) model.RaDec {
	return model.RaDecOf(v.Model())
}

// ElevationDegrees returns the elevation of a sky direction above the local
// horizon described by zenith, in degrees. 0° = horizon, 90° = overhead.
func ElevationDegrees(direction, zenith Vector3) float64 {
	dNorm := direction.Norm()
	zNorm := zenith.Norm()
	if dNorm == 0 || zNorm == 0 {
		return 90
	}

	cosGamma := direction.Dot(zenith) / (dNorm * zNorm)
	if cosGamma > 1 {
		cosGamma = 1
	} else if cosGamma < -1 {
		cosGamma = -1
	}
	gammaDeg := math.Acos(cosGamma) * radToDeg

	// Elevation is measured from local horizon (90° − zenith angle).
	return 90.0 - gammaDeg
}
