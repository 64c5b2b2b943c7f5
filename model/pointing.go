package model

import "math"

// Vector is a plain 3-vector used in the data model. The core package provides
// the arithmetic on top of it.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RaDec is a sky position in degrees. RA is in [0, 360), Dec in [-90, 90].
type RaDec struct {
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
}

// Pointing describes where the device is looking, in sky coordinates.
//
// LineOfSight is the direction into the screen and Perpendicular the direction
// up the screen; both are unit vectors and orthogonal to each other. Pointing is
// a snapshot: the orientation model hands out copies, so holding on to one never
// observes later updates.
type Pointing struct {
	LineOfSight   Vector `json:"line_of_sight"`
	Perpendicular Vector `json:"perpendicular"`
	TimeMillis    int64  `json:"time_millis"`
}

// DefaultPointing is the pointing reported before any sensor data has been fused.
func DefaultPointing() Pointing {
	return Pointing{
		LineOfSight:   Vector{X: 1, Y: 0, Z: 0},
		Perpendicular: Vector{X: 0, Y: 1, Z: 0},
	}
}

// RaDec returns the right ascension and declination of the line of sight.
func (p Pointing) RaDec() RaDec {
	return RaDecOf(p.LineOfSight)
}

// RaDecOf converts a unit vector in sky coordinates to right ascension and
// declination in degrees.
func RaDecOf(v Vector) RaDec {
	ra := math.Atan2(v.Y, v.X) * 180 / math.Pi
	if ra < 0 {
		ra += 360
	}
	z := v.Z
	if z > 1 {
		z = 1
	} else if z < -1 {
		z = -1
	}
	return RaDec{RA: ra, Dec: math.Asin(z) * 180 / math.Pi}
}

// Directions bundles the six local cardinal directions in sky coordinates.
type Directions struct {
	North  Vector `json:"north"`
	South  Vector `json:"south"`
	East   Vector `json:"east"`
	West   Vector `json:"west"`
	Zenith Vector `json:"zenith"`
	Nadir  Vector `json:"nadir"`
}
