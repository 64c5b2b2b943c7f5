package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSample reports a sensor sample that cannot be fused.
var ErrInvalidSample = errors.New("invalid sensor sample")

// SensorSample is a single accelerometer + magnetometer reading in device
// coordinates. Units do not matter to the orientation model, only directions.
type SensorSample struct {
	Source        string `json:"source,omitempty"`
	Acceleration  Vector `json:"acceleration"`
	MagneticField Vector `json:"magnetic_field"`
	TimeMillis    int64  `json:"time_millis,omitempty"`
}

// Validate rejects samples carrying NaN or infinite components. Zero vectors
// pass: the orientation model keeps its last good frame for those.
func (s SensorSample) Validate() error {
	if !finite(s.Acceleration) {
		return fmt.Errorf("%w: acceleration %v is not finite", ErrInvalidSample, s.Acceleration)
	}
	if !finite(s.MagneticField) {
		return fmt.Errorf("%w: magnetic field %v is not finite", ErrInvalidSample, s.MagneticField)
	}
	return nil
}

func finite(v Vector) bool {
	for _, f := range [...]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
