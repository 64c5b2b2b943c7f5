package nbi

import (
	"fmt"
	"math"

	"github.com/sky-map-team/skyorient/model"
)

// Field of view limits accepted from clients, in degrees.
const (
	MinFieldOfView = 1.0
	MaxFieldOfView = 179.0
)

// ValidateLocation checks raw coordinates before they are turned into a
// LatLong, which would otherwise silently clamp them.
func ValidateLocation(lat, lon float64) error {
	if !isFinite(lat) || !isFinite(lon) {
		return fmt.Errorf("%w: location (%v, %v) is not finite", ErrInvalidArgument, lat, lon)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v is outside [-90, 90]", ErrInvalidArgument, lat)
	}
	if lon < -180 || lon > 360 {
		return fmt.Errorf("%w: longitude %v is outside [-180, 360]", ErrInvalidArgument, lon)
	}
	return nil
}

// ValidateFieldOfView checks a requested field of view in degrees.
func ValidateFieldOfView(degrees float64) error {
	if !isFinite(degrees) || degrees < MinFieldOfView || degrees > MaxFieldOfView {
		return fmt.Errorf("%w: field of view %v is outside [%v, %v]", ErrInvalidArgument, degrees, MinFieldOfView, MaxFieldOfView)
	}
	return nil
}

// ValidateSensorSample wraps the sample's own checks.
func ValidateSensorSample(s model.SensorSample) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return nil
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
