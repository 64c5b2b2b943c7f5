package model

import (
	"fmt"
	"math"
)

// LatLong is an observer position on the Earth in degrees.
// Latitude is clamped to [-90, 90] and longitude normalised into (-180, 180].
// The zero value is (0, 0).
type LatLong struct {
	lat float64
	lon float64
}

// NewLatLong constructs a LatLong, clamping latitude and normalising longitude.
func NewLatLong(latitude, longitude float64) LatLong {
	return LatLong{
		lat: clampLatitude(latitude),
		lon: normalizeLongitude(longitude),
	}
}

// Latitude returns the latitude in degrees.
func (l LatLong) Latitude() float64 { return l.lat }

// Longitude returns the longitude in degrees.
func (l LatLong) Longitude() float64 { return l.lon }

// DistanceKm returns the great-circle distance to other on a spherical Earth.
func (l LatLong) DistanceKm(other LatLong) float64 {
	const earthRadiusKm = 6371.0
	phi1 := l.lat * math.Pi / 180
	phi2 := other.lat * math.Pi / 180
	dPhi := phi2 - phi1
	dLambda := (other.lon - l.lon) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	if a > 1 {
		a = 1
	}
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func (l LatLong) String() string {
	return fmt.Sprintf("(%.5f, %.5f)", l.lat, l.lon)
}

func clampLatitude(lat float64) float64 {
	switch {
	case math.IsNaN(lat):
		return 0
	case lat > 90:
		return 90
	case lat < -90:
		return -90
	}
	return lat
}

func normalizeLongitude(lon float64) float64 {
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return 0
	}
	lon = math.Mod(lon, 360)
	// math.Mod keeps the sign of the dividend, so lon is now in (-360, 360).
	if lon > 180 {
		lon -= 360
	} else if lon <= -180 {
		lon += 360
	}
	return lon
}
