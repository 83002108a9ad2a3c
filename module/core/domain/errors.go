package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrInvalidLocation     = errors.New("invalid location")
	ErrInvalidGeofence     = errors.New("invalid geofence")
	ErrNoHistory           = errors.New("no checks recorded")
)

// ValidatePoint reports whether p is a usable WGS84 coordinate.
func ValidatePoint(p GeoPoint) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return fmt.Errorf("%w: coordinates must be numbers", ErrInvalidLocation)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90", ErrInvalidLocation)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180", ErrInvalidLocation)
	}
	return nil
}

func ValidateGeofence(g Geofence) error {
	if err := ValidatePoint(g.Center); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGeofence, err)
	}
	if g.Radius < 0 || math.IsNaN(g.Radius) {
		return fmt.Errorf("%w: radius must not be negative", ErrInvalidGeofence)
	}
	return nil
}
