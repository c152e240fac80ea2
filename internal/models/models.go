// Package models defines the plain domain value types shared across the
// ride-consolidation pipeline: locations, passengers, and their preferred
// departure windows.
package models

import "fmt"

// Location is an opaque identifier drawn from a small, closed set (the
// atlas). Locations are compared by identity.
type Location string

// TimeWindow is a preferred departure interval [TMin, TMax] with
// TMin < TMax, expressed in seconds since some caller-defined epoch.
type TimeWindow struct {
	TMin float64
	TMax float64
}

// Validate checks the invariant TMin < TMax.
func (w TimeWindow) Validate() error {
	if !(w.TMin < w.TMax) {
		return fmt.Errorf("invalid time window: t_min=%v must be less than t_max=%v", w.TMin, w.TMax)
	}
	return nil
}

// Passenger is an opaque identity plus origin, destination, and preferred
// departure window. Immutable once constructed.
type Passenger struct {
	ID          int64
	Origin      Location
	Destination Location
	Window      TimeWindow
}

// NewPassenger constructs a Passenger, validating the time window.
func NewPassenger(id int64, origin, destination Location, window TimeWindow) (Passenger, error) {
	if err := window.Validate(); err != nil {
		return Passenger{}, fmt.Errorf("passenger %d: %w", id, err)
	}
	if origin == destination {
		return Passenger{}, fmt.Errorf("passenger %d: origin and destination must differ", id)
	}
	return Passenger{ID: id, Origin: origin, Destination: destination, Window: window}, nil
}
