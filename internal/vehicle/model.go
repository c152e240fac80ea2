// Package vehicle implements spec.md §4.5: capacity-aware vehicle
// assignment via a mixed-integer linear program that minimises the worst
// passenger's fare, plus the proportional-split fallback spec.md §9
// reserves for when the MILP is skipped.
//
// Grounded on original_source/src/yatry/utils/optim/assign.go
// (VehicleAssignmentModel, built on pulp), reimplemented from scratch as a
// branch-and-bound solver behind an abstract Solver interface (see
// DESIGN.md for why no pack dependency covers MILP solving).
package vehicle

import "fmt"

// Trip is one passenger block riding from stop Pickup to stop Drop
// (exclusive), after capacity splitting every trip's Count is in [1, C].
type Trip struct {
	ID      int // index into the post-split trip list
	GroupID int // which original (pre-split) group this trip came from
	Count   int
	Pickup  int
	Drop    int
}

// Group is a pre-split passenger block sharing one pickup/drop pair.
type Group struct {
	ID     int
	Count  int
	Pickup int
	Drop   int
}

// Model is a fully-specified vehicle assignment problem: split trips,
// per-segment fares, and vehicle capacity.
type Model struct {
	Capacity     int
	SegmentFares []float64 // c[s] for s = 0..L-2, i.e. segment s+1 in spec.md's 1-based numbering
	Trips        []Trip
}

// NumSegments returns the number of distinct route segments.
func (m Model) NumSegments() int {
	return len(m.SegmentFares)
}

// BuildModel splits groups whose count exceeds capacity and returns a
// ready-to-solve Model.
func BuildModel(groups []Group, capacity int, segmentFares []float64) (Model, error) {
	if capacity <= 0 {
		return Model{}, fmt.Errorf("vehicle: capacity must be positive, got %d", capacity)
	}
	var trips []Trip
	nextID := 0
	for _, g := range groups {
		if g.Drop <= g.Pickup {
			return Model{}, fmt.Errorf("vehicle: group %d has drop <= pickup", g.ID)
		}
		for _, count := range splitCounts(g.Count, capacity) {
			trips = append(trips, Trip{
				ID:      nextID,
				GroupID: g.ID,
				Count:   count,
				Pickup:  g.Pickup,
				Drop:    g.Drop,
			})
			nextID++
		}
	}
	return Model{Capacity: capacity, SegmentFares: segmentFares, Trips: trips}, nil
}

// splitCounts divides count into full-capacity blocks plus one remainder
// block (spec.md §4.5 "Pre-processing: group splitting").
func splitCounts(count, capacity int) []int {
	if count <= 0 {
		return nil
	}
	if count <= capacity {
		return []int{count}
	}
	full := count / capacity
	rem := count % capacity
	out := make([]int, 0, full+1)
	for i := 0; i < full; i++ {
		out = append(out, capacity)
	}
	if rem != 0 {
		out = append(out, rem)
	}
	return out
}

// tripsOnSegment returns the indices (into m.Trips) of trips whose
// [Pickup, Drop) span covers segment s.
func (m Model) tripsOnSegment(s int) []int {
	var out []int
	for i, t := range m.Trips {
		if t.Pickup <= s && s < t.Drop {
			out = append(out, i)
		}
	}
	return out
}

// segmentDemand returns the total passenger count crossing segment s
// across all trips, regardless of vehicle assignment.
func (m Model) segmentDemand(s int) int {
	total := 0
	for _, i := range m.tripsOnSegment(s) {
		total += m.Trips[i].Count
	}
	return total
}
