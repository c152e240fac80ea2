package vehicle

import (
	"context"
	"log"
	"math"
	"sort"
	"time"
)

// TripResult reports one trip's final vehicle, fare, and span.
type TripResult struct {
	Vehicle int
	GroupID int
	Count   int
	Pickup  int
	Drop    int
	Fare    float64 // per-passenger fare share, spec.md §4.5 F[t]
}

// Assignment is the result of Solve: per-trip vehicle/fare assignments
// and the worst-passenger fare Z.
type Assignment struct {
	Z           float64
	Trips       []TripResult
	Approximate bool // true when the deadline expired before optimality was proven
}

// Solver abstracts "solve this MILP with a deadline" per spec.md §9
// ("Solver coupling"): the core must not depend on a specific solver's
// API beyond this interface.
type Solver interface {
	Solve(ctx context.Context, m Model) (*Assignment, error)
}

// BranchAndBoundSolver is a from-scratch exact solver for Model: it
// searches vehicle assignments for the post-split trips, skipping any
// vehicle a trip does not fit on, with symmetry broken by only ever
// opening vehicle k+1 after vehicle k has at least one trip. Branches are
// not pruned against the incumbent Z; the search stops early only once an
// incumbent reaches minimumPossibleZ.
type BranchAndBoundSolver struct{}

// NewBranchAndBoundSolver constructs the default Solver.
func NewBranchAndBoundSolver() *BranchAndBoundSolver {
	return &BranchAndBoundSolver{}
}

// Solve implements Solver.
func (bb *BranchAndBoundSolver) Solve(ctx context.Context, m Model) (*Assignment, error) {
	if len(m.Trips) == 0 {
		return &Assignment{Trips: []TripResult{}}, nil
	}

	if err := checkFeasibility(m); err != nil {
		return nil, err
	}

	deadline, hasDeadline := ctx.Deadline()

	n := len(m.Trips)
	maxVehicles := n // worst case: one trip per vehicle
	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}

	// occ[v][s] tracks running occupancy per vehicle/segment during search.
	occ := make([][]int, maxVehicles)
	for v := range occ {
		occ[v] = make([]int, m.NumSegments())
	}
	vehiclesUsed := 0

	order := tripSearchOrder(m)
	minZ := minimumPossibleZ(m)

	var bestZ = math.Inf(1)
	var bestAssign []int
	timeLimitHit := false
	proven := false

	var search func(pos int)
	search = func(pos int) {
		if timeLimitHit || proven {
			return
		}
		if hasDeadline && time.Now().After(deadline) {
			timeLimitHit = true
			return
		}
		if pos == len(order) {
			z := worstFare(m, assign, occ)
			if z < bestZ {
				bestZ = z
				bestAssign = append([]int(nil), assign...)
				if bestZ <= minZ+1e-9 {
					// No assignment can beat minZ (every trip's fare is
					// bounded below by its own span priced at full
					// capacity), so this incumbent is already optimal.
					proven = true
				}
			}
			return
		}

		t := order[pos]
		upper := vehiclesUsed
		if upper < maxVehicles-1 {
			upper++
		}
		for v := 0; v <= upper; v++ {
			if timeLimitHit || proven {
				return
			}
			if !fits(m, m.Trips[t], v, occ) {
				continue
			}
			opened := v == vehiclesUsed
			applyTrip(m, m.Trips[t], v, occ, 1)
			assign[t] = v
			if opened {
				vehiclesUsed++
			}

			search(pos + 1)

			assign[t] = -1
			applyTrip(m, m.Trips[t], v, occ, -1)
			if opened {
				vehiclesUsed--
			}
		}
	}

	search(0)

	if bestAssign == nil {
		// Search space exhausted only by the deadline before any leaf
		// was reached; fall back to a simple greedy assignment so a
		// result is still returned.
		bestAssign = greedyAssign(m)
		timeLimitHit = true
	}

	result := buildAssignment(m, bestAssign, timeLimitHit)
	log.Printf("[VEHICLE] solved trips=%d vehicles=%d Z=%.2f approximate=%v", n, countVehicles(bestAssign), result.Z, result.Approximate)

	if timeLimitHit {
		return result, &ErrTimeLimit{Incumbent: result}
	}
	return result, nil
}

// checkFeasibility re-checks whether demand on any segment exceeds
// C * number-of-candidate-vehicles, per spec.md §4.5 failure semantics.
func checkFeasibility(m Model) error {
	maxVehicles := len(m.Trips)
	for s := 0; s < m.NumSegments(); s++ {
		demand := m.segmentDemand(s)
		maxSupply := m.Capacity * maxVehicles
		if demand > maxSupply {
			return &ErrCapacityExceeded{Segment: s, Demand: demand, MaxSupply: maxSupply}
		}
	}
	return nil
}

// tripSearchOrder orders trips largest-count-first, which tends to prune
// the branch-and-bound tree faster.
func tripSearchOrder(m Model) []int {
	order := make([]int, len(m.Trips))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return m.Trips[order[i]].Count > m.Trips[order[j]].Count
	})
	return order
}

func fits(m Model, t Trip, v int, occ [][]int) bool {
	for s := t.Pickup; s < t.Drop; s++ {
		if occ[v][s]+t.Count > m.Capacity {
			return false
		}
	}
	return true
}

func applyTrip(m Model, t Trip, v int, occ [][]int, sign int) {
	for s := t.Pickup; s < t.Drop; s++ {
		occ[v][s] += sign * t.Count
	}
}

// fareShare is c[s] / occ(v,s) per spec.md's big-M fare linkage
// simplified to its one-hot occupancy value.
func fareShare(m Model, s, occAtS int) float64 {
	if occAtS == 0 {
		return 0
	}
	return m.SegmentFares[s] / float64(occAtS)
}

// worstFare computes Z for a complete assignment.
func worstFare(m Model, assign []int, occ [][]int) float64 {
	z := 0.0
	for i, t := range m.Trips {
		v := assign[i]
		f := 0.0
		for s := t.Pickup; s < t.Drop; s++ {
			f += fareShare(m, s, occ[v][s])
		}
		if f > z {
			z = f
		}
	}
	return z
}

// minimumPossibleZ is a sound, assignment-independent lower bound on Z:
// whatever vehicle a trip lands on, its occupancy on any segment can
// never exceed capacity, so its fare on that segment can never fall
// below fare/capacity. Summed over a trip's span this gives a floor on
// that trip's own final fare, and Z (the worst fare over all trips) can
// never be smaller than the largest such floor. Unlike a bound computed
// from partial occupancy — which only ever over-estimates a trip's final
// fare, since occupancy can still grow as more trips join — this bound
// holds regardless of how the search completes, so it is safe to use for
// an early-exit once an incumbent matches it, but it does not vary
// between branches and is not used to prune individual search nodes.
func minimumPossibleZ(m Model) float64 {
	best := 0.0
	for _, t := range m.Trips {
		f := 0.0
		for s := t.Pickup; s < t.Drop; s++ {
			f += m.SegmentFares[s] / float64(m.Capacity)
		}
		if f > best {
			best = f
		}
	}
	return best
}

// greedyAssign provides a fast, always-available fallback: each trip
// joins the first vehicle it fits on, opening a new one if needed.
func greedyAssign(m Model) []int {
	n := len(m.Trips)
	assign := make([]int, n)
	occ := make([][]int, n)
	for v := range occ {
		occ[v] = make([]int, m.NumSegments())
	}
	vehiclesUsed := 0
	for i, t := range m.Trips {
		placed := false
		for v := 0; v < vehiclesUsed; v++ {
			if fits(m, t, v, occ) {
				applyTrip(m, t, v, occ, 1)
				assign[i] = v
				placed = true
				break
			}
		}
		if !placed {
			applyTrip(m, t, vehiclesUsed, occ, 1)
			assign[i] = vehiclesUsed
			vehiclesUsed++
		}
	}
	return assign
}

func countVehicles(assign []int) int {
	seen := make(map[int]struct{})
	for _, v := range assign {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// buildAssignment renumbers used vehicles contiguously and computes final
// fares, per spec.md §4.5 "Result extraction."
func buildAssignment(m Model, assign []int, approximate bool) *Assignment {
	occ := make(map[int][]int)
	for i, t := range m.Trips {
		v := assign[i]
		if _, ok := occ[v]; !ok {
			occ[v] = make([]int, m.NumSegments())
		}
		for s := t.Pickup; s < t.Drop; s++ {
			occ[v][s] += t.Count
		}
	}

	usedVehicles := make([]int, 0, len(occ))
	for v := range occ {
		usedVehicles = append(usedVehicles, v)
	}
	sort.Ints(usedVehicles)
	renumber := make(map[int]int, len(usedVehicles))
	for idx, v := range usedVehicles {
		renumber[v] = idx
	}

	results := make([]TripResult, len(m.Trips))
	z := 0.0
	for i, t := range m.Trips {
		v := assign[i]
		f := 0.0
		for s := t.Pickup; s < t.Drop; s++ {
			f += fareShare(m, s, occ[v][s])
		}
		if f > z {
			z = f
		}
		results[i] = TripResult{
			Vehicle: renumber[v],
			GroupID: t.GroupID,
			Count:   t.Count,
			Pickup:  t.Pickup,
			Drop:    t.Drop,
			Fare:    f,
		}
	}

	return &Assignment{Z: z, Trips: results, Approximate: approximate}
}
