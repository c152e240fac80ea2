// Package pipeline wires internal/mapgraph, internal/timepref,
// internal/affinity, internal/cluster, internal/vehicle, and
// internal/schedule into the single external entry point spec.md §6
// describes: passengers and a frozen map graph in, clustered groups with
// departure times and fare shares out.
//
// Grounded on original_source/_INDEX.md's pipeline.py/pipeline3.py, which
// assemble exactly this bundle per cluster in the prototype.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"ride-consolidation/internal/affinity"
	"ride-consolidation/internal/atlas"
	"ride-consolidation/internal/cluster"
	"ride-consolidation/internal/mapgraph"
	"ride-consolidation/internal/models"
	"ride-consolidation/internal/schedule"
	"ride-consolidation/internal/timepref"
	"ride-consolidation/internal/vehicle"
)

// ErrInvalidInput is returned (wrapped) when Run is called with no
// passengers or with a passenger whose origin or destination is not in
// the graph's atlas.
var ErrInvalidInput = errors.New("pipeline: invalid input")

// Config controls every tunable knob across the wired components.
type Config struct {
	MRange               float64
	Damping              float64
	MaxIter              int
	ConvTol              float64
	Capacity             int
	PreferencePercentile float64
	SolverDeadline       time.Duration
	BracketPolicy        schedule.BracketPolicy
	Parallel             bool
}

// DefaultConfig returns the defaults used throughout spec.md §8's worked
// scenarios.
func DefaultConfig() Config {
	return Config{
		MRange:               timepref.DefaultMRange,
		Damping:              cluster.DefaultConfig().Damping,
		MaxIter:              cluster.DefaultConfig().MaxIter,
		ConvTol:              cluster.DefaultConfig().ConvTol,
		Capacity:             4,
		PreferencePercentile: cluster.DefaultConfig().PreferencePercentile,
		SolverDeadline:       5 * time.Second,
		BracketPolicy:        schedule.BracketNarrowPrototype,
		Parallel:             true,
	}
}

// FareShare is one passenger's share of one group's trip.
type FareShare struct {
	PassengerID int64
	Fare        float64
}

// GroupResult bundles one cluster's members, exemplar, optimized
// departure time, and fare shares — the aggregate the original
// prototype's pipeline always returns per cluster (spec.md §3
// supplement).
type GroupResult struct {
	Exemplar      int64
	Members       []int64
	DepartureTime float64
	DepartureFell bool // schedule.Result.Fallback passthrough
	Vehicles      []vehicle.TripResult
	FareShares    []FareShare
	Diagnostics   vehicle.Assignment
}

// Result is the full pipeline output for one run.
type Result struct {
	Groups     []GroupResult
	Clustering cluster.Diagnostics
}

// Pipeline holds the frozen map graph and tunables for repeated Run calls.
type Pipeline struct {
	graph *mapgraph.Graph
	cfg   Config
}

// New constructs a Pipeline over an already-frozen graph.
func New(graph *mapgraph.Graph, cfg Config) (*Pipeline, error) {
	if graph == nil {
		return nil, fmt.Errorf("pipeline: graph must not be nil")
	}
	return &Pipeline{graph: graph, cfg: cfg}, nil
}

// Run executes the full consolidation pipeline over passengers.
func (p *Pipeline) Run(ctx context.Context, passengers []models.Passenger) (*Result, error) {
	if len(passengers) == 0 {
		return nil, fmt.Errorf("%w: at least one passenger is required", ErrInvalidInput)
	}
	if err := validateLocations(passengers, p.graph.Atlas()); err != nil {
		return nil, err
	}

	matrices, err := affinity.Build(ctx, passengers, p.graph, affinity.Options{
		MRange:   p.cfg.MRange,
		Parallel: p.cfg.Parallel,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: building affinity matrices: %w", err)
	}

	clusterCfg := cluster.Config{
		Damping:              p.cfg.Damping,
		MaxIter:              p.cfg.MaxIter,
		ConvTol:              p.cfg.ConvTol,
		PreferencePercentile: p.cfg.PreferencePercentile,
	}
	clustering := cluster.Run(matrices.A, clusterCfg)

	exemplars := append([]int(nil), clustering.Exemplars...)
	sort.Ints(exemplars)

	groups := make([]GroupResult, len(exemplars))
	var wg sync.WaitGroup
	wg.Add(len(exemplars))
	for slot, exemplar := range exemplars {
		slot, exemplar := slot, exemplar
		go func() {
			defer wg.Done()
			members := append([]int(nil), clustering.Members[exemplar]...)
			sort.Ints(members)
			groups[slot] = p.buildGroup(ctx, passengers, exemplar, members)
		}()
	}
	wg.Wait()

	log.Printf("[PIPELINE] passengers=%d groups=%d converged=%v", len(passengers), len(groups), clustering.Converged)

	return &Result{Groups: groups, Clustering: clustering.Diagnostics}, nil
}

func (p *Pipeline) buildGroup(ctx context.Context, passengers []models.Passenger, exemplar int, members []int) GroupResult {
	routes := make([]mapgraph.Route, len(members))
	for i, idx := range members {
		passenger := passengers[idx]
		route, err := p.graph.Route(passenger.Origin, passenger.Destination)
		if err != nil {
			log.Printf("[PIPELINE] route error passenger=%d: %v", passenger.ID, err)
			continue
		}
		routes[i] = route
	}

	spineIdx := longestRouteIndex(routes)
	spine := routes[spineIdx]

	numSegments := len(spine) - 1
	if numSegments < 1 {
		numSegments = 1
	}

	groups := make([]vehicle.Group, 0, len(members))
	for i, idx := range members {
		drop := commonPrefixLen(spine, routes[i]) - 1
		if drop < 1 {
			drop = 1
		}
		if drop > numSegments {
			drop = numSegments
		}
		groups = append(groups, vehicle.Group{ID: idx, Count: 1, Pickup: 0, Drop: drop})
	}

	segmentFares := make([]float64, numSegments)
	for s := 0; s < numSegments; s++ {
		if s+1 >= len(spine) {
			segmentFares[s] = 0
			continue
		}
		fare, err := p.graph.RouteFare(spine[s : s+2])
		if err != nil {
			fare = 0
		}
		segmentFares[s] = fare
	}

	model, err := vehicle.BuildModel(groups, p.cfg.Capacity, segmentFares)
	var assignment *vehicle.Assignment
	if err != nil {
		log.Printf("[PIPELINE] model build error: %v", err)
		assignment = &vehicle.Assignment{}
	} else {
		solveCtx := ctx
		var cancel context.CancelFunc
		if p.cfg.SolverDeadline > 0 {
			solveCtx, cancel = context.WithTimeout(ctx, p.cfg.SolverDeadline)
			defer cancel()
		}
		solver := vehicle.NewBranchAndBoundSolver()
		result, solveErr := solver.Solve(solveCtx, model)
		if result != nil {
			assignment = result
		} else {
			originalFares := standAloneFares(groups, segmentFares)
			assignment = vehicle.ProportionalSplit(originalFares, maxFare(originalFares))
		}
		if solveErr != nil {
			var timeLimit *vehicle.ErrTimeLimit
			if !errors.As(solveErr, &timeLimit) {
				log.Printf("[PIPELINE] solver error: %v", solveErr)
			}
		}
	}

	prefs := make([]schedule.Preference, 0, len(members))
	for _, idx := range members {
		passenger := passengers[idx]
		dist, err := timepref.DeriveFromWindow(passenger.Window, p.cfg.MRange)
		if err != nil {
			continue
		}
		prefs = append(prefs, schedule.Preference{Mu: dist.Mu, Sigma: dist.Sigma, TMin: passenger.Window.TMin})
	}
	depResult, err := schedule.Optimize(prefs, schedule.Config{BracketPolicy: p.cfg.BracketPolicy, Tolerance: 1e-4})
	if err != nil {
		log.Printf("[PIPELINE] schedule error: %v", err)
	}

	fareShares := make([]FareShare, 0, len(assignment.Trips))
	for _, tr := range assignment.Trips {
		fareShares = append(fareShares, FareShare{PassengerID: passengers[tr.GroupID].ID, Fare: tr.Fare})
	}

	memberIDs := make([]int64, len(members))
	for i, idx := range members {
		memberIDs[i] = passengers[idx].ID
	}

	return GroupResult{
		Exemplar:      passengers[exemplar].ID,
		Members:       memberIDs,
		DepartureTime: depResult.DepartureTime,
		DepartureFell: depResult.Fallback,
		Vehicles:      assignment.Trips,
		FareShares:    fareShares,
		Diagnostics:   *assignment,
	}
}

// validateLocations checks every passenger's origin and destination
// against the graph's registered atlas, failing fast with a clean
// *Invalid input* error (spec.md §7) instead of surfacing a per-pair
// mapgraph.ErrUnregisteredLocation deep inside affinity construction.
func validateLocations(passengers []models.Passenger, reg *atlas.Atlas) error {
	for _, p := range passengers {
		if !reg.Has(p.Origin) {
			return fmt.Errorf("%w: passenger %d origin %q is not in the atlas", ErrInvalidInput, p.ID, p.Origin)
		}
		if !reg.Has(p.Destination) {
			return fmt.Errorf("%w: passenger %d destination %q is not in the atlas", ErrInvalidInput, p.ID, p.Destination)
		}
	}
	return nil
}

// standAloneFares computes each group's own stand-alone route fare —
// the fare it would pay riding its [Pickup, Drop) span alone, with no
// one sharing any segment — the input spec.md §9's proportional fallback
// rule (original_fare * z / sum(original_fare)) is weighted by.
func standAloneFares(groups []vehicle.Group, segmentFares []float64) []vehicle.OriginalFare {
	fares := make([]vehicle.OriginalFare, len(groups))
	for i, g := range groups {
		fare := 0.0
		for s := g.Pickup; s < g.Drop && s < len(segmentFares); s++ {
			fare += segmentFares[s]
		}
		fares[i] = vehicle.OriginalFare{GroupID: g.ID, Fare: fare, Count: g.Count, Pickup: g.Pickup, Drop: g.Drop}
	}
	return fares
}

// maxFare returns the largest stand-alone fare in fares, the group's
// worst-case single-vehicle fare z per spec.md §9's fallback rule.
func maxFare(fares []vehicle.OriginalFare) float64 {
	z := 0.0
	for _, f := range fares {
		if f.Fare > z {
			z = f.Fare
		}
	}
	return z
}

func longestRouteIndex(routes []mapgraph.Route) int {
	best := 0
	for i, r := range routes {
		if len(r) > len(routes[best]) {
			best = i
		}
	}
	return best
}

func commonPrefixLen(spine, route mapgraph.Route) int {
	n := len(spine)
	if len(route) < n {
		n = len(route)
	}
	i := 0
	for i < n && spine[i] == route[i] {
		i++
	}
	return i
}
