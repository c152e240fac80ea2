// Package affinity computes the composite pairwise similarity matrix
// spec.md §4.3 feeds into clustering: a fare-weighted route-overlap
// factor rho and a temporal-overlap factor tau, combined element-wise
// into A = rho ⊙ tau.
//
// Grounded on original_source/route_affinity.py and time_affinity.py
// (the prototype's two standalone scoring sketches), generalized onto
// gonum/mat dense matrices and wired to mapgraph.Graph and
// timepref.Distribution for the concrete route/time computations.
package affinity

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"ride-consolidation/internal/mapgraph"
	"ride-consolidation/internal/models"
	"ride-consolidation/internal/timepref"
)

// Matrices holds the three dense N×N matrices over [0,1] described in
// spec.md §3: Rho (route affinity), Tau (temporal affinity), and their
// Hadamard product A.
type Matrices struct {
	Rho *mat.Dense
	Tau *mat.Dense
	A   *mat.Dense
}

// Options configures matrix construction.
type Options struct {
	MRange float64
	// Parallel fans pairwise computation out over a bounded worker pool
	// when true. Each worker owns disjoint rows, so output is
	// bitwise-deterministic regardless of scheduling (spec.md §5, §6).
	Parallel bool
}

// Build computes Rho, Tau and A for a slice of passengers against a
// frozen mapgraph.Graph.
func Build(ctx context.Context, passengers []models.Passenger, graph *mapgraph.Graph, opts Options) (*Matrices, error) {
	n := len(passengers)
	if n == 0 {
		return &Matrices{Rho: mat.NewDense(0, 0, nil), Tau: mat.NewDense(0, 0, nil), A: mat.NewDense(0, 0, nil)}, nil
	}

	routes := make([]mapgraph.Route, n)
	routeFares := make([]float64, n)
	dists := make([]timepref.Distribution, n)

	for i, p := range passengers {
		r, err := graph.Route(p.Origin, p.Destination)
		if err != nil {
			return nil, fmt.Errorf("affinity: passenger %d route: %w", p.ID, err)
		}
		fare, err := graph.RouteFare(r)
		if err != nil {
			return nil, fmt.Errorf("affinity: passenger %d route fare: %w", p.ID, err)
		}
		d, err := timepref.DeriveFromWindow(p.Window, opts.MRange)
		if err != nil {
			return nil, fmt.Errorf("affinity: passenger %d time distribution: %w", p.ID, err)
		}
		routes[i] = r
		routeFares[i] = fare
		dists[i] = d
	}

	rho := mat.NewDense(n, n, nil)
	tau := mat.NewDense(n, n, nil)
	a := mat.NewDense(n, n, nil)

	computeRow := func(i int) {
		for j := 0; j < n; j++ {
			var rhoIJ float64
			if i == j {
				rhoIJ = 1
			} else {
				rhoIJ = routeAffinity(graph, routes[i], routeFares[i], routes[j])
			}

			var tauIJ float64
			if i == j {
				tauIJ = 1
			} else {
				tauIJ = timepref.TemporalAffinity(dists[i], passengers[j].Window.TMin, passengers[j].Window.TMax, opts.MRange)
			}

			rho.Set(i, j, rhoIJ)
			tau.Set(i, j, tauIJ)
			a.Set(i, j, rhoIJ*tauIJ)
		}
	}

	if opts.Parallel && n > 1 {
		workers := runtime.GOMAXPROCS(0)
		if workers > n {
			workers = n
		}
		rowCh := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range rowCh {
					computeRow(i)
				}
			}()
		}
		for i := 0; i < n; i++ {
			select {
			case rowCh <- i:
			case <-ctx.Done():
				close(rowCh)
				wg.Wait()
				return nil, ctx.Err()
			}
		}
		close(rowCh)
		wg.Wait()
	} else {
		for i := 0; i < n; i++ {
			computeRow(i)
		}
	}

	log.Printf("[AFFINITY] built %dx%d matrices parallel=%v", n, n, opts.Parallel)
	return &Matrices{Rho: rho, Tau: tau, A: a}, nil
}

// routeAffinity computes rho[i,j] = fare(sharedPrefix(Ri, Rj)) / fare(Ri).
// It is asymmetric: rho is only defined toward routes sharing i's origin
// (spec.md §4.3: "If the two routes do not share the origin of i,
// rho[i,j] = 0.").
func routeAffinity(graph *mapgraph.Graph, routeI mapgraph.Route, fareI float64, routeJ mapgraph.Route) float64 {
	if fareI <= 0 || len(routeI) == 0 || len(routeJ) == 0 || routeI[0] != routeJ[0] {
		return 0
	}
	prefix := mapgraph.SharedPrefix(routeI, routeJ)
	if len(prefix) < 2 {
		return 0
	}
	prefixFare, err := graph.RouteFare(prefix)
	if err != nil {
		return 0
	}
	return prefixFare / fareI
}
