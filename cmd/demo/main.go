// Command demo wires internal/pipeline over the worked-example Bhopal
// campus atlas, printing the resulting groups to stdout. It takes no
// flags and no network input; it exists to exercise the whole pipeline
// end to end the way a driver program would.
//
// Grounded on
// the teacher's cmd/server/main.go (run()-returns-error entrypoint idiom)
// and original_source/src/yatry/utils/data/map.py / pipeline3.go's
// __main__ demo block.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"ride-consolidation/internal/mapgraph"
	"ride-consolidation/internal/models"
	"ride-consolidation/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("demo: %v", err)
	}
}

func run() error {
	graph := bhopalAtlas()
	passengers, err := samplePassengers()
	if err != nil {
		return fmt.Errorf("building sample passengers: %w", err)
	}

	p, err := pipeline.New(graph, pipeline.DefaultConfig())
	if err != nil {
		return fmt.Errorf("constructing pipeline: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := p.Run(ctx, passengers)
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	fmt.Printf("converged=%v iterations=%d groups=%d\n", result.Clustering.Converged, result.Clustering.Iterations, len(result.Groups))
	for _, g := range result.Groups {
		fmt.Printf("group exemplar=%d members=%v departure=%.1f fallback=%v\n", g.Exemplar, g.Members, g.DepartureTime, g.DepartureFell)
		for _, share := range g.FareShares {
			fmt.Printf("  passenger=%d fare=%.2f\n", share.PassengerID, share.Fare)
		}
	}
	return nil
}

// bhopalAtlas reproduces the worked-example campus map: IISERB is the
// hub, with two branches toward the airport corridor and the Shivhare
// corridor.
func bhopalAtlas() *mapgraph.Graph {
	const (
		iiserb    = models.Location("IISERB")
		greenBay  = models.Location("GREEN_BAY")
		shivhare  = models.Location("SHIVHARE")
		airport   = models.Location("AIRPORT")
		dmart     = models.Location("DMART")
		lalGhati  = models.Location("LAL_GHATI")
		chirayu   = models.Location("CHIRAYU")
		bairagarh = models.Location("BAIRAGARH")
	)

	g := mapgraph.New(iiserb)
	for _, l := range []models.Location{greenBay, shivhare, airport, dmart, lalGhati, chirayu, bairagarh} {
		g.RegisterLocation(l)
	}

	edges := []struct {
		parent, child models.Location
		fare          float64
	}{
		{iiserb, greenBay, 100},
		{iiserb, shivhare, 100},
		{greenBay, airport, 50},
		{airport, dmart, 50},
		{dmart, lalGhati, 50},
		{shivhare, chirayu, 50},
		{chirayu, bairagarh, 50},
	}
	for _, e := range edges {
		if err := g.AddEdge(e.parent, e.child, e.fare); err != nil {
			// The literal atlas above is known-valid; a failure here means
			// the atlas definition itself was edited incorrectly.
			panic(fmt.Sprintf("demo: invalid atlas definition: %v", err))
		}
	}
	g.Freeze()
	return g
}

func samplePassengers() ([]models.Passenger, error) {
	specs := []struct {
		id          int64
		origin      models.Location
		destination models.Location
		tMin, tMax  float64
	}{
		{1, "IISERB", "DMART", 100, 140},
		{2, "IISERB", "DMART", 110, 150},
		{3, "IISERB", "LAL_GHATI", 105, 145},
		{4, "IISERB", "BAIRAGARH", 300, 340},
		{5, "IISERB", "CHIRAYU", 310, 350},
	}

	passengers := make([]models.Passenger, 0, len(specs))
	for _, s := range specs {
		p, err := models.NewPassenger(s.id, s.origin, s.destination, models.TimeWindow{TMin: s.tMin, TMax: s.tMax})
		if err != nil {
			return nil, err
		}
		passengers = append(passengers, p)
	}
	return passengers, nil
}
