package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-consolidation/internal/mapgraph"
	"ride-consolidation/internal/models"
)

func buildAtlas(t *testing.T) *mapgraph.Graph {
	t.Helper()
	const (
		iiserb   = models.Location("IISERB")
		greenBay = models.Location("GREEN_BAY")
		shivhare = models.Location("SHIVHARE")
		airport  = models.Location("AIRPORT")
		dmart    = models.Location("DMART")
		lalGhati = models.Location("LAL_GHATI")
	)
	g := mapgraph.New(iiserb)
	for _, l := range []models.Location{greenBay, shivhare, airport, dmart, lalGhati} {
		g.RegisterLocation(l)
	}
	require.NoError(t, g.AddEdge(iiserb, greenBay, 50))
	require.NoError(t, g.AddEdge(iiserb, shivhare, 50))
	require.NoError(t, g.AddEdge(greenBay, airport, 50))
	require.NoError(t, g.AddEdge(airport, dmart, 50))
	require.NoError(t, g.AddEdge(dmart, lalGhati, 50))
	g.Freeze()
	return g
}

func mustPassenger(t *testing.T, id int64, origin, dest models.Location, tMin, tMax float64) models.Passenger {
	t.Helper()
	p, err := models.NewPassenger(id, origin, dest, models.TimeWindow{TMin: tMin, TMax: tMax})
	require.NoError(t, err)
	return p
}

func TestRunRejectsEmptyPassengerList(t *testing.T) {
	g := buildAtlas(t)
	p, err := New(g, DefaultConfig())
	require.NoError(t, err)

	_, err = p.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRunProducesGroupsCoveringEveryPassenger(t *testing.T) {
	g := buildAtlas(t)
	passengers := []models.Passenger{
		mustPassenger(t, 1, "IISERB", "AIRPORT", 100, 140),
		mustPassenger(t, 2, "IISERB", "AIRPORT", 105, 145),
		mustPassenger(t, 3, "IISERB", "LAL_GHATI", 300, 340),
	}

	cfg := DefaultConfig()
	cfg.Capacity = 4
	p, err := New(g, cfg)
	require.NoError(t, err)

	result, err := p.Run(context.Background(), passengers)
	require.NoError(t, err)
	require.NotEmpty(t, result.Groups)

	seen := make(map[int64]bool)
	for _, grp := range result.Groups {
		for _, id := range grp.Members {
			assert.False(t, seen[id], "passenger %d covered by more than one group", id)
			seen[id] = true
		}
		assert.NotEmpty(t, grp.Vehicles)
	}
	assert.Len(t, seen, len(passengers))
}

func TestRunRejectsUnregisteredLocation(t *testing.T) {
	g := buildAtlas(t)
	passengers := []models.Passenger{
		mustPassenger(t, 1, "IISERB", "NOWHERE", 100, 140),
	}
	p, err := New(g, DefaultConfig())
	require.NoError(t, err)

	_, err = p.Run(context.Background(), passengers)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRunIsDeterministicAcrossParallelAndSequential(t *testing.T) {
	g := buildAtlas(t)
	passengers := []models.Passenger{
		mustPassenger(t, 1, "IISERB", "AIRPORT", 100, 140),
		mustPassenger(t, 2, "IISERB", "AIRPORT", 105, 145),
		mustPassenger(t, 3, "IISERB", "SHIVHARE", 100, 140),
		mustPassenger(t, 4, "IISERB", "SHIVHARE", 110, 150),
	}

	cfgParallel := DefaultConfig()
	cfgParallel.Parallel = true
	cfgSequential := DefaultConfig()
	cfgSequential.Parallel = false

	pp, err := New(g, cfgParallel)
	require.NoError(t, err)
	ps, err := New(g, cfgSequential)
	require.NoError(t, err)

	rp, err := pp.Run(context.Background(), passengers)
	require.NoError(t, err)
	rs, err := ps.Run(context.Background(), passengers)
	require.NoError(t, err)

	assert.Equal(t, len(rp.Groups), len(rs.Groups))
}
