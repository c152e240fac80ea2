package mapgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-consolidation/internal/models"
)

func buildSpecAtlas(t *testing.T) *Graph {
	t.Helper()
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
	g := New(iiserb)
	for _, l := range []models.Location{greenBay, shivhare, airport, dmart, lalGhati, chirayu, bairagarh} {
		g.RegisterLocation(l)
	}
	require.NoError(t, g.AddEdge(iiserb, greenBay, 50))
	require.NoError(t, g.AddEdge(iiserb, shivhare, 50))
	require.NoError(t, g.AddEdge(greenBay, airport, 50))
	require.NoError(t, g.AddEdge(airport, dmart, 50))
	require.NoError(t, g.AddEdge(dmart, lalGhati, 50))
	require.NoError(t, g.AddEdge(shivhare, chirayu, 50))
	require.NoError(t, g.AddEdge(chirayu, bairagarh, 50))
	g.Freeze()
	return g
}

func TestRouteReversalSymmetry(t *testing.T) {
	g := buildSpecAtlas(t)
	a, b := models.Location("BAIRAGARH"), models.Location("LAL_GHATI")

	rAB, err := g.Route(a, b)
	require.NoError(t, err)
	rBA, err := g.Route(b, a)
	require.NoError(t, err)

	assert.Equal(t, rAB, rBA.Reverse())

	fareAB, err := g.RouteFare(rAB)
	require.NoError(t, err)
	fareBA, err := g.RouteFare(rBA)
	require.NoError(t, err)
	assert.Equal(t, fareAB, fareBA)
}

func TestAddEdgeRejectsNonPositiveFare(t *testing.T) {
	g := New(models.Location("A"))
	g.RegisterLocation("B")
	err := g.AddEdge("A", "B", 0)
	assert.ErrorIs(t, err, ErrInvalidFare)
}

func TestAddEdgeRejectsUnregisteredEndpoint(t *testing.T) {
	g := New(models.Location("A"))
	err := g.AddEdge("A", "B", 10)
	assert.ErrorIs(t, err, ErrUnregisteredLocation)
}

func TestAddEdgeRejectsCycle(t *testing.T) {
	g := New(models.Location("A"))
	g.RegisterLocation("B")
	g.RegisterLocation("C")
	require.NoError(t, g.AddEdge("A", "B", 10))
	err := g.AddEdge("C", "B", 5)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestRouteUnreachable(t *testing.T) {
	g := New(models.Location("A"))
	g.RegisterLocation("B") // never connected
	g.Freeze()
	_, err := g.Route("A", "B")
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestRouteIdempotent(t *testing.T) {
	g := buildSpecAtlas(t)
	a, b := models.Location("BAIRAGARH"), models.Location("LAL_GHATI")

	first, err := g.Route(a, b)
	require.NoError(t, err)
	second, err := g.Route(a, b)
	require.NoError(t, err)
	assert.Equal(t, first, second, "Route must be pure: no rerooting side effects")
}

func TestSharedPrefixSameOrigin(t *testing.T) {
	// A: IISERB -> DMART (shorter), B: IISERB -> LAL_GHATI (longer, A's
	// route is a prefix of B's).
	g := buildSpecAtlas(t)
	rA, err := g.Route("IISERB", "DMART")
	require.NoError(t, err)
	rB, err := g.Route("IISERB", "LAL_GHATI")
	require.NoError(t, err)

	prefix := SharedPrefix(rA, rB)
	assert.Equal(t, rA, prefix, "A's route should be fully contained in B's route")
}

func TestSharedPrefixDisjointRoutes(t *testing.T) {
	g := buildSpecAtlas(t)
	rA, err := g.Route("IISERB", "SHIVHARE")
	require.NoError(t, err)
	rB, err := g.Route("IISERB", "GREEN_BAY")
	require.NoError(t, err)

	prefix := SharedPrefix(rA, rB)
	assert.Equal(t, Route{"IISERB"}, prefix)
}
