package mapgraph

import "errors"

// Sentinel errors for MapGraph construction and queries.
var (
	// ErrUnregisteredLocation is returned when an operation references a
	// Location that was never passed to RegisterLocation.
	ErrUnregisteredLocation = errors.New("mapgraph: unregistered location")

	// ErrInvalidFare is returned when AddEdge is called with a
	// non-positive fare.
	ErrInvalidFare = errors.New("mapgraph: fare must be strictly positive")

	// ErrCycle is returned when AddEdge would give a Location a second
	// parent, creating a cycle in the tree.
	ErrCycle = errors.New("mapgraph: edge would create a cycle")

	// ErrUnreachable is returned when Route is asked for a path between
	// two Locations that are not connected through the tree (a
	// disconnected atlas).
	ErrUnreachable = errors.New("mapgraph: locations are not connected")

	// ErrNotFrozen is returned when Route is called before Freeze.
	// RouteFare does not need the ancestor tables and works either way.
	ErrNotFrozen = errors.New("mapgraph: graph must be frozen before querying routes")

	// ErrAlreadyFrozen is returned when AddEdge is called after Freeze.
	ErrAlreadyFrozen = errors.New("mapgraph: graph is already frozen")
)
