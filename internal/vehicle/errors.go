package vehicle

import "fmt"

// ErrCapacityExceeded is returned when aggregate demand on some segment
// exceeds the fleet's total capacity, making the assignment problem
// infeasible regardless of how many vehicles are used.
type ErrCapacityExceeded struct {
	Segment   int
	Demand    int
	MaxSupply int
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("vehicle: segment %d demand %d exceeds max supply %d", e.Segment, e.Demand, e.MaxSupply)
}

// ErrTimeLimit is not a failure: it signals that the solver returned its
// best incumbent before proving optimality. Callers should treat the
// accompanying Assignment as approximate, not discard it.
type ErrTimeLimit struct {
	Incumbent *Assignment
}

func (e *ErrTimeLimit) Error() string {
	return "vehicle: solver deadline exceeded before optimality was proven"
}
