package vehicle

// OriginalFare is one group's stand-alone route fare — what it would cost
// that group to make the trip on its own, with nobody sharing any
// segment — plus the span/count needed to report a complete TripResult.
type OriginalFare struct {
	GroupID int
	Fare    float64
	Count   int
	Pickup  int
	Drop    int
}

// ProportionalSplit implements spec.md §9's resolved fallback rule for
// when the MILP is skipped (e.g. on infeasibility): each group's share of
// z, the group's worst-case single-vehicle fare, is its own stand-alone
// fare weighted in direct proportion to the group total:
//
//	share_i = original_fare_i * z / sum(original_fare)
//
// No vehicle-assignment decision is made here, so TripResult.Vehicle is
// left as the group's own id rather than a real vehicle index.
func ProportionalSplit(originalFares []OriginalFare, z float64) *Assignment {
	if len(originalFares) == 0 {
		return &Assignment{Trips: []TripResult{}}
	}

	sum := 0.0
	for _, f := range originalFares {
		sum += f.Fare
	}

	results := make([]TripResult, len(originalFares))
	for i, f := range originalFares {
		share := 0.0
		if sum > 0 {
			share = f.Fare * z / sum
		}
		results[i] = TripResult{
			Vehicle: f.GroupID, // no vehicle assignment decision made; grouped by origin group
			GroupID: f.GroupID,
			Count:   f.Count,
			Pickup:  f.Pickup,
			Drop:    f.Drop,
			Fare:    share,
		}
	}

	return &Assignment{Z: z, Trips: results}
}
