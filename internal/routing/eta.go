package routing

import "time"

// DefaultDwellMin is the fixed handling time spent at each stop.
const DefaultDwellMin = 5

// ComputeETAs walks the per-leg durations and produces one absolute arrival
// time per stop. Dwell is charged at every stop already visited, so the first
// leg carries no dwell and each later leg adds dwell for the preceding stop.
func ComputeETAs(start time.Time, perLegDurationMin []float64, dwellMin float64) []time.Time {
	etas := make([]time.Time, 0, len(perLegDurationMin))
	elapsedMin := 0.0
	for i, leg := range perLegDurationMin {
		if i > 0 {
			elapsedMin += dwellMin
		}
		elapsedMin += leg
		etas = append(etas, start.Add(time.Duration(elapsedMin*float64(time.Minute))))
	}
	return etas
}
