package allocation

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/evcharge/core/facility"
)

// MinImbalance picks the cluster whose peak load normalised by its
// installed capacity stays lowest once the candidate profile is added.
type MinImbalance struct{}

// NeedsCandidate implements CandidateAware.
func (MinImbalance) NeedsCandidate() bool { return true }

// Allocate implements Policy.
func (MinImbalance) Allocate(r Request) (Decision, bool) {
	c, ok := best(eligible(r), func(c *facility.Cluster) float64 { return peakRatio(r, c) })
	if !ok {
		return Decision{}, false
	}
	return Decision{ClusterID: c.cluster.ID, UnitID: c.unit.ID}, true
}

func peakRatio(r Request, c *facility.Cluster) float64 {
	agg := r.schedule(c.ID)
	load := r.Candidate.Add(agg)
	var values []float64
	for _, t := range r.window(agg) {
		values = append(values, load.ValueAt(t))
	}
	if len(values) == 0 {
		return 0
	}
	peak := floats.Max(values)
	installed := c.InstalledCapacity()
	if installed <= 0 {
		if peak > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return peak / installed
}
