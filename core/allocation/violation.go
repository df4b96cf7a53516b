package allocation

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/evcharge/core/facility"
)

// MinViolation picks the cluster where adding the candidate profile
// produces the smallest total excess over the cluster capacity curve.
type MinViolation struct{}

// NeedsCandidate implements CandidateAware.
func (MinViolation) NeedsCandidate() bool { return true }

// Allocate implements Policy.
func (MinViolation) Allocate(r Request) (Decision, bool) {
	c, ok := best(eligible(r), func(c *facility.Cluster) float64 { return violation(r, c) })
	if !ok {
		return Decision{}, false
	}
	return Decision{ClusterID: c.cluster.ID, UnitID: c.unit.ID}, true
}

func violation(r Request, c *facility.Cluster) float64 {
	agg := r.schedule(c.ID)
	load := r.Candidate.Add(agg)
	instants := r.window(agg)
	excess := make([]float64, len(instants))
	for i, t := range instants {
		excess[i] = math.Max(0, load.ValueAt(t)-c.CapacityAt(t))
	}
	return floats.Sum(excess)
}
