// Package allocation decides which cluster and unit admit an arriving
// vehicle.
package allocation

import (
	"math/rand"
	"time"

	"github.com/kilianp07/evcharge/core/facility"
	"github.com/kilianp07/evcharge/core/model"
	"github.com/kilianp07/evcharge/core/timeseries"
)

// tieTolerance is the score difference under which two clusters tie. Ties go
// to the smaller cluster id.
const tieTolerance = 1e-9

// Request carries everything a policy may inspect. The reservation window
// [Start, End) is the one the loop books on acceptance.
type Request struct {
	System  *facility.System
	Now     time.Time
	Step    time.Duration
	Horizon time.Duration
	Vehicle *model.Vehicle
	Start   time.Time
	End     time.Time
	// Candidate is the planned power of the vehicle under the assumption
	// of acceptance. It is only set for CandidateAware policies.
	Candidate *timeseries.Series
	// Schedules maps cluster id to the aggregate planned load.
	Schedules map[string]*timeseries.Series
	Rand      *rand.Rand
}

// Decision names the chosen unit.
type Decision struct {
	ClusterID string
	UnitID    string
}

// Policy selects a unit for an arriving vehicle. ok is false when the
// vehicle must be rejected.
type Policy interface {
	Allocate(Request) (d Decision, ok bool)
}

// CandidateAware policies need the candidate power profile of the vehicle.
type CandidateAware interface {
	Policy
	NeedsCandidate() bool
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(Request) (Decision, bool)

// Allocate calls f.
func (f PolicyFunc) Allocate(r Request) (Decision, bool) { return f(r) }

// NeedsCandidate reports whether p wants a candidate profile.
func NeedsCandidate(p Policy) bool {
	ca, ok := p.(CandidateAware)
	return ok && ca.NeedsCandidate()
}

func (r Request) schedule(id string) *timeseries.Series {
	if s, ok := r.Schedules[id]; ok {
		return s
	}
	if c, err := r.System.Cluster(id); err == nil {
		return c.ScheduledPower()
	}
	return nil
}

// candidate is a cluster eligible for admission along with its first
// available unit.
type candidate struct {
	cluster *facility.Cluster
	unit    *facility.ChargingUnit
}

// eligible lists, by cluster id, the clusters whose occupation is strictly
// below their size and that hold a unit free over the reservation window.
func eligible(r Request) []candidate {
	var out []candidate
	for _, c := range r.System.Clusters() {
		if c.OccupationAt(r.Now) >= c.Size() {
			continue
		}
		free := c.QueryAvailability(r.Start, r.End, r.Step)
		if len(free) == 0 {
			continue
		}
		out = append(out, candidate{cluster: c, unit: free[0]})
	}
	return out
}

// window returns the instants over which a cluster is scored: the union of
// the candidate and aggregate instants within [Now, end).
func (r Request) window(agg *timeseries.Series) []time.Time {
	end := r.End
	if r.Horizon > 0 {
		end = r.Now.Add(r.Horizon)
	} else if last, ok := r.Candidate.Last(); ok && !last.Time.Before(end) {
		end = last.Time.Add(r.Step)
	}
	var out []time.Time
	for _, p := range r.Candidate.Add(agg).Range(r.Now, end) {
		out = append(out, p.Time)
	}
	return out
}

// best returns the candidate with the lowest score. Candidates are visited in
// cluster id order so the first one within tolerance wins ties.
func best(cands []candidate, score func(*facility.Cluster) float64) (candidate, bool) {
	var (
		pick  candidate
		low   float64
		found bool
	)
	for _, c := range cands {
		s := score(c.cluster)
		if !found || s < low-tieTolerance {
			pick, low, found = c, s, true
		}
	}
	return pick, found
}
