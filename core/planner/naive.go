package planner

import (
	"math"
	"time"
)

// Naive charges at the highest admissible power until the target SoC is
// reached and idles afterwards. It never discharges.
type Naive struct{}

// Plan implements Planner.
func (Naive) Plan(r Request) (Schedule, error) {
	if err := r.Validate(); err != nil {
		return Schedule{}, err
	}
	instants := r.Instants()
	return r.trajectory(instants, naivePower(r, instants)), nil
}

func naivePower(r Request, instants []time.Time) []float64 {
	power := make([]float64, len(instants))
	soc := r.SoC
	target := math.Min(r.TargetSoC, r.MaxSoC)
	for i, t := range instants {
		if soc >= target {
			break
		}
		p := r.MaxChargeKW * r.Derating.Factor(soc)
		if need := (target - soc) * r.CapacityKWh / r.hours(t); need < p {
			p = need
		}
		power[i] = p
		soc += r.socDelta(p, t)
	}
	return power
}
