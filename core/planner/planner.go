// Package planner produces charging schedules for connected vehicles.
//
// A planner receives the battery state of one vehicle together with the
// limits of the unit it is plugged into and returns aligned power and SoC
// trajectories over the steps now, now+Δ, ... strictly before the estimated
// departure. The last step ends at the departure when it falls between two
// step instants. Planners never fail on an unreachable target: they return
// their best effort with Feasible set to false.
package planner

import (
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/evcharge/core/model"
	"github.com/kilianp07/evcharge/core/timeseries"
)

// feasibilityTolerance absorbs solver drift when comparing the final SoC
// with the target.
const feasibilityTolerance = 1e-6

// Request describes one planning problem.
type Request struct {
	VehicleID      string
	Now            time.Time
	Departure      time.Time
	Step           time.Duration
	SoC            float64
	TargetSoC      float64
	MinSoC         float64
	MaxSoC         float64
	CapacityKWh    float64
	MaxChargeKW    float64
	MaxDischargeKW float64
	AllowV2G       bool
	Derating       model.Derating
	// Costs holds the cost coefficient per instant. Lower values make
	// charging preferable. Missing instants use the last earlier value.
	Costs *timeseries.Series
}

// Schedule is the planned trajectory. Power holds one setpoint per step
// instant; SoC holds the state at every step boundary including the first.
type Schedule struct {
	Power    *timeseries.Series
	SoC      *timeseries.Series
	Feasible bool
}

// Planner computes schedules.
type Planner interface {
	Plan(Request) (Schedule, error)
}

// PlannerFunc adapts a function to the Planner interface.
type PlannerFunc func(Request) (Schedule, error)

// Plan calls f.
func (f PlannerFunc) Plan(r Request) (Schedule, error) { return f(r) }

// RequestFor builds a request for v plugged into a unit with the given
// limits. The vehicle limits are combined with the unit limits.
func RequestFor(v *model.Vehicle, now time.Time, step time.Duration, unitChargeKW, unitDischargeKW float64, costs *timeseries.Series) Request {
	maxDs := math.Min(v.MaxDischargeKW, unitDischargeKW)
	return Request{
		VehicleID:      v.ID,
		Now:            now,
		Departure:      v.Departure,
		Step:           step,
		SoC:            v.CurrentSoC(),
		TargetSoC:      v.Target(),
		MinSoC:         v.MinSoC,
		MaxSoC:         v.MaxSoC,
		CapacityKWh:    v.BatteryKWh,
		MaxChargeKW:    math.Min(v.MaxChargeKW, unitChargeKW),
		MaxDischargeKW: maxDs,
		AllowV2G:       v.CanDischarge() && maxDs > 0,
		Derating:       v.Derating,
		Costs:          costs,
	}
}

// Validate checks the request is well formed.
func (r Request) Validate() error {
	switch {
	case r.Step <= 0:
		return fmt.Errorf("planner: step must be positive")
	case r.CapacityKWh <= 0:
		return fmt.Errorf("planner: vehicle %s: capacity must be positive", r.VehicleID)
	case r.MinSoC > r.MaxSoC:
		return fmt.Errorf("planner: vehicle %s: invalid SoC bounds", r.VehicleID)
	case r.MaxChargeKW < 0 || r.MaxDischargeKW < 0:
		return fmt.Errorf("planner: vehicle %s: negative power limit", r.VehicleID)
	}
	return nil
}

// Instants returns the step instants now + kΔ strictly before departure.
func (r Request) Instants() []time.Time {
	var out []time.Time
	for t := r.Now; t.Before(r.Departure); t = t.Add(r.Step) {
		out = append(out, t)
	}
	return out
}

// Cost returns the cost coefficient at t, 1 when none is known.
func (r Request) Cost(t time.Time) float64 {
	if v, ok := r.Costs.StepValue(t); ok {
		return v
	}
	return 1
}

// span returns the length of the step starting at t, cut at the departure.
func (r Request) span(t time.Time) time.Duration {
	if rem := r.Departure.Sub(t); rem < r.Step {
		return rem
	}
	return r.Step
}

func (r Request) hours(t time.Time) float64 { return r.span(t).Hours() }

// socDelta returns the SoC change of applying p kW during the step at t.
func (r Request) socDelta(p float64, t time.Time) float64 { return p * r.hours(t) / r.CapacityKWh }

// trajectory integrates the power setpoints from the request SoC, keeping the
// state inside the bounds, and reports whether the target is met.
func (r Request) trajectory(instants []time.Time, power []float64) Schedule {
	s := Schedule{Power: &timeseries.Series{}, SoC: &timeseries.Series{}}
	soc := r.SoC
	s.SoC.Set(r.Now, soc)
	for i, t := range instants {
		p := power[i]
		if next := soc + r.socDelta(p, t); next > r.MaxSoC {
			p = (r.MaxSoC - soc) * r.CapacityKWh / r.hours(t)
		} else if next < r.MinSoC {
			p = (r.MinSoC - soc) * r.CapacityKWh / r.hours(t)
		}
		if math.Abs(p) < 1e-12 {
			p = 0
		}
		soc += r.socDelta(p, t)
		s.Power.Set(t, p)
		s.SoC.Set(t.Add(r.span(t)), soc)
	}
	s.Feasible = soc >= r.TargetSoC-feasibilityTolerance
	return s
}
