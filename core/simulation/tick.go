package simulation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/evcharge/core/allocation"
	"github.com/kilianp07/evcharge/core/events"
	"github.com/kilianp07/evcharge/core/facility"
	"github.com/kilianp07/evcharge/core/metrics"
	"github.com/kilianp07/evcharge/core/model"
	"github.com/kilianp07/evcharge/core/planner"
	"github.com/kilianp07/evcharge/core/timeseries"
)

// arrivals admits or rejects the vehicles arriving in (ts-step, ts], so no
// vehicle is handled before it is on site. The first tick also picks up
// vehicles that arrived before the start of the run and are still present.
// Vehicles admitted earlier in the tick count in the load the policy sees
// even though their schedules are published later.
func (s *Simulation) arrivals(ctx context.Context, ts time.Time) error {
	from := ts.Add(-s.cfg.Step)
	if s.ticks == 0 {
		from = time.Time{}
	}
	pending := make(map[string]*timeseries.Series)
	for _, v := range s.fleet.Arrived(from, ts) {
		if !v.Departure.After(ts) || !v.Lifecycle().Is(model.StatePending) {
			continue
		}
		if err := s.admit(ctx, ts, v, pending); err != nil {
			return fmt.Errorf("vehicle %s: %w", v.ID, err)
		}
	}
	return nil
}

func (s *Simulation) admit(ctx context.Context, ts time.Time, v *model.Vehicle, pending map[string]*timeseries.Series) error {
	lc := v.Lifecycle()
	if err := lc.Fire(ts, model.EventArrive); err != nil {
		return err
	}
	scheduled := s.system.ScheduledPower()
	for id, load := range pending {
		scheduled[id] = scheduled[id].Add(load)
	}
	req := allocation.Request{
		System:    s.system,
		Now:       ts,
		Step:      s.cfg.Step,
		Horizon:   s.cfg.Horizon,
		Vehicle:   v,
		Start:     ts,
		End:       gridCeil(ts, s.cfg.Step, v.Departure),
		Schedules: scheduled,
		Rand:      s.rng,
	}
	if allocation.NeedsCandidate(s.policy) {
		cand, err := s.planner.Plan(planner.RequestFor(v, ts, s.cfg.Step, s.system.MaxChargeKW(), s.system.MaxDischargeKW(), s.costs))
		if err != nil {
			return fmt.Errorf("plan candidate: %w", err)
		}
		req.Candidate = cand.Power
	}

	d, ok := s.policy.Allocate(req)
	if !ok {
		v.Admitted = false
		s.rejected++
		if err := lc.Fire(ts, model.EventReject); err != nil {
			return err
		}
		s.emit(ctx, events.Event{Time: ts, Kind: events.KindRejected, VehicleID: v.ID, Detail: "no capacity"})
		return nil
	}

	c, err := s.system.Cluster(d.ClusterID)
	if err != nil {
		return err
	}
	u, err := c.Unit(d.UnitID)
	if err != nil {
		return err
	}
	id, err := c.Reserve(ts, req.Start, req.End, v, u.ID)
	if err != nil {
		return err
	}
	v.Admitted = true
	v.ReservationID, v.ClusterID, v.UnitID = id, c.ID, u.ID
	s.admitted++
	if err := lc.Fire(ts, model.EventAdmit); err != nil {
		return err
	}
	if err := u.Connect(ts, v); err != nil {
		return err
	}
	v.Connect(ts)
	if err := lc.Fire(ts, model.EventConnect); err != nil {
		return err
	}
	c.EnterIncoming(v.Arrival, v, u)
	if req.Candidate != nil {
		pending[c.ID] = pending[c.ID].Add(req.Candidate)
	}
	s.fresh = append(s.fresh, v)
	s.emit(ctx, events.Event{Time: ts, Kind: events.KindAdmitted, VehicleID: v.ID, ClusterID: c.ID, UnitID: u.ID, ReservationID: id})
	return nil
}

// schedule plans the vehicles connected this tick and, when the cadence is
// due, replans every other connected vehicle from its current SoC.
func (s *Simulation) schedule(ctx context.Context, ts time.Time) error {
	fresh := make(map[string]bool, len(s.fresh))
	for _, v := range s.fresh {
		fresh[v.ID] = true
		if err := s.plan(ctx, ts, v); err != nil {
			return err
		}
	}
	s.fresh = s.fresh[:0]
	if !s.rescheduleDue(ts) {
		return nil
	}
	for _, c := range s.system.Clusters() {
		for _, u := range c.ConnectedUnits() {
			v := u.Vehicle()
			if fresh[v.ID] {
				continue
			}
			if err := s.plan(ctx, ts, v); err != nil {
				return err
			}
			s.emit(ctx, events.Event{Time: ts, Kind: events.KindRescheduled, VehicleID: v.ID, ClusterID: c.ID, UnitID: u.ID, ReservationID: v.ReservationID})
		}
	}
	return nil
}

func (s *Simulation) rescheduleDue(ts time.Time) bool {
	every := s.cfg.RescheduleEvery
	if every <= 0 || !ts.After(s.cfg.Start) {
		return false
	}
	return ts.Sub(s.cfg.Start)%every == 0
}

// plan computes and publishes the schedule of a connected vehicle.
func (s *Simulation) plan(ctx context.Context, ts time.Time, v *model.Vehicle) error {
	c, err := s.system.Cluster(v.ClusterID)
	if err != nil {
		return err
	}
	u, err := c.Unit(v.UnitID)
	if err != nil {
		return err
	}
	sched, err := s.planner.Plan(planner.RequestFor(v, ts, s.cfg.Step, u.MaxChargeKW, u.MaxDischargeKW, s.costs))
	if err != nil {
		return fmt.Errorf("vehicle %s: plan: %w", v.ID, err)
	}
	c.PublishSchedule(v, sched.Power, sched.SoC)
	wasInfeasible := v.Infeasible
	v.Infeasible = !sched.Feasible
	if v.Infeasible && !wasInfeasible {
		s.emit(ctx, events.Event{
			Time:          ts,
			Kind:          events.KindInfeasible,
			VehicleID:     v.ID,
			ClusterID:     c.ID,
			UnitID:        u.ID,
			ReservationID: v.ReservationID,
			Detail:        fmt.Sprintf("target soc %.3f unreachable before %s", v.Target(), v.Departure.Format(time.RFC3339)),
		})
	}
	return nil
}

// dispatch applies the planned setpoints of the tick and records one sample
// per cluster.
func (s *Simulation) dispatch(ctx context.Context, ts time.Time) error {
	clusters := s.system.Clusters()
	samples := make([]metrics.ClusterSample, 0, len(clusters))
	for _, c := range clusters {
		sample, err := s.dispatchCluster(ctx, ts, c)
		if err != nil {
			return fmt.Errorf("cluster %s: %w", c.ID, err)
		}
		samples = append(samples, sample)
	}
	if err := s.metrics.RecordClusterSamples(samples); err != nil {
		s.logger.Warnf("record cluster samples: %v", err)
	}
	return nil
}

func (s *Simulation) dispatchCluster(ctx context.Context, ts time.Time, c *facility.Cluster) (metrics.ClusterSample, error) {
	var dispatched, kwh float64
	connected := c.ConnectedUnits()
	for _, u := range connected {
		v := u.Vehicle()
		dt := s.span(ts, v)
		p, _ := c.PlannedSetpoint(v.ID, ts)
		res, err := u.Supply(ts, dt, p)
		if err != nil {
			return metrics.ClusterSample{}, fmt.Errorf("unit %s: %w", u.ID, err)
		}
		if err := v.Lifecycle().MarkCharging(ts); err != nil {
			return metrics.ClusterSample{}, err
		}
		if res.Clamped {
			s.emit(ctx, events.Event{
				Time:          ts,
				Kind:          events.KindClamped,
				VehicleID:     v.ID,
				ClusterID:     c.ID,
				UnitID:        u.ID,
				ReservationID: v.ReservationID,
				Requested:     res.Requested,
				Applied:       res.Applied,
			})
		}
		dispatched += res.Applied
		kwh += res.Applied * dt.Hours()
	}

	scheduled := c.ScheduledPower().ValueAt(ts)
	capacity := c.CapacityAt(ts)
	excess := math.Max(0, scheduled-capacity)
	if excess > violationTolerance {
		s.emit(ctx, events.Event{
			Time:      ts,
			Kind:      events.KindCapacityViolation,
			ClusterID: c.ID,
			Detail:    fmt.Sprintf("scheduled load exceeds envelope by %.3f kW", excess),
			Requested: scheduled,
			Applied:   capacity,
		})
	} else {
		excess = 0
	}
	return metrics.ClusterSample{
		Time:          ts,
		ClusterID:     c.ID,
		Units:         c.Size(),
		Occupation:    c.OccupationAt(ts),
		Connected:     len(connected),
		ScheduledKW:   scheduled,
		DispatchedKW:  dispatched,
		DispatchedKWh: kwh,
		CapacityKW:    capacity,
		ViolationKW:   excess,
	}, nil
}

// span is the part of the tick at ts the vehicle is still plugged in for.
func (s *Simulation) span(ts time.Time, v *model.Vehicle) time.Duration {
	if rem := v.Departure.Sub(ts); rem < s.cfg.Step {
		return rem
	}
	return s.cfg.Step
}

// departures releases the vehicles leaving in (ts, end]. Their units are
// free from end on, before the arrivals of the next tick are processed.
func (s *Simulation) departures(ctx context.Context, ts, end time.Time) error {
	for _, v := range s.fleet.Outgoing(ts, end) {
		if err := s.depart(ctx, end, v); err != nil {
			return fmt.Errorf("vehicle %s: %w", v.ID, err)
		}
	}
	return nil
}

func (s *Simulation) depart(ctx context.Context, at time.Time, v *model.Vehicle) error {
	lc := v.Lifecycle()
	if lc.Is(model.StateRejected) {
		return lc.Fire(at, model.EventRetire)
	}
	if !v.Admitted || !v.Connected() {
		return nil
	}
	c, err := s.system.Cluster(v.ClusterID)
	if err != nil {
		return err
	}
	u, err := c.Unit(v.UnitID)
	if err != nil {
		return err
	}
	if err := u.Disconnect(at); err != nil {
		return err
	}
	v.Disconnect()
	if err := c.Unreserve(at, v.ReservationID); err != nil {
		return err
	}
	c.WithdrawSchedule(v.ID)
	if err := c.EnterOutgoing(v.Departure, v); err != nil {
		return err
	}
	if err := lc.Fire(at, model.EventDisconnect); err != nil {
		return err
	}
	if err := lc.Fire(at, model.EventRetire); err != nil {
		return err
	}
	s.emit(ctx, events.Event{
		Time:          at,
		Kind:          events.KindDeparted,
		VehicleID:     v.ID,
		ClusterID:     c.ID,
		UnitID:        u.ID,
		ReservationID: v.ReservationID,
		Detail:        fmt.Sprintf("soc %.4f delivered %.3f kWh", v.CurrentSoC(), v.DeliveredKWh()),
	})
	v.ReservationID, v.ClusterID, v.UnitID = "", "", ""
	return nil
}
