package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/kilianp07/evcharge/core/allocation"
	"github.com/kilianp07/evcharge/core/eventlog"
	"github.com/kilianp07/evcharge/core/events"
	"github.com/kilianp07/evcharge/core/facility"
	"github.com/kilianp07/evcharge/core/fleet"
	"github.com/kilianp07/evcharge/core/logger"
	"github.com/kilianp07/evcharge/core/metrics"
	"github.com/kilianp07/evcharge/core/model"
	"github.com/kilianp07/evcharge/core/planner"
	"github.com/kilianp07/evcharge/core/timeseries"
	"github.com/kilianp07/evcharge/internal/eventbus"
)

// violationTolerance is the excess load in kW below which a schedule is
// considered within the envelope.
const violationTolerance = 1e-6

// Simulation drives a fleet through a charging system one tick at a time.
// It is not safe for concurrent use.
type Simulation struct {
	cfg     Config
	fleet   *fleet.Fleet
	system  *facility.System
	policy  allocation.Policy
	planner planner.Planner

	costs   *timeseries.Series
	logger  logger.Logger
	metrics metrics.MetricsSink
	store   eventlog.Store
	bus     *eventbus.TypedBus[events.Event]
	rng     *rand.Rand

	now      time.Time
	ticks    int
	admitted int
	rejected int
	events   []events.Event
	// fresh holds vehicles connected during the current tick, in
	// admission order, waiting for their first plan.
	fresh []*model.Vehicle
}

// New builds a simulation positioned at cfg.Start.
func New(cfg Config, f *fleet.Fleet, sys *facility.System, p allocation.Policy, pl planner.Planner) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case f == nil:
		return nil, fmt.Errorf("simulation: fleet is required")
	case sys == nil:
		return nil, fmt.Errorf("simulation: system is required")
	case p == nil:
		return nil, fmt.Errorf("simulation: allocation policy is required")
	case pl == nil:
		return nil, fmt.Errorf("simulation: planner is required")
	}
	return &Simulation{
		cfg:     cfg,
		fleet:   f,
		system:  sys,
		policy:  p,
		planner: pl,
		logger:  logger.NopLogger{},
		metrics: metrics.NopSink{},
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		now:     cfg.Start,
	}, nil
}

// SetLogger configures the logger. A nil logger disables logging.
func (s *Simulation) SetLogger(l logger.Logger) { s.logger = logger.OrNop(l) }

// SetMetrics configures the sink receiving cluster samples. Sinks that also
// implement metrics.EventRecorder receive every event.
func (s *Simulation) SetMetrics(m metrics.MetricsSink) {
	if m == nil {
		m = metrics.NopSink{}
	}
	s.metrics = m
}

// SetLogStore configures the store persisting events.
func (s *Simulation) SetLogStore(store eventlog.Store) { s.store = store }

// SetEventBus configures the bus events are published on.
func (s *Simulation) SetEventBus(b *eventbus.TypedBus[events.Event]) { s.bus = b }

// SetCosts configures the cost coefficients handed to the planner.
func (s *Simulation) SetCosts(c *timeseries.Series) { s.costs = c }

// Now returns the start of the next tick.
func (s *Simulation) Now() time.Time { return s.now }

// Ticks returns the number of completed ticks.
func (s *Simulation) Ticks() int { return s.ticks }

// Done reports whether the clock reached the end of the run.
func (s *Simulation) Done() bool { return !s.now.Before(s.cfg.End) }

// Events returns the events emitted so far in emission order.
func (s *Simulation) Events() []events.Event {
	return append([]events.Event(nil), s.events...)
}

// System returns the simulated charging system.
func (s *Simulation) System() *facility.System { return s.system }

// Fleet returns the simulated fleet.
func (s *Simulation) Fleet() *fleet.Fleet { return s.fleet }

// Run steps until the end of the run, then records the run summary and
// flushes the metrics sink. Cancellation is checked between ticks.
func (s *Simulation) Run(ctx context.Context) error {
	s.logger.Infof("simulation from %s to %s, step %s", s.cfg.Start.Format(time.RFC3339), s.cfg.End.Format(time.RFC3339), s.cfg.Step)
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
	return s.finish()
}

func (s *Simulation) finish() error {
	sum := s.Summary()
	s.logger.Infof("simulation done: %d ticks, %d admitted, %d rejected, %.3f kWh delivered", sum.Ticks, sum.Admitted, sum.Rejected, sum.DeliveredKWh)
	if r, ok := s.metrics.(metrics.RunSummaryRecorder); ok {
		if err := r.RecordRunSummary(sum); err != nil {
			s.logger.Warnf("record run summary: %v", err)
		}
	}
	if f, ok := s.metrics.(metrics.Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush metrics: %w", err)
		}
	}
	return nil
}

// Summary aggregates the run so far.
func (s *Simulation) Summary() metrics.RunSummary {
	sum := metrics.RunSummary{
		Start:    s.cfg.Start,
		End:      s.now,
		Ticks:    s.ticks,
		Vehicles: s.fleet.Len(),
		Admitted: s.admitted,
		Rejected: s.rejected,
	}
	for _, v := range s.fleet.Vehicles() {
		if v.Infeasible {
			sum.Infeasible++
		}
		if v.Admitted {
			sum.DeliveredKWh += v.DeliveredKWh()
		}
	}
	return sum
}

// Step runs one tick [now, now+step) and advances the clock. Bookkeeping
// failures abort the tick with an error; the simulation must then be
// discarded.
func (s *Simulation) Step(ctx context.Context) error {
	if s.Done() {
		return fmt.Errorf("simulation: already at end %s", s.cfg.End.Format(time.RFC3339))
	}
	ts := s.now
	end := ts.Add(s.cfg.Step)
	wrap := func(stage string, err error) error {
		return fmt.Errorf("tick %s: %s: %w", ts.Format(time.RFC3339), stage, err)
	}
	if err := s.arrivals(ctx, ts); err != nil {
		return wrap("arrivals", err)
	}
	if err := s.schedule(ctx, ts); err != nil {
		return wrap("scheduling", err)
	}
	if err := s.dispatch(ctx, ts); err != nil {
		return wrap("dispatch", err)
	}
	if err := s.departures(ctx, ts, end); err != nil {
		return wrap("departures", err)
	}
	s.now = end
	s.ticks++
	return nil
}

func (s *Simulation) emit(ctx context.Context, e events.Event) {
	s.events = append(s.events, e)
	if e.Kind.Warning() {
		s.logger.Warnf("%s vehicle=%s cluster=%s unit=%s %s", e.Kind, e.VehicleID, e.ClusterID, e.UnitID, e.Detail)
	} else {
		s.logger.Debugw(string(e.Kind), map[string]any{
			"time":        e.Time.Format(time.RFC3339),
			"vehicle":     e.VehicleID,
			"cluster":     e.ClusterID,
			"unit":        e.UnitID,
			"reservation": e.ReservationID,
		})
	}
	if s.store != nil {
		if err := s.store.Append(ctx, e); err != nil {
			s.logger.Errorf("append event: %v", err)
		}
	}
	if r, ok := s.metrics.(metrics.EventRecorder); ok {
		if err := r.RecordEvent(e); err != nil {
			s.logger.Warnf("record event: %v", err)
		}
	}
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
