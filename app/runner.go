// Package app wires a configuration into a simulation run and its outputs.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/kilianp07/evcharge/config"
	"github.com/kilianp07/evcharge/core/allocation"
	"github.com/kilianp07/evcharge/core/eventlog"
	"github.com/kilianp07/evcharge/core/events"
	coremetrics "github.com/kilianp07/evcharge/core/metrics"
	"github.com/kilianp07/evcharge/core/planner"
	"github.com/kilianp07/evcharge/core/simulation"
	"github.com/kilianp07/evcharge/infra/logger"
	_ "github.com/kilianp07/evcharge/infra/metrics" // registers the prometheus and influx sinks
	"github.com/kilianp07/evcharge/infra/mqtt"
	"github.com/kilianp07/evcharge/internal/eventbus"
	"github.com/kilianp07/evcharge/pkg/export"
	"github.com/kilianp07/evcharge/scenario"
)

// Runner executes one simulation described by a configuration.
type Runner struct {
	Simulation *simulation.Simulation

	cfg       *config.Config
	log       logger.Logger
	sink      coremetrics.MetricsSink
	store     eventlog.Store
	bus       *eventbus.TypedBus[events.Event]
	publisher *mqtt.Publisher
	stdout    io.Writer
}

// New loads the scenario and builds the simulation with its sinks.
func New(cfg *config.Config) (*Runner, error) {
	if err := logger.Configure(cfg.Log); err != nil {
		return nil, err
	}
	logg := logger.New("runner")

	sc, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	fl, err := sc.Fleet()
	if err != nil {
		return nil, fmt.Errorf("fleet: %w", err)
	}
	sys, err := sc.System()
	if err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}
	costs, err := sc.CostSeries()
	if err != nil {
		return nil, fmt.Errorf("costs: %w", err)
	}
	start, end, ok := sc.Window(cfg.Simulation.Step())
	if !ok && (cfg.Simulation.Start == "" || cfg.Simulation.DurationHours <= 0) {
		return nil, fmt.Errorf("scenario %s has no vehicles to derive the clock from: set simulation.start and simulation.duration_hours", cfg.Scenario)
	}
	clock, err := cfg.Simulation.Clock(start, end)
	if err != nil {
		return nil, err
	}

	policy, err := allocation.New(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	pl, err := planner.New(cfg.Planner)
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}
	sink, err := cfg.Metrics.Build()
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := eventlog.New(cfg.EventLog)
	if err != nil {
		return nil, fmt.Errorf("event log: %w", err)
	}

	sim, err := simulation.New(clock, fl, sys, policy, pl)
	if err != nil {
		return nil, closeWith(store, err)
	}
	sim.SetLogger(logger.New("simulation"))
	sim.SetMetrics(sink)
	sim.SetCosts(costs)
	if store != nil {
		sim.SetLogStore(store)
	}

	r := &Runner{Simulation: sim, cfg: cfg, log: logg, sink: sink, store: store, stdout: os.Stdout}
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			return nil, closeWith(store, fmt.Errorf("mqtt publisher: %w", err))
		}
		r.publisher = pub
		r.bus = eventbus.NewTypedBuffered[events.Event](1024)
		sim.SetEventBus(r.bus)
	}
	logg.Infof("scenario %q: %d vehicles, %d clusters, policy %s, planner %s", sc.Name, fl.Len(), len(sys.IDs()), cfg.Policy.Type, cfg.Planner.Type)
	return r, nil
}

func closeWith(store eventlog.Store, err error) error {
	if store != nil {
		if cerr := store.Close(); cerr != nil {
			return errors.Join(err, cerr)
		}
	}
	return err
}

// Run executes the simulation, forwarding events to MQTT while it runs, and
// writes the audit table.
func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	if r.publisher != nil {
		sub := r.bus.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := r.publisher.Forward(ctx, sub)
			r.log.Infof("published %d events", n)
		}()
	}
	err := r.Simulation.Run(ctx)
	if r.bus != nil {
		r.bus.Close()
		wg.Wait()
		if d := r.bus.Dropped(); d > 0 {
			r.log.Warnf("%d events not forwarded to mqtt", d)
		}
	}
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	return r.writeAudit()
}

func (r *Runner) writeAudit() error {
	rows := export.Rows(r.Simulation.System().Datasets())
	if r.cfg.Output.AuditPath == "-" {
		return export.Write(r.stdout, r.cfg.Output.Format, rows)
	}
	if dir := filepath.Dir(r.cfg.Output.AuditPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(r.cfg.Output.AuditPath)
	if err != nil {
		return err
	}
	if err := export.Write(f, r.cfg.Output.Format, rows); err != nil {
		_ = f.Close()
		return err
	}
	r.log.Infof("audit table with %d rows written to %s", len(rows), r.cfg.Output.AuditPath)
	return f.Close()
}

// Close releases the event log and the MQTT connection.
func (r *Runner) Close() error {
	if r.publisher != nil {
		r.publisher.Disconnect()
	}
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}
