package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/evcharge/core/events"
	coremetrics "github.com/kilianp07/evcharge/core/metrics"
)

// PromConfig configures PromSink.
type PromConfig struct {
	Namespace string `json:"namespace"`
	// TextfilePath, when set, receives the gathered metrics on Flush in
	// the node exporter textfile format.
	TextfilePath string `json:"textfile_path"`
}

// PromSink records cluster samples and events in Prometheus metrics.
type PromSink struct {
	occupation *prometheus.GaugeVec
	connected  *prometheus.GaugeVec
	scheduled  *prometheus.GaugeVec
	dispatched *prometheus.GaugeVec
	capacity   *prometheus.GaugeVec
	violation  *prometheus.CounterVec
	energy     *prometheus.CounterVec
	events     *prometheus.CounterVec
	vehicles   *prometheus.GaugeVec

	gatherer prometheus.Gatherer
	textfile string
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Flush
// gathers from reg when it is also a Gatherer.
func NewPromSinkWithRegistry(cfg PromConfig, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "evcharge"
	}
	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: name, Help: help}, labels)
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: name, Help: help}, labels)
	}
	s := &PromSink{textfile: cfg.TextfilePath}
	var err error
	if s.occupation, err = register(reg, gauge("cluster_occupation_units", "Units holding a reservation", "cluster_id")); err != nil {
		return nil, err
	}
	if s.connected, err = register(reg, gauge("cluster_connected_units", "Units with a plugged vehicle", "cluster_id")); err != nil {
		return nil, err
	}
	if s.scheduled, err = register(reg, gauge("cluster_scheduled_kw", "Planned load of the current tick", "cluster_id")); err != nil {
		return nil, err
	}
	if s.dispatched, err = register(reg, gauge("cluster_dispatched_kw", "Applied load of the current tick", "cluster_id")); err != nil {
		return nil, err
	}
	if s.capacity, err = register(reg, gauge("cluster_capacity_kw", "Power envelope of the current tick", "cluster_id")); err != nil {
		return nil, err
	}
	if s.violation, err = register(reg, counter("cluster_violation_kw_ticks_total", "Planned load above the envelope summed over ticks", "cluster_id")); err != nil {
		return nil, err
	}
	if s.energy, err = register(reg, counter("cluster_dispatched_kwh_total", "Energy supplied through the cluster over charging ticks", "cluster_id")); err != nil {
		return nil, err
	}
	if s.events, err = register(reg, counter("events_total", "Simulation events by kind", "kind")); err != nil {
		return nil, err
	}
	if s.vehicles, err = register(reg, gauge("run_vehicles", "Vehicles of the last run by outcome", "outcome")); err != nil {
		return nil, err
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		s.gatherer = g
	} else {
		s.gatherer = prometheus.DefaultGatherer
	}
	return s, nil
}

// RecordClusterSamples sets the cluster gauges to the latest sample.
func (s *PromSink) RecordClusterSamples(samples []coremetrics.ClusterSample) error {
	for _, c := range samples {
		s.occupation.WithLabelValues(c.ClusterID).Set(float64(c.Occupation))
		s.connected.WithLabelValues(c.ClusterID).Set(float64(c.Connected))
		s.scheduled.WithLabelValues(c.ClusterID).Set(c.ScheduledKW)
		s.dispatched.WithLabelValues(c.ClusterID).Set(c.DispatchedKW)
		s.capacity.WithLabelValues(c.ClusterID).Set(c.CapacityKW)
		if c.ViolationKW > 0 {
			s.violation.WithLabelValues(c.ClusterID).Add(c.ViolationKW)
		}
		// Counters only grow; net discharge ticks are left out.
		if c.DispatchedKWh > 0 {
			s.energy.WithLabelValues(c.ClusterID).Add(c.DispatchedKWh)
		}
	}
	return nil
}

// RecordEvent increments the counter of the event kind.
func (s *PromSink) RecordEvent(e events.Event) error {
	s.events.WithLabelValues(string(e.Kind)).Inc()
	return nil
}

// RecordRunSummary exposes the vehicle outcomes of the run.
func (s *PromSink) RecordRunSummary(sum coremetrics.RunSummary) error {
	s.vehicles.WithLabelValues("total").Set(float64(sum.Vehicles))
	s.vehicles.WithLabelValues("admitted").Set(float64(sum.Admitted))
	s.vehicles.WithLabelValues("rejected").Set(float64(sum.Rejected))
	s.vehicles.WithLabelValues("infeasible").Set(float64(sum.Infeasible))
	return nil
}

// Flush writes the textfile when configured.
func (s *PromSink) Flush() error {
	if s.textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(s.textfile, s.gatherer)
}
