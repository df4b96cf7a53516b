package metrics

import (
	"time"

	"github.com/kilianp07/evcharge/core/events"
)

// ClusterSample is the state of one cluster over the tick starting at Time.
type ClusterSample struct {
	Time         time.Time
	ClusterID    string
	Units        int
	Occupation   int
	Connected    int
	ScheduledKW  float64
	DispatchedKW float64
	// DispatchedKWh is the net energy applied over the tick.
	DispatchedKWh float64
	CapacityKW    float64
	ViolationKW   float64
}

// MetricsSink records cluster samples for observability purposes.
type MetricsSink interface {
	RecordClusterSamples(samples []ClusterSample) error
}

// EventRecorder is implemented by sinks counting simulation events.
type EventRecorder interface {
	RecordEvent(e events.Event) error
}

// RunSummary aggregates a finished run.
type RunSummary struct {
	Start        time.Time
	End          time.Time
	Ticks        int
	Vehicles     int
	Admitted     int
	Rejected     int
	Infeasible   int
	DeliveredKWh float64
}

// RunSummaryRecorder records the summary of a run.
type RunSummaryRecorder interface {
	RecordRunSummary(s RunSummary) error
}

// Flusher is implemented by sinks buffering output until the end of a run.
type Flusher interface {
	Flush() error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordClusterSamples([]ClusterSample) error { return nil }
func (NopSink) RecordEvent(events.Event) error             { return nil }
func (NopSink) RecordRunSummary(RunSummary) error          { return nil }
