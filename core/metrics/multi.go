package metrics

import (
	"errors"

	"github.com/kilianp07/evcharge/core/events"
)

// MultiSink fans out records to several sinks. Every sink is called even
// when an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink combines the sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordClusterSamples(samples []ClusterSample) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordClusterSamples(samples))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordEvent(e events.Event) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(EventRecorder); ok {
			errs = append(errs, r.RecordEvent(e))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordRunSummary(sum RunSummary) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(RunSummaryRecorder); ok {
			errs = append(errs, r.RecordRunSummary(sum))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Flush() error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(Flusher); ok {
			errs = append(errs, f.Flush())
		}
	}
	return errors.Join(errs...)
}
