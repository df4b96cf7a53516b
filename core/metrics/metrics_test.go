package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/kilianp07/evcharge/core/events"
	"github.com/kilianp07/evcharge/core/factory"
)

type recordSink struct {
	samples int
	events  int
	flushed bool
	err     error
}

func (r *recordSink) RecordClusterSamples(s []ClusterSample) error {
	r.samples += len(s)
	return r.err
}

func (r *recordSink) RecordEvent(events.Event) error {
	r.events++
	return nil
}

func (r *recordSink) Flush() error {
	r.flushed = true
	return nil
}

// TestMultiSink ensures records reach every sink even after a failure.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{err: errors.New("down")}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2, NopSink{})
	if err := m.RecordClusterSamples([]ClusterSample{{ClusterID: "A"}}); err == nil {
		t.Fatal("expected joined error")
	}
	if err := m.RecordEvent(events.Event{Kind: events.KindAdmitted}); err != nil {
		t.Fatalf("record event: %v", err)
	}
	if err := m.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if s1.samples != 1 || s2.samples != 1 || s2.events != 1 || !s2.flushed {
		t.Fatalf("records not forwarded: %+v %+v", s1, s2)
	}
	if err := m.RecordRunSummary(RunSummary{}); err != nil {
		t.Fatalf("summary: %v", err)
	}
}

func TestNewMetricsSink(t *testing.T) {
	s, err := NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
	if err := RegisterMetricsSink("record", func(map[string]any) (MetricsSink, error) { return &recordSink{}, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "record"}, {Type: "record"}})
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*MultiSink)
	if !ok || len(m.Sinks) != 2 {
		t.Fatalf("expected MultiSink with 2 sinks, got %T", s)
	}
	if _, err := NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
	s, err = Config{Sinks: []factory.ModuleConfig{{Type: "record"}}}.Build()
	if err != nil {
		t.Fatalf("build single: %v", err)
	}
	if _, ok := s.(*recordSink); !ok {
		t.Fatalf("a single sink is returned as is, got %T", s)
	}
}

func TestNewMetricsSink_RequiresType(t *testing.T) {
	_, err := NewMetricsSink([]factory.ModuleConfig{{Type: " "}})
	if err == nil {
		t.Fatal("expected error for empty type")
	}
	if !strings.Contains(err.Error(), "metrics sink 0: type is required") {
		t.Fatalf("error should name the entry: %v", err)
	}
}
