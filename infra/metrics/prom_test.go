package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evcharge/core/events"
	"github.com/kilianp07/evcharge/core/factory"
	coremetrics "github.com/kilianp07/evcharge/core/metrics"
)

func TestPromSink_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	path := filepath.Join(t.TempDir(), "evcharge.prom")
	sink, err := NewPromSinkWithRegistry(PromConfig{TextfilePath: path}, reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordClusterSamples([]coremetrics.ClusterSample{
		{ClusterID: "A", Occupation: 2, Connected: 1, ScheduledKW: 30, DispatchedKW: 11, DispatchedKWh: 2.75, CapacityKW: 22, ViolationKW: 8},
	}))
	require.NoError(t, sink.RecordClusterSamples([]coremetrics.ClusterSample{
		{ClusterID: "A", Occupation: 1, DispatchedKWh: -1, ViolationKW: 2},
	}))
	require.NoError(t, sink.RecordEvent(events.Event{Kind: events.KindAdmitted}))
	require.NoError(t, sink.RecordEvent(events.Event{Kind: events.KindAdmitted}))
	require.NoError(t, sink.RecordRunSummary(coremetrics.RunSummary{Vehicles: 3, Admitted: 2, Rejected: 1}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.occupation.WithLabelValues("A")))
	assert.Equal(t, 10.0, testutil.ToFloat64(sink.violation.WithLabelValues("A")))
	assert.Equal(t, 2.75, testutil.ToFloat64(sink.energy.WithLabelValues("A")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.events.WithLabelValues("admitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.vehicles.WithLabelValues("rejected")))

	require.NoError(t, sink.Flush())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `evcharge_events_total{kind="admitted"} 2`))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(PromConfig{}, reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(PromConfig{}, reg)
	require.NoError(t, err)
	require.NoError(t, a.RecordEvent(events.Event{Kind: events.KindRejected}))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.events.WithLabelValues("rejected")))
	assert.NoError(t, b.Flush(), "flush without textfile is a no-op")
}

func TestMetricsFactory_Builtins(t *testing.T) {
	s, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	require.NotNil(t, s)
	s, err = coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "prometheus", Conf: map[string]any{"namespace": "sim"}}, {Type: "nop"}})
	require.NoError(t, err)
	m, ok := s.(*coremetrics.MultiSink)
	require.True(t, ok)
	assert.IsType(t, &PromSink{}, m.Sinks[0])
	_, err = coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)
}
