package metrics

import (
	"fmt"
	"strings"

	"github.com/kilianp07/evcharge/core/factory"
)

// Config lists the sinks a run reports to.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

// Build creates the configured sinks.
func (c Config) Build() (MetricsSink, error) { return NewMetricsSink(c.Sinks) }

var sinks = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink makes a sink type available to configurations.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinks.Register(name, f)
}

// SinkTypes returns the registered sink types.
func SinkTypes() []string { return sinks.Names() }

// NewMetricsSink builds one sink per entry. Without entries the run reports
// to a NopSink; several entries are combined in a MultiSink. Errors name the
// offending entry by position.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	built := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		if strings.TrimSpace(c.Type) == "" {
			return nil, fmt.Errorf("metrics sink %d: type is required (known: %s)", i, strings.Join(SinkTypes(), ", "))
		}
		s, err := sinks.Create(c)
		if err != nil {
			return nil, fmt.Errorf("metrics sink %d: %w", i, err)
		}
		built = append(built, s)
	}
	switch len(built) {
	case 0:
		return NopSink{}, nil
	case 1:
		return built[0], nil
	}
	return NewMultiSink(built...), nil
}
