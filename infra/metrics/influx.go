package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/evcharge/core/events"
	coremetrics "github.com/kilianp07/evcharge/core/metrics"
	"github.com/kilianp07/evcharge/infra/logger"
)

// InfluxConfig configures InfluxSink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// RunID tags every point so several runs can share a bucket.
	RunID string `json:"run_id"`
}

// InfluxSink writes simulation samples to an InfluxDB instance using the
// official client. Points carry simulated time.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	runID    string
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		runID:    cfg.RunID,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) point(measurement string, ts time.Time) *write.Point {
	p := write.NewPointWithMeasurement(measurement).SetTime(ts)
	if s.runID != "" {
		p.AddTag("run_id", s.runID)
	}
	return p
}

// RecordClusterSamples writes one cluster_sample point per sample.
func (s *InfluxSink) RecordClusterSamples(samples []coremetrics.ClusterSample) error {
	if len(samples) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(samples))
	for _, c := range samples {
		points = append(points, s.point("cluster_sample", c.Time).
			AddTag("cluster_id", c.ClusterID).
			AddField("units", c.Units).
			AddField("occupation", c.Occupation).
			AddField("connected", c.Connected).
			AddField("scheduled_kw", round3(c.ScheduledKW)).
			AddField("dispatched_kw", round3(c.DispatchedKW)).
			AddField("dispatched_kwh", round3(c.DispatchedKWh)).
			AddField("capacity_kw", round3(c.CapacityKW)).
			AddField("violation_kw", round3(c.ViolationKW)))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordEvent writes a sim_event point.
func (s *InfluxSink) RecordEvent(e events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := s.point("sim_event", e.Time).AddTag("kind", string(e.Kind))
	if e.ClusterID != "" {
		p.AddTag("cluster_id", e.ClusterID)
	}
	p.AddField("vehicle_id", e.VehicleID)
	if e.Kind == events.KindClamped || e.Kind == events.KindCapacityViolation {
		p.AddField("requested", round3(e.Requested)).AddField("applied", round3(e.Applied))
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRunSummary writes the run_summary point at the end instant.
func (s *InfluxSink) RecordRunSummary(sum coremetrics.RunSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := s.point("run_summary", sum.End).
		AddField("ticks", sum.Ticks).
		AddField("vehicles", sum.Vehicles).
		AddField("admitted", sum.Admitted).
		AddField("rejected", sum.Rejected).
		AddField("infeasible", sum.Infeasible).
		AddField("delivered_kwh", round3(sum.DeliveredKWh))
	return s.writeAPI.WritePoint(ctx, p)
}

// Flush releases the client.
func (s *InfluxSink) Flush() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
