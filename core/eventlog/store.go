// Package eventlog persists simulation events.
package eventlog

import (
	"context"
	"time"

	"github.com/kilianp07/evcharge/core/events"
)

// Query defines filters for retrieving events. Zero values match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	VehicleID string
	ClusterID string
	Kind      events.Kind
}

func (q Query) matches(e events.Event) bool {
	switch {
	case !q.Start.IsZero() && e.Time.Before(q.Start):
		return false
	case !q.End.IsZero() && e.Time.After(q.End):
		return false
	case q.VehicleID != "" && e.VehicleID != q.VehicleID:
		return false
	case q.ClusterID != "" && e.ClusterID != q.ClusterID:
		return false
	case q.Kind != "" && e.Kind != q.Kind:
		return false
	}
	return true
}

// Store persists events and supports querying. Query returns events in
// append order.
type Store interface {
	Append(ctx context.Context, e events.Event) error
	Query(ctx context.Context, q Query) ([]events.Event, error)
	Close() error
}
