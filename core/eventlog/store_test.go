package eventlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evcharge/core/events"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func sample() []events.Event {
	return []events.Event{
		{Time: t0, Kind: events.KindAdmitted, VehicleID: "v1", ClusterID: "A", UnitID: "1"},
		{Time: t0, Kind: events.KindRejected, VehicleID: "v2"},
		{Time: t0.Add(15 * time.Minute), Kind: events.KindClamped, VehicleID: "v1", ClusterID: "A", Requested: 22, Applied: 11},
		{Time: t0.Add(time.Hour), Kind: events.KindDeparted, VehicleID: "v1", ClusterID: "A"},
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	jsonl, err := NewJSONLStore(filepath.Join(dir, "events.jsonl"))
	require.NoError(t, err)
	rot, err := NewRotatingJSONLStore(filepath.Join(dir, "rot", "events.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	sq, err := NewSQLiteStore("file:events.db?mode=memory&cache=shared")
	require.NoError(t, err)
	return map[string]Store{"memory": NewMemoryStore(), "jsonl": jsonl, "rotating": rot, "sqlite": sq}
}

func TestStores_AppendQuery(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = s.Close() }()
			for _, e := range sample() {
				require.NoError(t, s.Append(ctx, e))
			}
			all, err := s.Query(ctx, Query{})
			require.NoError(t, err)
			require.Len(t, all, 4)
			assert.Equal(t, events.KindAdmitted, all[0].Kind)
			assert.True(t, all[0].Time.Equal(t0))

			v1, err := s.Query(ctx, Query{VehicleID: "v1"})
			require.NoError(t, err)
			assert.Len(t, v1, 3)

			clamps, err := s.Query(ctx, Query{Kind: events.KindClamped})
			require.NoError(t, err)
			require.Len(t, clamps, 1)
			assert.Equal(t, 11.0, clamps[0].Applied)

			window, err := s.Query(ctx, Query{Start: t0.Add(time.Minute), End: t0.Add(30 * time.Minute), ClusterID: "A"})
			require.NoError(t, err)
			assert.Len(t, window, 1)
		})
	}
}

func TestConfig(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	assert.Nil(t, s)
	_, err = New(Config{Backend: "jsonl"})
	assert.Error(t, err)
	_, err = New(Config{Backend: "kafka", Path: "x"})
	assert.Error(t, err)
	s, err = New(Config{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}
