package fleet

import (
	"testing"
	"time"

	"github.com/kilianp07/evcharge/core/model"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func veh(id string, arr, dep time.Duration) *model.Vehicle {
	return &model.Vehicle{ID: id, BatteryKWh: 40, MaxChargeKW: 11, MaxSoC: 1, InitialSoC: 0.5,
		Arrival: t0.Add(arr), Departure: t0.Add(dep)}
}

func ids(vs []*model.Vehicle) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func TestFleet_Buckets(t *testing.T) {
	f, err := New([]*model.Vehicle{
		veh("b", 0, time.Hour),
		veh("a", 0, 2*time.Hour),
		veh("c", 30*time.Minute, time.Hour),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := ids(f.IncomingAt(t0)); len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Fatalf("arrivals at t0 keep scenario order, got %v", got)
	}
	if got := f.OutgoingAt(t0.Add(time.Hour)); len(got) != 2 {
		t.Fatalf("expected 2 departures, got %d", len(got))
	}
	if got := f.IncomingAt(t0.Add(time.Minute)); got != nil {
		t.Fatalf("expected no arrivals, got %v", ids(got))
	}
	if got := ids(f.Incoming(t0.Add(15*time.Minute), t0.Add(45*time.Minute))); len(got) != 1 || got[0] != "c" {
		t.Fatalf("range arrivals: %v", got)
	}
	if got := ids(f.Arrived(t0, t0.Add(30*time.Minute))); len(got) != 1 || got[0] != "c" {
		t.Fatalf("arrivals in (t0, t0+30m]: %v", got)
	}
	if got := f.Arrived(t0.Add(30*time.Minute), t0.Add(time.Hour)); len(got) != 0 {
		t.Fatalf("lower bound is exclusive: %v", ids(got))
	}
	if got := f.Outgoing(t0, t0.Add(time.Hour)); len(got) != 2 {
		t.Fatalf("departures in (t0, t0+1h]: %v", ids(got))
	}
	if got := f.Outgoing(t0.Add(time.Hour), t0.Add(90*time.Minute)); len(got) != 0 {
		t.Fatalf("upper bound is inclusive, lower exclusive: %v", ids(got))
	}
	if _, ok := f.Vehicle("a"); !ok || f.Len() != 3 {
		t.Fatalf("lookup failed")
	}
}

func TestFleet_Errors(t *testing.T) {
	if _, err := New([]*model.Vehicle{veh("a", 0, time.Hour), veh("a", 0, time.Hour)}); err == nil {
		t.Fatal("expected duplicate id error")
	}
	if _, err := New([]*model.Vehicle{veh("a", time.Hour, time.Hour)}); err == nil {
		t.Fatal("expected invalid window error")
	}
}

func TestFleet_ResetRestoresInitialState(t *testing.T) {
	v := veh("a", 0, time.Hour)
	f, err := New([]*model.Vehicle{v})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	v.Connect(t0)
	if err := v.Charge(t0, time.Hour, 11); err != nil {
		t.Fatalf("charge: %v", err)
	}
	v.Admitted = true
	f.Reset()
	if v.Admitted || v.SoC.Len() != 0 || v.CurrentSoC() != 0.5 {
		t.Fatalf("reset did not restore state")
	}
}
