// Package fleet indexes the vehicles of a scenario by arrival and departure
// instant.
package fleet

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/evcharge/core/model"
)

type bucket struct {
	at       time.Time
	vehicles []*model.Vehicle
}

// Fleet owns the vehicles of a run. Each vehicle sits in exactly one
// arrival bucket and one departure bucket; order inside a bucket follows the
// scenario order.
type Fleet struct {
	vehicles   []*model.Vehicle
	byID       map[string]*model.Vehicle
	arrivals   []bucket
	departures []bucket
}

// New validates the vehicles, resets their run state and builds the indices.
func New(vehicles []*model.Vehicle) (*Fleet, error) {
	f := &Fleet{byID: make(map[string]*model.Vehicle, len(vehicles))}
	arr := map[int64]*bucket{}
	dep := map[int64]*bucket{}
	for _, v := range vehicles {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		if _, dup := f.byID[v.ID]; dup {
			return nil, fmt.Errorf("duplicate vehicle %s", v.ID)
		}
		v.Reset()
		f.byID[v.ID] = v
		f.vehicles = append(f.vehicles, v)
		addTo(arr, v.Arrival, v)
		addTo(dep, v.Departure, v)
	}
	f.arrivals = sorted(arr)
	f.departures = sorted(dep)
	return f, nil
}

func addTo(m map[int64]*bucket, t time.Time, v *model.Vehicle) {
	k := t.UnixNano()
	b, ok := m[k]
	if !ok {
		b = &bucket{at: t}
		m[k] = b
	}
	b.vehicles = append(b.vehicles, v)
}

func sorted(m map[int64]*bucket) []bucket {
	out := make([]bucket, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })
	return out
}

func exact(bs []bucket, t time.Time) []*model.Vehicle {
	i := sort.Search(len(bs), func(i int) bool { return !bs[i].at.Before(t) })
	if i < len(bs) && bs[i].at.Equal(t) {
		return append([]*model.Vehicle(nil), bs[i].vehicles...)
	}
	return nil
}

// IncomingAt returns the vehicles arriving exactly at t.
func (f *Fleet) IncomingAt(t time.Time) []*model.Vehicle { return exact(f.arrivals, t) }

// OutgoingAt returns the vehicles departing exactly at t.
func (f *Fleet) OutgoingAt(t time.Time) []*model.Vehicle { return exact(f.departures, t) }

// Incoming returns the vehicles arriving in [from, to).
func (f *Fleet) Incoming(from, to time.Time) []*model.Vehicle {
	var out []*model.Vehicle
	i := sort.Search(len(f.arrivals), func(i int) bool { return !f.arrivals[i].at.Before(from) })
	for ; i < len(f.arrivals) && f.arrivals[i].at.Before(to); i++ {
		out = append(out, f.arrivals[i].vehicles...)
	}
	return out
}

// Arrived returns the vehicles arriving in (from, to].
func (f *Fleet) Arrived(from, to time.Time) []*model.Vehicle { return leftOpen(f.arrivals, from, to) }

// Outgoing returns the vehicles departing in (from, to].
func (f *Fleet) Outgoing(from, to time.Time) []*model.Vehicle { return leftOpen(f.departures, from, to) }

func leftOpen(bs []bucket, from, to time.Time) []*model.Vehicle {
	var out []*model.Vehicle
	i := sort.Search(len(bs), func(i int) bool { return bs[i].at.After(from) })
	for ; i < len(bs) && !bs[i].at.After(to); i++ {
		out = append(out, bs[i].vehicles...)
	}
	return out
}

// Vehicle looks up a vehicle by id.
func (f *Fleet) Vehicle(id string) (*model.Vehicle, bool) {
	v, ok := f.byID[id]
	return v, ok
}

// Vehicles returns every vehicle in scenario order.
func (f *Fleet) Vehicles() []*model.Vehicle {
	return append([]*model.Vehicle(nil), f.vehicles...)
}

// Len returns the fleet size.
func (f *Fleet) Len() int { return len(f.vehicles) }

// Reset clears the run state of every vehicle so the fleet can be replayed.
func (f *Fleet) Reset() {
	for _, v := range f.vehicles {
		v.Reset()
	}
}
