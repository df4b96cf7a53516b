// Package timeseries provides an ordered instant -> value mapping used for
// SoC trajectories, power setpoints, capacity curves and cost coefficients.
package timeseries

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Point is one sample of a Series.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series keeps its points sorted by instant. The zero value is an empty
// series ready for use.
type Series struct {
	points []Point
}

// New returns a series holding the given points. Later duplicates overwrite
// earlier ones.
func New(points ...Point) *Series {
	s := &Series{}
	for _, p := range points {
		s.Set(p.Time, p.Value)
	}
	return s
}

// Uniform builds a series starting at start with one value per step.
func Uniform(start time.Time, step time.Duration, values []float64) *Series {
	s := &Series{points: make([]Point, len(values))}
	for i, v := range values {
		s.points[i] = Point{Time: start.Add(time.Duration(i) * step), Value: v}
	}
	return s
}

// search returns the index of the first point at or after t.
func (s *Series) search(t time.Time) int {
	return sort.Search(len(s.points), func(i int) bool { return !s.points[i].Time.Before(t) })
}

// Set stores v at t, replacing any existing sample at that instant.
func (s *Series) Set(t time.Time, v float64) {
	n := len(s.points)
	if n == 0 || s.points[n-1].Time.Before(t) {
		s.points = append(s.points, Point{Time: t, Value: v})
		return
	}
	i := s.search(t)
	if i < n && s.points[i].Time.Equal(t) {
		s.points[i].Value = v
		return
	}
	s.points = append(s.points, Point{})
	copy(s.points[i+1:], s.points[i:])
	s.points[i] = Point{Time: t, Value: v}
}

// At returns the value stored exactly at t.
func (s *Series) At(t time.Time) (float64, bool) {
	if s == nil {
		return 0, false
	}
	i := s.search(t)
	if i < len(s.points) && s.points[i].Time.Equal(t) {
		return s.points[i].Value, true
	}
	return 0, false
}

// ValueAt returns the value at t or zero when absent.
func (s *Series) ValueAt(t time.Time) float64 {
	v, _ := s.At(t)
	return v
}

// StepValue returns the last value at or before t (a step function). ok is
// false when no sample precedes t.
func (s *Series) StepValue(t time.Time) (float64, bool) {
	if s == nil {
		return 0, false
	}
	i := s.search(t)
	if i < len(s.points) && s.points[i].Time.Equal(t) {
		return s.points[i].Value, true
	}
	if i == 0 {
		return 0, false
	}
	return s.points[i-1].Value, true
}

// Range returns a copy of the points in [from, to).
func (s *Series) Range(from, to time.Time) []Point {
	if s == nil {
		return nil
	}
	lo := s.search(from)
	hi := s.search(to)
	if hi <= lo {
		return nil
	}
	return append([]Point(nil), s.points[lo:hi]...)
}

// Truncate drops every point at or after t.
func (s *Series) Truncate(t time.Time) {
	s.points = s.points[:s.search(t)]
}

// Points returns a copy of all points in order.
func (s *Series) Points() []Point {
	if s == nil {
		return nil
	}
	return append([]Point(nil), s.points...)
}

// Values returns the values in instant order.
func (s *Series) Values() []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value
	}
	return out
}

// Len returns the number of samples.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// First returns the earliest point.
func (s *Series) First() (Point, bool) {
	if s.Len() == 0 {
		return Point{}, false
	}
	return s.points[0], true
}

// Last returns the latest point.
func (s *Series) Last() (Point, bool) {
	if s.Len() == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}

// Clone returns an independent copy.
func (s *Series) Clone() *Series {
	return &Series{points: s.Points()}
}

// Add returns a new series holding s+o over the union of instants. Missing
// samples count as zero.
func (s *Series) Add(o *Series) *Series {
	out := s.Clone()
	for _, p := range o.Points() {
		out.Set(p.Time, out.ValueAt(p.Time)+p.Value)
	}
	return out
}

// Sum returns the sum of the values.
func (s *Series) Sum() float64 { return floats.Sum(s.Values()) }

// Max returns the largest value, 0 for an empty series.
func (s *Series) Max() float64 {
	if s.Len() == 0 {
		return 0
	}
	return floats.Max(s.Values())
}
