package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

func TestSeries_SetKeepsOrder(t *testing.T) {
	s := &Series{}
	s.Set(t0.Add(30*time.Minute), 3)
	s.Set(t0, 1)
	s.Set(t0.Add(15*time.Minute), 2)
	s.Set(t0.Add(15*time.Minute), 5)

	assert.Equal(t, []float64{1, 5, 3}, s.Values())
	v, ok := s.At(t0.Add(15 * time.Minute))
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
	_, ok = s.At(t0.Add(time.Minute))
	assert.False(t, ok)
}

func TestSeries_RangeHalfOpen(t *testing.T) {
	s := Uniform(t0, 15*time.Minute, []float64{1, 2, 3, 4})
	pts := s.Range(t0.Add(15*time.Minute), t0.Add(45*time.Minute))
	require.Len(t, pts, 2)
	assert.Equal(t, 2.0, pts[0].Value)
	assert.Equal(t, 3.0, pts[1].Value)
	assert.Empty(t, s.Range(t0.Add(time.Hour), t0))
}

func TestSeries_StepValue(t *testing.T) {
	s := New(Point{Time: t0, Value: 10}, Point{Time: t0.Add(time.Hour), Value: 20})
	v, ok := s.StepValue(t0.Add(30 * time.Minute))
	require.True(t, ok)
	assert.Equal(t, 10.0, v)
	v, _ = s.StepValue(t0.Add(2 * time.Hour))
	assert.Equal(t, 20.0, v)
	_, ok = s.StepValue(t0.Add(-time.Minute))
	assert.False(t, ok)
}

func TestSeries_AddAndTruncate(t *testing.T) {
	a := Uniform(t0, time.Hour, []float64{1, 1})
	b := Uniform(t0.Add(time.Hour), time.Hour, []float64{2, 2})
	sum := a.Add(b)
	assert.Equal(t, []float64{1, 3, 2}, sum.Values())
	assert.Equal(t, []float64{1, 1}, a.Values())

	sum.Truncate(t0.Add(time.Hour))
	assert.Equal(t, 1, sum.Len())
	last, ok := sum.Last()
	require.True(t, ok)
	assert.True(t, last.Time.Equal(t0))
}

func TestSeries_NilSafe(t *testing.T) {
	var s *Series
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Points())
	assert.Equal(t, 0.0, s.ValueAt(t0))
	assert.Equal(t, 0, s.Clone().Len())
}

func TestSeries_SumMax(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Uniform(base, time.Minute, []float64{2, 7, 1})
	if s.Sum() != 10 || s.Max() != 7 {
		t.Fatalf("got sum %v max %v", s.Sum(), s.Max())
	}
	var empty *Series
	if empty.Sum() != 0 || empty.Max() != 0 {
		t.Fatal("empty series must reduce to zero")
	}
}
