package facility

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kilianp07/evcharge/core/timeseries"
)

// System is the directory of clusters of a charging facility. It routes
// queries and holds no admission logic.
type System struct {
	clusters map[string]*Cluster
	ids      []string
}

// NewSystem indexes the clusters by id.
func NewSystem(clusters ...*Cluster) (*System, error) {
	s := &System{clusters: make(map[string]*Cluster, len(clusters))}
	for _, c := range clusters {
		if _, dup := s.clusters[c.ID]; dup {
			return nil, fmt.Errorf("duplicate cluster %s", c.ID)
		}
		s.clusters[c.ID] = c
		s.ids = append(s.ids, c.ID)
	}
	sort.Strings(s.ids)
	return s, nil
}

// Cluster looks up a cluster by id.
func (s *System) Cluster(id string) (*Cluster, error) {
	c, ok := s.clusters[id]
	if !ok {
		return nil, fmt.Errorf("cluster %s: %w", id, ErrUnknownCluster)
	}
	return c, nil
}

// Unit resolves a unit through its cluster.
func (s *System) Unit(clusterID, unitID string) (*ChargingUnit, error) {
	c, err := s.Cluster(clusterID)
	if err != nil {
		return nil, err
	}
	return c.Unit(unitID)
}

// IDs returns the cluster ids in ascending order.
func (s *System) IDs() []string { return append([]string(nil), s.ids...) }

// Clusters returns the clusters ordered by id.
func (s *System) Clusters() []*Cluster {
	out := make([]*Cluster, len(s.ids))
	for i, id := range s.ids {
		out[i] = s.clusters[id]
	}
	return out
}

// Occupations broadcasts Cluster.Occupations.
func (s *System) Occupations(ts time.Time, dt, horizon time.Duration) map[string][]int {
	out := make(map[string][]int, len(s.ids))
	for _, c := range s.Clusters() {
		out[c.ID] = c.Occupations(ts, dt, horizon)
	}
	return out
}

// ScheduledPower broadcasts Cluster.ScheduledPower.
func (s *System) ScheduledPower() map[string]*timeseries.Series {
	out := make(map[string]*timeseries.Series, len(s.ids))
	for _, c := range s.Clusters() {
		out[c.ID] = c.ScheduledPower()
	}
	return out
}

// Datasets returns the audit rows of every cluster.
func (s *System) Datasets() map[string][]AuditRow {
	out := make(map[string][]AuditRow, len(s.ids))
	for _, c := range s.Clusters() {
		out[c.ID] = c.Dataset()
	}
	return out
}

// MaxChargeKW returns the highest charge limit over all units.
func (s *System) MaxChargeKW() float64 {
	var m float64
	for _, c := range s.Clusters() {
		for _, u := range c.units {
			m = math.Max(m, u.MaxChargeKW)
		}
	}
	return m
}

// MaxDischargeKW returns the highest discharge limit over all units.
func (s *System) MaxDischargeKW() float64 {
	var m float64
	for _, c := range s.Clusters() {
		for _, u := range c.units {
			m = math.Max(m, u.MaxDischargeKW)
		}
	}
	return m
}
