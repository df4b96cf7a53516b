// Package scenario loads fleets, cluster topologies and cost coefficients
// from YAML or JSON files.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evcharge/core/facility"
	"github.com/kilianp07/evcharge/core/fleet"
	"github.com/kilianp07/evcharge/core/model"
	"github.com/kilianp07/evcharge/core/timeseries"
)

// VehicleDef is one vehicle record. Field names follow the scenario
// spreadsheet columns.
type VehicleDef struct {
	ID            string         `json:"vehicle_id" yaml:"vehicle_id"`
	BatteryKWh    float64        `json:"battery_capacity_kwh" yaml:"battery_capacity_kwh"`
	MaxChargeKW   float64        `json:"p_max_ch_kw" yaml:"p_max_ch_kw"`
	MaxDischarge  float64        `json:"p_max_ds_kw" yaml:"p_max_ds_kw"`
	MinSoC        float64        `json:"min_soc" yaml:"min_soc"`
	MaxSoC        *float64       `json:"max_soc" yaml:"max_soc"`
	Arrival       time.Time      `json:"t_arr_real" yaml:"t_arr_real"`
	Departure     time.Time      `json:"t_dep_est" yaml:"t_dep_est"`
	InitialSoC    float64        `json:"initial_soc" yaml:"initial_soc"`
	TargetSoC     float64        `json:"target_soc,omitempty" yaml:"target_soc,omitempty"`
	ClusterTarget string         `json:"cluster_target,omitempty" yaml:"cluster_target,omitempty"`
	Derating      model.Derating `json:"derating,omitempty" yaml:"derating,omitempty"`
}

// ToModel converts the definition. MaxSoC defaults to 1.
func (v VehicleDef) ToModel() *model.Vehicle {
	maxSoC := 1.0
	if v.MaxSoC != nil {
		maxSoC = *v.MaxSoC
	}
	return &model.Vehicle{
		ID:             v.ID,
		BatteryKWh:     v.BatteryKWh,
		MaxChargeKW:    v.MaxChargeKW,
		MaxDischargeKW: v.MaxDischarge,
		MinSoC:         v.MinSoC,
		MaxSoC:         maxSoC,
		InitialSoC:     v.InitialSoC,
		TargetSoC:      v.TargetSoC,
		Arrival:        v.Arrival,
		Departure:      v.Departure,
		ClusterTarget:  v.ClusterTarget,
		Derating:       v.Derating,
	}
}

// UnitDef declares a charging unit and its power limits.
type UnitDef struct {
	ID           string  `json:"cu_id" yaml:"cu_id"`
	MaxChargeKW  float64 `json:"p_max_ch_kw" yaml:"p_max_ch_kw"`
	MaxDischarge float64 `json:"p_max_ds_kw" yaml:"p_max_ds_kw"`
}

// PointDef is one sample of a time-indexed input.
type PointDef struct {
	Time  time.Time `json:"time" yaml:"time"`
	Value float64   `json:"value" yaml:"value"`
}

// ClusterDef declares a cluster, its capacity envelope and its units.
// Without capacity samples the envelope is the installed capacity.
type ClusterDef struct {
	ID          string     `json:"cluster_id" yaml:"cluster_id"`
	InstalledKW float64    `json:"installed_capacity_kw" yaml:"installed_capacity_kw"`
	Capacity    []PointDef `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	Units       []UnitDef  `json:"units,omitempty" yaml:"units,omitempty"`
	// Count adds identical units named <cluster_id>-<n> using the
	// unit limits below.
	Count        int     `json:"count,omitempty" yaml:"count,omitempty"`
	MaxChargeKW  float64 `json:"p_max_ch_kw,omitempty" yaml:"p_max_ch_kw,omitempty"`
	MaxDischarge float64 `json:"p_max_ds_kw,omitempty" yaml:"p_max_ds_kw,omitempty"`
}

// ToModel builds the cluster and its units.
func (c ClusterDef) ToModel() (*facility.Cluster, error) {
	var units []*facility.ChargingUnit
	for _, u := range c.Units {
		units = append(units, facility.NewChargingUnit(u.ID, u.MaxChargeKW, u.MaxDischarge))
	}
	for i := 1; i <= c.Count; i++ {
		units = append(units, facility.NewChargingUnit(fmt.Sprintf("%s-%d", c.ID, i), c.MaxChargeKW, c.MaxDischarge))
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("cluster %s: no charging units", c.ID)
	}
	return facility.NewCluster(c.ID, c.InstalledKW, series(c.Capacity), units...)
}

// Expected holds the outcome a scenario is checked against in tests.
type Expected struct {
	Admitted int `json:"admitted" yaml:"admitted"`
	Rejected int `json:"rejected" yaml:"rejected"`
}

// Scenario is a complete input: the fleet, the facility topology and the
// optional cost curve used by the cost-aware planner.
type Scenario struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Vehicles    []VehicleDef `json:"vehicles" yaml:"vehicles"`
	Clusters    []ClusterDef `json:"clusters" yaml:"clusters"`
	Costs       []PointDef   `json:"costs,omitempty" yaml:"costs,omitempty"`
	Expected    *Expected    `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// Load reads a scenario file. Files ending in .json are decoded as JSON,
// anything else as YAML.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	sc, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a scenario document in the given format, yaml or json.
func Parse(data []byte, format string) (*Scenario, error) {
	var sc Scenario
	var err error
	switch format {
	case "json":
		err = json.Unmarshal(data, &sc)
	case "yaml", "yml", "":
		err = yaml.Unmarshal(data, &sc)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if len(sc.Clusters) == 0 {
		return nil, fmt.Errorf("no clusters defined")
	}
	return &sc, nil
}

// Fleet builds a fleet from the vehicle definitions. Every call returns
// fresh vehicles.
func (s *Scenario) Fleet() (*fleet.Fleet, error) {
	vehicles := make([]*model.Vehicle, 0, len(s.Vehicles))
	for _, v := range s.Vehicles {
		vehicles = append(vehicles, v.ToModel())
	}
	return fleet.New(vehicles)
}

// System builds a fresh charging system from the topology.
func (s *Scenario) System() (*facility.System, error) {
	clusters := make([]*facility.Cluster, 0, len(s.Clusters))
	for _, c := range s.Clusters {
		cl, err := c.ToModel()
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, cl)
	}
	return facility.NewSystem(clusters...)
}

// CostSeries returns the cost coefficients, nil when none are given.
func (s *Scenario) CostSeries() (*timeseries.Series, error) {
	for i, p := range s.Costs {
		if p.Value < 0 {
			return nil, fmt.Errorf("cost %d at %s is negative", i, p.Time.Format(time.RFC3339))
		}
	}
	return series(s.Costs), nil
}

func series(points []PointDef) *timeseries.Series {
	if len(points) == 0 {
		return nil
	}
	out := &timeseries.Series{}
	for _, p := range points {
		out.Set(p.Time, p.Value)
	}
	return out
}

// Window returns the grid-aligned span covering every arrival and departure
// of the fleet.
func (s *Scenario) Window(step time.Duration) (start, end time.Time, ok bool) {
	for i, v := range s.Vehicles {
		if i == 0 || v.Arrival.Before(start) {
			start = v.Arrival
		}
		if i == 0 || v.Departure.After(end) {
			end = v.Departure
		}
	}
	if len(s.Vehicles) == 0 || step <= 0 {
		return time.Time{}, time.Time{}, false
	}
	start = start.Truncate(step)
	if t := end.Truncate(step); t.Before(end) {
		end = t.Add(step)
	}
	return start, end, true
}
