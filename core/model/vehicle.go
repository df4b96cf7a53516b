package model

import (
	"fmt"
	"time"

	"github.com/kilianp07/evcharge/core/timeseries"
)

// socTolerance absorbs floating point drift when checking SoC bounds.
const socTolerance = 1e-9

// Vehicle represents an electric vehicle visiting the charging facility.
// Identity and limits are set by the scenario source; the remaining fields
// are mutated by the simulation loop.
type Vehicle struct {
	ID             string
	BatteryKWh     float64 // nominal battery capacity in kWh
	MaxChargeKW    float64 // maximum grid-to-vehicle power
	MaxDischargeKW float64 // maximum vehicle-to-grid power, 0 disables V2G
	MinSoC         float64
	MaxSoC         float64
	InitialSoC     float64
	TargetSoC      float64 // SoC wanted at departure, MaxSoC when zero
	Arrival        time.Time
	Departure      time.Time // estimated departure
	ClusterTarget  string    // optional pre-declared cluster
	Derating       Derating  // optional charge power derating vs SoC

	// Admitted reports whether the vehicle obtained a charging unit.
	Admitted bool
	// Infeasible is set when the planner could not reach TargetSoC.
	Infeasible bool
	// ReservationID, ClusterID and UnitID reference the reservation held
	// while connected. They are cleared at departure.
	ReservationID string
	ClusterID     string
	UnitID        string

	SoC *timeseries.Series
	G2V *timeseries.Series
	V2G *timeseries.Series

	energyKWs  float64 // stored energy in kW·s
	arrivalKWs float64 // stored energy when connected
	connected  bool
	lifecycle  *Lifecycle
}

// Validate checks that the vehicle definition is sound.
func (v *Vehicle) Validate() error {
	switch {
	case v.ID == "":
		return fmt.Errorf("vehicle id is required")
	case v.BatteryKWh <= 0:
		return fmt.Errorf("vehicle %s: battery capacity must be positive", v.ID)
	case v.MaxChargeKW < 0 || v.MaxDischargeKW < 0:
		return fmt.Errorf("vehicle %s: power limits must be non-negative", v.ID)
	case v.MinSoC < 0 || v.MaxSoC > 1 || v.MinSoC > v.MaxSoC:
		return fmt.Errorf("vehicle %s: invalid SoC bounds [%g,%g]", v.ID, v.MinSoC, v.MaxSoC)
	case v.InitialSoC < v.MinSoC || v.InitialSoC > v.MaxSoC:
		return fmt.Errorf("vehicle %s: initial SoC %g outside [%g,%g]", v.ID, v.InitialSoC, v.MinSoC, v.MaxSoC)
	case v.TargetSoC < 0 || v.TargetSoC > 1:
		return fmt.Errorf("vehicle %s: target SoC %g outside [0,1]", v.ID, v.TargetSoC)
	case !v.Departure.After(v.Arrival):
		return fmt.Errorf("vehicle %s: departure must be after arrival", v.ID)
	}
	return v.Derating.Validate()
}

// Reset prepares the mutable state for a new simulation run.
func (v *Vehicle) Reset() {
	v.Admitted = false
	v.Infeasible = false
	v.ReservationID, v.ClusterID, v.UnitID = "", "", ""
	v.SoC = &timeseries.Series{}
	v.G2V = &timeseries.Series{}
	v.V2G = &timeseries.Series{}
	v.energyKWs = v.InitialSoC * v.capacityKWs()
	v.arrivalKWs = v.energyKWs
	v.connected = false
	v.lifecycle = NewLifecycle(v.ID)
}

// Lifecycle returns the vehicle state machine, creating it on first use.
func (v *Vehicle) Lifecycle() *Lifecycle {
	if v.lifecycle == nil {
		v.Reset()
	}
	return v.lifecycle
}

func (v *Vehicle) capacityKWs() float64 { return v.BatteryKWh * 3600 }

// Target returns the SoC the vehicle should reach before departure.
func (v *Vehicle) Target() float64 {
	if v.TargetSoC == 0 {
		return v.MaxSoC
	}
	return v.TargetSoC
}

// CanDischarge reports whether the vehicle accepts V2G setpoints.
func (v *Vehicle) CanDischarge() bool { return v.MaxDischargeKW > 0 }

// CurrentSoC returns the present state of charge.
func (v *Vehicle) CurrentSoC() float64 {
	c := v.capacityKWs()
	if c == 0 {
		return 0
	}
	return v.energyKWs / c
}

// EnergyKWh returns the stored energy in kWh.
func (v *Vehicle) EnergyKWh() float64 { return v.energyKWs / 3600 }

// DeliveredKWh returns the net energy transferred since connection.
func (v *Vehicle) DeliveredKWh() float64 { return (v.energyKWs - v.arrivalKWs) / 3600 }

// ArrivalSoC returns the SoC recorded when the vehicle connected.
func (v *Vehicle) ArrivalSoC() float64 { return v.arrivalKWs / v.capacityKWs() }

// Connect records the first SoC sample at ts.
func (v *Vehicle) Connect(ts time.Time) {
	if v.SoC == nil {
		v.Reset()
	}
	v.connected = true
	v.arrivalKWs = v.energyKWs
	v.SoC.Set(ts, v.CurrentSoC())
}

// Disconnect marks the vehicle as unplugged.
func (v *Vehicle) Disconnect() { v.connected = false }

// Connected reports whether the vehicle is plugged into a unit.
func (v *Vehicle) Connected() bool { return v.connected }

// Limits returns the charge and discharge power the vehicle can accept for
// a step of length dt, accounting for derating and battery headroom.
func (v *Vehicle) Limits(dt time.Duration) (float64, float64) {
	secs := dt.Seconds()
	if secs <= 0 {
		return 0, 0
	}
	soc := v.CurrentSoC()
	maxCh := v.MaxChargeKW * v.Derating.Factor(soc)
	if head := (v.MaxSoC*v.capacityKWs() - v.energyKWs) / secs; head < maxCh {
		maxCh = head
	}
	maxDs := v.MaxDischargeKW
	if floor := (v.energyKWs - v.MinSoC*v.capacityKWs()) / secs; floor < maxDs {
		maxDs = floor
	}
	if maxCh < 0 {
		maxCh = 0
	}
	if maxDs < 0 {
		maxDs = 0
	}
	return maxCh, maxDs
}

// Charge applies power p (kW, positive charges) during [ts, ts+dt) and
// records the resulting sample at ts+dt.
func (v *Vehicle) Charge(ts time.Time, dt time.Duration, p float64) error {
	if v.SoC == nil {
		v.Reset()
	}
	next := v.energyKWs + p*dt.Seconds()
	soc := next / v.capacityKWs()
	if soc < v.MinSoC-socTolerance || soc > v.MaxSoC+socTolerance {
		return &OutOfRangeError{VehicleID: v.ID, Time: ts, Quantity: "soc", Value: soc, Min: v.MinSoC, Max: v.MaxSoC}
	}
	g2v, v2g := 0.0, 0.0
	if p > 0 {
		g2v = p
	} else if p < 0 {
		v2g = -p
	}
	if _, ok := v.SoC.At(ts); !ok {
		v.SoC.Set(ts, v.CurrentSoC())
	}
	v.G2V.Set(ts, g2v)
	v.V2G.Set(ts, v2g)
	v.energyKWs = next
	v.SoC.Set(ts.Add(dt), soc)
	return nil
}
