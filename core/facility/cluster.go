package facility

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kilianp07/evcharge/core/model"
	"github.com/kilianp07/evcharge/core/timeseries"
)

type plannedTrajectory struct {
	power       *timeseries.Series
	soc         *timeseries.Series
	capacityKWh float64
}

// Cluster groups charging units sharing an installed power envelope. It
// aggregates availability, occupation and schedules over its units and keeps
// the audit dataset of admitted vehicles.
type Cluster struct {
	ID string

	units       []*ChargingUnit
	byID        map[string]*ChargingUnit
	installedKW float64
	capacity    *timeseries.Series
	schedules   map[string]plannedTrajectory
	dataset     []AuditRow
	open        map[string]int
}

// NewCluster builds a cluster. capacity is optional; when set it overrides
// the installed envelope at the instants it covers. When installedKW is zero
// the nominal envelope is the peak of capacity.
func NewCluster(id string, installedKW float64, capacity *timeseries.Series, units ...*ChargingUnit) (*Cluster, error) {
	if id == "" {
		return nil, fmt.Errorf("cluster id is required")
	}
	c := &Cluster{
		ID:          id,
		byID:        make(map[string]*ChargingUnit, len(units)),
		installedKW: installedKW,
		capacity:    capacity,
		schedules:   make(map[string]plannedTrajectory),
		open:        make(map[string]int),
	}
	if c.installedKW == 0 {
		c.installedKW = capacity.Max()
	}
	if c.installedKW <= 0 {
		return nil, fmt.Errorf("cluster %s: installed capacity must be positive", id)
	}
	for _, u := range units {
		if _, dup := c.byID[u.ID]; dup {
			return nil, fmt.Errorf("cluster %s: duplicate unit %s", id, u.ID)
		}
		u.ClusterID = id
		c.byID[u.ID] = u
		c.units = append(c.units, u)
	}
	sort.Slice(c.units, func(i, j int) bool { return c.units[i].ID < c.units[j].ID })
	return c, nil
}

// Units returns the units ordered by id.
func (c *Cluster) Units() []*ChargingUnit {
	return append([]*ChargingUnit(nil), c.units...)
}

// Unit looks up a unit by id.
func (c *Cluster) Unit(id string) (*ChargingUnit, error) {
	u, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("cluster %s: unit %s: %w", c.ID, id, ErrUnknownUnit)
	}
	return u, nil
}

// Size returns the number of units.
func (c *Cluster) Size() int { return len(c.units) }

// InstalledCapacity returns the nominal power envelope in kW.
func (c *Cluster) InstalledCapacity() float64 { return c.installedKW }

// CapacityAt returns the envelope in force at t.
func (c *Cluster) CapacityAt(t time.Time) float64 {
	if v, ok := c.capacity.StepValue(t); ok {
		return v
	}
	return c.installedKW
}

// QueryAvailability returns the units whose calendar is free over the
// whole of [ts, until), ordered by id.
func (c *Cluster) QueryAvailability(ts, until time.Time, dt time.Duration) []*ChargingUnit {
	var out []*ChargingUnit
	for _, u := range c.units {
		free := true
		for _, ok := range u.Availability(ts, until, dt) {
			if !ok {
				free = false
				break
			}
		}
		if free {
			out = append(out, u)
		}
	}
	return out
}

func steps(dt, horizon time.Duration) int {
	if dt <= 0 || horizon <= 0 {
		return 0
	}
	return int((horizon + dt - 1) / dt)
}

// Occupations returns, per step of [ts, ts+horizon), the number of units
// holding a reservation over that step.
func (c *Cluster) Occupations(ts time.Time, dt, horizon time.Duration) []int {
	out := make([]int, steps(dt, horizon))
	for i := range out {
		t := ts.Add(time.Duration(i) * dt)
		for _, u := range c.units {
			if !u.IsFree(t, t.Add(dt)) {
				out[i]++
			}
		}
	}
	return out
}

// OccupationAt returns the number of units reserved at t.
func (c *Cluster) OccupationAt(t time.Time) int {
	n := 0
	for _, u := range c.units {
		if u.ReservedAt(t) {
			n++
		}
	}
	return n
}

// ReservedCapacity returns, per step, the summed charge limits of reserved units.
func (c *Cluster) ReservedCapacity(ts time.Time, dt, horizon time.Duration) []float64 {
	out := make([]float64, steps(dt, horizon))
	for i := range out {
		t := ts.Add(time.Duration(i) * dt)
		for _, u := range c.units {
			if !u.IsFree(t, t.Add(dt)) {
				out[i] += u.MaxChargeKW
			}
		}
	}
	return out
}

// ConnectedUnits returns the units with a plugged vehicle, ordered by id.
func (c *Cluster) ConnectedUnits() []*ChargingUnit {
	var out []*ChargingUnit
	for _, u := range c.units {
		if u.Connected() {
			out = append(out, u)
		}
	}
	return out
}

// ConnectedCount returns the number of connected units.
func (c *Cluster) ConnectedCount() int { return len(c.ConnectedUnits()) }

// Reserve books [start, end) on the selected unit for v.
func (c *Cluster) Reserve(placedAt, start, end time.Time, v *model.Vehicle, unitID string) (string, error) {
	u, err := c.Unit(unitID)
	if err != nil {
		return "", err
	}
	id, err := u.Reserve(placedAt, start, end, v)
	if err != nil {
		return "", fmt.Errorf("cluster %s: %w", c.ID, err)
	}
	return id, nil
}

// Unreserve removes the reservation from whichever unit issued it.
func (c *Cluster) Unreserve(ts time.Time, id string) error {
	for _, u := range c.units {
		if u.Issued(id) {
			return u.Unreserve(id)
		}
	}
	return &UnknownReservationError{ReservationID: id}
}

// PublishSchedule stores the planned trajectory of v, replacing any earlier one.
func (c *Cluster) PublishSchedule(v *model.Vehicle, power, soc *timeseries.Series) {
	c.schedules[v.ID] = plannedTrajectory{power: power.Clone(), soc: soc.Clone(), capacityKWh: v.BatteryKWh}
}

// WithdrawSchedule forgets the trajectory of the vehicle.
func (c *Cluster) WithdrawSchedule(vehicleID string) { delete(c.schedules, vehicleID) }

// PlannedSetpoint returns the published setpoint of the vehicle at ts.
func (c *Cluster) PlannedSetpoint(vehicleID string, ts time.Time) (float64, bool) {
	tr, ok := c.schedules[vehicleID]
	if !ok {
		return 0, false
	}
	return tr.power.At(ts)
}

func (c *Cluster) scheduledIDs() []string {
	ids := make([]string, 0, len(c.schedules))
	for id := range c.schedules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ScheduledPower returns the planned load summed over connected vehicles.
func (c *Cluster) ScheduledPower() *timeseries.Series {
	out := &timeseries.Series{}
	for _, id := range c.scheduledIDs() {
		out = out.Add(c.schedules[id].power)
	}
	return out
}

// ScheduledSoC returns the capacity-weighted planned SoC of the connected
// vehicles at every planned instant.
func (c *Cluster) ScheduledSoC() *timeseries.Series {
	energy := &timeseries.Series{}
	capacity := &timeseries.Series{}
	for _, id := range c.scheduledIDs() {
		tr := c.schedules[id]
		for _, p := range tr.soc.Points() {
			energy.Set(p.Time, energy.ValueAt(p.Time)+p.Value*tr.capacityKWh)
			capacity.Set(p.Time, capacity.ValueAt(p.Time)+tr.capacityKWh)
		}
	}
	out := &timeseries.Series{}
	for _, p := range energy.Points() {
		if cp := capacity.ValueAt(p.Time); cp > 0 {
			out.Set(p.Time, p.Value/cp)
		}
	}
	return out
}

// Violations returns, per step of [ts, ts+horizon), the scheduled load in
// excess of the envelope.
func (c *Cluster) Violations(ts time.Time, dt, horizon time.Duration) []float64 {
	load := c.ScheduledPower()
	out := make([]float64, steps(dt, horizon))
	for i := range out {
		t := ts.Add(time.Duration(i) * dt)
		out[i] = math.Max(0, load.ValueAt(t)-c.CapacityAt(t))
	}
	return out
}

// EnterIncoming appends an audit row for an admitted vehicle.
func (c *Cluster) EnterIncoming(ts time.Time, v *model.Vehicle, u *ChargingUnit) {
	c.open[v.ID] = len(c.dataset)
	c.dataset = append(c.dataset, AuditRow{
		ReservationID: v.ReservationID,
		VehicleID:     v.ID,
		Arrival:       ts,
		UnitID:        u.ID,
		ArrivalSoC:    v.CurrentSoC(),
	})
}

// EnterOutgoing completes the audit row of a departing vehicle.
func (c *Cluster) EnterOutgoing(ts time.Time, v *model.Vehicle) error {
	i, ok := c.open[v.ID]
	if !ok {
		return fmt.Errorf("cluster %s: vehicle %s: %w", c.ID, v.ID, ErrUnknownVehicle)
	}
	delete(c.open, v.ID)
	row := &c.dataset[i]
	row.Departure = ts
	row.DepartureSoC = v.CurrentSoC()
	row.DeliveredKWh = v.DeliveredKWh()
	return nil
}

// Dataset returns the audit rows in admission order.
func (c *Cluster) Dataset() []AuditRow {
	return append([]AuditRow(nil), c.dataset...)
}
