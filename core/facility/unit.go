package facility

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evcharge/core/model"
	"github.com/kilianp07/evcharge/core/timeseries"
)

// clampTolerance is the setpoint deviation below which a supply is not
// reported as clamped.
const clampTolerance = 1e-9

var reservationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("evcharge/reservation"))

// Reservation is a half-open window [Start, End) on a unit committed to a vehicle.
type Reservation struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicle_id"`
	PlacedAt  time.Time `json:"placed_at"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// Overlaps reports whether the reservation intersects [start, end).
func (r Reservation) Overlaps(start, end time.Time) bool {
	return r.Start.Before(end) && start.Before(r.End)
}

// Covers reports whether t lies inside the reservation.
func (r Reservation) Covers(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// SupplyResult describes the outcome of one dispatch step.
type SupplyResult struct {
	Requested float64
	Applied   float64
	Clamped   bool
}

// ChargingUnit is a single charge port with its own power limits, a
// reservation calendar and at most one connected vehicle.
type ChargingUnit struct {
	ID             string
	ClusterID      string
	MaxChargeKW    float64
	MaxDischargeKW float64

	calendar    []Reservation // sorted by Start, pairwise disjoint
	issued      map[string]struct{}
	seq         int
	vehicle     *model.Vehicle
	connectedAt time.Time
	setpoints   *timeseries.Series
}

// NewChargingUnit returns a unit with an empty calendar.
func NewChargingUnit(id string, maxChargeKW, maxDischargeKW float64) *ChargingUnit {
	return &ChargingUnit{
		ID:             id,
		MaxChargeKW:    maxChargeKW,
		MaxDischargeKW: maxDischargeKW,
		issued:         make(map[string]struct{}),
		setpoints:      &timeseries.Series{},
	}
}

// Availability returns, for each sub-step of [from, to), whether no
// reservation overlaps it.
func (u *ChargingUnit) Availability(from, to time.Time, step time.Duration) []bool {
	if step <= 0 {
		return nil
	}
	var out []bool
	for t := from; t.Before(to); t = t.Add(step) {
		end := t.Add(step)
		if end.After(to) {
			end = to
		}
		out = append(out, u.IsFree(t, end))
	}
	return out
}

// IsFree reports whether no reservation intersects [from, to).
func (u *ChargingUnit) IsFree(from, to time.Time) bool {
	_, busy := u.overlapping(from, to)
	return !busy
}

func (u *ChargingUnit) overlapping(from, to time.Time) (Reservation, bool) {
	for _, r := range u.calendar {
		if !r.Start.Before(to) {
			break
		}
		if r.Overlaps(from, to) {
			return r, true
		}
	}
	return Reservation{}, false
}

// Reserve books [start, end) for v. placedAt is kept for auditing.
func (u *ChargingUnit) Reserve(placedAt, start, end time.Time, v *model.Vehicle) (string, error) {
	if !end.After(start) {
		return "", &InvalidWindowError{Start: start, End: end}
	}
	if existing, busy := u.overlapping(start, end); busy {
		return "", &ConflictError{UnitID: u.ID, Start: start, End: end, Existing: existing}
	}
	u.seq++
	id := uuid.NewSHA1(reservationNamespace, []byte(fmt.Sprintf("%s/%s/%d", u.ClusterID, u.ID, u.seq))).String()
	r := Reservation{ID: id, VehicleID: v.ID, PlacedAt: placedAt, Start: start, End: end}
	i := sort.Search(len(u.calendar), func(i int) bool { return !u.calendar[i].Start.Before(start) })
	u.calendar = append(u.calendar, Reservation{})
	copy(u.calendar[i+1:], u.calendar[i:])
	u.calendar[i] = r
	u.issued[id] = struct{}{}
	return id, nil
}

// Unreserve removes the reservation. Removing an already removed id is a
// no-op; an id never issued by this unit fails.
func (u *ChargingUnit) Unreserve(id string) error {
	for i, r := range u.calendar {
		if r.ID == id {
			u.calendar = append(u.calendar[:i], u.calendar[i+1:]...)
			if len(u.calendar) == 0 {
				u.calendar = nil
			}
			return nil
		}
	}
	if _, ok := u.issued[id]; ok {
		return nil
	}
	return &UnknownReservationError{UnitID: u.ID, ReservationID: id}
}

// Issued reports whether id was ever issued by this unit.
func (u *ChargingUnit) Issued(id string) bool {
	_, ok := u.issued[id]
	return ok
}

// Calendar returns a copy of the reservations ordered by start.
func (u *ChargingUnit) Calendar() []Reservation {
	return append([]Reservation(nil), u.calendar...)
}

// Reservation returns the live reservation with the given id.
func (u *ChargingUnit) Reservation(id string) (Reservation, bool) {
	for _, r := range u.calendar {
		if r.ID == id {
			return r, true
		}
	}
	return Reservation{}, false
}

// ReservedAt reports whether a reservation covers t.
func (u *ChargingUnit) ReservedAt(t time.Time) bool {
	for _, r := range u.calendar {
		if r.Covers(t) {
			return true
		}
	}
	return false
}

func (u *ChargingUnit) coveringFor(vehicleID string, t time.Time) (Reservation, bool) {
	for _, r := range u.calendar {
		if r.VehicleID == vehicleID && r.Covers(t) {
			return r, true
		}
	}
	return Reservation{}, false
}

// Connect plugs v into the unit at ts.
func (u *ChargingUnit) Connect(ts time.Time, v *model.Vehicle) error {
	if u.vehicle != nil {
		return &AlreadyConnectedError{UnitID: u.ID, VehicleID: u.vehicle.ID}
	}
	if _, ok := u.coveringFor(v.ID, ts); !ok {
		return &NotReservedError{UnitID: u.ID, VehicleID: v.ID, Time: ts}
	}
	u.vehicle = v
	u.connectedAt = ts
	return nil
}

// Disconnect unplugs the current vehicle.
func (u *ChargingUnit) Disconnect(ts time.Time) error {
	if u.vehicle == nil {
		return &NotConnectedError{UnitID: u.ID}
	}
	u.vehicle = nil
	u.connectedAt = time.Time{}
	return nil
}

// Vehicle returns the connected vehicle or nil.
func (u *ChargingUnit) Vehicle() *model.Vehicle { return u.vehicle }

// Connected reports whether a vehicle is plugged in.
func (u *ChargingUnit) Connected() bool { return u.vehicle != nil }

// ConnectedAt returns the instant the current vehicle was connected.
func (u *ChargingUnit) ConnectedAt() time.Time { return u.connectedAt }

// Setpoints returns the applied setpoints indexed by step start.
func (u *ChargingUnit) Setpoints() *timeseries.Series { return u.setpoints }

// Supply applies setpoint p for [ts, ts+dt). The setpoint is bounded by the
// unit limits, the vehicle limits and the battery headroom; clamping is
// reported in the result.
func (u *ChargingUnit) Supply(ts time.Time, dt time.Duration, p float64) (SupplyResult, error) {
	v := u.vehicle
	if v == nil {
		return SupplyResult{}, &NotConnectedError{UnitID: u.ID}
	}
	if _, ok := u.coveringFor(v.ID, ts); !ok {
		return SupplyResult{}, &NotReservedError{UnitID: u.ID, VehicleID: v.ID, Time: ts}
	}
	vCh, vDs := v.Limits(dt)
	maxCh := math.Min(u.MaxChargeKW, vCh)
	maxDs := math.Min(u.MaxDischargeKW, vDs)
	applied := math.Max(-maxDs, math.Min(maxCh, p))
	res := SupplyResult{Requested: p, Applied: applied, Clamped: math.Abs(applied-p) > clampTolerance}
	if err := v.Charge(ts, dt, applied); err != nil {
		return res, err
	}
	u.setpoints.Set(ts, applied)
	return res, nil
}
