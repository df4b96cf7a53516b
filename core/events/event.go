package events

import "time"

// Kind classifies an Event.
type Kind string

const (
	KindAdmitted          Kind = "admitted"
	KindRejected          Kind = "rejected"
	KindDeparted          Kind = "departed"
	KindClamped           Kind = "clamped"
	KindInfeasible        Kind = "infeasible"
	KindRescheduled       Kind = "rescheduled"
	KindCapacityViolation Kind = "capacity_violation"
)

// Kinds lists every kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindAdmitted, KindRejected, KindDeparted, KindClamped, KindInfeasible, KindRescheduled, KindCapacityViolation}
}

// Warning reports whether the kind signals a degraded outcome.
func (k Kind) Warning() bool {
	switch k {
	case KindClamped, KindInfeasible, KindCapacityViolation:
		return true
	}
	return false
}

// Event is one notable outcome of a tick.
type Event struct {
	Time          time.Time `json:"time"`
	Kind          Kind      `json:"kind"`
	VehicleID     string    `json:"vehicle_id,omitempty"`
	ClusterID     string    `json:"cluster_id,omitempty"`
	UnitID        string    `json:"unit_id,omitempty"`
	ReservationID string    `json:"reservation_id,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	// Requested and Applied hold the setpoints of a clamp, or the planned
	// load and envelope of a capacity violation.
	Requested float64 `json:"requested,omitempty"`
	Applied   float64 `json:"applied,omitempty"`
}
