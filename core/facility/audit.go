package facility

import "time"

// AuditRow records one admitted vehicle. Departure fields stay zero while
// the vehicle is connected.
type AuditRow struct {
	ReservationID string    `json:"reservation_id"`
	VehicleID     string    `json:"vehicle_id"`
	Arrival       time.Time `json:"t_arrival"`
	Departure     time.Time `json:"t_departure"`
	UnitID        string    `json:"cu_id"`
	ArrivalSoC    float64   `json:"arrival_soc"`
	DepartureSoC  float64   `json:"departure_soc"`
	DeliveredKWh  float64   `json:"delivered_energy_kwh"`
}

// Departed reports whether the row has been completed.
func (r AuditRow) Departed() bool { return !r.Departure.IsZero() }
