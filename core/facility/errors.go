package facility

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors matched by the structured error types below.
var (
	ErrConflict           = errors.New("reservation conflict")
	ErrUnknownReservation = errors.New("unknown reservation")
	ErrAlreadyConnected   = errors.New("charging unit already connected")
	ErrNotConnected       = errors.New("charging unit not connected")
	ErrNotReserved        = errors.New("no covering reservation")
	ErrInvalidWindow      = errors.New("invalid reservation window")
	ErrUnknownUnit        = errors.New("unknown charging unit")
	ErrUnknownCluster     = errors.New("unknown cluster")
	ErrUnknownVehicle     = errors.New("unknown vehicle")
)

// ConflictError is returned when a new reservation intersects an existing one.
type ConflictError struct {
	UnitID   string
	Start    time.Time
	End      time.Time
	Existing Reservation
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("unit %s: window [%s,%s) overlaps reservation %s of vehicle %s",
		e.UnitID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.Existing.ID, e.Existing.VehicleID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// UnknownReservationError is returned when unreserving an id that was never issued.
type UnknownReservationError struct {
	UnitID        string
	ReservationID string
}

func (e *UnknownReservationError) Error() string {
	if e.UnitID == "" {
		return fmt.Sprintf("reservation %s unknown", e.ReservationID)
	}
	return fmt.Sprintf("unit %s: reservation %s unknown", e.UnitID, e.ReservationID)
}

func (e *UnknownReservationError) Is(target error) bool { return target == ErrUnknownReservation }

// AlreadyConnectedError is returned by Connect on an occupied unit.
type AlreadyConnectedError struct {
	UnitID    string
	VehicleID string
}

func (e *AlreadyConnectedError) Error() string {
	return fmt.Sprintf("unit %s already connected to vehicle %s", e.UnitID, e.VehicleID)
}

func (e *AlreadyConnectedError) Is(target error) bool { return target == ErrAlreadyConnected }

// NotConnectedError is returned by Disconnect and Supply on a free unit.
type NotConnectedError struct {
	UnitID string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("unit %s has no connected vehicle", e.UnitID)
}

func (e *NotConnectedError) Is(target error) bool { return target == ErrNotConnected }

// NotReservedError is returned when a vehicle holds no reservation covering ts.
type NotReservedError struct {
	UnitID    string
	VehicleID string
	Time      time.Time
}

func (e *NotReservedError) Error() string {
	return fmt.Sprintf("unit %s: vehicle %s has no reservation covering %s",
		e.UnitID, e.VehicleID, e.Time.Format(time.RFC3339))
}

func (e *NotReservedError) Is(target error) bool { return target == ErrNotReserved }

// InvalidWindowError is returned for empty or inverted reservation windows.
type InvalidWindowError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("reservation window [%s,%s) is empty",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *InvalidWindowError) Is(target error) bool { return target == ErrInvalidWindow }
