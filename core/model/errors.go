package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrOutOfRange is matched by OutOfRangeError.
var ErrOutOfRange = errors.New("value out of range")

// OutOfRangeError reports a setpoint or SoC outside its permitted bounds.
type OutOfRangeError struct {
	VehicleID string
	Time      time.Time
	Quantity  string
	Value     float64
	Min       float64
	Max       float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("vehicle %s: %s %.6f outside [%.6f,%.6f] at %s",
		e.VehicleID, e.Quantity, e.Value, e.Min, e.Max, e.Time.Format(time.RFC3339))
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }
