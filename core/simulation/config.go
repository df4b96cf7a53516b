package simulation

import (
	"fmt"
	"time"
)

// Config holds the clock settings of a run.
type Config struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
	// Horizon bounds the window allocation policies score over. Zero uses
	// the reservation window of the arriving vehicle.
	Horizon time.Duration
	// RescheduleEvery replans every connected vehicle at tick instants
	// Start + k*RescheduleEvery, k >= 1. Zero disables rescheduling.
	RescheduleEvery time.Duration
	// Seed initialises the random stream handed to allocation policies.
	Seed int64
}

// Validate checks the clock settings.
func (c Config) Validate() error {
	switch {
	case c.Step <= 0:
		return fmt.Errorf("simulation: step must be positive")
	case !c.End.After(c.Start):
		return fmt.Errorf("simulation: end %s must be after start %s", c.End.Format(time.RFC3339), c.Start.Format(time.RFC3339))
	case c.Horizon < 0 || c.RescheduleEvery < 0:
		return fmt.Errorf("simulation: horizon and reschedule cadence must be non-negative")
	case c.RescheduleEvery%c.Step != 0:
		return fmt.Errorf("simulation: reschedule cadence %s is not a multiple of step %s", c.RescheduleEvery, c.Step)
	}
	return nil
}

// gridCeil returns the first tick boundary ts + kΔ at or after t.
func gridCeil(ts time.Time, step time.Duration, t time.Time) time.Time {
	d := t.Sub(ts)
	if d <= 0 {
		return ts
	}
	k := (d + step - 1) / step
	return ts.Add(k * step)
}
