package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/evcharge/core/simulation"
)

// SimulationConfig holds the clock of a run. Start and duration default to
// the span of the scenario fleet.
type SimulationConfig struct {
	// Start is an RFC3339 instant.
	Start             string  `json:"start"`
	DurationHours     float64 `json:"duration_hours"`
	StepMinutes       int     `json:"step_minutes"`
	HorizonMinutes    int     `json:"horizon_minutes"`
	RescheduleMinutes int     `json:"reschedule_minutes"`
	Seed              int64   `json:"seed"`
}

// SetDefaults applies a 15 minute step.
func (c *SimulationConfig) SetDefaults() {
	if c.StepMinutes == 0 {
		c.StepMinutes = 15
	}
}

func (c SimulationConfig) Step() time.Duration { return time.Duration(c.StepMinutes) * time.Minute }

// Validate checks the values that do not depend on the scenario.
func (c SimulationConfig) Validate() error {
	switch {
	case c.StepMinutes <= 0:
		return fmt.Errorf("step_minutes must be positive")
	case c.DurationHours < 0 || c.HorizonMinutes < 0 || c.RescheduleMinutes < 0:
		return fmt.Errorf("durations must be non-negative")
	case c.RescheduleMinutes%c.StepMinutes != 0:
		return fmt.Errorf("reschedule_minutes must be a multiple of step_minutes")
	}
	if c.Start != "" {
		if _, err := time.Parse(time.RFC3339, c.Start); err != nil {
			return fmt.Errorf("start: %w", err)
		}
	}
	return nil
}

// Clock resolves the simulation clock. Missing bounds are taken from the
// fleet window [start, end).
func (c SimulationConfig) Clock(start, end time.Time) (simulation.Config, error) {
	if c.Start != "" {
		t, err := time.Parse(time.RFC3339, c.Start)
		if err != nil {
			return simulation.Config{}, fmt.Errorf("start: %w", err)
		}
		start = t
	}
	if c.DurationHours > 0 {
		end = start.Add(time.Duration(c.DurationHours * float64(time.Hour)))
	}
	sc := simulation.Config{
		Start:           start,
		End:             end,
		Step:            c.Step(),
		Horizon:         time.Duration(c.HorizonMinutes) * time.Minute,
		RescheduleEvery: time.Duration(c.RescheduleMinutes) * time.Minute,
		Seed:            c.Seed,
	}
	return sc, sc.Validate()
}
