package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newVehicle() *Vehicle {
	v := &Vehicle{
		ID: "ev1", BatteryKWh: 40, MaxChargeKW: 10, MaxDischargeKW: 10,
		MinSoC: 0, MaxSoC: 1, InitialSoC: 0.5,
		Arrival: t0, Departure: t0.Add(time.Hour),
	}
	v.Reset()
	return v
}

func TestVehicle_ChargeAccounting(t *testing.T) {
	v := newVehicle()
	v.Connect(t0)
	step := 15 * time.Minute
	powers := []float64{10, -10, 10, -10}
	for i, p := range powers {
		require.NoError(t, v.Charge(t0.Add(time.Duration(i)*step), step, p))
	}
	assert.InDeltaSlice(t, []float64{0.5, 0.5625, 0.5, 0.5625, 0.5}, v.SoC.Values(), 1e-9)
	assert.Equal(t, []float64{10, 0, 10, 0}, v.G2V.Values())
	assert.Equal(t, []float64{0, 10, 0, 10}, v.V2G.Values())
	assert.InDelta(t, 0, v.DeliveredKWh(), 1e-9)
}

func TestVehicle_ChargeOutOfRange(t *testing.T) {
	v := newVehicle()
	v.Connect(t0)
	err := v.Charge(t0, time.Hour, 30)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	var oor *OutOfRangeError
	require.True(t, errors.As(err, &oor))
	assert.Equal(t, "ev1", oor.VehicleID)
	assert.InDelta(t, 0.5, v.CurrentSoC(), 1e-12)
}

func TestVehicle_LimitsHeadroomAndDerating(t *testing.T) {
	v := newVehicle()
	v.MaxSoC = 0.55
	v.Reset()
	ch, ds := v.Limits(15 * time.Minute)
	// 0.05 * 40 kWh = 2 kWh over 0.25 h = 8 kW
	assert.InDelta(t, 8, ch, 1e-9)
	assert.InDelta(t, 10, ds, 1e-9)

	v = newVehicle()
	v.Derating = Derating{{SoC: 0.4, Fraction: 1}, {SoC: 0.8, Fraction: 0.5}}
	ch, _ = v.Limits(15 * time.Minute)
	// SoC 0.5 sits a quarter of the way from 0.4 to 0.8: 1 - 0.25*0.5
	assert.InDelta(t, 8.75, ch, 1e-9)
}

func TestVehicle_Validate(t *testing.T) {
	v := newVehicle()
	require.NoError(t, v.Validate())
	v.Departure = v.Arrival
	assert.Error(t, v.Validate())
	v = newVehicle()
	v.InitialSoC = 1.2
	assert.Error(t, v.Validate())
	v = newVehicle()
	v.BatteryKWh = 0
	assert.Error(t, v.Validate())
}

func TestVehicle_TargetDefaultsToMaxSoC(t *testing.T) {
	v := newVehicle()
	v.MaxSoC = 0.9
	assert.Equal(t, 0.9, v.Target())
	v.TargetSoC = 0.8
	assert.Equal(t, 0.8, v.Target())
}

func TestLifecycle_Transitions(t *testing.T) {
	l := NewLifecycle("ev1")
	require.NoError(t, l.Fire(t0, EventArrive))
	require.NoError(t, l.Fire(t0, EventAdmit))
	require.NoError(t, l.Fire(t0, EventConnect))
	require.NoError(t, l.MarkCharging(t0))
	require.NoError(t, l.MarkCharging(t0.Add(time.Minute)))
	require.NoError(t, l.Fire(t0.Add(time.Hour), EventDisconnect))
	require.NoError(t, l.Fire(t0.Add(time.Hour), EventRetire))
	assert.Equal(t, StateTerminal, l.Current())

	h := l.History()
	require.Len(t, h, 6)
	assert.Equal(t, StatePending, h[0].From)
	assert.Equal(t, StateCharging, h[4].From)
	assert.True(t, h[5].Time.Equal(t0.Add(time.Hour)))
}

func TestLifecycle_RejectsInvalidEvent(t *testing.T) {
	l := NewLifecycle("ev1")
	require.NoError(t, l.Fire(t0, EventArrive))
	require.NoError(t, l.Fire(t0, EventReject))
	assert.Error(t, l.Fire(t0, EventConnect))
	require.NoError(t, l.Fire(t0, EventRetire))
	assert.True(t, l.Is(StateTerminal))
}
