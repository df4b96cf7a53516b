package model

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"
)

// Vehicle lifecycle states.
const (
	StatePending      = "pending"
	StateIncoming     = "incoming"
	StateAdmitted     = "admitted"
	StateRejected     = "rejected"
	StateConnected    = "connected"
	StateCharging     = "charging"
	StateDisconnected = "disconnected"
	StateTerminal     = "terminal"
)

// Lifecycle events fired by the simulation loop.
const (
	EventArrive     = "arrive"
	EventAdmit      = "admit"
	EventReject     = "reject"
	EventConnect    = "connect"
	EventCharge     = "charge"
	EventDisconnect = "disconnect"
	EventRetire     = "retire"
)

// Transition is one recorded state change.
type Transition struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	Time time.Time `json:"time"`
}

// Lifecycle tracks the state of a vehicle across a simulation run.
type Lifecycle struct {
	vehicleID string
	fsm       *fsm.FSM
	history   []Transition
}

// NewLifecycle returns a lifecycle in the pending state.
func NewLifecycle(vehicleID string) *Lifecycle {
	l := &Lifecycle{vehicleID: vehicleID}
	l.fsm = fsm.NewFSM(
		StatePending,
		fsm.Events{
			{Name: EventArrive, Src: []string{StatePending}, Dst: StateIncoming},
			{Name: EventAdmit, Src: []string{StateIncoming}, Dst: StateAdmitted},
			{Name: EventReject, Src: []string{StateIncoming}, Dst: StateRejected},
			{Name: EventConnect, Src: []string{StateAdmitted}, Dst: StateConnected},
			{Name: EventCharge, Src: []string{StateConnected}, Dst: StateCharging},
			{Name: EventDisconnect, Src: []string{StateConnected, StateCharging}, Dst: StateDisconnected},
			{Name: EventRetire, Src: []string{StateDisconnected, StateRejected}, Dst: StateTerminal},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				var ts time.Time
				if len(e.Args) > 0 {
					ts, _ = e.Args[0].(time.Time)
				}
				l.history = append(l.history, Transition{From: e.Src, To: e.Dst, Time: ts})
			},
		},
	)
	return l
}

// Current returns the current state.
func (l *Lifecycle) Current() string { return l.fsm.Current() }

// Is reports whether the lifecycle is in state s.
func (l *Lifecycle) Is(s string) bool { return l.fsm.Is(s) }

// Fire applies event at ts.
func (l *Lifecycle) Fire(ts time.Time, event string) error {
	if err := l.fsm.Event(context.Background(), event, ts); err != nil {
		return fmt.Errorf("vehicle %s: %s from %s: %w", l.vehicleID, event, l.fsm.Current(), err)
	}
	return nil
}

// MarkCharging moves a connected vehicle to charging. Vehicles already
// charging stay there.
func (l *Lifecycle) MarkCharging(ts time.Time) error {
	if l.fsm.Is(StateCharging) {
		return nil
	}
	return l.Fire(ts, EventCharge)
}

// History returns the recorded transitions in order.
func (l *Lifecycle) History() []Transition {
	return append([]Transition(nil), l.history...)
}
