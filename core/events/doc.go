// Package events defines the simulation events emitted by the loop.
//
// Available kinds:
//   - KindAdmitted: a vehicle obtained a reservation and was connected
//   - KindRejected: no cluster could admit the vehicle
//   - KindDeparted: the vehicle left and its unit was released
//   - KindClamped: a setpoint was clamped at dispatch
//   - KindInfeasible: the planner could not reach the target SoC
//   - KindRescheduled: a connected vehicle was replanned
//   - KindCapacityViolation: planned load exceeds a cluster envelope
package events
