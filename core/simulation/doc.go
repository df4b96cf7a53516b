// Package simulation advances an EV charging facility through time.
//
// Each tick covers [ts, ts+Δ) and runs four sub-steps in order:
//
//  1. arrivals in (ts-Δ, ts] are allocated, reserved and connected
//  2. newly connected vehicles are planned, and every connected vehicle is
//     replanned at the configured rescheduling cadence
//  3. every connected unit supplies the planned setpoint of the tick, for
//     the part of the tick before the vehicle departs
//  4. departures in (ts, ts+Δ] disconnect and release their unit
//
// A vehicle leaving in (ts, ts+Δ] and one arriving in the same interval
// meet at ts+Δ: the unit is released first and is free for the arrival
// (release-before-admit). Reservations span
// [admission tick, first tick boundary >= departure). Audit rows carry the
// actual arrival and departure instants.
package simulation
