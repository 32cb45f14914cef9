// Package mfc defines the unified driver contract for mass-flow controllers
// that are reachable over two physically distinct transports: a binary
// register protocol over Modbus TCP and a line-oriented ASCII command
// protocol over a serial line.
//
// Both transport drivers ([mfcmodbus.Driver] and [mfcserial.Driver])
// implement the [Driver] interface, so orchestration code can select one at
// construction time and stay transport-agnostic afterwards.
//
// # Driver Lifecycle
//
// A driver instance owns exactly one device handle. The handle moves through
// three states:
//
//	Disconnected → Connecting → Connected
//
// Initialize transitions the handle to Connected (or back to Disconnected on
// failure). Close transitions to Disconnected from any state and is
// idempotent. A transport-level failure during a Connected-state operation
// does not transition the handle to Disconnected; the handle stays nominally
// connected until an explicit Close, even though subsequent operations may
// continue to fail.
//
// # Concurrency
//
// Every public driver operation acquires the handle's exclusive lock for its
// full duration, including any device settle delays, so operations against
// one handle are fully serialized. Two distinct driver instances are fully
// independent and may proceed in parallel.
//
// # Generic Dispatch
//
// The Write method is the single entry point for callers that do not want to
// know which transport they are talking to. It accepts an unordered bag of
// named fields and resolves them to exactly one [Command] variant; see
// [ResolveCommand] for the resolution rules.
package mfc
