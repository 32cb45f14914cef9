// Package mfcmodbus implements the [mfc.Driver] contract over the device's
// binary register protocol using Modbus TCP.
//
// # Register Layout
//
// The device exposes its telemetry as IEEE-754 single-precision floats, each
// spread across a pair of consecutive 16-bit registers, high word first in
// big-endian bit order. A single 16-word block read starting at the
// telemetry base address returns setpoint, valve drive, pressure,
// temperature, volumetric flow and mass flow in one coherent exchange; the
// driver never assembles a telemetry snapshot from independent reads.
//
// # PID Gain Access
//
// The three controller gains are reached indirectly through a device-side
// register pointer: the driver writes a select-slot command to the control
// register pair, waits a fixed settle delay so the device can latch the
// selection, then reads the result register. The whole select-then-read
// sequence for all three slots runs under the handle lock as one unbroken
// sequence; interleaving any other exchange on the same handle would read
// the wrong slot's value.
//
// # Simulation Mode
//
// With WithSimulation enabled the driver answers every operation with fixed
// synthetic values and never touches the transport, while still acquiring
// the handle lock so the external serialization contract holds for tests.
package mfcmodbus
