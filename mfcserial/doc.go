// Package mfcserial implements the [mfc.Driver] contract over the device's
// line-oriented ASCII command protocol on a serial port.
//
// # Command Framing
//
// Every command is the unit identifier followed by the command body and a
// carriage return:
//
//	<unit-id><body>\r
//
// The driver clears any stale input, writes the framed command and reads up
// to the next carriage return within the configured read timeout. An empty
// command acts as a status poll; the device answers with a seven-field
// whitespace-separated status line:
//
//	<unit> <pressure> <temperature> <vol-flow> <mass-flow> <setpoint> <gas>
//
// The status line does not report valve drive, so telemetry readings from
// this transport always carry ValveDrive 0.0.
//
// # PID Gain Access
//
// Unlike the binary transport, the ASCII protocol addresses each gain
// register directly: R21/R22/R23 query P, D and I, and W21=/W22=/W23= write
// them. No select-then-read sequence or settle delay is needed. Gain reads
// degrade to 0 per slot on failure; gain writes are strict and abort on the
// first failed command.
//
// # Simulation Mode
//
// With WithSimulation enabled the driver answers every operation with fixed
// synthetic values and never touches the serial port, while still acquiring
// the handle lock so the external serialization contract holds for tests.
package mfcserial
