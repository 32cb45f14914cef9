package mfc

// Setpoint range advised by the device documentation. The range is advisory,
// not enforced: out-of-range values are still transmitted to the device and
// only produce a warning.
const (
	SetpointMin float32 = 0.0
	SetpointMax float32 = 1000.0
)

// TelemetryReading is one coherent snapshot of the device telemetry.
// It is produced fresh on every Read call and never cached. All six numeric
// fields are sampled from a single transport exchange (one block read on the
// binary transport, one status line on the ASCII transport).
//
// ValveDrive is always 0.0 on the ASCII transport; the status line does not
// report it.
type TelemetryReading struct {
	Connected      bool
	Setpoint       float32
	ValveDrive     float32
	Pressure       float32
	Temperature    float32
	VolumetricFlow float32
	MassFlow       float32

	// PID holds the controller gains when Read was called with includePID
	// set, nil otherwise.
	PID *PIDGains
}

// PIDGains holds the three controller gain slots as unitless device register
// values, not physical units.
type PIDGains struct {
	P int32
	D int32
	I int32
}

// PIDSetpoints is a partial PID write request. A nil field leaves the
// corresponding gain untouched on the device.
type PIDSetpoints struct {
	P *int32
	D *int32
	I *int32
}

// Status reports the outcome of a write-side operation.
type Status string

const (
	// StatusOK indicates the operation was executed.
	StatusOK Status = "ok"
	// StatusNoOp indicates no recognized command was present, or the command
	// is not supported by the transport.
	StatusNoOp Status = "no_op"
)

// Ack acknowledges a write-side operation. Pointer fields echo the values
// that were actually requested on the device; a nil field was not part of
// the operation (or failed and was omitted, on the lenient binary PID path).
type Ack struct {
	Status   Status
	Setpoint *float32
	Pressure *float32
	Gas      *Gas
	P        *int32
	D        *int32
	I        *int32
}

// Driver is the capability set shared by both transport drivers.
//
// Implementations guard all device I/O on a per-handle mutual-exclusion
// lock; see the package documentation for the concurrency contract.
type Driver interface {
	// Initialize opens the persistent transport connection to the device.
	// In simulation mode it only sets the connected state and performs no
	// I/O. It fails with ErrConnection when the transport cannot be opened.
	Initialize() error

	// Close releases the connection. It is idempotent and always clears the
	// connected state.
	Close() error

	// Connected reports whether the handle is in the Connected state.
	Connected() bool

	// State returns the current connection state of the handle.
	State() ConnState

	// Read returns a fresh telemetry snapshot. When includePID is true the
	// controller gains are read in the same locked sequence and merged into
	// the result.
	Read(includePID bool) (*TelemetryReading, error)

	// ReadSetpoint returns the current flow setpoint.
	ReadSetpoint() (float32, error)

	// SetFlowRate writes the flow setpoint. Values outside
	// [SetpointMin, SetpointMax] are transmitted anyway and only logged as a
	// warning.
	SetFlowRate(value float32) (*Ack, error)

	// ReadPID returns the three controller gains. A gain whose read fails
	// degrades to 0 and is logged; the call itself fails only when the
	// handle is not connected.
	ReadPID() (PIDGains, error)

	// SetPID writes the explicitly provided gains; nil fields are left
	// untouched on the device.
	SetPID(gains PIDSetpoints) (*Ack, error)

	// Write resolves an unordered bag of named fields to exactly one
	// Command and executes it. Absence of any recognized field yields a
	// StatusNoOp acknowledgement rather than an error.
	Write(fields Fields) (*Ack, error)
}
