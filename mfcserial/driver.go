package mfcserial

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/opencryo/go-mfc/logger"
	"github.com/opencryo/go-mfc/mfc"
)

// serialPort is the subset of go.bug.st/serial.Port the driver uses. Tests
// substitute a scripted in-memory port through the driver's open hook.
type serialPort interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

// PID gain register commands. Each gain is addressed directly, no
// select-then-read sequence is involved.
const (
	cmdReadP = "R21"
	cmdReadD = "R22"
	cmdReadI = "R23"

	cmdWriteP = "W21"
	cmdWriteD = "W22"
	cmdWriteI = "W23"
)

// statusFieldCount is the number of whitespace-separated fields in a status
// response line.
const statusFieldCount = 7

// Driver is the ASCII-transport implementation of [mfc.Driver].
//
// A Driver owns exactly one serial handle. All public operations serialize
// on the handle lock.
type Driver struct {
	cfg    *Config
	logger logger.Logger

	mu   sync.Mutex
	port serialPort

	// open opens the configured serial port; replaceable in tests.
	open func() (serialPort, error)

	state   *mfc.ConnStateMgr
	metrics mfc.DriverMetrics
}

var _ mfc.Driver = (*Driver)(nil)

// NewDriver creates an ASCII-transport driver from cfg.
// The returned driver is disconnected; call Initialize before use.
func NewDriver(cfg *Config) *Driver {
	d := &Driver{
		cfg:    cfg,
		logger: cfg.Logger(),
		state:  mfc.NewConnStateMgr(cfg.Logger()),
	}
	d.open = d.openSystemPort

	return d
}

func (d *Driver) openSystemPort() (serialPort, error) {
	mode := &serial.Mode{
		BaudRate: d.cfg.BaudRate(),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	return serial.Open(d.cfg.PortPath(), mode)
}

// State returns the current connection state of the handle.
func (d *Driver) State() mfc.ConnState {
	return d.state.State()
}

// Connected reports whether the handle is in the Connected state.
func (d *Driver) Connected() bool {
	return d.state.State().IsConnected()
}

// Metrics returns the driver's operation counters.
func (d *Driver) Metrics() *mfc.DriverMetrics {
	return &d.metrics
}

// OnConnStateChange registers handlers invoked on connection state changes.
func (d *Driver) OnConnStateChange(handlers ...mfc.ConnStateChangeHandler) {
	d.state.AddHandler(handlers...)
}

// Initialize opens the serial line and probes the device with one empty
// command, expecting a valid status line back. On any failure the port is
// closed again and the call fails with mfc.ErrConnection, leaving the handle
// disconnected. In simulation mode it only sets the connected state and
// performs no I/O.
func (d *Driver) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.State().IsConnected() {
		return nil
	}

	if err := d.state.ToConnecting(); err != nil {
		return err
	}

	if d.cfg.Simulation() {
		d.logger.Debug("simulation mode, skipping connection")
		return d.state.ToConnected()
	}

	d.logger.Debug("connecting", "port", d.cfg.PortPath(), "baud_rate", d.cfg.BaudRate())

	port, err := d.open()
	if err != nil {
		d.state.ToDisconnected()
		d.logger.Error("unable to open port", "port", d.cfg.PortPath(), "error", err)

		return fmt.Errorf("open %s: %w: %v", d.cfg.PortPath(), mfc.ErrConnection, err)
	}

	if err := port.SetReadTimeout(d.cfg.ReadTimeout()); err != nil {
		_ = port.Close()
		d.state.ToDisconnected()

		return fmt.Errorf("set read timeout: %w: %v", mfc.ErrConnection, err)
	}

	d.port = port

	// Connectivity probe: an empty command must yield a status line.
	if _, err := d.commandLocked(""); err != nil {
		_ = port.Close()
		d.port = nil
		d.state.ToDisconnected()

		return fmt.Errorf("connectivity probe on %s: %w: %v", d.cfg.PortPath(), mfc.ErrConnection, err)
	}

	if err := d.state.ToConnected(); err != nil {
		return err
	}

	d.logger.Info("connected", "port", d.cfg.PortPath(), "baud_rate", d.cfg.BaudRate())

	return nil
}

// Close releases the serial line. It is idempotent and always clears the
// connected state.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port != nil {
		_ = d.port.Close()
		d.port = nil
	}
	d.state.ToDisconnected()
	d.logger.Debug("disconnected")

	return nil
}

// Read sends the empty status command and parses the seven-field response
// line into a fresh telemetry snapshot. ValveDrive is fixed at 0.0; the
// status line does not report it. When includePID is true the three gain
// queries run under the same lock and the gains are merged into the result.
func (d *Driver) Read(includePID bool) (*mfc.TelemetryReading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.State().IsConnected() {
		return nil, mfc.ErrNotConnected
	}

	if d.cfg.Simulation() {
		d.metrics.IncSimulatedCount()
		tr := simulatedReading()
		if includePID {
			pid := simulatedPID()
			tr.PID = &pid
		}

		return tr, nil
	}

	response, err := d.commandLocked("")
	if err != nil {
		d.metrics.IncErrorCount()
		return nil, err
	}

	status, err := parseStatusLine(response)
	if err != nil {
		d.metrics.IncErrorCount()
		return nil, err
	}

	tr := &mfc.TelemetryReading{
		Connected:      true,
		Setpoint:       status.setpoint,
		ValveDrive:     0.0,
		Pressure:       status.pressure,
		Temperature:    status.temperature,
		VolumetricFlow: status.volumetricFlow,
		MassFlow:       status.massFlow,
	}

	if includePID {
		pid := d.readPIDLocked()
		tr.PID = &pid
	}

	d.metrics.IncReadCount()

	return tr, nil
}

// ReadSetpoint returns the current flow setpoint, taken from a status poll;
// the ASCII protocol has no dedicated single-field read.
func (d *Driver) ReadSetpoint() (float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.State().IsConnected() {
		return 0, mfc.ErrNotConnected
	}

	if d.cfg.Simulation() {
		d.metrics.IncSimulatedCount()
		return simSetpoint, nil
	}

	response, err := d.commandLocked("")
	if err != nil {
		d.metrics.IncErrorCount()
		return 0, err
	}

	status, err := parseStatusLine(response)
	if err != nil {
		d.metrics.IncErrorCount()
		return 0, err
	}

	d.metrics.IncReadCount()

	return status.setpoint, nil
}

// SetFlowRate sends the formatted setpoint command. Values outside
// [mfc.SetpointMin, mfc.SetpointMax] are transmitted anyway; the driver only
// logs a warning. Transport failures propagate unmodified.
func (d *Driver) SetFlowRate(value float32) (*mfc.Ack, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.State().IsConnected() {
		return nil, mfc.ErrNotConnected
	}

	if value < mfc.SetpointMin || value > mfc.SetpointMax {
		d.logger.Warn("flow rate out of range", "value", value,
			"min", mfc.SetpointMin, "max", mfc.SetpointMax)
	}

	if d.cfg.Simulation() {
		d.metrics.IncSimulatedCount()
		d.logger.Debug("simulation: setpoint", "value", value)

		return &mfc.Ack{Status: mfc.StatusOK, Setpoint: &value}, nil
	}

	if _, err := d.commandLocked(fmt.Sprintf("S%.4f", value)); err != nil {
		d.metrics.IncErrorCount()
		return nil, fmt.Errorf("set flow rate: %w", err)
	}

	d.metrics.IncWriteCount()
	d.logger.Debug("setpoint set", "value", value)

	return &mfc.Ack{Status: mfc.StatusOK, Setpoint: &value}, nil
}

// SetPressure sends the formatted pressure setpoint command.
func (d *Driver) SetPressure(value float32) (*mfc.Ack, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.State().IsConnected() {
		return nil, mfc.ErrNotConnected
	}

	if d.cfg.Simulation() {
		d.metrics.IncSimulatedCount()
		d.logger.Debug("simulation: pressure", "value", value)

		return &mfc.Ack{Status: mfc.StatusOK, Pressure: &value}, nil
	}

	if _, err := d.commandLocked(fmt.Sprintf("P%.4f", value)); err != nil {
		d.metrics.IncErrorCount()
		return nil, fmt.Errorf("set pressure: %w", err)
	}

	d.metrics.IncWriteCount()
	d.logger.Debug("pressure set", "value", value)

	return &mfc.Ack{Status: mfc.StatusOK, Pressure: &value}, nil
}

// SetGas selects the calibration gas. The gas may be addressed by symbolic
// name (resolved through the standard gas table, defaulting to code 0 for
// unrecognized names) or by numeric code directly.
func (d *Driver) SetGas(gas mfc.Gas) (*mfc.Ack, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.State().IsConnected() {
		return nil, mfc.ErrNotConnected
	}

	if d.cfg.Simulation() {
		d.metrics.IncSimulatedCount()
		d.logger.Debug("simulation: gas", "gas", gas)

		return &mfc.Ack{Status: mfc.StatusOK, Gas: &gas}, nil
	}

	if _, err := d.commandLocked(fmt.Sprintf("G%d", gas.DeviceCode())); err != nil {
		d.metrics.IncErrorCount()
		return nil, fmt.Errorf("set gas: %w", err)
	}

	d.metrics.IncWriteCount()
	d.logger.Debug("gas set", "gas", gas)

	return &mfc.Ack{Status: mfc.StatusOK, Gas: &gas}, nil
}

// ReadPID queries the three gain registers with one command each. A
// malformed or failed response for any gain degrades to 0 for that gain and
// is logged; the call itself fails only when the handle is not connected.
func (d *Driver) ReadPID() (mfc.PIDGains, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.State().IsConnected() {
		return mfc.PIDGains{}, mfc.ErrNotConnected
	}

	if d.cfg.Simulation() {
		d.metrics.IncSimulatedCount()
		return simulatedPID(), nil
	}

	return d.readPIDLocked(), nil
}

// readPIDLocked queries the three gain registers. Caller must hold the
// handle lock.
func (d *Driver) readPIDLocked() mfc.PIDGains {
	return mfc.PIDGains{
		P: d.readGainLocked("P", cmdReadP),
		D: d.readGainLocked("D", cmdReadD),
		I: d.readGainLocked("I", cmdReadI),
	}
}

// readGainLocked queries one gain register, degrading to 0 on any failure.
// The response format is "<unit> <value>".
func (d *Driver) readGainLocked(name, cmd string) int32 {
	response, err := d.commandLocked(cmd)
	if err != nil {
		d.logger.Warn("gain read failed", "gain", name, "error", err)
		return 0
	}

	parts := strings.Fields(response)
	if len(parts) < 2 {
		d.logger.Warn("gain response malformed", "gain", name, "response", response)
		return 0
	}

	value, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil {
		d.logger.Warn("gain response malformed", "gain", name, "response", response)
		return 0
	}

	return int32(value)
}

// SetPID writes each explicitly provided gain with a direct register write
// command; nil fields are left untouched on the device. Unlike the binary
// transport, the ASCII set path is strict: the first failed command aborts
// the whole call and propagates.
func (d *Driver) SetPID(gains mfc.PIDSetpoints) (*mfc.Ack, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.State().IsConnected() {
		return nil, mfc.ErrNotConnected
	}

	if d.cfg.Simulation() {
		d.metrics.IncSimulatedCount()
		return &mfc.Ack{Status: mfc.StatusOK, P: gains.P, D: gains.D, I: gains.I}, nil
	}

	ack := &mfc.Ack{Status: mfc.StatusOK}

	if gains.P != nil {
		if err := d.writeGainLocked("P", cmdWriteP, *gains.P); err != nil {
			return nil, err
		}
		ack.P = gains.P
	}
	if gains.D != nil {
		if err := d.writeGainLocked("D", cmdWriteD, *gains.D); err != nil {
			return nil, err
		}
		ack.D = gains.D
	}
	if gains.I != nil {
		if err := d.writeGainLocked("I", cmdWriteI, *gains.I); err != nil {
			return nil, err
		}
		ack.I = gains.I
	}

	d.metrics.IncWriteCount()

	return ack, nil
}

func (d *Driver) writeGainLocked(name, cmd string, value int32) error {
	if _, err := d.commandLocked(fmt.Sprintf("%s=%d", cmd, value)); err != nil {
		d.metrics.IncErrorCount()
		d.logger.Error("gain set failed", "gain", name, "error", err)

		return fmt.Errorf("set %s gain: %w", name, err)
	}

	d.logger.Debug("gain set", "gain", name, "value", value)

	return nil
}

// Write dispatches a resolved command to the matching setter. All four
// command variants are supported on this transport.
func (d *Driver) Write(fields mfc.Fields) (*mfc.Ack, error) {
	switch cmd := mfc.ResolveCommand(fields).(type) {
	case mfc.SetSetpoint:
		return d.SetFlowRate(cmd.Value)
	case mfc.SetPressure:
		return d.SetPressure(cmd.Value)
	case mfc.SetGas:
		return d.SetGas(cmd.Gas)
	case mfc.SetPID:
		return d.SetPID(cmd.Gains)
	default:
		return &mfc.Ack{Status: mfc.StatusNoOp}, nil
	}
}

// commandLocked frames and sends one command, then reads the response line.
// Caller must hold the handle lock.
func (d *Driver) commandLocked(body string) (string, error) {
	if d.port == nil {
		return "", mfc.ErrNotConnected
	}

	if err := d.port.ResetInputBuffer(); err != nil {
		return "", fmt.Errorf("reset input: %w: %v", mfc.ErrIO, err)
	}

	framed := d.cfg.UnitID() + body + "\r"
	if _, err := d.port.Write([]byte(framed)); err != nil {
		return "", fmt.Errorf("write %q: %w: %v", body, mfc.ErrIO, err)
	}

	line, err := d.readLineLocked()
	if err != nil {
		return "", err
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("no response to %q: %w", body, mfc.ErrTimeout)
	}

	return line, nil
}

// readLineLocked reads up to the next carriage return. A read that returns
// no data within the port's read timeout ends the window.
func (d *Driver) readLineLocked() (string, error) {
	var line []byte
	buf := make([]byte, 1)

	for {
		n, err := d.port.Read(buf)
		if err != nil {
			return "", fmt.Errorf("read: %w: %v", mfc.ErrIO, err)
		}
		if n == 0 {
			// Read window elapsed without a terminator.
			if len(line) == 0 {
				return "", fmt.Errorf("no response: %w", mfc.ErrTimeout)
			}

			return "", fmt.Errorf("incomplete response %q: %w", line, mfc.ErrTimeout)
		}
		if buf[0] == '\r' {
			return string(line), nil
		}
		line = append(line, buf[0])
	}
}

// statusLine holds the parsed fields of a status response.
type statusLine struct {
	pressure       float32
	temperature    float32
	volumetricFlow float32
	massFlow       float32
	setpoint       float32
	gas            string
}

// parseStatusLine parses the seven-field status response:
//
//	<unit> <pressure> <temperature> <vol-flow> <mass-flow> <setpoint> <gas>
func parseStatusLine(line string) (statusLine, error) {
	parts := strings.Fields(line)
	if len(parts) < statusFieldCount {
		return statusLine{}, fmt.Errorf("status line %q: %w: got %d fields, want %d",
			line, mfc.ErrParse, len(parts), statusFieldCount)
	}

	var values [5]float32
	for i := range values {
		v, err := strconv.ParseFloat(parts[i+1], 32)
		if err != nil {
			return statusLine{}, fmt.Errorf("status field %q: %w: %v", parts[i+1], mfc.ErrParse, err)
		}
		values[i] = float32(v)
	}

	return statusLine{
		pressure:       values[0],
		temperature:    values[1],
		volumetricFlow: values[2],
		massFlow:       values[3],
		setpoint:       values[4],
		gas:            parts[6],
	}, nil
}

// Fixed synthetic telemetry returned in simulation mode. ValveDrive stays
// 0.0; this transport never reports it.
const (
	simSetpoint       float32 = 22.0
	simPressure       float32 = 8.92
	simTemperature    float32 = 306.0
	simVolumetricFlow float32 = 21.0
	simMassFlow       float32 = 23.0
)

func simulatedReading() *mfc.TelemetryReading {
	return &mfc.TelemetryReading{
		Connected:      true,
		Setpoint:       simSetpoint,
		ValveDrive:     0.0,
		Pressure:       simPressure,
		Temperature:    simTemperature,
		VolumetricFlow: simVolumetricFlow,
		MassFlow:       simMassFlow,
	}
}

func simulatedPID() mfc.PIDGains {
	return mfc.PIDGains{P: 50, D: 120, I: 0}
}
