package mfcmodbus

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/opencryo/go-mfc/logger"
	"github.com/opencryo/go-mfc/mfc"
)

// regClient is the subset of the goburrow Modbus client the driver uses:
// read-input-block, read-holding-pair and write-holding-pair primitives.
type regClient interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// Driver is the binary-transport implementation of [mfc.Driver].
//
// A Driver owns exactly one device handle. All public operations serialize
// on the handle lock, including PID settle delays.
type Driver struct {
	cfg    *Config
	logger logger.Logger

	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  regClient

	state   *mfc.ConnStateMgr
	metrics mfc.DriverMetrics

	// settle is time.Sleep, replaceable in tests.
	settle func(time.Duration)
}

var _ mfc.Driver = (*Driver)(nil)

// NewDriver creates a binary-transport driver from cfg.
// The returned driver is disconnected; call Initialize before use.
func NewDriver(cfg *Config) *Driver {
	return &Driver{
		cfg:    cfg,
		logger: cfg.Logger(),
		state:  mfc.NewConnStateMgr(cfg.Logger()),
		settle: time.Sleep,
	}
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

// Initialize opens the persistent Modbus TCP connection to the device.
// In simulation mode it only sets the connected state and performs no I/O.
// It fails with mfc.ErrConnection when the socket cannot be opened and
// leaves the handle disconnected.
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

	endpoint := net.JoinHostPort(d.cfg.Host(), strconv.Itoa(d.cfg.Port()))
	d.logger.Debug("connecting", "endpoint", endpoint, "unit_id", d.cfg.UnitID())

	handler := modbus.NewTCPClientHandler(endpoint)
	handler.Timeout = d.cfg.Timeout()
	handler.SlaveId = d.cfg.UnitID()

	if err := handler.Connect(); err != nil {
		d.state.ToDisconnected()
		d.logger.Error("unable to connect", "endpoint", endpoint, "error", err)

		return fmt.Errorf("dial %s: %w: %v", endpoint, mfc.ErrConnection, err)
	}

	d.handler = handler
	d.client = modbus.NewClient(handler)

	if err := d.state.ToConnected(); err != nil {
		return err
	}

	d.logger.Info("connected", "endpoint", endpoint)

	return nil
}

// Close releases the connection. It is idempotent and always clears the
// connected state.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handler != nil {
		_ = d.handler.Close()
		d.handler = nil
		d.client = nil
	}
	d.state.ToDisconnected()
	d.logger.Debug("disconnected")

	return nil
}

// Read returns a fresh telemetry snapshot assembled from a single 16-word
// block read, so all fields are sampled from one coherent instant. When
// includePID is true, the PID select-then-read sequence runs under the same
// lock and the gains are merged into the result.
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

	regs, err := d.readBlockLocked()
	if err != nil {
		d.metrics.IncErrorCount()
		return nil, err
	}

	pair := func(off int) float32 {
		return DecodeFloat32(regs[off], regs[off+1])
	}

	tr := &mfc.TelemetryReading{
		Connected:      true,
		Setpoint:       pair(offSetpoint),
		ValveDrive:     pair(offValveDrive),
		Pressure:       pair(offPressure),
		Temperature:    pair(offTemperature),
		VolumetricFlow: pair(offVolumetricFlow),
		MassFlow:       pair(offMassFlow),
	}

	if includePID {
		pid := d.readPIDLocked()
		tr.PID = &pid
	}

	d.metrics.IncReadCount()

	return tr, nil
}

// ReadSetpoint reads the current flow setpoint from its dedicated holding
// pair, independent of the block read.
func (d *Driver) ReadSetpoint() (float32, error) {
	return d.readPair(regSetpoint, true, simSetpoint)
}

// ReadMassFlow reads the mass flow rate from its dedicated input pair.
func (d *Driver) ReadMassFlow() (float32, error) {
	return d.readPair(regMassFlow, false, simMassFlow)
}

// ReadPressure reads the current pressure from its dedicated input pair.
func (d *Driver) ReadPressure() (float32, error) {
	return d.readPair(regPressure, false, simPressure)
}

// ReadTemperature reads the current temperature from its dedicated input
// pair.
func (d *Driver) ReadTemperature() (float32, error) {
	return d.readPair(regTemperature, false, simTemperature)
}

// SetFlowRate encodes and writes the setpoint register pair. Values outside
// [mfc.SetpointMin, mfc.SetpointMax] are transmitted anyway; the driver only
// logs a warning.
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

	hi, lo := EncodeFloat32(value)
	if _, err := d.client.WriteMultipleRegisters(regSetpoint, regPairLen, regsToBytes(hi, lo)); err != nil {
		d.metrics.IncErrorCount()
		return nil, fmt.Errorf("setpoint write @%d: %w: %v", regSetpoint, mfc.ErrProtocol, err)
	}

	d.metrics.IncWriteCount()
	d.logger.Debug("setpoint set", "value", value)

	return &mfc.Ack{Status: mfc.StatusOK, Setpoint: &value}, nil
}

// ReadPID reads the three controller gains through the device-side register
// pointer: select a slot, wait the settle delay, read the result register,
// repeat. The whole sequence runs under one held lock. A slot whose
// exchange fails degrades to 0 rather than aborting the call.
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

// readPIDLocked performs the select-then-read sequence for all three gain
// slots. Caller must hold the handle lock.
func (d *Driver) readPIDLocked() mfc.PIDGains {
	var gains [3]int32

	for slot := uint16(0); slot < 3; slot++ {
		gains[slot] = d.readGainLocked(slot)
	}

	return mfc.PIDGains{P: gains[0], D: gains[1], I: gains[2]}
}

// readGainLocked selects one gain slot and reads it back, degrading to 0 on
// any failure.
func (d *Driver) readGainLocked(slot uint16) int32 {
	if _, err := d.client.WriteMultipleRegisters(regPIDControl, regPairLen, regsToBytes(opSelectSlot, slot)); err != nil {
		d.logger.Warn("gain slot select failed", "slot", slot, "error", err)
		return 0
	}

	// Let the device latch the selection before reading the result.
	d.settle(d.cfg.SettleDelay())

	raw, err := d.client.ReadInputRegisters(regPIDResult, 1)
	if err != nil || len(raw) < 2 {
		d.logger.Warn("gain read failed", "slot", slot, "error", err)
		return 0
	}

	return int32(uint16(raw[0])<<8 | uint16(raw[1]))
}

// SetPID writes each explicitly provided gain with a direct set-slot command
// followed by the settle delay; nil fields are left untouched on the device.
// A failed gain write is logged and omitted from the acknowledgement, but
// does not prevent attempting the remaining gains.
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
		if d.writeGainLocked("P", opSetP, *gains.P) {
			ack.P = gains.P
		}
	}
	if gains.D != nil {
		if d.writeGainLocked("D", opSetD, *gains.D) {
			ack.D = gains.D
		}
	}
	if gains.I != nil {
		if d.writeGainLocked("I", opSetI, *gains.I) {
			ack.I = gains.I
		}
	}

	d.metrics.IncWriteCount()

	return ack, nil
}

// writeGainLocked writes one gain and waits the settle delay. It reports
// whether the write was acknowledged by the device.
func (d *Driver) writeGainLocked(name string, opcode uint16, value int32) bool {
	_, err := d.client.WriteMultipleRegisters(regPIDControl, regPairLen, regsToBytes(opcode, uint16(value)))
	d.settle(d.cfg.SettleDelay())

	if err != nil {
		d.metrics.IncErrorCount()
		d.logger.Warn("gain set failed", "gain", name, "error", err)

		return false
	}

	d.logger.Debug("gain set", "gain", name, "value", value)

	return true
}

// Write dispatches a resolved command to the matching setter. SetPressure
// and SetGas are not supported on the binary transport and yield a
// StatusNoOp acknowledgement.
func (d *Driver) Write(fields mfc.Fields) (*mfc.Ack, error) {
	switch cmd := mfc.ResolveCommand(fields).(type) {
	case mfc.SetSetpoint:
		return d.SetFlowRate(cmd.Value)
	case mfc.SetPID:
		return d.SetPID(cmd.Gains)
	case mfc.SetPressure, mfc.SetGas:
		d.logger.Debug("command not supported on binary transport", "command", fmt.Sprintf("%T", cmd))
		return &mfc.Ack{Status: mfc.StatusNoOp}, nil
	default:
		return &mfc.Ack{Status: mfc.StatusNoOp}, nil
	}
}

// readBlockLocked reads the full telemetry block as one input-register
// exchange. Caller must hold the handle lock.
func (d *Driver) readBlockLocked() ([]uint16, error) {
	raw, err := d.client.ReadInputRegisters(blockStart, blockLen)
	if err != nil {
		return nil, fmt.Errorf("block read @%d: %w: %v", blockStart, mfc.ErrProtocol, err)
	}
	if len(raw) != int(blockLen)*2 {
		return nil, fmt.Errorf("block read @%d: %w: got %d bytes, want %d",
			blockStart, mfc.ErrProtocol, len(raw), blockLen*2)
	}

	return bytesToRegs(raw), nil
}

// readPair reads one float register pair, from the holding space when
// holding is set and the input space otherwise.
func (d *Driver) readPair(address uint16, holding bool, simValue float32) (float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.State().IsConnected() {
		return 0, mfc.ErrNotConnected
	}

	if d.cfg.Simulation() {
		d.metrics.IncSimulatedCount()
		return simValue, nil
	}

	read := d.client.ReadInputRegisters
	if holding {
		read = d.client.ReadHoldingRegisters
	}

	raw, err := read(address, regPairLen)
	if err != nil {
		d.metrics.IncErrorCount()
		return 0, fmt.Errorf("pair read @%d: %w: %v", address, mfc.ErrProtocol, err)
	}
	if len(raw) < 4 {
		d.metrics.IncErrorCount()
		return 0, fmt.Errorf("pair read @%d: %w: short response", address, mfc.ErrProtocol)
	}

	regs := bytesToRegs(raw)
	d.metrics.IncReadCount()

	return DecodeFloat32(regs[0], regs[1]), nil
}

func bytesToRegs(data []byte) []uint16 {
	regs := make([]uint16, len(data)/2)
	for i := range regs {
		regs[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}

	return regs
}

func regsToBytes(regs ...uint16) []byte {
	data := make([]byte, len(regs)*2)
	for i, r := range regs {
		data[2*i] = byte(r >> 8)
		data[2*i+1] = byte(r)
	}

	return data
}

// Fixed synthetic telemetry returned in simulation mode.
const (
	simSetpoint       float32 = 22.0
	simValveDrive     float32 = 27.0
	simPressure       float32 = 8.92
	simTemperature    float32 = 306.0
	simVolumetricFlow float32 = 21.0
	simMassFlow       float32 = 23.0
)

func simulatedReading() *mfc.TelemetryReading {
	return &mfc.TelemetryReading{
		Connected:      true,
		Setpoint:       simSetpoint,
		ValveDrive:     simValveDrive,
		Pressure:       simPressure,
		Temperature:    simTemperature,
		VolumetricFlow: simVolumetricFlow,
		MassFlow:       simMassFlow,
	}
}

func simulatedPID() mfc.PIDGains {
	return mfc.PIDGains{P: 50, D: 120, I: 0}
}
