package mfcmodbus

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencryo/go-mfc/logger"
)

var errTestExchange = errors.New("exchange failed")

// recordLogger captures warning and error messages for assertions.
type recordLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

var _ logger.Logger = (*recordLogger)(nil)

func (l *recordLogger) Debug(msg string, keysAndValues ...any) {}
func (l *recordLogger) Info(msg string, keysAndValues ...any)  {}

func (l *recordLogger) Warn(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordLogger) Fatal(msg string, keysAndValues ...any) {}

func (l *recordLogger) With(keyValues ...any) logger.Logger { return l }
func (l *recordLogger) Level() logger.Level                 { return logger.DebugLevel }
func (l *recordLogger) SetLevel(level logger.Level)         {}

func (l *recordLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.warns)
}

// fakeRegClient emulates the device register map, including the PID
// selection pointer behavior.
type fakeRegClient struct {
	input   map[uint16]uint16
	holding map[uint16]uint16

	// pid holds the P, D and I gain registers reachable through the
	// selection pointer.
	pid          [3]uint16
	selectedSlot uint16

	failInput       map[uint16]error // input address → read error
	failWriteOp     map[uint16]error // PID control opcode → write error
	failResultSlots map[uint16]bool  // selected slot → fail the result read

	writes []regWrite
}

type regWrite struct {
	addr uint16
	regs []uint16
}

func newFakeRegClient() *fakeRegClient {
	return &fakeRegClient{
		input:           make(map[uint16]uint16),
		holding:         make(map[uint16]uint16),
		failInput:       make(map[uint16]error),
		failWriteOp:     make(map[uint16]error),
		failResultSlots: make(map[uint16]bool),
	}
}

func (c *fakeRegClient) seedInputFloat(addr uint16, value float32) {
	hi, lo := EncodeFloat32(value)
	c.input[addr] = hi
	c.input[addr+1] = lo
}

func (c *fakeRegClient) seedHoldingFloat(addr uint16, value float32) {
	hi, lo := EncodeFloat32(value)
	c.holding[addr] = hi
	c.holding[addr+1] = lo
}

func (c *fakeRegClient) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	if address == regPIDResult {
		if c.failResultSlots[c.selectedSlot] {
			return nil, errTestExchange
		}

		return regsToBytes(c.pid[c.selectedSlot]), nil
	}

	if err := c.failInput[address]; err != nil {
		return nil, err
	}

	regs := make([]uint16, quantity)
	for i := range regs {
		regs[i] = c.input[address+uint16(i)]
	}

	return regsToBytes(regs...), nil
}

func (c *fakeRegClient) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	regs := make([]uint16, quantity)
	for i := range regs {
		regs[i] = c.holding[address+uint16(i)]
	}

	return regsToBytes(regs...), nil
}

func (c *fakeRegClient) WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error) {
	regs := bytesToRegs(value)
	c.writes = append(c.writes, regWrite{addr: address, regs: regs})

	if address == regPIDControl {
		opcode, operand := regs[0], regs[1]
		if err := c.failWriteOp[opcode]; err != nil {
			return nil, err
		}

		switch opcode {
		case opSelectSlot:
			c.selectedSlot = operand
		case opSetP:
			c.pid[0] = operand
		case opSetD:
			c.pid[1] = operand
		case opSetI:
			c.pid[2] = operand
		}

		return nil, nil
	}

	for i, r := range regs {
		c.holding[address+uint16(i)] = r
	}

	return nil, nil
}

// panicRegClient fails the test on any transport call; used to prove that
// simulation mode never touches the transport.
type panicRegClient struct {
	t *testing.T
}

func (c *panicRegClient) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	c.t.Fatalf("simulation mode issued input read @%d", address)
	return nil, nil
}

func (c *panicRegClient) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	c.t.Fatalf("simulation mode issued holding read @%d", address)
	return nil, nil
}

func (c *panicRegClient) WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error) {
	c.t.Fatalf("simulation mode issued register write @%d", address)
	return nil, nil
}

// newConnectedDriver wires a driver to the given client and forces it into
// the Connected state without dialing.
func newConnectedDriver(t *testing.T, client regClient, opts ...ConnOption) (*Driver, *recordLogger) {
	t.Helper()

	log := &recordLogger{}
	opts = append([]ConnOption{WithSettleDelay(0), WithLogger(log)}, opts...)

	cfg, err := NewConfig("192.0.2.10", opts...)
	require.NoError(t, err)

	d := NewDriver(cfg)
	d.client = client
	require.NoError(t, d.state.ToConnecting())
	require.NoError(t, d.state.ToConnected())

	return d, log
}
