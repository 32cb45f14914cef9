package mfcserial

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencryo/go-mfc/logger"
)

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

// statusResponse is a well-formed seven-field status line for unit "A".
const statusResponse = "A 8.920 306.00 21.00 23.00 22.0000 Air"

// fakePort is a scripted in-memory serial port. Each written command is
// recorded and, if a response is scripted for its body, queued into the
// receive buffer. A Read with an empty buffer returns n == 0, mirroring the
// port read timeout contract.
type fakePort struct {
	unitID string

	// responses maps a command body to the exact bytes queued after the
	// command is written. Unscripted bodies leave the buffer empty.
	responses map[string][]byte

	failWrite error
	failReset error

	rx       []byte
	commands []string // framed commands as written
	resets   int
	closed   bool
	timeout  time.Duration
}

var _ serialPort = (*fakePort)(nil)

func newFakePort() *fakePort {
	return &fakePort{
		unitID:    DefaultUnitID,
		responses: make(map[string][]byte),
	}
}

// respond scripts a terminated response line for the given command body.
func (p *fakePort) respond(body, line string) {
	p.responses[body] = []byte(line + "\r")
}

// respondRaw scripts unterminated bytes, so the read window elapses before a
// carriage return arrives.
func (p *fakePort) respondRaw(body, raw string) {
	p.responses[body] = []byte(raw)
}

func (p *fakePort) Write(data []byte) (int, error) {
	if p.failWrite != nil {
		return 0, p.failWrite
	}

	framed := string(data)
	p.commands = append(p.commands, framed)

	body := strings.TrimPrefix(strings.TrimSuffix(framed, "\r"), p.unitID)
	if response, ok := p.responses[body]; ok {
		p.rx = append(p.rx, response...)
	}

	return len(data), nil
}

func (p *fakePort) Read(buf []byte) (int, error) {
	if len(p.rx) == 0 {
		return 0, nil
	}

	n := copy(buf, p.rx)
	p.rx = p.rx[n:]

	return n, nil
}

func (p *fakePort) ResetInputBuffer() error {
	if p.failReset != nil {
		return p.failReset
	}

	p.resets++
	p.rx = nil

	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

// panicPort fails the test on any transport call; used to prove that
// simulation mode never touches the port.
type panicPort struct {
	t *testing.T
}

var _ serialPort = (*panicPort)(nil)

func (p *panicPort) Read(buf []byte) (int, error) {
	p.t.Fatal("simulation mode issued a port read")
	return 0, nil
}

func (p *panicPort) Write(data []byte) (int, error) {
	p.t.Fatalf("simulation mode issued a port write %q", data)
	return 0, nil
}

func (p *panicPort) ResetInputBuffer() error {
	p.t.Fatal("simulation mode reset the input buffer")
	return nil
}

func (p *panicPort) SetReadTimeout(t time.Duration) error {
	p.t.Fatal("simulation mode set the read timeout")
	return nil
}

func (p *panicPort) Close() error { return nil }

// newConnectedDriver wires a driver to the given port and forces it into the
// Connected state without opening a system device.
func newConnectedDriver(t *testing.T, port serialPort, opts ...ConnOption) (*Driver, *recordLogger) {
	t.Helper()

	log := &recordLogger{}
	opts = append([]ConnOption{WithLogger(log)}, opts...)

	cfg, err := NewConfig("/dev/ttyUSB0", opts...)
	require.NoError(t, err)

	d := NewDriver(cfg)
	d.port = port
	require.NoError(t, d.state.ToConnecting())
	require.NoError(t, d.state.ToConnected())

	return d, log
}
