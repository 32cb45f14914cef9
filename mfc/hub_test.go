package mfc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeDriver is a minimal Driver implementation for hub tests.
type fakeDriver struct {
	closed   bool
	closeErr error
}

func (d *fakeDriver) Initialize() error    { return nil }
func (d *fakeDriver) Close() error         { d.closed = true; return d.closeErr }
func (d *fakeDriver) Connected() bool      { return !d.closed }
func (d *fakeDriver) State() ConnState     { return ConnectedState }
func (d *fakeDriver) Read(includePID bool) (*TelemetryReading, error) {
	return &TelemetryReading{Connected: true}, nil
}
func (d *fakeDriver) ReadSetpoint() (float32, error)               { return 0, nil }
func (d *fakeDriver) SetFlowRate(value float32) (*Ack, error)      { return &Ack{Status: StatusOK}, nil }
func (d *fakeDriver) ReadPID() (PIDGains, error)                   { return PIDGains{}, nil }
func (d *fakeDriver) SetPID(gains PIDSetpoints) (*Ack, error)      { return &Ack{Status: StatusOK}, nil }
func (d *fakeDriver) Write(fields Fields) (*Ack, error)            { return &Ack{Status: StatusNoOp}, nil }

func TestHubRegisterAndGet(t *testing.T) {
	require := require.New(t)

	hub := NewHub(nil)
	drv := &fakeDriver{}

	require.NoError(hub.Register("flow-a", drv))
	require.Equal(1, hub.Len())

	got, ok := hub.Get("flow-a")
	require.True(ok)
	require.Same(drv, got)

	_, ok = hub.Get("flow-b")
	require.False(ok)
}

func TestHubRegisterDuplicate(t *testing.T) {
	require := require.New(t)

	hub := NewHub(nil)
	require.NoError(hub.Register("flow-a", &fakeDriver{}))
	require.ErrorIs(hub.Register("flow-a", &fakeDriver{}), ErrDriverExists)
	require.Equal(1, hub.Len())
}

func TestHubRemove(t *testing.T) {
	require := require.New(t)

	hub := NewHub(nil)
	drv := &fakeDriver{}
	require.NoError(hub.Register("flow-a", drv))

	hub.Remove("flow-a")
	_, ok := hub.Get("flow-a")
	require.False(ok)
	require.False(drv.closed, "Remove must not close the driver")
}

func TestHubCloseAll(t *testing.T) {
	require := require.New(t)

	hub := NewHub(nil)
	good := &fakeDriver{}
	bad := &fakeDriver{closeErr: errors.New("port stuck")}

	require.NoError(hub.Register("good", good))
	require.NoError(hub.Register("bad", bad))

	err := hub.CloseAll()
	require.Error(err)
	require.Contains(err.Error(), "port stuck")

	require.True(good.closed)
	require.True(bad.closed)
	require.Equal(0, hub.Len())
}

func TestHubEach(t *testing.T) {
	require := require.New(t)

	hub := NewHub(nil)
	require.NoError(hub.Register("a", &fakeDriver{}))
	require.NoError(hub.Register("b", &fakeDriver{}))

	seen := map[string]bool{}
	hub.Each(func(name string, driver Driver) bool {
		seen[name] = true
		return true
	})
	require.Len(seen, 2)
}
