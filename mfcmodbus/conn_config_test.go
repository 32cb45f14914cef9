package mfcmodbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencryo/go-mfc/logger"
)

func TestNewConfigDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := NewConfig("192.0.2.10")
	require.NoError(err)

	require.Equal("192.0.2.10", cfg.Host())
	require.Equal(DefaultPort, cfg.Port())
	require.Equal(DefaultUnitID, cfg.UnitID())
	require.Equal(DefaultTimeout, cfg.Timeout())
	require.Equal(DefaultSettleDelay, cfg.SettleDelay())
	require.False(cfg.Simulation())
	require.NotNil(cfg.Logger())
}

func TestNewConfigOptions(t *testing.T) {
	require := require.New(t)

	log := logger.NewSlog(logger.ErrorLevel, false)

	cfg, err := NewConfig("flow-controller.local",
		WithPort(1502),
		WithUnitID(3),
		WithTimeout(time.Second),
		WithSettleDelay(10*time.Millisecond),
		WithSimulation(true),
		WithLogger(log),
	)
	require.NoError(err)

	require.Equal(1502, cfg.Port())
	require.Equal(byte(3), cfg.UnitID())
	require.Equal(time.Second, cfg.Timeout())
	require.Equal(10*time.Millisecond, cfg.SettleDelay())
	require.True(cfg.Simulation())
	require.Equal(log, cfg.Logger())
}

func TestNewConfigValidation(t *testing.T) {
	require := require.New(t)

	_, err := NewConfig("")
	require.Error(err)

	_, err = NewConfig("   ")
	require.Error(err)

	_, err = NewConfig("192.0.2.10", WithPort(0))
	require.Error(err)

	_, err = NewConfig("192.0.2.10", WithPort(70000))
	require.Error(err)

	_, err = NewConfig("192.0.2.10", WithTimeout(0))
	require.Error(err)

	_, err = NewConfig("192.0.2.10", WithSettleDelay(-time.Second))
	require.Error(err)

	_, err = NewConfig("192.0.2.10", WithLogger(nil))
	require.Error(err)

	// Zero settle delay is legal for simulated devices.
	_, err = NewConfig("192.0.2.10", WithSettleDelay(0))
	require.NoError(err)
}
