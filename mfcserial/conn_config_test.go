package mfcserial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencryo/go-mfc/logger"
)

func TestNewConfigDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := NewConfig("/dev/ttyUSB0")
	require.NoError(err)

	require.Equal("/dev/ttyUSB0", cfg.PortPath())
	require.Equal(DefaultBaudRate, cfg.BaudRate())
	require.Equal(DefaultUnitID, cfg.UnitID())
	require.Equal(DefaultReadTimeout, cfg.ReadTimeout())
	require.False(cfg.Simulation())
	require.NotNil(cfg.Logger())
}

func TestNewConfigOptions(t *testing.T) {
	require := require.New(t)

	log := logger.NewSlog(logger.ErrorLevel, false)

	cfg, err := NewConfig("COM3",
		WithBaudRate(9600),
		WithUnitID("B"),
		WithReadTimeout(time.Second),
		WithSimulation(true),
		WithLogger(log),
	)
	require.NoError(err)

	require.Equal("COM3", cfg.PortPath())
	require.Equal(9600, cfg.BaudRate())
	require.Equal("B", cfg.UnitID())
	require.Equal(time.Second, cfg.ReadTimeout())
	require.True(cfg.Simulation())
	require.Equal(log, cfg.Logger())
}

func TestNewConfigValidation(t *testing.T) {
	require := require.New(t)

	_, err := NewConfig("")
	require.Error(err)

	_, err = NewConfig("/dev/ttyUSB0", WithBaudRate(0))
	require.Error(err)

	_, err = NewConfig("/dev/ttyUSB0", WithBaudRate(-19200))
	require.Error(err)

	_, err = NewConfig("/dev/ttyUSB0", WithUnitID(""))
	require.Error(err)

	_, err = NewConfig("/dev/ttyUSB0", WithReadTimeout(0))
	require.Error(err)

	_, err = NewConfig("/dev/ttyUSB0", WithLogger(nil))
	require.Error(err)
}
