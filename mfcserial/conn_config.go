package mfcserial

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opencryo/go-mfc/logger"
)

// Default configuration values.
const (
	DefaultBaudRate = 19200
	DefaultUnitID   = "A"

	// DefaultReadTimeout bounds the wait for a response line after a
	// command has been written.
	DefaultReadTimeout = 500 * time.Millisecond
)

// Config holds all configuration for an ASCII-transport driver.
type Config struct {
	// portPath is the serial port address, e.g. "/dev/ttyUSB0" or "COM3".
	portPath string

	// baudRate for the 8N1 serial frame.
	baudRate int

	// unitID is the device unit identifier prefixed to every command.
	unitID string

	// readTimeout bounds the read window for one response line.
	readTimeout time.Duration

	// simulation short-circuits all transport calls with fixed synthetic
	// values.
	simulation bool

	logger logger.Logger
}

// NewConfig creates an ASCII-transport driver configuration for the device
// on portPath.
//
// It initializes a Config with default values and then applies the provided
// options; see the With* functions for available configuration options.
func NewConfig(portPath string, opts ...ConnOption) (*Config, error) {
	cfg := &Config{
		baudRate:    DefaultBaudRate,
		unitID:      DefaultUnitID,
		readTimeout: DefaultReadTimeout,
		logger:      logger.GetLogger(),
	}

	if err := cfg.setPortPath(portPath); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// PortPath returns the serial port address.
func (cfg *Config) PortPath() string { return cfg.portPath }

// BaudRate returns the serial baud rate.
func (cfg *Config) BaudRate() int { return cfg.baudRate }

// UnitID returns the device unit identifier.
func (cfg *Config) UnitID() string { return cfg.unitID }

// ReadTimeout returns the response read window.
func (cfg *Config) ReadTimeout() time.Duration { return cfg.readTimeout }

// Simulation returns whether simulation mode is active.
func (cfg *Config) Simulation() bool { return cfg.simulation }

// Logger returns the configured logger.
func (cfg *Config) Logger() logger.Logger { return cfg.logger }

func (cfg *Config) setPortPath(portPath string) error {
	portPath = strings.TrimSpace(portPath)
	if portPath == "" {
		return errors.New("port path is required")
	}
	cfg.portPath = portPath

	return nil
}

// ConnOption represents a functional option for configuring a Config.
type ConnOption interface {
	apply(*Config) error
}

type connOptFunc func(*Config) error

func (f connOptFunc) apply(cfg *Config) error { return f(cfg) }

// WithBaudRate sets the serial baud rate. Defaults to 19200.
func WithBaudRate(baudRate int) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if baudRate <= 0 {
			return fmt.Errorf("invalid baud rate: %d", baudRate)
		}
		cfg.baudRate = baudRate

		return nil
	})
}

// WithUnitID sets the device unit identifier prefixed to every command.
// Defaults to "A".
func WithUnitID(unitID string) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if unitID == "" {
			return errors.New("unit id is required")
		}
		cfg.unitID = unitID

		return nil
	})
}

// WithReadTimeout sets the response read window. Defaults to 500
// milliseconds.
func WithReadTimeout(timeout time.Duration) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("invalid read timeout: %v", timeout)
		}
		cfg.readTimeout = timeout

		return nil
	})
}

// WithSimulation enables or disables simulation mode. When enabled the
// driver performs no transport I/O and answers with fixed synthetic values.
func WithSimulation(enabled bool) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		cfg.simulation = enabled
		return nil
	})
}

// WithLogger sets the logger used by the driver.
func WithLogger(log logger.Logger) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if log == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = log

		return nil
	})
}
