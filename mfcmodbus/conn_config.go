package mfcmodbus

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opencryo/go-mfc/logger"
)

// Default configuration values.
const (
	DefaultPort        = 502
	DefaultUnitID byte = 1

	// DefaultTimeout is the Modbus TCP request timeout.
	DefaultTimeout = 3 * time.Second

	// DefaultSettleDelay is the wait inserted after a PID slot selection or
	// gain write so the device can latch the new state.
	DefaultSettleDelay = 100 * time.Millisecond
)

// Config holds all configuration for a binary-transport driver.
type Config struct {
	host string
	port int

	// unitID is the Modbus unit identifier of the device.
	unitID byte

	// timeout bounds every Modbus request round trip.
	timeout time.Duration

	// settleDelay is held after PID control writes, under the handle lock.
	settleDelay time.Duration

	// simulation short-circuits all transport calls with fixed synthetic
	// values.
	simulation bool

	logger logger.Logger
}

// NewConfig creates a binary-transport driver configuration for the device
// at host.
//
// It initializes a Config with default values and then applies the provided
// options; see the With* functions for available configuration options.
func NewConfig(host string, opts ...ConnOption) (*Config, error) {
	cfg := &Config{
		port:        DefaultPort,
		unitID:      DefaultUnitID,
		timeout:     DefaultTimeout,
		settleDelay: DefaultSettleDelay,
		logger:      logger.GetLogger(),
	}

	if err := cfg.setHost(host); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Host returns the device host.
func (cfg *Config) Host() string { return cfg.host }

// Port returns the Modbus TCP port.
func (cfg *Config) Port() int { return cfg.port }

// UnitID returns the Modbus unit identifier.
func (cfg *Config) UnitID() byte { return cfg.unitID }

// Timeout returns the request timeout.
func (cfg *Config) Timeout() time.Duration { return cfg.timeout }

// SettleDelay returns the PID settle delay.
func (cfg *Config) SettleDelay() time.Duration { return cfg.settleDelay }

// Simulation returns whether simulation mode is active.
func (cfg *Config) Simulation() bool { return cfg.simulation }

// Logger returns the configured logger.
func (cfg *Config) Logger() logger.Logger { return cfg.logger }

func (cfg *Config) setHost(host string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return errors.New("host is required")
	}
	cfg.host = host

	return nil
}

// ConnOption represents a functional option for configuring a Config.
type ConnOption interface {
	apply(*Config) error
}

type connOptFunc func(*Config) error

func (f connOptFunc) apply(cfg *Config) error { return f(cfg) }

// WithPort sets the Modbus TCP port. Defaults to 502.
func WithPort(port int) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid port: %d", port)
		}
		cfg.port = port

		return nil
	})
}

// WithUnitID sets the Modbus unit identifier of the device. Defaults to 1.
func WithUnitID(id byte) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		cfg.unitID = id
		return nil
	})
}

// WithTimeout sets the Modbus request timeout. Defaults to 3 seconds.
func WithTimeout(timeout time.Duration) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("invalid timeout: %v", timeout)
		}
		cfg.timeout = timeout

		return nil
	})
}

// WithSettleDelay sets the wait after a PID control write. Defaults to
// 100 milliseconds. A zero delay is accepted for tests against simulated
// devices.
func WithSettleDelay(delay time.Duration) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if delay < 0 {
			return fmt.Errorf("invalid settle delay: %v", delay)
		}
		cfg.settleDelay = delay

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
