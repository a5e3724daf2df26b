package mtp40f

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-mtp40f/logger"
)

// Default values.
const (
	DefaultWarmup          = 60 * time.Second
	DefaultMinReadInterval = 2 * time.Second
	DefaultRequestTimeout  = 1 * time.Second
	DefaultPollInterval    = 60 * time.Second

	// DefaultYieldInterval is how long the transaction engine sleeps between polls of
	// the transport while waiting for response bytes.
	DefaultYieldInterval = time.Millisecond
)

// Range limits.
const (
	MaxWarmup = 10 * time.Minute

	MinRequestTimeout = 100 * time.Millisecond
	MaxRequestTimeout = 30 * time.Second

	MaxMinReadInterval = time.Hour
)

// DeviceConfig holds the configuration of a Device.
type DeviceConfig struct {
	selfCalibration bool
	warmup          time.Duration
	minReadInterval time.Duration
	requestTimeout  time.Duration

	clock  Clock
	yield  func()
	logger logger.Logger
}

// NewDeviceConfig creates a device configuration.
//
// opts are functional options applied in order; see With* functions.
func NewDeviceConfig(opts ...DeviceOption) (*DeviceConfig, error) {
	cfg := &DeviceConfig{
		selfCalibration: true,
		warmup:          DefaultWarmup,
		minReadInterval: DefaultMinReadInterval,
		requestTimeout:  DefaultRequestTimeout,
		yield:           sleepYield(DefaultYieldInterval),
		logger:          logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.clock == nil {
		cfg.clock = NewSystemClock()
	}

	return cfg, nil
}

// SelfCalibration returns whether self calibration is enabled at setup.
func (cfg *DeviceConfig) SelfCalibration() bool { return cfg.selfCalibration }

// Warmup returns the period after setup during which reads are suppressed.
func (cfg *DeviceConfig) Warmup() time.Duration { return cfg.warmup }

// MinReadInterval returns the minimum time between two CO2 reads.
func (cfg *DeviceConfig) MinReadInterval() time.Duration { return cfg.minReadInterval }

// RequestTimeout returns the response timeout of a single transaction.
func (cfg *DeviceConfig) RequestTimeout() time.Duration { return cfg.requestTimeout }

// Clock returns the clock used for timeouts and gates.
func (cfg *DeviceConfig) Clock() Clock { return cfg.clock }

// GetLogger returns the configured logger.
func (cfg *DeviceConfig) GetLogger() logger.Logger { return cfg.logger }

// --- DeviceOption ---

// DeviceOption is a functional option for configuring a DeviceConfig.
type DeviceOption interface {
	apply(*DeviceConfig) error
}

type deviceOptFunc func(*DeviceConfig) error

func (f deviceOptFunc) apply(cfg *DeviceConfig) error { return f(cfg) }

// WithSelfCalibration sets whether automatic baseline correction is enabled at setup.
// Enabled by default.
func WithSelfCalibration(enabled bool) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		cfg.selfCalibration = enabled
		return nil
	})
}

// WithWarmup sets the warm-up period. Must be in [0, MaxWarmup]; the resolution is one
// millisecond.
func WithWarmup(d time.Duration) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if d < 0 || d > MaxWarmup {
			return fmt.Errorf("mtp40f: warm-up %v out of range [0, %v]", d, MaxWarmup)
		}
		cfg.warmup = d

		return nil
	})
}

// WithMinReadInterval sets the minimum time between two reads issued by Poll.
func WithMinReadInterval(d time.Duration) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if d < 0 || d > MaxMinReadInterval {
			return fmt.Errorf("mtp40f: min read interval %v out of range [0, %v]", d, MaxMinReadInterval)
		}
		cfg.minReadInterval = d

		return nil
	})
}

// WithRequestTimeout sets the response timeout of a transaction.
func WithRequestTimeout(d time.Duration) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if d < MinRequestTimeout || d > MaxRequestTimeout {
			return fmt.Errorf("mtp40f: request timeout %v out of range [%v, %v]", d, MinRequestTimeout, MaxRequestTimeout)
		}
		cfg.requestTimeout = d

		return nil
	})
}

// WithClock sets the clock used for timeouts and poll gates.
func WithClock(c Clock) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if c == nil {
			return errors.New("mtp40f: clock must not be nil")
		}
		cfg.clock = c

		return nil
	})
}

// WithYield sets the function called between transport polls while a transaction waits
// for response bytes. The default sleeps DefaultYieldInterval.
func WithYield(fn func()) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if fn == nil {
			return errors.New("mtp40f: yield func must not be nil")
		}
		cfg.yield = fn

		return nil
	})
}

// WithLogger sets the logger for the device.
func WithLogger(l logger.Logger) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if l == nil {
			return errors.New("mtp40f: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
