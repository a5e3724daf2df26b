package mtp40f

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-mtp40f/internal/pool"
	"github.com/arloliu/go-mtp40f/logger"
)

// Request frames without parameters are packed once.
var (
	getCO2Request                  = NewGetCO2Frame().Pack()
	getAirPressureReferenceRequest = NewGetAirPressureReferenceFrame().Pack()
)

// Device is an MTP40-F sensor attached to a Transport.
//
// All operations are safe for concurrent use; they are serialized by the device lock so
// that only one transaction is in flight at a time.
type Device struct {
	cfg    *DeviceConfig
	logger logger.Logger
	tr     *transactor

	mu               sync.Mutex
	co2Consumer      Consumer
	pressureConsumer Consumer
	setupAt          uint32 // warm-up origin
	lastReadAt       uint32 // minimum-interval gate
	hasRead          bool

	lastError atomic.Uint32
	warning   atomic.Bool

	metrics DeviceMetrics
}

// NewDevice creates a Device on the given transport.
//
// A nil transport is accepted; every transaction then fails with ErrNoStream.
func NewDevice(t Transport, cfg *DeviceConfig) (*Device, error) {
	if cfg == nil {
		return nil, errors.New("mtp40f: device config is nil")
	}

	d := &Device{
		cfg:    cfg,
		logger: cfg.logger,
	}
	d.tr = newTransactor(t, cfg, &d.metrics)

	return d, nil
}

// SetCO2Consumer sets the consumer of CO2 readings in ppm.
func (d *Device) SetCO2Consumer(c Consumer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.co2Consumer = c
}

// SetAirPressureReferenceConsumer sets the consumer of the air pressure reference in hPa.
// The reference is only read by Poll when a consumer is set.
func (d *Device) SetAirPressureReferenceConsumer(c Consumer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pressureConsumer = c
}

// SubscribeExternalPressure feeds readings of an external pressure sensor into the
// device's air pressure reference. See OnExternalPressure.
func (d *Device) SubscribeExternalPressure(src PressureSource) {
	src.Subscribe(func(hpa float64) {
		if err := d.OnExternalPressure(context.Background(), hpa); err != nil {
			d.logger.Warn("mtp40f: failed to apply external air pressure", "hpa", hpa, "error", err)
		}
	})
}

// Config returns the device configuration.
func (d *Device) Config() *DeviceConfig {
	return d.cfg
}

// GetMetrics returns the metrics associated with the device.
func (d *Device) GetMetrics() *DeviceMetrics {
	return &d.metrics
}

// LastError returns the code of the last recorded error.
func (d *Device) LastError() ErrorCode {
	return ErrorCode(d.lastError.Load()) //nolint:gosec // only ErrorCode values are stored
}

// Warning reports whether the device is in warning state: warming up, or the last
// CO2 read failed.
func (d *Device) Warning() bool {
	return d.warning.Load()
}

func (d *Device) setLastError(err error) {
	d.lastError.Store(uint32(CodeOf(err)))
}

// LogConfig logs the device configuration at info level.
func (d *Device) LogConfig() {
	d.mu.Lock()
	hasCO2, hasPressure := d.co2Consumer != nil, d.pressureConsumer != nil
	d.mu.Unlock()

	d.logger.Info("mtp40f: config",
		"co2", hasCO2,
		"airPressureReference", hasPressure,
		"selfCalibration", d.cfg.selfCalibration,
		"warmup", d.cfg.warmup,
		"minReadInterval", d.cfg.minReadInterval,
		"requestTimeout", d.cfg.requestTimeout,
	)
}

// --- Lifecycle ---

// Setup starts the warm-up period and applies the configured self calibration setting.
func (d *Device) Setup(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Info("mtp40f: setting up", "selfCalibration", d.cfg.selfCalibration, "warmup", d.cfg.warmup)

	d.setupAt = d.cfg.clock.Millis()
	d.hasRead = false
	d.setLastError(nil)

	return d.setSelfCalibration(ctx, d.cfg.selfCalibration)
}

// Poll performs one update cycle: it reads the CO2 concentration and, when a consumer is
// configured, the air pressure reference.
//
// Poll returns ErrWarmingUp during the warm-up period and ErrPollTooSoon when the
// previous read was less than the minimum read interval ago; no transaction is started
// in either case. A failed air pressure reference read is recorded and logged but does
// not fail the poll.
func (d *Device) Poll(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.metrics.incPollCount()

	now := d.cfg.clock.Millis()
	warmupMs := durationMillis(d.cfg.warmup)
	if elapsed := now - d.setupAt; elapsed < warmupMs {
		d.metrics.incPollSkipCount()
		d.warning.Store(true)
		d.logger.Warn("mtp40f: warming up", "secondsLeft", (warmupMs-elapsed)/1000)

		return ErrWarmingUp
	}

	if d.hasRead && now-d.lastReadAt < durationMillis(d.cfg.minReadInterval) {
		d.metrics.incPollSkipCount()
		return ErrPollTooSoon
	}
	d.lastReadAt = now
	d.hasRead = true

	d.setLastError(nil)

	if _, err := d.readCO2(ctx); err != nil {
		return err
	}

	if d.pressureConsumer != nil {
		if _, err := d.readAirPressureReference(ctx); err != nil {
			d.logger.Warn("mtp40f: failed to read air pressure reference",
				"error", err,
				"lastError", d.LastError(),
			)
		}
	}

	return nil
}

// Run calls Poll immediately and then every interval until ctx is done.
// It always returns a non-nil error: the context's error or an invalid interval.
func (d *Device) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("mtp40f: poll interval must be positive, got %v", interval)
	}

	timer := pool.GetTimer(interval)
	defer pool.PutTimer(timer)

	for {
		if err := d.Poll(ctx); err != nil && !isGateErr(err) && ctx.Err() == nil {
			d.logger.Debug("mtp40f: poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(interval)
		}
	}
}

// --- Reads ---

// ReadCO2 reads the CO2 concentration in ppm and forwards it to the CO2 consumer.
//
// A non-zero sensor status yields ErrInvalidGasLevel and nothing is forwarded. Any
// failure puts the device in warning state; a valid reading clears it.
func (d *Device) ReadCO2(ctx context.Context) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.setLastError(nil)

	return d.readCO2(ctx)
}

func (d *Device) readCO2(ctx context.Context) (uint32, error) {
	resp, err := d.tr.execute(ctx, getCO2Request, GetGasConcentrationResponseLen)
	if err == nil {
		var status byte
		var ppm uint32
		ppm, status, err = ParseGasConcentration(resp)
		if err == nil && status != 0x00 {
			d.metrics.incGasLevelErrCount()
			err = fmt.Errorf("%w: status 0x%02X", ErrInvalidGasLevel, status)
		}

		if err == nil {
			d.logger.Debug("mtp40f: received CO2", "ppm", ppm)
			if d.co2Consumer != nil {
				d.co2Consumer.Publish(float64(ppm))
			}
			d.warning.Store(false)

			return ppm, nil
		}
	}

	d.setLastError(err)
	d.warning.Store(true)
	d.logger.Warn("mtp40f: failed to read CO2", "error", err, "lastError", d.LastError())

	return 0, err
}

// ReadAirPressureReference reads the air pressure reference in hPa the sensor currently
// compensates with, and forwards it to the pressure reference consumer if one is set.
func (d *Device) ReadAirPressureReference(ctx context.Context) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.setLastError(nil)

	return d.readAirPressureReference(ctx)
}

func (d *Device) readAirPressureReference(ctx context.Context) (uint16, error) {
	resp, err := d.tr.execute(ctx, getAirPressureReferenceRequest, GetAirPressureReferenceResponseLen)
	if err != nil {
		d.setLastError(err)
		return 0, err
	}

	hpa, err := ParseAirPressureReference(resp)
	if err != nil {
		d.setLastError(err)
		return 0, err
	}

	d.logger.Debug("mtp40f: received air pressure reference", "hpa", hpa)
	if d.pressureConsumer != nil {
		d.pressureConsumer.Publish(float64(hpa))
	}

	return hpa, nil
}

// --- Commands ---

// SetAirPressureReference sets the air pressure the sensor compensates its readings with.
//
// Values outside [MinAirPressure, MaxAirPressure] are rejected with
// ErrInvalidAirPressure before anything is written. The sensor does not acknowledge
// this command, so success only means the frame was written.
func (d *Device) SetAirPressureReference(ctx context.Context, hpa uint16) error {
	if hpa < MinAirPressure || hpa > MaxAirPressure {
		err := fmt.Errorf("%w: %d hPa not in [%d, %d]", ErrInvalidAirPressure, hpa, MinAirPressure, MaxAirPressure)
		d.setLastError(err)
		d.logger.Warn("mtp40f: pressure value out of range", "hpa", hpa, "min", MinAirPressure, "max", MaxAirPressure)

		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Debug("mtp40f: setting air pressure reference", "hpa", hpa)

	return d.command(ctx, "setAirPressureReference",
		NewSetAirPressureReferenceFrame(hpa), SetAirPressureReferenceResponseLen)
}

// OnExternalPressure applies a reading of an external pressure sensor. Only readings
// strictly between MinAirPressure and MaxAirPressure are applied; others are ignored.
func (d *Device) OnExternalPressure(ctx context.Context, hpa float64) error {
	if !(hpa > float64(MinAirPressure) && hpa < float64(MaxAirPressure)) {
		d.logger.Debug("mtp40f: ignoring implausible external air pressure", "hpa", hpa)
		return nil
	}

	return d.SetAirPressureReference(ctx, uint16(hpa))
}

// Calibrate400ppm performs a single point calibration, declaring the current ambient
// concentration to be 400 ppm. The sensor must be in fresh outdoor air.
func (d *Device) Calibrate400ppm(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Info("mtp40f: calibrating to 400 ppm")

	return d.command(ctx, "calibrate400ppm", NewCalibrate400ppmFrame(), CalibrateSinglePointResponseLen)
}

// EnableSelfCalibration turns on the sensor's automatic baseline correction.
func (d *Device) EnableSelfCalibration(ctx context.Context) error {
	return d.SetSelfCalibration(ctx, true)
}

// DisableSelfCalibration turns off the sensor's automatic baseline correction.
func (d *Device) DisableSelfCalibration(ctx context.Context) error {
	return d.SetSelfCalibration(ctx, false)
}

// SetSelfCalibration turns the sensor's automatic baseline correction on or off.
func (d *Device) SetSelfCalibration(ctx context.Context, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.setSelfCalibration(ctx, enabled)
}

func (d *Device) setSelfCalibration(ctx context.Context, enabled bool) error {
	if enabled {
		d.logger.Debug("mtp40f: enabling self calibration")
		return d.command(ctx, "enableSelfCalibration", NewSelfCalibrationFrame(true), SelfCalibrationResponseLen)
	}

	d.logger.Debug("mtp40f: disabling self calibration")

	return d.command(ctx, "disableSelfCalibration", NewSelfCalibrationFrame(false), SelfCalibrationResponseLen)
}

// command runs a transaction whose response carries nothing but an acknowledgment.
// The caller must hold d.mu.
func (d *Device) command(ctx context.Context, name string, f *Frame, respLen int) error {
	d.setLastError(nil)

	if _, err := d.tr.execute(ctx, f.Pack(), respLen); err != nil {
		d.setLastError(err)
		d.logger.Warn("mtp40f: command failed", "command", name, "error", err, "lastError", d.LastError())

		return err
	}

	return nil
}

func durationMillis(d time.Duration) uint32 {
	return uint32(d.Milliseconds()) //nolint:gosec // bounded by config limits
}
