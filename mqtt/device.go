package mqtt

import (
	"context"
	"strconv"
	"strings"

	"github.com/arloliu/go-mtp40f/mtp40f"
)

// Topic names below the bridge prefix.
const (
	TopicCO2State                  = "co2/state"
	TopicAirPressureReferenceState = "air_pressure_reference/state"
	TopicSelfCalibrationSet        = "self_calibration/set"
	TopicSelfCalibrationState      = "self_calibration/state"
	TopicCalibrate400ppmSet        = "calibrate_400ppm/set"
)

// Switch payloads.
const (
	PayloadOn  = "ON"
	PayloadOff = "OFF"
)

// StatePublisher returns a Consumer publishing each value as a retained decimal string to
// the state topic name below the prefix, e.g. TopicCO2State.
func (b *Bridge) StatePublisher(name string) mtp40f.Consumer {
	topic := b.Topic(name)

	return mtp40f.ConsumerFunc(func(v float64) {
		payload := strconv.FormatFloat(v, 'f', -1, 64)
		if err := b.Publish(topic, []byte(payload), true); err != nil {
			b.logger.Warn("mqtt: failed to publish state", "topic", topic, "error", err)
		}
	})
}

// PressureSource returns a PressureSource reading hPa values from topic, a full topic
// usually published by another device. Payloads that are not numbers are dropped.
func (b *Bridge) PressureSource(topic string) mtp40f.PressureSource {
	return &pressureTopic{bridge: b, topic: topic}
}

type pressureTopic struct {
	bridge *Bridge
	topic  string
}

func (p *pressureTopic) Subscribe(fn func(hpa float64)) {
	err := p.bridge.Handle(p.topic, func(topic string, payload []byte) {
		hpa, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
		if err != nil {
			p.bridge.logger.Warn("mqtt: invalid pressure payload", "topic", topic, "payload", string(payload))
			return
		}
		fn(hpa)
	})
	if err != nil {
		p.bridge.logger.Error("mqtt: failed to subscribe pressure topic", "topic", p.topic, "error", err)
	}
}

// Calibrator is the calibration surface of a device.
type Calibrator interface {
	SetSelfCalibration(ctx context.Context, enabled bool) error
	Calibrate400ppm(ctx context.Context) error
}

var _ Calibrator = (*mtp40f.Device)(nil)

// BindCalibration subscribes the self calibration switch and the 400 ppm calibration
// command of dev, and publishes the initial switch state. Commands run with ctx.
func (b *Bridge) BindCalibration(ctx context.Context, dev Calibrator, selfCalibration bool) error {
	if err := b.publishSwitch(selfCalibration); err != nil {
		return err
	}

	err := b.Handle(b.Topic(TopicSelfCalibrationSet), func(topic string, payload []byte) {
		var enabled bool
		switch strings.ToUpper(strings.TrimSpace(string(payload))) {
		case PayloadOn:
			enabled = true
		case PayloadOff:
			enabled = false
		default:
			b.logger.Warn("mqtt: invalid switch payload", "topic", topic, "payload", string(payload))
			return
		}

		if err := dev.SetSelfCalibration(ctx, enabled); err != nil {
			b.logger.Warn("mqtt: self calibration command failed", "enabled", enabled, "error", err)
			return
		}
		if err := b.publishSwitch(enabled); err != nil {
			b.logger.Warn("mqtt: failed to publish switch state", "error", err)
		}
	})
	if err != nil {
		return err
	}

	return b.Handle(b.Topic(TopicCalibrate400ppmSet), func(string, []byte) {
		if err := dev.Calibrate400ppm(ctx); err != nil {
			b.logger.Warn("mqtt: calibration command failed", "error", err)
		}
	})
}

func (b *Bridge) publishSwitch(enabled bool) error {
	payload := PayloadOff
	if enabled {
		payload = PayloadOn
	}

	return b.Publish(b.Topic(TopicSelfCalibrationState), []byte(payload), true)
}
