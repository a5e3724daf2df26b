package mtp40f

import (
	"sync/atomic"
)

// DeviceMetrics contains atomic metrics for an MTP40-F device.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type DeviceMetrics struct {
	// RequestCount indicates the number of transactions started.
	RequestCount atomic.Uint64
	// RequestErrCount indicates the number of failed transactions.
	RequestErrCount atomic.Uint64
	// TimeoutCount indicates the number of transactions that timed out waiting for a response.
	TimeoutCount atomic.Uint64
	// ChecksumErrCount indicates the number of responses rejected for a checksum mismatch.
	ChecksumErrCount atomic.Uint64
	// GasLevelErrCount indicates the number of CO2 readings with a non-zero status byte.
	GasLevelErrCount atomic.Uint64

	// PollCount indicates the number of Poll invocations.
	PollCount atomic.Uint64
	// PollSkipCount indicates the number of polls suppressed by the warm-up or interval gate.
	PollSkipCount atomic.Uint64
}

func (m *DeviceMetrics) incRequestCount() {
	m.RequestCount.Add(1)
}

func (m *DeviceMetrics) incRequestErrCount() {
	m.RequestErrCount.Add(1)
}

func (m *DeviceMetrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *DeviceMetrics) incChecksumErrCount() {
	m.ChecksumErrCount.Add(1)
}

func (m *DeviceMetrics) incGasLevelErrCount() {
	m.GasLevelErrCount.Add(1)
}

func (m *DeviceMetrics) incPollCount() {
	m.PollCount.Add(1)
}

func (m *DeviceMetrics) incPollSkipCount() {
	m.PollSkipCount.Add(1)
}
