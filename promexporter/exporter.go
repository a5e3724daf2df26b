// Package promexporter exports MTP40-F readings and device metrics to Prometheus.
package promexporter

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arloliu/go-mtp40f/mtp40f"
)

const namespace = "mtp40f"

// Source is the device state read by the exporter.
type Source interface {
	GetMetrics() *mtp40f.DeviceMetrics
	LastError() mtp40f.ErrorCode
	Warning() bool
}

var _ Source = (*mtp40f.Device)(nil)

// NewRegistry creates a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// Handler returns the HTTP handler serving reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Exporter holds the reading gauges of one device.
type Exporter struct {
	CO2                  prometheus.Gauge
	AirPressureReference prometheus.Gauge
}

// CO2Consumer returns a Consumer setting the CO2 gauge.
func (e *Exporter) CO2Consumer() mtp40f.Consumer {
	return mtp40f.ConsumerFunc(e.CO2.Set)
}

// AirPressureReferenceConsumer returns a Consumer setting the air pressure reference gauge.
func (e *Exporter) AirPressureReferenceConsumer() mtp40f.Consumer {
	return mtp40f.ConsumerFunc(e.AirPressureReference.Set)
}

// Register registers the reading gauges and the device metrics of src with reg.
// labels are attached to every series, e.g. the serial device path.
func Register(reg prometheus.Registerer, src Source, labels prometheus.Labels) (*Exporter, error) {
	e := &Exporter{
		CO2: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "co2_ppm",
			Help:        "Last CO2 concentration reading in ppm.",
			ConstLabels: labels,
		}),
		AirPressureReference: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "air_pressure_reference_hpa",
			Help:        "Air pressure reference the sensor compensates with, in hPa.",
			ConstLabels: labels,
		}),
	}

	m := src.GetMetrics()
	counter := func(name, help string, fn func() uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return float64(fn()) })
	}
	gauge := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, fn)
	}

	cs := []prometheus.Collector{
		e.CO2,
		e.AirPressureReference,
		counter("requests_total", "Transactions started.", m.RequestCount.Load),
		counter("request_errors_total", "Transactions failed.", m.RequestErrCount.Load),
		counter("timeouts_total", "Transactions that timed out waiting for a response.", m.TimeoutCount.Load),
		counter("checksum_errors_total", "Responses rejected for a checksum mismatch.", m.ChecksumErrCount.Load),
		counter("gas_level_errors_total", "CO2 readings with a non-zero status.", m.GasLevelErrCount.Load),
		counter("polls_total", "Poll invocations.", m.PollCount.Load),
		counter("polls_skipped_total", "Polls suppressed by the warm-up or read interval gate.", m.PollSkipCount.Load),
		gauge("last_error", "Code of the last recorded error, 0 when OK.", func() float64 {
			return float64(src.LastError())
		}),
		gauge("warning", "1 while the sensor warms up or after a failed CO2 read.", func() float64 {
			if src.Warning() {
				return 1
			}

			return 0
		}),
	}

	var errs []error
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return e, nil
}
