package publish

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mklimuk/envsenso/air"
)

const deviceLabel = "device"

// Exporter keeps the last reading of each device as Prometheus gauges.
type Exporter struct {
	registry    *prometheus.Registry
	temperature *prometheus.GaugeVec
	humidity    *prometheus.GaugeVec
	pressure    *prometheus.GaugeVec
	gas         *prometheus.GaugeVec
	readErrors  *prometheus.CounterVec
	readings    *prometheus.CounterVec
}

func newGauge(name string, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		[]string{deviceLabel},
	)
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry:    prometheus.NewRegistry(),
		temperature: newGauge("air_temperature", "Air temperature (units: degrees Celsius)"),
		humidity:    newGauge("air_humidity", "Humidity (units: % of relative humidity)"),
		pressure:    newGauge("air_pressure", "Air pressure (units: device units)"),
		gas:         newGauge("air_gas", "Gas resistance (units: device units)"),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "air_read_errors_total",
			Help: "Failed acquisitions",
		}, []string{deviceLabel}),
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "air_readings_total",
			Help: "Successful acquisitions",
		}, []string{deviceLabel}),
	}
	e.registry.MustRegister(e.temperature, e.humidity, e.pressure, e.gas, e.readErrors, e.readings)
	e.registry.MustRegister(prometheus.NewBuildInfoCollector())
	return e
}

// Observe records a successful reading.
func (e *Exporter) Observe(device string, r air.Reading) {
	e.temperature.WithLabelValues(device).Set(float64(r.Temperature))
	e.humidity.WithLabelValues(device).Set(float64(r.Humidity))
	e.pressure.WithLabelValues(device).Set(float64(r.AirPressure))
	e.gas.WithLabelValues(device).Set(float64(r.Gas))
	e.readings.WithLabelValues(device).Inc()
}

// Failed counts an acquisition error; gauges keep the last good values.
func (e *Exporter) Failed(device string) {
	e.readErrors.WithLabelValues(device).Inc()
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
