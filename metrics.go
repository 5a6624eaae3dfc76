package bme280

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	temperature prometheus.Gauge
	humidity    prometheus.Gauge
	pressure    prometheus.Gauge
	readErrors  prometheus.Counter
}

func newGauge(name string, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bme280",
		Name:      name,
		Help:      help,
	})
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		temperature: newGauge("temperature_celsius", "Air temperature (units: degrees Celsius)"),
		humidity:    newGauge("humidity_percent", "Relative humidity (units: % of relative humidity)"),
		pressure:    newGauge("pressure_kilopascals", "Atmospheric pressure (units: kPa)"),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bme280",
			Name:      "read_errors_total",
			Help:      "Number of failed sensor reads",
		}),
	}
	reg.MustRegister(m.temperature, m.humidity, m.pressure, m.readErrors)
	return m
}

func (m *metrics) observe(r Reading) {
	m.temperature.Set(r.Temperature)
	m.humidity.Set(r.Humidity)
	m.pressure.Set(r.Pressure)
}
