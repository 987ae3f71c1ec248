// Package metrics holds the node's Prometheus instruments.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles room sensor metrics.
type Metrics struct {
	TelemetrySent       *prometheus.CounterVec
	TelemetrySuppressed *prometheus.CounterVec
	SendErrors          *prometheus.CounterVec
	PayloadTooLarge     prometheus.Counter
	ProvisioningTotal   *prometheus.CounterVec
	Occupied            prometheus.Gauge
	Calibrated          prometheus.Gauge
	Provisioned         prometheus.Gauge
}

// New constructs metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TelemetrySent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "room_sensor_telemetry_sent_total",
				Help: "Telemetry payloads handed to the transport, by metric",
			},
			[]string{"metric"},
		),
		TelemetrySuppressed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "room_sensor_telemetry_suppressed_total",
				Help: "Readings not sent because they matched the last sent value, by metric",
			},
			[]string{"metric"},
		),
		SendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "room_sensor_telemetry_send_errors_total",
				Help: "Telemetry sends that failed, by metric",
			},
			[]string{"metric"},
		),
		PayloadTooLarge: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "room_sensor_payload_too_large_total",
			Help: "Payloads dropped for exceeding the size bound",
		}),
		ProvisioningTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "room_sensor_provisioning_attempts_total",
				Help: "Provisioning lookups by result",
			},
			[]string{"result"},
		),
		Occupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "room_sensor_occupied",
			Help: "1 if the room is occupied",
		}),
		Calibrated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "room_sensor_calibrated",
			Help: "1 once the magnetometer baseline is frozen",
		}),
		Provisioned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "room_sensor_provisioned",
			Help: "1 once the device record has been fetched",
		}),
	}
	reg.MustRegister(
		m.TelemetrySent,
		m.TelemetrySuppressed,
		m.SendErrors,
		m.PayloadTooLarge,
		m.ProvisioningTotal,
		m.Occupied,
		m.Calibrated,
		m.Provisioned,
	)
	return m
}

// SetBool sets g to 1 or 0.
func SetBool(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}
