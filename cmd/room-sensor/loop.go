package main

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/room-sensor/internal/logic"
	"github.com/sweeney/room-sensor/internal/metrics"
	"github.com/sweeney/room-sensor/internal/mqtt"
	"github.com/sweeney/room-sensor/internal/provisioning"
	"github.com/sweeney/room-sensor/internal/sensor"
	"github.com/sweeney/room-sensor/internal/status"
	"github.com/sweeney/room-sensor/internal/telemetry"
	"github.com/sweeney/room-sensor/internal/transport"
)

// Metric labels
const (
	metricTemperature = "temperature"
	metricLight       = "light"
	metricMotion      = "motion"
)

// deviceFetcher looks up the provisioned device record.
type deviceFetcher interface {
	FetchDevice(ctx context.Context, hardwareID string) (*provisioning.Device, error)
}

type loopDeps struct {
	sampler     sensor.Sampler
	button      sensor.Button
	sender      transport.Sender
	connStatus  mqtt.ConnectionStatus // nil for transports without a connection
	provisioner deviceFetcher
	tracker     *status.Tracker
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

type loopConfig struct {
	hardwareID     string
	hubDeviceID    string
	destination    string
	heartbeat      time.Duration
	provisionRetry time.Duration
}

// node is the sampling loop state. It is only touched by runLoop's goroutine.
type node struct {
	loopDeps
	cfg loopConfig

	detector  *logic.OccupancyDetector
	encoder   *telemetry.Encoder
	heartbeat *logic.Heartbeat

	device        *provisioning.Device
	nextProvision time.Time
	lastSendOK    bool
	sampledAt     time.Time
}

func runLoop(ctx context.Context, deps loopDeps, cfg loopConfig, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	start := now()

	// One reading before calibration seeds the baseline
	seed, err := deps.sampler.ReadMagnetometer()
	if err != nil {
		deps.logger.Warn("seed magnetometer read failed", zap.Error(err))
	}

	n := &node{
		loopDeps:  deps,
		cfg:       cfg,
		detector:  logic.NewOccupancyDetector(seed),
		heartbeat: logic.NewHeartbeat(cfg.heartbeat, start),
		sampledAt: start,
	}
	// Every payload of a cycle carries the cycle's sample time
	n.encoder = telemetry.NewEncoder(telemetry.ClockFunc(func() time.Time { return n.sampledAt }))
	n.provision(ctx, start)
	n.publishState()

	for {
		select {
		case s := <-sig:
			if s == syscall.SIGHUP {
				n.recalibrate()
				continue
			}
			n.logger.Info("shutting down", zap.String("signal", s.String()))
			return nil

		case <-ctx.Done():
			return nil

		case <-n.button.Presses():
			occupied := n.detector.ManualToggle()
			n.logger.Info("manual toggle", zap.Bool("occupied", occupied))
			n.tracker.RecordManualToggle()
			metrics.SetBool(n.metrics.Occupied, occupied)

		case <-tick:
			t := now()
			if n.device == nil && !t.Before(n.nextProvision) {
				n.provision(ctx, t)
			}
			n.cycle(ctx, t)
			n.publishState()
		}
	}
}

// recalibrate restarts calibration from a fresh magnetometer reading.
// Telemetry pauses until the new baseline is frozen.
func (n *node) recalibrate() {
	seed, err := n.sampler.ReadMagnetometer()
	if err != nil {
		n.logger.Warn("recalibrate: magnetometer read failed", zap.Error(err))
		return
	}
	n.detector.Recalibrate(seed)
	n.logger.Info("recalibrating", zap.Any("seed", seed))
	n.publishState()
}

// provision fetches the device record. On failure the node keeps sampling
// and tries again after the retry interval.
func (n *node) provision(ctx context.Context, t time.Time) {
	dev, err := n.provisioner.FetchDevice(ctx, n.cfg.hardwareID)
	if err != nil {
		n.nextProvision = t.Add(n.cfg.provisionRetry)
		n.metrics.ProvisioningTotal.WithLabelValues(provisioningResult(err)).Inc()
		n.logger.Warn("provisioning failed",
			zap.String("hardware_id", n.cfg.hardwareID),
			zap.Error(err),
			zap.Time("next_attempt", n.nextProvision),
		)
		return
	}

	n.device = dev
	n.metrics.ProvisioningTotal.WithLabelValues("ok").Inc()
	n.metrics.Provisioned.Set(1)
	n.tracker.SetIdentity(status.Identity{
		HubDeviceID: n.cfg.hubDeviceID,
		DeviceID:    dev.ID,
		SpaceID:     dev.SpaceID,
		Sensors:     len(dev.Sensors),
	})
	n.logger.Info("provisioned",
		zap.String("device_id", dev.ID),
		zap.String("space_id", dev.SpaceID),
		zap.Int("sensors", len(dev.Sensors)),
	)
}

func provisioningResult(err error) string {
	switch {
	case errors.Is(err, provisioning.ErrUnexpectedCardinality):
		return "cardinality"
	case errors.Is(err, provisioning.ErrMalformedSensorList),
		errors.Is(err, provisioning.ErrMalformedDevice),
		errors.Is(err, provisioning.ErrInvalidJSON):
		return "malformed"
	case errors.Is(err, provisioning.ErrStatus):
		return "status"
	default:
		return "error"
	}
}

// cycle samples temperature, light and the magnetometer in that order. Each
// metric is classified and, when due, encoded and sent before the next one
// is read.
func (n *node) cycle(ctx context.Context, t time.Time) {
	n.sampledAt = t
	readings := status.Readings{At: t}

	// Telemetry is held back until the baseline is frozen and the device
	// record is known.
	ready := n.detector.IsArmed() && n.device != nil
	force := ready && n.heartbeat.Due(t)
	if force {
		n.logger.Debug("heartbeat")
	}

	if temp, err := n.sampler.ReadTemperature(); err != nil {
		n.logger.Warn("temperature read failed", zap.Error(err))
	} else {
		readings.Temperature = temp
		if ready {
			n.emitTemperature(ctx, temp, force)
		}
	}

	if light, err := n.sampler.ReadLight(); err != nil {
		n.logger.Warn("light read failed", zap.Error(err))
	} else {
		readings.Light = light
		if ready {
			n.emitLight(ctx, light, force)
		}
	}

	mag, err := n.sampler.ReadMagnetometer()
	if err != nil {
		n.logger.Warn("magnetometer read failed", zap.Error(err))
	} else {
		readings.Mag = mag
		wasArmed := n.detector.IsArmed()
		occupied := n.detector.Sample(mag)
		if !wasArmed && n.detector.IsArmed() {
			n.logger.Info("calibrated", zap.Any("baseline", n.detector.Baseline()))
		}
		if ready {
			n.emitMotion(ctx, occupied, force)
		}
	}

	n.tracker.UpdateReadings(readings)
}

func (n *node) emitTemperature(ctx context.Context, v float64, force bool) {
	s, ok := n.device.SensorByType(provisioning.DataTypeTemperature)
	if !ok {
		return
	}
	payload, emit, err := n.encoder.Temperature(s, n.cfg.hubDeviceID, n.device.ConnectionString, v, force)
	n.deliver(ctx, metricTemperature, payload, emit, err)
}

func (n *node) emitLight(ctx context.Context, raw int, force bool) {
	s, ok := n.device.SensorByType(provisioning.DataTypeLight)
	if !ok {
		return
	}
	payload, emit, err := n.encoder.Light(s, n.cfg.hubDeviceID, n.device.ConnectionString, raw, force)
	n.deliver(ctx, metricLight, payload, emit, err)
}

func (n *node) emitMotion(ctx context.Context, occupied, force bool) {
	s, ok := n.device.SensorByType(provisioning.DataTypeMotion)
	if !ok {
		return
	}
	payload, emit, err := n.encoder.Motion(s, n.cfg.hubDeviceID, n.device.ConnectionString, occupied, force)
	n.deliver(ctx, metricMotion, payload, emit, err)
}

// deliver sends a payload. Failures are logged and counted, never retried.
func (n *node) deliver(ctx context.Context, metric string, payload []byte, emit bool, err error) {
	if !emit {
		n.metrics.TelemetrySuppressed.WithLabelValues(metric).Inc()
		n.tracker.RecordSuppressed()
		return
	}
	if errors.Is(err, telemetry.ErrPayloadTooLarge) {
		// A truncated payload is not valid JSON
		n.logger.Error("payload too large, not sent", zap.String("metric", metric), zap.Error(err))
		n.metrics.PayloadTooLarge.Inc()
		n.tracker.RecordTooLarge()
		return
	}
	if err != nil {
		n.logger.Error("encode payload", zap.String("metric", metric), zap.Error(err))
		return
	}

	if err := n.sender.Send(ctx, n.cfg.destination, payload); err != nil {
		n.lastSendOK = false
		n.logger.Warn("send failed", zap.String("metric", metric), zap.Error(err))
		n.metrics.SendErrors.WithLabelValues(metric).Inc()
		n.tracker.RecordSendError(err)
		return
	}
	n.lastSendOK = true
	n.logger.Debug("telemetry sent", zap.String("metric", metric), zap.Int("bytes", len(payload)))
	n.metrics.TelemetrySent.WithLabelValues(metric).Inc()
	n.tracker.RecordSent(metric)
}

// publishState refreshes the status tracker and gauges.
func (n *node) publishState() {
	occupied := n.detector.Occupied()
	armed := n.detector.IsArmed()

	n.tracker.UpdateDetector(occupied, n.detector.Phase(), n.detector.Baseline())
	metrics.SetBool(n.metrics.Occupied, occupied)
	metrics.SetBool(n.metrics.Calibrated, armed)

	if n.connStatus != nil {
		n.tracker.SetTransportConnected(n.connStatus.IsConnected())
	} else {
		n.tracker.SetTransportConnected(n.lastSendOK)
	}
}
