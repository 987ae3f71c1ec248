// Command room-sensor samples a room's temperature, light and door
// magnetometer, tracks occupancy, and sends telemetry when state changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sweeney/room-sensor/internal/config"
	"github.com/sweeney/room-sensor/internal/credential"
	"github.com/sweeney/room-sensor/internal/metrics"
	"github.com/sweeney/room-sensor/internal/mqtt"
	"github.com/sweeney/room-sensor/internal/provisioning"
	"github.com/sweeney/room-sensor/internal/sensor"
	"github.com/sweeney/room-sensor/internal/status"
	"github.com/sweeney/room-sensor/internal/transport"
	"github.com/sweeney/room-sensor/internal/web"
)

func main() {
	cfg, err := config.Load(viper.New())
	if err != nil {
		log.Fatalf("fatal: config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("fatal: logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("using config", zap.Any("config", cfg.Redacted()))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("fatal", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zapCfg.Build()
}

func credentialStore(cfg *config.Config) credential.Store {
	if cfg.Credential.File != "" {
		return credential.FileStore{Path: cfg.Credential.File}
	}
	return credential.StaticStore{Value: cfg.Credential.ConnectionString}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	connStr, err := credentialStore(cfg).Load()
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	hubDeviceID, ok := credential.ExtractDeviceID(connStr)
	if !ok {
		logger.Warn("credential has no DeviceId, telemetry will carry an empty hub device id")
	}

	sampler := sensor.NewSimSampler(uint64(time.Now().UnixNano()))
	defer sampler.Close()

	var button sensor.Button = sensor.NoButton{}
	if cfg.Button.Enabled {
		b, err := sensor.NewGPIOButton(cfg.Button.Chip, cfg.Button.Pin, cfg.Button.Debounce)
		if err != nil {
			return fmt.Errorf("init button: %w", err)
		}
		button = b
	}
	defer button.Close()

	var (
		sender     transport.Sender
		connStatus mqtt.ConnectionStatus
	)
	switch cfg.Telemetry.Transport {
	case config.TransportMQTT:
		publisher, err := mqtt.NewPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			Topic:      cfg.MQTT.Topic,
			BufferSize: cfg.MQTT.BufferSize,
		}, logger)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer publisher.Close()
		sender, connStatus = publisher, publisher
	default:
		sender = transport.NewHTTPSender(cfg.Telemetry.Timeout, logger)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.PollInterval.Milliseconds(),
		HeartbeatMs: cfg.HeartbeatInterval.Milliseconds(),
		HardwareID:  cfg.HardwareID,
		Transport:   cfg.Telemetry.Transport,
		Destination: cfg.Destination(),
		HTTPAddr:    cfg.HTTPAddr,
	})

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, reg, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", zap.String("addr", cfg.HTTPAddr))
	}

	client := provisioning.NewClient(cfg.Provisioning.Endpoint, cfg.Provisioning.SASToken, cfg.Provisioning.Timeout, logger)

	logger.Info("started",
		zap.Duration("poll", cfg.PollInterval),
		zap.Duration("heartbeat", cfg.HeartbeatInterval),
		zap.String("transport", cfg.Telemetry.Transport),
		zap.String("hub_device_id", hubDeviceID),
	)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := loopDeps{
		sampler:     sampler,
		button:      button,
		sender:      sender,
		connStatus:  connStatus,
		provisioner: client,
		tracker:     tracker,
		metrics:     m,
		logger:      logger.Named("loop"),
	}
	lc := loopConfig{
		hardwareID:     cfg.HardwareID,
		hubDeviceID:    hubDeviceID,
		destination:    cfg.Destination(),
		heartbeat:      cfg.HeartbeatInterval,
		provisionRetry: cfg.Provisioning.RetryInterval,
	}
	return runLoop(ctx, deps, lc, time.Now, ticker.C, sigCh)
}
