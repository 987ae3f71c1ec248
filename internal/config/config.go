// Package config loads daemon configuration from defaults, an optional
// .env file, environment variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is prepended to every environment variable:
// provisioning.sas_token is read from ROOM_SENSOR_PROVISIONING_SAS_TOKEN.
const EnvPrefix = "room_sensor"

// Transports
const (
	TransportHTTP = "http"
	TransportMQTT = "mqtt"
)

const minPollInterval = 100 * time.Millisecond

const redacted = "*redacted*"

// Config is the daemon configuration. LogLevel is derived from LogLevelName
// during Load.
type Config struct {
	LogLevel          zapcore.Level
	LogLevelName      string             `mapstructure:"log_level"`
	PollInterval      time.Duration      `mapstructure:"poll_interval"`
	HeartbeatInterval time.Duration      `mapstructure:"heartbeat_interval"`
	HTTPAddr          string             `mapstructure:"http_addr"`
	HardwareID        string             `mapstructure:"hardware_id"`
	Provisioning      ProvisioningConfig `mapstructure:"provisioning"`
	Credential        CredentialConfig   `mapstructure:"credential"`
	Telemetry         TelemetryConfig    `mapstructure:"telemetry"`
	MQTT              MQTTConfig         `mapstructure:"mqtt"`
	Button            ButtonConfig       `mapstructure:"button"`
}

// ProvisioningConfig locates the provisioning service. RetryInterval spaces
// lookups while the node is unprovisioned.
type ProvisioningConfig struct {
	Endpoint      string
	SASToken      string `mapstructure:"sas_token"`
	Timeout       time.Duration
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// CredentialConfig holds the hub connection string inline or names a file
// containing it. File wins when both are set.
type CredentialConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	File             string
}

// TelemetryConfig selects the transport ("http" or "mqtt"). URI and Timeout
// apply to HTTP.
type TelemetryConfig struct {
	Transport string
	URI       string
	Timeout   time.Duration
}

// MQTTConfig is used when the transport is "mqtt".
type MQTTConfig struct {
	Broker     string
	ClientID   string `mapstructure:"client_id"`
	Topic      string
	BufferSize int `mapstructure:"buffer_size"`
}

// ButtonConfig describes the optional manual toggle button on a GPIO line.
type ButtonConfig struct {
	Enabled  bool
	Chip     string
	Pin      int
	Debounce time.Duration
}

// Destination returns where telemetry is sent: the URI for HTTP, the topic
// for MQTT.
func (c Config) Destination() string {
	if c.Telemetry.Transport == TransportMQTT {
		return c.MQTT.Topic
	}
	return c.Telemetry.URI
}

// Redacted returns a copy with secrets masked, for logging.
func (c Config) Redacted() Config {
	if c.Provisioning.SASToken != "" {
		c.Provisioning.SASToken = redacted
	}
	if c.Credential.ConnectionString != "" {
		c.Credential.ConnectionString = redacted
	}
	return c
}

// SetDefaults registers every key with its default so that environment
// variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("poll_interval", "1s")
	v.SetDefault("heartbeat_interval", "5m")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("hardware_id", "")
	v.SetDefault("provisioning.endpoint", "")
	v.SetDefault("provisioning.sas_token", "")
	v.SetDefault("provisioning.timeout", "10s")
	v.SetDefault("provisioning.retry_interval", "30s")
	v.SetDefault("credential.connection_string", "")
	v.SetDefault("credential.file", "")
	v.SetDefault("telemetry.transport", TransportHTTP)
	v.SetDefault("telemetry.uri", "")
	v.SetDefault("telemetry.timeout", "5s")
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "room-sensor")
	v.SetDefault("mqtt.topic", "room-sensor/telemetry")
	v.SetDefault("mqtt.buffer_size", 100)
	v.SetDefault("button.enabled", false)
	v.SetDefault("button.chip", "gpiochip0")
	v.SetDefault("button.pin", 17)
	v.SetDefault("button.debounce", "50ms")
}

// Load reads configuration into a validated Config. A .env file in the
// working directory is loaded first if present; CONFIG_FILE names an
// optional YAML file.
func Load(v *viper.Viper) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	switch strings.ToLower(c.LogLevelName) {
	case "trace", "debug":
		c.LogLevel = zapcore.DebugLevel
	case "info", "":
		c.LogLevel = zapcore.InfoLevel
	case "warn":
		c.LogLevel = zapcore.WarnLevel
	case "error":
		c.LogLevel = zapcore.ErrorLevel
	default:
		return fmt.Errorf("config param log_level: unknown level %q", c.LogLevelName)
	}

	c.Telemetry.Transport = strings.ToLower(c.Telemetry.Transport)
	return c.Validate()
}

// Validate checks required keys and bounds.
func (c *Config) Validate() error {
	var errs []error

	if c.PollInterval < minPollInterval {
		errs = append(errs, fmt.Errorf("config param poll_interval should be >= %s", minPollInterval))
	}
	if c.HeartbeatInterval < 0 {
		errs = append(errs, errors.New("config param heartbeat_interval should be >= 0"))
	}
	if c.HardwareID == "" {
		errs = append(errs, errors.New("config param hardware_id is required"))
	}
	if c.Provisioning.Endpoint == "" {
		errs = append(errs, errors.New("config param provisioning.endpoint is required"))
	}
	if c.Provisioning.SASToken == "" {
		errs = append(errs, errors.New("config param provisioning.sas_token is required"))
	}
	if c.Provisioning.RetryInterval <= 0 {
		errs = append(errs, errors.New("config param provisioning.retry_interval should be > 0"))
	}
	if c.Credential.ConnectionString == "" && c.Credential.File == "" {
		errs = append(errs, errors.New("one of credential.connection_string or credential.file is required"))
	}

	switch c.Telemetry.Transport {
	case TransportHTTP:
		if c.Telemetry.URI == "" {
			errs = append(errs, errors.New("config param telemetry.uri is required for the http transport"))
		}
	case TransportMQTT:
		if c.MQTT.Broker == "" || c.MQTT.Topic == "" {
			errs = append(errs, errors.New("config params mqtt.broker and mqtt.topic are required for the mqtt transport"))
		}
		if c.MQTT.BufferSize < 0 {
			errs = append(errs, errors.New("config param mqtt.buffer_size should be >= 0"))
		}
	default:
		errs = append(errs, fmt.Errorf("config param telemetry.transport: unknown transport %q", c.Telemetry.Transport))
	}

	if c.Button.Enabled && c.Button.Pin < 0 {
		errs = append(errs, errors.New("config param button.pin should be >= 0"))
	}

	return errors.Join(errs...)
}
