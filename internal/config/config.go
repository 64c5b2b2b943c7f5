// Package config loads service configuration from an optional YAML file and
// SKYORIENT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/sky-map-team/skyorient/internal/observability"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "SKYORIENT_"

// Config is the full service configuration.
type Config struct {
	Observer ObserverConfig              `yaml:"observer" envPrefix:"OBSERVER_"`
	Model    ModelConfig                 `yaml:"model" envPrefix:"MODEL_"`
	Server   ServerConfig                `yaml:"server" envPrefix:"SERVER_"`
	MQTT     MQTTConfig                  `yaml:"mqtt" envPrefix:"MQTT_"`
	GPS      GPSConfig                   `yaml:"gps" envPrefix:"GPS_"`
	Logging  LoggingConfig               `yaml:"logging" envPrefix:"LOG_"`
	Tracing  observability.TracingConfig `yaml:"tracing" envPrefix:"TRACING_"`
}

// ObserverConfig is the starting observer location, used until a GPS fix or
// an API call moves it.
type ObserverConfig struct {
	Latitude  float64 `yaml:"latitude" env:"LATITUDE"`
	Longitude float64 `yaml:"longitude" env:"LONGITUDE"`
}

// ModelConfig selects the orientation model's collaborators.
type ModelConfig struct {
	Declination       string        `yaml:"declination" env:"DECLINATION"` // zero | dipole
	Sidereal          string        `yaml:"sidereal" env:"SIDEREAL"`       // mean | apparent
	FieldOfView       float64       `yaml:"field_of_view_degrees" env:"FIELD_OF_VIEW"`
	RefreshInterval   time.Duration `yaml:"refresh_interval" env:"REFRESH_INTERVAL"`
	RunningTimeTravel bool          `yaml:"running_time_travel" env:"RUNNING_TIME_TRAVEL"`
}

// ServerConfig holds listener addresses.
type ServerConfig struct {
	GRPCAddr       string        `yaml:"grpc_addr" env:"GRPC_ADDR"`
	HTTPAddr       string        `yaml:"http_addr" env:"HTTP_ADDR"`
	StreamInterval time.Duration `yaml:"stream_interval" env:"STREAM_INTERVAL"`
}

// MQTTConfig configures the sensor sample subscriber.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Broker   string `yaml:"broker" env:"BROKER"`
	ClientID string `yaml:"client_id" env:"CLIENT_ID"`
	Topic    string `yaml:"topic" env:"TOPIC"`
	QoS      int    `yaml:"qos" env:"QOS"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
}

// GPSConfig configures the NMEA serial location source.
type GPSConfig struct {
	Enabled       bool    `yaml:"enabled" env:"ENABLED"`
	Port          string  `yaml:"port" env:"PORT"`
	Baud          uint    `yaml:"baud" env:"BAUD"`
	MinMoveMeters float64 `yaml:"min_move_meters" env:"MIN_MOVE_METERS"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Declination:     "dipole",
			Sidereal:        "mean",
			FieldOfView:     45,
			RefreshInterval: 100 * time.Millisecond,
		},
		Server: ServerConfig{
			GRPCAddr:       ":50051",
			HTTPAddr:       ":8080",
			StreamInterval: 200 * time.Millisecond,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "skyorient",
			Topic:    "skyorient/sensors",
			QoS:      0,
		},
		GPS: GPSConfig{
			Port:          "/dev/ttyUSB0",
			Baud:          9600,
			MinMoveMeters: 100,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Tracing: observability.DefaultTracingConfig(),
	}
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := ApplyEnv(&cfg, nil); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile loads YAML config over the defaults. An empty path yields the
// defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from SKYORIENT_* variables. A nil environ reads the
// process environment.
func ApplyEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate performs sanity checks on the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Observer.Latitude < -90 || c.Observer.Latitude > 90 {
		errs = append(errs, fmt.Errorf("observer.latitude must be within [-90, 90]"))
	}
	if c.Observer.Longitude < -180 || c.Observer.Longitude > 180 {
		errs = append(errs, fmt.Errorf("observer.longitude must be within [-180, 180]"))
	}
	switch c.Model.Declination {
	case "zero", "dipole":
	default:
		errs = append(errs, fmt.Errorf("model.declination must be zero or dipole, got %q", c.Model.Declination))
	}
	switch c.Model.Sidereal {
	case "mean", "apparent":
	default:
		errs = append(errs, fmt.Errorf("model.sidereal must be mean or apparent, got %q", c.Model.Sidereal))
	}
	if c.Model.FieldOfView < 1 || c.Model.FieldOfView > 179 {
		errs = append(errs, fmt.Errorf("model.field_of_view_degrees must be within [1, 179]"))
	}
	if c.Model.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("model.refresh_interval must be > 0"))
	}
	if c.Server.GRPCAddr == "" && c.Server.HTTPAddr == "" {
		errs = append(errs, fmt.Errorf("at least one of server.grpc_addr and server.http_addr is required"))
	}
	if c.Server.StreamInterval <= 0 {
		errs = append(errs, fmt.Errorf("server.stream_interval must be > 0"))
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" || c.MQTT.Topic == "" {
			errs = append(errs, fmt.Errorf("mqtt.broker and mqtt.topic are required when mqtt is enabled"))
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2"))
		}
	}
	if c.GPS.Enabled {
		if c.GPS.Port == "" || c.GPS.Baud == 0 {
			errs = append(errs, fmt.Errorf("gps.port and gps.baud are required when gps is enabled"))
		}
		if c.GPS.MinMoveMeters < 0 {
			errs = append(errs, fmt.Errorf("gps.min_move_meters must be >= 0"))
		}
	}
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	return errors.Join(errs...)
}
