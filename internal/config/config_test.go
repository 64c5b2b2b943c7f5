package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skyorient.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
observer:
  latitude: 51.48
  longitude: -0.0015
model:
  declination: zero
  sidereal: apparent
  refresh_interval: 250ms
mqtt:
  enabled: true
  topic: lab/phone
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Observer.Latitude != 51.48 || cfg.Observer.Longitude != -0.0015 {
		t.Fatalf("observer = %+v", cfg.Observer)
	}
	if cfg.Model.Declination != "zero" || cfg.Model.Sidereal != "apparent" {
		t.Fatalf("model = %+v", cfg.Model)
	}
	if cfg.Model.RefreshInterval != 250*time.Millisecond {
		t.Fatalf("refresh_interval = %v", cfg.Model.RefreshInterval)
	}
	if cfg.Model.FieldOfView != 45 {
		t.Fatalf("field of view default lost: %v", cfg.Model.FieldOfView)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Topic != "lab/phone" || cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Fatalf("mqtt = %+v", cfg.MQTT)
	}
}

func TestLoadFileEmptyPath(t *testing.T) {
	cfg, err := LoadFile("  ")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := LoadFile(writeConfig(t, "observer: [1, 2")); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, map[string]string{
		"SKYORIENT_OBSERVER_LATITUDE":      "-33.86",
		"SKYORIENT_MODEL_SIDEREAL":         "apparent",
		"SKYORIENT_SERVER_STREAM_INTERVAL": "1s",
		"SKYORIENT_GPS_ENABLED":            "true",
		"SKYORIENT_GPS_BAUD":               "4800",
		"SKYORIENT_LOG_LEVEL":              "debug",
		"SKYORIENT_TRACING_ENABLED":        "true",
		"SKYORIENT_TRACING_OTLP_ENDPOINT":  "otel:4317",
	})
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Observer.Latitude != -33.86 || cfg.Model.Sidereal != "apparent" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Server.StreamInterval != time.Second || !cfg.GPS.Enabled || cfg.GPS.Baud != 4800 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Logging.Level != "debug" || !cfg.Tracing.Enabled || cfg.Tracing.Endpoint != "otel:4317" {
		t.Fatalf("nested env overrides not applied: %+v", cfg)
	}
	if cfg.Server.GRPCAddr != ":50051" {
		t.Fatalf("unset variables should keep defaults, got %q", cfg.Server.GRPCAddr)
	}
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	cfg := Default()
	if err := ApplyEnv(&cfg, map[string]string{"SKYORIENT_MODEL_FIELD_OF_VIEW": "wide"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"latitude", func(c *Config) { c.Observer.Latitude = 91 }, "observer.latitude"},
		{"declination", func(c *Config) { c.Model.Declination = "igrf" }, "model.declination"},
		{"sidereal", func(c *Config) { c.Model.Sidereal = "fast" }, "model.sidereal"},
		{"fov", func(c *Config) { c.Model.FieldOfView = 0 }, "field_of_view"},
		{"listeners", func(c *Config) { c.Server.GRPCAddr, c.Server.HTTPAddr = "", "" }, "server.grpc_addr"},
		{"mqtt", func(c *Config) { c.MQTT.Enabled, c.MQTT.QoS = true, 3 }, "mqtt.qos"},
		{"gps", func(c *Config) { c.GPS.Enabled, c.GPS.Port = true, "" }, "gps.port"},
		{"tracing", func(c *Config) { c.Tracing.SampleRatio = 2 }, "tracing sample ratio"},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: Validate() = %v, want error mentioning %q", tc.name, err, tc.want)
		}
	}
}
