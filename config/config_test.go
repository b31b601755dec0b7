package config

import (
	"os"
	"path/filepath"
	"testing"
)

//nolint:gocyclo
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `storage:
  backend: "memory"
ingest:
  enabled: true
  brokers:
    - "localhost:9092"
  group_id: "analytics"
  sessions_topic: "sessions"
analytics:
  pattern:
    peak_factor: 2.0
  correlation:
    notable_threshold: 0.4
  features:
    contamination: 0.05
scheduler:
  interval_minutes: 15
  run_on_start: true
metrics:
  prometheus_enabled: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"storage.backend", cfg.Storage.Backend, "memory"},
		{"storage.max_open_conns", cfg.Storage.MaxOpenConns, 10},
		{"ingest.enabled", cfg.Ingest.Enabled, true},
		{"ingest.broker", len(cfg.Ingest.Brokers) == 1 && cfg.Ingest.Brokers[0] == "localhost:9092", true},
		{"ingest.group_id", cfg.Ingest.GroupID, "analytics"},
		{"ingest.sessions_topic", cfg.Ingest.SessionsTopic, "sessions"},
		{"ingest.weather_topic_default", cfg.Ingest.WeatherTopic, "weather-observations"},
		{"pattern.peak_factor", cfg.Analytics.Pattern.PeakFactor, 2.0},
		{"pattern.spike_z_default", cfg.Analytics.Pattern.SpikeZ, 2.0},
		{"correlation.notable", cfg.Analytics.Correlation.Notable, 0.4},
		{"features.contamination", cfg.Analytics.Features.Contamination, 0.05},
		{"features.seed_default", cfg.Analytics.Features.Seed, int64(42)},
		{"insight.low_quantile_default", cfg.Analytics.Insight.LowQuantile, 0.25},
		{"scheduler.interval", cfg.Scheduler.IntervalMinutes, 15},
		{"scheduler.run_on_start", cfg.Scheduler.RunOnStart, true},
		{"metrics.prometheus", cfg.Metrics.PrometheusEnabled, true},
		{"metrics.prometheus_port_default", cfg.Metrics.PrometheusPort, ":2112"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLoadInvalidStorage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `storage:
  backend: "postgres"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for postgres backend without dsn")
	}
}

func TestLoadIngestWithoutBrokers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `ingest:
  enabled: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for enabled ingest without brokers")
	}
}
