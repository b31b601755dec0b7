// Package metrics defines the observability sink the analytics service
// reports into. Implementations live under infra/metrics.
package metrics

import "time"

// AnalysisEvent summarises one completed analysis operation.
type AnalysisEvent struct {
	// Kind names the operation: patterns, correlation, insights, anomalies
	// or full_cycle.
	Kind            string
	StationID       string
	Duration        time.Duration
	Patterns        int
	Anomalies       int
	Recommendations int
	Failed          bool
	Time            time.Time
}

// Sink records analysis events for observability purposes.
type Sink interface {
	RecordAnalysis(ev AnalysisEvent) error
}

// IngestEvent summarises one batch of ingested records.
type IngestEvent struct {
	Topic   string
	Records int
	Failed  bool
	Time    time.Time
}

// IngestRecorder is implemented by sinks that track ingestion volume.
type IngestRecorder interface {
	RecordIngest(ev IngestEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordAnalysis(AnalysisEvent) error { return nil }
func (NopSink) RecordIngest(IngestEvent) error     { return nil }

// Config defines settings for the metrics sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = ":2112"
	}
}
