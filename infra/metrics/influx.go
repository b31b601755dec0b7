package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/chargescope/chargescope/core/logger"
	coremetrics "github.com/chargescope/chargescope/core/metrics"
	infralogger "github.com/chargescope/chargescope/infra/logger"
)

// InfluxSink writes analysis events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      infralogger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a down metrics store never blocks
// analysis.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordAnalysis writes the analysis event as a line-protocol point.
func (s *InfluxSink) RecordAnalysis(ev coremetrics.AnalysisEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("analysis_run").
		AddTag("kind", ev.Kind).
		AddTag("failed", strconv.FormatBool(ev.Failed)).
		AddTag("component", "analytics_engine")
	if ev.StationID != "" {
		p.AddTag("station_id", ev.StationID)
	}
	p = p.AddField("duration_ms", ev.Duration.Milliseconds()).
		AddField("patterns", ev.Patterns).
		AddField("anomalies", ev.Anomalies).
		AddField("recommendations", ev.Recommendations).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordIngest writes the ingest batch summary.
func (s *InfluxSink) RecordIngest(ev coremetrics.IngestEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("ingest_batch").
		AddTag("topic", ev.Topic).
		AddTag("failed", strconv.FormatBool(ev.Failed)).
		AddField("records", ev.Records).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
