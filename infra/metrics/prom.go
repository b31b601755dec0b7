package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/chargescope/chargescope/core/metrics"
)

// PromSink records analysis and ingest events in Prometheus metrics.
type PromSink struct {
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	anomalies prometheus.Gauge
	ingested  *prometheus.CounterVec
}

// NewPromSink registers metrics on the default Prometheus registerer. The
// metrics HTTP server is started separately using the configured port.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_runs_total",
		Help: "Total number of analysis operations",
	}, []string{"kind", "failed"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analysis_duration_seconds",
		Help:    "Wall time of analysis operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	anomalies := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "anomalies_detected",
		Help: "Number of station anomalies flagged by the last run",
	})
	ingested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "records_ingested_total",
		Help: "Total number of records ingested per topic",
	}, []string{"topic", "failed"})

	if err := reg.Register(runs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			runs = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(anomalies); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			anomalies = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(ingested); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			ingested = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{runs: runs, duration: duration, anomalies: anomalies, ingested: ingested}, nil
}

// RecordAnalysis increments the run counter and observes the duration.
func (s *PromSink) RecordAnalysis(ev coremetrics.AnalysisEvent) error {
	s.runs.WithLabelValues(ev.Kind, strconv.FormatBool(ev.Failed)).Inc()
	s.duration.WithLabelValues(ev.Kind).Observe(ev.Duration.Seconds())
	if ev.Kind == "anomalies" || ev.Kind == "full_cycle" {
		s.anomalies.Set(float64(ev.Anomalies))
	}
	return nil
}

// RecordIngest counts ingested records per topic.
func (s *PromSink) RecordIngest(ev coremetrics.IngestEvent) error {
	s.ingested.WithLabelValues(ev.Topic, strconv.FormatBool(ev.Failed)).Add(float64(ev.Records))
	return nil
}
