// Package analytics exposes the analysis entry points consumed by the CLI,
// the scheduler and external callers. Every operation pulls its own snapshot
// from the injected repository, computes synchronously and returns a result
// value; failures surface as error markers, never as panics past the
// operation boundary.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chargescope/chargescope/core/correlation"
	"github.com/chargescope/chargescope/core/features"
	"github.com/chargescope/chargescope/core/features/iforest"
	"github.com/chargescope/chargescope/core/insight"
	"github.com/chargescope/chargescope/core/logger"
	coremetrics "github.com/chargescope/chargescope/core/metrics"
	"github.com/chargescope/chargescope/core/model"
	"github.com/chargescope/chargescope/core/pattern"
	"github.com/chargescope/chargescope/core/store"
	infralogger "github.com/chargescope/chargescope/infra/logger"
)

// ErrNoStation is returned when a per-station operation references an
// unknown station identifier.
var ErrNoStation = errors.New("station not found")

// Config bundles the per-component threshold configurations.
type Config struct {
	Pattern     pattern.Config     `json:"pattern"`
	Correlation correlation.Config `json:"correlation"`
	Features    features.Config    `json:"features"`
	Insight     insight.Config     `json:"insight"`
}

// SetDefaults applies the documented defaults to every component section.
func (c *Config) SetDefaults() {
	c.Pattern.SetDefaults()
	c.Correlation.SetDefaults()
	c.Features.SetDefaults()
	c.Insight.SetDefaults()
}

// Engine composes the analytic components over a repository snapshot.
type Engine struct {
	repo     store.Repository
	detector *pattern.Detector
	corr     *correlation.Engine
	engineer *features.Engineer
	anomaly  *features.Detector
	synth    *insight.Synthesizer
	sink     coremetrics.Sink
	log      logger.Logger
	now      func() time.Time
}

// New builds an Engine. A nil sink disables metrics; a nil logger silences
// logging.
func New(repo store.Repository, cfg Config, sink coremetrics.Sink, log logger.Logger) *Engine {
	cfg.SetDefaults()
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	if log == nil {
		log = infralogger.NopLogger{}
	}
	model := iforest.New(cfg.Features.Contamination, cfg.Features.Seed)
	return &Engine{
		repo:     repo,
		detector: pattern.New(cfg.Pattern),
		corr:     correlation.New(cfg.Correlation),
		engineer: features.NewEngineer(cfg.Features),
		anomaly:  features.NewDetector(model, log),
		synth:    insight.New(cfg.Insight),
		sink:     sink,
		log:      log,
		now:      time.Now,
	}
}

// capture converts a panic inside an operation into an error marker so one
// failing analysis cannot abort a batch of independent analyses.
func (e *Engine) capture(op string, err *error) {
	if r := recover(); r != nil {
		e.log.Errorf("%s: unexpected failure: %v", op, r)
		*err = fmt.Errorf("%s: unexpected failure: %v", op, r)
	}
}

func (e *Engine) record(kind, stationID string, start time.Time, patterns, anomalies, recs int, failed bool) {
	ev := coremetrics.AnalysisEvent{
		Kind:            kind,
		StationID:       stationID,
		Duration:        e.now().Sub(start),
		Patterns:        patterns,
		Anomalies:       anomalies,
		Recommendations: recs,
		Failed:          failed,
		Time:            e.now(),
	}
	if err := e.sink.RecordAnalysis(ev); err != nil {
		e.log.Warnf("record %s metrics: %v", kind, err)
	}
}

// UsagePatterns identifies the per-snapshot usage patterns, optionally
// scoped to one station.
func (e *Engine) UsagePatterns(ctx context.Context, stationID string) (patterns []pattern.Pattern, err error) {
	defer e.capture("usage patterns", &err)
	start := e.now()
	sessions, err := e.repo.Sessions(ctx, stationID)
	if err != nil {
		e.record("patterns", stationID, start, 0, 0, 0, true)
		return nil, err
	}
	patterns = e.detector.UsagePatterns(stationID, sessions)
	e.record("patterns", stationID, start, len(patterns), 0, 0, len(patterns) == 0)
	if len(patterns) == 0 {
		e.log.Warnf("no usage data found for pattern recognition")
	}
	return patterns, nil
}

// SeasonalTrends reports session volume per calendar season.
func (e *Engine) SeasonalTrends(ctx context.Context, stationID string) (trends []pattern.SeasonTrend, err error) {
	defer e.capture("seasonal trends", &err)
	sessions, err := e.repo.Sessions(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return e.detector.SeasonalTrends(sessions), nil
}

// LocationPatterns reports session volume per state across the network.
func (e *Engine) LocationPatterns(ctx context.Context) (patterns []pattern.LocationPattern, err error) {
	defer e.capture("location patterns", &err)
	stations, err := e.repo.Stations(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := e.repo.Sessions(ctx, "")
	if err != nil {
		return nil, err
	}
	return e.detector.LocationPatterns(stations, sessions), nil
}

// WeatherCorrelation analyses weather against usage, optionally scoped to
// one station.
func (e *Engine) WeatherCorrelation(ctx context.Context, stationID string) (res *correlation.Result, err error) {
	defer e.capture("weather correlation", &err)
	weather, err := e.repo.Weather(ctx, stationID)
	if err != nil {
		return nil, err
	}
	sessions, err := e.repo.Sessions(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return e.corr.Weather(stationID, weather, sessions)
}

// TrafficCorrelation analyses traffic against usage.
func (e *Engine) TrafficCorrelation(ctx context.Context, stationID string) (res *correlation.Result, err error) {
	defer e.capture("traffic correlation", &err)
	traffic, err := e.repo.Traffic(ctx, stationID)
	if err != nil {
		return nil, err
	}
	sessions, err := e.repo.Sessions(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return e.corr.Traffic(stationID, traffic, sessions)
}

// CombinedCorrelation analyses weather and traffic jointly against usage.
func (e *Engine) CombinedCorrelation(ctx context.Context, stationID string) (res *correlation.Result, err error) {
	defer e.capture("combined correlation", &err)
	snap, err := store.Snapshot(ctx, e.repo, stationID)
	if err != nil {
		return nil, err
	}
	return e.corr.Combined(stationID, snap.Weather, snap.Traffic, snap.Sessions)
}

// CorrelationReport runs the three correlation analyses independently and
// composes their sections; a failed section never blocks the others.
func (e *Engine) CorrelationReport(ctx context.Context, stationID string) (rep correlation.Report, err error) {
	defer e.capture("correlation report", &err)
	start := e.now()
	snap, err := store.Snapshot(ctx, e.repo, stationID)
	if err != nil {
		e.record("correlation", stationID, start, 0, 0, 0, true)
		return correlation.Report{}, err
	}
	rep = e.corr.GenerateReport(stationID, snap)
	e.record("correlation", stationID, start, 0, 0, 0, false)
	return rep, nil
}

// NetworkInsights builds the full network-level report.
func (e *Engine) NetworkInsights(ctx context.Context) (rep insight.NetworkReport, err error) {
	defer e.capture("network insights", &err)
	start := e.now()
	snap, err := store.Snapshot(ctx, e.repo, "")
	if err != nil {
		e.record("insights", "", start, 0, 0, 0, true)
		return insight.NetworkReport{}, err
	}
	rep, err = e.synth.BuildNetworkReport(snap)
	e.record("insights", "", start, 0, 0, len(rep.Recommendations), err != nil)
	return rep, err
}

// StationInsights builds the report for one station.
func (e *Engine) StationInsights(ctx context.Context, stationID string) (rep insight.StationReport, err error) {
	defer e.capture("station insights", &err)
	snap, err := store.Snapshot(ctx, e.repo, stationID)
	if err != nil {
		return insight.StationReport{}, err
	}
	var station *model.Station
	for i := range snap.Stations {
		if snap.Stations[i].ID == stationID {
			station = &snap.Stations[i]
			break
		}
	}
	if station == nil {
		return insight.StationReport{}, ErrNoStation
	}
	return e.synth.BuildStationReport(*station, snap), nil
}

// DetectAnomalies engineers per-station features and scores them with the
// outlier model. An empty network yields an empty list.
func (e *Engine) DetectAnomalies(ctx context.Context) (anomalies []features.Anomaly, err error) {
	defer e.capture("anomaly detection", &err)
	start := e.now()
	snap, err := store.Snapshot(ctx, e.repo, "")
	if err != nil {
		e.record("anomalies", "", start, 0, 0, 0, true)
		return nil, err
	}
	vectors := e.engineer.Build(snap, e.now())
	anomalies = e.anomaly.Detect(vectors, e.now())
	e.record("anomalies", "", start, 0, len(anomalies), 0, false)
	return anomalies, nil
}

// CycleResult summarises one full analysis cycle.
type CycleResult struct {
	Patterns        int `json:"patterns"`
	Anomalies       int `json:"anomalies"`
	Recommendations int `json:"recommendations"`
}

// RunCycle executes the full analysis pass the scheduler triggers: pattern
// recognition, anomaly detection and network insights, persisting each
// result set. Sub-results fail independently; the cycle proceeds with what
// it has.
func (e *Engine) RunCycle(ctx context.Context) (res CycleResult, err error) {
	defer e.capture("analysis cycle", &err)
	start := e.now()

	if patterns, perr := e.UsagePatterns(ctx, ""); perr != nil {
		e.log.Warnf("cycle: usage patterns: %v", perr)
	} else if len(patterns) > 0 {
		if serr := e.repo.SavePatterns(ctx, patterns); serr != nil {
			e.log.Errorf("cycle: save patterns: %v", serr)
		} else {
			res.Patterns = len(patterns)
		}
	}

	if anomalies, aerr := e.DetectAnomalies(ctx); aerr != nil {
		e.log.Warnf("cycle: anomaly detection: %v", aerr)
	} else if len(anomalies) > 0 {
		if serr := e.repo.SaveAnomalies(ctx, anomalies); serr != nil {
			e.log.Errorf("cycle: save anomalies: %v", serr)
		} else {
			res.Anomalies = len(anomalies)
		}
	}

	if rep, rerr := e.NetworkInsights(ctx); rerr != nil {
		e.log.Warnf("cycle: network insights: %v", rerr)
	} else if len(rep.Recommendations) > 0 {
		if serr := e.repo.SaveRecommendations(ctx, rep.Recommendations); serr != nil {
			e.log.Errorf("cycle: save recommendations: %v", serr)
		} else {
			res.Recommendations = len(rep.Recommendations)
		}
	}

	e.record("full_cycle", "", start, res.Patterns, res.Anomalies, res.Recommendations, false)
	e.log.Infof("analysis cycle complete: %d patterns, %d anomalies, %d recommendations",
		res.Patterns, res.Anomalies, res.Recommendations)
	return res, nil
}
