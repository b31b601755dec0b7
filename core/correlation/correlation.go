// Package correlation time-aligns environmental observations with charging
// usage and computes Pearson coefficients and categorical impact breakdowns.
//
// All joins are inner joins on (station, hour-floored timestamp): rows
// without a matching hour on both sides are dropped, never imputed.
package correlation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/chargescope/chargescope/core/aggregate"
	"github.com/chargescope/chargescope/core/model"
)

var (
	// ErrNoData indicates one of the input collections was empty.
	ErrNoData = errors.New("insufficient data")
	// ErrNoOverlap indicates the hour join produced no rows.
	ErrNoOverlap = errors.New("no overlapping data points")
)

// Config holds the insight thresholds. |r| above Notable produces a
// directional insight string; |r| above Strong is additionally reported as
// strong by the combined analysis.
type Config struct {
	Notable float64 `json:"notable_threshold"`
	Strong  float64 `json:"strong_threshold"`
}

// SetDefaults applies the documented defaults.
func (c *Config) SetDefaults() {
	if c.Notable == 0 {
		c.Notable = 0.3
	}
	if c.Strong == 0 {
		c.Strong = 0.5
	}
}

// Result is the outcome of one correlation analysis.
type Result struct {
	StationID    string             `json:"station_id,omitempty"`
	Coefficients map[string]float64 `json:"correlations"`
	// CategoryImpact maps a categorical field name to mean session count
	// per category value.
	CategoryImpact map[string]map[string]float64 `json:"category_impact,omitempty"`
	Insights       []string                      `json:"insights"`
	DataPoints     int                           `json:"data_points"`
}

// Engine computes the weather/traffic/combined correlation analyses.
type Engine struct {
	cfg Config
}

// New returns an Engine. Zero-valued config fields get defaults.
func New(cfg Config) *Engine {
	cfg.SetDefaults()
	return &Engine{cfg: cfg}
}

// hourlyUsage aggregates sessions into the (station, hour) buckets the
// observations join against.
func hourlyUsage(sessions []model.UsageSession) map[aggregate.HourKey]*aggregate.HourBucket {
	res, err := aggregate.Sessions(sessions)
	if err != nil {
		return nil
	}
	return res.HourBuckets
}

// pearson computes the Pearson coefficient, mapping a degenerate (zero
// variance) result to 0.0 so output stays numeric. The series are known to
// be non-empty here; the insufficient-data case is handled before joining.
func pearson(x, y []float64) float64 {
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

func (e *Engine) directionalInsight(name string, r float64) (string, bool) {
	if math.Abs(r) <= e.cfg.Notable {
		return "", false
	}
	direction := "positive"
	if r < 0 {
		direction = "negative"
	}
	return fmt.Sprintf("%s shows %s correlation (%.2f) with session count", name, direction, r), true
}

// topCategories returns the up-to-three category values with the highest
// mean session count, formatted for an insight string.
func topCategories(impact map[string]float64) string {
	type kv struct {
		k string
		v float64
	}
	pairs := make([]kv, 0, len(impact))
	for k, v := range impact {
		pairs = append(pairs, kv{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].v != pairs[j].v {
			return pairs[i].v > pairs[j].v
		}
		return pairs[i].k < pairs[j].k
	})
	if len(pairs) > 3 {
		pairs = pairs[:3]
	}
	s := ""
	for i, p := range pairs {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s: %.2f", p.k, p.v)
	}
	return s
}

func categoryMeans(sums map[string]float64, counts map[string]int) map[string]float64 {
	out := make(map[string]float64, len(sums))
	for k, sum := range sums {
		out[k] = sum / float64(counts[k])
	}
	return out
}

// Weather correlates weather observations with hourly session counts.
func (e *Engine) Weather(stationID string, weather []model.WeatherObservation, sessions []model.UsageSession) (*Result, error) {
	if len(weather) == 0 || len(sessions) == 0 {
		return nil, ErrNoData
	}
	usage := hourlyUsage(sessions)

	var temps, precs, counts []float64
	condSums := make(map[string]float64)
	condCounts := make(map[string]int)
	joined := 0
	for _, w := range weather {
		row, ok := usage[aggregate.HourKey{StationID: w.StationID, Hour: w.Hour()}]
		if !ok {
			continue
		}
		joined++
		temps = append(temps, w.TemperatureC)
		precs = append(precs, w.PrecipitationMM)
		counts = append(counts, float64(row.Sessions))
		if w.Condition != "" {
			condSums[w.Condition] += float64(row.Sessions)
			condCounts[w.Condition]++
		}
	}
	if joined == 0 {
		return nil, ErrNoOverlap
	}

	res := &Result{
		StationID:    stationID,
		Coefficients: make(map[string]float64),
		DataPoints:   joined,
	}
	tempCorr := pearson(temps, counts)
	res.Coefficients["temperature_vs_sessions"] = tempCorr
	if ins, ok := e.directionalInsight("Temperature", tempCorr); ok {
		res.Insights = append(res.Insights, ins)
	}
	precCorr := pearson(precs, counts)
	res.Coefficients["precipitation_vs_sessions"] = precCorr
	if ins, ok := e.directionalInsight("Precipitation", precCorr); ok {
		res.Insights = append(res.Insights, ins)
	}
	if len(condSums) > 0 {
		impact := categoryMeans(condSums, condCounts)
		res.CategoryImpact = map[string]map[string]float64{"weather_condition": impact}
		res.Insights = append(res.Insights,
			fmt.Sprintf("Weather conditions with highest usage: %s", topCategories(impact)))
	}
	return res, nil
}

// Traffic correlates traffic observations with hourly session counts.
func (e *Engine) Traffic(stationID string, traffic []model.TrafficObservation, sessions []model.UsageSession) (*Result, error) {
	if len(traffic) == 0 || len(sessions) == 0 {
		return nil, ErrNoData
	}
	usage := hourlyUsage(sessions)

	var densities, speeds, counts []float64
	congSums := make(map[string]float64)
	congCounts := make(map[string]int)
	joined := 0
	for _, tr := range traffic {
		row, ok := usage[aggregate.HourKey{StationID: tr.StationID, Hour: tr.Hour()}]
		if !ok {
			continue
		}
		joined++
		densities = append(densities, tr.TrafficDensity)
		speeds = append(speeds, tr.AverageSpeedKMH)
		counts = append(counts, float64(row.Sessions))
		if tr.CongestionLevel != "" {
			congSums[tr.CongestionLevel] += float64(row.Sessions)
			congCounts[tr.CongestionLevel]++
		}
	}
	if joined == 0 {
		return nil, ErrNoOverlap
	}

	res := &Result{
		StationID:    stationID,
		Coefficients: make(map[string]float64),
		DataPoints:   joined,
	}
	densCorr := pearson(densities, counts)
	res.Coefficients["traffic_density_vs_sessions"] = densCorr
	if ins, ok := e.directionalInsight("Traffic density", densCorr); ok {
		res.Insights = append(res.Insights, ins)
	}
	res.Coefficients["average_speed_vs_sessions"] = pearson(speeds, counts)
	if len(congSums) > 0 {
		impact := categoryMeans(congSums, congCounts)
		res.CategoryImpact = map[string]map[string]float64{"congestion_level": impact}
		res.Insights = append(res.Insights,
			fmt.Sprintf("Congestion levels with highest usage: %s", topCategories(impact)))
	}
	return res, nil
}

// Combined joins weather, traffic and usage on (station, hour) and reports
// all four coefficients, flagging magnitudes above the strong threshold.
func (e *Engine) Combined(stationID string, weather []model.WeatherObservation, traffic []model.TrafficObservation, sessions []model.UsageSession) (*Result, error) {
	if len(weather) == 0 || len(traffic) == 0 || len(sessions) == 0 {
		return nil, ErrNoData
	}
	usage := hourlyUsage(sessions)

	// Index traffic by station-hour; multiple observations in the same hour
	// all join, mirroring a row-level inner merge.
	trafficIdx := make(map[aggregate.HourKey][]model.TrafficObservation)
	for _, tr := range traffic {
		k := aggregate.HourKey{StationID: tr.StationID, Hour: tr.Hour()}
		trafficIdx[k] = append(trafficIdx[k], tr)
	}

	var temps, precs, densities, speeds, counts []float64
	joined := 0
	for _, w := range weather {
		k := aggregate.HourKey{StationID: w.StationID, Hour: w.Hour()}
		row, ok := usage[k]
		if !ok {
			continue
		}
		for _, tr := range trafficIdx[k] {
			joined++
			temps = append(temps, w.TemperatureC)
			precs = append(precs, w.PrecipitationMM)
			densities = append(densities, tr.TrafficDensity)
			speeds = append(speeds, tr.AverageSpeedKMH)
			counts = append(counts, float64(row.Sessions))
		}
	}
	if joined == 0 {
		return nil, ErrNoOverlap
	}

	res := &Result{
		StationID:    stationID,
		Coefficients: make(map[string]float64),
		DataPoints:   joined,
	}
	res.Coefficients["temperature"] = pearson(temps, counts)
	res.Coefficients["precipitation"] = pearson(precs, counts)
	res.Coefficients["traffic_density"] = pearson(densities, counts)
	res.Coefficients["average_speed"] = pearson(speeds, counts)

	strong := make(map[string]float64)
	for name, r := range res.Coefficients {
		if math.Abs(r) > e.cfg.Strong {
			strong[name] = r
		}
	}
	if len(strong) > 0 {
		names := make([]string, 0, len(strong))
		for n := range strong {
			names = append(names, n)
		}
		sort.Strings(names)
		s := ""
		for i, n := range names {
			if i > 0 {
				s += ", "
			}
			s += fmt.Sprintf("%s: %.2f", n, strong[n])
		}
		res.Insights = append(res.Insights, fmt.Sprintf("Strong correlations found: %s", s))
	}
	return res, nil
}

// Report bundles the three analyses. Each section fails independently; a
// failed section carries its error message instead of aborting the report.
type Report struct {
	Weather  Section `json:"weather_correlation"`
	Traffic  Section `json:"traffic_correlation"`
	Combined Section `json:"combined_correlation"`
	Summary  Summary `json:"summary"`
}

// Section wraps one sub-result with its error marker.
type Section struct {
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Summary counts the joined data points per analysis.
type Summary struct {
	WeatherDataPoints  int `json:"weather_data_points"`
	TrafficDataPoints  int `json:"traffic_data_points"`
	CombinedDataPoints int `json:"combined_data_points"`
}

// GenerateReport runs all three analyses over one snapshot and composes the
// sections, proceeding with partial results on sub-errors.
func (e *Engine) GenerateReport(stationID string, snap model.Snapshot) Report {
	var rep Report
	if res, err := e.Weather(stationID, snap.Weather, snap.Sessions); err != nil {
		rep.Weather.Error = err.Error()
	} else {
		rep.Weather.Result = res
		rep.Summary.WeatherDataPoints = res.DataPoints
	}
	if res, err := e.Traffic(stationID, snap.Traffic, snap.Sessions); err != nil {
		rep.Traffic.Error = err.Error()
	} else {
		rep.Traffic.Result = res
		rep.Summary.TrafficDataPoints = res.DataPoints
	}
	if res, err := e.Combined(stationID, snap.Weather, snap.Traffic, snap.Sessions); err != nil {
		rep.Combined.Error = err.Error()
	} else {
		rep.Combined.Result = res
		rep.Summary.CombinedDataPoints = res.DataPoints
	}
	return rep
}
