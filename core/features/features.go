// Package features derives per-station feature vectors from one snapshot and
// scores stations with an unsupervised outlier model.
//
// Feature construction is intentionally single-snapshot: one row per station
// per run, scalar summaries only, not a time series.
package features

import (
	"strings"
	"time"

	"github.com/chargescope/chargescope/core/aggregate"
	"github.com/chargescope/chargescope/core/model"
)

// Config holds the feature heuristics and the outlier model tuning.
type Config struct {
	// StormDowntimeMin is the downtime assumed per adverse-weather
	// observation, in minutes.
	StormDowntimeMin float64 `json:"storm_downtime_minutes"`
	// Wait time estimates by dominant congestion level, in minutes.
	WaitSevereMin   float64 `json:"wait_severe_minutes"`
	WaitModerateMin float64 `json:"wait_moderate_minutes"`
	WaitDefaultMin  float64 `json:"wait_default_minutes"`
	// PeakFactor qualifies an hour as peak, same rule as pattern detection.
	PeakFactor float64 `json:"peak_factor"`
	// Contamination is the assumed fraction of stations that are outliers.
	// It is a tunable assumption, not a discovered property of the data.
	Contamination float64 `json:"contamination"`
	// Seed fixes the outlier model's randomness for reproducible runs.
	Seed int64 `json:"seed"`
}

// SetDefaults applies the documented defaults.
func (c *Config) SetDefaults() {
	if c.StormDowntimeMin == 0 {
		c.StormDowntimeMin = 30
	}
	if c.WaitSevereMin == 0 {
		c.WaitSevereMin = 45
	}
	if c.WaitModerateMin == 0 {
		c.WaitModerateMin = 20
	}
	if c.WaitDefaultMin == 0 {
		c.WaitDefaultMin = 5
	}
	if c.PeakFactor == 0 {
		c.PeakFactor = 1.5
	}
	if c.Contamination == 0 {
		c.Contamination = 0.1
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
}

// Vector is one station's derived feature row. Numeric fields default to 0
// when source data is absent; NaN never propagates downstream.
type Vector struct {
	StationID        string    `json:"station_id"`
	Date             time.Time `json:"date"`
	AvgDowntimeMin   float64   `json:"avg_downtime_minutes"`
	EnergyPerTraffic float64   `json:"energy_consumption_per_traffic"`
	StormUsageSpike  bool      `json:"usage_spike_during_storm"`
	PeakHourCount    int       `json:"peak_usage_hours"`
	AvgWaitTimeMin   float64   `json:"avg_wait_time_minutes"`
	TotalSessions    float64   `json:"total_sessions"`
	TotalEnergyKWh   float64   `json:"total_energy_kwh"`
}

// Engineer builds feature vectors from a snapshot.
type Engineer struct {
	cfg Config
}

// NewEngineer returns an Engineer. Zero-valued config fields get defaults.
func NewEngineer(cfg Config) *Engineer {
	cfg.SetDefaults()
	return &Engineer{cfg: cfg}
}

// adverse matches condition labels that imply charging downtime.
func adverse(condition string) bool {
	c := strings.ToLower(condition)
	return strings.Contains(c, "storm") || strings.Contains(c, "rain") || strings.Contains(c, "snow")
}

// stormy matches condition labels used for the storm-spike flag.
func stormy(condition string) bool {
	c := strings.ToLower(condition)
	return strings.Contains(c, "storm") || strings.Contains(c, "thunder")
}

// Build derives one feature row per station in the snapshot. Stations with
// no observations still get a row with zeroed features.
func (e *Engineer) Build(snap model.Snapshot, now time.Time) []Vector {
	weatherBy := make(map[string][]model.WeatherObservation)
	for _, w := range snap.Weather {
		weatherBy[w.StationID] = append(weatherBy[w.StationID], w)
	}
	trafficBy := make(map[string][]model.TrafficObservation)
	for _, t := range snap.Traffic {
		trafficBy[t.StationID] = append(trafficBy[t.StationID], t)
	}
	sessionsBy := make(map[string][]model.UsageSession)
	for _, s := range snap.Sessions {
		sessionsBy[s.StationID] = append(sessionsBy[s.StationID], s)
	}

	out := make([]Vector, 0, len(snap.Stations))
	for _, st := range snap.Stations {
		weather := weatherBy[st.ID]
		traffic := trafficBy[st.ID]
		sessions := sessionsBy[st.ID]

		v := Vector{
			StationID: st.ID,
			Date:      now.UTC().Truncate(24 * time.Hour),
		}
		v.AvgDowntimeMin = e.downtime(weather)
		v.EnergyPerTraffic = e.energyTrafficRatio(weather, traffic)
		v.StormUsageSpike = e.stormSpike(weather)
		v.PeakHourCount = e.peakHourCount(sessions)
		v.AvgWaitTimeMin = e.waitTime(traffic)
		v.TotalSessions = float64(len(sessions))
		for _, s := range sessions {
			v.TotalEnergyKWh += s.EnergyKWh
		}
		out = append(out, v)
	}
	return out
}

// downtime sums the assumed per-observation downtime for adverse conditions.
func (e *Engineer) downtime(weather []model.WeatherObservation) float64 {
	n := 0
	for _, w := range weather {
		if adverse(w.Condition) {
			n++
		}
	}
	return float64(n) * e.cfg.StormDowntimeMin
}

// energyTrafficRatio is the documented placeholder heuristic: mean
// temperature over mean traffic density, clamped at a density of 1. It is
// not a physical model.
func (e *Engineer) energyTrafficRatio(weather []model.WeatherObservation, traffic []model.TrafficObservation) float64 {
	if len(weather) == 0 || len(traffic) == 0 {
		return 0
	}
	var tempSum float64
	for _, w := range weather {
		tempSum += w.TemperatureC
	}
	meanTemp := tempSum / float64(len(weather))
	var densSum float64
	for _, t := range traffic {
		densSum += t.TrafficDensity
	}
	meanDens := densSum / float64(len(traffic))
	if meanDens < 1 {
		meanDens = 1
	}
	return meanTemp / meanDens
}

func (e *Engineer) stormSpike(weather []model.WeatherObservation) bool {
	for _, w := range weather {
		if stormy(w.Condition) {
			return true
		}
	}
	return false
}

// peakHourCount counts the hours of day whose session count reaches the
// configured multiple of the station's mean hourly count.
func (e *Engineer) peakHourCount(sessions []model.UsageSession) int {
	res, err := aggregate.Sessions(sessions)
	if err != nil {
		return 0
	}
	var sum float64
	for _, c := range res.HourlyCounts {
		sum += float64(c)
	}
	threshold := sum / float64(len(res.HourlyCounts)) * e.cfg.PeakFactor
	n := 0
	for _, c := range res.HourlyCounts {
		if float64(c) >= threshold {
			n++
		}
	}
	return n
}

// waitTime estimates the wait from the most frequent congestion label.
func (e *Engineer) waitTime(traffic []model.TrafficObservation) float64 {
	if len(traffic) == 0 {
		return 0
	}
	counts := make(map[string]int)
	for _, t := range traffic {
		counts[strings.ToLower(t.CongestionLevel)]++
	}
	dominant, best := "", -1
	for lvl, n := range counts {
		if n > best || (n == best && lvl < dominant) {
			dominant, best = lvl, n
		}
	}
	switch dominant {
	case "severe":
		return e.cfg.WaitSevereMin
	case "moderate":
		return e.cfg.WaitModerateMin
	default:
		return e.cfg.WaitDefaultMin
	}
}
