// Package pattern detects recurring usage behaviours in session aggregates:
// peak hours, weekday skew, statistical spikes and lulls, duration and
// seasonal trends. Every operation is a pure function of its inputs.
package pattern

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/chargescope/chargescope/core/aggregate"
	"github.com/chargescope/chargescope/core/model"
)

// Kind labels one family of detected pattern.
type Kind string

const (
	KindPeakHours   Kind = "peak_hours"
	KindDayOfWeek   Kind = "day_of_week"
	KindUsageSpikes Kind = "usage_spikes"
	KindLowUsage    Kind = "low_usage_periods"
	KindDuration    Kind = "session_duration"
	KindSeasonal    Kind = "seasonal"
	KindGeographic  Kind = "geographic"
)

// Confidence values are declarative labels fixed per pattern kind. They are
// not calibrated probabilities and must not be interpreted as such.
var confidence = map[Kind]float64{
	KindPeakHours:   0.85,
	KindDayOfWeek:   0.80,
	KindUsageSpikes: 0.75,
	KindLowUsage:    0.70,
	KindDuration:    0.75,
}

// Pattern is one typed finding. StationID is empty for network-wide scope.
type Pattern struct {
	Kind        Kind    `json:"pattern_type"`
	StationID   string  `json:"station_id,omitempty"`
	Description string  `json:"description"`
	Details     any     `json:"details"`
	Confidence  float64 `json:"confidence"`
}

// Config holds the detection thresholds. They are business constants, tuned
// through configuration rather than derived from the data.
type Config struct {
	// PeakFactor qualifies an hour as peak when its count reaches this
	// multiple of the mean hourly count.
	PeakFactor float64 `json:"peak_factor"`
	// SpikeZ flags a day as a spike when its z-score exceeds this value.
	SpikeZ float64 `json:"spike_z"`
	// LowZ flags a day as a lull when its z-score falls below this value.
	LowZ float64 `json:"low_z"`
}

// SetDefaults applies the documented defaults.
func (c *Config) SetDefaults() {
	if c.PeakFactor == 0 {
		c.PeakFactor = 1.5
	}
	if c.SpikeZ == 0 {
		c.SpikeZ = 2.0
	}
	if c.LowZ == 0 {
		c.LowZ = -1.5
	}
}

// Detector runs the pattern operations with a fixed threshold configuration.
type Detector struct {
	cfg Config
}

// New returns a Detector. Zero-valued config fields get defaults.
func New(cfg Config) *Detector {
	cfg.SetDefaults()
	return &Detector{cfg: cfg}
}

// PeakHours returns the hours of day (0-23) whose session count reaches
// PeakFactor times the mean over hours that saw any usage. Empty when no
// hour clears the threshold or there is no data.
func (d *Detector) PeakHours(res *aggregate.Result) []int {
	if res == nil || len(res.HourlyCounts) == 0 {
		return nil
	}
	var sum float64
	for _, c := range res.HourlyCounts {
		sum += float64(c)
	}
	threshold := sum / float64(len(res.HourlyCounts)) * d.cfg.PeakFactor
	var peaks []int
	for h, c := range res.HourlyCounts {
		if float64(c) >= threshold {
			peaks = append(peaks, h)
		}
	}
	sort.Ints(peaks)
	return peaks
}

// DayOfWeekDetails reports the weekday/weekend partition of usage.
type DayOfWeekDetails struct {
	WeekdaySessions  int     `json:"weekday_sessions"`
	WeekendSessions  int     `json:"weekend_sessions"`
	WeekdayEnergyKWh float64 `json:"weekday_energy_kwh"`
	WeekendEnergyKWh float64 `json:"weekend_energy_kwh"`
	Pattern          string  `json:"pattern"`
}

// DayOfWeek partitions sessions into weekday and weekend buckets. Ties
// resolve to weekday_heavy.
func (d *Detector) DayOfWeek(sessions []model.UsageSession) DayOfWeekDetails {
	var det DayOfWeekDetails
	for _, s := range sessions {
		if s.IsWeekend() {
			det.WeekendSessions++
			det.WeekendEnergyKWh += s.EnergyKWh
		} else {
			det.WeekdaySessions++
			det.WeekdayEnergyKWh += s.EnergyKWh
		}
	}
	det.Pattern = "weekday_heavy"
	if det.WeekendSessions > det.WeekdaySessions {
		det.Pattern = "weekend_heavy"
	}
	return det
}

// DayFlag marks one calendar day whose session count is statistically
// unusual.
type DayFlag struct {
	Date         string  `json:"date"`
	SessionCount int     `json:"session_count"`
	ZScore       float64 `json:"z_score"`
}

// Spikes flags days whose z-score exceeds SpikeZ. A zero standard deviation
// (single day, constant counts) yields no flags.
func (d *Detector) Spikes(res *aggregate.Result) []DayFlag {
	return d.flagDays(res, func(z float64) bool { return z > d.cfg.SpikeZ })
}

// LowUsage flags days whose z-score falls below LowZ.
func (d *Detector) LowUsage(res *aggregate.Result) []DayFlag {
	return d.flagDays(res, func(z float64) bool { return z < d.cfg.LowZ })
}

func (d *Detector) flagDays(res *aggregate.Result, match func(float64) bool) []DayFlag {
	if res == nil || len(res.DailyCounts) == 0 {
		return nil
	}
	series := res.DailySeries()
	mean, std := stat.MeanStdDev(series, nil)
	if !(std > 0) {
		return nil
	}
	var flags []DayFlag
	for _, date := range res.Dates() {
		count := res.DailyCounts[date]
		z := (float64(count) - mean) / std
		if match(z) {
			flags = append(flags, DayFlag{
				Date:         date.Format("2006-01-02"),
				SessionCount: count,
				ZScore:       z,
			})
		}
	}
	return flags
}

// DurationDetails summarises session durations in minutes.
type DurationDetails struct {
	Mean   float64 `json:"avg_duration_minutes"`
	Median float64 `json:"median_duration_minutes"`
	Min    float64 `json:"min_duration_minutes"`
	Max    float64 `json:"max_duration_minutes"`
	Std    float64 `json:"std_duration_minutes"`
}

// DurationStats computes duration statistics over sessions that carry a
// duration. ok is false when no session does; callers report an explicit
// no-data marker in that case instead of zeros.
func (d *Detector) DurationStats(sessions []model.UsageSession) (DurationDetails, bool) {
	var durations []float64
	for _, s := range sessions {
		if s.HasDuration {
			durations = append(durations, s.DurationMin)
		}
	}
	if len(durations) == 0 {
		return DurationDetails{}, false
	}
	sort.Float64s(durations)
	mean, std := stat.MeanStdDev(durations, nil)
	if len(durations) == 1 {
		std = 0
	}
	return DurationDetails{
		Mean:   mean,
		Median: stat.Quantile(0.5, stat.LinInterp, durations, nil),
		Min:    durations[0],
		Max:    durations[len(durations)-1],
		Std:    std,
	}, true
}

// UsagePatterns runs the per-snapshot detections and assembles the findings
// the way consumers expect: peak hours, weekday skew and duration stats are
// always reported, spike and lull findings only when at least one day was
// flagged.
func (d *Detector) UsagePatterns(stationID string, sessions []model.UsageSession) []Pattern {
	res, err := aggregate.Sessions(sessions)
	if err != nil {
		return nil
	}
	var patterns []Pattern

	peaks := d.PeakHours(res)
	patterns = append(patterns, Pattern{
		Kind:        KindPeakHours,
		StationID:   stationID,
		Description: fmt.Sprintf("Peak usage occurs during hours: %v", peaks),
		Details:     map[string]any{"peak_hours": peaks},
		Confidence:  confidence[KindPeakHours],
	})

	dow := d.DayOfWeek(sessions)
	patterns = append(patterns, Pattern{
		Kind:        KindDayOfWeek,
		StationID:   stationID,
		Description: fmt.Sprintf("Weekday vs weekend pattern: %s", dow.Pattern),
		Details:     dow,
		Confidence:  confidence[KindDayOfWeek],
	})

	if spikes := d.Spikes(res); len(spikes) > 0 {
		patterns = append(patterns, Pattern{
			Kind:        KindUsageSpikes,
			StationID:   stationID,
			Description: fmt.Sprintf("Detected %d usage spikes", len(spikes)),
			Details:     map[string]any{"spikes": spikes},
			Confidence:  confidence[KindUsageSpikes],
		})
	}

	if lows := d.LowUsage(res); len(lows) > 0 {
		patterns = append(patterns, Pattern{
			Kind:        KindLowUsage,
			StationID:   stationID,
			Description: fmt.Sprintf("Identified %d low usage periods", len(lows)),
			Details:     map[string]any{"low_periods": lows},
			Confidence:  confidence[KindLowUsage],
		})
	}

	if dur, ok := d.DurationStats(sessions); ok {
		patterns = append(patterns, Pattern{
			Kind:        KindDuration,
			StationID:   stationID,
			Description: fmt.Sprintf("Average session duration: %.1f minutes", dur.Mean),
			Details:     dur,
			Confidence:  confidence[KindDuration],
		})
	} else {
		patterns = append(patterns, Pattern{
			Kind:        KindDuration,
			StationID:   stationID,
			Description: "No duration data available",
			Details:     map[string]any{},
			Confidence:  confidence[KindDuration],
		})
	}
	return patterns
}

// Season maps a month to one of four fixed calendar seasons. The mapping is
// calendar-only, not hemisphere-aware.
func Season(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Fall"
	}
}

// SeasonTrend reports usage for one season.
type SeasonTrend struct {
	Season       string  `json:"season"`
	SessionCount int     `json:"session_count"`
	EnergyKWh    float64 `json:"total_energy_kwh"`
}

// SeasonalTrends groups sessions by fixed calendar season.
func (d *Detector) SeasonalTrends(sessions []model.UsageSession) []SeasonTrend {
	counts := make(map[string]*SeasonTrend)
	for _, s := range sessions {
		season := Season(s.SessionStart.UTC().Month())
		t := counts[season]
		if t == nil {
			t = &SeasonTrend{Season: season}
			counts[season] = t
		}
		t.SessionCount++
		t.EnergyKWh += s.EnergyKWh
	}
	out := make([]SeasonTrend, 0, len(counts))
	for _, season := range []string{"Winter", "Spring", "Summer", "Fall"} {
		if t := counts[season]; t != nil {
			out = append(out, *t)
		}
	}
	return out
}

// LocationPattern reports usage aggregated over one US state.
type LocationPattern struct {
	LocationType string  `json:"location_type"`
	Location     string  `json:"location"`
	SessionCount int     `json:"session_count"`
	EnergyKWh    float64 `json:"total_energy_kwh"`
}

// LocationPatterns joins sessions to station geography and aggregates per
// state. Sessions at unknown stations are dropped from the join.
func (d *Detector) LocationPatterns(stations []model.Station, sessions []model.UsageSession) []LocationPattern {
	if len(stations) == 0 || len(sessions) == 0 {
		return nil
	}
	stateOf := make(map[string]string, len(stations))
	for _, st := range stations {
		stateOf[st.ID] = st.State
	}
	byState := make(map[string]*LocationPattern)
	for _, s := range sessions {
		state, ok := stateOf[s.StationID]
		if !ok {
			continue
		}
		p := byState[state]
		if p == nil {
			p = &LocationPattern{LocationType: "state", Location: state}
			byState[state] = p
		}
		p.SessionCount++
		p.EnergyKWh += s.EnergyKWh
	}
	out := make([]LocationPattern, 0, len(byState))
	for _, p := range byState {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}
