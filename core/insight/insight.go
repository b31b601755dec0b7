// Package insight turns aggregates into network and station reports and
// quartile-ranked operational recommendations.
package insight

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/chargescope/chargescope/core/aggregate"
	"github.com/chargescope/chargescope/core/model"
)

// ErrNoData marks a report section whose inputs were empty.
var ErrNoData = errors.New("no data available")

// Config holds the recommendation thresholds. All of them are declarative
// business constants.
type Config struct {
	// LowQuantile ranks stations/states as underperformers below this
	// percentile of the respective distribution.
	LowQuantile float64 `json:"low_quantile"`
	// HighQuantile ranks stations as high-demand above this percentile.
	HighQuantile float64 `json:"high_quantile"`
	// TopDemandChecked caps how many high-demand stations are inspected for
	// capacity expansion.
	TopDemandChecked int `json:"top_demand_checked"`
	// MinPoints is the charging point count below which a high-demand
	// station triggers an expansion recommendation.
	MinPoints int `json:"min_points"`
	// MaxAffected caps the station identifiers listed per recommendation.
	MaxAffected int `json:"max_affected"`
	// HighUtilization is the sessions-per-point ratio above which a station
	// is flagged in its per-station report.
	HighUtilization float64 `json:"high_utilization"`
	// LowRevenuePerSession flags stations whose average session revenue
	// falls below this amount.
	LowRevenuePerSession float64 `json:"low_revenue_per_session"`
	// TopRevenueStations caps the revenue leader board.
	TopRevenueStations int `json:"top_revenue_stations"`
}

// SetDefaults applies the documented defaults.
func (c *Config) SetDefaults() {
	if c.LowQuantile == 0 {
		c.LowQuantile = 0.25
	}
	if c.HighQuantile == 0 {
		c.HighQuantile = 0.75
	}
	if c.TopDemandChecked == 0 {
		c.TopDemandChecked = 5
	}
	if c.MinPoints == 0 {
		c.MinPoints = 4
	}
	if c.MaxAffected == 0 {
		c.MaxAffected = 10
	}
	if c.HighUtilization == 0 {
		c.HighUtilization = 50
	}
	if c.LowRevenuePerSession == 0 {
		c.LowRevenuePerSession = 10
	}
	if c.TopRevenueStations == 0 {
		c.TopRevenueStations = 10
	}
}

// Priority ranks a recommendation for display.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Recommendation is one ranked, explainable action item.
type Recommendation struct {
	Type             string   `json:"type"`
	Priority         Priority `json:"priority"`
	Recommendation   string   `json:"recommendation"`
	AffectedStations []string `json:"affected_stations,omitempty"`
	StationID        string   `json:"station_id,omitempty"`
	States           []string `json:"states,omitempty"`
}

// Synthesizer builds reports with a fixed threshold configuration.
type Synthesizer struct {
	cfg Config
}

// New returns a Synthesizer. Zero-valued config fields get defaults.
func New(cfg Config) *Synthesizer {
	cfg.SetDefaults()
	return &Synthesizer{cfg: cfg}
}

// quantile computes the linear-interpolation percentile of values.
func quantile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// Overview summarises the network footprint.
type Overview struct {
	TotalStations       int            `json:"total_stations"`
	TotalPoints         int            `json:"total_charging_points"`
	TotalSessions       int            `json:"total_sessions"`
	StationsByState     map[string]int `json:"stations_by_state"`
	StationsByCity      map[string]int `json:"stations_by_city"`
	StationsByOperator  map[string]int `json:"stations_by_operator"`
	AvgPointsPerStation float64        `json:"avg_points_per_station"`
}

// BuildOverview counts stations, points and sessions and breaks stations
// down by geography and operator.
func (s *Synthesizer) BuildOverview(snap model.Snapshot) Overview {
	o := Overview{
		TotalStations:      len(snap.Stations),
		TotalPoints:        len(snap.Points),
		TotalSessions:      len(snap.Sessions),
		StationsByState:    make(map[string]int),
		StationsByCity:     make(map[string]int),
		StationsByOperator: make(map[string]int),
	}
	for _, st := range snap.Stations {
		if st.State != "" {
			o.StationsByState[st.State]++
		}
		if st.City != "" {
			o.StationsByCity[st.City]++
		}
		if st.Operator != "" {
			o.StationsByOperator[st.Operator]++
		}
	}
	if o.TotalStations > 0 {
		o.AvgPointsPerStation = float64(o.TotalPoints) / float64(o.TotalStations)
	}
	return o
}

// Performance summarises network-wide usage efficiency.
type Performance struct {
	TotalSessions       int     `json:"total_sessions"`
	TotalEnergyKWh      float64 `json:"total_energy_kwh"`
	AvgEnergyPerSession float64 `json:"avg_energy_per_session_kwh"`
	AvgDurationMin      float64 `json:"avg_duration_minutes"`
	TotalRevenue        float64 `json:"total_revenue"`
	AvgCostPerSession   float64 `json:"avg_cost_per_session"`
	ActiveStations      int     `json:"active_stations"`
	UtilizationPercent  float64 `json:"utilization_rate_percent"`
}

// BuildPerformance computes totals, per-session averages and the share of
// stations with any recorded usage.
func (s *Synthesizer) BuildPerformance(snap model.Snapshot) (Performance, error) {
	if len(snap.Sessions) == 0 {
		return Performance{}, ErrNoData
	}
	var p Performance
	p.TotalSessions = len(snap.Sessions)
	var durSum float64
	durN := 0
	for _, u := range snap.Sessions {
		p.TotalEnergyKWh += u.EnergyKWh
		p.TotalRevenue += u.Cost
		if u.HasDuration {
			durSum += u.DurationMin
			durN++
		}
	}
	p.AvgEnergyPerSession = p.TotalEnergyKWh / float64(p.TotalSessions)
	p.AvgCostPerSession = p.TotalRevenue / float64(p.TotalSessions)
	if durN > 0 {
		p.AvgDurationMin = durSum / float64(durN)
	}
	active := make(map[string]struct{})
	for _, u := range snap.Sessions {
		active[u.StationID] = struct{}{}
	}
	p.ActiveStations = len(active)
	if len(snap.Stations) > 0 {
		p.UtilizationPercent = float64(p.ActiveStations) / float64(len(snap.Stations)) * 100
	}
	return p, nil
}

// StationRevenue pairs a station with its summed revenue, ordered output.
type StationRevenue struct {
	StationID string  `json:"station_id"`
	Revenue   float64 `json:"revenue"`
}

// RevenueTrend labels the direction of the daily revenue series.
type RevenueTrend struct {
	DailyRevenue map[string]float64 `json:"daily_revenue"`
	Trend        string             `json:"trend"`
}

// Revenue summarises revenue per station and over time.
type Revenue struct {
	TotalRevenue         float64          `json:"total_revenue"`
	AvgRevenuePerSession float64          `json:"avg_revenue_per_session"`
	TopStations          []StationRevenue `json:"top_revenue_stations"`
	Trends               RevenueTrend     `json:"revenue_trends"`
}

// BuildRevenue computes totals, the revenue leader board and the daily trend
// direction: increasing when the last day beats the first, stable otherwise.
func (s *Synthesizer) BuildRevenue(agg *aggregate.Result, sessions []model.UsageSession) (Revenue, error) {
	if agg == nil || len(sessions) == 0 {
		return Revenue{}, ErrNoData
	}
	var r Revenue
	daily := make(map[string]float64)
	for _, u := range sessions {
		r.TotalRevenue += u.Cost
		daily[u.Date().Format("2006-01-02")] += u.Cost
	}
	r.AvgRevenuePerSession = r.TotalRevenue / float64(len(sessions))

	for _, id := range agg.StationIDs() {
		r.TopStations = append(r.TopStations, StationRevenue{StationID: id, Revenue: agg.ByStation[id].Revenue})
	}
	sort.SliceStable(r.TopStations, func(i, j int) bool { return r.TopStations[i].Revenue > r.TopStations[j].Revenue })
	if len(r.TopStations) > s.cfg.TopRevenueStations {
		r.TopStations = r.TopStations[:s.cfg.TopRevenueStations]
	}

	keys := make([]string, 0, len(daily))
	for k := range daily {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r.Trends = RevenueTrend{DailyRevenue: daily, Trend: "stable"}
	if len(keys) > 1 && daily[keys[len(keys)-1]] > daily[keys[0]] {
		r.Trends.Trend = "increasing"
	}
	return r, nil
}

// StationUtilization reports one station's session load per charging point.
type StationUtilization struct {
	Sessions int     `json:"sessions"`
	Points   int     `json:"points"`
	Ratio    float64 `json:"utilization_ratio"`
}

// Capacity summarises charging infrastructure and its per-station load.
type Capacity struct {
	TotalPoints         int                           `json:"total_charging_points"`
	AvgPointsPerStation float64                       `json:"avg_points_per_station"`
	TotalPowerKW        float64                       `json:"total_power_capacity_kw"`
	AvgPowerPerPointKW  float64                       `json:"avg_power_per_point_kw"`
	StationUtilization  map[string]StationUtilization `json:"station_utilization"`
}

// BuildCapacity computes the infrastructure totals and a per-station
// session-to-point ratio for every station that has points.
func (s *Synthesizer) BuildCapacity(snap model.Snapshot, agg *aggregate.Result) (Capacity, error) {
	if len(snap.Points) == 0 {
		return Capacity{}, ErrNoData
	}
	var c Capacity
	c.TotalPoints = len(snap.Points)
	pointCounts := aggregate.PointsByStation(snap.Points)
	c.AvgPointsPerStation = float64(c.TotalPoints) / float64(len(pointCounts))
	for _, p := range snap.Points {
		c.TotalPowerKW += p.PowerKW
	}
	c.AvgPowerPerPointKW = c.TotalPowerKW / float64(c.TotalPoints)

	c.StationUtilization = make(map[string]StationUtilization, len(pointCounts))
	for id, points := range pointCounts {
		sessions := 0
		if agg != nil {
			if st := agg.ByStation[id]; st != nil {
				sessions = st.Sessions
			}
		}
		u := StationUtilization{Sessions: sessions, Points: points}
		if points > 0 {
			u.Ratio = float64(sessions) / float64(points)
		}
		c.StationUtilization[id] = u
	}
	return c, nil
}
