package insight

import (
	"fmt"
	"sort"

	"github.com/chargescope/chargescope/core/aggregate"
	"github.com/chargescope/chargescope/core/model"
)

// Recommend evaluates the four network-wide recommendation rules. Rules are
// independent: each appends its recommendation when triggered, and order is
// only significant for display.
func (s *Synthesizer) Recommend(snap model.Snapshot, agg *aggregate.Result) []Recommendation {
	if agg == nil || agg.Total == 0 {
		return []Recommendation{{
			Type:           "data_collection",
			Priority:       PriorityHigh,
			Recommendation: "Collect more usage data to generate insights",
		}}
	}
	var recs []Recommendation

	ids := agg.StationIDs()
	counts := make([]float64, len(ids))
	for i, id := range ids {
		counts[i] = float64(agg.ByStation[id].Sessions)
	}

	// Rule 1: stations below the low-usage quartile.
	lowCut := quantile(counts, s.cfg.LowQuantile)
	var lowStations []string
	for i, id := range ids {
		if counts[i] < lowCut {
			lowStations = append(lowStations, id)
		}
	}
	if len(lowStations) > 0 {
		affected := lowStations
		if len(affected) > s.cfg.MaxAffected {
			affected = affected[:s.cfg.MaxAffected]
		}
		recs = append(recs, Recommendation{
			Type:             "underutilized_stations",
			Priority:         PriorityMedium,
			Recommendation:   fmt.Sprintf("%d stations have low usage. Consider marketing or relocation.", len(lowStations)),
			AffectedStations: affected,
		})
	}

	// Rule 2: high-demand stations short on charging points.
	highCut := quantile(counts, s.cfg.HighQuantile)
	var highStations []string
	for i, id := range ids {
		if counts[i] > highCut {
			highStations = append(highStations, id)
		}
	}
	sort.SliceStable(highStations, func(i, j int) bool {
		return agg.ByStation[highStations[i]].Sessions > agg.ByStation[highStations[j]].Sessions
	})
	if len(highStations) > s.cfg.TopDemandChecked {
		highStations = highStations[:s.cfg.TopDemandChecked]
	}
	pointCounts := aggregate.PointsByStation(snap.Points)
	if len(snap.Points) > 0 {
		for _, id := range highStations {
			points := pointCounts[id]
			if points < s.cfg.MinPoints {
				recs = append(recs, Recommendation{
					Type:           "capacity_expansion",
					Priority:       PriorityHigh,
					Recommendation: fmt.Sprintf("Station %s has high demand but only %d charging points. Consider expansion.", id, points),
					StationID:      id,
				})
			}
		}
	}

	// Rule 3: stations below the low-revenue quartile.
	revenues := make([]float64, len(ids))
	for i, id := range ids {
		revenues[i] = agg.ByStation[id].Revenue
	}
	revCut := quantile(revenues, s.cfg.LowQuantile)
	var lowRevenue []string
	for i, id := range ids {
		if revenues[i] < revCut {
			lowRevenue = append(lowRevenue, id)
		}
	}
	if len(lowRevenue) > 0 {
		affected := lowRevenue
		if len(affected) > s.cfg.MaxAffected {
			affected = affected[:s.cfg.MaxAffected]
		}
		recs = append(recs, Recommendation{
			Type:             "pricing_optimization",
			Priority:         PriorityMedium,
			Recommendation:   fmt.Sprintf("%d stations have low revenue. Review pricing strategy.", len(lowRevenue)),
			AffectedStations: affected,
		})
	}

	// Rule 4: states below the low-coverage quartile of station counts.
	stateCounts := make(map[string]int)
	for _, st := range snap.Stations {
		if st.State != "" {
			stateCounts[st.State]++
		}
	}
	if len(stateCounts) > 0 {
		states := make([]string, 0, len(stateCounts))
		for st := range stateCounts {
			states = append(states, st)
		}
		sort.Strings(states)
		vals := make([]float64, len(states))
		for i, st := range states {
			vals[i] = float64(stateCounts[st])
		}
		stateCut := quantile(vals, s.cfg.LowQuantile)
		var lowCoverage []string
		for i, st := range states {
			if vals[i] < stateCut {
				lowCoverage = append(lowCoverage, st)
			}
		}
		if len(lowCoverage) > 0 {
			recs = append(recs, Recommendation{
				Type:           "geographic_expansion",
				Priority:       PriorityLow,
				Recommendation: fmt.Sprintf("Consider expanding to states with low coverage: %v", lowCoverage),
				States:         lowCoverage,
			})
		}
	}
	return recs
}

// RecommendStation evaluates the per-station rules: point saturation and
// average session revenue.
func (s *Synthesizer) RecommendStation(station model.Station, snap model.Snapshot) []Recommendation {
	var recs []Recommendation
	sessions := 0
	var revenue float64
	for _, u := range snap.Sessions {
		if u.StationID == station.ID {
			sessions++
			revenue += u.Cost
		}
	}
	if sessions == 0 {
		return []Recommendation{{
			Type:           "data_collection",
			Priority:       PriorityHigh,
			Recommendation: "Collect more usage data to generate insights",
			StationID:      station.ID,
		}}
	}
	points := 0
	for _, p := range snap.Points {
		if p.StationID == station.ID {
			points++
		}
	}
	if points > 0 {
		utilization := float64(sessions) / float64(points)
		if utilization > s.cfg.HighUtilization {
			recs = append(recs, Recommendation{
				Type:           "capacity",
				Priority:       PriorityHigh,
				Recommendation: fmt.Sprintf("High utilization (%.1f sessions/point). Consider adding more charging points.", utilization),
				StationID:      station.ID,
			})
		}
	}
	avgRevenue := revenue / float64(sessions)
	if avgRevenue < s.cfg.LowRevenuePerSession {
		recs = append(recs, Recommendation{
			Type:           "pricing",
			Priority:       PriorityMedium,
			Recommendation: fmt.Sprintf("Low average revenue per session ($%.2f). Review pricing strategy.", avgRevenue),
			StationID:      station.ID,
		})
	}
	return recs
}

// Section wraps a report block with its error marker so one failed block
// never aborts the rest of the report.
type Section[T any] struct {
	Data  *T     `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func section[T any](data T, err error) Section[T] {
	if err != nil {
		return Section[T]{Error: err.Error()}
	}
	return Section[T]{Data: &data}
}

// NetworkReport is the full network-level insight report.
type NetworkReport struct {
	Overview        Overview             `json:"network_overview"`
	Performance     Section[Performance] `json:"performance_metrics"`
	Recommendations []Recommendation     `json:"optimization_recommendations"`
	Revenue         Section[Revenue]     `json:"revenue_insights"`
	Capacity        Section[Capacity]    `json:"capacity_analysis"`
}

// BuildNetworkReport composes the network report from one snapshot. Each
// section computes independently; empty inputs surface as section errors.
func (s *Synthesizer) BuildNetworkReport(snap model.Snapshot) (NetworkReport, error) {
	if len(snap.Stations) == 0 {
		return NetworkReport{}, ErrNoData
	}
	agg, _ := aggregate.Sessions(snap.Sessions)

	rep := NetworkReport{Overview: s.BuildOverview(snap)}
	perf, err := s.BuildPerformance(snap)
	rep.Performance = section(perf, err)
	rep.Recommendations = s.Recommend(snap, agg)
	rev, err := s.BuildRevenue(agg, snap.Sessions)
	rep.Revenue = section(rev, err)
	cap, err := s.BuildCapacity(snap, agg)
	rep.Capacity = section(cap, err)
	return rep, nil
}

// StationStats summarises one station's usage for its report.
type StationStats struct {
	TotalSessions  int     `json:"total_sessions"`
	TotalEnergyKWh float64 `json:"total_energy_kwh"`
	AvgDurationMin float64 `json:"avg_duration_minutes"`
	TotalRevenue   float64 `json:"total_revenue"`
}

// StationCapacity summarises one station's charging infrastructure.
type StationCapacity struct {
	TotalPoints  int     `json:"total_points"`
	TotalPowerKW float64 `json:"total_power_kw"`
	AvgPowerKW   float64 `json:"avg_power_kw"`
}

// StationReport is the per-station insight report.
type StationReport struct {
	Station         model.Station            `json:"station_info"`
	Usage           Section[StationStats]    `json:"usage_statistics"`
	Capacity        Section[StationCapacity] `json:"capacity_info"`
	Recommendations []Recommendation         `json:"recommendations"`
}

// BuildStationReport composes the report for a single station from a
// snapshot already filtered to that station.
func (s *Synthesizer) BuildStationReport(station model.Station, snap model.Snapshot) StationReport {
	rep := StationReport{Station: station}

	var stats StationStats
	var durSum float64
	durN := 0
	for _, u := range snap.Sessions {
		if u.StationID != station.ID {
			continue
		}
		stats.TotalSessions++
		stats.TotalEnergyKWh += u.EnergyKWh
		stats.TotalRevenue += u.Cost
		if u.HasDuration {
			durSum += u.DurationMin
			durN++
		}
	}
	if durN > 0 {
		stats.AvgDurationMin = durSum / float64(durN)
	}
	if stats.TotalSessions == 0 {
		rep.Usage = Section[StationStats]{Error: ErrNoData.Error()}
	} else {
		rep.Usage = Section[StationStats]{Data: &stats}
	}

	var cap StationCapacity
	for _, p := range snap.Points {
		if p.StationID != station.ID {
			continue
		}
		cap.TotalPoints++
		cap.TotalPowerKW += p.PowerKW
	}
	if cap.TotalPoints == 0 {
		rep.Capacity = Section[StationCapacity]{Error: ErrNoData.Error()}
	} else {
		cap.AvgPowerKW = cap.TotalPowerKW / float64(cap.TotalPoints)
		rep.Capacity = Section[StationCapacity]{Data: &cap}
	}

	rep.Recommendations = s.RecommendStation(station, snap)
	return rep
}
