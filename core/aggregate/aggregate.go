// Package aggregate builds the grouped statistics every other analytic
// component consumes. Grouping is done with explicit map merges so the join
// semantics stay visible, instead of going through a tabular library.
package aggregate

import (
	"errors"
	"sort"
	"time"

	"github.com/chargescope/chargescope/core/model"
)

// ErrNoData is returned when an aggregation receives an empty snapshot.
var ErrNoData = errors.New("no usage data")

// StationStats summarises all sessions observed at one station.
type StationStats struct {
	Sessions    int
	EnergyKWh   float64
	Revenue     float64
	durationSum float64
	durationN   int
}

// MeanDuration returns the mean session duration in minutes, or 0 when no
// session carried a duration.
func (s StationStats) MeanDuration() float64 {
	if s.durationN == 0 {
		return 0
	}
	return s.durationSum / float64(s.durationN)
}

// HourKey identifies one (station, hour-aligned timestamp) bucket.
type HourKey struct {
	StationID string
	Hour      time.Time
}

// HourBucket holds usage aggregated into one station-hour.
type HourBucket struct {
	Sessions  int
	EnergyKWh float64
}

// Result is the full set of groupings derived from one snapshot of sessions.
type Result struct {
	ByStation    map[string]*StationStats
	DailyCounts  map[time.Time]int
	HourlyCounts map[int]int
	HourBuckets  map[HourKey]*HourBucket
	Total        int
}

// Sessions groups a snapshot of usage sessions by station, calendar date,
// hour of day and hour-aligned station bucket. Missing optional fields were
// already defaulted to zero by the normalizer, so sums never fail.
func Sessions(sessions []model.UsageSession) (*Result, error) {
	if len(sessions) == 0 {
		return nil, ErrNoData
	}
	res := &Result{
		ByStation:    make(map[string]*StationStats),
		DailyCounts:  make(map[time.Time]int),
		HourlyCounts: make(map[int]int),
		HourBuckets:  make(map[HourKey]*HourBucket),
	}
	for _, s := range sessions {
		st := res.ByStation[s.StationID]
		if st == nil {
			st = &StationStats{}
			res.ByStation[s.StationID] = st
		}
		st.Sessions++
		st.EnergyKWh += s.EnergyKWh
		st.Revenue += s.Cost
		if s.HasDuration {
			st.durationSum += s.DurationMin
			st.durationN++
		}

		res.DailyCounts[s.Date()]++
		res.HourlyCounts[s.SessionStart.UTC().Hour()]++

		key := HourKey{StationID: s.StationID, Hour: s.Hour()}
		b := res.HourBuckets[key]
		if b == nil {
			b = &HourBucket{}
			res.HourBuckets[key] = b
		}
		b.Sessions++
		b.EnergyKWh += s.EnergyKWh
		res.Total++
	}
	return res, nil
}

// Dates returns the aggregated calendar days in ascending order.
func (r *Result) Dates() []time.Time {
	out := make([]time.Time, 0, len(r.DailyCounts))
	for d := range r.DailyCounts {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// DailySeries returns daily session counts ordered by date.
func (r *Result) DailySeries() []float64 {
	dates := r.Dates()
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = float64(r.DailyCounts[d])
	}
	return out
}

// StationIDs returns the aggregated station identifiers in ascending order.
func (r *Result) StationIDs() []string {
	out := make([]string, 0, len(r.ByStation))
	for id := range r.ByStation {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// PointsByStation counts charging points per station.
func PointsByStation(points []model.ChargingPoint) map[string]int {
	out := make(map[string]int, len(points))
	for _, p := range points {
		out[p.StationID]++
	}
	return out
}
