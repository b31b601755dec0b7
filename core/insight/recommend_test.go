package insight

import (
	"errors"
	"testing"
	"time"

	"github.com/chargescope/chargescope/core/aggregate"
	"github.com/chargescope/chargescope/core/model"
)

// networkSnapshot builds a snapshot with the given sessions-per-station
// counts, one charging point per station.
func networkSnapshot(counts map[string]int) (model.Snapshot, *aggregate.Result) {
	var snap model.Snapshot
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for id, n := range counts {
		snap.Stations = append(snap.Stations, model.Station{ID: id, State: "CA"})
		snap.Points = append(snap.Points, model.ChargingPoint{ID: "p-" + id, StationID: id})
		for i := 0; i < n; i++ {
			snap.Sessions = append(snap.Sessions, model.UsageSession{
				ID:           id + string(rune('a'+i)),
				StationID:    id,
				SessionStart: base.Add(time.Duration(i) * time.Minute),
				Cost:         float64(n),
			})
		}
	}
	agg, _ := aggregate.Sessions(snap.Sessions)
	return snap, agg
}

func recsByType(recs []Recommendation) map[string]Recommendation {
	out := make(map[string]Recommendation)
	for _, r := range recs {
		out[r.Type] = r
	}
	return out
}

func TestRecommendNoUsage(t *testing.T) {
	s := New(Config{})
	recs := s.Recommend(model.Snapshot{Stations: []model.Station{{ID: "a"}}}, nil)
	if len(recs) != 1 || recs[0].Type != "data_collection" || recs[0].Priority != PriorityHigh {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestRecommendIdenticalCountsNoQuartileSplit(t *testing.T) {
	// Identical distributions leave nothing strictly below the 25th
	// percentile, so no underutilized or pricing recommendations fire.
	snap, agg := networkSnapshot(map[string]int{"a": 3, "b": 3, "c": 3, "d": 3})
	s := New(Config{})
	byType := recsByType(s.Recommend(snap, agg))
	if _, ok := byType["underutilized_stations"]; ok {
		t.Error("identical counts produced an underutilized recommendation")
	}
	if _, ok := byType["pricing_optimization"]; ok {
		t.Error("identical revenues produced a pricing recommendation")
	}
}

func TestRecommendUnderutilized(t *testing.T) {
	snap, agg := networkSnapshot(map[string]int{"a": 1, "b": 10, "c": 10, "d": 10})
	s := New(Config{})
	byType := recsByType(s.Recommend(snap, agg))
	rec, ok := byType["underutilized_stations"]
	if !ok {
		t.Fatal("missing underutilized recommendation")
	}
	if rec.Priority != PriorityMedium || len(rec.AffectedStations) != 1 || rec.AffectedStations[0] != "a" {
		t.Errorf("rec = %+v", rec)
	}
}

func TestRecommendMonotonicity(t *testing.T) {
	// Raising every count to the same value removes the quartile split and
	// must not increase the underutilized recommendations.
	low, lowAgg := networkSnapshot(map[string]int{"a": 1, "b": 10, "c": 10, "d": 10})
	high, highAgg := networkSnapshot(map[string]int{"a": 10, "b": 10, "c": 10, "d": 10})
	s := New(Config{})

	lowRecs := 0
	if _, ok := recsByType(s.Recommend(low, lowAgg))["underutilized_stations"]; ok {
		lowRecs = 1
	}
	highRecs := 0
	if _, ok := recsByType(s.Recommend(high, highAgg))["underutilized_stations"]; ok {
		highRecs = 1
	}
	if highRecs > lowRecs {
		t.Errorf("raising counts increased recommendations: %d > %d", highRecs, lowRecs)
	}
}

func TestRecommendCapacityExpansion(t *testing.T) {
	// One hot station with a single point against a quiet baseline.
	snap, agg := networkSnapshot(map[string]int{"hot": 20, "q1": 2, "q2": 2, "q3": 2})
	s := New(Config{})
	byType := recsByType(s.Recommend(snap, agg))
	rec, ok := byType["capacity_expansion"]
	if !ok {
		t.Fatal("missing capacity expansion recommendation")
	}
	if rec.StationID != "hot" || rec.Priority != PriorityHigh {
		t.Errorf("rec = %+v", rec)
	}
}

func TestRecommendCapacitySkippedWithoutPointData(t *testing.T) {
	snap, agg := networkSnapshot(map[string]int{"hot": 20, "q1": 2, "q2": 2, "q3": 2})
	snap.Points = nil
	s := New(Config{})
	if _, ok := recsByType(s.Recommend(snap, agg))["capacity_expansion"]; ok {
		t.Error("capacity rule fired without point data")
	}
}

func TestRecommendGeographicExpansion(t *testing.T) {
	snap, agg := networkSnapshot(map[string]int{"a": 5, "b": 5, "c": 5, "d": 5})
	// Concentrate coverage: three states well covered, one barely.
	snap.Stations = []model.Station{
		{ID: "a", State: "CA"}, {ID: "b", State: "CA"},
		{ID: "c", State: "NY"}, {ID: "d", State: "NY"},
		{ID: "e", State: "TX"}, {ID: "f", State: "TX"},
		{ID: "g", State: "WY"},
	}
	s := New(Config{})
	byType := recsByType(s.Recommend(snap, agg))
	rec, ok := byType["geographic_expansion"]
	if !ok {
		t.Fatal("missing geographic expansion recommendation")
	}
	if rec.Priority != PriorityLow || len(rec.States) != 1 || rec.States[0] != "WY" {
		t.Errorf("rec = %+v", rec)
	}
}

func TestRecommendStation(t *testing.T) {
	s := New(Config{})
	station := model.Station{ID: "st"}

	recs := s.RecommendStation(station, model.Snapshot{})
	if len(recs) != 1 || recs[0].Type != "data_collection" {
		t.Fatalf("no-session recs = %+v", recs)
	}

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	var snap model.Snapshot
	snap.Points = []model.ChargingPoint{{ID: "p1", StationID: "st"}}
	for i := 0; i < 60; i++ {
		snap.Sessions = append(snap.Sessions, model.UsageSession{
			ID:           string(rune('a' + i%26)),
			StationID:    "st",
			SessionStart: base.Add(time.Duration(i) * time.Minute),
			Cost:         2,
		})
	}
	byType := recsByType(s.RecommendStation(station, snap))
	if rec, ok := byType["capacity"]; !ok || rec.Priority != PriorityHigh {
		t.Errorf("capacity rec = %+v", rec)
	}
	if rec, ok := byType["pricing"]; !ok || rec.Priority != PriorityMedium {
		t.Errorf("pricing rec = %+v", rec)
	}
}

func TestBuildNetworkReport(t *testing.T) {
	s := New(Config{})
	if _, err := s.BuildNetworkReport(model.Snapshot{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for empty network, got %v", err)
	}

	snap, _ := networkSnapshot(map[string]int{"a": 3, "b": 6})
	rep, err := s.BuildNetworkReport(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Overview.TotalStations != 2 {
		t.Errorf("overview = %+v", rep.Overview)
	}
	if rep.Performance.Data == nil || rep.Performance.Error != "" {
		t.Errorf("performance section = %+v", rep.Performance)
	}
	if rep.Revenue.Data == nil || rep.Capacity.Data == nil {
		t.Errorf("sections = %+v / %+v", rep.Revenue, rep.Capacity)
	}

	// Stations but no sessions: sections fail independently, report survives.
	empty := model.Snapshot{Stations: []model.Station{{ID: "a"}}}
	rep, err = s.BuildNetworkReport(empty)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Performance.Error == "" || rep.Revenue.Error == "" || rep.Capacity.Error == "" {
		t.Errorf("expected section errors, got %+v", rep)
	}
	if len(rep.Recommendations) != 1 || rep.Recommendations[0].Type != "data_collection" {
		t.Errorf("recommendations = %+v", rep.Recommendations)
	}
}

func TestBuildStationReport(t *testing.T) {
	s := New(Config{})
	station := model.Station{ID: "st", Name: "Main St"}
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	snap := model.Snapshot{
		Stations: []model.Station{station},
		Points:   []model.ChargingPoint{{ID: "p1", StationID: "st", PowerKW: 50}, {ID: "p2", StationID: "st", PowerKW: 150}},
		Sessions: []model.UsageSession{
			{ID: "1", StationID: "st", SessionStart: base, EnergyKWh: 12, Cost: 30, DurationMin: 45, HasDuration: true},
		},
	}
	rep := s.BuildStationReport(station, snap)
	if rep.Usage.Data == nil || rep.Usage.Data.TotalSessions != 1 || rep.Usage.Data.AvgDurationMin != 45 {
		t.Errorf("usage section = %+v", rep.Usage)
	}
	if rep.Capacity.Data == nil || rep.Capacity.Data.AvgPowerKW != 100 {
		t.Errorf("capacity section = %+v", rep.Capacity)
	}
	// Revenue of $30 for one session is above the $10 threshold.
	for _, r := range rep.Recommendations {
		if r.Type == "pricing" {
			t.Errorf("unexpected pricing recommendation: %+v", r)
		}
	}

	bare := s.BuildStationReport(station, model.Snapshot{Stations: []model.Station{station}})
	if bare.Usage.Error == "" || bare.Capacity.Error == "" {
		t.Errorf("expected section errors, got %+v", bare)
	}
}
