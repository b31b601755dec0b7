package insight

import (
	"errors"
	"testing"
	"time"

	"github.com/chargescope/chargescope/core/aggregate"
	"github.com/chargescope/chargescope/core/model"
)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 10, 0, 0, 0, time.UTC)
}

func sessionsWithRevenue(station string, revenues map[int]float64) []model.UsageSession {
	var out []model.UsageSession
	for d, rev := range revenues {
		out = append(out, model.UsageSession{
			ID:           station + time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC).Format("02"),
			StationID:    station,
			SessionStart: day(d),
			Cost:         rev,
		})
	}
	return out
}

func TestBuildOverview(t *testing.T) {
	s := New(Config{})
	snap := model.Snapshot{
		Stations: []model.Station{
			{ID: "a", State: "CA", City: "SF", Operator: "OpX"},
			{ID: "b", State: "CA", City: "LA", Operator: "OpY"},
			{ID: "c", State: "NY", City: "NYC"},
		},
		Points:   []model.ChargingPoint{{ID: "p1", StationID: "a"}, {ID: "p2", StationID: "a"}, {ID: "p3", StationID: "b"}},
		Sessions: []model.UsageSession{{ID: "s1", StationID: "a", SessionStart: day(1)}},
	}
	o := s.BuildOverview(snap)
	if o.TotalStations != 3 || o.TotalPoints != 3 || o.TotalSessions != 1 {
		t.Errorf("overview totals = %+v", o)
	}
	if o.StationsByState["CA"] != 2 || o.StationsByState["NY"] != 1 {
		t.Errorf("by state = %v", o.StationsByState)
	}
	if o.StationsByOperator["OpX"] != 1 {
		t.Errorf("by operator = %v", o.StationsByOperator)
	}
	if o.AvgPointsPerStation != 1 {
		t.Errorf("avg points per station = %v", o.AvgPointsPerStation)
	}
}

func TestBuildPerformance(t *testing.T) {
	s := New(Config{})
	if _, err := s.BuildPerformance(model.Snapshot{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}

	snap := model.Snapshot{
		Stations: []model.Station{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
		Sessions: []model.UsageSession{
			{ID: "1", StationID: "a", SessionStart: day(1), EnergyKWh: 10, Cost: 4, DurationMin: 30, HasDuration: true},
			{ID: "2", StationID: "b", SessionStart: day(1), EnergyKWh: 20, Cost: 6},
		},
	}
	p, err := s.BuildPerformance(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TotalEnergyKWh != 30 || p.AvgEnergyPerSession != 15 {
		t.Errorf("energy = %+v", p)
	}
	if p.AvgDurationMin != 30 {
		t.Errorf("avg duration = %v, want 30 (only recorded durations count)", p.AvgDurationMin)
	}
	if p.ActiveStations != 2 || p.UtilizationPercent != 50 {
		t.Errorf("utilization = %+v", p)
	}
}

func TestRevenueTrendIncreasing(t *testing.T) {
	s := New(Config{})
	sessions := sessionsWithRevenue("a", map[int]float64{1: 100, 2: 150, 3: 200})
	agg, err := aggregate.Sessions(sessions)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	r, err := s.BuildRevenue(agg, sessions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Trends.Trend != "increasing" {
		t.Errorf("trend = %s, want increasing", r.Trends.Trend)
	}
	if r.TotalRevenue != 450 || r.AvgRevenuePerSession != 150 {
		t.Errorf("revenue = %+v", r)
	}
}

func TestRevenueTrendStable(t *testing.T) {
	s := New(Config{})
	sessions := sessionsWithRevenue("a", map[int]float64{1: 100, 2: 100, 3: 100})
	agg, err := aggregate.Sessions(sessions)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	r, err := s.BuildRevenue(agg, sessions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Trends.Trend != "stable" {
		t.Errorf("trend = %s, want stable", r.Trends.Trend)
	}
}

func TestRevenueLeaderBoard(t *testing.T) {
	s := New(Config{})
	var sessions []model.UsageSession
	sessions = append(sessions, sessionsWithRevenue("low", map[int]float64{1: 10})...)
	sessions = append(sessions, sessionsWithRevenue("high", map[int]float64{1: 90})...)
	sessions = append(sessions, sessionsWithRevenue("mid", map[int]float64{1: 50})...)
	agg, err := aggregate.Sessions(sessions)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	r, err := s.BuildRevenue(agg, sessions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.TopStations) != 3 || r.TopStations[0].StationID != "high" || r.TopStations[2].StationID != "low" {
		t.Errorf("leader board = %+v", r.TopStations)
	}
}

func TestBuildCapacity(t *testing.T) {
	s := New(Config{})
	if _, err := s.BuildCapacity(model.Snapshot{}, nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}

	snap := model.Snapshot{
		Points: []model.ChargingPoint{
			{ID: "p1", StationID: "a", PowerKW: 50},
			{ID: "p2", StationID: "a", PowerKW: 150},
			{ID: "p3", StationID: "b", PowerKW: 100},
		},
	}
	sessions := sessionsWithRevenue("a", map[int]float64{1: 5, 2: 5})
	agg, err := aggregate.Sessions(sessions)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	c, err := s.BuildCapacity(snap, agg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.TotalPoints != 3 || c.AvgPointsPerStation != 1.5 {
		t.Errorf("capacity = %+v", c)
	}
	if c.TotalPowerKW != 300 || c.AvgPowerPerPointKW != 100 {
		t.Errorf("power = %+v", c)
	}
	if u := c.StationUtilization["a"]; u.Sessions != 2 || u.Points != 2 || u.Ratio != 1 {
		t.Errorf("station a utilization = %+v", u)
	}
	if u := c.StationUtilization["b"]; u.Sessions != 0 || u.Ratio != 0 {
		t.Errorf("station b utilization = %+v", u)
	}
}
