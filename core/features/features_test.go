package features

import (
	"math"
	"testing"
	"time"

	"github.com/chargescope/chargescope/core/model"
)

var now = time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)

func obs(station, condition string, temp float64) model.WeatherObservation {
	return model.WeatherObservation{
		StationID:    station,
		Timestamp:    now,
		TemperatureC: temp,
		Condition:    condition,
	}
}

func TestBuildEmptySnapshot(t *testing.T) {
	e := NewEngineer(Config{})
	if got := e.Build(model.Snapshot{}, now); len(got) != 0 {
		t.Fatalf("expected no vectors, got %d", len(got))
	}
}

func TestBuildZeroedRowForSilentStation(t *testing.T) {
	e := NewEngineer(Config{})
	snap := model.Snapshot{Stations: []model.Station{{ID: "st-quiet", Latitude: 1, Longitude: 1}}}
	vectors := e.Build(snap, now)
	if len(vectors) != 1 {
		t.Fatalf("vectors = %d, want 1", len(vectors))
	}
	v := vectors[0]
	if v.StationID != "st-quiet" || v.TotalSessions != 0 || v.AvgDowntimeMin != 0 || v.AvgWaitTimeMin != 0 {
		t.Errorf("vector = %+v, want zeroed features", v)
	}
	if v.Date != time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC) {
		t.Errorf("date = %v, want day-truncated", v.Date)
	}
}

func TestDowntimeCountsAdverseConditions(t *testing.T) {
	e := NewEngineer(Config{})
	snap := model.Snapshot{
		Stations: []model.Station{{ID: "st"}},
		Weather: []model.WeatherObservation{
			obs("st", "Thunderstorm", 20),
			obs("st", "Light Rain", 15),
			obs("st", "Clear", 25),
			obs("st", "Snow", -2),
		},
	}
	v := e.Build(snap, now)[0]
	if v.AvgDowntimeMin != 90 {
		t.Errorf("downtime = %v, want 90", v.AvgDowntimeMin)
	}
	if !v.StormUsageSpike {
		t.Error("thunderstorm should set the storm flag")
	}
}

func TestEnergyTrafficRatio(t *testing.T) {
	e := NewEngineer(Config{})
	snap := model.Snapshot{
		Stations: []model.Station{{ID: "st"}},
		Weather:  []model.WeatherObservation{obs("st", "Clear", 20), obs("st", "Clear", 30)},
		Traffic: []model.TrafficObservation{
			{StationID: "st", Timestamp: now, TrafficDensity: 40},
			{StationID: "st", Timestamp: now, TrafficDensity: 60},
		},
	}
	v := e.Build(snap, now)[0]
	if math.Abs(v.EnergyPerTraffic-0.5) > 1e-9 {
		t.Errorf("ratio = %v, want 0.5", v.EnergyPerTraffic)
	}
}

func TestEnergyTrafficRatioClampsDensity(t *testing.T) {
	e := NewEngineer(Config{})
	snap := model.Snapshot{
		Stations: []model.Station{{ID: "st"}},
		Weather:  []model.WeatherObservation{obs("st", "Clear", 12)},
		Traffic: []model.TrafficObservation{
			{StationID: "st", Timestamp: now, TrafficDensity: 0.2},
		},
	}
	v := e.Build(snap, now)[0]
	if v.EnergyPerTraffic != 12 {
		t.Errorf("ratio = %v, want 12 (density clamped to 1)", v.EnergyPerTraffic)
	}
}

func TestWaitTimeByDominantCongestion(t *testing.T) {
	e := NewEngineer(Config{})
	traffic := func(levels ...string) []model.TrafficObservation {
		out := make([]model.TrafficObservation, len(levels))
		for i, l := range levels {
			out[i] = model.TrafficObservation{StationID: "st", Timestamp: now, CongestionLevel: l}
		}
		return out
	}
	cases := []struct {
		levels []string
		want   float64
	}{
		{[]string{"severe", "severe", "low"}, 45},
		{[]string{"moderate", "moderate", "severe"}, 20},
		{[]string{"low", "low"}, 5},
		{nil, 0},
	}
	for _, c := range cases {
		snap := model.Snapshot{Stations: []model.Station{{ID: "st"}}, Traffic: traffic(c.levels...)}
		v := e.Build(snap, now)[0]
		if v.AvgWaitTimeMin != c.want {
			t.Errorf("levels %v: wait = %v, want %v", c.levels, v.AvgWaitTimeMin, c.want)
		}
	}
}

func TestTotalsPerStation(t *testing.T) {
	e := NewEngineer(Config{})
	snap := model.Snapshot{
		Stations: []model.Station{{ID: "st-a"}, {ID: "st-b"}},
		Sessions: []model.UsageSession{
			{ID: "1", StationID: "st-a", SessionStart: now, EnergyKWh: 10},
			{ID: "2", StationID: "st-a", SessionStart: now.Add(time.Hour), EnergyKWh: 5},
			{ID: "3", StationID: "st-b", SessionStart: now, EnergyKWh: 7},
		},
	}
	vectors := e.Build(snap, now)
	byID := make(map[string]Vector)
	for _, v := range vectors {
		byID[v.StationID] = v
	}
	if a := byID["st-a"]; a.TotalSessions != 2 || a.TotalEnergyKWh != 15 {
		t.Errorf("st-a = %+v", a)
	}
	if b := byID["st-b"]; b.TotalSessions != 1 || b.TotalEnergyKWh != 7 {
		t.Errorf("st-b = %+v", b)
	}
}
