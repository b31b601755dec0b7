package aggregate

import (
	"errors"
	"testing"
	"time"

	"github.com/chargescope/chargescope/core/model"
)

func session(station string, start time.Time, energy, cost float64) model.UsageSession {
	return model.UsageSession{
		ID:           station + start.Format("20060102T15"),
		StationID:    station,
		SessionStart: start,
		EnergyKWh:    energy,
		Cost:         cost,
	}
}

func TestSessionsEmpty(t *testing.T) {
	if _, err := Sessions(nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestSessionsGrouping(t *testing.T) {
	day1 := time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 3, 8, 45, 0, 0, time.UTC)
	sessions := []model.UsageSession{
		session("st-1", day1, 10, 5),
		session("st-1", day1.Add(20*time.Minute), 20, 7.5),
		session("st-2", day2, 5, 2.5),
	}
	sessions[0].DurationMin = 30
	sessions[0].HasDuration = true
	sessions[1].DurationMin = 50
	sessions[1].HasDuration = true

	res, err := Sessions(sessions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 3 {
		t.Errorf("total = %d, want 3", res.Total)
	}
	st1 := res.ByStation["st-1"]
	if st1 == nil || st1.Sessions != 2 || st1.EnergyKWh != 30 || st1.Revenue != 12.5 {
		t.Errorf("st-1 stats = %+v", st1)
	}
	if got := st1.MeanDuration(); got != 40 {
		t.Errorf("st-1 mean duration = %v, want 40", got)
	}
	st2 := res.ByStation["st-2"]
	if st2 == nil || st2.MeanDuration() != 0 {
		t.Errorf("st-2 should have zero mean duration, got %+v", st2)
	}

	if got := res.HourlyCounts[8]; got != 3 {
		t.Errorf("hour 8 count = %d, want 3", got)
	}
	key := HourKey{StationID: "st-1", Hour: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	if b := res.HourBuckets[key]; b == nil || b.Sessions != 2 || b.EnergyKWh != 30 {
		t.Errorf("hour bucket = %+v", b)
	}

	dates := res.Dates()
	if len(dates) != 2 || !dates[0].Before(dates[1]) {
		t.Errorf("dates not ascending: %v", dates)
	}
	series := res.DailySeries()
	if len(series) != 2 || series[0] != 2 || series[1] != 1 {
		t.Errorf("daily series = %v", series)
	}
	ids := res.StationIDs()
	if len(ids) != 2 || ids[0] != "st-1" || ids[1] != "st-2" {
		t.Errorf("station ids = %v", ids)
	}
}

func TestPointsByStation(t *testing.T) {
	points := []model.ChargingPoint{
		{ID: "p1", StationID: "st-1"},
		{ID: "p2", StationID: "st-1"},
		{ID: "p3", StationID: "st-2"},
	}
	counts := PointsByStation(points)
	if counts["st-1"] != 2 || counts["st-2"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
