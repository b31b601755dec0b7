package store

import (
	"context"
	"testing"
	"time"

	"github.com/chargescope/chargescope/core/model"
	"github.com/chargescope/chargescope/core/pattern"
)

func TestMemoryRepositoryFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if err := repo.SaveStations(ctx, []model.Station{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatalf("save stations: %v", err)
	}
	if err := repo.SaveSessions(ctx, []model.UsageSession{
		{ID: "1", StationID: "a", SessionStart: base},
		{ID: "2", StationID: "b", SessionStart: base},
	}); err != nil {
		t.Fatalf("save sessions: %v", err)
	}
	if err := repo.SaveWeather(ctx, []model.WeatherObservation{{StationID: "a", Timestamp: base}}); err != nil {
		t.Fatalf("save weather: %v", err)
	}

	all, err := repo.Sessions(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("all sessions = %v, %v", all, err)
	}
	only, err := repo.Sessions(ctx, "a")
	if err != nil || len(only) != 1 || only[0].ID != "1" {
		t.Fatalf("filtered sessions = %v, %v", only, err)
	}
	none, err := repo.Weather(ctx, "b")
	if err != nil || len(none) != 0 {
		t.Fatalf("filtered weather = %v, %v", none, err)
	}
}

func TestMemoryRepositoryResults(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	if err := repo.SavePatterns(ctx, []pattern.Pattern{{Kind: pattern.KindPeakHours}}); err != nil {
		t.Fatalf("save patterns: %v", err)
	}
	if got := repo.SavedPatterns(); len(got) != 1 || got[0].Kind != pattern.KindPeakHours {
		t.Fatalf("saved patterns = %v", got)
	}
}

func TestSnapshotFiltersStation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	_ = repo.SaveStations(ctx, []model.Station{{ID: "a"}, {ID: "b"}})
	_ = repo.SaveChargingPoints(ctx, []model.ChargingPoint{{ID: "p1", StationID: "a"}, {ID: "p2", StationID: "b"}})
	_ = repo.SaveSessions(ctx, []model.UsageSession{{ID: "1", StationID: "a", SessionStart: base}})
	_ = repo.SaveTraffic(ctx, []model.TrafficObservation{{StationID: "b", Timestamp: base}})

	snap, err := Snapshot(ctx, repo, "a")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Stations) != 1 || snap.Stations[0].ID != "a" {
		t.Errorf("stations = %v", snap.Stations)
	}
	if len(snap.Points) != 1 || len(snap.Sessions) != 1 || len(snap.Traffic) != 0 {
		t.Errorf("snapshot = %+v", snap)
	}

	full, err := Snapshot(ctx, repo, "")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(full.Stations) != 2 || len(full.Points) != 2 {
		t.Errorf("full snapshot = %+v", full)
	}
}
