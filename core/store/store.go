// Package store defines the persistence collaborator interface the analytics
// engine depends on. The engine only ever pulls snapshots and pushes
// results; connection handling belongs to the implementations.
package store

import (
	"context"

	"github.com/chargescope/chargescope/core/features"
	"github.com/chargescope/chargescope/core/insight"
	"github.com/chargescope/chargescope/core/model"
	"github.com/chargescope/chargescope/core/pattern"
)

// Repository is the injected storage collaborator. A stationID filter of ""
// means all stations.
type Repository interface {
	Stations(ctx context.Context) ([]model.Station, error)
	ChargingPoints(ctx context.Context) ([]model.ChargingPoint, error)
	Sessions(ctx context.Context, stationID string) ([]model.UsageSession, error)
	Weather(ctx context.Context, stationID string) ([]model.WeatherObservation, error)
	Traffic(ctx context.Context, stationID string) ([]model.TrafficObservation, error)

	SaveStations(ctx context.Context, stations []model.Station) error
	SaveChargingPoints(ctx context.Context, points []model.ChargingPoint) error
	SaveSessions(ctx context.Context, sessions []model.UsageSession) error
	SaveWeather(ctx context.Context, obs []model.WeatherObservation) error
	SaveTraffic(ctx context.Context, obs []model.TrafficObservation) error

	SavePatterns(ctx context.Context, patterns []pattern.Pattern) error
	SaveAnomalies(ctx context.Context, anomalies []features.Anomaly) error
	SaveRecommendations(ctx context.Context, recs []insight.Recommendation) error
}

// Snapshot loads all input collections from the repository, optionally
// filtered to one station.
func Snapshot(ctx context.Context, repo Repository, stationID string) (model.Snapshot, error) {
	var snap model.Snapshot
	var err error
	if snap.Stations, err = repo.Stations(ctx); err != nil {
		return snap, err
	}
	if snap.Points, err = repo.ChargingPoints(ctx); err != nil {
		return snap, err
	}
	if snap.Sessions, err = repo.Sessions(ctx, stationID); err != nil {
		return snap, err
	}
	if snap.Weather, err = repo.Weather(ctx, stationID); err != nil {
		return snap, err
	}
	if snap.Traffic, err = repo.Traffic(ctx, stationID); err != nil {
		return snap, err
	}
	if stationID != "" {
		snap = snap.FilterStation(stationID)
	}
	return snap, nil
}
