package store

import (
	"context"
	"sync"

	"github.com/chargescope/chargescope/core/features"
	"github.com/chargescope/chargescope/core/insight"
	"github.com/chargescope/chargescope/core/model"
	"github.com/chargescope/chargescope/core/pattern"
)

// MemoryRepository keeps everything in memory. It backs tests and
// single-process runs without a database.
type MemoryRepository struct {
	mu       sync.Mutex
	stations []model.Station
	points   []model.ChargingPoint
	sessions []model.UsageSession
	weather  []model.WeatherObservation
	traffic  []model.TrafficObservation

	patterns        []pattern.Pattern
	anomalies       []features.Anomaly
	recommendations []insight.Recommendation
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Stations(context.Context) ([]model.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Station(nil), m.stations...), nil
}

func (m *MemoryRepository) ChargingPoints(context.Context) ([]model.ChargingPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ChargingPoint(nil), m.points...), nil
}

func (m *MemoryRepository) Sessions(_ context.Context, stationID string) ([]model.UsageSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UsageSession
	for _, s := range m.sessions {
		if stationID == "" || s.StationID == stationID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryRepository) Weather(_ context.Context, stationID string) ([]model.WeatherObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.WeatherObservation
	for _, o := range m.weather {
		if stationID == "" || o.StationID == stationID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MemoryRepository) Traffic(_ context.Context, stationID string) ([]model.TrafficObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TrafficObservation
	for _, o := range m.traffic {
		if stationID == "" || o.StationID == stationID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MemoryRepository) SaveStations(_ context.Context, stations []model.Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations = append(m.stations, stations...)
	return nil
}

func (m *MemoryRepository) SaveChargingPoints(_ context.Context, points []model.ChargingPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, points...)
	return nil
}

func (m *MemoryRepository) SaveSessions(_ context.Context, sessions []model.UsageSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, sessions...)
	return nil
}

func (m *MemoryRepository) SaveWeather(_ context.Context, obs []model.WeatherObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weather = append(m.weather, obs...)
	return nil
}

func (m *MemoryRepository) SaveTraffic(_ context.Context, obs []model.TrafficObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traffic = append(m.traffic, obs...)
	return nil
}

func (m *MemoryRepository) SavePatterns(_ context.Context, patterns []pattern.Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, patterns...)
	return nil
}

func (m *MemoryRepository) SaveAnomalies(_ context.Context, anomalies []features.Anomaly) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anomalies = append(m.anomalies, anomalies...)
	return nil
}

func (m *MemoryRepository) SaveRecommendations(_ context.Context, recs []insight.Recommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recommendations = append(m.recommendations, recs...)
	return nil
}

// SavedPatterns returns the persisted patterns, for tests and export.
func (m *MemoryRepository) SavedPatterns() []pattern.Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pattern.Pattern(nil), m.patterns...)
}

// SavedAnomalies returns the persisted anomalies.
func (m *MemoryRepository) SavedAnomalies() []features.Anomaly {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]features.Anomaly(nil), m.anomalies...)
}

// SavedRecommendations returns the persisted recommendations.
func (m *MemoryRepository) SavedRecommendations() []insight.Recommendation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]insight.Recommendation(nil), m.recommendations...)
}
