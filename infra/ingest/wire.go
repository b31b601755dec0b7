package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chargescope/chargescope/core/model"
)

// Wire records mirror the collector payloads: snake_case JSON, one record
// per Kafka message. Optional fields decode as pointers so absence is
// distinguishable from zero.

type stationRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Country   string  `json:"country"`
	Operator  string  `json:"operator"`
	Network   string  `json:"network"`
	Status    string  `json:"status"`

	ChargingPoints []pointRecord `json:"charging_points,omitempty"`
}

type pointRecord struct {
	ID            string  `json:"id"`
	StationID     string  `json:"station_id"`
	ConnectorType string  `json:"connector_type"`
	PowerKW       float64 `json:"power_kw"`
	Status        string  `json:"status"`
}

type sessionRecord struct {
	ID              string     `json:"id"`
	StationID       string     `json:"station_id"`
	SessionStart    time.Time  `json:"session_start"`
	SessionEnd      *time.Time `json:"session_end"`
	EnergyKWh       *float64   `json:"energy_consumed_kwh"`
	DurationMinutes *float64   `json:"duration_minutes"`
	Cost            *float64   `json:"cost"`
	UserType        string     `json:"user_type"`
}

type weatherRecord struct {
	StationID       string    `json:"station_id"`
	Timestamp       time.Time `json:"timestamp"`
	TemperatureC    float64   `json:"temperature_celsius"`
	HumidityPercent float64   `json:"humidity_percent"`
	PressureHPa     float64   `json:"pressure_hpa"`
	WindSpeedMS     float64   `json:"wind_speed_ms"`
	PrecipitationMM float64   `json:"precipitation_mm"`
	Condition       string    `json:"weather_condition"`
	VisibilityKM    float64   `json:"visibility_km"`
}

type trafficRecord struct {
	StationID       string    `json:"station_id"`
	Timestamp       time.Time `json:"timestamp"`
	TrafficDensity  float64   `json:"traffic_density"`
	AverageSpeedKMH float64   `json:"average_speed_kmh"`
	CongestionLevel string    `json:"congestion_level"`
	RoadType        string    `json:"road_type"`
}

func decodeStation(value []byte) (model.Station, []model.ChargingPoint, error) {
	var rec stationRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return model.Station{}, nil, fmt.Errorf("decode station: %w", err)
	}
	station := model.Station{
		ID:        rec.ID,
		Name:      rec.Name,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		Address:   rec.Address,
		City:      rec.City,
		State:     rec.State,
		Country:   rec.Country,
		Operator:  rec.Operator,
		Network:   rec.Network,
		Status:    rec.Status,
	}
	points := make([]model.ChargingPoint, 0, len(rec.ChargingPoints))
	for _, p := range rec.ChargingPoints {
		stationID := p.StationID
		if stationID == "" {
			stationID = rec.ID
		}
		points = append(points, model.ChargingPoint{
			ID:            p.ID,
			StationID:     stationID,
			PowerKW:       p.PowerKW,
			ConnectorType: p.ConnectorType,
			Status:        p.Status,
		})
	}
	return station, points, nil
}

func decodeSession(value []byte) (model.UsageSession, error) {
	var rec sessionRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return model.UsageSession{}, fmt.Errorf("decode session: %w", err)
	}
	s := model.UsageSession{
		ID:           rec.ID,
		StationID:    rec.StationID,
		SessionStart: rec.SessionStart,
		UserType:     rec.UserType,
	}
	if rec.SessionEnd != nil {
		s.SessionEnd = *rec.SessionEnd
	}
	if rec.EnergyKWh != nil {
		s.EnergyKWh = *rec.EnergyKWh
	}
	if rec.DurationMinutes != nil {
		s.DurationMin = *rec.DurationMinutes
		s.HasDuration = true
	}
	if rec.Cost != nil {
		s.Cost = *rec.Cost
	}
	return s, nil
}

func decodeWeather(value []byte) (model.WeatherObservation, error) {
	var rec weatherRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return model.WeatherObservation{}, fmt.Errorf("decode weather: %w", err)
	}
	return model.WeatherObservation{
		StationID:       rec.StationID,
		Timestamp:       rec.Timestamp,
		TemperatureC:    rec.TemperatureC,
		HumidityPercent: rec.HumidityPercent,
		PressureHPa:     rec.PressureHPa,
		WindSpeedMS:     rec.WindSpeedMS,
		PrecipitationMM: rec.PrecipitationMM,
		Condition:       rec.Condition,
		VisibilityKM:    rec.VisibilityKM,
	}, nil
}

func decodeTraffic(value []byte) (model.TrafficObservation, error) {
	var rec trafficRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return model.TrafficObservation{}, fmt.Errorf("decode traffic: %w", err)
	}
	return model.TrafficObservation{
		StationID:       rec.StationID,
		Timestamp:       rec.Timestamp,
		TrafficDensity:  rec.TrafficDensity,
		AverageSpeedKMH: rec.AverageSpeedKMH,
		CongestionLevel: rec.CongestionLevel,
		RoadType:        rec.RoadType,
	}, nil
}
