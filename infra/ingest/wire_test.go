package ingest

import (
	"testing"
	"time"
)

func TestDecodeStationWithPoints(t *testing.T) {
	payload := []byte(`{
		"id": "st-1", "name": "Main St", "latitude": 37.77, "longitude": -122.42,
		"city": "San Francisco", "state": "CA", "operator": "OpX",
		"charging_points": [
			{"id": "p1", "connector_type": "CCS", "power_kw": 150, "status": "available"},
			{"id": "p2", "station_id": "st-1", "connector_type": "CHAdeMO", "power_kw": 50}
		]
	}`)
	station, points, err := decodeStation(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if station.ID != "st-1" || station.State != "CA" || station.Latitude != 37.77 {
		t.Errorf("station = %+v", station)
	}
	if len(points) != 2 {
		t.Fatalf("points = %v", points)
	}
	if points[0].StationID != "st-1" {
		t.Errorf("point station id not inherited: %+v", points[0])
	}
	if points[0].PowerKW != 150 || points[0].ConnectorType != "CCS" {
		t.Errorf("point = %+v", points[0])
	}
}

func TestDecodeSessionOptionalFields(t *testing.T) {
	payload := []byte(`{
		"id": "sess-1", "station_id": "st-1",
		"session_start": "2026-03-02T10:00:00Z",
		"energy_consumed_kwh": 18.5, "duration_minutes": 42, "cost": 7.25,
		"user_type": "member"
	}`)
	s, err := decodeSession(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.EnergyKWh != 18.5 || s.Cost != 7.25 || s.UserType != "member" {
		t.Errorf("session = %+v", s)
	}
	if !s.HasDuration || s.DurationMin != 42 {
		t.Errorf("duration = %+v", s)
	}
	if !s.SessionEnd.IsZero() {
		t.Errorf("session end should be zero, got %v", s.SessionEnd)
	}

	bare, err := decodeSession([]byte(`{"id": "sess-2", "station_id": "st-1", "session_start": "2026-03-02T11:00:00Z"}`))
	if err != nil {
		t.Fatalf("decode bare: %v", err)
	}
	if bare.HasDuration || bare.EnergyKWh != 0 || bare.Cost != 0 {
		t.Errorf("bare session = %+v, want zeroed optionals", bare)
	}
}

func TestDecodeWeather(t *testing.T) {
	payload := []byte(`{
		"station_id": "st-1", "timestamp": "2026-03-02T10:00:00Z",
		"temperature_celsius": -2.5, "humidity_percent": 80,
		"weather_condition": "Snow", "precipitation_mm": 3.2
	}`)
	w, err := decodeWeather(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.TemperatureC != -2.5 || w.Condition != "Snow" || w.PrecipitationMM != 3.2 {
		t.Errorf("weather = %+v", w)
	}
	if w.Timestamp != time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) {
		t.Errorf("timestamp = %v", w.Timestamp)
	}
}

func TestDecodeTraffic(t *testing.T) {
	payload := []byte(`{
		"station_id": "st-1", "timestamp": "2026-03-02T10:00:00Z",
		"traffic_density": 72.5, "average_speed_kmh": 31,
		"congestion_level": "moderate", "road_type": "arterial"
	}`)
	tr, err := decodeTraffic(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.TrafficDensity != 72.5 || tr.CongestionLevel != "moderate" || tr.RoadType != "arterial" {
		t.Errorf("traffic = %+v", tr)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, _, err := decodeStation([]byte(`{`)); err == nil {
		t.Error("malformed station accepted")
	}
	if _, err := decodeSession([]byte(`not json`)); err == nil {
		t.Error("malformed session accepted")
	}
}
