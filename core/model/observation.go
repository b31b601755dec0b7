package model

import (
	"strings"
	"time"
)

// WeatherObservation is one weather sample near a station.
type WeatherObservation struct {
	StationID       string
	Timestamp       time.Time
	TemperatureC    float64
	HumidityPercent float64
	PressureHPa     float64
	WindSpeedMS     float64
	PrecipitationMM float64
	Condition       string // categorical label, e.g. "Clear", "Rain", "Thunderstorm"
	VisibilityKM    float64
}

// Hour returns the observation timestamp floored to the hour in UTC.
func (w WeatherObservation) Hour() time.Time {
	return w.Timestamp.UTC().Truncate(time.Hour)
}

// TrafficObservation is one road traffic sample near a station.
type TrafficObservation struct {
	StationID       string
	Timestamp       time.Time
	TrafficDensity  float64
	AverageSpeedKMH float64
	CongestionLevel string // categorical label: "low", "moderate", "severe", ...
	RoadType        string
}

// Hour returns the observation timestamp floored to the hour in UTC.
func (t TrafficObservation) Hour() time.Time {
	return t.Timestamp.UTC().Truncate(time.Hour)
}

// CleanWeather drops observations missing a station or timestamp.
func CleanWeather(obs []WeatherObservation) []WeatherObservation {
	out := make([]WeatherObservation, 0, len(obs))
	for _, o := range obs {
		o.StationID = strings.TrimSpace(o.StationID)
		if o.StationID == "" || o.Timestamp.IsZero() {
			continue
		}
		out = append(out, o)
	}
	return out
}

// CleanTraffic drops observations missing a station or timestamp.
func CleanTraffic(obs []TrafficObservation) []TrafficObservation {
	out := make([]TrafficObservation, 0, len(obs))
	for _, o := range obs {
		o.StationID = strings.TrimSpace(o.StationID)
		if o.StationID == "" || o.Timestamp.IsZero() {
			continue
		}
		if o.CongestionLevel == "" {
			o.CongestionLevel = "unknown"
		}
		out = append(out, o)
	}
	return out
}

// Snapshot bundles the input collections one analysis call operates on.
// Each call receives its own snapshot; nothing derived from it is shared.
type Snapshot struct {
	Stations []Station
	Points   []ChargingPoint
	Sessions []UsageSession
	Weather  []WeatherObservation
	Traffic  []TrafficObservation
}

// FilterStation returns a copy of the snapshot reduced to a single station.
// An empty id returns the snapshot unchanged.
func (s Snapshot) FilterStation(id string) Snapshot {
	if id == "" {
		return s
	}
	out := Snapshot{}
	for _, st := range s.Stations {
		if st.ID == id {
			out.Stations = append(out.Stations, st)
		}
	}
	for _, p := range s.Points {
		if p.StationID == id {
			out.Points = append(out.Points, p)
		}
	}
	for _, u := range s.Sessions {
		if u.StationID == id {
			out.Sessions = append(out.Sessions, u)
		}
	}
	for _, w := range s.Weather {
		if w.StationID == id {
			out.Weather = append(out.Weather, w)
		}
	}
	for _, t := range s.Traffic {
		if t.StationID == id {
			out.Traffic = append(out.Traffic, t)
		}
	}
	return out
}
