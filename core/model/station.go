package model

import (
	"fmt"
	"strings"
)

// Station represents one charging location in the network.
type Station struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	Address   string
	City      string
	State     string
	Country   string
	Operator  string
	Network   string
	Status    string
}

// Validate checks that the station record is usable by the analytics engine.
// The identifier must be non-empty and coordinates must be on the globe.
func (s Station) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("station id must not be empty")
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("station %s: latitude %f out of range", s.ID, s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("station %s: longitude %f out of range", s.ID, s.Longitude)
	}
	return nil
}

// ChargingPoint is a single plug at a station.
type ChargingPoint struct {
	ID            string
	StationID     string
	PowerKW       float64
	ConnectorType string
	Status        string
}

// CleanStations drops records that fail validation and trims identifiers.
// Mirrors the normalizer contract: the engine only ever sees valid stations.
func CleanStations(stations []Station) []Station {
	out := make([]Station, 0, len(stations))
	for _, s := range stations {
		s.ID = strings.TrimSpace(s.ID)
		if err := s.Validate(); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
