package ingest

import "fmt"

// Config defines the Kafka consumers feeding the repository.
type Config struct {
	Enabled bool     `json:"enabled"`
	Brokers []string `json:"brokers"`
	GroupID string   `json:"group_id"`
	// Topics carrying one JSON record per message.
	StationsTopic string `json:"stations_topic"`
	SessionsTopic string `json:"sessions_topic"`
	WeatherTopic  string `json:"weather_topic"`
	TrafficTopic  string `json:"traffic_topic"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.GroupID == "" {
		c.GroupID = "chargescope"
	}
	if c.StationsTopic == "" {
		c.StationsTopic = "stations"
	}
	if c.SessionsTopic == "" {
		c.SessionsTopic = "usage-sessions"
	}
	if c.WeatherTopic == "" {
		c.WeatherTopic = "weather-observations"
	}
	if c.TrafficTopic == "" {
		c.TrafficTopic = "traffic-observations"
	}
}

// Validate checks mandatory fields when ingestion is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("ingest brokers are required when ingestion is enabled")
	}
	return nil
}
