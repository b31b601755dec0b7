package config

import "fmt"

// StorageConfig selects the repository backend.
type StorageConfig struct {
	// Backend selects the store type: "memory" or "postgres".
	Backend string `json:"backend"`
	// DSN is the Postgres connection string, required for the postgres backend.
	DSN string `json:"dsn"`
	// MaxOpenConns bounds the connection pool for the postgres backend.
	MaxOpenConns int `json:"max_open_conns"`
}

// SetDefaults applies sane defaults.
func (c *StorageConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
}

// Validate checks mandatory fields.
func (c StorageConfig) Validate() error {
	switch c.Backend {
	case "memory":
		return nil
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("storage dsn is required for the postgres backend")
		}
		return nil
	default:
		return fmt.Errorf("unknown storage backend %s", c.Backend)
	}
}
