package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/chargescope/chargescope/core/analytics"
	"github.com/chargescope/chargescope/core/metrics"
	"github.com/chargescope/chargescope/core/scheduler"
	"github.com/chargescope/chargescope/infra/ingest"
)

type Config struct {
	Storage   StorageConfig    `json:"storage"`
	Ingest    ingest.Config    `json:"ingest"`
	Analytics analytics.Config `json:"analytics"`
	Scheduler scheduler.Config `json:"scheduler"`
	Metrics   metrics.Config   `json:"metrics"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("CS_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "cs_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Storage.SetDefaults()
	c.Ingest.SetDefaults()
	c.Analytics.SetDefaults()
	c.Scheduler.SetDefaults()
	c.Metrics.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Ingest.Validate(); err != nil {
		return err
	}
	return c.Scheduler.Validate()
}
