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

	"github.com/kilianp07/binfleet/core/assignment"
	"github.com/kilianp07/binfleet/core/dispatch/logging"
	"github.com/kilianp07/binfleet/core/maintenance"
	"github.com/kilianp07/binfleet/core/metrics"
	"github.com/kilianp07/binfleet/core/pricing"
	"github.com/kilianp07/binfleet/core/routing"
	"github.com/kilianp07/binfleet/infra/kpi"
	"github.com/kilianp07/binfleet/jobs"
)

type Config struct {
	Assignment  assignment.Config  `json:"assignment"`
	Routing     routing.Config     `json:"routing"`
	Pricing     pricing.Config     `json:"pricing"`
	Maintenance maintenance.Config `json:"maintenance"`
	Metrics     metrics.Config     `json:"metrics"`
	DecisionLog logging.Config     `json:"decision_log"`
	Demand      kpi.Config         `json:"demand"`
	Jobs        jobs.Config        `json:"jobs"`
	Server      ServerConfig       `json:"server"`
	Sentry      SentryConfig       `json:"sentry"`
	Log         LogConfig          `json:"log"`
}

// Default returns a configuration where every engine uses its standard
// weights and no optional surface is enabled.
func Default() *Config {
	cfg := &Config{
		Assignment:  assignment.DefaultConfig(),
		Routing:     routing.DefaultConfig(),
		Pricing:     pricing.DefaultConfig(),
		Maintenance: maintenance.DefaultConfig(),
		DecisionLog: logging.Config{Backend: "memory"},
	}
	cfg.Demand.SetDefaults()
	cfg.Server.SetDefaults()
	cfg.Log.SetDefaults()
	return cfg
}

// Load reads the file at path, applies K_ prefixed environment overrides and
// validates the result. Keys absent from both keep their default. An empty
// path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
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
	}
	// Optional environment overrides, e.g. K_SERVER__ADDRESS=:9000.
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults fills zero values left by the file.
func (c *Config) SetDefaults() {
	c.Assignment.SetDefaults()
	c.Routing.SetDefaults()
	c.Pricing.SetDefaults()
	c.Maintenance.SetDefaults()
	c.DecisionLog.SetDefaults()
	c.Demand.SetDefaults()
	c.Server.SetDefaults()
	c.Log.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		c.Assignment, c.Routing, c.Pricing, c.Maintenance,
		c.Metrics, c.DecisionLog, c.Demand, c.Jobs, c.Server, c.Sentry, c.Log,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}
