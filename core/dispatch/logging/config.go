package logging

import (
	"fmt"

	"github.com/kilianp07/binfleet/core/factory"
)

// Config defines settings for decision log storage and rotation.
type Config struct {
	// Backend selects the store: "memory", "jsonl", "rotating" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" && c.Backend != "memory" {
		c.Path = "decisions.jsonl"
		if c.Backend == "sqlite" {
			c.Path = "decisions.db"
		}
	}
	if c.Backend == "rotating" && c.MaxSizeMB == 0 {
		c.MaxSizeMB = 50
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "memory":
		return nil
	case "jsonl", "rotating", "sqlite":
	default:
		return fmt.Errorf("decision_log: unknown backend %q", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("decision_log: path is required")
	}
	return nil
}

var storeRegistry = factory.NewRegistry[LogStore]()

func init() {
	_ = storeRegistry.Register("memory", func(map[string]any) (LogStore, error) {
		return NewMemoryStore(), nil
	})
	_ = storeRegistry.Register("jsonl", func(conf map[string]any) (LogStore, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewJSONLStore(c.Path)
	})
	_ = storeRegistry.Register("rotating", func(conf map[string]any) (LogStore, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	_ = storeRegistry.Register("sqlite", func(conf map[string]any) (LogStore, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
}

// RegisterLogStore adds a store factory identified by name.
func RegisterLogStore(name string, f factory.Factory[LogStore]) error {
	return storeRegistry.Register(name, f)
}

// Open builds the store selected by cfg.
func Open(cfg Config) (LogStore, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return storeRegistry.Create(factory.ModuleConfig{
		Type: cfg.Backend,
		Conf: map[string]any{
			"path":         cfg.Path,
			"max_size_mb":  cfg.MaxSizeMB,
			"max_backups":  cfg.MaxBackups,
			"max_age_days": cfg.MaxAgeDays,
		},
	})
}
