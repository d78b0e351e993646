package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/binfleet/core/model"
	"github.com/kilianp07/binfleet/core/roster"
	"github.com/kilianp07/binfleet/pkg/export"
)

// Snapshot is a roster file read by the one-shot commands.
type Snapshot struct {
	Drivers  []model.Driver  `json:"drivers" yaml:"drivers"`
	Orders   []model.Order   `json:"orders" yaml:"orders"`
	Vehicles []model.Vehicle `json:"vehicles" yaml:"vehicles"`
	// DemandHistory holds past daily order counts used as the pricing baseline.
	DemandHistory []float64 `json:"demand_history" yaml:"demand_history"`
}

// LoadSnapshot reads a YAML or JSON snapshot, chosen by file extension.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	case ".json":
		err = json.Unmarshal(data, &s)
	default:
		return nil, fmt.Errorf("unsupported snapshot format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return &s, nil
}

// Apply loads the snapshot into store, replacing its content.
func (s *Snapshot) Apply(store *roster.MemoryStore) error {
	if err := store.Load(s.Drivers, s.Orders, s.Vehicles); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	store.SetDemandHistory(s.DemandHistory)
	return nil
}

// writeOutput encodes v as JSON, YAML or CSV.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// Round trip through JSON so YAML keys follow the json tags.
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(generic)
	case "csv":
		return export.WriteCSV(w, v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
