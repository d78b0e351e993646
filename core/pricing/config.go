package pricing

import (
	"fmt"

	"github.com/kilianp07/binfleet/core/model"
)

// Config holds the tariff. Monetary values are in the operator's base currency.
type Config struct {
	BaseFee float64 `json:"base_fee"`
	PerKm   float64 `json:"per_km"`
	PerKg   float64 `json:"per_kg"`
	// WasteMultipliers scale the base price per waste type. Missing types use 1.
	WasteMultipliers map[model.WasteType]float64 `json:"waste_multipliers"`
	// Surcharges are flat amounts added when the matching flag is present.
	Surcharges    map[model.Surcharge]float64 `json:"surcharges"`
	MinMultiplier float64                     `json:"min_multiplier"`
	MaxMultiplier float64                     `json:"max_multiplier"`
}

// DefaultConfig returns the standard tariff.
func DefaultConfig() Config {
	c := Config{BaseFee: 50, PerKm: 1.5, PerKg: 0.1}
	c.SetDefaults()
	return c
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.WasteMultipliers == nil {
		c.WasteMultipliers = map[model.WasteType]float64{
			model.WasteHazardous:    1.5,
			model.WasteBulky:        1.25,
			model.WasteConstruction: 1.2,
		}
	}
	if c.Surcharges == nil {
		c.Surcharges = map[model.Surcharge]float64{
			"weekend": 15,
			"express": 25,
			"permit":  40,
		}
	}
	if c.MinMultiplier == 0 {
		c.MinMultiplier = 0.8
	}
	if c.MaxMultiplier == 0 {
		c.MaxMultiplier = 1.5
	}
}

// Validate checks the tariff is usable.
func (c Config) Validate() error {
	if c.BaseFee < 0 || c.PerKm < 0 || c.PerKg < 0 {
		return fmt.Errorf("pricing: rates must not be negative")
	}
	// The neutral multiplier used without history must lie inside the bounds.
	if c.MinMultiplier <= 0 || c.MinMultiplier > 1 || c.MaxMultiplier < 1 {
		return fmt.Errorf("pricing: multiplier bounds [%v, %v] must be positive and contain 1", c.MinMultiplier, c.MaxMultiplier)
	}
	for w, m := range c.WasteMultipliers {
		if m <= 0 {
			return fmt.Errorf("pricing: multiplier for %q must be positive", w)
		}
	}
	for s, amount := range c.Surcharges {
		if amount < 0 {
			return fmt.Errorf("pricing: surcharge %q must not be negative", s)
		}
	}
	return nil
}
