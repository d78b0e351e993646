package routing

import "fmt"

// Config holds the optimizer defaults.
type Config struct {
	// MinutesPerKm is the travel rate used when a call does not set an average speed.
	MinutesPerKm float64 `json:"minutes_per_km"`
}

// DefaultConfig returns the standard 3 min/km travel rate.
func DefaultConfig() Config {
	return Config{MinutesPerKm: 3}
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.MinutesPerKm == 0 {
		c.MinutesPerKm = 3
	}
}

// Validate checks the travel rate.
func (c Config) Validate() error {
	if c.MinutesPerKm <= 0 {
		return fmt.Errorf("routing: minutes_per_km must be positive, got %v", c.MinutesPerKm)
	}
	return nil
}
