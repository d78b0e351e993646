package maintenance

import "fmt"

// Config holds the severity thresholds as fractions of an interval consumed.
type Config struct {
	UpcomingThreshold float64 `json:"upcoming_threshold"`
	// DueThreshold opens a "due" band below OverdueThreshold. It defaults to
	// OverdueThreshold, which leaves the band empty.
	DueThreshold     float64 `json:"due_threshold"`
	OverdueThreshold float64 `json:"overdue_threshold"`
}

// DefaultConfig returns the 90% / 100% thresholds.
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.UpcomingThreshold == 0 {
		c.UpcomingThreshold = 0.9
	}
	if c.OverdueThreshold == 0 {
		c.OverdueThreshold = 1.0
	}
	if c.DueThreshold == 0 {
		c.DueThreshold = c.OverdueThreshold
	}
}

// Validate checks 0 < upcoming <= due <= overdue.
func (c Config) Validate() error {
	if c.UpcomingThreshold <= 0 || c.UpcomingThreshold > c.DueThreshold || c.DueThreshold > c.OverdueThreshold {
		return fmt.Errorf("maintenance: thresholds must satisfy 0 < upcoming <= due <= overdue, got %v/%v/%v",
			c.UpcomingThreshold, c.DueThreshold, c.OverdueThreshold)
	}
	return nil
}
