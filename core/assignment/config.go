package assignment

import "fmt"

// Config holds the scoring weights. Load it over DefaultConfig so that keys
// absent from the file keep their default.
type Config struct {
	// DistanceBase is the score of a driver standing on the order.
	DistanceBase float64 `json:"distance_base"`
	// DistancePenaltyPerKm is subtracted from DistanceBase per kilometre.
	DistancePenaltyPerKm float64 `json:"distance_penalty_per_km"`
	RatingWeight         float64 `json:"rating_weight"`
	UtilizationWeight    float64 `json:"utilization_weight"`
	OverCapacityPenalty  float64 `json:"over_capacity_penalty"`
	ExpertiseBonus       float64 `json:"expertise_bonus"`
	HighPriorityBonus    float64 `json:"high_priority_bonus"`
	MediumPriorityBonus  float64 `json:"medium_priority_bonus"`
	LowPriorityBonus     float64 `json:"low_priority_bonus"`
	MinutesPerKm         float64 `json:"minutes_per_km"`
	// MaxCandidateRadiusKm limits candidates to drivers within the radius. 0 disables it.
	MaxCandidateRadiusKm float64 `json:"max_candidate_radius_km"`
	// NearestFallback is how many of the closest drivers are tried when no
	// driver inside the radius is eligible. 0 keeps the radius strict.
	NearestFallback int `json:"nearest_fallback"`
}

// DefaultConfig returns the standard dashboard weights.
func DefaultConfig() Config {
	return Config{
		DistanceBase:         100,
		DistancePenaltyPerKm: 2,
		RatingWeight:         10,
		UtilizationWeight:    20,
		OverCapacityPenalty:  50,
		ExpertiseBonus:       30,
		HighPriorityBonus:    20,
		MediumPriorityBonus:  10,
		LowPriorityBonus:     0,
		MinutesPerKm:         3,
	}
}

// SetDefaults fills fields whose zero value is not usable.
func (c *Config) SetDefaults() {
	if c.MinutesPerKm == 0 {
		c.MinutesPerKm = 3
	}
}

// Validate rejects negative weights.
func (c Config) Validate() error {
	fields := map[string]float64{
		"distance_base":           c.DistanceBase,
		"distance_penalty_per_km": c.DistancePenaltyPerKm,
		"rating_weight":           c.RatingWeight,
		"utilization_weight":      c.UtilizationWeight,
		"over_capacity_penalty":   c.OverCapacityPenalty,
		"expertise_bonus":         c.ExpertiseBonus,
		"minutes_per_km":          c.MinutesPerKm,
		"max_candidate_radius_km": c.MaxCandidateRadiusKm,
	}
	for name, v := range fields {
		if v < 0 {
			return fmt.Errorf("assignment: %s must not be negative, got %v", name, v)
		}
	}
	if c.NearestFallback < 0 {
		return fmt.Errorf("assignment: nearest_fallback must not be negative, got %d", c.NearestFallback)
	}
	return nil
}
