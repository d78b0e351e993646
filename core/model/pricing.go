package model

import "fmt"

// Surcharge is a named flat add-on such as "weekend" or "express".
type Surcharge string

// PricingFactors describe the job being quoted.
type PricingFactors struct {
	DistanceKm float64     `json:"distance_km" yaml:"distance_km"`
	WeightKg   float64     `json:"weight_kg" yaml:"weight_kg"`
	WasteType  WasteType   `json:"waste_type" yaml:"waste_type"`
	Surcharges []Surcharge `json:"surcharges,omitempty" yaml:"surcharges,omitempty"`
}

// Validate rejects negative inputs. The pricing engine assumes validated input.
func (f PricingFactors) Validate() error {
	if f.DistanceKm < 0 {
		return fmt.Errorf("pricing factors: %w: distance %v", ErrInvalidWeight, f.DistanceKm)
	}
	if f.WeightKg < 0 {
		return fmt.Errorf("pricing factors: %w: weight %v", ErrInvalidWeight, f.WeightKg)
	}
	return nil
}

// DemandSnapshot is a point-in-time read of order pressure.
type DemandSnapshot struct {
	CurrentPendingOrders    int     `json:"current_pending_orders" yaml:"current_pending_orders"`
	HistoricalAverageOrders float64 `json:"historical_average_orders" yaml:"historical_average_orders"`
}

// Validate rejects negative counts.
func (d DemandSnapshot) Validate() error {
	if d.CurrentPendingOrders < 0 || d.HistoricalAverageOrders < 0 {
		return fmt.Errorf("demand snapshot: %w: negative count", ErrUnknownValue)
	}
	return nil
}
