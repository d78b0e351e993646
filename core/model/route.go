package model

import "fmt"

// Stop is one location a driver must visit.
type Stop struct {
	LocationID         string   `json:"location_id" yaml:"location_id"`
	Position           GeoPoint `json:"position" yaml:"position"`
	ServiceTimeMinutes float64  `json:"service_time_minutes" yaml:"service_time_minutes"`
	PriorityWeight     float64  `json:"priority_weight" yaml:"priority_weight"`
	WeightKg           float64  `json:"weight_kg" yaml:"weight_kg"`
}

// StopFromOrder turns an assigned order into a route stop. The priority rank
// becomes the tie-break weight.
func StopFromOrder(o Order) Stop {
	return Stop{
		LocationID:         o.ID,
		Position:           o.Position,
		ServiceTimeMinutes: o.ServiceTimeMinutes,
		PriorityWeight:     float64(o.Priority.Rank()),
		WeightKg:           o.EstimatedWeightKg,
	}
}

// RouteConstraints bound a single optimisation call. Zero limits are unbounded.
type RouteConstraints struct {
	MaxDistanceKm            float64 `json:"max_distance_km" yaml:"max_distance_km"`
	MaxTimeMinutes           float64 `json:"max_time_minutes" yaml:"max_time_minutes"`
	VehicleCapacityKg        float64 `json:"vehicle_capacity_kg" yaml:"vehicle_capacity_kg"`
	FuelEfficiencyKmPerLiter float64 `json:"fuel_efficiency_km_per_liter" yaml:"fuel_efficiency_km_per_liter"`
	FuelPricePerLiter        float64 `json:"fuel_price_per_liter" yaml:"fuel_price_per_liter"`
	// AverageSpeedKmh overrides the default minutes-per-km travel rate when positive.
	AverageSpeedKmh float64 `json:"average_speed_kmh,omitempty" yaml:"average_speed_kmh,omitempty"`
}

// Validate rejects negative limits.
func (c RouteConstraints) Validate() error {
	if c.MaxDistanceKm < 0 || c.MaxTimeMinutes < 0 || c.VehicleCapacityKg < 0 {
		return fmt.Errorf("route constraints: %w: negative limit", ErrInvalidCapacity)
	}
	if c.FuelEfficiencyKmPerLiter < 0 || c.FuelPricePerLiter < 0 || c.AverageSpeedKmh < 0 {
		return fmt.Errorf("route constraints: %w: negative fuel or speed parameter", ErrUnknownValue)
	}
	return nil
}

// OptimizedRoute is the visiting sequence produced for one driver.
type OptimizedRoute struct {
	DriverID          string   `json:"driver_id"`
	Stops             []Stop   `json:"ordered_stops"`
	TotalDistanceKm   float64  `json:"total_distance_km"`
	TotalTimeMinutes  float64  `json:"total_time_minutes"`
	EstimatedFuelCost float64  `json:"estimated_fuel_cost"`
	Unvisited         []string `json:"unvisited"`
}
