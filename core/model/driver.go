package model

import (
	"fmt"
	"slices"
)

// DriverStatus is the duty state of a driver.
type DriverStatus string

const (
	DriverActive      DriverStatus = "active"
	DriverOffline     DriverStatus = "offline"
	DriverMaintenance DriverStatus = "maintenance"
)

// Valid reports whether s is a known status.
func (s DriverStatus) Valid() bool {
	switch s {
	case DriverActive, DriverOffline, DriverMaintenance:
		return true
	default:
		return false
	}
}

// WasteType names a waste category as shown on the dashboard,
// e.g. "Household Waste" or "Construction Waste".
type WasteType string

const (
	WasteHousehold    WasteType = "Household Waste"
	WasteGarden       WasteType = "Garden Waste"
	WasteConstruction WasteType = "Construction Waste"
	WasteBulky        WasteType = "Bulky Waste"
	WasteHazardous    WasteType = "Hazardous Waste"
	WasteRecyclable   WasteType = "Recyclable Waste"
)

// Driver is a lorry driver as seen by the dispatch engines.
type Driver struct {
	ID                string       `json:"id" yaml:"id"`
	Position          GeoPoint     `json:"position" yaml:"position"`
	Status            DriverStatus `json:"status" yaml:"status"`
	Rating            float64      `json:"rating" yaml:"rating"` // 0..5
	VehicleCapacityKg float64      `json:"vehicle_capacity_kg" yaml:"vehicle_capacity_kg"`
	CurrentLoadKg     float64      `json:"current_load_kg" yaml:"current_load_kg"`
	Expertise         []WasteType  `json:"expertise" yaml:"expertise"`
}

// HasExpertise reports whether the driver is qualified for the waste type.
func (d Driver) HasExpertise(w WasteType) bool {
	return slices.Contains(d.Expertise, w)
}

// SpareCapacityKg returns the remaining payload, never negative.
func (d Driver) SpareCapacityKg() float64 {
	spare := d.VehicleCapacityKg - d.CurrentLoadKg
	if spare < 0 {
		return 0
	}
	return spare
}

// CanCarry reports whether an additional weightKg fits in the vehicle.
func (d Driver) CanCarry(weightKg float64) bool {
	return d.CurrentLoadKg+weightKg <= d.VehicleCapacityKg
}

// Validate checks the driver record before it reaches an engine.
func (d Driver) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("driver: %w", ErrMissingID)
	}
	if err := d.Position.Validate(); err != nil {
		return fmt.Errorf("driver %s: %w", d.ID, err)
	}
	if !d.Status.Valid() {
		return fmt.Errorf("driver %s: %w: status %q", d.ID, ErrUnknownValue, d.Status)
	}
	if d.Rating < 0 || d.Rating > 5 {
		return fmt.Errorf("driver %s: %w: %v", d.ID, ErrInvalidRating, d.Rating)
	}
	if d.VehicleCapacityKg <= 0 {
		return fmt.Errorf("driver %s: %w: %v", d.ID, ErrInvalidCapacity, d.VehicleCapacityKg)
	}
	if d.CurrentLoadKg < 0 || d.CurrentLoadKg > d.VehicleCapacityKg {
		return fmt.Errorf("driver %s: %w: load %v of %v", d.ID, ErrInvalidCapacity, d.CurrentLoadKg, d.VehicleCapacityKg)
	}
	return nil
}
