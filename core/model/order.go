package model

import (
	"fmt"
	"time"
)

// Priority is the urgency of an order.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities: high=3, medium=2, low=1, unknown=0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool { return p.Rank() > 0 }

// TimeWindow is the service window requested for an order.
type TimeWindow struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Contains reports whether t falls inside the window. A zero window accepts any time.
func (w TimeWindow) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Order is a pending pickup or delivery job.
type Order struct {
	ID                string     `json:"id" yaml:"id"`
	Position          GeoPoint   `json:"position" yaml:"position"`
	WasteType         WasteType  `json:"waste_type" yaml:"waste_type"`
	EstimatedWeightKg float64    `json:"estimated_weight_kg" yaml:"estimated_weight_kg"`
	Priority          Priority   `json:"priority" yaml:"priority"`
	Window            TimeWindow `json:"time_window" yaml:"time_window"`
	// ServiceTimeMinutes is the time spent on site; used when the order becomes a route stop.
	ServiceTimeMinutes float64 `json:"service_time_minutes,omitempty" yaml:"service_time_minutes,omitempty"`
}

// Validate checks the order record before it reaches an engine.
func (o Order) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("order: %w", ErrMissingID)
	}
	if err := o.Position.Validate(); err != nil {
		return fmt.Errorf("order %s: %w", o.ID, err)
	}
	if o.EstimatedWeightKg < 0 {
		return fmt.Errorf("order %s: %w: %v", o.ID, ErrInvalidWeight, o.EstimatedWeightKg)
	}
	if !o.Priority.Valid() {
		return fmt.Errorf("order %s: %w: priority %q", o.ID, ErrUnknownValue, o.Priority)
	}
	if !o.Window.Start.IsZero() && !o.Window.End.IsZero() && o.Window.End.Before(o.Window.Start) {
		return fmt.Errorf("order %s: %w", o.ID, ErrInvalidWindow)
	}
	return nil
}

// AssignmentResult is the advisory outcome of scoring one order against the fleet.
type AssignmentResult struct {
	DriverID             string  `json:"driver_id"`
	OrderID              string  `json:"order_id"`
	Score                float64 `json:"score"`
	EstimatedDistanceKm  float64 `json:"estimated_distance_km"`
	EstimatedTimeMinutes float64 `json:"estimated_time_minutes"`
}
