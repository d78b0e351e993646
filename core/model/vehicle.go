package model

import (
	"fmt"
	"time"
)

// Vehicle is a lorry's service history as tracked by the fleet screen.
// MileageKm is supplied by the caller and only ever grows.
type Vehicle struct {
	ID                       string    `json:"id" yaml:"id"`
	MileageKm                float64   `json:"mileage_km" yaml:"mileage_km"`
	LastMaintenanceDate      time.Time `json:"last_maintenance_date" yaml:"last_maintenance_date"`
	LastMaintenanceMileageKm float64   `json:"last_maintenance_mileage_km" yaml:"last_maintenance_mileage_km"`
	MileageIntervalKm        float64   `json:"mileage_interval_km" yaml:"mileage_interval_km"`
	TimeIntervalMonths       int       `json:"time_interval_months" yaml:"time_interval_months"`
}

// HasMileageHistory reports whether a mileage based due point can be computed.
func (v Vehicle) HasMileageHistory() bool {
	return v.MileageIntervalKm > 0
}

// HasTimeHistory reports whether a calendar based due point can be computed.
func (v Vehicle) HasTimeHistory() bool {
	return !v.LastMaintenanceDate.IsZero() && v.TimeIntervalMonths > 0
}

// MileageDueKm is the odometer reading at which the next service is due.
func (v Vehicle) MileageDueKm() float64 {
	return v.LastMaintenanceMileageKm + v.MileageIntervalKm
}

// DateDue is the calendar date at which the next service is due.
func (v Vehicle) DateDue() time.Time {
	return v.LastMaintenanceDate.AddDate(0, v.TimeIntervalMonths, 0)
}

// Validate rejects records the predictor cannot reason about. Missing history
// is not an error: such vehicles are skipped by the predictor.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle: %w", ErrMissingID)
	}
	if v.MileageKm < 0 || v.LastMaintenanceMileageKm < 0 {
		return fmt.Errorf("vehicle %s: %w: negative reading", v.ID, ErrInvalidMileage)
	}
	if v.MileageIntervalKm < 0 || v.TimeIntervalMonths < 0 {
		return fmt.Errorf("vehicle %s: %w: negative interval", v.ID, ErrInvalidInterval)
	}
	return nil
}

// Severity ranks a maintenance alert.
type Severity string

const (
	SeverityUpcoming Severity = "upcoming"
	SeverityDue      Severity = "due"
	SeverityOverdue  Severity = "overdue"
)

// Rank orders severities so the most urgent compares highest.
func (s Severity) Rank() int {
	switch s {
	case SeverityUpcoming:
		return 1
	case SeverityDue:
		return 2
	case SeverityOverdue:
		return 3
	default:
		return 0
	}
}

// TriggerReason names the dimension that raised an alert.
type TriggerReason string

const (
	TriggerMileage TriggerReason = "mileage"
	TriggerTime    TriggerReason = "time"
)

// MaintenanceAlert is computed fresh on every predictor call.
type MaintenanceAlert struct {
	VehicleID string        `json:"vehicle_id"`
	Severity  Severity      `json:"severity"`
	Trigger   TriggerReason `json:"trigger_reason"`
	// Fraction is the share of the interval consumed by the triggering dimension.
	Fraction       float64   `json:"fraction"`
	DueAtMileageKm float64   `json:"due_at_mileage_km,omitempty"`
	DueAtDate      time.Time `json:"due_at_date,omitempty"`
}
