package assignment

import (
	"math"

	"github.com/kilianp07/binfleet/core/model"
)

// ScoreBreakdown exposes each term of a driver/order score.
type ScoreBreakdown struct {
	DriverID    string  `json:"driver_id"`
	OrderID     string  `json:"order_id"`
	DistanceKm  float64 `json:"distance_km"`
	Distance    float64 `json:"distance"`
	Reliability float64 `json:"reliability"`
	Utilization float64 `json:"utilization"`
	Expertise   float64 `json:"expertise"`
	Priority    float64 `json:"priority"`
	// Total is the sum of the terms floored at zero.
	Total float64 `json:"total"`
}

// Breakdown scores driver d for order o. It does not check eligibility.
func (e *Engine) Breakdown(d model.Driver, o model.Order) ScoreBreakdown {
	km := model.DistanceKm(d.Position, o.Position)
	b := ScoreBreakdown{
		DriverID:    d.ID,
		OrderID:     o.ID,
		DistanceKm:  km,
		Distance:    math.Max(0, e.cfg.DistanceBase-e.cfg.DistancePenaltyPerKm*km),
		Reliability: d.Rating * e.cfg.RatingWeight,
		Utilization: e.utilizationTerm(d, o.EstimatedWeightKg),
		Priority:    e.priorityTerm(o.Priority),
	}
	if d.HasExpertise(o.WasteType) {
		b.Expertise = e.cfg.ExpertiseBonus
	}
	b.Total = math.Max(0, b.Distance+b.Reliability+b.Utilization+b.Expertise+b.Priority)
	return b
}

// Score returns the floored total of Breakdown.
func (e *Engine) Score(d model.Driver, o model.Order) float64 {
	return e.Breakdown(d, o).Total
}

func (e *Engine) utilizationTerm(d model.Driver, weightKg float64) float64 {
	if d.VehicleCapacityKg <= 0 {
		return -e.cfg.OverCapacityPenalty
	}
	u := (d.CurrentLoadKg + weightKg) / d.VehicleCapacityKg
	if u > 1 {
		return -e.cfg.OverCapacityPenalty
	}
	return (1 - u) * e.cfg.UtilizationWeight
}

func (e *Engine) priorityTerm(p model.Priority) float64 {
	switch p {
	case model.PriorityHigh:
		return e.cfg.HighPriorityBonus
	case model.PriorityMedium:
		return e.cfg.MediumPriorityBonus
	case model.PriorityLow:
		return e.cfg.LowPriorityBonus
	default:
		return 0
	}
}

// eligible reports whether d may take o at all.
func eligible(d model.Driver, o model.Order) bool {
	return d.Status == model.DriverActive && d.CanCarry(o.EstimatedWeightKg)
}
