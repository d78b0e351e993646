// Package pricing computes demand-adjusted prices for collection jobs.
package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/binfleet/core/logger"
	"github.com/kilianp07/binfleet/core/model"
)

// Quote is a price with its components.
type Quote struct {
	Base             float64           `json:"base"`
	WasteMultiplier  float64           `json:"waste_multiplier"`
	Surcharges       float64           `json:"surcharges"`
	Applied          []model.Surcharge `json:"applied_surcharges,omitempty"`
	DemandMultiplier float64           `json:"demand_multiplier"`
	Final            float64           `json:"final_price"`
}

// Engine prices jobs. It holds no clock or random state, so identical inputs
// always give the identical price.
type Engine struct {
	cfg Config
	log logger.Logger
}

// New returns an Engine. A nil logger disables logging.
func New(cfg Config, log logger.Logger) *Engine {
	cfg.SetDefaults()
	return &Engine{cfg: cfg, log: logger.OrNop(log)}
}

// Price returns the final price for f under demand d.
func (e *Engine) Price(f model.PricingFactors, d model.DemandSnapshot) float64 {
	return e.Quote(f, d).Final
}

// Quote prices f under demand d and reports each component. Base includes the
// waste multiplier and any surcharges; Final is Base times the demand
// multiplier, rounded to cents and never negative.
func (e *Engine) Quote(f model.PricingFactors, d model.DemandSnapshot) Quote {
	q := Quote{WasteMultiplier: 1, DemandMultiplier: e.DemandMultiplier(d)}
	if m, ok := e.cfg.WasteMultipliers[f.WasteType]; ok {
		q.WasteMultiplier = m
	}
	for _, s := range f.Surcharges {
		amount, ok := e.cfg.Surcharges[s]
		if !ok {
			e.log.Debugf("ignoring unknown surcharge %q", s)
			continue
		}
		q.Surcharges += amount
		q.Applied = append(q.Applied, s)
	}
	q.Base = (e.cfg.BaseFee+e.cfg.PerKm*f.DistanceKm+e.cfg.PerKg*f.WeightKg)*q.WasteMultiplier + q.Surcharges
	q.Final = round2(math.Max(0, q.Base*q.DemandMultiplier))
	return q
}

// DemandMultiplier is pending/historical clamped to the configured bounds.
// Without a usable history it is neutral.
func (e *Engine) DemandMultiplier(d model.DemandSnapshot) float64 {
	if d.HistoricalAverageOrders <= 0 {
		return 1
	}
	ratio := float64(d.CurrentPendingOrders) / d.HistoricalAverageOrders
	return math.Min(e.cfg.MaxMultiplier, math.Max(e.cfg.MinMultiplier, ratio))
}

// NewDemandSnapshot builds a snapshot from the pending count and a series of
// past daily order counts.
func NewDemandSnapshot(pending int, history []float64) model.DemandSnapshot {
	snap := model.DemandSnapshot{CurrentPendingOrders: pending}
	if len(history) > 0 {
		snap.HistoricalAverageOrders = stat.Mean(history, nil)
	}
	return snap
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
