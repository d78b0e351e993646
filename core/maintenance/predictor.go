// Package maintenance predicts when vehicles need servicing from their
// mileage and calendar intervals.
package maintenance

import (
	"sort"
	"time"

	"github.com/kilianp07/binfleet/core/logger"
	"github.com/kilianp07/binfleet/core/model"
)

// epsilon absorbs floating point error at the threshold boundaries.
const epsilon = 1e-9

// Predictor generates maintenance alerts. It keeps no alert history.
type Predictor struct {
	cfg Config
	log logger.Logger
}

// New returns a Predictor. A nil logger disables logging.
func New(cfg Config, log logger.Logger) *Predictor {
	cfg.SetDefaults()
	return &Predictor{cfg: cfg, log: logger.OrNop(log)}
}

// GenerateAlerts evaluates every vehicle as of asOf and returns at most one
// alert per vehicle, ordered by vehicle id. Invalid vehicles and vehicles
// without any usable interval are skipped.
func (p *Predictor) GenerateAlerts(vehicles []model.Vehicle, asOf time.Time) []model.MaintenanceAlert {
	alerts := make([]model.MaintenanceAlert, 0)
	for _, v := range vehicles {
		if err := v.Validate(); err != nil {
			p.log.Warnf("skipping vehicle: %v", err)
			continue
		}
		if a, ok := p.Evaluate(v, asOf); ok {
			alerts = append(alerts, a)
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].VehicleID < alerts[j].VehicleID })
	return alerts
}

// Evaluate returns the alert for a single vehicle, if any. The dimension with
// the larger consumed fraction decides the trigger; mileage wins ties. Only
// the due point of the triggering dimension is set.
func (p *Predictor) Evaluate(v model.Vehicle, asOf time.Time) (model.MaintenanceAlert, bool) {
	a := model.MaintenanceAlert{VehicleID: v.ID}
	found := false
	if v.HasMileageHistory() {
		a.Trigger = model.TriggerMileage
		a.Fraction = MileageFraction(v)
		found = true
	}
	if v.HasTimeHistory() {
		if f := TimeFraction(v, asOf); !found || f > a.Fraction {
			a.Trigger = model.TriggerTime
			a.Fraction = f
		}
		found = true
	}
	if !found {
		p.log.Debugf("vehicle %s has no usable maintenance interval", v.ID)
		return model.MaintenanceAlert{}, false
	}
	if a.Trigger == model.TriggerMileage {
		a.DueAtMileageKm = v.MileageDueKm()
	} else {
		a.DueAtDate = v.DateDue()
	}
	sev, ok := p.severity(a.Fraction)
	if !ok {
		return model.MaintenanceAlert{}, false
	}
	a.Severity = sev
	return a, true
}

func (p *Predictor) severity(fraction float64) (model.Severity, bool) {
	switch {
	case fraction >= p.cfg.OverdueThreshold-epsilon:
		return model.SeverityOverdue, true
	case fraction >= p.cfg.DueThreshold-epsilon:
		return model.SeverityDue, true
	case fraction >= p.cfg.UpcomingThreshold-epsilon:
		return model.SeverityUpcoming, true
	default:
		return "", false
	}
}

// MileageFraction is the share of the mileage interval already driven.
func MileageFraction(v model.Vehicle) float64 {
	if v.MileageIntervalKm <= 0 {
		return 0
	}
	return (v.MileageKm - v.LastMaintenanceMileageKm) / v.MileageIntervalKm
}

// TimeFraction is the share of the calendar interval elapsed at asOf.
func TimeFraction(v model.Vehicle, asOf time.Time) float64 {
	interval := v.DateDue().Sub(v.LastMaintenanceDate)
	if interval <= 0 {
		return 0
	}
	return float64(asOf.Sub(v.LastMaintenanceDate)) / float64(interval)
}
