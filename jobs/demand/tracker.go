// Package demand turns roster observations into the daily demand history
// that sets the pricing baseline.
package demand

import (
	"context"
	"time"

	"github.com/kilianp07/binfleet/core/model"
	"github.com/kilianp07/binfleet/core/spatial"
	"github.com/kilianp07/binfleet/infra/kpi"
)

// Tracker records daily order counts per zone and reads them back as
// pricing history.
type Tracker struct {
	store      kpi.Store
	windowDays int
}

// NewTracker returns a Tracker averaging over windowDays past days.
func NewTracker(store kpi.Store, windowDays int) *Tracker {
	return &Tracker{store: store, windowDays: windowDays}
}

// Record stores the counts of orders per zone, plus the fleet total, as the
// demand of at's day. A later call on the same day replaces the counts.
func (t *Tracker) Record(ctx context.Context, orders []model.Order, at time.Time) error {
	counts := map[string]int{kpi.FleetZone: len(orders)}
	for _, o := range orders {
		counts[string(spatial.ZoneOf(o.Position))]++
	}
	recs := make([]kpi.DemandRecord, 0, len(counts))
	for zone, n := range counts {
		recs = append(recs, kpi.DemandRecord{Zone: zone, Day: at, Orders: n})
	}
	return t.store.Set(ctx, recs...)
}

// History returns one count per observed day of the window ending the day
// before asOf, oldest first. A day is observed when the fleet total was
// recorded for it; on such a day a zone without a record counts as zero.
// Counts are summed over zones, or taken from the fleet total when zones is
// empty. Days that were never recorded are left out so a partly filled
// window does not drag the average down. It returns nil when no day of the
// window was observed.
func (t *Tracker) History(ctx context.Context, zones []spatial.Zone, asOf time.Time) ([]float64, error) {
	if t.windowDays <= 0 {
		return nil, nil
	}
	end := kpi.Day(asOf).AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(t.windowDays - 1))
	fleet, err := t.store.Query(ctx, kpi.FleetZone, start, end)
	if err != nil {
		return nil, err
	}
	if len(fleet) == 0 {
		return nil, nil
	}
	if len(zones) == 0 {
		daily := make([]float64, len(fleet))
		for i, r := range fleet {
			daily[i] = float64(r.Orders)
		}
		return daily, nil
	}
	byDay := make(map[time.Time]float64, len(fleet))
	for _, r := range fleet {
		byDay[kpi.Day(r.Day)] = 0
	}
	for _, z := range zones {
		recs, err := t.store.Query(ctx, string(z), start, end)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			d := kpi.Day(r.Day)
			if _, ok := byDay[d]; ok {
				byDay[d] += float64(r.Orders)
			}
		}
	}
	daily := make([]float64, len(fleet))
	for i, r := range fleet {
		daily[i] = byDay[kpi.Day(r.Day)]
	}
	return daily, nil
}
