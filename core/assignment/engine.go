package assignment

import (
	"sort"

	"github.com/kilianp07/binfleet/core/logger"
	"github.com/kilianp07/binfleet/core/model"
	"github.com/kilianp07/binfleet/core/spatial"
)

// Engine assigns orders to drivers using a weighted greedy score.
type Engine struct {
	cfg Config
	log logger.Logger
}

// New returns an engine using cfg. A nil logger disables logging.
func New(cfg Config, log logger.Logger) *Engine {
	cfg.SetDefaults()
	return &Engine{cfg: cfg, log: logger.OrNop(log)}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// BestDriverFor returns the highest scoring eligible driver for order. ok is
// false when no driver is eligible.
func (e *Engine) BestDriverFor(drivers []model.Driver, order model.Order) (model.AssignmentResult, bool) {
	r, _, ok := e.BestDriverWithBreakdown(drivers, order)
	return r, ok
}

// BestDriverWithBreakdown is BestDriverFor plus the score terms of the winner.
func (e *Engine) BestDriverWithBreakdown(drivers []model.Driver, order model.Order) (model.AssignmentResult, ScoreBreakdown, bool) {
	candidates := drivers
	var ix *spatial.Index
	if e.cfg.MaxCandidateRadiusKm > 0 {
		ix = spatial.NewIndex(drivers)
		candidates = ix.Within(order.Position, e.cfg.MaxCandidateRadiusKm)
	}
	idx, b, ok := e.pick(candidates, order)
	if !ok && ix != nil && e.cfg.NearestFallback > 0 {
		candidates = ix.Nearest(order.Position, e.cfg.NearestFallback)
		idx, b, ok = e.pick(candidates, order)
	}
	if !ok {
		e.log.Debugf("no eligible driver for order %s", order.ID)
		return model.AssignmentResult{}, ScoreBreakdown{}, false
	}
	return e.result(candidates[idx], b), b, true
}

// AssignBatch assigns orders greedily, highest priority first. Each winner's
// load is raised before the next order is scored so no driver is overbooked
// within the batch. Unassignable orders are left out. Neither input slice is
// modified.
func (e *Engine) AssignBatch(drivers []model.Driver, orders []model.Order) []model.AssignmentResult {
	results, _ := e.AssignBatchWithBreakdown(drivers, orders)
	return results
}

// AssignBatchWithBreakdown is AssignBatch plus, at the same index, the score
// terms each winner had when it was picked.
func (e *Engine) AssignBatchWithBreakdown(drivers []model.Driver, orders []model.Order) ([]model.AssignmentResult, []ScoreBreakdown) {
	if len(drivers) == 0 || len(orders) == 0 {
		return nil, nil
	}
	work := make([]model.Driver, len(drivers))
	copy(work, drivers)
	slot := make(map[string]int, len(work))
	for i, d := range work {
		slot[d.ID] = i
	}

	queue := make([]model.Order, len(orders))
	copy(queue, orders)
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].Priority.Rank() > queue[j].Priority.Rank()
	})

	var ix *spatial.Index
	if e.cfg.MaxCandidateRadiusKm > 0 {
		// Positions do not change within a batch, only loads.
		ix = spatial.NewIndex(drivers)
	}

	results := make([]model.AssignmentResult, 0, len(queue))
	breakdowns := make([]ScoreBreakdown, 0, len(queue))
	for _, o := range queue {
		// Index hits carry snapshot loads; score the working copies instead.
		current := func(found []model.Driver) []model.Driver {
			out := make([]model.Driver, 0, len(found))
			for _, d := range found {
				out = append(out, work[slot[d.ID]])
			}
			return out
		}
		candidates := work
		if ix != nil {
			candidates = current(ix.Within(o.Position, e.cfg.MaxCandidateRadiusKm))
		}
		i, b, ok := e.pick(candidates, o)
		if !ok && ix != nil && e.cfg.NearestFallback > 0 {
			candidates = current(ix.Nearest(o.Position, e.cfg.NearestFallback))
			i, b, ok = e.pick(candidates, o)
		}
		if !ok {
			e.log.Debugf("order %s left unassigned", o.ID)
			continue
		}
		winner := candidates[i]
		work[slot[winner.ID]].CurrentLoadKg += o.EstimatedWeightKg
		results = append(results, e.result(winner, b))
		breakdowns = append(breakdowns, b)
	}
	e.log.Debugw("batch assigned", map[string]any{"orders": len(orders), "assigned": len(results)})
	return results, breakdowns
}

// pick returns the index of the best eligible candidate. Ties on score go to
// the lower driver id.
func (e *Engine) pick(candidates []model.Driver, o model.Order) (int, ScoreBreakdown, bool) {
	best := -1
	var bestB ScoreBreakdown
	for i, d := range candidates {
		if !eligible(d, o) {
			continue
		}
		b := e.Breakdown(d, o)
		if best < 0 || b.Total > bestB.Total || (b.Total == bestB.Total && d.ID < candidates[best].ID) {
			best, bestB = i, b
		}
	}
	return best, bestB, best >= 0
}

func (e *Engine) result(d model.Driver, b ScoreBreakdown) model.AssignmentResult {
	return model.AssignmentResult{
		DriverID:             d.ID,
		OrderID:              b.OrderID,
		Score:                b.Total,
		EstimatedDistanceKm:  b.DistanceKm,
		EstimatedTimeMinutes: b.DistanceKm * e.cfg.MinutesPerKm,
	}
}
