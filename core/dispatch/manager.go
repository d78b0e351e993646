// Package dispatch drives the decision engines against the canonical roster.
// The Manager takes snapshots, runs an engine, commits assignments back to the
// roster and records every decision in the metrics sink, the event bus and the
// decision log.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/binfleet/core/assignment"
	"github.com/kilianp07/binfleet/core/dispatch/logging"
	"github.com/kilianp07/binfleet/core/events"
	"github.com/kilianp07/binfleet/core/logger"
	"github.com/kilianp07/binfleet/core/maintenance"
	"github.com/kilianp07/binfleet/core/metrics"
	"github.com/kilianp07/binfleet/core/model"
	coremon "github.com/kilianp07/binfleet/core/monitoring"
	"github.com/kilianp07/binfleet/core/pricing"
	"github.com/kilianp07/binfleet/core/roster"
	"github.com/kilianp07/binfleet/core/routing"
	"github.com/kilianp07/binfleet/core/spatial"
	"github.com/kilianp07/binfleet/internal/eventbus"
)

// ErrNoDecisionLog is returned by Decisions when no log store is configured.
var ErrNoDecisionLog = errors.New("dispatch: no decision log configured")

// Engines groups the decision engines used by the Manager.
type Engines struct {
	Assignment  *assignment.Engine
	Routing     *routing.Optimizer
	Pricing     *pricing.Engine
	Maintenance *maintenance.Predictor
}

// DemandBaseline supplies past daily order counts for a set of zones, or
// for the whole fleet when zones is empty.
type DemandBaseline interface {
	History(ctx context.Context, zones []spatial.Zone, asOf time.Time) ([]float64, error)
}

// AssignmentOutcome is the committed result of an assignment run.
type AssignmentOutcome struct {
	RecordID    string                   `json:"record_id,omitempty"`
	CommitID    string                   `json:"commit_id,omitempty"`
	Assignments []model.AssignmentResult `json:"assignments"`
	// Unassigned lists pending orders no driver could take.
	Unassigned []string `json:"unassigned"`
	// Breakdowns holds the score terms of each applied assignment, in the
	// same order as Assignments.
	Breakdowns []assignment.ScoreBreakdown `json:"breakdowns"`
}

// RouteOutcome is an optimized route for a driver's committed orders.
type RouteOutcome struct {
	RecordID string               `json:"record_id,omitempty"`
	Route    model.OptimizedRoute `json:"route"`
}

// QuoteOutcome is a price with the demand it was computed under.
type QuoteOutcome struct {
	RecordID string               `json:"record_id,omitempty"`
	Zone     spatial.Zone         `json:"zone,omitempty"`
	Demand   model.DemandSnapshot `json:"demand"`
	Quote    pricing.Quote        `json:"quote"`
}

// MaintenanceOutcome holds the alerts of a sweep.
type MaintenanceOutcome struct {
	RecordID string                   `json:"record_id,omitempty"`
	AsOf     time.Time                `json:"as_of"`
	Alerts   []model.MaintenanceAlert `json:"alerts"`
}

// Manager composes the engines with the roster and the observability sinks.
// Assignment calls are serialized so a batch never sees a roster another
// batch is about to change.
type Manager struct {
	engines Engines
	roster  roster.Store
	metrics metrics.MetricsSink
	bus     *eventbus.TypedBus[events.Decision]
	logger  logger.Logger
	now     func() time.Time

	assignMu sync.Mutex

	mu       sync.RWMutex
	store    logging.LogStore
	baseline DemandBaseline
}

// NewManager creates a new manager. Sink, bus and log are optional.
func NewManager(r roster.Store, eng Engines, sink metrics.MetricsSink, bus *eventbus.TypedBus[events.Decision], log logger.Logger) (*Manager, error) {
	if r == nil || eng.Assignment == nil || eng.Routing == nil || eng.Pricing == nil || eng.Maintenance == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewManager")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Manager{
		engines: eng,
		roster:  r,
		metrics: sink,
		bus:     bus,
		logger:  logger.OrNop(log),
		now:     time.Now,
	}, nil
}

// SetLogStore configures the store used to persist decision records.
func (m *Manager) SetLogStore(store logging.LogStore) {
	m.mu.Lock()
	m.store = store
	m.mu.Unlock()
}

// SetDemandBaseline configures where quotes read their demand history. Without
// one, or when it has no data, the roster's history is used.
func (m *Manager) SetDemandBaseline(b DemandBaseline) {
	m.mu.Lock()
	m.baseline = b
	m.mu.Unlock()
}

// Roster returns the store the manager works on.
func (m *Manager) Roster() roster.Store { return m.roster }

func (m *Manager) logStore() logging.LogStore {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store
}

// AssignPending assigns every pending order in one greedy batch and commits
// the result.
func (m *Manager) AssignPending(ctx context.Context) (AssignmentOutcome, error) {
	m.assignMu.Lock()
	defer m.assignMu.Unlock()
	start := m.now()
	if err := ctx.Err(); err != nil {
		return AssignmentOutcome{}, err
	}
	snap := m.roster.Snapshot()
	results, breakdowns := m.engines.Assignment.AssignBatchWithBreakdown(snap.Drivers, snap.Orders)
	out, err := m.commit(results, breakdowns, snap.Orders)
	m.logger.Infof("assigned %d of %d pending orders", len(out.Assignments), len(snap.Orders))
	out.RecordID = m.finish(ctx, decision{
		kind:    events.KindAssignment,
		start:   start,
		drivers: driverIDs(out.Assignments),
		orders:  orderIDs(snap.Orders),
		payload: out,
		err:     err,
	})
	return out, err
}

// AssignOne assigns a single pending order to its best driver.
func (m *Manager) AssignOne(ctx context.Context, orderID string) (AssignmentOutcome, error) {
	m.assignMu.Lock()
	defer m.assignMu.Unlock()
	start := m.now()
	if err := ctx.Err(); err != nil {
		return AssignmentOutcome{}, err
	}
	st, ok := m.roster.Order(orderID)
	var err error
	switch {
	case !ok:
		err = fmt.Errorf("%w: %s", roster.ErrUnknownOrder, orderID)
	case !st.Pending():
		err = fmt.Errorf("%w: %s is assigned to %s", roster.ErrOrderNotPending, orderID, st.DriverID)
	}
	var out AssignmentOutcome
	if err == nil {
		snap := m.roster.Snapshot()
		var (
			results    []model.AssignmentResult
			breakdowns []assignment.ScoreBreakdown
		)
		if r, b, found := m.engines.Assignment.BestDriverWithBreakdown(snap.Drivers, st.Order); found {
			results = append(results, r)
			breakdowns = append(breakdowns, b)
		}
		out, err = m.commit(results, breakdowns, []model.Order{st.Order})
	}
	out.RecordID = m.finish(ctx, decision{
		kind:    events.KindAssignment,
		start:   start,
		drivers: driverIDs(out.Assignments),
		orders:  []string{orderID},
		payload: out,
		err:     err,
	})
	return out, err
}

// commit applies results to the roster and records them. breakdowns pairs
// with results by index; pending is the set of orders the run considered.
func (m *Manager) commit(results []model.AssignmentResult, breakdowns []assignment.ScoreBreakdown, pending []model.Order) (AssignmentOutcome, error) {
	out := AssignmentOutcome{
		Assignments: []model.AssignmentResult{},
		Unassigned:  []string{},
		Breakdowns:  []assignment.ScoreBreakdown{},
	}
	if len(results) > 0 {
		c, err := m.roster.Commit(results)
		if err != nil {
			return out, fmt.Errorf("dispatch: commit assignments: %w", err)
		}
		out.CommitID = c.ID
		out.Assignments = c.Applied
		out.Breakdowns = slices.Clone(breakdowns)
	}
	byOrder := make(map[string]model.AssignmentResult, len(out.Assignments))
	for _, r := range out.Assignments {
		byOrder[r.OrderID] = r
	}
	records := make([]metrics.AssignmentRecord, 0, len(pending))
	for _, o := range pending {
		r, ok := byOrder[o.ID]
		if !ok {
			out.Unassigned = append(out.Unassigned, o.ID)
		}
		records = append(records, metrics.AssignmentRecord{
			OrderID:    o.ID,
			DriverID:   r.DriverID,
			Priority:   o.Priority,
			Score:      r.Score,
			DistanceKm: r.EstimatedDistanceKm,
		})
	}
	if err := m.metrics.RecordAssignments(records); err != nil {
		m.logger.Errorf("assignment metrics error: %v", err)
	}
	return out, nil
}

// PlanRoute orders the committed orders of driverID into a route.
func (m *Manager) PlanRoute(ctx context.Context, driverID string, c model.RouteConstraints) (RouteOutcome, error) {
	start := m.now()
	if err := ctx.Err(); err != nil {
		return RouteOutcome{}, err
	}
	var out RouteOutcome
	var orders []model.Order
	d, ok := m.roster.Driver(driverID)
	err := c.Validate()
	if !ok {
		err = fmt.Errorf("%w: %s", roster.ErrUnknownDriver, driverID)
	}
	if err == nil {
		orders = m.roster.OrdersFor(driverID)
		out.Route = m.engines.Routing.OptimizeForOrders(d, orders, c)
		if rr, ok := m.metrics.(metrics.RouteRecorder); ok {
			if err := rr.RecordRoute(metrics.RouteRecord{
				DriverID:    driverID,
				Stops:       len(out.Route.Stops),
				Unvisited:   len(out.Route.Unvisited),
				DistanceKm:  out.Route.TotalDistanceKm,
				TimeMinutes: out.Route.TotalTimeMinutes,
				FuelCost:    out.Route.EstimatedFuelCost,
			}); err != nil {
				m.logger.Errorf("route metrics error: %v", err)
			}
		}
	}
	out.RecordID = m.finish(ctx, decision{
		kind:    events.KindRoute,
		start:   start,
		drivers: []string{driverID},
		orders:  orderIDs(orders),
		payload: out,
		err:     err,
	})
	return out, err
}

// Quote prices a job. When zone is set, demand counts pending orders in the
// zone and its neighbours, otherwise across the whole roster. The history
// comes from the demand baseline over the same zones when one is configured.
func (m *Manager) Quote(ctx context.Context, f model.PricingFactors, zone spatial.Zone) (QuoteOutcome, error) {
	start := m.now()
	if err := ctx.Err(); err != nil {
		return QuoteOutcome{}, err
	}
	out := QuoteOutcome{Zone: zone}
	err := f.Validate()
	if err == nil {
		var zones []spatial.Zone
		if zone != "" {
			zones = zone.Area()
		}
		pending := m.roster.Demand(zones...)
		out.Demand = pricing.NewDemandSnapshot(pending, m.demandHistory(ctx, zones, start))
		out.Quote = m.engines.Pricing.Quote(f, out.Demand)
		if qr, ok := m.metrics.(metrics.QuoteRecorder); ok {
			if err := qr.RecordQuote(metrics.QuoteRecord{
				WasteType:        f.WasteType,
				Base:             out.Quote.Base,
				DemandMultiplier: out.Quote.DemandMultiplier,
				Final:            out.Quote.Final,
			}); err != nil {
				m.logger.Errorf("quote metrics error: %v", err)
			}
		}
	}
	out.RecordID = m.finish(ctx, decision{
		kind:    events.KindQuote,
		start:   start,
		payload: out,
		err:     err,
	})
	return out, err
}

func (m *Manager) demandHistory(ctx context.Context, zones []spatial.Zone, asOf time.Time) []float64 {
	m.mu.RLock()
	b := m.baseline
	m.mu.RUnlock()
	if b != nil {
		h, err := b.History(ctx, zones, asOf)
		if err != nil {
			m.logger.Warnf("demand history: %v", err)
		}
		if len(h) > 0 {
			return h
		}
	}
	return m.roster.DemandHistory()
}

// MaintenanceSweep evaluates every vehicle of the roster as of asOf, or now
// when asOf is zero.
func (m *Manager) MaintenanceSweep(ctx context.Context, asOf time.Time) (MaintenanceOutcome, error) {
	start := m.now()
	if err := ctx.Err(); err != nil {
		return MaintenanceOutcome{}, err
	}
	if asOf.IsZero() {
		asOf = start
	}
	vehicles := m.roster.Snapshot().Vehicles
	out := MaintenanceOutcome{AsOf: asOf, Alerts: m.engines.Maintenance.GenerateAlerts(vehicles, asOf)}
	if ar, ok := m.metrics.(metrics.AlertRecorder); ok {
		if err := ar.RecordAlerts(out.Alerts); err != nil {
			m.logger.Errorf("alert metrics error: %v", err)
		}
	}
	ids := make([]string, 0, len(out.Alerts))
	for _, a := range out.Alerts {
		ids = append(ids, a.VehicleID)
	}
	m.logger.Infof("maintenance sweep: %d alerts over %d vehicles", len(out.Alerts), len(vehicles))
	out.RecordID = m.finish(ctx, decision{
		kind:     events.KindMaintenance,
		start:    start,
		vehicles: ids,
		payload:  out,
	})
	return out, nil
}

// Decisions queries the decision log.
func (m *Manager) Decisions(ctx context.Context, q logging.LogQuery) ([]logging.DecisionRecord, error) {
	store := m.logStore()
	if store == nil {
		return nil, ErrNoDecisionLog
	}
	return store.Query(ctx, q)
}

// Close releases resources held by the manager.
func (m *Manager) Close() error {
	if m.bus != nil {
		m.bus.Close()
	}
	m.mu.Lock()
	store := m.store
	m.store = nil
	m.mu.Unlock()
	if store != nil {
		return store.Close()
	}
	return nil
}

type decision struct {
	kind     events.Kind
	start    time.Time
	drivers  []string
	orders   []string
	vehicles []string
	payload  any
	err      error
}

// finish appends the decision to the log, publishes it on the bus and reports
// failures to the monitor. It returns the record id.
func (m *Manager) finish(ctx context.Context, d decision) string {
	id := uuid.NewString()
	at := m.now()
	if d.err != nil {
		m.logger.Warnf("%s decision failed: %v", d.kind, d.err)
		coremon.CaptureException(d.err, coremon.Tags{"module": "dispatch_manager", "kind": string(d.kind)})
	}
	if store := m.logStore(); store != nil {
		rec := logging.DecisionRecord{
			ID:         id,
			Timestamp:  at,
			Kind:       d.kind,
			DriverIDs:  d.drivers,
			OrderIDs:   d.orders,
			VehicleIDs: d.vehicles,
		}
		if d.err != nil {
			rec.Error = d.err.Error()
		}
		if raw, err := json.Marshal(d.payload); err == nil {
			rec.Payload = raw
		} else {
			m.logger.Errorf("encode %s decision: %v", d.kind, err)
		}
		if err := store.Append(ctx, rec); err != nil {
			m.logger.Errorf("decision log append: %v", err)
			coremon.CaptureException(err, coremon.Tags{"module": "decision_log"})
		}
	}
	if m.bus != nil {
		subjects := make([]string, 0, len(d.drivers)+len(d.orders)+len(d.vehicles))
		subjects = append(subjects, d.drivers...)
		subjects = append(subjects, d.orders...)
		subjects = append(subjects, d.vehicles...)
		m.bus.Publish(events.Decision{
			Kind:     d.kind,
			RecordID: id,
			At:       at,
			Duration: at.Sub(d.start),
			Subjects: subjects,
			Err:      d.err,
		})
	}
	return id
}

func orderIDs(orders []model.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}

// driverIDs returns the distinct drivers of results in first-seen order.
func driverIDs(results []model.AssignmentResult) []string {
	seen := make(map[string]bool, len(results))
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if !seen[r.DriverID] {
			seen[r.DriverID] = true
			ids = append(ids, r.DriverID)
		}
	}
	return ids
}
