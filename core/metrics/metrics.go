package metrics

import (
	"time"

	"github.com/kilianp07/binfleet/core/model"
)

// AssignmentRecord is the outcome of one order in an assignment run.
// Unassigned orders have an empty DriverID.
type AssignmentRecord struct {
	OrderID    string
	DriverID   string
	Priority   model.Priority
	Score      float64
	DistanceKm float64
}

// Assigned reports whether the order found a driver.
func (r AssignmentRecord) Assigned() bool { return r.DriverID != "" }

// MetricsSink records assignment outcomes for observability purposes.
type MetricsSink interface {
	RecordAssignments(records []AssignmentRecord) error
}

// RouteRecord summarises an optimized route.
type RouteRecord struct {
	DriverID    string
	Stops       int
	Unvisited   int
	DistanceKm  float64
	TimeMinutes float64
	FuelCost    float64
}

// RouteRecorder records optimized routes.
type RouteRecorder interface {
	RecordRoute(rec RouteRecord) error
}

// QuoteRecord captures a priced job.
type QuoteRecord struct {
	WasteType        model.WasteType
	Base             float64
	DemandMultiplier float64
	Final            float64
}

// QuoteRecorder records quotes.
type QuoteRecorder interface {
	RecordQuote(rec QuoteRecord) error
}

// AlertRecorder records the alerts of a maintenance sweep.
type AlertRecorder interface {
	RecordAlerts(alerts []model.MaintenanceAlert) error
}

// DecisionEvent times one manager call.
type DecisionEvent struct {
	Kind     string
	Duration time.Duration
	Failed   bool
}

// DecisionRecorder records decision timings.
type DecisionRecorder interface {
	RecordDecision(ev DecisionEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAssignments([]AssignmentRecord) error  { return nil }
func (NopSink) RecordRoute(RouteRecord) error               { return nil }
func (NopSink) RecordQuote(QuoteRecord) error               { return nil }
func (NopSink) RecordAlerts([]model.MaintenanceAlert) error { return nil }
func (NopSink) RecordDecision(DecisionEvent) error          { return nil }
