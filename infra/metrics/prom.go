package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/binfleet/core/metrics"
	"github.com/kilianp07/binfleet/core/model"
)

// PromSink records engine decisions in Prometheus metrics.
type PromSink struct {
	assignments *prometheus.CounterVec
	score       prometheus.Histogram
	routeStops  *prometheus.CounterVec
	routeKm     prometheus.Histogram
	quotes      *prometheus.HistogramVec
	demand      prometheus.Gauge
	alerts      *prometheus.CounterVec
	decisions   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.assignments, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "binfleet_assignments_total",
		Help: "Orders processed by the assignment engine",
	}, []string{"priority", "assigned"})); err != nil {
		return nil, err
	}
	if s.score, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "binfleet_assignment_score",
		Help:    "Score of the winning driver",
		Buckets: prometheus.LinearBuckets(0, 25, 10),
	})); err != nil {
		return nil, err
	}
	if s.routeStops, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "binfleet_route_stops_total",
		Help: "Stops placed on a route or left unvisited",
	}, []string{"state"})); err != nil {
		return nil, err
	}
	if s.routeKm, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "binfleet_route_distance_km",
		Help:    "Total distance of optimized routes",
		Buckets: prometheus.ExponentialBuckets(1, 2, 9),
	})); err != nil {
		return nil, err
	}
	if s.quotes, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "binfleet_quote_price",
		Help:    "Final quoted prices",
		Buckets: prometheus.ExponentialBuckets(10, 2, 10),
	}, []string{"waste_type"})); err != nil {
		return nil, err
	}
	if s.demand, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "binfleet_demand_multiplier",
		Help: "Demand multiplier applied to the last quote",
	})); err != nil {
		return nil, err
	}
	if s.alerts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "binfleet_maintenance_alerts_total",
		Help: "Maintenance alerts raised",
	}, []string{"severity", "trigger"})); err != nil {
		return nil, err
	}
	if s.decisions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "binfleet_decisions_total",
		Help: "Manager calls by engine and outcome",
	}, []string{"kind", "failed"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "binfleet_decision_duration_seconds",
		Help:    "Time spent in a manager call",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, returning the existing collector when an identical
// one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// RecordAssignments counts each order and observes winning scores.
func (s *PromSink) RecordAssignments(recs []coremetrics.AssignmentRecord) error {
	for _, r := range recs {
		s.assignments.WithLabelValues(string(r.Priority), strconv.FormatBool(r.Assigned())).Inc()
		if r.Assigned() {
			s.score.Observe(r.Score)
		}
	}
	return nil
}

// RecordRoute counts visited and unvisited stops.
func (s *PromSink) RecordRoute(r coremetrics.RouteRecord) error {
	s.routeStops.WithLabelValues("visited").Add(float64(r.Stops))
	s.routeStops.WithLabelValues("unvisited").Add(float64(r.Unvisited))
	s.routeKm.Observe(r.DistanceKm)
	return nil
}

// RecordQuote observes the final price.
func (s *PromSink) RecordQuote(q coremetrics.QuoteRecord) error {
	s.quotes.WithLabelValues(string(q.WasteType)).Observe(q.Final)
	s.demand.Set(q.DemandMultiplier)
	return nil
}

// RecordAlerts counts alerts by severity and trigger.
func (s *PromSink) RecordAlerts(alerts []model.MaintenanceAlert) error {
	for _, a := range alerts {
		s.alerts.WithLabelValues(string(a.Severity), string(a.Trigger)).Inc()
	}
	return nil
}

// RecordDecision counts and times a manager call.
func (s *PromSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	s.decisions.WithLabelValues(ev.Kind, strconv.FormatBool(ev.Failed)).Inc()
	s.duration.WithLabelValues(ev.Kind).Observe(ev.Duration.Seconds())
	return nil
}
