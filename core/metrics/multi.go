package metrics

import (
	"errors"

	"github.com/kilianp07/binfleet/core/model"
)

// MultiSink fans records out to multiple sinks. Optional recorders are only
// forwarded to sinks that implement them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAssignments forwards to all sinks and joins their errors.
func (m *MultiSink) RecordAssignments(recs []AssignmentRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordAssignments(recs))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordRoute(rec RouteRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(RouteRecorder); ok {
			errs = append(errs, r.RecordRoute(rec))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordQuote(rec QuoteRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(QuoteRecorder); ok {
			errs = append(errs, r.RecordQuote(rec))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordAlerts(alerts []model.MaintenanceAlert) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(AlertRecorder); ok {
			errs = append(errs, r.RecordAlerts(alerts))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordDecision(ev DecisionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(DecisionRecorder); ok {
			errs = append(errs, r.RecordDecision(ev))
		}
	}
	return errors.Join(errs...)
}
