// Package logging keeps an append-only log of engine decisions so operators
// can see why an order went to a driver, how a route was built or how a
// quote was priced.
package logging

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/kilianp07/binfleet/core/events"
)

// DecisionRecord captures one engine decision. Payload holds the engine
// output as JSON.
type DecisionRecord struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Kind       events.Kind     `json:"kind"`
	DriverIDs  []string        `json:"driver_ids,omitempty"`
	OrderIDs   []string        `json:"order_ids,omitempty"`
	VehicleIDs []string        `json:"vehicle_ids,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Mentions reports whether id is one of the record's subjects.
func (r DecisionRecord) Mentions(id string) bool {
	return slices.Contains(r.DriverIDs, id) || slices.Contains(r.OrderIDs, id) || slices.Contains(r.VehicleIDs, id)
}

// LogQuery defines filters for retrieving records. Zero fields match everything.
type LogQuery struct {
	Start     time.Time
	End       time.Time
	Kind      events.Kind
	SubjectID string
	// Limit keeps only the most recent records when positive.
	Limit int
}

// Matches reports whether r passes every filter except Limit.
func (q LogQuery) Matches(r DecisionRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.SubjectID != "" && !r.Mentions(q.SubjectID) {
		return false
	}
	return true
}

// finish orders matching records by time and applies the limit.
func (q LogQuery) finish(res []DecisionRecord) []DecisionRecord {
	slices.SortStableFunc(res, func(a, b DecisionRecord) int { return a.Timestamp.Compare(b.Timestamp) })
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[len(res)-q.Limit:]
	}
	return res
}

// LogStore persists DecisionRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec DecisionRecord) error
	Query(ctx context.Context, q LogQuery) ([]DecisionRecord, error)
	Close() error
}
