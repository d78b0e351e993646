package events

import "time"

// Kind names the engine behind a decision.
type Kind string

const (
	KindAssignment  Kind = "assignment"
	KindRoute       Kind = "route"
	KindQuote       Kind = "quote"
	KindMaintenance Kind = "maintenance"
)

// Decision is published after each manager call, successful or not.
type Decision struct {
	Kind     Kind
	RecordID string
	At       time.Time
	Duration time.Duration
	// Subjects are the driver, order or vehicle ids the decision is about.
	Subjects []string
	Err      error
}
