package models

import "time"

// ExecutionStatus defines the states of one node execution for one contact.
// Transitions are monotonic: pending -> running -> {completed|failed|skipped}.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusSkipped   ExecutionStatus = "skipped"
)

// Terminal reports whether no further transition is allowed from s.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusSkipped
}

// CanTransition reports whether moving from s to next respects the monotonic
// transition rule. A failed entry may spawn a new pending retry entry, but an
// existing entry never flips backwards in place.
func (s ExecutionStatus) CanTransition(next ExecutionStatus) bool {
	switch s {
	case ExecutionStatusPending:
		return next == ExecutionStatusRunning || next == ExecutionStatusFailed || next == ExecutionStatusSkipped
	case ExecutionStatusRunning:
		return next.Terminal()
	default:
		return false
	}
}

// ExecutionLog is the audit record of one node's execution for one contact
// inside one flow run. NodeID is nil for the run-level summary entry. Entries
// are created when a node is scheduled, mutated only by the worker executing
// that node, and never deleted.
type ExecutionLog struct {
	ID            string          `json:"id"`
	AutomationID  string          `json:"automation_id" validate:"required"`
	ContactID     string          `json:"contact_id"    validate:"required"`
	OpportunityID *string         `json:"opportunity_id,omitempty"`
	NodeID        *string         `json:"node_id,omitempty"`
	Status        ExecutionStatus `json:"status"`
	Message       string          `json:"message,omitempty"`
	Context       map[string]any  `json:"context,omitempty"`
	Result        map[string]any  `json:"result,omitempty"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
