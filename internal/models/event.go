package models

import "time"

// Event types published on the outbound channel.
const (
	EventClassStatusChanged       = "class.status_changed"
	EventScheduleConflictAdvisory = "schedule.conflict_advisory"
)

// StatusChangedEvent is published after every successful status transition,
// manual or automatic.
type StatusChangedEvent struct {
	ClassID    string      `json:"class_id"`
	TenantID   string      `json:"tenant_id"`
	OldStatus  ClassStatus `json:"old_status"`
	NewStatus  ClassStatus `json:"new_status"`
	Reason     string      `json:"reason,omitempty"`
	Actor      string      `json:"actor,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// ConflictAdvisoryEvent is published when student conflicts were detected but
// explicitly skipped by the caller. It is informational only.
type ConflictAdvisoryEvent struct {
	GroupID    string           `json:"group_id,omitempty"`
	ClassID    string           `json:"class_id,omitempty"`
	Reports    []ConflictReport `json:"reports"`
	OccurredAt time.Time        `json:"occurred_at"`
}
