package models

import "time"

// ClassStatus is the operational status of a class.
type ClassStatus string

const (
	StatusPendingTeacherApproval ClassStatus = "PENDING_TEACHER_APPROVAL"
	StatusNotStarted             ClassStatus = "NOT_STARTED"
	StatusActive                 ClassStatus = "ACTIVE"
	StatusPaused                 ClassStatus = "PAUSED"
	StatusFinished               ClassStatus = "FINISHED"
	StatusCanceled               ClassStatus = "CANCELED"
)

// Valid reports whether the value is a known status.
func (s ClassStatus) Valid() bool {
	switch s {
	case StatusPendingTeacherApproval, StatusNotStarted, StatusActive,
		StatusPaused, StatusFinished, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether the status ends the normal life of a class.
// Terminal statuses may only be reversed within the grace period.
func (s ClassStatus) Terminal() bool {
	return s == StatusFinished || s == StatusCanceled
}

// StatusGracePeriod is the window after a terminal status change during which
// reversal to ACTIVE is still permitted.
const StatusGracePeriod = 24 * time.Hour

// statusTransitions is the legal edge set of the class lifecycle.
var statusTransitions = map[ClassStatus][]ClassStatus{
	StatusPendingTeacherApproval: {StatusNotStarted, StatusCanceled},
	StatusNotStarted:             {StatusActive, StatusCanceled},
	StatusActive:                 {StatusPaused, StatusFinished, StatusCanceled},
	StatusPaused:                 {StatusActive, StatusCanceled},
	StatusFinished:               {StatusActive},
	StatusCanceled:               {StatusActive},
}

// AvailableStatuses returns the statuses reachable from the current one.
// A same-state transition is always permitted and is not listed.
func AvailableStatuses(current ClassStatus) []ClassStatus {
	row := statusTransitions[current]
	out := make([]ClassStatus, len(row))
	copy(out, row)
	return out
}

// CanTransition reports whether the lifecycle table allows moving from one
// status to another. Same-state transitions are always allowed.
func CanTransition(from, to ClassStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Class represents a class owned by a tenant. Duration applies to every
// schedule item of every group under the class.
type Class struct {
	ID              string      `db:"id" json:"id"`
	TenantID        string      `db:"tenant_id" json:"tenant_id"`
	TeacherID       string      `db:"teacher_id" json:"teacher_id"`
	Name            string      `db:"name" json:"name"`
	DurationMin     int         `db:"duration_min" json:"duration_min"`
	Status          ClassStatus `db:"status" json:"status"`
	StatusChangedAt time.Time   `db:"status_changed_at" json:"status_changed_at"`
	StartDate       time.Time   `db:"start_date" json:"start_date"`
	EndDate         *time.Time  `db:"end_date" json:"end_date,omitempty"`
	DeletedAt       *time.Time  `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// Group is a named bundle of schedule items under one class.
type Group struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StatusChange is the outcome of a successful lifecycle transition.
type StatusChange struct {
	ClassID   string      `json:"class_id"`
	OldStatus ClassStatus `json:"old_status"`
	NewStatus ClassStatus `json:"new_status"`
	ChangedAt time.Time   `json:"changed_at"`
}
