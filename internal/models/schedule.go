package models

import (
	"fmt"
	"regexp"
	"time"
)

// Weekday is the closed 7-value day enum used by weekly schedules.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

var weekdayOrder = map[Weekday]int{
	Monday:    0,
	Tuesday:   1,
	Wednesday: 2,
	Thursday:  3,
	Friday:    4,
	Saturday:  5,
	Sunday:    6,
}

// ParseWeekday validates a day string against the enum.
func ParseWeekday(s string) (Weekday, error) {
	day := Weekday(s)
	if _, ok := weekdayOrder[day]; !ok {
		return "", fmt.Errorf("invalid day of week: %q", s)
	}
	return day, nil
}

// Index returns the position of the day within the week, Monday first.
func (d Weekday) Index() int {
	return weekdayOrder[d]
}

// Valid reports whether the value is one of the seven enum members.
func (d Weekday) Valid() bool {
	_, ok := weekdayOrder[d]
	return ok
}

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// ParseMinuteOfDay converts a 24-hour HH:mm string into minutes since midnight.
func ParseMinuteOfDay(s string) (int, error) {
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid time %q: expected 24-hour HH:mm", s)
	}
	var h, min int
	fmt.Sscanf(m[1], "%d", &h)
	fmt.Sscanf(m[2], "%d", &min)
	return h*60 + min, nil
}

// FormatMinuteOfDay renders minutes since midnight as HH:mm. Minutes past the
// end of the day wrap so a slot ending at 24:00 prints as 00:00.
func FormatMinuteOfDay(minute int) string {
	minute %= 24 * 60
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

const (
	// MinClassDuration and MaxClassDuration bound the class duration in minutes.
	MinClassDuration = 10
	MaxClassDuration = 24 * 60
)

// ScheduleItem is one weekly recurring slot owned by a group. The slot length
// is not stored here; it is inherited from the owning class at evaluation time.
type ScheduleItem struct {
	ID          string    `db:"id" json:"id"`
	GroupID     string    `db:"group_id" json:"group_id"`
	DayOfWeek   Weekday   `db:"day_of_week" json:"day_of_week"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StartTime renders the slot start as HH:mm.
func (s ScheduleItem) StartTime() string {
	return FormatMinuteOfDay(s.StartMinute)
}

// SlotInput is a submitted (day, start time) pair before persistence.
type SlotInput struct {
	Day         Weekday
	StartMinute int
}

// WeekMinute anchors the slot on the shared weekly timeline.
func (s SlotInput) WeekMinute() int {
	return s.Day.Index()*24*60 + s.StartMinute
}

// Overlaps reports half-open interval overlap between two slots of the given
// durations on the weekly timeline. Touching endpoints do not overlap.
func (s SlotInput) Overlaps(other SlotInput, duration, otherDuration int) bool {
	if s.Day != other.Day {
		return false
	}
	start1, end1 := s.WeekMinute(), s.WeekMinute()+duration
	start2, end2 := other.WeekMinute(), other.WeekMinute()+otherDuration
	return start1 < end2 && start2 < end1
}

// TimeRange renders the half-open interval covered by the slot.
func (s SlotInput) TimeRange(duration int) string {
	return FormatMinuteOfDay(s.StartMinute) + "-" + FormatMinuteOfDay(s.StartMinute+duration)
}

// ScheduleOverlap is one committed slot matched by a conflict query.
type ScheduleOverlap struct {
	SubjectID   string  `db:"subject_id"`
	SubjectName string  `db:"subject_name"`
	GroupID     string  `db:"group_id"`
	DayOfWeek   Weekday `db:"day_of_week"`
	StartMinute int     `db:"start_minute"`
	EndMinute   int     `db:"end_minute"`
}

// ConflictEntry is one de-duplicated busy slot inside a conflict report.
type ConflictEntry struct {
	Day       Weekday `json:"day"`
	TimeRange string  `json:"time_range"`
}

// ConflictReport aggregates the busy slots of one subject (a teacher or a
// student) that collide with a candidate schedule.
type ConflictReport struct {
	SubjectID   string          `json:"subject_id"`
	SubjectName string          `json:"subject_name"`
	Entries     []ConflictEntry `json:"entries"`
}

// ScheduleConflictError is returned when a candidate schedule collides with
// committed schedules.
type ScheduleConflictError struct {
	Dimension string           `json:"dimension"`
	Message   string           `json:"message"`
	Reports   []ConflictReport `json:"reports"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// ScheduleValidationError describes an internally inconsistent submission.
type ScheduleValidationError struct {
	Message string   `json:"message"`
	Day     Weekday  `json:"day,omitempty"`
	Ranges  []string `json:"ranges,omitempty"`
}

// Error implements the error interface for validation errors.
func (e *ScheduleValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Day != "" && len(e.Ranges) > 0 {
		return fmt.Sprintf("%s: %s %v", e.Message, e.Day, e.Ranges)
	}
	return e.Message
}
