package service

import (
	"fmt"
	"sort"

	"github.com/centerdesk/center-api/internal/models"
	appErrors "github.com/centerdesk/center-api/pkg/errors"
)

// SlotRequest is the wire form of one weekly slot.
type SlotRequest struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
}

// ParseSlots converts wire slots into validated domain slots. Enum and format
// errors fail here, before any overlap checking runs.
func ParseSlots(items []SlotRequest) ([]models.SlotInput, error) {
	slots := make([]models.SlotInput, 0, len(items))
	for i, item := range items {
		day, err := models.ParseWeekday(item.Day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("item %d: %v", i, err))
		}
		minute, err := models.ParseMinuteOfDay(item.StartTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("item %d: %v", i, err))
		}
		slots = append(slots, models.SlotInput{Day: day, StartMinute: minute})
	}
	return slots, nil
}

// ValidateDuration checks the class duration bounds.
func ValidateDuration(minutes int) error {
	if minutes < models.MinClassDuration || minutes > models.MaxClassDuration {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("duration must be between %d and %d minutes, got %d", models.MinClassDuration, models.MaxClassDuration, minutes))
	}
	return nil
}

// ValidateSchedule checks a submitted slot set for internal consistency: with
// the given duration, no two same-day intervals may overlap. Intervals are
// half-open, so a slot ending exactly when another starts is fine.
func ValidateSchedule(slots []models.SlotInput, duration int) error {
	if err := ValidateDuration(duration); err != nil {
		return err
	}

	sorted := make([]models.SlotInput, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].WeekMinute() < sorted[j].WeekMinute()
	})

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Overlaps(cur, duration, duration) {
			vErr := &models.ScheduleValidationError{
				Message: "schedule items overlap",
				Day:     cur.Day,
				Ranges:  []string{prev.TimeRange(duration), cur.TimeRange(duration)},
			}
			return appErrors.Wrap(vErr, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, vErr.Error())
		}
	}
	return nil
}
