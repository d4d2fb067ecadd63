package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/centerdesk/center-api/internal/models"
	appErrors "github.com/centerdesk/center-api/pkg/errors"
	"github.com/centerdesk/center-api/pkg/events"
)

type scheduleItemRepository interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.ScheduleItem, error)
	ReplaceForGroup(ctx context.Context, groupID string, slots []models.SlotInput) ([]models.ScheduleItem, error)
}

type groupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	ListIDsByClass(ctx context.Context, classID string) ([]string, error)
	ListStudentIDs(ctx context.Context, groupID string) ([]string, error)
	ListStudentIDsByClass(ctx context.Context, classID string) ([]string, error)
}

type classScheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	UpdateDuration(ctx context.Context, id string, minutes int) error
}

type conflictChecker interface {
	FindTeacherConflicts(ctx context.Context, teacherID string, slots []models.SlotInput, duration int, excludeGroupIDs []string) (*models.ConflictReport, error)
	FindStudentConflicts(ctx context.Context, studentIDs []string, slots []models.SlotInput, duration int, excludeGroupIDs []string) ([]models.ConflictReport, error)
}

// ReplaceGroupScheduleRequest is the payload for swapping a group's schedule.
type ReplaceGroupScheduleRequest struct {
	Items       []SlotRequest `json:"items" validate:"required,min=1,dive"`
	SkipWarning bool          `json:"skip_warning"`
}

// ChangeClassDurationRequest updates the class-wide slot duration.
type ChangeClassDurationRequest struct {
	DurationMin int  `json:"duration_min" validate:"required"`
	SkipWarning bool `json:"skip_warning"`
}

// CheckConflictsRequest probes the committed store for overlaps without
// mutating anything. Exactly one subject kind must be set.
type CheckConflictsRequest struct {
	TeacherID       string        `json:"teacher_id"`
	StudentIDs      []string      `json:"student_ids"`
	Items           []SlotRequest `json:"items" validate:"required,min=1,dive"`
	DurationMin     int           `json:"duration_min" validate:"required"`
	ExcludeGroupIDs []string      `json:"exclude_group_ids"`
}

// CheckConflictsResult bundles the reports of a read-only conflict probe.
type CheckConflictsResult struct {
	Teacher  *models.ConflictReport  `json:"teacher,omitempty"`
	Students []models.ConflictReport `json:"students,omitempty"`
}

// ScheduleService sequences validation, conflict checks and atomic schedule
// replacement. Teacher conflicts are always fatal; student conflicts can be
// skipped explicitly by the caller.
type ScheduleService struct {
	items           scheduleItemRepository
	groups          groupReader
	classes         classScheduleReader
	conflicts       conflictChecker
	publisher       events.Publisher
	validator       *validator.Validate
	logger          *zap.Logger
	advisoryEnabled bool
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(items scheduleItemRepository, groups groupReader, classes classScheduleReader, conflicts conflictChecker, publisher events.Publisher, validate *validator.Validate, logger *zap.Logger, advisoryEnabled bool) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		items:           items,
		groups:          groups,
		classes:         classes,
		conflicts:       conflicts,
		publisher:       publisher,
		validator:       validate,
		logger:          logger,
		advisoryEnabled: advisoryEnabled,
	}
}

// GetGroupSchedule returns the committed items of a group.
func (s *ScheduleService) GetGroupSchedule(ctx context.Context, groupID string) ([]models.ScheduleItem, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	items, err := s.items.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group schedule")
	}
	return items, nil
}

// ValidateSchedule checks a candidate slot set for structural correctness and
// internal overlap, without touching the committed store.
func (s *ScheduleService) ValidateSchedule(items []SlotRequest, duration int) error {
	slots, err := ParseSlots(items)
	if err != nil {
		return err
	}
	return ValidateSchedule(slots, duration)
}

// CheckConflicts runs a read-only conflict probe for a teacher or a set of
// students.
func (s *ScheduleService) CheckConflicts(ctx context.Context, req CheckConflictsRequest) (*CheckConflictsResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	if req.TeacherID == "" && len(req.StudentIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "either teacher_id or student_ids must be provided")
	}

	slots, err := ParseSlots(req.Items)
	if err != nil {
		return nil, err
	}
	if err := ValidateDuration(req.DurationMin); err != nil {
		return nil, err
	}

	result := &CheckConflictsResult{}
	if req.TeacherID != "" {
		report, err := s.conflicts.FindTeacherConflicts(ctx, req.TeacherID, slots, req.DurationMin, req.ExcludeGroupIDs)
		if err != nil {
			return nil, err
		}
		result.Teacher = report
	}
	if len(req.StudentIDs) > 0 {
		reports, err := s.conflicts.FindStudentConflicts(ctx, req.StudentIDs, slots, req.DurationMin, req.ExcludeGroupIDs)
		if err != nil {
			return nil, err
		}
		result.Students = reports
	}
	return result, nil
}

// ReplaceGroupSchedule validates the candidate set, checks teacher and
// student conflicts, then atomically swaps the group's items. The group being
// updated is excluded from conflict checks so it never collides with its own
// prior schedule.
func (s *ScheduleService) ReplaceGroupSchedule(ctx context.Context, groupID string, req ReplaceGroupScheduleRequest) ([]models.ScheduleItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	class, err := s.classes.FindByID(ctx, group.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	slots, err := ParseSlots(req.Items)
	if err != nil {
		return nil, err
	}
	if err := ValidateSchedule(slots, class.DurationMin); err != nil {
		return nil, err
	}

	exclude := []string{groupID}
	if err := s.checkTeacherConflicts(ctx, class.TeacherID, slots, class.DurationMin, exclude); err != nil {
		return nil, err
	}

	studentIDs, err := s.groups.ListStudentIDs(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group students")
	}
	if err := s.checkStudentConflicts(ctx, studentIDs, slots, class.DurationMin, exclude, req.SkipWarning, groupID, class.ID); err != nil {
		return nil, err
	}

	items, err := s.items.ReplaceForGroup(ctx, groupID, slots)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace group schedule")
	}
	return items, nil
}

// ChangeClassDuration re-validates every group's committed schedule under the
// new duration, checks conflicts for the teacher and all enrolled students
// with all of the class's groups excluded, then persists the duration.
func (s *ScheduleService) ChangeClassDuration(ctx context.Context, classID string, req ChangeClassDurationRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid duration payload")
	}
	if err := ValidateDuration(req.DurationMin); err != nil {
		return nil, err
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	groupIDs, err := s.groups.ListIDsByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class groups")
	}

	var owned []groupSlot
	var allSlots []models.SlotInput
	for _, groupID := range groupIDs {
		items, err := s.items.ListByGroup(ctx, groupID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group schedule")
		}
		slots := make([]models.SlotInput, 0, len(items))
		for _, item := range items {
			slots = append(slots, models.SlotInput{Day: item.DayOfWeek, StartMinute: item.StartMinute})
		}
		// each group's own set must stay self-consistent under the new length
		if err := ValidateSchedule(slots, req.DurationMin); err != nil {
			return nil, err
		}
		for _, slot := range slots {
			owned = append(owned, groupSlot{groupID: groupID, slot: slot})
		}
		allSlots = append(allSlots, slots...)
	}

	// slots of two sibling groups share the teacher, so they must not collide
	// with each other either; the committed-store check below cannot catch
	// this because all of the class's groups are excluded from it
	if err := checkCrossGroupOverlap(owned, req.DurationMin, class.TeacherID); err != nil {
		return nil, err
	}

	if len(allSlots) > 0 {
		if err := s.checkTeacherConflicts(ctx, class.TeacherID, allSlots, req.DurationMin, groupIDs); err != nil {
			return nil, err
		}

		studentIDs, err := s.groups.ListStudentIDsByClass(ctx, classID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class students")
		}
		if err := s.checkStudentConflicts(ctx, studentIDs, allSlots, req.DurationMin, groupIDs, req.SkipWarning, "", classID); err != nil {
			return nil, err
		}
	}

	if err := s.classes.UpdateDuration(ctx, classID, req.DurationMin); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class duration")
	}
	class.DurationMin = req.DurationMin
	return class, nil
}

func (s *ScheduleService) checkTeacherConflicts(ctx context.Context, teacherID string, slots []models.SlotInput, duration int, excludeGroupIDs []string) error {
	report, err := s.conflicts.FindTeacherConflicts(ctx, teacherID, slots, duration, excludeGroupIDs)
	if err != nil {
		return err
	}
	if report == nil {
		return nil
	}
	conflictErr := &models.ScheduleConflictError{
		Dimension: "TEACHER",
		Message:   "teacher already booked in overlapping slots",
		Reports:   []models.ConflictReport{*report},
	}
	return appErrors.Wrap(conflictErr, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, conflictErr.Message)
}

func (s *ScheduleService) checkStudentConflicts(ctx context.Context, studentIDs []string, slots []models.SlotInput, duration int, excludeGroupIDs []string, skipWarning bool, groupID, classID string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	reports, err := s.conflicts.FindStudentConflicts(ctx, studentIDs, slots, duration, excludeGroupIDs)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		return nil
	}
	if skipWarning {
		s.publishAdvisory(ctx, groupID, classID, reports)
		return nil
	}
	conflictErr := &models.ScheduleConflictError{
		Dimension: "STUDENT",
		Message:   "students already booked in overlapping slots",
		Reports:   reports,
	}
	return appErrors.Wrap(conflictErr, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, conflictErr.Message)
}

// groupSlot is a schedule slot tagged with the group that owns it.
type groupSlot struct {
	groupID string
	slot    models.SlotInput
}

// checkCrossGroupOverlap rejects a duration under which slots of two
// different groups of the same class would overlap. With a uniform duration
// any overlapping pair implies an overlapping adjacent pair in week order, so
// one sorted sweep suffices.
func checkCrossGroupOverlap(slots []groupSlot, duration int, teacherID string) error {
	sorted := make([]groupSlot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].slot.WeekMinute() < sorted[j].slot.WeekMinute()
	})

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.groupID == cur.groupID {
			// same-group overlap is already ruled out per group
			continue
		}
		if !prev.slot.Overlaps(cur.slot, duration, duration) {
			continue
		}
		conflictErr := &models.ScheduleConflictError{
			Dimension: "TEACHER",
			Message:   "groups of this class would overlap under the new duration",
			Reports: []models.ConflictReport{{
				SubjectID: teacherID,
				Entries: []models.ConflictEntry{
					{Day: prev.slot.Day, TimeRange: prev.slot.TimeRange(duration)},
					{Day: cur.slot.Day, TimeRange: cur.slot.TimeRange(duration)},
				},
			}},
		}
		return appErrors.Wrap(conflictErr, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, conflictErr.Message)
	}
	return nil
}

// publishAdvisory records skipped student conflicts on the event channel.
// Failures are logged and never surface to the caller.
func (s *ScheduleService) publishAdvisory(ctx context.Context, groupID, classID string, reports []models.ConflictReport) {
	if !s.advisoryEnabled || s.publisher == nil {
		return
	}
	event := models.ConflictAdvisoryEvent{
		GroupID:    groupID,
		ClassID:    classID,
		Reports:    reports,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, models.EventScheduleConflictAdvisory, event); err != nil {
		s.logger.Sugar().Warnw("failed to publish conflict advisory", "group_id", groupID, "class_id", classID, "error", err)
	}
}
