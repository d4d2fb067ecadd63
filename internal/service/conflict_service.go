package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/centerdesk/center-api/internal/models"
	appErrors "github.com/centerdesk/center-api/pkg/errors"
)

type overlapStore interface {
	FindTeacherOverlaps(ctx context.Context, teacherID string, slots []models.SlotInput, duration int, excludeGroupIDs []string) ([]models.ScheduleOverlap, error)
	FindStudentOverlaps(ctx context.Context, studentIDs []string, slots []models.SlotInput, duration int, excludeGroupIDs []string) ([]models.ScheduleOverlap, error)
}

// ConflictService answers whether a candidate weekly schedule collides with
// committed schedules for a teacher or a set of students.
type ConflictService struct {
	store   overlapStore
	metrics *MetricsService
	logger  *zap.Logger
}

// NewConflictService instantiates ConflictService.
func NewConflictService(store overlapStore, metrics *MetricsService, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{store: store, metrics: metrics, logger: logger}
}

// FindTeacherConflicts returns a single aggregated report for the teacher, or
// nil when the candidate set is clean.
func (s *ConflictService) FindTeacherConflicts(ctx context.Context, teacherID string, slots []models.SlotInput, duration int, excludeGroupIDs []string) (*models.ConflictReport, error) {
	overlaps, err := s.store.FindTeacherOverlaps(ctx, teacherID, slots, duration, excludeGroupIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher conflicts")
	}
	s.metrics.ObserveConflictCheck("teacher", len(overlaps) > 0)

	reports := buildReports(overlaps)
	if len(reports) == 0 {
		return nil, nil
	}
	return &reports[0], nil
}

// FindStudentConflicts returns one report per student with at least one
// conflict; students without conflicts are omitted.
func (s *ConflictService) FindStudentConflicts(ctx context.Context, studentIDs []string, slots []models.SlotInput, duration int, excludeGroupIDs []string) ([]models.ConflictReport, error) {
	overlaps, err := s.store.FindStudentOverlaps(ctx, studentIDs, slots, duration, excludeGroupIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student conflicts")
	}
	s.metrics.ObserveConflictCheck("student", len(overlaps) > 0)

	return buildReports(overlaps), nil
}

// buildReports shapes raw overlap rows into per-subject reports, entries
// de-duplicated by (day, time range) and sorted by day then start time.
func buildReports(overlaps []models.ScheduleOverlap) []models.ConflictReport {
	if len(overlaps) == 0 {
		return nil
	}

	type entryKey struct {
		day       models.Weekday
		timeRange string
	}
	type sortableEntry struct {
		entry       models.ConflictEntry
		startMinute int
	}

	names := make(map[string]string)
	seen := make(map[string]map[entryKey]struct{})
	entries := make(map[string][]sortableEntry)
	var order []string

	for _, o := range overlaps {
		timeRange := models.FormatMinuteOfDay(o.StartMinute) + "-" + models.FormatMinuteOfDay(o.EndMinute)
		key := entryKey{day: o.DayOfWeek, timeRange: timeRange}

		if _, ok := seen[o.SubjectID]; !ok {
			seen[o.SubjectID] = make(map[entryKey]struct{})
			order = append(order, o.SubjectID)
			names[o.SubjectID] = o.SubjectName
		}
		if _, dup := seen[o.SubjectID][key]; dup {
			continue
		}
		seen[o.SubjectID][key] = struct{}{}
		entries[o.SubjectID] = append(entries[o.SubjectID], sortableEntry{
			entry:       models.ConflictEntry{Day: o.DayOfWeek, TimeRange: timeRange},
			startMinute: o.StartMinute,
		})
	}

	reports := make([]models.ConflictReport, 0, len(order))
	for _, subjectID := range order {
		subject := entries[subjectID]
		sort.Slice(subject, func(i, j int) bool {
			if subject[i].entry.Day != subject[j].entry.Day {
				return subject[i].entry.Day.Index() < subject[j].entry.Day.Index()
			}
			return subject[i].startMinute < subject[j].startMinute
		})
		report := models.ConflictReport{SubjectID: subjectID, SubjectName: names[subjectID]}
		for _, e := range subject {
			report.Entries = append(report.Entries, e.entry)
		}
		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].SubjectID < reports[j].SubjectID })
	return reports
}
