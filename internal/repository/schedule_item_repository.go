package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/centerdesk/center-api/internal/models"
)

// dayOrderExpr sorts the weekday enum in calendar order rather than
// alphabetically.
const dayOrderExpr = "array_position(ARRAY['MONDAY','TUESDAY','WEDNESDAY','THURSDAY','FRIDAY','SATURDAY','SUNDAY'], day_of_week)"

// ScheduleItemRepository provides persistence for weekly schedule items.
type ScheduleItemRepository struct {
	db *sqlx.DB
}

// NewScheduleItemRepository creates a new schedule item repository.
func NewScheduleItemRepository(db *sqlx.DB) *ScheduleItemRepository {
	return &ScheduleItemRepository{db: db}
}

// ListByGroup returns the committed items of a group ordered by day and time.
func (r *ScheduleItemRepository) ListByGroup(ctx context.Context, groupID string) ([]models.ScheduleItem, error) {
	query := fmt.Sprintf(`SELECT id, group_id, day_of_week, start_minute, created_at, updated_at FROM schedule_items WHERE group_id = $1 ORDER BY %s ASC, start_minute ASC`, dayOrderExpr)
	var items []models.ScheduleItem
	if err := r.db.SelectContext(ctx, &items, query, groupID); err != nil {
		return nil, fmt.Errorf("list schedule items by group: %w", err)
	}
	return items, nil
}

// FindTeacherOverlaps returns every committed slot of the teacher's groups
// that overlaps any candidate slot. All candidates are evaluated in a single
// query. Slot end times derive from the owning class duration.
func (r *ScheduleItemRepository) FindTeacherOverlaps(ctx context.Context, teacherID string, slots []models.SlotInput, duration int, excludeGroupIDs []string) ([]models.ScheduleOverlap, error) {
	if len(slots) == 0 {
		return nil, nil
	}

	args := []interface{}{teacherID}
	query := `SELECT t.id AS subject_id, t.full_name AS subject_name, si.group_id, si.day_of_week, si.start_minute, si.start_minute + c.duration_min AS end_minute
FROM schedule_items si
JOIN groups g ON g.id = si.group_id
JOIN classes c ON c.id = g.class_id AND c.deleted_at IS NULL AND c.status NOT IN ('FINISHED', 'CANCELED')
JOIN teachers t ON t.id = c.teacher_id
WHERE c.teacher_id = $1`

	query, args = appendGroupExclusion(query, args, excludeGroupIDs)
	query, args = appendSlotPredicates(query, args, slots, duration)

	var overlaps []models.ScheduleOverlap
	if err := r.db.SelectContext(ctx, &overlaps, query, args...); err != nil {
		return nil, fmt.Errorf("find teacher overlaps: %w", err)
	}
	return overlaps, nil
}

// FindStudentOverlaps returns every committed slot of groups the given
// students are actively enrolled in that overlaps any candidate slot. One row
// per (student, slot) match; shaping into per-student reports happens upstream.
func (r *ScheduleItemRepository) FindStudentOverlaps(ctx context.Context, studentIDs []string, slots []models.SlotInput, duration int, excludeGroupIDs []string) ([]models.ScheduleOverlap, error) {
	if len(studentIDs) == 0 || len(slots) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(studentIDs))
	args := make([]interface{}, 0, len(studentIDs)+len(excludeGroupIDs)+len(slots)*3)
	for i, id := range studentIDs {
		placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
		args = append(args, id)
	}

	query := fmt.Sprintf(`SELECT s.id AS subject_id, s.full_name AS subject_name, si.group_id, si.day_of_week, si.start_minute, si.start_minute + c.duration_min AS end_minute
FROM schedule_items si
JOIN groups g ON g.id = si.group_id
JOIN classes c ON c.id = g.class_id AND c.deleted_at IS NULL AND c.status NOT IN ('FINISHED', 'CANCELED')
JOIN group_students gs ON gs.group_id = g.id AND gs.active = TRUE
JOIN students s ON s.id = gs.student_id
WHERE gs.student_id IN (%s)`, strings.Join(placeholders, ", "))

	query, args = appendGroupExclusion(query, args, excludeGroupIDs)
	query, args = appendSlotPredicates(query, args, slots, duration)

	var overlaps []models.ScheduleOverlap
	if err := r.db.SelectContext(ctx, &overlaps, query, args...); err != nil {
		return nil, fmt.Errorf("find student overlaps: %w", err)
	}
	return overlaps, nil
}

func appendGroupExclusion(query string, args []interface{}, excludeGroupIDs []string) (string, []interface{}) {
	if len(excludeGroupIDs) == 0 {
		return query, args
	}
	placeholders := make([]string, len(excludeGroupIDs))
	for i, id := range excludeGroupIDs {
		placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
		args = append(args, id)
	}
	return query + fmt.Sprintf(" AND si.group_id NOT IN (%s)", strings.Join(placeholders, ", ")), args
}

// appendSlotPredicates adds one half-open overlap predicate per candidate
// slot, OR'd together, so the whole candidate set is matched in one round trip.
func appendSlotPredicates(query string, args []interface{}, slots []models.SlotInput, duration int) (string, []interface{}) {
	predicates := make([]string, len(slots))
	for i, slot := range slots {
		predicates[i] = fmt.Sprintf("(si.day_of_week = $%d AND si.start_minute < $%d AND si.start_minute + c.duration_min > $%d)",
			len(args)+1, len(args)+2, len(args)+3)
		args = append(args, string(slot.Day), slot.StartMinute+duration, slot.StartMinute)
	}
	return query + " AND (" + strings.Join(predicates, " OR ") + ")", args
}

// ReplaceForGroup atomically swaps the group's schedule: existing items are
// deleted and the new set inserted inside one transaction.
func (r *ScheduleItemRepository) ReplaceForGroup(ctx context.Context, groupID string, slots []models.SlotInput) ([]models.ScheduleItem, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace group schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM schedule_items WHERE group_id = $1`, groupID); err != nil {
		return nil, fmt.Errorf("delete group schedule: %w", err)
	}

	now := time.Now().UTC()
	items := make([]models.ScheduleItem, 0, len(slots))
	for _, slot := range slots {
		item := models.ScheduleItem{
			ID:          uuid.NewString(),
			GroupID:     groupID,
			DayOfWeek:   slot.Day,
			StartMinute: slot.StartMinute,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO schedule_items (id, group_id, day_of_week, start_minute, created_at, updated_at) VALUES (:id, :group_id, :day_of_week, :start_minute, :created_at, :updated_at)`, &item); err != nil {
			return nil, fmt.Errorf("insert schedule item: %w", err)
		}
		items = append(items, item)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace group schedule: %w", err)
	}
	return items, nil
}
