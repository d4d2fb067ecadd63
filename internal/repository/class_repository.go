package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/centerdesk/center-api/internal/models"
)

const classColumns = "id, tenant_id, teacher_id, name, duration_min, status, status_changed_at, start_date, end_date, deleted_at, created_at, updated_at"

// ClassRepository provides persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID loads a class by id, excluding soft-deleted rows.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE id = $1 AND deleted_at IS NULL`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// UpdateStatus persists a lifecycle transition and stamps status_changed_at.
func (r *ClassRepository) UpdateStatus(ctx context.Context, id string, status models.ClassStatus, changedAt time.Time) error {
	const query = `UPDATE classes SET status = $2, status_changed_at = $3, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, string(status), changedAt); err != nil {
		return fmt.Errorf("update class status: %w", err)
	}
	return nil
}

// UpdateDuration persists a class-wide duration change.
func (r *ClassRepository) UpdateDuration(ctx context.Context, id string, minutes int) error {
	const query = `UPDATE classes SET duration_min = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, minutes, time.Now().UTC()); err != nil {
		return fmt.Errorf("update class duration: %w", err)
	}
	return nil
}

// ListAutoStartable returns NOT_STARTED classes of a tenant whose start date
// has been reached in the given tenant-local reference time.
func (r *ClassRepository) ListAutoStartable(ctx context.Context, tenantID string, localNow time.Time) ([]models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE tenant_id = $1 AND deleted_at IS NULL AND status = $2 AND start_date <= $3`, classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, tenantID, string(models.StatusNotStarted), localNow); err != nil {
		return nil, fmt.Errorf("list auto-startable classes: %w", err)
	}
	return classes, nil
}

// ListAutoFinishable returns ACTIVE or PAUSED classes of a tenant whose end
// date has passed in the given tenant-local reference time.
func (r *ClassRepository) ListAutoFinishable(ctx context.Context, tenantID string, localNow time.Time) ([]models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE tenant_id = $1 AND deleted_at IS NULL AND status IN ($2, $3) AND end_date IS NOT NULL AND end_date <= $4`, classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, tenantID, string(models.StatusActive), string(models.StatusPaused), localNow); err != nil {
		return nil, fmt.Errorf("list auto-finishable classes: %w", err)
	}
	return classes, nil
}

// BatchUpdateStatus moves a set of classes to the target status in one
// statement.
func (r *ClassRepository) BatchUpdateStatus(ctx context.Context, ids []string, status models.ClassStatus, changedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := []interface{}{string(status), changedAt}
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
		args = append(args, id)
	}
	query := fmt.Sprintf(`UPDATE classes SET status = $1, status_changed_at = $2, updated_at = $2 WHERE id IN (%s)`, strings.Join(placeholders, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("batch update class status: %w", err)
	}
	return nil
}
