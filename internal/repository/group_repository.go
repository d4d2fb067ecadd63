package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/centerdesk/center-api/internal/models"
)

// GroupRepository provides persistence for groups and their enrollment.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// FindByID loads a group by id.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, class_id, name, created_at, updated_at FROM groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListIDsByClass returns the ids of every group under a class.
func (r *GroupRepository) ListIDsByClass(ctx context.Context, classID string) ([]string, error) {
	const query = `SELECT id FROM groups WHERE class_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, classID); err != nil {
		return nil, fmt.Errorf("list group ids by class: %w", err)
	}
	return ids, nil
}

// ListStudentIDs returns the actively enrolled students of a group.
func (r *GroupRepository) ListStudentIDs(ctx context.Context, groupID string) ([]string, error) {
	const query = `SELECT student_id FROM group_students WHERE group_id = $1 AND active = TRUE`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, groupID); err != nil {
		return nil, fmt.Errorf("list group students: %w", err)
	}
	return ids, nil
}

// ListStudentIDsByClass returns the distinct students actively enrolled in
// any group of a class.
func (r *GroupRepository) ListStudentIDsByClass(ctx context.Context, classID string) ([]string, error) {
	const query = `SELECT DISTINCT gs.student_id FROM group_students gs JOIN groups g ON g.id = gs.group_id WHERE g.class_id = $1 AND gs.active = TRUE`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, classID); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return ids, nil
}
