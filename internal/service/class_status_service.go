package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/centerdesk/center-api/internal/models"
	appErrors "github.com/centerdesk/center-api/pkg/errors"
	"github.com/centerdesk/center-api/pkg/events"
)

type classStatusRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	UpdateStatus(ctx context.Context, id string, status models.ClassStatus, changedAt time.Time) error
}

// ChangeStatusRequest is the payload for a manual lifecycle transition.
type ChangeStatusRequest struct {
	Status models.ClassStatus `json:"status" validate:"required"`
	Reason string             `json:"reason"`
}

// BulkChangeStatusRequest applies transitions to many classes best-effort.
type BulkChangeStatusRequest struct {
	Items []BulkChangeStatusItem `json:"items" validate:"required,min=1,dive"`
}

// BulkChangeStatusItem is one entry of a bulk transition.
type BulkChangeStatusItem struct {
	ClassID string             `json:"class_id" validate:"required"`
	Status  models.ClassStatus `json:"status" validate:"required"`
	Reason  string             `json:"reason"`
}

// ClassStatusService drives the class lifecycle state machine.
type ClassStatusService struct {
	classes   classStatusRepository
	publisher events.Publisher
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewClassStatusService instantiates ClassStatusService.
func NewClassStatusService(classes classStatusRepository, publisher events.Publisher, validate *validator.Validate, logger *zap.Logger) *ClassStatusService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassStatusService{
		classes:   classes,
		publisher: publisher,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AvailableStatuses returns the transitions legal from the class's current
// status.
func (s *ClassStatusService) AvailableStatuses(ctx context.Context, classID string) ([]models.ClassStatus, error) {
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	return models.AvailableStatuses(class.Status), nil
}

// ChangeStatus applies a manual transition. Reversal out of a terminal status
// is only honoured within the grace period after the status last changed.
func (s *ClassStatusService) ChangeStatus(ctx context.Context, classID string, req ChangeStatusRequest, actor string) (*models.StatusChange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}

	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	// same-state transitions are permitted no-ops; nothing persists and no
	// event fires, so the grace window is not extended
	if class.Status == req.Status {
		return &models.StatusChange{
			ClassID:   class.ID,
			OldStatus: class.Status,
			NewStatus: class.Status,
			ChangedAt: class.StatusChangedAt,
		}, nil
	}

	if !models.CanTransition(class.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s; allowed: %v", class.Status, req.Status, models.AvailableStatuses(class.Status)))
	}

	now := s.now()
	if class.Status.Terminal() && req.Status == models.StatusActive {
		if now.Sub(class.StatusChangedAt) >= models.StatusGracePeriod {
			return nil, appErrors.Clone(appErrors.ErrGracePeriodExpired,
				fmt.Sprintf("class left %s more than %s ago and can no longer be reactivated", class.Status, models.StatusGracePeriod))
		}
	}

	if err := s.classes.UpdateStatus(ctx, class.ID, req.Status, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class status")
	}

	s.publishStatusChanged(ctx, class, req.Status, req.Reason, actor, now)

	return &models.StatusChange{
		ClassID:   class.ID,
		OldStatus: class.Status,
		NewStatus: req.Status,
		ChangedAt: now,
	}, nil
}

// BulkChangeStatus processes every item independently and reports successes
// and failures together. It never aborts on the first error.
func (s *ClassStatusService) BulkChangeStatus(ctx context.Context, req BulkChangeStatusRequest, actor string) ([]models.BulkItemResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk status payload")
	}

	results := make([]models.BulkItemResult, 0, len(req.Items))
	for _, item := range req.Items {
		_, err := s.ChangeStatus(ctx, item.ClassID, ChangeStatusRequest{Status: item.Status, Reason: item.Reason}, actor)
		result := models.BulkItemResult{ID: item.ClassID, OK: err == nil}
		if err != nil {
			result.Error = appErrors.FromError(err).Message
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *ClassStatusService) loadClass(ctx context.Context, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// publishStatusChanged emits the status-changed event. The transition is
// already committed; publish failures are logged, not returned.
func (s *ClassStatusService) publishStatusChanged(ctx context.Context, class *models.Class, newStatus models.ClassStatus, reason, actor string, at time.Time) {
	if s.publisher == nil {
		return
	}
	event := models.StatusChangedEvent{
		ClassID:    class.ID,
		TenantID:   class.TenantID,
		OldStatus:  class.Status,
		NewStatus:  newStatus,
		Reason:     reason,
		Actor:      actor,
		OccurredAt: at,
	}
	if err := s.publisher.Publish(ctx, models.EventClassStatusChanged, event); err != nil {
		s.logger.Sugar().Warnw("failed to publish status-changed event",
			"class_id", class.ID, "old_status", class.Status, "new_status", newStatus, "error", err)
	}
}
