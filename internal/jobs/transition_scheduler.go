package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/centerdesk/center-api/internal/models"
	"github.com/centerdesk/center-api/internal/service"
	"github.com/centerdesk/center-api/pkg/events"
)

type tenantDirectory interface {
	ListActive(ctx context.Context) ([]models.Tenant, error)
}

type classStore interface {
	ListAutoStartable(ctx context.Context, tenantID string, localNow time.Time) ([]models.Class, error)
	ListAutoFinishable(ctx context.Context, tenantID string, localNow time.Time) ([]models.Class, error)
	BatchUpdateStatus(ctx context.Context, ids []string, status models.ClassStatus, changedAt time.Time) error
}

// TransitionScheduler evaluates every tenant's classes against tenant-local
// time and applies the automatic lifecycle transitions: reached start date
// moves NOT_STARTED to ACTIVE, passed end date moves ACTIVE or PAUSED to
// FINISHED. PENDING_TEACHER_APPROVAL is a manual-only gate and never touched.
type TransitionScheduler struct {
	tenants   tenantDirectory
	classes   classStore
	publisher events.Publisher
	metrics   *service.MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewTransitionScheduler instantiates the scheduler.
func NewTransitionScheduler(tenants tenantDirectory, classes classStore, publisher events.Publisher, metrics *service.MetricsService, logger *zap.Logger) *TransitionScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransitionScheduler{
		tenants:   tenants,
		classes:   classes,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run processes all active tenants sequentially. A store failure is fatal for
// the run and propagates to the job runner; tenants already committed earlier
// in the run are retained. Event publish failures are logged and skipped.
// Selection predicates exclude classes already in the target status, so
// repeated runs are idempotent.
func (s *TransitionScheduler) Run(ctx context.Context) error {
	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tenants: %w", err)
	}

	for _, tenant := range tenants {
		if err := s.processTenant(ctx, tenant); err != nil {
			return fmt.Errorf("tenant %s: %w", tenant.ID, err)
		}
	}

	s.metrics.ObserveSchedulerRun()
	return nil
}

func (s *TransitionScheduler) processTenant(ctx context.Context, tenant models.Tenant) error {
	localNow := s.tenantLocalNow(tenant)

	startable, err := s.classes.ListAutoStartable(ctx, tenant.ID, localNow)
	if err != nil {
		return err
	}
	if err := s.applyBatch(ctx, tenant, startable, models.StatusActive, "start date reached"); err != nil {
		return err
	}

	finishable, err := s.classes.ListAutoFinishable(ctx, tenant.ID, localNow)
	if err != nil {
		return err
	}
	if err := s.applyBatch(ctx, tenant, finishable, models.StatusFinished, "end date passed"); err != nil {
		return err
	}

	return nil
}

// tenantLocalNow resolves "now" as a civil timestamp in the tenant's
// timezone, so date comparisons respect the tenant's day boundary instead of
// a single global clock. An unresolvable timezone falls back to UTC.
func (s *TransitionScheduler) tenantLocalNow(tenant models.Tenant) time.Time {
	loc, err := time.LoadLocation(tenant.Timezone)
	if err != nil {
		s.logger.Sugar().Warnw("invalid tenant timezone, falling back to UTC", "tenant_id", tenant.ID, "timezone", tenant.Timezone, "error", err)
		loc = time.UTC
	}
	local := s.now().In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), 0, time.UTC)
}

func (s *TransitionScheduler) applyBatch(ctx context.Context, tenant models.Tenant, classes []models.Class, target models.ClassStatus, reason string) error {
	if len(classes) == 0 {
		return nil
	}

	ids := make([]string, len(classes))
	for i, class := range classes {
		ids[i] = class.ID
	}

	now := s.now()
	if err := s.classes.BatchUpdateStatus(ctx, ids, target, now); err != nil {
		return err
	}
	s.metrics.ObserveAutoTransitions(target, len(ids))
	s.logger.Sugar().Infow("applied automatic transitions", "tenant_id", tenant.ID, "target", target, "count", len(ids))

	for _, class := range classes {
		s.publishStatusChanged(ctx, tenant, class, target, reason, now)
	}
	return nil
}

// publishStatusChanged emits one event per transitioned class. A failure for
// one class must not prevent the remaining classes or tenants.
func (s *TransitionScheduler) publishStatusChanged(ctx context.Context, tenant models.Tenant, class models.Class, target models.ClassStatus, reason string, at time.Time) {
	if s.publisher == nil {
		return
	}
	event := models.StatusChangedEvent{
		ClassID:    class.ID,
		TenantID:   tenant.ID,
		OldStatus:  class.Status,
		NewStatus:  target,
		Reason:     reason,
		Actor:      "scheduler",
		OccurredAt: at,
	}
	if err := s.publisher.Publish(ctx, models.EventClassStatusChanged, event); err != nil {
		s.logger.Sugar().Warnw("failed to publish status-changed event",
			"tenant_id", tenant.ID, "class_id", class.ID, "target", target, "error", err)
	}
}
