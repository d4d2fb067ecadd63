package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/centerdesk/center-api/internal/models"
)

type mockTenantDirectory struct {
	tenants []models.Tenant
	err     error
}

func (m *mockTenantDirectory) ListActive(ctx context.Context) ([]models.Tenant, error) {
	return m.tenants, m.err
}

type batchCall struct {
	ids       []string
	status    models.ClassStatus
	changedAt time.Time
}

type mockClassStore struct {
	startable     map[string][]models.Class
	finishable    map[string][]models.Class
	startableErr  error
	finishableErr error
	batchErr      error

	startableNow  map[string]time.Time
	finishableNow map[string]time.Time
	batches       []batchCall
}

func (m *mockClassStore) ListAutoStartable(ctx context.Context, tenantID string, localNow time.Time) ([]models.Class, error) {
	if m.startableNow == nil {
		m.startableNow = make(map[string]time.Time)
	}
	m.startableNow[tenantID] = localNow
	if m.startableErr != nil {
		return nil, m.startableErr
	}
	return m.startable[tenantID], nil
}

func (m *mockClassStore) ListAutoFinishable(ctx context.Context, tenantID string, localNow time.Time) ([]models.Class, error) {
	if m.finishableNow == nil {
		m.finishableNow = make(map[string]time.Time)
	}
	m.finishableNow[tenantID] = localNow
	if m.finishableErr != nil {
		return nil, m.finishableErr
	}
	return m.finishable[tenantID], nil
}

func (m *mockClassStore) BatchUpdateStatus(ctx context.Context, ids []string, status models.ClassStatus, changedAt time.Time) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	m.batches = append(m.batches, batchCall{ids: ids, status: status, changedAt: changedAt})
	// transitioned classes no longer satisfy the selection predicates
	for _, id := range ids {
		dropClass(m.startable, id)
		dropClass(m.finishable, id)
	}
	return nil
}

func dropClass(byTenant map[string][]models.Class, id string) {
	for tenantID, classes := range byTenant {
		kept := make([]models.Class, 0, len(classes))
		for _, class := range classes {
			if class.ID != id {
				kept = append(kept, class)
			}
		}
		byTenant[tenantID] = kept
	}
}

type mockPublisher struct {
	events []models.StatusChangedEvent
	errFor map[string]error
}

func (p *mockPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	event, ok := payload.(models.StatusChangedEvent)
	if !ok {
		return nil
	}
	if err := p.errFor[event.ClassID]; err != nil {
		return err
	}
	p.events = append(p.events, event)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRunAppliesAutomaticTransitions(t *testing.T) {
	tenants := &mockTenantDirectory{tenants: []models.Tenant{
		{ID: "tn1", Name: "Downtown", Timezone: "UTC", Active: true},
	}}
	store := &mockClassStore{
		startable: map[string][]models.Class{"tn1": {
			{ID: "c1", TenantID: "tn1", Status: models.StatusNotStarted},
			{ID: "c2", TenantID: "tn1", Status: models.StatusNotStarted},
		}},
		finishable: map[string][]models.Class{"tn1": {
			{ID: "c3", TenantID: "tn1", Status: models.StatusPaused},
		}},
	}
	publisher := &mockPublisher{}

	sched := NewTransitionScheduler(tenants, store, publisher, nil, zap.NewNop())
	sched.now = fixedClock(time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC))

	require.NoError(t, sched.Run(context.Background()))

	require.Len(t, store.batches, 2)
	assert.Equal(t, []string{"c1", "c2"}, store.batches[0].ids)
	assert.Equal(t, models.StatusActive, store.batches[0].status)
	assert.Equal(t, []string{"c3"}, store.batches[1].ids)
	assert.Equal(t, models.StatusFinished, store.batches[1].status)

	require.Len(t, publisher.events, 3)
	assert.Equal(t, "scheduler", publisher.events[0].Actor)
	assert.Equal(t, models.StatusNotStarted, publisher.events[0].OldStatus)
	assert.Equal(t, models.StatusActive, publisher.events[0].NewStatus)
	assert.Equal(t, models.StatusPaused, publisher.events[2].OldStatus)
	assert.Equal(t, models.StatusFinished, publisher.events[2].NewStatus)
}

func TestRunUsesTenantLocalTime(t *testing.T) {
	tenants := &mockTenantDirectory{tenants: []models.Tenant{
		{ID: "tn-tokyo", Timezone: "Asia/Tokyo", Active: true},
		{ID: "tn-bogus", Timezone: "Not/AZone", Active: true},
	}}
	store := &mockClassStore{}

	sched := NewTransitionScheduler(tenants, store, nil, nil, zap.NewNop())
	// 23:00 UTC on March 31st is already April 1st 08:00 in Tokyo.
	sched.now = fixedClock(time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC))

	require.NoError(t, sched.Run(context.Background()))

	tokyo := store.startableNow["tn-tokyo"]
	assert.Equal(t, time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC), tokyo)

	// unresolvable timezone falls back to UTC instead of failing the run
	bogus := store.startableNow["tn-bogus"]
	assert.Equal(t, time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC), bogus)
}

func TestRunSecondRunEmitsNothingFurther(t *testing.T) {
	tenants := &mockTenantDirectory{tenants: []models.Tenant{{ID: "tn1", Timezone: "UTC", Active: true}}}
	store := &mockClassStore{
		startable: map[string][]models.Class{"tn1": {
			{ID: "c1", TenantID: "tn1", Status: models.StatusNotStarted},
		}},
		finishable: map[string][]models.Class{"tn1": {
			{ID: "c2", TenantID: "tn1", Status: models.StatusActive},
		}},
	}
	publisher := &mockPublisher{}

	sched := NewTransitionScheduler(tenants, store, publisher, nil, zap.NewNop())

	require.NoError(t, sched.Run(context.Background()))
	require.Len(t, store.batches, 2)
	require.Len(t, publisher.events, 2)

	// the selection predicates exclude classes already in the target status,
	// so a second run over the same state applies and emits nothing
	require.NoError(t, sched.Run(context.Background()))
	assert.Len(t, store.batches, 2)
	assert.Len(t, publisher.events, 2)
}

func TestRunIsIdempotentWhenNothingMatches(t *testing.T) {
	tenants := &mockTenantDirectory{tenants: []models.Tenant{{ID: "tn1", Timezone: "UTC", Active: true}}}
	store := &mockClassStore{}
	publisher := &mockPublisher{}

	sched := NewTransitionScheduler(tenants, store, publisher, nil, zap.NewNop())

	require.NoError(t, sched.Run(context.Background()))
	require.NoError(t, sched.Run(context.Background()))

	assert.Empty(t, store.batches)
	assert.Empty(t, publisher.events)
}

func TestRunPublishFailureDoesNotStopRemainingClasses(t *testing.T) {
	tenants := &mockTenantDirectory{tenants: []models.Tenant{{ID: "tn1", Timezone: "UTC", Active: true}}}
	store := &mockClassStore{
		startable: map[string][]models.Class{"tn1": {
			{ID: "c1", TenantID: "tn1", Status: models.StatusNotStarted},
			{ID: "c2", TenantID: "tn1", Status: models.StatusNotStarted},
		}},
	}
	publisher := &mockPublisher{errFor: map[string]error{"c1": errors.New("broker down")}}

	sched := NewTransitionScheduler(tenants, store, publisher, nil, zap.NewNop())

	require.NoError(t, sched.Run(context.Background()))

	require.Len(t, store.batches, 1)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, "c2", publisher.events[0].ClassID)
}

func TestRunStoreFailureIsFatal(t *testing.T) {
	tenants := &mockTenantDirectory{tenants: []models.Tenant{{ID: "tn1", Timezone: "UTC", Active: true}}}
	store := &mockClassStore{startableErr: errors.New("connection refused")}

	sched := NewTransitionScheduler(tenants, store, nil, nil, zap.NewNop())

	err := sched.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tn1")
}

func TestRunTenantListFailureIsFatal(t *testing.T) {
	tenants := &mockTenantDirectory{err: errors.New("connection refused")}

	sched := NewTransitionScheduler(tenants, &mockClassStore{}, nil, nil, zap.NewNop())
	require.Error(t, sched.Run(context.Background()))
}
