package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centerdesk/center-api/internal/models"
	"github.com/centerdesk/center-api/internal/service"
	appErrors "github.com/centerdesk/center-api/pkg/errors"
)

type scheduleServiceMock struct {
	validateErr    error
	checkResp      *service.CheckConflictsResult
	checkErr       error
	groupItems     []models.ScheduleItem
	groupErr       error
	replaceItems   []models.ScheduleItem
	replaceErr     error
	durationClass  *models.Class
	durationErr    error
	replaceGroupID string
}

func (m *scheduleServiceMock) ValidateSchedule(slots []service.SlotRequest, durationMin int) error {
	return m.validateErr
}

func (m *scheduleServiceMock) CheckConflicts(ctx context.Context, req service.CheckConflictsRequest) (*service.CheckConflictsResult, error) {
	if m.checkErr != nil {
		return nil, m.checkErr
	}
	return m.checkResp, nil
}

func (m *scheduleServiceMock) GetGroupSchedule(ctx context.Context, groupID string) ([]models.ScheduleItem, error) {
	if m.groupErr != nil {
		return nil, m.groupErr
	}
	return m.groupItems, nil
}

func (m *scheduleServiceMock) ReplaceGroupSchedule(ctx context.Context, groupID string, req service.ReplaceGroupScheduleRequest) ([]models.ScheduleItem, error) {
	m.replaceGroupID = groupID
	if m.replaceErr != nil {
		return nil, m.replaceErr
	}
	return m.replaceItems, nil
}

func (m *scheduleServiceMock) ChangeClassDuration(ctx context.Context, classID string, req service.ChangeClassDurationRequest) (*models.Class, error) {
	if m.durationErr != nil {
		return nil, m.durationErr
	}
	return m.durationClass, nil
}

func newScheduleTestContext(t *testing.T, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestScheduleHandlerValidateOK(t *testing.T) {
	handler := NewScheduleHandler(&scheduleServiceMock{})
	c, w := newScheduleTestContext(t, http.MethodPost, "/schedules/validate", ValidateScheduleRequest{
		Items:       []service.SlotRequest{{Day: "MONDAY", StartTime: "10:00"}},
		DurationMin: 60,
	})

	handler.Validate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":true`)
}

func TestScheduleHandlerValidateInvalidBody(t *testing.T) {
	handler := NewScheduleHandler(&scheduleServiceMock{})
	c, w := newScheduleTestContext(t, http.MethodPost, "/schedules/validate", nil)
	c.Request.Body = http.NoBody

	handler.Validate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerValidateServiceRejection(t *testing.T) {
	mock := &scheduleServiceMock{validateErr: appErrors.Clone(appErrors.ErrValidation, "items overlap")}
	handler := NewScheduleHandler(mock)
	c, w := newScheduleTestContext(t, http.MethodPost, "/schedules/validate", ValidateScheduleRequest{
		Items:       []service.SlotRequest{{Day: "MONDAY", StartTime: "10:00"}},
		DurationMin: 60,
	})

	handler.Validate(c)
	require.Equal(t, appErrors.ErrValidation.Status, w.Code)
	assert.Contains(t, w.Body.String(), "items overlap")
}

func TestScheduleHandlerReplaceGroupScheduleConflict(t *testing.T) {
	conflictErr := &models.ScheduleConflictError{
		Dimension: "TEACHER",
		Message:   "teacher already booked in overlapping slots",
		Reports: []models.ConflictReport{{
			SubjectID:   "t1",
			SubjectName: "Alice Moody",
			Entries:     []models.ConflictEntry{{Day: models.Monday, TimeRange: "17:00-18:00"}},
		}},
	}
	mock := &scheduleServiceMock{replaceErr: appErrors.Wrap(conflictErr, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, conflictErr.Message)}
	handler := NewScheduleHandler(mock)
	c, w := newScheduleTestContext(t, http.MethodPut, "/groups/g1/schedule", service.ReplaceGroupScheduleRequest{
		Items: []service.SlotRequest{{Day: "MONDAY", StartTime: "10:00"}},
	})
	c.Params = gin.Params{{Key: "id", Value: "g1"}}

	handler.ReplaceGroupSchedule(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "g1", mock.replaceGroupID)
	// the typed conflict payload reaches the client as details
	assert.Contains(t, w.Body.String(), `"17:00-18:00"`)
	assert.Contains(t, w.Body.String(), `"dimension":"TEACHER"`)
}

func TestScheduleHandlerReplaceGroupScheduleOK(t *testing.T) {
	mock := &scheduleServiceMock{replaceItems: []models.ScheduleItem{{ID: "i1", GroupID: "g1", DayOfWeek: models.Monday, StartMinute: 600}}}
	handler := NewScheduleHandler(mock)
	c, w := newScheduleTestContext(t, http.MethodPut, "/groups/g1/schedule", service.ReplaceGroupScheduleRequest{
		Items: []service.SlotRequest{{Day: "MONDAY", StartTime: "10:00"}},
	})
	c.Params = gin.Params{{Key: "id", Value: "g1"}}

	handler.ReplaceGroupSchedule(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"MONDAY"`)
}

func TestScheduleHandlerGetGroupSchedule(t *testing.T) {
	mock := &scheduleServiceMock{groupItems: []models.ScheduleItem{{ID: "i1", GroupID: "g1", DayOfWeek: models.Friday, StartMinute: 540}}}
	handler := NewScheduleHandler(mock)
	c, w := newScheduleTestContext(t, http.MethodGet, "/groups/g1/schedule", nil)
	c.Params = gin.Params{{Key: "id", Value: "g1"}}

	handler.GetGroupSchedule(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"FRIDAY"`)
}

func TestScheduleHandlerCheckConflicts(t *testing.T) {
	mock := &scheduleServiceMock{checkResp: &service.CheckConflictsResult{}}
	handler := NewScheduleHandler(mock)
	c, w := newScheduleTestContext(t, http.MethodPost, "/schedules/conflicts", service.CheckConflictsRequest{
		TeacherID:   "t1",
		Items:       []service.SlotRequest{{Day: "MONDAY", StartTime: "10:00"}},
		DurationMin: 60,
	})

	handler.CheckConflicts(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestScheduleHandlerChangeClassDuration(t *testing.T) {
	mock := &scheduleServiceMock{durationClass: &models.Class{ID: "c1", DurationMin: 90}}
	handler := NewScheduleHandler(mock)
	c, w := newScheduleTestContext(t, http.MethodPut, "/classes/c1/duration", service.ChangeClassDurationRequest{DurationMin: 90})
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.ChangeClassDuration(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"duration_min":90`)
}
