package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centerdesk/center-api/internal/models"
	"github.com/centerdesk/center-api/internal/service"
	appErrors "github.com/centerdesk/center-api/pkg/errors"
	"github.com/centerdesk/center-api/pkg/response"
)

type scheduleService interface {
	ValidateSchedule(slots []service.SlotRequest, durationMin int) error
	CheckConflicts(ctx context.Context, req service.CheckConflictsRequest) (*service.CheckConflictsResult, error)
	GetGroupSchedule(ctx context.Context, groupID string) ([]models.ScheduleItem, error)
	ReplaceGroupSchedule(ctx context.Context, groupID string, req service.ReplaceGroupScheduleRequest) ([]models.ScheduleItem, error)
	ChangeClassDuration(ctx context.Context, classID string, req service.ChangeClassDurationRequest) (*models.Class, error)
}

// ScheduleHandler manages weekly schedule endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// ValidateScheduleRequest is the payload of the stand-alone validation probe.
type ValidateScheduleRequest struct {
	Items       []service.SlotRequest `json:"items" binding:"required"`
	DurationMin int                   `json:"duration_min" binding:"required"`
}

// Validate godoc
// @Summary Validate a candidate weekly schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body ValidateScheduleRequest true "Candidate slots"
// @Success 200 {object} response.Envelope
// @Router /schedules/validate [post]
func (h *ScheduleHandler) Validate(c *gin.Context) {
	var req ValidateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.service.ValidateSchedule(req.Items, req.DurationMin); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"valid": true}, nil)
}

// CheckConflicts godoc
// @Summary Probe committed schedules for conflicts
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CheckConflictsRequest true "Conflict probe"
// @Success 200 {object} response.Envelope
// @Router /schedules/conflicts [post]
func (h *ScheduleHandler) CheckConflicts(c *gin.Context) {
	var req service.CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GetGroupSchedule godoc
// @Summary List the committed schedule of a group
// @Tags Schedules
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/schedule [get]
func (h *ScheduleHandler) GetGroupSchedule(c *gin.Context) {
	items, err := h.service.GetGroupSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ReplaceGroupSchedule godoc
// @Summary Replace the schedule of a group
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body service.ReplaceGroupScheduleRequest true "New schedule"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/schedule [put]
func (h *ScheduleHandler) ReplaceGroupSchedule(c *gin.Context) {
	var req service.ReplaceGroupScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	items, err := h.service.ReplaceGroupSchedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ChangeClassDuration godoc
// @Summary Change the slot duration of a class
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.ChangeClassDurationRequest true "New duration"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/duration [put]
func (h *ScheduleHandler) ChangeClassDuration(c *gin.Context) {
	var req service.ChangeClassDurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.service.ChangeClassDuration(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}
