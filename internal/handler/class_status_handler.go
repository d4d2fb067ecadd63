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

type classStatusService interface {
	AvailableStatuses(ctx context.Context, classID string) ([]models.ClassStatus, error)
	ChangeStatus(ctx context.Context, classID string, req service.ChangeStatusRequest, actor string) (*models.StatusChange, error)
	BulkChangeStatus(ctx context.Context, req service.BulkChangeStatusRequest, actor string) ([]models.BulkItemResult, error)
}

// ClassStatusHandler manages lifecycle endpoints.
type ClassStatusHandler struct {
	service classStatusService
}

// NewClassStatusHandler constructs handler.
func NewClassStatusHandler(svc classStatusService) *ClassStatusHandler {
	return &ClassStatusHandler{service: svc}
}

// AvailableStatuses godoc
// @Summary List statuses reachable from the class's current status
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/statuses [get]
func (h *ClassStatusHandler) AvailableStatuses(c *gin.Context) {
	statuses, err := h.service.AvailableStatuses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statuses, nil)
}

// ChangeStatus godoc
// @Summary Apply a lifecycle transition to a class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.ChangeStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/status [patch]
func (h *ClassStatusHandler) ChangeStatus(c *gin.Context) {
	var req service.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	change, err := h.service.ChangeStatus(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}

// BulkChangeStatus godoc
// @Summary Apply lifecycle transitions to many classes best-effort
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.BulkChangeStatusRequest true "Transitions"
// @Success 200 {object} response.Envelope
// @Router /classes/status/bulk [post]
func (h *ClassStatusHandler) BulkChangeStatus(c *gin.Context) {
	var req service.BulkChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	results, err := h.service.BulkChangeStatus(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}
