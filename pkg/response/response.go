package response

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/centerdesk/center-api/internal/models"
	appErrors "github.com/centerdesk/center-api/pkg/errors"
)

// Envelope represents the common response contract. Details carries the typed
// payload of schedule conflict and validation errors.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Details    interface{}            `json:"details,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Error sends an error response converting the error to the common structure.
// Schedule conflict and validation errors keep their typed payload so callers
// can render the offending slots.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")

	envelope := Envelope{Error: appErr}
	var conflictErr *models.ScheduleConflictError
	var validationErr *models.ScheduleValidationError
	switch {
	case errors.As(err, &conflictErr):
		envelope.Details = conflictErr
	case errors.As(err, &validationErr):
		envelope.Details = validationErr
	}

	c.JSON(appErr.Status, envelope)
}
