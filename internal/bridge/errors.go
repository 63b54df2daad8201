package bridge

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tabtimer/internal/core/countdown"
	"tabtimer/internal/core/model"
	"tabtimer/internal/remote"
	"tabtimer/internal/storage"
)

// APIError is the JSON error body returned by the bridge.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

func badRequest(code, message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: code, Message: message}
}

// classify maps domain errors to API errors.
func classify(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, countdown.ErrInvalidDuration):
		return badRequest("invalid_duration", err.Error())
	case errors.Is(err, model.ErrInvalidPreset):
		return badRequest("invalid_preset", err.Error())
	case errors.Is(err, storage.ErrPresetNotFound):
		return &APIError{Status: http.StatusNotFound, Code: "preset_not_found", Message: err.Error()}
	case errors.Is(err, remote.ErrQuotaExceeded):
		return &APIError{Status: http.StatusRequestEntityTooLarge, Code: "quota_exceeded", Message: err.Error()}
	default:
		return &APIError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal server error"}
	}
}

func writeError(c *gin.Context, err error) {
	apiErr := classify(err)
	if apiErr.Status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(apiErr.Status, gin.H{
		"error": gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}
