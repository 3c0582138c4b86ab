package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/threadpress/internal/models"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

const (
	codeValidation    = "validation_error"
	codeNotFound      = "not_found"
	codeConflict      = "conflict"
	codeGeneration    = "generation_failed"
	codePublish       = "publish_failed"
	codeConfiguration = "configuration_error"
	codeInternal      = "internal_error"
)

// respondError maps domain errors to a status code and the error envelope.
// Details of 5xx errors are logged, not returned.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, code, msg := http.StatusInternalServerError, codeInternal, "Internal server error"

	switch {
	case errors.Is(err, models.ErrValidation):
		status, code, msg = http.StatusBadRequest, codeValidation, err.Error()
	case errors.Is(err, models.ErrNotFound):
		status, code, msg = http.StatusNotFound, codeNotFound, notFoundMessage(err)
	case errors.Is(err, models.ErrConflict):
		status, code, msg = http.StatusConflict, codeConflict, err.Error()
	case errors.Is(err, models.ErrGeneration):
		code, msg = codeGeneration, models.ErrGeneration.Error()
	case errors.Is(err, models.ErrPublish):
		code, msg = codePublish, "Failed to publish article"
	case errors.Is(err, models.ErrConfiguration):
		code, msg = codeConfiguration, "Server is not configured for this operation"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("code", code),
			zap.Error(err))
	}

	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

func notFoundMessage(err error) string {
	var nf *models.NotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	return err.Error()
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
