package util

import (
	"net/http"

	"github.com/campuslink/backend/internal/errors"
	"github.com/campuslink/backend/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondError maps err onto the error taxonomy and writes it. Anything
// that is not already an APIError is reported as a generic 500 and the
// cause is only logged.
func RespondError(c *gin.Context, err error) {
	RespondWithAPIError(c, errors.From(err))
}

// RespondWithAPIError sends a structured API error response
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	fields := []zap.Field{
		zap.String("code", string(apiErr.Code)),
		zap.String("path", c.FullPath()),
		zap.Int("status", apiErr.Status),
	}
	if requestID := c.GetString("request_id"); requestID != "" {
		fields = append(fields, logger.WithRequestID(requestID))
	}

	if apiErr.Status >= http.StatusInternalServerError {
		if cause := apiErr.Unwrap(); cause != nil {
			fields = append(fields, zap.Error(cause))
		}
		logger.Log.Error(apiErr.Message, fields...)
		c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{
			Code:    string(apiErr.Code),
			Message: http.StatusText(apiErr.Status),
		})
		return
	}

	logger.Log.Debug("Request rejected", append(fields, zap.String("message", apiErr.Message))...)
	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "user not authenticated"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthorized(msg))
}

// RespondValidationError sends a 400 for a single bad field.
func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}

// BindJSON decodes the request body, answering 400 on malformed input.
func BindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		RespondWithAPIError(c, errors.ValidationError("body", "invalid request body").WithDetails(err.Error()))
		return false
	}
	return true
}
