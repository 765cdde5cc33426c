package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
)

// APIError is one entry of the errors array in a failure envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithData sends the success envelope.
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

// RespondWithMessage sends a success envelope carrying only a message.
func RespondWithMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    gin.H{"message": message},
	})
}

// RespondWithErrors sends the failure envelope.
func RespondWithErrors(c *gin.Context, statusCode int, apiErrors ...APIError) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"errors":  apiErrors,
	})
}

// RespondWithValidationError reports a malformed or failed-validation
// payload.
func RespondWithValidationError(c *gin.Context, err error) {
	RespondWithErrors(c, http.StatusBadRequest, APIError{
		Code:    "invalid_request",
		Message: err.Error(),
	})
}

// RespondWithDomainError maps a service error onto the HTTP taxonomy and
// sends the failure envelope. Unclassified errors become opaque 500s.
func RespondWithDomainError(c *gin.Context, err error, logger *zap.Logger) {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		RespondWithErrors(c, appErr.StatusCode, APIError{Code: appErr.Code, Message: appErr.Message})
		return
	}

	switch {
	case domainErrors.IsValidation(err):
		RespondWithErrors(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: err.Error()})
	case domainErrors.IsUnauthorized(err):
		RespondWithErrors(c, http.StatusUnauthorized, APIError{Code: "unauthorized", Message: err.Error()})
	case domainErrors.IsForbidden(err):
		RespondWithErrors(c, http.StatusForbidden, APIError{Code: "forbidden", Message: err.Error()})
	case domainErrors.IsNotFound(err):
		RespondWithErrors(c, http.StatusNotFound, APIError{Code: "not_found", Message: err.Error()})
	case domainErrors.IsConflict(err):
		RespondWithErrors(c, http.StatusConflict, APIError{Code: "conflict", Message: err.Error()})
	case errors.Is(err, domainErrors.ErrConsentRequired):
		RespondWithErrors(c, http.StatusForbidden, APIError{Code: "consent_required", Message: err.Error()})
	default:
		logger.Error("Unhandled service error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		RespondWithErrors(c, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "internal server error",
		})
	}
}
