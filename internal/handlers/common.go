package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// RateLimitResponse carries the retry hint alongside the error
type RateLimitResponse struct {
	Error      string `json:"error"`
	RetryAfter int64  `json:"retry_after"`
}

// TimeoutResponse reports an operation whose final state is unknown. The
// operation may still confirm after the response is sent, so the status field
// is explicit about non-failure.
type TimeoutResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// respondError translates a service error into the HTTP response. Untyped
// errors are logged in full and surfaced as a generic 500.
func respondError(c *gin.Context, err error) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		if logger.Log != nil {
			logger.Log.Error("Unclassified handler error", zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	switch appErr.Kind {
	case types.ErrKindValidation:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: appErr.Message})
	case types.ErrKindAuthentication:
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: appErr.Message})
	case types.ErrKindAuthorization:
		c.JSON(http.StatusForbidden, ErrorResponse{Error: appErr.Message})
	case types.ErrKindRateLimit:
		seconds := int64(appErr.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.FormatInt(seconds, 10))
		c.JSON(http.StatusTooManyRequests, RateLimitResponse{
			Error:      appErr.Message,
			RetryAfter: seconds,
		})
	case types.ErrKindSubmission:
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: appErr.Message})
	case types.ErrKindConfirmationTimeout:
		c.JSON(http.StatusGatewayTimeout, TimeoutResponse{
			Error:  appErr.Message,
			Status: "unknown",
		})
	default:
		if logger.Log != nil {
			logger.Log.Error("Internal handler error", zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
