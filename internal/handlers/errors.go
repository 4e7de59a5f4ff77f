package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/middleware"
	"github.com/gin-gonic/gin"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, apperrors.ErrPartiallyFailed):
		return http.StatusBadGateway
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrAccountBlocked),
		errors.Is(err, apperrors.ErrDuplicate),
		errors.Is(err, apperrors.ErrContention):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &appErr) && appErr.Code != 0:
		return appErr.Code
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the matching status. Server-side failures
// get a generic message; everything else echoes the error text.
func respondError(c *gin.Context, err error, action string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	status := statusFor(err)

	var partial *apperrors.PartialFailureError
	if errors.As(err, &partial) {
		logger.Error("Cross-service transfer partially failed",
			slog.String("transfer_id", partial.TransferID),
			slog.String("failed_leg", string(partial.FailedLeg)),
			slog.Bool("compensated", partial.Compensated),
			slog.String("error", err.Error()))
		c.JSON(status, dto.PartialFailureResponse{
			Error:       err.Error(),
			TransferID:  partial.TransferID,
			FailedLeg:   string(partial.FailedLeg),
			Compensated: partial.Compensated,
		})
		return
	}

	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.Error("Failed to "+action, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": "Failed to " + action})
		return
	}
	logger.Warn("Request rejected", slog.String("action", action), slog.Int("status", status), slog.String("error", err.Error()))
	c.JSON(status, gin.H{"error": err.Error()})
}

// callerFrom returns the authenticated caller or writes 401.
func callerFrom(c *gin.Context) (domain.Caller, bool) {
	caller, ok := middleware.GetCallerFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Caller not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return domain.Caller{}, false
	}
	return caller, true
}

func badRequest(c *gin.Context, what string, err error) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Failed to bind "+what, slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + ": " + err.Error()})
}
