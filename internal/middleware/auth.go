package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	portssvc "github.com/SscSPs/bank_mesh/internal/core/ports/services"
	"github.com/gin-gonic/gin"
)

// tokenQueryParam is accepted when a client cannot set headers (links, websockets).
const tokenQueryParam = "token"

var errMissingToken = errors.New("authorization header required")

// extractToken reads "Authorization: Bearer <token>", falling back to the token query parameter.
func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query(tokenQueryParam); token != "" {
			return token, nil
		}
		return "", errMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", errors.New("authorization header format must be Bearer {token}")
	}
	return parts[1], nil
}

// AuthMiddleware resolves the bearer token to a caller through the identity
// service and stores it, together with an enriched logger, in the request context.
func AuthMiddleware(identity portssvc.IdentitySvcFacade) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		token, err := extractToken(c)
		if err != nil {
			logger.Warn("Rejected request without usable credentials", slog.String("reason", err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		caller, err := identity.Authenticate(c.Request.Context(), token)
		if err != nil {
			status := http.StatusInternalServerError
			msg := "Failed to authenticate"
			switch {
			case errors.Is(err, apperrors.ErrUnauthenticated):
				status, msg = http.StatusUnauthorized, "Invalid or expired token"
			case errors.Is(err, apperrors.ErrForbidden):
				status, msg = http.StatusForbidden, "Client is not allowed"
			case errors.Is(err, apperrors.ErrUpstreamUnavailable):
				status, msg = http.StatusServiceUnavailable, "Identity provider unavailable"
			}
			logger.Warn("Authentication failed", slog.Int("status", status), slog.String("error", err.Error()))
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		enriched := logger.With(
			slog.String("client_id", caller.ClientID),
			slog.String("username", caller.Username),
			slog.String("role", string(caller.Role)),
		)
		ctx := WithLogger(WithCaller(c.Request.Context(), caller), enriched)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAdmin aborts with 403 unless the authenticated caller is an admin.
// It must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := GetCallerFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		if !caller.IsAdmin() {
			GetLoggerFromCtx(c.Request.Context()).Warn("Admin route denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
			return
		}
		c.Next()
	}
}
