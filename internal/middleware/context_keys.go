package middleware

import (
	"context"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// WithCaller returns a copy of ctx carrying the authenticated caller.
func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, callerCtxKey, caller)
}

// CallerFromCtx retrieves the authenticated caller from a standard context.
func CallerFromCtx(ctx context.Context) (domain.Caller, bool) {
	caller, ok := ctx.Value(callerCtxKey).(domain.Caller)
	return caller, ok
}

// GetCallerFromContext retrieves the authenticated caller from the Gin context.
// It returns the caller and a boolean indicating if it was found.
func GetCallerFromContext(c *gin.Context) (domain.Caller, bool) {
	return CallerFromCtx(c.Request.Context())
}
