package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-Id"

type requestContextKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestContextKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestContextKey{}).(string)
	return id, ok && id != ""
}

func NewRequestID() string {
	return uuid.NewString()
}

// EnsureRequestID keeps an id already carried by ctx, else uses requestID,
// else generates one.
func EnsureRequestID(ctx context.Context, requestID string) (context.Context, string) {
	if requestID == "" {
		if existing, ok := RequestIDFromContext(ctx); ok {
			return ctx, existing
		}
		requestID = NewRequestID()
	}
	return WithRequestID(ctx, requestID), requestID
}

func LoggerWithRequest(ctx context.Context, base *zap.Logger) *zap.Logger {
	logger := base
	if logger == nil {
		logger = zap.NewNop()
	}
	id, ok := RequestIDFromContext(ctx)
	if !ok {
		return logger
	}
	return logger.With(RequestIDField(id))
}
