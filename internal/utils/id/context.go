package id

import "context"

type contextKey string

const (
	logKey   contextKey = "quiz_log_id"
	adminKey contextKey = "quiz_admin"
)

// WithLogID stores the request log identifier on the context.
func WithLogID(ctx context.Context, logID string) context.Context {
	if logID == "" {
		return ctx
	}
	return context.WithValue(ctx, logKey, logID)
}

// LogIDFromContext returns the log identifier, or "".
func LogIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(logKey).(string)
	return v
}

// EnsureLogID returns ctx carrying a log id, generating one when absent.
func EnsureLogID(ctx context.Context) (context.Context, string) {
	if existing := LogIDFromContext(ctx); existing != "" {
		return ctx, existing
	}
	logID := NewLogID()
	return WithLogID(ctx, logID), logID
}

// WithAdmin records the authenticated admin username on the context.
func WithAdmin(ctx context.Context, username string) context.Context {
	if username == "" {
		return ctx
	}
	return context.WithValue(ctx, adminKey, username)
}

// AdminFromContext returns the authenticated admin username, or "".
func AdminFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(adminKey).(string)
	return v
}
