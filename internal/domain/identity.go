package domain

import "context"

type contextKey string

const userIDKey contextKey = "user_id"

// WithUserID attaches the authenticated user ID to the request context.
// Authentication itself happens upstream (gateway); the core trusts the
// resolved identity.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user ID, or "" when absent
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}
