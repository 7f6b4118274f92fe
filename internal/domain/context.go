package domain

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const tenantIDKey contextKey = "tenant_id"

// DefaultTenantID is the tenant used when the caller does not supply one
const DefaultTenantID = "default"

// WithTenantID returns a copy of ctx carrying the tenant identifier
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// GetTenantIDFromContext extracts the tenant identifier, or "" if absent
func GetTenantIDFromContext(ctx context.Context) string {
	if tenantID, ok := ctx.Value(tenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}
