// Package middleware provides HTTP middleware for the zapgestor API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const headerTenantID = "X-Tenant-ID"

type tenantCtxKey struct{}

// RequireTenant is middleware that extracts the tenant ID from the
// X-Tenant-ID header and stores it in the request context. The value
// must be a UUID: the gateway session name is derived from it, so a
// malformed tenant ID can never reach the stores or adapters.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid := r.Header.Get(headerTenantID)
		if tid == "" {
			http.Error(w, `{"error":"X-Tenant-ID header is required"}`, http.StatusBadRequest)
			return
		}
		if _, err := uuid.Parse(tid); err != nil {
			http.Error(w, `{"error":"X-Tenant-ID must be a UUID"}`, http.StatusBadRequest)
			return
		}
		ctx := context.WithValue(r.Context(), tenantCtxKey{}, tid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithTenantID returns a context carrying the given tenant ID. Used by
// the poller manager and tests, which run outside a request.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, tenantID)
}

// TenantIDFromContext returns the tenant ID stored in ctx, or an empty
// string if absent.
func TenantIDFromContext(ctx context.Context) string {
	tid, _ := ctx.Value(tenantCtxKey{}).(string)
	return tid
}
