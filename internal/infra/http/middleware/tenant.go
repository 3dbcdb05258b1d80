package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type ctxKey int

const (
	tenantKey ctxKey = iota
	actorKey
)

const (
	TenantHeader = "X-Tenant-ID"
	ActorHeader  = "X-User-ID"
)

// Tenant reads the tenant and acting user set by the auth proxy. Requests
// without a tenant are rejected.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := strings.TrimSpace(r.Header.Get(TenantHeader))
		if tenantID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":  "TENANT_REQUIRED",
				"error": "missing " + TenantHeader + " header",
			})
			return
		}
		ctx := context.WithValue(r.Context(), tenantKey, tenantID)
		ctx = context.WithValue(ctx, actorKey, strings.TrimSpace(r.Header.Get(ActorHeader)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TenantID(ctx context.Context) string {
	v, _ := ctx.Value(tenantKey).(string)
	return v
}

func ActorID(ctx context.Context) string {
	v, _ := ctx.Value(actorKey).(string)
	return v
}

// WithTenant is used by tests and background jobs that bypass the header.
func WithTenant(ctx context.Context, tenantID, actorID string) context.Context {
	ctx = context.WithValue(ctx, tenantKey, tenantID)
	return context.WithValue(ctx, actorKey, actorID)
}
