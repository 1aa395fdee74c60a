package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const (
	// AuthTenantKey holds the tenant an API key authenticated as.
	AuthTenantKey contextKey = "auth_tenant"
	// ScopeKey holds the resolved (tenant, persona) scope.
	ScopeKey contextKey = "scope"
)

// APIKeyAuth binds API keys to tenants. Keys map tenant -> key. With an
// empty map the middleware passes everything through: anonymous preview
// usage is part of the contract, so auth is an opt-in hardening layer, not
// a gate.
func APIKeyAuth(validKeys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(validKeys) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			// Constant-time comparison to prevent timing attacks
			var tenant string
			for t, key := range validKeys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
					tenant = t
					break
				}
			}
			if tenant == "" {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AuthTenantKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthTenantFromContext returns the tenant the request authenticated as, or
// "" for anonymous traffic.
func AuthTenantFromContext(ctx context.Context) string {
	if tenant, ok := ctx.Value(AuthTenantKey).(string); ok {
		return tenant
	}
	return ""
}
