package middleware

import (
	"context"
	"net/http"

	"github.com/bryanwahyu/docgate/internal/domain/tenancy"
)

// ResolveScope pulls the tenant/persona identifiers off the request (headers
// first, query parameters as fallback) and stores the resolved scope in the
// context. Missing identifiers resolve to the default scope so anonymous
// preview traffic still lands somewhere well-defined. A tenant bound by API
// key auth overrides whatever the client declared.
func ResolveScope(resolver *tenancy.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant := AuthTenantFromContext(r.Context())
			if tenant == "" {
				tenant = r.Header.Get("X-Tenant-ID")
			}
			if tenant == "" {
				tenant = r.URL.Query().Get("tenant")
			}
			persona := r.Header.Get("X-Persona")
			if persona == "" {
				persona = r.URL.Query().Get("persona")
			}

			scope, err := resolver.Resolve(tenant, persona)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			ctx := context.WithValue(r.Context(), ScopeKey, scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ScopeFromContext returns the resolved scope, or the default scope when the
// middleware did not run.
func ScopeFromContext(ctx context.Context) tenancy.Scope {
	if s, ok := ctx.Value(ScopeKey).(tenancy.Scope); ok {
		return s
	}
	return tenancy.DefaultScope()
}
