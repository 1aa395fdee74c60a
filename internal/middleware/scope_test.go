package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/docgate/internal/domain/tenancy"
)

func resolveThrough(t *testing.T, req *http.Request) (tenancy.Scope, int) {
	t.Helper()
	var got tenancy.Scope
	handler := ResolveScope(tenancy.NewResolver())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ScopeFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return got, rec.Code
}

func TestResolveScopeFromHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	req.Header.Set("X-Persona", "support")

	scope, code := resolveThrough(t, req)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, tenancy.Scope{Tenant: "acme", Persona: "support"}, scope)
}

func TestResolveScopeFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/status?tenant=acme&persona=interview", nil)
	scope, code := resolveThrough(t, req)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, tenancy.Scope{Tenant: "acme", Persona: "interview"}, scope)
}

func TestResolveScopeHeaderBeatsQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/status?tenant=query-tenant", nil)
	req.Header.Set("X-Tenant-ID", "header-tenant")
	scope, _ := resolveThrough(t, req)
	assert.Equal(t, "header-tenant", scope.Tenant)
}

func TestResolveScopeAuthTenantWins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-Tenant-ID", "claimed-tenant")
	req = req.WithContext(context.WithValue(req.Context(), AuthTenantKey, "real-tenant"))

	scope, _ := resolveThrough(t, req)
	assert.Equal(t, "real-tenant", scope.Tenant)
}

func TestResolveScopeDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	scope, code := resolveThrough(t, req)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, tenancy.DefaultScope(), scope)
}

func TestResolveScopeRejectsInvalidTenant(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-Tenant-ID", "../escape")
	_, code := resolveThrough(t, req)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestValidateFilename(t *testing.T) {
	assert.NoError(t, ValidateFilename("orders.csv"))
	assert.NoError(t, ValidateFilename("Q3 report (final).xlsx"))
	assert.Error(t, ValidateFilename(""))
	assert.Error(t, ValidateFilename("../../etc/passwd"))
	assert.Error(t, ValidateFilename("dir/file.csv"))
	assert.Error(t, ValidateFilename("back\\slash.csv"))
	assert.Error(t, ValidateFilename("bad\x00name.csv"))
}

func TestValidateLimit(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 20, ValidateLimit(-3))
	assert.Equal(t, 7, ValidateLimit(7))
	assert.Equal(t, 100, ValidateLimit(500))
}
