package tenancy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

const (
	// DefaultTenant is the scope anonymous/preview requests land in.
	DefaultTenant = "public"
	// DefaultPersona is used when a request carries no persona identifier.
	DefaultPersona = "sales"
)

// ErrInvalidScope indicates a malformed tenant or persona identifier.
var ErrInvalidScope = errors.New("invalid scope identifier")

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Scope is the (tenant, persona) pair every storage operation is bound to.
// It is the system's primary isolation boundary.
type Scope struct {
	Tenant  string `json:"tenant"`
	Persona string `json:"persona"`
}

// Key returns the canonical map key for the scope.
func (s Scope) Key() string { return s.Tenant + "/" + s.Persona }

// Resolver normalizes raw tenant/persona identifiers into a Scope.
// Missing identifiers fall back to the default scope so anonymous traffic
// still resolves somewhere well-defined. Resolved scopes are cached; the
// cache is the resolver's only state.
type Resolver struct {
	mu    sync.RWMutex
	cache map[string]Scope
}

func NewResolver() *Resolver {
	return &Resolver{cache: make(map[string]Scope)}
}

// Resolve validates and normalizes the identifiers. Same input always
// yields the same scope.
func (r *Resolver) Resolve(tenant, persona string) (Scope, error) {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		tenant = DefaultTenant
	}
	persona = strings.TrimSpace(persona)
	if persona == "" {
		persona = DefaultPersona
	}

	key := tenant + "/" + persona
	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if !idPattern.MatchString(tenant) {
		return Scope{}, fmt.Errorf("%w: tenant %q", ErrInvalidScope, tenant)
	}
	if !idPattern.MatchString(persona) {
		return Scope{}, fmt.Errorf("%w: persona %q", ErrInvalidScope, persona)
	}

	scope := Scope{Tenant: tenant, Persona: persona}
	r.mu.Lock()
	r.cache[key] = scope
	r.mu.Unlock()
	return scope, nil
}

// DefaultScope is what requests without any scoping identifiers resolve to.
func DefaultScope() Scope {
	return Scope{Tenant: DefaultTenant, Persona: DefaultPersona}
}
