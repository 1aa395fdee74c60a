package persona

import (
	"context"
	"sort"
	"sync"
)

// Kind distinguishes tenant-customized personas from synthesized defaults.
type Kind string

const (
	KindPersisted        Kind = "persisted"
	KindSyntheticDefault Kind = "synthetic_default"
)

// Persona names a use-case context inside a tenant.
type Persona struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// DefaultNames is the fixed persona set every tenant gets, even tenants seen
// for the first time.
func DefaultNames() []string {
	return []string{"sales", "support", "interview"}
}

func isDefault(name string) bool {
	for _, d := range DefaultNames() {
		if d == name {
			return true
		}
	}
	return false
}

// KeyValue is the minimal storage the registry needs for per-tenant
// selection state. Backed by Redis or an in-process map in this repo.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Registry resolves the persona list for a tenant and owns its selection
// state. Defaults are synthesized on every read, not persisted, until a
// tenant customizes them; custom entries always win over same-named defaults.
type Registry struct {
	mu     sync.RWMutex
	custom map[string]map[string]Persona // tenant -> name -> persisted persona
	store  KeyValue
	bus    *Bus
}

func NewRegistry(store KeyValue, bus *Bus) *Registry {
	return &Registry{
		custom: make(map[string]map[string]Persona),
		store:  store,
		bus:    bus,
	}
}

// List returns the tenant's personas: the full default set (customized
// entries keep their persisted kind), then any extra custom personas in
// name order for deterministic listing.
func (r *Registry) List(tenant string) []Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Persona, 0, len(DefaultNames()))
	for _, name := range DefaultNames() {
		if p, ok := r.custom[tenant][name]; ok {
			out = append(out, p)
		} else {
			out = append(out, Persona{Name: name, Kind: KindSyntheticDefault})
		}
	}

	var extra []Persona
	for name, p := range r.custom[tenant] {
		if !isDefault(name) {
			extra = append(extra, p)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })
	return append(out, extra...)
}

// Customize persists a persona for the tenant. Until this is called a
// default persona stays synthetic.
func (r *Registry) Customize(tenant, name string) Persona {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.custom[tenant] == nil {
		r.custom[tenant] = make(map[string]Persona)
	}
	p := Persona{Name: name, Kind: KindPersisted}
	r.custom[tenant][name] = p
	return p
}

// Select records the tenant's active persona and notifies subscribers.
// Selecting a name outside the default set persists it as a custom persona.
func (r *Registry) Select(ctx context.Context, tenant, name string) (Persona, error) {
	var p Persona
	r.mu.RLock()
	custom, customized := r.custom[tenant][name]
	r.mu.RUnlock()

	switch {
	case customized:
		p = custom
	case isDefault(name):
		p = Persona{Name: name, Kind: KindSyntheticDefault}
	default:
		p = r.Customize(tenant, name)
	}

	if r.store != nil {
		if err := r.store.Set(ctx, selectionKey(tenant), name); err != nil {
			return Persona{}, err
		}
	}
	if r.bus != nil {
		r.bus.Publish(SelectionEvent{Tenant: tenant, Persona: name})
	}
	return p, nil
}

// Selected returns the tenant's active persona name, falling back to the
// first default when nothing was ever selected.
func (r *Registry) Selected(ctx context.Context, tenant string) (string, error) {
	if r.store != nil {
		name, ok, err := r.store.Get(ctx, selectionKey(tenant))
		if err != nil {
			return "", err
		}
		if ok {
			return name, nil
		}
	}
	return DefaultNames()[0], nil
}

func selectionKey(tenant string) string { return "persona-selection:" + tenant }
