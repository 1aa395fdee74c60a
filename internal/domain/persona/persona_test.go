package persona

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	mu sync.Mutex
	m  map[string]string
}

func newMapStore() *mapStore { return &mapStore{m: make(map[string]string)} }

func (s *mapStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *mapStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func TestListSynthesizesDefaultsForUnknownTenant(t *testing.T) {
	r := NewRegistry(newMapStore(), nil)
	got := r.List("never-seen-before")

	require.Len(t, got, 3)
	for i, name := range DefaultNames() {
		assert.Equal(t, name, got[i].Name)
		assert.Equal(t, KindSyntheticDefault, got[i].Kind)
	}
}

func TestCustomizeUpgradesDefault(t *testing.T) {
	r := NewRegistry(newMapStore(), nil)
	r.Customize("acme", "sales")

	got := r.List("acme")
	require.Len(t, got, 3)
	assert.Equal(t, KindPersisted, got[0].Kind)
	assert.Equal(t, KindSyntheticDefault, got[1].Kind)

	// Another tenant's view is untouched.
	other := r.List("globex")
	assert.Equal(t, KindSyntheticDefault, other[0].Kind)
}

func TestListSortsCustomPersonas(t *testing.T) {
	r := NewRegistry(newMapStore(), nil)
	r.Customize("acme", "zeta")
	r.Customize("acme", "alpha")

	got := r.List("acme")
	require.Len(t, got, 5)
	assert.Equal(t, "alpha", got[3].Name)
	assert.Equal(t, "zeta", got[4].Name)
}

func TestSelectPersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	bus := NewBus()

	var events []SelectionEvent
	bus.Subscribe(func(e SelectionEvent) { events = append(events, e) })

	r := NewRegistry(store, bus)
	p, err := r.Select(ctx, "acme", "support")
	require.NoError(t, err)
	assert.Equal(t, KindSyntheticDefault, p.Kind)

	selected, err := r.Selected(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "support", selected)

	require.Len(t, events, 1)
	assert.Equal(t, SelectionEvent{Tenant: "acme", Persona: "support"}, events[0])
}

func TestSelectUnknownNamePersistsCustomPersona(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(newMapStore(), nil)

	p, err := r.Select(ctx, "acme", "legal")
	require.NoError(t, err)
	assert.Equal(t, KindPersisted, p.Kind)

	got := r.List("acme")
	require.Len(t, got, 4)
	assert.Equal(t, "legal", got[3].Name)
}

func TestSelectedFallsBackToFirstDefault(t *testing.T) {
	r := NewRegistry(newMapStore(), nil)
	selected, err := r.Selected(context.Background(), "fresh-tenant")
	require.NoError(t, err)
	assert.Equal(t, DefaultNames()[0], selected)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsub := bus.Subscribe(func(SelectionEvent) { calls++ })

	bus.Publish(SelectionEvent{Tenant: "acme", Persona: "sales"})
	unsub()
	bus.Publish(SelectionEvent{Tenant: "acme", Persona: "support"})

	assert.Equal(t, 1, calls)
}
