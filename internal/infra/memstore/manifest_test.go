package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/docgate/internal/domain/ingest"
	"github.com/bryanwahyu/docgate/internal/domain/manifest"
	"github.com/bryanwahyu/docgate/internal/domain/tenancy"
)

func scope(tenant, persona string) tenancy.Scope {
	return tenancy.Scope{Tenant: tenant, Persona: persona}
}

func file(sc tenancy.Scope, name string) *ingest.File {
	return &ingest.File{
		ID:         name + "-id",
		Name:       name,
		StorageRef: sc.Tenant + "/" + sc.Persona + "/" + name,
		Route:      ingest.RouteText,
	}
}

func TestUpsertAndList(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sc := scope("acme", "sales")

	require.NoError(t, s.Upsert(ctx, sc, file(sc, "a.csv")))
	require.NoError(t, s.Upsert(ctx, sc, file(sc, "b.csv")))

	files, err := s.List(ctx, sc)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.csv", files[0].Name)
	assert.Equal(t, "b.csv", files[1].Name)

	n, err := s.Count(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpsertReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sc := scope("acme", "sales")

	require.NoError(t, s.Upsert(ctx, sc, file(sc, "a.csv")))
	require.NoError(t, s.Upsert(ctx, sc, file(sc, "b.csv")))

	replacement := file(sc, "a.csv")
	replacement.ID = "new-id"
	require.NoError(t, s.Upsert(ctx, sc, replacement))

	files, err := s.List(ctx, sc)
	require.NoError(t, err)
	require.Len(t, files, 2)
	// Re-ingested file keeps its slot, so listing order is stable.
	assert.Equal(t, "new-id", files[0].ID)
	assert.Equal(t, "b.csv", files[1].Name)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sc := scope("acme", "sales")
	f := file(sc, "a.csv")

	require.NoError(t, s.Upsert(ctx, sc, f))
	require.NoError(t, s.Remove(ctx, sc, f.StorageRef))

	n, err := s.Count(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	err = s.Remove(ctx, sc, f.StorageRef)
	assert.ErrorIs(t, err, manifest.ErrFileNotFound)
}

func TestRemoveUnknownScope(t *testing.T) {
	s := NewStore()
	sc := scope("acme", "sales")
	err := s.Remove(context.Background(), sc, "acme/sales/ghost.csv")
	assert.ErrorIs(t, err, manifest.ErrFileNotFound)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sc := scope("acme", "sales")

	require.NoError(t, s.Upsert(ctx, sc, file(sc, "a.csv")))
	require.NoError(t, s.Clear(ctx, sc))
	require.NoError(t, s.Clear(ctx, sc)) // idempotent

	files, err := s.List(ctx, sc)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sales := scope("acme", "sales")
	support := scope("acme", "support")
	other := scope("globex", "sales")

	require.NoError(t, s.Upsert(ctx, sales, file(sales, "a.csv")))
	require.NoError(t, s.Upsert(ctx, support, file(support, "b.csv")))

	got, err := s.List(ctx, sales)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.csv", got[0].Name)

	got, err = s.List(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Clear(ctx, sales))
	n, err := s.Count(ctx, support)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpsertRejectsForeignRef(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sales := scope("acme", "sales")

	foreign := file(scope("globex", "sales"), "a.csv")
	err := s.Upsert(ctx, sales, foreign)
	assert.ErrorIs(t, err, manifest.ErrScopeViolation)

	err = s.Remove(ctx, sales, "globex/sales/a.csv")
	assert.ErrorIs(t, err, manifest.ErrScopeViolation)
}

func TestConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sc := scope("acme", "sales")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("f%02d.csv", i)
			if err := s.Upsert(ctx, sc, file(sc, name)); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	count, err := s.Count(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, n, count)
}

func TestListReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sc := scope("acme", "sales")
	require.NoError(t, s.Upsert(ctx, sc, file(sc, "a.csv")))

	snapshot, err := s.List(ctx, sc)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, sc, file(sc, "b.csv")))
	assert.Len(t, snapshot, 1)
}
