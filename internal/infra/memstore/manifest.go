package memstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	domain "github.com/bryanwahyu/docgate/internal/domain/ingest"
	"github.com/bryanwahyu/docgate/internal/domain/manifest"
	"github.com/bryanwahyu/docgate/internal/domain/tenancy"
)

// Store is the in-memory authoritative manifest store for a deployment.
// One mutex per scope serializes writers; reads copy a snapshot so callers
// never observe a manifest mid-mutation. Scopes never share state.
type Store struct {
	mu     sync.RWMutex
	scopes map[string]*scopeManifest
}

type scopeManifest struct {
	mu    sync.RWMutex
	files []*domain.File
}

func NewStore() *Store {
	return &Store{scopes: make(map[string]*scopeManifest)}
}

func (s *Store) scope(key string, create bool) *scopeManifest {
	s.mu.RLock()
	m := s.scopes[key]
	s.mu.RUnlock()
	if m != nil || !create {
		return m
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m = s.scopes[key]; m == nil {
		m = &scopeManifest{}
		s.scopes[key] = m
	}
	return m
}

// guardRef fails loudly when a file's storage reference points outside the
// scope it is being written to. Primary isolation boundary: never filtered,
// never downgraded.
func guardRef(scope tenancy.Scope, ref string) error {
	prefix := scope.Tenant + "/" + scope.Persona + "/"
	if !strings.HasPrefix(ref, prefix) {
		return fmt.Errorf("%w: ref %q written to scope %s", manifest.ErrScopeViolation, ref, scope.Key())
	}
	return nil
}

// Upsert inserts the file or, when its storage reference is already present,
// replaces that entry in place so listing order survives re-ingestion.
func (s *Store) Upsert(ctx context.Context, scope tenancy.Scope, file *domain.File) error {
	if file == nil {
		return fmt.Errorf("upsert: nil file")
	}
	if err := guardRef(scope, file.StorageRef); err != nil {
		return err
	}
	m := s.scope(scope.Key(), true)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.files {
		if existing.StorageRef == file.StorageRef {
			m.files[i] = file
			return nil
		}
	}
	m.files = append(m.files, file)
	return nil
}

func (s *Store) Remove(ctx context.Context, scope tenancy.Scope, storageRef string) error {
	if err := guardRef(scope, storageRef); err != nil {
		return err
	}
	m := s.scope(scope.Key(), false)
	if m == nil {
		return manifest.ErrFileNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.files {
		if f.StorageRef == storageRef {
			m.files = append(m.files[:i], m.files[i+1:]...)
			return nil
		}
	}
	return manifest.ErrFileNotFound
}

func (s *Store) Clear(ctx context.Context, scope tenancy.Scope) error {
	m := s.scope(scope.Key(), false)
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = nil
	return nil
}

func (s *Store) List(ctx context.Context, scope tenancy.Scope) ([]*domain.File, error) {
	m := s.scope(scope.Key(), false)
	if m == nil {
		return []*domain.File{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.File, len(m.files))
	copy(out, m.files)
	return out, nil
}

func (s *Store) Count(ctx context.Context, scope tenancy.Scope) (int, error) {
	m := s.scope(scope.Key(), false)
	if m == nil {
		return 0, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files), nil
}
