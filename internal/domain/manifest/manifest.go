package manifest

import (
	"context"
	"errors"

	"github.com/bryanwahyu/docgate/internal/domain/ingest"
	"github.com/bryanwahyu/docgate/internal/domain/tenancy"
)

var (
	// ErrScopeViolation flags a code path that would let one scope's data
	// leak into another. Fatal invariant: surfaced loudly, never filtered.
	ErrScopeViolation = errors.New("tenant isolation violation")

	// ErrFileNotFound means the named file is not in the scope's manifest.
	ErrFileNotFound = errors.New("file not found in manifest")
)

// Store is the persistence port for per-scope manifests.
//
// Mutations for one scope are serialized by the implementation; reads return
// consistent snapshots and may proceed concurrently. A manifest never holds
// two files with the same storage reference, and listing preserves
// insertion order.
type Store interface {
	// Upsert inserts the file, or replaces the entry with the same storage
	// reference while keeping its position in listing order.
	Upsert(ctx context.Context, scope tenancy.Scope, file *ingest.File) error
	// Remove deletes one file and its extraction by storage reference.
	Remove(ctx context.Context, scope tenancy.Scope, storageRef string) error
	// Clear removes all files for the scope.
	Clear(ctx context.Context, scope tenancy.Scope) error
	// List returns the scope's files in insertion order.
	List(ctx context.Context, scope tenancy.Scope) ([]*ingest.File, error)
	// Count reports how many files the scope currently holds.
	Count(ctx context.Context, scope tenancy.Scope) (int, error)
}
