package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/docgate/internal/application"
	domain "github.com/bryanwahyu/docgate/internal/domain/ingest"
	"github.com/bryanwahyu/docgate/internal/domain/manifest"
	"github.com/bryanwahyu/docgate/internal/domain/tenancy"
)

const (
	defaultVisionTimeout = 60 * time.Second
	defaultVisionTries   = 2
	defaultConcurrency   = 4
	sniffLen             = 512
)

// Upload is one file handed to the ingestion gateway.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileStatus reports the outcome of one file inside a batch. A file can be
// ingested and still carry an error: vision failures keep the file in the
// manifest with a failed-extraction marker.
type FileStatus struct {
	Name       string       `json:"name"`
	StorageRef string       `json:"storage_ref,omitempty"`
	Route      domain.Route `json:"route,omitempty"`
	Ingested   bool         `json:"ingested"`
	Error      string       `json:"error,omitempty"`
}

// BatchResult summarizes one upload batch.
type BatchResult struct {
	Processed int          `json:"processed"`
	Files     []FileStatus `json:"files"`
}

// Service is the ingestion gateway: triage, out-of-band extraction, then a
// single manifest upsert per file. Safe for concurrent use; per-scope write
// ordering is the manifest store's job.
type Service struct {
	Manifest manifest.Store
	Blobs    domain.BlobStore       // nil: raw bytes are not persisted
	Text     domain.TextExtractor
	Vision   domain.VisionExtractor // nil when credentials are absent
	Clock    application.Clock

	VisionTimeout time.Duration
	VisionTries   int
	Concurrency   int
}

// BlobKey is the storage reference for a named file in a scope. Deterministic
// on purpose: re-uploading the same name replaces the earlier manifest entry
// instead of duplicating it.
func BlobKey(scope tenancy.Scope, name string) string {
	return fmt.Sprintf("%s/%s/%s", scope.Tenant, scope.Persona, name)
}

// IngestBatch processes uploads for one scope, fanning extraction out under
// a bounded group. Each file is its own atomic unit: failures reject or mark
// only that file and siblings continue. Files already upserted stay in the
// manifest if the batch is aborted mid-flight.
func (s *Service) IngestBatch(ctx context.Context, scope tenancy.Scope, uploads []Upload) BatchResult {
	statuses := make([]FileStatus, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	g.SetLimit(limit)
	for i := range uploads {
		i := i
		g.Go(func() error {
			statuses[i] = s.ingestOne(gctx, scope, uploads[i])
			return nil
		})
	}
	_ = g.Wait()

	res := BatchResult{Files: statuses}
	for _, st := range statuses {
		if st.Ingested {
			res.Processed++
		}
	}
	return res
}

func (s *Service) ingestOne(ctx context.Context, scope tenancy.Scope, up Upload) FileStatus {
	st := FileStatus{Name: up.Name}

	sniff := up.Data
	if len(sniff) > sniffLen {
		sniff = sniff[:sniffLen]
	}
	route, err := domain.Triage(up.Name, up.ContentType, sniff)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Route = route

	ref := BlobKey(scope, up.Name)
	if s.Blobs != nil {
		if err := s.Blobs.Put(ctx, ref, up.ContentType, up.Data); err != nil {
			st.Error = fmt.Sprintf("store raw bytes: %v", err)
			return st
		}
	}
	st.StorageRef = ref

	file := &domain.File{
		ID:          uuid.New().String(),
		Name:        up.Name,
		StorageRef:  ref,
		ContentType: up.ContentType,
		Size:        int64(len(up.Data)),
		UploadedAt:  s.now(),
		Route:       route,
	}

	switch route {
	case domain.RouteText:
		result, err := s.Text.Extract(up.Name, up.ContentType, up.Data)
		if err != nil {
			// Parse failures reject the file outright; it never enters the
			// manifest.
			st.Error = err.Error()
			return st
		}
		file.Extraction = result
	case domain.RouteVision:
		result, err := s.extractVision(ctx, up)
		if err != nil {
			// The file stays in the manifest with a failure marker so the
			// quality report accounts for it instead of losing it.
			file.ExtractionError = err.Error()
			st.Error = err.Error()
		} else {
			file.Extraction = result
		}
	}

	if err := s.Manifest.Upsert(ctx, scope, file); err != nil {
		st.Error = err.Error()
		return st
	}
	st.Ingested = true
	return st
}

// extractVision runs the external call with a per-attempt timeout and a
// bounded number of tries. The manifest lock is never held here; the upsert
// happens only after extraction settles.
func (s *Service) extractVision(ctx context.Context, up Upload) (*domain.ExtractionResult, error) {
	if s.Vision == nil {
		return nil, domain.ErrVisionUnavailable
	}
	tries := s.VisionTries
	if tries <= 0 {
		tries = defaultVisionTries
	}
	timeout := s.VisionTimeout
	if timeout <= 0 {
		timeout = defaultVisionTimeout
	}

	var lastErr error
	for attempt := 0; attempt < tries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := s.Vision.Extract(callCtx, up.Name, up.Data)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrVisionUnavailable) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// RemoveFile deletes one file from the scope's manifest and its stored bytes.
func (s *Service) RemoveFile(ctx context.Context, scope tenancy.Scope, name string) error {
	ref := BlobKey(scope, name)
	if err := s.Manifest.Remove(ctx, scope, ref); err != nil {
		return err
	}
	if s.Blobs != nil {
		// The manifest is authoritative; blob cleanup is best effort.
		_ = s.Blobs.Remove(ctx, ref)
	}
	return nil
}

// ClearScope empties the scope's manifest and drops the stored bytes.
func (s *Service) ClearScope(ctx context.Context, scope tenancy.Scope) error {
	files, err := s.Manifest.List(ctx, scope)
	if err != nil {
		return err
	}
	if err := s.Manifest.Clear(ctx, scope); err != nil {
		return err
	}
	if s.Blobs != nil {
		for _, f := range files {
			_ = s.Blobs.Remove(ctx, f.StorageRef)
		}
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}
