package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/docgate/internal/domain/ingest"
	"github.com/bryanwahyu/docgate/internal/domain/tenancy"
	"github.com/bryanwahyu/docgate/internal/infra/extract"
	"github.com/bryanwahyu/docgate/internal/infra/memstore"
)

type fakeVision struct {
	mu    sync.Mutex
	calls int
	errs  []error // consumed per call; nil entry means success
}

func (v *fakeVision) Extract(ctx context.Context, name string, data []byte) (*domain.ExtractionResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var err error
	if v.calls < len(v.errs) {
		err = v.errs[v.calls]
	}
	v.calls++
	if err != nil {
		return nil, err
	}
	return &domain.ExtractionResult{
		FullText:   "extracted " + name,
		Provenance: domain.Provenance{Model: "fake", Route: domain.RouteVision},
	}, nil
}

type fakeBlobs struct {
	mu   sync.Mutex
	puts map[string][]byte
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{puts: make(map[string][]byte)} }

func (b *fakeBlobs) Put(ctx context.Context, key, contentType string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts[key] = data
	return nil
}

func (b *fakeBlobs) Remove(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.puts, key)
	return nil
}

func newService(vision domain.VisionExtractor) (*Service, *memstore.Store, *fakeBlobs) {
	store := memstore.NewStore()
	blobs := newFakeBlobs()
	svc := &Service{
		Manifest: store,
		Blobs:    blobs,
		Text:     extract.New(),
		Vision:   vision,
	}
	return svc, store, blobs
}

func testScope() tenancy.Scope {
	return tenancy.Scope{Tenant: "acme", Persona: "sales"}
}

func TestIngestBatchTextFile(t *testing.T) {
	ctx := context.Background()
	svc, store, blobs := newService(nil)
	sc := testScope()

	res := svc.IngestBatch(ctx, sc, []Upload{
		{Name: "orders.csv", ContentType: "text/csv", Data: []byte("po,amount\nSG-001,1200\n")},
	})
	require.Len(t, res.Files, 1)
	assert.Equal(t, 1, res.Processed)
	assert.True(t, res.Files[0].Ingested)
	assert.Empty(t, res.Files[0].Error)
	assert.Equal(t, "acme/sales/orders.csv", res.Files[0].StorageRef)

	files, err := store.List(ctx, sc)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, files[0].ExtractionSucceeded())
	assert.Contains(t, blobs.puts, "acme/sales/orders.csv")
}

func TestIngestBatchParseFailureRejectsFile(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(nil)
	sc := testScope()

	res := svc.IngestBatch(ctx, sc, []Upload{
		{Name: "good.csv", ContentType: "text/csv", Data: []byte("a,b\n1,2\n")},
		{Name: "bad.csv", ContentType: "text/csv", Data: []byte("a,\"b\n1,2")},
	})
	assert.Equal(t, 1, res.Processed)

	byName := map[string]FileStatus{}
	for _, st := range res.Files {
		byName[st.Name] = st
	}
	assert.True(t, byName["good.csv"].Ingested)
	assert.False(t, byName["bad.csv"].Ingested)
	assert.Contains(t, byName["bad.csv"].Error, "bad.csv")

	// The rejected file never enters the manifest; its sibling does.
	files, err := store.List(ctx, sc)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "good.csv", files[0].Name)
}

func TestIngestBatchUnsupportedFormat(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(nil)
	sc := testScope()

	res := svc.IngestBatch(ctx, sc, []Upload{
		{Name: "photo.png", ContentType: "image/png", Data: []byte{0x89, 0x50}},
	})
	assert.Equal(t, 0, res.Processed)
	assert.Contains(t, res.Files[0].Error, "unsupported")

	n, err := store.Count(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIngestBatchVisionFailureKeepsFileWithMarker(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("model overloaded")
	vision := &fakeVision{errs: []error{boom, boom}}
	svc, store, _ := newService(vision)
	svc.VisionTries = 2
	sc := testScope()

	res := svc.IngestBatch(ctx, sc, []Upload{
		{Name: "scan.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
	})
	// Ingested despite the failed extraction.
	assert.Equal(t, 1, res.Processed)
	assert.True(t, res.Files[0].Ingested)
	assert.Contains(t, res.Files[0].Error, "model overloaded")
	assert.Equal(t, 2, vision.calls)

	files, err := store.List(ctx, sc)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.False(t, files[0].ExtractionSucceeded())
	assert.Equal(t, "model overloaded", files[0].ExtractionError)
}

func TestIngestBatchVisionRetrySucceeds(t *testing.T) {
	ctx := context.Background()
	vision := &fakeVision{errs: []error{errors.New("transient"), nil}}
	svc, store, _ := newService(vision)
	svc.VisionTries = 3
	sc := testScope()

	res := svc.IngestBatch(ctx, sc, []Upload{
		{Name: "scan.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
	})
	assert.True(t, res.Files[0].Ingested)
	assert.Empty(t, res.Files[0].Error)
	assert.Equal(t, 2, vision.calls)

	files, err := store.List(ctx, sc)
	require.NoError(t, err)
	assert.True(t, files[0].ExtractionSucceeded())
}

func TestIngestBatchNoVisionConfigured(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(nil)
	sc := testScope()

	res := svc.IngestBatch(ctx, sc, []Upload{
		{Name: "scan.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
	})
	assert.True(t, res.Files[0].Ingested)
	assert.Contains(t, res.Files[0].Error, "vision extractor unavailable")

	files, err := store.List(ctx, sc)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, domain.RouteVision, files[0].Route)
	assert.False(t, files[0].ExtractionSucceeded())
}

func TestIngestBatchVisionUnavailableStopsRetrying(t *testing.T) {
	ctx := context.Background()
	vision := &fakeVision{errs: []error{domain.ErrVisionUnavailable, domain.ErrVisionUnavailable}}
	svc, _, _ := newService(vision)
	svc.VisionTries = 5

	svc.IngestBatch(ctx, testScope(), []Upload{
		{Name: "scan.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
	})
	assert.Equal(t, 1, vision.calls)
}

func TestIngestBatchConcurrent(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(nil)
	svc.Concurrency = 8
	sc := testScope()

	var uploads []Upload
	for i := 0; i < 20; i++ {
		uploads = append(uploads, Upload{
			Name:        fmt.Sprintf("f%02d.csv", i),
			ContentType: "text/csv",
			Data:        []byte("a,b\n1,2\n"),
		})
	}
	res := svc.IngestBatch(ctx, sc, uploads)
	assert.Equal(t, 20, res.Processed)

	n, err := store.Count(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestReIngestReplacesEntry(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(nil)
	sc := testScope()

	svc.IngestBatch(ctx, sc, []Upload{
		{Name: "orders.csv", ContentType: "text/csv", Data: []byte("a\n1\n")},
	})
	svc.IngestBatch(ctx, sc, []Upload{
		{Name: "orders.csv", ContentType: "text/csv", Data: []byte("a\n2\n")},
	})

	files, err := store.List(ctx, sc)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Extraction.FullText, "2")
}

func TestRemoveFile(t *testing.T) {
	ctx := context.Background()
	svc, store, blobs := newService(nil)
	sc := testScope()

	svc.IngestBatch(ctx, sc, []Upload{
		{Name: "orders.csv", ContentType: "text/csv", Data: []byte("a\n1\n")},
	})
	require.NoError(t, svc.RemoveFile(ctx, sc, "orders.csv"))

	n, err := store.Count(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NotContains(t, blobs.puts, "acme/sales/orders.csv")
}

func TestClearScope(t *testing.T) {
	ctx := context.Background()
	svc, store, blobs := newService(nil)
	sc := testScope()

	svc.IngestBatch(ctx, sc, []Upload{
		{Name: "a.csv", ContentType: "text/csv", Data: []byte("a\n1\n")},
		{Name: "b.csv", ContentType: "text/csv", Data: []byte("a\n1\n")},
	})
	require.NoError(t, svc.ClearScope(ctx, sc))

	n, err := store.Count(ctx, sc)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, blobs.puts)
}

func TestBlobKey(t *testing.T) {
	sc := tenancy.Scope{Tenant: "acme", Persona: "support"}
	assert.Equal(t, "acme/support/report.pdf", BlobKey(sc, "report.pdf"))
}
