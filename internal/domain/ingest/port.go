package ingest

import "context"

// TextExtractor parses machine-readable bytes locally. Implementations must
// not make network calls.
type TextExtractor interface {
	Extract(name, contentType string, data []byte) (*ExtractionResult, error)
}

// VisionExtractor sends document bytes to an external vision-capable model
// and decodes its structured response.
type VisionExtractor interface {
	Extract(ctx context.Context, name string, data []byte) (*ExtractionResult, error)
}

// BlobStore keeps the raw uploaded bytes under the manifest storage reference.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Remove(ctx context.Context, key string) error
}
