package ingest

import "time"

// Route is the triage decision for a file.
type Route string

const (
	// RouteText covers losslessly machine-parseable formats.
	RouteText Route = "text_route"
	// RouteVision covers PDFs and layout-sensitive documents.
	RouteVision Route = "vision_pdf"
)

// Table is a tabular block reconstructed from a document.
type Table struct {
	Title   string     `json:"title,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Provenance records how an extraction was produced.
type Provenance struct {
	Model      string `json:"model,omitempty"`
	Route      Route  `json:"route"`
	DurationMS int64  `json:"duration_ms"`
}

// ExtractionResult holds the normalized content pulled out of one file.
// It is rebuilt only by re-ingestion, never mutated in place.
type ExtractionResult struct {
	FullText   string     `json:"full_text"`
	Tables     []Table    `json:"tables,omitempty"`
	Provenance Provenance `json:"provenance"`
}

// File is a single ingested document inside a manifest. Immutable once
// ingested except for deletion; re-ingestion replaces the whole entry.
type File struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	StorageRef      string            `json:"storage_ref"`
	ContentType     string            `json:"content_type"`
	Size            int64             `json:"size"`
	UploadedAt      time.Time         `json:"uploaded_at"`
	Route           Route             `json:"route"`
	Extraction      *ExtractionResult `json:"extraction,omitempty"`
	ExtractionError string            `json:"extraction_error,omitempty"`
}

// ExtractionSucceeded reports whether the file carries usable extracted text.
func (f *File) ExtractionSucceeded() bool {
	return f.Extraction != nil && f.Extraction.FullText != ""
}
