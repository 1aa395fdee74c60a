package ingest

import "errors"

var (
	// ErrUnsupportedFormat means triage could not classify a file.
	// The file is rejected; siblings in the same batch proceed.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrParse means local text extraction failed on the file content.
	ErrParse = errors.New("parse error")

	// ErrEmptyVisionResponse means the vision model returned no textual content.
	ErrEmptyVisionResponse = errors.New("empty vision response")

	// ErrInvalidVisionJSON means the vision model returned text that is not
	// valid JSON under the extraction contract.
	ErrInvalidVisionJSON = errors.New("invalid vision json")

	// ErrVisionUnavailable means no vision credentials were configured.
	// Surfaced once at startup; vision-routed files are marked failed
	// without any network attempt.
	ErrVisionUnavailable = errors.New("vision extractor unavailable")
)
