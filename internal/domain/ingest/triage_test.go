package ingest

import (
	"errors"
	"testing"
)

func TestTriageRoutes(t *testing.T) {
	cases := []struct {
		name        string
		filename    string
		contentType string
		sniff       []byte
		want        Route
	}{
		{"csv by type", "orders.csv", "text/csv", []byte("a,b\n1,2"), RouteText},
		{"csv alt type", "orders.csv", "application/csv", nil, RouteText},
		{"plain text", "notes.txt", "text/plain", []byte("hello"), RouteText},
		{"tsv by type", "data.tsv", "text/tab-separated-values", nil, RouteText},
		{"xlsx by type", "book.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil, RouteText},
		{"xls by type", "book.xls", "application/vnd.ms-excel", nil, RouteText},
		{"pdf by type", "report.pdf", "application/pdf", nil, RouteVision},
		{"pdf alt type", "report.pdf", "application/x-pdf", nil, RouteVision},
		{"type with charset", "notes.txt", "text/plain; charset=utf-8", nil, RouteText},
		{"octet stream csv ext", "orders.csv", "application/octet-stream", nil, RouteText},
		{"octet stream pdf ext", "report.pdf", "application/octet-stream", nil, RouteVision},
		{"no declared type txt ext", "notes.txt", "", nil, RouteText},
		{"uppercase extension", "DATA.CSV", "", nil, RouteText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Triage(tc.filename, tc.contentType, tc.sniff)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got route %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTriagePDFMagicOverridesDeclaredType(t *testing.T) {
	// A file claiming to be CSV but starting with the PDF magic number is a
	// PDF.
	got, err := Triage("orders.csv", "text/csv", []byte("%PDF-1.7\n..."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != RouteVision {
		t.Errorf("got route %q, want %q", got, RouteVision)
	}
}

func TestTriageUnsupportedFormat(t *testing.T) {
	cases := []struct {
		filename    string
		contentType string
	}{
		{"photo.png", "image/png"},
		{"archive.zip", "application/zip"},
		{"binary.bin", "application/octet-stream"},
		{"noext", ""},
		{"page.html", "text/html"},
	}
	for _, tc := range cases {
		_, err := Triage(tc.filename, tc.contentType, nil)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s (%s): got %v, want ErrUnsupportedFormat", tc.filename, tc.contentType, err)
		}
	}
}

func TestTriageIsDeterministic(t *testing.T) {
	first, err := Triage("report.pdf", "application/octet-stream", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := Triage("report.pdf", "application/octet-stream", []byte("%PDF-1.4"))
		if err != nil || got != first {
			t.Fatalf("run %d: got (%q, %v), want (%q, nil)", i, got, err, first)
		}
	}
}
