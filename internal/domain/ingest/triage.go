package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Content types that parse losslessly without layout awareness.
var textTypes = map[string]struct{}{
	"text/plain":                {},
	"text/csv":                  {},
	"application/csv":           {},
	"text/tab-separated-values": {},
	"application/vnd.ms-excel":  {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
}

// Extension fallback for generic or absent declared types.
var extRoutes = map[string]Route{
	".txt":  RouteText,
	".csv":  RouteText,
	".tsv":  RouteText,
	".xlsx": RouteText,
	".xls":  RouteText,
	".pdf":  RouteVision,
}

var pdfMagic = []byte("%PDF-")

// Triage decides which extraction route a file needs. The decision is a pure
// function of declared type, filename and a leading-bytes sniff, so
// re-triaging the same file always yields the same route. A PDF magic number
// overrides whatever type the client declared.
func Triage(name, contentType string, sniff []byte) (Route, error) {
	if bytes.HasPrefix(sniff, pdfMagic) {
		return RouteVision, nil
	}

	ct := contentType
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))

	if ct == "application/pdf" || ct == "application/x-pdf" {
		return RouteVision, nil
	}
	if _, ok := textTypes[ct]; ok {
		return RouteText, nil
	}
	if ct == "" || ct == "application/octet-stream" {
		if route, ok := extRoutes[strings.ToLower(filepath.Ext(name))]; ok {
			return route, nil
		}
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, name, contentType)
}
