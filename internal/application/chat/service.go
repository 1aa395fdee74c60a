package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/bryanwahyu/docgate/internal/domain/guardrail"
	"github.com/bryanwahyu/docgate/internal/domain/ingest"
	"github.com/bryanwahyu/docgate/internal/domain/manifest"
	"github.com/bryanwahyu/docgate/internal/domain/tenancy"
)

const (
	maxContextFiles = 12
	maxExcerptRunes = 1200
	maxTableRows    = 20
)

// Turn is one prior exchange supplied by the caller.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer produces the downstream model reply for an assembled context.
type Completer interface {
	Complete(ctx context.Context, system string, turns []Turn, message string) (string, error)
}

// Result is the outcome of one gated chat turn.
type Result struct {
	Blocked  bool               `json:"blocked"`
	Decision guardrail.Decision `json:"guardrail"`
	Context  string             `json:"context,omitempty"`
	Reply    string             `json:"reply,omitempty"`
}

// Service gates every message through the classifier before any manifest
// content is read or any model call happens. A blocked message short-circuits
// with the decision's reason as the user-facing reply.
type Service struct {
	Manifest   manifest.Store
	Classifier *guardrail.Classifier
	Completer  Completer // nil: the assembled context is returned without a model call
}

// Handle runs one chat turn for the scope. Only the cheap file count is read
// before classification; manifest contents are listed only for allowed
// messages.
func (s *Service) Handle(ctx context.Context, scope tenancy.Scope, message string, turns []Turn) (Result, error) {
	count, err := s.Manifest.Count(ctx, scope)
	if err != nil {
		return Result{}, err
	}

	decision := s.Classifier.Classify(message, guardrail.Context{FileCount: count})
	if !decision.Allowed {
		return Result{Blocked: true, Decision: decision, Reply: decision.Reason}, nil
	}

	files, err := s.Manifest.List(ctx, scope)
	if err != nil {
		return Result{}, err
	}
	quality := manifest.ComputeQuality(files)
	assembled := Assemble(scope, files, quality)

	res := Result{Decision: decision, Context: assembled}
	if s.Completer == nil {
		return res, nil
	}
	reply, err := s.Completer.Complete(ctx, assembled, turns, message)
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	res.Reply = reply
	return res, nil
}

// Assemble renders the bounded model context: manifest contents plus the
// quality summary, capped so an oversized manifest cannot blow the window.
// Only the given scope's files ever appear here.
func Assemble(scope tenancy.Scope, files []*ingest.File, q manifest.QualityReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a business data assistant for workspace %q, persona %q. Answer only from the uploaded documents below.\n", scope.Tenant, scope.Persona)
	fmt.Fprintf(&b, "Extraction quality: %d/%d files extracted, score %.2f.\n", q.SucceededFiles, q.TotalFiles, q.Score)

	shown := len(files)
	if shown > maxContextFiles {
		shown = maxContextFiles
	}
	for _, f := range files[:shown] {
		fmt.Fprintf(&b, "\n--- %s (%s)\n", f.Name, f.Route)
		if f.Extraction == nil {
			if f.ExtractionError != "" {
				fmt.Fprintf(&b, "[extraction failed: %s]\n", f.ExtractionError)
			}
			continue
		}
		text := f.Extraction.FullText
		if runes := []rune(text); len(runes) > maxExcerptRunes {
			text = string(runes[:maxExcerptRunes]) + " [truncated]"
		}
		b.WriteString(text)
		b.WriteString("\n")
		for _, t := range f.Extraction.Tables {
			if t.Title != "" {
				fmt.Fprintf(&b, "[table] %s\n", t.Title)
			}
			b.WriteString(strings.Join(t.Headers, " | "))
			b.WriteString("\n")
			for ri, row := range t.Rows {
				if ri >= maxTableRows {
					fmt.Fprintf(&b, "[%d more rows]\n", len(t.Rows)-ri)
					break
				}
				b.WriteString(strings.Join(row, " | "))
				b.WriteString("\n")
			}
		}
	}
	if len(files) > shown {
		fmt.Fprintf(&b, "\n[%d more files omitted]\n", len(files)-shown)
	}
	return b.String()
}
