package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	appchat "github.com/bryanwahyu/docgate/internal/application/chat"
	appingest "github.com/bryanwahyu/docgate/internal/application/ingest"
	"github.com/bryanwahyu/docgate/internal/domain/analytics"
	"github.com/bryanwahyu/docgate/internal/domain/manifest"
	"github.com/bryanwahyu/docgate/internal/domain/persona"
	"github.com/bryanwahyu/docgate/internal/domain/tenancy"
	"github.com/bryanwahyu/docgate/internal/middleware"
)

const maxUploadBytes = 64 << 20

// Deps bundles everything the router serves.
type Deps struct {
	Ingest    *appingest.Service
	Chat      *appchat.Service
	Personas  *persona.Registry
	Analytics analytics.Repository
	Resolver  *tenancy.Resolver
	Health    map[string]middleware.HealthChecker

	APIKeys      map[string]string
	RateCapacity int
	RateRefill   int
}

type Router struct {
	deps Deps
}

func NewRouter(deps Deps) http.Handler {
	if deps.RateCapacity <= 0 {
		deps.RateCapacity = 30
	}
	if deps.RateRefill <= 0 {
		deps.RateRefill = 10
	}
	r := &Router{deps: deps}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Tenant-ID", "X-Persona"},
	}))
	mux.Use(middleware.MetricsMiddleware)

	mux.Get("/health", middleware.HealthHandler(deps.Health))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/api", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(deps.APIKeys))
		rt.Use(middleware.ResolveScope(deps.Resolver))
		rt.Use(middleware.LoggingMiddleware)
		rt.Use(middleware.RateLimitMiddleware(deps.RateCapacity, deps.RateRefill))

		rt.Post("/upload", r.wrap(r.handleUpload))
		rt.Get("/status", r.wrap(r.handleStatus))
		rt.Get("/quality-report", r.wrap(r.handleQualityReport))
		rt.Delete("/delete-file", r.wrap(r.handleDeleteFile))
		rt.Delete("/clear", r.wrap(r.handleClear))
		rt.Post("/chat", r.wrap(r.handleChat))
		rt.Get("/personas", r.wrap(r.handlePersonas))
		rt.Get("/personas/selection", r.wrap(r.handleGetSelection))
		rt.Put("/personas/selection", r.wrap(r.handlePutSelection))
		rt.Post("/analytics", r.wrap(r.handleRecordAnalytics))
		rt.Get("/analytics", r.wrap(r.handleListAnalytics))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			switch {
			case errors.Is(err, manifest.ErrScopeViolation):
				// Isolation violations must fail loudly, never be filtered.
				log.Printf("FATAL INVARIANT: %v", err)
				http.Error(w, err.Error(), http.StatusInternalServerError)
			case errors.Is(err, manifest.ErrFileNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			case errors.Is(err, tenancy.ErrInvalidScope):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, errBadRequest):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// POST /api/upload
// Multipart form; every file part is ingested. Per-file failures land in the
// response, they never abort the batch.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	scope := middleware.ScopeFromContext(req.Context())

	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		return fmt.Errorf("%w: parse multipart form: %v", errBadRequest, err)
	}
	if req.MultipartForm == nil || len(req.MultipartForm.File) == 0 {
		return fmt.Errorf("%w: no files in request", errBadRequest)
	}

	var uploads []appingest.Upload
	for _, headers := range req.MultipartForm.File {
		for _, fh := range headers {
			if err := middleware.ValidateFilename(fh.Filename); err != nil {
				return fmt.Errorf("%w: %v", errBadRequest, err)
			}
			f, err := fh.Open()
			if err != nil {
				return fmt.Errorf("open upload %s: %w", fh.Filename, err)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("read upload %s: %w", fh.Filename, err)
			}
			uploads = append(uploads, appingest.Upload{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	result := r.deps.Ingest.IngestBatch(req.Context(), scope, uploads)
	middleware.AddUploads(result.Processed)
	failures := 0
	for _, st := range result.Files {
		if st.Error != "" {
			failures++
		}
	}
	middleware.AddExtractionFailures(failures)

	files, err := r.deps.Ingest.Manifest.List(req.Context(), scope)
	if err != nil {
		return err
	}
	quality := manifest.ComputeQuality(files)

	return writeJSON(w, map[string]any{
		"processed": result.Processed,
		"files":     result.Files,
		"manifest":  files,
		"quality":   quality,
	})
}

// GET /api/status
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	scope := middleware.ScopeFromContext(req.Context())
	files, err := r.deps.Ingest.Manifest.List(req.Context(), scope)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"tenant":  scope.Tenant,
		"persona": scope.Persona,
		"count":   len(files),
		"files":   files,
	})
}

// GET /api/quality-report
func (r *Router) handleQualityReport(w http.ResponseWriter, req *http.Request) error {
	scope := middleware.ScopeFromContext(req.Context())
	files, err := r.deps.Ingest.Manifest.List(req.Context(), scope)
	if err != nil {
		return err
	}
	return writeJSON(w, manifest.ComputeQuality(files))
}

// DELETE /api/delete-file
// Body: {"name": "<original filename>"}
func (r *Router) handleDeleteFile(w http.ResponseWriter, req *http.Request) error {
	scope := middleware.ScopeFromContext(req.Context())

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	if err := middleware.ValidateFilename(body.Name); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	if err := r.deps.Ingest.RemoveFile(req.Context(), scope, body.Name); err != nil {
		return err
	}

	files, err := r.deps.Ingest.Manifest.List(req.Context(), scope)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"deleted":  body.Name,
		"count":    len(files),
		"manifest": files,
	})
}

// DELETE /api/clear
func (r *Router) handleClear(w http.ResponseWriter, req *http.Request) error {
	scope := middleware.ScopeFromContext(req.Context())
	if err := r.deps.Ingest.ClearScope(req.Context(), scope); err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"cleared": true})
}

// POST /api/chat
// Body: {"message": "...", "turns": [{"role": "...", "content": "..."}]}
func (r *Router) handleChat(w http.ResponseWriter, req *http.Request) error {
	scope := middleware.ScopeFromContext(req.Context())

	var body struct {
		Message string         `json:"message"`
		Turns   []appchat.Turn `json:"turns"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	if body.Message == "" {
		return fmt.Errorf("%w: message is required", errBadRequest)
	}

	start := time.Now()
	result, err := r.deps.Chat.Handle(req.Context(), scope, body.Message, body.Turns)
	if err != nil {
		return err
	}
	middleware.IncrementChatTurns()
	if result.Blocked {
		middleware.IncrementGuardrailBlocked()
	}

	// Usage bookkeeping is best effort; a failed write never fails the turn.
	if r.deps.Analytics != nil {
		_ = r.deps.Analytics.Save(req.Context(), &analytics.Event{
			ID:         uuid.New().String(),
			Tenant:     scope.Tenant,
			Persona:    scope.Persona,
			AIType:     "chat",
			DurationMS: time.Since(start).Milliseconds(),
			Success:    !result.Blocked,
			CreatedAt:  time.Now(),
		})
	}

	return writeJSON(w, result)
}

// GET /api/personas
func (r *Router) handlePersonas(w http.ResponseWriter, req *http.Request) error {
	scope := middleware.ScopeFromContext(req.Context())
	selected, err := r.deps.Personas.Selected(req.Context(), scope.Tenant)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"tenant":   scope.Tenant,
		"personas": r.deps.Personas.List(scope.Tenant),
		"selected": selected,
	})
}

// GET /api/personas/selection
func (r *Router) handleGetSelection(w http.ResponseWriter, req *http.Request) error {
	scope := middleware.ScopeFromContext(req.Context())
	selected, err := r.deps.Personas.Selected(req.Context(), scope.Tenant)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"tenant": scope.Tenant, "selected": selected})
}

// PUT /api/personas/selection
// Body: {"persona": "<name>"}
func (r *Router) handlePutSelection(w http.ResponseWriter, req *http.Request) error {
	scope := middleware.ScopeFromContext(req.Context())

	var body struct {
		Persona string `json:"persona"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	if err := middleware.ValidatePersonaName(body.Persona); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	p, err := r.deps.Personas.Select(req.Context(), scope.Tenant, body.Persona)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"tenant": scope.Tenant, "persona": p})
}

// POST /api/analytics
// Body: {"ai_type": "...", "duration_ms": 0, "success": true}
func (r *Router) handleRecordAnalytics(w http.ResponseWriter, req *http.Request) error {
	scope := middleware.ScopeFromContext(req.Context())

	var body struct {
		AIType     string `json:"ai_type"`
		DurationMS int64  `json:"duration_ms"`
		Success    bool   `json:"success"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	if body.AIType == "" {
		return fmt.Errorf("%w: ai_type is required", errBadRequest)
	}

	event := &analytics.Event{
		ID:         uuid.New().String(),
		Tenant:     scope.Tenant,
		Persona:    scope.Persona,
		AIType:     middleware.SanitizeString(body.AIType),
		DurationMS: body.DurationMS,
		Success:    body.Success,
		CreatedAt:  time.Now(),
	}
	if err := r.deps.Analytics.Save(req.Context(), event); err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"recorded": true, "event": event})
}

// GET /api/analytics?limit=20
func (r *Router) handleListAnalytics(w http.ResponseWriter, req *http.Request) error {
	scope := middleware.ScopeFromContext(req.Context())
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	events, err := r.deps.Analytics.Recent(req.Context(), scope.Tenant, scope.Persona, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"events": events})
}
