// Package stubapi implements an in-memory LinkForty API for local
// development and integration tests: install reporting, event ingestion,
// click resolution and link creation, with no external dependencies.
package stubapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/LinkForty/linkforty-go/internal/model"
)

// Server holds the in-memory state behind the stub endpoints.
type Server struct {
	logger  *slog.Logger
	apiKey  string
	baseURL string

	mu      sync.Mutex
	links   map[string]*model.LinkData
	pending *model.LinkData
	events  []StoredEvent
}

// StoredEvent is an accepted event record with its assigned id.
type StoredEvent struct {
	ID string `json:"id"`
	model.EventRecord
}

// New creates a stub server. apiKey guards link creation when non-empty;
// baseURL is used to shape created short URLs.
func New(logger *slog.Logger, apiKey, baseURL string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:  logger.With("component", "stubapi"),
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		links:   make(map[string]*model.LinkData),
	}
}

// SeedLink registers link data under its short code so resolution can
// find it. Template links are seeded as "template/code".
func (s *Server) SeedLink(key string, data *model.LinkData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[key] = data
}

// SetPendingClick makes the next install report come back attributed to
// data, mimicking a matched click within the attribution window.
func (s *Server) SetPendingClick(data *model.LinkData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = data
}

// Events returns a snapshot of the accepted event records.
func (s *Server) Events() []StoredEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StoredEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Router builds the chi router serving the stub endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Post("/api/sdk/v1/install", s.handleInstall)
	r.Post("/api/sdk/v1/event", s.handleEvent)
	r.Get("/api/sdk/v1/resolve/{code}", s.handleResolve)
	r.Get("/api/sdk/v1/resolve/{template}/{code}", s.handleResolveTemplate)
	r.Post("/api/sdk/v1/links", s.handleCreateLink)
	r.Post("/api/links", s.handleCreateLink)

	return r
}

// handleHealthz is a liveness probe.
// GET /healthz
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInstall accepts a fingerprint and answers with an attribution
// result: attributed when a pending click was staged, organic otherwise.
// POST /api/sdk/v1/install
func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	var fp model.FingerprintRecord
	if err := json.NewDecoder(r.Body).Decode(&fp); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fingerprint payload"})
		return
	}

	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	result := model.AttributionResult{
		InstallID:      uuid.NewString(),
		MatchedFactors: []string{},
	}
	if pending != nil {
		result.Attributed = true
		result.ConfidenceScore = 95
		result.MatchedFactors = []string{"timezone", "language", "screen"}
		result.LinkData = pending
	}

	s.logger.Info("install reported",
		"install_id", result.InstallID,
		"attributed", result.Attributed,
		"platform", fp.Platform,
	)
	s.writeJSON(w, http.StatusOK, result)
}

// handleEvent accepts an event record and assigns it a ULID.
// POST /api/sdk/v1/event
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var record model.EventRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event payload"})
		return
	}
	if strings.TrimSpace(record.EventName) == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "eventName is required"})
		return
	}

	stored := StoredEvent{ID: ulid.Make().String(), EventRecord: record}
	s.mu.Lock()
	s.events = append(s.events, stored)
	s.mu.Unlock()

	s.logger.Info("event accepted", "id", stored.ID, "event", record.EventName)
	s.writeJSON(w, http.StatusOK, map[string]string{"id": stored.ID, "status": "accepted"})
}

// handleResolve resolves a single-segment short code.
// GET /api/sdk/v1/resolve/{code}
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	s.resolve(w, r, chi.URLParam(r, "code"))
}

// handleResolveTemplate resolves a template-style two-segment slug.
// GET /api/sdk/v1/resolve/{template}/{code}
func (s *Server) handleResolveTemplate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "template") + "/" + chi.URLParam(r, "code")
	s.resolve(w, r, key)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request, key string) {
	s.mu.Lock()
	data, ok := s.links[key]
	s.mu.Unlock()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown short code"})
		return
	}
	s.logger.Info("link resolved",
		"key", key,
		"fingerprinted", r.URL.Query().Get("fp_tz") != "",
	)
	s.writeJSON(w, http.StatusOK, data)
}

// handleCreateLink creates a link behind bearer-key auth.
// POST /api/sdk/v1/links and POST /api/links
func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	if s.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+s.apiKey {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing or invalid API key"})
		return
	}

	var input model.CreateLinkInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid link payload"})
		return
	}
	if input.TargetURL == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "targetUrl is required"})
		return
	}

	code := input.Alias
	if code == "" {
		code = strings.ToLower(ulid.Make().String()[:8])
	}
	key := code
	if input.TemplateID != "" {
		key = input.TemplateID + "/" + code
	}

	s.mu.Lock()
	s.links[key] = &model.LinkData{
		ShortCode:        code,
		FallbackURL:      input.TargetURL,
		UTMParameters:    input.UTMParameters,
		CustomParameters: input.CustomParameters,
	}
	s.mu.Unlock()

	s.logger.Info("link created", "short_code", code, "template", input.TemplateID)
	s.writeJSON(w, http.StatusOK, model.CreatedLink{
		ShortCode: code,
		ShortURL:  s.baseURL + "/" + key,
		TargetURL: input.TargetURL,
	})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}
