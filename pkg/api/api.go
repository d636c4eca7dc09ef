// Package api exposes the research pipeline and the memory service over
// HTTP, using chi for routing.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
	"github.com/lzrong0203/newsspark/pkg/memory"
	"github.com/lzrong0203/newsspark/pkg/model"
	"github.com/lzrong0203/newsspark/pkg/observability"
	"github.com/lzrong0203/newsspark/pkg/orchestrator"
)

// Server wires the Orchestrator and the Memory Manager/Feedback
// Processor/Personalization Engine onto a chi router.
type Server struct {
	orchestrator    *orchestrator.Orchestrator
	memory          *memory.Manager
	feedback        *memory.FeedbackProcessor
	personalization *memory.PersonalizationEngine
	logger          *slog.Logger
	router          chi.Router
	metrics         *observability.Metrics
}

// Option configures optional Server behavior that most callers, and every
// existing test, can leave at its zero value.
type Option func(*Server)

// WithMetrics mounts a Prometheus /metrics endpoint and records per-request
// observations and spans through m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func New(
	orch *orchestrator.Orchestrator,
	mem *memory.Manager,
	fp *memory.FeedbackProcessor,
	pe *memory.PersonalizationEngine,
	logger *slog.Logger,
	opts ...Option,
) *Server {
	s := &Server{orchestrator: orch, memory: mem, feedback: fp, personalization: pe, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) Router() chi.Router { return s.router }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(observability.HTTPMiddleware(s.metrics))

	r.Get("/metrics", s.metrics.Handler().ServeHTTP)

	r.Post("/v1/research", s.handleRunResearch)

	r.Route("/v1/users/{userID}", func(r chi.Router) {
		r.Get("/", s.handleGetOrCreateUser)
		r.Patch("/preferences", s.handleUpdatePreferences)
		r.Patch("/topics/{topic}", s.handleUpdateTopicPreference)
		r.Post("/feedback", s.handleSubmitFeedback)
		r.Post("/feedback/process", s.handleProcessFeedback)
		r.Post("/personalize", s.handleGetPersonalizedPrompt)
		r.Get("/export", s.handleExportUserData)
		r.Delete("/", s.handleDeleteUserData)
	})

	return r
}

func (s *Server) handleRunResearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		model.ResearchRequest
		ExtraURLs []string `json:"extra_urls"`
		Platforms []string `json:"platforms"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	req := body.ResearchRequest
	req.SetDefaults()
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	platforms := body.Platforms
	if len(platforms) == 0 {
		platforms = []string{"tiktok", "reels", "shorts"}
	}

	state := s.orchestrator.Run(r.Context(), req, body.ExtraURLs, platforms)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetOrCreateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	profile, err := s.memory.GetOrCreateUser(r.Context(), userID)
	if !s.handleMemoryErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// preferencesPatch mirrors update_preferences' whitelist: any field the
// caller omits from the request body is left untouched; any key outside
// this set is silently ignored by virtue of not being decoded at all.
type preferencesPatch struct {
	DisplayName    *string  `json:"display_name"`
	Language       *string  `json:"language"`
	PreferredStyle *string  `json:"preferred_style"`
	AnalysisDepth  *string  `json:"analysis_depth"`
	BlockedSources []string `json:"blocked_sources"`
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var patch preferencesPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	profile, err := s.memory.GetOrCreateUser(r.Context(), userID)
	if !s.handleMemoryErr(w, err) {
		return
	}

	if patch.DisplayName != nil {
		profile.DisplayName = *patch.DisplayName
	}
	if patch.Language != nil {
		profile.Language = *patch.Language
	}
	if patch.PreferredStyle != nil {
		profile.PreferredStyle = model.PreferredStyle(*patch.PreferredStyle)
	}
	if patch.AnalysisDepth != nil {
		profile.AnalysisDepth = model.AnalysisDepth(*patch.AnalysisDepth)
	}
	if patch.BlockedSources != nil {
		profile.BlockedSources = patch.BlockedSources
	}

	if err := s.memory.UpdateUserProfile(r.Context(), profile); !s.handleMemoryErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateTopicPreference(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	topic := chi.URLParam(r, "topic")
	var body struct {
		InterestLevel float64 `json:"interest_level"`
		Notes         string  `json:"notes"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	err := s.memory.UpdateTopicPreference(r.Context(), userID, topic, body.InterestLevel, body.Notes)
	if !s.handleMemoryErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"topic": topic})
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var fb model.UserFeedback
	if !decodeJSON(w, r, &fb) {
		return
	}
	fb.UserID = userID
	fb.FeedbackID = uuid.NewString()
	fb.CreatedAt = time.Now()

	if err := s.memory.StoreFeedback(r.Context(), &fb); !s.handleMemoryErr(w, err) {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"feedback_id": fb.FeedbackID})
}

func (s *Server) handleProcessFeedback(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	count, err := s.feedback.ProcessAllPending(r.Context(), userID, func(fb model.UserFeedback, err error) {
		s.logger.Warn("feedback processing failed", "feedback_id", fb.FeedbackID, "error", err)
	})
	if !s.handleMemoryErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"processed": count})
}

func (s *Server) handleGetPersonalizedPrompt(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var body struct {
		BasePrompt   string `json:"base_prompt"`
		CurrentInput string `json:"current_input"`
		AgentKind    string `json:"agent_kind"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	prompt, err := s.personalization.GetPersonalizedPrompt(r.Context(), userID, body.BasePrompt, body.CurrentInput, body.AgentKind)
	if !s.handleMemoryErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

func (s *Server) handleExportUserData(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	data, err := s.memory.ExportUserData(r.Context(), userID)
	if !s.handleMemoryErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleDeleteUserData(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	err := s.memory.DeleteUserData(r.Context(), userID)
	if !s.handleMemoryErr(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleMemoryErr writes the appropriate response for a Memory Manager
// error and returns false if it did, so callers can `if !ok { return }`.
func (s *Server) handleMemoryErr(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}
	var invalidUser *newssparkerrors.InvalidUserId
	if errors.As(err, &invalidUser) {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	s.logger.Error("memory service error", "error", err)
	writeError(w, http.StatusInternalServerError, err)
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
