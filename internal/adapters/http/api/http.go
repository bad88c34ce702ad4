// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/telestra/telestra/internal/adapters/store"
	service "github.com/telestra/telestra/internal/app"
	"github.com/telestra/telestra/internal/domain/model"
	"github.com/telestra/telestra/internal/recorder"
	"github.com/telestra/telestra/internal/replay/scheduler"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Recording lifecycle.
	StartRecording(ctx context.Context, videoID string, categories model.Categories) (*model.FeedbackSession, error)
	RecordEvent(ctx context.Context, sessionID string, eventType model.EventType, payload model.EventPayload) (model.TimelineEvent, error)
	StopRecording(ctx context.Context, sessionID string) (*model.FeedbackSession, error)
	SetCategory(ctx context.Context, sessionID, categoryID string, rating int) error

	// Replay lifecycle.
	StartReplay(ctx context.Context, sessionID string) error
	StopReplay(ctx context.Context, sessionID string) error
	ReplayStatus(ctx context.Context, sessionID string) (scheduler.Status, error)

	// Session library.
	ListSessions(ctx context.Context) ([]store.Info, error)
	GetSession(ctx context.Context, id string) ([]byte, error)
	DeleteSession(ctx context.Context, id string) error
}

// Server wires HTTP routes for the recording and replay API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	sessionHandler *SessionsHandler
	replayHandler  *ReplayHandler
	libraryHandler *LibraryHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		sessionHandler: NewSessionsHandler(deps),
		replayHandler:  NewReplayHandler(deps),
		libraryHandler: NewLibraryHandler(deps),
	}
}

// Register attaches all HTTP routes to the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", MetricsMiddleware(s.sessionHandler.HandleStart, "sessions_start"))
		r.Get("/", MetricsMiddleware(s.libraryHandler.HandleList, "sessions_list"))

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", MetricsMiddleware(s.libraryHandler.HandleGet, "sessions_get"))
			r.Delete("/", MetricsMiddleware(s.libraryHandler.HandleDelete, "sessions_delete"))
			r.Post("/events", MetricsMiddleware(s.sessionHandler.HandleEvent, "sessions_event"))
			r.Post("/stop", MetricsMiddleware(s.sessionHandler.HandleStop, "sessions_stop"))
			r.Put("/categories/{categoryID}", MetricsMiddleware(s.sessionHandler.HandleCategory, "sessions_category"))
			r.Post("/replay", MetricsMiddleware(s.replayHandler.HandleStart, "replay_start"))
			r.Delete("/replay", MetricsMiddleware(s.replayHandler.HandleStop, "replay_stop"))
			r.Get("/replay", MetricsMiddleware(s.replayHandler.HandleStatus, "replay_status"))
		})
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain sentinel errors to HTTP statuses so handlers
// stay free of per-error switch statements.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrNoReplay):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, recorder.ErrAlreadyRecording),
		errors.Is(err, recorder.ErrNotRecording),
		errors.Is(err, scheduler.ErrAlreadyPlaying),
		errors.Is(err, scheduler.ErrNotArmed),
		errors.Is(err, scheduler.ErrCompleted),
		errors.Is(err, service.ErrSessionBusy):
		writeError(w, http.StatusConflict, "conflict", Wrap(op, err))
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
