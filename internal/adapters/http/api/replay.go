// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ReplayHandler handles replay lifecycle requests.
type ReplayHandler struct {
	deps Dependencies
}

// NewReplayHandler creates a new replay handler.
func NewReplayHandler(deps Dependencies) *ReplayHandler {
	return &ReplayHandler{deps: deps}
}

// HandleStart handles POST /sessions/{sessionID}/replay requests. It loads
// the persisted session and starts playback.
func (h *ReplayHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_replay"
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.deps.StartReplay(r.Context(), sessionID); err != nil {
		writeDomainError(w, op, err)
		return
	}
	status, err := h.deps.ReplayStatus(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, status)
}

// HandleStop handles DELETE /sessions/{sessionID}/replay requests.
func (h *ReplayHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	const op = "api.stop_replay"
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.deps.StopReplay(r.Context(), sessionID); err != nil {
		writeDomainError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStatus handles GET /sessions/{sessionID}/replay requests.
func (h *ReplayHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.replay_status"
	sessionID := chi.URLParam(r, "sessionID")
	status, err := h.deps.ReplayStatus(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
