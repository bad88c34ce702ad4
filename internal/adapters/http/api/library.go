// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/telestra/telestra/internal/adapters/store"
)

// LibraryHandler handles persisted-session library requests.
type LibraryHandler struct {
	deps Dependencies
}

// NewLibraryHandler creates a new library handler.
func NewLibraryHandler(deps Dependencies) *LibraryHandler {
	return &LibraryHandler{deps: deps}
}

// HandleList handles GET /sessions requests.
func (h *LibraryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_sessions"
	infos, err := h.deps.ListSessions(r.Context())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	if infos == nil {
		infos = []store.Info{}
	}
	writeJSON(w, http.StatusOK, infos)
}

// HandleGet handles GET /sessions/{sessionID} requests. The stored payload
// is already the serialized session, so it is returned verbatim.
func (h *LibraryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	sessionID := chi.URLParam(r, "sessionID")
	payload, err := h.deps.GetSession(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// HandleDelete handles DELETE /sessions/{sessionID} requests.
func (h *LibraryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_session"
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.deps.DeleteSession(r.Context(), sessionID); err != nil {
		writeDomainError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
