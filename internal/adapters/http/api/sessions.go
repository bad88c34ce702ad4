// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/telestra/telestra/internal/domain/model"
)

// SessionsHandler handles recording lifecycle requests.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a new recording handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// startRequest is the body for POST /sessions.
type startRequest struct {
	VideoID    string           `json:"videoId"`
	Categories model.Categories `json:"categories,omitempty"`
}

func (s startRequest) validate() error {
	if strings.TrimSpace(s.VideoID) == "" {
		return errors.New("missing videoId")
	}
	return nil
}

type startResponse struct {
	SessionID string `json:"sessionId"`
	StartTime int64  `json:"startTime"`
}

// HandleStart handles POST /sessions requests.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_recording"
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	session, err := h.deps.StartRecording(r.Context(), req.VideoID, req.Categories)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, startResponse{SessionID: session.ID, StartTime: session.StartTime})
}

// eventRequest is the body for POST /sessions/{sessionID}/events. Fields
// beyond type are interpreted per event type.
type eventRequest struct {
	Type   string             `json:"type"`
	Action string             `json:"action,omitempty"`
	SeekTo int64              `json:"seekTo,omitempty"`
	Rate   float64            `json:"rate,omitempty"`
	Key    string             `json:"key,omitempty"`
	Label  string             `json:"label,omitempty"`
	Stroke *model.DrawingPath `json:"stroke,omitempty"`
}

// toEvent translates the wire shape into a typed event for the recorder.
func (e eventRequest) toEvent() (model.EventType, model.EventPayload, error) {
	eventType := model.EventType(e.Type)
	switch eventType {
	case model.EventVideo:
		switch e.Action {
		case model.ActionPlay, model.ActionPause:
			return eventType, model.EventPayload{Action: e.Action}, nil
		case model.ActionSeek:
			return eventType, model.EventPayload{Action: e.Action, SeekTo: e.SeekTo}, nil
		case model.ActionRate:
			if e.Rate <= 0 {
				return "", model.EventPayload{}, errors.New("rate must be positive")
			}
			return eventType, model.EventPayload{Action: e.Action, Rate: e.Rate}, nil
		case model.ActionShortcut:
			if e.Key == "" {
				return "", model.EventPayload{}, errors.New("missing key")
			}
			return eventType, model.EventPayload{Action: e.Action, Key: e.Key}, nil
		default:
			return "", model.EventPayload{}, errors.New("unknown video action")
		}
	case model.EventAnnotation:
		switch e.Action {
		case model.ActionDraw:
			if e.Stroke == nil {
				return "", model.EventPayload{}, errors.New("missing stroke")
			}
			return eventType, model.EventPayload{Action: e.Action, Stroke: e.Stroke}, nil
		case model.ActionClear:
			return eventType, model.EventPayload{Action: e.Action}, nil
		default:
			return "", model.EventPayload{}, errors.New("unknown annotation action")
		}
	case model.EventMarker:
		return eventType, model.EventPayload{Label: e.Label}, nil
	default:
		return "", model.EventPayload{}, errors.New("unknown event type")
	}
}

// HandleEvent handles POST /sessions/{sessionID}/events requests.
func (h *SessionsHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_event"
	sessionID := chi.URLParam(r, "sessionID")
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	eventType, payload, err := req.toEvent()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	event, err := h.deps.RecordEvent(r.Context(), sessionID, eventType, payload)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// HandleStop handles POST /sessions/{sessionID}/stop requests.
func (h *SessionsHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	const op = "api.stop_recording"
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.deps.StopRecording(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// categoryRequest is the body for PUT /sessions/{sessionID}/categories/{categoryID}.
type categoryRequest struct {
	Rating int `json:"rating"`
}

// HandleCategory handles PUT /sessions/{sessionID}/categories/{categoryID}
// requests. A zero rating removes the category from the session.
func (h *SessionsHandler) HandleCategory(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_category"
	sessionID := chi.URLParam(r, "sessionID")
	categoryID := chi.URLParam(r, "categoryID")
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Rating < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.SetCategory(r.Context(), sessionID, categoryID, req.Rating); err != nil {
		writeDomainError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
