// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer and the check-in hub.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nandaprad/tixly/internal/auth"
	"github.com/nandaprad/tixly/internal/checkin"
	"github.com/nandaprad/tixly/internal/model"
	"github.com/nandaprad/tixly/internal/repository"
	"github.com/nandaprad/tixly/internal/service"
)

// EventHandler holds all HTTP handlers for the event check-in API.
type EventHandler struct {
	svc *service.EventService
	hub *checkin.Hub
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, hub *checkin.Hub) *EventHandler {
	return &EventHandler{svc: svc, hub: hub}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// session returns the organizer session. The auth middleware guarantees
// its presence on protected routes.
func session(r *http.Request) *auth.Session {
	s, _ := auth.FromContext(r.Context())
	return s
}

// ─── Event handlers ───────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), session(r).UserID, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context(), session(r).UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.EventWithCount{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), session(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), session(r).UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateStatus handles PATCH /events/{id}/status — the quick toggle.
// Only the affected event's check-in session is dropped afterwards; no
// full reload of anything else.
func (h *EventHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.svc.UpdateStatus(r.Context(), session(r).UserID, id, req.Status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]model.EventStatus{"status": req.Status})
}

// DeleteEvent handles DELETE /events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteEvent(r.Context(), session(r).UserID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	h.hub.Drop(id)
	w.WriteHeader(http.StatusNoContent)
}

// ListParticipants handles GET /events/{id}/participants
func (h *EventHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.svc.ListParticipants(r.Context(), session(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list participants")
		return
	}

	if participants == nil {
		participants = []model.Participant{}
	}

	writeJSON(w, http.StatusOK, participants)
}

// ─── Check-in handlers ────────────────────────────────────────────────────────

// CheckIn handles POST /events/{id}/checkin — the sole entry point used
// by both the scanner and the manual form. Rejections are domain
// outcomes, not transport errors: they come back 200 with success=false
// so both surfaces can render them uniformly.
func (h *EventHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.GetEvent(r.Context(), session(r).UserID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}

	var req model.CheckInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sess, err := h.hub.Session(r.Context(), id)
	if err != nil {
		// Directory load failed: retry-eligible, check-in disabled until
		// a reload succeeds.
		writeError(w, http.StatusServiceUnavailable, "participant list unavailable, please retry")
		return
	}

	writeJSON(w, http.StatusOK, sess.CheckIn(r.Context(), req.TicketID))
}

// ReloadDirectory handles POST /events/{id}/checkin/reload — the
// operator's retry affordance after a directory load failure, and the
// explicit refresh after out-of-band registrations.
func (h *EventHandler) ReloadDirectory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.GetEvent(r.Context(), session(r).UserID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}

	if err := h.hub.Reload(r.Context(), id); err != nil {
		writeError(w, http.StatusServiceUnavailable, "participant list unavailable, please retry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /events/{id}/stats — the derived attendance view,
// recomputed from the check-in directory.
func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.GetEvent(r.Context(), session(r).UserID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}

	sess, err := h.hub.Session(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "participant list unavailable, please retry")
		return
	}

	writeJSON(w, http.StatusOK, sess.Stats())
}

// ─── Public handlers ──────────────────────────────────────────────────────────

// GetPublicEvent handles GET /e/{slug}
func (h *EventHandler) GetPublicEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetPublicEvent(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// Register handles POST /e/{slug}/register
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.svc.Register(r.Context(), chi.URLParam(r, "slug"), req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "event not found")
		case errors.Is(err, repository.ErrEventClosed):
			writeError(w, http.StatusConflict, "event is not accepting registrations")
		case errors.Is(err, repository.ErrEventFull):
			writeError(w, http.StatusConflict, "event quota is full")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	// An open check-in snapshot of this event is now stale until its
	// next refresh. That window is accepted; operators can force it
	// closed via the reload endpoint.
	writeJSON(w, http.StatusCreated, p)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
