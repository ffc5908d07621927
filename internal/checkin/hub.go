package checkin

import (
	"context"
	"sync"
)

// Hub hands out one check-in session per event, opened lazily on first
// use. Sessions are server-side and therefore shared by every operator
// of the same event, which keeps their snapshot view consistent within
// this process.
type Hub struct {
	store ParticipantStore

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewHub constructs a Hub over the given store.
func NewHub(store ParticipantStore) *Hub {
	return &Hub{
		store:    store,
		sessions: make(map[string]*Session),
	}
}

// Session returns the event's session, opening (and loading the
// directory for) it on first use.
func (h *Hub) Session(ctx context.Context, eventID string) (*Session, error) {
	h.mu.Lock()
	if s, ok := h.sessions[eventID]; ok {
		h.mu.Unlock()
		return s, nil
	}
	h.mu.Unlock()

	// Open outside the hub lock: directory loading does I/O and must not
	// serialize sessions of unrelated events.
	s, err := OpenSession(ctx, h.store, eventID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.sessions[eventID]; ok {
		return existing, nil
	}
	h.sessions[eventID] = s
	return s, nil
}

// Reload force-refreshes an event's directory, opening a session if none
// exists yet. It backs the operator's retry affordance.
func (h *Hub) Reload(ctx context.Context, eventID string) error {
	s, err := h.Session(ctx, eventID)
	if err != nil {
		return err
	}
	return s.Reload(ctx)
}

// Drop discards an event's session, e.g. after the event is deleted or a
// registration changed the participant list outside a check-in.
func (h *Hub) Drop(eventID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, eventID)
}
