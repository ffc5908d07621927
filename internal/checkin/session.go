package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/nandaprad/tixly/internal/metric"
	"github.com/nandaprad/tixly/internal/model"
	"github.com/nandaprad/tixly/internal/repository"
)

// ParticipantStore is everything a check-in session needs from the
// backing store. *repository.ParticipantRepository satisfies it.
type ParticipantStore interface {
	ParticipantSource
	MarkPresent(ctx context.Context, participantID string, at time.Time) error
}

// Result is the uniform outcome shape both capture surfaces consume.
type Result struct {
	Success bool   `json:"success"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Session is one operator's check-in session against a single event.
// It owns the directory snapshot and is the only component that mutates
// attendance storage.
//
// Attempts are processed strictly one at a time: the mutex maps the
// original UI-level "request outstanding" lock onto a real primitive.
// No ordering guarantee exists across sessions on different devices;
// the store's conditional update closes the double check-in race there.
type Session struct {
	eventID string
	store   ParticipantStore

	mu  sync.Mutex
	dir *Directory

	now func() time.Time
}

// OpenSession loads the event's directory and returns a ready session.
// A load failure is ErrDataUnavailable; the caller surfaces a retry
// affordance and check-in stays unavailable.
func OpenSession(ctx context.Context, store ParticipantStore, eventID string) (*Session, error) {
	dir, err := LoadDirectory(ctx, store, eventID)
	if err != nil {
		return nil, err
	}
	return &Session{
		eventID: eventID,
		store:   store,
		dir:     dir,
		now:     time.Now,
	}, nil
}

// CheckIn runs one attempt end to end: resolve against the snapshot,
// persist the mutation if accepted, then refresh the derived views.
// Rejections perform no I/O and are therefore free to retry by simply
// resubmitting.
func (s *Session) CheckIn(ctx context.Context, rawTicket string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	decision := Resolve(rawTicket, s.dir, s.now())
	if !decision.Accepted {
		metric.CheckIns.WithLabelValues(string(decision.Kind)).Inc()
		return Result{Success: false, Kind: decision.Kind, Message: decision.Message}
	}

	err := s.store.MarkPresent(ctx, decision.Mutation.ParticipantID, decision.Mutation.CheckedInAt)
	switch {
	case errors.Is(err, repository.ErrAlreadyPresent):
		// Another device won the race after our snapshot was taken.
		// Surface the idempotency rejection, not a false success, and
		// bring the snapshot up to date.
		s.refreshLocked(ctx, decision.Mutation)
		metric.CheckIns.WithLabelValues(string(KindAlreadyCheckedIn)).Inc()
		return Result{
			Success: false,
			Kind:    KindAlreadyCheckedIn,
			Message: fmt.Sprintf("%s is already checked in", decision.Mutation.Name),
		}
	case err != nil:
		// Snapshot untouched: nothing was optimistically mutated, so the
		// operator can simply re-scan or resubmit.
		slog.Error("check-in persistence failed",
			"event_id", s.eventID,
			"participant_id", decision.Mutation.ParticipantID,
			"error", err)
		metric.CheckIns.WithLabelValues(string(KindPersistenceFailure)).Inc()
		return Result{
			Success: false,
			Kind:    KindPersistenceFailure,
			Message: "check-in failed, please try again",
		}
	}

	s.refreshLocked(ctx, decision.Mutation)
	metric.CheckIns.WithLabelValues(string(KindAccepted)).Inc()
	return Result{Success: true, Kind: KindAccepted, Message: decision.Message}
}

// refreshLocked re-fetches the snapshot after a committed mutation. If the
// re-fetch fails the confirmed mutation is applied to the old snapshot
// instead, so the idempotency guard keeps holding locally. Caller holds mu.
func (s *Session) refreshLocked(ctx context.Context, m *Mutation) {
	dir, err := LoadDirectory(ctx, s.store, s.eventID)
	if err != nil {
		slog.Warn("directory refresh failed, patching snapshot in place",
			"event_id", s.eventID, "error", err)
		for i := range s.dir.ordered {
			if s.dir.ordered[i].ID == m.ParticipantID {
				s.dir.ordered[i].AttendanceStatus = model.AttendancePresent
				at := m.CheckedInAt
				s.dir.ordered[i].CheckedInAt = &at
				break
			}
		}
		return
	}
	s.dir = dir
}

// Reload discards the snapshot and loads a fresh one. It backs the retry
// affordance after ErrDataUnavailable and the explicit refresh action.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, err := LoadDirectory(ctx, s.store, s.eventID)
	if err != nil {
		return err
	}
	s.dir = dir
	return nil
}

// Stats recomputes the attendance read model from the current snapshot:
// registrant count, attendance count, and the attendance rate rounded to
// the nearest percent (0 when there are no registrants).
func (s *Session) Stats() model.AttendanceStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.dir.Len()
	present := 0
	for _, p := range s.dir.Participants() {
		if p.Present() {
			present++
		}
	}

	rate := 0
	if total > 0 {
		rate = int(math.Round(float64(present) / float64(total) * 100))
	}
	return model.AttendanceStats{
		ParticipantCount: total,
		AttendanceCount:  present,
		AttendanceRate:   rate,
	}
}
