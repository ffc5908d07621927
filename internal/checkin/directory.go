// Package checkin implements the check-in and attendance reconciliation
// core: the per-session ticket directory, the pure resolver that decides
// accept/reject, and the session that wires the decision to persistence
// and keeps the derived attendance view in sync.
package checkin

import (
	"context"
	"errors"
	"fmt"

	"github.com/nandaprad/tixly/internal/metric"
	"github.com/nandaprad/tixly/internal/model"
	"github.com/nandaprad/tixly/internal/ticket"
)

// ErrDataUnavailable is returned when the ticket directory cannot be
// loaded from the backing store. Check-in stays disabled until a reload
// succeeds.
var ErrDataUnavailable = errors.New("participant directory unavailable")

// ParticipantSource lists an event's participants from the backing store.
// *repository.ParticipantRepository satisfies it.
type ParticipantSource interface {
	ListByEvent(ctx context.Context, eventID string) ([]model.Participant, error)
}

// Directory is an in-memory snapshot of one event's participants keyed by
// normalized ticket id. It is loaded at session start and refreshed only
// after a successful check-in; a registrant added from another device can
// momentarily be missing from it. That staleness window is an accepted
// trade-off, not a defect.
type Directory struct {
	eventID  string
	byTicket map[string]*model.Participant
	ordered  []model.Participant
}

// LoadDirectory fetches all participants of an event into a fresh snapshot.
func LoadDirectory(ctx context.Context, src ParticipantSource, eventID string) (*Directory, error) {
	participants, err := src.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	metric.DirectoryLoads.Inc()

	d := &Directory{
		eventID:  eventID,
		byTicket: make(map[string]*model.Participant, len(participants)),
		ordered:  participants,
	}
	for i := range d.ordered {
		d.byTicket[ticket.Normalize(d.ordered[i].TicketID)] = &d.ordered[i]
	}
	return d, nil
}

// FindByTicket looks up a participant by an already-normalized ticket id.
// It never re-fetches; lookups run entirely against the snapshot.
func (d *Directory) FindByTicket(normalized string) (*model.Participant, bool) {
	p, ok := d.byTicket[normalized]
	return p, ok
}

// Participants returns the snapshot in display order (newest first).
func (d *Directory) Participants() []model.Participant {
	return d.ordered
}

// Len returns the number of participants in the snapshot.
func (d *Directory) Len() int {
	return len(d.ordered)
}

// EventID returns the event this snapshot belongs to.
func (d *Directory) EventID() string {
	return d.eventID
}
