package checkin

import (
	"fmt"
	"time"

	"github.com/nandaprad/tixly/internal/ticket"
)

// Kind classifies the outcome of a check-in attempt.
type Kind string

const (
	KindAccepted           Kind = "accepted"
	KindEmptyInput         Kind = "empty_input"
	KindNotFound           Kind = "not_found"
	KindAlreadyCheckedIn   Kind = "already_checked_in"
	KindPersistenceFailure Kind = "persistence_failure"
)

// Mutation is the state change an accepted decision asks the store to
// apply. It targets the participant by id, never by ticket, so the update
// is unambiguous.
type Mutation struct {
	ParticipantID string
	Name          string
	CheckedInAt   time.Time
}

// Decision is the resolver's verdict on a single raw ticket input.
type Decision struct {
	Accepted bool
	Kind     Kind
	Message  string

	// Mutation is set only when Accepted.
	Mutation *Mutation
}

// Resolve decides whether a raw ticket input checks in a participant of
// the directory's event. It is a pure function: no I/O, no side effects,
// fully determined by its arguments.
//
// Input is normalized (trimmed, upper-cased) before lookup; ticket ids
// are case-insensitive by convention.
func Resolve(raw string, dir *Directory, now time.Time) Decision {
	normalized := ticket.Normalize(raw)
	if normalized == "" {
		return Decision{
			Kind:    KindEmptyInput,
			Message: "no ticket id supplied",
		}
	}

	p, ok := dir.FindByTicket(normalized)
	if !ok {
		return Decision{
			Kind:    KindNotFound,
			Message: fmt.Sprintf("ticket %s not found for this event", normalized),
		}
	}

	if p.Present() {
		return Decision{
			Kind:    KindAlreadyCheckedIn,
			Message: fmt.Sprintf("%s is already checked in", p.Name),
		}
	}

	return Decision{
		Accepted: true,
		Kind:     KindAccepted,
		Message:  fmt.Sprintf("%s checked in", p.Name),
		Mutation: &Mutation{
			ParticipantID: p.ID,
			Name:          p.Name,
			CheckedInAt:   now,
		},
	}
}
