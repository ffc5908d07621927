// Package model defines the core domain types for the event check-in system.
package model

import "time"

// EventStatus is the organizer-controlled lifecycle state of an event.
// Transitions are unconstrained: any status is reachable from any other.
type EventStatus string

const (
	EventStatusActive    EventStatus = "active"
	EventStatusClosed    EventStatus = "closed"
	EventStatusCancelled EventStatus = "cancelled"
)

// Valid reports whether s is one of the three known statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusActive, EventStatusClosed, EventStatusCancelled:
		return true
	}
	return false
}

// AttendanceStatus is a participant's check-in state. The only legal
// transition is registered → present.
type AttendanceStatus string

const (
	AttendanceRegistered AttendanceStatus = "registered"
	AttendancePresent    AttendanceStatus = "present"
)

// Event represents an organizer-created gathering with a public
// registration page reachable at /e/{slug}.
type Event struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description *string     `json:"description,omitempty"`
	Location    string      `json:"location"`
	Date        time.Time   `json:"date"`
	Quota       *int        `json:"quota,omitempty"`
	Status      EventStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Open reports whether the event still accepts registrations, ignoring
// quota (quota is compared against a live count separately).
func (e *Event) Open() bool {
	return e.Status == EventStatusActive
}

// Participant represents a registrant of an event, identified during
// check-in solely by their ticket id.
type Participant struct {
	ID               string           `json:"id"`
	EventID          string           `json:"event_id"`
	TicketID         string           `json:"ticket_id"`
	Name             string           `json:"name"`
	Email            *string          `json:"email,omitempty"`
	Phone            *string          `json:"phone,omitempty"`
	AttendanceStatus AttendanceStatus `json:"attendance_status"`
	CheckedInAt      *time.Time       `json:"checked_in_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Present reports whether the participant has already been checked in.
func (p *Participant) Present() bool {
	return p.AttendanceStatus == AttendancePresent
}

// EventWithCount is the typed dashboard projection of an event together
// with its registrant count.
type EventWithCount struct {
	Event
	ParticipantCount int `json:"participant_count"`
}

// PublicEvent is the registration-page view of an event. It never leaks
// the owning user id or internal timestamps.
type PublicEvent struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Slug            string      `json:"slug"`
	Description     *string     `json:"description,omitempty"`
	Location        string      `json:"location"`
	Date            time.Time   `json:"date"`
	Quota           *int        `json:"quota,omitempty"`
	Status          EventStatus `json:"status"`
	RegisteredCount int         `json:"registered_count"`
	QuotaFull       bool        `json:"quota_full"`
}

// AttendanceStats is the derived read model recomputed from the check-in
// directory after every successful check-in.
type AttendanceStats struct {
	ParticipantCount int `json:"participant_count"`
	AttendanceCount  int `json:"attendance_count"`
	AttendanceRate   int `json:"attendance_rate"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	Quota       *int      `json:"quota"`
}

// UpdateEventRequest is the payload for editing an event. The slug is
// immutable and therefore absent.
type UpdateEventRequest struct {
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	Location    string      `json:"location"`
	Date        time.Time   `json:"date"`
	Quota       *int        `json:"quota"`
	Status      EventStatus `json:"status"`
}

// UpdateStatusRequest is the payload for the quick status toggle.
type UpdateStatusRequest struct {
	Status EventStatus `json:"status"`
}

// RegisterRequest is the payload submitted on the public registration page.
type RegisterRequest struct {
	Name  string  `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// CheckInRequest is the payload both capture surfaces submit.
type CheckInRequest struct {
	TicketID string `json:"ticket_id"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
