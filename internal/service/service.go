// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nandaprad/tixly/internal/metric"
	"github.com/nandaprad/tixly/internal/model"
	"github.com/nandaprad/tixly/internal/repository"
	"github.com/nandaprad/tixly/internal/ticket"
)

// ticketRetries bounds the regenerate-and-retry loop on a ticket id
// collision. A collision is already negligible; three tries make the
// silent double-ticket case impossible in practice.
const ticketRetries = 3

// EventStore is the event persistence surface the service needs.
// *repository.EventRepository satisfies it.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	ListByUser(ctx context.Context, userID string) ([]model.EventWithCount, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetBySlug(ctx context.Context, slug string) (*model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	UpdateStatus(ctx context.Context, id string, status model.EventStatus) error
	Delete(ctx context.Context, id string) error
}

// ParticipantStore is the participant persistence surface the service
// needs. *repository.ParticipantRepository satisfies it.
type ParticipantStore interface {
	Insert(ctx context.Context, p *model.Participant) error
	ListByEvent(ctx context.Context, eventID string) ([]model.Participant, error)
	CountByEvent(ctx context.Context, eventID string) (int, error)
}

// EventService orchestrates event and registration operations. Check-in
// lives in the checkin package: it is event-scoped, not user-scoped, and
// deliberately does not depend on any session identity.
type EventService struct {
	events       EventStore
	participants ParticipantStore
	now          func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, participants ParticipantStore) *EventService {
	return &EventService{events: events, participants: participants, now: time.Now}
}

// CreateEvent validates the request, assigns the immutable slug, and
// persists the event for the given organizer.
func (s *EventService) CreateEvent(ctx context.Context, userID string, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Location = strings.TrimSpace(req.Location)
	if req.Title == "" {
		return nil, fmt.Errorf("event title is required")
	}
	if req.Location == "" {
		return nil, fmt.Errorf("event location is required")
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("event date is required")
	}
	if req.Quota != nil && *req.Quota <= 0 {
		return nil, fmt.Errorf("quota must be a positive integer")
	}

	slug, err := ticket.NewSlug(req.Title)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	now := s.now().UTC()
	event := &model.Event{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       req.Title,
		Slug:        slug,
		Description: req.Description,
		Location:    req.Location,
		Date:        req.Date,
		Quota:       req.Quota,
		Status:      model.EventStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// ListEvents returns the organizer's events with registrant counts.
func (s *EventService) ListEvents(ctx context.Context, userID string) ([]model.EventWithCount, error) {
	return s.events.ListByUser(ctx, userID)
}

// GetEvent returns one of the organizer's events. Events owned by other
// users come back as ErrNotFound rather than revealing their existence.
func (s *EventService) GetEvent(ctx context.Context, userID, id string) (*model.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is required")
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return event, nil
}

// UpdateEvent edits the mutable fields of an event. The slug never changes.
func (s *EventService) UpdateEvent(ctx context.Context, userID, id string, req model.UpdateEventRequest) (*model.Event, error) {
	event, err := s.GetEvent(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Location = strings.TrimSpace(req.Location)
	if req.Title == "" {
		return nil, fmt.Errorf("event title is required")
	}
	if req.Location == "" {
		return nil, fmt.Errorf("event location is required")
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("event date is required")
	}
	if req.Quota != nil && *req.Quota <= 0 {
		return nil, fmt.Errorf("quota must be a positive integer")
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("status must be one of active, closed, cancelled")
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Location = req.Location
	event.Date = req.Date
	event.Quota = req.Quota
	event.Status = req.Status
	event.UpdatedAt = s.now().UTC()

	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

// UpdateStatus performs the quick status toggle. Transitions are
// organizer-driven and unconstrained between the three statuses.
func (s *EventService) UpdateStatus(ctx context.Context, userID, id string, status model.EventStatus) error {
	if !status.Valid() {
		return fmt.Errorf("status must be one of active, closed, cancelled")
	}
	if _, err := s.GetEvent(ctx, userID, id); err != nil {
		return err
	}
	return s.events.UpdateStatus(ctx, id, status)
}

// DeleteEvent removes an event and, through the store's cascade, all of
// its participants.
func (s *EventService) DeleteEvent(ctx context.Context, userID, id string) error {
	if _, err := s.GetEvent(ctx, userID, id); err != nil {
		return err
	}
	return s.events.Delete(ctx, id)
}

// ListParticipants returns an event's registrants, newest first.
func (s *EventService) ListParticipants(ctx context.Context, userID, eventID string) ([]model.Participant, error) {
	if _, err := s.GetEvent(ctx, userID, eventID); err != nil {
		return nil, err
	}
	return s.participants.ListByEvent(ctx, eventID)
}

// GetPublicEvent returns the registration-page view behind /e/{slug}.
func (s *EventService) GetPublicEvent(ctx context.Context, slug string) (*model.PublicEvent, error) {
	event, err := s.events.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	count, err := s.participants.CountByEvent(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("public event view: %w", err)
	}
	return &model.PublicEvent{
		ID:              event.ID,
		Title:           event.Title,
		Slug:            event.Slug,
		Description:     event.Description,
		Location:        event.Location,
		Date:            event.Date,
		Quota:           event.Quota,
		Status:          event.Status,
		RegisteredCount: count,
		QuotaFull:       event.Quota != nil && count >= *event.Quota,
	}, nil
}

// Register handles a public registration submission.
//
// The quota comparison happens at read time, before the insert; a
// concurrent last-slot race is accepted and not resolved atomically.
// The ticket id, however, is hard-guaranteed unique by the store's
// global constraint, with a bounded regenerate-and-retry on collision.
func (s *EventService) Register(ctx context.Context, slug string, req model.RegisterRequest) (*model.Participant, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		metric.RegistrationRejections.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("name is required")
	}

	event, err := s.events.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !event.Open() {
		metric.RegistrationRejections.WithLabelValues("closed").Inc()
		return nil, repository.ErrEventClosed
	}
	if event.Quota != nil {
		count, err := s.participants.CountByEvent(ctx, event.ID)
		if err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
		if count >= *event.Quota {
			metric.RegistrationRejections.WithLabelValues("quota_full").Inc()
			return nil, repository.ErrEventFull
		}
	}

	var lastErr error
	for attempt := 0; attempt < ticketRetries; attempt++ {
		ticketID, err := ticket.NewID()
		if err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
		p := &model.Participant{
			ID:               uuid.New().String(),
			EventID:          event.ID,
			TicketID:         ticketID,
			Name:             req.Name,
			Email:            req.Email,
			Phone:            req.Phone,
			AttendanceStatus: model.AttendanceRegistered,
			CreatedAt:        s.now().UTC(),
		}
		err = s.participants.Insert(ctx, p)
		if err == nil {
			metric.Registrations.Inc()
			return p, nil
		}
		if !errors.Is(err, repository.ErrTicketCollision) {
			return nil, fmt.Errorf("register: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("register: %w", lastErr)
}
