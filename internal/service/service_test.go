package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandaprad/tixly/internal/model"
	"github.com/nandaprad/tixly/internal/repository"
	"github.com/nandaprad/tixly/internal/service"
)

// fakeEventStore is an in-memory EventStore.
type fakeEventStore struct {
	events map[string]*model.Event
}

func newFakeEventStore(events ...*model.Event) *fakeEventStore {
	s := &fakeEventStore{events: make(map[string]*model.Event)}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *fakeEventStore) Create(ctx context.Context, e *model.Event) error {
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *fakeEventStore) ListByUser(ctx context.Context, userID string) ([]model.EventWithCount, error) {
	var out []model.EventWithCount
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, model.EventWithCount{Event: *e})
		}
	}
	return out, nil
}

func (s *fakeEventStore) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *fakeEventStore) GetBySlug(ctx context.Context, slug string) (*model.Event, error) {
	for _, e := range s.events {
		if e.Slug == slug {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeEventStore) Update(ctx context.Context, e *model.Event) error {
	if _, ok := s.events[e.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *fakeEventStore) UpdateStatus(ctx context.Context, id string, status model.EventStatus) error {
	e, ok := s.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Status = status
	return nil
}

func (s *fakeEventStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.events[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// fakeParticipantStore is an in-memory ParticipantStore.
type fakeParticipantStore struct {
	participants []model.Participant
	collisions   int // number of inserts to fail with ErrTicketCollision
}

func (s *fakeParticipantStore) Insert(ctx context.Context, p *model.Participant) error {
	if s.collisions > 0 {
		s.collisions--
		return repository.ErrTicketCollision
	}
	for _, existing := range s.participants {
		if existing.TicketID == p.TicketID {
			return repository.ErrTicketCollision
		}
	}
	s.participants = append(s.participants, *p)
	return nil
}

func (s *fakeParticipantStore) ListByEvent(ctx context.Context, eventID string) ([]model.Participant, error) {
	var out []model.Participant
	for _, p := range s.participants {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeParticipantStore) CountByEvent(ctx context.Context, eventID string) (int, error) {
	n := 0
	for _, p := range s.participants {
		if p.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func intPtr(i int) *int { return &i }

func activeEvent(id, userID, slug string, quota *int) *model.Event {
	return &model.Event{
		ID:       id,
		UserID:   userID,
		Title:    "Tech Meetup",
		Slug:     slug,
		Location: "Jakarta",
		Date:     time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC),
		Quota:    quota,
		Status:   model.EventStatusActive,
	}
}

func TestCreateEvent(t *testing.T) {
	events := newFakeEventStore()
	svc := service.NewEventService(events, &fakeParticipantStore{})

	e, err := svc.CreateEvent(context.Background(), "user-1", model.CreateEventRequest{
		Title:    "  Tech Meetup Jakarta  ",
		Location: "Jakarta",
		Date:     time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC),
		Quota:    intPtr(100),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "user-1", e.UserID)
	assert.Equal(t, "Tech Meetup Jakarta", e.Title)
	assert.True(t, strings.HasPrefix(e.Slug, "tech-meetup-jakarta-"))
	assert.Equal(t, model.EventStatusActive, e.Status)
}

func TestCreateEventValidation(t *testing.T) {
	svc := service.NewEventService(newFakeEventStore(), &fakeParticipantStore{})
	date := time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		req  model.CreateEventRequest
	}{
		{"missing title", model.CreateEventRequest{Location: "x", Date: date}},
		{"missing location", model.CreateEventRequest{Title: "x", Date: date}},
		{"missing date", model.CreateEventRequest{Title: "x", Location: "x"}},
		{"zero quota", model.CreateEventRequest{Title: "x", Location: "x", Date: date, Quota: intPtr(0)}},
		{"negative quota", model.CreateEventRequest{Title: "x", Location: "x", Date: date, Quota: intPtr(-5)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateEvent(context.Background(), "user-1", tc.req)
			assert.Error(t, err)
		})
	}
}

func TestGetEventOwnership(t *testing.T) {
	events := newFakeEventStore(activeEvent("evt-1", "user-1", "meetup-abc123", nil))
	svc := service.NewEventService(events, &fakeParticipantStore{})

	_, err := svc.GetEvent(context.Background(), "user-1", "evt-1")
	require.NoError(t, err)

	// Someone else's event is indistinguishable from a missing one.
	_, err = svc.GetEvent(context.Background(), "user-2", "evt-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateEventSlugImmutable(t *testing.T) {
	events := newFakeEventStore(activeEvent("evt-1", "user-1", "meetup-abc123", nil))
	svc := service.NewEventService(events, &fakeParticipantStore{})

	e, err := svc.UpdateEvent(context.Background(), "user-1", "evt-1", model.UpdateEventRequest{
		Title:    "Renamed Meetup",
		Location: "Bandung",
		Date:     time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		Status:   model.EventStatusClosed,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed Meetup", e.Title)
	assert.Equal(t, "meetup-abc123", e.Slug)
	assert.Equal(t, model.EventStatusClosed, e.Status)
}

func TestUpdateStatusUnconstrained(t *testing.T) {
	events := newFakeEventStore(activeEvent("evt-1", "user-1", "meetup-abc123", nil))
	svc := service.NewEventService(events, &fakeParticipantStore{})
	ctx := context.Background()

	// Any status reaches any other.
	for _, status := range []model.EventStatus{
		model.EventStatusCancelled,
		model.EventStatusActive,
		model.EventStatusClosed,
		model.EventStatusActive,
	} {
		require.NoError(t, svc.UpdateStatus(ctx, "user-1", "evt-1", status))
	}

	assert.Error(t, svc.UpdateStatus(ctx, "user-1", "evt-1", "archived"))
}

func TestRegister(t *testing.T) {
	events := newFakeEventStore(activeEvent("evt-1", "user-1", "meetup-abc123", nil))
	participants := &fakeParticipantStore{}
	svc := service.NewEventService(events, participants)

	p, err := svc.Register(context.Background(), "meetup-abc123", model.RegisterRequest{Name: "Alya"})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", p.EventID)
	assert.Equal(t, "Alya", p.Name)
	assert.Regexp(t, `^TIX-[A-Z0-9]{8}$`, p.TicketID)
	assert.Equal(t, model.AttendanceRegistered, p.AttendanceStatus)
	assert.Nil(t, p.CheckedInAt)
}

func TestRegisterQuota(t *testing.T) {
	events := newFakeEventStore(activeEvent("evt-1", "user-1", "meetup-abc123", intPtr(2)))
	participants := &fakeParticipantStore{}
	svc := service.NewEventService(events, participants)
	ctx := context.Background()

	_, err := svc.Register(ctx, "meetup-abc123", model.RegisterRequest{Name: "Alya"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, "meetup-abc123", model.RegisterRequest{Name: "Budi"})
	require.NoError(t, err)

	// Quota of 2 with 2 registered: rejected.
	_, err = svc.Register(ctx, "meetup-abc123", model.RegisterRequest{Name: "Citra"})
	assert.ErrorIs(t, err, repository.ErrEventFull)
}

func TestRegisterUnlimitedQuota(t *testing.T) {
	events := newFakeEventStore(activeEvent("evt-1", "user-1", "meetup-abc123", nil))
	svc := service.NewEventService(events, &fakeParticipantStore{})
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := svc.Register(ctx, "meetup-abc123", model.RegisterRequest{Name: "Guest"})
		require.NoError(t, err)
	}
}

func TestRegisterClosedEvent(t *testing.T) {
	closed := activeEvent("evt-1", "user-1", "meetup-abc123", nil)
	closed.Status = model.EventStatusClosed
	cancelled := activeEvent("evt-2", "user-1", "other-def456", nil)
	cancelled.Status = model.EventStatusCancelled

	svc := service.NewEventService(newFakeEventStore(closed, cancelled), &fakeParticipantStore{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "meetup-abc123", model.RegisterRequest{Name: "Alya"})
	assert.ErrorIs(t, err, repository.ErrEventClosed)
	_, err = svc.Register(ctx, "other-def456", model.RegisterRequest{Name: "Alya"})
	assert.ErrorIs(t, err, repository.ErrEventClosed)
}

func TestRegisterRetriesTicketCollision(t *testing.T) {
	events := newFakeEventStore(activeEvent("evt-1", "user-1", "meetup-abc123", nil))
	participants := &fakeParticipantStore{collisions: 2}
	svc := service.NewEventService(events, participants)

	p, err := svc.Register(context.Background(), "meetup-abc123", model.RegisterRequest{Name: "Alya"})
	require.NoError(t, err)
	assert.Regexp(t, `^TIX-[A-Z0-9]{8}$`, p.TicketID)
}

func TestRegisterGivesUpAfterRepeatedCollisions(t *testing.T) {
	events := newFakeEventStore(activeEvent("evt-1", "user-1", "meetup-abc123", nil))
	participants := &fakeParticipantStore{collisions: 10}
	svc := service.NewEventService(events, participants)

	_, err := svc.Register(context.Background(), "meetup-abc123", model.RegisterRequest{Name: "Alya"})
	assert.ErrorIs(t, err, repository.ErrTicketCollision)
}

func TestGetPublicEvent(t *testing.T) {
	events := newFakeEventStore(activeEvent("evt-1", "user-1", "meetup-abc123", intPtr(2)))
	participants := &fakeParticipantStore{}
	svc := service.NewEventService(events, participants)
	ctx := context.Background()

	view, err := svc.GetPublicEvent(ctx, "meetup-abc123")
	require.NoError(t, err)
	assert.Equal(t, 0, view.RegisteredCount)
	assert.False(t, view.QuotaFull)
	assert.Equal(t, "meetup-abc123", view.Slug)

	_, err = svc.Register(ctx, "meetup-abc123", model.RegisterRequest{Name: "Alya"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, "meetup-abc123", model.RegisterRequest{Name: "Budi"})
	require.NoError(t, err)

	view, err = svc.GetPublicEvent(ctx, "meetup-abc123")
	require.NoError(t, err)
	assert.Equal(t, 2, view.RegisteredCount)
	assert.True(t, view.QuotaFull)
}

func TestDeleteEvent(t *testing.T) {
	events := newFakeEventStore(activeEvent("evt-1", "user-1", "meetup-abc123", nil))
	svc := service.NewEventService(events, &fakeParticipantStore{})
	ctx := context.Background()

	require.NoError(t, svc.DeleteEvent(ctx, "user-1", "evt-1"))
	_, err := svc.GetEvent(ctx, "user-1", "evt-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
