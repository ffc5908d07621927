// Package repository implements all database queries for the event
// check-in system. It uses pgx directly (no ORM) for transparency and
// performance.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nandaprad/tixly/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventFull is returned when an event's quota is reached.
var ErrEventFull = errors.New("event quota is full")

// ErrEventClosed is returned when registering for a closed or cancelled event.
var ErrEventClosed = errors.New("event is not accepting registrations")

// ErrTicketCollision is returned when a generated ticket id already exists.
var ErrTicketCollision = errors.New("ticket id already exists")

// ErrAlreadyPresent is returned when the conditional check-in update
// matches no row: the participant was already marked present.
var ErrAlreadyPresent = errors.New("participant already checked in")

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, user_id, title, slug, description, location, date, quota, status, created_at, updated_at`

func scanEvent(row pgx.Row, e *model.Event) error {
	return row.Scan(
		&e.ID, &e.UserID, &e.Title, &e.Slug, &e.Description,
		&e.Location, &e.Date, &e.Quota, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, user_id, title, slug, description, location, date, quota, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.UserID, e.Title, e.Slug, e.Description, e.Location,
		e.Date, e.Quota, e.Status, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListByUser returns all of a user's events with their registrant counts,
// ordered by creation time descending.
func (r *EventRepository) ListByUser(ctx context.Context, userID string) ([]model.EventWithCount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.id, e.user_id, e.title, e.slug, e.description, e.location, e.date,
		        e.quota, e.status, e.created_at, e.updated_at,
		        COUNT(p.id) AS participant_count
		 FROM events e
		 LEFT JOIN participants p ON p.event_id = e.id
		 WHERE e.user_id = $1
		 GROUP BY e.id
		 ORDER BY e.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.EventWithCount
	for rows.Next() {
		var e model.EventWithCount
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Title, &e.Slug, &e.Description, &e.Location,
			&e.Date, &e.Quota, &e.Status, &e.CreatedAt, &e.UpdatedAt,
			&e.ParticipantCount,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id), &e)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// GetBySlug returns the event behind a public registration link or ErrNotFound.
func (r *EventRepository) GetBySlug(ctx context.Context, slug string) (*model.Event, error) {
	var e model.Event
	err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug), &e)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event by slug: %w", err)
	}
	return &e, nil
}

// Update persists the mutable fields of an event. The slug is immutable
// once assigned and is deliberately not part of the statement.
func (r *EventRepository) Update(ctx context.Context, e *model.Event) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events
		 SET title = $2, description = $3, location = $4, date = $5,
		     quota = $6, status = $7, updated_at = $8
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.Location, e.Date, e.Quota, e.Status, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus performs the quick status toggle.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, status model.EventStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an event. Participants go with it via the foreign key's
// ON DELETE CASCADE.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
