package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nandaprad/tixly/internal/model"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations, used to detect ticket id collisions.
const uniqueViolation = "23505"

// ParticipantRepository handles persistence for participants.
type ParticipantRepository struct {
	db *pgxpool.Pool
}

// NewParticipantRepository constructs a ParticipantRepository.
func NewParticipantRepository(db *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

const participantColumns = `id, event_id, ticket_id, name, email, phone, attendance_status, checked_in_at, created_at`

// Insert creates a participant record. A collision on the global ticket id
// unique constraint comes back as ErrTicketCollision so the caller can
// regenerate and retry.
func (r *ParticipantRepository) Insert(ctx context.Context, p *model.Participant) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO participants (id, event_id, ticket_id, name, email, phone, attendance_status, checked_in_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.EventID, p.TicketID, p.Name, p.Email, p.Phone,
		p.AttendanceStatus, p.CheckedInAt, p.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrTicketCollision
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// ListByEvent returns all participants of an event, newest first.
func (r *ParticipantRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Participant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+participantColumns+`
		 FROM participants
		 WHERE event_id = $1
		 ORDER BY created_at DESC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(
			&p.ID, &p.EventID, &p.TicketID, &p.Name, &p.Email, &p.Phone,
			&p.AttendanceStatus, &p.CheckedInAt, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// CountByEvent returns the registrant count for a single event as a typed
// projection rather than an ad-hoc nested result.
func (r *ParticipantRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM participants WHERE event_id = $1`,
		eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

// MarkPresent transitions a participant from registered to present.
//
// The update is conditional on the current status, so two operators racing
// to check in the same ticket from different devices cannot both win: the
// second update matches no row and comes back as ErrAlreadyPresent, and
// checked_in_at is never overwritten.
func (r *ParticipantRepository) MarkPresent(ctx context.Context, participantID string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE participants
		 SET attendance_status = $2, checked_in_at = $3
		 WHERE id = $1 AND attendance_status = $4`,
		participantID, model.AttendancePresent, at, model.AttendanceRegistered,
	)
	if err != nil {
		return fmt.Errorf("mark present: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or it is already present. Distinguish so
		// the caller can report the idempotency case by name.
		var status model.AttendanceStatus
		err := r.db.QueryRow(ctx,
			`SELECT attendance_status FROM participants WHERE id = $1`,
			participantID,
		).Scan(&status)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrNotFound
		case err != nil:
			return fmt.Errorf("recheck participant status: %w", err)
		case status == model.AttendancePresent:
			return ErrAlreadyPresent
		default:
			return ErrNotFound
		}
	}
	return nil
}
