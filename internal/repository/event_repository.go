package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportdesk/internal/entities"
)

// ErrLeaseLost means a finishing update found the row no longer held by
// this worker's processing id; the stale-lease reclaim already handed the
// event to someone else.
var ErrLeaseLost = errors.New("event lease lost")

const eventColumns = `id, event_type, payload, status, retry_count, max_retries,
	processing_id, processing_started_at, processed_at, next_retry_at,
	error_message, error_trace, created_at, updated_at`

// EventRepository is the durable event state machine. All transitions are
// single conditional statements; the acquire UPDATE is the only mutual
// exclusion between workers.
type EventRepository struct {
	db *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Insert persists a pending event inside the producer's transaction so the
// business write and its follow-up work commit together. The notify
// trigger fires on commit.
func (r *EventRepository) Insert(ctx context.Context, tx pgx.Tx, event *entities.Event) error {
	maxRetries := event.MaxRetries
	if maxRetries == 0 {
		maxRetries = entities.DefaultMaxRetries
	}
	return tx.QueryRow(ctx, `
		INSERT INTO events (event_type, payload, status, max_retries)
		VALUES ($1, $2, 'pending', $3)
		RETURNING id, created_at
	`, event.EventType, event.Payload, maxRetries).Scan(&event.ID, &event.CreatedAt)
}

// Acquire claims an event with a fresh lease. It succeeds only when the row
// is pending with a due retry time, or processing with an expired lease.
// acquired=false is a normal outcome under double delivery, not an error.
func (r *EventRepository) Acquire(ctx context.Context, id int64) (*entities.Event, bool, error) {
	processingID := uuid.NewString()
	row := r.db.QueryRow(ctx, `
		UPDATE events SET
			status = 'processing',
			processing_id = $2,
			processing_started_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND (
			(status = 'pending' AND (next_retry_at IS NULL OR next_retry_at <= NOW()))
			OR (status = 'processing' AND processing_started_at IS NOT NULL
				AND processing_started_at < NOW() - INTERVAL '5 minutes')
		)
		RETURNING `+eventColumns, id, processingID)

	event, err := scanEvent(row)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("acquire event %d: %w", id, err)
	}
	return event, true, nil
}

// Complete marks a successful attempt, guarded by the processing id.
func (r *EventRepository) Complete(ctx context.Context, id int64, processingID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE events SET
			status = 'completed',
			processed_at = NOW(),
			processing_id = NULL,
			processing_started_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND processing_id = $2 AND status = 'processing'
	`, id, processingID)
	if err != nil {
		return fmt.Errorf("complete event %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Fail records the error and either requeues with exponential backoff
// (2^retryCount minutes) or, when the budget is exhausted, parks the event
// in the terminal failed status.
func (r *EventRepository) Fail(ctx context.Context, id int64, processingID string, cause error) error {
	message := cause.Error()
	trace := fmt.Sprintf("%+v", cause)
	tag, err := r.db.Exec(ctx, `
		UPDATE events SET
			retry_count = retry_count + 1,
			error_message = LEFT($3, 2000),
			error_trace = $4,
			status = CASE WHEN retry_count + 1 >= max_retries
				THEN 'failed' ELSE 'pending' END,
			next_retry_at = CASE WHEN retry_count + 1 >= max_retries
				THEN NULL
				ELSE NOW() + (POWER(2, retry_count + 1) * INTERVAL '1 minute') END,
			processing_id = NULL,
			processing_started_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND processing_id = $2 AND status = 'processing'
	`, id, processingID, message, trace)
	if err != nil {
		return fmt.Errorf("fail event %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeaseLost
	}
	return nil
}

// MarkDeadLetter parks an event that can never succeed (unknown type,
// unregistered handler). The retry budget is not consumed; the status is
// distinct from exhausted-retry failed for operator triage.
func (r *EventRepository) MarkDeadLetter(ctx context.Context, id int64, processingID string, reason string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE events SET
			status = 'dead_letter',
			error_message = LEFT($3, 2000),
			processing_id = NULL,
			processing_started_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND processing_id = $2 AND status = 'processing'
	`, id, processingID, reason)
	if err != nil {
		return fmt.Errorf("dead-letter event %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeaseLost
	}
	return nil
}

// FindDue is the polling sweep query: pending events old enough to have
// missed the push (or whose retry time arrived) plus processing events
// whose lease expired. FIFO by creation time, bounded batch.
func (r *EventRepository) FindDue(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM events
		WHERE (status = 'pending'
				AND created_at < NOW() - INTERVAL '1 second'
				AND (next_retry_at IS NULL OR next_retry_at <= NOW()))
			OR (status = 'processing'
				AND processing_started_at IS NOT NULL
				AND processing_started_at < NOW() - INTERVAL '5 minutes')
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("find due events: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetByID loads one event (admin/introspection).
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*entities.Event, error) {
	row := r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	event, err := scanEvent(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return event, nil
}

// ListByStatus returns recent events in a status (admin triage).
func (r *EventRepository) ListByStatus(ctx context.Context, status entities.EventStatus, limit int) ([]entities.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE status = $1 ORDER BY created_at DESC LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list events by status: %w", err)
	}
	defer rows.Close()

	events := []entities.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// Requeue puts a terminal event back to pending with a fresh retry budget.
// The status transition makes the notify trigger fire again.
func (r *EventRepository) Requeue(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE events SET
			status = 'pending',
			retry_count = 0,
			next_retry_at = NULL,
			error_message = NULL,
			error_trace = NULL,
			processing_id = NULL,
			processing_started_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND status IN ('failed', 'dead_letter')
	`, id)
	if err != nil {
		return fmt.Errorf("requeue event %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event %d is not in a terminal status", id)
	}
	return nil
}

func scanEvent(row pgx.Row) (*entities.Event, error) {
	var e entities.Event
	err := row.Scan(
		&e.ID, &e.EventType, &e.Payload, &e.Status, &e.RetryCount, &e.MaxRetries,
		&e.ProcessingID, &e.ProcessingStartedAt, &e.ProcessedAt, &e.NextRetryAt,
		&e.ErrorMessage, &e.ErrorTrace, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
