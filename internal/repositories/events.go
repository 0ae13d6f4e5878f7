package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

const eventColumns = `id, sequence, kind, track_uri, track_name, detail, success, client, created_at, updated_at`

// EventRepository stores request history. It satisfies the services.Recorder interface through
// [EventRepository.Record].
type EventRepository struct {
	db   *sql.DB
	keep int
}

// NewEventRepository creates a new EventRepository with the given database connection
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// WithRetention keeps only the newest keep events, pruning after every insert. Zero keeps
// everything.
func (r *EventRepository) WithRetention(keep int) *EventRepository {
	r.keep = keep
	return r
}

// Record stores event. It is the write path used by the reconciler for every queue action.
// With a retention set, older events beyond it are pruned afterwards.
func (r *EventRepository) Record(ctx context.Context, event *models.QueueEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "queue_events")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	event.SetID(shared.GenerateID())
	event.SetSequence(sequence)

	query := `
		INSERT INTO queue_events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		event.ID(),
		sequence,
		string(event.Kind()),
		event.TrackURI(),
		event.TrackName(),
		event.Detail(),
		event.Success(),
		event.Client(),
		event.CreatedAt(),
		event.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if r.keep > 0 {
		if _, err := r.Prune(ctx, r.keep); err != nil {
			return err
		}
	}
	return nil
}

// Recent returns the newest events of kind, or of every kind when kind is empty. limit is clamped
// to 1..[MaxHistoryLimit] with [DefaultHistoryLimit] for zero or negative values.
func (r *EventRepository) Recent(ctx context.Context, kind models.EventKind, limit int) ([]*models.QueueEvent, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	return r.list(ctx, kind, limit)
}

// Prune keeps the newest keep events and deletes the rest, returning the number removed.
func (r *EventRepository) Prune(ctx context.Context, keep int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM queue_events
		WHERE sequence <= (SELECT COALESCE(MAX(sequence), 0) FROM queue_events) - ?
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return result.RowsAffected()
}

func (r *EventRepository) list(ctx context.Context, kind models.EventKind, limit int) ([]*models.QueueEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM queue_events`
	args := []any{}

	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}

	query += " ORDER BY sequence DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []*models.QueueEvent{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanEvent reads one row from [sql.Rows].
func scanEvent(s scanner) (*models.QueueEvent, error) {
	var (
		id        string
		sequence  int
		kind      string
		trackURI  string
		trackName string
		detail    string
		success   bool
		client    string
		createdAt time.Time
		updatedAt time.Time
	)

	err := s.Scan(&id, &sequence, &kind, &trackURI, &trackName, &detail, &success, &client, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	event := models.NewQueueEvent(models.EventKind(kind), trackURI, trackName, detail, success)
	event.SetID(id)
	event.SetSequence(sequence)
	event.SetClient(client)
	event.SetCreatedAt(createdAt)
	event.SetUpdatedAt(updatedAt)
	return event, nil
}
