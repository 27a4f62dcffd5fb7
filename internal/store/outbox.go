package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Outbox accessors used by the feed relay.

// FetchOutboxEvent loads a single outbox row by id.
func (s *PostgresStore) FetchOutboxEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	var ev Event
	err := s.pool.QueryRow(ctx,
		`SELECT id, draft_id, event_type, payload, created_at FROM mockdraft_outbox WHERE id = $1`, id).
		Scan(&ev.ID, &ev.DraftID, &ev.Type, &ev.Payload, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("outbox event %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	return &ev, nil
}

// FetchUnsentOutbox returns up to limit unsent events, oldest first.
func (s *PostgresStore) FetchUnsentOutbox(ctx context.Context, limit int32) ([]Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, draft_id, event_type, payload, created_at FROM mockdraft_outbox
		 WHERE sent_at IS NULL ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.DraftID, &ev.Type, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkOutboxSent stamps an outbox row as delivered to the bus.
func (s *PostgresStore) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE mockdraft_outbox SET sent_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to mark outbox event sent: %w", err)
	}
	return nil
}
