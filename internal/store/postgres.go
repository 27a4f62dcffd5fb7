package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/draftday/mockdraft/internal/models"
)

// NotifyChannel is the Postgres NOTIFY channel outbox event ids are published
// on. The feed relay LISTENs here.
const NotifyChannel = "mockdraft_outbox_events"

// Schema creates the document tables. The picks primary key enforces
// exactly-once per overall at the storage layer.
const Schema = `
CREATE TABLE IF NOT EXISTS mockdraft_drafts (
    id         UUID PRIMARY KEY,
    doc        JSONB NOT NULL,
    version    BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS mockdraft_picks (
    draft_id   UUID NOT NULL REFERENCES mockdraft_drafts(id) ON DELETE CASCADE,
    overall    INT  NOT NULL,
    doc        JSONB NOT NULL,
    PRIMARY KEY (draft_id, overall)
);
CREATE TABLE IF NOT EXISTS mockdraft_trades (
    id        UUID PRIMARY KEY,
    draft_id  UUID NOT NULL REFERENCES mockdraft_drafts(id) ON DELETE CASCADE,
    status    TEXT NOT NULL,
    doc       JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS mockdraft_outbox (
    id         UUID PRIMARY KEY,
    draft_id   UUID NOT NULL,
    event_type TEXT NOT NULL,
    payload    JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    sent_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS mockdraft_outbox_unsent ON mockdraft_outbox (created_at) WHERE sent_at IS NULL;
`

// PostgresStore persists drafts as JSONB documents with a version column for
// optimistic concurrency. Outbox rows are written in the same transaction and
// announced with pg_notify.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateDraft(ctx context.Context, d *models.Draft) error {
	doc, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO mockdraft_drafts (id, doc, version) VALUES ($1, $2, 1)`, d.ID, doc)
	if err != nil {
		return fmt.Errorf("failed to create draft: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM mockdraft_drafts WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.DraftNotFound(fmt.Sprintf("draft %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return unmarshalDraft(doc)
}

func (s *PostgresStore) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM mockdraft_drafts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.DraftNotFound(fmt.Sprintf("draft %s not found", id))
	}
	return nil
}

func (s *PostgresStore) ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.Pick, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM mockdraft_picks WHERE draft_id = $1 ORDER BY overall`, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	defer rows.Close()

	var picks []models.Pick
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		var p models.Pick
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pick: %w", err)
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

func (s *PostgresStore) GetTrade(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM mockdraft_trades WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.TradeNotFound(fmt.Sprintf("trade %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	var t models.Trade
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trade: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) ListTrades(ctx context.Context, draftID uuid.UUID) ([]models.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM mockdraft_trades WHERE draft_id = $1 ORDER BY doc->>'proposed_at'`, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		var t models.Trade
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *PostgresStore) WithDraft(ctx context.Context, draftID uuid.UUID, fn func(Txn) error) (*models.Draft, error) {
	return withRetry(ctx, func() (*models.Draft, error) {
		return s.attempt(ctx, draftID, fn)
	})
}

func (s *PostgresStore) attempt(ctx context.Context, draftID uuid.UUID, fn func(Txn) error) (*models.Draft, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var doc []byte
	var version int64
	err = tx.QueryRow(ctx,
		`SELECT doc, version FROM mockdraft_drafts WHERE id = $1`, draftID).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.DraftNotFound(fmt.Sprintf("draft %s not found", draftID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	draft, err := unmarshalDraft(doc)
	if err != nil {
		return nil, err
	}

	txn := &pgTxn{ctx: ctx, tx: tx, draft: draft}
	if err := fn(txn); err != nil {
		return nil, err
	}

	draft.UpdatedAt = time.Now().UTC()
	updated, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft: %w", err)
	}

	// Optimistic write: a concurrent committer bumped the version and we lose.
	tag, err := tx.Exec(ctx,
		`UPDATE mockdraft_drafts SET doc = $2, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $3`,
		draftID, updated, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrConflict
	}

	for _, p := range txn.picks {
		pickDoc, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal pick: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO mockdraft_picks (draft_id, overall, doc) VALUES ($1, $2, $3)`,
			draftID, p.Overall, pickDoc); err != nil {
			return nil, fmt.Errorf("failed to insert pick: %w", err)
		}
	}

	for _, t := range txn.trades {
		tradeDoc, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal trade: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO mockdraft_trades (id, draft_id, status, doc) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, doc = EXCLUDED.doc`,
			t.ID, draftID, string(t.Status), tradeDoc); err != nil {
			return nil, fmt.Errorf("failed to upsert trade: %w", err)
		}
	}

	for _, ev := range txn.events {
		if _, err := tx.Exec(ctx,
			`INSERT INTO mockdraft_outbox (id, draft_id, event_type, payload) VALUES ($1, $2, $3, $4)`,
			ev.ID, draftID, ev.Type, ev.Payload); err != nil {
			return nil, fmt.Errorf("failed to insert outbox event: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`SELECT pg_notify($1, $2)`, NotifyChannel, ev.ID.String()); err != nil {
			return nil, fmt.Errorf("failed to notify outbox event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return draft, nil
}

type pgTxn struct {
	ctx    context.Context
	tx     pgx.Tx
	draft  *models.Draft
	picks  []*models.Pick
	trades []*models.Trade
	events []Event
}

func (t *pgTxn) Draft() *models.Draft { return t.draft }

func (t *pgTxn) AppendPick(p *models.Pick) { t.picks = append(t.picks, p) }

func (t *pgTxn) Trade(id uuid.UUID) (*models.Trade, error) {
	for _, staged := range t.trades {
		if staged.ID == id {
			return staged, nil
		}
	}
	var doc []byte
	err := t.tx.QueryRow(t.ctx, `SELECT doc FROM mockdraft_trades WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.TradeNotFound(fmt.Sprintf("trade %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trade: %w", err)
	}
	var tr models.Trade
	if err := json.Unmarshal(doc, &tr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trade: %w", err)
	}
	return &tr, nil
}

func (t *pgTxn) PutTrade(tr *models.Trade) { t.trades = append(t.trades, tr) }

func (t *pgTxn) Emit(eventType string, payload []byte) {
	t.events = append(t.events, Event{ID: uuid.New(), Type: eventType, Payload: payload})
}

func unmarshalDraft(doc []byte) (*models.Draft, error) {
	var d models.Draft
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &d, nil
}
