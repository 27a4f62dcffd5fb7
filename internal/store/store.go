// Package store persists Draft aggregates as documents with optimistic
// read-modify-write transactions. The Draft document plus its Pick/Trade
// sub-documents are the unit of transactional isolation; operations never
// span two drafts atomically.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/draftday/mockdraft/internal/models"
)

// ErrConflict is returned when a concurrent writer committed first. WithDraft
// retries conflicts a bounded number of times before surfacing ErrRetriesExhausted.
var (
	ErrConflict         = errors.New("store: draft version conflict")
	ErrRetriesExhausted = errors.New("store: transaction retries exhausted, try again")
)

// maxTxnRetries bounds automatic conflict retries.
const maxTxnRetries = 3

// Event is a change-feed entry written in the same transaction as the
// mutation it describes.
type Event struct {
	ID        uuid.UUID `json:"event_id"`
	DraftID   uuid.UUID `json:"draft_id"`
	Type      string    `json:"event_type"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Txn is the working set of one draft transaction. Draft returns the reloaded
// aggregate; mutations made to it, appended picks, stored trades and emitted
// events commit together or not at all.
type Txn interface {
	Draft() *models.Draft
	AppendPick(p *models.Pick)
	Trade(id uuid.UUID) (*models.Trade, error)
	PutTrade(t *models.Trade)
	Emit(eventType string, payload []byte)
}

// Store is the document-store boundary the engine depends on.
type Store interface {
	CreateDraft(ctx context.Context, d *models.Draft) error
	GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error)
	DeleteDraft(ctx context.Context, id uuid.UUID) error
	ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.Pick, error)
	GetTrade(ctx context.Context, id uuid.UUID) (*models.Trade, error)
	ListTrades(ctx context.Context, draftID uuid.UUID) ([]models.Trade, error)

	// WithDraft runs fn inside an atomic read-modify-write transaction against
	// the draft document. Storage conflicts are retried up to maxTxnRetries;
	// any other error from fn aborts without retry and passes through.
	WithDraft(ctx context.Context, draftID uuid.UUID, fn func(Txn) error) (*models.Draft, error)
}

// withRetry implements the shared bounded-retry loop over a single optimistic
// attempt. attempt must return ErrConflict (possibly wrapped) on lost races.
func withRetry(ctx context.Context, attempt func() (*models.Draft, error)) (*models.Draft, error) {
	var lastErr error
	for i := 0; i < maxTxnRetries; i++ {
		d, err := attempt()
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, errors.Join(ErrRetriesExhausted, lastErr)
}
