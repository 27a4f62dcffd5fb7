package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/draftday/mockdraft/internal/models"
)

// Publisher receives committed change-feed events. The memory store delivers
// them synchronously after commit; publish failures are not rolled back.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// MemoryStore is a mutex-guarded in-memory document store. It serializes
// transactions per process, which satisfies the same at-most-once guarantees
// the Postgres store enforces with version checks.
type MemoryStore struct {
	mu       sync.Mutex
	drafts   map[uuid.UUID]*draftDoc
	picks    map[uuid.UUID][]models.Pick
	trades   map[uuid.UUID]*models.Trade
	pub      Publisher
	now      func() time.Time
	conflict func() error // test hook, fired before each commit when set
}

type draftDoc struct {
	draft   *models.Draft
	version int64
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithPublisher delivers committed events to pub.
func WithPublisher(pub Publisher) MemoryOption {
	return func(m *MemoryStore) { m.pub = pub }
}

// WithNow overrides the commit timestamp source.
func WithNow(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// WithConflictHook injects a pre-commit hook; returning ErrConflict exercises
// the retry path in tests.
func WithConflictHook(hook func() error) MemoryOption {
	return func(m *MemoryStore) { m.conflict = hook }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		drafts: make(map[uuid.UUID]*draftDoc),
		picks:  make(map[uuid.UUID][]models.Pick),
		trades: make(map[uuid.UUID]*models.Trade),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) CreateDraft(ctx context.Context, d *models.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[d.ID]; ok {
		return fmt.Errorf("draft %s already exists", d.ID)
	}
	m.drafts[d.ID] = &draftDoc{draft: cloneDraft(d), version: 1}
	return nil
}

func (m *MemoryStore) GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.drafts[id]
	if !ok {
		return nil, models.DraftNotFound(fmt.Sprintf("draft %s not found", id))
	}
	return cloneDraft(doc.draft), nil
}

func (m *MemoryStore) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[id]; !ok {
		return models.DraftNotFound(fmt.Sprintf("draft %s not found", id))
	}
	delete(m.drafts, id)
	delete(m.picks, id)
	for tid, t := range m.trades {
		if t.DraftID == id {
			delete(m.trades, tid)
		}
	}
	return nil
}

func (m *MemoryStore) ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.Pick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	picks := make([]models.Pick, len(m.picks[draftID]))
	copy(picks, m.picks[draftID])
	sort.Slice(picks, func(i, j int) bool { return picks[i].Overall < picks[j].Overall })
	return picks, nil
}

func (m *MemoryStore) GetTrade(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok {
		return nil, models.TradeNotFound(fmt.Sprintf("trade %s not found", id))
	}
	return cloneTrade(t), nil
}

func (m *MemoryStore) ListTrades(ctx context.Context, draftID uuid.UUID) ([]models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Trade
	for _, t := range m.trades {
		if t.DraftID == draftID {
			out = append(out, *cloneTrade(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProposedAt.Before(out[j].ProposedAt) })
	return out, nil
}

func (m *MemoryStore) WithDraft(ctx context.Context, draftID uuid.UUID, fn func(Txn) error) (*models.Draft, error) {
	return withRetry(ctx, func() (*models.Draft, error) {
		return m.attempt(ctx, draftID, fn)
	})
}

func (m *MemoryStore) attempt(ctx context.Context, draftID uuid.UUID, fn func(Txn) error) (*models.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.drafts[draftID]
	if !ok {
		return nil, models.DraftNotFound(fmt.Sprintf("draft %s not found", draftID))
	}

	txn := &memTxn{store: m, draft: cloneDraft(doc.draft)}
	if err := fn(txn); err != nil {
		return nil, err
	}

	if m.conflict != nil {
		if err := m.conflict(); err != nil {
			return nil, err
		}
	}

	// Commit.
	now := m.now().UTC()
	txn.draft.UpdatedAt = now
	doc.draft = cloneDraft(txn.draft)
	doc.version++
	for _, p := range txn.picks {
		m.picks[draftID] = append(m.picks[draftID], *p)
	}
	for _, t := range txn.trades {
		m.trades[t.ID] = cloneTrade(t)
	}

	if m.pub != nil {
		for _, ev := range txn.events {
			ev.DraftID = draftID
			ev.CreatedAt = now
			if err := m.pub.Publish(ctx, ev); err != nil {
				// Feed delivery is best-effort once the commit happened.
				continue
			}
		}
	}

	return cloneDraft(doc.draft), nil
}

type memTxn struct {
	store  *MemoryStore
	draft  *models.Draft
	picks  []*models.Pick
	trades []*models.Trade
	events []Event
}

func (t *memTxn) Draft() *models.Draft { return t.draft }

func (t *memTxn) AppendPick(p *models.Pick) { t.picks = append(t.picks, p) }

func (t *memTxn) Trade(id uuid.UUID) (*models.Trade, error) {
	// Reads see writes staged earlier in this transaction.
	for _, staged := range t.trades {
		if staged.ID == id {
			return cloneTrade(staged), nil
		}
	}
	tr, ok := t.store.trades[id]
	if !ok {
		return nil, models.TradeNotFound(fmt.Sprintf("trade %s not found", id))
	}
	return cloneTrade(tr), nil
}

func (t *memTxn) PutTrade(tr *models.Trade) { t.trades = append(t.trades, cloneTrade(tr)) }

func (t *memTxn) Emit(eventType string, payload []byte) {
	t.events = append(t.events, Event{ID: uuid.New(), Type: eventType, Payload: payload})
}

func cloneDraft(d *models.Draft) *models.Draft {
	out := new(models.Draft)
	mustRoundTrip(d, out)
	return out
}

func cloneTrade(t *models.Trade) *models.Trade {
	out := new(models.Trade)
	mustRoundTrip(t, out)
	return out
}

func mustRoundTrip(src, dst any) {
	b, err := json.Marshal(src)
	if err != nil {
		panic(fmt.Sprintf("store: clone marshal: %v", err))
	}
	if err := json.Unmarshal(b, dst); err != nil {
		panic(fmt.Sprintf("store: clone unmarshal: %v", err))
	}
}
