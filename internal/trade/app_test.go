package trade

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/draftday/mockdraft/internal/models"
	"github.com/draftday/mockdraft/internal/store"
	"github.com/draftday/mockdraft/internal/timers"
)

var tradeTeams = []string{"ARI", "ATL", "BAL", "BUF"}

type fixture struct {
	app     *App
	store   *store.MemoryStore
	clock   *clockwork.FakeClock
	creator uuid.UUID
	human   uuid.UUID
	draft   *models.Draft
}

// newFixture seeds an active 2-round 4-team draft. ARI is human-controlled,
// the rest are CPU teams, and each team owns one 2027 future pick per round.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   store.NewMemoryStore(),
		clock:   clockwork.NewFakeClock(),
		creator: uuid.New(),
		human:   uuid.New(),
	}
	f.app = NewApp(f.store, Deps{
		Clock:  f.clock,
		Timers: timers.NewRegistry(f.clock),
	})

	var slots []models.DraftSlot
	overall := 1
	for round := 1; round <= 2; round++ {
		for i, team := range tradeTeams {
			slots = append(slots, models.DraftSlot{
				Overall:     overall,
				Round:       round,
				PickInRound: i + 1,
				Team:        team,
			})
			overall++
		}
	}

	var futures []models.FutureDraftPick
	for round := 1; round <= 2; round++ {
		for _, team := range tradeTeams {
			futures = append(futures, models.FutureDraftPick{
				Year: 2027, Round: round, OriginalTeam: team, OwnerTeam: team,
			})
		}
	}

	f.draft = &models.Draft{
		ID:     uuid.New(),
		Status: models.DraftStatusActive,
		Config: models.DraftConfig{
			Rounds:        2,
			Format:        models.DraftFormatFull,
			DraftYear:     2026,
			TradesEnabled: true,
		},
		TeamAssignments: map[string]*uuid.UUID{"ARI": &f.human},
		PickOrder:       slots,
		CurrentPick:     1,
		CurrentRound:    1,
		PickedPlayerIDs: []string{},
		FuturePicks:     futures,
		CreatedBy:       f.creator,
		CreatedAt:       f.clock.Now(),
	}
	require.NoError(t, f.store.CreateDraft(context.Background(), f.draft))
	return f
}

func (f *fixture) reload(t *testing.T) *models.Draft {
	t.Helper()
	d, err := f.store.GetDraft(context.Background(), f.draft.ID)
	require.NoError(t, err)
	return d
}

func currentPick(overall int) models.TradePiece {
	return models.TradePiece{Type: models.TradePieceCurrentPick, Overall: overall}
}

func futurePick(year, round int, team string) models.TradePiece {
	return models.TradePiece{Type: models.TradePieceFuturePick, Year: year, Round: round, Team: team}
}

func TestCreateTradeValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("trades disabled", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.WithDraft(ctx, f.draft.ID, func(txn store.Txn) error {
			txn.Draft().Config.TradesEnabled = false
			return nil
		})
		require.NoError(t, err)

		_, err = f.app.CreateTrade(ctx, CreateTradeRequest{
			DraftID:       f.draft.ID,
			ProposerID:    f.human,
			ProposerTeam:  "ARI",
			RecipientTeam: "ATL",
			ProposerGives: []models.TradePiece{currentPick(1)},
		})
		require.Equal(t, models.CodeTradeError, models.ErrorCode(err))
	})

	t.Run("draft not active", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.WithDraft(ctx, f.draft.ID, func(txn store.Txn) error {
			txn.Draft().Status = models.DraftStatusPaused
			return nil
		})
		require.NoError(t, err)

		_, err = f.app.CreateTrade(ctx, CreateTradeRequest{
			DraftID:       f.draft.ID,
			ProposerID:    f.human,
			ProposerTeam:  "ARI",
			RecipientTeam: "ATL",
			ProposerGives: []models.TradePiece{currentPick(1)},
		})
		require.Equal(t, models.CodeDraftNotActive, models.ErrorCode(err))
	})

	t.Run("proposer must control team", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.app.CreateTrade(ctx, CreateTradeRequest{
			DraftID:       f.draft.ID,
			ProposerID:    uuid.New(),
			ProposerTeam:  "ARI",
			RecipientTeam: "ATL",
			ProposerGives: []models.TradePiece{currentPick(1)},
		})
		require.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
	})

	t.Run("cannot trade with self", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.app.CreateTrade(ctx, CreateTradeRequest{
			DraftID:       f.draft.ID,
			ProposerID:    f.human,
			ProposerTeam:  "ARI",
			RecipientTeam: "ARI",
			ProposerGives: []models.TradePiece{currentPick(1)},
		})
		require.Equal(t, models.CodeTradeError, models.ErrorCode(err))
	})

	t.Run("empty trade", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.app.CreateTrade(ctx, CreateTradeRequest{
			DraftID:       f.draft.ID,
			ProposerID:    f.human,
			ProposerTeam:  "ARI",
			RecipientTeam: "ATL",
		})
		require.Equal(t, models.CodeTradeError, models.ErrorCode(err))
	})

	t.Run("piece ownership", func(t *testing.T) {
		f := newFixture(t)

		// Slot 2 belongs to ATL, not ARI.
		_, err := f.app.CreateTrade(ctx, CreateTradeRequest{
			DraftID:       f.draft.ID,
			ProposerID:    f.human,
			ProposerTeam:  "ARI",
			RecipientTeam: "ATL",
			ProposerGives: []models.TradePiece{currentPick(2)},
		})
		require.Equal(t, models.CodeTradeError, models.ErrorCode(err))

		// Current-year pick dressed up as a future pick.
		_, err = f.app.CreateTrade(ctx, CreateTradeRequest{
			DraftID:       f.draft.ID,
			ProposerID:    f.human,
			ProposerTeam:  "ARI",
			RecipientTeam: "ATL",
			ProposerGives: []models.TradePiece{futurePick(2026, 1, "ARI")},
		})
		require.Equal(t, models.CodeTradeError, models.ErrorCode(err))

		// Consumed slot.
		_, err = f.store.WithDraft(ctx, f.draft.ID, func(txn store.Txn) error {
			txn.Draft().CurrentPick = 2
			return nil
		})
		require.NoError(t, err)
		_, err = f.app.CreateTrade(ctx, CreateTradeRequest{
			DraftID:       f.draft.ID,
			ProposerID:    f.human,
			ProposerTeam:  "ARI",
			RecipientTeam: "ATL",
			ProposerGives: []models.TradePiece{currentPick(1)},
		})
		require.Equal(t, models.CodeTradeError, models.ErrorCode(err))
	})
}

func TestCreateTradeCPUAutoAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// ARI gives its first rounder (overall 1) for ATL's second rounder
	// (overall 6): a windfall for the CPU.
	res, err := f.app.CreateTrade(ctx, CreateTradeRequest{
		DraftID:          f.draft.ID,
		ProposerID:       f.human,
		ProposerTeam:     "ARI",
		RecipientTeam:    "ATL",
		ProposerGives:    []models.TradePiece{currentPick(1)},
		ProposerReceives: []models.TradePiece{currentPick(6)},
	})
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusAccepted, res.Trade.Status)
	require.NotNil(t, res.Evaluation)
	require.True(t, res.Evaluation.Accept)
	require.NotNil(t, res.Trade.ResolvedAt)

	d := f.reload(t)
	require.Equal(t, "ATL", d.SlotByOverall(1).OwnerTeam())
	require.Equal(t, "ARI", d.SlotByOverall(6).OwnerTeam())
}

func TestCreateTradeCPURejectionStaysPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// ARI asks for ATL's overall 2 and offers only a deep future pick. The
	// CPU declines but the trade stays open for a force or a cancel.
	res, err := f.app.CreateTrade(ctx, CreateTradeRequest{
		DraftID:          f.draft.ID,
		ProposerID:       f.human,
		ProposerTeam:     "ARI",
		RecipientTeam:    "ATL",
		ProposerGives:    []models.TradePiece{futurePick(2027, 2, "ARI")},
		ProposerReceives: []models.TradePiece{currentPick(2)},
	})
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusPending, res.Trade.Status)
	require.NotNil(t, res.Evaluation)
	require.False(t, res.Evaluation.Accept)
	require.Nil(t, res.Trade.ResolvedAt)

	// No ownership moved.
	d := f.reload(t)
	require.Equal(t, "ATL", d.SlotByOverall(2).OwnerTeam())
	require.Equal(t, "ARI", d.FuturePick(2027, 2, "ARI").OwnerTeam)

	// The proposer can withdraw it like any pending trade.
	got, err := f.app.CancelTrade(ctx, res.Trade.ID, f.human)
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusCancelled, got.Status)
}

func TestForceTradeAfterCPURejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.app.CreateTrade(ctx, CreateTradeRequest{
		DraftID:          f.draft.ID,
		ProposerID:       f.human,
		ProposerTeam:     "ARI",
		RecipientTeam:    "ATL",
		ProposerGives:    []models.TradePiece{futurePick(2027, 2, "ARI")},
		ProposerReceives: []models.TradePiece{currentPick(2)},
	})
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusPending, res.Trade.Status)
	require.False(t, res.Evaluation.Accept)

	// The creator overrides the CPU's valuation and the transfer executes.
	got, err := f.app.ForceTrade(ctx, res.Trade.ID, f.creator)
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusAccepted, got.Status)
	require.True(t, got.IsForceTrade)

	d := f.reload(t)
	require.Equal(t, "ARI", d.SlotByOverall(2).OwnerTeam())
	require.Equal(t, "ATL", d.FuturePick(2027, 2, "ARI").OwnerTeam)
}

func TestCPURejectedTradeExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.app.CreateTrade(ctx, CreateTradeRequest{
		DraftID:          f.draft.ID,
		ProposerID:       f.human,
		ProposerTeam:     "ARI",
		RecipientTeam:    "ATL",
		ProposerGives:    []models.TradePiece{futurePick(2027, 2, "ARI")},
		ProposerReceives: []models.TradePiece{currentPick(2)},
	})
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusPending, res.Trade.Status)

	f.clock.Advance(121 * time.Second)
	require.Eventually(t, func() bool {
		got, err := f.app.GetTrade(ctx, res.Trade.ID)
		return err == nil && got.Status == models.TradeStatusExpired
	}, time.Second, 5*time.Millisecond)

	_, err = f.app.ForceTrade(ctx, res.Trade.ID, f.creator)
	require.Equal(t, models.CodeTradeNotPending, models.ErrorCode(err))
}

// humanTrade proposes ARI -> BAL where BAL is human-controlled, leaving the
// trade pending.
func (f *fixture) humanTrade(t *testing.T, recipient uuid.UUID, gives, receives []models.TradePiece) *models.Trade {
	t.Helper()
	ctx := context.Background()
	_, err := f.store.WithDraft(ctx, f.draft.ID, func(txn store.Txn) error {
		txn.Draft().TeamAssignments["BAL"] = &recipient
		return nil
	})
	require.NoError(t, err)

	res, err := f.app.CreateTrade(ctx, CreateTradeRequest{
		DraftID:          f.draft.ID,
		ProposerID:       f.human,
		ProposerTeam:     "ARI",
		RecipientTeam:    "BAL",
		ProposerGives:    gives,
		ProposerReceives: receives,
	})
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusPending, res.Trade.Status)
	require.Nil(t, res.Evaluation)
	return res.Trade
}

func TestAcceptTradeTransfersOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipient := uuid.New()

	tr := f.humanTrade(t, recipient,
		[]models.TradePiece{currentPick(1), futurePick(2027, 1, "ARI")},
		[]models.TradePiece{currentPick(3)})

	_, err := f.app.AcceptTrade(ctx, tr.ID, uuid.New())
	require.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	got, err := f.app.AcceptTrade(ctx, tr.ID, recipient)
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusAccepted, got.Status)

	d := f.reload(t)
	require.Equal(t, "BAL", d.SlotByOverall(1).OwnerTeam())
	require.Equal(t, "BAL", d.FuturePick(2027, 1, "ARI").OwnerTeam)
	require.Equal(t, "ARI", d.SlotByOverall(3).OwnerTeam())
	// Original slot team is preserved under the override.
	require.Equal(t, "ARI", d.SlotByOverall(1).Team)
}

func TestAcceptTradeConsumedSlotFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipient := uuid.New()

	tr := f.humanTrade(t, recipient,
		[]models.TradePiece{currentPick(1)},
		[]models.TradePiece{currentPick(3)})

	// The draft advances past slot 1 before the recipient accepts.
	_, err := f.store.WithDraft(ctx, f.draft.ID, func(txn store.Txn) error {
		txn.Draft().CurrentPick = 2
		return nil
	})
	require.NoError(t, err)

	_, err = f.app.AcceptTrade(ctx, tr.ID, recipient)
	require.Equal(t, models.CodeTradeError, models.ErrorCode(err))

	// The trade stays pending and nothing moved.
	got, err := f.app.GetTrade(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusPending, got.Status)

	d := f.reload(t)
	require.Equal(t, "ARI", d.SlotByOverall(1).OwnerTeam())
	require.Equal(t, "BAL", d.SlotByOverall(3).OwnerTeam())
}

func TestRejectAndCancelTrade(t *testing.T) {
	ctx := context.Background()

	t.Run("reject recipient only", func(t *testing.T) {
		f := newFixture(t)
		recipient := uuid.New()
		tr := f.humanTrade(t, recipient, []models.TradePiece{currentPick(1)}, nil)

		_, err := f.app.RejectTrade(ctx, tr.ID, f.human)
		require.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

		got, err := f.app.RejectTrade(ctx, tr.ID, recipient)
		require.NoError(t, err)
		require.Equal(t, models.TradeStatusRejected, got.Status)
	})

	t.Run("cancel proposer only", func(t *testing.T) {
		f := newFixture(t)
		recipient := uuid.New()
		tr := f.humanTrade(t, recipient, []models.TradePiece{currentPick(1)}, nil)

		_, err := f.app.CancelTrade(ctx, tr.ID, recipient)
		require.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

		got, err := f.app.CancelTrade(ctx, tr.ID, f.human)
		require.NoError(t, err)
		require.Equal(t, models.TradeStatusCancelled, got.Status)
	})
}

func TestForceTradeCreatorOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipient := uuid.New()

	tr := f.humanTrade(t, recipient,
		[]models.TradePiece{currentPick(1)},
		[]models.TradePiece{currentPick(3)})

	_, err := f.app.ForceTrade(ctx, tr.ID, f.human)
	require.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	got, err := f.app.ForceTrade(ctx, tr.ID, f.creator)
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusAccepted, got.Status)
	require.True(t, got.IsForceTrade)

	d := f.reload(t)
	require.Equal(t, "BAL", d.SlotByOverall(1).OwnerTeam())
}

func TestTradeTerminalOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipient := uuid.New()

	tr := f.humanTrade(t, recipient, []models.TradePiece{currentPick(1)}, nil)

	_, err := f.app.RejectTrade(ctx, tr.ID, recipient)
	require.NoError(t, err)

	_, err = f.app.AcceptTrade(ctx, tr.ID, recipient)
	require.Equal(t, models.CodeTradeNotPending, models.ErrorCode(err))
	_, err = f.app.RejectTrade(ctx, tr.ID, recipient)
	require.Equal(t, models.CodeTradeNotPending, models.ErrorCode(err))
	_, err = f.app.CancelTrade(ctx, tr.ID, f.human)
	require.Equal(t, models.CodeTradeNotPending, models.ErrorCode(err))
	_, err = f.app.ForceTrade(ctx, tr.ID, f.creator)
	require.Equal(t, models.CodeTradeNotPending, models.ErrorCode(err))
}

func TestTradeExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipient := uuid.New()

	tr := f.humanTrade(t, recipient, []models.TradePiece{currentPick(1)}, nil)

	f.clock.Advance(121 * time.Second)
	// AfterFunc callbacks run asynchronously on a fake clock; poll briefly.
	require.Eventually(t, func() bool {
		got, err := f.app.GetTrade(ctx, tr.ID)
		return err == nil && got.Status == models.TradeStatusExpired
	}, time.Second, 5*time.Millisecond)

	// Expiration is terminal.
	_, err := f.app.AcceptTrade(ctx, tr.ID, recipient)
	require.Equal(t, models.CodeTradeNotPending, models.ErrorCode(err))

	// No ownership moved.
	d := f.reload(t)
	require.Equal(t, "ARI", d.SlotByOverall(1).OwnerTeam())
}

func TestResolutionCancelsExpiryTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipient := uuid.New()

	tr := f.humanTrade(t, recipient, []models.TradePiece{currentPick(1)}, nil)

	got, err := f.app.RejectTrade(ctx, tr.ID, recipient)
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusRejected, got.Status)

	f.clock.Advance(10 * time.Minute)

	// Still rejected, not expired.
	got, err = f.app.GetTrade(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, models.TradeStatusRejected, got.Status)
}
