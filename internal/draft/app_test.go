package draft_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/draftday/mockdraft/internal/catalog"
	"github.com/draftday/mockdraft/internal/draft"
	"github.com/draftday/mockdraft/internal/models"
	"github.com/draftday/mockdraft/internal/store"
)

var testTeams = []string{"ARI", "ATL", "BAL", "BUF"}

func testSlots() []models.DraftSlot {
	slots := make([]models.DraftSlot, 0, len(testTeams))
	for i, team := range testTeams {
		slots = append(slots, models.DraftSlot{
			Overall:     i + 1,
			Round:       1,
			PickInRound: i + 1,
			Team:        team,
		})
	}
	return slots
}

func testCatalog() *catalog.Static {
	cat := catalog.NewStatic()
	players := make([]models.Player, 0, 12)
	for i := 1; i <= 12; i++ {
		players = append(players, models.Player{
			ID:            fmt.Sprintf("p%d", i),
			Name:          fmt.Sprintf("Player %d", i),
			Position:      models.PosWR,
			ConsensusRank: i,
			DraftYear:     2026,
		})
	}
	cat.Players[2026] = players
	return cat
}

type fixture struct {
	app     *draft.App
	store   *store.MemoryStore
	clock   *clockwork.FakeClock
	creator uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	clock := clockwork.NewFakeClock()
	app := draft.NewApp(st, draft.Deps{
		Catalog: testCatalog(),
		Clock:   clock,
		RNG:     rand.New(rand.NewSource(1)),
	})
	return &fixture{app: app, store: st, clock: clock, creator: uuid.New()}
}

// createDraft builds a 1-round 4-team draft. humans maps team code to its
// controller; unlisted teams are CPU.
func (f *fixture) createDraft(t *testing.T, humans map[string]uuid.UUID, speed models.CPUSpeed) *models.Draft {
	t.Helper()
	assignments := map[string]*uuid.UUID{}
	for team, id := range humans {
		id := id
		assignments[team] = &id
	}
	d, err := f.app.CreateDraft(context.Background(), draft.CreateDraftRequest{
		Config: models.DraftConfig{
			Rounds:        1,
			Format:        models.DraftFormatFull,
			DraftYear:     2026,
			CPUSpeed:      speed,
			TradesEnabled: true,
		},
		TeamAssignments: assignments,
		PickOrder:       testSlots(),
		CreatedBy:       f.creator,
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) start(t *testing.T, d *models.Draft) {
	t.Helper()
	_, err := f.app.StartDraft(context.Background(), d.ID, f.creator)
	require.NoError(t, err)
}

func TestCreateDraftValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := map[string]struct {
		mutate func(*draft.CreateDraftRequest)
	}{
		"zero rounds":        {mutate: func(r *draft.CreateDraftRequest) { r.Config.Rounds = 0 }},
		"bad year":           {mutate: func(r *draft.CreateDraftRequest) { r.Config.DraftYear = 1990 }},
		"bad format":         {mutate: func(r *draft.CreateDraftRequest) { r.Config.Format = "TURBO" }},
		"bad speed":          {mutate: func(r *draft.CreateDraftRequest) { r.Config.CPUSpeed = "LUDICROUS" }},
		"randomness too big": {mutate: func(r *draft.CreateDraftRequest) { r.Config.CPURandomness = 1.5 }},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := draft.CreateDraftRequest{
				Config: models.DraftConfig{
					Rounds:    1,
					Format:    models.DraftFormatFull,
					DraftYear: 2026,
					CPUSpeed:  models.CPUSpeedInstant,
				},
				PickOrder: testSlots(),
				CreatedBy: f.creator,
			}
			tc.mutate(&req)
			_, err := f.app.CreateDraft(ctx, req)
			require.Error(t, err)
		})
	}
}

func TestCreateDraftDefaults(t *testing.T) {
	f := newFixture(t)
	d := f.createDraft(t, nil, models.CPUSpeedInstant)

	require.Equal(t, models.DraftStatusLobby, d.Status)
	require.Equal(t, 1, d.CurrentPick)
	require.Equal(t, 1, d.CurrentRound)
	require.NotEmpty(t, d.FuturePicks) // trades enabled seeds the ledger
}

func TestLifecycleTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("start pause resume", func(t *testing.T) {
		f := newFixture(t)
		user := uuid.New()
		d := f.createDraft(t, map[string]uuid.UUID{"ARI": user}, models.CPUSpeedNormal)

		got, err := f.app.StartDraft(ctx, d.ID, f.creator)
		require.NoError(t, err)
		require.Equal(t, models.DraftStatusActive, got.Status)

		got, err = f.app.PauseDraft(ctx, d.ID, f.creator)
		require.NoError(t, err)
		require.Equal(t, models.DraftStatusPaused, got.Status)

		got, err = f.app.ResumeDraft(ctx, d.ID, f.creator)
		require.NoError(t, err)
		require.Equal(t, models.DraftStatusActive, got.Status)
	})

	t.Run("invalid from-state", func(t *testing.T) {
		f := newFixture(t)
		d := f.createDraft(t, nil, models.CPUSpeedNormal)

		_, err := f.app.PauseDraft(ctx, d.ID, f.creator)
		require.Equal(t, models.CodeDraftNotActive, models.ErrorCode(err))

		_, err = f.app.ResumeDraft(ctx, d.ID, f.creator)
		require.Equal(t, models.CodeDraftNotActive, models.ErrorCode(err))

		f.start(t, d)
		_, err = f.app.StartDraft(ctx, d.ID, f.creator)
		require.Equal(t, models.CodeDraftNotActive, models.ErrorCode(err))
	})

	t.Run("creator only", func(t *testing.T) {
		f := newFixture(t)
		d := f.createDraft(t, nil, models.CPUSpeedNormal)

		_, err := f.app.StartDraft(ctx, d.ID, uuid.New())
		require.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
	})

	t.Run("cancel", func(t *testing.T) {
		f := newFixture(t)
		d := f.createDraft(t, nil, models.CPUSpeedNormal)
		f.start(t, d)

		got, err := f.app.CancelDraft(ctx, d.ID, f.creator)
		require.NoError(t, err)
		require.Equal(t, models.DraftStatusCancelled, got.Status)

		_, err = f.app.CancelDraft(ctx, d.ID, f.creator)
		require.Equal(t, models.CodeDraftNotActive, models.ErrorCode(err))
	})

	t.Run("lock requires complete", func(t *testing.T) {
		f := newFixture(t)
		d := f.createDraft(t, nil, models.CPUSpeedInstant)

		_, err := f.app.LockDraft(ctx, d.ID, f.creator)
		require.Equal(t, models.CodeDraftNotActive, models.ErrorCode(err))

		f.start(t, d)
		res, err := f.app.RunCPUCascade(ctx, d.ID)
		require.NoError(t, err)
		require.True(t, res.IsComplete)

		got, err := f.app.LockDraft(ctx, d.ID, f.creator)
		require.NoError(t, err)
		require.True(t, got.IsLocked)

		// Idempotent.
		_, err = f.app.LockDraft(ctx, d.ID, f.creator)
		require.NoError(t, err)

		// Locked drafts refuse further transitions.
		_, err = f.app.CancelDraft(ctx, d.ID, f.creator)
		require.Equal(t, models.CodeDraftNotActive, models.ErrorCode(err))
	})
}

func TestDeleteDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t, nil, models.CPUSpeedNormal)

	err := f.app.DeleteDraft(ctx, d.ID, uuid.New())
	require.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	require.NoError(t, f.app.DeleteDraft(ctx, d.ID, f.creator))

	_, err = f.app.GetDraft(ctx, d.ID)
	require.Equal(t, models.CodeDraftNotFound, models.ErrorCode(err))
}

func TestMakePick(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	t.Run("success and advance", func(t *testing.T) {
		f := newFixture(t)
		d := f.createDraft(t, map[string]uuid.UUID{"ARI": user}, models.CPUSpeedNormal)
		f.start(t, d)

		pick, err := f.app.MakePick(ctx, d.ID, 1, "p3", user)
		require.NoError(t, err)
		require.Equal(t, 1, pick.Overall)
		require.Equal(t, "ARI", pick.Team)
		require.Equal(t, "p3", pick.PlayerID)
		require.NotNil(t, pick.UserID)

		got, err := f.app.GetDraft(ctx, d.ID)
		require.NoError(t, err)
		require.Equal(t, 2, got.CurrentPick)
		require.Equal(t, len(got.PickedPlayerIDs)+1, got.CurrentPick)
	})

	t.Run("not active", func(t *testing.T) {
		f := newFixture(t)
		d := f.createDraft(t, map[string]uuid.UUID{"ARI": user}, models.CPUSpeedNormal)

		_, err := f.app.MakePick(ctx, d.ID, 1, "p1", user)
		require.Equal(t, models.CodeDraftNotActive, models.ErrorCode(err))
	})

	t.Run("stale slot", func(t *testing.T) {
		f := newFixture(t)
		d := f.createDraft(t, map[string]uuid.UUID{"ARI": user}, models.CPUSpeedNormal)
		f.start(t, d)

		_, err := f.app.MakePick(ctx, d.ID, 2, "p1", user)
		require.Equal(t, models.CodeNotYourTurn, models.ErrorCode(err))
	})

	t.Run("wrong controller", func(t *testing.T) {
		f := newFixture(t)
		other := uuid.New()
		d := f.createDraft(t, map[string]uuid.UUID{"ARI": user, "ATL": other}, models.CPUSpeedNormal)
		f.start(t, d)

		_, err := f.app.MakePick(ctx, d.ID, 1, "p1", other)
		require.Equal(t, models.CodeNotYourTurn, models.ErrorCode(err))
	})

	t.Run("player already drafted", func(t *testing.T) {
		f := newFixture(t)
		other := uuid.New()
		d := f.createDraft(t, map[string]uuid.UUID{"ARI": user, "ATL": other}, models.CPUSpeedNormal)
		f.start(t, d)

		_, err := f.app.MakePick(ctx, d.ID, 1, "p1", user)
		require.NoError(t, err)

		_, err = f.app.MakePick(ctx, d.ID, 2, "p1", other)
		require.Equal(t, models.CodePlayerAlreadyDrafted, models.ErrorCode(err))
	})
}

func TestMakePickConcurrentExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	d := f.createDraft(t, map[string]uuid.UUID{"ARI": user}, models.CPUSpeedNormal)
	f.start(t, d)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.app.MakePick(ctx, d.ID, 1, fmt.Sprintf("p%d", i+1), user)
		}(i)
	}
	wg.Wait()

	var okCount int
	for _, err := range errs {
		if err == nil {
			okCount++
		} else {
			require.Equal(t, models.CodeNotYourTurn, models.ErrorCode(err))
		}
	}
	require.Equal(t, 1, okCount)

	picks, err := f.app.ListPicks(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, picks, 1)
	require.Equal(t, 1, picks[0].Overall)
}

func TestCPUCascadeInstantAllCPU(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t, nil, models.CPUSpeedInstant)
	f.start(t, d)

	res, err := f.app.RunCPUCascade(ctx, d.ID)
	require.NoError(t, err)
	require.True(t, res.IsComplete)
	require.Len(t, res.Picks, 4)
	for i, pick := range res.Picks {
		require.Equal(t, i+1, pick.Overall)
		require.Nil(t, pick.UserID)
	}

	got, err := f.app.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, models.DraftStatusComplete, got.Status)
	require.Equal(t, len(got.PickOrder)+1, got.CurrentPick)

	// No duplicate players across the run.
	seen := map[string]bool{}
	for _, id := range got.PickedPlayerIDs {
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestCPUCascadeStopsAtHumanSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	d := f.createDraft(t, map[string]uuid.UUID{"BAL": user}, models.CPUSpeedInstant)
	f.start(t, d)

	res, err := f.app.RunCPUCascade(ctx, d.ID)
	require.NoError(t, err)
	require.False(t, res.IsComplete)
	require.Len(t, res.Picks, 2) // ARI and ATL, stopping at BAL

	got, err := f.app.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.CurrentPick)
}

func TestCPUCascadePausedDraftNoops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t, nil, models.CPUSpeedInstant)
	f.start(t, d)
	_, err := f.app.PauseDraft(ctx, d.ID, f.creator)
	require.NoError(t, err)

	res, err := f.app.RunCPUCascade(ctx, d.ID)
	require.NoError(t, err)
	require.Empty(t, res.Picks)
	require.False(t, res.IsComplete)
}

func TestCPUCascadeFastSingleStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.createDraft(t, nil, models.CPUSpeedFast)
	f.start(t, d)

	res, err := f.app.RunCPUCascade(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, res.Picks, 1)
	require.False(t, res.IsComplete)

	got, err := f.app.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.CurrentPick)
}

func TestPickClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	assignments := map[string]*uuid.UUID{"ARI": &user}
	d, err := f.app.CreateDraft(ctx, draft.CreateDraftRequest{
		Config: models.DraftConfig{
			Rounds:         1,
			Format:         models.DraftFormatFull,
			DraftYear:      2026,
			CPUSpeed:       models.CPUSpeedNormal,
			SecondsPerPick: 60,
		},
		TeamAssignments: assignments,
		PickOrder:       testSlots(),
		CreatedBy:       f.creator,
	})
	require.NoError(t, err)
	f.start(t, d)

	got, err := f.app.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ClockExpiresAt)
	require.Equal(t, f.clock.Now().UTC().Add(60*time.Second), *got.ClockExpiresAt)

	_, err = f.app.PauseDraft(ctx, d.ID, f.creator)
	require.NoError(t, err)
	got, err = f.app.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	require.Nil(t, got.ClockExpiresAt)
}
