package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/draftday/mockdraft/internal/draft/cpu"
	"github.com/draftday/mockdraft/internal/events"
	"github.com/draftday/mockdraft/internal/models"
	"github.com/draftday/mockdraft/internal/ratelimit"
	"github.com/draftday/mockdraft/internal/store"
)

// App owns the draft lifecycle and the pick-advancement transaction. Every
// state change commits through store.WithDraft; no in-process lock guards
// cross-request consistency.
type App struct {
	store   store.Store
	catalog PlayerCatalog
	needs   NeedsSource
	order   OrderSource
	clock   clockwork.Clock
	limiter ratelimit.Limiter

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Deps bundles the collaborators the engine consumes. Zero values get
// sensible defaults (real clock, time-seeded RNG, no throttling).
type Deps struct {
	Catalog PlayerCatalog
	Needs   NeedsSource
	Order   OrderSource
	Clock   clockwork.Clock
	Limiter ratelimit.Limiter
	RNG     *rand.Rand
}

func NewApp(st store.Store, deps Deps) *App {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.RNG == nil {
		deps.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.Unlimited{}
	}
	return &App{
		store:   st,
		catalog: deps.Catalog,
		needs:   deps.Needs,
		order:   deps.Order,
		clock:   deps.Clock,
		limiter: deps.Limiter,
		rng:     deps.RNG,
	}
}

// CreateDraft validates the request, builds the pick order and future-pick
// ledger when the caller did not supply them, and persists a lobby draft.
func (a *App) CreateDraft(ctx context.Context, req CreateDraftRequest) (*models.Draft, error) {
	if !a.limiter.Allow(req.CreatedBy.String(), "draft_create") {
		return nil, models.RateLimited("too many drafts created, slow down")
	}
	if err := validateConfig(&req.Config); err != nil {
		return nil, err
	}

	pickOrder := req.PickOrder
	if len(pickOrder) == 0 {
		if a.order == nil {
			return nil, fmt.Errorf("no pick order supplied and no order source configured")
		}
		base, err := a.order.BaseOrder(ctx, req.Config.DraftYear)
		if err != nil {
			return nil, fmt.Errorf("failed to load base order for %d: %w", req.Config.DraftYear, err)
		}
		pickOrder, err = BuildPickOrder(base, req.Config.Rounds)
		if err != nil {
			return nil, err
		}
	}

	futurePicks := req.FuturePicks
	if len(futurePicks) == 0 && req.Config.TradesEnabled {
		futurePicks = BuildFuturePicks(req.Config.DraftYear, req.Config.Rounds, DefaultFutureYears)
	}

	now := a.clock.Now().UTC()
	d := &models.Draft{
		ID:              uuid.New(),
		Status:          models.DraftStatusLobby,
		Config:          req.Config,
		TeamAssignments: req.TeamAssignments,
		Participants:    req.Participants,
		PickOrder:       pickOrder,
		CurrentPick:     1,
		CurrentRound:    1,
		PickedPlayerIDs: []string{},
		FuturePicks:     futurePicks,
		CreatedBy:       req.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if d.TeamAssignments == nil {
		d.TeamAssignments = map[string]*uuid.UUID{}
	}

	if err := a.store.CreateDraft(ctx, d); err != nil {
		return nil, err
	}
	a.emitStatus(ctx, d, events.TypeDraftCreated)

	log.Info().
		Str("draft_id", d.ID.String()).
		Int("rounds", d.Config.Rounds).
		Str("format", string(d.Config.Format)).
		Msg("draft created")
	return d, nil
}

// GetDraft loads a draft by id.
func (a *App) GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	return a.store.GetDraft(ctx, id)
}

// ListPicks returns the completed picks in overall order.
func (a *App) ListPicks(ctx context.Context, draftID uuid.UUID) ([]models.Pick, error) {
	return a.store.ListPicks(ctx, draftID)
}

// StartDraft moves a lobby draft to active. Creator-only.
func (a *App) StartDraft(ctx context.Context, draftID, actingUserID uuid.UUID) (*models.Draft, error) {
	return a.transition(ctx, draftID, actingUserID, models.DraftStatusLobby, models.DraftStatusActive, events.TypeDraftStarted)
}

// PauseDraft suspends an active draft. Creator-only.
func (a *App) PauseDraft(ctx context.Context, draftID, actingUserID uuid.UUID) (*models.Draft, error) {
	return a.transition(ctx, draftID, actingUserID, models.DraftStatusActive, models.DraftStatusPaused, events.TypeDraftPaused)
}

// ResumeDraft reactivates a paused draft. Creator-only.
func (a *App) ResumeDraft(ctx context.Context, draftID, actingUserID uuid.UUID) (*models.Draft, error) {
	return a.transition(ctx, draftID, actingUserID, models.DraftStatusPaused, models.DraftStatusActive, events.TypeDraftResumed)
}

// CancelDraft terminates an active or paused draft. Creator-only.
func (a *App) CancelDraft(ctx context.Context, draftID, actingUserID uuid.UUID) (*models.Draft, error) {
	return a.store.WithDraft(ctx, draftID, func(txn store.Txn) error {
		d := txn.Draft()
		if d.CreatedBy != actingUserID {
			return models.Unauthorized("only the draft creator may cancel")
		}
		if d.IsLocked {
			return models.DraftNotActive("draft is locked")
		}
		if d.Status != models.DraftStatusActive && d.Status != models.DraftStatusPaused {
			return models.DraftNotActive(fmt.Sprintf("cannot cancel a %s draft", d.Status))
		}
		d.Status = models.DraftStatusCancelled
		d.ClockExpiresAt = nil
		a.emitStatusTxn(txn, d, events.TypeDraftCancelled)
		return nil
	})
}

// LockDraft freezes a completed draft as a scored prediction. Creator-only;
// once locked the aggregate is immutable except by administrative override.
func (a *App) LockDraft(ctx context.Context, draftID, actingUserID uuid.UUID) (*models.Draft, error) {
	return a.store.WithDraft(ctx, draftID, func(txn store.Txn) error {
		d := txn.Draft()
		if d.CreatedBy != actingUserID {
			return models.Unauthorized("only the draft creator may lock")
		}
		if d.Status != models.DraftStatusComplete {
			return models.DraftNotActive("only a complete draft can be locked")
		}
		if d.IsLocked {
			return nil // idempotent
		}
		d.IsLocked = true
		a.emitStatusTxn(txn, d, events.TypeDraftLocked)
		return nil
	})
}

// DeleteDraft removes the draft and its child picks. Creator-only.
func (a *App) DeleteDraft(ctx context.Context, draftID, actingUserID uuid.UUID) error {
	d, err := a.store.GetDraft(ctx, draftID)
	if err != nil {
		return err
	}
	if d.CreatedBy != actingUserID {
		return models.Unauthorized("only the draft creator may delete")
	}
	// The deletion event must commit before the row disappears; outbox rows
	// survive the delete.
	a.emitStatus(ctx, d, events.TypeDraftDeleted)
	if err := a.store.DeleteDraft(ctx, draftID); err != nil {
		return err
	}
	log.Info().Str("draft_id", draftID.String()).Msg("draft deleted")
	return nil
}

func (a *App) transition(ctx context.Context, draftID, actingUserID uuid.UUID, from, to models.DraftStatus, eventType string) (*models.Draft, error) {
	return a.store.WithDraft(ctx, draftID, func(txn store.Txn) error {
		d := txn.Draft()
		if d.CreatedBy != actingUserID {
			return models.Unauthorized("only the draft creator may change draft state")
		}
		if d.IsLocked {
			return models.DraftNotActive("draft is locked")
		}
		if d.Status != from {
			return models.DraftNotActive(fmt.Sprintf("draft is %s, expected %s", d.Status, from))
		}
		d.Status = to
		if to == models.DraftStatusActive {
			a.resetClock(d)
		} else {
			d.ClockExpiresAt = nil
		}
		a.emitStatusTxn(txn, d, eventType)
		return nil
	})
}

// MakePick records a human selection for the slot on the clock. The whole
// validation-and-advance sequence commits as one transaction, so a slot is
// either unfilled or fully recorded.
func (a *App) MakePick(ctx context.Context, draftID uuid.UUID, slotOverall int, playerID string, actingUserID uuid.UUID) (*models.Pick, error) {
	var pick *models.Pick
	_, err := a.store.WithDraft(ctx, draftID, func(txn store.Txn) error {
		d := txn.Draft()
		if d.Status != models.DraftStatusActive {
			return models.DraftNotActive(fmt.Sprintf("draft is %s", d.Status))
		}
		if slotOverall != d.CurrentPick {
			// Stale client: pick advanced underneath it.
			return models.NotYourTurn(fmt.Sprintf("pick %d is on the clock, not %d", d.CurrentPick, slotOverall))
		}
		slot := d.CurrentSlot()
		ctrl := d.Controller(slot)
		if ctrl == nil || *ctrl != actingUserID {
			return models.NotYourTurn(fmt.Sprintf("%s is not on the clock", actingUserID))
		}
		if d.HasPicked(playerID) {
			return models.PlayerAlreadyDrafted(fmt.Sprintf("player %s is already drafted", playerID))
		}
		pick = a.recordPick(txn, d, slot, playerID, &actingUserID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("draft_id", draftID.String()).
		Int("overall", pick.Overall).
		Str("player_id", playerID).
		Msg("pick made")
	return pick, nil
}

// AdvanceSingleCPUPick makes exactly one automated pick for the slot on the
// clock, which must be CPU-controlled. Same transaction shape as a human
// pick; the Pick record carries a nil user id.
func (a *App) AdvanceSingleCPUPick(ctx context.Context, draftID uuid.UUID) (*models.Pick, bool, error) {
	var pick *models.Pick
	var complete bool
	_, err := a.store.WithDraft(ctx, draftID, func(txn store.Txn) error {
		d := txn.Draft()
		if d.Status != models.DraftStatusActive {
			return models.DraftNotActive(fmt.Sprintf("draft is %s", d.Status))
		}
		slot := d.CurrentSlot()
		if slot == nil {
			return models.DraftNotActive("no picks remain")
		}
		if d.Controller(slot) != nil {
			return models.NotYourTurn(fmt.Sprintf("slot %d is human-controlled", slot.Overall))
		}

		player, err := a.selectForTeam(ctx, d, slot.OwnerTeam())
		if err != nil {
			return err
		}
		pick = a.recordPick(txn, d, slot, player.ID, nil)
		complete = d.Status == models.DraftStatusComplete
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return pick, complete, nil
}

// RunCPUCascade advances automated picks while the slot on the clock is
// CPU-controlled. Draft status is re-read at the top of every iteration so a
// pause or cancel between steps stops the run without error. In instant mode
// the full remaining cascade resolves here; fast/normal modes take one step
// per invocation and leave pacing to the caller.
func (a *App) RunCPUCascade(ctx context.Context, draftID uuid.UUID) (*CascadeResult, error) {
	res := &CascadeResult{}
	for {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		d, err := a.store.GetDraft(ctx, draftID)
		if err != nil {
			return res, err
		}
		if d.Status != models.DraftStatusActive {
			res.IsComplete = d.Status == models.DraftStatusComplete
			return res, nil
		}
		slot := d.CurrentSlot()
		if slot == nil || d.Controller(slot) != nil {
			return res, nil
		}

		pick, complete, err := a.AdvanceSingleCPUPick(ctx, draftID)
		if err != nil {
			switch models.ErrorCode(err) {
			case models.CodeDraftNotActive:
				// Paused, cancelled or completed between the read and the step.
				return res, nil
			case models.CodeNotYourTurn:
				// A human pick interleaved; re-read and re-decide.
				continue
			}
			return res, err
		}
		res.Picks = append(res.Picks, pick)
		if complete {
			res.IsComplete = true
			return res, nil
		}
		if d.Config.CPUSpeed != models.CPUSpeedInstant {
			return res, nil
		}
	}
}

// selectForTeam applies the CPU selection policy to the undrafted pool.
func (a *App) selectForTeam(ctx context.Context, d *models.Draft, team string) (*models.Player, error) {
	if a.catalog == nil {
		return nil, fmt.Errorf("no player catalog configured")
	}
	all, err := a.catalog.PlayersForYear(ctx, d.Config.DraftYear)
	if err != nil {
		return nil, fmt.Errorf("failed to load player pool: %w", err)
	}
	pool := make([]models.Player, 0, len(all))
	for _, p := range all {
		if !d.HasPicked(p.ID) {
			pool = append(pool, p)
		}
	}

	var needs []models.Position
	if a.needs != nil {
		needs, err = a.needs.TeamNeeds(ctx, team, d.Config.DraftYear)
		if err != nil {
			return nil, fmt.Errorf("failed to load needs for %s: %w", team, err)
		}
	}

	weights := cpu.DefaultWeights().Flatten(d.Config.CPURandomness)

	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return cpu.SelectPlayer(a.rng, pool, needs, weights)
}

// recordPick appends the Pick record and advances the draft counters. Called
// only inside a WithDraft transaction; this is the sole mechanism that moves
// currentPick forward.
func (a *App) recordPick(txn store.Txn, d *models.Draft, slot *models.DraftSlot, playerID string, userID *uuid.UUID) *models.Pick {
	now := a.clock.Now().UTC()
	pick := &models.Pick{
		ID:          uuid.New(),
		DraftID:     d.ID,
		Overall:     slot.Overall,
		Round:       slot.Round,
		PickInRound: slot.PickInRound,
		Team:        slot.OwnerTeam(),
		UserID:      userID,
		PlayerID:    playerID,
		CreatedAt:   now,
	}
	txn.AppendPick(pick)

	d.PickedPlayerIDs = append(d.PickedPlayerIDs, playerID)
	d.CurrentPick++
	if d.CurrentPick > len(d.PickOrder) {
		d.Status = models.DraftStatusComplete
		d.ClockExpiresAt = nil
		a.emitStatusTxn(txn, d, events.TypeDraftCompleted)
	} else {
		d.CurrentRound = d.PickOrder[d.CurrentPick-1].Round
		a.resetClock(d)
	}

	payload, err := json.Marshal(events.PickMadePayload{
		PickID:      pick.ID.String(),
		Team:        pick.Team,
		PlayerID:    pick.PlayerID,
		Round:       pick.Round,
		PickInRound: pick.PickInRound,
		Overall:     pick.Overall,
		CPUMade:     userID == nil,
		MadeAt:      now,
	})
	if err == nil {
		txn.Emit(events.TypePickMade, payload)
	}
	return pick
}

func (a *App) resetClock(d *models.Draft) {
	if d.Config.SecondsPerPick > 0 {
		t := a.clock.Now().UTC().Add(time.Duration(d.Config.SecondsPerPick) * time.Second)
		d.ClockExpiresAt = &t
	}
}

func (a *App) emitStatusTxn(txn store.Txn, d *models.Draft, eventType string) {
	payload, err := json.Marshal(events.DraftStatusPayload{
		DraftID:     d.ID.String(),
		Status:      string(d.Status),
		CurrentPick: d.CurrentPick,
		TotalPicks:  len(d.PickOrder),
		At:          a.clock.Now().UTC(),
	})
	if err != nil {
		return
	}
	txn.Emit(eventType, payload)
}

// emitStatus publishes a lifecycle event outside an existing transaction.
// Failures are logged, never surfaced: the state change already committed.
func (a *App) emitStatus(ctx context.Context, d *models.Draft, eventType string) {
	_, err := a.store.WithDraft(ctx, d.ID, func(txn store.Txn) error {
		a.emitStatusTxn(txn, txn.Draft(), eventType)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("draft_id", d.ID.String()).Str("event", eventType).Msg("failed to emit draft event")
	}
}

func validateConfig(cfg *models.DraftConfig) error {
	if cfg.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1")
	}
	if cfg.DraftYear < 2000 {
		return fmt.Errorf("draft_year %d is not valid", cfg.DraftYear)
	}
	switch cfg.Format {
	case models.DraftFormatFull, models.DraftFormatSingleTeam, models.DraftFormatMultiTeam:
	case "":
		cfg.Format = models.DraftFormatSingleTeam
	default:
		return fmt.Errorf("unknown draft format %q", cfg.Format)
	}
	switch cfg.CPUSpeed {
	case models.CPUSpeedInstant, models.CPUSpeedFast, models.CPUSpeedNormal:
	case "":
		cfg.CPUSpeed = models.CPUSpeedNormal
	default:
		return fmt.Errorf("unknown cpu speed %q", cfg.CPUSpeed)
	}
	if cfg.CPURandomness < 0 || cfg.CPURandomness > 1 {
		return fmt.Errorf("cpu_randomness must be within [0,1]")
	}
	return nil
}
