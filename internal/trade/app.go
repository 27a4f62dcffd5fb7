package trade

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/draftday/mockdraft/internal/events"
	"github.com/draftday/mockdraft/internal/models"
	"github.com/draftday/mockdraft/internal/ratelimit"
	"github.com/draftday/mockdraft/internal/store"
	"github.com/draftday/mockdraft/internal/timers"
)

// DefaultExpiry is how long a human recipient has to act on a pending trade.
const DefaultExpiry = 120 * time.Second

// App owns the trade proposal/valuation/execution pipeline. Ownership
// transfer mutates the Draft aggregate inside the same transaction that
// resolves the trade.
type App struct {
	store   store.Store
	clock   clockwork.Clock
	timers  *timers.Registry
	limiter ratelimit.Limiter
	needs   NeedsSource
	values  ValueConfig
	expiry  time.Duration
}

// Deps bundles collaborators. Zero values default to a real clock, a fresh
// timer registry, no throttling, no needs data, the standard chart and a
// 120s expiry.
type Deps struct {
	Clock   clockwork.Clock
	Timers  *timers.Registry
	Limiter ratelimit.Limiter
	Needs   NeedsSource
	Values  *ValueConfig
	Expiry  time.Duration
}

func NewApp(st store.Store, deps Deps) *App {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Timers == nil {
		deps.Timers = timers.NewRegistry(deps.Clock)
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.Unlimited{}
	}
	values := DefaultValueConfig()
	if deps.Values != nil {
		values = *deps.Values
	}
	if deps.Expiry <= 0 {
		deps.Expiry = DefaultExpiry
	}
	return &App{
		store:   st,
		clock:   deps.Clock,
		timers:  deps.Timers,
		limiter: deps.Limiter,
		needs:   deps.Needs,
		values:  values,
		expiry:  deps.Expiry,
	}
}

// Shutdown cancels all pending expiration timers.
func (a *App) Shutdown() {
	a.timers.Shutdown()
}

// GetTrade loads a trade by id.
func (a *App) GetTrade(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	return a.store.GetTrade(ctx, id)
}

// ListTrades returns all trades of a draft.
func (a *App) ListTrades(ctx context.Context, draftID uuid.UUID) ([]models.Trade, error) {
	return a.store.ListTrades(ctx, draftID)
}

// CreateTrade validates and persists a pending proposal. CPU recipients are
// evaluated immediately inside the same transaction: an accepting valuation
// executes the transfer at once, a rejecting one leaves the trade pending so
// the draft creator can force it through or the proposer can withdraw it.
// Pending trades get an expiration timer.
func (a *App) CreateTrade(ctx context.Context, req CreateTradeRequest) (*CreateTradeResult, error) {
	if !a.limiter.Allow(req.ProposerID.String(), "trade_propose") {
		return nil, models.RateLimited("too many trade proposals, slow down")
	}
	if len(req.ProposerGives) == 0 && len(req.ProposerReceives) == 0 {
		return nil, models.TradeError("a trade needs at least one piece")
	}

	result := &CreateTradeResult{}
	_, err := a.store.WithDraft(ctx, req.DraftID, func(txn store.Txn) error {
		d := txn.Draft()
		if !d.Config.TradesEnabled {
			return models.TradeError("trades are disabled for this draft")
		}
		if d.Status != models.DraftStatusActive {
			return models.DraftNotActive(fmt.Sprintf("draft is %s", d.Status))
		}
		ctrl := d.TeamAssignments[req.ProposerTeam]
		if ctrl == nil || *ctrl != req.ProposerID {
			return models.Unauthorized(fmt.Sprintf("proposer does not control %s", req.ProposerTeam))
		}
		if req.RecipientTeam == req.ProposerTeam {
			return models.TradeError("cannot trade with yourself")
		}
		if err := a.validatePieces(d, req.ProposerGives, req.ProposerTeam); err != nil {
			return err
		}
		if err := a.validatePieces(d, req.ProposerReceives, req.RecipientTeam); err != nil {
			return err
		}

		now := a.clock.Now().UTC()
		tr := &models.Trade{
			ID:               uuid.New(),
			DraftID:          d.ID,
			Status:           models.TradeStatusPending,
			ProposerID:       req.ProposerID,
			ProposerTeam:     req.ProposerTeam,
			RecipientID:      d.TeamAssignments[req.RecipientTeam],
			RecipientTeam:    req.RecipientTeam,
			ProposerGives:    req.ProposerGives,
			ProposerReceives: req.ProposerReceives,
			ProposedAt:       now,
		}
		a.emitTrade(txn, tr, events.TypeTradeProposed)

		if tr.CPURecipient() {
			needs, err := a.teamNeeds(ctx, tr.RecipientTeam, d.Config.DraftYear)
			if err != nil {
				return err
			}
			eval, err := a.values.Evaluate(d, tr, needs)
			if err != nil {
				return err
			}
			result.Evaluation = eval
			if eval.Accept {
				if err := a.executeTransfer(d, tr); err != nil {
					return err
				}
				a.finish(txn, tr, models.TradeStatusAccepted, events.TypeTradeAccepted)
			} else {
				// A declined valuation is not terminal. The trade stays
				// pending until the creator forces it, the proposer cancels
				// it, or the timer expires it.
				txn.PutTrade(tr)
			}
		} else {
			txn.PutTrade(tr)
		}
		result.Trade = tr
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Trade.Status == models.TradeStatusPending {
		a.scheduleExpiry(result.Trade.ID)
	}

	log.Info().
		Str("trade_id", result.Trade.ID.String()).
		Str("draft_id", req.DraftID.String()).
		Str("status", string(result.Trade.Status)).
		Msg("trade proposed")
	return result, nil
}

// AcceptTrade resolves a pending trade as accepted and executes the ownership
// transfer atomically. Recipient-only.
func (a *App) AcceptTrade(ctx context.Context, tradeID, actingUserID uuid.UUID) (*models.Trade, error) {
	return a.resolve(ctx, tradeID, func(d *models.Draft, tr *models.Trade) (models.TradeStatus, string, error) {
		if tr.RecipientID == nil || *tr.RecipientID != actingUserID {
			return "", "", models.Unauthorized("only the trade recipient may accept")
		}
		if err := a.executeTransfer(d, tr); err != nil {
			return "", "", err
		}
		return models.TradeStatusAccepted, events.TypeTradeAccepted, nil
	})
}

// RejectTrade resolves a pending trade as rejected. Recipient-only.
func (a *App) RejectTrade(ctx context.Context, tradeID, actingUserID uuid.UUID) (*models.Trade, error) {
	return a.resolve(ctx, tradeID, func(d *models.Draft, tr *models.Trade) (models.TradeStatus, string, error) {
		if tr.RecipientID == nil || *tr.RecipientID != actingUserID {
			return "", "", models.Unauthorized("only the trade recipient may reject")
		}
		return models.TradeStatusRejected, events.TypeTradeRejected, nil
	})
}

// CancelTrade withdraws a pending proposal. Proposer-only.
func (a *App) CancelTrade(ctx context.Context, tradeID, actingUserID uuid.UUID) (*models.Trade, error) {
	return a.resolve(ctx, tradeID, func(d *models.Draft, tr *models.Trade) (models.TradeStatus, string, error) {
		if tr.ProposerID != actingUserID {
			return "", "", models.Unauthorized("only the proposer may cancel")
		}
		return models.TradeStatusCancelled, events.TypeTradeCancelled, nil
	})
}

// ForceTrade accepts a pending trade unconditionally, including one the CPU
// valuation declined. Draft-creator-only; slot consumption is still
// re-validated.
func (a *App) ForceTrade(ctx context.Context, tradeID, actingUserID uuid.UUID) (*models.Trade, error) {
	return a.resolve(ctx, tradeID, func(d *models.Draft, tr *models.Trade) (models.TradeStatus, string, error) {
		if d.CreatedBy != actingUserID {
			return "", "", models.Unauthorized("only the draft creator may force a trade")
		}
		if err := a.executeTransfer(d, tr); err != nil {
			return "", "", err
		}
		tr.IsForceTrade = true
		return models.TradeStatusAccepted, events.TypeTradeAccepted, nil
	})
}

// resolve runs one terminal transition. The pending check happens inside the
// transaction, so every resolution path transitions status exactly once.
func (a *App) resolve(ctx context.Context, tradeID uuid.UUID, decide func(*models.Draft, *models.Trade) (models.TradeStatus, string, error)) (*models.Trade, error) {
	ref, err := a.store.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	var resolved *models.Trade
	_, err = a.store.WithDraft(ctx, ref.DraftID, func(txn store.Txn) error {
		tr, err := txn.Trade(tradeID)
		if err != nil {
			return err
		}
		if tr.Status.Terminal() {
			return models.TradeNotPending(fmt.Sprintf("trade is already %s", tr.Status))
		}
		status, eventType, err := decide(txn.Draft(), tr)
		if err != nil {
			return err
		}
		a.finish(txn, tr, status, eventType)
		resolved = tr
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.timers.Cancel(tradeID)
	log.Info().
		Str("trade_id", tradeID.String()).
		Str("status", string(resolved.Status)).
		Msg("trade resolved")
	return resolved, nil
}

// validatePieces checks that every piece currently resolves to a slot or
// ledger entry owned by side and not yet consumed by a completed pick.
func (a *App) validatePieces(d *models.Draft, pieces []models.TradePiece, side string) error {
	for _, piece := range pieces {
		switch piece.Type {
		case models.TradePieceCurrentPick:
			slot := d.SlotByOverall(piece.Overall)
			if slot == nil {
				return models.TradeError(fmt.Sprintf("pick %d does not exist", piece.Overall))
			}
			if slot.Overall < d.CurrentPick {
				return models.TradeError(fmt.Sprintf("pick %d has already been made", piece.Overall))
			}
			if slot.OwnerTeam() != side {
				return models.TradeError(fmt.Sprintf("pick %d is not owned by %s", piece.Overall, side))
			}
		case models.TradePieceFuturePick:
			if piece.Year <= d.Config.DraftYear {
				return models.TradeError(fmt.Sprintf("year %d pick is not future-dated", piece.Year))
			}
			fp := d.FuturePick(piece.Year, piece.Round, piece.Team)
			if fp == nil {
				return models.TradeError(fmt.Sprintf("%d round %d pick of %s does not exist", piece.Year, piece.Round, piece.Team))
			}
			if fp.OwnerTeam != side {
				return models.TradeError(fmt.Sprintf("%d round %d pick of %s is not owned by %s", piece.Year, piece.Round, piece.Team, side))
			}
		default:
			return models.TradeError(fmt.Sprintf("unknown trade piece type %q", piece.Type))
		}
	}
	return nil
}

// executeTransfer re-validates and applies ownership changes to the Draft
// aggregate. A slot consumed between proposal and acceptance fails the whole
// resolution; nothing is reassigned.
func (a *App) executeTransfer(d *models.Draft, tr *models.Trade) error {
	if err := a.validatePieces(d, tr.ProposerGives, tr.ProposerTeam); err != nil {
		return err
	}
	if err := a.validatePieces(d, tr.ProposerReceives, tr.RecipientTeam); err != nil {
		return err
	}
	a.transferPieces(d, tr.ProposerGives, tr.RecipientTeam)
	a.transferPieces(d, tr.ProposerReceives, tr.ProposerTeam)
	return nil
}

func (a *App) transferPieces(d *models.Draft, pieces []models.TradePiece, newOwner string) {
	for _, piece := range pieces {
		switch piece.Type {
		case models.TradePieceCurrentPick:
			d.SlotByOverall(piece.Overall).TeamOverride = newOwner
		case models.TradePieceFuturePick:
			d.FuturePick(piece.Year, piece.Round, piece.Team).OwnerTeam = newOwner
		}
	}
}

// teamNeeds loads the recipient's open positional needs for valuation. Needs
// data is optional; without a source every valuation uses the plain threshold.
func (a *App) teamNeeds(ctx context.Context, team string, year int) ([]models.Position, error) {
	if a.needs == nil {
		return nil, nil
	}
	needs, err := a.needs.TeamNeeds(ctx, team, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load needs for %s: %w", team, err)
	}
	return needs, nil
}

func (a *App) finish(txn store.Txn, tr *models.Trade, status models.TradeStatus, eventType string) {
	now := a.clock.Now().UTC()
	tr.Status = status
	tr.ResolvedAt = &now
	txn.PutTrade(tr)
	a.emitTrade(txn, tr, eventType)
}

func (a *App) emitTrade(txn store.Txn, tr *models.Trade, eventType string) {
	payload, err := json.Marshal(events.TradePayload{
		TradeID:       tr.ID.String(),
		Status:        string(tr.Status),
		ProposerTeam:  tr.ProposerTeam,
		RecipientTeam: tr.RecipientTeam,
		At:            a.clock.Now().UTC(),
	})
	if err != nil {
		return
	}
	txn.Emit(eventType, payload)
}

func (a *App) scheduleExpiry(tradeID uuid.UUID) {
	a.timers.Schedule(tradeID, a.expiry, func() {
		if err := a.expire(context.Background(), tradeID); err != nil {
			log.Error().Err(err).Str("trade_id", tradeID.String()).Msg("trade expiration failed")
		}
	})
}

// expire is the only autonomous resolution path. It no-ops if a human
// resolution won the race.
func (a *App) expire(ctx context.Context, tradeID uuid.UUID) error {
	ref, err := a.store.GetTrade(ctx, tradeID)
	if err != nil {
		return err
	}
	_, err = a.store.WithDraft(ctx, ref.DraftID, func(txn store.Txn) error {
		tr, err := txn.Trade(tradeID)
		if err != nil {
			return err
		}
		if tr.Status.Terminal() {
			return nil
		}
		a.finish(txn, tr, models.TradeStatusExpired, events.TypeTradeExpired)
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Str("trade_id", tradeID.String()).Msg("trade expired")
	return nil
}
