package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/draftday/mockdraft/internal/draft"
	"github.com/draftday/mockdraft/internal/gateway"
	"github.com/draftday/mockdraft/internal/models"
)

// recentPickCount bounds the pick history in a state snapshot.
const recentPickCount = 10

// draftStateProvider implements gateway.StateProvider over the draft engine.
type draftStateProvider struct {
	app      *draft.App
	identity draft.IdentityResolver
}

func newStateProvider(app *draft.App, identity draft.IdentityResolver) *draftStateProvider {
	return &draftStateProvider{app: app, identity: identity}
}

func (p *draftStateProvider) GetDraftState(ctx context.Context, draftID uuid.UUID) (*gateway.DraftStateResponse, error) {
	d, err := p.app.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	response := &gateway.DraftStateResponse{
		DraftID:        d.ID.String(),
		Status:         string(d.Status),
		TotalPicks:     len(d.PickOrder),
		CompletedPicks: d.CurrentPick - 1,
		RecentPicks:    []gateway.RecentPickInfo{},
		Metadata: map[string]any{
			"format":         string(d.Config.Format),
			"rounds":         d.Config.Rounds,
			"draft_year":     d.Config.DraftYear,
			"trades_enabled": d.Config.TradesEnabled,
			"current_round":  d.CurrentRound,
			"is_locked":      d.IsLocked,
		},
	}

	if d.Status == models.DraftStatusActive {
		if slot := d.CurrentSlot(); slot != nil {
			info := &gateway.CurrentSlotInfo{
				Team:           slot.OwnerTeam(),
				Round:          slot.Round,
				PickInRound:    slot.PickInRound,
				Overall:        slot.Overall,
				SecondsPerPick: d.Config.SecondsPerPick,
				ClockExpiresAt: d.ClockExpiresAt,
			}
			if ctrl := d.Controller(slot); ctrl != nil {
				info.ControllerID = ctrl.String()
				info.ControllerName = p.controllerName(ctx, d, *ctrl)
			} else {
				info.CPUControlled = true
			}
			response.CurrentSlot = info
		}
	}

	picks, err := p.app.ListPicks(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	start := len(picks) - recentPickCount
	if start < 0 {
		start = 0
	}
	for _, pick := range picks[start:] {
		response.RecentPicks = append(response.RecentPicks, gateway.RecentPickInfo{
			PickID:      pick.ID.String(),
			Team:        pick.Team,
			PlayerID:    pick.PlayerID,
			Round:       pick.Round,
			PickInRound: pick.PickInRound,
			Overall:     pick.Overall,
			CPUMade:     pick.UserID == nil,
			MadeAt:      pick.CreatedAt,
		})
	}

	return response, nil
}

// controllerName resolves a display name, preferring the registered identity
// and falling back to the name recorded when the participant joined.
func (p *draftStateProvider) controllerName(ctx context.Context, d *models.Draft, userID uuid.UUID) string {
	if p.identity != nil {
		if identity, err := p.identity.Resolve(ctx, userID); err == nil {
			return identity.DisplayName
		}
	}
	return d.Participants[userID]
}
