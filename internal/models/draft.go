package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus defines the lifecycle state of a draft.
type DraftStatus string

const (
	DraftStatusLobby     DraftStatus = "LOBBY"
	DraftStatusActive    DraftStatus = "ACTIVE"
	DraftStatusPaused    DraftStatus = "PAUSED"
	DraftStatusComplete  DraftStatus = "COMPLETE"
	DraftStatusCancelled DraftStatus = "CANCELLED"
)

// DraftFormat defines how teams are assigned to participants.
type DraftFormat string

const (
	DraftFormatFull       DraftFormat = "FULL"
	DraftFormatSingleTeam DraftFormat = "SINGLE_TEAM"
	DraftFormatMultiTeam  DraftFormat = "MULTI_TEAM"
)

// CPUSpeed controls how automated picks are paced.
type CPUSpeed string

const (
	CPUSpeedInstant CPUSpeed = "INSTANT"
	CPUSpeedFast    CPUSpeed = "FAST"
	CPUSpeedNormal  CPUSpeed = "NORMAL"
)

// DraftConfig holds the JSONB configuration for a draft.
type DraftConfig struct {
	Rounds             int         `json:"rounds"`
	Format             DraftFormat `json:"format"`
	DraftYear          int         `json:"draft_year"`
	CPUSpeed           CPUSpeed    `json:"cpu_speed"`
	TradesEnabled      bool        `json:"trades_enabled"`
	SecondsPerPick     int         `json:"seconds_per_pick,omitempty"`
	TeamAssignmentMode string      `json:"team_assignment_mode,omitempty"`
	CPURandomness      float64     `json:"cpu_randomness,omitempty"`
	CPUNeedsWeight     float64     `json:"cpu_needs_weight,omitempty"`
}

// DraftSlot is one position in the draft's pick order. Team is the original
// slot owner; TeamOverride, when set, is the current owner after a trade.
type DraftSlot struct {
	Overall      int    `json:"overall"`
	Round        int    `json:"round"`
	PickInRound  int    `json:"pick_in_round"`
	Team         string `json:"team"`
	TeamOverride string `json:"team_override,omitempty"`
}

// OwnerTeam returns the team currently entitled to the slot.
func (s DraftSlot) OwnerTeam() string {
	if s.TeamOverride != "" {
		return s.TeamOverride
	}
	return s.Team
}

// FutureDraftPick is a selection right for a later draft year. OwnerTeam is
// mutated by trade execution; OriginalTeam never changes.
type FutureDraftPick struct {
	Year         int    `json:"year"`
	Round        int    `json:"round"`
	OriginalTeam string `json:"original_team"`
	OwnerTeam    string `json:"owner_team"`
}

// Draft is the aggregate root. The store persists it as a single document and
// all multi-field mutations commit through one transaction.
type Draft struct {
	ID              uuid.UUID             `json:"id"`
	Status          DraftStatus           `json:"status"`
	Config          DraftConfig           `json:"config"`
	TeamAssignments map[string]*uuid.UUID `json:"team_assignments"`
	Participants    map[uuid.UUID]string  `json:"participants,omitempty"`
	PickOrder       []DraftSlot           `json:"pick_order"`
	CurrentPick     int                   `json:"current_pick"`
	CurrentRound    int                   `json:"current_round"`
	PickedPlayerIDs []string              `json:"picked_player_ids"`
	FuturePicks     []FutureDraftPick     `json:"future_picks,omitempty"`
	ClockExpiresAt  *time.Time            `json:"clock_expires_at,omitempty"`
	IsLocked        bool                  `json:"is_locked"`
	CreatedBy       uuid.UUID             `json:"created_by"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// CurrentSlot returns the slot at CurrentPick, or nil if the order is exhausted.
func (d *Draft) CurrentSlot() *DraftSlot {
	if d.CurrentPick < 1 || d.CurrentPick > len(d.PickOrder) {
		return nil
	}
	return &d.PickOrder[d.CurrentPick-1]
}

// SlotByOverall returns the slot with the given overall number, or nil.
func (d *Draft) SlotByOverall(overall int) *DraftSlot {
	if overall < 1 || overall > len(d.PickOrder) {
		return nil
	}
	// Overall numbers are assigned 1..N in order.
	return &d.PickOrder[overall-1]
}

// Controller resolves the effective controller of a slot after trades.
// A nil result means the slot is CPU-controlled.
func (d *Draft) Controller(slot *DraftSlot) *uuid.UUID {
	return d.TeamAssignments[slot.OwnerTeam()]
}

// HasPicked reports whether playerID has already been drafted.
func (d *Draft) HasPicked(playerID string) bool {
	for _, id := range d.PickedPlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// FuturePick returns the ledger entry matching year/round/originalTeam, or nil.
func (d *Draft) FuturePick(year, round int, originalTeam string) *FutureDraftPick {
	for i := range d.FuturePicks {
		fp := &d.FuturePicks[i]
		if fp.Year == year && fp.Round == round && fp.OriginalTeam == originalTeam {
			return fp
		}
	}
	return nil
}
