package draft

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/draftday/mockdraft/internal/models"
)

// PlayerCatalog supplies the draftable player pool, keyed by draft year.
type PlayerCatalog interface {
	PlayersForYear(ctx context.Context, year int) ([]models.Player, error)
}

// NeedsSource supplies a team's ordered positional needs for a draft year.
type NeedsSource interface {
	TeamNeeds(ctx context.Context, team string, year int) ([]models.Position, error)
}

// OrderSource supplies the persisted base team order for a draft year,
// 32 teams per round including pre-recorded compensatory slots.
type OrderSource interface {
	BaseOrder(ctx context.Context, year int) ([]string, error)
}

// Identity is the resolved display information for a participant.
type Identity struct {
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle,omitempty"`
}

// IdentityResolver maps an internal user id to display identity. Provided by
// the authentication collaborator.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (Identity, error)
}

// CreateDraftRequest creates a new draft in the lobby state. PickOrder and
// FuturePicks may be supplied by the caller; when empty they are built from
// the order source.
type CreateDraftRequest struct {
	Config          models.DraftConfig       `json:"config"`
	TeamAssignments map[string]*uuid.UUID    `json:"team_assignments"`
	Participants    map[uuid.UUID]string     `json:"participants,omitempty"`
	PickOrder       []models.DraftSlot       `json:"pick_order,omitempty"`
	FuturePicks     []models.FutureDraftPick `json:"future_picks,omitempty"`
	CreatedBy       uuid.UUID                `json:"created_by"`
}

// CascadeResult is the outcome of one cascade invocation. In instant mode
// Picks holds the full remaining run; in fast/normal modes at most one pick.
type CascadeResult struct {
	Picks      []*models.Pick `json:"picks"`
	IsComplete bool           `json:"is_complete"`
}

// PacingDelay returns the inter-pick delay the caller should wait before
// invoking the next cascade step. Instant mode resolves fully server-side.
func PacingDelay(speed models.CPUSpeed) time.Duration {
	switch speed {
	case models.CPUSpeedFast:
		return time.Second
	case models.CPUSpeedNormal:
		return 3 * time.Second
	default:
		return 0
	}
}
