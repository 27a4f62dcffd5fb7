package trade

import (
	"context"

	"github.com/google/uuid"

	"github.com/draftday/mockdraft/internal/models"
)

// NeedsSource supplies a team's open positional needs for a draft year.
type NeedsSource interface {
	TeamNeeds(ctx context.Context, team string, year int) ([]models.Position, error)
}

// CreateTradeRequest proposes a trade between two teams of one draft. The
// recipient controller (human or CPU) is resolved from the draft's team
// assignments at proposal time.
type CreateTradeRequest struct {
	DraftID          uuid.UUID           `json:"draft_id"`
	ProposerID       uuid.UUID           `json:"proposer_id"`
	ProposerTeam     string              `json:"proposer_team"`
	RecipientTeam    string              `json:"recipient_team"`
	ProposerGives    []models.TradePiece `json:"proposer_gives"`
	ProposerReceives []models.TradePiece `json:"proposer_receives"`
}

// CreateTradeResult returns the persisted trade and, for CPU recipients, the
// immediate evaluation.
type CreateTradeResult struct {
	Trade      *models.Trade `json:"trade"`
	Evaluation *Evaluation   `json:"evaluation,omitempty"`
}
