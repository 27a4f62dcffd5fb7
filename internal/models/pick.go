package models

import (
	"time"

	"github.com/google/uuid"
)

// Pick is the append-only historical record of one completed selection.
// Exactly one is created per overall value; it is never mutated, and is only
// deleted by whole-draft deletion. A nil UserID means the pick was CPU-made.
type Pick struct {
	ID          uuid.UUID  `json:"id"`
	DraftID     uuid.UUID  `json:"draft_id"`
	Overall     int        `json:"overall"`
	Round       int        `json:"round"`
	PickInRound int        `json:"pick_in_round"`
	Team        string     `json:"team"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	PlayerID    string     `json:"player_id"`
	CreatedAt   time.Time  `json:"created_at"`
}
