package models

import (
	"time"

	"github.com/google/uuid"
)

// TradeStatus defines the lifecycle state of a trade. A trade terminates
// exactly once into accepted, rejected, cancelled or expired.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "PENDING"
	TradeStatusAccepted  TradeStatus = "ACCEPTED"
	TradeStatusRejected  TradeStatus = "REJECTED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
	TradeStatusExpired   TradeStatus = "EXPIRED"
)

// Terminal reports whether the status is final.
func (s TradeStatus) Terminal() bool {
	return s != TradeStatusPending
}

// TradePieceType discriminates the TradePiece union.
type TradePieceType string

const (
	TradePieceCurrentPick TradePieceType = "current-pick"
	TradePieceFuturePick  TradePieceType = "futurePick"
)

// TradePiece is a closed tagged union: a current-year slot referenced by
// overall, or a future-year pick referenced by (year, round, original team).
// The two consumption points (valuation and ownership transfer) switch on
// Type exhaustively and treat unknown tags as errors.
type TradePiece struct {
	Type    TradePieceType `json:"type"`
	Overall int            `json:"overall,omitempty"`
	Year    int            `json:"year,omitempty"`
	Round   int            `json:"round,omitempty"`
	Team    string         `json:"team,omitempty"`
}

// Trade references draft slots but does not own them; execution writes back
// into the Draft aggregate.
type Trade struct {
	ID               uuid.UUID    `json:"id"`
	DraftID          uuid.UUID    `json:"draft_id"`
	Status           TradeStatus  `json:"status"`
	ProposerID       uuid.UUID    `json:"proposer_id"`
	ProposerTeam     string       `json:"proposer_team"`
	RecipientID      *uuid.UUID   `json:"recipient_id,omitempty"`
	RecipientTeam    string       `json:"recipient_team"`
	ProposerGives    []TradePiece `json:"proposer_gives"`
	ProposerReceives []TradePiece `json:"proposer_receives"`
	ProposedAt       time.Time    `json:"proposed_at"`
	ResolvedAt       *time.Time   `json:"resolved_at,omitempty"`
	IsForceTrade     bool         `json:"is_force_trade,omitempty"`
}

// CPURecipient reports whether the trade was proposed to a CPU-controlled team.
func (t *Trade) CPURecipient() bool {
	return t.RecipientID == nil
}
