// Package events defines the change-feed event types and payloads shared by
// the engine, the feed relay and the gateway.
package events

import (
	"encoding/json"
	"time"
)

// Event type names as they appear on the bus subject suffix.
const (
	TypeDraftCreated   = "DraftCreated"
	TypeDraftStarted   = "DraftStarted"
	TypeDraftPaused    = "DraftPaused"
	TypeDraftResumed   = "DraftResumed"
	TypeDraftCancelled = "DraftCancelled"
	TypeDraftCompleted = "DraftCompleted"
	TypeDraftLocked    = "DraftLocked"
	TypeDraftDeleted   = "DraftDeleted"
	TypePickMade       = "PickMade"
	TypeTradeProposed  = "TradeProposed"
	TypeTradeAccepted  = "TradeAccepted"
	TypeTradeRejected  = "TradeRejected"
	TypeTradeCancelled = "TradeCancelled"
	TypeTradeExpired   = "TradeExpired"
)

// Envelope is the wire shape published to the bus.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	DraftID   string          `json:"draftId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// DraftStatusPayload covers the lifecycle events (created, started, paused,
// resumed, cancelled, completed, locked, deleted).
type DraftStatusPayload struct {
	DraftID     string    `json:"draft_id"`
	Status      string    `json:"status"`
	CurrentPick int       `json:"current_pick"`
	TotalPicks  int       `json:"total_picks"`
	At          time.Time `json:"at"`
}

// PickMadePayload is the payload for a PickMade event.
type PickMadePayload struct {
	PickID      string    `json:"pick_id"`
	Team        string    `json:"team"`
	PlayerID    string    `json:"player_id"`
	Round       int       `json:"round"`
	PickInRound int       `json:"pick_in_round"`
	Overall     int       `json:"overall"`
	CPUMade     bool      `json:"cpu_made"`
	MadeAt      time.Time `json:"made_at"`
}

// TradePayload covers trade lifecycle events.
type TradePayload struct {
	TradeID       string    `json:"trade_id"`
	Status        string    `json:"status"`
	ProposerTeam  string    `json:"proposer_team"`
	RecipientTeam string    `json:"recipient_team"`
	At            time.Time `json:"at"`
}
