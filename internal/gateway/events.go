// Package gateway fans committed change-feed events out to websocket clients
// and serves the read-side state endpoint for late joiners.
package gateway

import (
	"encoding/json"
	"time"

	"github.com/draftday/mockdraft/internal/events"
)

// DraftEvent is the wire shape pushed to websocket clients.
type DraftEvent struct {
	ID        string          `json:"id"`
	DraftID   string          `json:"draft_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType mirrors the change-feed event names.
type EventType string

const (
	EventTypeDraftCreated   EventType = events.TypeDraftCreated
	EventTypeDraftStarted   EventType = events.TypeDraftStarted
	EventTypeDraftPaused    EventType = events.TypeDraftPaused
	EventTypeDraftResumed   EventType = events.TypeDraftResumed
	EventTypeDraftCancelled EventType = events.TypeDraftCancelled
	EventTypeDraftCompleted EventType = events.TypeDraftCompleted
	EventTypeDraftLocked    EventType = events.TypeDraftLocked
	EventTypeDraftDeleted   EventType = events.TypeDraftDeleted
	EventTypePickMade       EventType = events.TypePickMade
	EventTypeTradeProposed  EventType = events.TypeTradeProposed
	EventTypeTradeAccepted  EventType = events.TypeTradeAccepted
	EventTypeTradeRejected  EventType = events.TypeTradeRejected
	EventTypeTradeCancelled EventType = events.TypeTradeCancelled
	EventTypeTradeExpired   EventType = events.TypeTradeExpired
)

var knownEventTypes = map[string]EventType{
	events.TypeDraftCreated:   EventTypeDraftCreated,
	events.TypeDraftStarted:   EventTypeDraftStarted,
	events.TypeDraftPaused:    EventTypeDraftPaused,
	events.TypeDraftResumed:   EventTypeDraftResumed,
	events.TypeDraftCancelled: EventTypeDraftCancelled,
	events.TypeDraftCompleted: EventTypeDraftCompleted,
	events.TypeDraftLocked:    EventTypeDraftLocked,
	events.TypeDraftDeleted:   EventTypeDraftDeleted,
	events.TypePickMade:       EventTypePickMade,
	events.TypeTradeProposed:  EventTypeTradeProposed,
	events.TypeTradeAccepted:  EventTypeTradeAccepted,
	events.TypeTradeRejected:  EventTypeTradeRejected,
	events.TypeTradeCancelled: EventTypeTradeCancelled,
	events.TypeTradeExpired:   EventTypeTradeExpired,
}

// ParseEventPayload decodes event data into the matching payload struct.
func ParseEventPayload(event *DraftEvent) (interface{}, error) {
	switch event.Type {
	case EventTypePickMade:
		var payload events.PickMadePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeTradeProposed, EventTypeTradeAccepted, EventTypeTradeRejected,
		EventTypeTradeCancelled, EventTypeTradeExpired:
		var payload events.TradePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeDraftCreated, EventTypeDraftStarted, EventTypeDraftPaused,
		EventTypeDraftResumed, EventTypeDraftCancelled, EventTypeDraftCompleted,
		EventTypeDraftLocked, EventTypeDraftDeleted:
		var payload events.DraftStatusPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil
	}
}
