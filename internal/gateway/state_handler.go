package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StateProvider retrieves the read-side draft state for late joiners and
// reconnecting clients.
type StateProvider interface {
	GetDraftState(ctx context.Context, draftID uuid.UUID) (*DraftStateResponse, error)
}

// DraftStateResponse is the complete snapshot a client needs to render a
// draft after (re)connecting.
type DraftStateResponse struct {
	DraftID        string           `json:"draft_id"`
	Status         string           `json:"status"`
	CurrentSlot    *CurrentSlotInfo `json:"current_slot,omitempty"`
	RecentPicks    []RecentPickInfo `json:"recent_picks"`
	TimeRemaining  *int             `json:"time_remaining_sec,omitempty"`
	TotalPicks     int              `json:"total_picks"`
	CompletedPicks int              `json:"completed_picks"`
	Metadata       map[string]any   `json:"metadata"`
}

// CurrentSlotInfo is the slot on the clock.
type CurrentSlotInfo struct {
	Team           string     `json:"team"`
	ControllerID   string     `json:"controller_id,omitempty"`
	ControllerName string     `json:"controller_name,omitempty"`
	CPUControlled  bool       `json:"cpu_controlled"`
	Round          int        `json:"round"`
	PickInRound    int        `json:"pick_in_round"`
	Overall        int        `json:"overall"`
	SecondsPerPick int        `json:"seconds_per_pick"`
	ClockExpiresAt *time.Time `json:"clock_expires_at,omitempty"`
}

// RecentPickInfo is a recently made pick.
type RecentPickInfo struct {
	PickID      string    `json:"pick_id"`
	Team        string    `json:"team"`
	PlayerID    string    `json:"player_id"`
	Round       int       `json:"round"`
	PickInRound int       `json:"pick_in_round"`
	Overall     int       `json:"overall"`
	CPUMade     bool      `json:"cpu_made"`
	MadeAt      time.Time `json:"made_at"`
}

// StateHandler serves HTTP requests for draft state.
type StateHandler struct {
	stateProvider StateProvider
}

func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{stateProvider: provider}
}

// HandleGetDraftState handles GET /api/drafts/{id}/state.
func (h *StateHandler) HandleGetDraftState(w http.ResponseWriter, r *http.Request) {
	draftID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid draft id", http.StatusBadRequest)
		return
	}

	state, err := h.stateProvider.GetDraftState(r.Context(), draftID)
	if err != nil {
		log.Error().Err(err).Str("draft_id", draftID.String()).Msg("failed to get draft state")
		http.Error(w, "failed to get draft state", http.StatusInternalServerError)
		return
	}

	if state.CurrentSlot != nil && state.CurrentSlot.ClockExpiresAt != nil {
		remaining := int(time.Until(*state.CurrentSlot.ClockExpiresAt).Seconds())
		if remaining > 0 {
			state.TimeRemaining = &remaining
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Msg("failed to encode draft state response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes.
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/drafts/{id}/state", h.HandleGetDraftState)
}
