package draft

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/draftday/mockdraft/internal/models"
)

// Service exposes the draft engine over JSON HTTP. Handlers decode, call the
// app and map domain error codes to statuses; unknown errors are opaque 500s.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

// RegisterRoutes registers the draft endpoints with an HTTP mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/drafts", s.handleCreateDraft)
	mux.HandleFunc("GET /api/drafts/{id}", s.handleGetDraft)
	mux.HandleFunc("DELETE /api/drafts/{id}", s.handleDeleteDraft)
	mux.HandleFunc("POST /api/drafts/{id}/start", s.handleStart)
	mux.HandleFunc("POST /api/drafts/{id}/pause", s.handlePause)
	mux.HandleFunc("POST /api/drafts/{id}/resume", s.handleResume)
	mux.HandleFunc("POST /api/drafts/{id}/cancel", s.handleCancel)
	mux.HandleFunc("POST /api/drafts/{id}/lock", s.handleLock)
	mux.HandleFunc("GET /api/drafts/{id}/picks", s.handleListPicks)
	mux.HandleFunc("POST /api/drafts/{id}/picks", s.handleMakePick)
	mux.HandleFunc("POST /api/drafts/{id}/cpu/advance", s.handleCPUAdvance)
	mux.HandleFunc("POST /api/drafts/{id}/cpu/cascade", s.handleCPUCascade)
}

func (s *Service) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req CreateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.CreatedBy = userID

	d, err := s.app.CreateDraft(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (s *Service) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := s.app.GetDraft(r.Context(), draftID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Service) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	if err := s.app.DeleteDraft(r.Context(), draftID, userID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleStart(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.app.StartDraft, true)
}

func (s *Service) handlePause(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.app.PauseDraft, false)
}

func (s *Service) handleResume(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.app.ResumeDraft, true)
}

func (s *Service) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.app.CancelDraft, false)
}

func (s *Service) handleLock(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.app.LockDraft, false)
}

// handleTransition runs one lifecycle transition. Transitions into the active
// state may leave a CPU team on the clock, so those kick a cascade.
func (s *Service) handleTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, uuid.UUID) (*models.Draft, error), cascade bool) {
	draftID, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	d, err := fn(r.Context(), draftID, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	if cascade {
		s.cascadeAsync(draftID)
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Service) handleListPicks(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r)
	if !ok {
		return
	}
	picks, err := s.app.ListPicks(r.Context(), draftID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, picks)
}

type makePickRequest struct {
	SlotOverall int    `json:"slot_overall"`
	PlayerID    string `json:"player_id"`
}

func (s *Service) handleMakePick(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req makePickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pick, err := s.app.MakePick(r.Context(), draftID, req.SlotOverall, req.PlayerID, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	s.cascadeAsync(draftID)
	respondJSON(w, http.StatusCreated, pick)
}

// handleCPUAdvance makes exactly one automated pick for the slot on the
// clock. Intended for admin tooling and pick-clock expiry hooks.
func (s *Service) handleCPUAdvance(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r)
	if !ok {
		return
	}
	pick, isComplete, err := s.app.AdvanceSingleCPUPick(r.Context(), draftID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"pick":        pick,
		"is_complete": isComplete,
	})
}

// handleCPUCascade runs one cascade invocation synchronously and returns the
// picks it made. Instant drafts resolve fully; fast/normal drafts take one
// step, so callers drive pacing themselves.
func (s *Service) handleCPUCascade(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := s.app.RunCPUCascade(r.Context(), draftID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// cascadeAsync resolves any CPU run following a human action without blocking
// the response. Pacing between steps waits on the engine's clock, so tests
// drive it with a fake; the cascade itself stops cleanly when the draft
// pauses or completes.
func (s *Service) cascadeAsync(draftID uuid.UUID) {
	go func() {
		ctx := context.Background()
		for {
			res, err := s.app.RunCPUCascade(ctx, draftID)
			if err != nil {
				log.Error().Err(err).Str("draft_id", draftID.String()).Msg("cpu cascade failed")
				return
			}
			if res.IsComplete || len(res.Picks) == 0 {
				return
			}
			d, err := s.app.GetDraft(ctx, draftID)
			if err != nil {
				return
			}
			delay := PacingDelay(d.Config.CPUSpeed)
			if delay == 0 {
				return
			}
			<-s.app.clock.After(delay)
		}
	}()
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid draft id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// actingUser resolves the caller from the X-User-ID header. A session layer
// in front of the service would populate this from real authentication.
func actingUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-User-ID"))
	if err != nil {
		http.Error(w, "missing or invalid X-User-ID header", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, err error) {
	code := models.ErrorCode(err)
	if code == "" {
		log.Error().Err(err).Msg("internal error")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, statusForCode(code), map[string]string{
		"code":    code,
		"message": err.Error(),
	})
}

func statusForCode(code string) int {
	switch code {
	case models.CodeUnauthorized:
		return http.StatusForbidden
	case models.CodeDraftNotFound, models.CodeTradeNotFound:
		return http.StatusNotFound
	case models.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusConflict
	}
}
