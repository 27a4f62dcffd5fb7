package trade

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/draftday/mockdraft/internal/models"
)

// Service exposes the trade pipeline over JSON HTTP.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

// RegisterRoutes registers the trade endpoints with an HTTP mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/trades", s.handleCreateTrade)
	mux.HandleFunc("GET /api/trades/{id}", s.handleGetTrade)
	mux.HandleFunc("GET /api/drafts/{id}/trades", s.handleListTrades)
	mux.HandleFunc("POST /api/trades/{id}/accept", s.resolveHandler(s.app.AcceptTrade))
	mux.HandleFunc("POST /api/trades/{id}/reject", s.resolveHandler(s.app.RejectTrade))
	mux.HandleFunc("POST /api/trades/{id}/cancel", s.resolveHandler(s.app.CancelTrade))
	mux.HandleFunc("POST /api/trades/{id}/force", s.resolveHandler(s.app.ForceTrade))
}

func (s *Service) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	var req CreateTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.ProposerID = userID

	result, err := s.app.CreateTrade(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (s *Service) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	tradeID, ok := pathID(w, r, "invalid trade id")
	if !ok {
		return
	}
	tr, err := s.app.GetTrade(r.Context(), tradeID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tr)
}

func (s *Service) handleListTrades(w http.ResponseWriter, r *http.Request) {
	draftID, ok := pathID(w, r, "invalid draft id")
	if !ok {
		return
	}
	trades, err := s.app.ListTrades(r.Context(), draftID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, trades)
}

func (s *Service) resolveHandler(fn func(context.Context, uuid.UUID, uuid.UUID) (*models.Trade, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tradeID, ok := pathID(w, r, "invalid trade id")
		if !ok {
			return
		}
		userID, ok := actingUser(w, r)
		if !ok {
			return
		}
		tr, err := fn(r.Context(), tradeID, userID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, tr)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, msg, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

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
