package handlers

import (
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/middleware"
	"github.com/Dosada05/futsal-pulse/services"
)

// PlayerHandler отдаёт агрегированную статистику игроков.
type PlayerHandler struct {
	statsService services.PlayerStatsService
}

func NewPlayerHandler(statsService services.PlayerStatsService) *PlayerHandler {
	return &PlayerHandler{statsService: statsService}
}

// GetTotals: суммарная статистика игрока, опционально в рамках турнира
// (?tournament_id=).
func (h *PlayerHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var tournamentID *primitive.ObjectID
	if raw := r.URL.Query().Get("tournament_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			badRequestResponse(w, r, fmt.Errorf("invalid tournament_id: %q", raw))
			return
		}
		tournamentID = &id
	}

	totals, err := h.statsService.Totals(r.Context(), playerID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": totals}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMatchLog: разбивка статистики игрока по матчам, свежие первыми.
func (h *PlayerHandler) GetMatchLog(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	limit := queryInt(r, "limit", 20)

	log, err := h.statsService.MatchLog(r.Context(), playerID, int64(limit))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": log}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Recompute пересчитывает статистику по всем завершённым матчам,
// опционально в рамках одного турнира.
func (h *PlayerHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.GetUserIDFromContext(r.Context()); err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var tournamentID *primitive.ObjectID
	if raw := r.URL.Query().Get("tournament_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			badRequestResponse(w, r, fmt.Errorf("invalid tournament_id: %q", raw))
			return
		}
		tournamentID = &id
	}

	count, err := h.statsService.RecomputeAll(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"synced_matches": count}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
