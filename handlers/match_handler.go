package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/brackets"
	"github.com/Dosada05/futsal-pulse/middleware"
	"github.com/Dosada05/futsal-pulse/models"
	"github.com/Dosada05/futsal-pulse/repositories"
	"github.com/Dosada05/futsal-pulse/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

// parseMatchDate принимает RFC3339 или просто дату.
func parseMatchDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid matchDate: %q", raw)
}

func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	organizerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var body struct {
		TournamentID string  `json:"tournamentId"`
		TeamAID      string  `json:"teamAId"`
		TeamBID      string  `json:"teamBId"`
		MatchDate    string  `json:"matchDate"`
		Group        *string `json:"group"`
		Stage        string  `json:"stage"`
	}
	if err := readJSON(w, r, &body); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournamentID, err := parseObjectID(body.TournamentID, "tournamentId")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teamAID, err := parseObjectID(body.TeamAID, "teamAId")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teamBID, err := parseObjectID(body.TeamBID, "teamBId")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchDate, err := parseMatchDate(body.MatchDate)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := services.CreateMatchInput{
		TournamentID: tournamentID,
		TeamAID:      teamAID,
		TeamBID:      teamBID,
		MatchDate:    matchDate,
		Group:        body.Group,
		Stage:        brackets.Stage(body.Stage),
	}

	match, err := h.matchService.Create(r.Context(), organizerID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List поддерживает фильтры ?tournament_id= и ?team_id=.
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter repositories.ListMatchesFilter

	if raw := r.URL.Query().Get("tournament_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			badRequestResponse(w, r, fmt.Errorf("invalid tournament_id: %q", raw))
			return
		}
		filter.TournamentID = &id
	}
	if raw := r.URL.Query().Get("team_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			badRequestResponse(w, r, fmt.Errorf("invalid team_id: %q", raw))
			return
		}
		filter.TeamID = &id
	}

	matches, err := h.matchService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetView(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) AddEvent(w http.ResponseWriter, r *http.Request) {
	requesterID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var body struct {
		Type     string `json:"type"`
		Minute   int    `json:"minute"`
		TeamID   string `json:"teamId"`
		PlayerID string `json:"playerId"`
	}
	if err := readJSON(w, r, &body); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	teamID, err := parseObjectID(body.TeamID, "teamId")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, err := parseObjectID(body.PlayerID, "playerId")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := services.AddEventInput{
		Type:     models.EventType(body.Type),
		Minute:   body.Minute,
		TeamID:   teamID,
		PlayerID: playerID,
	}

	match, err := h.matchService.AddEvent(r.Context(), requesterID, matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	requesterID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.DeleteEvent(r.Context(), requesterID, matchID, eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) AddPenaltyKick(w http.ResponseWriter, r *http.Request) {
	requesterID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var body struct {
		TeamID   string `json:"teamId"`
		PlayerID string `json:"playerId"`
		Outcome  string `json:"outcome"`
	}
	if err := readJSON(w, r, &body); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	teamID, err := parseObjectID(body.TeamID, "teamId")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, err := parseObjectID(body.PlayerID, "playerId")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := services.AddPenaltyInput{
		TeamID:   teamID,
		PlayerID: playerID,
		Outcome:  models.PenaltyOutcome(body.Outcome),
	}

	match, err := h.matchService.AddPenaltyKick(r.Context(), requesterID, matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Finish(w http.ResponseWriter, r *http.Request) {
	requesterID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Finish(r.Context(), requesterID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requesterID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.Delete(r.Context(), requesterID, matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "Match deleted."}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AllowedStages подсказывает организатору, какие стадии сетки сейчас
// открыты для создания матчей.
func (h *MatchHandler) AllowedStages(w http.ResponseWriter, r *http.Request) {
	organizerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	availability, err := h.matchService.AllowedStages(r.Context(), organizerID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, availability, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EligibleTeams: команды, доступные для пары на выбранной стадии.
func (h *MatchHandler) EligibleTeams(w http.ResponseWriter, r *http.Request) {
	organizerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stage := brackets.Stage(r.URL.Query().Get("stage"))
	if stage == "" {
		badRequestResponse(w, r, errors.New("stage query parameter is required"))
		return
	}

	teams, err := h.matchService.EligibleTeams(r.Context(), organizerID, tournamentID, stage)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
