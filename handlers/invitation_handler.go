package handlers

import (
	"net/http"

	"github.com/Dosada05/futsal-pulse/middleware"
	"github.com/Dosada05/futsal-pulse/services"
)

type InvitationHandler struct {
	invitationService services.InvitationService
}

func NewInvitationHandler(invitationService services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// Invite: капитан приглашает игрока в команду.
func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	captainID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		PlayerID string `json:"playerId"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	playerID, err := parseObjectID(input.PlayerID, "playerId")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.invitationService.Invite(r.Context(), captainID, teamID, playerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"message": "Invitation sent."}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Respond: приглашённый игрок принимает или отклоняет приглашение.
func (h *InvitationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	notificationID, err := getIDFromURL(r, "notificationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Response string `json:"response"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	message, err := h.invitationService.Respond(r.Context(), userID, notificationID, services.InviteResponse(input.Response))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": message}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
