package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationTeamInvitation     NotificationType = "team_invitation"
	NotificationInvitationAccepted NotificationType = "invitation_accepted"
	NotificationInvitationRejected NotificationType = "invitation_rejected"
	NotificationTeamRemoval        NotificationType = "team_removal"
	NotificationTeamDeleted        NotificationType = "team_deleted"
	NotificationRegistrationStatus NotificationType = "registration_status"
	NotificationAnnouncement       NotificationType = "tournament_announcement"
)

// NotificationData — типизированный payload вместо произвольного bson.M.
type NotificationData struct {
	TeamID       *primitive.ObjectID `json:"teamId,omitempty" bson:"teamId,omitempty"`
	PlayerID     *primitive.ObjectID `json:"playerId,omitempty" bson:"playerId,omitempty"`
	InvitedBy    *primitive.ObjectID `json:"invitedBy,omitempty" bson:"invitedBy,omitempty"`
	TournamentID *primitive.ObjectID `json:"tournamentId,omitempty" bson:"tournamentId,omitempty"`

	// Развёрнутые детали для team_invitation, заполняются при чтении.
	Team    *TeamDetail `json:"team,omitempty" bson:"team,omitempty"`
	Captain *PublicUser `json:"captain,omitempty" bson:"captain,omitempty"`
}

type Notification struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Type      NotificationType   `json:"type" bson:"type"`
	Message   string             `json:"message" bson:"message"`
	Link      string             `json:"link,omitempty" bson:"link,omitempty"`
	Data      NotificationData   `json:"data" bson:"data"`
	IsRead    bool               `json:"isRead" bson:"isRead"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}
