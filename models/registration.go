package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationRejected:
		return true
	}
	return false
}

type Registration struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	TeamID       primitive.ObjectID `json:"teamId" bson:"teamId"`
	TournamentID primitive.ObjectID `json:"tournamentId" bson:"tournamentId"`
	Status       RegistrationStatus `json:"status" bson:"status"`
	RegisteredAt time.Time          `json:"registeredAt" bson:"registeredAt"`
}

// RegistrationView — строка списка заявок для организатора.
type RegistrationView struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	Status       RegistrationStatus `json:"status" bson:"status"`
	RegisteredAt time.Time          `json:"registeredAt" bson:"registeredAt"`
	Team         TeamSummary        `json:"team" bson:"team"`
	Captain      PublicUser         `json:"captain" bson:"captain"`
}
