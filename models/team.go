package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxTeamPlayers — лимит состава (не считая капитана).
const MaxTeamPlayers = 8

type Team struct {
	ID        primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Name      string               `json:"name" bson:"name"`
	Captain   primitive.ObjectID   `json:"captain" bson:"captain"`
	Players   []primitive.ObjectID `json:"players" bson:"players"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
}

// HasMember reports whether the user is the captain or a rostered player.
func (t *Team) HasMember(userID primitive.ObjectID) bool {
	if t.Captain == userID {
		return true
	}
	for _, p := range t.Players {
		if p == userID {
			return true
		}
	}
	return false
}

// TeamSummary — представление команды в списках (капитан развёрнут).
type TeamSummary struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	Name         string             `json:"name" bson:"name"`
	Captain      *PublicUser        `json:"captain,omitempty" bson:"captain,omitempty"`
	PlayersCount int                `json:"playersCount" bson:"playersCount"`
	IsCaptain    bool               `json:"isCaptain,omitempty" bson:"isCaptain,omitempty"`
}

// TeamDetail — полное представление команды с составом.
type TeamDetail struct {
	ID           primitive.ObjectID `json:"_id"`
	Name         string             `json:"name"`
	Captain      *PublicUser        `json:"captain,omitempty"`
	Players      []PublicUser       `json:"players"`
	PlayersCount int                `json:"playersCount"`
}
