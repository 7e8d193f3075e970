package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Announcement struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	TournamentID primitive.ObjectID `json:"tournamentId" bson:"tournamentId"`
	AuthorID     primitive.ObjectID `json:"authorId" bson:"authorId"`
	Title        string             `json:"title" bson:"title"`
	Message      string             `json:"message" bson:"message"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

// Subscription — подписка болельщика/игрока на объявления турнира.
type Subscription struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	TournamentID primitive.ObjectID `json:"tournamentId" bson:"tournamentId"`
	UserID       primitive.ObjectID `json:"userId" bson:"userId"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}
