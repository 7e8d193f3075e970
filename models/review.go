package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	TournamentID primitive.ObjectID `json:"tournament_id" bson:"tournament_id"`
	UserID       primitive.ObjectID `json:"user_id" bson:"user_id"`
	Rating       int                `json:"rating" bson:"rating"`
	Comment      string             `json:"comment" bson:"comment"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ReviewView — отзыв с автором для публичного списка.
type ReviewView struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Rating    int                `json:"rating" bson:"rating"`
	Comment   string             `json:"comment" bson:"comment"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Author    *PublicUser        `json:"author,omitempty" bson:"author,omitempty"`
}

// TournamentRating — денормализованные поля рейтинга на турнире.
type TournamentRating struct {
	AvgRating   float64 `json:"avg_rating"`
	ReviewCount int     `json:"review_count"`
}
