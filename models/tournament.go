package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TournamentLocation struct {
	City    string `json:"city" bson:"city"`
	Address string `json:"address" bson:"address"`
	Venue   string `json:"venue,omitempty" bson:"venue,omitempty"`
}

type Tournament struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Location    TournamentLocation `json:"location" bson:"location"`
	StartDate   time.Time          `json:"startDate" bson:"startDate"`
	EndDate     *time.Time         `json:"endDate" bson:"endDate"`
	Description string             `json:"description" bson:"description"`
	Surface     string             `json:"surface" bson:"surface"`
	ImageKey    *string            `json:"-" bson:"image_key,omitempty"`
	ImageURL    *string            `json:"imageUrl" bson:"imageUrl"`
	Organizer   primitive.ObjectID `json:"organizer" bson:"organizer"`
	AvgRating   float64            `json:"avg_rating" bson:"avg_rating"`
	ReviewCount int                `json:"review_count" bson:"review_count"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`

	// Заполняется при чтении детали, не мапится напрямую.
	OrganizerInfo *PublicUser `json:"organizerInfo,omitempty" bson:"organizerInfo,omitempty"`
}

// LastDay возвращает конец диапазона дат турнира. Турниры на один день
// хранят endDate = nil.
func (t *Tournament) LastDay() time.Time {
	if t.EndDate != nil {
		return *t.EndDate
	}
	return t.StartDate
}
