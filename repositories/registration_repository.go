package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Dosada05/futsal-pulse/models"
)

var (
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrRegistrationDuplicate = errors.New("team is already registered for this tournament")
)

type RegistrationRepository interface {
	Create(ctx context.Context, registration *models.Registration) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID primitive.ObjectID) ([]models.RegistrationView, error)
	ApprovedTeamIDs(ctx context.Context, tournamentID primitive.ObjectID) ([]primitive.ObjectID, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RegistrationStatus) error
	CountByTeam(ctx context.Context, teamID primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoRegistrationRepository struct {
	col *mongo.Collection
}

func NewMongoRegistrationRepository(database *mongo.Database) RegistrationRepository {
	return &mongoRegistrationRepository{col: database.Collection("registrations")}
}

func (r *mongoRegistrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	registration.RegisteredAt = time.Now()

	result, err := r.col.InsertOne(ctx, registration)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrRegistrationDuplicate
		}
		return err
	}
	registration.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoRegistrationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Registration, error) {
	var registration models.Registration
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&registration)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return &registration, nil
}

// ListByTournament разворачивает команду и её капитана для списка заявок
// организатора.
func (r *mongoRegistrationRepository) ListByTournament(ctx context.Context, tournamentID primitive.ObjectID) ([]models.RegistrationView, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"tournamentId": tournamentID}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "teams",
			"localField":   "teamId",
			"foreignField": "_id",
			"as":           "teamDetails",
		}}},
		bson.D{{Key: "$unwind", Value: "$teamDetails"}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "teamDetails.captain",
			"foreignField": "_id",
			"as":           "captainDetails",
		}}},
		bson.D{{Key: "$unwind", Value: "$captainDetails"}},
		bson.D{{Key: "$project", Value: bson.M{
			"_id":          1,
			"status":       1,
			"registeredAt": 1,
			"team": bson.M{
				"_id":  "$teamDetails._id",
				"name": "$teamDetails.name",
				"playersCount": bson.M{"$cond": bson.A{
					bson.M{"$isArray": "$teamDetails.players"},
					bson.M{"$size": "$teamDetails.players"},
					0,
				}},
			},
			"captain": bson.M{
				"_id":               "$captainDetails._id",
				"username":          "$captainDetails.username",
				"full_name":         "$captainDetails.full_name",
				"profile_image_url": "$captainDetails.profile_image_url",
			},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	views := make([]models.RegistrationView, 0)
	if err := cursor.All(ctx, &views); err != nil {
		return nil, err
	}
	return views, nil
}

func (r *mongoRegistrationRepository) ApprovedTeamIDs(ctx context.Context, tournamentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	filter := bson.M{
		"tournamentId": tournamentID,
		"status":       models.RegistrationApproved,
	}

	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ids := make([]primitive.ObjectID, 0)
	for cursor.Next(ctx) {
		var registration models.Registration
		if err := cursor.Decode(&registration); err != nil {
			return nil, err
		}
		ids = append(ids, registration.TeamID)
	}
	return ids, cursor.Err()
}

func (r *mongoRegistrationRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RegistrationStatus) error {
	result, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

func (r *mongoRegistrationRepository) CountByTeam(ctx context.Context, teamID primitive.ObjectID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"teamId": teamID})
}

func (r *mongoRegistrationRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}
