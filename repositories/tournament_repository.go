package repositories

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Dosada05/futsal-pulse/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

// ListTournamentsFilter — фильтры публичного списка турниров.
type ListTournamentsFilter struct {
	City    string
	Surface string
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Tournament, error)
	GetDetail(ctx context.Context, id primitive.ObjectID) (*models.Tournament, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error)
	Update(ctx context.Context, id primitive.ObjectID, updates bson.M) (*models.Tournament, error)
	UpdateRating(ctx context.Context, id primitive.ObjectID, avg float64, count int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoTournamentRepository struct {
	col *mongo.Collection
}

func NewMongoTournamentRepository(database *mongo.Database) TournamentRepository {
	return &mongoTournamentRepository{col: database.Collection("tournaments")}
}

func (r *mongoTournamentRepository) Create(ctx context.Context, tournament *models.Tournament) error {
	now := time.Now()
	tournament.CreatedAt = now
	tournament.UpdatedAt = now

	result, err := r.col.InsertOne(ctx, tournament)
	if err != nil {
		return err
	}
	tournament.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoTournamentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Tournament, error) {
	var tournament models.Tournament
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&tournament)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return &tournament, nil
}

func (r *mongoTournamentRepository) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Tournament, error) {
	if len(ids) == 0 {
		return []*models.Tournament{}, nil
	}

	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tournaments := make([]*models.Tournament, 0, len(ids))
	if err := cursor.All(ctx, &tournaments); err != nil {
		return nil, err
	}
	return tournaments, nil
}

// GetDetail возвращает турнир с развёрнутой карточкой организатора.
func (r *mongoTournamentRepository) GetDetail(ctx context.Context, id primitive.ObjectID) (*models.Tournament, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"_id": id}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "organizer",
			"foreignField": "_id",
			"pipeline": bson.A{bson.M{"$project": bson.M{
				"_id": 1, "username": 1, "full_name": 1, "profile_image_url": 1,
			}}},
			"as": "organizerInfo",
		}}},
		bson.D{{Key: "$unwind", Value: bson.M{
			"path":                       "$organizerInfo",
			"preserveNullAndEmptyArrays": true,
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tournaments []*models.Tournament
	if err := cursor.All(ctx, &tournaments); err != nil {
		return nil, err
	}
	if len(tournaments) == 0 {
		return nil, ErrTournamentNotFound
	}
	return tournaments[0], nil
}

func (r *mongoTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	query := bson.M{}
	if filter.City != "" {
		query["location.city"] = primitive.Regex{
			Pattern: regexp.QuoteMeta(filter.City),
			Options: "i",
		}
	}
	if filter.Surface != "" {
		query["surface"] = filter.Surface
	}

	cursor, err := r.col.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "startDate", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tournaments := make([]*models.Tournament, 0)
	if err := cursor.All(ctx, &tournaments); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *mongoTournamentRepository) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) (*models.Tournament, error) {
	updates["updatedAt"] = time.Now()

	var tournament models.Tournament
	err := r.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&tournament)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return &tournament, nil
}

func (r *mongoTournamentRepository) UpdateRating(ctx context.Context, id primitive.ObjectID, avg float64, count int) error {
	result, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"avg_rating":   avg,
		"review_count": count,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrTournamentNotFound
	}
	return nil
}

func (r *mongoTournamentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrTournamentNotFound
	}
	return nil
}
