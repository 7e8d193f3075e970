package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Dosada05/futsal-pulse/models"
)

var ErrReviewNotFound = errors.New("review not found")

type ReviewRepository interface {
	Upsert(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	ListByTournament(ctx context.Context, tournamentID primitive.ObjectID, page, limit int64) ([]models.ReviewView, int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AggregateRating(ctx context.Context, tournamentID primitive.ObjectID) (*models.TournamentRating, error)
}

type mongoReviewRepository struct {
	col *mongo.Collection
}

func NewMongoReviewRepository(database *mongo.Database) ReviewRepository {
	return &mongoReviewRepository{col: database.Collection("reviews")}
}

// Upsert: один отзыв на пару (турнир, пользователь); повторная отправка
// перезаписывает оценку и комментарий.
func (r *mongoReviewRepository) Upsert(ctx context.Context, review *models.Review) error {
	now := time.Now()
	filter := bson.M{
		"tournament_id": review.TournamentID,
		"user_id":       review.UserID,
	}
	update := bson.M{
		"$set": bson.M{
			"rating":    review.Rating,
			"comment":   review.Comment,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	return r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(review)
}

func (r *mongoReviewRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	var review models.Review
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return &review, nil
}

func (r *mongoReviewRepository) ListByTournament(ctx context.Context, tournamentID primitive.ObjectID, page, limit int64) ([]models.ReviewView, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	filter := bson.M{"tournament_id": tournamentID}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: filter}},
		bson.D{{Key: "$sort", Value: bson.M{"createdAt": -1}}},
		bson.D{{Key: "$skip", Value: (page - 1) * limit}},
		bson.D{{Key: "$limit", Value: limit}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "authorDetails",
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"rating":    1,
			"comment":   1,
			"createdAt": 1,
			"updatedAt": 1,
			"user_id":   1,
			"author": bson.M{"$let": bson.M{
				"vars": bson.M{"a": bson.M{"$arrayElemAt": bson.A{"$authorDetails", 0}}},
				"in": bson.M{
					"_id":               "$$a._id",
					"username":          "$$a.username",
					"full_name":         "$$a.full_name",
					"profile_image_url": "$$a.profile_image_url",
				},
			}},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	views := make([]models.ReviewView, 0)
	if err := cursor.All(ctx, &views); err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (r *mongoReviewRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func (r *mongoReviewRepository) AggregateRating(ctx context.Context, tournamentID primitive.ObjectID) (*models.TournamentRating, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"tournament_id": tournamentID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"avg_rating":   bson.M{"$avg": "$rating"},
			"review_count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		AvgRating   float64 `bson:"avg_rating"`
		ReviewCount int     `bson:"review_count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &models.TournamentRating{}, nil
	}
	return &models.TournamentRating{
		AvgRating:   results[0].AvgRating,
		ReviewCount: results[0].ReviewCount,
	}, nil
}
