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

var ErrAnnouncementNotFound = errors.New("announcement not found")

type AnnouncementRepository interface {
	Insert(ctx context.Context, announcement *models.Announcement) error
	ListByTournament(ctx context.Context, tournamentID primitive.ObjectID) ([]models.Announcement, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	Subscribe(ctx context.Context, tournamentID, userID primitive.ObjectID) error
	Unsubscribe(ctx context.Context, tournamentID, userID primitive.ObjectID) error
	IsSubscribed(ctx context.Context, tournamentID, userID primitive.ObjectID) (bool, error)
	ListSubscriberIDs(ctx context.Context, tournamentID primitive.ObjectID) ([]primitive.ObjectID, error)
}

type mongoAnnouncementRepository struct {
	announcements *mongo.Collection
	subscriptions *mongo.Collection
}

func NewMongoAnnouncementRepository(database *mongo.Database) AnnouncementRepository {
	return &mongoAnnouncementRepository{
		announcements: database.Collection("tournament_announcements"),
		subscriptions: database.Collection("tournament_subscriptions"),
	}
}

func (r *mongoAnnouncementRepository) Insert(ctx context.Context, announcement *models.Announcement) error {
	announcement.CreatedAt = time.Now()

	result, err := r.announcements.InsertOne(ctx, announcement)
	if err != nil {
		return err
	}
	announcement.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoAnnouncementRepository) ListByTournament(ctx context.Context, tournamentID primitive.ObjectID) ([]models.Announcement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.announcements.Find(ctx, bson.M{"tournamentId": tournamentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	announcements := make([]models.Announcement, 0)
	if err := cursor.All(ctx, &announcements); err != nil {
		return nil, err
	}
	return announcements, nil
}

func (r *mongoAnnouncementRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error) {
	var announcement models.Announcement
	err := r.announcements.FindOne(ctx, bson.M{"_id": id}).Decode(&announcement)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAnnouncementNotFound
		}
		return nil, err
	}
	return &announcement, nil
}

func (r *mongoAnnouncementRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.announcements.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrAnnouncementNotFound
	}
	return nil
}

// Subscribe идемпотентна: апсерт по уникальной паре (турнир, пользователь).
func (r *mongoAnnouncementRepository) Subscribe(ctx context.Context, tournamentID, userID primitive.ObjectID) error {
	filter := bson.M{"tournamentId": tournamentID, "userId": userID}
	update := bson.M{"$setOnInsert": bson.M{"createdAt": time.Now()}}

	_, err := r.subscriptions.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *mongoAnnouncementRepository) Unsubscribe(ctx context.Context, tournamentID, userID primitive.ObjectID) error {
	_, err := r.subscriptions.DeleteOne(ctx, bson.M{"tournamentId": tournamentID, "userId": userID})
	return err
}

func (r *mongoAnnouncementRepository) IsSubscribed(ctx context.Context, tournamentID, userID primitive.ObjectID) (bool, error) {
	count, err := r.subscriptions.CountDocuments(ctx, bson.M{"tournamentId": tournamentID, "userId": userID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *mongoAnnouncementRepository) ListSubscriberIDs(ctx context.Context, tournamentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := r.subscriptions.Find(ctx, bson.M{"tournamentId": tournamentID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ids := make([]primitive.ObjectID, 0)
	for cursor.Next(ctx) {
		var subscription models.Subscription
		if err := cursor.Decode(&subscription); err != nil {
			return nil, err
		}
		ids = append(ids, subscription.UserID)
	}
	return ids, cursor.Err()
}
