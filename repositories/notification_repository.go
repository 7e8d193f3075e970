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

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Insert(ctx context.Context, notification *models.Notification) error
	InsertMany(ctx context.Context, notifications []models.Notification) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	GetByIDForUser(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) error
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
	DeleteAllByUser(ctx context.Context, userID primitive.ObjectID) error
	FindPendingInvite(ctx context.Context, userID, teamID primitive.ObjectID) (*models.Notification, error)
}

type mongoNotificationRepository struct {
	col *mongo.Collection
}

func NewMongoNotificationRepository(database *mongo.Database) NotificationRepository {
	return &mongoNotificationRepository{col: database.Collection("notifications")}
}

func (r *mongoNotificationRepository) Insert(ctx context.Context, notification *models.Notification) error {
	notification.CreatedAt = time.Now()

	result, err := r.col.InsertOne(ctx, notification)
	if err != nil {
		return err
	}
	notification.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoNotificationRepository) InsertMany(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]interface{}, 0, len(notifications))
	for i := range notifications {
		notifications[i].CreatedAt = now
		docs = append(docs, notifications[i])
	}
	_, err := r.col.InsertMany(ctx, docs)
	return err
}

func (r *mongoNotificationRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 15
	}

	filter := bson.M{"userId": userID}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	notifications := make([]models.Notification, 0)
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *mongoNotificationRepository) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"userId": userID, "isRead": false})
}

func (r *mongoNotificationRepository) GetByIDForUser(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	var notification models.Notification
	err := r.col.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&notification)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (r *mongoNotificationRepository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	result, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *mongoNotificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.col.UpdateMany(ctx,
		bson.M{"userId": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	return err
}

func (r *mongoNotificationRepository) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *mongoNotificationRepository) DeleteAllByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}

// FindPendingInvite ищет непрочитанное приглашение игрока в команду,
// чтобы не слать дубликаты.
func (r *mongoNotificationRepository) FindPendingInvite(ctx context.Context, userID, teamID primitive.ObjectID) (*models.Notification, error) {
	filter := bson.M{
		"userId":      userID,
		"type":        models.NotificationTeamInvitation,
		"data.teamId": teamID,
		"isRead":      false,
	}

	var notification models.Notification
	err := r.col.FindOne(ctx, filter).Decode(&notification)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}
