package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect открывает соединение с MongoDB и проверяет его ping-ом.
func Connect(uri, dbName string, timeout time.Duration) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		if dcErr := client.Disconnect(context.Background()); dcErr != nil {
			fmt.Printf("failed to disconnect after ping error: %v\n", dcErr)
		}
		return nil, fmt.Errorf("failed to ping mongo within %v: %w", timeout, err)
	}

	return client.Database(dbName), nil
}

// EnsureIndexes создаёт индексы, на которые полагается доменная логика:
// уникальность заявки команды на турнир, уникальность строки статистики
// (матч, игрок), уникальность отзыва и подписки.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	type spec struct {
		collection string
		model      mongo.IndexModel
	}

	specs := []spec{
		{
			collection: "registrations",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "teamId", Value: 1}, {Key: "tournamentId", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_team_in_tournament"),
			},
		},
		{
			collection: "player_match_stats",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "matchId", Value: 1}, {Key: "playerId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: "player_match_stats",
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "playerId", Value: 1}, {Key: "tournamentId", Value: 1}},
			},
		},
		{
			collection: "matches",
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "tournamentId", Value: 1}, {Key: "stage", Value: 1}},
			},
		},
		{
			collection: "reviews",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "tournament_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: "tournament_subscriptions",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "tournamentId", Value: 1}, {Key: "userId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: "tournament_announcements",
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "tournamentId", Value: 1}, {Key: "createdAt", Value: -1}},
			},
		},
		{
			collection: "notifications",
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			},
		},
	}

	for _, s := range specs {
		if _, err := database.Collection(s.collection).Indexes().CreateOne(ctx, s.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", s.collection, err)
		}
	}
	return nil
}
