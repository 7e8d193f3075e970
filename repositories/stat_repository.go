package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Dosada05/futsal-pulse/models"
)

type StatRepository interface {
	UpsertMatchStats(ctx context.Context, matchID primitive.ObjectID, stats []models.PlayerMatchStat) error
	DeleteByMatch(ctx context.Context, matchID primitive.ObjectID) error
	DeleteByMatchExcept(ctx context.Context, matchID primitive.ObjectID, keepPlayerIDs []primitive.ObjectID) error
	PlayerTotals(ctx context.Context, playerID primitive.ObjectID, tournamentID *primitive.ObjectID) (*models.PlayerTotals, error)
	PlayerMatchLog(ctx context.Context, playerID primitive.ObjectID, limit int64) ([]models.PlayerMatchLogEntry, error)
}

type mongoStatRepository struct {
	col *mongo.Collection
}

func NewMongoStatRepository(database *mongo.Database) StatRepository {
	return &mongoStatRepository{col: database.Collection("player_match_stats")}
}

// UpsertMatchStats пишет все строки матча одним bulk-запросом: апсерты по
// ключу (matchId, playerId), чтобы пересчёт был идемпотентным.
func (r *mongoStatRepository) UpsertMatchStats(ctx context.Context, matchID primitive.ObjectID, stats []models.PlayerMatchStat) error {
	if len(stats) == 0 {
		return nil
	}

	now := time.Now()
	writes := make([]mongo.WriteModel, 0, len(stats))
	for _, stat := range stats {
		filter := bson.M{"matchId": matchID, "playerId": stat.PlayerID}
		update := bson.M{
			"$set": bson.M{
				"teamId":           stat.TeamID,
				"tournamentId":     stat.TournamentID,
				"goals":            stat.Goals,
				"yc":               stat.YellowCards,
				"rc_direct":        stat.RedDirect,
				"rc_second_yellow": stat.RedSecondYellow,
				"pso_scored":       stat.PenaltyScored,
				"pso_missed":       stat.PenaltyMissed,
				"updatedAt":        now,
			},
			"$setOnInsert": bson.M{"createdAt": now},
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(update).
			SetUpsert(true))
	}

	_, err := r.col.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return err
}

func (r *mongoStatRepository) DeleteByMatch(ctx context.Context, matchID primitive.ObjectID) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"matchId": matchID})
	return err
}

// DeleteByMatchExcept убирает строки игроков, выпавших из журнала после
// удаления событий.
func (r *mongoStatRepository) DeleteByMatchExcept(ctx context.Context, matchID primitive.ObjectID, keepPlayerIDs []primitive.ObjectID) error {
	if keepPlayerIDs == nil {
		keepPlayerIDs = []primitive.ObjectID{}
	}
	_, err := r.col.DeleteMany(ctx, bson.M{
		"matchId":  matchID,
		"playerId": bson.M{"$nin": keepPlayerIDs},
	})
	return err
}

func (r *mongoStatRepository) PlayerTotals(ctx context.Context, playerID primitive.ObjectID, tournamentID *primitive.ObjectID) (*models.PlayerTotals, error) {
	match := bson.M{"playerId": playerID}
	if tournamentID != nil {
		match["tournamentId"] = *tournamentID
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"apps":        bson.M{"$sum": 1},
			"goals":       bson.M{"$sum": "$goals"},
			"yellowCards": bson.M{"$sum": "$yc"},
			"redCards":    bson.M{"$sum": bson.M{"$add": bson.A{"$rc_direct", "$rc_second_yellow"}}},
			"pensScored":  bson.M{"$sum": "$pso_scored"},
			"pensMissed":  bson.M{"$sum": "$pso_missed"},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var totals []models.PlayerTotals
	if err := cursor.All(ctx, &totals); err != nil {
		return nil, err
	}
	if len(totals) == 0 {
		return &models.PlayerTotals{}, nil
	}
	return &totals[0], nil
}

func (r *mongoStatRepository) PlayerMatchLog(ctx context.Context, playerID primitive.ObjectID, limit int64) ([]models.PlayerMatchLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"playerId": playerID}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "matches",
			"localField":   "matchId",
			"foreignField": "_id",
			"as":           "match",
		}}},
		bson.D{{Key: "$unwind", Value: "$match"}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "tournaments",
			"localField":   "tournamentId",
			"foreignField": "_id",
			"as":           "tournament",
		}}},
		bson.D{{Key: "$unwind", Value: "$tournament"}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "teams",
			"localField":   "match.teamA_id",
			"foreignField": "_id",
			"as":           "teamA",
		}}},
		bson.D{{Key: "$unwind", Value: "$teamA"}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "teams",
			"localField":   "match.teamB_id",
			"foreignField": "_id",
			"as":           "teamB",
		}}},
		bson.D{{Key: "$unwind", Value: "$teamB"}},
		bson.D{{Key: "$sort", Value: bson.M{"match.matchDate": -1}}},
		bson.D{{Key: "$limit", Value: limit}},
		bson.D{{Key: "$project", Value: bson.M{
			"matchId":          "$match._id",
			"matchDate":        "$match.matchDate",
			"stage":            "$match.stage",
			"result_type":      "$match.result_type",
			"score":            "$match.score",
			"overtime_score":   "$match.overtime_score",
			"penalty_shootout": "$match.penalty_shootout",
			"teamA":            bson.M{"_id": "$teamA._id", "name": "$teamA.name"},
			"teamB":            bson.M{"_id": "$teamB._id", "name": "$teamB.name"},
			"tournament":       bson.M{"_id": "$tournament._id", "name": "$tournament.name"},
			"player": bson.M{
				"goals":       "$goals",
				"yellowCards": "$yc",
				"redCards":    bson.M{"$add": bson.A{"$rc_direct", "$rc_second_yellow"}},
				"redCard":     bson.M{"$gt": bson.A{bson.M{"$add": bson.A{"$rc_direct", "$rc_second_yellow"}}, 0}},
				"pensScored":  "$pso_scored",
				"pensMissed":  "$pso_missed",
			},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := make([]models.PlayerMatchLogEntry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
