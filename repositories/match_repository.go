package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Dosada05/futsal-pulse/brackets"
	"github.com/Dosada05/futsal-pulse/models"
)

var (
	ErrMatchNotFound = errors.New("match not found")

	// ErrMatchVersionConflict — условное обновление по {_id, version} не
	// нашло документ: версия ушла вперёд (или матч удалён). Сервис
	// перечитывает матч и повторяет попытку один раз.
	ErrMatchVersionConflict = errors.New("match was modified concurrently")
)

type ListMatchesFilter struct {
	TournamentID *primitive.ObjectID
	TeamID       *primitive.ObjectID
}

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Match, error)
	List(ctx context.Context, filter ListMatchesFilter) ([]models.Match, error)
	ListByTournament(ctx context.Context, tournamentID primitive.ObjectID) ([]models.Match, error)
	ListByStage(ctx context.Context, tournamentID primitive.ObjectID, stage brackets.Stage) ([]models.Match, error)
	ListFinished(ctx context.Context, tournamentID *primitive.ObjectID) ([]models.Match, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	AppendEvent(ctx context.Context, id primitive.ObjectID, version int64, event models.MatchEvent, goalSide *models.MatchSide, overtime bool) error
	PullEvent(ctx context.Context, id primitive.ObjectID, version int64, eventID primitive.ObjectID, goalSide *models.MatchSide, overtime bool) error
	InitOvertime(ctx context.Context, id primitive.ObjectID, version int64) error
	InitShootout(ctx context.Context, id primitive.ObjectID, version int64) error
	AppendPenaltyKick(ctx context.Context, id primitive.ObjectID, version int64, kick models.PenaltyKick, goalSide *models.MatchSide) error
	SetShootoutDecided(ctx context.Context, id primitive.ObjectID, version int64, winnerTeamID primitive.ObjectID) error
	SetFinished(ctx context.Context, id primitive.ObjectID, version int64, resultType models.ResultType) error
}

type mongoMatchRepository struct {
	col *mongo.Collection
}

func NewMongoMatchRepository(database *mongo.Database) MatchRepository {
	return &mongoMatchRepository{col: database.Collection("matches")}
}

func (r *mongoMatchRepository) Create(ctx context.Context, match *models.Match) error {
	match.CreatedAt = time.Now()
	if match.Events == nil {
		match.Events = []models.MatchEvent{}
	}

	result, err := r.col.InsertOne(ctx, match)
	if err != nil {
		return err
	}
	match.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoMatchRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Match, error) {
	var match models.Match
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&match)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &match, nil
}

func (r *mongoMatchRepository) List(ctx context.Context, filter ListMatchesFilter) ([]models.Match, error) {
	query := bson.M{}
	if filter.TournamentID != nil {
		query["tournamentId"] = *filter.TournamentID
	}
	if filter.TeamID != nil {
		query["$or"] = bson.A{
			bson.M{"teamA_id": *filter.TeamID},
			bson.M{"teamB_id": *filter.TeamID},
		}
	}
	// Свежие матчи первыми в общем списке.
	return r.find(ctx, query, -1)
}

func (r *mongoMatchRepository) ListByTournament(ctx context.Context, tournamentID primitive.ObjectID) ([]models.Match, error) {
	return r.find(ctx, bson.M{"tournamentId": tournamentID}, 1)
}

func (r *mongoMatchRepository) ListByStage(ctx context.Context, tournamentID primitive.ObjectID, stage brackets.Stage) ([]models.Match, error) {
	return r.find(ctx, bson.M{"tournamentId": tournamentID, "stage": stage}, 1)
}

func (r *mongoMatchRepository) ListFinished(ctx context.Context, tournamentID *primitive.ObjectID) ([]models.Match, error) {
	query := bson.M{"status": models.MatchFinished}
	if tournamentID != nil {
		query["tournamentId"] = *tournamentID
	}
	return r.find(ctx, query, 1)
}

func (r *mongoMatchRepository) find(ctx context.Context, query bson.M, dateOrder int) ([]models.Match, error) {
	opts := options.Find().SetSort(bson.D{{Key: "matchDate", Value: dateOrder}})

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	matches := make([]models.Match, 0)
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *mongoMatchRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrMatchNotFound
	}
	return nil
}

// updateVersioned выполняет условное обновление по {_id, version} и
// инкрементирует версию в том же запросе.
func (r *mongoMatchRepository) updateVersioned(ctx context.Context, id primitive.ObjectID, version int64, update bson.M) error {
	inc, ok := update["$inc"].(bson.M)
	if !ok {
		inc = bson.M{}
		update["$inc"] = inc
	}
	inc["version"] = int64(1)

	result, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "version": version}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrMatchVersionConflict
	}
	return nil
}

func goalField(side models.MatchSide, overtime bool) string {
	prefix := "score."
	if overtime {
		prefix = "overtime_score."
	}
	if side == models.SideA {
		return prefix + "teamA"
	}
	return prefix + "teamB"
}

func (r *mongoMatchRepository) AppendEvent(ctx context.Context, id primitive.ObjectID, version int64, event models.MatchEvent, goalSide *models.MatchSide, overtime bool) error {
	update := bson.M{"$push": bson.M{"events": event}}
	if goalSide != nil {
		update["$inc"] = bson.M{goalField(*goalSide, overtime): 1}
	}
	return r.updateVersioned(ctx, id, version, update)
}

func (r *mongoMatchRepository) PullEvent(ctx context.Context, id primitive.ObjectID, version int64, eventID primitive.ObjectID, goalSide *models.MatchSide, overtime bool) error {
	update := bson.M{"$pull": bson.M{"events": bson.M{"_id": eventID}}}
	if goalSide != nil {
		update["$inc"] = bson.M{goalField(*goalSide, overtime): -1}
	}
	return r.updateVersioned(ctx, id, version, update)
}

func (r *mongoMatchRepository) InitOvertime(ctx context.Context, id primitive.ObjectID, version int64) error {
	update := bson.M{"$set": bson.M{
		"overtime_score": models.Score{},
		"result_type":    models.ResultOvertime,
	}}
	return r.updateVersioned(ctx, id, version, update)
}

func (r *mongoMatchRepository) InitShootout(ctx context.Context, id primitive.ObjectID, version int64) error {
	update := bson.M{"$set": bson.M{
		"penalty_shootout": models.PenaltyShootout{Events: []models.PenaltyKick{}},
		"result_type":      models.ResultPenalties,
	}}
	return r.updateVersioned(ctx, id, version, update)
}

func (r *mongoMatchRepository) AppendPenaltyKick(ctx context.Context, id primitive.ObjectID, version int64, kick models.PenaltyKick, goalSide *models.MatchSide) error {
	update := bson.M{"$push": bson.M{"penalty_shootout.events": kick}}
	if goalSide != nil {
		field := "penalty_shootout.teamB_goals"
		if *goalSide == models.SideA {
			field = "penalty_shootout.teamA_goals"
		}
		update["$inc"] = bson.M{field: 1}
	}
	return r.updateVersioned(ctx, id, version, update)
}

func (r *mongoMatchRepository) SetShootoutDecided(ctx context.Context, id primitive.ObjectID, version int64, winnerTeamID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{
		"penalty_shootout.decided":      true,
		"penalty_shootout.winnerTeamId": winnerTeamID,
		"status":                        models.MatchFinished,
	}}
	return r.updateVersioned(ctx, id, version, update)
}

func (r *mongoMatchRepository) SetFinished(ctx context.Context, id primitive.ObjectID, version int64, resultType models.ResultType) error {
	update := bson.M{"$set": bson.M{
		"status":      models.MatchFinished,
		"result_type": resultType,
	}}
	return r.updateVersioned(ctx, id, version, update)
}
