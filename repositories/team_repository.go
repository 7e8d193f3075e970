package repositories

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Dosada05/futsal-pulse/models"
)

var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrTeamPlayerNotFound = errors.New("player not found in this team")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Team, error)
	FindByName(ctx context.Context, name string) (*models.Team, error)
	FindByMember(ctx context.Context, userID primitive.ObjectID) (*models.Team, error)
	List(ctx context.Context) ([]models.TeamSummary, error)
	ListByMember(ctx context.Context, userID primitive.ObjectID) ([]models.TeamSummary, error)
	AddPlayer(ctx context.Context, teamID, playerID primitive.ObjectID) error
	RemovePlayer(ctx context.Context, teamID, playerID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoTeamRepository struct {
	col *mongo.Collection
}

func NewMongoTeamRepository(database *mongo.Database) TeamRepository {
	return &mongoTeamRepository{col: database.Collection("teams")}
}

func (r *mongoTeamRepository) Create(ctx context.Context, team *models.Team) error {
	team.CreatedAt = time.Now()
	if team.Players == nil {
		team.Players = []primitive.ObjectID{}
	}

	result, err := r.col.InsertOne(ctx, team)
	if err != nil {
		return err
	}
	team.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoTeamRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error) {
	var team models.Team
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&team)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (r *mongoTeamRepository) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Team, error) {
	if len(ids) == 0 {
		return []models.Team{}, nil
	}

	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	teams := make([]models.Team, 0, len(ids))
	if err := cursor.All(ctx, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *mongoTeamRepository) FindByName(ctx context.Context, name string) (*models.Team, error) {
	// Точное совпадение имени без учёта регистра.
	filter := bson.M{"name": primitive.Regex{
		Pattern: "^" + regexp.QuoteMeta(name) + "$",
		Options: "i",
	}}

	var team models.Team
	err := r.col.FindOne(ctx, filter).Decode(&team)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (r *mongoTeamRepository) FindByMember(ctx context.Context, userID primitive.ObjectID) (*models.Team, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"captain": userID},
		bson.M{"players": userID},
	}}

	var team models.Team
	err := r.col.FindOne(ctx, filter).Decode(&team)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

// summaryPipeline разворачивает капитана и считает размер состава.
func summaryPipeline(match bson.M) mongo.Pipeline {
	pipeline := mongo.Pipeline{}
	if match != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "captain",
			"foreignField": "_id",
			"pipeline": bson.A{bson.M{"$project": bson.M{
				"_id": 1, "username": 1, "full_name": 1, "profile_image_url": 1,
			}}},
			"as": "captainInfo",
		}}},
		bson.D{{Key: "$addFields", Value: bson.M{
			"captain": bson.M{"$arrayElemAt": bson.A{"$captainInfo", 0}},
			"playersCount": bson.M{"$cond": bson.A{
				bson.M{"$isArray": "$players"},
				bson.M{"$size": "$players"},
				0,
			}},
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"_id": 1, "name": 1, "captain": 1, "playersCount": 1,
		}}},
	)
	return pipeline
}

func (r *mongoTeamRepository) List(ctx context.Context) ([]models.TeamSummary, error) {
	return r.aggregateSummaries(ctx, summaryPipeline(nil))
}

func (r *mongoTeamRepository) ListByMember(ctx context.Context, userID primitive.ObjectID) ([]models.TeamSummary, error) {
	match := bson.M{"$or": bson.A{
		bson.M{"captain": userID},
		bson.M{"players": userID},
	}}
	summaries, err := r.aggregateSummaries(ctx, summaryPipeline(match))
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		if summaries[i].Captain != nil && summaries[i].Captain.ID == userID {
			summaries[i].IsCaptain = true
		}
	}
	return summaries, nil
}

func (r *mongoTeamRepository) aggregateSummaries(ctx context.Context, pipeline mongo.Pipeline) ([]models.TeamSummary, error) {
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	summaries := make([]models.TeamSummary, 0)
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *mongoTeamRepository) AddPlayer(ctx context.Context, teamID, playerID primitive.ObjectID) error {
	result, err := r.col.UpdateByID(ctx, teamID, bson.M{"$addToSet": bson.M{"players": playerID}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func (r *mongoTeamRepository) RemovePlayer(ctx context.Context, teamID, playerID primitive.ObjectID) error {
	result, err := r.col.UpdateByID(ctx, teamID, bson.M{"$pull": bson.M{"players": playerID}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrTeamNotFound
	}
	if result.ModifiedCount == 0 {
		return ErrTeamPlayerNotFound
	}
	return nil
}

func (r *mongoTeamRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrTeamNotFound
	}
	return nil
}
