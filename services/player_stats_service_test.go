package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/models"
)

func statFor(t *testing.T, stats []models.PlayerMatchStat, playerID primitive.ObjectID) models.PlayerMatchStat {
	t.Helper()
	for _, s := range stats {
		if s.PlayerID == playerID {
			return s
		}
	}
	t.Fatalf("no stat row for player %s", playerID.Hex())
	return models.PlayerMatchStat{}
}

func TestComputeMatchStatsGoalsAndCards(t *testing.T) {
	m := newTestMatch()
	m.TournamentID = primitive.NewObjectID()
	scorer := primitive.NewObjectID()
	offender := primitive.NewObjectID()

	m.Events = []models.MatchEvent{
		{ID: primitive.NewObjectID(), Type: models.EventGoal, Minute: 12, TeamID: m.TeamAID, PlayerID: scorer},
		{ID: primitive.NewObjectID(), Type: models.EventGoal, Minute: 45, TeamID: m.TeamAID, PlayerID: scorer},
		{ID: primitive.NewObjectID(), Type: models.EventYellowCard, Minute: 8, TeamID: m.TeamBID, PlayerID: offender},
		{ID: primitive.NewObjectID(), Type: models.EventYellowCard, Minute: 33, TeamID: m.TeamBID, PlayerID: offender},
	}

	stats := computeMatchStats(m)
	require.Len(t, stats, 2)

	s := statFor(t, stats, scorer)
	assert.Equal(t, 2, s.Goals)
	assert.Equal(t, m.TournamentID, s.TournamentID)

	o := statFor(t, stats, offender)
	assert.Equal(t, 2, o.YellowCards)
	assert.Equal(t, 1, o.RedSecondYellow)
	assert.Equal(t, 0, o.RedDirect)
}

func TestComputeMatchStatsSecondYellowOutOfOrder(t *testing.T) {
	m := newTestMatch()
	offender := primitive.NewObjectID()

	// Вторая по минуте жёлтая вставлена в журнал первой: свёртка обязана
	// обойти события в порядке минут.
	m.Events = []models.MatchEvent{
		{ID: primitive.NewObjectID(), Type: models.EventYellowCard, Minute: 30, TeamID: m.TeamAID, PlayerID: offender},
		{ID: primitive.NewObjectID(), Type: models.EventYellowCard, Minute: 5, TeamID: m.TeamAID, PlayerID: offender},
	}

	stats := computeMatchStats(m)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].RedSecondYellow)
}

func TestComputeMatchStatsDirectRed(t *testing.T) {
	m := newTestMatch()
	offender := primitive.NewObjectID()
	m.Events = []models.MatchEvent{
		{ID: primitive.NewObjectID(), Type: models.EventRedCard, Minute: 20, TeamID: m.TeamAID, PlayerID: offender},
	}

	stats := computeMatchStats(m)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].RedDirect)
	assert.Equal(t, 0, stats[0].RedSecondYellow)
}

func TestComputeMatchStatsGoalMinuteWindow(t *testing.T) {
	m := newTestMatch()
	scorer := primitive.NewObjectID()
	m.Events = []models.MatchEvent{
		{ID: primitive.NewObjectID(), Type: models.EventGoal, Minute: 0, TeamID: m.TeamAID, PlayerID: scorer},
		{ID: primitive.NewObjectID(), Type: models.EventGoal, Minute: 50, TeamID: m.TeamAID, PlayerID: scorer},
		{ID: primitive.NewObjectID(), Type: models.EventGoal, Minute: 51, TeamID: m.TeamAID, PlayerID: scorer},
	}

	stats := computeMatchStats(m)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Goals)
}

func TestComputeMatchStatsPenaltyShootout(t *testing.T) {
	m := newTestMatch()
	taker := primitive.NewObjectID()
	m.PenaltyShootout = &models.PenaltyShootout{Events: []models.PenaltyKick{
		{ID: primitive.NewObjectID(), TeamID: m.TeamAID, PlayerID: taker, Outcome: models.PenaltyScored},
		{ID: primitive.NewObjectID(), TeamID: m.TeamAID, PlayerID: taker, Outcome: models.PenaltyMissed},
	}}

	stats := computeMatchStats(m)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].PenaltyScored)
	assert.Equal(t, 1, stats[0].PenaltyMissed)
}

func TestComputeMatchStatsDropsEmptyRows(t *testing.T) {
	m := newTestMatch()
	assert.Empty(t, computeMatchStats(m))

	// Гол за пределами зачётного окна даёт пустую строку, которая
	// отфильтровывается.
	m.Events = []models.MatchEvent{
		{ID: primitive.NewObjectID(), Type: models.EventGoal, Minute: 90, TeamID: m.TeamAID, PlayerID: primitive.NewObjectID()},
	}
	assert.Empty(t, computeMatchStats(m))
}

// --- Синхронизация и пересчёт ---

// fakeStatRepo хранит строки (матч, игрок) в памяти с upsert-семантикой
// по составному ключу.
type fakeStatRepo struct {
	rows map[primitive.ObjectID]map[primitive.ObjectID]models.PlayerMatchStat
}

func newFakeStatRepo() *fakeStatRepo {
	return &fakeStatRepo{rows: make(map[primitive.ObjectID]map[primitive.ObjectID]models.PlayerMatchStat)}
}

func (r *fakeStatRepo) seed(stat models.PlayerMatchStat) {
	byPlayer := r.rows[stat.MatchID]
	if byPlayer == nil {
		byPlayer = make(map[primitive.ObjectID]models.PlayerMatchStat)
		r.rows[stat.MatchID] = byPlayer
	}
	byPlayer[stat.PlayerID] = stat
}

func (r *fakeStatRepo) UpsertMatchStats(_ context.Context, _ primitive.ObjectID, stats []models.PlayerMatchStat) error {
	for _, stat := range stats {
		r.seed(stat)
	}
	return nil
}

func (r *fakeStatRepo) DeleteByMatch(_ context.Context, matchID primitive.ObjectID) error {
	delete(r.rows, matchID)
	return nil
}

func (r *fakeStatRepo) DeleteByMatchExcept(_ context.Context, matchID primitive.ObjectID, keepPlayerIDs []primitive.ObjectID) error {
	keep := make(map[primitive.ObjectID]struct{}, len(keepPlayerIDs))
	for _, id := range keepPlayerIDs {
		keep[id] = struct{}{}
	}
	for playerID := range r.rows[matchID] {
		if _, ok := keep[playerID]; !ok {
			delete(r.rows[matchID], playerID)
		}
	}
	return nil
}

func (r *fakeStatRepo) PlayerTotals(_ context.Context, playerID primitive.ObjectID, tournamentID *primitive.ObjectID) (*models.PlayerTotals, error) {
	totals := &models.PlayerTotals{}
	for _, byPlayer := range r.rows {
		stat, ok := byPlayer[playerID]
		if !ok {
			continue
		}
		if tournamentID != nil && stat.TournamentID != *tournamentID {
			continue
		}
		totals.Apps++
		totals.Goals += stat.Goals
		totals.YellowCards += stat.YellowCards
		totals.RedCards += stat.RedDirect + stat.RedSecondYellow
		totals.PenaltyScored += stat.PenaltyScored
		totals.PenaltyMissed += stat.PenaltyMissed
	}
	return totals, nil
}

func (r *fakeStatRepo) PlayerMatchLog(_ context.Context, _ primitive.ObjectID, _ int64) ([]models.PlayerMatchLogEntry, error) {
	return nil, nil
}

func snapshotRows(r *fakeStatRepo) map[primitive.ObjectID]map[primitive.ObjectID]models.PlayerMatchStat {
	out := make(map[primitive.ObjectID]map[primitive.ObjectID]models.PlayerMatchStat, len(r.rows))
	for matchID, byPlayer := range r.rows {
		inner := make(map[primitive.ObjectID]models.PlayerMatchStat, len(byPlayer))
		for playerID, stat := range byPlayer {
			inner[playerID] = stat
		}
		out[matchID] = inner
	}
	return out
}

func finishedMatchWithScorer(scorer primitive.ObjectID) *models.Match {
	m := newTestMatch()
	m.TournamentID = primitive.NewObjectID()
	m.Status = models.MatchFinished
	m.Score = models.Score{TeamA: 1}
	m.Events = []models.MatchEvent{
		{ID: primitive.NewObjectID(), Type: models.EventGoal, Minute: 10, TeamID: m.TeamAID, PlayerID: scorer},
	}
	return m
}

func TestSyncMatchDeletesRowsWhenNotFinished(t *testing.T) {
	statsRepo := newFakeStatRepo()
	svc := NewPlayerStatsService(statsRepo, newFakeMatchRepo())

	scorer := primitive.NewObjectID()
	m := finishedMatchWithScorer(scorer)
	require.NoError(t, svc.SyncMatch(context.Background(), m))
	require.Len(t, statsRepo.rows[m.ID], 1)

	m.Status = models.MatchScheduled
	require.NoError(t, svc.SyncMatch(context.Background(), m))
	assert.Empty(t, statsRepo.rows[m.ID])
}

func TestSyncMatchDropsStaleRows(t *testing.T) {
	statsRepo := newFakeStatRepo()
	svc := NewPlayerStatsService(statsRepo, newFakeMatchRepo())

	scorer := primitive.NewObjectID()
	m := finishedMatchWithScorer(scorer)

	// Строка игрока, выпавшего из журнала после удаления события.
	ghost := primitive.NewObjectID()
	statsRepo.seed(models.PlayerMatchStat{MatchID: m.ID, PlayerID: ghost, TeamID: m.TeamBID, TournamentID: m.TournamentID, Goals: 2})

	require.NoError(t, svc.SyncMatch(context.Background(), m))
	require.Len(t, statsRepo.rows[m.ID], 1)
	row := statsRepo.rows[m.ID][scorer]
	assert.Equal(t, 1, row.Goals)
}

func TestRecomputeAllIdempotent(t *testing.T) {
	matches := newFakeMatchRepo()
	statsRepo := newFakeStatRepo()
	svc := NewPlayerStatsService(statsRepo, matches)

	first := finishedMatchWithScorer(primitive.NewObjectID())
	second := finishedMatchWithScorer(primitive.NewObjectID())
	scheduled := newTestMatch()
	for _, m := range []*models.Match{first, second, scheduled} {
		matches.matches[m.ID] = m
	}

	n, err := svc.RecomputeAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	before := snapshotRows(statsRepo)
	require.NotEmpty(t, before)

	n, err = svc.RecomputeAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, before, statsRepo.rows)

	n, err = svc.RecomputeAll(context.Background(), &first.TournamentID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// staleListMatchRepo отдаёт в ListFinished заранее подготовленный снимок
// вместо актуального состояния хранилища.
type staleListMatchRepo struct {
	*fakeMatchRepo
	stale []models.Match
}

func (r *staleListMatchRepo) ListFinished(_ context.Context, _ *primitive.ObjectID) ([]models.Match, error) {
	return r.stale, nil
}

func TestRecomputeAllReadsFreshMatch(t *testing.T) {
	matches := newFakeMatchRepo()
	statsRepo := newFakeStatRepo()

	// Актуальный документ: событие уже удалено правкой журнала.
	scorer := primitive.NewObjectID()
	live := finishedMatchWithScorer(scorer)
	staleCopy := *cloneMatch(live)
	live.Events = []models.MatchEvent{}
	live.Score = models.Score{}
	matches.matches[live.ID] = live

	// Снимок списка устарел и всё ещё содержит гол; второй матч из
	// снимка уже удалён целиком.
	gone := newTestMatch()
	gone.Status = models.MatchFinished

	repo := &staleListMatchRepo{fakeMatchRepo: matches, stale: []models.Match{staleCopy, *gone}}
	svc := NewPlayerStatsService(statsRepo, repo)

	statsRepo.seed(models.PlayerMatchStat{MatchID: live.ID, PlayerID: scorer, TeamID: live.TeamAID, TournamentID: live.TournamentID, Goals: 1})

	n, err := svc.RecomputeAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, statsRepo.rows[live.ID])
}
