package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/brackets"
	"github.com/Dosada05/futsal-pulse/models"
	"github.com/Dosada05/futsal-pulse/repositories"
)

// --- Фейковые репозитории ---

// fakeMatchRepo хранит матчи в памяти и воспроизводит семантику условных
// обновлений по {_id, version}: несовпадение версии отдаёт
// ErrMatchVersionConflict, успешная мутация инкрементирует версию.
type fakeMatchRepo struct {
	matches        map[primitive.ObjectID]*models.Match
	forceConflicts int
	lockedCalls    int
	conflictOnCall int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[primitive.ObjectID]*models.Match)}
}

func cloneMatch(m *models.Match) *models.Match {
	out := *m
	out.Events = append([]models.MatchEvent(nil), m.Events...)
	if m.OvertimeScore != nil {
		score := *m.OvertimeScore
		out.OvertimeScore = &score
	}
	if m.PenaltyShootout != nil {
		shootout := *m.PenaltyShootout
		shootout.Events = append([]models.PenaltyKick(nil), m.PenaltyShootout.Events...)
		out.PenaltyShootout = &shootout
	}
	return &out
}

func (r *fakeMatchRepo) Create(_ context.Context, match *models.Match) error {
	if match.ID.IsZero() {
		match.ID = primitive.NewObjectID()
	}
	match.CreatedAt = time.Now()
	if match.Events == nil {
		match.Events = []models.MatchEvent{}
	}
	r.matches[match.ID] = cloneMatch(match)
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Match, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return cloneMatch(m), nil
}

func (r *fakeMatchRepo) List(_ context.Context, filter repositories.ListMatchesFilter) ([]models.Match, error) {
	out := make([]models.Match, 0)
	for _, m := range r.matches {
		if filter.TournamentID != nil && m.TournamentID != *filter.TournamentID {
			continue
		}
		if filter.TeamID != nil && m.TeamAID != *filter.TeamID && m.TeamBID != *filter.TeamID {
			continue
		}
		out = append(out, *cloneMatch(m))
	}
	return out, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID primitive.ObjectID) ([]models.Match, error) {
	return r.List(ctx, repositories.ListMatchesFilter{TournamentID: &tournamentID})
}

func (r *fakeMatchRepo) ListByStage(_ context.Context, tournamentID primitive.ObjectID, stage brackets.Stage) ([]models.Match, error) {
	out := make([]models.Match, 0)
	for _, m := range r.matches {
		if m.TournamentID == tournamentID && m.Stage == stage {
			out = append(out, *cloneMatch(m))
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) ListFinished(_ context.Context, tournamentID *primitive.ObjectID) ([]models.Match, error) {
	out := make([]models.Match, 0)
	for _, m := range r.matches {
		if m.Status != models.MatchFinished {
			continue
		}
		if tournamentID != nil && m.TournamentID != *tournamentID {
			continue
		}
		out = append(out, *cloneMatch(m))
	}
	return out, nil
}

func (r *fakeMatchRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := r.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.matches, id)
	return nil
}

func (r *fakeMatchRepo) locked(id primitive.ObjectID, version int64) (*models.Match, error) {
	r.lockedCalls++
	if r.conflictOnCall != 0 && r.lockedCalls == r.conflictOnCall {
		return nil, repositories.ErrMatchVersionConflict
	}
	if r.forceConflicts > 0 {
		r.forceConflicts--
		return nil, repositories.ErrMatchVersionConflict
	}
	m, ok := r.matches[id]
	if !ok || m.Version != version {
		return nil, repositories.ErrMatchVersionConflict
	}
	return m, nil
}

func applyGoal(m *models.Match, side models.MatchSide, overtime bool, delta int) {
	target := &m.Score
	if overtime {
		target = m.OvertimeScore
	}
	if side == models.SideA {
		target.TeamA += delta
	} else {
		target.TeamB += delta
	}
}

func (r *fakeMatchRepo) AppendEvent(_ context.Context, id primitive.ObjectID, version int64, event models.MatchEvent, goalSide *models.MatchSide, overtime bool) error {
	m, err := r.locked(id, version)
	if err != nil {
		return err
	}
	m.Events = append(m.Events, event)
	if goalSide != nil {
		applyGoal(m, *goalSide, overtime, 1)
	}
	m.Version++
	return nil
}

func (r *fakeMatchRepo) PullEvent(_ context.Context, id primitive.ObjectID, version int64, eventID primitive.ObjectID, goalSide *models.MatchSide, overtime bool) error {
	m, err := r.locked(id, version)
	if err != nil {
		return err
	}
	for i := range m.Events {
		if m.Events[i].ID == eventID {
			m.Events = append(m.Events[:i], m.Events[i+1:]...)
			break
		}
	}
	if goalSide != nil {
		applyGoal(m, *goalSide, overtime, -1)
	}
	m.Version++
	return nil
}

func (r *fakeMatchRepo) InitOvertime(_ context.Context, id primitive.ObjectID, version int64) error {
	m, err := r.locked(id, version)
	if err != nil {
		return err
	}
	m.OvertimeScore = &models.Score{}
	m.ResultType = models.ResultOvertime
	m.Version++
	return nil
}

func (r *fakeMatchRepo) InitShootout(_ context.Context, id primitive.ObjectID, version int64) error {
	m, err := r.locked(id, version)
	if err != nil {
		return err
	}
	m.PenaltyShootout = &models.PenaltyShootout{Events: []models.PenaltyKick{}}
	m.ResultType = models.ResultPenalties
	m.Version++
	return nil
}

func (r *fakeMatchRepo) AppendPenaltyKick(_ context.Context, id primitive.ObjectID, version int64, kick models.PenaltyKick, goalSide *models.MatchSide) error {
	m, err := r.locked(id, version)
	if err != nil {
		return err
	}
	m.PenaltyShootout.Events = append(m.PenaltyShootout.Events, kick)
	if goalSide != nil {
		if *goalSide == models.SideA {
			m.PenaltyShootout.TeamAGoals++
		} else {
			m.PenaltyShootout.TeamBGoals++
		}
	}
	m.Version++
	return nil
}

func (r *fakeMatchRepo) SetShootoutDecided(_ context.Context, id primitive.ObjectID, version int64, winnerTeamID primitive.ObjectID) error {
	m, err := r.locked(id, version)
	if err != nil {
		return err
	}
	winner := winnerTeamID
	m.PenaltyShootout.Decided = true
	m.PenaltyShootout.WinnerTeamID = &winner
	m.Status = models.MatchFinished
	m.Version++
	return nil
}

func (r *fakeMatchRepo) SetFinished(_ context.Context, id primitive.ObjectID, version int64, resultType models.ResultType) error {
	m, err := r.locked(id, version)
	if err != nil {
		return err
	}
	m.Status = models.MatchFinished
	m.ResultType = resultType
	m.Version++
	return nil
}

type fakeTournamentRepo struct {
	tournaments map[primitive.ObjectID]*models.Tournament
}

func (r *fakeTournamentRepo) Create(_ context.Context, tournament *models.Tournament) error {
	if tournament.ID.IsZero() {
		tournament.ID = primitive.NewObjectID()
	}
	r.tournaments[tournament.ID] = tournament
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	out := *t
	return &out, nil
}

func (r *fakeTournamentRepo) GetDetail(ctx context.Context, id primitive.ObjectID) (*models.Tournament, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTournamentRepo) ListByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.Tournament, error) {
	out := make([]*models.Tournament, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.tournaments[id]; ok {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) List(_ context.Context, _ repositories.ListTournamentsFilter) ([]*models.Tournament, error) {
	return nil, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, id primitive.ObjectID, _ bson.M) (*models.Tournament, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTournamentRepo) UpdateRating(_ context.Context, _ primitive.ObjectID, _ float64, _ int) error {
	return nil
}

func (r *fakeTournamentRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(r.tournaments, id)
	return nil
}

type fakeTeamRepo struct {
	teams map[primitive.ObjectID]*models.Team
}

func (r *fakeTeamRepo) Create(_ context.Context, team *models.Team) error {
	if team.ID.IsZero() {
		team.ID = primitive.NewObjectID()
	}
	r.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Team, error) {
	t, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	out := *t
	out.Players = append([]primitive.ObjectID(nil), t.Players...)
	return &out, nil
}

func (r *fakeTeamRepo) ListByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Team, error) {
	out := make([]models.Team, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.teams[id]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) FindByName(_ context.Context, _ string) (*models.Team, error) {
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) FindByMember(_ context.Context, _ primitive.ObjectID) (*models.Team, error) {
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) List(_ context.Context) ([]models.TeamSummary, error) {
	return nil, nil
}

func (r *fakeTeamRepo) ListByMember(_ context.Context, _ primitive.ObjectID) ([]models.TeamSummary, error) {
	return nil, nil
}

func (r *fakeTeamRepo) AddPlayer(_ context.Context, _, _ primitive.ObjectID) error {
	return nil
}

func (r *fakeTeamRepo) RemovePlayer(_ context.Context, _, _ primitive.ObjectID) error {
	return nil
}

func (r *fakeTeamRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(r.teams, id)
	return nil
}

type fakeUserRepo struct {
	users map[primitive.ObjectID]*models.User
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, _ string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) ExistsByUsernameOrEmail(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (r *fakeUserRepo) ListByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, id primitive.ObjectID, _ bson.M) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeUserRepo) UpdateAvatar(_ context.Context, _ primitive.ObjectID, _, _ string) error {
	return nil
}

func (r *fakeUserRepo) SearchPlayers(_ context.Context, _ string, _ int64) ([]*models.User, error) {
	return nil, nil
}

type fakeRegistrationRepo struct {
	approved map[primitive.ObjectID][]primitive.ObjectID
}

func (r *fakeRegistrationRepo) Create(_ context.Context, _ *models.Registration) error {
	return nil
}

func (r *fakeRegistrationRepo) GetByID(_ context.Context, _ primitive.ObjectID) (*models.Registration, error) {
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) ListByTournament(_ context.Context, _ primitive.ObjectID) ([]models.RegistrationView, error) {
	return nil, nil
}

func (r *fakeRegistrationRepo) ApprovedTeamIDs(_ context.Context, tournamentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return append([]primitive.ObjectID(nil), r.approved[tournamentID]...), nil
}

func (r *fakeRegistrationRepo) UpdateStatus(_ context.Context, _ primitive.ObjectID, _ models.RegistrationStatus) error {
	return nil
}

func (r *fakeRegistrationRepo) CountByTeam(_ context.Context, _ primitive.ObjectID) (int64, error) {
	return 0, nil
}

func (r *fakeRegistrationRepo) Delete(_ context.Context, _ primitive.ObjectID) error {
	return nil
}

// recordingStats фиксирует вызовы синхронизации статистики.
type recordingStats struct {
	synced  []primitive.ObjectID
	removed []primitive.ObjectID
	syncErr error
}

func (s *recordingStats) SyncMatch(_ context.Context, match *models.Match) error {
	if s.syncErr != nil {
		return s.syncErr
	}
	s.synced = append(s.synced, match.ID)
	return nil
}

func (s *recordingStats) RemoveMatch(_ context.Context, matchID primitive.ObjectID) error {
	s.removed = append(s.removed, matchID)
	return nil
}

func (s *recordingStats) RecomputeAll(_ context.Context, _ *primitive.ObjectID) (int, error) {
	return 0, nil
}

func (s *recordingStats) Totals(_ context.Context, _ primitive.ObjectID, _ *primitive.ObjectID) (*models.PlayerTotals, error) {
	return nil, nil
}

func (s *recordingStats) MatchLog(_ context.Context, _ primitive.ObjectID, _ int64) ([]models.PlayerMatchLogEntry, error) {
	return nil, nil
}

// --- Окружение тестов ---

type matchEnv struct {
	svc          MatchService
	matches      *fakeMatchRepo
	teams        *fakeTeamRepo
	stats        *recordingStats
	organizerID  primitive.ObjectID
	tournamentID primitive.ObjectID
	matchDate    time.Time
	teamIDs      []primitive.ObjectID
	rosters      map[primitive.ObjectID][]primitive.ObjectID
}

// newMatchEnv собирает сервис на фейках: турнир на три дня, teamCount
// одобренных команд с составом из трёх игроков каждая.
func newMatchEnv(teamCount int) *matchEnv {
	matches := newFakeMatchRepo()
	tournaments := &fakeTournamentRepo{tournaments: make(map[primitive.ObjectID]*models.Tournament)}
	teams := &fakeTeamRepo{teams: make(map[primitive.ObjectID]*models.Team)}
	users := &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
	registrations := &fakeRegistrationRepo{approved: make(map[primitive.ObjectID][]primitive.ObjectID)}
	stats := &recordingStats{}

	organizerID := primitive.NewObjectID()
	users.users[organizerID] = &models.User{ID: organizerID, Username: "organizer", Role: models.RoleOrganizer}

	start := time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)
	tournamentID := primitive.NewObjectID()
	tournaments.tournaments[tournamentID] = &models.Tournament{
		ID:        tournamentID,
		Name:      "Summer Indoor Cup",
		Organizer: organizerID,
		StartDate: start,
		EndDate:   &end,
	}

	env := &matchEnv{
		matches:      matches,
		teams:        teams,
		stats:        stats,
		organizerID:  organizerID,
		tournamentID: tournamentID,
		matchDate:    start.Add(18 * time.Hour),
		rosters:      make(map[primitive.ObjectID][]primitive.ObjectID),
	}

	for i := 0; i < teamCount; i++ {
		captainID := primitive.NewObjectID()
		users.users[captainID] = &models.User{ID: captainID, Username: fmt.Sprintf("captain%d", i+1), Role: models.RolePlayer}

		roster := make([]primitive.ObjectID, 0, 3)
		for j := 0; j < 3; j++ {
			playerID := primitive.NewObjectID()
			users.users[playerID] = &models.User{ID: playerID, Username: fmt.Sprintf("player%d_%d", i+1, j+1), Role: models.RolePlayer}
			roster = append(roster, playerID)
		}

		teamID := primitive.NewObjectID()
		teams.teams[teamID] = &models.Team{
			ID:      teamID,
			Name:    fmt.Sprintf("Team %d", i+1),
			Captain: captainID,
			Players: roster,
		}
		env.teamIDs = append(env.teamIDs, teamID)
		env.rosters[teamID] = roster
		registrations.approved[tournamentID] = append(registrations.approved[tournamentID], teamID)
	}

	env.svc = NewMatchService(matches, tournaments, teams, users, registrations, stats)
	return env
}

func (e *matchEnv) player(team, idx int) primitive.ObjectID {
	return e.rosters[e.teamIDs[team]][idx]
}

func (e *matchEnv) createMatch(t *testing.T, stage brackets.Stage, teamA, teamB int) *models.Match {
	t.Helper()
	match, err := e.svc.Create(context.Background(), e.organizerID, CreateMatchInput{
		TournamentID: e.tournamentID,
		TeamAID:      e.teamIDs[teamA],
		TeamBID:      e.teamIDs[teamB],
		MatchDate:    e.matchDate,
		Stage:        stage,
	})
	require.NoError(t, err)
	return match
}

// seedFinishedMatch кладёт завершённый матч напрямую в репозиторий, минуя
// проверки создания.
func (e *matchEnv) seedFinishedMatch(stage brackets.Stage, teamA, teamB, scoreA, scoreB int) {
	match := &models.Match{
		ID:           primitive.NewObjectID(),
		TournamentID: e.tournamentID,
		TeamAID:      e.teamIDs[teamA],
		TeamBID:      e.teamIDs[teamB],
		Score:        models.Score{TeamA: scoreA, TeamB: scoreB},
		MatchDate:    e.matchDate,
		Status:       models.MatchFinished,
		ResultType:   models.ResultRegular,
		Stage:        stage,
		Events:       []models.MatchEvent{},
		Version:      1,
	}
	e.matches.matches[match.ID] = match
}

func (e *matchEnv) addGoal(t *testing.T, matchID primitive.ObjectID, team, playerIdx, minute int) *models.MatchView {
	t.Helper()
	view, err := e.svc.AddEvent(context.Background(), e.organizerID, matchID, AddEventInput{
		Type:     models.EventGoal,
		Minute:   minute,
		TeamID:   e.teamIDs[team],
		PlayerID: e.player(team, playerIdx),
	})
	require.NoError(t, err)
	return view
}

func (e *matchEnv) kick(matchID primitive.ObjectID, team, playerIdx int, outcome models.PenaltyOutcome) (*models.MatchView, error) {
	return e.svc.AddPenaltyKick(context.Background(), e.organizerID, matchID, AddPenaltyInput{
		TeamID:   e.teamIDs[team],
		PlayerID: e.player(team, playerIdx),
		Outcome:  outcome,
	})
}

// --- Создание и сетка ---

func TestCreateMatchStartingStage(t *testing.T) {
	env := newMatchEnv(4)

	match := env.createMatch(t, brackets.StageSemi, 0, 1)
	assert.Equal(t, models.MatchScheduled, match.Status)
	assert.Equal(t, models.ResultRegular, match.ResultType)
	assert.Equal(t, brackets.StageSemi, match.Stage)
	assert.False(t, match.ID.IsZero())

	env.createMatch(t, brackets.StageSemi, 2, 3)

	// Стартовая стадия заполнена.
	_, err := env.svc.Create(context.Background(), env.organizerID, CreateMatchInput{
		TournamentID: env.tournamentID,
		TeamAID:      env.teamIDs[0],
		TeamBID:      env.teamIDs[1],
		MatchDate:    env.matchDate,
		Stage:        brackets.StageSemi,
	})
	assert.ErrorIs(t, err, ErrStageFull)
}

func TestCreateMatchValidation(t *testing.T) {
	env := newMatchEnv(4)
	ctx := context.Background()

	base := CreateMatchInput{
		TournamentID: env.tournamentID,
		TeamAID:      env.teamIDs[0],
		TeamBID:      env.teamIDs[1],
		MatchDate:    env.matchDate,
		Stage:        brackets.StageSemi,
	}

	in := base
	in.TeamBID = in.TeamAID
	_, err := env.svc.Create(ctx, env.organizerID, in)
	assert.ErrorIs(t, err, ErrMatchTeamsIdentical)

	in = base
	in.Stage = "group"
	_, err = env.svc.Create(ctx, env.organizerID, in)
	assert.ErrorIs(t, err, ErrInvalidStage)

	in = base
	in.MatchDate = time.Time{}
	_, err = env.svc.Create(ctx, env.organizerID, in)
	assert.ErrorIs(t, err, ErrMatchDateInvalid)

	in = base
	in.MatchDate = env.matchDate.AddDate(0, 0, 10)
	_, err = env.svc.Create(ctx, env.organizerID, in)
	assert.ErrorIs(t, err, ErrMatchDateOutOfRange)

	_, err = env.svc.Create(ctx, primitive.NewObjectID(), base)
	assert.ErrorIs(t, err, ErrOrganizerOnly)

	_, err = env.svc.Create(ctx, env.organizerID, CreateMatchInput{
		TournamentID: primitive.NewObjectID(),
		TeamAID:      base.TeamAID,
		TeamBID:      base.TeamBID,
		MatchDate:    base.MatchDate,
		Stage:        base.Stage,
	})
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestCreateMatchRequiresApprovedTeams(t *testing.T) {
	env := newMatchEnv(4)

	// Команда существует, но не одобрена в турнире.
	outsider := &models.Team{ID: primitive.NewObjectID(), Name: "Outsiders", Captain: primitive.NewObjectID()}
	env.teams.teams[outsider.ID] = outsider

	_, err := env.svc.Create(context.Background(), env.organizerID, CreateMatchInput{
		TournamentID: env.tournamentID,
		TeamAID:      env.teamIDs[0],
		TeamBID:      outsider.ID,
		MatchDate:    env.matchDate,
		Stage:        brackets.StageSemi,
	})
	assert.ErrorIs(t, err, ErrTeamsNotApproved)
}

func TestCreateMatchStageLocked(t *testing.T) {
	env := newMatchEnv(4)
	ctx := context.Background()

	// Финал закрыт, пока не сыграны оба полуфинала.
	_, err := env.svc.Create(ctx, env.organizerID, CreateMatchInput{
		TournamentID: env.tournamentID,
		TeamAID:      env.teamIDs[0],
		TeamBID:      env.teamIDs[1],
		MatchDate:    env.matchDate,
		Stage:        brackets.StageFinal,
	})
	assert.ErrorIs(t, err, ErrStageLocked)

	// Четвертьфинал недостижим из сетки на четыре команды.
	_, err = env.svc.Create(ctx, env.organizerID, CreateMatchInput{
		TournamentID: env.tournamentID,
		TeamAID:      env.teamIDs[0],
		TeamBID:      env.teamIDs[1],
		MatchDate:    env.matchDate,
		Stage:        brackets.StageQuarter,
	})
	assert.ErrorIs(t, err, ErrStageLocked)
}

func TestCreateMatchTeamReuseInStage(t *testing.T) {
	env := newMatchEnv(8)
	env.createMatch(t, brackets.StageQuarter, 0, 1)

	_, err := env.svc.Create(context.Background(), env.organizerID, CreateMatchInput{
		TournamentID: env.tournamentID,
		TeamAID:      env.teamIDs[0],
		TeamBID:      env.teamIDs[2],
		MatchDate:    env.matchDate,
		Stage:        brackets.StageQuarter,
	})
	assert.ErrorIs(t, err, ErrTeamAlreadyInStage)
}

func TestCreateFinalRequiresSemiWinners(t *testing.T) {
	env := newMatchEnv(4)
	env.seedFinishedMatch(brackets.StageSemi, 0, 1, 2, 1)
	env.seedFinishedMatch(brackets.StageSemi, 2, 3, 0, 1)

	// Победители: 0 и 3, проигравшие: 1 и 2.
	_, err := env.svc.Create(context.Background(), env.organizerID, CreateMatchInput{
		TournamentID: env.tournamentID,
		TeamAID:      env.teamIDs[0],
		TeamBID:      env.teamIDs[2],
		MatchDate:    env.matchDate,
		Stage:        brackets.StageFinal,
	})
	assert.ErrorIs(t, err, ErrTeamsNotEligible)

	final := env.createMatch(t, brackets.StageFinal, 0, 3)
	assert.Equal(t, brackets.StageFinal, final.Stage)

	_, err = env.svc.Create(context.Background(), env.organizerID, CreateMatchInput{
		TournamentID: env.tournamentID,
		TeamAID:      env.teamIDs[0],
		TeamBID:      env.teamIDs[1],
		MatchDate:    env.matchDate,
		Stage:        brackets.StageThirdPlace,
	})
	assert.ErrorIs(t, err, ErrTeamsNotEligible)

	third := env.createMatch(t, brackets.StageThirdPlace, 1, 2)
	assert.Equal(t, brackets.StageThirdPlace, third.Stage)
}

func TestAllowedStages(t *testing.T) {
	env := newMatchEnv(4)
	ctx := context.Background()

	availability, err := env.svc.AllowedStages(ctx, env.organizerID, env.tournamentID)
	require.NoError(t, err)
	assert.Equal(t, 4, availability.TeamCount)
	assert.Equal(t, brackets.StageSemi, availability.StartingStage)
	require.Len(t, availability.Allowed, 1)
	assert.Equal(t, brackets.StageSemi, availability.Allowed[0].Stage)
	assert.Equal(t, 2, availability.Allowed[0].Remaining)
	assert.Len(t, availability.Disallowed, 2)

	env.seedFinishedMatch(brackets.StageSemi, 0, 1, 2, 1)
	env.seedFinishedMatch(brackets.StageSemi, 2, 3, 1, 0)

	availability, err = env.svc.AllowedStages(ctx, env.organizerID, env.tournamentID)
	require.NoError(t, err)
	allowed := make(map[brackets.Stage]int)
	for _, opt := range availability.Allowed {
		allowed[opt.Stage] = opt.Remaining
	}
	assert.Equal(t, map[brackets.Stage]int{
		brackets.StageFinal:      1,
		brackets.StageThirdPlace: 1,
	}, allowed)
}

func TestEligibleTeams(t *testing.T) {
	env := newMatchEnv(4)
	ctx := context.Background()

	refs, err := env.svc.EligibleTeams(ctx, env.organizerID, env.tournamentID, brackets.StageSemi)
	require.NoError(t, err)
	assert.Len(t, refs, 4)

	env.createMatch(t, brackets.StageSemi, 0, 1)
	refs, err = env.svc.EligibleTeams(ctx, env.organizerID, env.tournamentID, brackets.StageSemi)
	require.NoError(t, err)
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	assert.ElementsMatch(t, []string{"Team 3", "Team 4"}, names)

	// Для финала пул сужается до победителей завершённых полуфиналов.
	env.seedFinishedMatch(brackets.StageSemi, 2, 3, 3, 1)
	refs, err = env.svc.EligibleTeams(ctx, env.organizerID, env.tournamentID, brackets.StageFinal)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Team 3", refs[0].Name)

	_, err = env.svc.EligibleTeams(ctx, env.organizerID, env.tournamentID, "group")
	assert.ErrorIs(t, err, ErrInvalidStage)
}

// --- События ---

func TestAddEventAndScore(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)

	view := env.addGoal(t, match.ID, 0, 0, 7)
	assert.Equal(t, models.Score{TeamA: 1, TeamB: 0}, view.Score)
	require.Len(t, view.Events, 1)
	assert.Equal(t, models.EventGoal, view.Events[0].Type)
	assert.Equal(t, 7, view.Events[0].Minute)
	assert.Equal(t, "Summer Indoor Cup", view.TournamentName)
	assert.Equal(t, "Team 1", view.TeamA.Name)
	assert.Len(t, view.TeamA.Players, 3)

	view = env.addGoal(t, match.ID, 1, 1, 12)
	assert.Equal(t, models.Score{TeamA: 1, TeamB: 1}, view.Score)
}

func TestAddEventRejections(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)
	ctx := context.Background()

	_, err := env.svc.AddEvent(ctx, env.organizerID, match.ID, AddEventInput{
		Type: "own-goal", Minute: 5, TeamID: env.teamIDs[0], PlayerID: env.player(0, 0),
	})
	assert.ErrorIs(t, err, ErrInvalidEventType)

	_, err = env.svc.AddEvent(ctx, env.organizerID, match.ID, AddEventInput{
		Type: models.EventGoal, Minute: 0, TeamID: env.teamIDs[0], PlayerID: env.player(0, 0),
	})
	assert.ErrorIs(t, err, ErrInvalidMinute)

	_, err = env.svc.AddEvent(ctx, env.organizerID, match.ID, AddEventInput{
		Type: models.EventGoal, Minute: 51, TeamID: env.teamIDs[0], PlayerID: env.player(0, 0),
	})
	assert.ErrorIs(t, err, ErrMinutePastOvertime)

	_, err = env.svc.AddEvent(ctx, env.organizerID, match.ID, AddEventInput{
		Type: models.EventGoal, Minute: 5, TeamID: env.teamIDs[2], PlayerID: env.player(2, 0),
	})
	assert.ErrorIs(t, err, ErrTeamNotInMatch)

	_, err = env.svc.AddEvent(ctx, env.organizerID, match.ID, AddEventInput{
		Type: models.EventGoal, Minute: 5, TeamID: env.teamIDs[0], PlayerID: env.player(1, 0),
	})
	assert.ErrorIs(t, err, ErrPlayerNotInTeam)

	_, err = env.svc.AddEvent(ctx, primitive.NewObjectID(), match.ID, AddEventInput{
		Type: models.EventGoal, Minute: 5, TeamID: env.teamIDs[0], PlayerID: env.player(0, 0),
	})
	assert.ErrorIs(t, err, ErrOrganizerOnly)

	_, err = env.svc.AddEvent(ctx, env.organizerID, primitive.NewObjectID(), AddEventInput{
		Type: models.EventGoal, Minute: 5, TeamID: env.teamIDs[0], PlayerID: env.player(0, 0),
	})
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestAddEventOvertimeGating(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)
	env.addGoal(t, match.ID, 0, 0, 10)

	// При 1:0 овертайма не бывает.
	_, err := env.svc.AddEvent(context.Background(), env.organizerID, match.ID, AddEventInput{
		Type: models.EventGoal, Minute: 45, TeamID: env.teamIDs[1], PlayerID: env.player(1, 0),
	})
	assert.ErrorIs(t, err, ErrExtraTimeNotAllowed)

	env.addGoal(t, match.ID, 1, 0, 20)
	view := env.addGoal(t, match.ID, 0, 1, 45)

	assert.Equal(t, models.ResultOvertime, view.ResultType)
	assert.Equal(t, models.Score{TeamA: 1, TeamB: 1}, view.Score)
	require.NotNil(t, view.OvertimeScore)
	assert.Equal(t, models.Score{TeamA: 1, TeamB: 0}, *view.OvertimeScore)
}

func TestAddEventDismissedPlayer(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)
	ctx := context.Background()

	offender := env.player(0, 0)
	for _, minute := range []int{10, 20} {
		_, err := env.svc.AddEvent(ctx, env.organizerID, match.ID, AddEventInput{
			Type: models.EventYellowCard, Minute: minute, TeamID: env.teamIDs[0], PlayerID: offender,
		})
		require.NoError(t, err)
	}

	// Минута второй жёлтой ещё допустима, дальше игрок удалён.
	_, err := env.svc.AddEvent(ctx, env.organizerID, match.ID, AddEventInput{
		Type: models.EventGoal, Minute: 20, TeamID: env.teamIDs[0], PlayerID: offender,
	})
	require.NoError(t, err)

	_, err = env.svc.AddEvent(ctx, env.organizerID, match.ID, AddEventInput{
		Type: models.EventGoal, Minute: 21, TeamID: env.teamIDs[0], PlayerID: offender,
	})
	assert.ErrorIs(t, err, ErrPlayerSentOff)
}

func TestDeleteEventRollsBackScore(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)
	view := env.addGoal(t, match.ID, 0, 0, 7)
	eventID := view.Events[0].ID

	view, err := env.svc.DeleteEvent(context.Background(), env.organizerID, match.ID, eventID)
	require.NoError(t, err)
	assert.Equal(t, models.Score{}, view.Score)
	assert.Empty(t, view.Events)

	_, err = env.svc.DeleteEvent(context.Background(), env.organizerID, match.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrEventNotFound)
}

// --- Завершение ---

func TestFinishRegular(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)
	ctx := context.Background()

	_, err := env.svc.Finish(ctx, env.organizerID, match.ID)
	assert.ErrorIs(t, err, ErrTiedAfterRegular)

	env.addGoal(t, match.ID, 0, 0, 15)
	view, err := env.svc.Finish(ctx, env.organizerID, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchFinished, view.Status)
	assert.Equal(t, models.ResultRegular, view.ResultType)
	assert.Contains(t, env.stats.synced, match.ID)

	_, err = env.svc.Finish(ctx, env.organizerID, match.ID)
	assert.ErrorIs(t, err, ErrMatchAlreadyFinished)
}

func TestFinishSurvivesStatsSyncFailure(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)
	env.addGoal(t, match.ID, 0, 0, 15)

	// Отказ хранилища статистики не отменяет зафиксированное завершение.
	env.stats.syncErr = errors.New("stats store unavailable")
	view, err := env.svc.Finish(context.Background(), env.organizerID, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchFinished, view.Status)
	assert.Equal(t, models.MatchFinished, env.matches.matches[match.ID].Status)
	assert.Empty(t, env.stats.synced)
}

func TestFinishOvertimeAndShootoutGating(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)
	ctx := context.Background()

	env.addGoal(t, match.ID, 0, 0, 10)
	env.addGoal(t, match.ID, 1, 0, 20)
	env.addGoal(t, match.ID, 0, 1, 42)
	env.addGoal(t, match.ID, 1, 1, 44)

	// 1:1 и 1:1 в овертайме — завершать нельзя.
	_, err := env.svc.Finish(ctx, env.organizerID, match.ID)
	assert.ErrorIs(t, err, ErrTiedAfterOvertime)

	_, err = env.kick(match.ID, 0, 0, models.PenaltyScored)
	require.NoError(t, err)

	_, err = env.svc.Finish(ctx, env.organizerID, match.ID)
	assert.ErrorIs(t, err, ErrShootoutNotDecided)
}

// --- Серия пенальти ---

func TestShootoutNotAllowedWhenNotTied(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)
	env.addGoal(t, match.ID, 0, 0, 10)

	_, err := env.kick(match.ID, 0, 1, models.PenaltyScored)
	assert.ErrorIs(t, err, ErrShootoutNotAllowed)

	_, err = env.svc.AddPenaltyKick(context.Background(), env.organizerID, match.ID, AddPenaltyInput{
		TeamID: env.teamIDs[0], PlayerID: env.player(0, 0), Outcome: "saved",
	})
	assert.ErrorIs(t, err, ErrInvalidOutcome)
}

func TestShootoutAlternationAndRotation(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)

	view, err := env.kick(match.ID, 0, 0, models.PenaltyScored)
	require.NoError(t, err)
	assert.Equal(t, models.ResultPenalties, view.ResultType)
	require.NotNil(t, view.PenaltyShootout)
	assert.Equal(t, 1, view.PenaltyShootout.TeamAGoals)

	// Две подряд от одной команды не разрешены.
	_, err = env.kick(match.ID, 0, 1, models.PenaltyScored)
	assert.ErrorIs(t, err, ErrKickOutOfTurn)

	_, err = env.kick(match.ID, 1, 0, models.PenaltyMissed)
	require.NoError(t, err)

	// Повтор игрока до полного круга состава запрещён.
	_, err = env.kick(match.ID, 0, 0, models.PenaltyScored)
	assert.ErrorIs(t, err, ErrKickRotationViolated)

	_, err = env.kick(match.ID, 0, 1, models.PenaltyScored)
	require.NoError(t, err)
}

func TestShootoutSentOffPlayerCannotKick(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)
	ctx := context.Background()

	offender := env.player(0, 2)
	_, err := env.svc.AddEvent(ctx, env.organizerID, match.ID, AddEventInput{
		Type: models.EventRedCard, Minute: 30, TeamID: env.teamIDs[0], PlayerID: offender,
	})
	require.NoError(t, err)

	_, err = env.svc.AddPenaltyKick(ctx, env.organizerID, match.ID, AddPenaltyInput{
		TeamID: env.teamIDs[0], PlayerID: offender, Outcome: models.PenaltyScored,
	})
	assert.ErrorIs(t, err, ErrPenaltyBySentOff)
}

func TestShootoutAutoDecides(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)

	// Команда A забивает три, команда B трижды мажет: после шестого удара
	// отставание больше оставшихся попыток.
	var view *models.MatchView
	var err error
	for i := 0; i < 3; i++ {
		_, err = env.kick(match.ID, 0, i, models.PenaltyScored)
		require.NoError(t, err)
		view, err = env.kick(match.ID, 1, i, models.PenaltyMissed)
		require.NoError(t, err)
	}

	assert.Equal(t, models.MatchFinished, view.Status)
	require.NotNil(t, view.PenaltyShootout)
	assert.True(t, view.PenaltyShootout.Decided)
	require.NotNil(t, view.PenaltyShootout.WinnerTeamID)
	assert.Equal(t, env.teamIDs[0], *view.PenaltyShootout.WinnerTeamID)
	assert.Contains(t, env.stats.synced, match.ID)

	_, err = env.svc.Finish(context.Background(), env.organizerID, match.ID)
	assert.ErrorIs(t, err, ErrMatchAlreadyFinished)
}

func TestShootoutDecisionSurvivesLostRace(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)

	for i := 0; i < 2; i++ {
		_, err := env.kick(match.ID, 0, i, models.PenaltyScored)
		require.NoError(t, err)
		_, err = env.kick(match.ID, 1, i, models.PenaltyMissed)
		require.NoError(t, err)
	}
	_, err := env.kick(match.ID, 0, 2, models.PenaltyScored)
	require.NoError(t, err)

	// Решающий удар: сам удар записывается, но фиксация победителя
	// проигрывает гонку версий. Удар не переигрывается и ошибки нет.
	env.matches.lockedCalls = 0
	env.matches.conflictOnCall = 2
	view, err := env.kick(match.ID, 1, 2, models.PenaltyMissed)
	require.NoError(t, err)
	require.NotNil(t, view.PenaltyShootout)
	assert.Len(t, view.PenaltyShootout.Events, 6)
	assert.False(t, view.PenaltyShootout.Decided)
	assert.Equal(t, models.MatchScheduled, view.Status)

	// Finish видит решённую серию и завершает матч.
	view, err = env.svc.Finish(context.Background(), env.organizerID, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchFinished, view.Status)
	assert.Equal(t, models.ResultPenalties, view.ResultType)
	assert.Contains(t, env.stats.synced, match.ID)
}

// --- Конкурентные мутации ---

func TestMutateRetriesOnceOnVersionConflict(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)

	env.matches.forceConflicts = 1
	view := env.addGoal(t, match.ID, 0, 0, 5)
	assert.Equal(t, models.Score{TeamA: 1, TeamB: 0}, view.Score)

	env.matches.forceConflicts = 2
	_, err := env.svc.AddEvent(context.Background(), env.organizerID, match.ID, AddEventInput{
		Type: models.EventGoal, Minute: 6, TeamID: env.teamIDs[0], PlayerID: env.player(0, 1),
	})
	assert.ErrorIs(t, err, ErrMatchConflict)
}

// --- Чтение и удаление ---

func TestGetViewToleratesDeletedTeam(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)

	delete(env.teams.teams, env.teamIDs[1])

	view, err := env.svc.GetView(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Equal(t, "Team 1", view.TeamA.Name)
	assert.Equal(t, env.teamIDs[1], view.TeamB.ID)
	assert.Empty(t, view.TeamB.Name)
}

func TestListByTournament(t *testing.T) {
	env := newMatchEnv(4)
	env.createMatch(t, brackets.StageSemi, 0, 1)
	env.createMatch(t, brackets.StageSemi, 2, 3)

	views, err := env.svc.ListByTournament(context.Background(), env.tournamentID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, view := range views {
		assert.Equal(t, "Summer Indoor Cup", view.TournamentName)
		assert.NotEmpty(t, view.TeamA.Name)
		assert.NotEmpty(t, view.TeamB.Name)
		assert.Empty(t, view.TeamA.Players)
	}
}

func TestDeleteMatch(t *testing.T) {
	env := newMatchEnv(4)
	match := env.createMatch(t, brackets.StageSemi, 0, 1)
	ctx := context.Background()

	err := env.svc.Delete(ctx, primitive.NewObjectID(), match.ID)
	assert.ErrorIs(t, err, ErrOrganizerOnly)

	err = env.svc.Delete(ctx, env.organizerID, match.ID)
	require.NoError(t, err)
	assert.Contains(t, env.stats.removed, match.ID)

	err = env.svc.Delete(ctx, env.organizerID, match.ID)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
