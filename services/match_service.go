package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/futsal-pulse/brackets"
	"github.com/Dosada05/futsal-pulse/models"
	"github.com/Dosada05/futsal-pulse/repositories"
)

var (
	ErrMatchTeamsIdentical  = errors.New("team A and team B cannot be the same team")
	ErrMatchDateInvalid     = errors.New("invalid match date")
	ErrMatchDateOutOfRange  = errors.New("match date must be within tournament dates")
	ErrInvalidStage         = errors.New("invalid stage")
	ErrStageFull            = errors.New("stage is already full")
	ErrStageLocked          = errors.New("stage is not available yet")
	ErrTeamsNotApproved     = errors.New("both teams must be approved for this tournament")
	ErrTeamAlreadyInStage   = errors.New("a team cannot play more than once in the same stage")
	ErrPairAlreadyInStage   = errors.New("this pairing already exists in this stage")
	ErrTeamsNotEligible     = errors.New("selected teams are not eligible for this stage")
	ErrMatchAlreadyFinished = errors.New("this match has already been marked as finished")
	ErrTiedAfterRegular     = errors.New("match is tied after regular time, proceed to overtime or penalties")
	ErrTiedAfterOvertime    = errors.New("match is tied after overtime, proceed to penalties")
	ErrShootoutNotDecided   = errors.New("penalty shootout not decided yet")
	ErrTeamNotInMatch       = errors.New("provided team does not belong to this match")
	ErrPlayerNotInTeam      = errors.New("provided player does not belong to the selected team")
	ErrInvalidEventType     = errors.New("event type is invalid")
	ErrInvalidMinute        = errors.New("minute must be a positive number")
	ErrMinutePastOvertime   = errors.New("overtime is limited to 41-50 minutes in futsal")
	ErrExtraTimeNotAllowed  = errors.New("extra-time events are allowed only if regular time ended in a draw")
	ErrPlayerSentOff        = errors.New("player is already sent off and cannot record further events")
	ErrShootoutNotAllowed   = errors.New("penalty shootout is allowed only if it is tied after overtime")
	ErrPenaltyBySentOff     = errors.New("player was sent off and cannot take a penalty")
	ErrInvalidOutcome       = errors.New("outcome is invalid")
	ErrKickOutOfTurn        = errors.New("wait for the other team to take its kick")
	ErrKickRotationViolated = errors.New("a player cannot take another kick until all eligible teammates have taken one")
	ErrMatchConflict        = errors.New("match was modified concurrently, please retry")
)

type CreateMatchInput struct {
	TournamentID primitive.ObjectID
	TeamAID      primitive.ObjectID
	TeamBID      primitive.ObjectID
	MatchDate    time.Time
	Group        *string
	Stage        brackets.Stage
}

type AddEventInput struct {
	Type     models.EventType
	Minute   int
	TeamID   primitive.ObjectID
	PlayerID primitive.ObjectID
}

type AddPenaltyInput struct {
	TeamID   primitive.ObjectID
	PlayerID primitive.ObjectID
	Outcome  models.PenaltyOutcome
}

// StageOption описывает доступность одной стадии для организатора.
type StageOption struct {
	Stage     brackets.Stage `json:"stage"`
	Reason    string         `json:"reason,omitempty"`
	Remaining int            `json:"remaining,omitempty"`
}

type StageAvailability struct {
	TeamCount     int                       `json:"teamCount"`
	StartingStage brackets.Stage            `json:"startingStage"`
	Allowed       []StageOption             `json:"allowed"`
	Disallowed    []StageOption             `json:"disallowed"`
	Labels        map[brackets.Stage]string `json:"labels"`
}

type MatchService interface {
	Create(ctx context.Context, organizerID primitive.ObjectID, input CreateMatchInput) (*models.Match, error)
	GetView(ctx context.Context, matchID primitive.ObjectID) (*models.MatchView, error)
	List(ctx context.Context, filter repositories.ListMatchesFilter) ([]models.MatchView, error)
	ListByTournament(ctx context.Context, tournamentID primitive.ObjectID) ([]models.MatchView, error)
	AddEvent(ctx context.Context, requesterID, matchID primitive.ObjectID, input AddEventInput) (*models.MatchView, error)
	DeleteEvent(ctx context.Context, requesterID, matchID, eventID primitive.ObjectID) (*models.MatchView, error)
	AddPenaltyKick(ctx context.Context, requesterID, matchID primitive.ObjectID, input AddPenaltyInput) (*models.MatchView, error)
	Finish(ctx context.Context, requesterID, matchID primitive.ObjectID) (*models.MatchView, error)
	Delete(ctx context.Context, requesterID, matchID primitive.ObjectID) error
	AllowedStages(ctx context.Context, organizerID, tournamentID primitive.ObjectID) (*StageAvailability, error)
	EligibleTeams(ctx context.Context, organizerID, tournamentID primitive.ObjectID, stage brackets.Stage) ([]models.TeamRef, error)
}

type matchService struct {
	matches       repositories.MatchRepository
	tournaments   repositories.TournamentRepository
	teams         repositories.TeamRepository
	users         repositories.UserRepository
	registrations repositories.RegistrationRepository
	stats         PlayerStatsService
}

func NewMatchService(
	matches repositories.MatchRepository,
	tournaments repositories.TournamentRepository,
	teams repositories.TeamRepository,
	users repositories.UserRepository,
	registrations repositories.RegistrationRepository,
	stats PlayerStatsService,
) MatchService {
	return &matchService{
		matches:       matches,
		tournaments:   tournaments,
		teams:         teams,
		users:         users,
		registrations: registrations,
		stats:         stats,
	}
}

// --- Создание матча и допуск стадий ---

func (s *matchService) Create(ctx context.Context, organizerID primitive.ObjectID, input CreateMatchInput) (*models.Match, error) {
	if input.TeamAID == input.TeamBID {
		return nil, ErrMatchTeamsIdentical
	}
	if !input.Stage.Valid() {
		return nil, ErrInvalidStage
	}
	if input.MatchDate.IsZero() {
		return nil, ErrMatchDateInvalid
	}

	tournament, err := s.requireOrganizer(ctx, input.TournamentID, organizerID)
	if err != nil {
		return nil, err
	}

	// Сравниваем по календарным дням, время начала не ограничиваем.
	matchDay := input.MatchDate.UTC().Format("2006-01-02")
	startDay := tournament.StartDate.UTC().Format("2006-01-02")
	endDay := tournament.LastDay().UTC().Format("2006-01-02")
	if matchDay < startDay || matchDay > endDay {
		return nil, fmt.Errorf("%w (%s - %s)", ErrMatchDateOutOfRange, startDay, endDay)
	}

	approved, err := s.registrations.ApprovedTeamIDs(ctx, input.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approved teams: %w", err)
	}

	startStage, err := brackets.StartingStageFor(len(approved))
	if err != nil {
		return nil, err
	}

	if err := s.stageAllowedNow(ctx, input.TournamentID, input.Stage, startStage); err != nil {
		return nil, err
	}

	approvedSet := make(map[primitive.ObjectID]struct{}, len(approved))
	for _, id := range approved {
		approvedSet[id] = struct{}{}
	}
	if _, ok := approvedSet[input.TeamAID]; !ok {
		return nil, ErrTeamsNotApproved
	}
	if _, ok := approvedSet[input.TeamBID]; !ok {
		return nil, ErrTeamsNotApproved
	}

	stageMatches, err := s.matches.ListByStage(ctx, input.TournamentID, input.Stage)
	if err != nil {
		return nil, err
	}
	for _, m := range stageMatches {
		if m.TeamAID == input.TeamAID || m.TeamBID == input.TeamAID ||
			m.TeamAID == input.TeamBID || m.TeamBID == input.TeamBID {
			return nil, ErrTeamAlreadyInStage
		}
		if samePair(m.TeamAID, m.TeamBID, input.TeamAID, input.TeamBID) {
			return nil, ErrPairAlreadyInStage
		}
	}

	if input.Stage == brackets.StageFinal || input.Stage == brackets.StageThirdPlace {
		winners, losers, err := s.semiWinnersLosers(ctx, input.TournamentID)
		if err != nil {
			return nil, err
		}
		pool := winners
		if input.Stage == brackets.StageThirdPlace {
			pool = losers
		}
		poolSet := make(map[primitive.ObjectID]struct{}, len(pool))
		for _, id := range pool {
			poolSet[id] = struct{}{}
		}
		if _, ok := poolSet[input.TeamAID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrTeamsNotEligible, input.Stage.Label())
		}
		if _, ok := poolSet[input.TeamBID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrTeamsNotEligible, input.Stage.Label())
		}
	}

	match := &models.Match{
		TournamentID: input.TournamentID,
		TeamAID:      input.TeamAID,
		TeamBID:      input.TeamBID,
		Score:        models.Score{},
		MatchDate:    input.MatchDate,
		Status:       models.MatchScheduled,
		ResultType:   models.ResultRegular,
		Stage:        input.Stage,
		Group:        input.Group,
		Events:       []models.MatchEvent{},
	}
	if err := s.matches.Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return match, nil
}

func samePair(a1, b1, a2, b2 primitive.ObjectID) bool {
	return (a1 == a2 && b1 == b2) || (a1 == b2 && b1 == a2)
}

// stageAllowedNow проверяет допуск стадии: стартовая открыта пока не
// заполнена, каждая следующая — только после завершения всех матчей
// предыдущей.
func (s *matchService) stageAllowedNow(ctx context.Context, tournamentID primitive.ObjectID, stage, startStage brackets.Stage) error {
	if stage == startStage {
		existing, err := s.matches.ListByStage(ctx, tournamentID, startStage)
		if err != nil {
			return err
		}
		if len(existing) >= brackets.Capacity(startStage) {
			return ErrStageFull
		}
		return nil
	}

	prev, ok := brackets.PreviousStage(stage)
	if !ok || !stageReachableFrom(startStage, stage) {
		return fmt.Errorf("%w: invalid progression", ErrStageLocked)
	}

	prevMatches, err := s.matches.ListByStage(ctx, tournamentID, prev)
	if err != nil {
		return err
	}
	prevFinished := countFinished(prevMatches)
	needFinished := brackets.Capacity(prev)
	if prevFinished != needFinished {
		return fmt.Errorf("%w: available after %s are finished (%d/%d)", ErrStageLocked, prev, prevFinished, needFinished)
	}

	existing, err := s.matches.ListByStage(ctx, tournamentID, stage)
	if err != nil {
		return err
	}
	if len(existing) >= brackets.Capacity(stage) {
		return ErrStageFull
	}
	return nil
}

func stageReachableFrom(start, stage brackets.Stage) bool {
	for _, st := range brackets.ProgressionFrom(start) {
		if st == stage {
			return true
		}
	}
	return false
}

func countFinished(matches []models.Match) int {
	n := 0
	for _, m := range matches {
		if m.Status == models.MatchFinished {
			n++
		}
	}
	return n
}

func (s *matchService) semiWinnersLosers(ctx context.Context, tournamentID primitive.ObjectID) (winners, losers []primitive.ObjectID, err error) {
	semis, err := s.matches.ListByStage(ctx, tournamentID, brackets.StageSemi)
	if err != nil {
		return nil, nil, err
	}
	for i := range semis {
		m := &semis[i]
		if m.Status != models.MatchFinished {
			continue
		}
		if w, l, ok := winnerLoser(m); ok {
			winners = append(winners, w)
			losers = append(losers, l)
		}
	}
	return winners, losers, nil
}

func (s *matchService) AllowedStages(ctx context.Context, organizerID, tournamentID primitive.ObjectID) (*StageAvailability, error) {
	if _, err := s.requireOrganizer(ctx, tournamentID, organizerID); err != nil {
		return nil, err
	}

	approved, err := s.registrations.ApprovedTeamIDs(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	startStage, err := brackets.StartingStageFor(len(approved))
	if err != nil {
		return nil, err
	}

	out := &StageAvailability{
		TeamCount:     len(approved),
		StartingStage: startStage,
		Allowed:       []StageOption{},
		Disallowed:    []StageOption{},
		Labels:        brackets.Labels(),
	}

	startMatches, err := s.matches.ListByStage(ctx, tournamentID, startStage)
	if err != nil {
		return nil, err
	}
	if len(startMatches) < brackets.Capacity(startStage) {
		out.Allowed = append(out.Allowed, StageOption{
			Stage:     startStage,
			Remaining: brackets.Capacity(startStage) - len(startMatches),
		})
	} else {
		out.Disallowed = append(out.Disallowed, StageOption{Stage: startStage, Reason: "stage is already full"})
	}

	for _, stage := range brackets.ProgressionFrom(startStage) {
		prev, _ := brackets.PreviousStage(stage)
		prevMatches, err := s.matches.ListByStage(ctx, tournamentID, prev)
		if err != nil {
			return nil, err
		}
		prevFinished := countFinished(prevMatches)
		needFinished := brackets.Capacity(prev)

		if prevFinished != needFinished {
			out.Disallowed = append(out.Disallowed, StageOption{
				Stage:  stage,
				Reason: fmt.Sprintf("available after %s are finished (%d/%d)", prev, prevFinished, needFinished),
			})
			continue
		}

		existing, err := s.matches.ListByStage(ctx, tournamentID, stage)
		if err != nil {
			return nil, err
		}
		if len(existing) < brackets.Capacity(stage) {
			out.Allowed = append(out.Allowed, StageOption{
				Stage:     stage,
				Remaining: brackets.Capacity(stage) - len(existing),
			})
		} else {
			out.Disallowed = append(out.Disallowed, StageOption{Stage: stage, Reason: "stage is already full"})
		}
	}
	return out, nil
}

func (s *matchService) EligibleTeams(ctx context.Context, organizerID, tournamentID primitive.ObjectID, stage brackets.Stage) ([]models.TeamRef, error) {
	if !stage.Valid() {
		return nil, ErrInvalidStage
	}
	if _, err := s.requireOrganizer(ctx, tournamentID, organizerID); err != nil {
		return nil, err
	}

	approved, err := s.registrations.ApprovedTeamIDs(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	stageMatches, err := s.matches.ListByStage(ctx, tournamentID, stage)
	if err != nil {
		return nil, err
	}
	used := make(map[primitive.ObjectID]struct{}, len(stageMatches)*2)
	for _, m := range stageMatches {
		used[m.TeamAID] = struct{}{}
		used[m.TeamBID] = struct{}{}
	}

	eligible := make([]primitive.ObjectID, 0, len(approved))
	for _, id := range approved {
		if _, taken := used[id]; !taken {
			eligible = append(eligible, id)
		}
	}

	if stage == brackets.StageFinal || stage == brackets.StageThirdPlace {
		winners, losers, err := s.semiWinnersLosers(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		pool := winners
		if stage == brackets.StageThirdPlace {
			pool = losers
		}
		poolSet := make(map[primitive.ObjectID]struct{}, len(pool))
		for _, id := range pool {
			poolSet[id] = struct{}{}
		}
		filtered := eligible[:0]
		for _, id := range eligible {
			if _, ok := poolSet[id]; ok {
				filtered = append(filtered, id)
			}
		}
		eligible = filtered
	}

	teams, err := s.teams.ListByIDs(ctx, eligible)
	if err != nil {
		return nil, err
	}
	refs := make([]models.TeamRef, 0, len(teams))
	for _, t := range teams {
		refs = append(refs, models.TeamRef{ID: t.ID, Name: t.Name})
	}
	return refs, nil
}

// --- Журнал событий ---

func (s *matchService) AddEvent(ctx context.Context, requesterID, matchID primitive.ObjectID, input AddEventInput) (*models.MatchView, error) {
	if !input.Type.Valid() {
		return nil, ErrInvalidEventType
	}
	if input.Minute < 1 {
		return nil, ErrInvalidMinute
	}
	if input.Minute > OvertimeEndMinute {
		return nil, ErrMinutePastOvertime
	}

	err := s.mutateMatch(ctx, requesterID, matchID, func(match *models.Match) error {
		side, ok := match.SideOf(input.TeamID)
		if !ok {
			return ErrTeamNotInMatch
		}
		if err := s.requireTeamMember(ctx, input.TeamID, input.PlayerID); err != nil {
			return err
		}

		finished := match.Status == models.MatchFinished
		overtime := input.Minute > MaxRegularMinute

		if !finished && overtime && !tiedAfterRegular(match) {
			return ErrExtraTimeNotAllowed
		}
		if !finished && wasDismissedByMinute(match, input.PlayerID, input.Minute, false) {
			return ErrPlayerSentOff
		}

		event := models.MatchEvent{
			ID:        primitive.NewObjectID(),
			Type:      input.Type,
			Minute:    input.Minute,
			TeamID:    input.TeamID,
			PlayerID:  input.PlayerID,
			CreatedAt: time.Now(),
		}

		var goalSide *models.MatchSide
		if input.Type == models.EventGoal {
			goalSide = &side
			if overtime && match.OvertimeScore == nil {
				if err := s.matches.InitOvertime(ctx, match.ID, match.Version); err != nil {
					return err
				}
				match.Version++
				match.OvertimeScore = &models.Score{}
				match.ResultType = models.ResultOvertime
			}
		}
		return s.matches.AppendEvent(ctx, match.ID, match.Version, event, goalSide, overtime)
	})
	if err != nil {
		return nil, err
	}
	return s.finalizeMutation(ctx, matchID)
}

func (s *matchService) DeleteEvent(ctx context.Context, requesterID, matchID, eventID primitive.ObjectID) (*models.MatchView, error) {
	err := s.mutateMatch(ctx, requesterID, matchID, func(match *models.Match) error {
		var event *models.MatchEvent
		for i := range match.Events {
			if match.Events[i].ID == eventID {
				event = &match.Events[i]
				break
			}
		}
		if event == nil {
			return ErrEventNotFound
		}

		var goalSide *models.MatchSide
		overtime := event.Minute > MaxRegularMinute
		if event.Type == models.EventGoal {
			side, ok := match.SideOf(event.TeamID)
			if !ok {
				return ErrTeamNotInMatch
			}
			goalSide = &side
		}
		return s.matches.PullEvent(ctx, match.ID, match.Version, eventID, goalSide, overtime)
	})
	if err != nil {
		return nil, err
	}
	return s.finalizeMutation(ctx, matchID)
}

// --- Серия пенальти ---

func (s *matchService) AddPenaltyKick(ctx context.Context, requesterID, matchID primitive.ObjectID, input AddPenaltyInput) (*models.MatchView, error) {
	if !input.Outcome.Valid() {
		return nil, ErrInvalidOutcome
	}

	err := s.mutateMatch(ctx, requesterID, matchID, func(match *models.Match) error {
		finished := match.Status == models.MatchFinished
		if !finished && !tiedAfterOvertime(match) {
			return ErrShootoutNotAllowed
		}

		side, ok := match.SideOf(input.TeamID)
		if !ok {
			return ErrTeamNotInMatch
		}
		team, err := s.teams.GetByID(ctx, input.TeamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrPlayerNotInTeam
			}
			return err
		}
		if !team.HasMember(input.PlayerID) {
			return ErrPlayerNotInTeam
		}
		if !finished && wasDismissedAtAll(match, input.PlayerID) {
			return ErrPenaltyBySentOff
		}

		if match.PenaltyShootout == nil {
			if err := s.matches.InitShootout(ctx, match.ID, match.Version); err != nil {
				return err
			}
			match.Version++
			match.PenaltyShootout = &models.PenaltyShootout{Events: []models.PenaltyKick{}}
			match.ResultType = models.ResultPenalties
		}

		if !finished {
			shotsA := penaltyShotsForTeam(match, match.TeamAID)
			shotsB := penaltyShotsForTeam(match, match.TeamBID)
			if side == models.SideA {
				shotsA++
			} else {
				shotsB++
			}
			if shotsA-shotsB > 1 || shotsB-shotsA > 1 {
				return ErrKickOutOfTurn
			}

			counts := penaltyKicksByPlayer(match, input.TeamID, team.Players)
			if !canPlayerShootNow(counts, input.PlayerID) {
				return ErrKickRotationViolated
			}
		}

		kick := models.PenaltyKick{
			ID:       primitive.NewObjectID(),
			TeamID:   input.TeamID,
			PlayerID: input.PlayerID,
			Outcome:  input.Outcome,
		}
		var goalSide *models.MatchSide
		if input.Outcome == models.PenaltyScored {
			goalSide = &side
		}
		return s.matches.AppendPenaltyKick(ctx, match.ID, match.Version, kick, goalSide)
	})
	if err != nil {
		return nil, err
	}
	if err := s.decideShootout(ctx, matchID); err != nil {
		return nil, err
	}
	return s.finalizeMutation(ctx, matchID)
}

// decideShootout перечитывает матч и фиксирует победителя решённой серии.
// Шаг вынесен из повторяемой мутации: добавление удара не должно
// переигрываться из-за гонки на самой фиксации. Проигранная здесь гонка
// версий не ошибка — решение зафиксирует следующий удар или Finish.
func (s *matchService) decideShootout(ctx context.Context, matchID primitive.ObjectID) error {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if match.Status == models.MatchFinished || match.PenaltyShootout == nil || match.PenaltyShootout.Decided {
		return nil
	}
	decision := computeShootoutDecision(match, MaxPenaltySeries)
	if !decision.Decided {
		return nil
	}
	err = s.matches.SetShootoutDecided(ctx, match.ID, match.Version, decision.Winner)
	if errors.Is(err, repositories.ErrMatchVersionConflict) {
		return nil
	}
	return err
}

// --- Завершение и удаление ---

func (s *matchService) Finish(ctx context.Context, requesterID, matchID primitive.ObjectID) (*models.MatchView, error) {
	err := s.mutateMatch(ctx, requesterID, matchID, func(match *models.Match) error {
		if match.Status == models.MatchFinished {
			return ErrMatchAlreadyFinished
		}
		switch match.ResultType {
		case models.ResultRegular:
			if tiedAfterRegular(match) {
				return ErrTiedAfterRegular
			}
		case models.ResultOvertime:
			if tiedAfterOvertime(match) {
				return ErrTiedAfterOvertime
			}
		case models.ResultPenalties:
			decision := computeShootoutDecision(match, MaxPenaltySeries)
			decided := decision.Decided || (match.PenaltyShootout != nil && match.PenaltyShootout.Decided)
			if !decided {
				return ErrShootoutNotDecided
			}
		}
		return s.matches.SetFinished(ctx, match.ID, match.Version, match.ResultType)
	})
	if err != nil {
		return nil, err
	}
	return s.finalizeMutation(ctx, matchID)
}

func (s *matchService) Delete(ctx context.Context, requesterID, matchID primitive.ObjectID) error {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if _, err := s.requireOrganizer(ctx, match.TournamentID, requesterID); err != nil {
		return err
	}
	if err := s.matches.Delete(ctx, matchID); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	return s.stats.RemoveMatch(ctx, matchID)
}

// --- Общая механика мутаций ---

// mutateMatch загружает матч, проверяет права организатора и выполняет fn
// с повтором при гонке версий: одна повторная попытка по свежему
// документу, дальше конфликт отдаётся наружу.
func (s *matchService) mutateMatch(ctx context.Context, requesterID, matchID primitive.ObjectID, fn func(*models.Match) error) error {
	authorized := false
	for attempt := 0; attempt < 2; attempt++ {
		match, err := s.getMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if !authorized {
			if _, err := s.requireOrganizer(ctx, match.TournamentID, requesterID); err != nil {
				return err
			}
			authorized = true
		}

		err = fn(match)
		if err == nil {
			return nil
		}
		if errors.Is(err, repositories.ErrMatchVersionConflict) {
			if attempt == 0 {
				continue
			}
			return ErrMatchConflict
		}
		return err
	}
	return ErrMatchConflict
}

// finalizeMutation перечитывает матч, синхронизирует статистику для
// завершённых матчей и собирает представление. Сбой синхронизации не
// отменяет уже зафиксированную мутацию: строки догонит фоновый пересчёт.
func (s *matchService) finalizeMutation(ctx context.Context, matchID primitive.ObjectID) (*models.MatchView, error) {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status == models.MatchFinished {
		if err := s.stats.SyncMatch(ctx, match); err != nil {
			slog.Error("failed to sync player stats", "error", err, "match_id", match.ID.Hex())
		}
	}
	return s.buildDetailView(ctx, match)
}

func (s *matchService) getMatch(ctx context.Context, matchID primitive.ObjectID) (*models.Match, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) requireOrganizer(ctx context.Context, tournamentID, userID primitive.ObjectID) (*models.Tournament, error) {
	tournament, err := s.tournaments.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Organizer != userID {
		return nil, ErrOrganizerOnly
	}
	return tournament, nil
}

func (s *matchService) requireTeamMember(ctx context.Context, teamID, playerID primitive.ObjectID) error {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrPlayerNotInTeam
		}
		return err
	}
	if !team.HasMember(playerID) {
		return ErrPlayerNotInTeam
	}
	return nil
}

// --- Модели чтения ---

func (s *matchService) GetView(ctx context.Context, matchID primitive.ObjectID) (*models.MatchView, error) {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return s.buildDetailView(ctx, match)
}

func (s *matchService) List(ctx context.Context, filter repositories.ListMatchesFilter) ([]models.MatchView, error) {
	matches, err := s.matches.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.buildListViews(ctx, matches)
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID primitive.ObjectID) ([]models.MatchView, error) {
	matches, err := s.matches.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return s.buildListViews(ctx, matches)
}

// buildDetailView собирает деталь матча: обе команды с составами и имя
// турнира тянутся параллельно отдельными запросами репозиториев.
func (s *matchService) buildDetailView(ctx context.Context, match *models.Match) (*models.MatchView, error) {
	view := newMatchView(match)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tv, err := s.teamViewWithPlayers(gctx, match.TeamAID)
		if err != nil {
			return err
		}
		view.TeamA = tv
		return nil
	})
	g.Go(func() error {
		tv, err := s.teamViewWithPlayers(gctx, match.TeamBID)
		if err != nil {
			return err
		}
		view.TeamB = tv
		return nil
	})
	g.Go(func() error {
		tournament, err := s.tournaments.GetByID(gctx, match.TournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return nil
			}
			return err
		}
		view.TournamentName = tournament.Name
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *matchService) teamViewWithPlayers(ctx context.Context, teamID primitive.ObjectID) (models.MatchTeamView, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			// Команда могла быть удалена; матч всё равно показываем.
			return models.MatchTeamView{ID: teamID}, nil
		}
		return models.MatchTeamView{}, err
	}

	players, err := s.users.ListByIDs(ctx, team.Players)
	if err != nil {
		return models.MatchTeamView{}, err
	}
	publics := make([]models.PublicUser, 0, len(players))
	for _, p := range players {
		publics = append(publics, p.Public())
	}
	return models.MatchTeamView{ID: team.ID, Name: team.Name, Players: publics}, nil
}

// buildListViews — облегчённая сборка для списков: имена команд и
// турниров батч-запросами, без составов.
func (s *matchService) buildListViews(ctx context.Context, matches []models.Match) ([]models.MatchView, error) {
	views := make([]models.MatchView, 0, len(matches))
	if len(matches) == 0 {
		return views, nil
	}

	teamIDs := make([]primitive.ObjectID, 0, len(matches)*2)
	tournamentIDs := make([]primitive.ObjectID, 0, len(matches))
	seenTeams := make(map[primitive.ObjectID]struct{})
	seenTournaments := make(map[primitive.ObjectID]struct{})
	for _, m := range matches {
		for _, id := range []primitive.ObjectID{m.TeamAID, m.TeamBID} {
			if _, ok := seenTeams[id]; !ok {
				seenTeams[id] = struct{}{}
				teamIDs = append(teamIDs, id)
			}
		}
		if _, ok := seenTournaments[m.TournamentID]; !ok {
			seenTournaments[m.TournamentID] = struct{}{}
			tournamentIDs = append(tournamentIDs, m.TournamentID)
		}
	}

	var (
		teamNames       map[primitive.ObjectID]string
		tournamentNames map[primitive.ObjectID]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		teams, err := s.teams.ListByIDs(gctx, teamIDs)
		if err != nil {
			return err
		}
		teamNames = make(map[primitive.ObjectID]string, len(teams))
		for _, t := range teams {
			teamNames[t.ID] = t.Name
		}
		return nil
	})
	g.Go(func() error {
		tournaments, err := s.tournaments.ListByIDs(gctx, tournamentIDs)
		if err != nil {
			return err
		}
		tournamentNames = make(map[primitive.ObjectID]string, len(tournaments))
		for _, t := range tournaments {
			tournamentNames[t.ID] = t.Name
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range matches {
		m := &matches[i]
		view := newMatchView(m)
		view.TournamentName = tournamentNames[m.TournamentID]
		view.TeamA = models.MatchTeamView{ID: m.TeamAID, Name: teamNames[m.TeamAID]}
		view.TeamB = models.MatchTeamView{ID: m.TeamBID, Name: teamNames[m.TeamBID]}
		views = append(views, *view)
	}
	return views, nil
}

func newMatchView(m *models.Match) *models.MatchView {
	return &models.MatchView{
		ID:              m.ID,
		TournamentID:    m.TournamentID,
		MatchDate:       m.MatchDate,
		Status:          m.Status,
		ResultType:      m.ResultType,
		Stage:           m.Stage,
		Group:           m.Group,
		Score:           m.Score,
		OvertimeScore:   m.OvertimeScore,
		PenaltyShootout: m.PenaltyShootout,
		Events:          m.Events,
	}
}
