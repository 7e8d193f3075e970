package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/futsal-pulse/models"
	"github.com/Dosada05/futsal-pulse/repositories"
)

type PlayerStatsService interface {
	SyncMatch(ctx context.Context, match *models.Match) error
	RemoveMatch(ctx context.Context, matchID primitive.ObjectID) error
	RecomputeAll(ctx context.Context, tournamentID *primitive.ObjectID) (int, error)
	Totals(ctx context.Context, playerID primitive.ObjectID, tournamentID *primitive.ObjectID) (*models.PlayerTotals, error)
	MatchLog(ctx context.Context, playerID primitive.ObjectID, limit int64) ([]models.PlayerMatchLogEntry, error)
}

type playerStatsService struct {
	stats   repositories.StatRepository
	matches repositories.MatchRepository
}

func NewPlayerStatsService(stats repositories.StatRepository, matches repositories.MatchRepository) PlayerStatsService {
	return &playerStatsService{stats: stats, matches: matches}
}

// computeMatchStats сворачивает журнал матча в строки (матч, игрок).
// События обходятся в порядке минут: вторая жёлтая фиксируется ровно на
// втором предупреждении независимо от порядка вставки.
func computeMatchStats(match *models.Match) []models.PlayerMatchStat {
	byPlayer := make(map[primitive.ObjectID]*models.PlayerMatchStat)
	order := make([]primitive.ObjectID, 0)

	ensure := func(playerID, teamID primitive.ObjectID) *models.PlayerMatchStat {
		if stat, ok := byPlayer[playerID]; ok {
			return stat
		}
		stat := &models.PlayerMatchStat{
			MatchID:      match.ID,
			PlayerID:     playerID,
			TeamID:       teamID,
			TournamentID: match.TournamentID,
		}
		byPlayer[playerID] = stat
		order = append(order, playerID)
		return stat
	}

	events := make([]models.MatchEvent, len(match.Events))
	copy(events, match.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Minute < events[j].Minute
	})

	yellows := make(map[primitive.ObjectID]int)
	for _, e := range events {
		if e.PlayerID.IsZero() || e.TeamID.IsZero() {
			continue
		}
		stat := ensure(e.PlayerID, e.TeamID)
		switch e.Type {
		case models.EventGoal:
			if e.Minute >= 1 && e.Minute <= OvertimeEndMinute {
				stat.Goals++
			}
		case models.EventYellowCard:
			stat.YellowCards++
			yellows[e.PlayerID]++
			if yellows[e.PlayerID] == 2 {
				stat.RedSecondYellow = 1
			}
		case models.EventRedCard:
			stat.RedDirect = 1
		}
	}

	if match.PenaltyShootout != nil {
		for _, kick := range match.PenaltyShootout.Events {
			if kick.PlayerID.IsZero() || kick.TeamID.IsZero() {
				continue
			}
			stat := ensure(kick.PlayerID, kick.TeamID)
			if kick.Outcome == models.PenaltyScored {
				stat.PenaltyScored++
			} else {
				stat.PenaltyMissed++
			}
		}
	}

	out := make([]models.PlayerMatchStat, 0, len(order))
	for _, playerID := range order {
		stat := byPlayer[playerID]
		if stat.Empty() {
			continue
		}
		out = append(out, *stat)
	}
	return out
}

// SyncMatch приводит строки статистики матча к его текущему журналу.
// Для незавершённого матча строки удаляются целиком.
func (s *playerStatsService) SyncMatch(ctx context.Context, match *models.Match) error {
	if match.Status != models.MatchFinished {
		return s.stats.DeleteByMatch(ctx, match.ID)
	}

	stats := computeMatchStats(match)
	if len(stats) == 0 {
		return s.stats.DeleteByMatch(ctx, match.ID)
	}

	if err := s.stats.UpsertMatchStats(ctx, match.ID, stats); err != nil {
		return fmt.Errorf("failed to upsert match stats: %w", err)
	}

	keep := make([]primitive.ObjectID, 0, len(stats))
	for _, stat := range stats {
		keep = append(keep, stat.PlayerID)
	}
	return s.stats.DeleteByMatchExcept(ctx, match.ID, keep)
}

func (s *playerStatsService) RemoveMatch(ctx context.Context, matchID primitive.ObjectID) error {
	return s.stats.DeleteByMatch(ctx, matchID)
}

// RecomputeAll пересчитывает статистику по всем завершённым матчам
// (опционально одного турнира). Идемпотентен; возвращает число
// обработанных матчей.
func (s *playerStatsService) RecomputeAll(ctx context.Context, tournamentID *primitive.ObjectID) (int, error) {
	matches, err := s.matches.ListFinished(ctx, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to list finished matches: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range matches {
		matchID := matches[i].ID
		g.Go(func() error {
			// Снимок из списка мог устареть относительно параллельных
			// правок журнала: документ перечитывается перед пересчётом.
			match, err := s.matches.GetByID(gctx, matchID)
			if err != nil {
				if errors.Is(err, repositories.ErrMatchNotFound) {
					return nil
				}
				return err
			}
			return s.SyncMatch(gctx, match)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(matches), nil
}

func (s *playerStatsService) Totals(ctx context.Context, playerID primitive.ObjectID, tournamentID *primitive.ObjectID) (*models.PlayerTotals, error) {
	return s.stats.PlayerTotals(ctx, playerID, tournamentID)
}

func (s *playerStatsService) MatchLog(ctx context.Context, playerID primitive.ObjectID, limit int64) ([]models.PlayerMatchLogEntry, error) {
	return s.stats.PlayerMatchLog(ctx, playerID, limit)
}
