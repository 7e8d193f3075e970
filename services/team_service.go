package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/futsal-pulse/models"
	"github.com/Dosada05/futsal-pulse/repositories"
)

var (
	ErrTeamHasRegistrations = errors.New("cannot delete: team has registrations, remove or cancel them first")
	ErrTeamHasMatches       = errors.New("cannot delete: team appears in matches, delete those matches first")
)

type TeamService interface {
	Create(ctx context.Context, captainID primitive.ObjectID, name string) (*models.Team, error)
	List(ctx context.Context) ([]models.TeamSummary, error)
	ListMine(ctx context.Context, userID primitive.ObjectID) ([]models.TeamSummary, error)
	GetDetail(ctx context.Context, teamID primitive.ObjectID) (*models.TeamDetail, error)
	Delete(ctx context.Context, captainID, teamID primitive.ObjectID) error
	RemovePlayer(ctx context.Context, captainID, teamID, playerID primitive.ObjectID) error
}

type teamService struct {
	teams         repositories.TeamRepository
	users         repositories.UserRepository
	registrations repositories.RegistrationRepository
	matches       repositories.MatchRepository
	notifications NotificationService
}

func NewTeamService(
	teams repositories.TeamRepository,
	users repositories.UserRepository,
	registrations repositories.RegistrationRepository,
	matches repositories.MatchRepository,
	notifications NotificationService,
) TeamService {
	return &teamService{
		teams:         teams,
		users:         users,
		registrations: registrations,
		matches:       matches,
		notifications: notifications,
	}
}

func (s *teamService) Create(ctx context.Context, captainID primitive.ObjectID, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	existing, err := s.teams.FindByName(ctx, name)
	if err != nil && !errors.Is(err, repositories.ErrTeamNotFound) {
		return nil, fmt.Errorf("failed to check team name: %w", err)
	}
	if existing != nil {
		return nil, ErrTeamNameConflict
	}

	team := &models.Team{
		Name:    name,
		Captain: captainID,
		Players: []primitive.ObjectID{},
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

func (s *teamService) List(ctx context.Context) ([]models.TeamSummary, error) {
	return s.teams.List(ctx)
}

func (s *teamService) ListMine(ctx context.Context, userID primitive.ObjectID) ([]models.TeamSummary, error) {
	return s.teams.ListByMember(ctx, userID)
}

func (s *teamService) GetDetail(ctx context.Context, teamID primitive.ObjectID) (*models.TeamDetail, error) {
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	detail := &models.TeamDetail{
		ID:           team.ID,
		Name:         team.Name,
		PlayersCount: len(team.Players),
		Players:      []models.PublicUser{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		captain, err := s.users.GetByID(gctx, team.Captain)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return nil
			}
			return err
		}
		public := captain.Public()
		detail.Captain = &public
		return nil
	})
	g.Go(func() error {
		players, err := s.users.ListByIDs(gctx, team.Players)
		if err != nil {
			return err
		}
		for _, p := range players {
			detail.Players = append(detail.Players, p.Public())
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

// Delete удаляет команду капитана; команда с заявками или сыгранными
// матчами не удаляется, пока ссылки не сняты.
func (s *teamService) Delete(ctx context.Context, captainID, teamID primitive.ObjectID) error {
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.Captain != captainID {
		return ErrCaptainActionForbidden
	}

	regCount, err := s.registrations.CountByTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if regCount > 0 {
		return ErrTeamHasRegistrations
	}

	teamMatches, err := s.matches.List(ctx, repositories.ListMatchesFilter{TeamID: &teamID})
	if err != nil {
		return err
	}
	if len(teamMatches) > 0 {
		return ErrTeamHasMatches
	}

	if err := s.teams.Delete(ctx, teamID); err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}

	notifications := make([]models.Notification, 0, len(team.Players))
	for _, playerID := range team.Players {
		if playerID == captainID {
			continue
		}
		notifications = append(notifications, models.Notification{
			UserID:  playerID,
			Type:    models.NotificationTeamDeleted,
			Message: fmt.Sprintf("Team %q has been deleted by the captain.", team.Name),
			Data:    models.NotificationData{TeamID: &team.ID},
		})
	}
	return s.notifications.NotifyMany(ctx, notifications)
}

func (s *teamService) RemovePlayer(ctx context.Context, captainID, teamID, playerID primitive.ObjectID) error {
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.Captain != captainID {
		return ErrCaptainActionForbidden
	}
	if playerID == captainID {
		return ErrCannotRemoveSelf
	}

	if err := s.teams.RemovePlayer(ctx, teamID, playerID); err != nil {
		if errors.Is(err, repositories.ErrTeamPlayerNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to remove player: %w", err)
	}

	return s.notifications.Notify(ctx, models.Notification{
		UserID:  playerID,
		Type:    models.NotificationTeamRemoval,
		Message: fmt.Sprintf("You have been removed from the team %q.", team.Name),
		Data:    models.NotificationData{TeamID: &team.ID},
	})
}

func (s *teamService) getTeam(ctx context.Context, teamID primitive.ObjectID) (*models.Team, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}
