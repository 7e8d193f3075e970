package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/models"
	"github.com/Dosada05/futsal-pulse/repositories"
)

var (
	ErrPlayerInAnotherTeam = errors.New("player already belongs to another team")
	ErrInvitationNotFound  = errors.New("invitation not found, already processed, or not addressed to you")
	ErrInvitedTeamGone     = errors.New("the team no longer exists")
	ErrInvalidInviteReply  = errors.New("response must be accepted or rejected")
)

type InviteResponse string

const (
	InviteAccepted InviteResponse = "accepted"
	InviteRejected InviteResponse = "rejected"
)

type InvitationService interface {
	Invite(ctx context.Context, captainID, teamID, playerID primitive.ObjectID) error
	Respond(ctx context.Context, userID, notificationID primitive.ObjectID, response InviteResponse) (string, error)
}

type invitationService struct {
	teams         repositories.TeamRepository
	users         repositories.UserRepository
	notifications repositories.NotificationRepository
}

func NewInvitationService(
	teams repositories.TeamRepository,
	users repositories.UserRepository,
	notifications repositories.NotificationRepository,
) InvitationService {
	return &invitationService{teams: teams, users: users, notifications: notifications}
}

// Invite шлёт игроку приглашение-уведомление. Повторный вызов при
// висящем приглашении не создаёт дубликат.
func (s *invitationService) Invite(ctx context.Context, captainID, teamID, playerID primitive.ObjectID) error {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return err
	}
	if team.Captain != captainID {
		return ErrCaptainActionForbidden
	}
	if team.HasMember(playerID) {
		return ErrUserAlreadyInTeam
	}

	player, err := s.users.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if membership, err := s.teams.FindByMember(ctx, player.ID); err == nil && membership != nil {
		return ErrPlayerInAnotherTeam
	} else if err != nil && !errors.Is(err, repositories.ErrTeamNotFound) {
		return err
	}

	if _, err := s.notifications.FindPendingInvite(ctx, playerID, teamID); err == nil {
		return ErrInviteAlreadyPending
	} else if !errors.Is(err, repositories.ErrNotificationNotFound) {
		return err
	}

	return s.notifications.Insert(ctx, &models.Notification{
		UserID:  playerID,
		Type:    models.NotificationTeamInvitation,
		Message: fmt.Sprintf("You have been invited to join %q.", team.Name),
		Data: models.NotificationData{
			TeamID:    &team.ID,
			InvitedBy: &team.Captain,
		},
	})
}

// Respond обрабатывает ответ приглашённого. Приглашение одноразовое:
// уведомление удаляется до применения ответа.
func (s *invitationService) Respond(ctx context.Context, userID, notificationID primitive.ObjectID, response InviteResponse) (string, error) {
	if response != InviteAccepted && response != InviteRejected {
		return "", ErrInvalidInviteReply
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	notification, err := s.notifications.GetByIDForUser(ctx, notificationID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return "", ErrInvitationNotFound
		}
		return "", err
	}
	if notification.Type != models.NotificationTeamInvitation || notification.Data.TeamID == nil {
		return "", ErrInvitationNotFound
	}

	team, err := s.teams.GetByID(ctx, *notification.Data.TeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			_ = s.notifications.Delete(ctx, notificationID, userID)
			return "", ErrInvitedTeamGone
		}
		return "", err
	}

	if err := s.notifications.Delete(ctx, notificationID, userID); err != nil &&
		!errors.Is(err, repositories.ErrNotificationNotFound) {
		return "", err
	}

	playerName := user.FullName
	if playerName == "" {
		playerName = user.Username
	}

	if response == InviteAccepted {
		if len(team.Players) >= models.MaxTeamPlayers {
			return "", fmt.Errorf("%w: team %q is already full", ErrTeamFull, team.Name)
		}
		if err := s.teams.AddPlayer(ctx, team.ID, userID); err != nil {
			return "", fmt.Errorf("failed to join team: %w", err)
		}
		err := s.notifications.Insert(ctx, &models.Notification{
			UserID:  team.Captain,
			Type:    models.NotificationInvitationAccepted,
			Message: fmt.Sprintf("%s has accepted your invitation to join %q.", playerName, team.Name),
			Link:    fmt.Sprintf("/teams/%s", team.ID.Hex()),
			Data:    models.NotificationData{TeamID: &team.ID, PlayerID: &userID},
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Successfully joined team %s.", team.Name), nil
	}

	err = s.notifications.Insert(ctx, &models.Notification{
		UserID:  team.Captain,
		Type:    models.NotificationInvitationRejected,
		Message: fmt.Sprintf("%s has rejected your invitation to join %q.", playerName, team.Name),
		Data:    models.NotificationData{TeamID: &team.ID, PlayerID: &userID},
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Invitation for team %s rejected.", team.Name), nil
}
