package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/models"
	"github.com/Dosada05/futsal-pulse/repositories"
)

var ErrInvalidRegistrationStatus = errors.New("status must be approved or rejected")

type RegistrationService interface {
	Register(ctx context.Context, captainID, teamID, tournamentID primitive.ObjectID) (*models.Registration, error)
	ListForTournament(ctx context.Context, organizerID, tournamentID primitive.ObjectID) ([]models.RegistrationView, error)
	SetStatus(ctx context.Context, organizerID, registrationID primitive.ObjectID, status models.RegistrationStatus) error
}

type registrationService struct {
	registrations repositories.RegistrationRepository
	teams         repositories.TeamRepository
	tournaments   repositories.TournamentRepository
	notifications NotificationService
}

func NewRegistrationService(
	registrations repositories.RegistrationRepository,
	teams repositories.TeamRepository,
	tournaments repositories.TournamentRepository,
	notifications NotificationService,
) RegistrationService {
	return &registrationService{
		registrations: registrations,
		teams:         teams,
		tournaments:   tournaments,
		notifications: notifications,
	}
}

// Register подаёт заявку команды на турнир; дубликат отсекается
// уникальным индексом (teamId, tournamentId).
func (s *registrationService) Register(ctx context.Context, captainID, teamID, tournamentID primitive.ObjectID) (*models.Registration, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if team.Captain != captainID {
		return nil, ErrCaptainActionForbidden
	}

	if _, err := s.tournaments.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	registration := &models.Registration{
		TeamID:       teamID,
		TournamentID: tournamentID,
		Status:       models.RegistrationPending,
	}
	if err := s.registrations.Create(ctx, registration); err != nil {
		if errors.Is(err, repositories.ErrRegistrationDuplicate) {
			return nil, ErrRegistrationConflict
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}
	return registration, nil
}

func (s *registrationService) ListForTournament(ctx context.Context, organizerID, tournamentID primitive.ObjectID) ([]models.RegistrationView, error) {
	tournament, err := s.tournaments.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Organizer != organizerID {
		return nil, ErrOrganizerOnly
	}
	return s.registrations.ListByTournament(ctx, tournamentID)
}

// SetStatus — решение организатора по заявке; капитан команды получает
// уведомление об итоге.
func (s *registrationService) SetStatus(ctx context.Context, organizerID, registrationID primitive.ObjectID, status models.RegistrationStatus) error {
	if status != models.RegistrationApproved && status != models.RegistrationRejected {
		return ErrInvalidRegistrationStatus
	}

	registration, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return err
	}

	tournament, err := s.tournaments.GetByID(ctx, registration.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if tournament.Organizer != organizerID {
		return ErrOrganizerOnly
	}

	if err := s.registrations.UpdateStatus(ctx, registrationID, status); err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to update registration status: %w", err)
	}

	team, err := s.teams.GetByID(ctx, registration.TeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			// Команда удалена, уведомлять некого.
			return nil
		}
		return err
	}

	verdict := "approved"
	if status == models.RegistrationRejected {
		verdict = "rejected"
	}
	return s.notifications.Notify(ctx, models.Notification{
		UserID:  team.Captain,
		Type:    models.NotificationRegistrationStatus,
		Message: fmt.Sprintf("Registration of team %q for %q has been %s.", team.Name, tournament.Name, verdict),
		Link:    fmt.Sprintf("/tournaments/%s", tournament.ID.Hex()),
		Data: models.NotificationData{
			TeamID:       &team.ID,
			TournamentID: &tournament.ID,
		},
	})
}
