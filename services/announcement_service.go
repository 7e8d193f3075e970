package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/models"
	"github.com/Dosada05/futsal-pulse/repositories"
)

const (
	maxAnnouncementTitleLen   = 160
	maxAnnouncementMessageLen = 4000
)

var (
	ErrAnnouncementTextRequired = errors.New("announcement message is required")
	ErrSubscriberRoleForbidden  = errors.New("only fans or players can subscribe to tournament updates")
	ErrAnnouncementsForbidden   = errors.New("not allowed to view announcements")
)

type AnnouncementService interface {
	Create(ctx context.Context, organizerID, tournamentID primitive.ObjectID, title, message string) (*models.Announcement, error)
	List(ctx context.Context, userID, tournamentID primitive.ObjectID) ([]models.Announcement, error)
	Delete(ctx context.Context, organizerID, tournamentID, announcementID primitive.ObjectID) error

	Subscribe(ctx context.Context, userID, tournamentID primitive.ObjectID) error
	Unsubscribe(ctx context.Context, userID, tournamentID primitive.ObjectID) error
	IsSubscribed(ctx context.Context, userID, tournamentID primitive.ObjectID) (bool, error)
}

type announcementService struct {
	announcements repositories.AnnouncementRepository
	tournaments   repositories.TournamentRepository
	registrations repositories.RegistrationRepository
	teams         repositories.TeamRepository
	users         repositories.UserRepository
	notifications NotificationService
}

func NewAnnouncementService(
	announcements repositories.AnnouncementRepository,
	tournaments repositories.TournamentRepository,
	registrations repositories.RegistrationRepository,
	teams repositories.TeamRepository,
	users repositories.UserRepository,
	notifications NotificationService,
) AnnouncementService {
	return &announcementService{
		announcements: announcements,
		tournaments:   tournaments,
		registrations: registrations,
		teams:         teams,
		users:         users,
		notifications: notifications,
	}
}

// Create публикует объявление организатора и рассылает уведомления
// подписчикам и капитанам допущенных команд.
func (s *announcementService) Create(ctx context.Context, organizerID, tournamentID primitive.ObjectID, title, message string) (*models.Announcement, error) {
	tournament, err := s.requireTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Organizer != organizerID {
		return nil, ErrOrganizerOnly
	}

	title = truncate(strings.TrimSpace(title), maxAnnouncementTitleLen)
	message = truncate(strings.TrimSpace(message), maxAnnouncementMessageLen)
	if message == "" {
		return nil, ErrAnnouncementTextRequired
	}

	announcement := &models.Announcement{
		TournamentID: tournamentID,
		AuthorID:     organizerID,
		Title:        title,
		Message:      message,
	}
	if err := s.announcements.Insert(ctx, announcement); err != nil {
		return nil, fmt.Errorf("failed to post announcement: %w", err)
	}

	recipients, err := s.collectRecipients(ctx, tournamentID, organizerID)
	if err != nil {
		return nil, err
	}

	short := announcement.Title
	if short == "" {
		short = truncate(announcement.Message, 80)
	}

	notifications := make([]models.Notification, 0, len(recipients))
	for _, userID := range recipients {
		notifications = append(notifications, models.Notification{
			UserID:  userID,
			Type:    models.NotificationAnnouncement,
			Message: fmt.Sprintf("Announcement in %q: %s", tournament.Name, short),
			Link:    fmt.Sprintf("/tournaments/%s", tournamentID.Hex()),
			Data:    models.NotificationData{TournamentID: &tournamentID},
		})
	}
	if err := s.notifications.NotifyMany(ctx, notifications); err != nil {
		return nil, err
	}
	return announcement, nil
}

// collectRecipients: подписчики плюс капитаны допущенных команд, без
// самого организатора и без дублей.
func (s *announcementService) collectRecipients(ctx context.Context, tournamentID, organizerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	subscribers, err := s.announcements.ListSubscriberIDs(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	approvedTeamIDs, err := s.registrations.ApprovedTeamIDs(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	teams, err := s.teams.ListByIDs(ctx, approvedTeamIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[primitive.ObjectID]struct{})
	recipients := make([]primitive.ObjectID, 0, len(subscribers)+len(teams))
	add := func(id primitive.ObjectID) {
		if id == organizerID || id.IsZero() {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	for _, id := range subscribers {
		add(id)
	}
	for _, t := range teams {
		add(t.Captain)
	}
	return recipients, nil
}

// List доступен организатору, подписчикам и капитанам допущенных команд.
func (s *announcementService) List(ctx context.Context, userID, tournamentID primitive.ObjectID) ([]models.Announcement, error) {
	tournament, err := s.requireTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	if tournament.Organizer != userID {
		subscribed, err := s.announcements.IsSubscribed(ctx, tournamentID, userID)
		if err != nil {
			return nil, err
		}
		if !subscribed {
			captain, err := s.isRegisteredCaptain(ctx, tournamentID, userID)
			if err != nil {
				return nil, err
			}
			if !captain {
				return nil, ErrAnnouncementsForbidden
			}
		}
	}
	return s.announcements.ListByTournament(ctx, tournamentID)
}

func (s *announcementService) isRegisteredCaptain(ctx context.Context, tournamentID, userID primitive.ObjectID) (bool, error) {
	approvedTeamIDs, err := s.registrations.ApprovedTeamIDs(ctx, tournamentID)
	if err != nil {
		return false, err
	}
	teams, err := s.teams.ListByIDs(ctx, approvedTeamIDs)
	if err != nil {
		return false, err
	}
	for _, t := range teams {
		if t.Captain == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *announcementService) Delete(ctx context.Context, organizerID, tournamentID, announcementID primitive.ObjectID) error {
	tournament, err := s.requireTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if tournament.Organizer != organizerID {
		return ErrOrganizerOnly
	}

	announcement, err := s.announcements.GetByID(ctx, announcementID)
	if err != nil {
		if errors.Is(err, repositories.ErrAnnouncementNotFound) {
			return ErrAnnouncementNotFound
		}
		return err
	}
	if announcement.TournamentID != tournamentID {
		return ErrAnnouncementNotFound
	}

	if err := s.announcements.Delete(ctx, announcementID); err != nil {
		if errors.Is(err, repositories.ErrAnnouncementNotFound) {
			return ErrAnnouncementNotFound
		}
		return err
	}
	return nil
}

func (s *announcementService) Subscribe(ctx context.Context, userID, tournamentID primitive.ObjectID) error {
	if _, err := s.requireTournament(ctx, tournamentID); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Role != models.RoleFan && user.Role != models.RolePlayer {
		return ErrSubscriberRoleForbidden
	}
	return s.announcements.Subscribe(ctx, tournamentID, userID)
}

func (s *announcementService) Unsubscribe(ctx context.Context, userID, tournamentID primitive.ObjectID) error {
	return s.announcements.Unsubscribe(ctx, tournamentID, userID)
}

func (s *announcementService) IsSubscribed(ctx context.Context, userID, tournamentID primitive.ObjectID) (bool, error) {
	return s.announcements.IsSubscribed(ctx, tournamentID, userID)
}

func (s *announcementService) requireTournament(ctx context.Context, tournamentID primitive.ObjectID) (*models.Tournament, error) {
	tournament, err := s.tournaments.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
