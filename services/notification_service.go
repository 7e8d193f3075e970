package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/models"
	"github.com/Dosada05/futsal-pulse/repositories"
)

type NotificationPage struct {
	Items  []models.Notification `json:"items"`
	Total  int64                 `json:"total"`
	Page   int64                 `json:"page"`
	Limit  int64                 `json:"limit"`
	Unread int64                 `json:"unread"`
}

type NotificationService interface {
	List(ctx context.Context, userID primitive.ObjectID, page, limit int64) (*NotificationPage, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) error
	Delete(ctx context.Context, userID, notificationID primitive.ObjectID) error
	DeleteAll(ctx context.Context, userID primitive.ObjectID) error

	Notify(ctx context.Context, notification models.Notification) error
	NotifyMany(ctx context.Context, notifications []models.Notification) error
}

type notificationService struct {
	notifications repositories.NotificationRepository
	teams         repositories.TeamRepository
	users         repositories.UserRepository
}

func NewNotificationService(
	notifications repositories.NotificationRepository,
	teams repositories.TeamRepository,
	users repositories.UserRepository,
) NotificationService {
	return &notificationService{notifications: notifications, teams: teams, users: users}
}

func (s *notificationService) List(ctx context.Context, userID primitive.ObjectID, page, limit int64) (*NotificationPage, error) {
	items, total, err := s.notifications.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	for i := range items {
		if items[i].Type == models.NotificationTeamInvitation {
			s.expandInvitation(ctx, &items[i])
		}
	}

	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{Items: items, Total: total, Page: page, Limit: limit, Unread: unread}, nil
}

// expandInvitation дополняет приглашение деталями команды и капитана;
// если команда уже удалена, уведомление остаётся как есть.
func (s *notificationService) expandInvitation(ctx context.Context, n *models.Notification) {
	if n.Data.TeamID == nil {
		return
	}
	team, err := s.teams.GetByID(ctx, *n.Data.TeamID)
	if err != nil {
		return
	}

	detail := &models.TeamDetail{
		ID:           team.ID,
		Name:         team.Name,
		PlayersCount: len(team.Players),
	}
	n.Data.Team = detail

	captain, err := s.users.GetByID(ctx, team.Captain)
	if err != nil {
		return
	}
	public := captain.Public()
	detail.Captain = &public
	n.Data.Captain = &public
}

func (s *notificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.notifications.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	err := s.notifications.MarkRead(ctx, notificationID, userID)
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	return s.notifications.MarkAllRead(ctx, userID)
}

func (s *notificationService) Delete(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	err := s.notifications.Delete(ctx, notificationID, userID)
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *notificationService) DeleteAll(ctx context.Context, userID primitive.ObjectID) error {
	return s.notifications.DeleteAllByUser(ctx, userID)
}

func (s *notificationService) Notify(ctx context.Context, notification models.Notification) error {
	return s.notifications.Insert(ctx, &notification)
}

func (s *notificationService) NotifyMany(ctx context.Context, notifications []models.Notification) error {
	return s.notifications.InsertMany(ctx, notifications)
}
