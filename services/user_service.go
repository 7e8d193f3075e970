package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/models"
	"github.com/Dosada05/futsal-pulse/repositories"
	"github.com/Dosada05/futsal-pulse/storage"
)

const maxPlayerSearchResults = 20

type UpdateProfileInput struct {
	FullName     *string `json:"full_name"`
	Bio          *string `json:"bio"`
	ContactPhone *string `json:"contact_phone"`
}

type UserService interface {
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	GetPublicProfile(ctx context.Context, userID primitive.ObjectID) (*models.PublicUser, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, input UpdateProfileInput) (*models.User, error)
	UploadAvatar(ctx context.Context, userID primitive.ObjectID, filename, contentType string, file io.Reader) (*models.User, error)
	SearchPlayers(ctx context.Context, query string) ([]models.PublicUser, error)
}

type userService struct {
	users    repositories.UserRepository
	uploader storage.FileUploader
	log      *slog.Logger
}

func NewUserService(users repositories.UserRepository, uploader storage.FileUploader, log *slog.Logger) UserService {
	return &userService{users: users, uploader: uploader, log: log}
}

func (s *userService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) GetPublicProfile(ctx context.Context, userID primitive.ObjectID) (*models.PublicUser, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, input UpdateProfileInput) (*models.User, error) {
	updates := bson.M{}
	if input.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*input.FullName)
	}
	if input.Bio != nil {
		updates["bio"] = strings.TrimSpace(*input.Bio)
	}
	if input.ContactPhone != nil {
		updates["contact_phone"] = strings.TrimSpace(*input.ContactPhone)
	}
	if len(updates) == 0 {
		return nil, ErrValidationFailed
	}

	user, err := s.users.UpdateProfile(ctx, userID, updates)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

func (s *userService) UploadAvatar(ctx context.Context, userID primitive.ObjectID, filename, contentType string, file io.Reader) (*models.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s%s", primitive.NewObjectID().Hex(), path.Ext(filename))
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	publicURL := s.uploader.GetPublicURL(result.Key)
	if err := s.users.UpdateAvatar(ctx, userID, result.Key, publicURL); err != nil {
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}

	// Старый объект больше не нужен; ошибка удаления не фатальна.
	if user.AvatarKey != nil && *user.AvatarKey != "" && *user.AvatarKey != result.Key {
		if err := s.uploader.Delete(ctx, *user.AvatarKey); err != nil {
			s.log.Warn("failed to delete previous avatar", "key", *user.AvatarKey, "error", err)
		}
	}

	return s.GetProfile(ctx, userID)
}

func (s *userService) SearchPlayers(ctx context.Context, query string) ([]models.PublicUser, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.PublicUser{}, nil
	}

	users, err := s.users.SearchPlayers(ctx, regexp.QuoteMeta(query), maxPlayerSearchResults)
	if err != nil {
		return nil, fmt.Errorf("failed to search players: %w", err)
	}

	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}
