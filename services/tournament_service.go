package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/models"
	"github.com/Dosada05/futsal-pulse/repositories"
	"github.com/Dosada05/futsal-pulse/storage"
)

var (
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrTournamentCityRequired = errors.New("tournament city is required")
	ErrTournamentDatesInvalid = errors.New("end date cannot be before the start date")
)

type CreateTournamentInput struct {
	Name        string                    `json:"name"`
	Location    models.TournamentLocation `json:"location"`
	StartDate   time.Time                 `json:"startDate"`
	EndDate     *time.Time                `json:"endDate"`
	Description string                    `json:"description"`
	Surface     string                    `json:"surface"`
}

type UpdateTournamentInput struct {
	Name        *string                    `json:"name"`
	Location    *models.TournamentLocation `json:"location"`
	StartDate   *time.Time                 `json:"startDate"`
	EndDate     *time.Time                 `json:"endDate"`
	Description *string                    `json:"description"`
	Surface     *string                    `json:"surface"`
}

type TournamentService interface {
	Create(ctx context.Context, organizerID primitive.ObjectID, input CreateTournamentInput) (*models.Tournament, error)
	List(ctx context.Context, city, surface string) ([]*models.Tournament, error)
	GetDetail(ctx context.Context, id primitive.ObjectID) (*models.Tournament, error)
	Update(ctx context.Context, organizerID, id primitive.ObjectID, input UpdateTournamentInput) (*models.Tournament, error)
	UploadImage(ctx context.Context, organizerID, id primitive.ObjectID, filename, contentType string, file io.Reader) (*models.Tournament, error)
	Delete(ctx context.Context, organizerID, id primitive.ObjectID) error
}

type tournamentService struct {
	tournaments repositories.TournamentRepository
	uploader    storage.FileUploader
	log         *slog.Logger
}

func NewTournamentService(tournaments repositories.TournamentRepository, uploader storage.FileUploader, log *slog.Logger) TournamentService {
	return &tournamentService{tournaments: tournaments, uploader: uploader, log: log}
}

func (s *tournamentService) Create(ctx context.Context, organizerID primitive.ObjectID, input CreateTournamentInput) (*models.Tournament, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	if strings.TrimSpace(input.Location.City) == "" {
		return nil, ErrTournamentCityRequired
	}
	if input.StartDate.IsZero() {
		return nil, ErrValidationFailed
	}
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		return nil, ErrTournamentDatesInvalid
	}

	tournament := &models.Tournament{
		Name:        input.Name,
		Location:    input.Location,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Description: input.Description,
		Surface:     input.Surface,
		Organizer:   organizerID,
	}
	if err := s.tournaments.Create(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, city, surface string) ([]*models.Tournament, error) {
	return s.tournaments.List(ctx, repositories.ListTournamentsFilter{City: city, Surface: surface})
}

func (s *tournamentService) GetDetail(ctx context.Context, id primitive.ObjectID) (*models.Tournament, error) {
	tournament, err := s.tournaments.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) Update(ctx context.Context, organizerID, id primitive.ObjectID, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.requireOwned(ctx, id, organizerID)
	if err != nil {
		return nil, err
	}

	updates := bson.M{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTournamentNameRequired
		}
		updates["name"] = name
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}
	if input.StartDate != nil {
		updates["startDate"] = *input.StartDate
	}
	if input.EndDate != nil {
		updates["endDate"] = *input.EndDate
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Surface != nil {
		updates["surface"] = *input.Surface
	}
	if len(updates) == 0 {
		return nil, ErrValidationFailed
	}

	newStart := tournament.StartDate
	if input.StartDate != nil {
		newStart = *input.StartDate
	}
	newEnd := tournament.EndDate
	if input.EndDate != nil {
		newEnd = input.EndDate
	}
	if newEnd != nil && newEnd.Before(newStart) {
		return nil, ErrTournamentDatesInvalid
	}

	updated, err := s.tournaments.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to update tournament: %w", err)
	}
	return updated, nil
}

func (s *tournamentService) UploadImage(ctx context.Context, organizerID, id primitive.ObjectID, filename, contentType string, file io.Reader) (*models.Tournament, error) {
	tournament, err := s.requireOwned(ctx, id, organizerID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tournaments/%s%s", primitive.NewObjectID().Hex(), path.Ext(filename))
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload tournament image: %w", err)
	}
	publicURL := s.uploader.GetPublicURL(result.Key)

	updated, err := s.tournaments.Update(ctx, id, bson.M{
		"image_key": result.Key,
		"imageUrl":  publicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save tournament image: %w", err)
	}

	if tournament.ImageKey != nil && *tournament.ImageKey != "" && *tournament.ImageKey != result.Key {
		if err := s.uploader.Delete(ctx, *tournament.ImageKey); err != nil {
			s.log.Warn("failed to delete previous tournament image", "key", *tournament.ImageKey, "error", err)
		}
	}
	return updated, nil
}

func (s *tournamentService) Delete(ctx context.Context, organizerID, id primitive.ObjectID) error {
	tournament, err := s.requireOwned(ctx, id, organizerID)
	if err != nil {
		return err
	}

	if err := s.tournaments.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament: %w", err)
	}

	if tournament.ImageKey != nil && *tournament.ImageKey != "" {
		if err := s.uploader.Delete(ctx, *tournament.ImageKey); err != nil {
			s.log.Warn("failed to delete tournament image", "key", *tournament.ImageKey, "error", err)
		}
	}
	return nil
}

func (s *tournamentService) requireOwned(ctx context.Context, id, organizerID primitive.ObjectID) (*models.Tournament, error) {
	tournament, err := s.tournaments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.Organizer != organizerID {
		return nil, ErrOrganizerOnly
	}
	return tournament, nil
}
