package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/futsal-pulse/models"
	"github.com/Dosada05/futsal-pulse/repositories"
)

const maxReviewCommentLen = 1000

var ErrCommentTooLong = errors.New("comment must be at most 1000 characters")

type ReviewPage struct {
	Items       []models.ReviewView `json:"items"`
	Page        int64               `json:"page"`
	Limit       int64               `json:"limit"`
	Total       int64               `json:"total"`
	AvgRating   float64             `json:"avg_rating"`
	ReviewCount int                 `json:"review_count"`
}

type ReviewService interface {
	Upsert(ctx context.Context, userID, tournamentID primitive.ObjectID, rating int, comment string) (*models.Review, *models.TournamentRating, error)
	ListForTournament(ctx context.Context, tournamentID primitive.ObjectID, page, limit int64) (*ReviewPage, error)
	Delete(ctx context.Context, requesterID, reviewID primitive.ObjectID) (*models.TournamentRating, error)
}

type reviewService struct {
	reviews     repositories.ReviewRepository
	tournaments repositories.TournamentRepository
}

func NewReviewService(reviews repositories.ReviewRepository, tournaments repositories.TournamentRepository) ReviewService {
	return &reviewService{reviews: reviews, tournaments: tournaments}
}

// Upsert: один отзыв на пользователя и турнир; агрегаты рейтинга на
// турнире пересчитываются после каждой записи.
func (s *reviewService) Upsert(ctx context.Context, userID, tournamentID primitive.ObjectID, rating int, comment string) (*models.Review, *models.TournamentRating, error) {
	if rating < 1 || rating > 5 {
		return nil, nil, ErrRatingOutOfRange
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxReviewCommentLen {
		return nil, nil, ErrCommentTooLong
	}

	if _, err := s.tournaments.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, nil, ErrTournamentNotFound
		}
		return nil, nil, err
	}

	review := &models.Review{
		TournamentID: tournamentID,
		UserID:       userID,
		Rating:       rating,
		Comment:      comment,
	}
	if err := s.reviews.Upsert(ctx, review); err != nil {
		return nil, nil, fmt.Errorf("failed to save review: %w", err)
	}

	stats, err := s.recalcRating(ctx, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	return review, stats, nil
}

func (s *reviewService) ListForTournament(ctx context.Context, tournamentID primitive.ObjectID, page, limit int64) (*ReviewPage, error) {
	tournament, err := s.tournaments.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	items, total, err := s.reviews.ListByTournament(ctx, tournamentID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}
	return &ReviewPage{
		Items:       items,
		Page:        page,
		Limit:       limit,
		Total:       total,
		AvgRating:   tournament.AvgRating,
		ReviewCount: tournament.ReviewCount,
	}, nil
}

// Delete доступен автору отзыва и организатору турнира.
func (s *reviewService) Delete(ctx context.Context, requesterID, reviewID primitive.ObjectID) (*models.TournamentRating, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repositories.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}

	if review.UserID != requesterID {
		tournament, err := s.tournaments.GetByID(ctx, review.TournamentID)
		if err != nil && !errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, err
		}
		if tournament == nil || tournament.Organizer != requesterID {
			return nil, ErrForbiddenOperation
		}
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, repositories.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return s.recalcRating(ctx, review.TournamentID)
}

func (s *reviewService) recalcRating(ctx context.Context, tournamentID primitive.ObjectID) (*models.TournamentRating, error) {
	stats, err := s.reviews.AggregateRating(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate rating: %w", err)
	}
	// Храним рейтинг с одним знаком после запятой.
	stats.AvgRating = math.Round(stats.AvgRating*10) / 10

	if err := s.tournaments.UpdateRating(ctx, tournamentID, stats.AvgRating, stats.ReviewCount); err != nil &&
		!errors.Is(err, repositories.ErrTournamentNotFound) {
		return nil, err
	}
	return stats, nil
}
