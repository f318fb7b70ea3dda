package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/tourhubapp/tourhub-server/internal/domain"
	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
	"github.com/tourhubapp/tourhub-server/internal/id"
	"github.com/tourhubapp/tourhub-server/internal/query"
	"github.com/tourhubapp/tourhub-server/internal/search"
	"github.com/tourhubapp/tourhub-server/internal/store"
)

// ReviewService manages tour reviews and keeps each tour's aggregate rating
// in step with its reviews.
type ReviewService struct {
	store  *store.Store
	search *search.Index
	logger *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(s *store.Store, idx *search.Index, logger *slog.Logger) *ReviewService {
	return &ReviewService{store: s, search: idx, logger: logger}
}

// CreateReviewRequest contains a new review. UserID is taken from the
// authenticated caller, never from the request body.
type CreateReviewRequest struct {
	TourID string  `json:"tour_id" validate:"required"`
	Text   string  `json:"text" validate:"required,max=2000"`
	Rating float64 `json:"rating" validate:"required,gte=1,lte=5"`
}

// UpdateReviewRequest contains a partial review update.
type UpdateReviewRequest struct {
	Text   *string  `json:"text,omitempty" validate:"omitempty,max=2000"`
	Rating *float64 `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
}

// Create adds a review and recomputes the tour's rating. A user can review
// a tour only once.
func (s *ReviewService) Create(ctx context.Context, userID string, req CreateReviewRequest) (*domain.Review, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	if _, err := s.store.Tours.Get(ctx, req.TourID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("tour not found")
		}
		return nil, fmt.Errorf("get tour: %w", err)
	}

	reviewID, err := id.Generate("review")
	if err != nil {
		return nil, fmt.Errorf("generate review ID: %w", err)
	}

	review := &domain.Review{
		Record: domain.Record{ID: reviewID},
		Text:   req.Text,
		Rating: req.Rating,
		TourID: req.TourID,
		UserID: userID,
	}
	review.InitTimestamps()

	if err := s.store.Reviews.Create(ctx, reviewID, review); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("you have already reviewed this tour")
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.recomputeRatings(ctx, req.TourID); err != nil {
		s.logger.Warn("failed to recompute tour ratings", "tour_id", req.TourID, "error", err)
	}
	return review, nil
}

// Get returns a review by ID.
func (s *ReviewService) Get(ctx context.Context, reviewID string) (*domain.Review, error) {
	review, err := s.store.Reviews.Get(ctx, reviewID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("review not found")
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// List returns a page of all reviews selected by query parameters.
func (s *ReviewService) List(ctx context.Context, params url.Values) (*query.Result, error) {
	q, err := query.Parse(params)
	if err != nil {
		return nil, err
	}
	reviews, err := s.store.Reviews.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return query.Run(q, reviews)
}

// ListByTour returns every review of one tour.
func (s *ReviewService) ListByTour(ctx context.Context, tourID string) ([]*domain.Review, error) {
	if _, err := s.store.Tours.Get(ctx, tourID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("tour not found")
		}
		return nil, fmt.Errorf("get tour: %w", err)
	}
	reviews, err := s.store.Reviews.ListByIndex(ctx, "tour", tourID)
	if err != nil {
		return nil, fmt.Errorf("list tour reviews: %w", err)
	}
	return reviews, nil
}

// ListByUser returns every review written by one user.
func (s *ReviewService) ListByUser(ctx context.Context, userID string) ([]*domain.Review, error) {
	reviews, err := s.store.Reviews.ListByIndex(ctx, "user", userID)
	if err != nil {
		return nil, fmt.Errorf("list user reviews: %w", err)
	}
	return reviews, nil
}

// Update changes a review's text or rating. Only the author or an admin may
// update a review.
func (s *ReviewService) Update(ctx context.Context, actor *domain.User, reviewID string, req UpdateReviewRequest) (*domain.Review, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	review, err := s.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeReview(actor, review); err != nil {
		return nil, err
	}

	if req.Text != nil {
		review.Text = *req.Text
	}
	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	review.Touch()

	if err := s.store.Reviews.Update(ctx, reviewID, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	if err := s.recomputeRatings(ctx, review.TourID); err != nil {
		s.logger.Warn("failed to recompute tour ratings", "tour_id", review.TourID, "error", err)
	}
	return review, nil
}

// Delete removes a review and recomputes the tour's rating. Only the author
// or an admin may delete a review.
func (s *ReviewService) Delete(ctx context.Context, actor *domain.User, reviewID string) error {
	review, err := s.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if err := s.authorizeReview(actor, review); err != nil {
		return err
	}

	if err := s.store.Reviews.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("review not found")
		}
		return fmt.Errorf("delete review: %w", err)
	}

	if err := s.recomputeRatings(ctx, review.TourID); err != nil {
		s.logger.Warn("failed to recompute tour ratings", "tour_id", review.TourID, "error", err)
	}
	return nil
}

func (s *ReviewService) authorizeReview(actor *domain.User, review *domain.Review) error {
	if actor.ID == review.UserID || actor.IsAdmin() {
		return nil
	}
	return domainerrors.Forbidden("you may only modify your own reviews")
}

// recomputeRatings refreshes a tour's aggregate rating from its reviews.
// A tour without reviews falls back to the default rating.
func (s *ReviewService) recomputeRatings(ctx context.Context, tourID string) error {
	tour, err := s.store.Tours.Get(ctx, tourID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Tour was deleted concurrently; nothing to update.
			return nil
		}
		return fmt.Errorf("get tour: %w", err)
	}

	reviews, err := s.store.Reviews.ListByIndex(ctx, "tour", tourID)
	if err != nil {
		return fmt.Errorf("list tour reviews: %w", err)
	}

	if len(reviews) == 0 {
		tour.RatingsAverage = domain.DefaultRatingsAverage
		tour.RatingsCount = 0
	} else {
		var sum float64
		for _, r := range reviews {
			sum += r.Rating
		}
		tour.RatingsAverage = sum / float64(len(reviews))
		tour.RatingsCount = len(reviews)
	}
	tour.Touch()

	if err := s.store.Tours.Update(ctx, tourID, tour); err != nil {
		return fmt.Errorf("update tour: %w", err)
	}
	if err := s.search.IndexTour(search.NewTourDocument(tour)); err != nil {
		s.logger.Warn("failed to index tour", "tour_id", tourID, "error", err)
	}
	return nil
}
