package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tourhubapp/tourhub-server/internal/domain"
	"github.com/tourhubapp/tourhub-server/internal/service"
)

func (s *Server) registerReviewRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listReviews",
		Method:      http.MethodGet,
		Path:        "/api/v1/reviews",
		Summary:     "List reviews",
		Description: "Returns a filtered, sorted, paginated page of reviews",
		Tags:        []string{"Reviews"},
	}, s.handleListReviews)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReview",
		Method:      http.MethodGet,
		Path:        "/api/v1/reviews/{id}",
		Summary:     "Get review",
		Tags:        []string{"Reviews"},
	}, s.handleGetReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateReview",
		Method:      http.MethodPatch,
		Path:        "/api/v1/reviews/{id}",
		Summary:     "Update review",
		Description: "Updates a review. Only the author or an admin may do this.",
		Tags:        []string{"Reviews"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteReview",
		Method:      http.MethodDelete,
		Path:        "/api/v1/reviews/{id}",
		Summary:     "Delete review",
		Description: "Deletes a review. Only the author or an admin may do this.",
		Tags:        []string{"Reviews"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTourReviews",
		Method:      http.MethodGet,
		Path:        "/api/v1/tours/{id}/reviews",
		Summary:     "List tour reviews",
		Description: "Returns all reviews for a tour",
		Tags:        []string{"Reviews", "Tours"},
	}, s.handleListTourReviews)

	huma.Register(s.api, huma.Operation{
		OperationID: "createTourReview",
		Method:      http.MethodPost,
		Path:        "/api/v1/tours/{id}/reviews",
		Summary:     "Review a tour",
		Description: "Creates a review for a tour by the authenticated user",
		Tags:        []string{"Reviews", "Tours"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateTourReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "listMyReviews",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me/reviews",
		Summary:     "List my reviews",
		Description: "Returns the authenticated user's reviews",
		Tags:        []string{"Reviews", "Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListMyReviews)
}

// === DTOs ===

// ReviewResponse contains review data in API responses.
type ReviewResponse struct {
	ID        string    `json:"id" doc:"Review ID"`
	TourID    string    `json:"tour_id" doc:"Reviewed tour ID"`
	UserID    string    `json:"user_id" doc:"Author user ID"`
	Text      string    `json:"text" doc:"Review text"`
	Rating    float64   `json:"rating" doc:"Rating, 1 to 5"`
	CreatedAt time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// ReviewOutput wraps a single review response for Huma.
type ReviewOutput struct {
	Body ReviewResponse
}

// ReviewListOutput wraps a plain review list for Huma.
type ReviewListOutput struct {
	Body []ReviewResponse
}

// ListReviewsInput contains parameters for listing reviews.
type ListReviewsInput struct {
	filterParams
}

// GetReviewInput contains parameters for fetching one review.
type GetReviewInput struct {
	ID string `path:"id" doc:"Review ID"`
}

// CreateReviewRequest is the request body for reviewing a tour.
type CreateReviewRequest struct {
	Text   string  `json:"text" validate:"required,max=2000" doc:"Review text"`
	Rating float64 `json:"rating" validate:"required,gte=1,lte=5" doc:"Rating, 1 to 5"`
}

// CreateTourReviewInput wraps the create request for Huma.
type CreateTourReviewInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tour ID"`
	Body          CreateReviewRequest
}

// UpdateReviewRequest is the request body for partial review updates.
type UpdateReviewRequest struct {
	Text   *string  `json:"text,omitempty" validate:"omitempty,max=2000" doc:"Review text"`
	Rating *float64 `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5" doc:"Rating, 1 to 5"`
}

// UpdateReviewInput wraps the update request for Huma.
type UpdateReviewInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Review ID"`
	Body          UpdateReviewRequest
}

// DeleteReviewInput contains parameters for deleting a review.
type DeleteReviewInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Review ID"`
}

// ListTourReviewsInput contains the tour whose reviews to list.
type ListTourReviewsInput struct {
	ID string `path:"id" doc:"Tour ID"`
}

// ListMyReviewsInput carries the caller's credentials.
type ListMyReviewsInput struct {
	Authorization string `header:"Authorization"`
}

// === Handlers ===

func (s *Server) handleListReviews(ctx context.Context, input *ListReviewsInput) (*ListResultOutput, error) {
	result, err := s.services.Review.List(ctx, input.values)
	if err != nil {
		return nil, err
	}

	return &ListResultOutput{Body: *result}, nil
}

func (s *Server) handleGetReview(ctx context.Context, input *GetReviewInput) (*ReviewOutput, error) {
	review, err := s.services.Review.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &ReviewOutput{Body: mapReview(review)}, nil
}

func (s *Server) handleCreateTourReview(ctx context.Context, input *CreateTourReviewInput) (*ReviewOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	review, err := s.services.Review.Create(ctx, user.ID, service.CreateReviewRequest{
		TourID: input.ID,
		Text:   input.Body.Text,
		Rating: input.Body.Rating,
	})
	if err != nil {
		return nil, err
	}

	return &ReviewOutput{Body: mapReview(review)}, nil
}

func (s *Server) handleUpdateReview(ctx context.Context, input *UpdateReviewInput) (*ReviewOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	review, err := s.services.Review.Update(ctx, user, input.ID, service.UpdateReviewRequest{
		Text:   input.Body.Text,
		Rating: input.Body.Rating,
	})
	if err != nil {
		return nil, err
	}

	return &ReviewOutput{Body: mapReview(review)}, nil
}

func (s *Server) handleDeleteReview(ctx context.Context, input *DeleteReviewInput) (*MessageOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Review.Delete(ctx, user, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Review deleted"}}, nil
}

func (s *Server) handleListTourReviews(ctx context.Context, input *ListTourReviewsInput) (*ReviewListOutput, error) {
	reviews, err := s.services.Review.ListByTour(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &ReviewListOutput{Body: mapReviews(reviews)}, nil
}

func (s *Server) handleListMyReviews(ctx context.Context, input *ListMyReviewsInput) (*ReviewListOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	reviews, err := s.services.Review.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &ReviewListOutput{Body: mapReviews(reviews)}, nil
}

// === Helpers ===

func mapReview(r *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:        r.ID,
		TourID:    r.TourID,
		UserID:    r.UserID,
		Text:      r.Text,
		Rating:    r.Rating,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func mapReviews(reviews []*domain.Review) []ReviewResponse {
	resp := make([]ReviewResponse, len(reviews))
	for i, r := range reviews {
		resp[i] = mapReview(r)
	}
	return resp
}
