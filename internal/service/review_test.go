package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourhubapp/tourhub-server/internal/domain"
	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
	"github.com/tourhubapp/tourhub-server/internal/store"
)

func newTestReviewService(t *testing.T) (*ReviewService, *TourService, *store.Store) {
	t.Helper()
	tours, s := newTestTourService(t)
	logger := slog.New(slog.DiscardHandler)
	return NewReviewService(s, tours.search, logger), tours, s
}

func seedUser(t *testing.T, s *store.Store, userID string, role domain.Role) *domain.User {
	t.Helper()
	user := &domain.User{
		Record: domain.Record{ID: userID},
		Email:  userID + "@example.com",
		Name:   "Test User",
		Role:   role,
		Active: true,
	}
	user.InitTimestamps()
	require.NoError(t, s.Users.Create(context.Background(), userID, user))
	return user
}

func TestReviewService_Create(t *testing.T) {
	reviews, tours, _ := newTestReviewService(t)
	ctx := context.Background()

	tour, err := tours.Create(ctx, validTourRequest("The Forest Hiker"))
	require.NoError(t, err)

	review, err := reviews.Create(ctx, "user_1", CreateReviewRequest{
		TourID: tour.ID,
		Text:   "Amazing guide, stunning views",
		Rating: 5,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, review.ID)
	assert.Equal(t, "user_1", review.UserID)

	// The tour's aggregate now reflects the single review
	got, err := tours.Get(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.RatingsAverage)
	assert.Equal(t, 1, got.RatingsCount)
}

func TestReviewService_Create_Validation(t *testing.T) {
	reviews, tours, _ := newTestReviewService(t)
	ctx := context.Background()

	tour, err := tours.Create(ctx, validTourRequest("The Forest Hiker"))
	require.NoError(t, err)

	_, err = reviews.Create(ctx, "user_1", CreateReviewRequest{
		TourID: tour.ID,
		Text:   "Too good",
		Rating: 6,
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = reviews.Create(ctx, "user_1", CreateReviewRequest{
		TourID: "tour_missing",
		Text:   "Ghost tour",
		Rating: 3,
	})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestReviewService_Create_OnePerUserPerTour(t *testing.T) {
	reviews, tours, _ := newTestReviewService(t)
	ctx := context.Background()

	tour, err := tours.Create(ctx, validTourRequest("The Forest Hiker"))
	require.NoError(t, err)

	req := CreateReviewRequest{TourID: tour.ID, Text: "Great", Rating: 4}
	_, err = reviews.Create(ctx, "user_1", req)
	require.NoError(t, err)

	_, err = reviews.Create(ctx, "user_1", req)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)

	// A different user may still review
	_, err = reviews.Create(ctx, "user_2", req)
	assert.NoError(t, err)
}

func TestReviewService_RatingAggregation(t *testing.T) {
	reviews, tours, _ := newTestReviewService(t)
	ctx := context.Background()

	tour, err := tours.Create(ctx, validTourRequest("The Forest Hiker"))
	require.NoError(t, err)

	ratings := []float64{5, 4, 3}
	created := make([]*domain.Review, 0, len(ratings))
	for i, rating := range ratings {
		r, err := reviews.Create(ctx, fmt.Sprintf("user_%d", i), CreateReviewRequest{
			TourID: tour.ID,
			Text:   "Review",
			Rating: rating,
		})
		require.NoError(t, err)
		created = append(created, r)
	}

	got, err := tours.Get(ctx, tour.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got.RatingsAverage, 0.001)
	assert.Equal(t, 3, got.RatingsCount)

	// Deleting all reviews restores the default rating
	admin := seedUser(t, reviews.store, "user_admin", domain.RoleAdmin)
	for _, r := range created {
		require.NoError(t, reviews.Delete(ctx, admin, r.ID))
	}

	got, err = tours.Get(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRatingsAverage, got.RatingsAverage)
	assert.Zero(t, got.RatingsCount)
}

func TestReviewService_Update(t *testing.T) {
	reviews, tours, s := newTestReviewService(t)
	ctx := context.Background()

	tour, err := tours.Create(ctx, validTourRequest("The Forest Hiker"))
	require.NoError(t, err)

	author := seedUser(t, s, "user_author", domain.RoleUser)
	review, err := reviews.Create(ctx, author.ID, CreateReviewRequest{
		TourID: tour.ID,
		Text:   "Fine",
		Rating: 3,
	})
	require.NoError(t, err)

	newRating := 5.0
	updated, err := reviews.Update(ctx, author, review.ID, UpdateReviewRequest{Rating: &newRating})
	require.NoError(t, err)
	assert.Equal(t, 5.0, updated.Rating)
	assert.Equal(t, "Fine", updated.Text)

	got, err := tours.Get(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.RatingsAverage)
}

func TestReviewService_AuthorOrAdminOnly(t *testing.T) {
	reviews, tours, s := newTestReviewService(t)
	ctx := context.Background()

	tour, err := tours.Create(ctx, validTourRequest("The Forest Hiker"))
	require.NoError(t, err)

	author := seedUser(t, s, "user_author", domain.RoleUser)
	stranger := seedUser(t, s, "user_stranger", domain.RoleUser)
	admin := seedUser(t, s, "user_admin", domain.RoleAdmin)

	review, err := reviews.Create(ctx, author.ID, CreateReviewRequest{
		TourID: tour.ID,
		Text:   "Mine",
		Rating: 4,
	})
	require.NoError(t, err)

	text := "Not yours"
	_, err = reviews.Update(ctx, stranger, review.ID, UpdateReviewRequest{Text: &text})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	err = reviews.Delete(ctx, stranger, review.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	// Admins may moderate any review
	require.NoError(t, reviews.Delete(ctx, admin, review.ID))
	_, err = reviews.Get(ctx, review.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestReviewService_Listing(t *testing.T) {
	reviews, tours, _ := newTestReviewService(t)
	ctx := context.Background()

	first, err := tours.Create(ctx, validTourRequest("The Forest Hiker"))
	require.NoError(t, err)
	second, err := tours.Create(ctx, validTourRequest("The Sea Explorer"))
	require.NoError(t, err)

	_, err = reviews.Create(ctx, "user_1", CreateReviewRequest{TourID: first.ID, Text: "A", Rating: 5})
	require.NoError(t, err)
	_, err = reviews.Create(ctx, "user_1", CreateReviewRequest{TourID: second.ID, Text: "B", Rating: 4})
	require.NoError(t, err)
	_, err = reviews.Create(ctx, "user_2", CreateReviewRequest{TourID: first.ID, Text: "C", Rating: 3})
	require.NoError(t, err)

	byTour, err := reviews.ListByTour(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, byTour, 2)

	byUser, err := reviews.ListByUser(ctx, "user_1")
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	_, err = reviews.ListByTour(ctx, "tour_missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	page, err := reviews.List(ctx, url.Values{"rating[gte]": {"4"}})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}
