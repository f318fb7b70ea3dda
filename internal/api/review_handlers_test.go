package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourhubapp/tourhub-server/internal/domain"
)

func TestReviewLifecycle(t *testing.T) {
	server := setupTestServer(t)
	_, adminToken := registerTestUser(t, server, "admin@example.com", domain.RoleAdmin)
	_, userToken := registerTestUser(t, server, "reviewer@example.com", domain.RoleUser)
	tour := createTestTour(t, server, adminToken, "Reviewed Tour")

	// Create.
	w := doJSON(t, server, http.MethodPost, "/api/v1/tours/"+tour.ID+"/reviews", userToken, map[string]any{
		"text":   "Absolutely wonderful",
		"rating": 5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decodeEnvelope[ReviewResponse](t, w)
	assert.Equal(t, tour.ID, created.Data.TourID)
	assert.Equal(t, 5.0, created.Data.Rating)

	// The tour's rating aggregate follows.
	w = doJSON(t, server, http.MethodGet, "/api/v1/tours/"+tour.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rated := decodeEnvelope[TourResponse](t, w)
	assert.Equal(t, 5.0, rated.Data.RatingsAverage)
	assert.Equal(t, 1, rated.Data.RatingsCount)

	// Listed under the tour and under the author.
	w = doJSON(t, server, http.MethodGet, "/api/v1/tours/"+tour.ID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	byTour := decodeEnvelope[[]ReviewResponse](t, w)
	require.Len(t, byTour.Data, 1)

	w = doJSON(t, server, http.MethodGet, "/api/v1/users/me/reviews", userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decodeEnvelope[[]ReviewResponse](t, w)
	require.Len(t, mine.Data, 1)

	// Update.
	w = doJSON(t, server, http.MethodPatch, "/api/v1/reviews/"+created.Data.ID, userToken, map[string]any{
		"rating": 3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeEnvelope[ReviewResponse](t, w)
	assert.Equal(t, 3.0, updated.Data.Rating)

	// Delete restores the default aggregate.
	w = doJSON(t, server, http.MethodDelete, "/api/v1/reviews/"+created.Data.ID, userToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, server, http.MethodGet, "/api/v1/tours/"+tour.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	reset := decodeEnvelope[TourResponse](t, w)
	assert.Equal(t, 4.5, reset.Data.RatingsAverage)
	assert.Equal(t, 0, reset.Data.RatingsCount)
}

func TestReview_OnePerUserPerTour(t *testing.T) {
	server := setupTestServer(t)
	_, adminToken := registerTestUser(t, server, "admin@example.com", domain.RoleAdmin)
	_, userToken := registerTestUser(t, server, "reviewer@example.com", domain.RoleUser)
	tour := createTestTour(t, server, adminToken, "Popular Tour")

	w := doJSON(t, server, http.MethodPost, "/api/v1/tours/"+tour.ID+"/reviews", userToken, map[string]any{
		"text":   "First impression",
		"rating": 4,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, server, http.MethodPost, "/api/v1/tours/"+tour.ID+"/reviews", userToken, map[string]any{
		"text":   "Second thoughts",
		"rating": 2,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReview_AuthorOrAdminOnly(t *testing.T) {
	server := setupTestServer(t)
	_, adminToken := registerTestUser(t, server, "admin@example.com", domain.RoleAdmin)
	_, authorToken := registerTestUser(t, server, "author@example.com", domain.RoleUser)
	_, strangerToken := registerTestUser(t, server, "stranger@example.com", domain.RoleUser)
	tour := createTestTour(t, server, adminToken, "Contested Tour")

	w := doJSON(t, server, http.MethodPost, "/api/v1/tours/"+tour.ID+"/reviews", authorToken, map[string]any{
		"text":   "My honest opinion",
		"rating": 4,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	review := decodeEnvelope[ReviewResponse](t, w)

	// A stranger may neither edit nor delete.
	w = doJSON(t, server, http.MethodPatch, "/api/v1/reviews/"+review.Data.ID, strangerToken, map[string]any{
		"rating": 1,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, server, http.MethodDelete, "/api/v1/reviews/"+review.Data.ID, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Admins may.
	w = doJSON(t, server, http.MethodDelete, "/api/v1/reviews/"+review.Data.ID, adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestReview_ValidationAndMissingTour(t *testing.T) {
	server := setupTestServer(t)
	_, adminToken := registerTestUser(t, server, "admin@example.com", domain.RoleAdmin)
	_, userToken := registerTestUser(t, server, "reviewer@example.com", domain.RoleUser)
	tour := createTestTour(t, server, adminToken, "Strict Tour")

	// Rating outside 1..5.
	w := doJSON(t, server, http.MethodPost, "/api/v1/tours/"+tour.ID+"/reviews", userToken, map[string]any{
		"text":   "Too good",
		"rating": 6,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown tour.
	w = doJSON(t, server, http.MethodPost, "/api/v1/tours/tour_missing/reviews", userToken, map[string]any{
		"text":   "Ghost tour",
		"rating": 3,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
