package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourhubapp/tourhub-server/internal/auth"
	"github.com/tourhubapp/tourhub-server/internal/blob"
	"github.com/tourhubapp/tourhub-server/internal/domain"
	"github.com/tourhubapp/tourhub-server/internal/mailer"
	"github.com/tourhubapp/tourhub-server/internal/media/images"
	"github.com/tourhubapp/tourhub-server/internal/search"
	"github.com/tourhubapp/tourhub-server/internal/service"
	"github.com/tourhubapp/tourhub-server/internal/store"
)

// testEnvelope mirrors the wire envelope with a typed data field.
type testEnvelope[T any] struct {
	V       int       `json:"v"`
	Success bool      `json:"success"`
	Data    T         `json:"data"`
	Error   *APIError `json:"error"`
}

// setupTestServer builds a server backed by temp-dir storage with all
// services wired. Everything is cleaned up when the test finishes.
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	baseDir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	s, err := store.New(filepath.Join(baseDir, "store"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	idx, err := search.NewIndex(search.Options{DataPath: filepath.Join(baseDir, "search")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	storage, err := blob.NewFS(filepath.Join(baseDir, "media"), "http://localhost:8080/media")
	require.NoError(t, err)

	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(key, s, auth.TTLs{
		Access:        15 * time.Minute,
		Refresh:       30 * 24 * time.Hour,
		ResetPassword: 10 * time.Minute,
		VerifyEmail:   24 * time.Hour,
	})
	require.NoError(t, err)

	proc := images.NewProcessor()
	authService := service.NewAuthService(s, tokens, mailer.NewLog(logger), logger, "http://localhost:8080")

	services := &Services{
		Auth:    authService,
		Tour:    service.NewTourService(s, idx, storage, proc, logger),
		Review:  service.NewReviewService(s, idx, logger),
		Booking: service.NewBookingService(s, logger),
		User:    service.NewUserService(s, authService, storage, proc, logger),
	}

	return NewServer(s, services, filepath.Join(baseDir, "media"), logger)
}

// doJSON performs a request with an optional JSON body and bearer token.
func doJSON(t *testing.T, server *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

// decodeEnvelope unmarshals a response body into a typed envelope.
func decodeEnvelope[T any](t *testing.T, w *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()

	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return env
}

// registerTestUser registers a user through the API and returns its ID and
// access token. Non-default roles are applied directly in the store; role
// changes take effect immediately because every request reloads the user.
func registerTestUser(t *testing.T, server *Server, email string, role domain.Role) (userID, token string) {
	t.Helper()

	w := doJSON(t, server, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name":     strings.SplitN(email, "@", 2)[0],
		"email":    email,
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, w.Code, "register failed: %s", w.Body.String())

	env := decodeEnvelope[AuthResponse](t, w)
	require.True(t, env.Success)
	require.NotEmpty(t, env.Data.AccessToken)

	userID = env.Data.User.ID
	if role != domain.RoleUser {
		ctx := context.Background()
		user, err := server.store.Users.Get(ctx, userID)
		require.NoError(t, err)
		user.Role = role
		require.NoError(t, server.store.Users.Update(ctx, userID, user))
	}

	return userID, env.Data.AccessToken
}

// createTestTour creates a tour through the API as the given privileged user.
func createTestTour(t *testing.T, server *Server, token, name string) TourResponse {
	t.Helper()

	w := doJSON(t, server, http.MethodPost, "/api/v1/tours", token, map[string]any{
		"name":           name,
		"duration":       5,
		"max_group_size": 10,
		"difficulty":     "medium",
		"price":          497,
		"summary":        "A tour for testing",
		"start_location": map[string]any{
			"description": "Banff, CA",
			"lat":         51.1784,
			"lng":         -115.5708,
		},
	})
	require.Equal(t, http.StatusOK, w.Code, "create tour failed: %s", w.Body.String())

	env := decodeEnvelope[TourResponse](t, w)
	require.True(t, env.Success)
	return env.Data
}

func TestHealthCheck(t *testing.T) {
	server := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope[HealthResponse](t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", env.Data.Status)
	assert.Contains(t, env.Data.Components, "database")
	assert.Contains(t, env.Data.Components, "search")
}

func TestServer_Routes(t *testing.T) {
	server := setupTestServer(t)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"health check", http.MethodGet, "/health", http.StatusOK},
		{"public tour list", http.MethodGet, "/api/v1/tours", http.StatusOK},
		{"public review list", http.MethodGet, "/api/v1/reviews", http.StatusOK},
		{"unknown path", http.MethodGet, "/api/v1/nonexistent", http.StatusNotFound},
		{"missing tour", http.MethodGet, "/api/v1/tours/tour_missing", http.StatusNotFound},
		{"bookings need auth", http.MethodGet, "/api/v1/bookings", http.StatusUnauthorized},
		{"profile needs auth", http.MethodGet, "/api/v1/users/me", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, server, tt.method, tt.path, "", nil)
			assert.Equal(t, tt.expectedStatus, w.Code, "body: %s", w.Body.String())
		})
	}
}

func TestServer_EnvelopeShape(t *testing.T) {
	server := setupTestServer(t)

	t.Run("success", func(t *testing.T) {
		w := doJSON(t, server, http.MethodGet, "/api/v1/tours", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
		assert.Equal(t, float64(envelopeVersion), raw["v"])
		assert.Equal(t, true, raw["success"])
		assert.Contains(t, raw, "data")
		assert.NotContains(t, raw, "error")
	})

	t.Run("error", func(t *testing.T) {
		w := doJSON(t, server, http.MethodGet, "/api/v1/tours/tour_missing", "", nil)
		require.Equal(t, http.StatusNotFound, w.Code)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
		assert.Equal(t, false, raw["success"])

		errObj, ok := raw["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "NOT_FOUND", errObj["code"])
		assert.NotEmpty(t, errObj["message"])
	})
}

func TestAuthRateLimit(t *testing.T) {
	server := setupTestServer(t)

	// The limiter only guards credential endpoints, so burn the burst with
	// failed logins and verify other routes stay reachable.
	var limited bool
	for i := range 15 {
		w := doJSON(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
			"email":    fmt.Sprintf("nobody%d@example.com", i),
			"password": "wrong-password",
		})
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	assert.True(t, limited, "expected a 429 after exhausting the burst")

	w := doJSON(t, server, http.MethodGet, "/api/v1/tours", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
