package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourhubapp/tourhub-server/internal/domain"
)

func TestAuthFlow(t *testing.T) {
	server := setupTestServer(t)

	// Register.
	w := doJSON(t, server, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	registered := decodeEnvelope[AuthResponse](t, w)
	require.True(t, registered.Success)
	assert.NotEmpty(t, registered.Data.AccessToken)
	assert.NotEmpty(t, registered.Data.RefreshToken)
	assert.Equal(t, "Bearer", registered.Data.TokenType)
	assert.Equal(t, "alice@example.com", registered.Data.User.Email)
	assert.Equal(t, "user", registered.Data.User.Role)
	assert.False(t, registered.Data.User.EmailVerified)

	// Login.
	w = doJSON(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "alice@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	loggedIn := decodeEnvelope[AuthResponse](t, w)
	require.True(t, loggedIn.Success)

	// The access token works against a protected route.
	w = doJSON(t, server, http.MethodGet, "/api/v1/users/me", loggedIn.Data.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decodeEnvelope[UserResponse](t, w)
	assert.Equal(t, "alice@example.com", me.Data.Email)

	// Refresh rotates the pair.
	w = doJSON(t, server, http.MethodPost, "/api/v1/auth/refresh", "", map[string]any{
		"refresh_token": loggedIn.Data.RefreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	refreshed := decodeEnvelope[AuthResponse](t, w)
	require.True(t, refreshed.Success)
	assert.NotEqual(t, loggedIn.Data.RefreshToken, refreshed.Data.RefreshToken)

	// Logout revokes the refresh token.
	w = doJSON(t, server, http.MethodPost, "/api/v1/auth/logout", "", map[string]any{
		"refresh_token": refreshed.Data.RefreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, server, http.MethodPost, "/api/v1/auth/refresh", "", map[string]any{
		"refresh_token": refreshed.Data.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	server := setupTestServer(t)

	registerTestUser(t, server, "bob@example.com", domain.RoleUser)

	w := doJSON(t, server, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name":     "Bob Again",
		"email":    "bob@example.com",
		"password": "another-password-1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	env := decodeEnvelope[struct{}](t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ALREADY_EXISTS", env.Error.Code)
}

func TestRegister_Validation(t *testing.T) {
	server := setupTestServer(t)

	tests := []struct {
		name           string
		body           map[string]any
		expectedStatus int
	}{
		// Missing fields are rejected by schema validation, bad values by
		// the service layer.
		{"missing email", map[string]any{"name": "X", "password": "long-enough-pw"}, http.StatusUnprocessableEntity},
		{"bad email", map[string]any{"name": "X", "email": "not-an-email", "password": "long-enough-pw"}, http.StatusBadRequest},
		{"short password", map[string]any{"name": "X", "email": "x@example.com", "password": "short"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, server, http.MethodPost, "/api/v1/auth/register", "", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	server := setupTestServer(t)

	registerTestUser(t, server, "carol@example.com", domain.RoleUser)

	w := doJSON(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "carol@example.com",
		"password": "definitely-wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	env := decodeEnvelope[struct{}](t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
}

func TestChangePassword(t *testing.T) {
	server := setupTestServer(t)

	_, token := registerTestUser(t, server, "dave@example.com", domain.RoleUser)

	w := doJSON(t, server, http.MethodPost, "/api/v1/auth/change-password", token, map[string]any{
		"current_password": "correct-horse-battery",
		"new_password":     "entirely-new-password",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Old password no longer works, new one does.
	w = doJSON(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "dave@example.com",
		"password": "correct-horse-battery",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "dave@example.com",
		"password": "entirely-new-password",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestForgotPassword_UnknownEmailDoesNotLeak(t *testing.T) {
	server := setupTestServer(t)

	w := doJSON(t, server, http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]any{
		"email": "ghost@example.com",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope[MessageResponse](t, w)
	assert.True(t, env.Success)
}

func TestProtectedRoute_BadTokens(t *testing.T) {
	server := setupTestServer(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
