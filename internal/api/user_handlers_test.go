package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourhubapp/tourhub-server/internal/domain"
	"github.com/tourhubapp/tourhub-server/internal/query"
)

func TestCurrentUserProfile(t *testing.T) {
	server := setupTestServer(t)
	userID, token := registerTestUser(t, server, "profile@example.com", domain.RoleUser)

	w := doJSON(t, server, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decodeEnvelope[UserResponse](t, w)
	assert.Equal(t, userID, me.Data.ID)
	assert.Equal(t, "profile@example.com", me.Data.Email)

	// Rename.
	w = doJSON(t, server, http.MethodPatch, "/api/v1/users/me", token, map[string]any{
		"name": "New Name",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	renamed := decodeEnvelope[UserResponse](t, w)
	assert.Equal(t, "New Name", renamed.Data.Name)

	// Changing the email resets verification.
	w = doJSON(t, server, http.MethodPatch, "/api/v1/users/me", token, map[string]any{
		"email": "renamed@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	moved := decodeEnvelope[UserResponse](t, w)
	assert.Equal(t, "renamed@example.com", moved.Data.Email)
	assert.False(t, moved.Data.EmailVerified)
}

func TestDeactivateOwnAccount(t *testing.T) {
	server := setupTestServer(t)
	_, token := registerTestUser(t, server, "leaver@example.com", domain.RoleUser)

	w := doJSON(t, server, http.MethodDelete, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Deactivated accounts cannot log back in.
	w = doJSON(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    "leaver@example.com",
		"password": "correct-horse-battery",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminUserManagement(t *testing.T) {
	server := setupTestServer(t)
	_, adminToken := registerTestUser(t, server, "admin@example.com", domain.RoleAdmin)
	targetID, targetToken := registerTestUser(t, server, "target@example.com", domain.RoleUser)

	// Listing is admin-only and strips credential fields.
	w := doJSON(t, server, http.MethodGet, "/api/v1/users", targetToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, server, http.MethodGet, "/api/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	listed := decodeEnvelope[query.Result](t, w)
	assert.Equal(t, 2, listed.Data.Total)
	for _, item := range listed.Data.Items {
		assert.NotContains(t, item, "password_hash")
	}

	// Promote the target to guide.
	w = doJSON(t, server, http.MethodPatch, "/api/v1/users/"+targetID, adminToken, map[string]any{
		"role": "guide",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	promoted := decodeEnvelope[UserResponse](t, w)
	assert.Equal(t, "guide", promoted.Data.Role)

	// Invalid roles are rejected.
	w = doJSON(t, server, http.MethodPatch, "/api/v1/users/"+targetID, adminToken, map[string]any{
		"role": "superuser",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Hard delete.
	w = doJSON(t, server, http.MethodDelete, "/api/v1/users/"+targetID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, server, http.MethodGet, "/api/v1/users/"+targetID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
