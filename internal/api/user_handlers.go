package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tourhubapp/tourhub-server/internal/domain"
	"github.com/tourhubapp/tourhub-server/internal/http/response"
	"github.com/tourhubapp/tourhub-server/internal/query"
	"github.com/tourhubapp/tourhub-server/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me",
		Summary:     "Get current user",
		Description: "Returns the authenticated user's profile",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCurrentUser",
		Method:      http.MethodPatch,
		Path:        "/api/v1/users/me",
		Summary:     "Update current user",
		Description: "Updates the authenticated user's name or email",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "deactivateCurrentUser",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/me",
		Summary:     "Deactivate account",
		Description: "Deactivates the authenticated user's account",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeactivateCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/users",
		Summary:     "List users",
		Description: "Returns a filtered, sorted, paginated page of users. Admin only.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}",
		Summary:     "Get user",
		Description: "Returns a user by ID. Admin only.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateUser",
		Method:      http.MethodPatch,
		Path:        "/api/v1/users/{id}",
		Summary:     "Update user",
		Description: "Updates any user's profile, role or active flag. Admin only.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteUser",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/{id}",
		Summary:     "Delete user",
		Description: "Removes a user and their reviews and bookings. Admin only.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteUser)

	// Photo uploads use chi directly for multipart form handling.
	s.router.Put("/api/v1/users/me/photo", s.handleUploadPhoto)
}

// === DTOs ===

// UserResponse contains user information in API responses.
type UserResponse struct {
	ID            string    `json:"id" doc:"User ID"`
	Name          string    `json:"name" doc:"Display name"`
	Email         string    `json:"email" doc:"Email address"`
	Role          string    `json:"role" doc:"Role (user, guide, lead-guide, admin)"`
	EmailVerified bool      `json:"email_verified" doc:"Whether the email address is verified"`
	Active        bool      `json:"active" doc:"Whether the account is active"`
	PhotoURL      string    `json:"photo_url,omitempty" doc:"Profile photo URL"`
	CreatedAt     time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt     time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// UserOutput wraps a single user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// CurrentUserInput identifies the caller.
type CurrentUserInput struct {
	Authorization string `header:"Authorization"`
}

// UpdateProfileRequest is the request body for self-service profile updates.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=100" doc:"Display name"`
	Email *string `json:"email,omitempty" validate:"omitempty,email" doc:"Email address"`
}

// UpdateCurrentUserInput wraps the profile update for Huma.
type UpdateCurrentUserInput struct {
	Authorization string `header:"Authorization"`
	Body          UpdateProfileRequest
}

// ListUsersInput contains parameters for listing users.
type ListUsersInput struct {
	Authorization string `header:"Authorization"`
	filterParams
}

// ListResultOutput wraps a query result page for Huma.
type ListResultOutput struct {
	Body query.Result
}

// GetUserInput contains parameters for fetching one user.
type GetUserInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"User ID"`
}

// AdminUpdateUserRequest is the request body for administrative user updates.
type AdminUpdateUserRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,max=100" doc:"Display name"`
	Email  *string `json:"email,omitempty" validate:"omitempty,email" doc:"Email address"`
	Role   *string `json:"role,omitempty" doc:"Role (user, guide, lead-guide, admin)"`
	Active *bool   `json:"active,omitempty" doc:"Whether the account is active"`
}

// UpdateUserInput wraps the admin update for Huma.
type UpdateUserInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"User ID"`
	Body          AdminUpdateUserRequest
}

// === Handlers ===

func (s *Server) handleGetCurrentUser(ctx context.Context, input *CurrentUserInput) (*UserOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUser(user)}, nil
}

func (s *Server) handleUpdateCurrentUser(ctx context.Context, input *UpdateCurrentUserInput) (*UserOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	updated, err := s.services.User.UpdateProfile(ctx, user.ID, service.UpdateProfileRequest{
		Name:  input.Body.Name,
		Email: input.Body.Email,
	})
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUser(updated)}, nil
}

func (s *Server) handleDeactivateCurrentUser(ctx context.Context, input *CurrentUserInput) (*MessageOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.User.Deactivate(ctx, user.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Account deactivated"}}, nil
}

func (s *Server) handleListUsers(ctx context.Context, input *ListUsersInput) (*ListResultOutput, error) {
	if _, err := s.requireRoles(ctx, input.Authorization, domain.RoleAdmin); err != nil {
		return nil, err
	}

	result, err := s.services.User.List(ctx, input.values)
	if err != nil {
		return nil, err
	}

	return &ListResultOutput{Body: *result}, nil
}

func (s *Server) handleGetUser(ctx context.Context, input *GetUserInput) (*UserOutput, error) {
	if _, err := s.requireRoles(ctx, input.Authorization, domain.RoleAdmin); err != nil {
		return nil, err
	}

	user, err := s.services.User.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUser(user)}, nil
}

func (s *Server) handleUpdateUser(ctx context.Context, input *UpdateUserInput) (*UserOutput, error) {
	if _, err := s.requireRoles(ctx, input.Authorization, domain.RoleAdmin); err != nil {
		return nil, err
	}

	req := service.AdminUpdateUserRequest{
		Name:   input.Body.Name,
		Email:  input.Body.Email,
		Active: input.Body.Active,
	}
	if input.Body.Role != nil {
		role := domain.Role(*input.Body.Role)
		req.Role = &role
	}

	user, err := s.services.User.AdminUpdate(ctx, input.ID, req)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUser(user)}, nil
}

func (s *Server) handleDeleteUser(ctx context.Context, input *GetUserInput) (*MessageOutput, error) {
	if _, err := s.requireRoles(ctx, input.Authorization, domain.RoleAdmin); err != nil {
		return nil, err
	}

	if err := s.services.User.Delete(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "User deleted"}}, nil
}

// handleUploadPhoto handles profile photo uploads.
// PUT /api/v1/users/me/photo
// Content-Type: multipart/form-data with "file" field
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := s.authenticateRequest(ctx, r.Header.Get("Authorization"))
	if err != nil {
		response.Unauthorized(w, "Invalid or expired token", s.logger)
		return
	}

	data, err := readUploadedFile(r)
	if err != nil {
		response.BadRequest(w, err.Error(), s.logger)
		return
	}

	updated, err := s.services.User.UploadPhoto(ctx, user.ID, data)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, mapUser(updated), s.logger)
}

// readUploadedFile extracts the "file" field from a multipart form.
func readUploadedFile(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		return nil, errors.New("failed to parse form data")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("no file uploaded, use 'file' field in multipart form")
	}
	defer file.Close()

	if header.Size > MaxUploadSize {
		return nil, errors.New("file too large, maximum size is 10MB")
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		return nil, errors.New("failed to read uploaded file")
	}
	return data, nil
}

// === Helpers ===

func mapUser(u *domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		Active:        u.Active,
		PhotoURL:      u.PhotoURL,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
