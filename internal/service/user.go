package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/tourhubapp/tourhub-server/internal/blob"
	"github.com/tourhubapp/tourhub-server/internal/domain"
	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
	"github.com/tourhubapp/tourhub-server/internal/media/images"
	"github.com/tourhubapp/tourhub-server/internal/query"
	"github.com/tourhubapp/tourhub-server/internal/store"
)

// UserService manages user accounts and profile photos. Password changes go
// through AuthService; this service never touches credentials.
type UserService struct {
	store  *store.Store
	auth   *AuthService
	blob   blob.Storage
	images *images.Processor
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	s *store.Store,
	authSvc *AuthService,
	storage blob.Storage,
	proc *images.Processor,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		store:  s,
		auth:   authSvc,
		blob:   storage,
		images: proc,
		logger: logger,
	}
}

// UpdateProfileRequest contains the fields a user may change on their own
// account. Everything else (role, active flag, password) has dedicated
// endpoints.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// AdminUpdateUserRequest contains the fields an admin may change on any
// account.
type AdminUpdateUserRequest struct {
	Name   *string      `json:"name,omitempty" validate:"omitempty,max=100"`
	Email  *string      `json:"email,omitempty" validate:"omitempty,email"`
	Role   *domain.Role `json:"role,omitempty"`
	Active *bool        `json:"active,omitempty"`
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// List returns a page of users selected by query parameters. Password
// fields are stripped from the result regardless of projection.
func (s *UserService) List(ctx context.Context, params url.Values) (*query.Result, error) {
	q, err := query.Parse(params)
	if err != nil {
		return nil, err
	}
	users, err := s.store.Users.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return query.Run(q, users)
}

// UpdateProfile applies a self-service profile update. Changing the email
// address resets verification and sends a fresh verification link.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	emailChanged := false
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil && *req.Email != user.Email {
		user.Email = *req.Email
		user.EmailVerified = false
		emailChanged = true
	}
	user.Touch()

	if err := s.store.Users.Update(ctx, userID, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	if emailChanged {
		s.auth.sendVerificationEmail(ctx, user)
	}
	return user, nil
}

// AdminUpdate applies an administrative update to any account.
func (s *UserService) AdminUpdate(ctx context.Context, userID string, req AdminUpdateUserRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}
	if req.Role != nil && !domain.ValidRole(*req.Role) {
		return nil, domainerrors.Validationf("invalid role %q", *req.Role)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil && *req.Email != user.Email {
		user.Email = *req.Email
		user.EmailVerified = false
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	user.Touch()

	if err := s.store.Users.Update(ctx, userID, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// Deactivate soft-deletes a user's own account. The record stays for
// bookings and reviews, but login and token verification stop working.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	user.Active = false
	user.Touch()
	if err := s.store.Users.Update(ctx, userID, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if err := s.auth.tokens.RevokeAll(ctx, userID, ""); err != nil {
		s.logger.Warn("failed to revoke tokens for deactivated user", "user_id", userID, "error", err)
	}
	s.logger.Info("user deactivated", "user_id", userID)
	return nil
}

// Delete removes a user account entirely, along with their reviews,
// bookings, photo and tokens. Admin-only.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}

	reviews, err := s.store.Reviews.ListByIndex(ctx, "user", userID)
	if err != nil {
		return fmt.Errorf("list user reviews: %w", err)
	}
	for _, r := range reviews {
		if err := s.store.Reviews.Delete(ctx, r.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete review %s: %w", r.ID, err)
		}
	}

	bookings, err := s.store.Bookings.ListByIndex(ctx, "user", userID)
	if err != nil {
		return fmt.Errorf("list user bookings: %w", err)
	}
	for _, b := range bookings {
		if err := s.store.Bookings.Delete(ctx, b.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete booking %s: %w", b.ID, err)
		}
	}

	if err := s.blob.DeletePrefix(ctx, "users/"+userID); err != nil {
		s.logger.Warn("failed to delete user media", "user_id", userID, "error", err)
	}
	if err := s.auth.tokens.RevokeAll(ctx, userID, ""); err != nil {
		s.logger.Warn("failed to revoke tokens for deleted user", "user_id", userID, "error", err)
	}

	if err := s.store.Users.Delete(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("user not found")
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.Info("user deleted", "user_id", userID,
		"reviews_removed", len(reviews), "bookings_removed", len(bookings))
	return nil
}

// UploadPhoto replaces a user's profile photo. The payload is re-encoded to
// a square JPEG before storage.
func (s *UserService) UploadPhoto(ctx context.Context, userID string, data []byte) (*domain.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	processed, err := s.images.Process(data, images.UserPhoto)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("users/%s/photo.jpg", userID)
	obj, err := s.blob.Upload(ctx, key, processed)
	if err != nil {
		return nil, fmt.Errorf("upload profile photo: %w", err)
	}

	user.PhotoKey = obj.Key
	user.PhotoURL = obj.Location
	user.Touch()
	if err := s.store.Users.Update(ctx, userID, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
