package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tourhubapp/tourhub-server/internal/auth"
	"github.com/tourhubapp/tourhub-server/internal/domain"
	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
	"github.com/tourhubapp/tourhub-server/internal/id"
	"github.com/tourhubapp/tourhub-server/internal/mailer"
	"github.com/tourhubapp/tourhub-server/internal/store"
)

// AuthService handles registration, login, token rotation, password reset
// and email verification.
type AuthService struct {
	store     *store.Store
	tokens    *auth.TokenService
	mailer    mailer.Mailer
	logger    *slog.Logger
	publicURL string
}

// NewAuthService creates a new authentication service.
// publicURL is the base for links embedded in outgoing email.
func NewAuthService(
	s *store.Store,
	tokens *auth.TokenService,
	m mailer.Mailer,
	logger *slog.Logger,
	publicURL string,
) *AuthService {
	return &AuthService{
		store:     s,
		tokens:    tokens,
		mailer:    m,
		logger:    logger,
		publicURL: publicURL,
	}
}

// RegisterRequest contains user registration data.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest contains the refresh token being exchanged.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ForgotPasswordRequest names the account asking for a reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest carries a reset token and the new password.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

// ChangePasswordRequest lets a signed-in user rotate their password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=1024"`
}

// AuthResponse contains a token pair and the authenticated user.
type AuthResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"` // Access token lifetime in seconds
}

// Register creates a new user account and sends a verification email.
// Every self-registered account starts as a regular user; roles are
// assigned later by an admin.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		Record:       domain.Record{ID: userID},
		Email:        req.Email,
		Name:         req.Name,
		Role:         domain.RoleUser,
		PasswordHash: passwordHash,
		Active:       true,
		LastLoginAt:  time.Now(),
	}
	user.InitTimestamps()

	if err := s.store.Users.Create(ctx, userID, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Email side effects never roll back the registration.
	s.sendVerificationEmail(ctx, user)

	resp, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", userID, "email", user.Email)
	return resp, nil
}

// Login authenticates a user and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	user, err := s.store.Users.GetByIndex(ctx, "email", req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Don't leak whether email exists
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	if !user.Active {
		// A deactivated account answers like a wrong password.
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	// Update last login
	user.LastLoginAt = time.Now()
	user.Touch()
	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		// Log but don't fail login
		s.logger.WarnContext(ctx, "failed to update last login time",
			"user_id", user.ID,
			"error", err,
		)
	}

	resp, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return resp, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed, so each refresh token works exactly once (rotation).
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	claims, err := s.tokens.Consume(ctx, req.RefreshToken, domain.TokenRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.userForClaims(ctx, claims)
	if err != nil {
		return nil, err
	}

	return s.issuePair(ctx, user)
}

// Logout revokes the presented refresh token. Access tokens are stateless
// and simply age out.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

// ForgotPassword issues a reset token and emails it to the account.
// The response never reveals whether the email is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	user, err := s.store.Users.GetByIndex(ctx, "email", req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	token, err := s.tokens.Issue(ctx, user.ID, domain.TokenResetPassword)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			"Hi %s,\n\nUse the link below to set a new password. It expires in %s.\n\n%s/reset-password?token=%s\n\nIf you didn't ask for this, ignore this email.\n",
			user.Name, s.tokens.TTL(domain.TokenResetPassword), s.publicURL, token,
		),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset email sent", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
// Every outstanding refresh token of the account is revoked.
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	claims, err := s.tokens.Consume(ctx, req.Token, domain.TokenResetPassword)
	if err != nil {
		return err
	}

	user, err := s.store.Users.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.ErrInvalidToken
		}
		return fmt.Errorf("get user: %w", err)
	}

	return s.setPassword(ctx, user, req.Password)
}

// ChangePassword rotates the password of a signed-in user after checking
// the current one. Outstanding refresh tokens are revoked.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("user not found")
		}
		return fmt.Errorf("get user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.CurrentPassword)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return domainerrors.InvalidCredentials("current password is incorrect")
	}

	return s.setPassword(ctx, user, req.NewPassword)
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Consume(ctx, token, domain.TokenVerifyEmail)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Users.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	user.EmailVerified = true
	user.Touch()
	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "email verified", "user_id", user.ID)
	return user, nil
}

// ResendVerification issues a fresh verification token for an unverified
// account and emails it.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("user not found")
		}
		return fmt.Errorf("get user: %w", err)
	}

	if user.EmailVerified {
		return domainerrors.Conflict("email is already verified")
	}

	// Older unverified tokens become dead ends once a new one exists.
	if err := s.tokens.RevokeAll(ctx, user.ID, domain.TokenVerifyEmail); err != nil {
		return err
	}

	s.sendVerificationEmail(ctx, user)
	return nil
}

// Authenticate resolves a bearer access token to its user.
// Used by the API authentication middleware. The token must verify, the
// user must still exist and be active, and the password must not have
// changed since the token was issued.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.tokens.Verify(ctx, accessToken, domain.TokenAccess)
	if err != nil {
		return nil, err
	}

	return s.userForClaims(ctx, claims)
}

// issuePair creates a fresh access/refresh token pair for the user.
func (s *AuthService) issuePair(ctx context.Context, user *domain.User) (*AuthResponse, error) {
	accessToken, err := s.tokens.Issue(ctx, user.ID, domain.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.tokens.Issue(ctx, user.ID, domain.TokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.TTL(domain.TokenAccess).Seconds()),
	}, nil
}

// userForClaims loads and vets the claims' subject.
func (s *AuthService) userForClaims(ctx context.Context, claims *auth.Claims) (*domain.User, error) {
	user, err := s.store.Users.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.Active {
		return nil, domainerrors.ErrInvalidToken
	}

	if claims.IssuedAt != nil && user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, domainerrors.ErrInvalidToken
	}

	return user, nil
}

// setPassword stores a new password hash and invalidates older credentials.
func (s *AuthService) setPassword(ctx context.Context, user *domain.User, password string) error {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = passwordHash
	user.SetPasswordChanged()
	user.Touch()

	if err := s.store.Users.Update(ctx, user.ID, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if err := s.tokens.RevokeAll(ctx, user.ID, domain.TokenRefresh); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", user.ID)
	return nil
}

// sendVerificationEmail issues a verify-email token and mails the link.
// Failures are logged, never surfaced: the account stays usable and can
// re-request verification.
func (s *AuthService) sendVerificationEmail(ctx context.Context, user *domain.User) {
	token, err := s.tokens.Issue(ctx, user.ID, domain.TokenVerifyEmail)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue verification token",
			"user_id", user.ID,
			"error", err,
		)
		return
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: "Verify your email",
		Body: fmt.Sprintf(
			"Hi %s,\n\nWelcome aboard. Confirm your email address with the link below. It expires in %s.\n\n%s/verify-email?token=%s\n",
			user.Name, s.tokens.TTL(domain.TokenVerifyEmail), s.publicURL, token,
		),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification email",
			"user_id", user.ID,
			"error", err,
		)
	}
}
