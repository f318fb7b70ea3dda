package api

import (
	"context"
	"net/url"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tourhubapp/tourhub-server/internal/domain"
	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
)

// authenticateRequest validates the Authorization header and returns the
// authenticated user.
func (s *Server) authenticateRequest(ctx context.Context, authHeader string) (*domain.User, error) {
	if authHeader == "" {
		return nil, huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, huma.Error401Unauthorized("Invalid authorization header format")
	}

	user, err := s.services.Auth.Authenticate(ctx, parts[1])
	if err != nil {
		return nil, huma.Error401Unauthorized("Invalid or expired token")
	}

	return user, nil
}

// requireRoles validates the token and requires one of the given roles.
func (s *Server) requireRoles(ctx context.Context, authHeader string, roles ...domain.Role) (*domain.User, error) {
	user, err := s.authenticateRequest(ctx, authHeader)
	if err != nil {
		return nil, err
	}

	for _, role := range roles {
		if user.Role == role {
			return user, nil
		}
	}
	return nil, domainerrors.Forbidden("You do not have permission to perform this action")
}

// filterParams captures the raw query string for list endpoints so filter
// operators like price[gte] survive huma's typed parameter parsing.
type filterParams struct {
	values url.Values
}

// Resolve implements huma.Resolver.
func (p *filterParams) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	p.values = u.Query()
	return nil
}
