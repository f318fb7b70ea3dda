package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/tourhubapp/tourhub-server/internal/domain"
)

// Claims is the JWT payload for every token kind the service issues.
// Subject carries the owner's user id; Kind distinguishes access tokens
// from refresh, reset-password and verify-email tokens so one kind can
// never be presented in place of another.
type Claims struct {
	jwt.RegisteredClaims
	Kind domain.TokenKind `json:"kind"`
}
