package domain

import "time"

// TokenKind tags an issued credential with its purpose.
type TokenKind string

const (
	// TokenAccess is a short-lived bearer credential. Never persisted.
	TokenAccess TokenKind = "access"
	// TokenRefresh exchanges for new token pairs. Deleted on logout.
	TokenRefresh TokenKind = "refresh"
	// TokenResetPassword authorizes a single password reset.
	TokenResetPassword TokenKind = "reset-password"
	// TokenVerifyEmail confirms ownership of an email address once.
	TokenVerifyEmail TokenKind = "verify-email"
)

// TokenRecord is the persisted side of a non-access token.
// The signed value itself is the lookup key; a missing record means the
// token was consumed or revoked.
type TokenRecord struct {
	Record
	Value     string    `json:"value"`
	OwnerID   string    `json:"owner_id"`
	Kind      TokenKind `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the record has passed its expiration time.
func (t *TokenRecord) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
