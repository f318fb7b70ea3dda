package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tourhubapp/tourhub-server/internal/domain"
	domainerrors "github.com/tourhubapp/tourhub-server/internal/errors"
	"github.com/tourhubapp/tourhub-server/internal/id"
	"github.com/tourhubapp/tourhub-server/internal/store"
)

const (
	tokenIssuer   = "tourhub-server"
	tokenAudience = "tourhub-client"
)

// TTLs configures the lifetime of each token kind.
type TTLs struct {
	Access        time.Duration
	Refresh       time.Duration
	ResetPassword time.Duration
	VerifyEmail   time.Duration
}

// TokenService issues and verifies HMAC-SHA256 signed JWTs.
//
// Access tokens are stateless: the signature alone proves them. Every other
// kind is additionally persisted, so it can be revoked or consumed exactly
// once; a token whose record is gone fails verification no matter how valid
// its signature still is.
type TokenService struct {
	key    []byte
	tokens *store.Entity[domain.TokenRecord]
	ttls   TTLs
}

// NewTokenService creates a token service signing with the given key.
func NewTokenService(key []byte, s *store.Store, ttls TTLs) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("signing key must be exactly %d bytes, got %d", keyLength, len(key))
	}
	return &TokenService{
		key:    key,
		tokens: s.Tokens,
		ttls:   ttls,
	}, nil
}

// TTL returns the configured lifetime for a token kind.
func (s *TokenService) TTL(kind domain.TokenKind) time.Duration {
	switch kind {
	case domain.TokenAccess:
		return s.ttls.Access
	case domain.TokenRefresh:
		return s.ttls.Refresh
	case domain.TokenResetPassword:
		return s.ttls.ResetPassword
	case domain.TokenVerifyEmail:
		return s.ttls.VerifyEmail
	default:
		return 0
	}
}

// Issue creates a signed token of the given kind for the owner.
// Non-access kinds are persisted so they can later be revoked or consumed.
func (s *TokenService) Issue(ctx context.Context, ownerID string, kind domain.TokenKind) (string, error) {
	now := time.Now()
	expiresAt := now.Add(s.TTL(kind))

	tokenID, err := id.Generate("token")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   ownerID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        tokenID,
		},
		Kind: kind,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	if kind != domain.TokenAccess {
		record := &domain.TokenRecord{
			Record:    domain.Record{ID: tokenID},
			Value:     signed,
			OwnerID:   ownerID,
			Kind:      kind,
			ExpiresAt: expiresAt,
		}
		record.InitTimestamps()

		if err := s.tokens.Create(ctx, tokenID, record); err != nil {
			return "", fmt.Errorf("persist %s token: %w", kind, err)
		}
	}

	return signed, nil
}

// Verify checks a token's signature, expiry and kind. For persisted kinds
// the backing record must still exist; a revoked or already consumed token
// fails here even though its signature checks out.
//
// All failures except expiry collapse into ErrInvalidToken so callers can't
// learn which check rejected the credential.
func (s *TokenService) Verify(ctx context.Context, value string, kind domain.TokenKind) (*Claims, error) {
	claims, err := s.parse(value)
	if err != nil {
		return nil, err
	}

	if claims.Kind != kind {
		return nil, domainerrors.ErrInvalidToken
	}

	if kind != domain.TokenAccess {
		if _, err := s.lookup(ctx, value); err != nil {
			return nil, err
		}
	}

	return claims, nil
}

// Consume verifies a token and deletes its record in the same call, making
// it single use. Only persisted kinds can be consumed.
func (s *TokenService) Consume(ctx context.Context, value string, kind domain.TokenKind) (*Claims, error) {
	if kind == domain.TokenAccess {
		return nil, domainerrors.ErrInvalidToken
	}

	claims, err := s.parse(value)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, domainerrors.ErrInvalidToken
	}

	record, err := s.lookup(ctx, value)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Delete(ctx, record.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost the race with a concurrent consume.
			return nil, domainerrors.ErrInvalidToken
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "consume token")
	}

	return claims, nil
}

// Revoke deletes one persisted token without verifying it first.
// Revoking a token that is already gone is not an error.
func (s *TokenService) Revoke(ctx context.Context, value string) error {
	record, err := s.lookup(ctx, value)
	if err != nil {
		if errors.Is(err, domainerrors.ErrInvalidToken) {
			return nil
		}
		return err
	}

	if err := s.tokens.Delete(ctx, record.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "revoke token")
	}
	return nil
}

// RevokeAll deletes every persisted token of the given kind for an owner.
// An empty kind deletes all of the owner's tokens.
func (s *TokenService) RevokeAll(ctx context.Context, ownerID string, kind domain.TokenKind) error {
	records, err := s.tokens.ListByIndex(ctx, "owner", ownerID)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "list owner tokens")
	}

	for _, record := range records {
		if kind != "" && record.Kind != kind {
			continue
		}
		if err := s.tokens.Delete(ctx, record.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "revoke owner token")
		}
	}
	return nil
}

// PruneExpired deletes persisted records whose tokens can no longer verify.
// Run periodically so consumed-but-never-presented tokens don't accumulate.
func (s *TokenService) PruneExpired(ctx context.Context) (int, error) {
	records, err := s.tokens.All(ctx)
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeInternal, "list tokens")
	}

	var pruned int
	for _, record := range records {
		if !record.IsExpired() {
			continue
		}
		if err := s.tokens.Delete(ctx, record.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return pruned, domainerrors.Wrap(err, domainerrors.CodeInternal, "prune token")
		}
		pruned++
	}
	return pruned, nil
}

// parse validates the signature and registered claims of a signed token.
func (s *TokenService) parse(value string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(value, &claims,
		func(t *jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainerrors.ErrTokenExpired
		}
		return nil, domainerrors.ErrInvalidToken
	}
	return &claims, nil
}

// lookup finds the persisted record backing a signed value.
func (s *TokenService) lookup(ctx context.Context, value string) (*domain.TokenRecord, error) {
	record, err := s.tokens.GetByIndex(ctx, "value", value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.ErrInvalidToken
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "lookup token")
	}
	return record, nil
}
