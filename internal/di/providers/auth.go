package providers

import (
	"github.com/samber/do/v2"

	"github.com/tourhubapp/tourhub-server/internal/auth"
	"github.com/tourhubapp/tourhub-server/internal/config"
	"github.com/tourhubapp/tourhub-server/internal/logger"
)

// AuthKey wraps the token signing key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the token signing key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	// Update config with the loaded key
	cfg.Auth.SigningKey = key

	log.Info("Token signing key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
		"refresh_token_duration", cfg.Auth.RefreshTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the JWT token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return auth.NewTokenService([]byte(authKey), storeHandle.Store, auth.TTLs{
		Access:        cfg.Auth.AccessTokenDuration,
		Refresh:       cfg.Auth.RefreshTokenDuration,
		ResetPassword: cfg.Auth.ResetTokenDuration,
		VerifyEmail:   cfg.Auth.VerifyTokenDuration,
	})
}
