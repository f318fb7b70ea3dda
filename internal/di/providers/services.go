package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/tourhubapp/tourhub-server/internal/auth"
	"github.com/tourhubapp/tourhub-server/internal/blob"
	"github.com/tourhubapp/tourhub-server/internal/config"
	"github.com/tourhubapp/tourhub-server/internal/logger"
	"github.com/tourhubapp/tourhub-server/internal/mailer"
	"github.com/tourhubapp/tourhub-server/internal/media/images"
	"github.com/tourhubapp/tourhub-server/internal/service"
)

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	m := do.MustInvoke[mailer.Mailer](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokens, m, log.Logger, cfg.Server.PublicURL), nil
}

// ProvideTourService provides the tour catalog service and brings the
// search index in line with the store.
func ProvideTourService(i do.Injector) (*service.TourService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	storage := do.MustInvoke[blob.Storage](i)
	proc := do.MustInvoke[*images.Processor](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewTourService(storeHandle.Store, searchHandle.Index, storage, proc, log.Logger)

	// The store is the source of truth; rebuild whatever the index missed
	// while the server was down.
	if err := svc.SyncSearch(context.Background()); err != nil {
		log.Warn("Search index sync failed, geo and text search may lag", "error", err)
	}

	return svc, nil
}

// ProvideReviewService provides the review service.
func ProvideReviewService(i do.Injector) (*service.ReviewService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReviewService(storeHandle.Store, searchHandle.Index, log.Logger), nil
}

// ProvideBookingService provides the booking service.
func ProvideBookingService(i do.Injector) (*service.BookingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookingService(storeHandle.Store, log.Logger), nil
}

// ProvideUserService provides the user management service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	authService := do.MustInvoke[*service.AuthService](i)
	storage := do.MustInvoke[blob.Storage](i)
	proc := do.MustInvoke[*images.Processor](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, authService, storage, proc, log.Logger), nil
}
