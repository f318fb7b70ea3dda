package providers

import (
	"github.com/samber/do/v2"

	"github.com/tourhubapp/tourhub-server/internal/blob"
	"github.com/tourhubapp/tourhub-server/internal/config"
	"github.com/tourhubapp/tourhub-server/internal/logger"
	"github.com/tourhubapp/tourhub-server/internal/mailer"
	"github.com/tourhubapp/tourhub-server/internal/media/images"
)

// ProvideBlobStorage provides filesystem-backed object storage for uploads.
// Objects land under the media path and are served from /media.
func ProvideBlobStorage(i do.Injector) (blob.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	storage, err := blob.NewFS(cfg.MediaPath(), cfg.Server.PublicURL+"/media")
	if err != nil {
		return nil, err
	}

	log.Info("Blob storage ready", "path", cfg.MediaPath())

	return storage, nil
}

// ProvideImageProcessor provides the image decode/resize/encode pipeline.
func ProvideImageProcessor(i do.Injector) (*images.Processor, error) {
	return images.NewProcessor(), nil
}

// ProvideMailer provides the outgoing mail transport. Without SMTP
// configuration emails are logged instead of sent.
func ProvideMailer(i do.Injector) (mailer.Mailer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	m := mailer.FromConfig(cfg.SMTP, log.Logger)
	if cfg.SMTP.Host == "" {
		log.Warn("No SMTP host configured, emails will be logged instead of sent")
	}

	return m, nil
}
