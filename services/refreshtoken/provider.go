package refreshtoken

import (
	"github.com/fitpeak/fitpeak-api/config"
	"github.com/fitpeak/fitpeak-api/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(ProvideCipher),
	fx.Provide(ProvideRefreshTokenService),
)

func ProvideCipher(cfg *config.Config) (*Cipher, error) {
	return NewCipher(cfg.RefreshToken.EncryptionKey, cfg.RefreshToken.EncryptionIV)
}

func ProvideRefreshTokenService(db *gorm.DB, cfg *config.Config, cipher *Cipher, logger *logging.Service) *Service {
	service := NewService(db, cfg, cipher, logger)

	if cfg.RefreshToken.CleanupInterval > 0 {
		service.StartCleanupWorker()
	}

	return service
}
