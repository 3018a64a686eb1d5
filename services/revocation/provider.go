package revocation

import (
	"github.com/fitpeak/fitpeak-api/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(ProvideRevocationService),
)

func ProvideRevocationService(db *gorm.DB, logger *logging.Service) *Service {
	return NewService(db, logger)
}
