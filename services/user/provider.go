package user

import (
	"github.com/fitpeak/fitpeak-api/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(ProvideUserService),
)

func ProvideUserService(db *gorm.DB, logger *logging.Service) *Service {
	return NewService(db, logger)
}
