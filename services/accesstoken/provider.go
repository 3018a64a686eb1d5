package accesstoken

import (
	"github.com/fitpeak/fitpeak-api/services/jwt"
	"github.com/fitpeak/fitpeak-api/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(ProvideAccessTokenService),
)

func ProvideAccessTokenService(db *gorm.DB, jwtService *jwt.Service, logger *logging.Service) *Service {
	return NewService(db, jwtService, logger)
}
