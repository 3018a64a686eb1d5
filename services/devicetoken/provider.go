package devicetoken

import (
	"github.com/fitpeak/fitpeak-api/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(ProvideDeviceTokenService),
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Pusher Pusher `optional:"true"`
	Logger *logging.Service
}

func ProvideDeviceTokenService(p Params) *Service {
	return NewService(p.DB, p.Pusher, p.Logger)
}
