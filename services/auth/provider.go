package auth

import (
	"go.uber.org/fx"

	"github.com/fitpeak/fitpeak-api/config"
	"github.com/fitpeak/fitpeak-api/services/accesstoken"
	"github.com/fitpeak/fitpeak-api/services/devicetoken"
	"github.com/fitpeak/fitpeak-api/services/logging"
	"github.com/fitpeak/fitpeak-api/services/mail"
	"github.com/fitpeak/fitpeak-api/services/refreshtoken"
	"github.com/fitpeak/fitpeak-api/services/revocation"
	"github.com/fitpeak/fitpeak-api/services/socialite"
	"github.com/fitpeak/fitpeak-api/services/user"
)

type Params struct {
	fx.In

	Config        *config.Config
	Users         *user.Service
	AccessTokens  *accesstoken.Service
	RefreshTokens *refreshtoken.Service
	Revocations   *revocation.Service
	DeviceTokens  *devicetoken.Service
	Social        *socialite.Registry
	Mail          *mail.Service `optional:"true"`
	Logger        *logging.Service
}

func ProvideAuthService(p Params) *Service {
	svc := NewService(
		p.Config,
		p.Users,
		p.AccessTokens,
		p.RefreshTokens,
		p.Revocations,
		p.DeviceTokens,
		p.Social,
		p.Logger,
	)
	if p.Mail != nil {
		svc.SetMailService(p.Mail)
	}
	return svc
}

var Module = fx.Options(
	fx.Provide(ProvideAuthService),
)
