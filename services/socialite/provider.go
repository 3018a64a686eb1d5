package socialite

import (
	"github.com/fitpeak/fitpeak-api/config"
	"github.com/fitpeak/fitpeak-api/services/logging"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(ProvideRegistry),
)

func ProvideRegistry(cfg *config.Config, logger *logging.Service) *Registry {
	registry := NewRegistry()
	registry.Register(ProviderGoogle, NewGoogleVerifier(cfg.Social.GoogleClientIDs, logger))
	registry.Register(ProviderApple, NewAppleVerifier(cfg.Social.AppleClientIDs, logger))
	return registry
}
