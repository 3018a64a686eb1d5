package app

import (
	"fmt"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/fitpeak/fitpeak-api/config"
	"github.com/fitpeak/fitpeak-api/database"
	"github.com/fitpeak/fitpeak-api/handlers"
	"github.com/fitpeak/fitpeak-api/internal/options"
	"github.com/fitpeak/fitpeak-api/middleware/ratelimit"
	"github.com/fitpeak/fitpeak-api/server"
	"github.com/fitpeak/fitpeak-api/services/accesstoken"
	"github.com/fitpeak/fitpeak-api/services/auth"
	"github.com/fitpeak/fitpeak-api/services/devicetoken"
	"github.com/fitpeak/fitpeak-api/services/jwt"
	"github.com/fitpeak/fitpeak-api/services/logging"
	"github.com/fitpeak/fitpeak-api/services/mail"
	"github.com/fitpeak/fitpeak-api/services/refreshtoken"
	"github.com/fitpeak/fitpeak-api/services/revocation"
	"github.com/fitpeak/fitpeak-api/services/socialite"
	"github.com/fitpeak/fitpeak-api/services/user"
)

func WithConfig(cfg *config.Config) options.Option { return options.WithConfig(cfg) }

func WithMail() options.Option { return options.WithMail() }

func WithPusher(p devicetoken.Pusher) options.Option { return options.WithPusher(p) }

func WithModels(models ...any) options.Option { return options.WithModels(models...) }

func WithFxOptions(fxOpts ...any) options.Option { return options.WithFxOptions(fxOpts...) }

// New assembles the application: config, logging, database with every model
// migrated, the full service graph and the HTTP surface.
func New(opts ...options.Option) (*App, error) {
	settings := &options.Options{}
	for _, opt := range opts {
		opt(settings)
	}

	cfg := settings.Config
	if cfg == nil {
		cfg = &config.Config{}
		if err := config.LoadConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	models := []any{
		&user.User{},
		&accesstoken.AccessToken{},
		&refreshtoken.RefreshToken{},
		&devicetoken.DeviceToken{},
	}
	models = append(models, settings.ExtraModels...)

	application := &App{config: cfg}

	fxOptions := []fx.Option{
		config.NewProvider(cfg),
		logging.Module,
		fx.Supply(database.WithModels(models...)),
		database.Module,
		user.Module,
		jwt.Module,
		accesstoken.Module,
		refreshtoken.Module,
		revocation.Module,
		socialite.Module,
		devicetoken.Module,
		auth.Module,
		server.NewProvider(),
		handlers.Module,
		fx.NopLogger,
	}

	if settings.EnableMail {
		fxOptions = append(fxOptions, mail.Module)
	}

	if settings.Pusher != nil {
		pusher := settings.Pusher
		fxOptions = append(fxOptions, fx.Provide(func() devicetoken.Pusher {
			return pusher
		}))
	}

	if cfg.RateLimit.Enabled {
		fxOptions = append(fxOptions, fx.Provide(func() *ratelimit.Config {
			return &ratelimit.Config{
				Rate:   cfg.RateLimit.Rate,
				Period: cfg.RateLimit.Period,
			}
		}))
	}

	for _, extra := range settings.ExtraFxOptions {
		if opt, ok := extra.(fx.Option); ok {
			fxOptions = append(fxOptions, opt)
		}
	}

	fxOptions = append(fxOptions, fx.Invoke(func(logger *logging.Service, db *gorm.DB, srv *server.Server) {
		application.logger = logger
		application.db = db
		application.server = srv
	}))

	application.fx = fx.New(fxOptions...)

	return application, nil
}
