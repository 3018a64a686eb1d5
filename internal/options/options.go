package options

import (
	"github.com/fitpeak/fitpeak-api/config"
	"github.com/fitpeak/fitpeak-api/services/devicetoken"
)

type Options struct {
	Config         *config.Config
	EnableMail     bool
	Pusher         devicetoken.Pusher
	ExtraModels    []any
	ExtraFxOptions []any
}

type Option func(*Options)

func WithConfig(cfg *config.Config) Option {
	return func(opts *Options) {
		opts.Config = cfg
	}
}

func WithMail() Option {
	return func(opts *Options) {
		opts.EnableMail = true
	}
}

func WithPusher(pusher devicetoken.Pusher) Option {
	return func(opts *Options) {
		opts.Pusher = pusher
	}
}

func WithModels(models ...any) Option {
	return func(opts *Options) {
		opts.ExtraModels = append(opts.ExtraModels, models...)
	}
}

func WithFxOptions(fxOpts ...any) Option {
	return func(opts *Options) {
		opts.ExtraFxOptions = append(opts.ExtraFxOptions, fxOpts...)
	}
}
