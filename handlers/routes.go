package handlers

import (
	"go.uber.org/fx"

	jwtmw "github.com/fitpeak/fitpeak-api/middleware/jwt"
	"github.com/fitpeak/fitpeak-api/middleware/ratelimit"
	"github.com/fitpeak/fitpeak-api/server"
	"github.com/fitpeak/fitpeak-api/services/accesstoken"
	"github.com/fitpeak/fitpeak-api/services/jwt"
)

type RouteParams struct {
	fx.In

	Server       *server.Server
	Auth         *AuthHandler
	Devices      *DeviceHandler
	JWT          *jwt.Service
	AccessTokens *accesstoken.Service
	Limiter      *ratelimit.Config `optional:"true"`
}

// RegisterRoutes binds the REST surface. Credential endpoints sit behind
// the rate limiter; everything under /auth requires a live session.
func RegisterRoutes(p RouteParams) {
	api := p.Server.Group("/api/v1")

	public := api.Group("/auth")
	if p.Limiter != nil {
		public.Use(ratelimit.Middleware(p.Limiter))
	}
	public.POST("/register", p.Auth.Register)
	public.POST("/login", p.Auth.Login)
	public.POST("/verify", p.Auth.VerifyCode)
	public.POST("/resend-code", p.Auth.ResendVerificationCode)
	public.POST("/forgot-password", p.Auth.ForgotPassword)
	public.POST("/verify-reset-code", p.Auth.VerifyResetCode)
	public.POST("/reset-password", p.Auth.ResetPassword)
	public.POST("/social", p.Auth.SocialLogin)
	public.POST("/refresh", p.Auth.Refresh)

	protected := api.Group("", jwtmw.RequireSession(p.JWT, p.AccessTokens))
	protected.GET("/me", p.Auth.Me)
	protected.POST("/logout", p.Auth.Logout)
	protected.POST("/change-password", p.Auth.ChangePassword)
	protected.DELETE("/account", p.Auth.DeleteAccount)
	protected.POST("/devices", p.Devices.Register)
	protected.DELETE("/devices/:deviceID", p.Devices.Delete)
}

var Module = fx.Options(
	fx.Provide(NewAuthHandler),
	fx.Provide(NewDeviceHandler),
	fx.Invoke(RegisterRoutes),
)
