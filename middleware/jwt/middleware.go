package jwt

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fitpeak/fitpeak-api/services/accesstoken"
	"github.com/fitpeak/fitpeak-api/services/jwt"
	"github.com/fitpeak/fitpeak-api/services/user"
)

const (
	UserKey   = "_jwt_user"
	ClaimsKey = "_jwt_claims"
)

// RequireSession authenticates a request: the bearer token must carry a
// valid signature and its session must still be live. Every failure mode
// yields the same 401 so callers cannot probe which check rejected them.
func RequireSession(jwtService *jwt.Service, accessTokens *accesstoken.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			claims, err := jwtService.DecodeToken(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			session, err := accessTokens.ResolveSession(claims.JTI)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			c.Set(UserKey, &session.User)
			c.Set(ClaimsKey, claims)

			return next(c)
		}
	}
}

func GetUser(c echo.Context) *user.User {
	if u, ok := c.Get(UserKey).(*user.User); ok {
		return u
	}
	return nil
}

func GetClaims(c echo.Context) *jwt.Claims {
	if claims, ok := c.Get(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}
