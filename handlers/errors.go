package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fitpeak/fitpeak-api/services/auth"
	"github.com/fitpeak/fitpeak-api/services/refreshtoken"
	"github.com/fitpeak/fitpeak-api/services/socialite"
	"github.com/fitpeak/fitpeak-api/services/user"
)

// httpError maps service sentinel errors onto HTTP statuses. Anything
// unrecognised is a 500 with a generic message so internals never leak.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, socialite.ErrVerificationFailed),
		errors.Is(err, refreshtoken.ErrRefreshTokenNotFound),
		errors.Is(err, refreshtoken.ErrRefreshTokenExpired),
		errors.Is(err, refreshtoken.ErrRefreshTokenRevoked),
		errors.Is(err, refreshtoken.ErrCiphertextInvalid):
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")

	case errors.Is(err, user.ErrEmailNotRegistered):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, user.ErrUserBlocked),
		errors.Is(err, user.ErrAccountDisabled),
		errors.Is(err, user.ErrSocialAccount):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())

	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrAlreadyVerified):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.Is(err, auth.ErrInvalidOTP),
		errors.Is(err, auth.ErrOTPExpired),
		errors.Is(err, auth.ErrPasswordReuse),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, socialite.ErrUnknownProvider):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}
