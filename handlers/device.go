package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	jwtmw "github.com/fitpeak/fitpeak-api/middleware/jwt"
	"github.com/fitpeak/fitpeak-api/services/devicetoken"
)

type DeviceHandler struct {
	deviceTokens *devicetoken.Service
}

func NewDeviceHandler(deviceTokens *devicetoken.Service) *DeviceHandler {
	return &DeviceHandler{deviceTokens: deviceTokens}
}

type registerDeviceRequest struct {
	DeviceID   string `json:"device_id"`
	DeviceType string `json:"device_type"`
	Token      string `json:"token"`
}

func (h *DeviceHandler) Register(c echo.Context) error {
	var req registerDeviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.DeviceID == "" || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "device_id and token are required")
	}

	u := jwtmw.GetUser(c)
	if u == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	err := h.deviceTokens.Register(u, devicetoken.RegisterInput{
		DeviceID:   req.DeviceID,
		DeviceType: req.DeviceType,
		Token:      req.Token,
		UserAgent:  c.Request().UserAgent(),
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "device registered"})
}

func (h *DeviceHandler) Delete(c echo.Context) error {
	deviceID := c.Param("deviceID")
	if deviceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "device id required")
	}

	if u := jwtmw.GetUser(c); u == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	if err := h.deviceTokens.DeleteByDeviceID(deviceID); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "device removed"})
}
