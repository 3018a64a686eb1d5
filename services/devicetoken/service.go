package devicetoken

import (
	"errors"
	"fmt"

	"github.com/mileusna/useragent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitpeak/fitpeak-api/services/logging"
	"github.com/fitpeak/fitpeak-api/services/user"
)

// Pusher delivers push notifications to device tokens. Delivery is an
// external collaborator; this service only manages token registration.
type Pusher interface {
	Send(tokens []string, title, body string, data map[string]string) error
}

type RegisterInput struct {
	DeviceID   string
	DeviceType string
	Token      string
	UserAgent  string
}

type Service struct {
	db     *gorm.DB
	pusher Pusher
	logger *logging.Service
}

func NewService(db *gorm.DB, pusher Pusher, logger *logging.Service) *Service {
	return &Service{
		db:     db,
		pusher: pusher,
		logger: logger,
	}
}

// Register upserts the push token for (user, device). When the client does
// not state its device type, it is derived from the User-Agent header.
func (s *Service) Register(u *user.User, input RegisterInput) error {
	deviceType := input.DeviceType
	if deviceType == "" {
		deviceType = sniffDeviceType(input.UserAgent)
	}

	var existing DeviceToken
	err := s.db.Where("device_id = ? AND user_id = ?", input.DeviceID, u.ID).First(&existing).Error

	switch {
	case err == nil:
		existing.Token = input.Token
		existing.DeviceType = deviceType
		if err := s.db.Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update device token: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		token := DeviceToken{
			UserID:     u.ID,
			DeviceID:   input.DeviceID,
			DeviceType: deviceType,
			Token:      input.Token,
		}
		if err := s.db.Create(&token).Error; err != nil {
			return fmt.Errorf("failed to create device token: %w", err)
		}
	default:
		return fmt.Errorf("failed to look up device token: %w", err)
	}

	s.logger.Info("device token registered",
		zap.Uint("user_id", u.ID),
		zap.String("device_type", deviceType))
	return nil
}

func (s *Service) DeleteByDeviceID(deviceID string) error {
	result := s.db.Where("device_id = ?", deviceID).Delete(&DeviceToken{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete device token: %w", result.Error)
	}

	s.logger.Info("device token deleted",
		zap.String("device_id", deviceID),
		zap.Int64("affected_rows", result.RowsAffected))
	return nil
}

func (s *Service) TokensForUser(userID uint) ([]string, error) {
	var tokens []string
	err := s.db.Model(&DeviceToken{}).Where("user_id = ?", userID).Pluck("token", &tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query device tokens: %w", err)
	}
	return tokens, nil
}

// PushToUser sends a notification to every device the user has registered.
// Best effort: delivery failures are logged, not propagated.
func (s *Service) PushToUser(u *user.User, title, body string, data map[string]string) {
	if !u.IsNotificationOn || s.pusher == nil {
		return
	}

	tokens, err := s.TokensForUser(u.ID)
	if err != nil || len(tokens) == 0 {
		return
	}

	if err := s.pusher.Send(tokens, title, body, data); err != nil {
		s.logger.Error("push delivery failed", zap.Error(err), zap.Uint("user_id", u.ID))
	}
}

func sniffDeviceType(userAgent string) string {
	if userAgent == "" {
		return DeviceIOS
	}

	ua := useragent.Parse(userAgent)
	switch {
	case ua.OS == useragent.Android:
		return DeviceAndroid
	case ua.OS == useragent.IOS:
		return DeviceIOS
	case ua.Desktop:
		return DeviceWeb
	default:
		return DeviceIOS
	}
}
