package revocation

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitpeak/fitpeak-api/services/accesstoken"
	"github.com/fitpeak/fitpeak-api/services/logging"
	"github.com/fitpeak/fitpeak-api/services/refreshtoken"
)

// Service revokes an access token and its linked refresh token as a unit.
// A session is either fully revoked or not at all.
type Service struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewService(db *gorm.DB, logger *logging.Service) *Service {
	return &Service{db: db, logger: logger}
}

// RevokeSession marks the access token and its companion refresh token
// revoked inside one transaction. Idempotent: revoking an already-revoked
// session is a no-op success, and a missing refresh token row is treated
// as already revoked.
func (s *Service) RevokeSession(jti string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&accesstoken.AccessToken{}).
			Where("id = ?", jti).
			Update("is_revoked", true).Error; err != nil {
			return fmt.Errorf("failed to revoke access token: %w", err)
		}

		if err := tx.Model(&refreshtoken.RefreshToken{}).
			Where("access_token_id = ?", jti).
			Update("is_revoked", true).Error; err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}

		return nil
	})
	if err != nil {
		s.logger.Error("session revocation failed", zap.Error(err))
		return err
	}

	s.logger.Info("session revoked", zap.String("jti", jti))
	return nil
}

// RevokeAllUserSessions revokes every session pair owned by the user.
func (s *Service) RevokeAllUserSessions(userID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&refreshtoken.RefreshToken{}).
			Where("access_token_id IN (?)",
				tx.Model(&accesstoken.AccessToken{}).Select("id").Where("user_id = ?", userID)).
			Update("is_revoked", true).Error; err != nil {
			return fmt.Errorf("failed to revoke refresh tokens: %w", err)
		}

		if err := tx.Model(&accesstoken.AccessToken{}).
			Where("user_id = ?", userID).
			Update("is_revoked", true).Error; err != nil {
			return fmt.Errorf("failed to revoke access tokens: %w", err)
		}

		return nil
	})
	if err != nil {
		s.logger.Error("failed to revoke all user sessions", zap.Error(err), zap.Uint("user_id", userID))
		return err
	}

	s.logger.Info("all sessions revoked for user", zap.Uint("user_id", userID))
	return nil
}
