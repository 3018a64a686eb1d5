package refreshtoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitpeak/fitpeak-api/config"
	"github.com/fitpeak/fitpeak-api/services/jwt"
	"github.com/fitpeak/fitpeak-api/services/logging"
)

const tokenByteLength = 64

var (
	ErrRefreshTokenNotFound  = errors.New("refresh token not found")
	ErrRefreshTokenExpired   = errors.New("refresh token expired")
	ErrRefreshTokenRevoked   = errors.New("refresh token has been revoked")
	ErrTokenGenerationFailed = errors.New("failed to generate secure token")
)

type Service struct {
	db     *gorm.DB
	config *config.Config
	cipher *Cipher
	logger *logging.Service
}

func NewService(db *gorm.DB, cfg *config.Config, cipher *Cipher, logger *logging.Service) *Service {
	logger.Info("initializing refresh token service",
		zap.Duration("grace_window", cfg.RefreshToken.GraceWindow),
		zap.Duration("cleanup_interval", cfg.RefreshToken.CleanupInterval))

	return &Service{
		db:     db,
		config: cfg,
		cipher: cipher,
		logger: logger,
	}
}

// Issue creates the refresh token companion for a freshly issued access
// token. Its expiry is the access token's expiry plus the configured grace
// window, so it always strictly outlives its parent. The returned value is
// the encrypted form of the storage id.
func (s *Service) Issue(claims *jwt.Claims) (string, error) {
	if s.cipher == nil {
		return "", ErrCipherNotConfigured
	}

	id, err := generateOpaqueToken()
	if err != nil {
		s.logger.Error("failed to generate refresh token", zap.Error(err))
		return "", ErrTokenGenerationFailed
	}

	token := RefreshToken{
		ID:            id,
		AccessTokenID: claims.JTI,
		ExpiresAt:     claims.ExpiresAt.Time.Add(s.config.RefreshToken.GraceWindow),
	}

	if err := s.db.Create(&token).Error; err != nil {
		s.logger.Error("failed to store refresh token", zap.Error(err))
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	encrypted, err := s.cipher.Encrypt(id)
	if err != nil {
		return "", err
	}

	s.logger.Info("refresh token issued", zap.Time("expires_at", token.ExpiresAt))
	return encrypted, nil
}

// Resolve decrypts a client-supplied refresh token and loads its record
// together with the parent access token. Revoked and expired tokens are
// rejected with distinct sentinels.
func (s *Service) Resolve(encrypted string) (*RefreshToken, error) {
	if s.cipher == nil {
		return nil, ErrCipherNotConfigured
	}

	id, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		s.logger.Warn("refresh token decryption failed")
		return nil, ErrRefreshTokenNotFound
	}

	var token RefreshToken
	err = s.db.Preload("AccessToken").Where("id = ?", id).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to resolve refresh token: %w", err)
	}

	if token.IsRevoked {
		s.logger.Warn("revoked refresh token presented", zap.String("jti", token.AccessTokenID))
		return nil, ErrRefreshTokenRevoked
	}

	if time.Now().After(token.ExpiresAt) {
		return nil, ErrRefreshTokenExpired
	}

	return &token, nil
}

// RevokeByJTI revokes the refresh token owned by the given access token.
// A missing row is not an error: a refresh token may never have been issued
// for that session, which counts as already revoked.
func (s *Service) RevokeByJTI(jti string) error {
	result := s.db.Model(&RefreshToken{}).
		Where("access_token_id = ?", jti).
		Update("is_revoked", true)
	if result.Error != nil {
		s.logger.Error("failed to revoke refresh token", zap.Error(result.Error))
		return fmt.Errorf("failed to revoke refresh token: %w", result.Error)
	}

	s.logger.Info("refresh token revoked",
		zap.String("jti", jti),
		zap.Int64("affected_rows", result.RowsAffected))
	return nil
}

func (s *Service) CleanupExpiredTokens() error {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&RefreshToken{})
	if result.Error != nil {
		s.logger.Error("failed to cleanup expired refresh tokens", zap.Error(result.Error))
		return fmt.Errorf("failed to cleanup expired tokens: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Info("cleaned up expired refresh tokens", zap.Int64("count", result.RowsAffected))
	}
	return nil
}

func (s *Service) StartCleanupWorker() {
	go func() {
		ticker := time.NewTicker(s.config.RefreshToken.CleanupInterval)
		defer ticker.Stop()

		for range ticker.C {
			if err := s.CleanupExpiredTokens(); err != nil {
				s.logger.Error("refresh token cleanup worker failed", zap.Error(err))
			}
		}
	}()

	s.logger.Info("started refresh token cleanup worker",
		zap.Duration("interval", s.config.RefreshToken.CleanupInterval))
}

func generateOpaqueToken() (string, error) {
	bytes := make([]byte, tokenByteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
