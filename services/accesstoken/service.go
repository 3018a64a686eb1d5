package accesstoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fitpeak/fitpeak-api/services/jwt"
	"github.com/fitpeak/fitpeak-api/services/logging"
	"github.com/fitpeak/fitpeak-api/services/user"
)

const jtiByteLength = 32

var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrTokenGenerationFailed = errors.New("failed to generate session identifier")
)

// IssuedToken bundles the persisted record, the compact signed token and
// the claims it embeds.
type IssuedToken struct {
	Record *AccessToken
	Signed string
	Claims *jwt.Claims
}

type Service struct {
	db     *gorm.DB
	jwt    *jwt.Service
	logger *logging.Service
}

func NewService(db *gorm.DB, jwtService *jwt.Service, logger *logging.Service) *Service {
	return &Service{
		db:     db,
		jwt:    jwtService,
		logger: logger,
	}
}

// Issue mints a signed access token for the user and persists the matching
// session record. The record's expiry is copied from the signed token's exp
// claim so the two always agree.
func (s *Service) Issue(u *user.User) (*IssuedToken, error) {
	jti, err := generateJTI()
	if err != nil {
		s.logger.Error("failed to generate session identifier", zap.Error(err))
		return nil, ErrTokenGenerationFailed
	}

	signed, claims, err := s.jwt.GenerateToken(u.UID, jti)
	if err != nil {
		return nil, err
	}

	record := &AccessToken{
		ID:        jti,
		UserID:    u.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		CreatedAt: claims.IssuedAt.Time,
	}

	if err := s.db.Create(record).Error; err != nil {
		s.logger.Error("failed to store access token", zap.Error(err), zap.Uint("user_id", u.ID))
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}

	s.logger.Info("access token issued",
		zap.Uint("user_id", u.ID),
		zap.Time("expires_at", record.ExpiresAt))

	return &IssuedToken{Record: record, Signed: signed, Claims: claims}, nil
}

// ResolveSession looks up a live session: not expired, not revoked, and the
// owning user still active, verified and unblocked. Any miss collapses into
// ErrSessionNotFound; the reason is logged but never surfaced to callers.
func (s *Service) ResolveSession(jti string) (*AccessToken, error) {
	var token AccessToken
	err := s.db.
		Joins("JOIN users ON users.id = access_tokens.user_id").
		Where("access_tokens.id = ?", jti).
		Where("access_tokens.is_revoked = ?", false).
		Where("access_tokens.expires_at > ?", time.Now()).
		Where("users.is_blocked = ?", false).
		Where("users.deleted_at IS NULL").
		Where("users.verified_at IS NOT NULL").
		Preload("User").
		First(&token).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logSessionMiss(jti)
			return nil, ErrSessionNotFound
		}
		s.logger.Error("session lookup failed", zap.Error(err))
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	return &token, nil
}

func (s *Service) IsSessionValid(jti string) bool {
	_, err := s.ResolveSession(jti)
	return err == nil
}

// Revoke flips is_revoked on the session record. Upsert-style so the caller
// does not need the row's other fields; repeated calls are no-op successes.
func (s *Service) Revoke(jti string) error {
	result := s.db.Model(&AccessToken{}).Where("id = ?", jti).Update("is_revoked", true)
	if result.Error != nil {
		s.logger.Error("failed to revoke access token", zap.Error(result.Error))
		return fmt.Errorf("failed to revoke access token: %w", result.Error)
	}

	s.logger.Info("access token revoked", zap.Int64("affected_rows", result.RowsAffected))
	return nil
}

// RevokeAllForUser revokes every live session owned by the user. Used when
// an account is deleted or blocked.
func (s *Service) RevokeAllForUser(userID uint) error {
	result := s.db.Model(&AccessToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true)
	if result.Error != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", result.Error)
	}

	s.logger.Info("all user sessions revoked",
		zap.Uint("user_id", userID),
		zap.Int64("count", result.RowsAffected))
	return nil
}

// logSessionMiss records which condition rejected the session. Observability
// only; external callers always see a uniform unauthorized.
func (s *Service) logSessionMiss(jti string) {
	var token AccessToken
	err := s.db.Preload("User").First(&token, "id = ?", jti).Error
	if err != nil {
		s.logger.Debug("session validation failed", zap.String("reason", "unknown_jti"))
		return
	}

	reason := "user_ineligible"
	switch {
	case token.IsRevoked:
		reason = "revoked"
	case time.Now().After(token.ExpiresAt):
		reason = "expired"
	case token.User.IsBlocked:
		reason = "user_blocked"
	case !token.User.IsVerified():
		reason = "user_unverified"
	}

	s.logger.Debug("session validation failed",
		zap.String("reason", reason),
		zap.Uint("user_id", token.UserID))
}

func generateJTI() (string, error) {
	bytes := make([]byte, jtiByteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
