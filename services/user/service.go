package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitpeak/fitpeak-api/services/logging"
	"go.uber.org/zap"
)

var (
	ErrEmailNotRegistered = errors.New("email is not registered")
	ErrUserBlocked        = errors.New("user has been blocked by an administrator")
	ErrAccountDisabled    = errors.New("account has been disabled")
	ErrSocialAccount      = errors.New("email is associated with a social login provider")
	ErrUserNotFound       = errors.New("user not found")
)

type Service struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewService(db *gorm.DB, logger *logging.Service) *Service {
	return &Service{db: db, logger: logger}
}

// NormalizeEmail lower-cases and trims an address. All lookups and writes
// go through this so email uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) ByEmail(email string) (*User, error) {
	var u User
	err := s.db.Where("email = ?", NormalizeEmail(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	return &u, nil
}

// ByEmailIncludingDeleted also matches soft-deleted rows. Registration and
// social login need to see disabled accounts to reject them explicitly.
func (s *Service) ByEmailIncludingDeleted(email string) (*User, error) {
	var u User
	err := s.db.Unscoped().Where("email = ?", NormalizeEmail(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	return &u, nil
}

func (s *Service) ByID(id uint) (*User, error) {
	var u User
	err := s.db.First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user by id: %w", err)
	}
	return &u, nil
}

func (s *Service) ByUID(uid string) (*User, error) {
	var u User
	err := s.db.Where("uid = ?", uid).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user by uid: %w", err)
	}
	return &u, nil
}

func (s *Service) ByProvider(providerType, providerID string) (*User, error) {
	var u User
	err := s.db.Where("provider_type = ? AND provider_id = ?", providerType, providerID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user by provider: %w", err)
	}
	return &u, nil
}

// EligibleByEmail resolves a user for password-based flows, classifying
// why an account cannot be used: unknown, blocked, soft-deleted or bound
// to a social provider.
func (s *Service) EligibleByEmail(email string) (*User, error) {
	u, err := s.ByEmailIncludingDeleted(email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrEmailNotRegistered
	}
	if u.IsBlocked {
		s.logger.Warn("blocked user attempted password flow", zap.Uint("user_id", u.ID))
		return nil, ErrUserBlocked
	}
	if u.DeletedAt.Valid {
		return nil, ErrAccountDisabled
	}
	if u.IsSocial() {
		return nil, fmt.Errorf("%w: %s", ErrSocialAccount, *u.ProviderType)
	}
	return u, nil
}

func (s *Service) Create(u *User) error {
	if u.UID == "" {
		u.UID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)

	if err := s.db.Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", zap.Uint("user_id", u.ID), zap.String("uid", u.UID))
	return nil
}

func (s *Service) Update(id uint, fields map[string]any) error {
	if err := s.db.Model(&User{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// SetVerificationCode overwrites any outstanding verification code. A user
// holds at most one outstanding code; issuing a new one invalidates the old.
func (s *Service) SetVerificationCode(id uint, code string, expiresAt time.Time) error {
	return s.Update(id, map[string]any{
		"verification_code":            code,
		"verification_code_expired_at": expiresAt,
		"verified_at":                  nil,
	})
}

func (s *Service) SetForgotPasswordCode(id uint, code string, expiresAt time.Time) error {
	return s.Update(id, map[string]any{
		"forgot_password_code":            code,
		"forgot_password_code_expired_at": expiresAt,
	})
}

// ConsumeVerificationCode atomically clears the verification code and marks
// the user verified, conditioned on the stored code still matching and not
// having expired. The affected-rows check makes concurrent submissions race
// safely: exactly one wins.
func (s *Service) ConsumeVerificationCode(id uint, code string, now time.Time) (bool, error) {
	result := s.db.Model(&User{}).
		Where("id = ? AND verification_code = ? AND verification_code_expired_at > ?", id, code, now).
		Updates(map[string]any{
			"verification_code":            nil,
			"verification_code_expired_at": nil,
			"verified_at":                  now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to consume verification code: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *Service) ConsumeForgotPasswordCode(id uint, code string, now time.Time) (bool, error) {
	result := s.db.Model(&User{}).
		Where("id = ? AND forgot_password_code = ? AND forgot_password_code_expired_at > ?", id, code, now).
		Updates(map[string]any{
			"forgot_password_code":            nil,
			"forgot_password_code_expired_at": nil,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to consume forgot password code: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// SetPassword stores a new hash and clears any residual forgot-password
// code in the same write.
func (s *Service) SetPassword(id uint, passwordHash string) error {
	return s.Update(id, map[string]any{
		"password":                        passwordHash,
		"forgot_password_code":            nil,
		"forgot_password_code_expired_at": nil,
	})
}

func (s *Service) SoftDelete(id uint) error {
	result := s.db.Delete(&User{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	s.logger.Info("user soft-deleted", zap.Uint("user_id", id))
	return nil
}
