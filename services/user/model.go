package user

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)

type User struct {
	ID                          uint           `json:"id" gorm:"primaryKey"`
	UID                         string         `json:"uid" gorm:"uniqueIndex;not null"`
	Email                       string         `json:"email" gorm:"uniqueIndex;not null"`
	Password                    *string        `json:"-"`
	Role                        string         `json:"role" gorm:"default:user"`
	FullName                    string         `json:"full_name"`
	VerificationCode            *string        `json:"-"`
	VerificationCodeExpiredAt   *time.Time     `json:"-"`
	VerifiedAt                  *time.Time     `json:"verified_at"`
	ForgotPasswordCode          *string        `json:"-"`
	ForgotPasswordCodeExpiredAt *time.Time     `json:"-"`
	IsBlocked                   bool           `json:"is_blocked" gorm:"default:false"`
	IsNotificationOn            bool           `json:"is_notification_on" gorm:"default:true"`
	IsFirstTimeUser             bool           `json:"is_first_time_user" gorm:"default:true"`
	ProviderType                *string        `json:"provider_type"`
	ProviderID                  *string        `json:"-"`
	CreatedAt                   time.Time      `json:"created_at"`
	UpdatedAt                   time.Time      `json:"updated_at"`
	DeletedAt                   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// IsSocial reports whether the account is bound to a social identity
// provider and therefore has no usable password.
func (u *User) IsSocial() bool {
	return u.ProviderType != nil && u.ProviderID != nil
}

func (u *User) IsVerified() bool {
	return u.VerifiedAt != nil
}
