package devicetoken

import (
	"time"

	"github.com/fitpeak/fitpeak-api/services/user"
)

const (
	DeviceIOS     = "ios"
	DeviceAndroid = "android"
	DeviceWeb     = "web"
)

type DeviceToken struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;index"`
	User       user.User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	DeviceID   string    `json:"device_id" gorm:"not null;index"`
	DeviceType string    `json:"device_type" gorm:"default:ios"`
	Token      string    `json:"token" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (DeviceToken) TableName() string {
	return "device_tokens"
}
