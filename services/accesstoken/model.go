package accesstoken

import (
	"time"

	"github.com/fitpeak/fitpeak-api/services/user"
)

// AccessToken represents one authenticated session. The primary key is the
// jti embedded in the signed token; it is generated in process, never by
// the database. ExpiresAt is copied from the signed token's exp claim.
type AccessToken struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	User      user.User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	IsRevoked bool      `json:"is_revoked" gorm:"default:false"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AccessToken) TableName() string {
	return "access_tokens"
}
