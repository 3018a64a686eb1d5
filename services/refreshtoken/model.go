package refreshtoken

import (
	"time"

	"github.com/fitpeak/fitpeak-api/services/accesstoken"
)

// RefreshToken is the one-to-one companion of an AccessToken. The primary
// key is the opaque token value itself; clients only ever see its encrypted
// form. The row cascades away with its parent access token.
type RefreshToken struct {
	ID            string                  `json:"-" gorm:"primaryKey"`
	AccessTokenID string                  `json:"access_token_id" gorm:"not null;index"`
	AccessToken   accesstoken.AccessToken `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	IsRevoked     bool                    `json:"is_revoked" gorm:"default:false"`
	ExpiresAt     time.Time               `json:"expires_at" gorm:"not null;index"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
