package devicetoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fitpeak/fitpeak-api/services/user"
	"github.com/fitpeak/fitpeak-api/testutils"
)

const (
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

func setupDeviceTokenService(t *testing.T, pusher Pusher) (*Service, *user.Service, *gorm.DB) {
	db := testutils.SetupTestDB(t, &user.User{}, &DeviceToken{})
	return NewService(db, pusher, nil), user.NewService(db, nil), db
}

func createUser(t *testing.T, users *user.Service, email string, notificationsOn bool) *user.User {
	now := time.Now()
	u := &user.User{Email: email, VerifiedAt: &now, IsNotificationOn: notificationsOn}
	require.NoError(t, users.Create(u))
	return u
}

func TestRegister(t *testing.T) {
	t.Run("creates a token row", func(t *testing.T) {
		service, users, db := setupDeviceTokenService(t, nil)
		u := createUser(t, users, "reg@example.com", true)

		err := service.Register(u, RegisterInput{
			DeviceID:   "device-1",
			DeviceType: DeviceAndroid,
			Token:      "push-token-1",
		})
		require.NoError(t, err)

		var record DeviceToken
		require.NoError(t, db.First(&record, "device_id = ?", "device-1").Error)
		assert.Equal(t, u.ID, record.UserID)
		assert.Equal(t, DeviceAndroid, record.DeviceType)
		assert.Equal(t, "push-token-1", record.Token)
	})

	t.Run("re-registering the same device updates in place", func(t *testing.T) {
		service, users, db := setupDeviceTokenService(t, nil)
		u := createUser(t, users, "upsert@example.com", true)

		require.NoError(t, service.Register(u, RegisterInput{
			DeviceID: "device-2", DeviceType: DeviceIOS, Token: "old-token",
		}))
		require.NoError(t, service.Register(u, RegisterInput{
			DeviceID: "device-2", DeviceType: DeviceIOS, Token: "new-token",
		}))

		var count int64
		db.Model(&DeviceToken{}).Where("device_id = ?", "device-2").Count(&count)
		assert.EqualValues(t, 1, count)

		var record DeviceToken
		require.NoError(t, db.First(&record, "device_id = ?", "device-2").Error)
		assert.Equal(t, "new-token", record.Token)
	})

	t.Run("sniffs the device type from the user agent", func(t *testing.T) {
		service, users, db := setupDeviceTokenService(t, nil)
		u := createUser(t, users, "sniff@example.com", true)

		cases := []struct {
			deviceID  string
			userAgent string
			want      string
		}{
			{"sniff-ios", iphoneUA, DeviceIOS},
			{"sniff-android", androidUA, DeviceAndroid},
			{"sniff-web", desktopUA, DeviceWeb},
			{"sniff-empty", "", DeviceIOS},
		}

		for _, tc := range cases {
			require.NoError(t, service.Register(u, RegisterInput{
				DeviceID:  tc.deviceID,
				Token:     "token",
				UserAgent: tc.userAgent,
			}))

			var record DeviceToken
			require.NoError(t, db.First(&record, "device_id = ?", tc.deviceID).Error)
			assert.Equal(t, tc.want, record.DeviceType, "device %s", tc.deviceID)
		}
	})

	t.Run("explicit device type wins over the user agent", func(t *testing.T) {
		service, users, db := setupDeviceTokenService(t, nil)
		u := createUser(t, users, "explicit@example.com", true)

		require.NoError(t, service.Register(u, RegisterInput{
			DeviceID:   "explicit-device",
			DeviceType: DeviceWeb,
			Token:      "token",
			UserAgent:  iphoneUA,
		}))

		var record DeviceToken
		require.NoError(t, db.First(&record, "device_id = ?", "explicit-device").Error)
		assert.Equal(t, DeviceWeb, record.DeviceType)
	})
}

func TestDeleteByDeviceID(t *testing.T) {
	service, users, db := setupDeviceTokenService(t, nil)
	u := createUser(t, users, "del@example.com", true)

	require.NoError(t, service.Register(u, RegisterInput{
		DeviceID: "device-gone", DeviceType: DeviceIOS, Token: "token",
	}))

	require.NoError(t, service.DeleteByDeviceID("device-gone"))

	var count int64
	db.Model(&DeviceToken{}).Where("device_id = ?", "device-gone").Count(&count)
	assert.Zero(t, count)

	t.Run("missing device is not an error", func(t *testing.T) {
		assert.NoError(t, service.DeleteByDeviceID("never-registered"))
	})
}

func TestTokensForUser(t *testing.T) {
	service, users, _ := setupDeviceTokenService(t, nil)
	u := createUser(t, users, "tokens@example.com", true)
	other := createUser(t, users, "other@example.com", true)

	require.NoError(t, service.Register(u, RegisterInput{DeviceID: "d1", DeviceType: DeviceIOS, Token: "t1"}))
	require.NoError(t, service.Register(u, RegisterInput{DeviceID: "d2", DeviceType: DeviceAndroid, Token: "t2"}))
	require.NoError(t, service.Register(other, RegisterInput{DeviceID: "d3", DeviceType: DeviceIOS, Token: "t3"}))

	tokens, err := service.TokensForUser(u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t2"}, tokens)
}

func TestPushToUser(t *testing.T) {
	t.Run("delivers to every registered device", func(t *testing.T) {
		pusher := &testutils.MockPusher{}
		service, users, _ := setupDeviceTokenService(t, pusher)
		u := createUser(t, users, "push@example.com", true)

		require.NoError(t, service.Register(u, RegisterInput{DeviceID: "d1", DeviceType: DeviceIOS, Token: "t1"}))

		pusher.On("Send", []string{"t1"}, "title", "body", mock.Anything).Return(nil)

		service.PushToUser(u, "title", "body", nil)

		pusher.AssertExpectations(t)
	})

	t.Run("honors the notification opt out", func(t *testing.T) {
		pusher := &testutils.MockPusher{}
		service, users, _ := setupDeviceTokenService(t, pusher)
		u := createUser(t, users, "optout@example.com", false)

		require.NoError(t, service.Register(u, RegisterInput{DeviceID: "d1", DeviceType: DeviceIOS, Token: "t1"}))

		service.PushToUser(u, "title", "body", nil)

		pusher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("nil pusher is a silent no-op", func(t *testing.T) {
		service, users, _ := setupDeviceTokenService(t, nil)
		u := createUser(t, users, "nopusher@example.com", true)

		service.PushToUser(u, "title", "body", nil)
	})

	t.Run("delivery failure is swallowed", func(t *testing.T) {
		pusher := &testutils.MockPusher{}
		service, users, _ := setupDeviceTokenService(t, pusher)
		u := createUser(t, users, "fail@example.com", true)

		require.NoError(t, service.Register(u, RegisterInput{DeviceID: "d1", DeviceType: DeviceIOS, Token: "t1"}))

		pusher.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

		service.PushToUser(u, "title", "body", nil)

		pusher.AssertExpectations(t)
	})
}
