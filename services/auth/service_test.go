package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fitpeak/fitpeak-api/services/accesstoken"
	"github.com/fitpeak/fitpeak-api/services/devicetoken"
	"github.com/fitpeak/fitpeak-api/services/jwt"
	"github.com/fitpeak/fitpeak-api/services/refreshtoken"
	"github.com/fitpeak/fitpeak-api/services/revocation"
	"github.com/fitpeak/fitpeak-api/services/socialite"
	"github.com/fitpeak/fitpeak-api/services/user"
	"github.com/fitpeak/fitpeak-api/testutils"
)

type testEnv struct {
	svc      *Service
	db       *gorm.DB
	users    *user.Service
	jwt      *jwt.Service
	registry *socialite.Registry
	mail     *testutils.MockMailService
}

func setupAuthService(t *testing.T) *testEnv {
	db := testutils.SetupTestDB(t,
		&user.User{},
		&accesstoken.AccessToken{},
		&refreshtoken.RefreshToken{},
		&devicetoken.DeviceToken{},
	)
	cfg := testutils.GetTestConfig()

	users := user.NewService(db, nil)
	jwtSvc := jwt.NewService(cfg, nil)
	accessTokens := accesstoken.NewService(db, jwtSvc, nil)
	cipher, err := refreshtoken.NewCipher(cfg.RefreshToken.EncryptionKey, cfg.RefreshToken.EncryptionIV)
	require.NoError(t, err)
	refreshTokens := refreshtoken.NewService(db, cfg, cipher, nil)
	revocations := revocation.NewService(db, nil)
	deviceTokens := devicetoken.NewService(db, nil, nil)
	registry := socialite.NewRegistry()

	svc := NewService(cfg, users, accessTokens, refreshTokens, revocations, deviceTokens, registry, nil)

	mailMock := &testutils.MockMailService{}
	mailMock.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc.SetMailService(mailMock)

	return &testEnv{svc: svc, db: db, users: users, jwt: jwtSvc, registry: registry, mail: mailMock}
}

func registerVerified(t *testing.T, env *testEnv, email, password string) *user.User {
	u, err := env.svc.Register(email, password)
	require.NoError(t, err)

	fresh, err := env.users.ByID(u.ID)
	require.NoError(t, err)
	require.NotNil(t, fresh.VerificationCode)

	result, err := env.svc.VerifyCode(email, *fresh.VerificationCode)
	require.NoError(t, err)
	return result.User
}

func TestRegister(t *testing.T) {
	t.Run("creates pending account with verification code", func(t *testing.T) {
		env := setupAuthService(t)

		u, err := env.svc.Register("new@example.com", "password123")
		require.NoError(t, err)

		assert.NotZero(t, u.ID)
		assert.NotEmpty(t, u.UID)
		assert.False(t, u.IsVerified())
		require.NotNil(t, u.VerificationCode)
		assert.Len(t, *u.VerificationCode, 4)
		require.NotNil(t, u.VerificationCodeExpiredAt)
		assert.WithinDuration(t, time.Now().Add(10*time.Minute), *u.VerificationCodeExpiredAt, 5*time.Second)

		env.mail.AssertCalled(t, "SendTemplate", "verify_email", []string{"new@example.com"}, mock.Anything, mock.Anything)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		env := setupAuthService(t)

		_, err := env.svc.Register("dup@example.com", "password123")
		require.NoError(t, err)

		_, err = env.svc.Register("dup@example.com", "password123")
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("rejects email bound to a social provider", func(t *testing.T) {
		env := setupAuthService(t)

		provider := user.ProviderGoogle
		providerID := "google-sub-1"
		now := time.Now()
		require.NoError(t, env.users.Create(&user.User{
			Email:        "social@example.com",
			VerifiedAt:   &now,
			ProviderType: &provider,
			ProviderID:   &providerID,
		}))

		_, err := env.svc.Register("social@example.com", "password123")
		assert.ErrorIs(t, err, user.ErrSocialAccount)
	})

	t.Run("rejects email of a deleted account", func(t *testing.T) {
		env := setupAuthService(t)

		u := registerVerified(t, env, "gone@example.com", "password123")
		require.NoError(t, env.svc.DeleteAccount(u))

		_, err := env.svc.Register("gone@example.com", "password123")
		assert.ErrorIs(t, err, user.ErrAccountDisabled)
	})

	t.Run("rejects short password", func(t *testing.T) {
		env := setupAuthService(t)

		_, err := env.svc.Register("short@example.com", "tiny")
		assert.Error(t, err)
	})

	t.Run("normalizes email case", func(t *testing.T) {
		env := setupAuthService(t)

		u, err := env.svc.Register("  Mixed@Example.COM ", "password123")
		require.NoError(t, err)
		assert.Equal(t, "mixed@example.com", u.Email)
	})
}

func TestLogin(t *testing.T) {
	t.Run("issues token pair for verified account", func(t *testing.T) {
		env := setupAuthService(t)
		registerVerified(t, env, "login@example.com", "password123")

		result, err := env.svc.Login("login@example.com", "password123")
		require.NoError(t, err)

		assert.False(t, result.PendingVerification)
		require.NotNil(t, result.Tokens)
		assert.NotEmpty(t, result.Tokens.AccessToken)
		assert.NotEmpty(t, result.Tokens.RefreshToken)
		assert.True(t, result.Tokens.ExpiresAt.After(time.Now()))
	})

	t.Run("unknown email", func(t *testing.T) {
		env := setupAuthService(t)

		_, err := env.svc.Login("nobody@example.com", "password123")
		assert.ErrorIs(t, err, user.ErrEmailNotRegistered)
	})

	t.Run("wrong password", func(t *testing.T) {
		env := setupAuthService(t)
		registerVerified(t, env, "wrongpw@example.com", "password123")

		_, err := env.svc.Login("wrongpw@example.com", "not-the-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unverified account gets a fresh code instead of tokens", func(t *testing.T) {
		env := setupAuthService(t)

		u, err := env.svc.Register("pending@example.com", "password123")
		require.NoError(t, err)

		result, err := env.svc.Login("pending@example.com", "password123")
		require.NoError(t, err)

		assert.True(t, result.PendingVerification)
		assert.Nil(t, result.Tokens)

		fresh, err := env.users.ByID(u.ID)
		require.NoError(t, err)
		require.NotNil(t, fresh.VerificationCode)
		assert.Len(t, *fresh.VerificationCode, 4)
		env.mail.AssertNumberOfCalls(t, "SendTemplate", 2)
	})

	t.Run("blocked account", func(t *testing.T) {
		env := setupAuthService(t)
		u := registerVerified(t, env, "blocked@example.com", "password123")
		require.NoError(t, env.users.Update(u.ID, map[string]any{"is_blocked": true}))

		_, err := env.svc.Login("blocked@example.com", "password123")
		assert.ErrorIs(t, err, user.ErrUserBlocked)
	})

	t.Run("deleted account", func(t *testing.T) {
		env := setupAuthService(t)
		u := registerVerified(t, env, "deleted@example.com", "password123")
		require.NoError(t, env.svc.DeleteAccount(u))

		_, err := env.svc.Login("deleted@example.com", "password123")
		assert.ErrorIs(t, err, user.ErrAccountDisabled)
	})

	t.Run("clears first time flag", func(t *testing.T) {
		env := setupAuthService(t)
		u := registerVerified(t, env, "first@example.com", "password123")
		require.NoError(t, env.users.Update(u.ID, map[string]any{"is_first_time_user": true}))

		result, err := env.svc.Login("first@example.com", "password123")
		require.NoError(t, err)
		assert.False(t, result.User.IsFirstTimeUser)

		fresh, err := env.users.ByID(u.ID)
		require.NoError(t, err)
		assert.False(t, fresh.IsFirstTimeUser)
	})
}

func TestVerifyCode(t *testing.T) {
	t.Run("promotes account and auto-logs in", func(t *testing.T) {
		env := setupAuthService(t)

		u, err := env.svc.Register("verify@example.com", "password123")
		require.NoError(t, err)

		result, err := env.svc.VerifyCode("verify@example.com", *u.VerificationCode)
		require.NoError(t, err)

		assert.True(t, result.User.IsVerified())
		assert.Nil(t, result.User.VerificationCode)
		require.NotNil(t, result.Tokens)
		assert.NotEmpty(t, result.Tokens.AccessToken)
	})

	t.Run("wrong code", func(t *testing.T) {
		env := setupAuthService(t)

		u, err := env.svc.Register("badcode@example.com", "password123")
		require.NoError(t, err)

		wrong := "0000"
		if *u.VerificationCode == wrong {
			wrong = "0001"
		}
		_, err = env.svc.VerifyCode("badcode@example.com", wrong)
		assert.ErrorIs(t, err, ErrInvalidOTP)
	})

	t.Run("expired code", func(t *testing.T) {
		env := setupAuthService(t)

		u, err := env.svc.Register("stale@example.com", "password123")
		require.NoError(t, err)

		past := time.Now().Add(-time.Minute)
		require.NoError(t, env.users.Update(u.ID, map[string]any{"verification_code_expired_at": past}))

		_, err = env.svc.VerifyCode("stale@example.com", *u.VerificationCode)
		assert.ErrorIs(t, err, ErrOTPExpired)
	})

	t.Run("already verified", func(t *testing.T) {
		env := setupAuthService(t)
		registerVerified(t, env, "done@example.com", "password123")

		_, err := env.svc.VerifyCode("done@example.com", "1234")
		assert.ErrorIs(t, err, ErrAlreadyVerified)
	})

	t.Run("code is single use", func(t *testing.T) {
		env := setupAuthService(t)

		u, err := env.svc.Register("once@example.com", "password123")
		require.NoError(t, err)
		code := *u.VerificationCode

		_, err = env.svc.VerifyCode("once@example.com", code)
		require.NoError(t, err)

		_, err = env.svc.VerifyCode("once@example.com", code)
		assert.ErrorIs(t, err, ErrAlreadyVerified)
	})
}

func TestSendVerificationCode(t *testing.T) {
	t.Run("reissues verification code", func(t *testing.T) {
		env := setupAuthService(t)

		u, err := env.svc.Register("resend@example.com", "password123")
		require.NoError(t, err)
		firstExpiry := *u.VerificationCodeExpiredAt

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, env.svc.SendVerificationCode("resend@example.com", false))

		fresh, err := env.users.ByID(u.ID)
		require.NoError(t, err)
		assert.True(t, fresh.VerificationCodeExpiredAt.After(firstExpiry))
		env.mail.AssertNumberOfCalls(t, "SendTemplate", 2)
	})

	t.Run("verified account cannot request a verification code", func(t *testing.T) {
		env := setupAuthService(t)
		registerVerified(t, env, "ready@example.com", "password123")

		err := env.svc.SendVerificationCode("ready@example.com", false)
		assert.ErrorIs(t, err, ErrAlreadyVerified)
	})

	t.Run("forgot password code uses its own fields", func(t *testing.T) {
		env := setupAuthService(t)
		u := registerVerified(t, env, "forgot@example.com", "password123")

		require.NoError(t, env.svc.SendVerificationCode("forgot@example.com", true))

		fresh, err := env.users.ByID(u.ID)
		require.NoError(t, err)
		require.NotNil(t, fresh.ForgotPasswordCode)
		assert.Len(t, *fresh.ForgotPasswordCode, 4)
		assert.Nil(t, fresh.VerificationCode)
		assert.True(t, fresh.IsVerified())
		env.mail.AssertCalled(t, "SendTemplate", "forgot_password", []string{"forgot@example.com"}, mock.Anything, mock.Anything)
	})
}

func TestPasswordReset(t *testing.T) {
	t.Run("full forgot password flow", func(t *testing.T) {
		env := setupAuthService(t)
		u := registerVerified(t, env, "reset@example.com", "password123")

		require.NoError(t, env.svc.SendVerificationCode("reset@example.com", true))

		fresh, err := env.users.ByID(u.ID)
		require.NoError(t, err)
		require.NoError(t, env.svc.VerifyResetCode("reset@example.com", *fresh.ForgotPasswordCode))

		require.NoError(t, env.svc.ResetPassword("reset@example.com", "newpassword456"))

		_, err = env.svc.Login("reset@example.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		result, err := env.svc.Login("reset@example.com", "newpassword456")
		require.NoError(t, err)
		assert.NotNil(t, result.Tokens)
	})

	t.Run("wrong reset code", func(t *testing.T) {
		env := setupAuthService(t)
		registerVerified(t, env, "resetbad@example.com", "password123")
		require.NoError(t, env.svc.SendVerificationCode("resetbad@example.com", true))

		err := env.svc.VerifyResetCode("resetbad@example.com", "no-such-code")
		assert.ErrorIs(t, err, ErrInvalidOTP)
	})

	t.Run("expired reset code", func(t *testing.T) {
		env := setupAuthService(t)
		u := registerVerified(t, env, "resetstale@example.com", "password123")
		require.NoError(t, env.svc.SendVerificationCode("resetstale@example.com", true))

		past := time.Now().Add(-time.Minute)
		require.NoError(t, env.users.Update(u.ID, map[string]any{"forgot_password_code_expired_at": past}))

		fresh, err := env.users.ByID(u.ID)
		require.NoError(t, err)
		err = env.svc.VerifyResetCode("resetstale@example.com", *fresh.ForgotPasswordCode)
		assert.ErrorIs(t, err, ErrOTPExpired)
	})

	t.Run("reset clears residual code fields", func(t *testing.T) {
		env := setupAuthService(t)
		u := registerVerified(t, env, "residual@example.com", "password123")
		require.NoError(t, env.svc.SendVerificationCode("residual@example.com", true))

		require.NoError(t, env.svc.ResetPassword("residual@example.com", "newpassword456"))

		fresh, err := env.users.ByID(u.ID)
		require.NoError(t, err)
		assert.Nil(t, fresh.ForgotPasswordCode)
		assert.Nil(t, fresh.ForgotPasswordCodeExpiredAt)
	})
}

func TestChangePassword(t *testing.T) {
	t.Run("changes password with correct current one", func(t *testing.T) {
		env := setupAuthService(t)
		u := registerVerified(t, env, "change@example.com", "password123")

		require.NoError(t, env.svc.ChangePassword(u, "password123", "newpassword456"))

		_, err := env.svc.Login("change@example.com", "newpassword456")
		assert.NoError(t, err)
	})

	t.Run("wrong current password", func(t *testing.T) {
		env := setupAuthService(t)
		u := registerVerified(t, env, "changebad@example.com", "password123")

		err := env.svc.ChangePassword(u, "not-current", "newpassword456")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("rejects reusing the current password", func(t *testing.T) {
		env := setupAuthService(t)
		u := registerVerified(t, env, "reuse@example.com", "password123")

		err := env.svc.ChangePassword(u, "password123", "password123")
		assert.ErrorIs(t, err, ErrPasswordReuse)
	})
}

func TestSocialLogin(t *testing.T) {
	registerGoogleMock := func(env *testEnv, identity *socialite.Identity) *testutils.MockVerifier {
		verifier := &testutils.MockVerifier{}
		verifier.On("VerifyIdentityToken", mock.Anything, mock.Anything).Return(identity, nil)
		env.registry.Register(user.ProviderGoogle, verifier)
		return verifier
	}

	t.Run("creates verified account on first login", func(t *testing.T) {
		env := setupAuthService(t)
		registerGoogleMock(env, &socialite.Identity{
			Provider:   user.ProviderGoogle,
			ProviderID: "google-sub-42",
			Email:      "social@example.com",
			FullName:   "Social User",
		})

		result, err := env.svc.SocialLogin(context.Background(), user.ProviderGoogle, "id-token", "", "")
		require.NoError(t, err)

		assert.True(t, result.User.IsVerified())
		assert.Equal(t, "Social User", result.User.FullName)
		require.NotNil(t, result.User.ProviderType)
		assert.Equal(t, user.ProviderGoogle, *result.User.ProviderType)
		require.NotNil(t, result.Tokens)
	})

	t.Run("returning social user logs in without creating a duplicate", func(t *testing.T) {
		env := setupAuthService(t)
		registerGoogleMock(env, &socialite.Identity{
			Provider:   user.ProviderGoogle,
			ProviderID: "google-sub-7",
			Email:      "repeat@example.com",
		})

		first, err := env.svc.SocialLogin(context.Background(), user.ProviderGoogle, "id-token", "", "")
		require.NoError(t, err)

		second, err := env.svc.SocialLogin(context.Background(), user.ProviderGoogle, "id-token", "", "")
		require.NoError(t, err)

		assert.Equal(t, first.User.ID, second.User.ID)

		var count int64
		env.db.Model(&user.User{}).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("email held by a password account", func(t *testing.T) {
		env := setupAuthService(t)
		registerVerified(t, env, "claimed@example.com", "password123")
		registerGoogleMock(env, &socialite.Identity{
			Provider:   user.ProviderGoogle,
			ProviderID: "google-sub-9",
			Email:      "claimed@example.com",
		})

		_, err := env.svc.SocialLogin(context.Background(), user.ProviderGoogle, "id-token", "", "")
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("falls back to client supplied email when provider omits it", func(t *testing.T) {
		env := setupAuthService(t)
		registerGoogleMock(env, &socialite.Identity{
			Provider:   user.ProviderGoogle,
			ProviderID: "google-sub-11",
		})

		result, err := env.svc.SocialLogin(context.Background(), user.ProviderGoogle, "id-token", "Fallback Name", "Fallback@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "fallback@example.com", result.User.Email)
		assert.Equal(t, "Fallback Name", result.User.FullName)
	})

	t.Run("unknown provider", func(t *testing.T) {
		env := setupAuthService(t)

		_, err := env.svc.SocialLogin(context.Background(), "myspace", "id-token", "", "")
		assert.ErrorIs(t, err, socialite.ErrUnknownProvider)
	})

	t.Run("blocked social account", func(t *testing.T) {
		env := setupAuthService(t)
		registerGoogleMock(env, &socialite.Identity{
			Provider:   user.ProviderGoogle,
			ProviderID: "google-sub-13",
			Email:      "socialblocked@example.com",
		})

		first, err := env.svc.SocialLogin(context.Background(), user.ProviderGoogle, "id-token", "", "")
		require.NoError(t, err)
		require.NoError(t, env.users.Update(first.User.ID, map[string]any{"is_blocked": true}))

		_, err = env.svc.SocialLogin(context.Background(), user.ProviderGoogle, "id-token", "", "")
		assert.ErrorIs(t, err, user.ErrUserBlocked)
	})
}

func TestLogout(t *testing.T) {
	t.Run("revokes the session pair", func(t *testing.T) {
		env := setupAuthService(t)
		registerVerified(t, env, "logout@example.com", "password123")

		result, err := env.svc.Login("logout@example.com", "password123")
		require.NoError(t, err)

		var record accesstoken.AccessToken
		require.NoError(t, env.db.First(&record, "user_id = ? AND is_revoked = ?", result.User.ID, false).Error)

		require.NoError(t, env.svc.Logout(record.ID, ""))

		require.NoError(t, env.db.First(&record, "id = ?", record.ID).Error)
		assert.True(t, record.IsRevoked)

		var refresh refreshtoken.RefreshToken
		require.NoError(t, env.db.First(&refresh, "access_token_id = ?", record.ID).Error)
		assert.True(t, refresh.IsRevoked)
	})

	t.Run("forgets the device token", func(t *testing.T) {
		env := setupAuthService(t)
		u := registerVerified(t, env, "device@example.com", "password123")

		require.NoError(t, env.db.Create(&devicetoken.DeviceToken{
			UserID:     u.ID,
			DeviceID:   "device-1",
			DeviceType: devicetoken.DeviceIOS,
			Token:      "push-token",
		}).Error)

		var record accesstoken.AccessToken
		require.NoError(t, env.db.First(&record, "user_id = ?", u.ID).Error)

		require.NoError(t, env.svc.Logout(record.ID, "device-1"))

		var count int64
		env.db.Model(&devicetoken.DeviceToken{}).Where("device_id = ?", "device-1").Count(&count)
		assert.Zero(t, count)
	})

	t.Run("is idempotent", func(t *testing.T) {
		env := setupAuthService(t)
		registerVerified(t, env, "twice@example.com", "password123")

		var record accesstoken.AccessToken
		require.NoError(t, env.db.First(&record).Error)

		require.NoError(t, env.svc.Logout(record.ID, ""))
		require.NoError(t, env.svc.Logout(record.ID, ""))
	})
}

func TestRefreshTokens(t *testing.T) {
	t.Run("rotates the session", func(t *testing.T) {
		env := setupAuthService(t)
		registerVerified(t, env, "rotate@example.com", "password123")

		result, err := env.svc.Login("rotate@example.com", "password123")
		require.NoError(t, err)

		rotated, err := env.svc.RefreshTokens(result.Tokens.RefreshToken)
		require.NoError(t, err)

		assert.NotEqual(t, result.Tokens.AccessToken, rotated.Tokens.AccessToken)
		assert.NotEqual(t, result.Tokens.RefreshToken, rotated.Tokens.RefreshToken)
	})

	t.Run("presented refresh token cannot be reused", func(t *testing.T) {
		env := setupAuthService(t)
		registerVerified(t, env, "reuse-rt@example.com", "password123")

		result, err := env.svc.Login("reuse-rt@example.com", "password123")
		require.NoError(t, err)

		_, err = env.svc.RefreshTokens(result.Tokens.RefreshToken)
		require.NoError(t, err)

		_, err = env.svc.RefreshTokens(result.Tokens.RefreshToken)
		assert.ErrorIs(t, err, refreshtoken.ErrRefreshTokenRevoked)
	})

	t.Run("old access token is revoked by rotation", func(t *testing.T) {
		env := setupAuthService(t)
		registerVerified(t, env, "old-at@example.com", "password123")

		result, err := env.svc.Login("old-at@example.com", "password123")
		require.NoError(t, err)

		claims, err := env.jwt.DecodeToken(result.Tokens.AccessToken)
		require.NoError(t, err)

		_, err = env.svc.RefreshTokens(result.Tokens.RefreshToken)
		require.NoError(t, err)

		var before accesstoken.AccessToken
		require.NoError(t, env.db.First(&before, "id = ?", claims.JTI).Error)
		assert.True(t, before.IsRevoked)
	})

	t.Run("blocked user cannot rotate", func(t *testing.T) {
		env := setupAuthService(t)
		u := registerVerified(t, env, "blocked-rt@example.com", "password123")

		result, err := env.svc.Login("blocked-rt@example.com", "password123")
		require.NoError(t, err)

		require.NoError(t, env.users.Update(u.ID, map[string]any{"is_blocked": true}))

		_, err = env.svc.RefreshTokens(result.Tokens.RefreshToken)
		assert.ErrorIs(t, err, user.ErrUserBlocked)
	})

	t.Run("garbage ciphertext", func(t *testing.T) {
		env := setupAuthService(t)

		_, err := env.svc.RefreshTokens("not-a-real-token")
		assert.Error(t, err)
	})
}

func TestDeleteAccount(t *testing.T) {
	t.Run("soft deletes and revokes every session", func(t *testing.T) {
		env := setupAuthService(t)
		registerVerified(t, env, "bye@example.com", "password123")

		first, err := env.svc.Login("bye@example.com", "password123")
		require.NoError(t, err)
		_, err = env.svc.Login("bye@example.com", "password123")
		require.NoError(t, err)

		require.NoError(t, env.svc.DeleteAccount(first.User))

		var live int64
		env.db.Model(&accesstoken.AccessToken{}).
			Where("user_id = ? AND is_revoked = ?", first.User.ID, false).
			Count(&live)
		assert.Zero(t, live)

		_, err = env.svc.Login("bye@example.com", "password123")
		assert.ErrorIs(t, err, user.ErrAccountDisabled)

		_, err = env.svc.RefreshTokens(first.Tokens.RefreshToken)
		assert.Error(t, err)
	})
}
