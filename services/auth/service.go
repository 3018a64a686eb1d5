package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fitpeak/fitpeak-api/config"
	"github.com/fitpeak/fitpeak-api/services/accesstoken"
	"github.com/fitpeak/fitpeak-api/services/devicetoken"
	"github.com/fitpeak/fitpeak-api/services/logging"
	"github.com/fitpeak/fitpeak-api/services/refreshtoken"
	"github.com/fitpeak/fitpeak-api/services/revocation"
	"github.com/fitpeak/fitpeak-api/services/socialite"
	"github.com/fitpeak/fitpeak-api/services/user"
)

var (
	ErrPasswordHashingFailed = errors.New("failed to hash password")
	ErrWeakPassword          = errors.New("password is too weak")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailTaken            = errors.New("email is already registered")
	ErrAlreadyVerified       = errors.New("email is already verified")
	ErrInvalidOTP            = errors.New("invalid one-time code")
	ErrOTPExpired            = errors.New("one-time code has expired")
	ErrPasswordReuse         = errors.New("new password must differ from the current password")
)

type MailService interface {
	SendTemplate(templateName string, to []string, subject string, data map[string]any) error
}

// TokenPair is what a successful authentication hands to the client: the
// compact signed access token and the encrypted refresh token.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LoginResult carries the authenticated user plus tokens, or the user alone
// with PendingVerification set when the account still awaits its OTP.
type LoginResult struct {
	User                *user.User `json:"user"`
	Tokens              *TokenPair `json:"authentication,omitempty"`
	PendingVerification bool       `json:"pending_verification,omitempty"`
}

type Service struct {
	config        *config.Config
	users         *user.Service
	accessTokens  *accesstoken.Service
	refreshTokens *refreshtoken.Service
	revocations   *revocation.Service
	deviceTokens  *devicetoken.Service
	social        *socialite.Registry
	mailService   MailService
	logger        *logging.Service
}

func NewService(
	cfg *config.Config,
	users *user.Service,
	accessTokens *accesstoken.Service,
	refreshTokens *refreshtoken.Service,
	revocations *revocation.Service,
	deviceTokens *devicetoken.Service,
	social *socialite.Registry,
	logger *logging.Service,
) *Service {
	return &Service{
		config:        cfg,
		users:         users,
		accessTokens:  accessTokens,
		refreshTokens: refreshTokens,
		revocations:   revocations,
		deviceTokens:  deviceTokens,
		social:        social,
		logger:        logger,
	}
}

func (s *Service) SetMailService(mailService MailService) {
	s.mailService = mailService
}

// Register creates a pending-verification account: hashed password, fresh
// OTP with a 10-minute horizon, verification mail dispatched best-effort.
// No tokens are issued until the code is verified.
func (s *Service) Register(email, password string) (*user.User, error) {
	existing, err := s.users.ByEmailIncludingDeleted(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := classifyExisting(existing); err != nil {
			return nil, err
		}
		return nil, ErrEmailTaken
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	code, err := s.generateOTP()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.config.Auth.OTPExpiry)

	u := &user.User{
		Email:                     email,
		Password:                  &hash,
		Role:                      user.RoleUser,
		VerificationCode:          &code,
		VerificationCodeExpiredAt: &expiresAt,
	}
	if err := s.users.Create(u); err != nil {
		return nil, err
	}

	s.sendVerificationMail(u.Email, code)

	s.logger.Info("user registered, verification pending", zap.Uint("user_id", u.ID))
	return u, nil
}

// Login authenticates a password account. A valid password against an
// unverified account regenerates the OTP and re-sends the verification
// mail instead of issuing tokens.
func (s *Service) Login(email, password string) (*LoginResult, error) {
	u, err := s.users.EligibleByEmail(email)
	if err != nil {
		return nil, err
	}

	if u.Password == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.VerifyPassword(*u.Password, password); err != nil {
		s.logger.Warn("login failed: bad password", zap.Uint("user_id", u.ID))
		return nil, err
	}

	if !u.IsVerified() {
		code, err := s.generateOTP()
		if err != nil {
			return nil, err
		}
		if err := s.users.SetVerificationCode(u.ID, code, time.Now().Add(s.config.Auth.OTPExpiry)); err != nil {
			return nil, err
		}

		s.sendVerificationMail(u.Email, code)

		s.logger.Info("login deferred: verification pending", zap.Uint("user_id", u.ID))
		return &LoginResult{User: u, PendingVerification: true}, nil
	}

	if u.IsFirstTimeUser {
		if err := s.users.Update(u.ID, map[string]any{"is_first_time_user": false}); err != nil {
			return nil, err
		}
		u.IsFirstTimeUser = false
	}

	tokens, err := s.generateTokens(u)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.Uint("user_id", u.ID))
	return &LoginResult{User: u, Tokens: tokens}, nil
}

// VerifyCode consumes the outstanding verification OTP and promotes the
// account to verified, issuing tokens immediately (auto-login). The consume
// is an atomic conditional update so concurrent submissions cannot both win.
func (s *Service) VerifyCode(email, otp string) (*LoginResult, error) {
	u, err := s.users.EligibleByEmail(email)
	if err != nil {
		return nil, err
	}

	if u.IsVerified() {
		return nil, ErrAlreadyVerified
	}

	now := time.Now()
	if u.VerificationCode == nil || *u.VerificationCode != otp {
		return nil, ErrInvalidOTP
	}
	if u.VerificationCodeExpiredAt == nil || now.After(*u.VerificationCodeExpiredAt) {
		return nil, ErrOTPExpired
	}

	consumed, err := s.users.ConsumeVerificationCode(u.ID, otp, now)
	if err != nil {
		return nil, err
	}
	if !consumed {
		// Lost a concurrent race: the code was consumed or replaced
		// between the check and the update.
		return nil, ErrInvalidOTP
	}

	verified, err := s.users.ByID(u.ID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.generateTokens(verified)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user verified", zap.Uint("user_id", u.ID))
	return &LoginResult{User: verified, Tokens: tokens}, nil
}

// SendVerificationCode issues a fresh OTP, silently invalidating any prior
// one. The forgot-password variant uses its own code fields and works
// regardless of verification state.
func (s *Service) SendVerificationCode(email string, forPasswordReset bool) error {
	u, err := s.users.EligibleByEmail(email)
	if err != nil {
		return err
	}

	if !forPasswordReset && u.IsVerified() {
		return ErrAlreadyVerified
	}

	code, err := s.generateOTP()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(s.config.Auth.OTPExpiry)

	if forPasswordReset {
		if err := s.users.SetForgotPasswordCode(u.ID, code, expiresAt); err != nil {
			return err
		}
		s.sendPasswordResetMail(u.Email, code)
		return nil
	}

	if err := s.users.SetVerificationCode(u.ID, code, expiresAt); err != nil {
		return err
	}
	s.sendVerificationMail(u.Email, code)
	return nil
}

// VerifyResetCode validates and clears the forgot-password OTP. It issues
// no tokens; it only authorizes the subsequent password reset.
func (s *Service) VerifyResetCode(email, otp string) error {
	u, err := s.users.EligibleByEmail(email)
	if err != nil {
		return err
	}

	now := time.Now()
	if u.ForgotPasswordCode == nil || *u.ForgotPasswordCode != otp {
		return ErrInvalidOTP
	}
	if u.ForgotPasswordCodeExpiredAt == nil || now.After(*u.ForgotPasswordCodeExpiredAt) {
		return ErrOTPExpired
	}

	consumed, err := s.users.ConsumeForgotPasswordCode(u.ID, otp, now)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrInvalidOTP
	}

	return nil
}

// ResetPassword stores a new hash and clears any residual forgot-password
// code fields. It does not log the user in.
func (s *Service) ResetPassword(email, newPassword string) error {
	u, err := s.users.EligibleByEmail(email)
	if err != nil {
		return err
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.SetPassword(u.ID, hash); err != nil {
		return err
	}

	s.logger.Info("password reset completed", zap.Uint("user_id", u.ID))
	return nil
}

func (s *Service) ChangePassword(u *user.User, oldPassword, newPassword string) error {
	if u.Password == nil {
		return ErrInvalidCredentials
	}
	if err := s.VerifyPassword(*u.Password, oldPassword); err != nil {
		return err
	}
	if s.VerifyPassword(*u.Password, newPassword) == nil {
		return ErrPasswordReuse
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.users.SetPassword(u.ID, hash)
}

// SocialLogin exchanges a provider id token for a verified identity and
// finds or creates the bound account. One email binds to exactly one
// provider; an email already held by a password account or another
// provider is rejected.
func (s *Service) SocialLogin(ctx context.Context, provider, idToken, fullName, fallbackEmail string) (*LoginResult, error) {
	identity, err := s.social.Verify(ctx, provider, idToken)
	if err != nil {
		return nil, err
	}

	email := identity.Email
	if email == "" {
		// Apple omits the email claim after the first authorization.
		email = user.NormalizeEmail(fallbackEmail)
	}

	existing, err := s.users.ByEmailIncludingDeleted(email)
	if err != nil {
		return nil, err
	}
	if existing != nil && (existing.ProviderType == nil || *existing.ProviderType != provider) {
		if existing.DeletedAt.Valid {
			return nil, user.ErrAccountDisabled
		}
		return nil, ErrEmailTaken
	}

	u, err := s.users.ByProvider(provider, identity.ProviderID)
	if err != nil {
		return nil, err
	}

	if u == nil {
		now := time.Now()
		name := fullName
		if name == "" {
			name = identity.FullName
		}
		u = &user.User{
			Email:        email,
			Role:         user.RoleUser,
			FullName:     name,
			VerifiedAt:   &now,
			ProviderType: &provider,
			ProviderID:   &identity.ProviderID,
		}
		if err := s.users.Create(u); err != nil {
			return nil, err
		}
	} else {
		if u.IsBlocked {
			return nil, user.ErrUserBlocked
		}
		if u.IsFirstTimeUser {
			if err := s.users.Update(u.ID, map[string]any{"is_first_time_user": false}); err != nil {
				return nil, err
			}
			u.IsFirstTimeUser = false
		}
	}

	tokens, err := s.generateTokens(u)
	if err != nil {
		return nil, err
	}

	s.logger.Info("social login", zap.String("provider", provider), zap.Uint("user_id", u.ID))
	return &LoginResult{User: u, Tokens: tokens}, nil
}

// Logout revokes the session pair as a unit and, when a device identifier
// is supplied, forgets that device's push token.
func (s *Service) Logout(jti, deviceID string) error {
	if deviceID != "" {
		if err := s.deviceTokens.DeleteByDeviceID(deviceID); err != nil {
			s.logger.Warn("failed to delete device token on logout", zap.Error(err))
		}
	}

	return s.revocations.RevokeSession(jti)
}

// RefreshTokens rotates a session: the presented refresh token and its
// parent access token are revoked together and a fresh pair is issued.
func (s *Service) RefreshTokens(encryptedRefresh string) (*LoginResult, error) {
	rt, err := s.refreshTokens.Resolve(encryptedRefresh)
	if err != nil {
		return nil, err
	}

	u, err := s.users.ByID(rt.AccessToken.UserID)
	if err != nil {
		return nil, err
	}
	if u.IsBlocked {
		return nil, user.ErrUserBlocked
	}
	if !u.IsVerified() {
		return nil, ErrInvalidCredentials
	}

	if err := s.revocations.RevokeSession(rt.AccessTokenID); err != nil {
		return nil, err
	}

	tokens, err := s.generateTokens(u)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session rotated", zap.Uint("user_id", u.ID))
	return &LoginResult{User: u, Tokens: tokens}, nil
}

// DeleteAccount soft-deletes the user and revokes every live session.
func (s *Service) DeleteAccount(u *user.User) error {
	if err := s.revocations.RevokeAllUserSessions(u.ID); err != nil {
		return err
	}
	return s.users.SoftDelete(u.ID)
}

// generateTokens issues the access/refresh pair for an eligible user.
func (s *Service) generateTokens(u *user.User) (*TokenPair, error) {
	issued, err := s.accessTokens.Issue(u)
	if err != nil {
		return nil, err
	}

	refresh, err := s.refreshTokens.Issue(issued.Claims)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  issued.Signed,
		RefreshToken: refresh,
		ExpiresAt:    issued.Record.ExpiresAt,
	}, nil
}

func (s *Service) sendVerificationMail(email, code string) {
	if s.mailService == nil {
		return
	}

	err := s.mailService.SendTemplate("verify_email", []string{email}, "Please verify your email address", map[string]any{
		"AppName":          s.config.App.Name,
		"VerificationCode": code,
		"ExpiryDuration":   s.config.Auth.OTPExpiry.String(),
	})
	if err != nil {
		s.logger.Error("failed to send verification email", zap.Error(err))
	}
}

func (s *Service) sendPasswordResetMail(email, code string) {
	if s.mailService == nil {
		return
	}

	err := s.mailService.SendTemplate("forgot_password", []string{email}, "Password Reset Request", map[string]any{
		"AppName":        s.config.App.Name,
		"ResetCode":      code,
		"ExpiryDuration": s.config.Auth.OTPExpiry.String(),
	})
	if err != nil {
		s.logger.Error("failed to send password reset email", zap.Error(err))
	}
}

// classifyExisting maps an occupied email slot to the reason it cannot be
// registered again.
func classifyExisting(u *user.User) error {
	switch {
	case u.IsBlocked:
		return user.ErrUserBlocked
	case u.DeletedAt.Valid:
		return user.ErrAccountDisabled
	case u.IsSocial():
		return user.ErrSocialAccount
	default:
		return nil
	}
}
