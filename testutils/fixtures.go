package testutils

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fitpeak/fitpeak-api/config"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "FitPeak Test",
			URL:  "http://localhost:8080",
		},
		Auth: config.AuthConfig{
			MinLength:  8,
			BcryptCost: bcrypt.MinCost,
			OTPDigits:  4,
			OTPExpiry:  10 * time.Minute,
		},
		JWT: config.JWTConfig{
			SecretKey:    "test-secret-key-32-chars-long!!",
			Issuer:       "test-issuer",
			AccessExpiry: 28 * 24 * time.Hour,
		},
		RefreshToken: config.RefreshTokenConfig{
			GraceWindow:   30 * 24 * time.Hour,
			EncryptionKey: "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			EncryptionIV:  "0f0e0d0c0b0a09080706050403020100",
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
	}
}

var TestUsers = struct {
	Valid struct {
		Email    string
		Password string
	}
	Second struct {
		Email    string
		Password string
	}
}{
	Valid: struct {
		Email    string
		Password string
	}{
		Email:    "test@example.com",
		Password: "password123",
	},
	Second: struct {
		Email    string
		Password string
	}{
		Email:    "other@example.com",
		Password: "password456",
	},
}
