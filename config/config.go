package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig          `envPrefix:"APP_"`
	Server       ServerConfig       `envPrefix:"SERVER_"`
	Log          LogConfig          `envPrefix:"LOG_"`
	Database     DatabaseConfig     `envPrefix:"DB_"`
	Auth         AuthConfig         `envPrefix:"AUTH_"`
	JWT          JWTConfig          `envPrefix:"JWT_"`
	RefreshToken RefreshTokenConfig `envPrefix:"REFRESH_TOKEN_"`
	Mail         MailConfig         `envPrefix:"MAIL_"`
	Social       SocialConfig       `envPrefix:"SOCIAL_"`
	RateLimit    RateLimitConfig    `envPrefix:"RATE_LIMIT_"`
}

type AppConfig struct {
	Name string `env:"NAME" envDefault:"FitPeak"`
	URL  string `env:"URL" envDefault:"http://localhost:8080"`
}

type ServerConfig struct {
	Host string `env:"HOST" envDefault:"localhost"`
	Port string `env:"PORT" envDefault:"8080"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"fitpeak.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type AuthConfig struct {
	MinLength  int           `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`
	OTPDigits  int           `env:"OTP_DIGITS" envDefault:"4"`
	OTPExpiry  time.Duration `env:"OTP_EXPIRY" envDefault:"10m"`
}

type JWTConfig struct {
	SecretKey    string        `env:"SECRET_KEY"`
	Issuer       string        `env:"ISSUER" envDefault:"fitpeak-api"`
	AccessExpiry time.Duration `env:"ACCESS_EXPIRY" envDefault:"672h"`
}

type RefreshTokenConfig struct {
	GraceWindow     time.Duration `env:"GRACE_WINDOW" envDefault:"720h"`
	EncryptionKey   string        `env:"ENC_KEY"`
	EncryptionIV    string        `env:"ENC_IV"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
}

type MailConfig struct {
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         int    `env:"PORT" envDefault:"587"`
	Username     string `env:"USERNAME"`
	Password     string `env:"PASSWORD"`
	Encryption   string `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress  string `env:"FROM_ADDRESS"`
	FromName     string `env:"FROM_NAME" envDefault:"FitPeak"`
	TemplatesDir string `env:"TEMPLATES_DIR" envDefault:"templates/mail"`
}

type SocialConfig struct {
	GoogleClientIDs []string `env:"GOOGLE_CLIENT_IDS" envSeparator:","`
	AppleClientIDs  []string `env:"APPLE_CLIENT_IDS" envSeparator:","`
}

type RateLimitConfig struct {
	Enabled bool          `env:"ENABLED" envDefault:"true"`
	Rate    int           `env:"RATE" envDefault:"10"`
	Period  time.Duration `env:"PERIOD" envDefault:"1m"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	return env.Parse(cfg)
}
