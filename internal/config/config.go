package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	// Inbound webhook signature secret, subscription verify token, and
	// operational API signing key.
	WebhookSecret      string `mapstructure:"WEBHOOK_SECRET"`
	WebhookVerifyToken string `mapstructure:"WEBHOOK_VERIFY_TOKEN"`
	APIJWTSecret       string `mapstructure:"API_JWT_SECRET"`

	// Outbound messaging provider.
	ProviderAPIURL      string `mapstructure:"PROVIDER_API_URL"`
	ProviderAccessToken string `mapstructure:"PROVIDER_ACCESS_TOKEN"`
	ProviderPhoneNumber string `mapstructure:"PROVIDER_PHONE_NUMBER_ID"`

	SessionTTLHours int `mapstructure:"SESSION_TTL_HOURS"`
	OTPTTLMinutes   int `mapstructure:"OTP_TTL_MINUTES"`
	OTPMaxAttempts  int `mapstructure:"OTP_MAX_ATTEMPTS"`

	ReminderDayOffsetHours  int `mapstructure:"REMINDER_DAY_OFFSET_HOURS"`
	ReminderHourOffsetHours int `mapstructure:"REMINDER_HOUR_OFFSET_HOURS"`
	ReminderLookaheadDays   int `mapstructure:"REMINDER_LOOKAHEAD_DAYS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("PROVIDER_API_URL", "https://graph.facebook.com/v18.0")
	v.SetDefault("SESSION_TTL_HOURS", 24)
	v.SetDefault("OTP_TTL_MINUTES", 10)
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("REMINDER_DAY_OFFSET_HOURS", 24)
	v.SetDefault("REMINDER_HOUR_OFFSET_HOURS", 2)
	v.SetDefault("REMINDER_LOOKAHEAD_DAYS", 7)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("WEBHOOK_SECRET")
	v.BindEnv("WEBHOOK_VERIFY_TOKEN")
	v.BindEnv("API_JWT_SECRET")
	v.BindEnv("PROVIDER_API_URL")
	v.BindEnv("PROVIDER_ACCESS_TOKEN")
	v.BindEnv("PROVIDER_PHONE_NUMBER_ID")
	v.BindEnv("SESSION_TTL_HOURS")
	v.BindEnv("OTP_TTL_MINUTES")
	v.BindEnv("OTP_MAX_ATTEMPTS")
	v.BindEnv("REMINDER_DAY_OFFSET_HOURS")
	v.BindEnv("REMINDER_HOUR_OFFSET_HOURS")
	v.BindEnv("REMINDER_LOOKAHEAD_DAYS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Webhook signature verification is skipped when WEBHOOK_SECRET is empty.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SessionTTL returns the configured session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// OTPTTL returns the configured one-time-passcode lifetime.
func (c *Config) OTPTTL() time.Duration {
	return time.Duration(c.OTPTTLMinutes) * time.Minute
}

// ReminderOffsets returns the day-before and hours-before reminder offsets.
func (c *Config) ReminderOffsets() (day, hour time.Duration) {
	return time.Duration(c.ReminderDayOffsetHours) * time.Hour,
		time.Duration(c.ReminderHourOffsetHours) * time.Hour
}

// Validate checks that the configuration is safe to run. In production the
// webhook secret and the operational API signing key must both be set so that
// inbound messages are authenticated and the admin surface is not open.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.WebhookSecret == "" {
			return fmt.Errorf("WEBHOOK_SECRET is required in production")
		}
		if c.APIJWTSecret == "" {
			return fmt.Errorf("API_JWT_SECRET is required in production")
		}
		if c.ProviderAccessToken == "" {
			return fmt.Errorf("PROVIDER_ACCESS_TOKEN is required in production")
		}
	}
	if c.OTPMaxAttempts < 1 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be at least 1, got %d", c.OTPMaxAttempts)
	}
	if c.SessionTTLHours < 1 {
		return fmt.Errorf("SESSION_TTL_HOURS must be at least 1, got %d", c.SessionTTLHours)
	}
	if c.ReminderLookaheadDays < 1 {
		return fmt.Errorf("REMINDER_LOOKAHEAD_DAYS must be at least 1, got %d", c.ReminderLookaheadDays)
	}
	return nil
}
