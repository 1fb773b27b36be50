package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// JWTSecret signs patient and admin tokens. SchedulerSecret is a separate
	// shared-secret bearer credential that guards the reminder trigger
	// endpoint; it is never a JWT.
	JWTSecret       string `mapstructure:"JWT_SECRET"`
	SchedulerSecret string `mapstructure:"SCHEDULER_SECRET"`

	PatientTokenTTL time.Duration `mapstructure:"PATIENT_TOKEN_TTL"`
	AdminTokenTTL   time.Duration `mapstructure:"ADMIN_TOKEN_TTL"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USER"`
	SMTPPass string `mapstructure:"SMTP_PASS"`
	SMTPFrom string `mapstructure:"SMTP_FROM"`

	UploadDir string `mapstructure:"UPLOAD_DIR"`

	// ReminderInterval is how often the in-process scheduler runs a cycle.
	// Zero disables the ticker; cycles then run only via the trigger endpoint
	// or the remind CLI command.
	ReminderInterval    time.Duration `mapstructure:"REMINDER_INTERVAL"`
	ReminderSendTimeout time.Duration `mapstructure:"REMINDER_SEND_TIMEOUT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("PATIENT_TOKEN_TTL", "1h")
	v.SetDefault("ADMIN_TOKEN_TTL", "24h")
	v.SetDefault("SMTP_PORT", 465)
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("REMINDER_INTERVAL", "24h")
	v.SetDefault("REMINDER_SEND_TIMEOUT", "10s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"CORS_ORIGINS", "JWT_SECRET", "SCHEDULER_SECRET",
		"PATIENT_TOKEN_TTL", "ADMIN_TOKEN_TTL",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "SMTP_FROM",
		"UPLOAD_DIR", "REMINDER_INTERVAL", "REMINDER_SEND_TIMEOUT",
	} {
		v.BindEnv(key)
	}

	// Try reading .env, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. The signing secret
// and the scheduler trigger secret are required: without them the server
// would either issue unverifiable tokens or expose the reminder trigger to
// anyone, so startup must fail instead.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required; refusing to start without a token signing secret")
	}
	if c.SchedulerSecret == "" {
		return fmt.Errorf("SCHEDULER_SECRET is required; refusing to expose the reminder trigger unauthenticated")
	}
	if c.JWTSecret == c.SchedulerSecret {
		return fmt.Errorf("SCHEDULER_SECRET must differ from JWT_SECRET")
	}
	if c.PatientTokenTTL <= 0 || c.AdminTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.ReminderSendTimeout <= 0 {
		return fmt.Errorf("REMINDER_SEND_TIMEOUT must be positive")
	}
	return nil
}
