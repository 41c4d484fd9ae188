package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; Cache and Redis carry their own groups.
type Config struct {
	Env      string `env:"APP_ENV,notEmpty"` // application environment (e.g. "dev", "prod")
	Host     string `env:"APP_HOST"`         // interface to bind, empty for all
	Port     string `env:"APP_PORT,notEmpty"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBUser        string `env:"DB_USER,notEmpty"`
	DBPass        string `env:"DB_PASS"`
	DBHost        string `env:"DB_HOST,notEmpty"`
	DBPort        string `env:"DB_PORT,notEmpty"`
	DBName        string `env:"DB_NAME,notEmpty"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	JWTSecret          string `env:"JWT_SECRET,notEmpty"`           // signs access tokens
	RefreshTokenSecret string `env:"REFRESH_TOKEN_SECRET,notEmpty"` // keys the stored refresh-token digests
	AccessTTLMin       int    `env:"ACCESS_TOKEN_TTL_MIN" envDefault:"30"`
	RefreshTTLDays     int    `env:"REFRESH_TOKEN_TTL_DAYS" envDefault:"7"`
	BcryptCost         int    `env:"BCRYPT_COST" envDefault:"12"`

	LoginMaxFailedAttempts int           `env:"LOGIN_MAX_FAILED_ATTEMPTS" envDefault:"5"` // 0 disables lockout
	LoginLockout           time.Duration `env:"LOGIN_LOCKOUT" envDefault:"15m"`
	RegisterFailureDelay   time.Duration `env:"REGISTER_FAILURE_DELAY" envDefault:"500ms"`
	TokenCleanupInterval   time.Duration `env:"TOKEN_CLEANUP_INTERVAL" envDefault:"1h"`

	RabbitURL            string `env:"RABBITMQ_URL"`
	AuthEventsEnabled    bool   `env:"AUTH_EVENTS_ENABLED" envDefault:"false"`
	AuditConsumerEnabled bool   `env:"AUDIT_CONSUMER_ENABLED" envDefault:"false"`
	AuditLogDir          string `env:"AUDIT_LOG_DIR" envDefault:"logs"`

	Cache CacheConfig
	Redis RedisConfig
}

// Addr is the listen address.
func (c Config) Addr() string { return c.Host + ":" + c.Port }

func (c Config) AccessTTL() time.Duration  { return time.Duration(c.AccessTTLMin) * time.Minute }
func (c Config) RefreshTTL() time.Duration { return time.Duration(c.RefreshTTLDays) * 24 * time.Hour }

// IsProduction reports whether APP_ENV names a production deployment.
func (c Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

// Load reads the process environment.  Every missing required variable and
// every malformed or out-of-range value is reported in a single error.
func Load() (Config, error) {
	return load(nil)
}

// load parses environ, or the process environment when environ is nil.
func load(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.AccessTTLMin <= 0 {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_TTL_MIN must be positive, got %d", c.AccessTTLMin))
	}
	if c.RefreshTTLDays <= 0 {
		errs = append(errs, fmt.Errorf("REFRESH_TOKEN_TTL_DAYS must be positive, got %d", c.RefreshTTLDays))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
	}
	if c.LoginMaxFailedAttempts < 0 {
		errs = append(errs, fmt.Errorf("LOGIN_MAX_FAILED_ATTEMPTS must not be negative, got %d", c.LoginMaxFailedAttempts))
	}
	if c.TokenCleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_CLEANUP_INTERVAL must be positive, got %s", c.TokenCleanupInterval))
	}
	errs = append(errs, c.Cache.validate()...)
	return errors.Join(errs...)
}
