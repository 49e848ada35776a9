package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/habitauth/pkg/jwtx"
)

const (
	KeyModeEphemeral  = "ephemeral"
	KeyModePersistent = "persistent"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Addr      string // HTTP listen address (default: :8080)
	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)

	DBDriver string // sqlite or postgres (default: sqlite)
	DBDSN    string // Driver DSN (default: file:auth.db for sqlite)

	Issuer       string        // Issuer claim (default: habitauth)
	Audience     []string      // Comma separated audience claim (default: habit-app)
	AccessTTL    time.Duration // Access token lifetime (default: 15m)
	RefreshTTL   time.Duration // Refresh token lifetime (default: 7d)
	ReplayWindow time.Duration // How long a rotated token's reuse revokes the family (default: 24h, 0 disables)

	Algorithm  string // EdDSA or HS256 (default: EdDSA)
	NumKeys    int    // Active signing keys (default: 3)
	KeyMode    string // ephemeral or persistent (default: ephemeral)
	MasterKey  string // Optional: encrypts persisted signing keys, required in persistent mode
	PepperFile string // Password pepper file, created on first start (default: ./pepper)

	RedisAddr         string        // Optional: enables the distributed login throttle
	LoginMaxAttempts  int           // Failed logins per window (default: 5)
	LoginCooldown     time.Duration // Throttle window (default: 15m)
	NATSURL           string        // Optional: publishes audit events to JetStream
	AuditSubject      string        // JetStream subject prefix (default: habitauth.audit)
	OTLPEndpoint      string        // Optional: OTLP/HTTP trace collector
	RevealResetTokens bool          // Log password reset tokens (dev only)

	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	RefreshRetention     time.Duration // How long revoked refresh records are kept past expiry (default: 30d)
}

// LoadConfig reads the environment, after loading an optional .env file from
// the working directory.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:      getEnvOrDefault("AUTH_ADDR", ":8080"),
		Env:       getEnvOrDefault("AUTH_ENV", "dev"),
		LogLevel:  getEnvOrDefault("AUTH_LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("AUTH_LOG_FORMAT", "json"),

		DBDriver: getEnvOrDefault("AUTH_DB_DRIVER", DriverSQLite),
		DBDSN:    os.Getenv("AUTH_DB_DSN"),

		Issuer:       getEnvOrDefault("AUTH_ISSUER", "habitauth"),
		Audience:     splitList(getEnvOrDefault("AUTH_AUDIENCE", "habit-app")),
		AccessTTL:    getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:   getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		ReplayWindow: getEnvDurationOrDefault("AUTH_REPLAY_WINDOW", 24*time.Hour),

		Algorithm:  getEnvOrDefault("AUTH_SIGNING_ALG", jwtx.AlgorithmEdDSA),
		NumKeys:    getEnvIntOrDefault("AUTH_NUM_KEYS", 3),
		KeyMode:    getEnvOrDefault("AUTH_KEY_MODE", KeyModeEphemeral),
		MasterKey:  os.Getenv("AUTH_MASTER_KEY"),
		PepperFile: getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		RedisAddr:         os.Getenv("AUTH_REDIS_ADDR"),
		LoginMaxAttempts:  getEnvIntOrDefault("AUTH_LOGIN_MAX_ATTEMPTS", 5),
		LoginCooldown:     getEnvDurationOrDefault("AUTH_LOGIN_COOLDOWN", 15*time.Minute),
		NATSURL:           os.Getenv("AUTH_NATS_URL"),
		AuditSubject:      getEnvOrDefault("AUTH_AUDIT_SUBJECT", "habitauth.audit"),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RevealResetTokens: getEnvOrDefault("AUTH_REVEAL_RESET_TOKENS", "false") == "true",

		ShutdownGracePeriod:  getEnvDurationOrDefault("AUTH_SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("AUTH_HOUSEKEEPING_INTERVAL", time.Hour),
		RefreshRetention:     getEnvDurationOrDefault("AUTH_REFRESH_RETENTION", 30*24*time.Hour),
	}

	if cfg.DBDSN == "" && cfg.DBDriver == DriverSQLite {
		cfg.DBDSN = "file:auth.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	return cfg
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("AUTH_DB_DRIVER %q: want sqlite or postgres", c.DBDriver))
	}
	if c.DBDSN == "" {
		errs = append(errs, errors.New("AUTH_DB_DSN is required"))
	}

	if c.Algorithm != jwtx.AlgorithmEdDSA && c.Algorithm != jwtx.AlgorithmHS256 {
		errs = append(errs, fmt.Errorf("AUTH_SIGNING_ALG %q: want EdDSA or HS256", c.Algorithm))
	}
	switch c.KeyMode {
	case KeyModeEphemeral:
	case KeyModePersistent:
		if c.MasterKey == "" {
			errs = append(errs, errors.New("AUTH_MASTER_KEY is required with persistent keys"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_KEY_MODE %q: want ephemeral or persistent", c.KeyMode))
	}

	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TTL must be positive"))
	}
	if c.RefreshTTL <= c.AccessTTL {
		errs = append(errs, errors.New("AUTH_REFRESH_TTL must exceed AUTH_ACCESS_TTL"))
	}
	if c.ReplayWindow < 0 {
		errs = append(errs, errors.New("AUTH_REPLAY_WINDOW must not be negative"))
	}
	if c.RefreshRetention > 0 && c.RefreshRetention < c.ReplayWindow {
		errs = append(errs, errors.New("AUTH_REFRESH_RETENTION must cover AUTH_REPLAY_WINDOW"))
	}

	if c.Env == "prod" && c.RevealResetTokens {
		errs = append(errs, errors.New("AUTH_REVEAL_RESET_TOKENS cannot be enabled in prod"))
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
