package config

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/database"

	"github.com/caarlos0/env/v11"
)

type PostgresConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	DB       string `env:"DB" envDefault:"pairing"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// Config is the service configuration, read from the environment.
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	AppEnv string `env:"APP_ENV" envDefault:"production"`

	DBDriver         string         `env:"DB_DRIVER" envDefault:"postgres"`
	Postgres         PostgresConfig `envPrefix:"POSTGRES_"`
	SQLitePath       string         `env:"SQLITE_PATH" envDefault:"pairing.db"`
	DBConnectTimeout time.Duration  `env:"DB_CONNECT_TIMEOUT" envDefault:"30s"`
	TxIsolation      string         `env:"TX_ISOLATION" envDefault:"read_committed"`

	JWTSecret           string        `env:"JWT_SECRET"`
	AdminPassword       string        `env:"ADMIN_PASSWORD"`
	ParticipantTokenTTL time.Duration `env:"PARTICIPANT_TOKEN_TTL" envDefault:"24h"`
	AdminTokenTTL       time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`
	HandleAttempts      int           `env:"HANDLE_ATTEMPTS" envDefault:"10"`

	RedisAddr     string `env:"REDIS_ADDR"`
	EventsChannel string `env:"EVENTS_CHANNEL" envDefault:"pairing_events"`

	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	StatsSchedule      string        `env:"STATS_SCHEDULE" envDefault:"@every 30s"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.DBDriver) {
	case database.DriverPostgres, database.DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q, expected postgres or sqlite", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.ParticipantTokenTTL <= 0 || c.AdminTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.HandleAttempts <= 0 {
		return fmt.Errorf("HANDLE_ATTEMPTS must be positive, got %d", c.HandleAttempts)
	}
	if _, err := c.Isolation(); err != nil {
		return err
	}
	return nil
}

// DSN returns the driver name and connection string for the configured store.
func (c *Config) DSN() (string, string) {
	driver := strings.ToLower(c.DBDriver)
	if driver == database.DriverSQLite {
		return driver, database.SQLiteDSN(c.SQLitePath)
	}
	p := c.Postgres
	return driver, fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		p.Host, p.User, p.Password, p.DB, p.Port, p.SSLMode)
}

// Isolation maps TX_ISOLATION to a database/sql isolation level.
func (c *Config) Isolation() (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.ReplaceAll(c.TxIsolation, "-", "_")) {
	case "", "default":
		return sql.LevelDefault, nil
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	}
	return sql.LevelDefault, fmt.Errorf("unsupported TX_ISOLATION %q", c.TxIsolation)
}

// Development reports whether human-readable logging should be used.
func (c *Config) Development() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	}
	return false
}
