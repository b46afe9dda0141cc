package config

import (
	"database/sql"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("expected postgres driver, got %s", cfg.DBDriver)
	}
	if cfg.ParticipantTokenTTL != 24*time.Hour || cfg.AdminTokenTTL != 12*time.Hour {
		t.Fatalf("unexpected TTLs %v %v", cfg.ParticipantTokenTTL, cfg.AdminTokenTTL)
	}
	if cfg.HandleAttempts != 10 {
		t.Fatalf("expected 10 handle attempts, got %d", cfg.HandleAttempts)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.Development() {
		t.Fatalf("expected production by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/pairs.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("PARTICIPANT_TOKEN_TTL", "2h")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "9000" || cfg.ParticipantTokenTTL != 2*time.Hour {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.CORSAllowedOrigins)
	}
	driver, dsn := cfg.DSN()
	if driver != "sqlite" || !strings.HasPrefix(dsn, "/tmp/pairs.db?") {
		t.Fatalf("unexpected sqlite dsn %s %s", driver, dsn)
	}
	if !cfg.Development() {
		t.Fatalf("expected development mode")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET": ""}, want: "JWT_SECRET"},
		{name: "bad driver", env: map[string]string{"JWT_SECRET": "s", "DB_DRIVER": "mysql"}, want: "DB_DRIVER"},
		{name: "bad duration", env: map[string]string{"JWT_SECRET": "s", "ADMIN_TOKEN_TTL": "soon"}, want: "parse env:"},
		{name: "zero ttl", env: map[string]string{"JWT_SECRET": "s", "ADMIN_TOKEN_TTL": "0s"}, want: "TTL"},
		{name: "zero attempts", env: map[string]string{"JWT_SECRET": "s", "HANDLE_ATTEMPTS": "0"}, want: "HANDLE_ATTEMPTS"},
		{name: "bad isolation", env: map[string]string{"JWT_SECRET": "s", "TX_ISOLATION": "chaos"}, want: "TX_ISOLATION"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{
		DBDriver: "postgres",
		Postgres: PostgresConfig{Host: "db", Port: "5433", User: "u", Password: "p", DB: "events", SSLMode: "require"},
	}
	driver, dsn := cfg.DSN()
	if driver != "postgres" {
		t.Fatalf("expected postgres, got %s", driver)
	}
	want := "host=db user=u password=p dbname=events port=5433 sslmode=require"
	if dsn != want {
		t.Fatalf("expected %q, got %q", want, dsn)
	}
}

func TestIsolation(t *testing.T) {
	tests := map[string]sql.IsolationLevel{
		"":                sql.LevelDefault,
		"read_committed":  sql.LevelReadCommitted,
		"repeatable-read": sql.LevelRepeatableRead,
		"SERIALIZABLE":    sql.LevelSerializable,
	}
	for in, want := range tests {
		got, err := (&Config{TxIsolation: in}).Isolation()
		if err != nil {
			t.Fatalf("Isolation(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("Isolation(%q) = %v, want %v", in, got, want)
		}
	}
}
