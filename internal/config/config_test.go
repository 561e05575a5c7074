package config

import (
	"context"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ENV", "HTTP_PORT", "PORT", "DATABASE_URL", "POSTGRES_HOST", "POSTGRES_USER",
		"POSTGRES_PASSWORD", "REDIS_ADDR", "WEBHOOK_URL", "RATE_LIMIT_RPS", "LOG_SUPPRESS",
		"CACHE_TTL", "REDIS_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Http.Port != ":7777" {
		t.Fatalf("expected default port :7777 got %q", cfg.Http.Port)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("expected redis disabled by default, got %q", cfg.Redis.Addr)
	}
	if cfg.Cache.TTL != time.Minute {
		t.Fatalf("unexpected cache ttl %v", cfg.Cache.TTL)
	}
	if dsn := cfg.Postgres.DSN(); strings.Contains(dsn, "@") {
		t.Fatalf("default dsn must not embed credentials: %s", dsn)
	}
}

func TestLoad_PortFallbackAndNormalize(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Http.Port != ":9090" {
		t.Fatalf("expected :9090 got %q", cfg.Http.Port)
	}

	t.Setenv("HTTP_PORT", ":8081")
	cfg, err = Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Http.Port != ":8081" {
		t.Fatalf("HTTP_PORT should win, got %q", cfg.Http.Port)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", ":http")

	if _, err := Load(context.Background()); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
}

func TestLoad_InvalidWebhook(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEBHOOK_URL", "ftp://example.com/hook")

	if _, err := Load(context.Background()); err == nil {
		t.Fatalf("expected error for non-http webhook url")
	}
}

func TestLoad_SuppressList(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_SUPPRESS", "grm, Grammarly ,,lib.tracking")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"grm", "Grammarly", "lib.tracking"}
	if strings.Join(cfg.Log.Suppress, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected suppress list %v", cfg.Log.Suppress)
	}
}

func TestPostgresConfig_DSNAndRedacted(t *testing.T) {
	t.Parallel()

	p := PostgresConfig{Host: "db", Port: 5432, Database: "incident_log", User: "app", Password: "s3cret", SSLMode: "disable"}

	if got := p.DSN(); got != "postgres://app:s3cret@db:5432/incident_log?sslmode=disable" {
		t.Fatalf("unexpected dsn %s", got)
	}
	if got := p.Redacted(); strings.Contains(got, "s3cret") {
		t.Fatalf("password leaked: %s", got)
	}

	p.URL = "postgres://other:5432/x"
	if p.DSN() != p.URL {
		t.Fatalf("DATABASE_URL should win")
	}
}

func TestLoad_RedisTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Redis.Enabled() || cfg.Redis.Timeout != 5*time.Second {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}

	t.Setenv("REDIS_TIMEOUT", "-1s")
	if _, err := Load(context.Background()); err == nil {
		t.Fatalf("expected error for negative REDIS_TIMEOUT")
	}
}
