package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/iho/ledgercal/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	// t.Setenv registers the restore; the variable must be absent for
	// envDefault to apply.
	for _, key := range []string{"DATABASE_URL", "DATA_SOURCE", "REDIS_URL", "HTTP_PORT", "TIME_ZONE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.DataSource != "postgres" {
		t.Fatalf("expected default data source postgres, got %s", cfg.DataSource)
	}

	if cfg.RedisURL != "" {
		t.Fatalf("expected Redis URL default to be empty, got %q", cfg.RedisURL)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.TimeZone != "UTC" {
		t.Fatalf("expected default time zone UTC, got %s", cfg.TimeZone)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATA_SOURCE", "memory")
	t.Setenv("TIME_ZONE", "Asia/Jakarta")
	t.Setenv("SNAPSHOT_REFRESH_INTERVAL", "5m")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom Redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected custom HTTP port, got %s", cfg.HTTPPort)
	}

	if cfg.DataSource != "memory" {
		t.Fatalf("expected memory data source, got %s", cfg.DataSource)
	}

	if cfg.SnapshotRefreshInterval != 5*time.Minute {
		t.Fatalf("expected 5m refresh interval, got %s", cfg.SnapshotRefreshInterval)
	}

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("expected configured zone to resolve: %v", err)
	}
	if loc.String() != "Asia/Jakarta" {
		t.Fatalf("expected Asia/Jakarta, got %s", loc)
	}
}

func TestLoadRejectsUnknownDataSource(t *testing.T) {
	t.Setenv("DATA_SOURCE", "sqlite")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for unknown data source")
	}
}
