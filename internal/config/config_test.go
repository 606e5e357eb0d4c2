package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "REDIS_URL", "GAMES_SOURCE", "PLAYERS_SOURCE", "ETL_ALLOW_UNRESOLVED", "ETL_FETCH_TIMEOUT_SEC", "ETL_LOCK_TTL_SEC", "ETL_SQL_DIR"} {
		t.Setenv(k, "")
	}
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.DatabaseURL != "memory" || cfg.FetchTimeout != 30*time.Second || cfg.LockTTL != 15*time.Minute || cfg.AllowUnresolved {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.RequireGamesSource(); err == nil {
		t.Fatalf("expected missing games source error")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://etl@localhost/9dt_db?sslmode=disable")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("GAMES_SOURCE", "game_data.csv")
	t.Setenv("ETL_ALLOW_UNRESOLVED", "true")
	t.Setenv("ETL_FETCH_TIMEOUT_SEC", "5")
	t.Setenv("ETL_LOCK_TTL_SEC", "-1")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if !cfg.AllowUnresolved || cfg.FetchTimeout != 5*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.LockTTL != 15*time.Minute {
		t.Fatalf("invalid lock ttl should keep default, got %v", cfg.LockTTL)
	}
	if err := cfg.RequireGamesSource(); err != nil {
		t.Fatalf("RequireGamesSource: %v", err)
	}
}

func TestFromEnvRejectsBadBool(t *testing.T) {
	t.Setenv("ETL_ALLOW_UNRESOLVED", "maybe")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for non-boolean ETL_ALLOW_UNRESOLVED")
	}
}
