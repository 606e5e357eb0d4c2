package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	DatabaseURL string
	RedisURL    string

	GamesSource   string
	PlayersSource string

	AllowUnresolved bool
	FetchTimeout    time.Duration
	LockTTL         time.Duration
	SQLDir          string
}

// envFiles are tried in order; the first one found wins. Variables already set in the
// process environment are never overridden.
var envFiles = []string{".env", "../.env"}

func Load() (*AppConfig, error) {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}
	return FromEnv()
}

// FromEnv reads the process environment without touching .env files.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		DatabaseURL:  "memory",
		FetchTimeout: 30 * time.Second,
		LockTTL:      15 * time.Minute,
	}

	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.GamesSource = strings.TrimSpace(os.Getenv("GAMES_SOURCE"))
	cfg.PlayersSource = strings.TrimSpace(os.Getenv("PLAYERS_SOURCE"))
	cfg.SQLDir = strings.TrimSpace(os.Getenv("ETL_SQL_DIR"))

	if v := strings.TrimSpace(os.Getenv("ETL_ALLOW_UNRESOLVED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("ETL_ALLOW_UNRESOLVED must be a boolean")
		}
		cfg.AllowUnresolved = b
	}
	if v := strings.TrimSpace(os.Getenv("ETL_FETCH_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FetchTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("ETL_LOCK_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LockTTL = time.Duration(n) * time.Second
		}
	}

	return cfg, nil
}

// RequireGamesSource and RequirePlayersSource are checked per command, since
// `schema` needs neither.
func (c *AppConfig) RequireGamesSource() error {
	if strings.TrimSpace(c.GamesSource) == "" {
		return errors.New("GAMES_SOURCE (or --source) is required")
	}
	return nil
}

func (c *AppConfig) RequirePlayersSource() error {
	if strings.TrimSpace(c.PlayersSource) == "" {
		return errors.New("PLAYERS_SOURCE (or --source) is required")
	}
	return nil
}
