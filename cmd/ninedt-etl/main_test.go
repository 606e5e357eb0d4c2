package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "memory")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOG_TO_FILE", "false")
	t.Setenv("LOG_LEVEL", "error")

	root, cleanup := newRootCmd()
	defer cleanup()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeGames(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.csv")
	body := "game_id,player_id,move_number,column,result\n" +
		"5,1,1,1,\n" +
		"5,2,2,1,win\n" +
		"ERR,1,1,2,\n" +
		"ERR,2,2,2,draw\n" +
		"7,1,1,3,\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write games: %v", err)
	}
	return path
}

func TestGamesCommand(t *testing.T) {
	out, err := execute(t, "games", "--source", writeGames(t), "--allow-unresolved")
	if err != nil {
		t.Fatalf("games: %v", err)
	}
	if !strings.Contains(out, "5 records, 2 repaired in 1 runs") || !strings.Contains(out, "1 unresolved") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestGamesCommandFailsOnUnresolved(t *testing.T) {
	_, err := execute(t, "games", "--source", writeGames(t))
	if err == nil || !strings.Contains(err.Error(), "unresolved") {
		t.Fatalf("expected unresolved error, got %v", err)
	}
}

func TestGamesCommandNeedsSource(t *testing.T) {
	t.Setenv("GAMES_SOURCE", "")
	_, err := execute(t, "games")
	if err == nil || !strings.Contains(err.Error(), "GAMES_SOURCE") {
		t.Fatalf("expected missing source error, got %v", err)
	}
}

func TestSchemaCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "9dt.db")
	out, err := execute(t, "schema", "--database-url", "sqlite://"+db)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if strings.TrimSpace(out) != "schema ready" {
		t.Fatalf("unexpected output: %q", out)
	}
	if _, err := os.Stat(db); err != nil {
		t.Fatalf("sqlite file not created: %v", err)
	}
}

func TestHistoryNeedsRedis(t *testing.T) {
	if _, err := execute(t, "history"); err == nil {
		t.Fatalf("expected error without REDIS_URL")
	}
}
