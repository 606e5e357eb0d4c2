package sqlcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type names struct{ Players, Results, Moves string }

var defaultNames = names{Players: "player_data", Results: "game_results", Moves: "game_moves"}

func TestEmbeddedStatementsRender(t *testing.T) {
	c := MustDefault()
	for _, dialect := range []string{"postgres", "sqlite"} {
		for _, name := range []string{"create_player_data", "create_game_results", "create_game_moves"} {
			q, err := c.Dialect(dialect).Render(name, defaultNames)
			if err != nil {
				t.Fatalf("%s.%s: %v", dialect, name, err)
			}
			if !strings.HasPrefix(q, "CREATE TABLE IF NOT EXISTS") {
				t.Fatalf("%s.%s rendered %q", dialect, name, q)
			}
		}
	}
	q, err := c.Render("postgres.create_game_moves", defaultNames)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(q, "REFERENCES game_results (game_id, player_id)") {
		t.Fatalf("moves table should reference results: %s", q)
	}
}

func TestRenderMissingKeyAndData(t *testing.T) {
	c := MustDefault()
	if _, err := c.Render("postgres.nope", defaultNames); err == nil {
		t.Fatalf("expected error for unknown statement")
	}
	if _, err := c.Render("postgres.create_game_results", map[string]string{"Players": "p"}); err == nil {
		t.Fatalf("expected error for missing template field")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	override := "sqlite:\n  delete_game_moves: \"DELETE FROM {{.Moves}} WHERE game_id = ? AND 1 = 1\"\n"
	if err := os.WriteFile(filepath.Join(dir, "10-local.yaml"), []byte(override), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	q, err := c.Render("sqlite.delete_game_moves", defaultNames)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if q != "DELETE FROM game_moves WHERE game_id = ? AND 1 = 1" {
		t.Fatalf("override not applied: %q", q)
	}
	if !c.Has("postgres.create_game_results") {
		t.Fatalf("embedded statements lost after override")
	}
}

func TestOverrideDirDuplicateKey(t *testing.T) {
	dir := t.TempDir()
	body := []byte("sqlite:\n  insert_game_move: \"x\"\n")
	for _, n := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, n), body, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate override key error")
	}
}
