package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/park285/ninedt-etl/internal/domain"
	"github.com/park285/ninedt-etl/internal/sqlcat"
	_ "modernc.org/sqlite"
)

// SQLite writes to a local database file for offline analysis.
type SQLite struct {
	db     *sql.DB
	sql    sqlcat.Dialect
	tables Tables
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(ctx context.Context, path string, cat *sqlcat.Catalog, tables Tables) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if cat == nil {
		cat = sqlcat.MustDefault()
	}
	return &SQLite{db: db, sql: cat.Dialect("sqlite"), tables: tables}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) EnsureSchema(ctx context.Context) error {
	steps := []struct{ table, stmt string }{
		{s.tables.Players, "create_player_data"},
		{s.tables.Results, "create_game_results"},
		{s.tables.Moves, "create_game_moves"},
	}
	for _, st := range steps {
		q, err := s.sql.Render(st.stmt, s.tables)
		if err != nil {
			return sinkErr(st.table, "render", err)
		}
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return sinkErr(st.table, "create", err)
		}
	}
	return nil
}

func (s *SQLite) LoadPlayers(ctx context.Context, players []domain.PlayerProfile) (int, error) {
	err := s.inTx(ctx, s.tables.Players, func(tx *sql.Tx) error {
		stmt, err := s.prepare(ctx, tx, "upsert_player_data")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, p := range players {
			if _, err := stmt.ExecContext(ctx,
				p.ID, p.Gender, p.Title, p.First, p.Last,
				p.Street, p.City, p.State, p.Postcode, p.Email,
				p.DOB.Format("2006-01-02"), p.Registered.UTC().Format("2006-01-02 15:04:05"),
				p.Phone, p.Cell, p.Nat,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(players), nil
}

func (s *SQLite) LoadResults(ctx context.Context, results []domain.GameResult) (int, error) {
	err := s.inTx(ctx, s.tables.Results, func(tx *sql.Tx) error {
		stmt, err := s.prepare(ctx, tx, "upsert_game_result")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range results {
			if _, err := stmt.ExecContext(ctx, r.GameID, r.PlayerID, nullableResult(r.Result)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(results), nil
}

func (s *SQLite) LoadMoves(ctx context.Context, moves []domain.Move) (int, error) {
	err := s.inTx(ctx, s.tables.Moves, func(tx *sql.Tx) error {
		del, err := s.prepare(ctx, tx, "delete_game_moves")
		if err != nil {
			return err
		}
		defer del.Close()
		for _, g := range distinctGames(moves) {
			if _, err := del.ExecContext(ctx, g); err != nil {
				return err
			}
		}
		ins, err := s.prepare(ctx, tx, "insert_game_move")
		if err != nil {
			return err
		}
		defer ins.Close()
		for _, m := range moves {
			if _, err := ins.ExecContext(ctx, m.GameID, m.PlayerID, m.MoveNumber, m.ColumnPos); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(moves), nil
}

func (s *SQLite) prepare(ctx context.Context, tx *sql.Tx, name string) (*sql.Stmt, error) {
	q, err := s.sql.Render(name, s.tables)
	if err != nil {
		return nil, err
	}
	return tx.PrepareContext(ctx, q)
}

func (s *SQLite) inTx(ctx context.Context, table string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sinkErr(table, "begin", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return sinkErr(table, "load", err)
	}
	if err := tx.Commit(); err != nil {
		return sinkErr(table, "commit", err)
	}
	return nil
}

// DB exposes the handle for read-side tooling and tests.
func (s *SQLite) DB() *sql.DB { return s.db }
