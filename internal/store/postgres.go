package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/park285/ninedt-etl/internal/domain"
	"github.com/park285/ninedt-etl/internal/sqlcat"
)

// Postgres loads rows with COPY into a per-transaction staging table and merges
// them into the target table from there.
type Postgres struct {
	db     *sql.DB
	sql    sqlcat.Dialect
	tables Tables
}

func NewPostgres(ctx context.Context, databaseURL string, cat *sqlcat.Catalog, tables Tables) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newPostgresWithDB(db, cat, tables), nil
}

func newPostgresWithDB(db *sql.DB, cat *sqlcat.Catalog, tables Tables) *Postgres {
	if cat == nil {
		cat = sqlcat.MustDefault()
	}
	return &Postgres{db: db, sql: cat.Dialect("postgres"), tables: tables}
}

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	steps := []struct{ table, stmt string }{
		{p.tables.Players, "create_player_data"},
		{p.tables.Results, "create_game_results"},
		{p.tables.Moves, "create_game_moves"},
	}
	for _, s := range steps {
		q, err := p.sql.Render(s.stmt, p.tables)
		if err != nil {
			return sinkErr(s.table, "render", err)
		}
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return sinkErr(s.table, "create", err)
		}
	}
	return nil
}

func (p *Postgres) LoadPlayers(ctx context.Context, players []domain.PlayerProfile) (int, error) {
	job := copyJob{
		table:   p.tables.Players,
		stage:   "stage_player_data",
		columns: []string{"id", "gender", "title", "first", "last", "street", "city", "state", "postcode", "email", "dob", "registered", "phone", "cell", "nat"},
		merge:   []string{"merge_player_data"},
		rows: func(ctx context.Context, stmt *sql.Stmt) error {
			for _, pl := range players {
				if _, err := stmt.ExecContext(ctx,
					pl.ID, pl.Gender, pl.Title, pl.First, pl.Last,
					pl.Street, pl.City, pl.State, pl.Postcode, pl.Email,
					pl.DOB.Format("2006-01-02"), pl.Registered.UTC().Format("2006-01-02 15:04:05"),
					pl.Phone, pl.Cell, pl.Nat,
				); err != nil {
					return err
				}
			}
			return nil
		},
	}
	if err := p.copyMerge(ctx, job); err != nil {
		return 0, err
	}
	return len(players), nil
}

func (p *Postgres) LoadResults(ctx context.Context, results []domain.GameResult) (int, error) {
	job := copyJob{
		table:   p.tables.Results,
		stage:   "stage_game_results",
		columns: []string{"game_id", "player_id", "result"},
		merge:   []string{"merge_game_results"},
		rows: func(ctx context.Context, stmt *sql.Stmt) error {
			for _, r := range results {
				if _, err := stmt.ExecContext(ctx, r.GameID, r.PlayerID, nullableResult(r.Result)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	if err := p.copyMerge(ctx, job); err != nil {
		return 0, err
	}
	return len(results), nil
}

func (p *Postgres) LoadMoves(ctx context.Context, moves []domain.Move) (int, error) {
	job := copyJob{
		table:   p.tables.Moves,
		stage:   "stage_game_moves",
		columns: []string{"game_id", "player_id", "move_number", "column_pos"},
		merge:   []string{"clear_game_moves", "merge_game_moves"},
		rows: func(ctx context.Context, stmt *sql.Stmt) error {
			for _, m := range moves {
				if _, err := stmt.ExecContext(ctx, m.GameID, m.PlayerID, m.MoveNumber, m.ColumnPos); err != nil {
					return err
				}
			}
			return nil
		},
	}
	if err := p.copyMerge(ctx, job); err != nil {
		return 0, err
	}
	return len(moves), nil
}

type copyJob struct {
	table   string
	stage   string
	columns []string
	merge   []string
	rows    func(ctx context.Context, stmt *sql.Stmt) error
}

func (p *Postgres) copyMerge(ctx context.Context, job copyJob) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return sinkErr(job.table, "begin", err)
	}
	// no-op once committed
	defer func() { _ = tx.Rollback() }()

	ddl, err := p.sql.Render(job.stage, p.tables)
	if err != nil {
		return sinkErr(job.table, "render", err)
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return sinkErr(job.table, "stage", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("stage_"+job.table, job.columns...))
	if err != nil {
		return sinkErr(job.table, "copy", err)
	}
	if err := job.rows(ctx, stmt); err != nil {
		_ = stmt.Close()
		return sinkErr(job.table, "copy", err)
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return sinkErr(job.table, "copy", err)
	}
	if err := stmt.Close(); err != nil {
		return sinkErr(job.table, "copy", err)
	}

	for _, name := range job.merge {
		q, err := p.sql.Render(name, p.tables)
		if err != nil {
			return sinkErr(job.table, "render", err)
		}
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return sinkErr(job.table, "merge", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return sinkErr(job.table, "commit", err)
	}
	return nil
}
