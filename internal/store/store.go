package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/ninedt-etl/internal/domain"
)

var ErrSink = errors.New("sink failure")

// Sink persists normalized rows. Every Load call is atomic and replaces what an
// earlier load of the same keys wrote, so a failed run can simply be loaded again.
// Moves reference results, and results reference players.
type Sink interface {
	EnsureSchema(ctx context.Context) error
	LoadPlayers(ctx context.Context, players []domain.PlayerProfile) (int, error)
	LoadResults(ctx context.Context, results []domain.GameResult) (int, error)
	LoadMoves(ctx context.Context, moves []domain.Move) (int, error)
	Close() error
}

// Tables names the three target tables; rendered into the statement catalog.
type Tables struct {
	Players string
	Results string
	Moves   string
}

func DefaultTables() Tables {
	return Tables{Players: "player_data", Results: "game_results", Moves: "game_moves"}
}

// SinkError wraps a driver failure with the table and operation it hit.
type SinkError struct {
	Table string
	Op    string
	Err   error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

func (e *SinkError) Is(target error) bool { return target == ErrSink }

func sinkErr(table, op string, err error) error {
	if err == nil {
		return nil
	}
	return &SinkError{Table: table, Op: op, Err: err}
}

// nullableResult maps an unresolved outcome to SQL NULL.
func nullableResult(o domain.Outcome) any {
	if !o.IsSet() {
		return nil
	}
	return string(o)
}

func distinctGames(moves []domain.Move) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	for _, m := range moves {
		if _, ok := seen[m.GameID]; ok {
			continue
		}
		seen[m.GameID] = struct{}{}
		out = append(out, m.GameID)
	}
	return out
}
