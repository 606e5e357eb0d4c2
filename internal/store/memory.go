package store

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/ninedt-etl/internal/domain"
)

// Memory is an in-process Sink used for dry runs and tests when no database is configured.
type Memory struct {
	mu sync.RWMutex

	players map[int64]domain.PlayerProfile
	results map[domain.PairKey]domain.GameResult
	moves   map[int64][]domain.Move // gameID -> moves in load order

	failures map[string]error // table -> error returned by the next load
}

func NewMemory() *Memory {
	return &Memory{
		players:  make(map[int64]domain.PlayerProfile),
		results:  make(map[domain.PairKey]domain.GameResult),
		moves:    make(map[int64][]domain.Move),
		failures: make(map[string]error),
	}
}

func (m *Memory) EnsureSchema(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close() error { return nil }

// FailNext makes the next load of table fail with err, leaving stored rows untouched.
func (m *Memory) FailNext(table string, err error) {
	m.mu.Lock()
	m.failures[table] = err
	m.mu.Unlock()
}

func (m *Memory) takeFailure(table string) error {
	err, ok := m.failures[table]
	if !ok {
		return nil
	}
	delete(m.failures, table)
	return sinkErr(table, "load", err)
}

func (m *Memory) LoadPlayers(ctx context.Context, players []domain.PlayerProfile) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("player_data"); err != nil {
		return 0, err
	}
	for _, p := range players {
		m.players[p.ID] = p
	}
	return len(players), nil
}

func (m *Memory) LoadResults(ctx context.Context, results []domain.GameResult) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("game_results"); err != nil {
		return 0, err
	}
	for _, r := range results {
		m.results[r.Key()] = r
	}
	return len(results), nil
}

func (m *Memory) LoadMoves(ctx context.Context, moves []domain.Move) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("game_moves"); err != nil {
		return 0, err
	}
	for _, g := range distinctGames(moves) {
		delete(m.moves, g)
	}
	for _, mv := range moves {
		m.moves[mv.GameID] = append(m.moves[mv.GameID], mv)
	}
	return len(moves), nil
}

// Results returns stored results ordered by game then player.
func (m *Memory) Results() []domain.GameResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.GameResult, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GameID != out[j].GameID {
			return out[i].GameID < out[j].GameID
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

// Moves returns stored moves ordered by game, keeping load order within a game.
func (m *Memory) Moves() []domain.Move {
	m.mu.RLock()
	defer m.mu.RUnlock()
	games := make([]int64, 0, len(m.moves))
	for g := range m.moves {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i] < games[j] })
	var out []domain.Move
	for _, g := range games {
		out = append(out, m.moves[g]...)
	}
	return out
}

func (m *Memory) Players() []domain.PlayerProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.PlayerProfile, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
