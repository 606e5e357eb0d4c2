package reconcile

import "github.com/park285/ninedt-etl/internal/domain"

// Overwrite records an explicit non-draw outcome replaced by draw propagation.
type Overwrite struct {
	Pair     domain.PairKey
	Previous domain.Outcome
}

type Inference struct {
	// Results holds one entry per distinct (game, player) pair in first-seen move order.
	// Unresolved pairs keep OutcomeUnset.
	Results    []domain.GameResult
	Overwrites []Overwrite
	Filled     int
	Unresolved []domain.PairKey
}

// Infer seeds every participant pair from the moves view, overlays the explicit
// partial results, then runs two phases in a fixed order:
//
//  1. every participant of a game holding a draw is set to draw, whatever it held;
//  2. every still-unset participant of a game holding a win is set to lose.
//
// Phase 1 may discard an explicit win or lose; those are listed in Overwrites.
func Infer(moves []domain.Move, partials []domain.PartialResult) (*Inference, error) {
	index := make(map[domain.PairKey]int)
	byGame := make(map[int64][]int)
	var gameOrder []int64
	results := make([]domain.GameResult, 0)

	for _, m := range moves {
		k := domain.PairKey{GameID: m.GameID, PlayerID: m.PlayerID}
		if _, ok := index[k]; ok {
			continue
		}
		if _, ok := byGame[m.GameID]; !ok {
			gameOrder = append(gameOrder, m.GameID)
		}
		index[k] = len(results)
		byGame[m.GameID] = append(byGame[m.GameID], len(results))
		results = append(results, domain.GameResult{GameID: m.GameID, PlayerID: m.PlayerID})
	}

	for _, p := range partials {
		k := domain.PairKey{GameID: p.GameID, PlayerID: p.PlayerID}
		i, ok := index[k]
		if !ok {
			return nil, &OrphanResultError{Pair: k}
		}
		if p.Result.IsSet() {
			results[i].Result = p.Result
		}
	}

	inf := &Inference{}

	drawGames := gamesHolding(results, byGame, gameOrder, domain.OutcomeDraw)
	for _, g := range drawGames {
		for _, i := range byGame[g] {
			if prev := results[i].Result; prev.IsSet() && prev != domain.OutcomeDraw {
				inf.Overwrites = append(inf.Overwrites, Overwrite{Pair: results[i].Key(), Previous: prev})
			}
			results[i].Result = domain.OutcomeDraw
		}
	}

	// Win games are computed after draw propagation, so a game that held both is draw only.
	winGames := gamesHolding(results, byGame, gameOrder, domain.OutcomeWin)
	for _, g := range winGames {
		for _, i := range byGame[g] {
			if !results[i].Result.IsSet() {
				results[i].Result = domain.OutcomeLose
				inf.Filled++
			}
		}
	}

	for _, r := range results {
		if !r.Result.IsSet() {
			inf.Unresolved = append(inf.Unresolved, r.Key())
		}
	}
	inf.Results = results
	return inf, nil
}

// InferResults is Infer reduced to its results. Any unresolved pair yields an
// *UnresolvedResultError alongside the (partially unset) results.
func InferResults(moves []domain.Move, partials []domain.PartialResult) ([]domain.GameResult, error) {
	inf, err := Infer(moves, partials)
	if err != nil {
		return nil, err
	}
	if len(inf.Unresolved) > 0 {
		return inf.Results, &UnresolvedResultError{Pairs: inf.Unresolved}
	}
	return inf.Results, nil
}

// Reinfer runs inference again over an existing result set, treating each set
// outcome as explicit. A fully resolved set comes back unchanged.
func Reinfer(results []domain.GameResult) (*Inference, error) {
	moves := make([]domain.Move, 0, len(results))
	partials := make([]domain.PartialResult, 0, len(results))
	for _, r := range results {
		moves = append(moves, domain.Move{GameID: r.GameID, PlayerID: r.PlayerID})
		if r.Result.IsSet() {
			partials = append(partials, domain.PartialResult{GameID: r.GameID, PlayerID: r.PlayerID, Result: r.Result})
		}
	}
	return Infer(moves, partials)
}

func gamesHolding(results []domain.GameResult, byGame map[int64][]int, order []int64, want domain.Outcome) []int64 {
	var out []int64
	for _, g := range order {
		for _, i := range byGame[g] {
			if results[i].Result == want {
				out = append(out, g)
				break
			}
		}
	}
	return out
}
