package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/ninedt-etl/internal/domain"
)

func TestSplit(t *testing.T) {
	records := []domain.CleanedMoveRecord{
		{GameID: 1, PlayerID: 5, MoveNumber: 1, ColumnPos: 2},
		{GameID: 1, PlayerID: 6, MoveNumber: 2, ColumnPos: 2},
		{GameID: 1, PlayerID: 5, MoveNumber: 3, ColumnPos: 1, Result: domain.OutcomeWin},
		{GameID: 2, PlayerID: 6, MoveNumber: 1, ColumnPos: 4, Result: domain.OutcomeDraw},
	}
	moves, partials := Split(records)

	wantMoves := []domain.Move{
		{GameID: 1, PlayerID: 5, MoveNumber: 1, ColumnPos: 2},
		{GameID: 1, PlayerID: 6, MoveNumber: 2, ColumnPos: 2},
		{GameID: 1, PlayerID: 5, MoveNumber: 3, ColumnPos: 1},
		{GameID: 2, PlayerID: 6, MoveNumber: 1, ColumnPos: 4},
	}
	if diff := cmp.Diff(wantMoves, moves); diff != "" {
		t.Fatalf("moves mismatch (-want +got):\n%s", diff)
	}
	wantPartials := []domain.PartialResult{
		{GameID: 1, PlayerID: 5, Result: domain.OutcomeWin},
		{GameID: 2, PlayerID: 6, Result: domain.OutcomeDraw},
	}
	if diff := cmp.Diff(wantPartials, partials); diff != "" {
		t.Fatalf("partials mismatch (-want +got):\n%s", diff)
	}
	if records[2].Result != domain.OutcomeWin {
		t.Fatalf("input mutated")
	}
}
