package reconcile

import "github.com/park285/ninedt-etl/internal/domain"

// Split projects repaired records into the moves view and the sparse outcome view.
func Split(records []domain.CleanedMoveRecord) ([]domain.Move, []domain.PartialResult) {
	moves := make([]domain.Move, 0, len(records))
	var partials []domain.PartialResult
	for _, r := range records {
		moves = append(moves, domain.Move{
			GameID:     r.GameID,
			PlayerID:   r.PlayerID,
			MoveNumber: r.MoveNumber,
			ColumnPos:  r.ColumnPos,
		})
		if r.Result.IsSet() {
			partials = append(partials, domain.PartialResult{GameID: r.GameID, PlayerID: r.PlayerID, Result: r.Result})
		}
	}
	return moves, partials
}
