package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/park285/ninedt-etl/internal/domain"
)

var ErrBadRow = errors.New("bad game row")

// gameColumns maps accepted header names to a canonical column.
var gameColumns = map[string]string{
	"game_id":     "game_id",
	"player_id":   "player_id",
	"move_number": "move_number",
	"column":      "column",
	"column_pos":  "column",
	"result":      "result",
}

var requiredGameColumns = []string{"game_id", "player_id", "move_number", "column"}

// ReadGameCSV decodes raw move rows in file order. game_id is kept as the raw token;
// repairing it is the reconciler's job.
func ReadGameCSV(r io.Reader) ([]domain.RawMoveRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header", ErrBadRow)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canon, ok := gameColumns[name]; ok {
			if _, dup := pos[canon]; dup {
				return nil, fmt.Errorf("%w: duplicate column %q", ErrBadRow, name)
			}
			pos[canon] = i
		}
	}
	for _, c := range requiredGameColumns {
		if _, ok := pos[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrBadRow, c)
		}
	}
	resultPos, hasResult := pos["result"]

	var out []domain.RawMoveRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read game rows: %w", err)
		}
		line, _ := cr.FieldPos(0)

		rec := domain.RawMoveRecord{GameToken: row[pos["game_id"]]}
		if rec.PlayerID, err = strconv.ParseInt(strings.TrimSpace(row[pos["player_id"]]), 10, 64); err != nil {
			return nil, fmt.Errorf("%w: line %d: player_id %q", ErrBadRow, line, row[pos["player_id"]])
		}
		if rec.MoveNumber, err = strconv.Atoi(strings.TrimSpace(row[pos["move_number"]])); err != nil {
			return nil, fmt.Errorf("%w: line %d: move_number %q", ErrBadRow, line, row[pos["move_number"]])
		}
		if rec.ColumnPos, err = strconv.Atoi(strings.TrimSpace(row[pos["column"]])); err != nil {
			return nil, fmt.Errorf("%w: line %d: column %q", ErrBadRow, line, row[pos["column"]])
		}
		if hasResult {
			if rec.Result, err = domain.ParseOutcome(row[resultPos]); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrBadRow, line, err)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
