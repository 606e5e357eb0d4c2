package reconcile

import (
	"math"
	"strconv"
	"strings"

	"github.com/park285/ninedt-etl/internal/domain"
)

// RepairedRun describes one contiguous run of a malformed token and the id it was given.
type RepairedRun struct {
	Token  string
	GameID int64
	Start  int
	Count  int
}

type RepairStats struct {
	Records int
	Runs    []RepairedRun
}

// RepairedRecords counts records whose token was rewritten.
func (s RepairStats) RepairedRecords() int {
	n := 0
	for _, r := range s.Runs {
		n += r.Count
	}
	return n
}

// RepairGameIDs replaces malformed game tokens with the successor of the last valid id
// seen before them. Consecutive records sharing one malformed token form a single run.
// The run does not advance the last valid id; the next numeric token does.
func RepairGameIDs(raw []domain.RawMoveRecord) ([]domain.CleanedMoveRecord, RepairStats, error) {
	out := make([]domain.CleanedMoveRecord, len(raw))
	stats := RepairStats{Records: len(raw)}

	var (
		lastValid int64
		haveValid bool
		inRun     bool
		runToken  string
	)
	for i, rec := range raw {
		id, ok := parseGameID(rec.GameToken)
		if ok {
			lastValid, haveValid, inRun = id, true, false
		} else {
			switch {
			case inRun && rec.GameToken == runToken:
				stats.Runs[len(stats.Runs)-1].Count++
			case inRun:
				return nil, RepairStats{}, &MalformedIdentifierError{Index: i, Token: rec.GameToken, Previous: runToken, Reason: ReasonAdjacentRuns}
			case !haveValid:
				return nil, RepairStats{}, &MalformedIdentifierError{Index: i, Token: rec.GameToken, Reason: ReasonNoPrecedingID}
			case lastValid == math.MaxInt64:
				return nil, RepairStats{}, &MalformedIdentifierError{Index: i, Token: rec.GameToken, Reason: ReasonIDOverflow}
			default:
				inRun, runToken = true, rec.GameToken
				stats.Runs = append(stats.Runs, RepairedRun{Token: runToken, GameID: lastValid + 1, Start: i, Count: 1})
			}
			id = lastValid + 1
		}
		out[i] = domain.CleanedMoveRecord{
			GameID:     id,
			PlayerID:   rec.PlayerID,
			MoveNumber: rec.MoveNumber,
			ColumnPos:  rec.ColumnPos,
			Result:     rec.Result,
		}
	}
	return out, stats, nil
}

// parseGameID accepts ASCII digits only, so signs and blanks count as malformed.
func parseGameID(token string) (int64, bool) {
	t := strings.TrimSpace(token)
	if t == "" {
		return 0, false
	}
	for i := 0; i < len(t); i++ {
		if t[i] < '0' || t[i] > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(t, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
