package domain

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is a participant's result in a single game. The zero value means unset.
type Outcome string

const (
	OutcomeUnset Outcome = ""
	OutcomeWin   Outcome = "win"
	OutcomeLose  Outcome = "lose"
	OutcomeDraw  Outcome = "draw"
)

// ParseOutcome accepts win/lose/draw in any case; blank input yields OutcomeUnset.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return OutcomeUnset, nil
	case "win":
		return OutcomeWin, nil
	case "lose", "loss":
		return OutcomeLose, nil
	case "draw":
		return OutcomeDraw, nil
	default:
		return OutcomeUnset, fmt.Errorf("unknown outcome %q", s)
	}
}

func (o Outcome) IsSet() bool { return o != OutcomeUnset }

type RawMoveRecord struct {
	GameToken  string
	PlayerID   int64
	MoveNumber int
	ColumnPos  int
	Result     Outcome
}

type CleanedMoveRecord struct {
	GameID     int64
	PlayerID   int64
	MoveNumber int
	ColumnPos  int
	Result     Outcome
}

type Move struct {
	GameID     int64
	PlayerID   int64
	MoveNumber int
	ColumnPos  int
}

// PairKey identifies one participant of one game.
type PairKey struct {
	GameID   int64
	PlayerID int64
}

func (k PairKey) String() string {
	return fmt.Sprintf("game=%d player=%d", k.GameID, k.PlayerID)
}

type PartialResult struct {
	GameID   int64
	PlayerID int64
	Result   Outcome
}

type GameResult struct {
	GameID   int64
	PlayerID int64
	Result   Outcome
}

func (r GameResult) Key() PairKey { return PairKey{GameID: r.GameID, PlayerID: r.PlayerID} }

type PlayerProfile struct {
	ID         int64
	Gender     string
	Title      string
	First      string
	Last       string
	Street     string
	City       string
	State      string
	Postcode   string
	Email      string
	DOB        time.Time
	Registered time.Time
	Phone      string
	Cell       string
	Nat        string
}
