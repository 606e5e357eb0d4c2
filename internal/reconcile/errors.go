package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/ninedt-etl/internal/domain"
)

var (
	ErrMalformedIdentifier = errors.New("malformed game identifier")
	ErrUnresolvedResult    = errors.New("unresolved game result")
	ErrOrphanResult        = errors.New("result for unknown game participant")
)

const (
	ReasonNoPrecedingID = "no valid game id precedes the malformed run"
	ReasonAdjacentRuns  = "malformed run directly follows a different malformed run"
	ReasonIDOverflow    = "successor of the preceding game id overflows int64"
)

// MalformedIdentifierError locates a game token that cannot be repaired positionally.
type MalformedIdentifierError struct {
	Index    int
	Token    string
	Previous string // preceding malformed token for ReasonAdjacentRuns
	Reason   string
}

func (e *MalformedIdentifierError) Error() string {
	if e.Previous != "" {
		return fmt.Sprintf("malformed game id %q at record %d (after %q): %s", e.Token, e.Index, e.Previous, e.Reason)
	}
	return fmt.Sprintf("malformed game id %q at record %d: %s", e.Token, e.Index, e.Reason)
}

func (e *MalformedIdentifierError) Is(target error) bool { return target == ErrMalformedIdentifier }

// UnresolvedResultError lists every pair that inference could not assign an outcome.
type UnresolvedResultError struct {
	Pairs []domain.PairKey
}

const unresolvedPreview = 5

func (e *UnresolvedResultError) Error() string {
	parts := make([]string, 0, unresolvedPreview)
	for i, p := range e.Pairs {
		if i == unresolvedPreview {
			parts = append(parts, fmt.Sprintf("and %d more", len(e.Pairs)-unresolvedPreview))
			break
		}
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("%d unresolved game results: %s", len(e.Pairs), strings.Join(parts, ", "))
}

func (e *UnresolvedResultError) Is(target error) bool { return target == ErrUnresolvedResult }

type OrphanResultError struct {
	Pair domain.PairKey
}

func (e *OrphanResultError) Error() string {
	return fmt.Sprintf("result recorded for %s which has no moves", e.Pair)
}

func (e *OrphanResultError) Is(target error) bool { return target == ErrOrphanResult }
