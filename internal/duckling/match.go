// Package duckling matches queries against user-defined literal shortcuts.
package duckling

import (
	"strings"

	"github.com/joss/ducky/internal/domain"
)

// Match is the outcome of a successful duckling lookup.
type Match struct {
	BangCommand    string
	RemainingQuery string
}

// Kind classifies the match's bang command.
func (m Match) Kind() domain.DucklingKind {
	return domain.Duckling{BangCommand: m.BangCommand}.Kind()
}

// MatchQuery finds the duckling covering query, or nil.
//
// Precedence: escape marker, exact pattern, then "pattern rest" prefix.
// A prefix candidate is skipped when the rest contains another duckling's
// pattern, so "github vs gitlab" is not read as duckling github + "vs gitlab".
// Ties go to list order. MatchQuery is pure; callers memoize it.
func MatchQuery(query string, ducklings []domain.Duckling) *Match {
	if strings.HasPrefix(query, domain.EscapeMarker) {
		return &Match{
			BangCommand:    domain.CommandNone,
			RemainingQuery: strings.TrimPrefix(query, domain.EscapeMarker),
		}
	}
	if len(ducklings) == 0 {
		return nil
	}

	for _, d := range ducklings {
		if query == d.Pattern {
			return &Match{BangCommand: d.BangCommand, RemainingQuery: d.TargetValue}
		}
	}

	if !strings.Contains(query, " ") {
		return nil
	}

	for i, d := range ducklings {
		if d.Pattern == "" || !strings.HasPrefix(query, d.Pattern+" ") {
			continue
		}
		extra := query[len(d.Pattern)+1:]
		if containsOtherPattern(extra, ducklings, i) {
			continue
		}
		return &Match{
			BangCommand:    d.BangCommand,
			RemainingQuery: d.TargetValue + " " + extra,
		}
	}
	return nil
}

func containsOtherPattern(s string, ducklings []domain.Duckling, self int) bool {
	for j, other := range ducklings {
		if j == self || other.Pattern == "" {
			continue
		}
		if strings.Contains(s, other.Pattern) {
			return true
		}
	}
	return false
}
