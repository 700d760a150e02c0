// Package solver contains the per-turn decision machinery: candidate
// generation with progressive widening, determinization, quantal-response
// game solving with a transposition table, risk-aware selection, fictitious
// play refinement and the exhaustive endgame search.
package solver

import "github.com/pkg/errors"

// Sentinel errors for the decision pipeline. OracleFailure is the only hard
// failure: the engine cannot invent game rules, so the turn decision fails
// explicitly. Everything else is recovered locally.
var (
	// ErrOracleFailure marks a battle-engine or damage-oracle failure.
	ErrOracleFailure = errors.New("battle oracle failure")

	// ErrEmptyCandidateSet marks a side with zero legal actions after
	// filtering. Recovered by synthesizing a forced pass; surfacing it is a
	// programming error.
	ErrEmptyCandidateSet = errors.New("empty candidate set")

	// ErrSearchBudgetExceeded marks a search that ran out of wall-clock or
	// node budget. Callers degrade to partial results.
	ErrSearchBudgetExceeded = errors.New("search budget exceeded")

	// ErrDegenerateBelief marks a belief whose weights collapsed. The belief
	// layer recovers to uniform priors on its own; this surfaces only in
	// diagnostics.
	ErrDegenerateBelief = errors.New("degenerate belief")

	// ErrAdvisoryUnavailable is a soft condition: advisory biasing is
	// disabled for the turn.
	ErrAdvisoryUnavailable = errors.New("advisory unavailable")
)
