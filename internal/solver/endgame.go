package solver

import (
	"math/rand"

	"github.com/kaname-hf/vgcsolver/engine"
)

// EndgameConfig bounds the exhaustive late-game search.
type EndgameConfig struct {
	MaxRemaining int // activate when each side averages at most this many Pokémon
	NodeBudget   int // soft guard; exceeding it falls back to GameSolver
	MaxPlies     int // hard recursion guard against non-terminating lines
	NSamples     int // seeded resolutions per action pair
	Weights      engine.EvalWeights
}

// DefaultEndgameConfig returns the tuned endgame constants.
func DefaultEndgameConfig() EndgameConfig {
	return EndgameConfig{
		MaxRemaining: 3,
		NodeBudget:   200000,
		MaxPlies:     24,
		NSamples:     3,
		Weights:      engine.DefaultEvalWeights(),
	}
}

// EndgameSolver switches to exhaustive enumeration when the total remaining
// Pokémon count is small enough to search to the true end of the game.
type EndgameSolver struct {
	cfg   EndgameConfig
	rng   *rand.Rand
	nodes int
}

// NewEndgameSolver returns an endgame solver.
func NewEndgameSolver(cfg EndgameConfig, rng *rand.Rand) *EndgameSolver {
	return &EndgameSolver{cfg: cfg, rng: rng}
}

// ShouldActivate reports whether the position is small enough for
// exhaustive search: total remaining Pokémon across both sides at or below
// 2 x MaxRemaining.
func (e *EndgameSolver) ShouldActivate(state *engine.BattleState) bool {
	total := state.Sides[engine.SideSelf].RemainingCount() + state.Sides[engine.SideOpp].RemainingCount()
	return total <= 2*e.cfg.MaxRemaining
}

// Solve exhaustively enumerates all legal joint actions to the end of the
// game. Random outcomes are approximated by NSamples seeded resolutions per
// pair. Returns ErrSearchBudgetExceeded when the node budget trips; the
// caller falls back to the sampled GameSolver.
func (e *EndgameSolver) Solve(state *engine.BattleState) (Result, error) {
	e.nodes = 0
	selfCands := state.LegalJointActions(engine.SideSelf)
	oppCands := state.LegalJointActions(engine.SideOpp)
	if len(selfCands) == 0 || len(oppCands) == 0 {
		return Result{}, ErrEmptyCandidateSet
	}

	u := make([][]float64, len(selfCands))
	for i, sa := range selfCands {
		u[i] = make([]float64, len(oppCands))
		for j, oa := range oppCands {
			v, err := e.pairValue(state, sa, oa, e.cfg.MaxPlies)
			if err != nil {
				return Result{}, err
			}
			u[i][j] = v
		}
	}

	// The opponent plays a best response in the endgame: with full
	// enumeration there is no need to model noise.
	best, bestV := 0, -1e18
	worstPerRow := make([]float64, len(selfCands))
	for i := range selfCands {
		worst := 1e18
		for j := range oppCands {
			if u[i][j] < worst {
				worst = u[i][j]
			}
		}
		worstPerRow[i] = worst
		if worst > bestV {
			best, bestV = i, worst
		}
	}

	res := Result{
		Best:    selfCands[best],
		Utility: bestV,
		WinProb: sigmoid(bestV),
	}
	res.Values = make([]ActionValue, len(selfCands))
	for i := range selfCands {
		res.Values[i] = ActionValue{Joint: selfCands[i], EV: worstPerRow[i]}
	}
	return res, nil
}

// pairValue recurses to the true end of the game under a maximin policy.
func (e *EndgameSolver) pairValue(state *engine.BattleState, self, opp engine.JointAction, plies int) (float64, error) {
	e.nodes++
	if e.nodes > e.cfg.NodeBudget {
		return 0, ErrSearchBudgetExceeded
	}
	total := 0.0
	for n := 0; n < e.cfg.NSamples; n++ {
		next, terminal, _ := engine.Apply(state, self, opp, e.rng.Int63())
		if terminal || plies <= 1 {
			total += engine.Evaluate(&next, e.cfg.Weights)
			continue
		}
		v, err := e.positionValue(&next, plies-1)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total / float64(e.cfg.NSamples), nil
}

// positionValue is the maximin value over both sides' full action sets.
func (e *EndgameSolver) positionValue(state *engine.BattleState, plies int) (float64, error) {
	if state.IsTerminal() {
		return engine.Evaluate(state, e.cfg.Weights), nil
	}
	selfCands := state.LegalJointActions(engine.SideSelf)
	oppCands := state.LegalJointActions(engine.SideOpp)

	bestV := -1e18
	for _, sa := range selfCands {
		worst := 1e18
		for _, oa := range oppCands {
			v, err := e.pairValue(state, sa, oa, plies)
			if err != nil {
				return 0, err
			}
			if v < worst {
				worst = v
			}
		}
		if worst > bestV {
			bestV = worst
		}
	}
	return bestV, nil
}

// PositionTriage classifies the endgame by material and HP advantage.
type PositionTriage uint8

const (
	TriageEven PositionTriage = iota
	TriageWinning
	TriageLosing
)

// Triage scores the position: advantage = (count score + HP score) / 2,
// winning above 0.7, losing below 0.3.
func (e *EndgameSolver) Triage(state *engine.BattleState) PositionTriage {
	selfN := state.Sides[engine.SideSelf].RemainingCount()
	oppN := state.Sides[engine.SideOpp].RemainingCount()
	countScore := 0.5 + 0.1*float64(selfN-oppN)

	selfHP := sideTotalHPFraction(&state.Sides[engine.SideSelf])
	oppHP := sideTotalHPFraction(&state.Sides[engine.SideOpp])
	hpScore := 0.5
	if selfHP+oppHP > 0 {
		hpScore = selfHP / (selfHP + oppHP)
	}

	advantage := (countScore + hpScore) / 2
	switch {
	case advantage > 0.7:
		return TriageWinning
	case advantage < 0.3:
		return TriageLosing
	}
	return TriageEven
}

func sideTotalHPFraction(s *engine.SideState) float64 {
	total := 0.0
	for i := range s.Active {
		if !s.Active[i].Fainted() {
			total += s.Active[i].HPFraction()
		}
	}
	for i := uint8(0); i < s.ReserveN; i++ {
		if !s.Reserve[i].Fainted() {
			total += s.Reserve[i].HPFraction()
		}
	}
	return total
}
