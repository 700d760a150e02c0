package solver

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/pkg/errors"

	"github.com/kaname-hf/vgcsolver/engine"
)

// Config holds the solver's tunable constants. These are configuration, not
// invariants; the YAML config file overrides them.
type Config struct {
	Depth    int // joint-turn lookahead depth at the root
	NSamples int // random resolutions per action pair
	SubTopK  int // candidate cap below the root, kept small for tractability
	TauOpp   float64
	TauSelf  float64
	Weights  engine.EvalWeights
}

// DefaultConfig returns the tuned solver constants.
func DefaultConfig() Config {
	return Config{
		Depth:    2,
		NSamples: 6,
		SubTopK:  6,
		TauOpp:   0.25,
		TauSelf:  0.30,
		Weights:  engine.DefaultEvalWeights(),
	}
}

// ttKey identifies one action matchup at one position under one
// determinization hypothesis. The state signature keeps distinct positions
// at the same turn from aliasing.
type ttKey struct {
	turn    uint16
	state   uint64
	selfSig uint32
	oppSig  uint32
	hyp     uint64
}

// TranspositionTable caches pairwise utilities within a turn. Safe for
// concurrent use; values for the same key are deterministic given the same
// inputs, so a racing double-compute is benign.
type TranspositionTable struct {
	mu      sync.Mutex
	entries map[ttKey]float64
	hits    uint64
	misses  uint64
}

// NewTranspositionTable returns an empty table.
func NewTranspositionTable() *TranspositionTable {
	return &TranspositionTable{entries: make(map[ttKey]float64)}
}

// Lookup returns the cached utility for a key, counting hits and misses.
func (t *TranspositionTable) Lookup(k ttKey) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[k]
	if ok {
		t.hits++
	} else {
		t.misses++
	}
	return v, ok
}

// Store records a utility for a key.
func (t *TranspositionTable) Store(k ttKey, v float64) {
	t.mu.Lock()
	t.entries[k] = v
	t.mu.Unlock()
}

// Clear drops every entry at the start of a new turn's search. Entries
// depend on the turn's determinization sampling and must not leak across
// turns.
func (t *TranspositionTable) Clear() {
	t.mu.Lock()
	t.entries = make(map[ttKey]float64)
	t.hits = 0
	t.misses = 0
	t.mu.Unlock()
}

// Stats returns the hit and miss counters.
func (t *TranspositionTable) Stats() (hits, misses uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hits, t.misses
}

// ActionProb is one entry of a mixed strategy.
type ActionProb struct {
	Joint   engine.JointAction
	Prob    float64
	Utility float64
}

// ActionValue carries the statistics RiskAwareSolver needs per self action:
// the quantal-weighted expected value and the downside/upside variance over
// the opponent's mixed strategy.
type ActionValue struct {
	Joint    engine.JointAction
	EV       float64
	Downside float64
	Upside   float64
}

// SwingPoint marks an opponent action that moves the chosen line's utility
// materially, or a close self alternative.
type SwingPoint struct {
	Joint  engine.JointAction
	Side   uint8
	Prob   float64
	Impact float64
}

// Result is one determinized solve's output.
type Result struct {
	Best     engine.JointAction
	Utility  float64
	WinProb  float64
	SelfDist []ActionProb
	OppDist  []ActionProb
	Values   []ActionValue
	Swings   []SwingPoint
	Payoffs  [][]float64 // root matrix, kept for strategy refinement
	TTHits   uint64
	TTMisses uint64
}

// GameSolver runs depth-bounded, sampled quantal-response search over the
// joint action space of both sides for one determinized state.
type GameSolver struct {
	cfg     Config
	selfGen *Generator
	oppGen  *Generator
	tt      *TranspositionTable
	rng     *rand.Rand
}

// NewGameSolver wires a solver with its candidate generators and table.
func NewGameSolver(cfg Config, selfGen, oppGen *Generator, tt *TranspositionTable, rng *rand.Rand) *GameSolver {
	return &GameSolver{cfg: cfg, selfGen: selfGen, oppGen: oppGen, tt: tt, rng: rng}
}

// doMatrixCells is the root matrix size above which double oracle replaces
// full enumeration: support growth evaluates a fraction of the cells.
const doMatrixCells = 400

// Solve evaluates the root position under one determinization hypothesis.
// hypSig distinguishes transposition entries between hypotheses. The context
// deadline is checked between payoff cells; tripping it returns
// ErrSearchBudgetExceeded so the caller can degrade to other hypotheses.
func (s *GameSolver) Solve(ctx context.Context, state *engine.BattleState, hypSig uint64, adv *Advisory) (Result, error) {
	selfCands := s.selfGen.Generate(state, engine.SideSelf, adv)
	oppCands := s.oppGen.Generate(state, engine.SideOpp, nil)
	if len(selfCands) == 0 || len(oppCands) == 0 {
		return Result{}, ErrEmptyCandidateSet
	}
	stateSig := state.Signature()

	// Fully forced: skip the matrix.
	if len(selfCands) == 1 && len(oppCands) == 1 {
		u, err := s.pairUtility(ctx, state, selfCands[0], oppCands[0], hypSig, s.cfg.Depth)
		if err != nil {
			return Result{}, err
		}
		return s.buildResult(state, selfCands, oppCands, [][]float64{{u}}), nil
	}

	if len(selfCands)*len(oppCands) > doMatrixCells {
		return s.solveDoubleOracle(ctx, state, stateSig, selfCands, oppCands, hypSig)
	}

	u := make([][]float64, len(selfCands))
	for i, sa := range selfCands {
		u[i] = make([]float64, len(oppCands))
		for j, oa := range oppCands {
			v, err := s.cellValue(ctx, state, stateSig, sa, oa, hypSig, s.cfg.Depth)
			if err != nil {
				return Result{}, err
			}
			u[i][j] = v
		}
	}
	return s.buildResult(state, selfCands, oppCands, u), nil
}

// solveDoubleOracle grows a restricted support instead of filling the full
// matrix, then builds the result over the support actions only.
func (s *GameSolver) solveDoubleOracle(ctx context.Context, state *engine.BattleState, stateSig uint64, selfCands, oppCands []engine.JointAction, hypSig uint64) (Result, error) {
	var payErr error
	pay := func(sa, oa engine.JointAction) float64 {
		if payErr != nil {
			return 0
		}
		v, err := s.cellValue(ctx, state, stateSig, sa, oa, hypSig, s.cfg.Depth)
		if err != nil {
			payErr = err
			return 0
		}
		return v
	}
	do := DoubleOracle(selfCands, oppCands, pay, DefaultDOIterations)
	if payErr != nil {
		return Result{}, payErr
	}

	selfSup := make([]engine.JointAction, len(do.SelfSupport))
	for a, i := range do.SelfSupport {
		selfSup[a] = selfCands[i]
	}
	oppSup := make([]engine.JointAction, len(do.OppSupport))
	for b, j := range do.OppSupport {
		oppSup[b] = oppCands[j]
	}
	u := make([][]float64, len(selfSup))
	for a := range selfSup {
		u[a] = make([]float64, len(oppSup))
		for b := range oppSup {
			u[a][b] = pay(selfSup[a], oppSup[b]) // served from the table
		}
	}
	if payErr != nil {
		return Result{}, payErr
	}
	return s.buildResult(state, selfSup, oppSup, u), nil
}

// cellValue serves one payoff cell through the transposition table.
func (s *GameSolver) cellValue(ctx context.Context, state *engine.BattleState, stateSig uint64, sa, oa engine.JointAction, hypSig uint64, depth int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.Wrap(ErrSearchBudgetExceeded, "search deadline hit")
	}
	key := ttKey{turn: state.Turn, state: stateSig, selfSig: sa.Signature(), oppSig: oa.Signature(), hyp: hypSig}
	if v, ok := s.tt.Lookup(key); ok {
		return v, nil
	}
	v, err := s.pairUtility(ctx, state, sa, oa, hypSig, depth)
	if err != nil {
		return 0, err
	}
	s.tt.Store(key, v)
	return v, nil
}

// pairUtility averages NSamples seeded resolutions of the action pair, each
// recursing to depth-1.
func (s *GameSolver) pairUtility(ctx context.Context, state *engine.BattleState, self, opp engine.JointAction, hypSig uint64, depth int) (float64, error) {
	total := 0.0
	for n := 0; n < s.cfg.NSamples; n++ {
		next, terminal, _ := engine.Apply(state, self, opp, s.rng.Int63())
		if terminal || depth <= 1 {
			total += engine.Evaluate(&next, s.cfg.Weights)
			continue
		}
		v, err := s.positionValue(ctx, &next, hypSig, depth-1)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total / float64(s.cfg.NSamples), nil
}

// positionValue computes the quantal game value of an interior node with a
// reduced candidate cap.
func (s *GameSolver) positionValue(ctx context.Context, state *engine.BattleState, hypSig uint64, depth int) (float64, error) {
	if state.IsTerminal() || depth <= 0 {
		return engine.Evaluate(state, s.cfg.Weights), nil
	}
	selfCands := capJoint(state.LegalJointActions(engine.SideSelf), s.cfg.SubTopK)
	oppCands := capJoint(state.LegalJointActions(engine.SideOpp), s.cfg.SubTopK)
	stateSig := state.Signature()

	u := make([][]float64, len(selfCands))
	for i, sa := range selfCands {
		u[i] = make([]float64, len(oppCands))
		for j, oa := range oppCands {
			v, err := s.cellValue(ctx, state, stateSig, sa, oa, hypSig, depth)
			if err != nil {
				return 0, err
			}
			u[i][j] = v
		}
	}
	selfP, oppP, _ := quantalStrategies(u, s.cfg.TauSelf, s.cfg.TauOpp)
	return bilinear(selfP, u, oppP), nil
}

// capJoint truncates an uncapped joint-action list for interior nodes.
func capJoint(joints []engine.JointAction, k int) []engine.JointAction {
	if len(joints) > k {
		return joints[:k]
	}
	return joints
}

// buildResult derives the mixed strategies, win probability, per-action
// statistics and swing points from the payoff matrix.
func (s *GameSolver) buildResult(state *engine.BattleState, selfCands, oppCands []engine.JointAction, u [][]float64) Result {
	selfP, oppP, selfUtil := quantalStrategies(u, s.cfg.TauSelf, s.cfg.TauOpp)

	best := 0
	for i := range selfUtil {
		if selfUtil[i] > selfUtil[best] {
			best = i
		}
	}

	expected := bilinear(selfP, u, oppP)
	res := Result{
		Best:    selfCands[best],
		Utility: selfUtil[best],
		WinProb: sigmoid(expected),
		Payoffs: u,
	}

	res.SelfDist = make([]ActionProb, len(selfCands))
	for i := range selfCands {
		res.SelfDist[i] = ActionProb{Joint: selfCands[i], Prob: selfP[i], Utility: selfUtil[i]}
	}
	res.OppDist = make([]ActionProb, len(oppCands))
	for j := range oppCands {
		res.OppDist[j] = ActionProb{Joint: oppCands[j], Prob: oppP[j]}
	}

	// Per-action EV and one-sided variances over the opponent's mix.
	res.Values = make([]ActionValue, len(selfCands))
	for i := range selfCands {
		av := ActionValue{Joint: selfCands[i], EV: selfUtil[i]}
		for j := range oppCands {
			d := u[i][j] - selfUtil[i]
			if d < 0 {
				av.Downside += oppP[j] * d * d
			} else {
				av.Upside += oppP[j] * d * d
			}
		}
		res.Values[i] = av
	}

	res.Swings = swingPoints(selfCands, oppCands, u, selfP, oppP, best, selfUtil)
	res.TTHits, res.TTMisses = s.tt.Stats()
	return res
}

// quantalStrategies computes both sides' softmax strategies from the payoff
// matrix: the opponent mixes over the negated column means at tauOpp, self
// mixes over the row values against that mix at tauSelf.
func quantalStrategies(u [][]float64, tauSelf, tauOpp float64) (selfP, oppP, selfUtil []float64) {
	rows := len(u)
	cols := len(u[0])

	oppUtil := make([]float64, cols)
	for j := 0; j < cols; j++ {
		mean := 0.0
		for i := 0; i < rows; i++ {
			mean += u[i][j]
		}
		oppUtil[j] = -mean / float64(rows)
	}
	oppP = softmax(oppUtil, tauOpp)

	selfUtil = make([]float64, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			selfUtil[i] += u[i][j] * oppP[j]
		}
	}
	selfP = softmax(selfUtil, tauSelf)
	return selfP, oppP, selfUtil
}

// softmax with max-subtraction for numeric stability. tau below 1e-9 is
// treated as argmax.
func softmax(utilities []float64, tau float64) []float64 {
	out := make([]float64, len(utilities))
	if len(utilities) == 0 {
		return out
	}
	if tau < 1e-9 {
		best := 0
		for i := range utilities {
			if utilities[i] > utilities[best] {
				best = i
			}
		}
		out[best] = 1.0
		return out
	}
	max := utilities[0]
	for _, v := range utilities {
		if v > max {
			max = v
		}
	}
	total := 0.0
	for i, v := range utilities {
		out[i] = math.Exp((v - max) / tau)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

func bilinear(selfP []float64, u [][]float64, oppP []float64) float64 {
	total := 0.0
	for i := range selfP {
		for j := range oppP {
			total += selfP[i] * u[i][j] * oppP[j]
		}
	}
	return total
}

func sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

// Swing extraction thresholds.
const (
	swingOppProb     = 0.1
	swingOppImpact   = 0.05
	swingSelfProb    = 0.05
	maxSwingsPerSide = 3
)

// swingPoints extracts the opponent actions that materially move the chosen
// line's value, and close self alternatives.
func swingPoints(selfCands, oppCands []engine.JointAction, u [][]float64, selfP, oppP []float64, best int, selfUtil []float64) []SwingPoint {
	var swings []SwingPoint

	oppSwings := 0
	for j := range oppCands {
		if oppSwings >= maxSwingsPerSide {
			break
		}
		impact := u[best][j] - selfUtil[best]
		if oppP[j] > swingOppProb && math.Abs(impact) > swingOppImpact {
			swings = append(swings, SwingPoint{Joint: oppCands[j], Side: engine.SideOpp, Prob: oppP[j], Impact: impact})
			oppSwings++
		}
	}

	selfSwings := 0
	for i := range selfCands {
		if i == best || selfSwings >= maxSwingsPerSide {
			continue
		}
		if selfP[i] > swingSelfProb {
			swings = append(swings, SwingPoint{Joint: selfCands[i], Side: engine.SideSelf, Prob: selfP[i], Impact: selfUtil[i] - selfUtil[best]})
			selfSwings++
		}
	}
	return swings
}
