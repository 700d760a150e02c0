package solver

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaname-hf/vgcsolver/engine"
)

func newTestSolver(cfg Config, seed int64) *GameSolver {
	return NewGameSolver(
		cfg,
		NewGenerator(WideningConfig{BaseK: 8, Step: 0, Interval: 1000, MaxK: 8}),
		NewGenerator(WideningConfig{BaseK: 8, Step: 0, Interval: 1000, MaxK: 8}),
		NewTranspositionTable(),
		rand.New(rand.NewSource(seed)),
	)
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Depth = 1
	cfg.NSamples = 2
	return cfg
}

func TestSolveReturnsNormalizedDistributions(t *testing.T) {
	s := newTestSolver(fastConfig(), 1)
	b := battleFixture()
	res, err := s.Solve(context.Background(), &b, 0xABCD, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.SelfDist)
	require.NotEmpty(t, res.OppDist)

	sum := 0.0
	for _, ap := range res.SelfDist {
		sum += ap.Prob
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "self strategy must normalize")

	sum = 0.0
	for _, ap := range res.OppDist {
		sum += ap.Prob
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "opponent strategy must normalize")

	assert.GreaterOrEqual(t, res.WinProb, 0.0)
	assert.LessOrEqual(t, res.WinProb, 1.0)
}

func TestTranspositionCacheConsistency(t *testing.T) {
	tt := NewTranspositionTable()
	key := ttKey{turn: 3, selfSig: 0x11, oppSig: 0x22, hyp: 0x33}

	_, ok := tt.Lookup(key)
	require.False(t, ok)
	tt.Store(key, 0.42)

	v1, ok := tt.Lookup(key)
	require.True(t, ok)
	v2, ok := tt.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, v1, v2, "idempotent read")

	hits, misses := tt.Stats()
	assert.Equal(t, uint64(2), hits, "second and third lookups must count as hits")
	assert.Equal(t, uint64(1), misses)

	tt.Clear()
	_, ok = tt.Lookup(key)
	assert.False(t, ok, "clear must drop entries")
	hits, misses = tt.Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestSolvePopulatesCacheCounters(t *testing.T) {
	s := newTestSolver(fastConfig(), 2)
	b := battleFixture()
	res, err := s.Solve(context.Background(), &b, 1, nil)
	require.NoError(t, err)
	assert.Greater(t, res.TTMisses, uint64(0), "first solve fills the table")

	res2, err := s.Solve(context.Background(), &b, 1, nil)
	require.NoError(t, err)
	assert.Greater(t, res2.TTHits, uint64(0), "re-solving the same turn must hit the cache")
}

func TestTerminalDominance(t *testing.T) {
	// Self has a guaranteed KO on the opponent's last Pokémon: the winning
	// attack must outrank everything, and its utility must exceed any
	// non-terminal line's.
	b := endgameFixture()
	s := newTestSolver(fastConfig(), 3)
	res, err := s.Solve(context.Background(), &b, 7, nil)
	require.NoError(t, err)

	require.True(t, engine.ActionIsMove(res.Best[0]), "best action must be a move")
	moveID := b.Sides[engine.SideSelf].Active[0].Moves[engine.ActionMoveSlot(res.Best[0])]
	assert.Equal(t, engine.MoveElectroDrift, moveID, "must take the guaranteed KO")
	assert.Greater(t, res.Utility, 0.95, "a guaranteed win scores at the terminal bound")
}

func TestQuantalResponsePeaksOnBetterActions(t *testing.T) {
	u := [][]float64{
		{0.8, 0.8},
		{0.1, 0.1},
	}
	selfP, _, selfUtil := quantalStrategies(u, 0.30, 0.25)
	assert.Greater(t, selfP[0], selfP[1], "higher-value action gets more mass")
	assert.Greater(t, selfUtil[0], selfUtil[1])
}

func TestQuantalOpponentWeighsItsOwnValue(t *testing.T) {
	// Column 0 is terrible for the opponent (self does well), column 1 good.
	u := [][]float64{
		{0.9, -0.5},
		{0.9, -0.5},
	}
	_, oppP, _ := quantalStrategies(u, 0.30, 0.25)
	assert.Greater(t, oppP[1], oppP[0], "opponent must prefer the column hurting self")
}

func TestSoftmaxStability(t *testing.T) {
	// Large magnitudes must not overflow thanks to max subtraction.
	p := softmax([]float64{1000, 999, -1000}, 0.25)
	total := 0.0
	for _, v := range p {
		require.False(t, math.IsNaN(v))
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.Greater(t, p[0], p[1])
}

func TestSoftmaxZeroTauIsArgmax(t *testing.T) {
	p := softmax([]float64{0.1, 0.9, 0.5}, 0)
	assert.Equal(t, []float64{0, 1, 0}, p)
}

func TestForcedPositionSkipsMatrix(t *testing.T) {
	// Both sides fully forced: one living slot with one usable move each.
	var b engine.BattleState
	b.Turn = 5
	self := engine.NewPokemon(engine.SpeciesMiraidon, engine.ItemNone, engine.TypeNone, engine.SpreadFastSweeper, engine.MoveElectroDrift)
	opp := engine.NewPokemon(engine.SpeciesTorkoal, engine.ItemNone, engine.TypeNone, engine.SpreadBulkyAttacker, engine.MoveHeatWave)
	b.Sides[engine.SideSelf].Active[0] = self
	b.Sides[engine.SideOpp].Active[0] = opp

	s := newTestSolver(fastConfig(), 4)
	res, err := s.Solve(context.Background(), &b, 9, nil)
	require.NoError(t, err)
	assert.Len(t, res.SelfDist, 1)
	assert.Equal(t, 1.0, res.SelfDist[0].Prob)
}

func TestSwingPointExtraction(t *testing.T) {
	selfCands := []engine.JointAction{{engine.PassAction, engine.PassAction}, {engine.EncodeSwitch(0), engine.PassAction}}
	oppCands := []engine.JointAction{{engine.PassAction, engine.PassAction}, {engine.EncodeSwitch(1), engine.PassAction}}
	u := [][]float64{
		{0.1, 0.0},
		{0.8, 0.0}, // the chosen line's value hinges on the opponent's pick
	}
	selfP := []float64{0.4, 0.6}
	oppP := []float64{0.5, 0.5}
	selfUtil := []float64{0.05, 0.4}
	swings := swingPoints(selfCands, oppCands, u, selfP, oppP, 1, selfUtil)
	require.NotEmpty(t, swings)

	foundOpp := false
	foundSelf := false
	for _, sp := range swings {
		if sp.Side == engine.SideOpp {
			foundOpp = true
		}
		if sp.Side == engine.SideSelf {
			foundSelf = true
		}
	}
	assert.True(t, foundOpp, "high-probability high-impact opponent action must appear")
	assert.True(t, foundSelf, "close self alternative must appear")
}

func TestTranspositionSeparatesStatesAtSameTurn(t *testing.T) {
	// Two opposite positions on the same turn share one table; depth-2
	// search recurses through interior nodes, so cached interior values
	// must be keyed by position, not just by turn and action pair.
	cfg := DefaultConfig()
	cfg.Depth = 2
	cfg.NSamples = 2
	cfg.SubTopK = 4
	s := newTestSolver(cfg, 11)

	win := endgameFixture()
	lose := endgameFixture()
	mira := win.Sides[engine.SideSelf].Active[0]
	urs := win.Sides[engine.SideOpp].Active[0]
	lose.Sides[engine.SideSelf].Active[0] = urs
	lose.Sides[engine.SideOpp].Active[0] = mira

	resWin, err := s.Solve(context.Background(), &win, 5, nil)
	require.NoError(t, err)
	resLose, err := s.Solve(context.Background(), &lose, 5, nil)
	require.NoError(t, err)

	assert.Greater(t, resWin.WinProb, 0.5, "the guaranteed KO side is winning")
	assert.Less(t, resLose.WinProb, 0.5, "the mirrored side must not inherit the winning side's cached values")
}

func TestSolveDepthTwoRecursesInteriorNodes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Depth = 2
	cfg.NSamples = 2
	cfg.SubTopK = 3
	s := newTestSolver(cfg, 12)
	b := battleFixture()

	res, err := s.Solve(context.Background(), &b, 3, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Values)
	assert.Greater(t, res.TTMisses, uint64(len(res.SelfDist)*len(res.OppDist)),
		"interior nodes must populate the table beyond the root matrix")
}

func TestSolveHonorsContextDeadline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Depth = 2
	cfg.NSamples = 4
	s := newTestSolver(cfg, 13)
	b := battleFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Solve(ctx, &b, 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSearchBudgetExceeded)
}
