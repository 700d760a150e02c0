package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaname-hf/vgcsolver/engine"
)

func assertDistribution(t *testing.T, p []float64) {
	t.Helper()
	total := 0.0
	for _, v := range p {
		require.GreaterOrEqual(t, v, 0.0)
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestFictitiousPlayDominantStrategy(t *testing.T) {
	// Row 0 strictly dominates; column 1 strictly dominates for the opponent.
	u := [][]float64{
		{0.8, 0.2},
		{0.1, -0.3},
	}
	res := FictitiousPlay(u, DefaultFPRounds)
	assertDistribution(t, res.SelfStrategy)
	assertDistribution(t, res.OppStrategy)
	assert.True(t, res.Converged, "pure equilibria must converge within a couple of rounds")
	assert.Equal(t, 1.0, res.SelfStrategy[0])
	assert.Equal(t, 1.0, res.OppStrategy[1])
	assert.InDelta(t, 0.0, res.NashGap, 1e-9, "a pure equilibrium has zero exploitability")
}

func TestFictitiousPlayMixesOnMatchingPennies(t *testing.T) {
	u := [][]float64{
		{1, -1},
		{-1, 1},
	}
	res := FictitiousPlay(u, 200)
	assertDistribution(t, res.SelfStrategy)
	assertDistribution(t, res.OppStrategy)
	// The unique equilibrium is 50/50; long-run empirical play approaches it.
	assert.InDelta(t, 0.5, res.SelfStrategy[0], 0.15)
	assert.InDelta(t, 0.5, res.OppStrategy[0], 0.15)
	assert.GreaterOrEqual(t, res.NashGap, 0.0)
}

func TestFictitiousPlayNashGapShrinks(t *testing.T) {
	u := [][]float64{
		{0.3, -0.6, 0.1},
		{-0.2, 0.5, -0.1},
		{0.0, 0.0, 0.2},
	}
	short := FictitiousPlay(u, 2)
	long := FictitiousPlay(u, 400)
	assert.LessOrEqual(t, long.NashGap, short.NashGap+1e-9, "more rounds must not increase exploitability")
	assert.GreaterOrEqual(t, short.NashGap, 0.0)
}

func TestFictitiousPlayDefaultsRounds(t *testing.T) {
	u := [][]float64{{0.1, 0.2}, {0.3, 0.4}}
	res := FictitiousPlay(u, 0)
	assert.LessOrEqual(t, res.Rounds, DefaultFPRounds)
	assert.GreaterOrEqual(t, res.Rounds, 1)
}

func TestBlendNormalizes(t *testing.T) {
	out := Blend([]float64{0.6, 0.4}, []float64{0.0, 1.0}, DefaultFPBlendWeight)
	assertDistribution(t, out)
	assert.InDelta(t, 0.7*0.6, out[0], 1e-12)
	assert.InDelta(t, 0.7*0.4+0.3, out[1], 1e-12)
}

func TestBlendHandlesShortFPVector(t *testing.T) {
	out := Blend([]float64{0.5, 0.3, 0.2}, []float64{1.0}, 0.3)
	assertDistribution(t, out)
	assert.Greater(t, out[0], out[1], "mass beyond the refined set falls back to quantal order")
}

// doGame wraps a payoff matrix as action lists plus a PayoffFunc, counting
// oracle calls.
func doGame(u [][]float64) (selfA, oppA []engine.JointAction, pay PayoffFunc, calls *int) {
	selfA = make([]engine.JointAction, len(u))
	for i := range selfA {
		selfA[i] = engine.JointAction{engine.Action(i), engine.PassAction}
	}
	oppA = make([]engine.JointAction, len(u[0]))
	for j := range oppA {
		oppA[j] = engine.JointAction{engine.Action(j), engine.PassAction}
	}
	calls = new(int)
	pay = func(s, o engine.JointAction) float64 {
		*calls++
		return u[int(s[0])][int(o[0])]
	}
	return selfA, oppA, pay, calls
}

func TestDoubleOracleGrowsToDominantAction(t *testing.T) {
	// Row 2 strictly dominates but starts outside the support.
	u := [][]float64{
		{0.1, 0.0, -0.2},
		{0.2, 0.1, 0.0},
		{0.9, 0.8, 0.7},
	}
	selfA, oppA, pay, _ := doGame(u)
	res := DoubleOracle(selfA, oppA, pay, DefaultDOIterations)
	assert.Contains(t, res.SelfSupport, 2, "the dominant row must enter the support")
	assertDistribution(t, res.FP.SelfStrategy)
	assertDistribution(t, res.FP.OppStrategy)
}

func TestDoubleOracleStopsAtPureEquilibrium(t *testing.T) {
	// (0,0) is a saddle point: no best response leaves the initial support.
	u := [][]float64{
		{0.5, 0.6},
		{0.2, 0.9},
	}
	selfA, oppA, pay, _ := doGame(u)
	res := DoubleOracle(selfA, oppA, pay, DefaultDOIterations)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, []int{0}, res.SelfSupport)
	assert.Equal(t, []int{0}, res.OppSupport)
}

func TestDoubleOracleCachesPayoffs(t *testing.T) {
	u := [][]float64{
		{1, -1},
		{-1, 1},
	}
	selfA, oppA, pay, calls := doGame(u)
	DoubleOracle(selfA, oppA, pay, DefaultDOIterations)
	assert.LessOrEqual(t, *calls, len(u)*len(u[0]), "each pair is evaluated at most once")
}
