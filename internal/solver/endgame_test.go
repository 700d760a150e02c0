package solver

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaname-hf/vgcsolver/engine"
)

func TestShouldActivate(t *testing.T) {
	e := NewEndgameSolver(DefaultEndgameConfig(), rand.New(rand.NewSource(1)))

	full := battleFixture()
	assert.False(t, e.ShouldActivate(&full), "4v4 is too wide for exhaustive search")

	small := endgameFixture()
	assert.True(t, e.ShouldActivate(&small))

	// 3v3 sits exactly on the activation boundary.
	boundary := battleFixture()
	boundary.Sides[engine.SideSelf].Active[1].CurHP = 0
	boundary.Sides[engine.SideSelf].Active[1].Species = engine.SpeciesNone
	boundary.Sides[engine.SideOpp].ReserveN = 1
	assert.True(t, e.ShouldActivate(&boundary))
}

func TestEndgameTakesGuaranteedKO(t *testing.T) {
	b := endgameFixture()
	e := NewEndgameSolver(DefaultEndgameConfig(), rand.New(rand.NewSource(2)))

	res, err := e.Solve(&b)
	require.NoError(t, err)
	require.True(t, engine.ActionIsMove(res.Best[0]))
	moveID := b.Sides[engine.SideSelf].Active[0].Moves[engine.ActionMoveSlot(res.Best[0])]
	assert.Equal(t, engine.MoveElectroDrift, moveID)
	assert.Greater(t, res.Utility, 0.95)
	assert.Greater(t, res.WinProb, 0.7)
}

func TestEndgameMaximinIsPessimistic(t *testing.T) {
	b := endgameFixture()
	e := NewEndgameSolver(DefaultEndgameConfig(), rand.New(rand.NewSource(3)))

	res, err := e.Solve(&b)
	require.NoError(t, err)
	// Every reported value is the worst case across the opponent's replies,
	// so none may exceed the chosen line's utility.
	for _, av := range res.Values {
		assert.LessOrEqual(t, av.EV, res.Utility+1e-9)
	}
}

func TestEndgameBudgetExceeded(t *testing.T) {
	b := battleFixture()
	cfg := DefaultEndgameConfig()
	cfg.NodeBudget = 10
	e := NewEndgameSolver(cfg, rand.New(rand.NewSource(4)))

	_, err := e.Solve(&b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSearchBudgetExceeded), "tripping the budget must signal the sampled-solver fallback")
}

func TestTriage(t *testing.T) {
	e := NewEndgameSolver(DefaultEndgameConfig(), rand.New(rand.NewSource(5)))

	winning := endgameFixture()
	assert.Equal(t, TriageWinning, e.Triage(&winning), "full HP against a 10% straggler is winning")

	losing := endgameFixture()
	losing.Sides[engine.SideSelf], losing.Sides[engine.SideOpp] = losing.Sides[engine.SideOpp], losing.Sides[engine.SideSelf]
	assert.Equal(t, TriageLosing, e.Triage(&losing))

	even := battleFixture()
	assert.Equal(t, TriageEven, e.Triage(&even), "fresh mirror material is even")
}
