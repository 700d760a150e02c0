package solver

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaname-hf/vgcsolver/engine"
	"github.com/kaname-hf/vgcsolver/engine/belief"
)

// hiddenFixture strips the opponent's items and Tera types so the
// determinizer has something to resolve.
func hiddenFixture() engine.BattleState {
	b := battleFixture()
	opp := &b.Sides[engine.SideOpp]
	for i := range opp.Active {
		opp.Active[i].Item = engine.ItemNone
		opp.Active[i].TeraType = engine.TypeNone
	}
	for i := uint8(0); i < opp.ReserveN; i++ {
		opp.Reserve[i].Item = engine.ItemNone
		opp.Reserve[i].TeraType = engine.TypeNone
	}
	return b
}

func TestSampleProducesKStates(t *testing.T) {
	b := hiddenFixture()
	d := NewDeterminizer(7)
	out := d.Sample(&b, belief.NewState(), nil, rand.New(rand.NewSource(1)))
	require.Len(t, out, 7)

	for _, ds := range out {
		opp := &ds.State.Sides[engine.SideOpp]
		for i := range opp.Active {
			assert.NotEqual(t, engine.TypeNone, opp.Active[i].TeraType, "every hidden Tera must be resolved")
		}
		assert.NotEmpty(t, ds.Hyps)
		assert.NotZero(t, ds.Sig)
	}
}

func TestSampleLeavesInputUntouched(t *testing.T) {
	b := hiddenFixture()
	before := b.Clone()
	NewDeterminizer(5).Sample(&b, belief.NewState(), nil, rand.New(rand.NewSource(2)))
	assert.Equal(t, before, b, "determinization must operate on clones")
}

func TestSampleSignatureStability(t *testing.T) {
	b := hiddenFixture()
	beliefs := belief.NewState()

	a := NewDeterminizer(6).Sample(&b, beliefs, nil, rand.New(rand.NewSource(3)))
	c := NewDeterminizer(6).Sample(&b, beliefs, nil, rand.New(rand.NewSource(3)))
	for k := range a {
		assert.Equal(t, a[k].Sig, c[k].Sig, "same seed must reproduce the same hypothesis signatures")
		assert.Equal(t, a[k].Hyps, c[k].Hyps)
	}
}

func TestSamplePreservesHPFraction(t *testing.T) {
	b := hiddenFixture()
	target := &b.Sides[engine.SideOpp].Active[0]
	target.CurHP = target.MaxHP / 2

	out := NewDeterminizer(4).Sample(&b, belief.NewState(), nil, rand.New(rand.NewSource(4)))
	for _, ds := range out {
		p := &ds.State.Sides[engine.SideOpp].Active[0]
		assert.InDelta(t, 0.5, p.HPFraction(), 0.02, "observed damage must survive stat substitution")
		assert.Greater(t, p.CurHP, int16(0), "a live Pokémon must not round down to fainted")
	}
}

func TestSampleRespectsConfirmedAttributes(t *testing.T) {
	b := hiddenFixture()
	beliefs := belief.NewState()
	calyrex := beliefs.For(engine.SpeciesCalyrexIce)
	calyrex.ObserveItem(engine.ItemClearAmulet)
	calyrex.ObserveTera(engine.TypeIce)

	out := NewDeterminizer(8).Sample(&b, beliefs, nil, rand.New(rand.NewSource(5)))
	for _, ds := range out {
		hyp := ds.Hyps[engine.SpeciesCalyrexIce]
		assert.Equal(t, engine.ItemClearAmulet, hyp.Item, "a revealed item pins every hypothesis")
		assert.Equal(t, engine.TypeIce, hyp.Tera)
	}
}

func TestSampleUsesParticleFilterStats(t *testing.T) {
	b := hiddenFixture()
	rng := rand.New(rand.NewSource(6))
	pf := belief.NewParticleFilter(engine.SpeciesUrshifu, belief.DefaultParticleCount, rng)
	filters := map[uint8]*belief.ParticleFilter{engine.SpeciesUrshifu: pf}

	out := NewDeterminizer(5).Sample(&b, belief.NewState(), filters, rng)
	for _, ds := range out {
		urshifu := &ds.State.Sides[engine.SideOpp].Active[1]
		assert.Greater(t, urshifu.Stats[engine.StatSpe], int16(0))
		assert.Equal(t, urshifu.MaxHP, urshifu.Stats[engine.StatHP], "max HP must follow the hypothesized stat line")
	}
}

func TestHypothesesVaryAcrossSamples(t *testing.T) {
	b := hiddenFixture()
	out := NewDeterminizer(DefaultDeterminizations).Sample(&b, belief.NewState(), nil, rand.New(rand.NewSource(7)))

	sigs := make(map[uint64]bool)
	for _, ds := range out {
		sigs[ds.Sig] = true
	}
	assert.Greater(t, len(sigs), 1, "independent draws over four hidden Pokémon must not collapse to one hypothesis")
}
