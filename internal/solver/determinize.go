package solver

import (
	"hash/fnv"
	"math/rand"

	"github.com/kaname-hf/vgcsolver/engine"
	"github.com/kaname-hf/vgcsolver/engine/belief"
)

// DefaultDeterminizations is the number of hypotheses sampled per turn.
const DefaultDeterminizations = 10

// DeterminizedState is one perfect-information hypothesis: the opponent's
// hidden attributes resolved to concrete values.
type DeterminizedState struct {
	State engine.BattleState
	Sig   uint64
	Hyps  map[uint8]belief.Hypothesis
}

// Determinizer draws K concrete hypotheses from the belief layer, turning
// the imperfect-information game into K perfect-information games.
type Determinizer struct {
	K int
}

// NewDeterminizer returns a Determinizer sampling k hypotheses; k <= 0 uses
// the default.
func NewDeterminizer(k int) *Determinizer {
	if k <= 0 {
		k = DefaultDeterminizations
	}
	return &Determinizer{K: k}
}

// Sample resolves every hidden opponent Pokémon in state to one concrete
// item / spread / Tera combination per hypothesis. Each dimension is drawn
// independently from its marginal; effective stats come from the particle
// filter when one is tracked, else from the sampled spread archetype.
func (d *Determinizer) Sample(state *engine.BattleState, beliefs *belief.State, filters map[uint8]*belief.ParticleFilter, rng *rand.Rand) []DeterminizedState {
	out := make([]DeterminizedState, 0, d.K)
	for k := 0; k < d.K; k++ {
		ds := DeterminizedState{
			State: state.Clone(),
			Hyps:  make(map[uint8]belief.Hypothesis),
		}
		h := fnv.New64a()
		resolve := func(p *engine.PokemonState) {
			if p.Species == engine.SpeciesNone {
				return
			}
			pb := beliefs.For(p.Species)
			hyp := pb.Sample(rng)
			ds.Hyps[p.Species] = hyp

			if p.Item == engine.ItemNone && pb.ConfirmedItem == engine.ItemNone {
				p.Item = hyp.Item
			}
			if p.TeraType == engine.TypeNone {
				p.TeraType = hyp.Tera
			}
			if pf, ok := filters[p.Species]; ok {
				stats := pf.SampleStats(rng)
				applyHiddenStats(p, stats)
			} else {
				applyHiddenStats(p, engine.StatsForSpread(p.Species, hyp.Spread))
			}

			h.Write([]byte{p.Species, p.Item, uint8(hyp.Spread), p.TeraType})
		}
		opp := &ds.State.Sides[engine.SideOpp]
		for i := range opp.Active {
			resolve(&opp.Active[i])
		}
		for i := uint8(0); i < opp.ReserveN; i++ {
			resolve(&opp.Reserve[i])
		}
		ds.Sig = h.Sum64()
		out = append(out, ds)
	}
	return out
}

// applyHiddenStats swaps in hypothesized stats while preserving the
// observed HP fraction.
func applyHiddenStats(p *engine.PokemonState, stats engine.Stats) {
	frac := p.HPFraction()
	if p.MaxHP == 0 {
		frac = 1.0
	}
	p.Stats = stats
	p.MaxHP = stats[engine.StatHP]
	p.CurHP = int16(float64(p.MaxHP) * frac)
	if frac > 0 && p.CurHP == 0 {
		p.CurHP = 1
	}
}
