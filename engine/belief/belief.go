// Package belief tracks probabilistic estimates of hidden opponent
// attributes: held items, EV-spread archetypes, Tera types and effective
// stats. Like the engine it is dependency-free; everything here is plain
// value math so search workers can copy beliefs cheaply.
package belief

import (
	"math/rand"

	"github.com/kaname-hf/vgcsolver/engine"
)

// Likelihood multipliers applied on observations. Contradictory evidence is
// pushed toward zero, never exactly to zero, to tolerate noisy reads.
const (
	likelyConsistent   = 1.5
	likelyInconsistent = 0.3
	likelyDamageIn     = 1.3
	likelyDamageOut    = 0.5
	minTotalWeight     = 1e-9
)

// NumSpreads is the number of EV-spread archetypes tracked per Pokémon.
const NumSpreads = 4

// Hypothesis is one fully specified guess of a Pokémon's hidden attributes.
type Hypothesis struct {
	Item   uint8
	Spread engine.SpreadKind
	Tera   uint8
}

// PokemonBelief holds the per-dimension distributions for one opponent
// Pokémon. Dimensions are sampled independently; this mirrors the prior
// model and is a deliberate simplification.
type PokemonBelief struct {
	Species uint8

	Items   [engine.NumItems]float64
	Spreads [NumSpreads]float64
	Teras   [engine.NumTypes + 1]float64

	ConfirmedItem uint8 // engine.ItemNone until revealed
	ConfirmedTera uint8 // engine.TypeNone until revealed

	seenMoves     map[uint8]bool
	distinctMoves int
}

// NewPokemonBelief initializes priors for a freshly revealed Pokémon.
// The default item prior follows tournament usage rates; the spread prior
// weights fast-sweeper 0.35, bulky-attacker 0.25, specially-defensive 0.20,
// balanced 0.20; the Tera prior favors the species' own types.
func NewPokemonBelief(species uint8) *PokemonBelief {
	pb := &PokemonBelief{
		Species:       species,
		ConfirmedItem: engine.ItemNone,
		ConfirmedTera: engine.TypeNone,
		seenMoves:     make(map[uint8]bool),
	}
	pb.Items[engine.ItemLifeOrb] = 0.15
	pb.Items[engine.ItemChoiceScarf] = 0.12
	pb.Items[engine.ItemChoiceSpecs] = 0.10
	pb.Items[engine.ItemAssaultVest] = 0.10
	pb.Items[engine.ItemFocusSash] = 0.08
	pb.Items[engine.ItemLeftovers] = 0.08
	pb.Items[engine.ItemSitrusBerry] = 0.07
	pb.Items[engine.ItemBoosterEnergy] = 0.06
	pb.Items[engine.ItemChoiceBand] = 0.05
	pb.Items[engine.ItemClearAmulet] = 0.04
	pb.Items[engine.ItemNone] = 0.15

	pb.Spreads = [NumSpreads]float64{0.35, 0.25, 0.20, 0.20}

	sp := engine.SpeciesData(species)
	remaining := 1.0
	for _, t := range sp.Types {
		if t != engine.TypeNone {
			pb.Teras[t] += 0.25
			remaining -= 0.25
		}
	}
	common := []uint8{engine.TypeWater, engine.TypeSteel, engine.TypeGhost, engine.TypeFlying, engine.TypeGrass, engine.TypeFairy}
	share := remaining / float64(len(common))
	for _, t := range common {
		pb.Teras[t] += share
	}
	pb.normalizeAll()
	return pb
}

// SetPriors overrides the default distributions, e.g. from usage statistics
// or battle memory. Zero-length inputs leave the dimension untouched.
func (pb *PokemonBelief) SetPriors(items map[uint8]float64, spreads []float64, teras map[uint8]float64) {
	if len(items) > 0 {
		pb.Items = [engine.NumItems]float64{}
		for id, w := range items {
			if id < engine.NumItems {
				pb.Items[id] = w
			}
		}
	}
	if len(spreads) == NumSpreads {
		copy(pb.Spreads[:], spreads)
	}
	if len(teras) > 0 {
		pb.Teras = [engine.NumTypes + 1]float64{}
		for t, w := range teras {
			if int(t) < len(pb.Teras) {
				pb.Teras[t] = w
			}
		}
	}
	pb.normalizeAll()
}

// normalizeAll renormalizes every dimension, recovering to uniform when a
// dimension's total weight has collapsed.
func (pb *PokemonBelief) normalizeAll() {
	normalize(pb.Items[:])
	normalize(pb.Spreads[:])
	normalize(pb.Teras[:])
}

func normalize(w []float64) {
	total := 0.0
	for _, v := range w {
		total += v
	}
	if total < minTotalWeight {
		// Degenerate: every hypothesis contradicted. Fall back to uniform
		// over the previously supported entries, or fully uniform.
		n := 0
		for _, v := range w {
			if v > 0 {
				n++
			}
		}
		if n == 0 {
			u := 1.0 / float64(len(w))
			for i := range w {
				w[i] = u
			}
			return
		}
		u := 1.0 / float64(n)
		for i, v := range w {
			if v > 0 {
				w[i] = u
			} else {
				w[i] = 0
			}
		}
		return
	}
	for i := range w {
		w[i] /= total
	}
}

// ObserveItem pins the item dimension to the revealed item.
func (pb *PokemonBelief) ObserveItem(item uint8) {
	if item >= engine.NumItems {
		return
	}
	pb.ConfirmedItem = item
	pb.Items = [engine.NumItems]float64{}
	pb.Items[item] = 1.0
}

// ObserveTera pins the Tera dimension to the revealed type.
func (pb *PokemonBelief) ObserveTera(teraType uint8) {
	if teraType > engine.NumTypes {
		return
	}
	pb.ConfirmedTera = teraType
	pb.Teras = [engine.NumTypes + 1]float64{}
	pb.Teras[teraType] = 1.0
}

// ObserveMove records a revealed move. Status moves rule out Assault Vest;
// a second distinct move without an intervening switch rules out choice
// items.
func (pb *PokemonBelief) ObserveMove(moveID uint8) {
	if !pb.seenMoves[moveID] {
		pb.seenMoves[moveID] = true
		pb.distinctMoves++
	}
	if pb.ConfirmedItem != engine.ItemNone {
		return
	}
	mv := engine.MoveData(moveID)
	if mv.Category == engine.CategoryStatus {
		pb.Items[engine.ItemAssaultVest] *= 0.05
	}
	if pb.distinctMoves >= 2 {
		pb.Items[engine.ItemChoiceScarf] *= 0.2
		pb.Items[engine.ItemChoiceSpecs] *= 0.2
		pb.Items[engine.ItemChoiceBand] *= 0.2
	}
	normalize(pb.Items[:])
}

// ObserveSwitchedOut resets the distinct-move streak used by the choice-item
// deduction.
func (pb *PokemonBelief) ObserveSwitchedOut() {
	pb.seenMoves = make(map[uint8]bool)
	pb.distinctMoves = 0
}

// ObserveSpeedOrder reweights spread hypotheses against an observed speed
// comparison: the Pokémon moved before (or after) a reference Pokémon whose
// effective speed is refSpeed. Consistent spreads gain, inconsistent ones
// shrink. When going first is inconsistent with every unscarfed spread, the
// Choice Scarf hypothesis absorbs the evidence instead.
func (pb *PokemonBelief) ObserveSpeedOrder(wentFirst bool, refSpeed int16) {
	anyConsistent := false
	for k := 0; k < NumSpreads; k++ {
		spe := engine.StatsForSpread(pb.Species, engine.SpreadKind(k))[engine.StatSpe]
		consistent := (spe >= refSpeed) == wentFirst
		if consistent {
			pb.Spreads[k] *= likelyConsistent
			anyConsistent = true
		} else {
			pb.Spreads[k] *= likelyInconsistent
		}
	}
	if wentFirst && !anyConsistent && pb.ConfirmedItem == engine.ItemNone {
		pb.Items[engine.ItemChoiceScarf] *= 2.0
		normalize(pb.Items[:])
	}
	normalize(pb.Spreads[:])
}

// ObserveDamageTaken reweights spread hypotheses from the HP fraction a hit
// removed. For each spread the expected roll window is computed against a
// hypothetical defender with that spread's stats; observations inside the
// window gain, outside shrink.
func (pb *PokemonBelief) ObserveDamageTaken(attacker *engine.PokemonState, moveID uint8, fractionDealt float64) {
	if fractionDealt <= 0 {
		return
	}
	for k := 0; k < NumSpreads; k++ {
		def := hypotheticalDefender(pb.Species, engine.SpreadKind(k))
		dr := engine.DamageDistribution(attacker, &def, moveID, engine.DamageContext{})
		if def.MaxHP <= 0 || dr.Max == 0 {
			continue
		}
		lo := float64(dr.Min) / float64(def.MaxHP)
		hi := float64(dr.Max) / float64(def.MaxHP) * 1.5 // leave room for crits
		if fractionDealt >= lo*0.9 && fractionDealt <= hi {
			pb.Spreads[k] *= likelyDamageIn
		} else {
			pb.Spreads[k] *= likelyDamageOut
		}
	}
	normalize(pb.Spreads[:])
}

// Sample draws one hypothesis, each dimension independently.
func (pb *PokemonBelief) Sample(rng *rand.Rand) Hypothesis {
	return Hypothesis{
		Item:   uint8(sampleIndex(rng, pb.Items[:])),
		Spread: engine.SpreadKind(sampleIndex(rng, pb.Spreads[:])),
		Tera:   uint8(sampleIndex(rng, pb.Teras[:])),
	}
}

func sampleIndex(rng *rand.Rand, w []float64) int {
	r := rng.Float64()
	acc := 0.0
	last := 0
	for i, v := range w {
		if v <= 0 {
			continue
		}
		acc += v
		last = i
		if r < acc {
			return i
		}
	}
	return last
}

// MostLikelySpread returns the argmax spread archetype.
func (pb *PokemonBelief) MostLikelySpread() engine.SpreadKind {
	best, bestW := 0, -1.0
	for i, w := range pb.Spreads {
		if w > bestW {
			best, bestW = i, w
		}
	}
	return engine.SpreadKind(best)
}

// hypotheticalDefender builds a full-HP defender with the spread's stats.
func hypotheticalDefender(species uint8, kind engine.SpreadKind) engine.PokemonState {
	p := engine.PokemonState{
		Species:    species,
		Stats:      engine.StatsForSpread(species, kind),
		ChoiceLock: engine.NoLock,
	}
	p.MaxHP = p.Stats[engine.StatHP]
	p.CurHP = p.MaxHP
	return p
}

// State aggregates beliefs for every revealed opponent Pokémon, keyed by
// species.
type State struct {
	Pokemon map[uint8]*PokemonBelief
}

// NewState returns an empty belief state.
func NewState() *State {
	return &State{Pokemon: make(map[uint8]*PokemonBelief)}
}

// For returns the belief for a species, creating default priors on first
// sight.
func (s *State) For(species uint8) *PokemonBelief {
	if pb, ok := s.Pokemon[species]; ok {
		return pb
	}
	pb := NewPokemonBelief(species)
	s.Pokemon[species] = pb
	return pb
}

// Sample draws one hypothesis per tracked Pokémon.
func (s *State) Sample(rng *rand.Rand) map[uint8]Hypothesis {
	out := make(map[uint8]Hypothesis, len(s.Pokemon))
	for species, pb := range s.Pokemon {
		out[species] = pb.Sample(rng)
	}
	return out
}
