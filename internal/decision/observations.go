package decision

import (
	"github.com/kaname-hf/vgcsolver/engine"
	"github.com/kaname-hf/vgcsolver/engine/belief"
)

// MoveSeen records an opponent Pokémon using a move.
type MoveSeen struct {
	Species uint8
	MoveID  uint8
}

// ItemRevealed records a held item becoming public (Life Orb recoil, berry
// proc, knock-off message).
type ItemRevealed struct {
	Species uint8
	Item    uint8
}

// TeraRevealed records an opponent terastallizing.
type TeraRevealed struct {
	Species  uint8
	TeraType uint8
}

// SpeedOrder records whether an opponent Pokémon moved before or after one of
// ours with the given effective speed.
type SpeedOrder struct {
	Species   uint8
	WentFirst bool
	RefSpeed  int16
}

// DamageDealt records the damage fraction an opponent Pokémon took from one
// of our attacks; Attacker is our own, fully known, Pokémon.
type DamageDealt struct {
	Defender uint8
	Attacker engine.PokemonState
	MoveID   uint8
	Fraction float64
}

// StyleSample is one turn's worth of tendency evidence: for each tendency,
// whether the opponent had the opportunity and whether they took it.
type StyleSample struct {
	Protected bool
	Switched  bool
	Focused   bool
	SetUp     bool
}

// TurnObservations carries everything learned from the previous turn. The
// orchestrator applies it strictly before any search starts.
type TurnObservations struct {
	MovesSeen     []MoveSeen
	ItemsRevealed []ItemRevealed
	TerasRevealed []TeraRevealed
	SpeedOrders   []SpeedOrder
	DamageDealt   []DamageDealt
	SwitchedOut   []uint8
	Style         *StyleSample
}

// applyObservations folds one turn of evidence into the belief layer. Order
// matters: reveals pin dimensions before the soft reweights run.
func (o *Orchestrator) applyObservations(obs *TurnObservations) {
	if obs == nil {
		return
	}
	for _, it := range obs.ItemsRevealed {
		o.beliefs.For(it.Species).ObserveItem(it.Item)
	}
	for _, tr := range obs.TerasRevealed {
		o.beliefs.For(tr.Species).ObserveTera(tr.TeraType)
	}
	for _, m := range obs.MovesSeen {
		o.beliefs.For(m.Species).ObserveMove(m.MoveID)
	}
	for _, sp := range obs.SwitchedOut {
		o.beliefs.For(sp).ObserveSwitchedOut()
	}
	for _, so := range obs.SpeedOrders {
		o.beliefs.For(so.Species).ObserveSpeedOrder(so.WentFirst, so.RefSpeed)
		o.filterFor(so.Species).ObserveSpeedOrder(so.WentFirst, so.RefSpeed)
	}
	for i := range obs.DamageDealt {
		d := &obs.DamageDealt[i]
		o.beliefs.For(d.Defender).ObserveDamageTaken(&d.Attacker, d.MoveID, d.Fraction)
		o.filterFor(d.Defender).ObserveDamageTaken(&d.Attacker, d.MoveID, d.Fraction)
	}
	if obs.Style != nil {
		o.style.ObserveProtect(obs.Style.Protected)
		o.style.ObserveSwitch(obs.Style.Switched)
		o.style.ObserveFocus(obs.Style.Focused)
		o.style.ObserveSetup(obs.Style.SetUp)
	}
}

// filterFor lazily creates the particle filter tracking one opponent
// Pokémon's effective stats.
func (o *Orchestrator) filterFor(species uint8) *belief.ParticleFilter {
	if pf, ok := o.filters[species]; ok {
		return pf
	}
	pf := belief.NewParticleFilter(species, belief.DefaultParticleCount, o.rng)
	o.filters[species] = pf
	return pf
}

// MatchupObservation is the end-of-match summary for one opponent Pokémon:
// what the belief layer settled on over the whole game, for battle memory.
type MatchupObservation struct {
	Species uint8
	Item    uint8 // confirmed item, or engine.ItemNone if never revealed
	Spread  engine.SpreadKind
}

// MatchupObservations snapshots the belief state for every opponent Pokémon
// seen this match. Called once when the match ends.
func (o *Orchestrator) MatchupObservations() []MatchupObservation {
	out := make([]MatchupObservation, 0, len(o.beliefs.Pokemon))
	for species, pb := range o.beliefs.Pokemon {
		out = append(out, MatchupObservation{
			Species: species,
			Item:    pb.ConfirmedItem,
			Spread:  pb.MostLikelySpread(),
		})
	}
	return out
}

// LastTurn reports the last turn number a decision was made for.
func (o *Orchestrator) LastTurn() uint16 { return o.lastTurn }
