package belief

import (
	"math"
	"math/rand"
	"testing"

	"github.com/kaname-hf/vgcsolver/engine"
)

func sums(pb *PokemonBelief) (items, spreads, teras float64) {
	for _, w := range pb.Items {
		items += w
	}
	for _, w := range pb.Spreads {
		spreads += w
	}
	for _, w := range pb.Teras {
		teras += w
	}
	return
}

func assertNormalized(t *testing.T, pb *PokemonBelief, context string) {
	t.Helper()
	items, spreads, teras := sums(pb)
	for name, got := range map[string]float64{"items": items, "spreads": spreads, "teras": teras} {
		if math.Abs(got-1.0) > 1e-9 {
			t.Errorf("%s: %s weights sum to %v, want 1.0", context, name, got)
		}
	}
}

func TestPriorsNormalized(t *testing.T) {
	pb := NewPokemonBelief(engine.SpeciesFlutterMane)
	assertNormalized(t, pb, "fresh priors")
}

func TestNormalizationAfterEveryObservation(t *testing.T) {
	pb := NewPokemonBelief(engine.SpeciesUrshifu)
	atk := engine.NewPokemon(engine.SpeciesMiraidon, engine.ItemNone, engine.TypeElectric, engine.SpreadFastSweeper, engine.MoveElectroDrift)

	pb.ObserveSpeedOrder(true, 150)
	assertNormalized(t, pb, "after speed observation")

	pb.ObserveDamageTaken(&atk, engine.MoveElectroDrift, 0.6)
	assertNormalized(t, pb, "after damage observation")

	pb.ObserveMove(engine.MoveSurf)
	pb.ObserveMove(engine.MoveCloseCombat)
	assertNormalized(t, pb, "after move observations")
}

func TestMonotonicEvidence(t *testing.T) {
	pb := NewPokemonBelief(engine.SpeciesChienPao)
	// Chien-Pao's fast spread outruns almost anything; observing it move
	// first against a fast reference must not lower the fast spread's
	// weight relative to slow spreads.
	beforeFast := pb.Spreads[engine.SpreadFastSweeper]
	beforeBulky := pb.Spreads[engine.SpreadBulkyAttacker]
	pb.ObserveSpeedOrder(true, 180)
	afterFast := pb.Spreads[engine.SpreadFastSweeper]
	afterBulky := pb.Spreads[engine.SpreadBulkyAttacker]
	if afterFast/beforeFast < afterBulky/beforeBulky {
		t.Errorf("consistent hypothesis lost relative weight: fast %v->%v, bulky %v->%v",
			beforeFast, afterFast, beforeBulky, afterBulky)
	}
}

func TestItemRevealPinsDistribution(t *testing.T) {
	pb := NewPokemonBelief(engine.SpeciesIncineroar)
	pb.ObserveItem(engine.ItemSitrusBerry)
	if pb.Items[engine.ItemSitrusBerry] != 1.0 {
		t.Errorf("revealed item weight: got %v, want 1.0", pb.Items[engine.ItemSitrusBerry])
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		if h := pb.Sample(rng); h.Item != engine.ItemSitrusBerry {
			t.Fatalf("sample returned item %d after reveal", h.Item)
		}
	}
}

func TestStatusMoveRulesOutAssaultVest(t *testing.T) {
	pb := NewPokemonBelief(engine.SpeciesAmoonguss)
	before := pb.Items[engine.ItemAssaultVest]
	pb.ObserveMove(engine.MoveSpore)
	if pb.Items[engine.ItemAssaultVest] >= before {
		t.Errorf("assault vest weight did not drop after a status move: %v -> %v",
			before, pb.Items[engine.ItemAssaultVest])
	}
}

func TestDistinctMovesRuleOutChoiceItems(t *testing.T) {
	pb := NewPokemonBelief(engine.SpeciesUrshifu)
	beforeScarf := pb.Items[engine.ItemChoiceScarf]
	pb.ObserveMove(engine.MoveSurf)
	pb.ObserveMove(engine.MoveCloseCombat)
	if pb.Items[engine.ItemChoiceScarf] >= beforeScarf {
		t.Error("choice item weight must drop after two distinct moves")
	}
	// A switch resets the streak; a fresh single move must not re-penalize.
	pb.ObserveSwitchedOut()
	if pb.distinctMoves != 0 {
		t.Errorf("distinct move streak not reset: %d", pb.distinctMoves)
	}
}

func TestDegenerateBeliefRecoversToUniform(t *testing.T) {
	pb := NewPokemonBelief(engine.SpeciesTorkoal)
	for i := range pb.Spreads {
		pb.Spreads[i] = 0
	}
	normalize(pb.Spreads[:])
	for i, w := range pb.Spreads {
		if math.Abs(w-1.0/NumSpreads) > 1e-9 {
			t.Errorf("spread %d after degenerate recovery: got %v, want uniform", i, w)
		}
	}
}

func TestSampleRespectsSupport(t *testing.T) {
	pb := NewPokemonBelief(engine.SpeciesGholdengo)
	pb.ObserveTera(engine.TypeSteel)
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 100; i++ {
		h := pb.Sample(rng)
		if h.Tera != engine.TypeSteel {
			t.Fatalf("sampled tera %d outside confirmed support", h.Tera)
		}
		if int(h.Spread) >= NumSpreads {
			t.Fatalf("sampled spread %d out of range", h.Spread)
		}
	}
}

func TestStateCreatesBeliefOnFirstSight(t *testing.T) {
	s := NewState()
	pb := s.For(engine.SpeciesMiraidon)
	if pb == nil || pb.Species != engine.SpeciesMiraidon {
		t.Fatal("For must create a belief on first sight")
	}
	if s.For(engine.SpeciesMiraidon) != pb {
		t.Error("For must return the same belief on later calls")
	}
	hyps := s.Sample(rand.New(rand.NewSource(3)))
	if _, ok := hyps[engine.SpeciesMiraidon]; !ok {
		t.Error("State.Sample missing tracked species")
	}
}
