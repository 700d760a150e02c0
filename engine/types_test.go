package engine

import "testing"

func TestActionEncodeDecodeMove(t *testing.T) {
	cases := []struct {
		slot, target uint8
		tera         bool
	}{
		{0, TargetOppSlot0, false},
		{1, TargetOppSlot1, true},
		{2, TargetSpread, false},
		{3, TargetSelf, true},
		{1, TargetField, false},
	}
	for _, c := range cases {
		a := EncodeMove(c.slot, c.target, c.tera)
		if !ActionIsMove(a) {
			t.Fatalf("EncodeMove(%d,%d,%v) not recognized as move", c.slot, c.target, c.tera)
		}
		if got := ActionMoveSlot(a); got != c.slot {
			t.Errorf("slot: got %d, want %d", got, c.slot)
		}
		if got := ActionTarget(a); got != c.target {
			t.Errorf("target: got %d, want %d", got, c.target)
		}
		if got := ActionTera(a); got != c.tera {
			t.Errorf("tera: got %v, want %v", got, c.tera)
		}
	}
}

func TestActionEncodeDecodeSwitch(t *testing.T) {
	for idx := uint8(0); idx < MaxReserve; idx++ {
		a := EncodeSwitch(idx)
		if !ActionIsSwitch(a) {
			t.Fatalf("EncodeSwitch(%d) not recognized as switch", idx)
		}
		if got := ActionSwitchIndex(a); got != idx {
			t.Errorf("reserve index: got %d, want %d", got, idx)
		}
	}
}

func TestActionKindsAreDisjoint(t *testing.T) {
	move := EncodeMove(1, TargetOppSlot0, false)
	sw := EncodeSwitch(1)
	st := EncodeStruggle(TargetOppSlot1)
	if ActionIsSwitch(move) || ActionIsPass(move) || ActionIsStruggle(move) {
		t.Error("move action matched another kind")
	}
	if ActionIsMove(sw) || ActionIsPass(sw) || ActionIsStruggle(sw) {
		t.Error("switch action matched another kind")
	}
	if ActionIsMove(st) || ActionIsSwitch(st) || ActionIsPass(st) {
		t.Error("struggle action matched another kind")
	}
	if !ActionIsPass(PassAction) {
		t.Error("PassAction not recognized as pass")
	}
}

func TestJointActionSignature(t *testing.T) {
	a := JointAction{EncodeMove(0, TargetOppSlot0, false), EncodeSwitch(1)}
	b := JointAction{EncodeSwitch(1), EncodeMove(0, TargetOppSlot0, false)}
	if a.Signature() == b.Signature() {
		t.Error("slot order must distinguish joint action signatures")
	}
	if a.Signature() != a.Signature() {
		t.Error("signature must be deterministic")
	}
}

func TestCloneIsDeep(t *testing.T) {
	b := testBattle()
	c := b.Clone()
	c.Sides[SideSelf].Active[0].CurHP = 1
	if b.Sides[SideSelf].Active[0].CurHP == 1 {
		t.Error("mutating a clone leaked into the original")
	}
}

func TestHPFractionBounds(t *testing.T) {
	p := NewPokemon(SpeciesIncineroar, ItemNone, TypeFire, SpreadBulkyAttacker, MoveFakeOut)
	if f := p.HPFraction(); f != 1.0 {
		t.Errorf("full HP fraction: got %v, want 1.0", f)
	}
	p.CurHP = -5
	if f := p.HPFraction(); f != 0 {
		t.Errorf("negative HP fraction: got %v, want 0", f)
	}
	if !p.Fainted() {
		t.Error("Pokémon at negative HP must be fainted")
	}
}

func TestWinnerDetection(t *testing.T) {
	b := testBattle()
	if b.IsTerminal() {
		t.Fatal("fresh battle must not be terminal")
	}
	for i := range b.Sides[SideOpp].Active {
		b.Sides[SideOpp].Active[i].CurHP = 0
	}
	for i := uint8(0); i < b.Sides[SideOpp].ReserveN; i++ {
		b.Sides[SideOpp].Reserve[i].CurHP = 0
	}
	if !b.IsTerminal() {
		t.Fatal("battle with one side eliminated must be terminal")
	}
	w, ok := b.Winner()
	if !ok || w != SideSelf {
		t.Errorf("winner: got (%d,%v), want (SideSelf,true)", w, ok)
	}
}

// testBattle builds a representative 4v4 doubles position.
func testBattle() BattleState {
	var b BattleState
	b.Turn = 1
	b.Sides[SideSelf] = SideState{
		Active: [ActiveSlots]PokemonState{
			NewPokemon(SpeciesMiraidon, ItemChoiceSpecs, TypeElectric, SpreadFastSweeper, MoveElectroDrift, MoveDracoMeteor, MoveVoltSwitch, MoveDazzlingGleam),
			NewPokemon(SpeciesFlutterMane, ItemFocusSash, TypeFairy, SpreadFastSweeper, MoveMoonblast, MoveDazzlingGleam, MoveShadowBall, MoveProtect),
		},
		Reserve: [MaxReserve]PokemonState{
			NewPokemon(SpeciesIncineroar, ItemSitrusBerry, TypeGhost, SpreadBulkyAttacker, MoveFakeOut, MoveFlareBlitz, MoveKnockOff, MoveUTurn),
			NewPokemon(SpeciesAmoonguss, ItemLeftovers, TypeWater, SpreadSpeciallyDefensive, MoveSpore, MoveProtect, MoveMoonblast, MoveRecover),
		},
		ReserveN:      2,
		TeraAvailable: true,
	}
	b.Sides[SideOpp] = SideState{
		Active: [ActiveSlots]PokemonState{
			NewPokemon(SpeciesCalyrexIce, ItemClearAmulet, TypeIce, SpreadBulkyAttacker, MoveGlacialLance, MoveTrickRoom, MoveProtect, MoveCloseCombat),
			NewPokemon(SpeciesUrshifu, ItemChoiceBand, TypeWater, SpreadFastSweeper, MoveSurf, MoveCloseCombat, MoveUTurn, MoveIcyWind),
		},
		Reserve: [MaxReserve]PokemonState{
			NewPokemon(SpeciesTorkoal, ItemLeftovers, TypeFire, SpreadBulkyAttacker, MoveHeatWave, MoveProtect, MoveFlareBlitz, MoveRecover),
			NewPokemon(SpeciesLandorus, ItemAssaultVest, TypeFlying, SpreadBulkyAttacker, MoveCloseCombat, MoveUTurn, MoveKnockOff, MoveIcyWind),
		},
		ReserveN:      2,
		TeraAvailable: true,
	}
	return b
}
