package solver

import (
	"github.com/kaname-hf/vgcsolver/engine"
)

// battleFixture builds a representative 4v4 doubles position.
func battleFixture() engine.BattleState {
	var b engine.BattleState
	b.Turn = 1
	b.Sides[engine.SideSelf] = engine.SideState{
		Active: [engine.ActiveSlots]engine.PokemonState{
			engine.NewPokemon(engine.SpeciesMiraidon, engine.ItemChoiceSpecs, engine.TypeElectric, engine.SpreadFastSweeper,
				engine.MoveElectroDrift, engine.MoveDracoMeteor, engine.MoveVoltSwitch, engine.MoveDazzlingGleam),
			engine.NewPokemon(engine.SpeciesFlutterMane, engine.ItemFocusSash, engine.TypeFairy, engine.SpreadFastSweeper,
				engine.MoveMoonblast, engine.MoveDazzlingGleam, engine.MoveShadowBall, engine.MoveProtect),
		},
		Reserve: [engine.MaxReserve]engine.PokemonState{
			engine.NewPokemon(engine.SpeciesIncineroar, engine.ItemSitrusBerry, engine.TypeGhost, engine.SpreadBulkyAttacker,
				engine.MoveFakeOut, engine.MoveFlareBlitz, engine.MoveKnockOff, engine.MoveUTurn),
			engine.NewPokemon(engine.SpeciesAmoonguss, engine.ItemLeftovers, engine.TypeWater, engine.SpreadSpeciallyDefensive,
				engine.MoveSpore, engine.MoveProtect, engine.MoveMoonblast, engine.MoveRecover),
		},
		ReserveN:      2,
		TeraAvailable: true,
	}
	b.Sides[engine.SideOpp] = engine.SideState{
		Active: [engine.ActiveSlots]engine.PokemonState{
			engine.NewPokemon(engine.SpeciesCalyrexIce, engine.ItemClearAmulet, engine.TypeIce, engine.SpreadBulkyAttacker,
				engine.MoveGlacialLance, engine.MoveTrickRoom, engine.MoveProtect, engine.MoveCloseCombat),
			engine.NewPokemon(engine.SpeciesUrshifu, engine.ItemChoiceBand, engine.TypeWater, engine.SpreadFastSweeper,
				engine.MoveSurf, engine.MoveCloseCombat, engine.MoveUTurn, engine.MoveIcyWind),
		},
		Reserve: [engine.MaxReserve]engine.PokemonState{
			engine.NewPokemon(engine.SpeciesTorkoal, engine.ItemLeftovers, engine.TypeFire, engine.SpreadBulkyAttacker,
				engine.MoveHeatWave, engine.MoveProtect, engine.MoveFlareBlitz, engine.MoveRecover),
			engine.NewPokemon(engine.SpeciesLandorus, engine.ItemAssaultVest, engine.TypeFlying, engine.SpreadBulkyAttacker,
				engine.MoveCloseCombat, engine.MoveUTurn, engine.MoveKnockOff, engine.MoveIcyWind),
		},
		ReserveN:      2,
		TeraAvailable: true,
	}
	return b
}

// endgameFixture builds a 1v1 position where self has a guaranteed KO.
func endgameFixture() engine.BattleState {
	var b engine.BattleState
	b.Turn = 20
	mira := engine.NewPokemon(engine.SpeciesMiraidon, engine.ItemChoiceSpecs, engine.TypeElectric, engine.SpreadFastSweeper,
		engine.MoveElectroDrift, engine.MoveDracoMeteor)
	urs := engine.NewPokemon(engine.SpeciesUrshifu, engine.ItemNone, engine.TypeWater, engine.SpreadFastSweeper,
		engine.MoveSurf, engine.MoveCloseCombat)
	urs.CurHP = urs.MaxHP / 10
	b.Sides[engine.SideSelf].Active[0] = mira
	b.Sides[engine.SideOpp].Active[0] = urs
	return b
}
