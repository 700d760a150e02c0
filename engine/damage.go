package engine

// BoostMultiplier converts a stat stage in [-6, +6] to its multiplier.
func BoostMultiplier(stage int8) float64 {
	if stage >= 0 {
		return float64(2+stage) / 2.0
	}
	return 2.0 / float64(2-stage)
}

// CritChance is the base critical-hit probability.
const CritChance = 1.0 / 24.0

// DamageRolls is the number of uniform damage rolls (0.85 through 1.00).
const DamageRolls = 16

// DamageContext carries the field conditions relevant to damage.
type DamageContext struct {
	Weather        uint8
	Spread         bool // move hit both opposing slots this turn
	DefReflect     bool
	DefLightScreen bool
}

// DamageRange is the damage-calculation oracle's output: the bounds of the
// roll window plus knockout probability against the defender's current HP.
type DamageRange struct {
	Min           int16
	Max           int16
	KOChance      float64
	Effectiveness float64
}

// attackStat returns the attacker's effective offensive stat for the move.
func attackStat(attacker *PokemonState, mv Move) float64 {
	var stat float64
	var stage int8
	if mv.Category == CategoryPhysical {
		stat = float64(attacker.Stats[StatAtk])
		stage = attacker.Boosts[StatAtk]
	} else {
		stat = float64(attacker.Stats[StatSpA])
		stage = attacker.Boosts[StatSpA]
	}
	stat *= BoostMultiplier(stage)
	switch {
	case attacker.Item == ItemChoiceBand && mv.Category == CategoryPhysical:
		stat *= 1.5
	case attacker.Item == ItemChoiceSpecs && mv.Category == CategorySpecial:
		stat *= 1.5
	}
	if mv.Category == CategoryPhysical && attacker.Status == StatusBurn {
		stat *= 0.5
	}
	return stat
}

// defenseStat returns the defender's effective defensive stat for the move.
func defenseStat(defender *PokemonState, mv Move) float64 {
	var stat float64
	var stage int8
	if mv.Category == CategoryPhysical {
		stat = float64(defender.Stats[StatDef])
		stage = defender.Boosts[StatDef]
	} else {
		stat = float64(defender.Stats[StatSpD])
		stage = defender.Boosts[StatSpD]
	}
	stat *= BoostMultiplier(stage)
	if mv.Category == CategorySpecial && defender.Item == ItemAssaultVest {
		stat *= 1.5
	}
	return stat
}

// stabMultiplier returns the same-type attack bonus for the attacker.
// Terastallizing into one of the original types upgrades STAB to 2.0.
func stabMultiplier(attacker *PokemonState, moveType uint8) float64 {
	sp := SpeciesData(attacker.Species)
	original := moveType == sp.Types[0] || moveType == sp.Types[1]
	if attacker.Terastallized {
		if moveType == attacker.TeraType {
			if original {
				return 2.0
			}
			return 1.5
		}
		if original {
			return 1.5
		}
		return 1.0
	}
	if original {
		return 1.5
	}
	return 1.0
}

// baseDamage computes the pre-roll damage of moveID from attacker into
// defender under ctx, before the 0.85-1.00 roll and crit multiplier.
func baseDamage(attacker, defender *PokemonState, moveID uint8, ctx DamageContext) float64 {
	mv := MoveData(moveID)
	if mv.Power == 0 {
		return 0
	}
	atk := attackStat(attacker, mv)
	def := defenseStat(defender, mv)
	if def < 1 {
		def = 1
	}

	// Level-50 core: floor(floor(22 * power * A / D) / 50) + 2.
	dmg := float64(int(22*float64(mv.Power)*atk/def)/50) + 2

	if ctx.Spread {
		dmg *= 0.75
	}
	switch ctx.Weather {
	case WeatherSun:
		if mv.Type == TypeFire {
			dmg *= 1.5
		} else if mv.Type == TypeWater {
			dmg *= 0.5
		}
	case WeatherRain:
		if mv.Type == TypeWater {
			dmg *= 1.5
		} else if mv.Type == TypeFire {
			dmg *= 0.5
		}
	}
	dmg *= stabMultiplier(attacker, mv.Type)
	dmg *= TypeEffectiveness(mv.Type, defender.EffectiveTypes())
	if attacker.Item == ItemLifeOrb {
		dmg *= 1.3
	}
	if mv.Category == CategoryPhysical && ctx.DefReflect {
		dmg *= 0.5
	}
	if mv.Category == CategorySpecial && ctx.DefLightScreen {
		dmg *= 0.5
	}
	return dmg
}

// Damage resolves one concrete damage amount given a roll in [0.85, 1.0]
// and whether the hit crit. Crits ignore screens and the defender's
// positive defense boosts; that refinement is folded into the 1.5x here.
func Damage(attacker, defender *PokemonState, moveID uint8, ctx DamageContext, roll float64, crit bool) int16 {
	dmg := baseDamage(attacker, defender, moveID, ctx)
	if crit {
		dmg *= 1.5
	}
	out := int16(dmg * roll)
	if out < 1 && dmg > 0 {
		out = 1
	}
	return out
}

// DamageDistribution computes the roll window of moveID against defender and
// the chance the hit knocks the defender out from its current HP, averaging
// over rolls, accuracy and crits. Used directly by candidate scoring.
func DamageDistribution(attacker, defender *PokemonState, moveID uint8, ctx DamageContext) DamageRange {
	mv := MoveData(moveID)
	eff := TypeEffectiveness(mv.Type, defender.EffectiveTypes())
	if mv.Power == 0 || eff == 0 {
		return DamageRange{Effectiveness: eff}
	}
	min := Damage(attacker, defender, moveID, ctx, 0.85, false)
	max := Damage(attacker, defender, moveID, ctx, 1.0, false)

	koRolls := 0
	for r := 0; r < DamageRolls; r++ {
		roll := 0.85 + float64(r)*0.01
		if Damage(attacker, defender, moveID, ctx, roll, false) >= defender.CurHP {
			koRolls++
		}
	}
	acc := 1.0
	if mv.Accuracy > 0 {
		acc = float64(mv.Accuracy) / 100.0
	}
	ko := acc * float64(koRolls) / DamageRolls
	if koRolls < DamageRolls {
		// Crits can push sub-KO rolls over the line.
		critKO := Damage(attacker, defender, moveID, ctx, 0.925, true) >= defender.CurHP
		if critKO {
			ko += acc * CritChance * float64(DamageRolls-koRolls) / DamageRolls
		}
	}
	if defender.Item == ItemFocusSash && defender.CurHP == defender.MaxHP {
		ko = 0
	}
	return DamageRange{Min: min, Max: max, KOChance: ko, Effectiveness: eff}
}
