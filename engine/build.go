package engine

// SpreadKind selects a canonical EV allocation when exact EVs are unknown.
type SpreadKind uint8

const (
	SpreadFastSweeper SpreadKind = iota
	SpreadBulkyAttacker
	SpreadSpeciallyDefensive
	SpreadBalanced
)

// spreadEVs maps a spread archetype to (HP, Atk, Def, SpA, SpD, Spe) EVs.
// Offensive EVs land on whichever attacking stat the species favors.
func spreadEVs(kind SpreadKind, base Stats) [NumStats]uint8 {
	physical := base[StatAtk] >= base[StatSpA]
	off := StatSpA
	if physical {
		off = StatAtk
	}
	var evs [NumStats]uint8
	switch kind {
	case SpreadFastSweeper:
		evs[off] = 252
		evs[StatSpe] = 252
		evs[StatHP] = 4
	case SpreadBulkyAttacker:
		evs[StatHP] = 252
		evs[off] = 252
		evs[StatDef] = 4
	case SpreadSpeciallyDefensive:
		evs[StatHP] = 252
		evs[StatSpD] = 252
		evs[StatDef] = 4
	default: // balanced
		evs[StatHP] = 132
		evs[off] = 124
		evs[StatDef] = 60
		evs[StatSpD] = 60
		evs[StatSpe] = 124
	}
	return evs
}

// natureFor returns the (plus, minus) nature multiplier pair for a spread.
func natureFor(kind SpreadKind, stat uint8, base Stats) float64 {
	physical := base[StatAtk] >= base[StatSpA]
	off := uint8(StatSpA)
	drop := uint8(StatAtk)
	if physical {
		off = StatAtk
		drop = StatSpA
	}
	boosted := uint8(StatSpe)
	if kind == SpreadBulkyAttacker {
		boosted = off
	}
	if kind == SpreadSpeciallyDefensive {
		boosted = StatSpD
	}
	switch stat {
	case boosted:
		return 1.1
	case drop:
		return 0.9
	}
	return 1.0
}

// StatsForSpread computes full level-50 stats for a species under a spread
// archetype with 31 IVs.
func StatsForSpread(species uint8, kind SpreadKind) Stats {
	base := SpeciesData(species).Base
	evs := spreadEVs(kind, base)
	var out Stats
	out[StatHP] = CalcHP(base[StatHP], 31, evs[StatHP])
	for st := StatAtk; st < NumStats; st++ {
		out[st] = CalcStat(base[st], 31, evs[st], natureFor(kind, st, base))
	}
	return out
}

// NewPokemon builds a battle-ready Pokémon with full HP and PP.
func NewPokemon(species, item, teraType uint8, kind SpreadKind, moves ...uint8) PokemonState {
	p := PokemonState{
		Species:    species,
		Item:       item,
		TeraType:   teraType,
		Stats:      StatsForSpread(species, kind),
		ChoiceLock: NoLock,
		TurnsOut:   1,
	}
	p.MaxHP = p.Stats[StatHP]
	p.CurHP = p.MaxHP
	for i, m := range moves {
		if i >= MaxMoves {
			break
		}
		p.Moves[i] = m
		p.PP[i] = MoveData(m).MaxPP
	}
	return p
}
