package engine

// typeMatchup is a compact (attacker, defender) pair key.
func typeMatchup(atk, def uint8) uint16 { return uint16(atk)<<8 | uint16(def) }

// typeChart lists non-neutral matchups only; absent pairs are ×1.
var typeChart = map[uint16]float64{}

func init() {
	super := map[uint8][]uint8{
		TypeFire:     {TypeGrass, TypeIce, TypeBug, TypeSteel},
		TypeWater:    {TypeFire, TypeGround, TypeRock},
		TypeElectric: {TypeWater, TypeFlying},
		TypeGrass:    {TypeWater, TypeGround, TypeRock},
		TypeIce:      {TypeGrass, TypeGround, TypeFlying, TypeDragon},
		TypeFighting: {TypeNormal, TypeIce, TypeRock, TypeDark, TypeSteel},
		TypePoison:   {TypeGrass, TypeFairy},
		TypeGround:   {TypeFire, TypeElectric, TypePoison, TypeRock, TypeSteel},
		TypeFlying:   {TypeGrass, TypeFighting, TypeBug},
		TypePsychic:  {TypeFighting, TypePoison},
		TypeBug:      {TypeGrass, TypePsychic, TypeDark},
		TypeRock:     {TypeFire, TypeIce, TypeFlying, TypeBug},
		TypeGhost:    {TypePsychic, TypeGhost},
		TypeDragon:   {TypeDragon},
		TypeDark:     {TypePsychic, TypeGhost},
		TypeSteel:    {TypeIce, TypeRock, TypeFairy},
		TypeFairy:    {TypeFighting, TypeDragon, TypeDark},
	}
	resist := map[uint8][]uint8{
		TypeNormal:   {TypeRock, TypeSteel},
		TypeFire:     {TypeFire, TypeWater, TypeRock, TypeDragon},
		TypeWater:    {TypeWater, TypeGrass, TypeDragon},
		TypeElectric: {TypeElectric, TypeGrass, TypeDragon},
		TypeGrass:    {TypeFire, TypeGrass, TypePoison, TypeFlying, TypeBug, TypeDragon, TypeSteel},
		TypeIce:      {TypeFire, TypeWater, TypeIce, TypeSteel},
		TypeFighting: {TypePoison, TypeFlying, TypePsychic, TypeBug, TypeFairy},
		TypePoison:   {TypePoison, TypeGround, TypeRock, TypeGhost},
		TypeGround:   {TypeGrass, TypeBug},
		TypeFlying:   {TypeElectric, TypeRock, TypeSteel},
		TypePsychic:  {TypePsychic, TypeSteel},
		TypeBug:      {TypeFire, TypeFighting, TypePoison, TypeFlying, TypeGhost, TypeSteel, TypeFairy},
		TypeRock:     {TypeFighting, TypeGround, TypeSteel},
		TypeGhost:    {TypeDark},
		TypeDragon:   {TypeSteel},
		TypeDark:     {TypeFighting, TypeDark, TypeFairy},
		TypeSteel:    {TypeFire, TypeWater, TypeElectric, TypeSteel},
		TypeFairy:    {TypeFire, TypePoison, TypeSteel},
	}
	immune := map[uint8][]uint8{
		TypeNormal:   {TypeGhost},
		TypeElectric: {TypeGround},
		TypeFighting: {TypeGhost},
		TypePoison:   {TypeSteel},
		TypeGround:   {TypeFlying},
		TypePsychic:  {TypeDark},
		TypeGhost:    {TypeNormal},
		TypeDragon:   {TypeFairy},
	}
	for atk, defs := range super {
		for _, def := range defs {
			typeChart[typeMatchup(atk, def)] = 2.0
		}
	}
	for atk, defs := range resist {
		for _, def := range defs {
			typeChart[typeMatchup(atk, def)] = 0.5
		}
	}
	for atk, defs := range immune {
		for _, def := range defs {
			typeChart[typeMatchup(atk, def)] = 0.0
		}
	}
}

// TypeEffectiveness returns the combined multiplier of moveType against the
// defender's one or two types.
func TypeEffectiveness(moveType uint8, defTypes [2]uint8) float64 {
	mult := 1.0
	for _, dt := range defTypes {
		if dt == TypeNone {
			continue
		}
		if m, ok := typeChart[typeMatchup(moveType, dt)]; ok {
			mult *= m
		}
	}
	return mult
}
