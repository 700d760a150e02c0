package engine

// Move categories.
const (
	CategoryPhysical uint8 = iota
	CategorySpecial
	CategoryStatus
)

// Move flags — static tags consumed by candidate scoring and resolution.
const (
	FlagProtect      uint16 = 1 << iota // blocks incoming attacks this turn
	FlagSpread                          // hits both opposing slots
	FlagSpeedControl                    // tailwind / icy wind / thunder wave class
	FlagPivot                           // switches the user out after use
	FlagSetup                           // raises the user's offensive stats
	FlagRecovery                        // restores the user's HP
	FlagPriorityKO                      // fake-out class flinch
	FlagField                           // sets a field or side condition
)

// Move describes one move's static data.
type Move struct {
	Name     string
	Type     uint8
	Power    uint8
	Accuracy uint8 // percent; 0 means never misses
	Priority int8
	Category uint8
	Flags    uint16
	MaxPP    uint8
}

// Move IDs — indices into moveTable. MoveNone doubles as "empty move slot".
const (
	MoveNone uint8 = iota
	MoveStruggle
	MoveProtect
	MoveFakeOut
	MoveMoonblast
	MoveDazzlingGleam
	MoveElectroDrift
	MoveDracoMeteor
	MoveVoltSwitch
	MoveUTurn
	MoveIcyWind
	MoveTailwind
	MoveTrickRoom
	MoveSwordsDance
	MoveNastyPlot
	MoveCloseCombat
	MoveHeatWave
	MoveFlareBlitz
	MoveSurf
	MoveThunderWave
	MoveRecover
	MoveShadowBall
	MoveKnockOff
	MoveGlacialLance
	MoveSpore
	NumMoves
)

var moveTable = [NumMoves]Move{
	MoveNone:     {Name: "(none)", Category: CategoryStatus},
	MoveStruggle: {Name: "Struggle", Type: TypeNormal, Power: 50, Category: CategoryPhysical, MaxPP: 255},
	MoveProtect:  {Name: "Protect", Type: TypeNormal, Priority: 4, Category: CategoryStatus, Flags: FlagProtect, MaxPP: 16},
	MoveFakeOut:  {Name: "Fake Out", Type: TypeNormal, Power: 40, Accuracy: 100, Priority: 3, Category: CategoryPhysical, Flags: FlagPriorityKO, MaxPP: 16},
	MoveMoonblast: {Name: "Moonblast", Type: TypeFairy, Power: 95, Accuracy: 100, Category: CategorySpecial, MaxPP: 24},
	MoveDazzlingGleam: {Name: "Dazzling Gleam", Type: TypeFairy, Power: 80, Accuracy: 100, Category: CategorySpecial, Flags: FlagSpread, MaxPP: 16},
	MoveElectroDrift:  {Name: "Electro Drift", Type: TypeElectric, Power: 100, Accuracy: 100, Category: CategorySpecial, MaxPP: 8},
	MoveDracoMeteor:   {Name: "Draco Meteor", Type: TypeDragon, Power: 130, Accuracy: 90, Category: CategorySpecial, MaxPP: 8},
	MoveVoltSwitch:    {Name: "Volt Switch", Type: TypeElectric, Power: 70, Accuracy: 100, Category: CategorySpecial, Flags: FlagPivot, MaxPP: 32},
	MoveUTurn:         {Name: "U-turn", Type: TypeBug, Power: 70, Accuracy: 100, Category: CategoryPhysical, Flags: FlagPivot, MaxPP: 32},
	MoveIcyWind:       {Name: "Icy Wind", Type: TypeIce, Power: 55, Accuracy: 95, Category: CategorySpecial, Flags: FlagSpread | FlagSpeedControl, MaxPP: 24},
	MoveTailwind:      {Name: "Tailwind", Type: TypeFlying, Category: CategoryStatus, Flags: FlagSpeedControl | FlagField, MaxPP: 24},
	MoveTrickRoom:     {Name: "Trick Room", Type: TypePsychic, Priority: -7, Category: CategoryStatus, Flags: FlagSpeedControl | FlagField, MaxPP: 8},
	MoveSwordsDance:   {Name: "Swords Dance", Type: TypeNormal, Category: CategoryStatus, Flags: FlagSetup, MaxPP: 32},
	MoveNastyPlot:     {Name: "Nasty Plot", Type: TypeDark, Category: CategoryStatus, Flags: FlagSetup, MaxPP: 32},
	MoveCloseCombat:   {Name: "Close Combat", Type: TypeFighting, Power: 120, Accuracy: 100, Category: CategoryPhysical, MaxPP: 8},
	MoveHeatWave:      {Name: "Heat Wave", Type: TypeFire, Power: 95, Accuracy: 90, Category: CategorySpecial, Flags: FlagSpread, MaxPP: 16},
	MoveFlareBlitz:    {Name: "Flare Blitz", Type: TypeFire, Power: 120, Accuracy: 100, Category: CategoryPhysical, MaxPP: 24},
	MoveSurf:          {Name: "Surf", Type: TypeWater, Power: 90, Accuracy: 100, Category: CategorySpecial, Flags: FlagSpread, MaxPP: 24},
	MoveThunderWave:   {Name: "Thunder Wave", Type: TypeElectric, Accuracy: 90, Category: CategoryStatus, Flags: FlagSpeedControl, MaxPP: 32},
	MoveRecover:       {Name: "Recover", Type: TypeNormal, Category: CategoryStatus, Flags: FlagRecovery, MaxPP: 8},
	MoveShadowBall:    {Name: "Shadow Ball", Type: TypeGhost, Power: 80, Accuracy: 100, Category: CategorySpecial, MaxPP: 24},
	MoveKnockOff:      {Name: "Knock Off", Type: TypeDark, Power: 65, Accuracy: 100, Category: CategoryPhysical, MaxPP: 32},
	MoveGlacialLance:  {Name: "Glacial Lance", Type: TypeIce, Power: 120, Accuracy: 100, Category: CategoryPhysical, Flags: FlagSpread, MaxPP: 8},
	MoveSpore:         {Name: "Spore", Type: TypeGrass, Accuracy: 100, Category: CategoryStatus, MaxPP: 24},
}

// MoveData returns the static data for a move ID. Unknown IDs return the
// empty move.
func MoveData(id uint8) Move {
	if id >= NumMoves {
		return moveTable[MoveNone]
	}
	return moveTable[id]
}

// IsSpreadMove reports whether the move hits both opposing slots.
func IsSpreadMove(id uint8) bool { return MoveData(id).Flags&FlagSpread != 0 }

// Item IDs. ItemNone means no (or unknown) held item.
const (
	ItemNone uint8 = iota
	ItemLifeOrb
	ItemChoiceScarf
	ItemChoiceSpecs
	ItemChoiceBand
	ItemAssaultVest
	ItemFocusSash
	ItemLeftovers
	ItemSitrusBerry
	ItemBoosterEnergy
	ItemClearAmulet
	NumItems
)

var itemNames = [NumItems]string{
	"(none)", "Life Orb", "Choice Scarf", "Choice Specs", "Choice Band",
	"Assault Vest", "Focus Sash", "Leftovers", "Sitrus Berry",
	"Booster Energy", "Clear Amulet",
}

// ItemName returns the display name for an item ID.
func ItemName(id uint8) string {
	if id >= NumItems {
		return "(none)"
	}
	return itemNames[id]
}

// IsChoiceItem reports whether the item locks the holder into one move.
func IsChoiceItem(id uint8) bool {
	return id == ItemChoiceScarf || id == ItemChoiceSpecs || id == ItemChoiceBand
}

// Species describes one species' static data.
type Species struct {
	Name  string
	Types [2]uint8
	Base  Stats
}

// Species IDs — indices into speciesTable. SpeciesNone marks an empty slot.
const (
	SpeciesNone uint8 = iota
	SpeciesMiraidon
	SpeciesFlutterMane
	SpeciesIncineroar
	SpeciesRillaboom
	SpeciesAmoonguss
	SpeciesChienPao
	SpeciesGholdengo
	SpeciesLandorus
	SpeciesUrshifu
	SpeciesTorkoal
	SpeciesDragonite
	SpeciesCalyrexIce
	NumSpecies
)

var speciesTable = [NumSpecies]Species{
	SpeciesNone:        {Name: "(empty)"},
	SpeciesMiraidon:    {Name: "Miraidon", Types: [2]uint8{TypeElectric, TypeDragon}, Base: Stats{100, 85, 100, 135, 115, 135}},
	SpeciesFlutterMane: {Name: "Flutter Mane", Types: [2]uint8{TypeGhost, TypeFairy}, Base: Stats{55, 55, 55, 135, 135, 135}},
	SpeciesIncineroar:  {Name: "Incineroar", Types: [2]uint8{TypeFire, TypeDark}, Base: Stats{95, 115, 90, 80, 90, 60}},
	SpeciesRillaboom:   {Name: "Rillaboom", Types: [2]uint8{TypeGrass, TypeNone}, Base: Stats{100, 125, 90, 60, 70, 85}},
	SpeciesAmoonguss:   {Name: "Amoonguss", Types: [2]uint8{TypeGrass, TypePoison}, Base: Stats{114, 85, 70, 85, 80, 30}},
	SpeciesChienPao:    {Name: "Chien-Pao", Types: [2]uint8{TypeDark, TypeIce}, Base: Stats{80, 120, 80, 90, 65, 135}},
	SpeciesGholdengo:   {Name: "Gholdengo", Types: [2]uint8{TypeSteel, TypeGhost}, Base: Stats{87, 60, 95, 133, 91, 84}},
	SpeciesLandorus:    {Name: "Landorus-Therian", Types: [2]uint8{TypeGround, TypeFlying}, Base: Stats{89, 145, 90, 105, 80, 91}},
	SpeciesUrshifu:     {Name: "Urshifu-Rapid-Strike", Types: [2]uint8{TypeFighting, TypeWater}, Base: Stats{100, 130, 100, 63, 60, 97}},
	SpeciesTorkoal:     {Name: "Torkoal", Types: [2]uint8{TypeFire, TypeNone}, Base: Stats{70, 85, 140, 85, 70, 20}},
	SpeciesDragonite:   {Name: "Dragonite", Types: [2]uint8{TypeDragon, TypeFlying}, Base: Stats{91, 134, 95, 100, 100, 80}},
	SpeciesCalyrexIce:  {Name: "Calyrex-Ice", Types: [2]uint8{TypePsychic, TypeIce}, Base: Stats{100, 165, 150, 85, 130, 50}},
}

// SpeciesData returns the static data for a species ID.
func SpeciesData(id uint8) Species {
	if id >= NumSpecies {
		return speciesTable[SpeciesNone]
	}
	return speciesTable[id]
}

// CalcStat computes a level-50 stat from base, IV, EV and a nature
// multiplier (0.9, 1.0 or 1.1). stat must not be StatHP.
func CalcStat(base int16, iv, ev uint8, nature float64) int16 {
	raw := (2*int(base) + int(iv) + int(ev)/4) * 50 / 100
	return int16(float64(raw+5) * nature)
}

// CalcHP computes level-50 max HP from base, IV and EV.
func CalcHP(base int16, iv, ev uint8) int16 {
	return int16((2*int(base)+int(iv)+int(ev)/4)*50/100 + 50 + 10)
}
