// Package engine implements a self-contained doubles battle model: flat
// value-type state, packed action encoding, legal-action generation, seeded
// turn resolution and static evaluation. It has no dependencies outside the
// standard library so states can be copied and mutated freely during search.
package engine

// Type constants — elemental types.
const (
	TypeNone uint8 = iota
	TypeNormal
	TypeFire
	TypeWater
	TypeElectric
	TypeGrass
	TypeIce
	TypeFighting
	TypePoison
	TypeGround
	TypeFlying
	TypePsychic
	TypeBug
	TypeRock
	TypeGhost
	TypeDragon
	TypeDark
	TypeSteel
	TypeFairy
	NumTypes = 18
)

var typeNames = [NumTypes + 1]string{
	"(none)", "Normal", "Fire", "Water", "Electric", "Grass", "Ice",
	"Fighting", "Poison", "Ground", "Flying", "Psychic", "Bug", "Rock",
	"Ghost", "Dragon", "Dark", "Steel", "Fairy",
}

// TypeName returns the display name for a type constant.
func TypeName(id uint8) string {
	if id > NumTypes {
		return "(none)"
	}
	return typeNames[id]
}

// Stat indices into Stats and Boosts arrays.
const (
	StatHP uint8 = iota
	StatAtk
	StatDef
	StatSpA
	StatSpD
	StatSpe
	NumStats = 6
)

// Status conditions.
const (
	StatusNone uint8 = iota
	StatusBurn
	StatusParalysis
	StatusPoison
	StatusSleep
)

// Side indices. Search always scores from SideSelf's perspective.
const (
	SideSelf uint8 = 0
	SideOpp  uint8 = 1
)

// MaxMoves is the moveset size per Pokémon.
const MaxMoves = 4

// NoLock marks the absence of a choice lock.
const NoLock uint8 = 0xFF

// Stats holds the six effective stats at level 50.
type Stats [NumStats]int16

// Boosts holds stat stages in [-6, +6]. Index StatHP is unused.
type Boosts [NumStats]int8

// PokemonState is one Pokémon's battle state. Value type: copying a
// BattleState deep-copies every Pokémon with it.
type PokemonState struct {
	Species       uint8
	CurHP         int16
	MaxHP         int16
	Stats         Stats
	Boosts        Boosts
	Status        uint8
	Moves         [MaxMoves]uint8
	PP            [MaxMoves]uint8
	Item          uint8
	TeraType      uint8
	Terastallized bool
	ChoiceLock    uint8 // move slot the holder is locked into, or NoLock
	ProtectStreak uint8
	TurnsOut      uint8 // turns since switching in; 0 enables Fake Out
}

// Fainted reports whether the Pokémon is knocked out. Empty slots
// (Species == 0) also count as fainted.
func (p *PokemonState) Fainted() bool { return p.Species == 0 || p.CurHP <= 0 }

// HPFraction returns current HP as a fraction of max, clamped to [0, 1].
func (p *PokemonState) HPFraction() float64 {
	if p.MaxHP <= 0 || p.CurHP <= 0 {
		return 0
	}
	return float64(p.CurHP) / float64(p.MaxHP)
}

// EffectiveType returns the defensive typing in play: the Tera type once
// terastallized, the species types otherwise.
func (p *PokemonState) EffectiveTypes() [2]uint8 {
	if p.Terastallized {
		return [2]uint8{p.TeraType, TypeNone}
	}
	sp := SpeciesData(p.Species)
	return sp.Types
}

// ActiveSlots is the number of active Pokémon per side in doubles.
const ActiveSlots = 2

// MaxReserve is the number of bench slots per side (bring four, lead two).
const MaxReserve = 2

// SideState is one player's half of the battle.
type SideState struct {
	Active        [ActiveSlots]PokemonState
	Reserve       [MaxReserve]PokemonState
	ReserveN      uint8
	Tailwind      uint8 // remaining turns, 0 = inactive
	Reflect       uint8
	LightScreen   uint8
	TeraAvailable bool
}

// RemainingCount returns the number of non-fainted Pokémon on the side.
func (s *SideState) RemainingCount() int {
	n := 0
	for i := range s.Active {
		if !s.Active[i].Fainted() {
			n++
		}
	}
	for i := uint8(0); i < s.ReserveN; i++ {
		if !s.Reserve[i].Fainted() {
			n++
		}
	}
	return n
}

// BattleState is a per-turn snapshot. Apply never mutates its input; search
// operates on copies.
type BattleState struct {
	Turn         uint16
	Sides        [2]SideState
	Weather      uint8
	WeatherTurns uint8
	TrickRoom    uint8 // remaining turns, 0 = inactive
}

// FNV-64a constants for state signatures.
const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

// Signature hashes the battle-relevant state for transposition keys: HP,
// items, status, boosts, locks and field conditions. States differing in any
// of those hash differently; static data (stats, movesets) is excluded.
func (b *BattleState) Signature() uint64 {
	h := fnvOffset64
	mix := func(v uint64) {
		for i := 0; i < 8; i++ {
			h ^= v & 0xff
			h *= fnvPrime64
			v >>= 8
		}
	}
	bit := func(v bool) uint64 {
		if v {
			return 1
		}
		return 0
	}
	mix(uint64(b.Turn) | uint64(b.Weather)<<16 | uint64(b.WeatherTurns)<<24 | uint64(b.TrickRoom)<<32)
	for s := range b.Sides {
		side := &b.Sides[s]
		mix(uint64(side.Tailwind) | uint64(side.Reflect)<<8 | uint64(side.LightScreen)<<16 |
			uint64(side.ReserveN)<<24 | bit(side.TeraAvailable)<<32)
		hashMon := func(p *PokemonState) {
			mix(uint64(p.Species) | uint64(p.Item)<<8 | uint64(p.Status)<<16 | uint64(p.TeraType)<<24 |
				uint64(uint16(p.CurHP))<<32 | bit(p.Terastallized)<<48 | uint64(p.ProtectStreak)<<56)
			var packed uint64
			for i, v := range p.Boosts {
				packed |= uint64(uint8(v)) << (8 * i)
			}
			mix(packed | uint64(p.ChoiceLock)<<48 | uint64(p.TurnsOut)<<56)
		}
		for i := range side.Active {
			hashMon(&side.Active[i])
		}
		for i := range side.Reserve {
			hashMon(&side.Reserve[i])
		}
	}
	return h
}

// Weather states.
const (
	WeatherNone uint8 = iota
	WeatherSun
	WeatherRain
	WeatherSand
	WeatherSnow
)

// Clone returns a deep copy. BattleState contains no pointers or slices, so
// a value copy is a deep copy.
func (b *BattleState) Clone() BattleState { return *b }

// IsTerminal reports whether either side has no Pokémon remaining.
func (b *BattleState) IsTerminal() bool {
	return b.Sides[SideSelf].RemainingCount() == 0 || b.Sides[SideOpp].RemainingCount() == 0
}

// Winner returns the winning side and true, or (0, false) for non-terminal
// states and double knockouts.
func (b *BattleState) Winner() (uint8, bool) {
	selfLeft := b.Sides[SideSelf].RemainingCount()
	oppLeft := b.Sides[SideOpp].RemainingCount()
	switch {
	case selfLeft == 0 && oppLeft == 0:
		return 0, false
	case oppLeft == 0:
		return SideSelf, true
	case selfLeft == 0:
		return SideOpp, true
	}
	return 0, false
}

// Action is a packed uint16 describing one slot's choice.
//
// Layout:
//
//	bits 0-1   kind (move / switch / pass)
//	bits 2-3   move slot or reserve index
//	bits 4-6   target
//	bit  7     terastallize before moving
type Action uint16

// Action kinds — bits 0-1.
const (
	KindMove     uint16 = 0
	KindSwitch   uint16 = 1
	KindPass     uint16 = 2
	KindStruggle uint16 = 3
)

// Target constants — bits 4-6 of a move action.
const (
	TargetOppSlot0 uint8 = 0
	TargetOppSlot1 uint8 = 1
	TargetAlly     uint8 = 2
	TargetSelf     uint8 = 3
	TargetSpread   uint8 = 4 // both opposing slots
	TargetField    uint8 = 5 // whole-field or side effects
)

// PassAction is the forced no-op emitted when a slot has no legal action.
const PassAction Action = Action(KindPass)

// EncodeMove packs a move action.
func EncodeMove(moveSlot, target uint8, tera bool) Action {
	a := KindMove | uint16(moveSlot&0x3)<<2 | uint16(target&0x7)<<4
	if tera {
		a |= 1 << 7
	}
	return Action(a)
}

// EncodeSwitch packs a switch to the given reserve index.
func EncodeSwitch(reserveIdx uint8) Action {
	return Action(KindSwitch | uint16(reserveIdx&0x3)<<2)
}

// EncodeStruggle packs the forced attack used when no move has PP left.
func EncodeStruggle(target uint8) Action {
	return Action(KindStruggle | uint16(target&0x7)<<4)
}

// ActionIsMove reports whether a is a move action.
func ActionIsMove(a Action) bool { return uint16(a)&0x3 == KindMove }

// ActionIsSwitch reports whether a is a switch action.
func ActionIsSwitch(a Action) bool { return uint16(a)&0x3 == KindSwitch }

// ActionIsPass reports whether a is the forced pass.
func ActionIsPass(a Action) bool { return uint16(a)&0x3 == KindPass }

// ActionIsStruggle reports whether a is the forced no-PP attack.
func ActionIsStruggle(a Action) bool { return uint16(a)&0x3 == KindStruggle }

// ActionMoveSlot returns the move slot of a move action.
func ActionMoveSlot(a Action) uint8 { return uint8(a>>2) & 0x3 }

// ActionSwitchIndex returns the reserve index of a switch action.
func ActionSwitchIndex(a Action) uint8 { return uint8(a>>2) & 0x3 }

// ActionTarget returns the target field of a move action.
func ActionTarget(a Action) uint8 { return uint8(a>>4) & 0x7 }

// ActionTera reports whether the move action terastallizes first.
func ActionTera(a Action) bool { return uint16(a)&(1<<7) != 0 }

// JointAction pairs one action per active slot for one side.
type JointAction [ActiveSlots]Action

// Signature packs a JointAction into a uint32 for transposition keys.
func (j JointAction) Signature() uint32 {
	return uint32(j[0]) | uint32(j[1])<<16
}
