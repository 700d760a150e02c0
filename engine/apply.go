package engine

import "math/rand"

// pendingMove is one slot's queued move during turn resolution.
type pendingMove struct {
	side, slot uint8
	action     Action
	priority   int8
	speed      float64
	cancelled  bool
	done       bool
}

// Apply resolves one full turn: both sides' joint actions plus the turn's
// random outcomes (rolls, crits, misses, speed ties) drawn from seed. The
// input state is never mutated; the resolved successor is returned along
// with the terminal flag and winner.
func Apply(state *BattleState, self, opp JointAction, seed int64) (BattleState, bool, uint8) {
	b := state.Clone()
	rng := rand.New(rand.NewSource(seed))

	joint := [2]JointAction{self, opp}

	// Switch phase. Switches resolve before moves, faster first.
	type sw struct {
		side, slot uint8
		speed      float64
	}
	var switches []sw
	for side := uint8(0); side < 2; side++ {
		for slot := uint8(0); slot < ActiveSlots; slot++ {
			a := joint[side][slot]
			if ActionIsSwitch(a) {
				switches = append(switches, sw{side, slot, b.effectiveSpeed(side, slot, rng)})
			}
		}
	}
	sortBySpeedDesc(len(switches), func(i, j int) bool { return switches[i].speed > switches[j].speed }, func(i, j int) {
		switches[i], switches[j] = switches[j], switches[i]
	})
	for _, s := range switches {
		b.performSwitch(s.side, s.slot, ActionSwitchIndex(joint[s.side][s.slot]))
	}

	// Protect phase. Success decays by 1/3 per consecutive use.
	var protected [2][ActiveSlots]bool
	for side := uint8(0); side < 2; side++ {
		for slot := uint8(0); slot < ActiveSlots; slot++ {
			a := joint[side][slot]
			p := &b.Sides[side].Active[slot]
			if p.Fainted() {
				continue
			}
			if ActionIsMove(a) && MoveData(p.Moves[ActionMoveSlot(a)]).Flags&FlagProtect != 0 {
				chance := 1.0
				for i := uint8(0); i < p.ProtectStreak; i++ {
					chance /= 3.0
				}
				if rng.Float64() < chance {
					protected[side][slot] = true
				}
				p.ProtectStreak++
			} else {
				p.ProtectStreak = 0
			}
		}
	}

	// Move phase. Order by priority, then effective speed; Trick Room
	// reverses speed order within a priority bracket.
	var moves []pendingMove
	for side := uint8(0); side < 2; side++ {
		for slot := uint8(0); slot < ActiveSlots; slot++ {
			a := joint[side][slot]
			if !ActionIsMove(a) && !ActionIsStruggle(a) {
				continue
			}
			p := &b.Sides[side].Active[slot]
			if p.Fainted() {
				continue
			}
			pri := int8(0)
			if ActionIsMove(a) {
				pri = MoveData(p.Moves[ActionMoveSlot(a)]).Priority
			}
			moves = append(moves, pendingMove{
				side: side, slot: slot, action: a,
				priority: pri,
				speed:    b.effectiveSpeed(side, slot, rng),
			})
		}
	}
	trickRoom := b.TrickRoom > 0
	sortBySpeedDesc(len(moves), func(i, j int) bool {
		if moves[i].priority != moves[j].priority {
			return moves[i].priority > moves[j].priority
		}
		if trickRoom {
			return moves[i].speed < moves[j].speed
		}
		return moves[i].speed > moves[j].speed
	}, func(i, j int) {
		moves[i], moves[j] = moves[j], moves[i]
	})

	for i := range moves {
		m := &moves[i]
		if m.cancelled {
			continue
		}
		user := &b.Sides[m.side].Active[m.slot]
		if user.Fainted() || user.Status == StatusSleep {
			continue
		}
		if user.Status == StatusParalysis && rng.Float64() < 0.25 {
			continue
		}
		b.executeMove(m, moves, &protected, rng)
	}

	b.endOfTurn(rng)
	b.replaceFainted()
	b.Turn++

	winner, over := b.Winner()
	return b, b.IsTerminal(), boolWinner(over, winner)
}

func boolWinner(over bool, w uint8) uint8 {
	if over {
		return w
	}
	return 0xFF
}

// WinnerNone marks a non-terminal or double-knockout Apply result.
const WinnerNone uint8 = 0xFF

// sortBySpeedDesc is a tiny insertion sort; the slices here hold at most
// four entries.
func sortBySpeedDesc(n int, less func(i, j int) bool, swap func(i, j int)) {
	for i := 1; i < n; i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			swap(j, j-1)
		}
	}
}

// effectiveSpeed returns the slot's speed after boosts, tailwind, choice
// scarf and paralysis, with a small random epsilon to break exact ties.
func (b *BattleState) effectiveSpeed(side, slot uint8, rng *rand.Rand) float64 {
	p := &b.Sides[side].Active[slot]
	spe := float64(p.Stats[StatSpe]) * BoostMultiplier(p.Boosts[StatSpe])
	if p.Item == ItemChoiceScarf {
		spe *= 1.5
	}
	if b.Sides[side].Tailwind > 0 {
		spe *= 2.0
	}
	if p.Status == StatusParalysis {
		spe *= 0.5
	}
	return spe + rng.Float64()*0.5
}

// performSwitch swaps an active slot with a reserve, clearing volatile state.
func (b *BattleState) performSwitch(side, slot, reserveIdx uint8) {
	s := &b.Sides[side]
	if reserveIdx >= s.ReserveN || s.Reserve[reserveIdx].Fainted() {
		return
	}
	out := s.Active[slot]
	out.Boosts = Boosts{}
	out.ChoiceLock = NoLock
	out.ProtectStreak = 0
	s.Active[slot] = s.Reserve[reserveIdx]
	s.Active[slot].TurnsOut = 0
	s.Reserve[reserveIdx] = out
}

// executeMove applies one queued move, including damage, side effects and
// pivoting.
func (b *BattleState) executeMove(m *pendingMove, all []pendingMove, protected *[2][ActiveSlots]bool, rng *rand.Rand) {
	user := &b.Sides[m.side].Active[m.slot]
	moveID := MoveStruggle
	if ActionIsMove(m.action) {
		slot := ActionMoveSlot(m.action)
		moveID = user.Moves[slot]
		if user.PP[slot] > 0 {
			user.PP[slot]--
		}
		if ActionTera(m.action) && b.Sides[m.side].TeraAvailable && !user.Terastallized {
			user.Terastallized = true
			b.Sides[m.side].TeraAvailable = false
		}
		if IsChoiceItem(user.Item) {
			user.ChoiceLock = slot
		}
	}
	mv := MoveData(moveID)
	m.done = true

	if mv.Accuracy > 0 && rng.Float64()*100 >= float64(mv.Accuracy) {
		return
	}

	switch {
	case mv.Flags&FlagProtect != 0:
		return // handled in the protect phase
	case mv.Flags&FlagSetup != 0:
		if moveID == MoveSwordsDance {
			raiseBoost(&user.Boosts[StatAtk], 2)
		} else {
			raiseBoost(&user.Boosts[StatSpA], 2)
		}
		return
	case mv.Flags&FlagRecovery != 0:
		user.CurHP += user.MaxHP / 2
		if user.CurHP > user.MaxHP {
			user.CurHP = user.MaxHP
		}
		return
	case moveID == MoveTailwind:
		b.Sides[m.side].Tailwind = 4
		return
	case moveID == MoveTrickRoom:
		if b.TrickRoom > 0 {
			b.TrickRoom = 0
		} else {
			b.TrickRoom = 5
		}
		return
	case moveID == MoveThunderWave:
		tgt := b.targetPokemon(m.side, ActionTarget(m.action))
		if tgt != nil && !tgt.Fainted() && tgt.Status == StatusNone {
			eff := TypeEffectiveness(TypeElectric, tgt.EffectiveTypes())
			if eff > 0 {
				tgt.Status = StatusParalysis
			}
		}
		return
	case moveID == MoveSpore:
		tgt := b.targetPokemon(m.side, ActionTarget(m.action))
		if tgt != nil && !tgt.Fainted() && tgt.Status == StatusNone {
			if TypeEffectiveness(TypeGrass, tgt.EffectiveTypes()) > 0 {
				tgt.Status = StatusSleep
			}
		}
		return
	}

	if mv.Power == 0 {
		return
	}

	targets := b.resolveTargets(m.side, m.action)
	spread := mv.Flags&FlagSpread != 0 && len(targets) > 1
	oppSide := 1 - m.side
	for _, t := range targets {
		tgt := &b.Sides[t.side].Active[t.slot]
		if tgt.Fainted() {
			continue
		}
		if t.side == oppSide && protected[t.side][t.slot] {
			continue
		}
		ctx := DamageContext{
			Weather:        b.Weather,
			Spread:         spread,
			DefReflect:     b.Sides[t.side].Reflect > 0,
			DefLightScreen: b.Sides[t.side].LightScreen > 0,
		}
		roll := 0.85 + rng.Float64()*0.15
		crit := rng.Float64() < CritChance
		dmg := Damage(user, tgt, moveID, ctx, roll, crit)
		if dmg >= tgt.CurHP && tgt.Item == ItemFocusSash && tgt.CurHP == tgt.MaxHP {
			dmg = tgt.CurHP - 1
			tgt.Item = ItemNone
		}
		tgt.CurHP -= dmg
		if dmg > 0 {
			if mv.Flags&FlagSpeedControl != 0 {
				raiseBoost(&tgt.Boosts[StatSpe], -1)
			}
			if mv.Flags&FlagPriorityKO != 0 && !tgt.Fainted() {
				cancelPending(all, t.side, t.slot)
			}
		}
	}

	if user.Item == ItemLifeOrb {
		user.CurHP -= user.MaxHP / 10
	}
	if moveID == MoveStruggle {
		user.CurHP -= user.MaxHP / 4
	}
	if mv.Flags&FlagPivot != 0 && !user.Fainted() {
		s := &b.Sides[m.side]
		for r := uint8(0); r < s.ReserveN; r++ {
			if !s.Reserve[r].Fainted() {
				b.performSwitch(m.side, m.slot, r)
				break
			}
		}
	}
}

type targetRef struct{ side, slot uint8 }

// resolveTargets maps an action's target encoding to concrete slots,
// redirecting single-target attacks off fainted slots.
func (b *BattleState) resolveTargets(side uint8, a Action) []targetRef {
	opp := 1 - side
	tgt := ActionTarget(a)
	switch tgt {
	case TargetSpread:
		return []targetRef{{opp, 0}, {opp, 1}}
	case TargetAlly:
		return []targetRef{{side, 1 - actionSlotGuess(a)}}
	case TargetSelf, TargetField:
		return nil
	}
	slot := tgt // TargetOppSlot0 / TargetOppSlot1
	if b.Sides[opp].Active[slot].Fainted() && !b.Sides[opp].Active[1-slot].Fainted() {
		slot = 1 - slot
	}
	return []targetRef{{opp, slot}}
}

// targetPokemon resolves a status move's target encoding to a single
// Pokémon, redirecting off a fainted slot like resolveTargets. Self, ally,
// field and fully-fainted targets return nil.
func (b *BattleState) targetPokemon(side uint8, tgt uint8) *PokemonState {
	opp := 1 - side
	switch tgt {
	case TargetOppSlot0, TargetOppSlot1:
		slot := tgt
		if b.Sides[opp].Active[slot].Fainted() && !b.Sides[opp].Active[1-slot].Fainted() {
			slot = 1 - slot
		}
		return &b.Sides[opp].Active[slot]
	case TargetSpread:
		for slot := uint8(0); slot < ActiveSlots; slot++ {
			if !b.Sides[opp].Active[slot].Fainted() {
				return &b.Sides[opp].Active[slot]
			}
		}
	}
	return nil
}

// actionSlotGuess is a placeholder for ally targeting, which the move table
// does not currently use.
func actionSlotGuess(Action) uint8 { return 0 }

// cancelPending flinches a slot's queued move if it has not acted yet.
func cancelPending(all []pendingMove, side, slot uint8) {
	for i := range all {
		if all[i].side == side && all[i].slot == slot && !all[i].done {
			all[i].cancelled = true
		}
	}
}

func raiseBoost(b *int8, delta int8) {
	v := *b + delta
	if v > 6 {
		v = 6
	}
	if v < -6 {
		v = -6
	}
	*b = v
}

// endOfTurn applies residual damage, item healing, sleep wake rolls and
// condition countdowns.
func (b *BattleState) endOfTurn(rng *rand.Rand) {
	for side := uint8(0); side < 2; side++ {
		s := &b.Sides[side]
		for i := range s.Active {
			p := &s.Active[i]
			if p.Fainted() {
				continue
			}
			switch p.Status {
			case StatusBurn:
				p.CurHP -= p.MaxHP / 16
			case StatusPoison:
				p.CurHP -= p.MaxHP / 8
			case StatusSleep:
				if rng.Float64() < 1.0/3.0 {
					p.Status = StatusNone
				}
			}
			if p.Fainted() {
				continue
			}
			switch p.Item {
			case ItemLeftovers:
				p.CurHP += p.MaxHP / 16
			case ItemSitrusBerry:
				if p.CurHP*2 < p.MaxHP {
					p.CurHP += p.MaxHP / 4
					p.Item = ItemNone
				}
			}
			if p.CurHP > p.MaxHP {
				p.CurHP = p.MaxHP
			}
			p.TurnsOut++
		}
		if s.Tailwind > 0 {
			s.Tailwind--
		}
		if s.Reflect > 0 {
			s.Reflect--
		}
		if s.LightScreen > 0 {
			s.LightScreen--
		}
	}
	if b.TrickRoom > 0 {
		b.TrickRoom--
	}
	if b.Weather != WeatherNone {
		if b.WeatherTurns > 0 {
			b.WeatherTurns--
		}
		if b.WeatherTurns == 0 {
			b.Weather = WeatherNone
		}
	}
}

// replaceFainted auto-sends the next living reserve into any fainted active
// slot, modelling the forced replacement between turns.
func (b *BattleState) replaceFainted() {
	for side := uint8(0); side < 2; side++ {
		s := &b.Sides[side]
		for slot := range s.Active {
			if !s.Active[slot].Fainted() || s.Active[slot].Species == 0 {
				continue
			}
			for r := uint8(0); r < s.ReserveN; r++ {
				if !s.Reserve[r].Fainted() {
					b.performSwitch(side, uint8(slot), r)
					break
				}
			}
		}
	}
}
