package engine

// LegalSlotActions enumerates the legal actions for one active slot.
// Guaranteed non-empty: a slot with nothing else available gets Struggle
// (alive, no usable move) or the forced pass (fainted, empty bench).
func (b *BattleState) LegalSlotActions(side, slot uint8) []Action {
	s := &b.Sides[side]
	p := &s.Active[slot]
	actions := make([]Action, 0, 16)

	if p.Fainted() {
		for r := uint8(0); r < s.ReserveN; r++ {
			if !s.Reserve[r].Fainted() {
				actions = append(actions, EncodeSwitch(r))
			}
		}
		if len(actions) == 0 {
			actions = append(actions, PassAction)
		}
		return actions
	}

	oppAlive := b.livingOpponents(side)
	canTera := s.TeraAvailable && !p.Terastallized && p.TeraType != TypeNone

	for m := uint8(0); m < MaxMoves; m++ {
		id := p.Moves[m]
		if id == MoveNone || p.PP[m] == 0 {
			continue
		}
		if p.ChoiceLock != NoLock && p.ChoiceLock != m {
			continue
		}
		mv := MoveData(id)
		if p.Item == ItemAssaultVest && mv.Category == CategoryStatus {
			continue
		}
		if mv.Flags&FlagPriorityKO != 0 && p.TurnsOut > 0 {
			continue
		}
		for _, tgt := range moveTargets(mv, slot, oppAlive) {
			actions = append(actions, EncodeMove(m, tgt, false))
			if canTera && mv.Power > 0 {
				actions = append(actions, EncodeMove(m, tgt, true))
			}
		}
	}

	for r := uint8(0); r < s.ReserveN; r++ {
		if !s.Reserve[r].Fainted() {
			actions = append(actions, EncodeSwitch(r))
		}
	}

	if len(actions) == 0 {
		tgt := TargetOppSlot0
		if !oppAlive[0] && oppAlive[1] {
			tgt = TargetOppSlot1
		}
		actions = append(actions, EncodeStruggle(tgt))
	}
	return actions
}

// moveTargets returns the legal target encodings for a move.
func moveTargets(mv Move, slot uint8, oppAlive [ActiveSlots]bool) []uint8 {
	switch {
	case mv.Flags&FlagProtect != 0 || mv.Flags&FlagSetup != 0 || mv.Flags&FlagRecovery != 0:
		return []uint8{TargetSelf}
	case mv.Flags&FlagField != 0:
		return []uint8{TargetField}
	case mv.Flags&FlagSpread != 0:
		return []uint8{TargetSpread}
	}
	var targets []uint8
	if oppAlive[0] {
		targets = append(targets, TargetOppSlot0)
	}
	if oppAlive[1] {
		targets = append(targets, TargetOppSlot1)
	}
	if len(targets) == 0 {
		// Both opposing slots are empty mid-replacement; aim at slot 0.
		targets = []uint8{TargetOppSlot0}
	}
	return targets
}

// livingOpponents reports which opposing active slots hold a live Pokémon.
func (b *BattleState) livingOpponents(side uint8) [ActiveSlots]bool {
	opp := &b.Sides[1-side]
	var alive [ActiveSlots]bool
	for i := range opp.Active {
		alive[i] = !opp.Active[i].Fainted()
	}
	return alive
}

// LegalJointActions forms the cross-product of both slots' legal actions,
// excluding pairs that switch into the same reserve. Never empty.
func (b *BattleState) LegalJointActions(side uint8) []JointAction {
	a0 := b.LegalSlotActions(side, 0)
	a1 := b.LegalSlotActions(side, 1)
	joint := make([]JointAction, 0, len(a0)*len(a1))
	for _, x := range a0 {
		for _, y := range a1 {
			if ActionIsSwitch(x) && ActionIsSwitch(y) && ActionSwitchIndex(x) == ActionSwitchIndex(y) {
				continue
			}
			joint = append(joint, JointAction{x, y})
		}
	}
	if len(joint) == 0 {
		joint = append(joint, JointAction{PassAction, PassAction})
	}
	return joint
}
