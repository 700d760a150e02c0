package solver

import (
	"sort"
	"sync/atomic"

	"github.com/kaname-hf/vgcsolver/engine"
	"github.com/kaname-hf/vgcsolver/engine/belief"
)

// WideningConfig controls progressive widening of the candidate cap.
type WideningConfig struct {
	BaseK    int
	Step     int
	Interval int
	MaxK     int
}

// DefaultWidening returns the tuned widening schedule: start at 15, grow by
// 5 every 5 calls, cap at 100.
func DefaultWidening() WideningConfig {
	return WideningConfig{BaseK: 15, Step: 5, Interval: 5, MaxK: 100}
}

// Advisory is a ranked shortlist from the optional advisory collaborator,
// consumed as plain data: a set of recommended move IDs per slot and an
// alignment score. Candidate scoring adds a bonus for matching it.
type Advisory struct {
	Moves     [engine.ActiveSlots]map[uint8]bool
	Alignment float64
}

// advisory match bonuses: both slots matching, one slot matching.
const (
	advisoryFullBonus = 2.0
	advisoryHalfBonus = 1.0
)

// Generator enumerates and ranks joint actions for one side. The cap grows
// with call count (progressive widening); an optional style model biases
// opponent-side scoring. One generator persists for a whole session so the
// cap keeps widening across turns; the call counter is atomic because the
// per-turn hypotheses solve in parallel.
type Generator struct {
	cfg   WideningConfig
	calls atomic.Int64
	Style *belief.StyleModel
}

// NewGenerator returns a Generator with the given widening schedule.
func NewGenerator(cfg WideningConfig) *Generator {
	return &Generator{cfg: cfg}
}

// TopK returns the current candidate cap. Non-decreasing in the call count
// and bounded by MaxK.
func (g *Generator) TopK() int {
	k := g.cfg.BaseK + int(g.calls.Load())/g.cfg.Interval*g.cfg.Step
	if k > g.cfg.MaxK {
		k = g.cfg.MaxK
	}
	return k
}

// scored pairs a joint action with its heuristic score.
type scored struct {
	joint engine.JointAction
	score float64
}

// Generate returns the side's top joint actions by heuristic score, capped
// by the widening schedule. Never returns an empty slice: a side with no
// legal actions gets the forced pass pair from the engine. The advisory
// bonus is part of the base score, so advisory-favored lines compete before
// any truncation and can surface from anywhere in the ranking.
func (g *Generator) Generate(b *engine.BattleState, side uint8, adv *Advisory) []engine.JointAction {
	g.calls.Add(1)
	topK := g.TopK()

	joints := b.LegalJointActions(side)
	ranked := make([]scored, 0, len(joints))
	for _, j := range joints {
		score := g.scoreJoint(b, side, j)
		if adv != nil {
			score += advisoryBonus(b, side, j, adv)
		}
		ranked = append(ranked, scored{joint: j, score: score})
	}
	sort.SliceStable(ranked, func(i, k int) bool { return ranked[i].score > ranked[k].score })
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	out := make([]engine.JointAction, len(ranked))
	for i := range ranked {
		out[i] = ranked[i].joint
	}
	return out
}

// advisoryBonus scores how well a joint action matches the advisory
// shortlist: both slots matching earns the full bonus, one slot half.
func advisoryBonus(b *engine.BattleState, side uint8, j engine.JointAction, adv *Advisory) float64 {
	matches := 0
	for slot := uint8(0); slot < engine.ActiveSlots; slot++ {
		if !engine.ActionIsMove(j[slot]) {
			continue
		}
		id := b.Sides[side].Active[slot].Moves[engine.ActionMoveSlot(j[slot])]
		if adv.Moves[slot] != nil && adv.Moves[slot][id] {
			matches++
		}
	}
	switch matches {
	case 2:
		return advisoryFullBonus * adv.Alignment
	case 1:
		return advisoryHalfBonus * adv.Alignment
	}
	return 0
}

// slotRule is one declarative scoring rule applied to a single slot action.
// Rules are data: adding a heuristic means adding a table entry, not a
// branch in control flow.
type slotRule struct {
	name  string
	score func(rc *ruleContext) float64
}

// ruleContext carries everything a rule can inspect for one slot action.
type ruleContext struct {
	b      *engine.BattleState
	side   uint8
	slot   uint8
	action engine.Action
	user   *engine.PokemonState
	style  *belief.StyleModel
}

// slotRules is the scoring-rule table shared by both sides.
var slotRules = []slotRule{
	{name: "damage", score: ruleDamage},
	{name: "priority", score: rulePriority},
	{name: "protect", score: ruleProtect},
	{name: "speed-control", score: ruleSpeedControl},
	{name: "setup", score: ruleSetup},
	{name: "pivot", score: rulePivot},
	{name: "recovery", score: ruleRecovery},
	{name: "switch", score: ruleSwitch},
	{name: "struggle", score: ruleStruggle},
}

// scoreJoint scores a joint action: per-slot rule scores plus joint-level
// synergy adjustments.
func (g *Generator) scoreJoint(b *engine.BattleState, side uint8, j engine.JointAction) float64 {
	total := 0.0
	for slot := uint8(0); slot < engine.ActiveSlots; slot++ {
		rc := &ruleContext{
			b: b, side: side, slot: slot, action: j[slot],
			user:  &b.Sides[side].Active[slot],
			style: g.Style,
		}
		for _, r := range slotRules {
			total += r.score(rc)
		}
	}
	total += jointSynergy(b, side, j, g.Style)
	return total
}

// KO-tier bonuses by knockout probability.
func koBonus(ko float64) float64 {
	switch {
	case ko >= 0.95:
		return 3.0
	case ko >= 0.5:
		return 1.5
	case ko >= 0.25:
		return 0.6
	}
	return 0
}

func moveOf(rc *ruleContext) (engine.Move, uint8, bool) {
	if !engine.ActionIsMove(rc.action) {
		return engine.Move{}, 0, false
	}
	id := rc.user.Moves[engine.ActionMoveSlot(rc.action)]
	return engine.MoveData(id), id, true
}

// ruleDamage scores expected damage fraction plus KO-tier bonuses against
// the action's targets, using the damage oracle directly.
func ruleDamage(rc *ruleContext) float64 {
	mv, id, ok := moveOf(rc)
	if !ok || mv.Power == 0 {
		if engine.ActionIsStruggle(rc.action) {
			id = engine.MoveStruggle
			mv = engine.MoveData(id)
		} else {
			return 0
		}
	}
	attacker := *rc.user
	if engine.ActionTera(rc.action) {
		attacker.Terastallized = true
	}
	opp := &rc.b.Sides[1-rc.side]
	spread := mv.Flags&engine.FlagSpread != 0

	score := 0.0
	eval := func(defIdx int) {
		def := &opp.Active[defIdx]
		if def.Fainted() {
			return
		}
		dr := engine.DamageDistribution(&attacker, def, id, engine.DamageContext{
			Weather:        rc.b.Weather,
			Spread:         spread,
			DefReflect:     rc.b.Sides[1-rc.side].Reflect > 0,
			DefLightScreen: rc.b.Sides[1-rc.side].LightScreen > 0,
		})
		if def.MaxHP > 0 {
			expFrac := float64(dr.Min+dr.Max) / 2.0 / float64(def.MaxHP)
			if expFrac > 1 {
				expFrac = 1
			}
			score += expFrac
		}
		score += koBonus(dr.KOChance)
	}

	switch engine.ActionTarget(rc.action) {
	case engine.TargetSpread:
		eval(0)
		eval(1)
	case engine.TargetOppSlot0:
		eval(0)
	case engine.TargetOppSlot1:
		eval(1)
	}
	return score
}

// rulePriority gives a small edge to priority attacks, scaled up when the
// user is at low HP and may not survive to move normally.
func rulePriority(rc *ruleContext) float64 {
	mv, _, ok := moveOf(rc)
	if !ok || mv.Power == 0 || mv.Priority <= 0 {
		return 0
	}
	bonus := 0.3
	if rc.user.HPFraction() < 0.35 {
		bonus += 0.4
	}
	return bonus
}

// ruleProtect values Protect highest when the user is threatened, decaying
// by the consecutive-use failure odds. When a style model is attached (the
// opponent-side generator), the observed protect tendency rescales the base
// value so protect-happy opponents see protect lines ranked higher.
func ruleProtect(rc *ruleContext) float64 {
	mv, _, ok := moveOf(rc)
	if !ok || mv.Flags&engine.FlagProtect == 0 {
		return 0
	}
	base := 0.8
	if rc.style != nil {
		base *= rc.style.ProtectProb() / 0.15
	}
	if rc.user.HPFraction() < 0.4 {
		base += 0.5
	}
	for i := uint8(0); i < rc.user.ProtectStreak; i++ {
		base /= 3.0
	}
	return base
}

// ruleSpeedControl favors tailwind/Trick Room/speed drops while the side is
// slower than the opposition.
func ruleSpeedControl(rc *ruleContext) float64 {
	mv, id, ok := moveOf(rc)
	if !ok || mv.Flags&engine.FlagSpeedControl == 0 {
		return 0
	}
	if id == engine.MoveTailwind && rc.b.Sides[rc.side].Tailwind > 0 {
		return -0.5 // refreshing an active tailwind wastes the turn
	}
	bonus := 0.6
	if id == engine.MoveTrickRoom && rc.b.TrickRoom > 0 {
		return -0.8
	}
	return bonus
}

// ruleSetup rewards setup moves while the user is healthy and unthreatened.
func ruleSetup(rc *ruleContext) float64 {
	mv, _, ok := moveOf(rc)
	if !ok || mv.Flags&engine.FlagSetup == 0 {
		return 0
	}
	if rc.user.HPFraction() > 0.7 {
		return 0.7
	}
	return 0.1
}

// rulePivot gives pivot moves a modest bonus when the bench has healthy
// options.
func rulePivot(rc *ruleContext) float64 {
	mv, _, ok := moveOf(rc)
	if !ok || mv.Flags&engine.FlagPivot == 0 {
		return 0
	}
	s := &rc.b.Sides[rc.side]
	for r := uint8(0); r < s.ReserveN; r++ {
		if !s.Reserve[r].Fainted() && s.Reserve[r].HPFraction() > 0.5 {
			return 0.3
		}
	}
	return 0
}

// ruleRecovery values healing in proportion to missing HP.
func ruleRecovery(rc *ruleContext) float64 {
	mv, _, ok := moveOf(rc)
	if !ok || mv.Flags&engine.FlagRecovery == 0 {
		return 0
	}
	return (1.0 - rc.user.HPFraction()) * 1.2
}

// ruleSwitch scores switching by the incoming Pokémon's matchup and
// penalizes switching a healthy, well-positioned attacker.
func ruleSwitch(rc *ruleContext) float64 {
	if !engine.ActionIsSwitch(rc.action) {
		return 0
	}
	s := &rc.b.Sides[rc.side]
	in := &s.Reserve[engine.ActionSwitchIndex(rc.action)]
	if in.Fainted() {
		return -5.0
	}
	score := 0.0
	// Danger relief: switching out a Pokémon in immediate KO range.
	if rc.user.HPFraction() < 0.25 && !rc.user.Fainted() {
		score += 0.8
	}
	// Incoming matchup: resistance to the opposing actives' attacking types.
	opp := &rc.b.Sides[1-rc.side]
	for i := range opp.Active {
		if opp.Active[i].Fainted() {
			continue
		}
		oppTypes := opp.Active[i].EffectiveTypes()
		for _, t := range oppTypes {
			if t == engine.TypeNone {
				continue
			}
			eff := engine.TypeEffectiveness(t, in.EffectiveTypes())
			if eff < 1.0 {
				score += 0.25
			} else if eff > 1.0 {
				score -= 0.25
			}
		}
	}
	// Redundant switch: healthy user with no pressing threat.
	if rc.user.HPFraction() > 0.7 {
		score -= 0.6
	}
	if rc.style != nil && score > 0 {
		score *= rc.style.SwitchProb() / 0.10
	}
	return score
}

// ruleStruggle keeps the forced attack barely above doing nothing.
func ruleStruggle(rc *ruleContext) float64 {
	if engine.ActionIsStruggle(rc.action) {
		return 0.05
	}
	if engine.ActionIsPass(rc.action) {
		return 0
	}
	return 0
}

// jointSynergy applies joint-level adjustments: double-protect turns are
// wasted, focus fire past a guaranteed KO is overkill, and double switches
// concede tempo. The style model's focus tendency softens the overkill
// penalty for sides known to double up.
func jointSynergy(b *engine.BattleState, side uint8, j engine.JointAction, style *belief.StyleModel) float64 {
	adj := 0.0
	protects := 0
	switches := 0
	var targets [engine.ActiveSlots]int8
	for slot := uint8(0); slot < engine.ActiveSlots; slot++ {
		targets[slot] = -1
		a := j[slot]
		switch {
		case engine.ActionIsSwitch(a):
			switches++
		case engine.ActionIsMove(a):
			user := &b.Sides[side].Active[slot]
			mv := engine.MoveData(user.Moves[engine.ActionMoveSlot(a)])
			if mv.Flags&engine.FlagProtect != 0 {
				protects++
			}
			switch engine.ActionTarget(a) {
			case engine.TargetOppSlot0:
				targets[slot] = 0
			case engine.TargetOppSlot1:
				targets[slot] = 1
			}
		}
	}
	if protects == 2 {
		adj -= 1.5
	}
	if switches == 2 {
		adj -= 1.0
	}
	if targets[0] >= 0 && targets[0] == targets[1] {
		// Focus fire: penalize overkill when the first hit already KOs.
		def := &b.Sides[1-side].Active[targets[0]]
		u0 := &b.Sides[side].Active[0]
		id0 := u0.Moves[engine.ActionMoveSlot(j[0])]
		dr := engine.DamageDistribution(u0, def, id0, engine.DamageContext{})
		penalty := 0.4 * dr.KOChance
		if style != nil {
			penalty *= 1.0 - style.FocusProb()
		}
		adj -= penalty
	}
	return adj
}
