package engine

// Evaluation weights for the static heuristic.
type EvalWeights struct {
	HP        float64
	Remaining float64
	Speed     float64
	Tera      float64
	Momentum  float64
	Status    float64
}

// DefaultEvalWeights returns the tuned heuristic weights.
func DefaultEvalWeights() EvalWeights {
	return EvalWeights{
		HP:        0.30,
		Remaining: 0.20,
		Speed:     0.20,
		Tera:      0.10,
		Momentum:  0.15,
		Status:    0.05,
	}
}

// Terminal utilities dominate every heuristic value: heuristics are clipped
// to ±heuristicCap so a guaranteed win or loss always outranks them.
const (
	WinUtility   = 1.0
	LossUtility  = -1.0
	heuristicCap = 0.95
)

// Evaluate scores the state from SideSelf's perspective in [-1, +1].
// True terminals return ±WinUtility (0 for a double knockout); everything
// else is the weighted heuristic clipped strictly inside the terminal range.
func Evaluate(b *BattleState, w EvalWeights) float64 {
	if b.IsTerminal() {
		winner, ok := b.Winner()
		if !ok {
			return 0
		}
		if winner == SideSelf {
			return WinUtility
		}
		return LossUtility
	}

	v := w.HP*hpAdvantage(b) +
		w.Remaining*remainingAdvantage(b) +
		w.Speed*speedAdvantage(b) +
		w.Tera*teraAdvantage(b) +
		w.Momentum*momentum(b) +
		w.Status*statusAdvantage(b)

	if v > heuristicCap {
		v = heuristicCap
	}
	if v < -heuristicCap {
		v = -heuristicCap
	}
	return v
}

// hpAdvantage compares mean HP fractions across each side's living team.
func hpAdvantage(b *BattleState) float64 {
	return sideMeanHP(&b.Sides[SideSelf]) - sideMeanHP(&b.Sides[SideOpp])
}

func sideMeanHP(s *SideState) float64 {
	total, n := 0.0, 0
	for i := range s.Active {
		if !s.Active[i].Fainted() {
			total += s.Active[i].HPFraction()
			n++
		}
	}
	for i := uint8(0); i < s.ReserveN; i++ {
		if !s.Reserve[i].Fainted() {
			total += s.Reserve[i].HPFraction()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// remainingAdvantage scales the body-count difference.
func remainingAdvantage(b *BattleState) float64 {
	diff := float64(b.Sides[SideSelf].RemainingCount()-b.Sides[SideOpp].RemainingCount()) / 6.0
	return diff * 2
}

// speedAdvantage rewards tailwind and Trick Room alignment.
func speedAdvantage(b *BattleState) float64 {
	score := 0.0
	if b.Sides[SideSelf].Tailwind > 0 {
		score += 0.5
	}
	if b.Sides[SideOpp].Tailwind > 0 {
		score -= 0.5
	}
	if b.TrickRoom > 0 {
		// Trick Room favors whichever side is slower on average.
		if sideMeanSpeed(&b.Sides[SideSelf]) < sideMeanSpeed(&b.Sides[SideOpp]) {
			score += 0.4
		} else {
			score -= 0.4
		}
	}
	return score
}

func sideMeanSpeed(s *SideState) float64 {
	total, n := 0.0, 0
	for i := range s.Active {
		if !s.Active[i].Fainted() {
			total += float64(s.Active[i].Stats[StatSpe])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// teraAdvantage rewards holding terastallization in reserve.
func teraAdvantage(b *BattleState) float64 {
	score := 0.0
	if b.Sides[SideSelf].TeraAvailable {
		score += 0.3
	}
	if !b.Sides[SideOpp].TeraAvailable {
		score += 0.2
	}
	return score
}

// momentum scores screens on each side.
func momentum(b *BattleState) float64 {
	score := 0.0
	if b.Sides[SideSelf].Reflect > 0 {
		score += 0.2
	}
	if b.Sides[SideSelf].LightScreen > 0 {
		score += 0.2
	}
	if b.Sides[SideOpp].Reflect > 0 {
		score -= 0.2
	}
	if b.Sides[SideOpp].LightScreen > 0 {
		score -= 0.2
	}
	return score
}

// statusAdvantage counts afflicted active Pokémon on each side.
func statusAdvantage(b *BattleState) float64 {
	selfBad, oppBad := 0, 0
	for i := range b.Sides[SideSelf].Active {
		p := &b.Sides[SideSelf].Active[i]
		if !p.Fainted() && p.Status != StatusNone {
			selfBad++
		}
	}
	for i := range b.Sides[SideOpp].Active {
		p := &b.Sides[SideOpp].Active[i]
		if !p.Fainted() && p.Status != StatusNone {
			oppBad++
		}
	}
	return float64(oppBad-selfBad) * 0.3
}
