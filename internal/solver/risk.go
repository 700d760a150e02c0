package solver

import "math"

// Posture is the risk stance derived each turn from the aggregate win
// probability. Not persisted; recomputed every turn.
type Posture uint8

const (
	PostureNeutral Posture = iota
	PostureSecure
	PostureGamble
)

// String implements fmt.Stringer for logging and traces.
func (p Posture) String() string {
	switch p {
	case PostureSecure:
		return "secure"
	case PostureGamble:
		return "gamble"
	}
	return "neutral"
}

// RiskConfig holds the posture thresholds and variance weights.
type RiskConfig struct {
	SecureThreshold float64 // win prob at or above: play safe
	GambleThreshold float64 // win prob at or below: seek variance
	LambdaSecure    float64 // downside-variance penalty under secure
	KappaGamble     float64 // upside-variance bonus under gamble

	// ReadAnalyzer gates: a hard read is rejected when it is risky, pays
	// little and the opponent is unlikely to cooperate.
	ReadRiskMax       float64
	ReadRewardMin     float64
	ReadLikelihoodMin float64
}

// DefaultRiskConfig returns the tuned thresholds.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		SecureThreshold:   0.55,
		GambleThreshold:   0.45,
		LambdaSecure:      0.5,
		KappaGamble:       0.3,
		ReadRiskMax:       0.7,
		ReadRewardMin:     0.3,
		ReadLikelihoodMin: 0.3,
	}
}

// RiskAwareSolver post-processes action-value estimates with a posture
// chosen from the current win probability.
type RiskAwareSolver struct {
	cfg RiskConfig
}

// NewRiskAwareSolver returns a solver with the given thresholds.
func NewRiskAwareSolver(cfg RiskConfig) *RiskAwareSolver {
	return &RiskAwareSolver{cfg: cfg}
}

// DecidePosture maps a win probability to a posture.
func (r *RiskAwareSolver) DecidePosture(winProb float64) Posture {
	switch {
	case winProb >= r.cfg.SecureThreshold:
		return PostureSecure
	case winProb <= r.cfg.GambleThreshold:
		return PostureGamble
	}
	return PostureNeutral
}

// AdjustedScore applies the posture's selection criterion to one action:
// secure subtracts a downside-variance penalty, gamble adds an
// upside-variance bonus, neutral is plain expected value.
func (r *RiskAwareSolver) AdjustedScore(av ActionValue, posture Posture) float64 {
	switch posture {
	case PostureSecure:
		return av.EV - r.cfg.LambdaSecure*av.Downside
	case PostureGamble:
		return av.EV + r.cfg.KappaGamble*av.Upside
	}
	return av.EV
}

// SelectBest picks the action maximizing the posture-adjusted criterion.
// Guaranteed-win lines are never outranked: an EV at the terminal bound
// dominates any variance adjustment.
func (r *RiskAwareSolver) SelectBest(values []ActionValue, posture Posture) (ActionValue, bool) {
	if len(values) == 0 {
		return ActionValue{}, false
	}
	best := values[0]
	bestScore := r.scoreWithTerminalDominance(best, posture)
	for _, av := range values[1:] {
		score := r.scoreWithTerminalDominance(av, posture)
		if score > bestScore {
			best = av
			bestScore = score
		}
	}
	return best, true
}

// terminalEVBound marks an EV that can only come from a guaranteed win.
const terminalEVBound = 0.999

func (r *RiskAwareSolver) scoreWithTerminalDominance(av ActionValue, posture Posture) float64 {
	if av.EV >= terminalEVBound {
		// Outrank every adjusted score, preserving order among wins.
		return 1e6 + av.EV
	}
	return r.AdjustedScore(av, posture)
}

// ReadAnalyzer evaluates hard reads: lines whose value depends on the
// opponent choosing one specific action.
type ReadAnalyzer struct {
	cfg RiskConfig
}

// NewReadAnalyzer returns an analyzer with the given gate thresholds.
func NewReadAnalyzer(cfg RiskConfig) *ReadAnalyzer {
	return &ReadAnalyzer{cfg: cfg}
}

// ReadDecision is the analyzer's verdict on one candidate read.
type ReadDecision struct {
	ShouldRead bool
	Risk       float64
	Reward     float64
	Likelihood float64
	ReadEV     float64
}

// Analyze gates a read on three criteria, any one of which rejects it:
// the downside of missing exceeds the risk ceiling, the payoff of hitting
// falls short of the reward floor, or the opponent is unlikely to play into
// it. A read passing all three is taken only when its expected value beats
// the standard line.
func (ra *ReadAnalyzer) Analyze(standardValue, valueIfHit, valueIfMiss, oppActionProb float64) ReadDecision {
	d := ReadDecision{
		Risk:       math.Max(0, standardValue-valueIfMiss),
		Reward:     math.Max(0, valueIfHit-standardValue),
		Likelihood: oppActionProb,
	}
	d.ReadEV = d.Likelihood*valueIfHit + (1-d.Likelihood)*valueIfMiss
	if d.Risk > ra.cfg.ReadRiskMax {
		return d
	}
	if d.Reward < ra.cfg.ReadRewardMin {
		return d
	}
	if d.Likelihood < ra.cfg.ReadLikelihoodMin {
		return d
	}
	d.ShouldRead = d.ReadEV > standardValue
	return d
}
