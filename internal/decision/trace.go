package decision

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kaname-hf/vgcsolver/engine"
	"github.com/kaname-hf/vgcsolver/internal/solver"
)

// HypothesisTrace summarizes one determinization's solve.
type HypothesisTrace struct {
	Sig     uint64
	WinProb float64
	Utility float64
	Best    string
	Endgame bool
}

// Alternative is one aggregated candidate line with its selection scores.
type Alternative struct {
	Action   string
	EV       float64
	Downside float64
	Upside   float64
	Adjusted float64
	Chosen   bool
}

// SwingNote is a human-oriented swing point: an action that materially moves
// the chosen line's value.
type SwingNote struct {
	Side   string
	Action string
	Prob   float64
	Impact float64
}

// Trace is the diagnostic record attached to every decision.
type Trace struct {
	DecisionID      uuid.UUID
	Turn            uint16
	Posture         solver.Posture
	WinProb         float64
	WinProbVariance float64
	Dominant        bool
	Hypotheses      []HypothesisTrace
	Alternatives    []Alternative
	Swings          []SwingNote
	TTHits          uint64
	TTMisses        uint64
	FPConverged     bool
	NashGap         float64
	RefinedLine     string  // modal self line under the FP-blended strategy
	RefinedProb     float64 // its blended probability mass
	Triaged         bool    // endgame triage overrode the posture
	Read            bool    // ReadAnalyzer swapped in a hard read
	Elapsed         time.Duration
	Rationale       []string
}

// maxTraceAlternatives bounds the aggregated candidate list in the trace.
const maxTraceAlternatives = 3

// buildTrace assembles the diagnostic trace: per-hypothesis summaries, the
// top aggregated alternatives, swing points from the modal hypothesis, a
// fictitious-play refinement pass and the explainer rationale.
func (o *Orchestrator) buildTrace(id uuid.UUID, state *engine.BattleState, posture solver.Posture, agg aggregate, outs []hypOutcome, chosen solver.ActionValue) *Trace {
	tr := &Trace{
		DecisionID:      id,
		Turn:            state.Turn,
		Posture:         posture,
		WinProb:         agg.winProb,
		WinProbVariance: agg.variance,
		Dominant:        agg.dominant,
	}
	tr.TTHits, tr.TTMisses = o.tt.Stats()

	for _, out := range outs {
		tr.Hypotheses = append(tr.Hypotheses, HypothesisTrace{
			Sig:     out.sig,
			WinProb: out.res.WinProb,
			Utility: out.res.Utility,
			Best:    FormatJoint(state, engine.SideSelf, out.res.Best),
			Endgame: out.endgame,
		})
	}

	ranked := make([]solver.ActionValue, len(agg.values))
	copy(ranked, agg.values)
	sort.SliceStable(ranked, func(i, j int) bool {
		return o.risk.AdjustedScore(ranked[i], posture) > o.risk.AdjustedScore(ranked[j], posture)
	})
	chosenSig := chosen.Joint.Signature()
	for i, av := range ranked {
		if i >= maxTraceAlternatives && av.Joint.Signature() != chosenSig {
			continue
		}
		tr.Alternatives = append(tr.Alternatives, Alternative{
			Action:   FormatJoint(state, engine.SideSelf, av.Joint),
			EV:       av.EV,
			Downside: av.Downside,
			Upside:   av.Upside,
			Adjusted: o.risk.AdjustedScore(av, posture),
			Chosen:   av.Joint.Signature() == chosenSig,
		})
	}

	// Swing points come from the modal hypothesis: the one that voted for
	// the aggregate best line.
	for _, out := range outs {
		if out.res.Best.Signature() != agg.best.Signature() {
			continue
		}
		for _, sp := range out.res.Swings {
			side, owner := "self", engine.SideSelf
			if sp.Side == engine.SideOpp {
				side, owner = "opponent", engine.SideOpp
			}
			tr.Swings = append(tr.Swings, SwingNote{
				Side:   side,
				Action: FormatJoint(state, owner, sp.Joint),
				Prob:   sp.Prob,
				Impact: sp.Impact,
			})
		}
		break
	}

	o.refineStrategies(tr, state, outs)
	tr.Rationale = rationale(tr, chosen)
	return tr
}

// refineStrategies runs fictitious play on a representative root payoff
// matrix and blends its empirical self strategy into the quantal one,
// recording convergence, the remaining exploitability and the blended modal
// line. The refinement diagnoses the quantal strategy; selection stays
// risk-based.
func (o *Orchestrator) refineStrategies(tr *Trace, state *engine.BattleState, outs []hypOutcome) {
	for _, out := range outs {
		if out.endgame || len(out.res.Payoffs) < 2 || len(out.res.Payoffs[0]) < 2 {
			continue
		}
		fp := solver.FictitiousPlay(out.res.Payoffs, o.cfg.FPRounds)
		tr.FPConverged = fp.Converged
		tr.NashGap = fp.NashGap

		quantal := make([]float64, len(out.res.SelfDist))
		for i, ap := range out.res.SelfDist {
			quantal[i] = ap.Prob
		}
		blended := solver.Blend(quantal, fp.SelfStrategy, o.cfg.FPWeight)
		modal := 0
		for i := range blended {
			if blended[i] > blended[modal] {
				modal = i
			}
		}
		tr.RefinedLine = FormatJoint(state, engine.SideSelf, out.res.SelfDist[modal].Joint)
		tr.RefinedProb = blended[modal]
		return
	}
}

// rationale renders the explainer lines shown alongside the chosen action.
func rationale(tr *Trace, chosen solver.ActionValue) []string {
	lines := make([]string, 0, 4)

	switch tr.Posture {
	case solver.PostureSecure:
		lines = append(lines, fmt.Sprintf("secure: protecting a %.0f%% win probability, penalizing downside risk", tr.WinProb*100))
	case solver.PostureGamble:
		lines = append(lines, fmt.Sprintf("gamble: %.0f%% win probability, seeking high-variance lines", tr.WinProb*100))
	default:
		lines = append(lines, fmt.Sprintf("neutral: %.0f%% win probability, picking on expected value", tr.WinProb*100))
	}

	if tr.Dominant {
		lines = append(lines, fmt.Sprintf("all %d hypotheses agree on this line", len(tr.Hypotheses)))
	} else if len(tr.Hypotheses) > 0 {
		lines = append(lines, fmt.Sprintf("averaged over %d opponent hypotheses (win prob variance %.3f)", len(tr.Hypotheses), tr.WinProbVariance))
	}

	if tr.Triaged {
		lines = append(lines, "endgame triage set the posture from material count")
	}
	if tr.Read {
		lines = append(lines, "hard read: committed to the line exploiting the opponent's most likely action")
	}
	if chosen.EV >= 0.999 {
		lines = append(lines, "guaranteed winning line")
	}

	for _, sw := range tr.Swings {
		if sw.Side != "opponent" {
			continue
		}
		verb := "costs"
		if sw.Impact > 0 {
			verb = "gains"
		}
		lines = append(lines, fmt.Sprintf("watch %s (%.0f%% likely): %s %.2f", sw.Action, sw.Prob*100, verb, absf(sw.Impact)))
	}
	return lines
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// FormatJoint renders a joint action using the given side's Pokémon names.
func FormatJoint(state *engine.BattleState, side uint8, j engine.JointAction) string {
	parts := make([]string, 0, engine.ActiveSlots)
	for slot := 0; slot < engine.ActiveSlots; slot++ {
		parts = append(parts, formatAction(state, side, uint8(slot), j[slot]))
	}
	return strings.Join(parts, " + ")
}

func formatAction(state *engine.BattleState, side, slot uint8, a engine.Action) string {
	me := &state.Sides[side].Active[slot]
	name := engine.SpeciesData(me.Species).Name

	switch {
	case engine.ActionIsPass(a):
		return "pass"
	case engine.ActionIsStruggle(a):
		return name + " Struggle"
	case engine.ActionIsSwitch(a):
		idx := engine.ActionSwitchIndex(a)
		target := engine.SpeciesData(state.Sides[side].Reserve[idx].Species).Name
		return name + " switch to " + target
	}

	mv := engine.MoveData(me.Moves[engine.ActionMoveSlot(a)])
	out := name + " " + mv.Name
	if engine.ActionTera(a) {
		out += " (Tera)"
	}
	switch engine.ActionTarget(a) {
	case engine.TargetOppSlot0, engine.TargetOppSlot1:
		oppSlot := engine.ActionTarget(a) - engine.TargetOppSlot0
		opp := &state.Sides[1-side].Active[oppSlot]
		if opp.Species != engine.SpeciesNone {
			out += " into " + engine.SpeciesData(opp.Species).Name
		}
	case engine.TargetAlly:
		out += " into ally"
	}
	return out
}
