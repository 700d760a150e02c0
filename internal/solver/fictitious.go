package solver

import (
	"math"

	"github.com/kaname-hf/vgcsolver/engine"
)

// Fictitious play defaults.
const (
	DefaultFPRounds      = 8
	fpConvergenceEps     = 0.01
	DefaultFPBlendWeight = 0.3
)

// FPResult is the refined mixed-strategy pair over the restricted game.
type FPResult struct {
	SelfStrategy []float64
	OppStrategy  []float64
	Rounds       int
	Converged    bool
	NashGap      float64
}

// FictitiousPlay alternates best responses on the restricted payoff matrix,
// averaging each side's empirical strategy. Stops early when the largest
// per-round strategy change drops below the convergence threshold. The
// result is a more equilibrium-like policy than the raw quantal output; it
// refines, never replaces, the solver's candidate set.
func FictitiousPlay(u [][]float64, rounds int) FPResult {
	if rounds <= 0 {
		rounds = DefaultFPRounds
	}
	n := len(u)
	m := len(u[0])

	selfAvg := uniform(n)
	oppAvg := uniform(m)
	selfCounts := make([]float64, n)
	oppCounts := make([]float64, m)

	res := FPResult{}
	for r := 1; r <= rounds; r++ {
		selfBR := bestResponseRow(u, oppAvg)
		oppBR := bestResponseCol(u, selfAvg)
		selfCounts[selfBR]++
		oppCounts[oppBR]++

		newSelf := normalizeCounts(selfCounts, r)
		newOpp := normalizeCounts(oppCounts, r)

		delta := math.Max(maxDelta(selfAvg, newSelf), maxDelta(oppAvg, newOpp))
		selfAvg, oppAvg = newSelf, newOpp
		res.Rounds = r
		if delta < fpConvergenceEps {
			res.Converged = true
			break
		}
	}
	res.SelfStrategy = selfAvg
	res.OppStrategy = oppAvg
	res.NashGap = nashGap(u, selfAvg, oppAvg)
	return res
}

// bestResponseRow returns self's best row against the opponent's mix.
func bestResponseRow(u [][]float64, oppP []float64) int {
	best, bestV := 0, math.Inf(-1)
	for i := range u {
		v := 0.0
		for j := range oppP {
			v += u[i][j] * oppP[j]
		}
		if v > bestV {
			best, bestV = i, v
		}
	}
	return best
}

// bestResponseCol returns the opponent's best column (minimizing self's
// utility) against self's mix.
func bestResponseCol(u [][]float64, selfP []float64) int {
	best, bestV := 0, math.Inf(1)
	for j := range u[0] {
		v := 0.0
		for i := range selfP {
			v += u[i][j] * selfP[i]
		}
		if v < bestV {
			best, bestV = j, v
		}
	}
	return best
}

// nashGap measures how exploitable the strategy pair still is: the sum of
// each side's best-response gain over the current value. Zero at an exact
// equilibrium of the restricted game.
func nashGap(u [][]float64, selfP, oppP []float64) float64 {
	value := bilinear(selfP, u, oppP)

	selfBest := math.Inf(-1)
	for i := range u {
		v := 0.0
		for j := range oppP {
			v += u[i][j] * oppP[j]
		}
		if v > selfBest {
			selfBest = v
		}
	}

	oppBest := math.Inf(-1)
	for j := range u[0] {
		v := 0.0
		for i := range selfP {
			v -= u[i][j] * selfP[i]
		}
		if v > oppBest {
			oppBest = v
		}
	}

	return (selfBest - value) + (oppBest - (-value))
}

// Blend mixes the fictitious-play strategy into the quantal-response
// strategy at weight w. The result is renormalized.
func Blend(quantal, fp []float64, w float64) []float64 {
	out := make([]float64, len(quantal))
	total := 0.0
	for i := range quantal {
		f := 0.0
		if i < len(fp) {
			f = fp[i]
		}
		out[i] = (1-w)*quantal[i] + w*f
		total += out[i]
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}

func uniform(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0 / float64(n)
	}
	return out
}

func normalizeCounts(counts []float64, total int) []float64 {
	out := make([]float64, len(counts))
	for i := range counts {
		out[i] = counts[i] / float64(total)
	}
	return out
}

func maxDelta(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		d = math.Max(d, math.Abs(a[i]-b[i]))
	}
	return d
}

// DefaultDOIterations bounds double-oracle support growth.
const DefaultDOIterations = 6

// PayoffFunc evaluates one joint action pair from self's perspective.
type PayoffFunc func(self, opp engine.JointAction) float64

// DOResult is the double-oracle output: the grown supports and the
// fictitious-play solution of the final restricted game.
type DOResult struct {
	SelfSupport []int // indices into the full self action list
	OppSupport  []int
	FP          FPResult
	Iterations  int
}

// DoubleOracle grows the restricted game's support: solve the current
// restriction with fictitious play, compute each side's best response over
// the FULL action lists against the other's mix, and add any response
// outside the support. Stops when neither side gains a new action or the
// iteration cap trips.
func DoubleOracle(selfActions, oppActions []engine.JointAction, pay PayoffFunc, iterations int) DOResult {
	if iterations <= 0 {
		iterations = DefaultDOIterations
	}
	res := DOResult{SelfSupport: []int{0}, OppSupport: []int{0}}
	cache := make(map[[2]int]float64)
	cell := func(i, j int) float64 {
		k := [2]int{i, j}
		if v, ok := cache[k]; ok {
			return v
		}
		v := pay(selfActions[i], oppActions[j])
		cache[k] = v
		return v
	}

	for it := 1; it <= iterations; it++ {
		res.Iterations = it

		u := make([][]float64, len(res.SelfSupport))
		for a, i := range res.SelfSupport {
			u[a] = make([]float64, len(res.OppSupport))
			for b, j := range res.OppSupport {
				u[a][b] = cell(i, j)
			}
		}
		res.FP = FictitiousPlay(u, 0)

		// Best responses over the full lists against the restricted mixes.
		selfBR, selfBRV := 0, math.Inf(-1)
		for i := range selfActions {
			v := 0.0
			for b, j := range res.OppSupport {
				v += res.FP.OppStrategy[b] * cell(i, j)
			}
			if v > selfBRV {
				selfBR, selfBRV = i, v
			}
		}
		oppBR, oppBRV := 0, math.Inf(1)
		for j := range oppActions {
			v := 0.0
			for a, i := range res.SelfSupport {
				v += res.FP.SelfStrategy[a] * cell(i, j)
			}
			if v < oppBRV {
				oppBR, oppBRV = j, v
			}
		}

		grew := false
		if !containsInt(res.SelfSupport, selfBR) {
			res.SelfSupport = append(res.SelfSupport, selfBR)
			grew = true
		}
		if !containsInt(res.OppSupport, oppBR) {
			res.OppSupport = append(res.OppSupport, oppBR)
			grew = true
		}
		if !grew {
			break
		}
	}
	return res
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
