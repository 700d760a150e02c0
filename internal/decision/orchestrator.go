package decision

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kaname-hf/vgcsolver/engine"
	"github.com/kaname-hf/vgcsolver/engine/belief"
	"github.com/kaname-hf/vgcsolver/internal/solver"
)

// Phase is the orchestrator's per-turn state machine position.
type Phase uint8

const (
	PhaseAwaitingTurn Phase = iota
	PhaseBeliefUpdate
	PhasePostureDecision
	PhaseSearch
	PhaseAggregate
	PhaseSelected
)

// String implements fmt.Stringer for logging.
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingTurn:
		return "awaiting_turn"
	case PhaseBeliefUpdate:
		return "belief_update"
	case PhasePostureDecision:
		return "posture_decision"
	case PhaseSearch:
		return "search"
	case PhaseAggregate:
		return "aggregate"
	case PhaseSelected:
		return "selected"
	}
	return "unknown"
}

// Config holds the orchestrator's tunables.
type Config struct {
	Determinizations int
	Workers          int
	Budget           time.Duration // wall clock per turn
	Seed             int64
	Solver           solver.Config
	Widening         solver.WideningConfig
	Risk             solver.RiskConfig
	Endgame          solver.EndgameConfig
	FPRounds         int
	FPWeight         float64
}

// DefaultConfig returns the tuned orchestrator constants.
func DefaultConfig() Config {
	return Config{
		Determinizations: solver.DefaultDeterminizations,
		Workers:          4,
		Budget:           4 * time.Second,
		Seed:             1,
		Solver:           solver.DefaultConfig(),
		Widening:         solver.DefaultWidening(),
		Risk:             solver.DefaultRiskConfig(),
		Endgame:          solver.DefaultEndgameConfig(),
		FPRounds:         solver.DefaultFPRounds,
		FPWeight:         solver.DefaultFPBlendWeight,
	}
}

// AdvisoryProvider proposes a move shortlist for the current position. A nil
// provider, an error or a timeout all mean the turn runs unbiased.
type AdvisoryProvider interface {
	Propose(ctx context.Context, state *engine.BattleState) (*solver.Advisory, error)
}

// Record is the flattened decision summary handed to the async log sink.
type Record struct {
	DecisionID string
	MatchID    string
	Turn       uint16
	Posture    string
	WinProb    float64
	Action     string
	ElapsedMS  int64
}

// Sink receives decision records without blocking the turn.
type Sink interface {
	LogDecision(rec Record)
}

// Decision is the orchestrator's answer for one turn.
type Decision struct {
	ID      uuid.UUID
	Action  engine.JointAction
	WinProb float64
	Posture solver.Posture
	Trace   *Trace
}

// Orchestrator runs the full per-turn pipeline: belief update, posture,
// determinized parallel search, aggregation and risk-aware selection. One
// orchestrator serves one match; it is not safe for concurrent turns.
type Orchestrator struct {
	cfg      Config
	log      *logrus.Logger
	matchID  uuid.UUID
	phase    Phase
	rng      *rand.Rand
	beliefs  *belief.State
	filters  map[uint8]*belief.ParticleFilter
	style    *belief.StyleModel
	tt       *solver.TranspositionTable
	det      *solver.Determinizer
	risk     *solver.RiskAwareSolver
	reads    *solver.ReadAnalyzer
	selfGen  *solver.Generator
	oppGen   *solver.Generator
	advisory AdvisoryProvider
	sink     Sink
	lastTurn uint16
}

// New wires an orchestrator for one match. advisory and sink may be nil.
func New(cfg Config, log *logrus.Logger, advisory AdvisoryProvider, sink Sink) *Orchestrator {
	if log == nil {
		log = logrus.New()
	}
	style := &belief.StyleModel{}
	// Generators persist across the whole match so progressive widening
	// accumulates as turns go by; per-hypothesis solvers share them.
	oppGen := solver.NewGenerator(cfg.Widening)
	oppGen.Style = style
	return &Orchestrator{
		cfg:      cfg,
		log:      log,
		matchID:  uuid.New(),
		phase:    PhaseAwaitingTurn,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		beliefs:  belief.NewState(),
		filters:  make(map[uint8]*belief.ParticleFilter),
		style:    style,
		tt:       solver.NewTranspositionTable(),
		det:      solver.NewDeterminizer(cfg.Determinizations),
		risk:     solver.NewRiskAwareSolver(cfg.Risk),
		reads:    solver.NewReadAnalyzer(cfg.Risk),
		selfGen:  solver.NewGenerator(cfg.Widening),
		oppGen:   oppGen,
		advisory: advisory,
		sink:     sink,
	}
}

// MatchID identifies the match this orchestrator serves.
func (o *Orchestrator) MatchID() uuid.UUID { return o.matchID }

// Phase reports the state machine position, for diagnostics.
func (o *Orchestrator) Phase() Phase { return o.phase }

// Beliefs exposes the belief layer for seeding priors before turn one.
func (o *Orchestrator) Beliefs() *belief.State { return o.beliefs }

// hypOutcome is one determinization's solve result.
type hypOutcome struct {
	idx     int
	sig     uint64
	res     solver.Result
	endgame bool
	err     error
}

// DecideTurn runs the pipeline for one turn. Observations from the previous
// turn are applied strictly before any search. The search joins within the
// wall-clock budget; unfinished determinizations are dropped, but at least
// one must finish.
func (o *Orchestrator) DecideTurn(ctx context.Context, state *engine.BattleState, obs *TurnObservations) (*Decision, error) {
	start := time.Now()
	id := uuid.New()
	log := o.log.WithFields(logrus.Fields{
		"decision_id": id,
		"match_id":    o.matchID,
		"turn":        state.Turn,
	})

	o.phase = PhaseBeliefUpdate
	o.applyObservations(obs)

	o.phase = PhasePostureDecision
	prelim := sigmoid(engine.Evaluate(state, o.cfg.Solver.Weights))
	posture := o.risk.DecidePosture(prelim)
	log.WithFields(logrus.Fields{"posture": posture, "win_prob": prelim}).Debug("preliminary posture")

	o.phase = PhaseSearch
	o.tt.Clear()
	adv := o.fetchAdvisory(ctx, state, log)
	baseSeed := o.cfg.Seed ^ (int64(state.Turn) << 20)
	dets := o.det.Sample(state, o.beliefs, o.filters, rand.New(rand.NewSource(baseSeed)))

	outcomes, err := o.runSearch(ctx, dets, baseSeed, adv)
	if err != nil {
		return nil, err
	}

	o.phase = PhaseAggregate
	agg := aggregateOutcomes(outcomes)

	// The final posture uses the searched win probability, not the static
	// preliminary one. In triaged endgames the material verdict overrides
	// it: a won endgame is converted safely, a lost one needs variance.
	posture = o.risk.DecidePosture(agg.winProb)
	eg := solver.NewEndgameSolver(o.cfg.Endgame, o.rng)
	triaged := false
	if eg.ShouldActivate(state) {
		switch eg.Triage(state) {
		case solver.TriageWinning:
			posture, triaged = solver.PostureSecure, true
		case solver.TriageLosing:
			posture, triaged = solver.PostureGamble, true
		}
	}

	var chosen solver.ActionValue
	if agg.dominant {
		chosen = agg.lookup(agg.best)
	} else {
		var ok bool
		chosen, ok = o.risk.SelectBest(agg.values, posture)
		if !ok {
			return nil, errors.Wrap(solver.ErrEmptyCandidateSet, "aggregation produced no action values")
		}
	}

	chosen, read := o.checkRead(agg, outcomes, chosen)

	trace := o.buildTrace(id, state, posture, agg, outcomes, chosen)
	trace.Triaged = triaged
	trace.Read = read
	o.lastTurn = state.Turn
	trace.Elapsed = time.Since(start)

	o.phase = PhaseSelected
	log.WithFields(logrus.Fields{
		"posture":    posture,
		"win_prob":   agg.winProb,
		"action":     FormatJoint(state, engine.SideSelf, chosen.Joint),
		"hypotheses": len(outcomes),
		"dominant":   agg.dominant,
		"elapsed_ms": trace.Elapsed.Milliseconds(),
	}).Info("turn decided")

	if o.sink != nil {
		o.sink.LogDecision(Record{
			DecisionID: id.String(),
			MatchID:    o.matchID.String(),
			Turn:       state.Turn,
			Posture:    posture.String(),
			WinProb:    agg.winProb,
			Action:     FormatJoint(state, engine.SideSelf, chosen.Joint),
			ElapsedMS:  trace.Elapsed.Milliseconds(),
		})
	}

	return &Decision{
		ID:      id,
		Action:  chosen.Joint,
		WinProb: agg.winProb,
		Posture: posture,
		Trace:   trace,
	}, nil
}

// fetchAdvisory asks the provider for a shortlist. Unavailability is soft:
// the turn simply runs without bias.
func (o *Orchestrator) fetchAdvisory(ctx context.Context, state *engine.BattleState, log *logrus.Entry) *solver.Advisory {
	if o.advisory == nil {
		return nil
	}
	adv, err := o.advisory.Propose(ctx, state)
	if err != nil {
		log.WithError(err).Warn("advisory unavailable, running unbiased")
		return nil
	}
	return adv
}

// checkRead asks the ReadAnalyzer whether the best response to the
// opponent's modal line beats the selected action. The analysis runs on the
// modal hypothesis' root matrix; endgame hypotheses carry no matrix and
// never produce reads.
func (o *Orchestrator) checkRead(agg aggregate, outs []hypOutcome, chosen solver.ActionValue) (solver.ActionValue, bool) {
	var res *solver.Result
	for i := range outs {
		if !outs[i].endgame && outs[i].res.Best.Signature() == agg.best.Signature() {
			res = &outs[i].res
			break
		}
	}
	if res == nil || len(res.Payoffs) < 2 || len(res.Payoffs[0]) < 2 {
		return chosen, false
	}

	predicted := 0
	for j := range res.OppDist {
		if res.OppDist[j].Prob > res.OppDist[predicted].Prob {
			predicted = j
		}
	}

	// The read candidate is the row exploiting the predicted line hardest.
	row := 0
	for i := range res.Payoffs {
		if res.Payoffs[i][predicted] > res.Payoffs[row][predicted] {
			row = i
		}
	}
	readJoint := res.SelfDist[row].Joint
	if readJoint.Signature() == chosen.Joint.Signature() {
		return chosen, false
	}

	miss := math.Inf(1)
	for j := range res.Payoffs[row] {
		if j != predicted && res.Payoffs[row][j] < miss {
			miss = res.Payoffs[row][j]
		}
	}
	d := o.reads.Analyze(chosen.EV, res.Payoffs[row][predicted], miss, res.OppDist[predicted].Prob)
	if !d.ShouldRead {
		return chosen, false
	}
	readVal := agg.lookup(readJoint)
	if readVal.EV == 0 && readVal.Downside == 0 && readVal.Upside == 0 {
		readVal = solver.ActionValue{Joint: readJoint, EV: d.ReadEV}
	}
	return readVal, true
}

// runSearch fans the determinizations out over a worker pool and joins
// within the wall-clock budget. Per-job seeds are deterministic so the same
// position and seed reproduce the same search.
func (o *Orchestrator) runSearch(ctx context.Context, dets []solver.DeterminizedState, baseSeed int64, adv *solver.Advisory) ([]hypOutcome, error) {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.Budget)
	defer cancel()

	workers := o.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(dets) {
		workers = len(dets)
	}

	jobs := make(chan int, len(dets))
	for i := range dets {
		jobs <- i
	}
	close(jobs)

	results := make(chan hypOutcome, len(dets))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := cctx.Err(); err != nil {
					results <- hypOutcome{idx: idx, err: err}
					continue
				}
				results <- o.solveHypothesis(cctx, &dets[idx], idx, baseSeed, adv)
			}
		}()
	}
	wg.Wait()
	close(results)

	outcomes := make([]hypOutcome, 0, len(dets))
	for out := range results {
		if out.err == nil {
			outcomes = append(outcomes, out)
			continue
		}
		if errors.Is(out.err, solver.ErrOracleFailure) {
			return nil, out.err
		}
		// Budget trips and cancellations degrade to partial results.
	}
	if len(outcomes) == 0 {
		return nil, errors.Wrap(solver.ErrSearchBudgetExceeded, "no determinization finished within budget")
	}
	return outcomes, nil
}

// solveHypothesis searches one determinized state: exhaustive endgame when
// the position is small enough, sampled quantal search otherwise. The
// sampled search observes ctx between payoff cells so in-flight solves bail
// when the turn budget runs out.
func (o *Orchestrator) solveHypothesis(ctx context.Context, ds *solver.DeterminizedState, idx int, baseSeed int64, adv *solver.Advisory) hypOutcome {
	rng := rand.New(rand.NewSource(baseSeed + int64(idx) + 1))

	eg := solver.NewEndgameSolver(o.cfg.Endgame, rng)
	if eg.ShouldActivate(&ds.State) {
		res, err := eg.Solve(&ds.State)
		if err == nil {
			return hypOutcome{idx: idx, sig: ds.Sig, res: res, endgame: true}
		}
		if !errors.Is(err, solver.ErrSearchBudgetExceeded) && !errors.Is(err, solver.ErrEmptyCandidateSet) {
			return hypOutcome{idx: idx, err: err}
		}
	}

	gs := solver.NewGameSolver(o.cfg.Solver, o.selfGen, o.oppGen, o.tt, rng)
	res, err := gs.Solve(ctx, &ds.State, ds.Sig, adv)
	if err != nil {
		return hypOutcome{idx: idx, err: err}
	}
	return hypOutcome{idx: idx, sig: ds.Sig, res: res}
}

// aggregate is the cross-hypothesis summary the selection step runs on.
type aggregate struct {
	winProb  float64
	variance float64
	values   []solver.ActionValue // averaged over the hypotheses proposing them
	votes    map[uint32]int       // best-action votes by joint signature
	dominant bool                 // every hypothesis picked the same line
	best     engine.JointAction   // modal best action
}

func (a *aggregate) lookup(j engine.JointAction) solver.ActionValue {
	sig := j.Signature()
	for _, av := range a.values {
		if av.Joint.Signature() == sig {
			return av
		}
	}
	return solver.ActionValue{Joint: j}
}

type valueAccum struct {
	joint    engine.JointAction
	ev       float64
	downside float64
	upside   float64
	n        int
}

// aggregateOutcomes averages win probability and per-action statistics
// across the finished hypotheses and reports cross-hypothesis variance and
// best-action agreement.
func aggregateOutcomes(outs []hypOutcome) aggregate {
	agg := aggregate{votes: make(map[uint32]int)}

	mean := 0.0
	for _, out := range outs {
		mean += out.res.WinProb
	}
	mean /= float64(len(outs))
	agg.winProb = mean
	for _, out := range outs {
		d := out.res.WinProb - mean
		agg.variance += d * d
	}
	agg.variance /= float64(len(outs))

	accums := make(map[uint32]*valueAccum)
	var order []uint32
	for _, out := range outs {
		for _, av := range out.res.Values {
			sig := av.Joint.Signature()
			acc, ok := accums[sig]
			if !ok {
				acc = &valueAccum{joint: av.Joint}
				accums[sig] = acc
				order = append(order, sig)
			}
			acc.ev += av.EV
			acc.downside += av.Downside
			acc.upside += av.Upside
			acc.n++
		}
		agg.votes[out.res.Best.Signature()]++
	}

	agg.values = make([]solver.ActionValue, 0, len(order))
	for _, sig := range order {
		acc := accums[sig]
		n := float64(acc.n)
		agg.values = append(agg.values, solver.ActionValue{
			Joint:    acc.joint,
			EV:       acc.ev / n,
			Downside: acc.downside / n,
			Upside:   acc.upside / n,
		})
	}

	bestVotes := -1
	for _, out := range outs {
		if v := agg.votes[out.res.Best.Signature()]; v > bestVotes {
			bestVotes = v
			agg.best = out.res.Best
		}
	}
	agg.dominant = bestVotes == len(outs)
	return agg
}

func sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }
