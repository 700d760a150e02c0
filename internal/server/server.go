// Package server exposes the decision engine over a WebSocket endpoint: a
// client opens one connection per match and exchanges one request/response
// frame pair per turn.
package server

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kaname-hf/vgcsolver/engine"
	"github.com/kaname-hf/vgcsolver/engine/belief"
	"github.com/kaname-hf/vgcsolver/internal/decision"
	"github.com/kaname-hf/vgcsolver/internal/solver"
)

// DecideRequest is one turn's frame: the full battle snapshot from our
// perspective plus everything observed since the previous request. A frame
// carrying Result ends the match instead of asking for a decision.
type DecideRequest struct {
	State        engine.BattleState         `json:"state"`
	Observations *decision.TurnObservations `json:"observations,omitempty"`
	Result       *MatchResult               `json:"result,omitempty"`
}

// MatchResult is the client's final frame reporting how the match ended.
type MatchResult struct {
	Won bool `json:"won"`
}

// DecideResponse carries the chosen joint action and the diagnostic summary.
type DecideResponse struct {
	DecisionID string    `json:"decision_id"`
	Actions    [2]uint16 `json:"actions"`
	Formatted  string    `json:"formatted"`
	WinProb    float64   `json:"win_prob"`
	Posture    string    `json:"posture"`
	Rationale  []string  `json:"rationale"`
	Error      string    `json:"error,omitempty"`
}

// MatchRecorder persists a finished match: the outcome plus what the belief
// layer learned about each opponent Pokémon.
type MatchRecorder interface {
	RecordMatch(ctx context.Context, matchID string, won bool, turns int, obs []decision.MatchupObservation) error
}

// Server serves per-match decision connections.
type Server struct {
	log      *logrus.Logger
	cfg      decision.Config
	advisory decision.AdvisoryProvider
	sink     decision.Sink
	seeder   func(*belief.State)
	recorder MatchRecorder
}

// SetPriorSeeder installs a hook that seeds each new match's belief priors,
// e.g. from usage statistics or battle memory.
func (s *Server) SetPriorSeeder(f func(*belief.State)) { s.seeder = f }

// SetMatchRecorder installs the hook run when a client reports its match
// result. Without one, results are logged and dropped.
func (s *Server) SetMatchRecorder(r MatchRecorder) { s.recorder = r }

// New wires a server; advisory and sink may be nil.
func New(cfg decision.Config, log *logrus.Logger, advisory decision.AdvisoryProvider, sink decision.Sink) *Server {
	if log == nil {
		log = logrus.New()
	}
	return &Server{log: log, cfg: cfg, advisory: advisory, sink: sink}
}

// Handler returns the HTTP mux: /decide upgrades to the per-match WebSocket,
// /healthz answers liveness probes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/decide", s.handleDecide)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// handleDecide runs one match: each incoming frame is a turn to decide.
// Belief state persists across frames on the same connection.
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	orch := decision.New(s.cfg, s.log, s.advisory, s.sink)
	if s.seeder != nil {
		s.seeder(orch.Beliefs())
	}
	log := s.log.WithField("match_id", orch.MatchID())
	log.Info("match connection opened")

	ctx := r.Context()
	for {
		var req DecideRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			log.WithError(err).Debug("match connection closed")
			return
		}

		if req.Result != nil {
			s.finishMatch(ctx, log, orch, req.Result.Won)
			conn.Close(websocket.StatusNormalClosure, "match recorded")
			return
		}

		dec, err := orch.DecideTurn(ctx, &req.State, req.Observations)
		if err != nil {
			if errors.Is(err, solver.ErrOracleFailure) {
				log.WithError(err).Error("oracle failure, closing match")
				conn.Close(websocket.StatusInternalError, "oracle failure")
				return
			}
			log.WithError(err).Warn("turn decision failed")
			if werr := wsjson.Write(ctx, conn, DecideResponse{Error: err.Error()}); werr != nil {
				return
			}
			continue
		}

		resp := DecideResponse{
			DecisionID: dec.ID.String(),
			Actions:    [2]uint16{uint16(dec.Action[0]), uint16(dec.Action[1])},
			Formatted:  decision.FormatJoint(&req.State, engine.SideSelf, dec.Action),
			WinProb:    dec.WinProb,
			Posture:    dec.Posture.String(),
			Rationale:  dec.Trace.Rationale,
		}
		if err := wsjson.Write(ctx, conn, resp); err != nil {
			log.WithError(err).Debug("write failed, closing match")
			return
		}
	}
}

// finishMatch hands the reported outcome and the match's belief snapshot to
// the recorder.
func (s *Server) finishMatch(ctx context.Context, log *logrus.Entry, orch *decision.Orchestrator, won bool) {
	log = log.WithFields(logrus.Fields{"won": won, "turns": orch.LastTurn()})
	if s.recorder == nil {
		log.Info("match ended, no recorder installed")
		return
	}
	err := s.recorder.RecordMatch(ctx, orch.MatchID().String(), won, int(orch.LastTurn()), orch.MatchupObservations())
	if err != nil {
		log.WithError(err).Warn("match result not recorded")
		return
	}
	log.Info("match result recorded")
}

// ListenAndServe blocks serving the handler on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return errors.Wrap(err, "serve")
	}
}
