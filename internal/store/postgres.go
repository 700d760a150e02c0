package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/kaname-hf/vgcsolver/internal/decision"
)

// DecisionRepo persists per-turn decisions and match results in Postgres.
type DecisionRepo struct {
	pool *pgxpool.Pool
}

// NewDecisionRepo connects a pool to the given URL and verifies the
// connection.
func NewDecisionRepo(ctx context.Context, url string) (*DecisionRepo, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &DecisionRepo{pool: pool}, nil
}

// Init creates the schema if it does not exist yet.
func (r *DecisionRepo) Init(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS decisions (
			decision_id UUID PRIMARY KEY,
			match_id    UUID NOT NULL,
			turn        INT NOT NULL,
			posture     TEXT NOT NULL,
			win_prob    DOUBLE PRECISION NOT NULL,
			action      TEXT NOT NULL,
			elapsed_ms  BIGINT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS decisions_match_idx ON decisions (match_id, turn);
		CREATE TABLE IF NOT EXISTS matches (
			match_id    UUID PRIMARY KEY,
			won         BOOLEAN NOT NULL,
			turns       INT NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`)
	return errors.Wrap(err, "init schema")
}

// SaveDecision inserts one turn's decision record.
func (r *DecisionRepo) SaveDecision(ctx context.Context, rec decision.Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO decisions (decision_id, match_id, turn, posture, win_prob, action, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (decision_id) DO NOTHING`,
		rec.DecisionID, rec.MatchID, int(rec.Turn), rec.Posture, rec.WinProb, rec.Action, rec.ElapsedMS)
	return errors.Wrapf(err, "save decision %s", rec.DecisionID)
}

// SaveMatchResult records the final outcome of a match.
func (r *DecisionRepo) SaveMatchResult(ctx context.Context, matchID string, won bool, turns int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO matches (match_id, won, turns)
		VALUES ($1, $2, $3)
		ON CONFLICT (match_id) DO UPDATE SET won = EXCLUDED.won, turns = EXCLUDED.turns`,
		matchID, won, turns)
	return errors.Wrapf(err, "save match %s", matchID)
}

// MatchDecisions returns a match's decisions in turn order.
func (r *DecisionRepo) MatchDecisions(ctx context.Context, matchID string) ([]decision.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT decision_id, match_id, turn, posture, win_prob, action, elapsed_ms
		FROM decisions WHERE match_id = $1 ORDER BY turn`, matchID)
	if err != nil {
		return nil, errors.Wrapf(err, "query decisions for %s", matchID)
	}
	defer rows.Close()

	var out []decision.Record
	for rows.Next() {
		var rec decision.Record
		var turn int
		if err := rows.Scan(&rec.DecisionID, &rec.MatchID, &turn, &rec.Posture, &rec.WinProb, &rec.Action, &rec.ElapsedMS); err != nil {
			return nil, errors.Wrap(err, "scan decision row")
		}
		rec.Turn = uint16(turn)
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "iterate decisions")
}

// Close releases the pool.
func (r *DecisionRepo) Close() {
	r.pool.Close()
}
