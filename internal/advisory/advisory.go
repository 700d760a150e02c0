// Package advisory queries an external move-shortlist service. The advisory
// is strictly optional: any failure or timeout disables biasing for the turn.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kaname-hf/vgcsolver/engine"
	"github.com/kaname-hf/vgcsolver/internal/solver"
)

// DefaultTimeout bounds the advisory round trip so a slow service can never
// eat into the search budget.
const DefaultTimeout = 500 * time.Millisecond

// Client talks to the shortlist service over HTTP.
type Client struct {
	url     string
	timeout time.Duration
	http    *http.Client
}

// New returns a client for the given endpoint. timeout <= 0 uses the
// default.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:     url,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

// request is the position summary sent to the service.
type request struct {
	Turn    uint16    `json:"turn"`
	Self    [2]string `json:"self"`
	Opp     [2]string `json:"opp"`
	SelfHP  [2]int16  `json:"self_hp"`
	OppHP   [2]int16  `json:"opp_hp"`
	Weather uint8     `json:"weather"`
}

// response carries per-slot shortlisted move names and a confidence score.
type response struct {
	Moves     [2][]string `json:"moves"`
	Alignment float64     `json:"alignment"`
}

var moveByName = map[string]uint8{}

func init() {
	for id := uint8(1); id < engine.NumMoves; id++ {
		moveByName[normalizeName(engine.MoveData(id).Name)] = id
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

// Propose asks the service for a shortlist. Every failure maps to the soft
// advisory-unavailable error; callers log and continue unbiased.
func (c *Client) Propose(ctx context.Context, state *engine.BattleState) (*solver.Advisory, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := request{Turn: state.Turn, Weather: state.Weather}
	for slot := 0; slot < engine.ActiveSlots; slot++ {
		self := &state.Sides[engine.SideSelf].Active[slot]
		opp := &state.Sides[engine.SideOpp].Active[slot]
		req.Self[slot] = engine.SpeciesData(self.Species).Name
		req.Opp[slot] = engine.SpeciesData(opp.Species).Name
		req.SelfHP[slot] = self.CurHP
		req.OppHP[slot] = opp.CurHP
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrapf(solver.ErrAdvisoryUnavailable, "encode request: %v", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(solver.ErrAdvisoryUnavailable, "build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(solver.ErrAdvisoryUnavailable, "post shortlist: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(solver.ErrAdvisoryUnavailable, "shortlist status %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrapf(solver.ErrAdvisoryUnavailable, "decode shortlist: %v", err)
	}

	adv := &solver.Advisory{Alignment: out.Alignment}
	for slot := 0; slot < engine.ActiveSlots; slot++ {
		adv.Moves[slot] = make(map[uint8]bool, len(out.Moves[slot]))
		for _, name := range out.Moves[slot] {
			if id, ok := moveByName[normalizeName(name)]; ok {
				adv.Moves[slot][id] = true
			}
		}
	}
	return adv, nil
}
