package usage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaname-hf/vgcsolver/engine"
	"github.com/kaname-hf/vgcsolver/engine/belief"
)

const sampleStats = `
species:
  Miraidon:
    items:
      Choice Specs: 0.6
      Life Orb: 0.4
    spreads:
      fast_sweeper: 0.9
      balanced: 0.1
    teras:
      Electric: 0.7
      Fairy: 0.3
  Not-A-Pokemon:
    items:
      Leftovers: 1.0
`

func writeStats(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, 0, s.Apply(belief.NewState()), "nil stats apply nothing")
}

func TestLoadRejectsMalformed(t *testing.T) {
	_, err := Load(writeStats(t, "species: ["))
	assert.Error(t, err)
}

func TestApplySeedsPriors(t *testing.T) {
	s, err := Load(writeStats(t, sampleStats))
	require.NoError(t, err)

	beliefs := belief.NewState()
	applied := s.Apply(beliefs)
	assert.Equal(t, 1, applied, "unknown species are skipped")

	pb := beliefs.For(engine.SpeciesMiraidon)
	assert.InDelta(t, 0.6, pb.Items[engine.ItemChoiceSpecs], 1e-9)
	assert.InDelta(t, 0.4, pb.Items[engine.ItemLifeOrb], 1e-9)
	assert.Zero(t, pb.Items[engine.ItemFocusSash], "unlisted items drop to zero weight")
	assert.InDelta(t, 0.9, pb.Spreads[engine.SpreadFastSweeper], 1e-9)
	assert.InDelta(t, 0.7, pb.Teras[engine.TypeElectric], 1e-9)
}

func TestApplyLeavesOtherSpeciesAlone(t *testing.T) {
	s, err := Load(writeStats(t, sampleStats))
	require.NoError(t, err)

	beliefs := belief.NewState()
	defaults := belief.NewPokemonBelief(engine.SpeciesUrshifu)
	s.Apply(beliefs)
	assert.Equal(t, defaults.Items, beliefs.For(engine.SpeciesUrshifu).Items)
}
