package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaname-hf/vgcsolver/engine"
	"github.com/kaname-hf/vgcsolver/engine/belief"
)

func openTestMemory(t *testing.T) *Memory {
	t.Helper()
	m, err := OpenMemory(filepath.Join(t.TempDir(), "memory"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, m.Close()) })
	return m
}

func TestMatchupUnknownSpecies(t *testing.T) {
	m := openTestMemory(t)
	_, ok, err := m.Matchup(engine.SpeciesMiraidon)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordMatchupAccumulates(t *testing.T) {
	m := openTestMemory(t)

	require.NoError(t, m.RecordMatchup(engine.SpeciesUrshifu, true, engine.ItemChoiceScarf, engine.SpreadFastSweeper))
	require.NoError(t, m.RecordMatchup(engine.SpeciesUrshifu, false, engine.ItemChoiceScarf, engine.SpreadFastSweeper))
	require.NoError(t, m.RecordMatchup(engine.SpeciesUrshifu, true, engine.ItemFocusSash, engine.SpreadBulkyAttacker))

	rec, ok, err := m.Matchup(engine.SpeciesUrshifu)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, rec.Games)
	assert.Equal(t, 2, rec.Wins)
	assert.Equal(t, 2, rec.ItemCounts[engine.ItemChoiceScarf])
	assert.Equal(t, 1, rec.ItemCounts[engine.ItemFocusSash])
	assert.Equal(t, 2, rec.SpreadCounts[engine.SpreadFastSweeper])
}

func TestRecordMatchupIgnoresUnrevealedItem(t *testing.T) {
	m := openTestMemory(t)
	require.NoError(t, m.RecordMatchup(engine.SpeciesTorkoal, false, engine.ItemNone, engine.SpreadBulkyAttacker))

	rec, ok, err := m.Matchup(engine.SpeciesTorkoal)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, rec.ItemCounts)
	assert.Equal(t, 1, rec.Games)
}

func TestSeedPriorsRequiresSample(t *testing.T) {
	m := openTestMemory(t)
	require.NoError(t, m.RecordMatchup(engine.SpeciesUrshifu, true, engine.ItemChoiceScarf, engine.SpreadFastSweeper))

	beliefs := belief.NewState()
	adjusted, err := m.SeedPriors(beliefs)
	require.NoError(t, err)
	assert.Zero(t, adjusted, "below the sample floor memory stays silent")
}

func TestSeedPriorsBiasesTowardObserved(t *testing.T) {
	m := openTestMemory(t)
	for i := 0; i < 6; i++ {
		require.NoError(t, m.RecordMatchup(engine.SpeciesUrshifu, i%2 == 0, engine.ItemChoiceScarf, engine.SpreadFastSweeper))
	}

	beliefs := belief.NewState()
	defaultScarf := beliefs.For(engine.SpeciesUrshifu).Items[engine.ItemChoiceScarf]

	adjusted, err := m.SeedPriors(beliefs)
	require.NoError(t, err)
	assert.Equal(t, 1, adjusted)

	seeded := beliefs.For(engine.SpeciesUrshifu).Items[engine.ItemChoiceScarf]
	assert.Greater(t, seeded, defaultScarf, "six scarf sightings must raise the scarf prior")

	spreads := beliefs.For(engine.SpeciesUrshifu).Spreads
	assert.Greater(t, spreads[engine.SpreadFastSweeper], 0.5)
}
