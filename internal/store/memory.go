package store

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"

	"github.com/kaname-hf/vgcsolver/engine"
	"github.com/kaname-hf/vgcsolver/engine/belief"
)

// MatchupRecord aggregates what past matches revealed about one opponent
// species: how often it appeared, which items and spreads it ran.
type MatchupRecord struct {
	Games        int
	Wins         int
	ItemCounts   map[uint8]int
	SpreadCounts [belief.NumSpreads]int
}

// Memory is the cross-match battle memory, persisted in LevelDB.
type Memory struct {
	db *leveldb.DB
}

// OpenMemory opens (or creates) the memory database at path.
func OpenMemory(path string) (*Memory, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open battle memory %s", path)
	}
	return &Memory{db: db}, nil
}

func matchupKey(species uint8) []byte {
	return []byte{'m', species}
}

// Matchup loads the record for one species; ok is false when the species has
// never been seen.
func (m *Memory) Matchup(species uint8) (MatchupRecord, bool, error) {
	raw, err := m.db.Get(matchupKey(species), nil)
	if errors.Is(err, ldberrors.ErrNotFound) {
		return MatchupRecord{}, false, nil
	}
	if err != nil {
		return MatchupRecord{}, false, errors.Wrapf(err, "load matchup %d", species)
	}
	var rec MatchupRecord
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&rec); err != nil {
		return MatchupRecord{}, false, errors.Wrapf(err, "decode matchup %d", species)
	}
	return rec, true, nil
}

// RecordMatchup folds one match's observations about a species into memory.
// Item and spread may be their None/zero values when never revealed.
func (m *Memory) RecordMatchup(species uint8, won bool, item uint8, spread engine.SpreadKind) error {
	rec, _, err := m.Matchup(species)
	if err != nil {
		return err
	}
	if rec.ItemCounts == nil {
		rec.ItemCounts = make(map[uint8]int)
	}
	rec.Games++
	if won {
		rec.Wins++
	}
	if item != engine.ItemNone {
		rec.ItemCounts[item]++
	}
	if int(spread) < belief.NumSpreads {
		rec.SpreadCounts[spread]++
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&rec); err != nil {
		return errors.Wrapf(err, "encode matchup %d", species)
	}
	return errors.Wrapf(m.db.Put(matchupKey(species), buf.Bytes(), nil), "store matchup %d", species)
}

// minGamesForPrior is the sample size below which memory stays silent.
const minGamesForPrior = 3

// SeedPriors biases belief priors toward what memory has seen, blending by
// sample size so a handful of games never overrides the population defaults.
// Returns the number of species adjusted.
func (m *Memory) SeedPriors(beliefs *belief.State) (int, error) {
	adjusted := 0
	for species := uint8(1); species < engine.NumSpecies; species++ {
		rec, ok, err := m.Matchup(species)
		if err != nil {
			return adjusted, err
		}
		if !ok || rec.Games < minGamesForPrior {
			continue
		}

		pb := beliefs.For(species)
		weight := float64(rec.Games) / float64(rec.Games+10)

		itemTotal := 0
		for _, n := range rec.ItemCounts {
			itemTotal += n
		}
		if itemTotal > 0 {
			items := make(map[uint8]float64, engine.NumItems)
			for id := uint8(0); id < engine.NumItems; id++ {
				observed := float64(rec.ItemCounts[id]) / float64(itemTotal)
				blended := (1-weight)*pb.Items[id] + weight*observed
				if blended > 0 {
					items[id] = blended
				}
			}
			pb.SetPriors(items, nil, nil)
		}

		spreadTotal := 0
		for _, n := range rec.SpreadCounts {
			spreadTotal += n
		}
		if spreadTotal > 0 {
			spreads := make([]float64, belief.NumSpreads)
			for kind := 0; kind < belief.NumSpreads; kind++ {
				observed := float64(rec.SpreadCounts[kind]) / float64(spreadTotal)
				spreads[kind] = (1-weight)*pb.Spreads[kind] + weight*observed
			}
			pb.SetPriors(nil, spreads, nil)
		}
		adjusted++
	}
	return adjusted, nil
}

// Close flushes and closes the database.
func (m *Memory) Close() error {
	return errors.Wrap(m.db.Close(), "close battle memory")
}
