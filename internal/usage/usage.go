// Package usage loads usage-statistics files that seed the belief layer's
// priors. Stats are optional: without them the built-in defaults stand.
package usage

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/kaname-hf/vgcsolver/engine"
	"github.com/kaname-hf/vgcsolver/engine/belief"
)

// Entry is one species' observed distributions. Keys are display names;
// unknown names are skipped so stats files can lead the engine's roster.
type Entry struct {
	Items   map[string]float64 `yaml:"items"`
	Spreads map[string]float64 `yaml:"spreads"`
	Teras   map[string]float64 `yaml:"teras"`
}

// Stats maps species display name to its usage entry.
type Stats struct {
	Species map[string]Entry `yaml:"species"`
}

var (
	speciesByName = map[string]uint8{}
	itemByName    = map[string]uint8{}
	typeByName    = map[string]uint8{}
	spreadByName  = map[string]engine.SpreadKind{
		"fast_sweeper":        engine.SpreadFastSweeper,
		"bulky_attacker":      engine.SpreadBulkyAttacker,
		"specially_defensive": engine.SpreadSpeciallyDefensive,
		"balanced":            engine.SpreadBalanced,
	}
)

func init() {
	for id := uint8(1); id < engine.NumSpecies; id++ {
		speciesByName[normalize(engine.SpeciesData(id).Name)] = id
	}
	for id := uint8(1); id < engine.NumItems; id++ {
		itemByName[normalize(engine.ItemName(id))] = id
	}
	for id := uint8(1); id <= engine.NumTypes; id++ {
		typeByName[normalize(engine.TypeName(id))] = id
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

// Load reads a usage-statistics YAML file. A missing file returns nil stats
// and no error.
func Load(path string) (*Stats, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read usage stats %s", path)
	}
	var s Stats
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrapf(err, "parse usage stats %s", path)
	}
	return &s, nil
}

// Apply seeds belief priors from the stats and reports how many species were
// applied. Nil stats apply nothing.
func (s *Stats) Apply(beliefs *belief.State) int {
	if s == nil {
		return 0
	}
	applied := 0
	for name, entry := range s.Species {
		id, ok := speciesByName[normalize(name)]
		if !ok {
			continue
		}

		items := make(map[uint8]float64, len(entry.Items))
		for itemName, w := range entry.Items {
			if itemID, ok := itemByName[normalize(itemName)]; ok && w > 0 {
				items[itemID] = w
			}
		}

		var spreads []float64
		if len(entry.Spreads) > 0 {
			spreads = make([]float64, belief.NumSpreads)
			for spreadName, w := range entry.Spreads {
				if kind, ok := spreadByName[normalize(spreadName)]; ok && w > 0 {
					spreads[kind] = w
				}
			}
		}

		teras := make(map[uint8]float64, len(entry.Teras))
		for typeName, w := range entry.Teras {
			if typeID, ok := typeByName[normalize(typeName)]; ok && w > 0 {
				teras[typeID] = w
			}
		}

		beliefs.For(id).SetPriors(items, spreads, teras)
		applied++
	}
	return applied
}
