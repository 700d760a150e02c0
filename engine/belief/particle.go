package belief

import (
	"math/rand"
	"sort"

	"github.com/kaname-hf/vgcsolver/engine"
)

// DefaultParticleCount is the particle set size per tracked Pokémon.
const DefaultParticleCount = 30

// resampleThreshold triggers resampling when the effective sample size drops
// below this fraction of the particle count.
const resampleThreshold = 0.5

// Particle is one concrete guess of a Pokémon's six effective stats.
type Particle struct {
	Stats  engine.Stats
	Weight float64
}

// ParticleFilter approximates the posterior over one opponent Pokémon's
// stats with a weighted particle set. Weights always sum to 1.
type ParticleFilter struct {
	Species   uint8
	Particles []Particle
	rng       *rand.Rand
}

// NewParticleFilter seeds n particles from the species' base stats with
// randomized EV archetypes and jitter.
func NewParticleFilter(species uint8, n int, rng *rand.Rand) *ParticleFilter {
	if n <= 0 {
		n = DefaultParticleCount
	}
	pf := &ParticleFilter{
		Species:   species,
		Particles: make([]Particle, n),
		rng:       rng,
	}
	w := 1.0 / float64(n)
	for i := range pf.Particles {
		kind := engine.SpreadKind(rng.Intn(NumSpreads))
		stats := engine.StatsForSpread(species, kind)
		// Jitter the non-HP stats to cover spreads between the archetypes.
		for st := engine.StatAtk; st < engine.NumStats; st++ {
			jitter := 1.0 + (rng.Float64()-0.5)*0.10
			stats[st] = int16(float64(stats[st]) * jitter)
		}
		pf.Particles[i] = Particle{Stats: stats, Weight: w}
	}
	return pf
}

// ObserveSpeedOrder reweights particles by a speed comparison: the Pokémon
// moved before (wentFirst) or after a reference effective speed.
func (pf *ParticleFilter) ObserveSpeedOrder(wentFirst bool, refSpeed int16) {
	for i := range pf.Particles {
		consistent := (pf.Particles[i].Stats[engine.StatSpe] >= refSpeed) == wentFirst
		if consistent {
			pf.Particles[i].Weight *= likelyConsistent
		} else {
			pf.Particles[i].Weight *= likelyInconsistent
		}
	}
	pf.normalize()
	pf.maybeResample()
}

// ObserveDamageTaken reweights particles by the HP fraction a known attack
// removed: particles whose defensive stats place the observation inside the
// expected roll window gain weight.
func (pf *ParticleFilter) ObserveDamageTaken(attacker *engine.PokemonState, moveID uint8, fractionDealt float64) {
	if fractionDealt <= 0 {
		return
	}
	for i := range pf.Particles {
		def := engine.PokemonState{
			Species:    pf.Species,
			Stats:      pf.Particles[i].Stats,
			ChoiceLock: engine.NoLock,
		}
		def.MaxHP = def.Stats[engine.StatHP]
		def.CurHP = def.MaxHP
		dr := engine.DamageDistribution(attacker, &def, moveID, engine.DamageContext{})
		if dr.Max == 0 || def.MaxHP <= 0 {
			continue
		}
		lo := float64(dr.Min) / float64(def.MaxHP)
		hi := float64(dr.Max) / float64(def.MaxHP) * 1.5
		if fractionDealt >= lo*0.9 && fractionDealt <= hi {
			pf.Particles[i].Weight *= likelyDamageIn
		} else {
			pf.Particles[i].Weight *= likelyDamageOut
		}
	}
	pf.normalize()
	pf.maybeResample()
}

// normalize rescales weights to sum to 1, falling back to uniform when the
// total has collapsed (DegenerateBelief recovery).
func (pf *ParticleFilter) normalize() {
	total := 0.0
	for i := range pf.Particles {
		total += pf.Particles[i].Weight
	}
	if total < minTotalWeight {
		u := 1.0 / float64(len(pf.Particles))
		for i := range pf.Particles {
			pf.Particles[i].Weight = u
		}
		return
	}
	for i := range pf.Particles {
		pf.Particles[i].Weight /= total
	}
}

// ESS returns the effective sample size 1 / Σw².
func (pf *ParticleFilter) ESS() float64 {
	sum := 0.0
	for i := range pf.Particles {
		w := pf.Particles[i].Weight
		sum += w * w
	}
	if sum == 0 {
		return 0
	}
	return 1.0 / sum
}

// maybeResample resamples with replacement proportional to weight when the
// ESS drops below half the particle count, resetting weights to uniform.
func (pf *ParticleFilter) maybeResample() {
	n := len(pf.Particles)
	if pf.ESS() >= resampleThreshold*float64(n) {
		return
	}
	fresh := make([]Particle, n)
	u := 1.0 / float64(n)
	for i := range fresh {
		fresh[i] = pf.Particles[pf.sampleParticle()]
		fresh[i].Weight = u
	}
	pf.Particles = fresh
}

func (pf *ParticleFilter) sampleParticle() int {
	r := pf.rng.Float64()
	acc := 0.0
	for i := range pf.Particles {
		acc += pf.Particles[i].Weight
		if r < acc {
			return i
		}
	}
	return len(pf.Particles) - 1
}

// MeanEstimate returns the weighted mean of each stat.
func (pf *ParticleFilter) MeanEstimate() engine.Stats {
	var acc [engine.NumStats]float64
	for i := range pf.Particles {
		w := pf.Particles[i].Weight
		for st := 0; st < engine.NumStats; st++ {
			acc[st] += w * float64(pf.Particles[i].Stats[st])
		}
	}
	var out engine.Stats
	for st := 0; st < engine.NumStats; st++ {
		out[st] = int16(acc[st])
	}
	return out
}

// QuantileEstimate returns the weighted q-quantile of one stat. q of 0.1
// gives an optimistic-defense estimate, 0.9 a pessimistic one.
func (pf *ParticleFilter) QuantileEstimate(stat uint8, q float64) int16 {
	type sw struct {
		v int16
		w float64
	}
	vals := make([]sw, len(pf.Particles))
	for i := range pf.Particles {
		vals[i] = sw{pf.Particles[i].Stats[stat], pf.Particles[i].Weight}
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i].v < vals[j].v })
	acc := 0.0
	for _, v := range vals {
		acc += v.w
		if acc >= q {
			return v.v
		}
	}
	return vals[len(vals)-1].v
}

// PessimisticStats assumes the opponent's threatening stats are high: the
// 90th percentile of every stat.
func (pf *ParticleFilter) PessimisticStats() engine.Stats {
	var out engine.Stats
	for st := uint8(0); st < engine.NumStats; st++ {
		out[st] = pf.QuantileEstimate(st, 0.9)
	}
	return out
}

// SampleStats draws one particle's stats proportional to weight, for use by
// the determinizer.
func (pf *ParticleFilter) SampleStats(rng *rand.Rand) engine.Stats {
	r := rng.Float64()
	acc := 0.0
	for i := range pf.Particles {
		acc += pf.Particles[i].Weight
		if r < acc {
			return pf.Particles[i].Stats
		}
	}
	return pf.Particles[len(pf.Particles)-1].Stats
}
