package belief

// StyleModel estimates an opponent's behavioral tendencies in-match with
// Beta-distribution posteriors. Each tendency starts at a population prior
// and is updated from observed actions; posteriors are clamped to avoid
// extreme predictions off tiny samples.
type StyleModel struct {
	ProtectObs, ProtectCount int
	SwitchObs, SwitchCount   int
	FocusObs, FocusCount     int
	SetupObs, SetupCount     int
}

// Beta prior parameters and posterior clamps per tendency.
const (
	protectAlpha, protectBeta = 1.5, 8.5
	switchAlpha, switchBeta   = 1.0, 9.0
	focusAlpha, focusBeta     = 3.0, 7.0
	setupAlpha, setupBeta     = 2.0, 8.0
)

func betaMean(alpha, beta float64, count, obs int) float64 {
	a := alpha + float64(count)
	b := beta + float64(obs-count)
	return a / (a + b)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ProtectProb is the posterior probability the opponent protects on a given
// slot-turn, clamped to [0.05, 0.40].
func (m *StyleModel) ProtectProb() float64 {
	return clamp(betaMean(protectAlpha, protectBeta, m.ProtectCount, m.ProtectObs), 0.05, 0.40)
}

// SwitchProb is the posterior switch probability, clamped to [0.02, 0.30].
func (m *StyleModel) SwitchProb() float64 {
	return clamp(betaMean(switchAlpha, switchBeta, m.SwitchCount, m.SwitchObs), 0.02, 0.30)
}

// FocusProb is the posterior probability both opponents target the same
// slot, clamped to [0.10, 0.60].
func (m *StyleModel) FocusProb() float64 {
	return clamp(betaMean(focusAlpha, focusBeta, m.FocusCount, m.FocusObs), 0.10, 0.60)
}

// SetupProb is the posterior probability of a setup move.
func (m *StyleModel) SetupProb() float64 {
	return betaMean(setupAlpha, setupBeta, m.SetupCount, m.SetupObs)
}

// ObserveProtect records whether a slot protected this turn.
func (m *StyleModel) ObserveProtect(did bool) {
	m.ProtectObs++
	if did {
		m.ProtectCount++
	}
}

// ObserveSwitch records whether a slot switched this turn.
func (m *StyleModel) ObserveSwitch(did bool) {
	m.SwitchObs++
	if did {
		m.SwitchCount++
	}
}

// ObserveFocus records whether both opposing slots attacked the same target.
func (m *StyleModel) ObserveFocus(did bool) {
	m.FocusObs++
	if did {
		m.FocusCount++
	}
}

// ObserveSetup records a setup move use.
func (m *StyleModel) ObserveSetup(did bool) {
	m.SetupObs++
	if did {
		m.SetupCount++
	}
}

// SampleCount is the total number of recorded observations.
func (m *StyleModel) SampleCount() int {
	return m.ProtectObs + m.SwitchObs + m.FocusObs + m.SetupObs
}
