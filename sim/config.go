// Package sim implements the simulation driver spec.md §2 names: the
// top-level state machine (DC operating point → transient entry →
// time loop) that wires the sparse solver, MNA bookkeeping, the
// iteration controller, and the integration engine together. It is
// grounded in element/time/simulation.go's TransientSimulation loop
// shape (linear/nonlinear stamp split, per-step error messages
// carrying time and step, a per-accepted-step callback) generalized
// onto the variable-order/variable-step engine instead of a fixed
// 3rd-order Adams predictor-corrector.
package sim

// TimeConfiguration bounds a transient run, per spec.md §6.
type TimeConfiguration struct {
	InitTime  float64
	FinalTime float64
	Step      float64 // initial step hint; 0 picks a default
	MaxStep   float64 // 0 picks (FinalTime-InitTime)/50
	MinStep   float64 // 0 picks 1e-9 * MaxStep
}

func (t TimeConfiguration) withDefaults() TimeConfiguration {
	if t.MaxStep == 0 {
		t.MaxStep = (t.FinalTime - t.InitTime) / 50
	}
	if t.MinStep == 0 {
		t.MinStep = 1e-9 * t.MaxStep
	}
	if t.Step == 0 {
		t.Step = t.MinStep
	}
	return t
}

func (t TimeConfiguration) validate() error {
	if t.FinalTime <= t.InitTime {
		return newError(Misconfigured, t.InitTime, "finalTime must be greater than initTime")
	}
	if t.MaxStep <= 0 || t.MinStep <= 0 || t.MinStep > t.MaxStep {
		return newError(Misconfigured, t.InitTime, "step limits must satisfy 0 < minStep <= maxStep")
	}
	return nil
}

// SpiceConfiguration holds the SPICE-style tolerance and iteration
// knobs, per spec.md §6.
type SpiceConfiguration struct {
	TrTol      float64 // default 7.0
	RelTol     float64 // default 1e-3
	AbsTol     float64 // default 1e-6
	Expansion  float64 // default 2.0
	MaxIter    int     // default 100
	MaxOrder   int      // 0 picks the method's default (Gear=2, Trapezoidal=2)
}

func (s SpiceConfiguration) withDefaults() SpiceConfiguration {
	if s.TrTol == 0 {
		s.TrTol = 7.0
	}
	if s.RelTol == 0 {
		s.RelTol = 1e-3
	}
	if s.AbsTol == 0 {
		s.AbsTol = 1e-6
	}
	if s.Expansion == 0 {
		s.Expansion = 2.0
	}
	if s.MaxIter == 0 {
		s.MaxIter = 100
	}
	return s
}

func (s SpiceConfiguration) validate() error {
	if s.TrTol <= 0 || s.RelTol <= 0 || s.AbsTol <= 0 || s.Expansion <= 1 || s.MaxIter <= 0 {
		return newError(Misconfigured, 0, "spice configuration values must be positive (expansion > 1)")
	}
	if s.MaxOrder < 0 || s.MaxOrder > 6 {
		return newError(Misconfigured, 0, "maxOrder must be in [1,6] (0 selects the method default)")
	}
	return nil
}
