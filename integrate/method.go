// Package integrate implements the variable-order, variable-step
// implicit integrator spec.md §4.1 calls the Integration Method: the
// engine's collaboration contract with device Load callbacks and
// TruncatableState history. This is the hardest-engineering component
// spec.md names; everything else in this module exists to feed it or
// consume what it produces.
package integrate

import (
	"math"

	"github.com/fly204/spicesim/history"
	"github.com/fly204/spicesim/mna"
	"github.com/fly204/spicesim/tstate"
)

// Kind selects the multistep formula family.
type Kind int

const (
	// Gear is the variable-order Gear/BDF method, default order 2.
	Gear Kind = iota
	// Trapezoidal is the trapezoidal rule: backward Euler at order 1
	// (first step, and after a reset), trapezoidal once Evaluate raises
	// the order to 2, never raised further.
	Trapezoidal
)

// orderRaiseGain is the SPICE heuristic threshold for keeping a
// tentatively raised order: retained verbatim per spec.md §9.
const orderRaiseGain = 1.05

// Host is what the engine needs from its owning simulation: time
// bounds, tolerances, and the unknown-vector size for history
// allocation. sim.Circuit satisfies this.
type Host interface {
	InitTime() float64
	FinalTime() float64
	MaxStep() float64
	MinStep() float64
	TrTol() float64
	RelTol() float64
	AbsTol() float64
	Expansion() float64
	Unknowns() int
}

// Phase identifies a point in the step lifecycle observers can hook.
type Phase int

const (
	BeforeAccept Phase = iota
	AfterAccept
	OnTruncate
	OnReject
	OnNonConvergence
)

// Observer is called at a Phase with a copy of ring slot 0 (the point
// being computed), except at AfterAccept, where it receives the point
// just accepted (slot 1 once the ring has shifted). Observers cannot
// reorder themselves mid-invocation: Engine copies the slice before
// iterating.
type Observer func(phase Phase, state history.State)

// Engine implements both Gear and Trapezoidal; they differ only in
// coefficient selection and whether order is ever raised above 2.
type Engine struct {
	kind     Kind
	maxOrder int
	host     Host

	ring  *history.Ring
	bp    *Breakpoints
	coefs Coefficients

	order     int
	breakFlag bool
	savedStep float64
	accepted  int

	maxStep, minStep                     float64
	trTol, relTol, absTol, expansion     float64

	tracked   []*tstate.TruncatableState
	observers map[Phase][]Observer
}

// NewGear builds a Gear/BDF method with the given maximum order
// (clamped into [1,6] per spec.md §6), default 2.
func NewGear(maxOrder int) *Engine {
	return &Engine{kind: Gear, maxOrder: clampOrder(maxOrder, 2)}
}

// NewTrapezoidal builds a trapezoidal method. Its order never exceeds
// 2 regardless of the requested maxOrder.
func NewTrapezoidal(maxOrder int) *Engine {
	m := clampOrder(maxOrder, 2)
	if m > 2 {
		m = 2
	}
	return &Engine{kind: Trapezoidal, maxOrder: m}
}

// SetMaxOrder overrides the maximum order chosen at construction time.
// Must be called before Setup, since Setup sizes the history ring off
// maxOrder; Trapezoidal still clamps to 2 regardless of what is passed.
func (e *Engine) SetMaxOrder(maxOrder int) {
	m := clampOrder(maxOrder, e.maxOrder)
	if e.kind == Trapezoidal && m > 2 {
		m = 2
	}
	e.maxOrder = m
}

func clampOrder(order, def int) int {
	if order <= 0 {
		return def
	}
	if order > 6 {
		return 6
	}
	return order
}

// Setup allocates the history ring, breakpoint set, and coefficient
// state, and reads tolerances out of host. Must be called exactly once
// before Initialize.
func (e *Engine) Setup(host Host) error {
	e.host = host
	e.ring = history.NewRing(e.maxOrder, host.Unknowns())
	e.bp = NewBreakpoints(host.FinalTime())
	e.bp.Insert(host.InitTime())
	e.trTol = host.TrTol()
	e.relTol = host.RelTol()
	e.absTol = host.AbsTol()
	e.expansion = host.Expansion()
	e.maxStep = host.MaxStep()
	e.minStep = host.MinStep()
	e.observers = make(map[Phase][]Observer)
	return nil
}

// Initialize resets the method to its pre-run state: break is forced
// true, order drops to 1, and every ring slot's delta defaults to
// MaxStep, exactly as spec.md §4.1 specifies.
func (e *Engine) Initialize() {
	e.breakFlag = true
	e.order = 1
	e.savedStep = e.maxStep
	e.accepted = 0
	e.ring.Reset()
	for i := 0; i < e.ring.Len(); i++ {
		e.ring.At(i).Delta = e.maxStep
	}
	e.ring.At(1).Time = e.host.InitTime()
}

// Seed installs the DC operating point as the first accepted history
// point, so the first transient Probe has something to predict from.
func (e *Engine) Seed(solution []float64) {
	copy(e.ring.At(1).Solution, solution)
}

// Ring exposes the history ring read-only state for callers (sim,
// tests) that need to inspect accepted points.
func (e *Engine) Ring() *history.Ring { return e.ring }

// Breakpoints exposes the breakpoint set so devices (via Setup) and
// the simulation driver can insert source-edge times.
func (e *Engine) Breakpoints() *Breakpoints { return e.bp }

// Order returns the order currently in effect.
func (e *Engine) Order() int { return e.order }

// Subscribe registers an observer for phase, appended after any
// already registered.
func (e *Engine) Subscribe(phase Phase, obs Observer) {
	e.observers[phase] = append(e.observers[phase], obs)
}

func (e *Engine) notify(phase Phase) {
	obs := e.observers[phase]
	if len(obs) == 0 {
		return
	}
	cur := *e.ring.Current()
	if phase == AfterAccept {
		cur = *e.ring.At(1)
	}
	snapshot := append([]Observer(nil), obs...)
	for _, f := range snapshot {
		f(phase, cur)
	}
}

// CreateDerivative returns a fresh TruncatableState sized for this
// method's history window. If track is set it is added to the LTE
// poll set Evaluate consults.
func (e *Engine) CreateDerivative(track bool) *tstate.TruncatableState {
	ts := tstate.New(e.maxOrder, track)
	if track {
		e.tracked = append(e.tracked, ts)
	}
	return ts
}

// Continue applies MaxStep clamping and breakpoint snapping to a
// proposed step size, per spec.md §4.1's breakpoint-snapping rule, and
// returns the step to actually Probe with.
func (e *Engine) Continue(delta float64) float64 {
	if delta > e.maxStep {
		delta = e.maxStep
	}
	if delta < e.minStep {
		delta = e.minStep
	}
	b, ok := e.bp.First()
	if !ok {
		return delta
	}
	t := e.ring.At(1).Time
	if t == b || b-t <= e.minStep {
		e.order = 1
		limit := e.savedStep
		if next, ok := e.bp.Second(); ok && next-b < limit {
			limit = next - b
		}
		delta = math.Min(delta, 0.1*limit)
		if t == 0 {
			delta /= 10
		}
		if delta < 2*e.minStep {
			delta = 2 * e.minStep
		}
		return delta
	}
	if t+delta >= b {
		e.savedStep = delta
		delta = b - t
		e.breakFlag = true
	}
	return delta
}

// Probe advances state[0].time, recomputes integration coefficients
// for the current (order, delta, history deltas), and writes the
// predicted solution into state[0].solution.
func (e *Engine) Probe(delta float64) {
	cur := e.ring.Current()
	prev := e.ring.At(1)
	cur.Time = prev.Time + delta
	cur.Delta = delta
	cur.Order = e.order

	e.coefs = e.coefficientsFor(e.order, delta)
	e.predict(cur)
}

// Coefficients returns the coefficients computed by the most recent
// Probe, for devices' Load/Integrate calls.
func (e *Engine) Coefficients() Coefficients { return e.coefs }

func (e *Engine) coefficientsFor(order int, delta float64) Coefficients {
	if order <= 1 || e.ring.At(1).Time == e.host.InitTime() {
		return backwardEulerCoefficients()
	}
	switch e.kind {
	case Trapezoidal:
		return trapezoidalCoefficients()
	default:
		deltas := make([]float64, order)
		deltas[0] = delta
		for i := 1; i < order; i++ {
			deltas[i] = e.ring.At(i).Delta
		}
		return Coefficients{A: bdfCoefficients(order, deltas), PriorDerivWeight: 0}
	}
}

// predict extrapolates state[0].solution through state[1..k+1] using
// Lagrange value interpolation, with k = min(order, accepted points so
// far): the degree drops while the history is still short, and with no
// accepted point yet it is a zero-order hold (a copy of state[1]).
func (e *Engine) predict(cur *history.State) {
	k := e.order
	if e.accepted < k {
		k = e.accepted
	}
	if k <= 0 {
		copy(cur.Solution, e.ring.At(1).Solution)
		return
	}
	times := make([]float64, k+1)
	for i := 1; i <= k+1; i++ {
		times[i-1] = e.ring.At(i).Time
	}
	weights := lagrangeValueWeights(cur.Time, times)
	n := len(cur.Solution)
	for j := 0; j < n; j++ {
		sum := 0.0
		for i := 1; i <= k+1; i++ {
			sum += weights[i-1] * e.ring.At(i).Solution[j]
		}
		cur.Solution[j] = sum
	}
}

func lagrangeValueWeights(t0 float64, times []float64) []float64 {
	n := len(times)
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		prod := 1.0
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			prod *= (t0 - times[j]) / (times[i] - times[j])
		}
		w[i] = prod
	}
	return w
}

// Evaluate applies the LTE-driven acceptance rule of spec.md §4.1
// after a converged Newton solve. ok reports accept/reject; deltaNext
// is the step size to use next (capped to Expansion·state[0].delta on
// accept).
func (e *Engine) Evaluate() (ok bool, deltaNext float64) {
	cur := e.ring.Current()
	if e.ring.At(1).Time == e.host.InitTime() && e.accepted == 0 {
		return true, math.Min(e.expansion*cur.Delta, e.maxStep)
	}

	deltaTrunc := e.truncate(e.order)
	e.notify(OnTruncate)

	if deltaTrunc <= 0.9*cur.Delta {
		e.notify(OnReject)
		return false, deltaTrunc
	}

	if e.order < e.maxOrder {
		raised := e.truncate(e.order + 1)
		if raised > orderRaiseGain*deltaTrunc {
			e.order++
			deltaTrunc = raised
		}
	}

	deltaNext = math.Min(deltaTrunc, e.expansion*cur.Delta)
	if deltaNext > e.maxStep {
		deltaNext = e.maxStep
	}
	return true, deltaNext
}

func (e *Engine) truncate(order int) float64 {
	if len(e.tracked) == 0 {
		return e.maxStep
	}
	times := e.ring.Times(order + 2)
	deltaTrunc := math.MaxFloat64
	for _, ts := range e.tracked {
		d := ts.Truncate(order, times, e.trTol, e.relTol, e.absTol, e.minStep)
		if d < deltaTrunc {
			deltaTrunc = d
		}
	}
	return deltaTrunc
}

// Accept shifts the history ring and every tracked TruncatableState in
// lockstep, clears breakpoints at or before the previously accepted
// time, and clears the break flag. A breakpoint the accepted point
// landed on therefore stays first in the set until the next Accept, so
// the next Continue sees it at state[1].time and drops the order to 1.
func (e *Engine) Accept() {
	e.notify(BeforeAccept)
	e.bp.ClearThrough(e.ring.At(1).Time)
	e.ring.Shift()
	for _, ts := range e.tracked {
		ts.Shift()
	}
	e.breakFlag = false
	e.accepted++
	e.notify(AfterAccept)
}

// NonConvergence forces order back to 1 and returns the shrunken step
// size (current delta / 8) the caller should retry with, per spec.md
// §4.1 and §7.
func (e *Engine) NonConvergence() float64 {
	e.order = 1
	e.notify(OnNonConvergence)
	return e.ring.Current().Delta / 8
}

// Breaking reports whether the most recent Continue snapped the step
// to land exactly on a breakpoint.
func (e *Engine) Breaking() bool { return e.breakFlag }

// LoadState ties the current time/delta/order/coefficients to a
// mna.Stamp, the bundle the device Load callback receives.
type LoadState struct {
	Time         float64
	Delta        float64
	Order        int
	Coefficients Coefficients
	Stamp        *mna.Stamp
}

// LoadState assembles the view devices see during Load.
func (e *Engine) LoadState(stamp *mna.Stamp) LoadState {
	cur := e.ring.Current()
	return LoadState{Time: cur.Time, Delta: cur.Delta, Order: e.order, Coefficients: e.coefs, Stamp: stamp}
}
