package sim

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fly204/spicesim/device"
	"github.com/fly204/spicesim/integrate"
	"github.com/fly204/spicesim/mna"
	"github.com/fly204/spicesim/newton"
)

// Result is one solved point: the time it was accepted at and the full
// unknown vector (node voltages followed by branch currents).
type Result struct {
	Time     float64
	Solution []float64
}

// Circuit wires the sparse solver, MNA bookkeeping, the iteration
// controller and the integration engine together, grounded in
// element/time/simulation.go's TransientSimulation driver loop.
type Circuit struct {
	devices  []device.Device
	nodes    int
	branches int

	eq      *mna.Equations
	newton  *newton.Controller
	method  *integrate.Engine
	logger  zerolog.Logger

	tc TimeConfiguration
	sc SpiceConfiguration

	setupDone bool
}

// NewCircuit builds a driver around devices, sized for nodes node
// voltages and voltageSources auxiliary branch-current unknowns. Node
// and branch identifiers are assigned by the caller before this call,
// per spec.md §3's "frozen during Setup" rule — there is no Build pass
// here that discovers them.
func NewCircuit(devices []device.Device, nodes, voltageSources int) *Circuit {
	return &Circuit{devices: devices, nodes: nodes, branches: voltageSources, logger: zerolog.Nop()}
}

// SetLogger installs a structured logger for step-level diagnostics.
// The zero-value Circuit logs nothing.
func (c *Circuit) SetLogger(logger zerolog.Logger) { c.logger = logger }

// InitTime, FinalTime, MaxStep, MinStep, TrTol, RelTol, AbsTol,
// Expansion, and Unknowns satisfy integrate.Host.
func (c *Circuit) InitTime() float64  { return c.tc.InitTime }
func (c *Circuit) FinalTime() float64 { return c.tc.FinalTime }
func (c *Circuit) MaxStep() float64   { return c.tc.MaxStep }
func (c *Circuit) MinStep() float64   { return c.tc.MinStep }
func (c *Circuit) TrTol() float64     { return c.sc.TrTol }
func (c *Circuit) RelTol() float64    { return c.sc.RelTol }
func (c *Circuit) AbsTol() float64    { return c.sc.AbsTol }
func (c *Circuit) Expansion() float64 { return c.sc.Expansion }
func (c *Circuit) Unknowns() int      { return c.nodes + c.branches }

// Setup validates tc/sc, allocates the MNA system and the iteration
// controller, binds every device (Setup(ctx) with a Binding over the
// now-sized matrix), and primes m as this circuit's integration
// method. Must be called exactly once before OperatingPoint or
// RunTransient: node and branch identifiers are frozen the moment this
// returns, so a second call panics rather than silently re-binding them.
func (c *Circuit) Setup(tc TimeConfiguration, sc SpiceConfiguration, m *integrate.Engine) error {
	if c.setupDone {
		panic("sim: Circuit.Setup called twice")
	}
	c.setupDone = true

	tc = tc.withDefaults()
	if err := tc.validate(); err != nil {
		return err
	}
	sc = sc.withDefaults()
	if err := sc.validate(); err != nil {
		return err
	}
	c.tc, c.sc = tc, sc

	c.eq = mna.NewEquations(c.nodes, c.branches)
	c.newton = newton.New(newton.Config{MaxIter: sc.MaxIter, RelTol: sc.RelTol, AbsTol: sc.AbsTol}, c.eq)
	c.method = m

	if sc.MaxOrder != 0 {
		m.SetMaxOrder(sc.MaxOrder)
	}

	// m.Setup must run before any device Setup: it allocates the
	// breakpoint set devices insert into via ctx.Breakpoint. Initialize
	// runs here too, once, so a later OperatingPoint's Seed lands on a
	// ring RunTransient won't reset out from under it.
	if err := m.Setup(c); err != nil {
		return errors.WithStack(err)
	}
	m.Initialize()

	bind := mna.NewBinding(c.eq)
	for _, d := range c.devices {
		ctx := &device.Context{
			Bind:        bind,
			CreateState: func(track bool) device.Derivative { return m.CreateDerivative(track) },
			Breakpoint:  func(t float64) { m.Breakpoints().Insert(t) },
		}
		if err := d.Setup(ctx); err != nil {
			return errors.Wrapf(err, "device %q setup", d.Name())
		}
	}
	return nil
}

// Unsetup releases every device's resources, including on cancellation
// or a fatal error.
func (c *Circuit) Unsetup() {
	for _, d := range c.devices {
		d.Unsetup()
	}
}

// Subscribe forwards to the underlying integration method, so callers
// don't need to hold their own reference to it.
func (c *Circuit) Subscribe(phase integrate.Phase, obs integrate.Observer) {
	c.method.Subscribe(phase, obs)
}

// OperatingPoint computes the DC bias point: a single Newton solve
// with every dynamic element's companion model evaluated at delta=+Inf,
// which TruncatableState.Integrate treats as an open capacitor / shorted
// inductor, the teacher's fixed trapezoidal DC-bias pass convention.
func (c *Circuit) OperatingPoint() (Result, error) {
	c.eq.Clear()
	dcState := integrate.LoadState{
		Time:         c.tc.InitTime,
		Delta:        math.Inf(1),
		Order:        0,
		Coefficients: integrate.Coefficients{A: []float64{0, 0}, PriorDerivWeight: 0},
		Stamp:        mna.NewStamp(c.eq),
	}
	outcome, iterOrRow, residual, err := c.newton.Solve(context.Background(), dcState, c.devices)
	// Singular is checked before err: Controller.Solve always pairs it with
	// a non-nil err, and the typed Singular error is what callers need to
	// distinguish it from an ordinary device.Load failure.
	if outcome == newton.Singular {
		return Result{}, singularAt(c.tc.InitTime, iterOrRow)
	}
	if err != nil {
		return Result{}, errors.WithStack(err)
	}
	if outcome == newton.Diverged {
		return Result{}, nonConvergenceAt(c.tc.InitTime, residual)
	}
	sol := c.eq.Solution(nil)
	c.method.Seed(sol)
	c.logger.Debug().Float64("time", c.tc.InitTime).Int("iterations", iterOrRow).Msg("operating point converged")
	return Result{Time: c.tc.InitTime, Solution: sol}, nil
}

// RunTransient drives the time loop spec.md §2 describes: advance the
// clock, Probe the predictor, let devices Load against the Newton
// controller until convergence, Evaluate the accepted solution's LTE,
// and Accept or retry with a smaller step. onAccept is called once per
// accepted point, in order. ctx is checked between accepted points and
// between Newton iterations (via newton.Controller.Solve), matching
// spec.md §5's two cancellation checkpoints.
func (c *Circuit) RunTransient(ctx context.Context, onAccept func(Result)) error {
	delta := c.tc.Step

	for c.method.Ring().At(1).Time < c.tc.FinalTime {
		if ctx.Err() != nil {
			return nil
		}

		delta = c.method.Continue(delta)
		c.method.Probe(delta)

		cur := c.method.Ring().Current()
		stamp := mna.NewStamp(c.eq)
		c.eq.SetSolution(cur.Solution)
		state := c.method.LoadState(stamp)

		outcome, iterOrRow, residual, err := c.newton.Solve(ctx, state, c.devices)
		// Singular before err, same reasoning as OperatingPoint: Solve
		// never returns Singular with a nil err, so checking err first
		// would always shadow the typed Singular error with a bare wrap.
		if outcome == newton.Singular {
			return singularAt(cur.Time, iterOrRow)
		}
		if err != nil {
			return errors.WithStack(err)
		}

		if outcome != newton.Converged {
			delta = c.method.NonConvergence()
			c.logger.Warn().Float64("time", cur.Time).Float64("residual", residual).Msg("newton iteration did not converge, retrying with a smaller step")
			if delta < c.tc.MinStep {
				return nonConvergenceAt(cur.Time, residual)
			}
			continue
		}

		copy(cur.Solution, c.eq.Solution(nil))

		ok, deltaNext := c.method.Evaluate()
		if !ok {
			delta = deltaNext
			if delta < c.tc.MinStep {
				return timestepTooSmallAt(cur.Time)
			}
			c.logger.Debug().Float64("time", cur.Time).Float64("delta", delta).Msg("step rejected on local truncation error")
			continue
		}

		c.method.Accept()
		delta = deltaNext
		c.logger.Debug().Float64("time", cur.Time).Int("order", cur.Order).Int("iterations", iterOrRow).Msg("step accepted")
		if onAccept != nil {
			onAccept(Result{Time: cur.Time, Solution: append([]float64(nil), cur.Solution...)})
		}
	}
	return nil
}
