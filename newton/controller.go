// Package newton implements the iteration controller spec.md §4.3
// names: the Newton-Raphson loop that calls device Load stamps,
// invokes the LU solver, and checks convergence for one time point.
// It is modeled on the teacher's TimeMNA residual/convergence
// bookkeeping (mna/time/time.go) — dynamic residual tolerance,
// iteration counters, a tagged outcome instead of an exception — sized
// down from the teacher's 3rd-order Adams predictor-corrector to the
// plain Newton loop spec.md §4.3 specifies, since the multistep
// predictor/corrector role there belongs to integrate.Engine.
package newton

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/fly204/spicesim/device"
	"github.com/fly204/spicesim/integrate"
	"github.com/fly204/spicesim/mna"
)

// Outcome tags how a Solve call ended: no exceptions in the inner
// loop, per spec.md §9.
type Outcome int

const (
	// Converged: the solution satisfies the per-unknown test below.
	Converged Outcome = iota
	// Diverged: maxIter exceeded without convergence.
	Diverged
	// Singular: the LU factor hit a (near-)zero pivot.
	Singular
)

// Config bounds the loop. MaxIter defaults to 100 per spec.md §6.
type Config struct {
	MaxIter int
	RelTol  float64
	AbsTol  float64
}

// Controller drives PREDICT → STAMP → SOLVE → TEST →
// (CONVERGED | ITERATE | DIVERGED) for one time point.
type Controller struct {
	cfg     Config
	eq      *mna.Equations
	prev    []float64
	current []float64
}

// New builds a controller bound to eq, the assembled MNA system it
// will stamp and solve repeatedly.
func New(cfg Config, eq *mna.Equations) *Controller {
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 100
	}
	n := eq.Dim()
	return &Controller{cfg: cfg, eq: eq, prev: make([]float64, n), current: make([]float64, n)}
}

// Solve runs Newton iterations to convergence against the given
// devices, using state for the shared time/delta/order/coefficients
// view every Load call receives. It stops early (Singular) on a
// singular factorization, and returns Diverged once iter reaches
// cfg.MaxIter without the per-unknown test passing.
//
// The returned int is the iteration count for Converged/Diverged, and
// the offending matrix row for Singular.
//
// ctx is checked between iterations, per spec.md §5's cooperative-
// cancellation rule; a cancelled context aborts with Diverged so the
// caller (the simulation driver) can fall back to its last accepted
// state.
func (c *Controller) Solve(ctx context.Context, state integrate.LoadState, devices []device.Device) (Outcome, int, float64, error) {
	n := c.eq.Dim()
	c.eq.Solution(c.prev)

	for iter := 1; iter <= c.cfg.MaxIter; iter++ {
		if ctx.Err() != nil {
			return Diverged, iter, c.residual(), nil
		}

		c.eq.Clear()
		for _, d := range devices {
			if err := d.Load(state); err != nil {
				return Diverged, iter, c.residual(), err
			}
		}

		factor, ok, row := c.eq.A.Factor()
		if !ok {
			return Singular, row, c.residual(), singularError(row)
		}
		if err := factor.Solve(c.eq.Z, c.eq.X); err != nil {
			return Singular, -1, c.residual(), err
		}

		c.eq.Solution(c.current)
		converged := true
		for i := 0; i < n; i++ {
			tol := c.cfg.RelTol*math.Max(math.Abs(c.current[i]), math.Abs(c.prev[i])) + c.cfg.AbsTol
			if math.Abs(c.current[i]-c.prev[i]) > tol {
				converged = false
				break
			}
		}
		if converged {
			return Converged, iter, c.residual(), nil
		}
		copy(c.prev, c.current)
	}
	return Diverged, c.cfg.MaxIter, c.residual(), nil
}

// residual reports the infinity-norm KCL residual ‖A·x - z‖∞, the
// quantity spec.md §8's accepted-solution invariant bounds.
func (c *Controller) residual() float64 {
	return c.eq.Residual()
}

func singularError(row int) error {
	return errors.Errorf("singular matrix at row %d", row)
}
