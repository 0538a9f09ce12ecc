package integrate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBackwardEulerCoefficients(t *testing.T) {
	c := backwardEulerCoefficients()
	require.Equal(t, []float64{1, -1}, c.A)
	require.Equal(t, 0.0, c.PriorDerivWeight)
}

func TestTrapezoidalCoefficientsCarryPriorDerivative(t *testing.T) {
	c := trapezoidalCoefficients()
	require.Equal(t, []float64{2, -2}, c.A)
	require.Equal(t, -1.0, c.PriorDerivWeight)
}

// bdfCoefficients works in step-ratio-normalized units: neither it nor
// its caller (Engine.coefficientsFor) divides by the actual delta; that
// happens only once, in tstate.Integrate's gEq = coefficients[0]/delta. So these weights are
// dimensionless regardless of the physical step size, as long as the
// ratios between deltas[1:] and deltas[0] stay the same.
func TestBDFOrderOneIsUnitWeightRegardlessOfStepSize(t *testing.T) {
	a := bdfCoefficients(1, []float64{0.5})
	require.InDelta(t, 1.0, a[0], 1e-12)
	require.InDelta(t, -1.0, a[1], 1e-12)
}

// TestBDFOrderTwoEqualStepsMatchesTheKnownFormula checks the
// second-order BDF weights against the textbook constant-step
// formula ẏ0 ≈ (3y0 - 4y1 + y2)/(2δ): once gEq=a[0]/δ is applied by
// the caller, a[0]=3/2 recovers the 3/(2δ) leading term.
func TestBDFOrderTwoEqualStepsMatchesTheKnownFormula(t *testing.T) {
	a := bdfCoefficients(2, []float64{0.1, 0.1})
	require.InDelta(t, 1.5, a[0], 1e-9)
	require.InDelta(t, -2.0, a[1], 1e-9)
	require.InDelta(t, 0.5, a[2], 1e-9)
}

func TestBDFCoefficientsSumToZero(t *testing.T) {
	// The derivative of a constant function is zero, so the weights
	// applied to equal y values must cancel, for any order/step mix.
	a := bdfCoefficients(3, []float64{0.1, 0.2, 0.15})
	sum := 0.0
	for _, v := range a {
		sum += v
	}
	require.InDelta(t, 0.0, sum, 1e-9)
}

func TestLagrangeValueWeightsReproduceANode(t *testing.T) {
	times := []float64{0.3, 0.2, 0.1}
	w := lagrangeValueWeights(0.2, times)
	require.InDelta(t, 0.0, w[0], 1e-12)
	require.InDelta(t, 1.0, w[1], 1e-12)
	require.InDelta(t, 0.0, w[2], 1e-12)
}

func TestLagrangeValueWeightsSumToOne(t *testing.T) {
	times := []float64{0.3, 0.2, 0.1}
	w := lagrangeValueWeights(0.35, times)
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}
