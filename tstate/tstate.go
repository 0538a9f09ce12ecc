// Package tstate implements the per-element TruncatableState spec.md
// §3/§4.2 describes: a dynamic device's history of one scalar quantity
// (in device/basic, a capacitor's voltage and an inductor's branch
// current, not their charge or flux) plus the two operations the
// integration method and the device both need — Integrate (companion
// model for the current Stamp) and Truncate (local truncation error
// estimate for step-size control).
package tstate

import "math"

// TruncatableState tracks one scalar quantity across the engine's
// history window. Index 0 is the current (being computed) point;
// indices 1..size-1 mirror history.Ring's accepted slots, oldest
// highest. The engine shifts every registered TruncatableState in
// lockstep with the ring on Accept, which is the "arena + index"
// discipline spec.md §9 calls for instead of a pointer back into the
// ring.
type TruncatableState struct {
	tracked bool
	value   []float64 // value[i]: quantity at state[i]
	deriv   []float64 // deriv[i]: its time-derivative at state[i]
}

// New allocates a state sized for a history window of maxOrder+2
// slots. tracked marks whether the engine's LTE poll should include
// this state (spec.md §4.1 CreateDerivative(track)).
func New(maxOrder int, tracked bool) *TruncatableState {
	n := maxOrder + 2
	return &TruncatableState{tracked: tracked, value: make([]float64, n), deriv: make([]float64, n)}
}

// Tracked reports whether Truncate should be polled for this state.
func (t *TruncatableState) Tracked() bool { return t.tracked }

// SetValue records the quantity's value at the current point (slot 0).
// Devices call this during Load, before Integrate.
func (t *TruncatableState) SetValue(v float64) { t.value[0] = v }

// Value returns the quantity's value at the current point.
func (t *TruncatableState) Value() float64 { return t.value[0] }

// Derivative returns the most recently integrated derivative at the
// current point.
func (t *TruncatableState) Derivative() float64 { return t.deriv[0] }

// Shift rotates the history window by one slot, called by the engine
// on Accept in the same beat it shifts history.Ring.
func (t *TruncatableState) Shift() {
	copy(t.value[1:], t.value[:len(t.value)-1])
	copy(t.deriv[1:], t.deriv[:len(t.deriv)-1])
}

// Integrate computes the derivative at the current point from the
// Gear/BDF coefficients a[0..k] (ẏ(t0) ≈ (1/δ)·Σ a[i]·y(t_i)) and
// returns the resistive companion-model pair (g_eq, i_eq) such that
// ẏ ≈ g_eq·y + i_eq, which is what the caller's device stamps as an
// equivalent conductance plus a history current source.
//
// priorDerivWeight carries the trapezoidal method's extra dependence
// on the previously integrated derivative (ẏ0 = (2/δ)(y0-y1) - ẏ1);
// Gear/BDF passes 0, contributing nothing beyond the value history.
func (t *TruncatableState) Integrate(coefficients []float64, priorDerivWeight, delta float64) (gEq, iEq float64) {
	sum := 0.0
	for i := 1; i < len(coefficients); i++ {
		sum += coefficients[i] * t.value[i]
	}
	gEq = coefficients[0] / delta
	iEq = sum/delta + priorDerivWeight*t.deriv[1]
	t.deriv[0] = gEq*t.value[0] + iEq
	return gEq, iEq
}

// Truncate estimates the largest next step size keeping this state's
// local truncation error under tolerance, per spec.md's SPICE formula
//
//	δ_max = (TrTol·ε) / |Δ^(k+1) y|^(1/(k+1))
//
// where Δ^(k+1) y is the (order+1)-th divided difference of the value
// history across times[0..order+1] and ε = RelTol·max(|y|,|ẏ|)+AbsTol.
// times must hold at least order+2 entries, state[0].time first,
// descending, matching the history.Ring convention. The result is
// clamped to [minStep, +Inf).
func (t *TruncatableState) Truncate(order int, times []float64, trTol, relTol, absTol, minStep float64) float64 {
	dd := math.Abs(dividedDifference(t.value, times, order+1))
	eps := relTol*math.Max(math.Abs(t.value[0]), math.Abs(t.deriv[0])) + absTol
	var deltaMax float64
	if dd == 0 {
		deltaMax = math.MaxFloat64
	} else {
		deltaMax = trTol * eps / math.Pow(dd, 1/float64(order+1))
	}
	if deltaMax < minStep {
		deltaMax = minStep
	}
	return deltaMax
}

// dividedDifference computes the m-th order divided difference of y
// over the first m+1 points of times, using Neville's recursive
// definition: f[i,i] = y[i], f[i,i+k] = (f[i,i+k-1]-f[i+1,i+k]) /
// (times[i]-times[i+k]).
func dividedDifference(y, times []float64, m int) float64 {
	if m >= len(y) || m >= len(times) {
		m = len(y) - 1
	}
	table := make([]float64, m+1)
	copy(table, y[:m+1])
	for k := 1; k <= m; k++ {
		for i := 0; i <= m-k; i++ {
			table[i] = (table[i] - table[i+1]) / (times[i] - times[i+k])
		}
	}
	return table[0]
}
