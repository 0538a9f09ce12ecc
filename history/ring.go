// Package history implements the bounded circular history of solved
// time points spec.md §3 names IntegrationState/"history ring".
package history

// State is one IntegrationState: the solved unknown vector at a given
// simulated time, the step size taken to reach it, and the order in
// effect when it was accepted.
type State struct {
	Time     float64
	Delta    float64
	Order    int
	Solution []float64
}

// Ring is the ordered sequence of MaxOrder+2 States, index 0 the
// current (being computed) point and indices 1.. accepted history,
// oldest highest.
type Ring struct {
	states   []State
	maxOrder int
}

// NewRing allocates a ring sized for maxOrder and unknowns unknowns
// per point.
func NewRing(maxOrder, unknowns int) *Ring {
	states := make([]State, maxOrder+2)
	for i := range states {
		states[i].Solution = make([]float64, unknowns)
	}
	return &Ring{states: states, maxOrder: maxOrder}
}

// MaxOrder returns the integration method's configured maximum order.
func (r *Ring) MaxOrder() int { return r.maxOrder }

// Len is the number of slots in the ring (MaxOrder+2).
func (r *Ring) Len() int { return len(r.states) }

// At returns a pointer to slot i (0 is current, 1.. is history).
func (r *Ring) At(i int) *State { return &r.states[i] }

// Current is a convenience alias for At(0).
func (r *Ring) Current() *State { return &r.states[0] }

// Shift rotates the ring by one slot: the current point becomes the
// newest history entry, every entry moves one slot older, and the
// slot that falls off the back is reused as the new current, its old
// fields left in place until Probe overwrites them — no reallocation,
// per spec.md's arena-owned-by-the-engine discipline.
func (r *Ring) Shift() {
	n := len(r.states)
	oldest := r.states[n-1]
	copy(r.states[1:], r.states[:n-1])
	r.states[0] = oldest
}

// Times copies the first n slots' Time fields, in ring order, for
// callers (tstate.Truncate's divided-difference computation) that need
// a plain slice of simulated times.
func (r *Ring) Times(n int) []float64 {
	if n > len(r.states) {
		n = len(r.states)
	}
	times := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = r.states[i].Time
	}
	return times
}

// Reset zeros every slot's Time/Delta/Order and solution vector,
// called from Initialize.
func (r *Ring) Reset() {
	for i := range r.states {
		r.states[i].Time = 0
		r.states[i].Delta = 0
		r.states[i].Order = 0
		for j := range r.states[i].Solution {
			r.states[i].Solution[j] = 0
		}
	}
}
