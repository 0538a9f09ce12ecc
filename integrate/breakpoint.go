package integrate

import "sort"

// Breakpoints is the monotonically ordered set of future simulation
// times the solver must land on exactly: source edges, user requests,
// and always finalTime. Duplicates coalesce.
type Breakpoints struct {
	times []float64
}

// NewBreakpoints creates a set seeded with finalTime, as spec.md §4.1
// Setup requires.
func NewBreakpoints(finalTime float64) *Breakpoints {
	return &Breakpoints{times: []float64{finalTime}}
}

// Insert adds t to the set, coalescing with an existing entry that
// differs from it by at most 1e-15·max(|t|, 1) (an absolute 1e-15 for
// times below one) rather than creating a near-duplicate breakpoint
// the snapping logic would otherwise have to straddle.
func (b *Breakpoints) Insert(t float64) {
	i := sort.Search(len(b.times), func(i int) bool { return b.times[i] >= t })
	if i < len(b.times) && nearlyEqual(b.times[i], t) {
		return
	}
	if i > 0 && nearlyEqual(b.times[i-1], t) {
		return
	}
	b.times = append(b.times, 0)
	copy(b.times[i+1:], b.times[i:])
	b.times[i] = t
}

func nearlyEqual(a, b float64) bool {
	const tol = 1e-15
	d := a - b
	if d < 0 {
		d = -d
	}
	scale := a
	if scale < 0 {
		scale = -scale
	}
	if scale < 1 {
		scale = 1
	}
	return d <= tol*scale
}

// First returns the earliest pending breakpoint.
func (b *Breakpoints) First() (float64, bool) {
	if len(b.times) == 0 {
		return 0, false
	}
	return b.times[0], true
}

// Second returns the breakpoint after the earliest one, used by the
// first-step snapping rule to avoid overshooting into it.
func (b *Breakpoints) Second() (float64, bool) {
	if len(b.times) < 2 {
		return 0, false
	}
	return b.times[1], true
}

// PopFirst removes and returns the earliest pending breakpoint.
func (b *Breakpoints) PopFirst() (float64, bool) {
	t, ok := b.First()
	if ok {
		b.times = b.times[1:]
	}
	return t, ok
}

// ClearThrough removes every breakpoint at or before t, called on
// Accept once the solver has landed past it.
func (b *Breakpoints) ClearThrough(t float64) {
	i := 0
	for i < len(b.times) && (b.times[i] < t || nearlyEqual(b.times[i], t)) {
		i++
	}
	b.times = b.times[i:]
}
