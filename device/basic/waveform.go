package basic

import "math"

// Waveform is a time-domain source function. Grounded in
// element/base/Voltage.go's waveform switch, narrowed to the four
// kinds spec.md §4.6 calls for (DC, Pulse, Sine, Step) — the teacher's
// square/triangle/sawtooth/noise variants aren't named by the spec and
// are left out rather than carried along unused.
type Waveform interface {
	// Value returns the source's value at time t.
	Value(t float64) float64
	// Breakpoints returns the times (if any) this waveform needs the
	// engine to land on exactly, e.g. a pulse's edges.
	Breakpoints() []float64
}

// DC is a constant source.
type DC struct{ Value0 float64 }

func (w DC) Value(t float64) float64   { return w.Value0 }
func (w DC) Breakpoints() []float64    { return nil }

// Sine is a sinusoidal source: offset + amplitude·sin(2π·freq·t + phase).
type Sine struct {
	Offset, Amplitude, Freq, Phase float64
}

func (w Sine) Value(t float64) float64 {
	return w.Offset + w.Amplitude*math.Sin(2*math.Pi*w.Freq*t+w.Phase)
}
func (w Sine) Breakpoints() []float64 { return nil }

// Step is a single transition from Before to After at time At.
type Step struct {
	Before, After, At float64
}

func (w Step) Value(t float64) float64 {
	if t < w.At {
		return w.Before
	}
	return w.After
}
func (w Step) Breakpoints() []float64 { return []float64{w.At} }

// Pulse is a periodic trapezoidal pulse: Low until Delay, ramps to
// High over Rise, holds High for Width, ramps back to Low over Fall,
// then repeats every Period (Period<=0 means it never repeats).
type Pulse struct {
	Low, High                float64
	Delay, Rise, Width, Fall float64
	Period                   float64
}

func (w Pulse) Value(t float64) float64 {
	if t < w.Delay {
		return w.Low
	}
	t -= w.Delay
	if w.Period > 0 {
		t = math.Mod(t, w.Period)
	}
	switch {
	case t < w.Rise:
		if w.Rise == 0 {
			return w.High
		}
		return w.Low + (w.High-w.Low)*t/w.Rise
	case t < w.Rise+w.Width:
		return w.High
	case t < w.Rise+w.Width+w.Fall:
		if w.Fall == 0 {
			return w.Low
		}
		return w.High - (w.High-w.Low)*(t-w.Rise-w.Width)/w.Fall
	default:
		return w.Low
	}
}

func (w Pulse) Breakpoints() []float64 {
	edges := []float64{w.Delay, w.Delay + w.Rise, w.Delay + w.Rise + w.Width, w.Delay + w.Rise + w.Width + w.Fall}
	if w.Period <= 0 {
		return edges
	}
	// Only the first period's edges; later repeats are caught by the
	// engine's step-size control rather than an unbounded breakpoint
	// set, since Breakpoints has no notion of "until finalTime".
	return edges
}
