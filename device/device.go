// Package device defines the capability-interface contract the engine
// demands of loading behaviors, spec.md §9's replacement for the
// teacher's virtual-method-plus-factory-registry dispatch. There is no
// global mutable registry: a simulation builder assembles an explicit
// slice of Devices and threads it into the engine.
package device

import (
	"github.com/fly204/spicesim/integrate"
	"github.com/fly204/spicesim/mna"
)

// Device is the capability set the engine requires of every loading
// behavior. Setup/Unsetup bracket a run; Load is called once per
// Newton iteration, as many times as convergence takes.
type Device interface {
	// Name identifies the device for diagnostics (errors, logging).
	Name() string

	// Setup acquires matrix handles for the device's nodes/branches,
	// creates any TruncatableStates it needs, and may insert breakpoints
	// for known event times (e.g. a pulse source's edges). Called once,
	// after topology is frozen and after the engine's Setup and
	// Initialize.
	Setup(ctx *Context) error

	// Load stamps the device's contribution into the matrix and RHS
	// for the current linearization. Called once per Newton
	// iteration; must be pure with respect to everything except
	// state.Stamp and the device's own TruncatableStates — the engine
	// guarantees state.Time/Delta/Order/Coefficients and the
	// predicted solution are stable across repeated calls within one
	// iteration.
	Load(state integrate.LoadState) error

	// Unsetup releases anything Setup allocated. Called once at the
	// end of a run, including on cancellation or fatal error.
	Unsetup()
}

// Tracker is the optional capability a device implements when it owns
// one or more TruncatableStates that should be polled for LTE during
// Evaluate. Most devices derive their state via
// integrate.Engine.CreateDerivative(track=true) in Setup and never
// need to implement this themselves; it exists for devices that want
// to report a custom truncation-error signal beyond the plain
// TruncatableState.Truncate poll (none of the basic library devices
// need it today). The engine does not check for Tracker or call Track:
// Evaluate polls only the states created with track set.
type Tracker interface {
	Device
	Track() float64
}

// Context is what Setup gives a device to register itself with the
// engine: state/breakpoint creation and the Binding used to acquire
// stable matrix-element handles. Node and branch identifiers are
// assigned by the circuit builder before Setup runs (the
// netlist/topology layer is out of scope here — spec.md §3: "every
// node and branch is assigned a dense integer index during setup...
// stable for a run's lifetime"), so Context does not allocate them;
// devices that own a branch (VSource, Inductor) take their VoltageID
// as a constructor argument, the same way they take their node IDs.
type Context struct {
	Bind        *mna.Binding
	CreateState func(track bool) Derivative
	Breakpoint  func(time float64)
}

// Derivative is the subset of tstate.TruncatableState devices use
// directly, kept narrow so device code depends only on this package.
type Derivative interface {
	SetValue(v float64)
	Value() float64
	Derivative() float64
	Integrate(coefficients []float64, priorDerivWeight, delta float64) (gEq, iEq float64)
}
