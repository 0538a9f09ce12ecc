// Command gospice runs a small RC-charging transient as a worked
// example of wiring sim.Circuit directly in Go, without a netlist
// parser — mna.NodeID/mna.VoltageID values are assigned by hand below,
// the same way RuiCat-circuit/cmd/main.go builds a circuit from Go
// calls before handing it to Simulate.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/fly204/spicesim/device"
	"github.com/fly204/spicesim/device/basic"
	"github.com/fly204/spicesim/integrate"
	"github.com/fly204/spicesim/mna"
	"github.com/fly204/spicesim/sim"
	"github.com/fly204/spicesim/trace"
)

func main() {
	const (
		supply mna.NodeID    = 0
		out    mna.NodeID    = 1
		vbr    mna.VoltageID = 0
	)

	v1 := basic.NewVSource("V1", supply, mna.Gnd, vbr, basic.DC{Value0: 5})
	r1 := basic.NewResistor("R1", supply, out, 1_000)
	c1 := basic.NewCapacitor("C1", out, mna.Gnd, 1e-6, 0)

	devices := []device.Device{v1, r1, c1}
	circuit := sim.NewCircuit(devices, 2, 1)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	circuit.SetLogger(logger)

	engine := integrate.NewGear(0)
	tc := sim.TimeConfiguration{InitTime: 0, FinalTime: 5e-3}
	sc := sim.SpiceConfiguration{}

	if err := circuit.Setup(tc, sc, engine); err != nil {
		logger.Fatal().Err(err).Msg("setup failed")
	}
	defer circuit.Unsetup()

	if _, err := circuit.OperatingPoint(); err != nil {
		logger.Fatal().Err(err).Msg("operating point failed")
	}

	recorder := trace.NewRecorder([]string{"V(supply)", "V(out)", "I(V1)"})
	recorder.Attach(engine)

	err := circuit.RunTransient(context.Background(), func(r sim.Result) {
		fmt.Printf("t=%.6g  V(out)=%.6g\n", r.Time, r.Solution[out])
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("transient run failed")
	}

	if err := recorder.PlotPNG("rc_charge.png"); err != nil {
		logger.Error().Err(err).Msg("plot export failed")
	}

	f, err := os.Create("rc_charge.html")
	if err != nil {
		logger.Error().Err(err).Msg("html export failed")
		return
	}
	defer f.Close()
	if err := recorder.WriteHTML(f); err != nil {
		logger.Error().Err(err).Msg("html export failed")
	}
}
