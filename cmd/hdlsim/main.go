// Command hdlsim runs a Lua testbench script against the simulation
// kernel: the script declares its own signal graph and drives it, this
// binary only supplies the scheduler loop, optional VCD tracing, and an
// optional cosimulation link to an external process. Grounded in
// structure on the teacher's cmd/mze/main.go - a single cobra.Command
// with a long, sectioned Long help block and a flat set of --flags, no
// subcommands.
package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oisee/hdlsim/pkg/bitvector"
	"github.com/oisee/hdlsim/pkg/cosim"
	"github.com/oisee/hdlsim/pkg/herrors"
	"github.com/oisee/hdlsim/pkg/script"
	"github.com/oisee/hdlsim/pkg/sim"
	"github.com/oisee/hdlsim/pkg/signal"
	"github.com/oisee/hdlsim/pkg/timescale"
	"github.com/oisee/hdlsim/pkg/vcd"
)

var (
	duration    uint64
	traceFile   string
	timescaleFl string
	quiet       bool
	cosimCmd    string
)

var rootCmd = &cobra.Command{
	Use:   "hdlsim [script.lua]",
	Short: "hdlsim discrete-event simulation kernel",
	Long: `hdlsim - discrete-event hardware simulation kernel
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
Runs a Lua testbench script as the only process argument to the
scheduler. The script declares its own signal graph with
signal.declare(name, kind[, width]) and drives it with signal.set/
signal.get/signal.wait - no compiled-in Go design is required.

FEATURES:
  • VCD tracing of every signal the script declares (--trace)
  • Configurable VCD timescale, named or literal (--timescale)
  • Cosimulation link to an external process over stdin/stdout pipes
    (--cosim), symmetric pass-through of every declared signal

EXAMPLES:
  hdlsim counter.lua                       # run to completion
  hdlsim --duration 100 counter.lua        # run 100 time units
  hdlsim --trace counter.vcd counter.lua   # trace every declared signal
  hdlsim --timescale 10ps counter.lua      # VCD timestamps in 10ps units
  hdlsim --cosim "./refmodel --pipe" counter.lua`,
	Args: cobra.ExactArgs(1),
	RunE: runHdlsim,
}

func init() {
	rootCmd.Flags().Uint64Var(&duration, "duration", 0, "time units to run (0 = until the simulation stops on its own)")
	rootCmd.Flags().StringVar(&traceFile, "trace", "", "write a VCD trace of every declared signal to this path")
	rootCmd.Flags().StringVar(&timescaleFl, "timescale", "1ns", "VCD timescale: a preset (ns, ps, ...) or a literal like 10ps")
	rootCmd.Flags().BoolVar(&quiet, "quiet", false, "suppress the final run-summary line")
	rootCmd.Flags().StringVar(&cosimCmd, "cosim", "", "shell command line of an external cosimulation process")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runHdlsim(cmd *cobra.Command, args []string) error {
	scriptPath := args[0]
	code, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", scriptPath, err)
	}

	ts, err := timescale.Parse(timescaleFl)
	if err != nil {
		return err
	}

	sched := sim.New()
	eng := script.New()
	if err := eng.Run(sched, "testbench", string(code)); err != nil {
		return fmt.Errorf("running %s: %w", scriptPath, err)
	}

	var tr *vcd.Tracer
	if traceFile != "" {
		tr, err = vcd.New(traceFile, ts.String(), sched)
		if err != nil {
			return err
		}
		if err := traceDeclaredSignals(tr, eng); err != nil {
			return err
		}
		if err := tr.Finish(); err != nil {
			return err
		}
		defer tr.Close()
	}

	if cosimCmd != "" {
		if err := wireCosim(sched, eng, cosimCmd); err != nil {
			return err
		}
	}

	resumed, runErr := sched.Run(duration)
	if !quiet {
		reportOutcome(sched, resumed, runErr)
	}
	var stopped *herrors.StopSimulation
	if runErr != nil && !resumed && !errors.As(runErr, &stopped) {
		return runErr
	}
	return nil
}

// traceDeclaredSignals registers every signal reachable from the
// testbench script under a single "top" scope, sorted by name so a VCD
// diff between two runs of the same script is stable.
func traceDeclaredSignals(tr *vcd.Tracer, eng *script.Engine) error {
	names := sortedSignalNames(eng)
	return tr.Scope("top", func() error {
		for _, name := range names {
			tsig, ok := eng.Signals()[name].(vcd.Traceable)
			if !ok {
				continue
			}
			if err := tr.Trace(name, tsig); err != nil {
				return err
			}
		}
		return nil
	})
}

func sortedSignalNames(eng *script.Engine) []string {
	names := make([]string, 0, len(eng.Signals()))
	for name := range eng.Signals() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// cosimSignal is the surface a declared signal needs to be wired
// symmetrically (as both an input and an output) into a cosimulation
// link: readable and writable for the Go side, observable and waitable
// for the Adapter and its sensitivity process.
type cosimSignal interface {
	Val() interface{}
	SetNext(v interface{}) error
	Core() *signal.Signal
	AddObserver(o signal.Observer)
	signal.Waitable
}

// wireCosim starts the external process named by cmdline and binds every
// signal the testbench declared as both a cosim input and output, so
// whichever side - the script or the external process - changes a
// signal first, the other side observes it on the next sync. Grounded
// on pkg/cosim's existing Adapter/PipeTransport contract; this binary
// supplies only the naming (the declared signal's own name) and the
// generic string<->value codec.
func wireCosim(sched *sim.Scheduler, eng *script.Engine, cmdline string) error {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return fmt.Errorf("--cosim: empty command")
	}
	transport, err := cosim.NewPipeTransport(fields[0], fields[1:]...)
	if err != nil {
		return err
	}
	adapter := cosim.New(transport)

	var waitables []signal.Waitable
	for _, name := range sortedSignalNames(eng) {
		sig, ok := eng.Signals()[name].(cosimSignal)
		if !ok {
			continue
		}
		adapter.BindInput(name, sig, parseAsCurrent(sig.Val()))
		adapter.BindOutput(name, sig, formatValue)
		waitables = append(waitables, sig)
	}

	sched.SetCosim(adapter)
	return adapter.Spawn(sched, waitables...)
}

// parseAsCurrent returns a parser that decodes a cosim wire value against
// the Go type current currently holds, the same dispatch-on-current-value
// idea pkg/script's fromLuaValue uses for signal.set. The value comes from
// an external process over the wire, so - exactly like fromLuaValue - a
// bit vector is built with the unsized, non-panicking bitvector.New and
// left to the eventual SetNext's domain validation to reject an
// out-of-range value with herrors.ValueOutOfRangeError; NewWidth's own
// doc comment reserves it for callers constructing literals, not
// arbitrary external input.
func parseAsCurrent(current interface{}) func(string) (interface{}, error) {
	return func(s string) (interface{}, error) {
		switch current.(type) {
		case bool:
			return strconv.ParseBool(s)
		case int64:
			return strconv.ParseInt(s, 0, 64)
		case *bitvector.BitVector:
			n, err := strconv.ParseInt(s, 0, 64)
			if err != nil {
				return nil, err
			}
			return bitvector.New(n), nil
		default:
			return s, nil
		}
	}
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "1"
		}
		return "0"
	case *bitvector.BitVector:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

func reportOutcome(sched *sim.Scheduler, resumed bool, err error) {
	if resumed {
		fmt.Printf("suspended at t=%d (%v)\n", sched.CurrentTime(), err)
		return
	}
	var stopped *herrors.StopSimulation
	if errors.As(err, &stopped) {
		fmt.Printf("stopped at t=%d: %v\n", sched.CurrentTime(), err)
		return
	}
	fmt.Printf("failed at t=%d: %v\n", sched.CurrentTime(), err)
}
