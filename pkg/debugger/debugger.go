// Package debugger provides interactive debugging for a running
// simulation: breakpoints keyed on simulation time rather than a program
// counter, and watchpoints keyed on named signals rather than memory
// addresses. Grounded in shape on the teacher's pkg/debugger/debugger.go
// (Config struct, HistoryEntry ring buffer, breakpoint-map command
// dispatch, box-drawn display panels) reworked for the HDL domain.
package debugger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/oisee/hdlsim/pkg/signal"
)

// Observable is the narrow surface a watched signal must offer: its
// current value, the inner cell that fires Observer callbacks, and the
// ability to register an observer.
type Observable interface {
	Val() interface{}
	Core() *signal.Signal
	AddObserver(o signal.Observer)
}

// WatchKind selects which transitions of a watched signal pause the
// debugger.
type WatchKind int

const (
	WatchAny WatchKind = iota
	WatchRise
	WatchFall
)

// Debugger drives a Scheduler one time unit at a time, pausing for
// interactive commands when a breakpoint time is reached, a watched
// signal transitions, or the user steps explicitly.
type Debugger struct {
	sched      Scheduler
	breakpoints map[uint64]bool
	watches     map[string]*watch
	history     []HistoryEntry
	maxHistory  int

	stepMode bool
	running  bool
	pending  string // message describing the watchpoint/breakpoint hit that paused us

	input  *bufio.Scanner
	output io.Writer
}

// Scheduler is the narrow surface the debugger needs to drive a
// simulation: advance it by a bounded number of time units and read the
// current time.
type Scheduler interface {
	Run(duration uint64) (bool, error)
	CurrentTime() uint64
}

type watch struct {
	name string
	sig  Observable
	kind WatchKind
	last interface{}
}

// HistoryEntry records one observed signal transition.
type HistoryEntry struct {
	Time  uint64
	Name  string
	Value interface{}
}

// Config holds debugger configuration.
type Config struct {
	MaxHistory int
	Input      io.Reader
	Output     io.Writer
}

// New creates a debugger driving sched.
func New(sched Scheduler, config *Config) *Debugger {
	if config == nil {
		config = &Config{}
	}
	if config.MaxHistory == 0 {
		config.MaxHistory = 100
	}
	if config.Input == nil {
		config.Input = os.Stdin
	}
	if config.Output == nil {
		config.Output = os.Stdout
	}

	return &Debugger{
		sched:       sched,
		breakpoints: make(map[uint64]bool),
		watches:     make(map[string]*watch),
		maxHistory:  config.MaxHistory,
		input:       bufio.NewScanner(config.Input),
		output:      config.Output,
	}
}

// Watch registers sig as a named watchpoint of the given kind, so its
// transitions are recorded in history and, for this kind, pause the
// debugger.
func (d *Debugger) Watch(name string, sig Observable, kind WatchKind) {
	w := &watch{name: name, sig: sig, kind: kind, last: sig.Val()}
	d.watches[name] = w
	sig.AddObserver(d)
}

// OnChange implements signal.Observer: record every watched transition,
// and flag the ones matching their watch's kind to pause the debugger.
func (d *Debugger) OnChange(s *signal.Signal) []signal.Waiter {
	for name, w := range d.watches {
		if w.sig.Core() != s {
			continue
		}
		prev, next := w.last, w.sig.Val()
		w.last = next
		d.record(name, next)
		if watchFires(w.kind, prev, next) {
			d.pending = fmt.Sprintf("watchpoint %s: %v -> %v", name, prev, next)
		}
	}
	return nil
}

func watchFires(kind WatchKind, prev, next interface{}) bool {
	switch kind {
	case WatchRise:
		return prev == false && next == true
	case WatchFall:
		return prev == true && next == false
	default:
		return prev != next
	}
}

func (d *Debugger) record(name string, v interface{}) {
	if len(d.history) >= d.maxHistory {
		d.history = d.history[1:]
	}
	d.history = append(d.history, HistoryEntry{Time: d.sched.CurrentTime(), Name: name, Value: v})
}

// SetBreakpoint pauses the debugger the instant simulation time reaches t.
func (d *Debugger) SetBreakpoint(t uint64) {
	d.breakpoints[t] = true
	fmt.Fprintf(d.output, "Breakpoint set at t=%d\n", t)
}

// DeleteBreakpoint removes a previously set breakpoint.
func (d *Debugger) DeleteBreakpoint(t uint64) {
	delete(d.breakpoints, t)
	fmt.Fprintf(d.output, "Breakpoint deleted at t=%d\n", t)
}

// Run starts the interactive debugger loop: advance the simulation one
// time unit at a time, pausing for commands whenever a breakpoint or
// watchpoint fires or the user is already stepping. If the simulation ends
// while running freely, Run reports it and returns.
func (d *Debugger) Run() error {
	d.printBanner()
	d.display()

	for {
		if d.breakpoints[d.sched.CurrentTime()] {
			fmt.Fprintf(d.output, "\nBreakpoint hit at t=%d\n", d.sched.CurrentTime())
			d.stepMode = true
			d.running = false
		}
		if d.pending != "" {
			fmt.Fprintf(d.output, "\n%s\n", d.pending)
			d.pending = ""
			d.stepMode = true
			d.running = false
		}

		if !d.running && !d.stepMode {
			d.stepMode = true
		}

		if d.running {
			done, err := d.advance(1)
			if done {
				fmt.Fprintf(d.output, "Simulation ended: %v\n", err)
				return nil
			}
			continue
		}

		fmt.Fprint(d.output, "dbg> ")
		if !d.input.Scan() {
			return nil
		}
		cmd := strings.TrimSpace(d.input.Text())
		if cmd == "" {
			cmd = "s"
		}
		if err := d.handleCommand(cmd); err != nil {
			fmt.Fprintf(d.output, "Error: %v\n", err)
		}
		if !d.running {
			d.display()
		}
	}
}

// advance runs the scheduler for n time units. done is true once the
// simulation has genuinely ended (no more events) rather than merely
// suspended at the requested bound.
func (d *Debugger) advance(n uint64) (done bool, err error) {
	resumed, runErr := d.sched.Run(n)
	return !resumed, runErr
}

func (d *Debugger) handleCommand(cmd string) error {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "h", "help", "?":
		d.printHelp()

	case "s", "step":
		n := uint64(1)
		if len(parts) > 1 {
			if v, err := strconv.ParseUint(parts[1], 10, 64); err == nil {
				n = v
			}
		}
		done, err := d.advance(n)
		if done {
			fmt.Fprintf(d.output, "Simulation ended: %v\n", err)
		} else {
			fmt.Fprintf(d.output, "Advanced to t=%d\n", d.sched.CurrentTime())
		}

	case "c", "continue", "run":
		d.stepMode = false
		d.running = true
		fmt.Fprintln(d.output, "Running...")

	case "b", "break":
		if len(parts) < 2 {
			d.listBreakpoints()
		} else {
			t, err := strconv.ParseUint(parts[1], 10, 64)
			if err != nil {
				return fmt.Errorf("bad time %q: %w", parts[1], err)
			}
			d.SetBreakpoint(t)
		}

	case "d", "delete":
		if len(parts) < 2 {
			fmt.Fprintln(d.output, "Usage: delete <time>")
		} else {
			t, err := strconv.ParseUint(parts[1], 10, 64)
			if err != nil {
				return fmt.Errorf("bad time %q: %w", parts[1], err)
			}
			d.DeleteBreakpoint(t)
		}

	case "w", "watch":
		if len(parts) < 2 {
			d.listWatchpoints()
		} else {
			fmt.Fprintf(d.output, "Usage: use Watch(name, signal, kind) from Go code before Run; %q is not a bindable signal from the command line\n", parts[1])
		}

	case "sig", "signals":
		d.displaySignals()

	case "history", "hist":
		d.displayHistory()

	case "q", "quit", "exit":
		fmt.Fprintln(d.output, "Goodbye!")
		os.Exit(0)

	default:
		fmt.Fprintf(d.output, "Unknown command: %s (type 'help' for commands)\n", parts[0])
	}

	return nil
}

func (d *Debugger) display() {
	d.displaySignals()
}

func (d *Debugger) displaySignals() {
	fmt.Fprintln(d.output, "----------------------------------------")
	fmt.Fprintf(d.output, "t=%d\n", d.sched.CurrentTime())
	if len(d.watches) == 0 {
		fmt.Fprintln(d.output, "(no watched signals)")
	}
	for name, w := range d.watches {
		fmt.Fprintf(d.output, "  %-16s = %v\n", name, w.sig.Val())
	}
	fmt.Fprintln(d.output, "----------------------------------------")
}

func (d *Debugger) printBanner() {
	fmt.Fprintln(d.output, "hdlsim interactive debugger")
	fmt.Fprintln(d.output, "Type 'help' for commands, 's' to step, 'c' to continue")
	fmt.Fprintln(d.output)
}

func (d *Debugger) printHelp() {
	fmt.Fprintln(d.output, "Commands:")
	fmt.Fprintln(d.output, "  s/step [n]       - advance n time units (default 1)")
	fmt.Fprintln(d.output, "  c/continue/run   - run until a breakpoint or the simulation ends")
	fmt.Fprintln(d.output, "  b/break <t>      - set a breakpoint at simulation time t")
	fmt.Fprintln(d.output, "  d/delete <t>     - delete a breakpoint")
	fmt.Fprintln(d.output, "  w/watch          - list watchpoints (bind new ones via Debugger.Watch)")
	fmt.Fprintln(d.output, "  sig/signals      - show every watched signal's current value")
	fmt.Fprintln(d.output, "  history/hist     - show recorded signal transitions")
	fmt.Fprintln(d.output, "  q/quit           - exit the debugger")
}

func (d *Debugger) listBreakpoints() {
	if len(d.breakpoints) == 0 {
		fmt.Fprintln(d.output, "No breakpoints set")
		return
	}
	fmt.Fprintln(d.output, "Breakpoints:")
	for t := range d.breakpoints {
		fmt.Fprintf(d.output, "  t=%d\n", t)
	}
}

func (d *Debugger) listWatchpoints() {
	if len(d.watches) == 0 {
		fmt.Fprintln(d.output, "No watchpoints set")
		return
	}
	fmt.Fprintln(d.output, "Watchpoints:")
	for name, w := range d.watches {
		fmt.Fprintf(d.output, "  %s (%s)\n", name, watchKindString(w.kind))
	}
}

func (d *Debugger) displayHistory() {
	if len(d.history) == 0 {
		fmt.Fprintln(d.output, "No history")
		return
	}
	fmt.Fprintln(d.output, "Recorded transitions:")
	for i, entry := range d.history {
		fmt.Fprintf(d.output, "%3d: t=%-6d %-16s -> %v\n", i, entry.Time, entry.Name, entry.Value)
	}
}

func watchKindString(kind WatchKind) string {
	switch kind {
	case WatchRise:
		return "rise"
	case WatchFall:
		return "fall"
	default:
		return "any"
	}
}
