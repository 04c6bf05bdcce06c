// Command hdlsim-repl is an interactive front end to the simulation
// kernel: one scheduler and script engine, driven forward by :commands
// typed at a prompt rather than a single batch run. Grounded on two
// distinct teacher REPLs: cmd/mzr/main.go for the history-backed
// pkg/readline.Reader and its ":command" dispatch convention, and
// cmd/repl/main.go for the raw-terminal arrow-key line editor used when
// stdin actually is a TTY (golang.org/x/term).
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/oisee/hdlsim/pkg/bitvector"
	"github.com/oisee/hdlsim/pkg/cosim"
	"github.com/oisee/hdlsim/pkg/debugger"
	"github.com/oisee/hdlsim/pkg/readline"
	"github.com/oisee/hdlsim/pkg/script"
	"github.com/oisee/hdlsim/pkg/sim"
	"github.com/oisee/hdlsim/pkg/signal"
	"github.com/oisee/hdlsim/pkg/timescale"
	"github.com/oisee/hdlsim/pkg/vcd"
)

// REPL holds the one scheduler and script engine a session drives, plus
// whichever tracer and cosimulation adapter the user has wired in with
// :trace / :cosim.
type REPL struct {
	sched *sim.Scheduler
	eng   *script.Engine

	reader       *readline.Reader
	rawTerminal  bool
	oldTermState *term.State
	history      []string
	historyIdx   int

	tracer   *vcd.Tracer
	tracerTS timescale.Timescale
}

func newREPL() *REPL {
	homeDir, _ := os.UserHomeDir()
	historyFile := filepath.Join(homeDir, ".hdlsim_history")

	r := &REPL{
		sched:    sim.New(),
		eng:      script.New(),
		tracerTS: timescale.MustParse("1ns"),
	}
	r.reader = readline.NewReader(&readline.Config{
		HistoryFile: historyFile,
		MaxHistory:  1000,
		TimeFunc:    r.sched.CurrentTime,
	})
	r.rawTerminal = term.IsTerminal(int(os.Stdin.Fd()))
	return r
}

func main() {
	r := newREPL()
	r.Run()
}

func (r *REPL) Run() {
	r.printBanner()

	if r.rawTerminal {
		if old, err := term.MakeRaw(int(os.Stdin.Fd())); err == nil {
			r.oldTermState = old
			defer r.restoreTerminal()
		} else {
			r.rawTerminal = false
		}
	}

	for {
		line, ok := r.readLine("hdlsim> ")
		if !ok {
			fmt.Println("Goodbye!")
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(r.history) == 0 || r.history[len(r.history)-1] != line {
			r.history = append(r.history, line)
			r.reader.AddHistory(line, r.sched.CurrentTime())
		}

		if strings.HasPrefix(line, ":") {
			r.handleCommand(line)
		} else {
			fmt.Println("not a command: prefix with ':' (:help for a list)")
		}
	}
}

// readLine dispatches to the raw-terminal arrow-key editor when stdin is
// a TTY we successfully put into raw mode, and to pkg/readline.Reader's
// scanner-based reader (with its own history-file persistence) otherwise
// - a pipe, a redirected file, or a TTY raw mode failed to claim.
func (r *REPL) readLine(prompt string) (string, bool) {
	if r.rawTerminal {
		return r.readLineRaw(prompt)
	}
	r.reader.SetPrompt(prompt)
	line, err := r.reader.ReadLine()
	if err != nil {
		return "", false
	}
	return line, true
}

func (r *REPL) restoreTerminal() {
	if r.oldTermState != nil {
		term.Restore(int(os.Stdin.Fd()), r.oldTermState)
	}
}

// readLineRaw reads one line character at a time in raw terminal mode,
// supporting left/right/backspace editing and up/down history recall.
// Adapted from the teacher's cmd/repl readLineWithHistory, generalized
// from a fixed "minz>" prompt to whatever prompt the caller passes.
func (r *REPL) readLineRaw(prompt string) (string, bool) {
	fmt.Print(prompt)

	var line []rune
	cursor := 0
	r.historyIdx = len(r.history)

	redraw := func(from int) {
		fmt.Print("\033[K")
		fmt.Print(string(line[from:]))
		if back := len(line) - cursor; back > 0 {
			fmt.Printf("\033[%dD", back)
		}
	}

	for {
		var buf [3]byte
		n, err := os.Stdin.Read(buf[:])
		if err != nil {
			if err == io.EOF {
				return "", false
			}
			continue
		}
		if n == 0 {
			continue
		}

		switch {
		case buf[0] == 27 && n == 3 && buf[1] == '[':
			switch buf[2] {
			case 'A':
				if r.historyIdx > 0 {
					r.historyIdx--
					fmt.Printf("\033[%dD\033[K", cursor)
					line = []rune(r.history[r.historyIdx])
					cursor = len(line)
					fmt.Print(string(line))
				}
			case 'B':
				if r.historyIdx < len(r.history)-1 {
					r.historyIdx++
					fmt.Printf("\033[%dD\033[K", cursor)
					line = []rune(r.history[r.historyIdx])
					cursor = len(line)
					fmt.Print(string(line))
				} else {
					r.historyIdx = len(r.history)
					fmt.Printf("\033[%dD\033[K", cursor)
					line = nil
					cursor = 0
				}
			case 'C':
				if cursor < len(line) {
					fmt.Print("\033[1C")
					cursor++
				}
			case 'D':
				if cursor > 0 {
					fmt.Print("\033[1D")
					cursor--
				}
			}

		case buf[0] == 13 || buf[0] == 10:
			fmt.Println()
			return string(line), true

		case buf[0] == 3: // Ctrl+C
			fmt.Println("^C")
			return "", true

		case buf[0] == 4: // Ctrl+D
			if len(line) == 0 {
				return "", false
			}

		case buf[0] == 127 || buf[0] == 8: // Backspace
			if cursor > 0 {
				line = append(line[:cursor-1], line[cursor:]...)
				cursor--
				fmt.Print("\033[1D")
				redraw(cursor)
			}

		case buf[0] >= 32 && buf[0] < 127:
			ch := rune(buf[0])
			line = append(line[:cursor], append([]rune{ch}, line[cursor:]...)...)
			cursor++
			redraw(cursor - 1)
		}
	}
}

func (r *REPL) printBanner() {
	fmt.Println("hdlsim interactive - type :help for commands")
}

func (r *REPL) handleCommand(cmd string) {
	parts := strings.Fields(cmd)
	name := parts[0]

	switch name {
	case ":help", ":h":
		r.printHelp()

	case ":quit", ":q", ":exit":
		fmt.Println("Goodbye!")
		r.restoreTerminal()
		os.Exit(0)

	case ":history":
		for i, h := range r.reader.GetHistory() {
			fmt.Printf("  %d: [t=%d] %s\n", i+1, h.SimTime, h.Line)
		}

	case ":search":
		if len(parts) < 2 {
			fmt.Println("Usage: :search <text>")
			return
		}
		query := strings.Join(parts[1:], " ")
		for i, h := range r.reader.SearchHistory(query) {
			fmt.Printf("  %d: [t=%d] %s\n", i+1, h.SimTime, h.Line)
		}

	case ":complete":
		if len(parts) < 2 {
			fmt.Println("Usage: :complete <prefix>")
			return
		}
		for _, name := range r.reader.CompleteSignal(parts[1], r.sortedSignalNames()) {
			fmt.Println("  " + name)
		}

	case ":load":
		if len(parts) < 2 {
			fmt.Println("Usage: :load <file>")
			return
		}
		r.loadScript(parts[1])

	case ":run":
		n := uint64(0)
		if len(parts) > 1 {
			v, err := strconv.ParseUint(parts[1], 10, 64)
			if err != nil {
				fmt.Printf("bad duration %q: %v\n", parts[1], err)
				return
			}
			n = v
		}
		resumed, err := r.sched.Run(n)
		fmt.Printf("t=%d resumed=%v err=%v\n", r.sched.CurrentTime(), resumed, err)

	case ":signals", ":sig":
		r.printSignals()

	case ":set":
		if len(parts) < 3 {
			fmt.Println("Usage: :set <name> <value>")
			return
		}
		r.setSignal(parts[1], strings.Join(parts[2:], " "))

	case ":trace":
		if len(parts) < 2 {
			fmt.Println("Usage: :trace <file>")
			return
		}
		r.startTrace(parts[1])

	case ":untrace":
		r.stopTrace()

	case ":timescale":
		if len(parts) < 2 {
			fmt.Printf("current timescale: %s\n", r.tracerTS.String())
			return
		}
		ts, err := timescale.Parse(parts[1])
		if err != nil {
			fmt.Println(err)
			return
		}
		r.tracerTS = ts

	case ":cosim":
		if len(parts) < 2 {
			fmt.Println("Usage: :cosim <command> [args...]")
			return
		}
		r.startCosim(parts[1], parts[2:]...)

	case ":debug":
		r.runDebugger()

	default:
		fmt.Printf("unknown command: %s (:help for a list)\n", name)
	}
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  :load <file>         - run a Lua testbench script")
	fmt.Println("  :run [n]             - advance the simulation n time units (0 = until it stops)")
	fmt.Println("  :signals / :sig      - list every declared signal and its value")
	fmt.Println("  :set <name> <value>  - write a new value into a declared signal")
	fmt.Println("  :trace <file>        - start VCD tracing of every declared signal")
	fmt.Println("  :untrace             - stop and close the active trace")
	fmt.Println("  :timescale [ts]      - show or set the VCD timescale used by :trace")
	fmt.Println("  :cosim <cmd> [args]  - bind every declared signal to an external cosim process")
	fmt.Println("  :debug               - hand control to the time/signal breakpoint debugger")
	fmt.Println("  :history             - show command history, tagged with simulation time")
	fmt.Println("  :search <text>       - search command history")
	fmt.Println("  :complete <prefix>   - list declared signals starting with prefix, most recently used first")
	fmt.Println("  :quit / :q / :exit   - leave the REPL")
}

func (r *REPL) loadScript(path string) {
	code, err := os.ReadFile(path)
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := r.eng.Run(r.sched, filepath.Base(path), string(code)); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("loaded %s, %d signal(s) declared\n", path, len(r.eng.Signals()))
}

func (r *REPL) sortedSignalNames() []string {
	names := make([]string, 0, len(r.eng.Signals()))
	for name := range r.eng.Signals() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *REPL) printSignals() {
	names := r.sortedSignalNames()
	if len(names) == 0 {
		fmt.Println("(no signals declared)")
		return
	}
	for _, name := range names {
		fmt.Printf("  %-16s = %v\n", name, r.eng.Signals()[name].Val())
	}
}

func (r *REPL) setSignal(name, value string) {
	sig, ok := r.eng.Signals()[name]
	if !ok {
		fmt.Printf("unbound signal: %s\n", name)
		if matches := r.reader.CompleteSignal(name, r.sortedSignalNames()); len(matches) > 0 {
			fmt.Printf("did you mean: %s\n", strings.Join(matches, ", "))
		}
		return
	}
	w, ok := sig.(script.Writable)
	if !ok {
		fmt.Printf("signal %s is read-only\n", name)
		return
	}
	v, err := parseAsCurrent(sig.Val())(value)
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := w.SetNext(v); err != nil {
		fmt.Println(err)
	}
}

func (r *REPL) startTrace(path string) {
	if r.tracer != nil {
		fmt.Println("already tracing; :untrace first")
		return
	}
	tr, err := vcd.New(path, r.tracerTS.String(), r.sched)
	if err != nil {
		fmt.Println(err)
		return
	}
	names := r.sortedSignalNames()
	err = tr.Scope("top", func() error {
		for _, name := range names {
			tsig, ok := r.eng.Signals()[name].(vcd.Traceable)
			if !ok {
				continue
			}
			if err := tr.Trace(name, tsig); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := tr.Finish(); err != nil {
		fmt.Println(err)
		return
	}
	r.tracer = tr
	fmt.Printf("tracing %d signal(s) to %s\n", len(names), path)
}

func (r *REPL) stopTrace() {
	if r.tracer == nil {
		fmt.Println("not tracing")
		return
	}
	if err := r.tracer.Close(); err != nil {
		fmt.Println(err)
	}
	r.tracer = nil
}

// cosimSignal is the surface a declared signal needs to be wired
// symmetrically into a cosimulation link - see cmd/hdlsim's identical
// binding for the batch-mode --cosim flag.
type cosimSignal interface {
	Val() interface{}
	SetNext(v interface{}) error
	Core() *signal.Signal
	AddObserver(o signal.Observer)
	signal.Waitable
}

func (r *REPL) startCosim(name string, args ...string) {
	transport, err := cosim.NewPipeTransport(name, args...)
	if err != nil {
		fmt.Println(err)
		return
	}
	adapter := cosim.New(transport)

	var waitables []signal.Waitable
	for _, sname := range r.sortedSignalNames() {
		sig, ok := r.eng.Signals()[sname].(cosimSignal)
		if !ok {
			continue
		}
		adapter.BindInput(sname, sig, parseAsCurrent(sig.Val()))
		adapter.BindOutput(sname, sig, formatValue)
		waitables = append(waitables, sig)
	}

	r.sched.SetCosim(adapter)
	if err := adapter.Spawn(r.sched, waitables...); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("cosim linked to %s, %d signal(s) bound\n", name, len(waitables))
}

// runDebugger hands the terminal to pkg/debugger for the session's
// scheduler: cooked mode is restored first (the debugger reads whole
// lines via bufio.Scanner, not raw keystrokes) and raw mode is resumed
// once it returns. debugger.Run's own "quit" command calls os.Exit(0)
// directly - the same way cmd/mze's --debug mode ends the whole process
// rather than returning control to a caller - so this is a one-way trip
// for the "quit" path, but an ordinary return (EOF on stdin) comes back
// here and re-enters raw mode.
func (r *REPL) runDebugger() {
	if r.rawTerminal {
		r.restoreTerminal()
	}
	dbg := debugger.New(r.sched, &debugger.Config{Input: os.Stdin, Output: os.Stdout})
	for _, name := range r.sortedSignalNames() {
		if sig, ok := r.eng.Signals()[name].(debugger.Observable); ok {
			dbg.Watch(name, sig, debugger.WatchAny)
		}
	}
	if err := dbg.Run(); err != nil {
		fmt.Println(err)
	}
	if r.rawTerminal {
		if old, err := term.MakeRaw(int(os.Stdin.Fd())); err == nil {
			r.oldTermState = old
		}
	}
}

// parseAsCurrent decodes a value typed at the prompt (":set", or a cosim
// wire value) against the Go type current currently holds, the same
// dispatch-on-current-value idea pkg/script's fromLuaValue uses for
// signal.set. A bit vector is built with the unsized, non-panicking
// bitvector.New rather than NewWidth - this value comes from untrusted
// interactive/external input, exactly the case NewWidth's own doc
// comment reserves for Validate instead, and the eventual SetNext's
// domain validation turns an out-of-range value into a clean
// herrors.ValueOutOfRangeError instead of a panic that would kill the
// whole REPL session.
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
