// Package vcd writes Value Change Dump traces of a running simulation:
// a scope-nested variable declaration block followed by one change line
// per committed signal transition, in the format gtkwave and similar
// viewers read. Grounded on myhdl/_traceSignals.py.
package vcd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oisee/hdlsim/pkg/bitvector"
	"github.com/oisee/hdlsim/pkg/herrors"
	"github.com/oisee/hdlsim/pkg/signal"
	"github.com/oisee/hdlsim/pkg/version"
)

// Traceable is the surface a signal must offer to be traced: its current
// value (for the initial $dumpvars block), its domain (for width
// dispatch), the ability to register an Observer, and Core - the inner
// cell that actually fires Observer callbacks, which is what a tracer
// must key its variable codes against regardless of whether it was
// handed a plain *signal.Signal, a *signal.DelayedSignal, or a
// *signal.ShadowSignal.
type Traceable interface {
	Val() interface{}
	Domain() signal.Domain
	AddObserver(o signal.Observer)
	Core() *signal.Signal
}

// TimeSource is the narrow surface a Tracer needs to timestamp change
// lines. pkg/sim's Scheduler satisfies this.
type TimeSource interface {
	CurrentTime() uint64
}

type varEntry struct {
	code  string
	width int
	name  string
}

// Tracer writes committed value changes into an open VCD file as they are
// observed. A "#<time>" marker is written before the first traced change
// at each new time; a time step in which no traced signal changes gets no
// "#<time>" line.
// Construct with New, declare scopes and signals with BeginScope/EndScope/
// Trace, then call Finish once every signal of interest has been declared
// and before the simulation starts running - mirroring
// myhdl._traceSignals.traceSignals's single elaboration-time pass that
// writes the header and $var block before Simulation.run is ever called.
type Tracer struct {
	file *os.File
	w    *bufio.Writer
	time TimeSource

	gen        nameCoder
	vars       map[*signal.Signal]*varEntry
	order      []*signal.Signal
	scopeDepth int
	finished   bool
	lastTime   uint64
	haveTime   bool
}

// New opens path for writing (backing up any existing file at path by
// appending its modification time to the name first, exactly as
// myhdl._traceSignals does: "backup = vcdpath + '.' + str(getmtime(vcdpath))")
// and writes the VCD header block (date, hdlsim version, timescale).
func New(path string, timescale string, clock TimeSource) (*Tracer, error) {
	if err := backupExisting(path); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, &herrors.TraceSignalsError{Reason: err.Error()}
	}
	t := &Tracer{
		file: f,
		w:    bufio.NewWriter(f),
		time: clock,
		vars: make(map[*signal.Signal]*varEntry),
	}
	fmt.Fprintf(t.w, "$date\n    %s\n$end\n", time.Now().Format(time.ANSIC))
	fmt.Fprintf(t.w, "$version\n    hdlsim %s\n$end\n", version.GetVersion())
	fmt.Fprintf(t.w, "$timescale\n    %s\n$end\n\n", timescale)
	return t, nil
}

func backupExisting(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &herrors.TraceSignalsError{Reason: err.Error()}
	}
	backup := fmt.Sprintf("%s.%d", path, info.ModTime().Unix())
	src, err := os.Open(path)
	if err != nil {
		return &herrors.TraceSignalsError{Reason: err.Error()}
	}
	defer src.Close()
	dst, err := os.Create(backup)
	if err != nil {
		return &herrors.TraceSignalsError{Reason: err.Error()}
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return &herrors.TraceSignalsError{Reason: err.Error()}
	}
	return os.Remove(path)
}

// BeginScope opens a named module scope ("$scope module <name> $end").
func (t *Tracer) BeginScope(name string) {
	fmt.Fprintf(t.w, "$scope module %s $end\n", name)
	t.scopeDepth++
}

// EndScope closes the innermost open scope.
func (t *Tracer) EndScope() {
	fmt.Fprintln(t.w, "$upscope $end")
	t.scopeDepth--
}

// Scope opens name, runs fn, then closes it - the common case of
// BeginScope/EndScope wrapping a block of Trace calls for one module
// instance.
func (t *Tracer) Scope(name string, fn func() error) error {
	t.BeginScope(name)
	err := fn()
	t.EndScope()
	return err
}

// Trace declares sig as a traced variable named name in the currently
// open scope and registers the tracer as an observer of it. Width comes
// from sig.Domain().Width(): 0 means a non-bit-vector domain, dumped as
// VCD "real"; 1 means boolean or a single-bit vector; anything higher is
// a reg of that width.
func (t *Tracer) Trace(name string, sig Traceable) error {
	core := sig.Core()
	if _, ok := t.vars[core]; ok {
		return &herrors.TraceSignalsError{Reason: fmt.Sprintf("%s already traced", name)}
	}
	code := t.gen.next()
	width := sig.Domain().Width()
	entry := &varEntry{code: code, width: width, name: name}
	t.vars[core] = entry
	t.order = append(t.order, core)

	if width == 0 {
		fmt.Fprintf(t.w, "$var real 1 %s %s $end\n", code, name)
	} else if width == 1 {
		fmt.Fprintf(t.w, "$var reg 1 %s %s $end\n", code, name)
	} else {
		fmt.Fprintf(t.w, "$var reg %d %s %s $end\n", width, code, name)
	}

	sig.AddObserver(t)
	return nil
}

// Finish closes the declaration block and dumps every traced signal's
// current value, per myhdl's "$enddefinitions $end" / "$dumpvars" /
// per-signal initial value / "$end" sequence. Must be called after every
// scope opened with BeginScope has been closed, and before the
// simulation starts so the dumpvars block reflects true initial values.
func (t *Tracer) Finish() error {
	if t.scopeDepth != 0 {
		return &herrors.TraceSignalsError{Reason: "unbalanced scope: BeginScope without matching EndScope"}
	}
	fmt.Fprintln(t.w)
	fmt.Fprintln(t.w, "$enddefinitions $end")
	fmt.Fprintln(t.w, "$dumpvars")
	for _, core := range t.order {
		entry := t.vars[core]
		fmt.Fprintln(t.w, formatChange(core.Val(), entry))
	}
	fmt.Fprintln(t.w, "$end")
	t.finished = true
	return t.w.Flush()
}

// OnChange implements signal.Observer: records s's newly committed value,
// writing a "#<time>" marker first if time has advanced since the last
// recorded change.
func (t *Tracer) OnChange(s *signal.Signal) []signal.Waiter {
	entry, ok := t.vars[s]
	if !ok {
		return nil
	}
	now := t.time.CurrentTime()
	if !t.haveTime || now != t.lastTime {
		fmt.Fprintf(t.w, "#%d\n", now)
		t.lastTime = now
		t.haveTime = true
	}
	fmt.Fprintln(t.w, formatChange(s.Val(), entry))
	return nil
}

// Close flushes and closes the underlying file.
func (t *Tracer) Close() error {
	if err := t.w.Flush(); err != nil {
		return err
	}
	return t.file.Close()
}

// formatChange renders one value-change line per spec.md §6: "<bit><code>"
// for a 1-bit signal, "b<binary> <code>" for a sized bit vector, and
// "s<hex> <code>" for an unsized one (no fixed width to pad a binary
// string to); any other (opaque) value is dumped as its stringified form,
// "s<str> <code>".
func formatChange(v interface{}, entry *varEntry) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "1" + entry.code
		}
		return "0" + entry.code
	case *bitvector.BitVector:
		if x.Len() == 0 {
			return fmt.Sprintf("s%s %s", x.HexString(), entry.code)
		}
		if x.Len() == 1 {
			return x.BinaryString() + entry.code
		}
		return fmt.Sprintf("b%s %s", x.BinaryString(), entry.code)
	default:
		return fmt.Sprintf("s%v %s", v, entry.code)
	}
}

// nameCoder generates MyHDL-style base-94 short identifiers from the
// printable ASCII range 33..126, grounded on _traceSignals.py's
// _genNameCode/_namecode.
type nameCoder struct {
	n int
}

var vcdCodeChars = func() []byte {
	cs := make([]byte, 0, 94)
	for c := byte(33); c <= 126; c++ {
		cs = append(cs, c)
	}
	return cs
}()

func (g *nameCoder) next() string {
	code := encodeBase94(g.n)
	g.n++
	return code
}

func encodeBase94(n int) string {
	mod := len(vcdCodeChars)
	q, r := n/mod, n%mod
	code := string(vcdCodeChars[r])
	for q > 0 {
		q, r = q/mod, q%mod
		code = string(vcdCodeChars[r]) + code
	}
	return code
}
