// Package cosim implements the scheduler-side half of a cosimulation
// link to an external simulator: spec.md §4.7 deliberately specifies only
// this contract ("_get()", "_put(t)", "_waiter()"), leaving the wire
// protocol to whatever Transport is plugged in. Grounded on
// myhdl/_Simulation.py's cosim._get()/_put(t) call sites (see
// pkg/sim.Scheduler.Run) and, for the transport's host-process/file-handle
// wrapping style, on the teacher's pkg/emulator/io_interceptor.go (a small
// struct wrapping os.File handles and a child's lifecycle).
package cosim

import (
	"github.com/oisee/hdlsim/pkg/sim"
	"github.com/oisee/hdlsim/pkg/signal"
	"github.com/oisee/hdlsim/pkg/waiter"
)

// Change is one named signal's new value, in either direction across the
// wire: read in from the external simulator by Get, or written out by
// Put.
type Change struct {
	Name  string
	Value string
}

// Transport is the wire: read the external simulator's pending changes,
// write the scheduler's current time, write one of the scheduler's own
// pending changes, and tear down the link. PipeTransport is the provided
// implementation; tests use an in-memory fake.
type Transport interface {
	ReadChanges() ([]Change, error)
	WriteTime(now uint64) error
	WriteChange(c Change) error
	Close() error
}

type writable interface {
	SetNext(v interface{}) error
}

// Observable is the narrow surface Adapter needs from a signal it
// reports outward: its current value, the inner cell that actually fires
// Observer callbacks (see signal.Signal.Core), and the ability to
// register an observer.
type Observable interface {
	Val() interface{}
	Core() *signal.Signal
	AddObserver(o signal.Observer)
}

type inputBinding struct {
	sig   writable
	parse func(string) (interface{}, error)
}

type outputBinding struct {
	name   string
	format func(interface{}) string
}

// Adapter is the scheduler-side cosimulation contract: it implements
// sim.CosimHandle (Get/Put/HasChange), bound to a set of named input
// signals (driven from the external simulator) and output signals
// (reported to it).
type Adapter struct {
	transport Transport

	inputs  map[string]*inputBinding
	outputs map[*signal.Signal]*outputBinding

	pending   []Change
	hasChange bool
}

var _ sim.CosimHandle = (*Adapter)(nil)

// New constructs an Adapter over transport with no bindings yet.
func New(transport Transport) *Adapter {
	return &Adapter{
		transport: transport,
		inputs:    make(map[string]*inputBinding),
		outputs:   make(map[*signal.Signal]*outputBinding),
	}
}

// BindInput declares that changes named name arriving from the external
// simulator should be parsed by parse and written into sig.
func (a *Adapter) BindInput(name string, sig writable, parse func(string) (interface{}, error)) {
	a.inputs[name] = &inputBinding{sig: sig, parse: parse}
}

// BindOutput declares that sig's committed changes should be reported to
// the external simulator as name, formatted by format.
func (a *Adapter) BindOutput(name string, sig Observable, format func(interface{}) string) {
	a.outputs[sig.Core()] = &outputBinding{name: name, format: format}
	sig.AddObserver(a)
}

// OnChange implements signal.Observer: buffer s's newly committed value
// for the next Put.
func (a *Adapter) OnChange(s *signal.Signal) []signal.Waiter {
	b, ok := a.outputs[s]
	if !ok {
		return nil
	}
	a.pending = append(a.pending, Change{Name: b.name, Value: b.format(s.Val())})
	return nil
}

// Get implements sim.CosimHandle: pull the external simulator's pending
// changes and write each bound one into its signal's .next, marking the
// scheduler dirty - myhdl's "cosim._get() reads external changes [onto
// siglist]".
func (a *Adapter) Get() error {
	changes, err := a.transport.ReadChanges()
	if err != nil {
		return err
	}
	a.hasChange = len(changes) > 0
	for _, c := range changes {
		b, ok := a.inputs[c.Name]
		if !ok {
			continue
		}
		v, err := b.parse(c.Value)
		if err != nil {
			return err
		}
		if err := b.sig.SetNext(v); err != nil {
			return err
		}
	}
	return nil
}

// Put implements sim.CosimHandle: push the current time and every output
// change buffered since the last Put.
func (a *Adapter) Put(now uint64) error {
	if err := a.transport.WriteTime(now); err != nil {
		return err
	}
	for _, c := range a.pending {
		if err := a.transport.WriteChange(c); err != nil {
			return err
		}
	}
	a.pending = nil
	return nil
}

// HasChange implements sim.CosimHandle: whether the most recent Get
// pulled in any external change at all (myhdl's cosim._hasChange),
// independent of whether any bound input actually wrote a new pending
// value (a change may arrive for an unbound signal, or repeat the
// value already pending).
func (a *Adapter) HasChange() bool { return a.hasChange }

// Close tears down the transport.
func (a *Adapter) Close() error { return a.transport.Close() }

// Spawn installs the "_waiter()" process spec.md §4.7 calls for: a
// generator that does nothing but perpetually tuple-wait on every
// externally driven signal, so the cosimulation link is one of the
// scheduler's own process arguments the way myhdl's
// "_SignalTupleWaiter(cosim._waiter())" is one of Simulation's waiters -
// the actual Get/Put traffic happens directly from the scheduler's Run
// loop via the CosimHandle interface, not through this process.
func (a *Adapter) Spawn(sched *sim.Scheduler, externallyDriven ...signal.Waitable) error {
	if len(externallyDriven) == 0 {
		return nil
	}
	sens := make(waiter.Tuple, len(externallyDriven))
	for i, s := range externallyDriven {
		sens[i] = s
	}
	return sched.Spawn("cosim", func(p *waiter.Process) error {
		for {
			p.Yield(sens)
		}
	})
}
