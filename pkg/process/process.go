// Package process provides the two standard process shapes a netlist is
// built from: AlwaysComb (a combinational block that re-runs whenever any
// of its inputs changes) and AlwaysSeq (a sequential block clocked on one
// edge, with an optional synchronous or asynchronous reset). Grounded on
// myhdl/_always_comb.py and myhdl/_always_seq.py, with MyHDL's AST-based
// input/output inference (the decorated function is parsed with Python's
// ast module to classify every signal reference) replaced by an explicit
// functional-options builder - the substitution spec.md §9 calls for,
// since Go has no runtime source-introspection facility comparable to
// Python's inspect/ast modules.
package process

import (
	"github.com/oisee/hdlsim/pkg/herrors"
	"github.com/oisee/hdlsim/pkg/sim"
	"github.com/oisee/hdlsim/pkg/signal"
	"github.com/oisee/hdlsim/pkg/waiter"
)

// Option configures a process builder's declared inputs and outputs.
type Option func(*config)

type config struct {
	inputs  []signal.Waitable
	outputs []signal.Waitable
}

// Inputs declares the signals a block reads. For AlwaysComb these are
// also the sensitivity list: the block re-runs whenever any of them
// changes.
func Inputs(sigs ...signal.Waitable) Option {
	return func(c *config) { c.inputs = append(c.inputs, sigs...) }
}

// Outputs declares the signals a block writes.
func Outputs(sigs ...signal.Waitable) Option {
	return func(c *config) { c.outputs = append(c.outputs, sigs...) }
}

func build(opts []Option) (*config, error) {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	inSet := make(map[signal.Waitable]bool, len(c.inputs))
	for _, s := range c.inputs {
		inSet[s] = true
	}
	for _, s := range c.outputs {
		if inSet[s] {
			return nil, &herrors.SignalAsInoutError{Signal: s.Name()}
		}
	}
	return c, nil
}

func senslist(inputs []signal.Waitable) waiter.Tuple {
	t := make(waiter.Tuple, len(inputs))
	for i, s := range inputs {
		t[i] = s
	}
	return t
}

// AlwaysComb spawns a combinational block: body runs once immediately
// (to settle initial outputs) and again every time any declared input
// changes, for as long as the scheduler runs. Grounded on
// myhdl/_always_comb.py's _AlwaysComb: "if len(senslist) == 1: use
// _SignalWaiter, else _SignalTupleWaiter" is realized here as "use
// waiter.Tuple unconditionally" since a one-element Tuple behaves
// identically to a single-signal wait.
func AlwaysComb(sched *sim.Scheduler, name string, body func(), opts ...Option) error {
	c, err := build(opts)
	if err != nil {
		return err
	}
	if len(c.inputs) == 0 {
		return &herrors.SimulationError{Reason: "always_comb block declares no inputs"}
	}
	if err := sched.ClaimOutputs(c.outputs); err != nil {
		return err
	}
	sens := senslist(c.inputs)
	return sched.Spawn(name, func(p *waiter.Process) error {
		body()
		for {
			p.Yield(sens)
			body()
		}
	})
}

// ResetSignal is a boolean Signal additionally tagged with its active
// level and whether it resets asynchronously (wakes an always_seq block
// on its own edge) or synchronously (only checked on the clock edge).
// Grounded on myhdl/_always_seq.py's ResetSignal.
type ResetSignal struct {
	sig    *signal.Signal
	Active bool
	Async  bool
}

// NewResetSignal constructs a ResetSignal with initial value init.
func NewResetSignal(init, active, async bool, sched signal.Scheduler) (*ResetSignal, error) {
	sig, err := signal.New("reset", signal.BoolDomain{}, init, sched)
	if err != nil {
		return nil, err
	}
	return &ResetSignal{sig: sig, Active: active, Async: async}, nil
}

func (r *ResetSignal) Signal() *signal.Signal { return r.sig }
func (r *ResetSignal) Val() bool              { return r.sig.Val().(bool) }

// AlwaysSeq spawns a sequential block clocked on edge, with an optional
// reset. On every wakeup (the clock edge, or - if reset is asynchronous -
// also the reset's own active edge), if reset is asserted the declared
// outputs are driven back to the value they held at the moment AlwaysSeq
// was built (myhdl/_always_seq.py's reset_sigs: "s.next = s._init", the
// value captured once at decoration time); otherwise body runs normally.
// reset may be nil for a block with no reset at all.
func AlwaysSeq(sched *sim.Scheduler, name string, edge signal.EdgeToken, reset *ResetSignal, body func(), opts ...Option) error {
	c, err := build(opts)
	if err != nil {
		return err
	}
	if err := sched.ClaimOutputs(c.outputs); err != nil {
		return err
	}

	resetVals := make([]interface{}, len(c.outputs))
	for i, o := range c.outputs {
		resetVals[i] = o.Val()
	}
	applyReset := func() {
		for i, o := range c.outputs {
			sig, ok := o.(interface{ SetNext(interface{}) error })
			if !ok {
				continue
			}
			_ = sig.SetNext(resetVals[i])
		}
	}

	if reset == nil {
		return sched.Spawn(name, func(p *waiter.Process) error {
			for {
				p.Yield(edge)
				body()
			}
		})
	}

	var wakeTarget interface{} = edge
	if reset.Async {
		if reset.Active {
			wakeTarget = waiter.Tuple{edge, reset.sig.PosEdge()}
		} else {
			wakeTarget = waiter.Tuple{edge, reset.sig.NegEdge()}
		}
	}

	return sched.Spawn(name, func(p *waiter.Process) error {
		for {
			p.Yield(wakeTarget)
			if reset.Val() == reset.Active {
				applyReset()
			} else {
				body()
			}
		}
	})
}
