// Package signal implements the value/next-value cell at the heart of the
// simulation: Signal (with its DelayedSignal and ShadowSignal variants),
// domain validation, edge tokens, and the per-signal waiter lists that the
// scheduler drains on each delta. Grounded on myhdl/_Signal.py and
// myhdl/_ShadowSignal.py; see DESIGN.md.
package signal

import (
	"github.com/oisee/hdlsim/pkg/bitvector"
)

// Scheduler is the narrow callback surface a Signal needs from the
// simulation kernel: register itself on the pending-update list exactly
// once per delta, read the current time, and (for DelayedSignal) schedule
// a future apply. Package sim's Scheduler implements this; keeping the
// interface here avoids signal depending on sim.
type Scheduler interface {
	MarkDirty(s *Signal)
	CurrentTime() uint64
	ScheduleApply(at uint64, apply func(now uint64) []Waiter)
}

// Observer is notified after a Signal commits a new value. The VCD tracer
// and ShadowSignal's driver both implement this. OnChange may itself
// return waiters that woke as a side effect (ShadowSignal's projection
// settling synchronously produces its own woken waiters); the tracer
// simply returns nil.
type Observer interface {
	OnChange(s *Signal) []Waiter
}

// Signal is a current/next value cell with domain validation and three
// waiter lists (event, posedge, negedge). The zero value is not useful;
// construct with New.
type Signal struct {
	name      string
	domain    Domain
	val       interface{}
	next      interface{}
	dirty     bool
	sched     Scheduler
	event     WaiterList
	posedge   WaiterList
	negedge   WaiterList
	observers []Observer
	traceCode string
}

// New constructs a Signal with an initial value already valid for domain.
func New(name string, domain Domain, init interface{}, sched Scheduler) (*Signal, error) {
	if err := domain.Validate(init); err != nil {
		return nil, err
	}
	return &Signal{name: name, domain: domain, val: init, sched: sched}, nil
}

// Name returns the signal's declared name (used for VCD variable names and
// debugger lookups).
func (s *Signal) Name() string { return s.name }

// Core returns s itself. DelayedSignal and ShadowSignal have their own
// Core methods returning the inner cell that actually fires Observer
// callbacks; a tracer that wants to key off observer identity regardless
// of which kind of signal it was given should always call Core().
func (s *Signal) Core() *Signal { return s }

// Domain returns the signal's declared domain.
func (s *Signal) Domain() Domain { return s.domain }

// Val returns the current (committed) value. Never fails.
func (s *Signal) Val() interface{} { return s.val }

// Next returns the pending next value, copy-on-first-read within a delta:
// if nothing has been written yet this delta, it returns a fresh copy of
// val so in-place mutation (e.g. BitVector.SetBit) does not retroactively
// change the committed value.
func (s *Signal) Next() interface{} {
	if !s.dirty {
		s.next = cloneValue(s.val)
	}
	return s.next
}

// SetNext validates v against the domain, stores it as the pending value,
// and marks the signal dirty so the scheduler drains it on the next
// pending-update phase. Writing .next = .val is legal and produces no
// event (domain-check idempotence, spec §8).
func (s *Signal) SetNext(v interface{}) error {
	if err := s.domain.Validate(v); err != nil {
		return err
	}
	s.next = v
	if !s.dirty {
		s.dirty = true
		if s.sched != nil {
			s.sched.MarkDirty(s)
		}
	}
	return nil
}

// AddObserver registers o to be notified after every committed change.
func (s *Signal) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// AddEventWaiter, AddPosEdgeWaiter, AddNegEdgeWaiter register w against the
// respective waiter list. Exported for package waiter to call when a
// process yields a signal or an edge token.
func (s *Signal) AddEventWaiter(w Waiter)   { s.event.Add(w) }
func (s *Signal) AddPosEdgeWaiter(w Waiter) { s.posedge.Add(w) }
func (s *Signal) AddNegEdgeWaiter(w Waiter) { s.negedge.Add(w) }

func (s *Signal) RemoveEventWaiter(w Waiter)   { s.event.Remove(w) }
func (s *Signal) RemovePosEdgeWaiter(w Waiter) { s.posedge.Remove(w) }
func (s *Signal) RemoveNegEdgeWaiter(w Waiter) { s.negedge.Remove(w) }

// commitDirect immediately commits v as both val and next and notifies
// observers, bypassing the dirty/pending-update machinery. Used only by
// ShadowSignal, whose projection is defined to settle synchronously with
// its source rather than lag a further delta behind it.
func (s *Signal) commitDirect(v interface{}) []Waiter {
	s.next = v
	s.dirty = false
	return s.Update()
}

// Update is the _update algorithm from spec §4.2: if val == next, no event
// occurs; otherwise collect the waiters an event/edge transition wakes,
// commit val := next, notify observers, and return the woken waiters for
// the scheduler to push onto its active queue.
func (s *Signal) Update() []Waiter {
	s.dirty = false
	if valuesEqual(s.val, s.next) {
		return nil
	}
	woken := s.event.Drain()

	if s.EdgeCapable() {
		oldB, oldOK := asBool(s.val)
		newB, newOK := asBool(s.next)
		if oldOK && newOK {
			if !oldB && newB {
				woken = append(woken, s.posedge.Drain()...)
			} else if oldB && !newB {
				woken = append(woken, s.negedge.Drain()...)
			}
		}
	}

	s.val = s.next
	for _, o := range s.observers {
		woken = append(woken, o.OnChange(s)...)
	}
	return woken
}

// asBool reduces a signal value to a boolean transition level for edge
// detection: Go bool directly, or a width-1 BitVector's zero/nonzero bit.
func asBool(v interface{}) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case *bitvector.BitVector:
		if x.Len() == 1 {
			return !x.IsZero(), true
		}
	}
	return false, false
}

func valuesEqual(a, b interface{}) bool {
	if av, ok := a.(*bitvector.BitVector); ok {
		if bv, ok2 := b.(*bitvector.BitVector); ok2 {
			cmp, err := av.Cmp(bv)
			return err == nil && cmp == 0
		}
	}
	return a == b
}

func cloneValue(v interface{}) interface{} {
	if bv, ok := v.(*bitvector.BitVector); ok {
		return bv.Clone()
	}
	return v
}
