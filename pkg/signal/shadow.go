package signal

import "github.com/oisee/hdlsim/pkg/bitvector"

// Observable is the narrow surface a ShadowSignal needs from whatever it
// projects: its current value, and the ability to be observed.
type Observable interface {
	Val() interface{}
	AddObserver(o Observer)
}

// ShadowSignal is a read-only signal whose value is an automatically
// maintained projection of a source Observable - an indexed bit or a
// bit-vector slice, per spec §4.2/§9. It is never writable from user code;
// only the projection (invoked whenever the source commits a change) may
// update it. Grounded on myhdl/_ShadowSignal.py's genfuncIndex/genfuncSlice
// driver generators, adapted here to a synchronous observer callback
// rather than a literal background generator/goroutine: the two are
// observationally equivalent for a zero-delay projection with no
// additional suspension points of its own (see DESIGN.md).
type ShadowSignal struct {
	sig     *Signal
	source  Observable
	project func(v interface{}) interface{}
}

// NewBitShadow projects bit i of a BitVector-valued source.
func NewBitShadow(name string, source Observable, i int, sched Scheduler) (*ShadowSignal, error) {
	project := func(v interface{}) interface{} {
		bv := v.(*bitvector.BitVector)
		bit, err := bv.Bit(i)
		if err != nil {
			panic(err) // construction-time invariant: i must be in range
		}
		return bit
	}
	return newShadow(name, VectorDomain{WidthBits: 1}, source, project, sched)
}

// NewSliceShadow projects bits [j, i) of a BitVector-valued source.
func NewSliceShadow(name string, source Observable, i, j int, sched Scheduler) (*ShadowSignal, error) {
	project := func(v interface{}) interface{} {
		bv := v.(*bitvector.BitVector)
		sl, err := bv.Slice(i, j)
		if err != nil {
			panic(err)
		}
		return sl
	}
	return newShadow(name, VectorDomain{WidthBits: i - j}, source, project, sched)
}

func newShadow(name string, domain Domain, source Observable, project func(interface{}) interface{}, sched Scheduler) (*ShadowSignal, error) {
	init := project(source.Val())
	sig, err := New(name, domain, init, sched)
	if err != nil {
		return nil, err
	}
	ss := &ShadowSignal{sig: sig, source: source, project: project}
	source.AddObserver(ss)
	return ss, nil
}

// OnChange implements Observer: called after the source commits a change.
// The projection settles synchronously, in the same observer fan-out as
// the source's own commit, and any waiters it wakes are returned so the
// source's Update can hand them back to the scheduler.
func (ss *ShadowSignal) OnChange(*Signal) []Waiter {
	next := ss.project(ss.source.Val())
	return ss.sig.commitDirect(next)
}

// Core returns the inner Signal that actually commits values and fires
// Observer callbacks - see Signal.Core.
func (ss *ShadowSignal) Core() *Signal { return ss.sig }

func (ss *ShadowSignal) Name() string           { return ss.sig.Name() }
func (ss *ShadowSignal) Val() interface{}       { return ss.sig.Val() }
func (ss *ShadowSignal) Domain() Domain         { return ss.sig.Domain() }
func (ss *ShadowSignal) PosEdge() EdgeToken     { return ss.sig.PosEdge() }
func (ss *ShadowSignal) NegEdge() EdgeToken     { return ss.sig.NegEdge() }
func (ss *ShadowSignal) EdgeCapable() bool      { return ss.sig.EdgeCapable() }
func (ss *ShadowSignal) AddObserver(o Observer) { ss.sig.AddObserver(o) }
func (ss *ShadowSignal) AddEventWaiter(w Waiter)   { ss.sig.AddEventWaiter(w) }
func (ss *ShadowSignal) AddPosEdgeWaiter(w Waiter) { ss.sig.AddPosEdgeWaiter(w) }
func (ss *ShadowSignal) RemoveEventWaiter(w Waiter)   { ss.sig.RemoveEventWaiter(w) }
func (ss *ShadowSignal) RemovePosEdgeWaiter(w Waiter) { ss.sig.RemovePosEdgeWaiter(w) }
func (ss *ShadowSignal) RemoveNegEdgeWaiter(w Waiter) { ss.sig.RemoveNegEdgeWaiter(w) }
func (ss *ShadowSignal) AddNegEdgeWaiter(w Waiter) { ss.sig.AddNegEdgeWaiter(w) }
