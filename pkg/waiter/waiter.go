package waiter

import (
	"github.com/oisee/hdlsim/pkg/herrors"
	"github.com/oisee/hdlsim/pkg/signal"
)

// Kind tags which sensitivity shape a Waiter currently holds - the "small
// tagged struct with a Kind enum and a single Advance method that
// switches on Kind" called for in SPEC_FULL.md §4.3.
type Kind int

const (
	KindSignal Kind = iota
	KindEdge
	KindTuple
	KindDelay
	KindJoin
)

// Delay is a yield target requesting a wakeup D time units from now.
type Delay uint64

// Tuple is an "any-of" yield target covering both spec §4.3 variants
// (tuple-of-signals and tuple-of-edges): the process wakes when any one
// of its elements (each a signal.Waitable or signal.EdgeToken) fires, at
// most once per delta (spec §5's tuple-wait discipline).
type Tuple []interface{}

// Join is an "all-of" yield target: the process wakes only once every
// element (a signal.Waitable, signal.EdgeToken, or Delay) has fired at
// least once since the join was entered.
type Join []interface{}

// Registrar is the scheduler-side surface a Waiter needs to register
// itself: schedule a future wakeup and read the current time. Package
// sim's Scheduler implements this.
type Registrar interface {
	CurrentTime() uint64
	ScheduleFuture(at uint64, w Runnable)
	PushActive(w Runnable)
	Fail(err error)
}

// Runnable is implemented by every object that can sit in the scheduler's
// active queue or future-event heap: the top-level per-process Waiter and
// the internal join sub-waiters it spawns.
type Runnable interface {
	signal.Waiter
	Advance(reg Registrar)
}

type unregisterFunc func()

// Waiter is the suspension record owning one Process. Exactly one of its
// per-Kind fields is meaningful for the current Kind.
type Waiter struct {
	Kind Kind
	Proc *Process

	target  interface{}   // KindSignal, KindEdge
	members []interface{} // KindTuple, KindJoin

	delay uint64 // KindDelay

	joinRemaining int

	hasRun     bool
	unregister []unregisterFunc
}

var (
	_ Runnable = (*Waiter)(nil)
	_ Runnable = (*joinSub)(nil)
)

// Start launches proc's first step and registers the resulting
// suspension. Returns (nil, nil) if the process completed without ever
// yielding.
func Start(proc *Process, reg Registrar) (*Waiter, error) {
	w := &Waiter{Proc: proc}
	target, done, err := proc.Advance()
	if err != nil {
		return nil, err
	}
	if done {
		return nil, nil
	}
	if err := w.setTarget(target); err != nil {
		return nil, err
	}
	if err := w.register(reg); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Waiter) setTarget(target interface{}) error {
	switch t := target.(type) {
	case signal.Waitable:
		w.Kind = KindSignal
		w.target = t
	case signal.EdgeToken:
		if !t.Signal.EdgeCapable() {
			return &herrors.SimulationError{Reason: "edge wait on a signal wider than 1 bit"}
		}
		w.Kind = KindEdge
		w.target = t
	case Delay:
		w.Kind = KindDelay
		w.delay = uint64(t)
	case Tuple:
		if len(t) == 0 {
			return &herrors.SimulationError{Reason: "tuple wait with no elements"}
		}
		w.Kind = KindTuple
		w.members = t
	case Join:
		if len(t) == 0 {
			return &herrors.SimulationError{Reason: "join with no elements"}
		}
		w.Kind = KindJoin
		w.members = t
	default:
		return &herrors.SimulationError{Reason: "process yielded an unsupported suspension target"}
	}
	return nil
}

// register installs w (or, for KindJoin, a sub-waiter per element) into
// the appropriate signal waiter lists or the future-event heap.
func (w *Waiter) register(reg Registrar) error {
	w.hasRun = false
	w.unregister = nil

	switch w.Kind {
	case KindSignal, KindEdge:
		unreg, err := registerElementary(w.target, w, reg)
		if err != nil {
			return err
		}
		w.unregister = append(w.unregister, unreg)

	case KindTuple:
		for _, m := range w.members {
			unreg, err := registerElementary(m, w, reg)
			if err != nil {
				return err
			}
			w.unregister = append(w.unregister, unreg)
		}

	case KindDelay:
		reg.ScheduleFuture(reg.CurrentTime()+w.delay, w)

	case KindJoin:
		w.joinRemaining = len(w.members)
		for _, m := range w.members {
			sub := &joinSub{parent: w}
			if _, isDelay := m.(Delay); isDelay {
				sub.isDelay = true
			}
			unreg, err := registerElementary(m, sub, reg)
			if err != nil {
				return err
			}
			w.unregister = append(w.unregister, unreg)
		}
	}
	return nil
}

func (w *Waiter) unregisterAll() {
	for _, u := range w.unregister {
		u()
	}
	w.unregister = nil
}

// Fire implements signal.Waiter: called when an event this waiter is
// registered for occurs. Returns false if it already fired earlier in the
// same delta (the tuple "wakes at most once per delta" discipline).
func (w *Waiter) Fire() bool {
	if w.hasRun {
		return false
	}
	w.hasRun = true
	return true
}

// Advance drives the owning process one step: run it to its next
// suspension (or completion), drop its previous registrations (including
// any stale sibling entries left by a tuple/join wait - this is where
// this implementation discharges spec §5's "purge stale entries" duty,
// eagerly rather than in a separate end-of-delta pass, since a waiter
// cannot receive another event before its own Advance runs), and register
// the new one.
func (w *Waiter) Advance(reg Registrar) {
	target, done, err := w.Proc.Advance()
	w.unregisterAll()
	if err != nil {
		reg.Fail(err)
		return
	}
	if done {
		return
	}
	if err := w.setTarget(target); err != nil {
		reg.Fail(err)
		return
	}
	if err := w.register(reg); err != nil {
		reg.Fail(err)
	}
}

// joinSub is the internal per-element tracker for a Join: it decrements
// its parent's outstanding count and, once every element has fired at
// least once, hands control to the parent (which actually owns the
// Process). It is a distinct type from Waiter because it never drives a
// process directly - only the parent does.
type joinSub struct {
	parent  *Waiter
	isDelay bool
}

func (s *joinSub) Fire() bool {
	return s.complete()
}

func (s *joinSub) complete() bool {
	if s.parent.hasRun {
		return false
	}
	s.parent.joinRemaining--
	if s.parent.joinRemaining > 0 {
		return false
	}
	s.parent.hasRun = true
	return true
}

// Advance is called once this sub-waiter is popped off the active queue:
// for a signal/edge element, Fire already did the bookkeeping and
// confirmed readiness; for a delay element (which bypasses Fire entirely,
// going straight from the future heap to the active queue), the
// bookkeeping happens here instead.
func (s *joinSub) Advance(reg Registrar) {
	if s.isDelay && !s.complete() {
		return
	}
	reg.PushActive(s.parent)
}

// registerElementary registers target (a signal.Waitable, a
// signal.EdgeToken, or a Delay) so that firer wakes when it fires,
// returning an closure that undoes the registration.
func registerElementary(target interface{}, firer signal.Waiter, reg Registrar) (unregisterFunc, error) {
	switch t := target.(type) {
	case signal.Waitable:
		t.AddEventWaiter(firer)
		return func() { t.RemoveEventWaiter(firer) }, nil
	case signal.EdgeToken:
		if !t.Signal.EdgeCapable() {
			return nil, &herrors.SimulationError{Reason: "edge wait on a signal wider than 1 bit"}
		}
		if t.Kind == signal.PosEdge {
			t.Signal.AddPosEdgeWaiter(firer)
			return func() { t.Signal.RemovePosEdgeWaiter(firer) }, nil
		}
		t.Signal.AddNegEdgeWaiter(firer)
		return func() { t.Signal.RemoveNegEdgeWaiter(firer) }, nil
	case Delay:
		runnable, ok := firer.(Runnable)
		if !ok {
			return nil, &herrors.SimulationError{Reason: "delay element requires a Runnable firer"}
		}
		reg.ScheduleFuture(reg.CurrentTime()+uint64(t), runnable)
		return func() {}, nil
	default:
		return nil, &herrors.SimulationError{Reason: "unsupported elementary suspension target"}
	}
}
