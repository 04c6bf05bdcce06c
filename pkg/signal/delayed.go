package signal

// DelayedSignal adds inertial delay to a Signal: a pending write does not
// take effect until D time units later, and only if no later write to a
// different value superseded it first. Grounded on myhdl/_Signal.py's
// DelayedSignal._update/_apply.
type DelayedSignal struct {
	sig          *Signal
	delay        uint64
	pendingValue interface{}
	hasPending   bool
	tsCounter    uint64
	lastTS       uint64
}

// NewDelayed constructs a DelayedSignal with inertial delay d (must be > 0).
func NewDelayed(name string, domain Domain, init interface{}, d uint64, sched Scheduler) (*DelayedSignal, error) {
	sig, err := New(name, domain, init, sched)
	if err != nil {
		return nil, err
	}
	return &DelayedSignal{sig: sig, delay: d}, nil
}

// Core returns the inner Signal that actually commits values and fires
// Observer callbacks - see Signal.Core.
func (d *DelayedSignal) Core() *Signal { return d.sig }

func (d *DelayedSignal) Name() string          { return d.sig.Name() }
func (d *DelayedSignal) Val() interface{}      { return d.sig.Val() }
func (d *DelayedSignal) Domain() Domain        { return d.sig.Domain() }
func (d *DelayedSignal) PosEdge() EdgeToken    { return d.sig.PosEdge() }
func (d *DelayedSignal) NegEdge() EdgeToken    { return d.sig.NegEdge() }
func (d *DelayedSignal) EdgeCapable() bool     { return d.sig.EdgeCapable() }
func (d *DelayedSignal) AddObserver(o Observer) { d.sig.AddObserver(o) }

// AddEventWaiter and friends let package waiter register suspensions
// against the underlying cell the same way it does for a plain Signal.
func (d *DelayedSignal) AddEventWaiter(w Waiter)   { d.sig.AddEventWaiter(w) }
func (d *DelayedSignal) AddPosEdgeWaiter(w Waiter) { d.sig.AddPosEdgeWaiter(w) }
func (d *DelayedSignal) RemoveEventWaiter(w Waiter)   { d.sig.RemoveEventWaiter(w) }
func (d *DelayedSignal) RemovePosEdgeWaiter(w Waiter) { d.sig.RemovePosEdgeWaiter(w) }
func (d *DelayedSignal) RemoveNegEdgeWaiter(w Waiter) { d.sig.RemoveNegEdgeWaiter(w) }
func (d *DelayedSignal) AddNegEdgeWaiter(w Waiter) { d.sig.AddNegEdgeWaiter(w) }

// SetNext schedules a future apply at time t+D rather than taking effect
// immediately. If the value is identical to what is already pending, no
// new future event is scheduled - the existing one will apply it.
func (d *DelayedSignal) SetNext(v interface{}) error {
	if err := d.sig.domain.Validate(v); err != nil {
		return err
	}
	if d.hasPending && valuesEqual(d.pendingValue, v) {
		return nil
	}
	d.pendingValue = v
	d.hasPending = true
	d.tsCounter++
	ts := d.tsCounter
	d.lastTS = ts

	at := d.sig.sched.CurrentTime() + d.delay
	d.sig.sched.ScheduleApply(at, func(now uint64) []Waiter {
		return d.apply(v, ts)
	})
	return nil
}

// apply commits v if ts still matches the most recent write's timestamp -
// i.e. no later write superseded this one within the delay window.
func (d *DelayedSignal) apply(v interface{}, ts uint64) []Waiter {
	if ts != d.lastTS {
		return nil
	}
	d.hasPending = false
	d.sig.next = v
	d.sig.dirty = false
	return d.sig.Update()
}
