// Package sim is the simulation kernel: it owns the current time, the
// pending-update siglist, the active queue, and the future-event heap, and
// drives all three to implement the delta-cycle/time-cycle outer loop.
// Grounded line-for-line on myhdl/_Simulation.py's Simulation.run; see
// DESIGN.md for where this implementation's structure departs from it
// (no separate end-of-delta purge pass; sentinel future event instead of
// a hasRun-preset _Waiter to bound a finite-duration run).
package sim

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/oisee/hdlsim/pkg/herrors"
	"github.com/oisee/hdlsim/pkg/signal"
	"github.com/oisee/hdlsim/pkg/waiter"
)

// CosimHandle is the narrow surface a cosimulation transport must offer
// the scheduler: read the co-simulator's current outputs, report whether
// anything changed, and push the scheduler's own changes back out.
// pkg/cosim implements this; kept here (rather than imported from there)
// so sim never depends on cosim.
type CosimHandle interface {
	Get() error
	Put(now uint64) error
	HasChange() bool
}

// Scheduler is the kernel. Zero value is not useful; construct with New.
type Scheduler struct {
	time    uint64
	counter uint64

	dirty     []*signal.Signal
	dirtySeen map[*signal.Signal]bool

	active []waiter.Runnable
	future futureHeap

	cosim    CosimHandle
	failErr  error
	finished bool

	claimedOutputs map[signal.Waitable]bool
}

var (
	_ signal.Scheduler  = (*Scheduler)(nil)
	_ waiter.Registrar  = (*Scheduler)(nil)
)

// New constructs an idle Scheduler at time 0.
func New() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.future)
	return s
}

// SetCosim attaches a cosimulation transport. Only one may be attached;
// a second call replaces the first (callers needing myhdl's "only one
// cosim argument" rejection should check before calling twice).
func (s *Scheduler) SetCosim(c CosimHandle) { s.cosim = c }

// ClaimOutputs registers outputs as driven by an always_comb/always_seq
// block built against this scheduler, failing if any of them is already
// claimed by an earlier block - pkg/process's "only one block may drive
// a signal" check (spec.md §4.5), scoped to this scheduler's own
// lifetime rather than a package-level global so it is garbage-collected
// along with everything else the scheduler retains.
func (s *Scheduler) ClaimOutputs(outputs []signal.Waitable) error {
	if s.claimedOutputs == nil {
		s.claimedOutputs = make(map[signal.Waitable]bool, len(outputs))
	}
	for _, o := range outputs {
		if s.claimedOutputs[o] {
			return &herrors.SignalAsOutputError{Signal: o.Name()}
		}
	}
	for _, o := range outputs {
		s.claimedOutputs[o] = true
	}
	return nil
}

// MarkDirty implements signal.Scheduler: enqueue sig on the pending-update
// list exactly once per delta.
func (s *Scheduler) MarkDirty(sig *signal.Signal) {
	if s.dirtySeen == nil {
		s.dirtySeen = make(map[*signal.Signal]bool)
	}
	if s.dirtySeen[sig] {
		return
	}
	s.dirtySeen[sig] = true
	s.dirty = append(s.dirty, sig)
}

// CurrentTime implements both signal.Scheduler and waiter.Registrar.
func (s *Scheduler) CurrentTime() uint64 { return s.time }

// ScheduleApply implements signal.Scheduler: used by DelayedSignal to
// install an inertial-delay apply closure into the future-event heap.
func (s *Scheduler) ScheduleApply(at uint64, apply func(now uint64) []signal.Waiter) {
	s.counter++
	heap.Push(&s.future, &futureEvent{time: at, insertionIndex: s.counter, apply: apply})
}

// ScheduleFuture implements waiter.Registrar: used by a Delay/Join/Tuple
// waiter to install itself (or a join sub-waiter) into the future-event
// heap.
func (s *Scheduler) ScheduleFuture(at uint64, w waiter.Runnable) {
	s.counter++
	heap.Push(&s.future, &futureEvent{time: at, insertionIndex: s.counter, runnable: w})
}

// PushActive implements waiter.Registrar: append w to the active queue,
// to be driven on the next active-queue-drain phase.
func (s *Scheduler) PushActive(w waiter.Runnable) { s.active = append(s.active, w) }

// Fail implements waiter.Registrar: record the first error raised by a
// process body (typically herrors.StopSimulation or a user error), to be
// raised by Run once it is safe to do so (spec §4.4: "at this point it is
// safe to potentially suspend a simulation").
func (s *Scheduler) Fail(err error) {
	if s.failErr == nil {
		s.failErr = err
	}
}

// Spawn starts a new process body as a cooperative generator and installs
// its first suspension, the way Simulation.__init__'s _checkArgs/_inferWaiter
// does for each generator argument.
func (s *Scheduler) Spawn(name string, body func(p *waiter.Process) error) error {
	proc := waiter.NewProcess(name, body)
	_, err := waiter.Start(proc, s)
	return err
}

// Run drives the simulation for duration time units (0 means run until
// StopSimulation or no more events). Returns (true, *herrors.SuspendSimulation)
// if the run ended because duration elapsed with events still in the
// future heap, (false, *herrors.StopSimulation) if the simulation ran to
// completion (including when the future heap empties exactly as duration
// elapses, with only signal-waiting processes left), or (false, err) if a
// process raised any other error. Once Run has returned StopSimulation,
// later calls return StopSimulation at once.
func (s *Scheduler) Run(duration uint64) (bool, error) {
	if s.finished {
		return false, &herrors.StopSimulation{Reason: "simulation has already finished"}
	}

	hasMaxTime := duration != 0
	var maxTime uint64
	if hasMaxTime {
		maxTime = s.time + duration
		s.counter++
		// Sentinel event carrying neither a runnable nor an apply closure:
		// its only job is to force the future heap to contain an entry at
		// exactly maxTime, the way myhdl schedules a pre-fired _Waiter
		// there, so time advances to maxTime exactly instead of
		// overshooting to whatever real event comes after it.
		heap.Push(&s.future, &futureEvent{time: maxTime, insertionIndex: s.counter})
	}

	for {
		pending := s.dirty
		s.dirty = nil
		s.dirtySeen = nil
		for _, sig := range pending {
			for _, w := range sig.Update() {
				if r, ok := w.(waiter.Runnable); ok {
					s.active = append(s.active, r)
				}
			}
		}

		for len(s.active) > 0 {
			w := s.active[0]
			s.active = s.active[1:]
			w.Advance(s)
		}

		if s.cosim != nil {
			if err := s.cosim.Get(); err != nil {
				s.Fail(err)
			}
			if len(s.dirty) > 0 || s.cosim.HasChange() {
				if err := s.cosim.Put(s.time); err != nil {
					s.Fail(err)
				}
				continue
			}
		} else if len(s.dirty) > 0 {
			continue
		}

		// No separate purge phase here: waiter.Waiter.Advance already
		// unregisters every stale sibling entry (tuple/join) eagerly
		// before re-registering, and every active-queue entry has already
		// been drained above, so no stale registration can have been
		// observed by anything in this delta. See DESIGN.md.

		if s.failErr != nil {
			err := s.failErr
			s.failErr = nil
			var susp *herrors.SuspendSimulation
			if errors.As(err, &susp) {
				return true, err
			}
			s.finished = true
			return false, err
		}

		if s.future.Len() == 0 {
			s.finished = true
			return false, &herrors.StopSimulation{Reason: "no more events"}
		}

		if hasMaxTime && s.time == maxTime {
			return true, &herrors.SuspendSimulation{Reason: fmt.Sprintf("simulated %d timesteps", duration)}
		}

		s.time = s.future[0].time
		if s.cosim != nil {
			if err := s.cosim.Put(s.time); err != nil {
				s.Fail(err)
			}
		}
		for s.future.Len() > 0 && s.future[0].time == s.time {
			ev := heap.Pop(&s.future).(*futureEvent)
			switch {
			case ev.runnable != nil:
				s.active = append(s.active, ev.runnable)
			case ev.apply != nil:
				for _, w := range ev.apply(s.time) {
					if r, ok := w.(waiter.Runnable); ok {
						s.active = append(s.active, r)
					}
				}
			default:
				// sentinel: nothing to do
			}
		}
	}
}
