package waiter

import (
	"testing"

	"github.com/oisee/hdlsim/pkg/signal"
)

// fakeReg is a minimal Registrar used to drive waiter tests without the
// full scheduler in package sim.
type fakeReg struct {
	now     uint64
	active  []Runnable
	future  map[uint64][]Runnable
	failErr error
}

func newFakeReg() *fakeReg {
	return &fakeReg{future: make(map[uint64][]Runnable)}
}

func (f *fakeReg) CurrentTime() uint64 { return f.now }
func (f *fakeReg) ScheduleFuture(at uint64, w Runnable) {
	f.future[at] = append(f.future[at], w)
}
func (f *fakeReg) PushActive(w Runnable) { f.active = append(f.active, w) }
func (f *fakeReg) Fail(err error)        { f.failErr = err }

// drainActive runs every waiter currently in the active queue to
// completion (FIFO), the way the scheduler's "drain active queue" phase
// does, without advancing time.
func (f *fakeReg) drainActive() {
	for len(f.active) > 0 {
		w := f.active[0]
		f.active = f.active[1:]
		w.Advance(f)
	}
}

// advanceTo fires every future event scheduled at time t, pushing it onto
// the active queue, then drains the active queue.
func (f *fakeReg) advanceTo(t uint64) {
	f.now = t
	for _, w := range f.future[t] {
		f.PushActive(w)
	}
	delete(f.future, t)
	f.drainActive()
}

type fakeSched struct{}

func (fakeSched) MarkDirty(*signal.Signal) {}
func (f fakeSched) CurrentTime() uint64    { return 0 }
func (f fakeSched) ScheduleApply(at uint64, apply func(now uint64) []signal.Waiter) {}

func newTestSignal(t *testing.T, name string, init bool) *signal.Signal {
	t.Helper()
	s, err := signal.New(name, signal.BoolDomain{}, init, fakeSched{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFIFOWakeOrdering(t *testing.T) {
	reg := newFakeReg()
	sig := newTestSignal(t, "s", false)

	var order []string
	mk := func(name string) *Process {
		return NewProcess(name, func(p *Process) error {
			p.Yield(signal.Waitable(sig))
			order = append(order, name)
			return nil
		})
	}
	pa := mk("A")
	pb := mk("B")

	wa, err := Start(pa, reg)
	if err != nil || wa == nil {
		t.Fatalf("Start A: %v", err)
	}
	wb, err := Start(pb, reg)
	if err != nil || wb == nil {
		t.Fatalf("Start B: %v", err)
	}

	if err := sig.SetNext(true); err != nil {
		t.Fatal(err)
	}
	woken := sig.Update()
	for _, w := range woken {
		reg.PushActive(w.(Runnable))
	}
	reg.drainActive()

	if len(order) != 2 || order[0] != "A" || order[1] != "B" {
		t.Fatalf("wake order = %v, want [A B] (registration order)", order)
	}
}

func TestTupleFiresOncePerDelta(t *testing.T) {
	reg := newFakeReg()
	sigA := newTestSignal(t, "a", false)
	sigB := newTestSignal(t, "b", false)

	runs := 0
	p := NewProcess("tup", func(p *Process) error {
		p.Yield(Tuple{signal.Waitable(sigA), signal.Waitable(sigB)})
		runs++
		return nil
	})
	if _, err := Start(p, reg); err != nil {
		t.Fatal(err)
	}

	if err := sigA.SetNext(true); err != nil {
		t.Fatal(err)
	}
	if err := sigB.SetNext(true); err != nil {
		t.Fatal(err)
	}
	wokenA := sigA.Update()
	wokenB := sigB.Update()
	for _, w := range wokenA {
		reg.PushActive(w.(Runnable))
	}
	for _, w := range wokenB {
		reg.PushActive(w.(Runnable))
	}
	reg.drainActive()

	if runs != 1 {
		t.Fatalf("tuple process ran %d times, want exactly 1", runs)
	}
}

func TestJoinResumesAtMaxSubDelay(t *testing.T) {
	reg := newFakeReg()

	resumedAt := uint64(0)
	p := NewProcess("join", func(p *Process) error {
		p.Yield(Join{Delay(10), Delay(20)})
		resumedAt = reg.now
		return nil
	})
	if _, err := Start(p, reg); err != nil {
		t.Fatal(err)
	}

	reg.advanceTo(10)
	if resumedAt != 0 {
		t.Fatalf("join resumed early at t=10, want t=20")
	}
	reg.advanceTo(20)
	if resumedAt != 20 {
		t.Fatalf("join resumed at %d, want 20", resumedAt)
	}
}
