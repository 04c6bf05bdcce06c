package signal

import (
	"testing"

	"github.com/oisee/hdlsim/pkg/bitvector"
)

// fakeScheduler is the minimal Scheduler double used across these tests.
type fakeScheduler struct {
	now     uint64
	dirty   []*Signal
	applies map[uint64][]func(uint64) []Waiter
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{applies: make(map[uint64][]func(uint64) []Waiter)}
}

func (f *fakeScheduler) MarkDirty(s *Signal)   { f.dirty = append(f.dirty, s) }
func (f *fakeScheduler) CurrentTime() uint64   { return f.now }
func (f *fakeScheduler) ScheduleApply(at uint64, apply func(now uint64) []Waiter) {
	f.applies[at] = append(f.applies[at], apply)
}

type fakeWaiter struct {
	ran bool
}

func (w *fakeWaiter) Fire() bool { return true }

func TestUpdateNoEventWhenUnchanged(t *testing.T) {
	sched := newFakeScheduler()
	s, err := New("s", BoolDomain{}, false, sched)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetNext(false); err != nil {
		t.Fatalf("SetNext(val): %v", err)
	}
	woken := s.Update()
	if len(woken) != 0 {
		t.Fatalf("expected no event for .next == .val, got %d waiters", len(woken))
	}
}

func TestPosEdgeWakesOnlyPosEdgeAndEventWaiters(t *testing.T) {
	sched := newFakeScheduler()
	s, err := New("clk", BoolDomain{}, false, sched)
	if err != nil {
		t.Fatal(err)
	}
	pos := &fakeWaiter{}
	neg := &fakeWaiter{}
	ev := &fakeWaiter{}
	s.AddPosEdgeWaiter(pos)
	s.AddNegEdgeWaiter(neg)
	s.AddEventWaiter(ev)

	if err := s.SetNext(true); err != nil {
		t.Fatal(err)
	}
	woken := s.Update()

	found := map[Waiter]bool{}
	for _, w := range woken {
		found[w] = true
	}
	if !found[pos] || !found[ev] {
		t.Fatalf("posedge transition must wake posedge and event waiters, got %v", woken)
	}
	if found[neg] {
		t.Fatalf("posedge transition must not wake negedge waiters")
	}
}

func TestNextIsCopyOnFirstRead(t *testing.T) {
	sched := newFakeScheduler()
	s, err := New("s", BoundedIntDomain{Lo: 0, Hi: 256}, int64(5), sched)
	if err != nil {
		t.Fatal(err)
	}
	n := s.Next()
	if n.(int64) != 5 {
		t.Fatalf("Next() before any write = %v, want 5 (copy of val)", n)
	}
	if s.Val().(int64) != 5 {
		t.Fatalf("Val() mutated by reading Next(): %v", s.Val())
	}
}

func TestDomainRejectsOutOfRange(t *testing.T) {
	sched := newFakeScheduler()
	s, err := New("s", BoundedIntDomain{Lo: 0, Hi: 4}, int64(0), sched)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetNext(int64(10)); err == nil {
		t.Fatal("expected ValueOutOfRangeError for out-of-bounds write")
	}
}

func TestDelayedSignalInertialFiltering(t *testing.T) {
	sched := newFakeScheduler()
	ds, err := NewDelayed("d", BoolDomain{}, false, 10, sched)
	if err != nil {
		t.Fatal(err)
	}

	// t=0: write true, scheduled to apply at t=10.
	if err := ds.SetNext(true); err != nil {
		t.Fatal(err)
	}
	// t=5: write false before the first apply fires - this should
	// supersede it (different value).
	sched.now = 5
	if err := ds.SetNext(false); err != nil {
		t.Fatal(err)
	}

	// Fire everything scheduled for t=10: the stale "true" apply should
	// be superseded (stale timestamp) and produce no event.
	for _, apply := range sched.applies[10] {
		apply(10)
	}
	if ds.Val().(bool) != false {
		t.Fatalf("stale apply must not have committed true; val = %v", ds.Val())
	}

	// Fire everything scheduled for t=15 (5 + delay 10): this is the
	// live write and must commit.
	for _, apply := range sched.applies[15] {
		apply(15)
	}
	if ds.Val().(bool) != false {
		t.Fatalf("val after live apply = %v, want false", ds.Val())
	}
}

func TestShadowSignalProjectsBit(t *testing.T) {
	sched := newFakeScheduler()
	src, err := New("src", VectorDomain{WidthBits: 8}, bitvector.NewWidth(0b0000_0110, 8), sched)
	if err != nil {
		t.Fatal(err)
	}
	shadow, err := NewBitShadow("src_bit1", src, 1, sched)
	if err != nil {
		t.Fatal(err)
	}
	if got := shadow.Val().(*bitvector.BitVector).Int64(); got != 1 {
		t.Fatalf("initial shadow of bit 1 = %d, want 1", got)
	}

	if err := src.SetNext(bitvector.NewWidth(0b0000_0100, 8)); err != nil {
		t.Fatal(err)
	}
	src.Update()
	if got := shadow.Val().(*bitvector.BitVector).Int64(); got != 0 {
		t.Fatalf("shadow of bit 1 after src -> 0b0100 = %d, want 0", got)
	}
}
