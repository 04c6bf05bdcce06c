package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oisee/hdlsim/pkg/bitvector"
	"github.com/oisee/hdlsim/pkg/signal"
	"github.com/oisee/hdlsim/pkg/waiter"
)

// TestSchedulerCounterWithAsyncReset is spec §8 scenario 1: an 8-bit counter clocked on clk's posedge,
// asynchronously cleared on reset's posedge, run through a handful of clock
// edges to check both the increment and the async-reset behavior.
func TestSchedulerCounterWithAsyncReset(t *testing.T) {
	s := New()

	clk, err := signal.New("clk", signal.BoolDomain{}, false, s)
	require.NoError(t, err)
	reset, err := signal.New("reset", signal.BoolDomain{}, false, s)
	require.NoError(t, err)
	count, err := signal.New("count", signal.VectorDomain{WidthBits: 8}, bitvector.NewWidth(0, 8), s)
	require.NoError(t, err)

	require.NoError(t, s.Spawn("counter", func(p *waiter.Process) error {
		for {
			p.Yield(waiter.Tuple{clk.PosEdge(), reset.PosEdge()})
			if reset.Val().(bool) {
				require.NoError(t, count.SetNext(bitvector.NewWidth(0, 8)))
				continue
			}
			cur := count.Val().(*bitvector.BitVector)
			next, err := cur.Add(bitvector.New(1))
			if err != nil {
				return err
			}
			require.NoError(t, count.SetNext(bitvector.NewWidth(next.Int64(), 8)))
		}
	}))

	// clock generator: toggle clk every time unit forever.
	require.NoError(t, s.Spawn("clkgen", func(p *waiter.Process) error {
		for {
			p.Yield(waiter.Delay(1))
			require.NoError(t, clk.SetNext(!clk.Val().(bool)))
		}
	}))

	tick := func() {
		suspended, err := s.Run(1)
		require.True(t, suspended)
		require.Error(t, err)
	}

	// Drive three posedges of clk (each posedge is every other tick).
	for i := 0; i < 6; i++ {
		tick()
	}
	require.EqualValues(t, 3, count.Val().(*bitvector.BitVector).Int64())

	require.NoError(t, reset.SetNext(true))
	for i := 0; i < 2; i++ {
		tick()
	}
	require.EqualValues(t, 0, count.Val().(*bitvector.BitVector).Int64())
}

// TestSchedulerNoMoreEvents checks the StopSimulation("no more events")
// path: a process that yields exactly once on a delay, with nothing else
// live, leaves the scheduler with an empty future heap after that delay
// fires and the process completes.
func TestSchedulerNoMoreEvents(t *testing.T) {
	s := New()
	ran := false
	require.NoError(t, s.Spawn("once", func(p *waiter.Process) error {
		p.Yield(waiter.Delay(5))
		ran = true
		return nil
	}))

	suspended, err := s.Run(0)
	require.False(t, suspended)
	require.Error(t, err)
	require.True(t, ran)
	require.EqualValues(t, 5, s.CurrentTime())
}

// TestSchedulerJoinAcrossDeltas exercises pkg/waiter's Join through the
// real scheduler (spec §8 scenario 5), rather than the fakeReg used in
// pkg/waiter's own tests.
func TestSchedulerJoinAcrossDeltas(t *testing.T) {
	s := New()
	resumedAt := uint64(0)
	require.NoError(t, s.Spawn("join", func(p *waiter.Process) error {
		p.Yield(waiter.Join{waiter.Delay(10), waiter.Delay(20)})
		resumedAt = s.CurrentTime()
		return nil
	}))

	suspended, err := s.Run(15)
	require.True(t, suspended)
	require.Error(t, err)
	require.EqualValues(t, 0, resumedAt)

	suspended, err = s.Run(10)
	require.False(t, suspended)
	require.Error(t, err)
	require.EqualValues(t, 20, resumedAt)
}
