package process

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oisee/hdlsim/pkg/bitvector"
	"github.com/oisee/hdlsim/pkg/sim"
	"github.com/oisee/hdlsim/pkg/signal"
	"github.com/oisee/hdlsim/pkg/waiter"
)

// keepAlive spawns a free-running process so the future heap never
// empties: a Run whose only remaining future entry is its own duration
// bound ends with StopSimulation and finishes the scheduler, leaving
// nothing for a second Run call to resume.
func keepAlive(t *testing.T, s *sim.Scheduler) {
	require.NoError(t, s.Spawn("keepalive", func(p *waiter.Process) error {
		for {
			p.Yield(waiter.Delay(1))
		}
	}))
}

// TestAlwaysCombGrayEncoder is spec §8 scenario 2: a combinational
// Gray-code encoder, b -> g, re-evaluated on every change of b.
func TestAlwaysCombGrayEncoder(t *testing.T) {
	s := sim.New()
	keepAlive(t, s)
	b, err := signal.New("b", signal.VectorDomain{WidthBits: 4}, bitvector.NewWidth(0, 4), s)
	require.NoError(t, err)
	g, err := signal.New("g", signal.VectorDomain{WidthBits: 4}, bitvector.NewWidth(0, 4), s)
	require.NoError(t, err)

	require.NoError(t, AlwaysComb(s, "gray", func() {
		bv := b.Val().(*bitvector.BitVector)
		shifted := bv.Rsh(1)
		xored, err := bv.Xor(shifted)
		require.NoError(t, err)
		require.NoError(t, g.SetNext(bitvector.NewWidth(xored.Int64(), 4)))
	}, Inputs(b), Outputs(g)))

	suspended, err := s.Run(1)
	require.True(t, suspended)
	require.Error(t, err)
	require.EqualValues(t, 0, g.Val().(*bitvector.BitVector).Int64())

	require.NoError(t, b.SetNext(bitvector.NewWidth(0b0110, 4)))
	suspended, err = s.Run(1)
	require.True(t, suspended)
	require.Error(t, err)
	require.EqualValues(t, 0b0110^0b0011, g.Val().(*bitvector.BitVector).Int64())
}

func TestAlwaysCombRejectsInoutSignal(t *testing.T) {
	s := sim.New()
	a, err := signal.New("a", signal.BoolDomain{}, false, s)
	require.NoError(t, err)

	err = AlwaysComb(s, "bad", func() {}, Inputs(a), Outputs(a))
	require.Error(t, err)
}

func TestAlwaysCombRejectsDuplicateOutput(t *testing.T) {
	s := sim.New()
	a, err := signal.New("a", signal.BoolDomain{}, false, s)
	require.NoError(t, err)
	out, err := signal.New("out", signal.BoolDomain{}, false, s)
	require.NoError(t, err)

	require.NoError(t, AlwaysComb(s, "first", func() {}, Inputs(a), Outputs(out)))
	err = AlwaysComb(s, "second", func() {}, Inputs(a), Outputs(out))
	require.Error(t, err)
}

func TestAlwaysSeqAsyncReset(t *testing.T) {
	s := sim.New()
	keepAlive(t, s)
	clk, err := signal.New("clk", signal.BoolDomain{}, false, s)
	require.NoError(t, err)
	reset, err := NewResetSignal(false, true, true, s)
	require.NoError(t, err)
	q, err := signal.New("q", signal.BoolDomain{}, false, s)
	require.NoError(t, err)

	require.NoError(t, AlwaysSeq(s, "reg", clk.PosEdge(), reset, func() {
		require.NoError(t, q.SetNext(!q.Val().(bool)))
	}, Inputs(clk), Outputs(q)))

	require.NoError(t, clk.SetNext(true))
	suspended, err := s.Run(1)
	require.True(t, suspended)
	require.Error(t, err)
	require.True(t, q.Val().(bool))

	require.NoError(t, reset.Signal().SetNext(true))
	suspended, err = s.Run(1)
	require.True(t, suspended)
	require.Error(t, err)
	require.False(t, q.Val().(bool))
}
