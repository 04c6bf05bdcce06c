package debugger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oisee/hdlsim/pkg/sim"
	"github.com/oisee/hdlsim/pkg/signal"
	"github.com/oisee/hdlsim/pkg/waiter"
)

func TestDebuggerWatchRecordsHistory(t *testing.T) {
	s := sim.New()
	clk, err := signal.New("clk", signal.BoolDomain{}, false, s)
	require.NoError(t, err)

	require.NoError(t, s.Spawn("clkgen", func(p *waiter.Process) error {
		for i := 0; i < 3; i++ {
			p.Yield(waiter.Delay(1))
			require.NoError(t, clk.SetNext(!clk.Val().(bool)))
		}
		return nil
	}))

	var out bytes.Buffer
	d := New(s, &Config{Output: &out, Input: strings.NewReader("")})
	d.Watch("clk", clk, WatchAny)

	_, _ = s.Run(3)

	require.Len(t, d.history, 3)
	require.Equal(t, "clk", d.history[0].Name)
	require.Equal(t, true, d.history[0].Value)
	require.Equal(t, false, d.history[1].Value)
	require.Equal(t, true, d.history[2].Value)
}

func TestDebuggerBreakpointAndStepCommands(t *testing.T) {
	s := sim.New()
	require.NoError(t, s.Spawn("ticker", func(p *waiter.Process) error {
		for i := 0; i < 5; i++ {
			p.Yield(waiter.Delay(1))
		}
		return nil
	}))

	var out bytes.Buffer
	input := strings.NewReader("break 2\nstep\nstep\nsig\n")
	d := New(s, &Config{Output: &out, Input: input})

	require.NoError(t, d.Run())
	require.Contains(t, out.String(), "Breakpoint set at t=2")
	require.Contains(t, out.String(), "t=2")
}

func TestDebuggerWatchRiseAndFallKinds(t *testing.T) {
	require.True(t, watchFires(WatchRise, false, true))
	require.False(t, watchFires(WatchRise, true, false))
	require.True(t, watchFires(WatchFall, true, false))
	require.False(t, watchFires(WatchFall, false, true))
	require.True(t, watchFires(WatchAny, false, true))
	require.True(t, watchFires(WatchAny, true, false))
}
