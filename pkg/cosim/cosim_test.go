package cosim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oisee/hdlsim/pkg/sim"
	"github.com/oisee/hdlsim/pkg/signal"
)

// fakeTransport is an in-memory Transport: queued inbound changes and a
// record of every outbound time/change, with no actual process behind it.
type fakeTransport struct {
	inbound  [][]Change
	outTimes []uint64
	outbound []Change
	closed   bool
}

func (f *fakeTransport) ReadChanges() ([]Change, error) {
	if len(f.inbound) == 0 {
		return nil, nil
	}
	next := f.inbound[0]
	f.inbound = f.inbound[1:]
	return next, nil
}

func (f *fakeTransport) WriteTime(now uint64) error {
	f.outTimes = append(f.outTimes, now)
	return nil
}

func (f *fakeTransport) WriteChange(c Change) error {
	f.outbound = append(f.outbound, c)
	return nil
}

func (f *fakeTransport) Close() error { f.closed = true; return nil }

func parseBool(s string) (interface{}, error) {
	return s == "1", nil
}

func formatBool(v interface{}) string {
	if v.(bool) {
		return "1"
	}
	return "0"
}

func TestAdapterGetWritesIntoBoundInput(t *testing.T) {
	s := sim.New()
	in, err := signal.New("in", signal.BoolDomain{}, false, s)
	require.NoError(t, err)

	ft := &fakeTransport{inbound: [][]Change{{{Name: "in", Value: "1"}}}}
	a := New(ft)
	a.BindInput("in", in, parseBool)

	require.NoError(t, a.Get())
	require.True(t, a.HasChange())
	_, _ = s.Run(0)
	require.Equal(t, true, in.Val())
}

func TestAdapterGetWithNoChangesClearsHasChange(t *testing.T) {
	ft := &fakeTransport{inbound: [][]Change{nil}}
	a := New(ft)
	require.NoError(t, a.Get())
	require.False(t, a.HasChange())
}

func TestAdapterPutReportsBoundOutputChanges(t *testing.T) {
	s := sim.New()
	out, err := signal.New("out", signal.BoolDomain{}, false, s)
	require.NoError(t, err)

	ft := &fakeTransport{}
	a := New(ft)
	a.BindOutput("out", out, formatBool)

	require.NoError(t, out.SetNext(true))
	_, _ = s.Run(0)

	require.NoError(t, a.Put(s.CurrentTime()))
	require.Equal(t, []uint64{s.CurrentTime()}, ft.outTimes)
	require.Equal(t, []Change{{Name: "out", Value: "1"}}, ft.outbound)

	require.NoError(t, a.Put(s.CurrentTime()))
	require.Len(t, ft.outbound, 1, "pending changes must be cleared after a Put")
}

func TestAdapterSpawnTupleWaitsOnExternallyDrivenSignals(t *testing.T) {
	s := sim.New()
	clk, err := signal.New("clk", signal.BoolDomain{}, false, s)
	require.NoError(t, err)

	a := New(&fakeTransport{})
	require.NoError(t, a.Spawn(s, clk))

	require.NoError(t, clk.SetNext(true))
	// The tuple-wait process re-registers on clk forever but never touches
	// the future heap itself; once the sentinel is the only future event
	// and it is consumed exactly at maxTime, the scheduler reports no more
	// events rather than a resumable suspend (see DESIGN.md).
	resumed, err := s.Run(1)
	require.False(t, resumed)
	require.Error(t, err)
}

func TestAdapterCloseClosesTransport(t *testing.T) {
	ft := &fakeTransport{}
	a := New(ft)
	require.NoError(t, a.Close())
	require.True(t, ft.closed)
}
