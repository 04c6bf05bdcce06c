package vcd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oisee/hdlsim/pkg/sim"
	"github.com/oisee/hdlsim/pkg/signal"
)

func TestTracerWritesHeaderScopesAndChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "top.vcd")

	s := sim.New()
	clk, err := signal.New("clk", signal.BoolDomain{}, false, s)
	require.NoError(t, err)

	tr, err := New(path, "1ns", s)
	require.NoError(t, err)

	require.NoError(t, tr.Scope("top", func() error {
		return tr.Trace("clk", clk)
	}))
	require.NoError(t, tr.Finish())

	require.NoError(t, clk.SetNext(true))
	_, _ = s.Run(1)

	require.NoError(t, tr.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	require.Contains(t, content, "$scope module top $end")
	require.Contains(t, content, "$upscope $end")
	require.Contains(t, content, "$var reg 1")
	require.Contains(t, content, "$dumpvars")
	require.True(t, strings.Contains(content, "#1"))
	require.True(t, strings.Contains(content, "1"))
}

func TestTracerBacksUpExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "top.vcd")
	require.NoError(t, os.WriteFile(path, []byte("old contents"), 0o644))

	s := sim.New()
	tr, err := New(path, "1ns", s)
	require.NoError(t, err)
	require.NoError(t, tr.Finish())
	require.NoError(t, tr.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(entries), 2)

	foundBackup := false
	for _, e := range entries {
		if e.Name() != "top.vcd" {
			foundBackup = true
		}
	}
	require.True(t, foundBackup)
}

func TestTracerRejectsDuplicateTrace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "top.vcd")
	s := sim.New()
	sig, err := signal.New("a", signal.BoolDomain{}, false, s)
	require.NoError(t, err)

	tr, err := New(path, "1ns", s)
	require.NoError(t, err)
	require.NoError(t, tr.Trace("a", sig))
	require.Error(t, tr.Trace("a", sig))
}
