package cosim

import (
	"bufio"
	"fmt"
	"os/exec"
	"strings"

	"github.com/oisee/hdlsim/pkg/herrors"
)

// PipeTransport wires the Adapter to a child simulator process over two
// OS pipes - spec.md §6's "cosimulation wire: two OS pipes (read, write)
// to a child simulator process... closes both descriptors and waitpids
// on teardown." Grounded in style on the teacher's
// pkg/emulator/io_interceptor.go, which wraps host-OS file handles and a
// child's lifecycle behind a small struct rather than scattering raw
// os.File/os.Process calls through the caller.
//
// Framing is line-based: "T <time>" and "C <name> <value>" lines flow to
// the child; the scheduler requests the child's pending changes by
// writing a "SYNC" line and reading lines back until the child echoes
// its own "SYNC", mirroring a request/response handshake rather than
// myhdl's raw blocking os.read (Go's exec+pipe plumbing has no direct
// equivalent to the select()-based polling _Cosimulation.py used).
type PipeTransport struct {
	cmd *exec.Cmd

	toChild   *bufio.Writer
	toChildRaw interface{ Close() error }
	fromChild *bufio.Scanner
	fromChildRaw interface{ Close() error }
}

// NewPipeTransport starts name with args as a child process connected by
// two pipes: the child's stdin is the scheduler's write end, its stdout
// the scheduler's read end.
func NewPipeTransport(name string, args ...string) (*PipeTransport, error) {
	cmd := exec.Command(name, args...)

	toChild, err := cmd.StdinPipe()
	if err != nil {
		return nil, &herrors.CosimulationError{Reason: err.Error()}
	}
	fromChild, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &herrors.CosimulationError{Reason: err.Error()}
	}
	if err := cmd.Start(); err != nil {
		return nil, &herrors.CosimulationError{Reason: err.Error()}
	}

	return &PipeTransport{
		cmd:          cmd,
		toChild:      bufio.NewWriter(toChild),
		toChildRaw:   toChild,
		fromChild:    bufio.NewScanner(fromChild),
		fromChildRaw: fromChild,
	}, nil
}

// WriteTime implements Transport.
func (t *PipeTransport) WriteTime(now uint64) error {
	return t.writeLine(fmt.Sprintf("T %d", now))
}

// WriteChange implements Transport.
func (t *PipeTransport) WriteChange(c Change) error {
	return t.writeLine(fmt.Sprintf("C %s %s", c.Name, c.Value))
}

func (t *PipeTransport) writeLine(line string) error {
	if _, err := fmt.Fprintln(t.toChild, line); err != nil {
		return &herrors.CosimulationError{Reason: err.Error()}
	}
	return t.toChild.Flush()
}

// ReadChanges implements Transport: request the child's pending changes
// with a "SYNC" line and collect "C <name> <value>" lines until the
// child echoes "SYNC" back.
func (t *PipeTransport) ReadChanges() ([]Change, error) {
	if err := t.writeLine("SYNC"); err != nil {
		return nil, err
	}
	var changes []Change
	for t.fromChild.Scan() {
		line := t.fromChild.Text()
		if line == "SYNC" {
			return changes, nil
		}
		if !strings.HasPrefix(line, "C ") {
			continue
		}
		parts := strings.SplitN(line[2:], " ", 2)
		if len(parts) != 2 {
			continue
		}
		changes = append(changes, Change{Name: parts[0], Value: parts[1]})
	}
	if err := t.fromChild.Err(); err != nil {
		return nil, &herrors.CosimulationError{Reason: err.Error()}
	}
	return changes, &herrors.CosimulationError{Reason: "child simulator closed its output before echoing SYNC"}
}

// Close closes both pipe descriptors and waits for the child to exit.
func (t *PipeTransport) Close() error {
	_ = t.toChildRaw.Close()
	_ = t.fromChildRaw.Close()
	if err := t.cmd.Wait(); err != nil {
		return &herrors.CosimulationError{Reason: err.Error()}
	}
	return nil
}
