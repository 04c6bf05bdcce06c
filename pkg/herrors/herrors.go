// Package herrors collects the error kinds shared across the simulation
// kernel: bit-vector domain violations, signal domain violations, scheduler
// control-flow sentinels, and always_comb/always_seq misuse. Kept in one
// package (rather than one per owning package) because several of these
// are raised by one package and checked by another - the scheduler checks
// for StopSimulation raised deep inside a user process, for instance.
package herrors

import "fmt"

// Sentinel control-flow errors. These are not bugs: StopSimulation is the
// normal way a simulation run ends, and SuspendSimulation means a finite
// duration elapsed and the caller may resume with another Run call.
var (
	ErrStopSimulation    = fmt.Errorf("hdlsim: stop simulation")
	ErrSuspendSimulation = fmt.Errorf("hdlsim: suspend simulation")
	ErrNoMoreEvents      = fmt.Errorf("hdlsim: no more events")
)

// StopSimulation wraps ErrStopSimulation with a human-readable reason, the
// way myhdl's StopSimulation("message") carries a message.
type StopSimulation struct {
	Reason string
}

func (e *StopSimulation) Error() string {
	if e.Reason == "" {
		return ErrStopSimulation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrStopSimulation, e.Reason)
}

func (e *StopSimulation) Unwrap() error { return ErrStopSimulation }

// SuspendSimulation wraps ErrSuspendSimulation similarly.
type SuspendSimulation struct {
	Reason string
}

func (e *SuspendSimulation) Error() string {
	if e.Reason == "" {
		return ErrSuspendSimulation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSuspendSimulation, e.Reason)
}

func (e *SuspendSimulation) Unwrap() error { return ErrSuspendSimulation }

// SimulationError reports bad arguments to the scheduler: a process
// yielding an unsupported or malformed suspension target, or an
// always_comb block declared with no inputs.
type SimulationError struct {
	Reason string
}

func (e *SimulationError) Error() string { return "hdlsim: simulation error: " + e.Reason }

// ValueOutOfRangeError reports a bit-vector or signal write that violates
// its declared bounds or bit width.
type ValueOutOfRangeError struct {
	Value string
	Lo    string
	Hi    string
}

func (e *ValueOutOfRangeError) Error() string {
	if e.Lo == "" && e.Hi == "" {
		return fmt.Sprintf("hdlsim: value %s out of range", e.Value)
	}
	return fmt.Sprintf("hdlsim: value %s out of range [%s, %s)", e.Value, e.Lo, e.Hi)
}

// TypeMismatchError reports a value that does not match a signal's or
// bit-vector's declared domain (e.g. writing a string to a boolean signal).
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("hdlsim: expected %s, got %s", e.Expected, e.Got)
}

// BitWidthMismatchError reports a concat or slice-assignment whose operand
// width does not match what the operation requires.
type BitWidthMismatchError struct {
	Expected int
	Got      int
}

func (e *BitWidthMismatchError) Error() string {
	return fmt.Sprintf("hdlsim: bit width mismatch: expected %d, got %d", e.Expected, e.Got)
}

// IndexError reports an out-of-range bit index or a malformed slice bound.
type IndexError struct {
	Reason string
}

func (e *IndexError) Error() string { return "hdlsim: index error: " + e.Reason }

// SignalAsOutputError reports that an always_comb/always_seq block tried
// to claim a signal as an output that another such block already drives.
type SignalAsOutputError struct {
	Signal string
}

func (e *SignalAsOutputError) Error() string {
	return fmt.Sprintf("hdlsim: %s is already driven by another always_comb/always_seq block", e.Signal)
}

// SignalAsInoutError reports a signal listed as both an input and an
// output of the same always_comb/always_seq block.
type SignalAsInoutError struct {
	Signal string
}

func (e *SignalAsInoutError) Error() string {
	return fmt.Sprintf("hdlsim: %s is used as both input and output", e.Signal)
}

// EmbeddedFunctionError reports a builder misuse analogous to myhdl's
// "embedded functions not supported" check. No builder in this module
// returns it.
type EmbeddedFunctionError struct {
	Reason string
}

func (e *EmbeddedFunctionError) Error() string { return "hdlsim: " + e.Reason }

// ExtractHierarchyError reports that the scope tree needed for tracing
// could not be built. Fatal for tracing, not for plain simulation.
type ExtractHierarchyError struct {
	Reason string
}

func (e *ExtractHierarchyError) Error() string { return "hdlsim: hierarchy error: " + e.Reason }

// TraceSignalsError reports multiple concurrent traces, a top-level
// instance with no name, or a bad argument type to the tracer.
type TraceSignalsError struct {
	Reason string
}

func (e *TraceSignalsError) Error() string { return "hdlsim: trace error: " + e.Reason }

// CosimulationError reports a failure of the link to an external
// simulator: a pipe could not be opened, the child process could not be
// started or exited abnormally, or the wire protocol was violated.
type CosimulationError struct {
	Reason string
}

func (e *CosimulationError) Error() string { return "hdlsim: cosimulation error: " + e.Reason }

// ScriptError reports a Lua testbench failure: a syntax error, an
// unbound or read-only signal name, or a value of the wrong type passed
// to signal.set.
type ScriptError struct {
	Reason string
}

func (e *ScriptError) Error() string { return "hdlsim: script error: " + e.Reason }

// TimescaleError reports a malformed --timescale flag or preset name:
// neither a "<multiplier><unit>" pair (1ns, 100ps, ...) nor a recognized
// named preset.
type TimescaleError struct {
	Reason string
}

func (e *TimescaleError) Error() string { return "hdlsim: timescale error: " + e.Reason }
