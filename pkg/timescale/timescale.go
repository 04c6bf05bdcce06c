// Package timescale resolves the named and literal "<multiplier><unit>"
// timescale strings a VCD header declares (e.g. "1ns", "100ps") and
// converts simulated tick counts to real time.Duration values against
// them. Grounded in structure on oisee-minz's pkg/platform/timing.go: a
// map of named presets plus small accessor functions, reworked from the
// platform-frame-timing domain to the VCD-timescale domain.
package timescale

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oisee/hdlsim/pkg/herrors"
)

// Unit is one of the six VCD-legal timescale units.
type Unit string

const (
	Second      Unit = "s"
	Millisecond Unit = "ms"
	Microsecond Unit = "us"
	Nanosecond  Unit = "ns"
	Picosecond  Unit = "ps"
	Femtosecond Unit = "fs"
)

// unitNanoseconds gives each unit's size in nanoseconds. ps and fs are
// sub-nanosecond and so can't be represented as an exact time.Duration
// per se - PerTick and Duration multiply in this wider float64 domain
// before converting to time.Duration, so only the final result is
// rounded to nanosecond resolution rather than every intermediate unit.
var unitNanoseconds = map[Unit]float64{
	Second:      1e9,
	Millisecond: 1e6,
	Microsecond: 1e3,
	Nanosecond:  1,
	Picosecond:  1e-3,
	Femtosecond: 1e-6,
}

// Timescale is a VCD $timescale value: multiplier (1, 10, or 100) of unit.
type Timescale struct {
	Multiplier int
	Unit       Unit
}

// String renders the canonical VCD form, e.g. "1ns".
func (t Timescale) String() string {
	return fmt.Sprintf("%d%s", t.Multiplier, t.Unit)
}

// PerTick returns the real-time duration of a single simulated tick.
// Sub-nanosecond timescales (ps, fs) round to zero here; use Duration
// over the full tick count to avoid losing precision one tick at a time.
func (t Timescale) PerTick() time.Duration {
	return time.Duration(float64(t.Multiplier) * unitNanoseconds[t.Unit])
}

// Duration converts a tick count to real time under this timescale.
func (t Timescale) Duration(ticks uint64) time.Duration {
	return time.Duration(float64(t.Multiplier) * float64(ticks) * unitNanoseconds[t.Unit])
}

// Presets maps the short names accepted by --timescale to a Timescale,
// each corresponding to the "1<unit>" VCD default for that unit.
var Presets = map[string]Timescale{
	"s":  {Multiplier: 1, Unit: Second},
	"ms": {Multiplier: 1, Unit: Millisecond},
	"us": {Multiplier: 1, Unit: Microsecond},
	"ns": {Multiplier: 1, Unit: Nanosecond},
	"ps": {Multiplier: 1, Unit: Picosecond},
	"fs": {Multiplier: 1, Unit: Femtosecond},
}

var validMultipliers = map[int]bool{1: true, 10: true, 100: true}

// Parse resolves s as either a named preset ("ns") or a literal
// "<multiplier><unit>" pair ("10ps"). It never returns the zero
// Timescale on success - a recognized preset or literal always carries
// a valid multiplier and unit.
func Parse(s string) (Timescale, error) {
	s = strings.TrimSpace(s)
	if ts, ok := Presets[s]; ok {
		return ts, nil
	}

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return Timescale{}, &herrors.TimescaleError{Reason: fmt.Sprintf("missing multiplier in %q", s)}
	}
	mult, err := strconv.Atoi(s[:i])
	if err != nil {
		return Timescale{}, &herrors.TimescaleError{Reason: fmt.Sprintf("bad multiplier in %q: %v", s, err)}
	}
	if !validMultipliers[mult] {
		return Timescale{}, &herrors.TimescaleError{Reason: fmt.Sprintf("multiplier must be 1, 10, or 100, got %d", mult)}
	}

	unit := Unit(s[i:])
	if _, ok := unitNanoseconds[unit]; !ok {
		return Timescale{}, &herrors.TimescaleError{Reason: fmt.Sprintf("unrecognized unit %q", s[i:])}
	}

	return Timescale{Multiplier: mult, Unit: unit}, nil
}

// MustParse is Parse, panicking on error - for trusted literals such as
// a command's default flag value.
func MustParse(s string) Timescale {
	ts, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return ts
}
