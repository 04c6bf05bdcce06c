// Package script drives a running simulation from an embedded Lua
// testbench instead of a compiled Go process: the nearest Go-native
// equivalent to MyHDL's "a testbench is just another generator reading and
// writing Signal objects". Grounded directly on the teacher's
// pkg/meta/lua_evaluator.go - lua.NewState(), a named Lua table of host
// functions built with L.SetField/L.NewFunction, and a value-driven
// toLuaValue/fromLuaValue marshaling type switch - adapted from a
// compile-time code-generation domain to a testbench-stimulus domain.
package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/oisee/hdlsim/pkg/bitvector"
	"github.com/oisee/hdlsim/pkg/herrors"
	"github.com/oisee/hdlsim/pkg/signal"
	"github.com/oisee/hdlsim/pkg/sim"
	"github.com/oisee/hdlsim/pkg/waiter"
)

// Readable is the narrow surface signal.get needs.
type Readable interface {
	Val() interface{}
}

// Writable is the narrow surface signal.set needs.
type Writable interface {
	Readable
	SetNext(v interface{}) error
}

// Engine holds the named signals a Lua testbench script may reach, and
// spawns scripts as ordinary scheduler processes.
type Engine struct {
	signals map[string]Readable
}

// New returns an Engine with no bound signals.
func New() *Engine {
	return &Engine{signals: make(map[string]Readable)}
}

// Bind makes sig reachable from Lua scripts as name, via signal.get(name)
// and - if sig also implements Writable - signal.set(name, v).
func (e *Engine) Bind(name string, sig Readable) {
	e.signals[name] = sig
}

// Signals returns every signal currently reachable from Lua under this
// Engine, bound via Bind or created via a script's signal.declare call -
// so a host program (cmd/hdlsim's CLI, in particular) can trace or watch
// a purely script-declared design after running the testbench that
// declares it.
func (e *Engine) Signals() map[string]Readable {
	return e.signals
}

// Declare creates a new signal of the given kind ("bool", "int", or
// "vector") under sched and binds it as name, for use both from Go (the
// returned *signal.Signal) and from a Lua script's signal.declare. This
// lets a testbench script define the entire signal graph it drives
// without any signal being compiled into the host Go binary - the
// nearest equivalent to MyHDL's testbenches declaring their own
// Signal(bool(0)) instances inline.
func (e *Engine) Declare(sched *sim.Scheduler, name, kind string, width int) (*signal.Signal, error) {
	var domain signal.Domain
	var init interface{}
	switch kind {
	case "bool":
		domain, init = signal.BoolDomain{}, false
	case "int":
		domain, init = signal.BoundedIntDomain{Lo: 0, Hi: 1<<62 - 1}, int64(0)
	case "vector":
		domain, init = signal.VectorDomain{WidthBits: width}, bitvector.NewWidth(0, width)
	default:
		return nil, &herrors.ScriptError{Reason: fmt.Sprintf("unknown signal kind %q (want bool, int, or vector)", kind)}
	}

	sig, err := signal.New(name, domain, init, sched)
	if err != nil {
		return nil, err
	}
	e.signals[name] = sig
	return sig, nil
}

// Run spawns script as a new scheduler process: a fresh *lua.LState is
// built, wired with a "signal" table (get/set/wait), and run to
// completion via L.DoString. wait(ticks) suspends the owning process - the
// same one-goroutine-per-process, run-to-completion-between-waits model
// every other process in this package uses - rather than the script
// running the whole simulation itself.
func (e *Engine) Run(sched *sim.Scheduler, name, code string) error {
	return sched.Spawn(name, func(p *waiter.Process) error {
		L := lua.NewState()
		defer L.Close()
		e.install(L, p, sched)
		if err := L.DoString(code); err != nil {
			return &herrors.ScriptError{Reason: err.Error()}
		}
		return nil
	})
}

func (e *Engine) install(L *lua.LState, p *waiter.Process, sched *sim.Scheduler) {
	tbl := L.NewTable()
	L.SetField(tbl, "get", L.NewFunction(e.luaGet))
	L.SetField(tbl, "set", L.NewFunction(e.luaSet))
	L.SetField(tbl, "declare", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		kind := L.CheckString(2)
		width := 0
		if L.GetTop() >= 3 {
			width = L.CheckInt(3)
		}
		if _, err := e.Declare(sched, name, kind, width); err != nil {
			L.RaiseError("%s", err.Error())
		}
		return 0
	}))
	L.SetField(tbl, "wait", L.NewFunction(func(L *lua.LState) int {
		ticks := L.CheckInt64(1)
		p.Yield(waiter.Delay(ticks))
		return 0
	}))
	L.SetGlobal("signal", tbl)
}

func (e *Engine) luaGet(L *lua.LState) int {
	name := L.CheckString(1)
	sig, ok := e.signals[name]
	if !ok {
		L.RaiseError("unbound signal: %s", name)
		return 0
	}
	L.Push(toLuaValue(sig.Val()))
	return 1
}

func (e *Engine) luaSet(L *lua.LState) int {
	name := L.CheckString(1)
	lv := L.CheckAny(2)
	sig, ok := e.signals[name]
	if !ok {
		L.RaiseError("unbound signal: %s", name)
		return 0
	}
	w, ok := sig.(Writable)
	if !ok {
		L.RaiseError("signal %s is read-only", name)
		return 0
	}
	v, err := fromLuaValue(lv, sig.Val())
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	if err := w.SetNext(v); err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	return 0
}

// toLuaValue marshals a committed signal value into Lua, the way
// lua_evaluator.go's toLuaValue type-switches on the Go value it is
// handed rather than on a declared schema.
func toLuaValue(v interface{}) lua.LValue {
	switch x := v.(type) {
	case bool:
		return lua.LBool(x)
	case int64:
		return lua.LNumber(x)
	case int:
		return lua.LNumber(x)
	case *bitvector.BitVector:
		return lua.LNumber(x.Int64())
	case string:
		return lua.LString(x)
	default:
		return lua.LString(fmt.Sprintf("%v", x))
	}
}

// fromLuaValue unmarshals a Lua value written via signal.set, picking the
// target Go type from current - the signal's own currently committed
// value - so callers never need to declare a schema up front.
func fromLuaValue(lv lua.LValue, current interface{}) (interface{}, error) {
	switch current.(type) {
	case bool:
		b, ok := lv.(lua.LBool)
		if !ok {
			return nil, &herrors.ScriptError{Reason: fmt.Sprintf("expected boolean, got %s", lv.Type().String())}
		}
		return bool(b), nil
	case int64, int:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return nil, &herrors.ScriptError{Reason: fmt.Sprintf("expected number, got %s", lv.Type().String())}
		}
		return int64(n), nil
	case *bitvector.BitVector:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return nil, &herrors.ScriptError{Reason: fmt.Sprintf("expected number, got %s", lv.Type().String())}
		}
		return bitvector.New(int64(n)), nil
	default:
		s, ok := lv.(lua.LString)
		if !ok {
			return nil, &herrors.ScriptError{Reason: fmt.Sprintf("expected string, got %s", lv.Type().String())}
		}
		return string(s), nil
	}
}
