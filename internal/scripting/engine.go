package scripting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/data"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

var (
	ErrUnknownScript = errors.New("unknown script")
	ErrBusy          = errors.New("script engine busy")
)

const entityTypeName = "entity"

// Incoming describes the event a trigger reacts to. Unset entities are
// passed to Lua as nil.
type Incoming struct {
	Kind   string
	Source ecs.Entity
	Target ecs.Entity
	Amount uint32
}

// Options tune an Engine.
type Options struct {
	Timeout    time.Duration // per call; 0 disables the deadline
	APIVersion int
}

// Engine wraps a single sandboxed gopher-lua VM holding every trigger
// script from a catalog snapshot, precompiled. Single-goroutine access only;
// a call in progress makes the engine refuse nested calls.
type Engine struct {
	vm      *lua.LState
	scripts map[string]*lua.LFunction
	broken  map[string]error
	api     *lua.LTable
	globals *lua.LTable // read-only view every run env falls back to
	envMeta *lua.LTable
	opts    Options
	log     *zap.Logger

	env Env // bound for the duration of Run
}

// ScriptID names the compiled chunk for an entity's trigger.
func ScriptID(entity, trigger string) string {
	return entity + "." + trigger
}

// NewEngine creates a sandboxed VM and compiles every script in the
// catalog. A script that does not compile is logged and recorded as broken;
// running it later fails without touching the VM.
func NewEngine(catalog *data.Catalog, opts Options, log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: 128,
	})
	e := &Engine{
		vm:      vm,
		scripts: make(map[string]*lua.LFunction),
		broken:  make(map[string]error),
		opts:    opts,
		log:     log,
	}
	e.openSandbox()
	e.registerEntityType()
	e.registerCommands()
	e.api = e.newWorldAPI()
	e.freezeGlobals()

	catalog.Each(func(def *data.EntityDef) {
		for trigger, body := range def.Scripts {
			id := ScriptID(def.Name, trigger)
			if err := e.compile(id, body); err != nil {
				e.broken[id] = err
				e.log.Error("lua trigger compile error", zap.String("script", id), zap.Error(err))
			}
		}
	})
	e.log.Debug("lua engine ready",
		zap.Int("scripts", len(e.scripts)),
		zap.Int("broken", len(e.broken)),
	)
	return e
}

// openSandbox loads the whitelisted standard libraries and strips every
// global that reaches the host or loads code.
func (e *Engine) openSandbox() {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		e.vm.Push(e.vm.NewFunction(lib.fn))
		e.vm.Push(lua.LString(lib.name))
		e.vm.Call(1, 0)
	}
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring", "require", "module",
		"collectgarbage", "getfenv", "setfenv", "_printregs", "newproxy",
		"rawset", "rawget", "rawequal", "setmetatable", "getmetatable",
	} {
		e.vm.SetGlobal(name, lua.LNil)
	}
	// Randomness would break replay determinism.
	if m, ok := e.vm.GetGlobal(lua.MathLibName).(*lua.LTable); ok {
		m.RawSetString("random", lua.LNil)
		m.RawSetString("randomseed", lua.LNil)
	}
	e.vm.SetGlobal("print", e.vm.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		e.log.Debug("lua print", zap.String("msg", strings.Join(parts, " ")))
		return 0
	}))
	e.vm.SetGlobal("API_VERSION", lua.LNumber(e.opts.APIVersion))
}

// readOnly returns an empty proxy for t whose metatable rejects writes and
// cannot be read or replaced from Lua.
func (e *Engine) readOnly(t *lua.LTable, what string) *lua.LTable {
	proxy := e.vm.NewTable()
	mt := e.vm.NewTable()
	mt.RawSetString("__index", t)
	mt.RawSetString("__newindex", e.vm.NewFunction(func(L *lua.LState) int {
		L.RaiseError("%s is read-only", what)
		return 0
	}))
	mt.RawSetString("__metatable", lua.LString("locked"))
	e.vm.SetMetatable(proxy, mt)
	return proxy
}

// freezeGlobals snapshots the sandbox globals behind a read-only proxy.
// Library tables are wrapped too. Each run gets a fresh environment that
// reads through the snapshot, so a script's assignments die with the call.
func (e *Engine) freezeGlobals() {
	g := e.vm.G.Global
	base := e.vm.NewTable()
	g.ForEach(func(k, v lua.LValue) {
		if t, ok := v.(*lua.LTable); ok && t != g && e.vm.GetMetatable(t) == lua.LNil {
			v = e.readOnly(t, lua.LVAsString(k))
		}
		base.RawSet(k, v)
	})
	e.globals = e.readOnly(base, "globals")
	base.RawSetString("_G", e.globals)

	e.envMeta = e.vm.NewTable()
	e.envMeta.RawSetString("__index", e.globals)
	e.envMeta.RawSetString("__metatable", lua.LString("locked"))
}

// compile wraps body so scripts see their arguments as w, me and ctx without
// shifting line numbers.
func (e *Engine) compile(id, body string) error {
	fn, err := e.vm.Load(strings.NewReader("local w, me, ctx = ... "+body), id)
	if err != nil {
		return err
	}
	e.scripts[id] = fn
	return nil
}

// Has reports whether id compiled successfully.
func (e *Engine) Has(id string) bool {
	_, ok := e.scripts[id]
	return ok
}

// Run executes one trigger script for owner. The script reads the world
// through env and proposes orders; it cannot mutate anything. Any failure
// is logged and returned with no orders.
func (e *Engine) Run(id string, env Env, owner ecs.Entity, in Incoming) ([]Order, error) {
	orders, err := e.run(id, env, owner, in)
	if err != nil {
		e.log.Error("lua trigger error",
			zap.String("script", id),
			zap.Stringer("entity", owner),
			zap.Error(err),
		)
		return nil, err
	}
	return orders, nil
}

func (e *Engine) run(id string, env Env, owner ecs.Entity, in Incoming) ([]Order, error) {
	if e.env != nil {
		return nil, ErrBusy
	}
	fn, ok := e.scripts[id]
	if !ok {
		if err, broken := e.broken[id]; broken {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownScript, id)
	}

	e.env = env
	defer func() { e.env = nil }()

	if e.opts.Timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.Timeout)
		defer cancel()
		e.vm.SetContext(ctx)
		defer e.vm.RemoveContext()
	}

	scope := e.vm.NewTable()
	e.vm.SetMetatable(scope, e.envMeta)
	fn.Env = scope

	top := e.vm.GetTop()
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, e.api, e.entityValue(owner), e.incomingTable(in)); err != nil {
		e.vm.SetTop(top)
		return nil, err
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return parseResult(result)
}

func (e *Engine) incomingTable(in Incoming) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("kind", lua.LString(in.Kind))
	t.RawSetString("source", e.entityValue(in.Source))
	t.RawSetString("target", e.entityValue(in.Target))
	t.RawSetString("amount", lua.LNumber(in.Amount))
	return t
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
