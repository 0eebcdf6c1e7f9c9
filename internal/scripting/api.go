package scripting

import (
	"github.com/hearthward/hearthward/internal/core/ecs"
	lua "github.com/yuin/gopher-lua"
)

// Env is the read-only world surface scripts see. Implementations must not
// mutate the world from any of these methods.
type Env interface {
	Alive(e ecs.Entity) bool
	Health(e ecs.Entity) (current, max uint32, ok bool)
	Position(e ecs.Entity) (x, y int, ok bool)
	Name(e ecs.Entity) (string, bool)
	IsPlayer(e ecs.Entity) bool
	IsNpc(e ecs.Entity) bool
	HasTag(e ecs.Entity, tag string) bool
	UnitAt(x, y int) (ecs.Entity, bool)
	TileAt(x, y int) (string, bool)
	Allies(e ecs.Entity) []ecs.Entity
	AdjacentAllies(e ecs.Entity) []ecs.Entity
	WithTag(tag string) []ecs.Entity
	InColumn(x int) []ecs.Entity
	Food() uint32
	Query(with, without []string) []ecs.Entity
}

func (e *Engine) registerEntityType() {
	mt := e.vm.NewTypeMetatable(entityTypeName)
	e.vm.SetField(mt, "__eq", e.vm.NewFunction(func(L *lua.LState) int {
		a, aok := toEntity(L.Get(1))
		b, bok := toEntity(L.Get(2))
		L.Push(lua.LBool(aok && bok && a == b))
		return 1
	}))
	e.vm.SetField(mt, "__tostring", e.vm.NewFunction(func(L *lua.LState) int {
		id, _ := toEntity(L.Get(1))
		L.Push(lua.LString("entity(" + id.String() + ")"))
		return 1
	}))
	e.vm.SetField(mt, "__metatable", lua.LString("locked"))
}

func (e *Engine) entityValue(id ecs.Entity) lua.LValue {
	if id.IsNil() {
		return lua.LNil
	}
	ud := e.vm.NewUserData()
	ud.Value = id
	e.vm.SetMetatable(ud, e.vm.GetTypeMetatable(entityTypeName))
	return ud
}

func toEntity(v lua.LValue) (ecs.Entity, bool) {
	ud, ok := v.(*lua.LUserData)
	if !ok {
		return ecs.Nil, false
	}
	id, ok := ud.Value.(ecs.Entity)
	return id, ok
}

func checkEntity(L *lua.LState, n int) ecs.Entity {
	id, ok := toEntity(L.Get(n))
	if !ok {
		L.ArgError(n, "entity expected")
	}
	return id
}

func checkAmount(L *lua.LState, n int) lua.LNumber {
	v, err := toAmount(L.CheckNumber(n))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return lua.LNumber(v)
}

// registerCommands installs the global cmd table of order constructors
// behind a read-only proxy.
func (e *Engine) registerCommands() {
	order := func(L *lua.LState, kind string, fields map[string]lua.LValue) int {
		t := L.NewTable()
		t.RawSetString("kind", lua.LString(kind))
		for k, v := range fields {
			t.RawSetString(k, v)
		}
		L.Push(t)
		return 1
	}
	cmd := e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"gain_food": func(L *lua.LState) int {
			return order(L, "gain_food", map[string]lua.LValue{"amount": checkAmount(L, 1)})
		},
		"damage": func(L *lua.LState) int {
			checkEntity(L, 1)
			return order(L, "damage", map[string]lua.LValue{"entity": L.Get(1), "amount": checkAmount(L, 2)})
		},
		"gain_health": func(L *lua.LState) int {
			checkEntity(L, 1)
			return order(L, "gain_health", map[string]lua.LValue{"entity": L.Get(1), "amount": checkAmount(L, 2)})
		},
		"kill": func(L *lua.LState) int {
			checkEntity(L, 1)
			return order(L, "kill", map[string]lua.LValue{"entity": L.Get(1)})
		},
		"remove": func(L *lua.LState) int {
			checkEntity(L, 1)
			return order(L, "remove", map[string]lua.LValue{"entity": L.Get(1)})
		},
		"spawn": func(L *lua.LState) int {
			return order(L, "spawn", map[string]lua.LValue{
				"name": lua.LString(L.CheckString(1)),
				"x":    lua.LNumber(L.CheckInt(2)),
				"y":    lua.LNumber(L.CheckInt(3)),
			})
		},
	})
	e.vm.SetGlobal("cmd", e.readOnly(cmd, "cmd"))
}

// newWorldAPI builds the table passed to scripts as w. Every function reads
// through the Env bound by Run.
func (e *Engine) newWorldAPI() *lua.LTable {
	list := func(L *lua.LState, ids []ecs.Entity) int {
		t := L.CreateTable(len(ids), 0)
		for i, id := range ids {
			t.RawSetInt(i+1, e.entityValue(id))
		}
		L.Push(t)
		return 1
	}
	names := func(L *lua.LState, n int) []string {
		t := L.OptTable(n, nil)
		if t == nil {
			return nil
		}
		var out []string
		t.ForEach(func(_, v lua.LValue) {
			out = append(out, lua.LVAsString(v))
		})
		return out
	}
	fns := e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"alive": func(L *lua.LState) int {
			L.Push(lua.LBool(e.env.Alive(checkEntity(L, 1))))
			return 1
		},
		"health": func(L *lua.LState) int {
			cur, limit, ok := e.env.Health(checkEntity(L, 1))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LNumber(cur))
			L.Push(lua.LNumber(limit))
			return 2
		},
		"position": func(L *lua.LState) int {
			x, y, ok := e.env.Position(checkEntity(L, 1))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LNumber(x))
			L.Push(lua.LNumber(y))
			return 2
		},
		"name": func(L *lua.LState) int {
			n, ok := e.env.Name(checkEntity(L, 1))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(n))
			return 1
		},
		"is_player": func(L *lua.LState) int {
			L.Push(lua.LBool(e.env.IsPlayer(checkEntity(L, 1))))
			return 1
		},
		"is_npc": func(L *lua.LState) int {
			L.Push(lua.LBool(e.env.IsNpc(checkEntity(L, 1))))
			return 1
		},
		"has_tag": func(L *lua.LState) int {
			L.Push(lua.LBool(e.env.HasTag(checkEntity(L, 1), L.CheckString(2))))
			return 1
		},
		"unit_at": func(L *lua.LState) int {
			id, ok := e.env.UnitAt(L.CheckInt(1), L.CheckInt(2))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(e.entityValue(id))
			return 1
		},
		"tile_at": func(L *lua.LState) int {
			t, ok := e.env.TileAt(L.CheckInt(1), L.CheckInt(2))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(t))
			return 1
		},
		"allies": func(L *lua.LState) int {
			return list(L, e.env.Allies(checkEntity(L, 1)))
		},
		"adjacent_allies": func(L *lua.LState) int {
			return list(L, e.env.AdjacentAllies(checkEntity(L, 1)))
		},
		"with_tag": func(L *lua.LState) int {
			return list(L, e.env.WithTag(L.CheckString(1)))
		},
		"in_column": func(L *lua.LState) int {
			return list(L, e.env.InColumn(L.CheckInt(1)))
		},
		"food": func(L *lua.LState) int {
			L.Push(lua.LNumber(e.env.Food()))
			return 1
		},
		"query": func(L *lua.LState) int {
			return list(L, e.env.Query(names(L, 1), names(L, 2)))
		},
	})
	return e.readOnly(fns, "world api")
}
