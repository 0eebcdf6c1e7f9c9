package scripting

import (
	"fmt"
	"math"

	"github.com/hearthward/hearthward/internal/core/ecs"
	lua "github.com/yuin/gopher-lua"
)

// OrderKind is the closed vocabulary a trigger may return.
type OrderKind uint8

const (
	OrderGainFood OrderKind = iota + 1
	OrderDamage
	OrderGainHealth
	OrderKill
	OrderRemove
	OrderSpawn
)

var orderNames = map[string]OrderKind{
	"gain_food":   OrderGainFood,
	"damage":      OrderDamage,
	"gain_health": OrderGainHealth,
	"kill":        OrderKill,
	"remove":      OrderRemove,
	"spawn":       OrderSpawn,
}

func (k OrderKind) String() string {
	for n, v := range orderNames {
		if v == k {
			return n
		}
	}
	return fmt.Sprintf("order(%d)", uint8(k))
}

// Order is one command proposal returned by a script. Fields beyond Kind
// are set according to the kind.
type Order struct {
	Kind   OrderKind
	Entity ecs.Entity // damage, gain_health, kill, remove
	Amount uint32     // gain_food, damage, gain_health
	Name   string     // spawn
	X, Y   int        // spawn
}

// parseResult turns a trigger's return value into orders: nil yields none,
// a table with a kind field yields one, an array of such tables yields many.
func parseResult(v lua.LValue) ([]Order, error) {
	switch v := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case *lua.LTable:
		if v.RawGetString("kind") != lua.LNil {
			o, err := parseOrder(v)
			if err != nil {
				return nil, err
			}
			return []Order{o}, nil
		}
		n := v.Len()
		orders := make([]Order, 0, n)
		for i := 1; i <= n; i++ {
			row, ok := v.RawGetInt(i).(*lua.LTable)
			if !ok {
				return nil, fmt.Errorf("result[%d]: expected order table, got %s", i, v.RawGetInt(i).Type())
			}
			o, err := parseOrder(row)
			if err != nil {
				return nil, fmt.Errorf("result[%d]: %w", i, err)
			}
			orders = append(orders, o)
		}
		return orders, nil
	default:
		return nil, fmt.Errorf("expected nil or order table, got %s", v.Type())
	}
}

func parseOrder(t *lua.LTable) (Order, error) {
	name := lua.LVAsString(t.RawGetString("kind"))
	kind, ok := orderNames[name]
	if !ok {
		return Order{}, fmt.Errorf("unknown order kind %q", name)
	}
	o := Order{Kind: kind}
	var err error
	switch kind {
	case OrderGainFood:
		o.Amount, err = tAmount(t)
	case OrderDamage, OrderGainHealth:
		if o.Entity, err = tEntity(t); err == nil {
			o.Amount, err = tAmount(t)
		}
	case OrderKill, OrderRemove:
		o.Entity, err = tEntity(t)
	case OrderSpawn:
		o.Name = lua.LVAsString(t.RawGetString("name"))
		if o.Name == "" {
			err = fmt.Errorf("spawn: missing name")
		}
		o.X = lInt(t, "x")
		o.Y = lInt(t, "y")
	}
	if err != nil {
		return Order{}, fmt.Errorf("%s: %w", name, err)
	}
	return o, nil
}

func tEntity(t *lua.LTable) (ecs.Entity, error) {
	ud, ok := t.RawGetString("entity").(*lua.LUserData)
	if !ok {
		return ecs.Nil, fmt.Errorf("missing entity")
	}
	e, ok := ud.Value.(ecs.Entity)
	if !ok {
		return ecs.Nil, fmt.Errorf("entity field is not an entity")
	}
	return e, nil
}

func tAmount(t *lua.LTable) (uint32, error) {
	n, ok := t.RawGetString("amount").(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("amount must be a number")
	}
	return toAmount(n)
}

// toAmount accepts whole numbers in the uint32 range only.
func toAmount(n lua.LNumber) (uint32, error) {
	f := float64(n)
	if math.IsNaN(f) || f < 0 || f > math.MaxUint32 || f != math.Trunc(f) {
		return 0, fmt.Errorf("amount %v is not a whole number in [0, %d]", f, uint64(math.MaxUint32))
	}
	return uint32(f), nil
}

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}
