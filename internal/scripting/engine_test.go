package scripting

import (
	"testing"
	"time"

	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/data"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEnv struct {
	food   uint32
	health map[ecs.Entity][2]uint32
	allies []ecs.Entity
}

func (f *fakeEnv) Alive(e ecs.Entity) bool {
	_, ok := f.health[e]
	return ok
}
func (f *fakeEnv) Health(e ecs.Entity) (uint32, uint32, bool) {
	h, ok := f.health[e]
	return h[0], h[1], ok
}
func (f *fakeEnv) Position(ecs.Entity) (int, int, bool) { return 1, 2, true }
func (f *fakeEnv) Name(ecs.Entity) (string, bool) { return "Sheep", true }
func (f *fakeEnv) IsPlayer(ecs.Entity) bool { return true }
func (f *fakeEnv) IsNpc(ecs.Entity) bool { return false }
func (f *fakeEnv) HasTag(_ ecs.Entity, tag string) bool { return tag == "healer" }
func (f *fakeEnv) UnitAt(int, int) (ecs.Entity, bool) { return ecs.Nil, false }
func (f *fakeEnv) TileAt(int, int) (string, bool) { return "meadow", true }
func (f *fakeEnv) Allies(ecs.Entity) []ecs.Entity { return f.allies }
func (f *fakeEnv) AdjacentAllies(ecs.Entity) []ecs.Entity { return f.allies[:1] }
func (f *fakeEnv) WithTag(string) []ecs.Entity { return nil }
func (f *fakeEnv) InColumn(int) []ecs.Entity { return f.allies }
func (f *fakeEnv) Food() uint32 { return f.food }
func (f *fakeEnv) Query([]string, []string) []ecs.Entity { return f.allies }

const testScripts = `
Sheep:
  components:
    health: 2
  scripts:
    on_kill: |
      return cmd.gain_food(w.food() + 1)
    on_fight: |
      local out = {}
      for _, a in ipairs(w.allies(me)) do
        table.insert(out, cmd.gain_health(a, 1))
      end
      return out
    on_spawn: |
      return nil
    on_attack: |
      error("boom")
    on_damage: |
      return 42
    on_ally_kill: |
      return { kind = "explode" }
    on_ally_heal: |
      return cmd.damage(ctx.source, ctx.amount)
Broken:
  components:
    health: 1
  scripts:
    on_kill: "return (("
Sandboxed:
  components:
    health: 1
  scripts:
    on_kill: |
      if os ~= nil or io ~= nil or dofile ~= nil or load ~= nil or math.random ~= nil then
        return cmd.gain_food(99)
      end
      local ok = pcall(function() w.food = nil end)
      if ok then return cmd.gain_food(98) end
      return cmd.gain_food(API_VERSION)
    on_fight: |
      while true do end
    on_spawn: |
      local t, x, y = w.tile_at(0, 0), w.position(me)
      local cur, max = w.health(me)
      if t == "meadow" and x == 1 and y == 2 and cur == 5 and max == 6 and w.has_tag(me, "healer") then
        return cmd.spawn(w.name(me), x, y + 1)
      end
    on_attack: |
      local adj = w.adjacent_allies(me)
      if adj[1] == me then return cmd.kill(adj[1]) end
      return cmd.remove(me)
Vandal:
  components:
    health: 1
  scripts:
    on_spawn: |
      local tampered = 0
      local attempts = {
        function() cmd.gain_food = function() return cmd.kill(me) end end,
        function() rawset(w, "food", function() return 1000 end) end,
        function() setmetatable(w, nil) end,
        function() getmetatable("").__index.rep = nil end,
        function() string.rep = nil end,
        function() _G.cmd = {} end,
      }
      for _, f in ipairs(attempts) do
        if pcall(f) then tampered = tampered + 1 end
      end
      cmd = { gain_food = function() return { kind = "kill", entity = me } end }
      stash = 7
      return { kind = "gain_food", amount = tampered }
    on_kill: |
      return cmd.gain_food(stash or 0)
Greedy:
  components:
    health: 1
  scripts:
    on_kill: return cmd.gain_food(2^32 + 1)
    on_fight: return cmd.gain_food(0/0)
    on_spawn: return cmd.damage(me, 1.5)
    on_attack: return { kind = "damage", entity = me, amount = 1e12 }
    on_damage: return { kind = "gain_food", amount = -1 }
    on_ally_kill: return cmd.gain_health(me, 4294967295)
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	c := data.NewCatalog()
	require.NoError(t, c.Add(data.CategoryUnits, []byte(testScripts)))
	e := NewEngine(c, Options{Timeout: 100 * time.Millisecond, APIVersion: 3}, zap.NewNop())
	t.Cleanup(e.Close)
	return e
}

func TestRunReturnsOrders(t *testing.T) {
	e := newTestEngine(t)
	me := ecs.NewEntity(1, 1)
	a, b := ecs.NewEntity(2, 1), ecs.NewEntity(3, 1)
	env := &fakeEnv{food: 4, allies: []ecs.Entity{a, b}}

	orders, err := e.Run(ScriptID("Sheep", "on_kill"), env, me, Incoming{Kind: "on_kill"})
	require.NoError(t, err)
	require.Equal(t, []Order{{Kind: OrderGainFood, Amount: 5}}, orders)

	orders, err = e.Run(ScriptID("Sheep", "on_fight"), env, me, Incoming{Kind: "on_fight"})
	require.NoError(t, err)
	require.Equal(t, []Order{
		{Kind: OrderGainHealth, Entity: a, Amount: 1},
		{Kind: OrderGainHealth, Entity: b, Amount: 1},
	}, orders)

	orders, err = e.Run(ScriptID("Sheep", "on_spawn"), env, me, Incoming{})
	require.NoError(t, err)
	require.Empty(t, orders)

	orders, err = e.Run(ScriptID("Sheep", "on_ally_heal"), env, me,
		Incoming{Kind: "on_ally_heal", Source: a, Amount: 2})
	require.NoError(t, err)
	require.Equal(t, []Order{{Kind: OrderDamage, Entity: a, Amount: 2}}, orders)
}

func TestRunFailuresYieldNoOrders(t *testing.T) {
	e := newTestEngine(t)
	env := &fakeEnv{}
	me := ecs.NewEntity(1, 1)

	for _, id := range []string{
		ScriptID("Sheep", "on_attack"),    // runtime error
		ScriptID("Sheep", "on_damage"),    // wrong return type
		ScriptID("Sheep", "on_ally_kill"), // unknown order kind
		ScriptID("Broken", "on_kill"),     // does not compile
		ScriptID("Nobody", "on_kill"),     // not in catalog
	} {
		orders, err := e.Run(id, env, me, Incoming{})
		require.Error(t, err, id)
		require.Nil(t, orders, id)
	}
	require.False(t, e.Has(ScriptID("Broken", "on_kill")))
	require.True(t, e.Has(ScriptID("Sheep", "on_kill")))

	// the engine is still usable afterwards
	orders, err := e.Run(ScriptID("Sheep", "on_kill"), env, me, Incoming{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestSandbox(t *testing.T) {
	e := newTestEngine(t)
	me := ecs.NewEntity(1, 1)
	env := &fakeEnv{health: map[ecs.Entity][2]uint32{me: {5, 6}}, allies: []ecs.Entity{me}}

	orders, err := e.Run(ScriptID("Sandboxed", "on_kill"), env, me, Incoming{})
	require.NoError(t, err)
	require.Equal(t, []Order{{Kind: OrderGainFood, Amount: 3}}, orders)

	orders, err = e.Run(ScriptID("Sandboxed", "on_spawn"), env, me, Incoming{})
	require.NoError(t, err)
	require.Equal(t, []Order{{Kind: OrderSpawn, Name: "Sheep", X: 1, Y: 3}}, orders)

	orders, err = e.Run(ScriptID("Sandboxed", "on_attack"), env, me, Incoming{})
	require.NoError(t, err)
	require.Equal(t, []Order{{Kind: OrderKill, Entity: me}}, orders)
}

func TestScriptsCannotTamperWithSharedGlobals(t *testing.T) {
	e := newTestEngine(t)
	me := ecs.NewEntity(1, 1)
	env := &fakeEnv{food: 4}

	orders, err := e.Run(ScriptID("Vandal", "on_spawn"), env, me, Incoming{})
	require.NoError(t, err)
	require.Equal(t, []Order{{Kind: OrderGainFood, Amount: 0}}, orders)

	// Globals assigned by the last run are gone.
	orders, err = e.Run(ScriptID("Vandal", "on_kill"), env, me, Incoming{})
	require.NoError(t, err)
	require.Equal(t, []Order{{Kind: OrderGainFood, Amount: 0}}, orders)

	orders, err = e.Run(ScriptID("Sheep", "on_kill"), env, ecs.NewEntity(2, 1), Incoming{})
	require.NoError(t, err)
	require.Equal(t, []Order{{Kind: OrderGainFood, Amount: 5}}, orders)
}

func TestAmountsOutOfRangeAreRejected(t *testing.T) {
	e := newTestEngine(t)
	me := ecs.NewEntity(1, 1)
	env := &fakeEnv{}

	for _, trigger := range []string{"on_kill", "on_fight", "on_spawn", "on_attack", "on_damage"} {
		orders, err := e.Run(ScriptID("Greedy", trigger), env, me, Incoming{})
		require.Error(t, err, trigger)
		require.Nil(t, orders, trigger)
	}

	orders, err := e.Run(ScriptID("Greedy", "on_ally_kill"), env, me, Incoming{})
	require.NoError(t, err)
	require.Equal(t, []Order{{Kind: OrderGainHealth, Entity: me, Amount: 4294967295}}, orders)
}

func TestRunawayScriptTimesOut(t *testing.T) {
	e := newTestEngine(t)
	env := &fakeEnv{}
	me := ecs.NewEntity(1, 1)

	start := time.Now()
	orders, err := e.Run(ScriptID("Sandboxed", "on_fight"), env, me, Incoming{})
	require.Error(t, err)
	require.Nil(t, orders)
	require.Less(t, time.Since(start), 5*time.Second)

	orders, err = e.Run(ScriptID("Sheep", "on_kill"), env, me, Incoming{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestNestedRunIsRefused(t *testing.T) {
	e := newTestEngine(t)
	e.env = &fakeEnv{}
	_, err := e.Run(ScriptID("Sheep", "on_kill"), &fakeEnv{}, ecs.NewEntity(1, 1), Incoming{})
	require.ErrorIs(t, err, ErrBusy)
}
