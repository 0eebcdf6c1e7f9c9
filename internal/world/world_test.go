package world

import (
	"testing"

	"github.com/hearthward/hearthward/internal/config"
	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/data"
	"github.com/hearthward/hearthward/internal/scripting"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUnits = `
Villager:
  components:
    cost: 1
    health: 2
    tags: [worker, villager]
    player: ~
Medic:
  components:
    cost: 2
    health: [1, 3]
    tags: [healer]
    player: ~
  scripts:
    on_fight: return nil
Rat:
  components:
    health: 1
    npc: ~
    trigger_limit: 4
  scripts:
    on_kill: return nil
Ghost:
  components:
    wings: 2
Confused:
  components:
    player: ~
    npc: ~
Bard:
  components:
    player: ~
  scripts:
    on_sing: return nil
`

func newTestState(t *testing.T) *State {
	t.Helper()
	c := data.NewCatalog()
	require.NoError(t, c.Add(data.CategoryUnits, []byte(testUnits)))
	rules := config.Defaults().Battle
	rules.Seed = 7
	return NewState(rules, c)
}

func TestSpawnByName(t *testing.T) {
	s := newTestState(t)

	v, err := s.SpawnByName("villager", FactionNone)
	require.NoError(t, err)
	name, _ := s.Name.Value(v)
	require.Equal(t, "Villager", name)
	cost, _ := s.Cost.Value(v)
	require.Equal(t, uint32(1), cost)
	hp, _ := s.Health.Value(v)
	require.Equal(t, Bounded{2, 2}, hp)
	tags, _ := s.Tags.Value(v)
	require.True(t, tags.Has("worker"))
	require.False(t, tags.Has("healer"))
	require.Equal(t, FactionPlayer, s.Faction(v))
	require.False(t, s.Triggers.Has(v))
	require.False(t, s.TriggerLimit.Has(v))

	m, err := s.SpawnByName("Medic", FactionNone)
	require.NoError(t, err)
	hp, _ = s.Health.Value(m)
	require.Equal(t, Bounded{1, 3}, hp)
	tr, _ := s.Triggers.Get(m)
	id, ok := tr.Script(OnFight)
	require.True(t, ok)
	require.Equal(t, "Medic.on_fight", id)
	_, ok = tr.Script(OnKill)
	require.False(t, ok)
	limit, _ := s.TriggerLimit.Value(m)
	require.Equal(t, NewBounded(s.Res.Rules.DefaultTriggerLimit), limit)

	r, err := s.SpawnByName("Rat", FactionPlayer)
	require.NoError(t, err)
	require.Equal(t, FactionPlayer, s.Faction(r))
	limit, _ = s.TriggerLimit.Value(r)
	require.Equal(t, NewBounded(4), limit)
}

func TestSpawnByNameErrors(t *testing.T) {
	s := newTestState(t)

	_, err := s.SpawnByName("Nobody", FactionNone)
	require.ErrorIs(t, err, data.ErrUnknownEntity)

	_, err = s.SpawnByName("Ghost", FactionNone)
	require.ErrorIs(t, err, data.ErrUnknownComponent)

	_, err = s.SpawnByName("Bard", FactionNone)
	require.ErrorIs(t, err, ErrUnknownTrigger)

	_, err = s.SpawnByName("Confused", FactionNone)
	require.Error(t, err)

	// failed spawns leave nothing behind
	require.Zero(t, s.Name.Len())
}

func TestPlacementKeepsOneUnitPerSquare(t *testing.T) {
	s := newTestState(t)
	a, _ := s.SpawnByName("Villager", FactionNone)
	b, _ := s.SpawnByName("Villager", FactionNone)
	_, ok := s.SpawnTile(TileMeadow, Position{0, 0})
	require.True(t, ok)
	_, ok = s.SpawnTile(TileForest, Position{0, 0})
	require.False(t, ok)

	require.True(t, s.Place(a, Position{0, 0}))
	require.False(t, s.Place(b, Position{0, 0}))
	require.False(t, s.Place(a, Position{1, 0}), "already placed")
	require.True(t, s.Place(b, Position{1, 0}))
	require.False(t, s.MoveTo(b, Position{0, 0}))
	require.True(t, s.MoveTo(b, Position{1, 1}))

	u, ok := s.UnitAt(Position{1, 1})
	require.True(t, ok)
	require.Equal(t, b, u)
	_, ok = s.UnitAt(Position{1, 0})
	require.False(t, ok)
	tile, ok := s.TileAt(Position{0, 0})
	require.True(t, ok)
	require.Equal(t, TileMeadow, tile)

	s.Despawn(a)
	_, ok = s.UnitAt(Position{0, 0})
	require.False(t, ok)
	_, ok = s.TileAt(Position{0, 0})
	require.True(t, ok)
	require.False(t, s.Place(b, Position{0, 0}), "already placed")
	require.True(t, s.MoveTo(b, Position{0, 0}))
}

func TestPositionalQueries(t *testing.T) {
	s := newTestState(t)
	spawn := func(name string, f Faction, p Position) ecs.Entity {
		e, err := s.SpawnByName(name, f)
		require.NoError(t, err)
		require.True(t, s.Place(e, p))
		return e
	}
	front := spawn("Villager", FactionNone, Position{1, 3})
	medic := spawn("Medic", FactionNone, Position{1, 2})
	left := spawn("Villager", FactionNone, Position{0, 2})
	back := spawn("Villager", FactionNone, Position{1, 0})
	rat := spawn("Rat", FactionNone, Position{1, 4})

	require.Equal(t, []ecs.Entity{back, left, medic, front, rat}, s.Units())
	require.Equal(t, []ecs.Entity{back, left, front}, s.Allies(medic))
	require.Empty(t, s.Allies(rat))
	require.Equal(t, []ecs.Entity{left, front}, s.AdjacentAllies(medic))
	require.Equal(t, []ecs.Entity{medic}, s.WithTag("healer"))
	require.Equal(t, []ecs.Entity{back, medic, front, rat}, s.InColumn(1))

	s.Killed.Insert(left, Marker{})
	require.Equal(t, []ecs.Entity{front}, s.AdjacentAllies(medic))
	require.False(t, s.View().Alive(left))
	require.True(t, s.View().Alive(medic))
	s.Killed.Insert(back, Marker{})
	require.Equal(t, []ecs.Entity{medic, front, rat}, s.InColumn(1))

	require.True(t, s.OnPlayerHalf(Position{3, 3}))
	require.False(t, s.OnPlayerHalf(Position{3, 4}))
	require.True(t, s.OnStaging(Position{3, 4}))
	require.False(t, s.OnStaging(Position{4, 4}))
	require.False(t, s.OnBoard(Position{0, 4 + s.Res.Rules.MaxWaveHeight}))
}

func TestViewReadsWorld(t *testing.T) {
	s := newTestState(t)
	m, _ := s.SpawnByName("Medic", FactionNone)
	require.True(t, s.Place(m, Position{2, 1}))
	s.SpawnTile(TileField, Position{2, 1})
	s.Res.Player.Food = 9

	v := s.View()
	cur, limit, ok := v.Health(m)
	require.True(t, ok)
	require.Equal(t, []uint32{1, 3}, []uint32{cur, limit})
	x, y, ok := v.Position(m)
	require.True(t, ok)
	require.Equal(t, []int{2, 1}, []int{x, y})
	tile, ok := v.TileAt(2, 1)
	require.True(t, ok)
	require.Equal(t, "field", tile)
	require.True(t, v.HasTag(m, "healer"))
	require.True(t, v.IsPlayer(m))
	require.Equal(t, uint32(9), v.Food())
	require.Equal(t, []ecs.Entity{m}, v.Query([]string{TableHealth, TablePosition}, []string{TableNpc}))
	require.Nil(t, v.Query([]string{"wings"}, nil))
}

func TestVMPossession(t *testing.T) {
	s := newTestState(t)
	_, ok := s.TakeVM()
	require.False(t, ok, "no engine outside a battle")

	s.InstallVM(scripting.NewEngine(s.Res.Catalog, scripting.Options{}, zap.NewNop()))
	vm, ok := s.TakeVM()
	require.True(t, ok)
	_, ok = s.TakeVM()
	require.False(t, ok, "engine is checked out")
	s.RestoreVM(vm)
	require.True(t, s.HasVM())
	s.CloseVM()
	require.False(t, s.HasVM())
}

func TestDigestTracksState(t *testing.T) {
	a := newTestState(t)
	b := newTestState(t)
	for _, s := range []*State{a, b} {
		e, _ := s.SpawnByName("Villager", FactionNone)
		s.Place(e, Position{0, 0})
	}
	require.Equal(t, a.Digest(), b.Digest())

	e, _ := b.UnitAt(Position{0, 0})
	hp, _ := b.Health.Get(e)
	hp.Sub(1)
	require.NotEqual(t, a.Digest(), b.Digest())
}

func TestBoundedNeverExceedsMax(t *testing.T) {
	b := Bounded{Current: 1, Max: 3}
	require.Equal(t, uint32(2), b.Add(5))
	require.Equal(t, Bounded{3, 3}, b)
	require.Equal(t, uint32(3), b.Sub(9))
	require.True(t, b.IsZero())
	b.AddMax(2)
	require.Equal(t, Bounded{2, 5}, b)
	b.SubMax(4)
	require.Equal(t, Bounded{1, 1}, b)
	b.SubMax(4)
	require.Equal(t, Bounded{0, 0}, b)
	b.SetMax(4)
	b.Restore()
	require.Equal(t, NewBounded(4), b)
}

func TestShippedCatalog(t *testing.T) {
	c, err := data.LoadCatalog("../../data/yaml", data.CategoryUnits, data.CategoryNpcs)
	require.NoError(t, err)
	rules := config.Defaults().Battle
	for _, name := range append(rules.StartingDeck, rules.StartingExtras...) {
		_, ok := c.Get(name)
		require.True(t, ok, "starting piece %s missing", name)
	}

	s := NewState(rules, c)
	vm := scripting.NewEngine(c, scripting.Options{}, zap.NewNop())
	defer vm.Close()
	c.Each(func(def *data.EntityDef) {
		_, err := s.SpawnByName(def.Name, FactionNone)
		require.NoError(t, err, def.Name)
		for trigger := range def.Scripts {
			require.True(t, vm.Has(scripting.ScriptID(def.Name, trigger)), "%s.%s", def.Name, trigger)
		}
	})
}
