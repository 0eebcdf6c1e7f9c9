package world

import (
	"math/rand"
	"time"

	"github.com/hearthward/hearthward/internal/config"
	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/data"
	"github.com/hearthward/hearthward/internal/scripting"
)

// Table names, shared by data files and script queries.
const (
	TablePosition     = "position"
	TableHealth       = "health"
	TableCost         = "cost"
	TableTags         = "tags"
	TableTriggers     = "triggers"
	TableTriggerLimit = "trigger_limit"
	TableKilled       = "killed"
	TablePlayer       = "player"
	TableNpc          = "npc"
	TableName         = "name"
	TableTile         = "tile"
)

// Mode is the battle phase.
type Mode uint8

const (
	ModePlan Mode = iota
	ModeFight
	ModeDone
)

func (m Mode) String() string {
	switch m {
	case ModePlan:
		return "plan"
	case ModeFight:
		return "fight"
	case ModeDone:
		return "done"
	}
	return "unknown"
}

// Outcome is only meaningful once the battle is Done.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeWon
	OutcomeLost
)

// Faction tells allies from enemies. A unit holds at most one of the
// Player and Npc markers.
type Faction uint8

const (
	FactionNone Faction = iota
	FactionPlayer
	FactionNpc
)

// PlayerData holds the player's counters and piece collections. Deck is the
// persistent collection; Draw, Hand and Discard partition the pieces not on
// the board during a battle.
type PlayerData struct {
	Health  Bounded
	Food    uint32
	Level   uint32
	Deck    []ecs.Entity
	Draw    []ecs.Entity
	Hand    []ecs.Entity
	Discard []ecs.Entity
}

// BattleState is the state machine's own data.
type BattleState struct {
	Mode       Mode
	Outcome    Outcome
	Wave       uint32 // 1-based once the battle has started
	Turn       uint32
	FightQueue []ecs.Entity
}

// Resources are the world-global singletons.
type Resources struct {
	Player  PlayerData
	Battle  BattleState
	Rules   config.BattleConfig
	Catalog *data.Catalog
	Rand    *rand.Rand

	vm *scripting.Engine // absent outside a battle
}

// State owns the entity store, every component table and the resources.
// Single-goroutine access only. Positions are written through Place, MoveTo
// and Unplace so the occupancy grid stays in step with the table.
type State struct {
	store *ecs.World

	pos          *ecs.Store[Position]
	Health       *ecs.Store[Bounded]
	Cost         *ecs.Store[uint32]
	Tags         *ecs.Store[Tags]
	Triggers     *ecs.Store[Triggers]
	TriggerLimit *ecs.Store[Bounded]
	Killed       *ecs.Store[Marker]
	Player       *ecs.Store[Marker]
	Npc          *ecs.Store[Marker]
	Name         *ecs.Store[string]
	Tile         *ecs.Store[Tile]

	grid *Grid
	Res  Resources
}

// NewState builds an empty world for the given rules and catalog. A zero
// seed is replaced by the clock.
func NewState(rules config.BattleConfig, catalog *data.Catalog) *State {
	w := ecs.NewWorld()
	seed := rules.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &State{
		store:        w,
		pos:          ecs.Register[Position](w, TablePosition),
		Health:       ecs.Register[Bounded](w, TableHealth),
		Cost:         ecs.Register[uint32](w, TableCost),
		Tags:         ecs.Register[Tags](w, TableTags),
		Triggers:     ecs.Register[Triggers](w, TableTriggers),
		TriggerLimit: ecs.Register[Bounded](w, TableTriggerLimit),
		Killed:       ecs.Register[Marker](w, TableKilled),
		Player:       ecs.Register[Marker](w, TablePlayer),
		Npc:          ecs.Register[Marker](w, TableNpc),
		Name:         ecs.Register[string](w, TableName),
		Tile:         ecs.Register[Tile](w, TableTile),
		grid:         newGrid(),
		Res: Resources{
			Player: PlayerData{
				Health: NewBounded(rules.PlayerHealth),
				Food:   rules.StartingFood,
			},
			Rules:   rules,
			Catalog: catalog,
			Rand:    rand.New(rand.NewSource(seed)),
		},
	}
}

// Spawn allocates an entity with no components.
func (s *State) Spawn() ecs.Entity { return s.store.Spawn() }

func (s *State) Alive(e ecs.Entity) bool { return s.store.Alive(e) }

// Despawn frees e's board square and destroys it.
func (s *State) Despawn(e ecs.Entity) {
	s.Unplace(e)
	s.store.Despawn(e)
}

// QueryByName runs a has/lacks query over table names.
func (s *State) QueryByName(with, without []string) []ecs.Entity {
	return s.store.QueryByName(with, without)
}

// Pos returns e's board square.
func (s *State) Pos(e ecs.Entity) (Position, bool) {
	return s.pos.Value(e)
}

// Place puts e on p. It fails when e is already on the board or p holds a
// piece of the same layer.
func (s *State) Place(e ecs.Entity, p Position) bool {
	if !s.store.Alive(e) || s.pos.Has(e) {
		return false
	}
	if !s.grid.Occupy(s.layer(e), p, e) {
		return false
	}
	s.pos.Insert(e, p)
	return true
}

// MoveTo relocates a placed piece. The destination must be free.
func (s *State) MoveTo(e ecs.Entity, p Position) bool {
	cur, ok := s.pos.Get(e)
	if !ok {
		return false
	}
	if *cur == p {
		return true
	}
	if !s.grid.Move(s.layer(e), *cur, p, e) {
		return false
	}
	*cur = p
	return true
}

// Unplace takes e off the board. It is a no-op for unplaced entities.
func (s *State) Unplace(e ecs.Entity) {
	p, ok := s.pos.Value(e)
	if !ok {
		return
	}
	s.grid.Vacate(s.layer(e), p, e)
	s.pos.Remove(e)
}

func (s *State) layer(e ecs.Entity) layer {
	if s.Tile.Has(e) {
		return layerTile
	}
	return layerUnit
}

// Faction reports which side e fights for.
func (s *State) Faction(e ecs.Entity) Faction {
	switch {
	case s.Player.Has(e):
		return FactionPlayer
	case s.Npc.Has(e):
		return FactionNpc
	}
	return FactionNone
}

// SetFaction replaces e's faction marker.
func (s *State) SetFaction(e ecs.Entity, f Faction) {
	s.Player.Remove(e)
	s.Npc.Remove(e)
	switch f {
	case FactionPlayer:
		s.Player.Insert(e, Marker{})
	case FactionNpc:
		s.Npc.Insert(e, Marker{})
	}
}

// InstallVM makes engine available to trigger dispatch. Any previous engine
// is closed.
func (s *State) InstallVM(engine *scripting.Engine) {
	if s.Res.vm != nil && s.Res.vm != engine {
		s.Res.vm.Close()
	}
	s.Res.vm = engine
}

// TakeVM moves the script engine out of the resources. The caller must hand
// it back with RestoreVM; while it is out, further takes fail.
func (s *State) TakeVM() (*scripting.Engine, bool) {
	vm := s.Res.vm
	s.Res.vm = nil
	return vm, vm != nil
}

func (s *State) RestoreVM(vm *scripting.Engine) {
	s.Res.vm = vm
}

// CloseVM drops the engine at battle exit.
func (s *State) CloseVM() {
	if s.Res.vm != nil {
		s.Res.vm.Close()
		s.Res.vm = nil
	}
}

// HasVM reports whether a script engine is installed and not checked out.
func (s *State) HasVM() bool { return s.Res.vm != nil }
