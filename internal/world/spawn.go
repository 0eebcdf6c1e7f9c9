package world

import (
	"errors"
	"fmt"

	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/data"
	"github.com/hearthward/hearthward/internal/scripting"
	"gopkg.in/yaml.v3"
)

var ErrUnknownTrigger = errors.New("unknown trigger")

// SpawnByName creates an entity from its catalog definition. A faction other
// than FactionNone overrides the one the definition declares.
func (s *State) SpawnByName(name string, f Faction) (ecs.Entity, error) {
	def, ok := s.Res.Catalog.Get(name)
	if !ok {
		return ecs.Nil, fmt.Errorf("%w %q", data.ErrUnknownEntity, name)
	}
	e := s.Spawn()
	if err := s.InsertComponents(e, def); err != nil {
		s.Despawn(e)
		return ecs.Nil, err
	}
	if f != FactionNone {
		s.SetFaction(e, f)
	}
	return e, nil
}

// InsertComponents populates e from def. Unknown component names and
// trigger kinds are errors; the entity may be partially filled on failure.
func (s *State) InsertComponents(e ecs.Entity, def *data.EntityDef) error {
	s.Name.Insert(e, def.Name)
	if def.HasComponent(TablePlayer) && def.HasComponent(TableNpc) {
		return fmt.Errorf("%s: both player and npc", def.Name)
	}
	for _, c := range def.ComponentNames() {
		var err error
		switch c {
		case TableCost:
			var v uint32
			if err = def.Decode(c, &v); err == nil {
				s.Cost.Insert(e, v)
			}
		case TableHealth:
			var h Bounded
			if h, err = decodeHealth(def); err == nil {
				s.Health.Insert(e, h)
			}
		case TableTags:
			var v []string
			if err = def.Decode(c, &v); err == nil {
				s.Tags.Insert(e, NewTags(v...))
			}
		case TableTriggerLimit:
			var v uint32
			if err = def.Decode(c, &v); err == nil {
				s.TriggerLimit.Insert(e, NewBounded(v))
			}
		case TablePlayer:
			s.SetFaction(e, FactionPlayer)
		case TableNpc:
			s.SetFaction(e, FactionNpc)
		default:
			err = fmt.Errorf("%s: %w %q", def.Name, data.ErrUnknownComponent, c)
		}
		if err != nil {
			return err
		}
	}

	if len(def.Scripts) == 0 {
		return nil
	}
	var t Triggers
	for trigger := range def.Scripts {
		kind, ok := ParseTriggerKind(trigger)
		if !ok {
			return fmt.Errorf("%s: %w %q", def.Name, ErrUnknownTrigger, trigger)
		}
		t[kind] = scripting.ScriptID(def.Name, trigger)
	}
	s.Triggers.Insert(e, t)
	if !s.TriggerLimit.Has(e) {
		s.TriggerLimit.Insert(e, NewBounded(s.Res.Rules.DefaultTriggerLimit))
	}
	return nil
}

// decodeHealth accepts either a single number (full health) or a
// [current, max] pair.
func decodeHealth(def *data.EntityDef) (Bounded, error) {
	node := def.Components[TableHealth]
	if node.Kind == yaml.SequenceNode {
		var pair []uint32
		if err := node.Decode(&pair); err != nil || len(pair) != 2 {
			return Bounded{}, fmt.Errorf("%s: health must be n or [current, max]", def.Name)
		}
		return Bounded{Current: min(pair[0], pair[1]), Max: pair[1]}, nil
	}
	var v uint32
	if err := def.Decode(TableHealth, &v); err != nil {
		return Bounded{}, err
	}
	return NewBounded(v), nil
}

// SpawnTile creates a terrain square at p.
func (s *State) SpawnTile(t Tile, p Position) (ecs.Entity, bool) {
	e := s.Spawn()
	s.Tile.Insert(e, t)
	if !s.Place(e, p) {
		s.Despawn(e)
		return ecs.Nil, false
	}
	return e, true
}
