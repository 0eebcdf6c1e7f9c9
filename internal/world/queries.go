package world

import (
	"slices"

	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/scripting"
)

// OnPlayerHalf reports whether p is one of the player's rows. Row 0 is the
// back row.
func (s *State) OnPlayerHalf(p Position) bool {
	r := s.Res.Rules
	return p.X >= 0 && p.X < r.BoardWidth && p.Y >= 0 && p.Y < r.BoardHeight
}

// OnStaging reports whether p is one of the enemy staging rows beyond the
// player's front row.
func (s *State) OnStaging(p Position) bool {
	r := s.Res.Rules
	return p.X >= 0 && p.X < r.BoardWidth && p.Y >= r.BoardHeight && p.Y < r.BoardHeight+r.MaxWaveHeight
}

func (s *State) OnBoard(p Position) bool {
	return s.OnPlayerHalf(p) || s.OnStaging(p)
}

// UnitAt returns the non-tile piece on p.
func (s *State) UnitAt(p Position) (ecs.Entity, bool) {
	e := s.grid.OccupantAt(layerUnit, p)
	return e, !e.IsNil()
}

// TileAt returns the terrain of p.
func (s *State) TileAt(p Position) (Tile, bool) {
	e := s.grid.OccupantAt(layerTile, p)
	if e.IsNil() {
		return 0, false
	}
	return s.Tile.Value(e)
}

// IsPlaced reports whether e is a unit standing on the board.
func (s *State) IsPlaced(e ecs.Entity) bool {
	return s.pos.Has(e) && !s.Tile.Has(e)
}

// Units returns every placed non-tile entity in row-then-column order.
func (s *State) Units() []ecs.Entity {
	ids := ecs.NewQuery(s.pos).Without(s.Tile).Collect()
	s.SortRowCol(ids)
	return ids
}

// SortRowCol orders placed entities by row, then column, back to front and
// left to right. Unplaced entities sort last, by identifier.
func (s *State) SortRowCol(ids []ecs.Entity) {
	slices.SortStableFunc(ids, func(a, b ecs.Entity) int {
		pa, oka := s.pos.Value(a)
		pb, okb := s.pos.Value(b)
		switch {
		case oka && !okb:
			return -1
		case !oka && okb:
			return 1
		case !oka && !okb:
			return compareEntity(a, b)
		}
		if pa.Y != pb.Y {
			return pa.Y - pb.Y
		}
		if pa.X != pb.X {
			return pa.X - pb.X
		}
		return compareEntity(a, b)
	})
}

func compareEntity(a, b ecs.Entity) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Allies returns the placed, living units sharing e's faction, excluding e.
func (s *State) Allies(e ecs.Entity) []ecs.Entity {
	f := s.Faction(e)
	if f == FactionNone {
		return nil
	}
	var out []ecs.Entity
	for _, u := range s.Units() {
		if u != e && s.Faction(u) == f && !s.Killed.Has(u) {
			out = append(out, u)
		}
	}
	return out
}

// AdjacentAllies returns e's living allies on the four orthogonal squares.
func (s *State) AdjacentAllies(e ecs.Entity) []ecs.Entity {
	p, ok := s.pos.Value(e)
	f := s.Faction(e)
	if !ok || f == FactionNone {
		return nil
	}
	var out []ecs.Entity
	for _, d := range Ortho {
		u, ok := s.UnitAt(p.Add(d))
		if ok && s.Faction(u) == f && !s.Killed.Has(u) {
			out = append(out, u)
		}
	}
	s.SortRowCol(out)
	return out
}

// WithTag returns the placed, living units bearing tag.
func (s *State) WithTag(tag string) []ecs.Entity {
	var out []ecs.Entity
	for _, u := range s.Units() {
		if t, ok := s.Tags.Value(u); ok && t.Has(tag) && !s.Killed.Has(u) {
			out = append(out, u)
		}
	}
	return out
}

// InColumn returns the placed, living units in column x, back row first.
func (s *State) InColumn(x int) []ecs.Entity {
	var out []ecs.Entity
	for _, u := range s.Units() {
		if p, _ := s.pos.Value(u); p.X == x && !s.Killed.Has(u) {
			out = append(out, u)
		}
	}
	return out
}

// View adapts the state to the read-only surface scripts see.
func (s *State) View() scripting.Env { return view{s} }

type view struct{ s *State }

func (v view) Alive(e ecs.Entity) bool {
	return v.s.Alive(e) && !v.s.Killed.Has(e)
}

func (v view) Health(e ecs.Entity) (uint32, uint32, bool) {
	h, ok := v.s.Health.Value(e)
	return h.Current, h.Max, ok
}

func (v view) Position(e ecs.Entity) (int, int, bool) {
	p, ok := v.s.Pos(e)
	return p.X, p.Y, ok
}

func (v view) Name(e ecs.Entity) (string, bool) { return v.s.Name.Value(e) }
func (v view) IsPlayer(e ecs.Entity) bool       { return v.s.Player.Has(e) }
func (v view) IsNpc(e ecs.Entity) bool          { return v.s.Npc.Has(e) }

func (v view) HasTag(e ecs.Entity, tag string) bool {
	t, ok := v.s.Tags.Value(e)
	return ok && t.Has(tag)
}

func (v view) UnitAt(x, y int) (ecs.Entity, bool) { return v.s.UnitAt(Position{x, y}) }

func (v view) TileAt(x, y int) (string, bool) {
	t, ok := v.s.TileAt(Position{x, y})
	if !ok {
		return "", false
	}
	return t.String(), true
}

func (v view) Allies(e ecs.Entity) []ecs.Entity         { return v.s.Allies(e) }
func (v view) AdjacentAllies(e ecs.Entity) []ecs.Entity { return v.s.AdjacentAllies(e) }
func (v view) WithTag(tag string) []ecs.Entity          { return v.s.WithTag(tag) }
func (v view) InColumn(x int) []ecs.Entity              { return v.s.InColumn(x) }
func (v view) Food() uint32                             { return v.s.Res.Player.Food }

func (v view) Query(with, without []string) []ecs.Entity {
	return v.s.QueryByName(with, without)
}
