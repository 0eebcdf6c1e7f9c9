package world

import "github.com/hearthward/hearthward/internal/core/ecs"

type layer uint8

const (
	layerUnit layer = iota
	layerTile
)

type gridKey struct {
	layer layer
	pos   Position
}

// Grid is a square occupancy map for O(1) collision checks. Each square
// holds at most one tile and at most one unit.
type Grid struct {
	cells map[gridKey]ecs.Entity
}

func newGrid() *Grid {
	return &Grid{cells: make(map[gridKey]ecs.Entity)}
}

// Occupy claims p for e. It fails if another entity holds the square.
func (g *Grid) Occupy(l layer, p Position, e ecs.Entity) bool {
	k := gridKey{l, p}
	if cur, ok := g.cells[k]; ok && cur != e {
		return false
	}
	g.cells[k] = e
	return true
}

// Vacate releases p if e holds it.
func (g *Grid) Vacate(l layer, p Position, e ecs.Entity) {
	k := gridKey{l, p}
	if g.cells[k] == e {
		delete(g.cells, k)
	}
}

// Move vacates from and occupies to, or changes nothing if to is taken.
func (g *Grid) Move(l layer, from, to Position, e ecs.Entity) bool {
	if from == to {
		return true
	}
	if g.IsOccupied(l, to, e) {
		return false
	}
	g.Vacate(l, from, e)
	g.cells[gridKey{l, to}] = e
	return true
}

// IsOccupied reports whether an entity other than exclude holds p.
func (g *Grid) IsOccupied(l layer, p Position, exclude ecs.Entity) bool {
	cur, ok := g.cells[gridKey{l, p}]
	return ok && cur != exclude
}

// OccupantAt returns the entity on p, or Nil.
func (g *Grid) OccupantAt(l layer, p Position) ecs.Entity {
	return g.cells[gridKey{l, p}]
}
