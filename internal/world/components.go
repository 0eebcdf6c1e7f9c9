package world

import (
	"fmt"
	"slices"
)

// Position is an integer tile coordinate.
type Position struct {
	X, Y int
}

func (p Position) Add(o Position) Position { return Position{p.X + o.X, p.Y + o.Y} }

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Ortho lists the four orthogonal neighbour offsets.
var Ortho = [4]Position{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}

// Bounded is a counter capped by a maximum. Current never exceeds Max.
type Bounded struct {
	Current uint32
	Max     uint32
}

func NewBounded(v uint32) Bounded { return Bounded{Current: v, Max: v} }

// Add raises Current up to Max and returns the applied amount.
func (b *Bounded) Add(v uint32) uint32 {
	room := b.Max - b.Current
	if v > room {
		v = room
	}
	b.Current += v
	return v
}

// Sub lowers Current, saturating at zero, and returns the applied amount.
func (b *Bounded) Sub(v uint32) uint32 {
	if v > b.Current {
		v = b.Current
	}
	b.Current -= v
	return v
}

// Restore refills Current to Max.
func (b *Bounded) Restore() { b.Current = b.Max }

// AddMax raises both Max and Current.
func (b *Bounded) AddMax(v uint32) {
	b.Max += v
	b.Current += v
}

// SubMax lowers Max (saturating) and clamps Current.
func (b *Bounded) SubMax(v uint32) {
	if v > b.Max {
		v = b.Max
	}
	b.SetMax(b.Max - v)
}

// SetMax replaces Max and clamps Current.
func (b *Bounded) SetMax(v uint32) {
	b.Max = v
	b.Current = min(b.Current, b.Max)
}

func (b Bounded) IsZero() bool { return b.Current == 0 }

// Tile is the terrain kind of a board square.
type Tile uint8

const (
	TilePlains Tile = iota
	TileMeadow
	TileField
	TileForest
)

var tileNames = [...]string{"plains", "meadow", "field", "forest"}

// Tiles lists every terrain kind in declaration order.
var Tiles = []Tile{TilePlains, TileMeadow, TileField, TileForest}

func (t Tile) String() string {
	if int(t) < len(tileNames) {
		return tileNames[t]
	}
	return fmt.Sprintf("tile(%d)", uint8(t))
}

// Tags is a set of capability labels kept sorted.
type Tags []string

func NewTags(labels ...string) Tags {
	t := slices.Clone(labels)
	slices.Sort(t)
	return slices.Compact(t)
}

func (t Tags) Has(label string) bool {
	_, ok := slices.BinarySearch(t, label)
	return ok
}

// TriggerKind identifies the event a behaviour script reacts to.
type TriggerKind uint8

const (
	OnSpawn TriggerKind = iota
	OnAttack
	OnDamage
	OnKill
	OnAllyKill
	OnAllyHeal
	OnAllyGainFood
	OnFight
	triggerKindCount
)

var triggerNames = [triggerKindCount]string{
	"on_spawn",
	"on_attack",
	"on_damage",
	"on_kill",
	"on_ally_kill",
	"on_ally_heal",
	"on_ally_gain_food",
	"on_fight",
}

func (k TriggerKind) String() string {
	if k < triggerKindCount {
		return triggerNames[k]
	}
	return fmt.Sprintf("trigger(%d)", uint8(k))
}

// ParseTriggerKind maps a data-file key to its kind.
func ParseTriggerKind(s string) (TriggerKind, bool) {
	for i, n := range triggerNames {
		if n == s {
			return TriggerKind(i), true
		}
	}
	return 0, false
}

// Triggers holds at most one script id per trigger kind.
type Triggers [triggerKindCount]string

func (t *Triggers) Script(k TriggerKind) (string, bool) {
	if k >= triggerKindCount || t[k] == "" {
		return "", false
	}
	return t[k], true
}

// Marker is the value type of tag-only components.
type Marker struct{}
