package battle

import (
	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/world"
)

// Commands are plain values; the scheduler keys handler chains by type.
// Source, where present, is the entity whose action or script caused the
// command and is Nil for player and turn actions.

// Pay spends food.
type Pay struct{ Amount uint32 }

// GainFood adds food.
type GainFood struct {
	Amount uint32
	Source ecs.Entity
}

// RedrawHand discards the hand and draws a fresh one for a food price.
type RedrawHand struct{}

// Fight ends the Plan phase.
type Fight struct{}

// FightStart resolves one entry of the fight-start queue.
type FightStart struct{ Entity ecs.Entity }

// SummonUnit plays a piece from the hand onto the player's half.
type SummonUnit struct {
	Entity ecs.Entity
	To     world.Position
}

// SpawnUnit places an existing entity on the board.
type SpawnUnit struct {
	Entity ecs.Entity
	To     world.Position
}

// SpawnByName creates an entity from the catalog and places it.
type SpawnByName struct {
	Name    string
	To      world.Position
	Faction world.Faction
}

// MoveUnit relocates a player unit during Plan.
type MoveUnit struct {
	Entity ecs.Entity
	To     world.Position
}

// Attack trades blows: each side takes damage equal to the other's health.
type Attack struct {
	Attacker ecs.Entity
	Target   ecs.Entity
}

// AttackTown hits the player's stronghold; the attacker is spent.
type AttackTown struct{ Attacker ecs.Entity }

type Damage struct {
	Target ecs.Entity
	Amount uint32
	Source ecs.Entity
}

type GainHealth struct {
	Target ecs.Entity
	Amount uint32
	Source ecs.Entity
}

// Kill flags an entity Killed. Removal follows as a separate command.
type Kill struct {
	Target ecs.Entity
	Source ecs.Entity
}

// RemoveUnit takes a killed or dismissed entity off the board.
type RemoveUnit struct{ Entity ecs.Entity }

// DiscardUnit moves a piece from the hand to the discard pile.
type DiscardUnit struct{ Entity ecs.Entity }
