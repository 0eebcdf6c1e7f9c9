package event

import "github.com/hearthward/hearthward/internal/core/ecs"

// Outgoing notifications consumed by presentation layers.

type BattleStarted struct {
	BattleID string
	Level    uint32
	Waves    uint32
}

type WaveStarted struct {
	Wave    uint32
	Enemies int
}

type ModeChanged struct {
	Mode string
}

type UnitSpawned struct {
	Entity ecs.Entity
	Name   string
	X, Y   int
}

type UnitMoved struct {
	Entity       ecs.Entity
	FromX, FromY int
	X, Y         int
}

type UnitAttacked struct {
	Attacker ecs.Entity
	Target   ecs.Entity
	X, Y     int // target tile
}

type TownDamaged struct {
	Attacker ecs.Entity
	Amount   uint32
	Health   uint32 // remaining town health
}

type HealthChanged struct {
	Entity  ecs.Entity
	Delta   int
	Current uint32
}

type UnitKilled struct {
	Entity ecs.Entity
}

type UnitRemoved struct {
	Entity ecs.Entity
}

type FoodChanged struct {
	Delta int
	Total uint32
}

// CommandRejected reports a command whose handler chain aborted.
type CommandRejected struct {
	Command string
}

type BattleEnded struct {
	BattleID string
	Won      bool
}
