package system

import (
	"github.com/hearthward/hearthward/internal/battle"
	coresys "github.com/hearthward/hearthward/internal/core/system"
)

// FightSystem performs one battle action per tick during Fight: a queued
// fight-start trigger, or the next enemy attack. Phase 2 (Update).
type FightSystem struct {
	battle *battle.Battle
}

func NewFightSystem(b *battle.Battle) *FightSystem {
	return &FightSystem{battle: b}
}

func (s *FightSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *FightSystem) Update() {
	s.battle.FightStep()
}
