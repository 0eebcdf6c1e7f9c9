package system

import (
	"github.com/hearthward/hearthward/internal/battle"
	coresys "github.com/hearthward/hearthward/internal/core/system"
)

// InputSystem drains the battle's input bus while the player is planning.
// Phase 1 (Input).
type InputSystem struct {
	battle *battle.Battle
}

func NewInputSystem(b *battle.Battle) *InputSystem {
	return &InputSystem{battle: b}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update() {
	s.battle.ProcessInput()
}
