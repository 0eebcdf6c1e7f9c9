package system

import (
	"github.com/hearthward/hearthward/internal/battle"
	coresys "github.com/hearthward/hearthward/internal/core/system"
)

// SettleSystem drains pending commands and sweeps killed units into
// removals. It runs twice a tick: first at PhaseSettle so the tick starts
// from a fixed point, then at PhaseResolve for what the tick's action
// produced.
type SettleSystem struct {
	battle *battle.Battle
	phase  coresys.Phase
}

func NewSettleSystem(b *battle.Battle, phase coresys.Phase) *SettleSystem {
	return &SettleSystem{battle: b, phase: phase}
}

func (s *SettleSystem) Phase() coresys.Phase { return s.phase }

func (s *SettleSystem) Update() {
	s.battle.Settle()
}
