package system

import (
	"github.com/hearthward/hearthward/internal/battle"
	coresys "github.com/hearthward/hearthward/internal/core/system"
)

// AdvanceSystem moves the battle between waves and into Done once the
// board has settled. Phase 4 (Advance).
type AdvanceSystem struct {
	battle *battle.Battle
}

func NewAdvanceSystem(b *battle.Battle) *AdvanceSystem {
	return &AdvanceSystem{battle: b}
}

func (s *AdvanceSystem) Phase() coresys.Phase { return coresys.PhaseAdvance }

func (s *AdvanceSystem) Update() {
	s.battle.Advance()
}

// RegisterBattle adds every battle system to r.
func RegisterBattle(r *coresys.Runner, b *battle.Battle) {
	r.Register(NewSettleSystem(b, coresys.PhaseSettle))
	r.Register(NewInputSystem(b))
	r.Register(NewFightSystem(b))
	r.Register(NewSettleSystem(b, coresys.PhaseResolve))
	r.Register(NewAdvanceSystem(b))
}
