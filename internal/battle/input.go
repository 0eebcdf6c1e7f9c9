package battle

import (
	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/world"
)

// Input events, published by a presentation layer on the battle's input bus.

type InputSummonUnit struct {
	Entity ecs.Entity
	To     world.Position
}

type InputMoveUnit struct {
	Entity ecs.Entity
	To     world.Position
}

type InputRedrawHand struct{}

type InputEndTurn struct{}

type InputDiscardUnit struct{ Entity ecs.Entity }

// InputPickShop selects a shop offer; the battle ignores it.
type InputPickShop struct{ Index int }

// translate maps an input event 1:1 onto a command. ok is false for events
// the battle does not handle.
func translate(ev any) (cmd any, ok bool) {
	switch ev := ev.(type) {
	case InputSummonUnit:
		return SummonUnit(ev), true
	case InputMoveUnit:
		return MoveUnit(ev), true
	case InputRedrawHand:
		return RedrawHand{}, true
	case InputEndTurn:
		return Fight{}, true
	case InputDiscardUnit:
		return DiscardUnit(ev), true
	}
	return nil, false
}
