package battle

import (
	"github.com/hearthward/hearthward/internal/core/command"
	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/scripting"
	"github.com/hearthward/hearthward/internal/world"
	"go.uber.org/zap"
)

// trigger runs owner's script for kind, if it has one and its trigger limit
// allows, and queues the commands the script returns. A run that returns
// orders consumes one use of the limit.
func (d *Deps) trigger(w *world.State, cx *command.Context, owner ecs.Entity, kind world.TriggerKind, in scripting.Incoming) {
	tr, ok := w.Triggers.Get(owner)
	if !ok {
		return
	}
	id, ok := tr.Script(kind)
	if !ok {
		return
	}
	limit, limited := w.TriggerLimit.Get(owner)
	if limited && limit.IsZero() {
		d.Log.Debug("trigger limit reached", zap.String("script", id), zap.Stringer("entity", owner))
		return
	}

	vm, ok := w.TakeVM()
	if !ok {
		d.Log.Warn("no script engine", zap.String("script", id))
		return
	}
	in.Kind = kind.String()
	orders, err := vm.Run(id, w.View(), owner, in)
	w.RestoreVM(vm)
	if err != nil || len(orders) == 0 {
		return
	}

	if limited {
		limit.Sub(1)
	}
	for _, o := range orders {
		if c := orderCommand(w, owner, o); c != nil {
			cx.Send(c)
		}
	}
}

// broadcast offers an event to every living ally of source holding a
// script for kind.
func (d *Deps) broadcast(w *world.State, cx *command.Context, source ecs.Entity, kind world.TriggerKind, in scripting.Incoming) {
	for _, ally := range w.Allies(source) {
		d.trigger(w, cx, ally, kind, in)
	}
}

// orderCommand maps a script order onto the closed command set.
func orderCommand(w *world.State, owner ecs.Entity, o scripting.Order) any {
	switch o.Kind {
	case scripting.OrderGainFood:
		return GainFood{Amount: o.Amount, Source: owner}
	case scripting.OrderDamage:
		return Damage{Target: o.Entity, Amount: o.Amount, Source: owner}
	case scripting.OrderGainHealth:
		return GainHealth{Target: o.Entity, Amount: o.Amount, Source: owner}
	case scripting.OrderKill:
		return Kill{Target: o.Entity, Source: owner}
	case scripting.OrderRemove:
		return RemoveUnit{Entity: o.Entity}
	case scripting.OrderSpawn:
		return SpawnByName{
			Name:    o.Name,
			To:      world.Position{X: o.X, Y: o.Y},
			Faction: w.Faction(owner),
		}
	}
	return nil
}

// resetTriggerLimits refills every entity's per-turn budget.
func resetTriggerLimits(w *world.State) {
	w.TriggerLimit.Each(func(_ ecs.Entity, l *world.Bounded) {
		l.Restore()
	})
}
