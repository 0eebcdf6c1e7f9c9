package battle

import (
	"slices"

	"github.com/hearthward/hearthward/internal/core/command"
	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/core/event"
	"github.com/hearthward/hearthward/internal/scripting"
	"github.com/hearthward/hearthward/internal/world"
	"go.uber.org/zap"
)

// Handler priorities. Base effects settle before any trigger observes them.
const (
	PriorityBase   = 0
	PrioritySelf   = 1
	PriorityAllies = 2
)

// Scheduler is the command scheduler bound to the battle world.
type Scheduler = command.Scheduler[*world.State]

// Deps carries what handlers need besides the world.
type Deps struct {
	Events *event.Bus
	Log    *zap.Logger
}

// RegisterAll installs every command handler chain on s.
func RegisterAll(s *Scheduler, d *Deps) {
	command.Handle(s, PriorityBase, d.pay)
	command.Handle(s, PriorityBase, d.gainFood)
	command.Handle(s, PriorityAllies, d.onAllyGainFood)
	command.Handle(s, PriorityBase, d.redrawHand)
	command.Handle(s, PriorityBase, d.fight)
	command.Handle(s, PriorityBase, d.fightStart)
	command.Handle(s, PrioritySelf, d.onFight)
	command.Handle(s, PriorityBase, d.summonUnit)
	command.Handle(s, PriorityBase, d.spawnUnit)
	command.Handle(s, PrioritySelf, d.onSpawn)
	command.Handle(s, PriorityBase, d.spawnByName)
	command.Handle(s, PriorityBase, d.moveUnit)
	command.Handle(s, PriorityBase, d.attack)
	command.Handle(s, PrioritySelf, d.onAttack)
	command.Handle(s, PriorityBase, d.attackTown)
	command.Handle(s, PriorityBase, d.damage)
	command.Handle(s, PrioritySelf, d.onDamage)
	command.Handle(s, PriorityBase, d.gainHealth)
	command.Handle(s, PriorityAllies, d.onAllyHeal)
	command.Handle(s, PriorityBase, d.kill)
	command.Handle(s, PrioritySelf, d.onKill)
	command.Handle(s, PriorityAllies, d.onAllyKill)
	command.Handle(s, PriorityBase, d.removeUnit)
	command.Handle(s, PriorityBase, d.discardUnit)
}

// standing reports whether e is a live, unkilled entity with health on the
// board.
func standing(w *world.State, e ecs.Entity) (*world.Bounded, bool) {
	if !w.Alive(e) || w.Killed.Has(e) || !w.IsPlaced(e) {
		return nil, false
	}
	return w.Health.Get(e)
}

// --- food ---

func (d *Deps) pay(cmd *Pay, w *world.State, _ *command.Context) command.Outcome {
	p := &w.Res.Player
	spent := min(cmd.Amount, p.Food)
	p.Food -= spent
	event.Emit(d.Events, event.FoodChanged{Delta: -int(spent), Total: p.Food})
	return command.Continue
}

func (d *Deps) gainFood(cmd *GainFood, w *world.State, _ *command.Context) command.Outcome {
	p := &w.Res.Player
	p.Food += cmd.Amount
	event.Emit(d.Events, event.FoodChanged{Delta: int(cmd.Amount), Total: p.Food})
	return command.Continue
}

// onAllyGainFood only reacts to food produced by a unit.
func (d *Deps) onAllyGainFood(cmd *GainFood, w *world.State, cx *command.Context) command.Outcome {
	if cmd.Source.IsNil() || cmd.Amount == 0 {
		return command.Continue
	}
	d.broadcast(w, cx, cmd.Source, world.OnAllyGainFood, scripting.Incoming{
		Source: cmd.Source,
		Amount: cmd.Amount,
	})
	return command.Continue
}

// --- hand ---

func (d *Deps) redrawHand(_ *RedrawHand, w *world.State, cx *command.Context) command.Outcome {
	cost := w.Res.Rules.RedrawCost
	if w.Res.Battle.Mode != world.ModePlan || w.Res.Player.Food < cost {
		return command.Abort
	}
	p := &w.Res.Player
	p.Discard = append(p.Discard, p.Hand...)
	p.Hand = nil
	drawHand(w)
	cx.Send(Pay{Amount: cost})
	return command.Continue
}

func (d *Deps) discardUnit(cmd *DiscardUnit, w *world.State, _ *command.Context) command.Outcome {
	p := &w.Res.Player
	hand, ok := without(p.Hand, cmd.Entity)
	if !ok {
		return command.Abort
	}
	p.Hand = hand
	p.Discard = append(p.Discard, cmd.Entity)
	return command.Continue
}

// --- phases ---

func (d *Deps) fight(_ *Fight, w *world.State, _ *command.Context) command.Outcome {
	b := &w.Res.Battle
	if b.Mode != world.ModePlan {
		return command.Abort
	}
	b.FightQueue = fightQueue(w)
	b.Mode = world.ModeFight
	event.Emit(d.Events, event.ModeChanged{Mode: b.Mode.String()})
	d.Log.Info("fight", zap.Uint32("wave", b.Wave), zap.Int("queued", len(b.FightQueue)))
	return command.Continue
}

// fightQueue lists the units on the board holding a fight-start script,
// back row first and left to right.
func fightQueue(w *world.State) []ecs.Entity {
	var q []ecs.Entity
	for _, e := range w.Units() {
		if w.Killed.Has(e) {
			continue
		}
		if tr, ok := w.Triggers.Get(e); ok {
			if _, ok := tr.Script(world.OnFight); ok {
				q = append(q, e)
			}
		}
	}
	return q
}

func (d *Deps) fightStart(cmd *FightStart, w *world.State, _ *command.Context) command.Outcome {
	if !w.IsPlaced(cmd.Entity) || w.Killed.Has(cmd.Entity) {
		return command.Abort
	}
	return command.Continue
}

func (d *Deps) onFight(cmd *FightStart, w *world.State, cx *command.Context) command.Outcome {
	d.trigger(w, cx, cmd.Entity, world.OnFight, scripting.Incoming{})
	return command.Continue
}

// --- placement ---

func (d *Deps) summonUnit(cmd *SummonUnit, w *world.State, cx *command.Context) command.Outcome {
	p := &w.Res.Player
	if w.Res.Battle.Mode != world.ModePlan || !w.OnPlayerHalf(cmd.To) {
		return command.Abort
	}
	if _, taken := w.UnitAt(cmd.To); taken {
		return command.Abort
	}
	cost, ok := w.Cost.Value(cmd.Entity)
	if !ok || cost > p.Food {
		return command.Abort
	}
	hand, ok := without(p.Hand, cmd.Entity)
	if !ok {
		return command.Abort
	}
	p.Hand = hand
	cx.Send(SpawnUnit{Entity: cmd.Entity, To: cmd.To})
	cx.Send(Pay{Amount: cost})
	return command.Continue
}

// spawnUnit places an entity. A token that could not be placed is
// destroyed; deck pieces are kept.
func (d *Deps) spawnUnit(cmd *SpawnUnit, w *world.State, _ *command.Context) command.Outcome {
	if !w.OnBoard(cmd.To) || !w.Place(cmd.Entity, cmd.To) {
		if !w.IsPlaced(cmd.Entity) && !inDeck(w, cmd.Entity) {
			w.Despawn(cmd.Entity)
		}
		return command.Abort
	}
	name, _ := w.Name.Value(cmd.Entity)
	event.Emit(d.Events, event.UnitSpawned{Entity: cmd.Entity, Name: name, X: cmd.To.X, Y: cmd.To.Y})
	return command.Continue
}

func (d *Deps) onSpawn(cmd *SpawnUnit, w *world.State, cx *command.Context) command.Outcome {
	d.trigger(w, cx, cmd.Entity, world.OnSpawn, scripting.Incoming{})
	return command.Continue
}

func (d *Deps) spawnByName(cmd *SpawnByName, w *world.State, cx *command.Context) command.Outcome {
	if !w.OnBoard(cmd.To) {
		return command.Abort
	}
	if _, taken := w.UnitAt(cmd.To); taken {
		return command.Abort
	}
	e, err := w.SpawnByName(cmd.Name, cmd.Faction)
	if err != nil {
		d.Log.Warn("spawn by name", zap.String("name", cmd.Name), zap.Error(err))
		return command.Abort
	}
	cx.Send(SpawnUnit{Entity: e, To: cmd.To})
	return command.Continue
}

func (d *Deps) moveUnit(cmd *MoveUnit, w *world.State, _ *command.Context) command.Outcome {
	if w.Res.Battle.Mode != world.ModePlan || !w.Player.Has(cmd.Entity) || w.Killed.Has(cmd.Entity) {
		return command.Abort
	}
	from, ok := w.Pos(cmd.Entity)
	if !ok || !w.OnPlayerHalf(cmd.To) || !w.MoveTo(cmd.Entity, cmd.To) {
		return command.Abort
	}
	event.Emit(d.Events, event.UnitMoved{
		Entity: cmd.Entity,
		FromX:  from.X,
		FromY:  from.Y,
		X:      cmd.To.X,
		Y:      cmd.To.Y,
	})
	return command.Continue
}

// --- combat ---

func (d *Deps) attack(cmd *Attack, w *world.State, cx *command.Context) command.Outcome {
	a, ok := standing(w, cmd.Attacker)
	if !ok {
		return command.Abort
	}
	b, ok := standing(w, cmd.Target)
	if !ok {
		return command.Abort
	}
	cx.Send(Damage{Target: cmd.Target, Amount: a.Current, Source: cmd.Attacker})
	cx.Send(Damage{Target: cmd.Attacker, Amount: b.Current, Source: cmd.Target})
	at, _ := w.Pos(cmd.Target)
	event.Emit(d.Events, event.UnitAttacked{Attacker: cmd.Attacker, Target: cmd.Target, X: at.X, Y: at.Y})
	return command.Continue
}

func (d *Deps) onAttack(cmd *Attack, w *world.State, cx *command.Context) command.Outcome {
	d.trigger(w, cx, cmd.Attacker, world.OnAttack, scripting.Incoming{
		Source: cmd.Attacker,
		Target: cmd.Target,
	})
	return command.Continue
}

func (d *Deps) attackTown(cmd *AttackTown, w *world.State, cx *command.Context) command.Outcome {
	h, ok := standing(w, cmd.Attacker)
	if !ok {
		return command.Abort
	}
	town := &w.Res.Player.Health
	dealt := town.Sub(h.Current)
	event.Emit(d.Events, event.TownDamaged{Attacker: cmd.Attacker, Amount: dealt, Health: town.Current})
	cx.Send(Kill{Target: cmd.Attacker})
	return command.Continue
}

func (d *Deps) damage(cmd *Damage, w *world.State, cx *command.Context) command.Outcome {
	h, ok := standing(w, cmd.Target)
	if !ok {
		return command.Abort
	}
	dealt := h.Sub(cmd.Amount)
	event.Emit(d.Events, event.HealthChanged{Entity: cmd.Target, Delta: -int(dealt), Current: h.Current})
	if h.IsZero() {
		cx.Send(Kill{Target: cmd.Target, Source: cmd.Source})
	}
	return command.Continue
}

func (d *Deps) onDamage(cmd *Damage, w *world.State, cx *command.Context) command.Outcome {
	d.trigger(w, cx, cmd.Target, world.OnDamage, scripting.Incoming{
		Source: cmd.Source,
		Target: cmd.Target,
		Amount: cmd.Amount,
	})
	return command.Continue
}

func (d *Deps) gainHealth(cmd *GainHealth, w *world.State, _ *command.Context) command.Outcome {
	h, ok := standing(w, cmd.Target)
	if !ok {
		return command.Abort
	}
	healed := h.Add(cmd.Amount)
	event.Emit(d.Events, event.HealthChanged{Entity: cmd.Target, Delta: int(healed), Current: h.Current})
	return command.Continue
}

func (d *Deps) onAllyHeal(cmd *GainHealth, w *world.State, cx *command.Context) command.Outcome {
	d.broadcast(w, cx, cmd.Target, world.OnAllyHeal, scripting.Incoming{
		Source: cmd.Source,
		Target: cmd.Target,
		Amount: cmd.Amount,
	})
	return command.Continue
}

// --- death ---

func (d *Deps) kill(cmd *Kill, w *world.State, _ *command.Context) command.Outcome {
	if _, ok := standing(w, cmd.Target); !ok {
		return command.Abort
	}
	w.Killed.Insert(cmd.Target, world.Marker{})
	event.Emit(d.Events, event.UnitKilled{Entity: cmd.Target})
	return command.Continue
}

func (d *Deps) onKill(cmd *Kill, w *world.State, cx *command.Context) command.Outcome {
	d.trigger(w, cx, cmd.Target, world.OnKill, scripting.Incoming{
		Source: cmd.Source,
		Target: cmd.Target,
	})
	return command.Continue
}

func (d *Deps) onAllyKill(cmd *Kill, w *world.State, cx *command.Context) command.Outcome {
	d.broadcast(w, cx, cmd.Target, world.OnAllyKill, scripting.Incoming{
		Source: cmd.Source,
		Target: cmd.Target,
	})
	return command.Continue
}

// removeUnit sends player pieces to the discard pile, healed and unflagged;
// everything else is destroyed.
func (d *Deps) removeUnit(cmd *RemoveUnit, w *world.State, _ *command.Context) command.Outcome {
	e := cmd.Entity
	if !w.IsPlaced(e) && !w.Killed.Has(e) {
		return command.Abort
	}
	b := &w.Res.Battle
	b.FightQueue, _ = without(b.FightQueue, e)
	if w.Player.Has(e) && inDeck(w, e) {
		w.Unplace(e)
		w.Killed.Remove(e)
		if h, ok := w.Health.Get(e); ok {
			h.Restore()
		}
		p := &w.Res.Player
		p.Hand, _ = without(p.Hand, e)
		p.Draw, _ = without(p.Draw, e)
		if !slices.Contains(p.Discard, e) {
			p.Discard = append(p.Discard, e)
		}
	} else {
		w.Despawn(e)
	}
	event.Emit(d.Events, event.UnitRemoved{Entity: e})
	return command.Continue
}
