package battle

import (
	"slices"

	"github.com/google/uuid"
	"github.com/hearthward/hearthward/internal/config"
	"github.com/hearthward/hearthward/internal/core/command"
	"github.com/hearthward/hearthward/internal/core/event"
	"github.com/hearthward/hearthward/internal/scripting"
	"github.com/hearthward/hearthward/internal/world"
	"go.uber.org/zap"
)

// Battle drives one wave-based battle over a world. It owns the command
// scheduler, the outgoing event bus and the input bus. Single-goroutine
// access only; the tick systems call Settle, ProcessInput, FightStep and
// Advance in that order.
type Battle struct {
	ID     string
	World  *world.State
	Sched  *Scheduler
	Events *event.Bus
	Input  *event.Bus

	input     *event.Reader
	scripting config.ScriptingConfig
	log       *zap.Logger
}

// New wires a battle over w. Call Start to set up the board.
func New(w *world.State, sc config.ScriptingConfig, log *zap.Logger) *Battle {
	id := uuid.NewString()
	log = log.With(zap.String("battle", id))
	b := &Battle{
		ID:        id,
		World:     w,
		Sched:     command.NewScheduler[*world.State](log),
		Events:    event.NewBus(),
		Input:     event.NewBus(),
		scripting: sc,
		log:       log,
	}
	b.input = b.Input.Subscribe()
	RegisterAll(b.Sched, &Deps{Events: b.Events, Log: log})
	b.Sched.OnReject(func(cmd any) {
		name := command.Name(cmd)
		b.log.Debug("command rejected", zap.String("command", name))
		event.Emit(b.Events, event.CommandRejected{Command: name})
	})
	return b
}

// Start raises the player's level, resets food, lays the tiles, compiles the catalog's
// scripts, shuffles the deck and opens the first turn.
func (b *Battle) Start() {
	w := b.World
	rules := w.Res.Rules
	w.Res.Player.Level++
	w.Res.Player.Food = rules.StartingFood
	w.Res.Battle = world.BattleState{Mode: world.ModePlan, Wave: 1}

	for y := 0; y < rules.BoardHeight; y++ {
		for x := 0; x < rules.BoardWidth; x++ {
			t := world.Tiles[w.Res.Rand.Intn(len(world.Tiles))]
			w.SpawnTile(t, world.Position{X: x, Y: y})
		}
	}
	w.InstallVM(scripting.NewEngine(w.Res.Catalog, scripting.Options{
		Timeout:    b.scripting.Timeout,
		APIVersion: b.scripting.APIVersion,
	}, b.log))
	resetDeck(w)

	event.Emit(b.Events, event.BattleStarted{
		BattleID: b.ID,
		Level:    w.Res.Player.Level,
		Waves:    rules.WaveCount,
	})
	b.log.Info("battle started",
		zap.Uint32("level", w.Res.Player.Level),
		zap.Uint32("waves", rules.WaveCount),
		zap.Int("deck", len(w.Res.Player.Deck)),
	)
	b.startTurn()
}

// startTurn resets trigger limits, grants food after the first turn, draws
// a hand and stages the current wave if the enemy rows are empty.
func (b *Battle) startTurn() {
	w := b.World
	bs := &w.Res.Battle
	bs.Turn++
	resetTriggerLimits(w)
	if bs.Turn > 1 && w.Res.Rules.FoodGain > 0 {
		b.Sched.Send(GainFood{Amount: w.Res.Rules.FoodGain})
	}
	drawHand(w)
	if len(npcsOnBoard(w)) == 0 {
		wave := planWave(w)
		for _, c := range wave {
			b.Sched.Send(c)
		}
		event.Emit(b.Events, event.WaveStarted{Wave: bs.Wave, Enemies: len(wave)})
		b.log.Info("wave staged", zap.Uint32("wave", bs.Wave), zap.Int("enemies", len(wave)))
	}
}

// Send queues a command from outside any handler.
func (b *Battle) Send(cmd any) { b.Sched.Send(cmd) }

// Settle drains the scheduler to a fixed point, turning every newly killed
// entity into a RemoveUnit, until nothing is pending.
func (b *Battle) Settle() {
	w := b.World
	for {
		b.Sched.Drain(w)
		killed := w.Killed.Entities()
		if len(killed) == 0 {
			return
		}
		for _, e := range killed {
			b.Sched.Send(RemoveUnit{Entity: e})
		}
		b.Sched.Drain(w)
		// Removal failures leave the marker; drop it so the loop ends.
		for _, e := range killed {
			if w.Killed.Has(e) {
				b.log.Warn("killed entity not removed", zap.Stringer("entity", e))
				w.Killed.Remove(e)
			}
		}
	}
}

// ProcessInput translates queued input events into commands while the
// battle is planning. Each command is settled before the next event is read
// so checks such as food cost see the previous action's effect. Events after
// an end-turn stay queued for the next Plan phase.
func (b *Battle) ProcessInput() {
	for b.World.Res.Battle.Mode == world.ModePlan {
		ev, ok := b.input.Next()
		if !ok {
			return
		}
		cmd, ok := translate(ev)
		if !ok {
			continue
		}
		b.Sched.Send(cmd)
		b.Settle()
	}
}

// FightStep performs one battle action: the next fight-start trigger, or
// else the next enemy attack.
func (b *Battle) FightStep() {
	w := b.World
	bs := &w.Res.Battle
	if bs.Mode != world.ModeFight {
		return
	}
	if len(bs.FightQueue) > 0 {
		e := bs.FightQueue[0]
		bs.FightQueue = slices.Delete(bs.FightQueue, 0, 1)
		b.Sched.Send(FightStart{Entity: e})
		return
	}
	if cmd, ok := nextAttack(w); ok {
		b.Sched.Send(cmd)
	}
}

// Advance applies phase transitions on settled state: a destroyed town ends
// the battle, and a cleared wave opens the next one or wins.
func (b *Battle) Advance() {
	w := b.World
	bs := &w.Res.Battle
	if bs.Mode == world.ModeDone || b.Sched.Len() > 0 {
		return
	}
	if w.Res.Player.Health.IsZero() {
		b.finish(world.OutcomeLost)
		return
	}
	if bs.Mode != world.ModeFight || len(bs.FightQueue) > 0 || len(npcsOnBoard(w)) > 0 {
		return
	}
	if bs.Wave >= w.Res.Rules.WaveCount {
		b.finish(world.OutcomeWon)
		return
	}
	bs.Wave++
	bs.Mode = world.ModePlan
	event.Emit(b.Events, event.ModeChanged{Mode: bs.Mode.String()})
	b.startTurn()
}

func (b *Battle) finish(o world.Outcome) {
	bs := &b.World.Res.Battle
	bs.Mode = world.ModeDone
	bs.Outcome = o
	bs.FightQueue = nil
	event.Emit(b.Events, event.ModeChanged{Mode: bs.Mode.String()})
	event.Emit(b.Events, event.BattleEnded{BattleID: b.ID, Won: o == world.OutcomeWon})
	b.log.Info("battle ended", zap.Bool("won", o == world.OutcomeWon), zap.Uint32("wave", bs.Wave))
}

// Done reports whether the battle has reached its terminal phase.
func (b *Battle) Done() bool { return b.World.Res.Battle.Mode == world.ModeDone }

// Exit tears down the board. Deck pieces come back healed and unflagged;
// tiles, enemies and script-spawned pieces are destroyed. The script engine
// is released.
func (b *Battle) Exit() {
	w := b.World
	b.Settle()

	doomed := append(w.Tile.Entities(), w.Npc.Entities()...)
	for _, e := range w.Player.Entities() {
		if !inDeck(w, e) {
			doomed = append(doomed, e)
		}
	}
	for _, e := range doomed {
		w.Despawn(e)
	}
	for _, e := range w.Res.Player.Deck {
		w.Unplace(e)
		w.Killed.Remove(e)
		if h, ok := w.Health.Get(e); ok {
			h.Restore()
		}
	}
	p := &w.Res.Player
	p.Draw, p.Hand, p.Discard = nil, nil, nil
	w.CloseVM()
	b.Input.Unsubscribe(b.input)
	b.log.Info("battle exit", zap.Int("deck", len(p.Deck)))
}
