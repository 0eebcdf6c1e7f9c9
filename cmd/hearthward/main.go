package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hearthward/hearthward/internal/battle"
	"github.com/hearthward/hearthward/internal/config"
	"github.com/hearthward/hearthward/internal/core/ecs"
	"github.com/hearthward/hearthward/internal/core/event"
	coresys "github.com/hearthward/hearthward/internal/core/system"
	"github.com/hearthward/hearthward/internal/data"
	"github.com/hearthward/hearthward/internal/shop"
	"github.com/hearthward/hearthward/internal/system"
	"github.com/hearthward/hearthward/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             Hearthward  v0.1.0            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       wave battles · headless runner      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	cfgPath := "config/game.toml"
	if p := os.Getenv("HEARTHWARD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	printSection("Data")
	catalog, err := data.LoadCatalog(cfg.Data.Dir, data.CategoryUnits, data.CategoryNpcs)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	printStat("Units", len(catalog.Category(data.CategoryUnits)))
	printStat("Enemies", len(catalog.Category(data.CategoryNpcs)))
	scripts := 0
	catalog.Each(func(d *data.EntityDef) { scripts += len(d.Scripts) })
	printStat("Trigger scripts", scripts)

	w := world.NewState(cfg.Battle, catalog)
	if err := battle.NewSquad(w, cfg.Battle.StartingDeck, cfg.Battle.StartingExtras); err != nil {
		return err
	}
	printOK(fmt.Sprintf("Starting deck of %d", len(w.Res.Player.Deck)))
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for i := 0; i < cfg.Run.Battles; i++ {
		printSection(fmt.Sprintf("Battle %d", i+1))
		won, err := playBattle(ctx, cfg, w, log)
		if err != nil {
			return err
		}
		if !won {
			printOK("The town has fallen")
			return nil
		}
		printOK("Victory")
		if err := visitShop(cfg, w, log); err != nil {
			return err
		}
	}
	return nil
}

// playBattle runs one battle to completion with a simple automatic player.
func playBattle(ctx context.Context, cfg *config.Config, w *world.State, log *zap.Logger) (bool, error) {
	b := battle.New(w, cfg.Scripting, log)
	runner := coresys.NewRunner()
	system.RegisterBattle(runner, b)
	events := b.Events.Subscribe()
	defer b.Events.Unsubscribe(events)

	b.Start()
	defer b.Exit()

	var tick <-chan time.Time
	if cfg.Run.TickRate > 0 {
		ticker := time.NewTicker(cfg.Run.TickRate)
		defer ticker.Stop()
		tick = ticker.C
	}

	var planned uint32
	for n := 0; !b.Done(); n++ {
		if n >= cfg.Run.MaxTicks {
			return false, fmt.Errorf("battle %s stalled after %d ticks", b.ID, n)
		}
		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return false, ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return false, err
		}

		bs := w.Res.Battle
		if bs.Mode == world.ModePlan && bs.Turn != planned {
			planned = bs.Turn
			autoPlan(w, b.Input)
		}
		runner.Tick()
		events.Drain(logEvents(log))
	}
	return w.Res.Battle.Outcome == world.OutcomeWon, nil
}

// autoPlan summons what the food allows onto the free squares nearest the
// enemy, then ends the turn.
func autoPlan(w *world.State, input *event.Bus) {
	rules := w.Res.Rules
	food := w.Res.Player.Food
	var free []world.Position
	for y := rules.BoardHeight - 1; y >= 0; y-- {
		for x := 0; x < rules.BoardWidth; x++ {
			p := world.Position{X: x, Y: y}
			if _, taken := w.UnitAt(p); !taken {
				free = append(free, p)
			}
		}
	}
	for _, e := range w.Res.Player.Hand {
		if len(free) == 0 {
			break
		}
		cost, _ := w.Cost.Value(e)
		if cost > food {
			continue
		}
		food -= cost
		event.Emit(input, battle.InputSummonUnit{Entity: e, To: free[0]})
		free = free[1:]
	}
	event.Emit(input, battle.InputEndTurn{})
}

func logEvents(log *zap.Logger) func(any) {
	return event.Dispatch(
		event.On(func(ev event.WaveStarted) {
			log.Info("wave", zap.Uint32("wave", ev.Wave), zap.Int("enemies", ev.Enemies))
		}),
		event.On(func(ev event.UnitSpawned) {
			log.Debug("spawned", zap.String("unit", ev.Name), zap.Int("x", ev.X), zap.Int("y", ev.Y))
		}),
		event.On(func(ev event.UnitAttacked) {
			log.Debug("attack", zap.Stringer("attacker", ev.Attacker), zap.Stringer("target", ev.Target))
		}),
		event.On(func(ev event.TownDamaged) {
			log.Info("town hit", zap.Uint32("damage", ev.Amount), zap.Uint32("health", ev.Health))
		}),
		event.On(func(ev event.UnitKilled) {
			log.Debug("killed", zap.Stringer("entity", ev.Entity))
		}),
		event.On(func(ev event.FoodChanged) {
			if ev.Delta != 0 {
				log.Debug("food", zap.Int("delta", ev.Delta), zap.Uint32("total", ev.Total))
			}
		}),
	)
}

// visitShop takes the first offer and discards the oldest pieces until the
// deck fits again.
func visitShop(cfg *config.Config, w *world.State, log *zap.Logger) error {
	s := shop.New(w, cfg.Shop.Size, log)
	input := event.NewBus()
	r := input.Subscribe()
	if len(s.Offers()) > 0 {
		event.Emit(input, battle.InputPickShop{Index: 0})
	}
	err := s.Process(r)
	if errors.Is(err, shop.ErrDeckTooBig) {
		deck := append([]ecs.Entity(nil), w.Res.Player.Deck...)
		for _, e := range deck[:s.Overflow()] {
			event.Emit(input, battle.InputDiscardUnit{Entity: e})
		}
		err = s.Process(r)
	}
	if err != nil {
		return fmt.Errorf("shop: %w", err)
	}
	printStat("Deck", len(w.Res.Player.Deck))
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
