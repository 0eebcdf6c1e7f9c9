package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

type Config struct {
	Battle    BattleConfig    `toml:"battle"`
	Scripting ScriptingConfig `toml:"scripting"`
	Shop      ShopConfig      `toml:"shop"`
	Data      DataConfig      `toml:"data"`
	Logging   LoggingConfig   `toml:"logging"`
	Run       RunConfig       `toml:"run"`
}

type BattleConfig struct {
	BoardWidth          int      `toml:"board_width"`
	BoardHeight         int      `toml:"board_height"`
	MaxWaveHeight       int      `toml:"max_wave_height"` // enemy staging rows above the board
	WaveCount           uint32   `toml:"wave_count"`
	HandSize            int      `toml:"hand_size"`
	MaxDeckSize         int      `toml:"max_deck_size"`
	FoodGain            uint32   `toml:"food_gain"` // food granted at the start of every turn after the first
	StartingFood        uint32   `toml:"starting_food"`
	PlayerHealth        uint32   `toml:"player_health"`
	DefaultTriggerLimit uint32   `toml:"default_trigger_limit"` // per-turn cap for units with scripts and no explicit limit
	RedrawCost          uint32   `toml:"redraw_cost"`
	StartingDeck        []string `toml:"starting_deck"`
	StartingExtras      []string `toml:"starting_extras"`            // one of these joins the starting deck
	Seed                int64    `toml:"seed" env:"HEARTHWARD_SEED"` // 0 = seeded from the clock
}

type ScriptingConfig struct {
	Timeout    time.Duration `toml:"timeout" env:"HEARTHWARD_SCRIPT_TIMEOUT"`
	APIVersion int           `toml:"api_version"`
}

type ShopConfig struct {
	Size int `toml:"size"`
}

type DataConfig struct {
	Dir string `toml:"dir" env:"HEARTHWARD_DATA_DIR"`
}

// RunConfig drives the headless runner.
type RunConfig struct {
	Battles  int           `toml:"battles" env:"HEARTHWARD_BATTLES"` // battles to play before exiting
	TickRate time.Duration `toml:"tick_rate"`                        // 0 ticks as fast as possible
	MaxTicks int           `toml:"max_ticks"`                        // per battle, guards against stalls
}

type LoggingConfig struct {
	Level  string `toml:"level" env:"HEARTHWARD_LOG_LEVEL"`
	Format string `toml:"format" env:"HEARTHWARD_LOG_FORMAT"` // "json" or "console"
}

// Load reads a TOML file over the defaults and then applies HEARTHWARD_*
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects board shapes the battle cannot run on.
func (c *Config) Validate() error {
	b := c.Battle
	if b.BoardWidth <= 0 || b.BoardHeight <= 0 {
		return fmt.Errorf("board must be at least 1x1, got %dx%d", b.BoardWidth, b.BoardHeight)
	}
	if b.MaxWaveHeight <= 0 {
		return fmt.Errorf("max_wave_height must be positive, got %d", b.MaxWaveHeight)
	}
	if b.WaveCount == 0 {
		return fmt.Errorf("wave_count must be positive")
	}
	if b.HandSize < 0 || b.MaxDeckSize < 0 || c.Shop.Size < 0 {
		return fmt.Errorf("hand, deck and shop sizes must not be negative")
	}
	if c.Run.MaxTicks <= 0 {
		return fmt.Errorf("run.max_ticks must be positive, got %d", c.Run.MaxTicks)
	}
	return nil
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Battle: BattleConfig{
			BoardWidth:          4,
			BoardHeight:         4,
			MaxWaveHeight:       3,
			WaveCount:           3,
			HandSize:            6,
			MaxDeckSize:         12,
			FoodGain:            3,
			StartingFood:        3,
			PlayerHealth:        5,
			DefaultTriggerLimit: 1,
			RedrawCost:          1,
			StartingDeck:        []string{"Scarecrow", "Villager"},
			StartingExtras:      []string{"Peasant", "Sheep", "Wanderer"},
		},
		Scripting: ScriptingConfig{
			Timeout:    50 * time.Millisecond,
			APIVersion: 1,
		},
		Shop: ShopConfig{
			Size: 5,
		},
		Data: DataConfig{
			Dir: "data/yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Run: RunConfig{
			Battles:  3,
			MaxTicks: 2000,
		},
	}
}
