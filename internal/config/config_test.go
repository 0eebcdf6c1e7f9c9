package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "game.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := writeFile(t, `
[battle]
wave_count = 5
seed = 42

[scripting]
timeout = "10ms"

[logging]
level = "debug"
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, uint32(5), cfg.Battle.WaveCount)
	require.Equal(t, int64(42), cfg.Battle.Seed)
	require.Equal(t, 10*time.Millisecond, cfg.Scripting.Timeout)
	require.Equal(t, "debug", cfg.Logging.Level)
	// untouched keys keep defaults
	require.Equal(t, 4, cfg.Battle.BoardWidth)
	require.Equal(t, 5, cfg.Shop.Size)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HEARTHWARD_SEED", "7")
	t.Setenv("HEARTHWARD_LOG_FORMAT", "json")
	t.Setenv("HEARTHWARD_BATTLES", "1")
	cfg, err := Load(writeFile(t, "[battle]\nseed = 1\n"))
	require.NoError(t, err)
	require.Equal(t, int64(7), cfg.Battle.Seed)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, 1, cfg.Run.Battles)
	require.Equal(t, []string{"Scarecrow", "Villager"}, cfg.Battle.StartingDeck)
}

func TestLoadRejectsBadBoard(t *testing.T) {
	_, err := Load(writeFile(t, "[battle]\nboard_width = 0\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "[run]\nmax_ticks = 0\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "[battle\n"))
	require.Error(t, err)
}
