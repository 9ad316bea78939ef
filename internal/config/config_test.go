package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vincent99/chessboard/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaultsWhenNoOverride(t *testing.T) {
	dir := t.TempDir()
	defaultsPath := writeFile(t, dir, "defaults.ini", "[boardd]\nsound = on\n")

	cfg, err := config.Load(defaultsPath, "")
	require.NoError(t, err)
	require.Equal(t, config.SoundOn, cfg.Sound)
	require.Equal(t, 900, cfg.InactivityTimeoutS)
}

func TestLoadOverridesRecognizedKeysOnly(t *testing.T) {
	dir := t.TempDir()
	defaultsPath := writeFile(t, dir, "defaults.ini", "[boardd]\nsound = on\ninactivity_timeout_s = 900\n")
	userPath := writeFile(t, dir, "user.ini", "[boardd]\nsound = off\nunknown_future_key = keep-me\n")

	cfg, err := config.Load(defaultsPath, userPath)
	require.NoError(t, err)
	require.Equal(t, config.SoundOff, cfg.Sound)
	require.Equal(t, 900, cfg.InactivityTimeoutS, "unspecified override key keeps the default")
}

func TestSavePreservesUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	defaultsPath := writeFile(t, dir, "defaults.ini", "[boardd]\nsound = on\n")
	userPath := writeFile(t, dir, "user.ini", "[boardd]\nsound = off\nunknown_future_key = keep-me\n")

	cfg, err := config.Load(defaultsPath, userPath)
	require.NoError(t, err)
	cfg.Sound = config.SoundMovesOnly
	require.NoError(t, cfg.Save())

	raw, err := os.ReadFile(userPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), "unknown_future_key")
	require.Contains(t, string(raw), "keep-me")
}

func TestLichessEloRangeParsing(t *testing.T) {
	dir := t.TempDir()
	defaultsPath := writeFile(t, dir, "defaults.ini", "[boardd]\nlichess_elo_range = 1200-1800\n")

	cfg, err := config.Load(defaultsPath, "")
	require.NoError(t, err)
	require.Equal(t, 1200, cfg.LichessEloMin)
	require.Equal(t, 1800, cfg.LichessEloMax)
}
