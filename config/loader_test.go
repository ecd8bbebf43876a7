package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToBareDefaultsWhenNoFilesExist(t *testing.T) {
	cfg, err := Load(LoaderOptions{ConfigDir: filepath.Join(t.TempDir(), "does-not-exist")})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.Environment)
}

func TestLoadPrefersEnvironmentSpecificFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "production.yaml"), []byte("environment: production\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), []byte("environment: default\n"), 0o644))

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "production"})
	require.NoError(t, err)
	require.Equal(t, "production", cfg.Environment)
}

func TestLoadAppliesEnvVarOverride(t *testing.T) {
	t.Setenv("NAIA_LOG_LEVEL", "debug")
	cfg, err := Load(LoaderOptions{ConfigDir: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalidSmoothingFactor(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), []byte("tick:\n  rtt_smoothing_factor: 2.0\n"), 0o644))

	_, err := Load(LoaderOptions{ConfigDir: dir, Environment: "nope"})
	require.Error(t, err)
}

func TestMustLoadPanicsOnInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), []byte("tick:\n  rtt_smoothing_factor: -1\n"), 0o644))

	require.Panics(t, func() {
		MustLoad(LoaderOptions{ConfigDir: dir, Environment: "nope"})
	})
}
