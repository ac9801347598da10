package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Levels.Min)
	assert.Equal(t, 16, cfg.Levels.Max)
	assert.True(t, cfg.Fix.Clamp)
	assert.Equal(t, 3, cfg.Fix.DefaultLevel)
	assert.Equal(t, "Rule", cfg.Fix.DescriptionPrefix)
	assert.Equal(t, 15, cfg.LevelMap.OldMax)
	assert.Equal(t, 10, cfg.LevelMap.NewMax)
	assert.False(t, cfg.History.Enabled)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("RULEWARDEN_LEVELS_MAX", "15")
	t.Setenv("RULEWARDEN_FIX_DEFAULT_LEVEL", "5")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Levels.Max)
	assert.Equal(t, 5, cfg.Fix.DefaultLevel)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "rulewarden.yaml")
	require.NoError(t, os.WriteFile(path, []byte("levels:\n  max: 15\nhistory:\n  enabled: true\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Levels.Max)
	assert.True(t, cfg.History.Enabled)
}

func TestLoadConfig_ExplicitFileMissing(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Levels.Min = 0
		cfg.Levels.Max = 16
		cfg.Fix.DefaultLevel = 3
		cfg.LevelMap.OldMax = 15
		cfg.LevelMap.NewMax = 10
		return cfg
	}

	require.NoError(t, valid().Validate())

	inverted := valid()
	inverted.Levels.Max = 0
	assert.Error(t, inverted.Validate())

	outside := valid()
	outside.Fix.DefaultLevel = 99
	assert.Error(t, outside.Validate())

	expanding := valid()
	expanding.LevelMap.NewMax = 20
	assert.Error(t, expanding.Validate())
}
