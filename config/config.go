// Package config loads rulewarden configuration from file, environment and
// defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for a rulewarden run.
type Config struct {
	Levels struct {
		// Min and Max bound the valid severity range.
		Min int `mapstructure:"min"`
		Max int `mapstructure:"max"`
	} `mapstructure:"levels"`

	Fix struct {
		// Clamp clamps out-of-range levels to the nearest bound; when
		// false DefaultLevel is applied instead.
		Clamp        bool `mapstructure:"clamp"`
		DefaultLevel int  `mapstructure:"default_level"`
		// DescriptionPrefix seeds synthesized descriptions, e.g. "Rule 1002".
		DescriptionPrefix string `mapstructure:"description_prefix"`
	} `mapstructure:"fix"`

	LevelMap struct {
		// OldMax and NewMax define the level compression applied to rules
		// with no policy entry when --map-levels is used.
		OldMax int `mapstructure:"old_max"`
		NewMax int `mapstructure:"new_max"`
	} `mapstructure:"level_map"`

	History struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"history"`
}

// setDefaults registers the default values for all settings.
func setDefaults() {
	viper.SetDefault("levels.min", 0)
	viper.SetDefault("levels.max", 16)

	viper.SetDefault("fix.clamp", true)
	viper.SetDefault("fix.default_level", 3)
	viper.SetDefault("fix.description_prefix", "Rule")

	viper.SetDefault("level_map.old_max", 15)
	viper.SetDefault("level_map.new_max", 10)

	viper.SetDefault("history.enabled", false)
	viper.SetDefault("history.path", "data/rulewarden.db")
}

// LoadConfig reads the given config file, or rulewarden.yaml from the
// current directory or $HOME/.rulewarden when file is empty, plus
// RULEWARDEN_* environment overrides. A missing config file is fine;
// defaults cover everything.
func LoadConfig(file string) (*Config, error) {
	if file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.SetConfigName("rulewarden")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.rulewarden")
	}

	viper.SetEnvPrefix("RULEWARDEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// An explicitly named file that is missing surfaces as a path error,
	// not ConfigFileNotFoundError, so it stays fatal.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot honor.
func (c *Config) Validate() error {
	if c.Levels.Min < 0 || c.Levels.Max <= c.Levels.Min {
		return fmt.Errorf("invalid level bounds: min=%d max=%d", c.Levels.Min, c.Levels.Max)
	}
	if c.Fix.DefaultLevel < c.Levels.Min || c.Fix.DefaultLevel > c.Levels.Max {
		return fmt.Errorf("fix default level %d outside bounds %d-%d",
			c.Fix.DefaultLevel, c.Levels.Min, c.Levels.Max)
	}
	if c.LevelMap.OldMax < 2 || c.LevelMap.NewMax < 2 {
		return fmt.Errorf("level map bounds must be at least 2: old_max=%d new_max=%d",
			c.LevelMap.OldMax, c.LevelMap.NewMax)
	}
	if c.LevelMap.NewMax > c.LevelMap.OldMax {
		return fmt.Errorf("level map cannot expand the range: old_max=%d new_max=%d",
			c.LevelMap.OldMax, c.LevelMap.NewMax)
	}
	return nil
}
