// Package bootstrap wires up the logger and configuration for the CLI.
package bootstrap

import (
	"fmt"
	"os"

	"rulewarden/config"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes the zap logger with colored console output. When
// quiet is set only warnings and errors are emitted.
func InitLogger(quiet bool) (*zap.Logger, *zap.SugaredLogger, error) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder // Colored levels
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder        // Readable timestamps
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder      // Short file paths

	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)

	level := zapcore.InfoLevel
	if quiet {
		level = zapcore.WarnLevel
	}

	// Diagnostics go to stderr so report output on stdout stays pipeable.
	core := zapcore.NewCore(
		consoleEncoder,
		zapcore.AddSync(os.Stderr),
		level,
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar(), nil
}

// InitConfig loads the application configuration. file may be empty to use
// the default search paths.
func InitConfig(sugar *zap.SugaredLogger, file string) (*config.Config, error) {
	cfg, err := config.LoadConfig(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load config: %v\n", err)
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if viper.ConfigFileUsed() == "" {
		sugar.Debug("No config file found, using defaults and env vars")
	} else {
		sugar.Debugw("Config loaded", "file", viper.ConfigFileUsed())
	}

	return cfg, nil
}
