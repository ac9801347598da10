// Package cmd provides the rulewarden command-line interface.
package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"rulewarden/bootstrap"
	"rulewarden/config"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	outputJSON bool
	configFile string
	noColor    bool
	quiet      bool
)

// defaultTimeout bounds any single CLI operation.
const defaultTimeout = 5 * time.Minute

// validateFilePath rejects path traversal sequences, including URL-encoded
// ones, before a user-supplied path reaches the filesystem.
func validateFilePath(filename string) error {
	decoded, err := url.QueryUnescape(filename)
	if err != nil {
		decoded = filename
	}

	if strings.Contains(decoded, "..") || strings.Contains(filename, "..") {
		return fmt.Errorf("path traversal detected: '..' not allowed in file path")
	}

	if !filepath.IsAbs(filepath.Clean(decoded)) && strings.HasPrefix(decoded, "~") {
		return fmt.Errorf("home-relative paths are not expanded: %s", filename)
	}

	return nil
}

// NewRootCmd creates the rulewarden root command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rulewarden",
		Short: "Reconcile Wazuh rule files against a severity policy",
		Long: `Rulewarden loads a directory of Wazuh XML rule files, checks them for
structural inconsistencies, and reconciles their alert levels against a
policy workbook. Rule files are rewritten only when asked; every change is
reported as a reviewable diff first.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: rulewarden.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	rootCmd.AddCommand(newGenPolicyCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newLevelsCmd())

	return rootCmd
}

// initRuntime builds the logger and configuration shared by every
// subcommand. The returned cleanup flushes the logger.
func initRuntime() (*config.Config, *zap.SugaredLogger, func(), error) {
	logger, sugar, err := bootstrap.InitLogger(quiet || outputJSON)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	cleanup := func() { _ = logger.Sync() }

	cfg, err := bootstrap.InitConfig(sugar, configFile)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return cfg, sugar, cleanup, nil
}

// newSpinner starts a progress spinner unless output must stay clean.
func newSpinner(message string) *spinner.Spinner {
	if quiet || outputJSON || noColor {
		return nil
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Start()
	return s
}

func stopSpinner(s *spinner.Spinner) {
	if s != nil {
		s.Stop()
	}
}

// outputAsJSON marshals v to indented JSON on stdout.
func outputAsJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
