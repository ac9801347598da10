package cmd

import (
	"context"
	"fmt"
	"strings"

	"rulewarden/storage"

	"github.com/spf13/cobra"
)

// newHistoryCmd creates the 'history' subcommand.
func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past reconciliation runs",
		Long: `List the most recent runs from the audit log, or show a single run by
id. Requires history to be enabled in the configuration.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			cfg, log, cleanup, err := initRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled; enable it in rulewarden.yaml (history.enabled)")
			}

			h, err := storage.OpenHistory(cfg.History.Path, log)
			if err != nil {
				return err
			}
			defer func() { _ = h.Close() }()

			if len(args) == 1 {
				run, err := h.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				if outputJSON {
					return outputAsJSON(run)
				}
				renderRunDetails(run)
				return nil
			}

			runs, err := h.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if outputJSON {
				return outputAsJSON(runs)
			}
			renderRunsTable(runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

// renderRunsTable displays runs in a formatted table, newest first.
func renderRunsTable(runs []storage.RunRecord) {
	if len(runs) == 0 {
		warningColor.Println("No runs recorded")
		return
	}

	headerColor.Println("RUNS")
	headerColor.Println(strings.Repeat("=", 90))
	fmt.Printf("%-10s %-12s %-20s %-8s %-8s %-10s %-6s\n",
		"ID", "Command", "Started", "Rules", "Changes", "Findings", "Fixed")
	fmt.Println(strings.Repeat("-", 90))

	for _, run := range runs {
		shortID := run.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		fixed := "No"
		if run.Fixed {
			fixed = "Yes"
		}
		fmt.Printf("%-10s %-12s %-20s %-8d %-8d %-10d %-6s\n",
			shortID, run.Command, run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Rules, run.Changes, run.Findings, fixed)
	}

	fmt.Println(strings.Repeat("=", 90))
}

// renderRunDetails displays one run.
func renderRunDetails(run storage.RunRecord) {
	headerColor.Printf("Run %s\n", run.ID)
	fmt.Printf("  %-12s %s\n", "Command:", run.Command)
	fmt.Printf("  %-12s %s\n", "Started:", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  %-12s %d\n", "Rules:", run.Rules)
	fmt.Printf("  %-12s %d\n", "Collections:", run.Collections)
	fmt.Printf("  %-12s %d\n", "Changes:", run.Changes)
	fmt.Printf("  %-12s %d\n", "Findings:", run.Findings)
	fmt.Printf("  %-12s %v\n", "Fixed:", run.Fixed)
}
