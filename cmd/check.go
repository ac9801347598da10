package cmd

import (
	"context"
	"fmt"

	"rulewarden/core"
	"rulewarden/detect"
	"rulewarden/report"

	"github.com/spf13/cobra"
)

// newCheckCmd creates the 'check' subcommand.
func newCheckCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check <rules-dir>",
		Short: "Scan rule files for inconsistencies without changing them",
		Long: `Load the rule files and report duplicate ids, out-of-range levels,
missing descriptions, dangling if_sid references and unsafe match patterns.
Nothing is written. The exit code is zero even when findings exist, unless
--strict is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			cfg, log, cleanup, err := initRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			_, model, err := loadModel(args[0], log)
			if err != nil {
				return err
			}

			detector := detect.New(detect.Config{
				LevelMin:          cfg.Levels.Min,
				LevelMax:          cfg.Levels.Max,
				ClampLevels:       cfg.Fix.Clamp,
				DefaultLevel:      cfg.Fix.DefaultLevel,
				DescriptionPrefix: cfg.Fix.DescriptionPrefix,
			}, log)

			findings, _, _, err := detector.Scan(model)
			if err != nil {
				return err
			}

			recordRun(ctx, cfg, log, newRunRecord("check", model, 0, len(findings), false))

			if outputJSON {
				return outputAsJSON(struct {
					Rules    int            `json:"rules"`
					Findings []core.Finding `json:"findings"`
				}{Rules: model.Len(), Findings: findings})
			}

			fmt.Print(report.RenderFindings(findings))
			if len(findings) == 0 {
				successColor.Printf("%d rules checked, all consistent\n", model.Len())
			} else {
				warningColor.Printf("%d rules checked, %d findings\n", model.Len(), len(findings))
			}

			if strict && len(findings) > 0 {
				return fmt.Errorf("%d findings in strict mode", len(findings))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when findings exist")
	return cmd
}
