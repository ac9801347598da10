package cmd

import (
	"context"
	"fmt"

	"rulewarden/core"
	"rulewarden/detect"
	"rulewarden/reconcile"
	"rulewarden/report"

	"github.com/spf13/cobra"
)

// newApplyCmd creates the 'apply' subcommand.
func newApplyCmd() *cobra.Command {
	var (
		policyFile string
		fix        bool
		overwrite  bool
		mapLevels  bool
		outDir     string
		singleFile string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "apply <rules-dir>",
		Short: "Reconcile rule levels against a policy file",
		Long: `Load the rule files, run the inconsistency scan, then patch each rule's
alert level to the target recorded in the policy file. Rules without a
policy entry stay unchanged unless --map-levels compresses the scale.

The input directory is never modified. Patched rule files go to --out (a
directory mirroring the input layout) or --single (one merged file). With
neither flag, or with --dry-run, only the diff is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			cfg, log, cleanup, err := initRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			corpus, model, err := loadModel(args[0], log)
			if err != nil {
				return err
			}

			policy, policyFindings, err := loadPolicy(policyFile, log)
			if err != nil {
				return err
			}

			detector := detect.New(detect.Config{
				LevelMin:          cfg.Levels.Min,
				LevelMax:          cfg.Levels.Max,
				Fix:               fix,
				ClampLevels:       cfg.Fix.Clamp,
				DefaultLevel:      cfg.Fix.DefaultLevel,
				DescriptionPrefix: cfg.Fix.DescriptionPrefix,
			}, log)

			findings, model, fixDiff, err := detector.Scan(model)
			if err != nil {
				return err
			}
			findings = append(policyFindings, findings...)

			opts := reconcile.Options{Overwrite: overwrite}
			if mapLevels {
				opts.LevelMap = &reconcile.LevelMap{
					OldMax: cfg.LevelMap.OldMax,
					NewMax: cfg.LevelMap.NewMax,
				}
			}

			result, err := reconcile.Reconcile(model, policy, opts, log)
			if err != nil {
				return err
			}
			diff := append(fixDiff, result.Diff...)
			findings = append(findings, result.Findings...)

			recordRun(ctx, cfg, log,
				newRunRecord("apply", result.Model, len(diff), len(findings), fix))

			if outputJSON {
				if err := outputAsJSON(struct {
					Changes  core.Diff      `json:"changes"`
					Findings []core.Finding `json:"findings"`
				}{Changes: diff.Sorted(), Findings: findings}); err != nil {
					return err
				}
			} else {
				fmt.Print(report.RenderDiff(diff))
				fmt.Print(report.RenderFindings(findings))
				infoColor.Println(report.Summary(diff, findings))
			}

			if dryRun || (outDir == "" && singleFile == "") {
				return nil
			}

			if err := corpus.ApplyModel(result.Model); err != nil {
				return err
			}
			if outDir != "" {
				if err := validateFilePath(outDir); err != nil {
					return err
				}
				if err := corpus.WriteDirectory(outDir); err != nil {
					return err
				}
			}
			if singleFile != "" {
				if err := validateFilePath(singleFile); err != nil {
					return err
				}
				if err := corpus.WriteFile(singleFile); err != nil {
					return err
				}
			}

			if !quiet && !outputJSON {
				successColor.Println("Rule files written")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&policyFile, "policy", "p", "policy.xlsx", "Policy file (.xlsx or .json)")
	cmd.Flags().BoolVar(&fix, "fix", false, "Repair fixable findings while reconciling")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, `Stamp overwrite="yes" on patched rules`)
	cmd.Flags().BoolVar(&mapLevels, "map-levels", false, "Compress levels of uncovered rules per the configured mapping")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to write patched rule files into")
	cmd.Flags().StringVar(&singleFile, "single", "", "Write all patched rules into one file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the diff without writing anything")
	return cmd
}
