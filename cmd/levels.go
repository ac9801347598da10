package cmd

import (
	"fmt"

	"rulewarden/reconcile"
	"rulewarden/report"

	"github.com/spf13/cobra"
)

// newLevelsCmd creates the 'levels' subcommand.
func newLevelsCmd() *cobra.Command {
	var oldMax, newMax int

	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Show the level compression table",
		Long: `Print the mapping that --map-levels would apply to rules without a
policy entry, one line per input level. Useful for reviewing a compression
before running 'apply'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, cleanup, err := initRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			if oldMax == 0 {
				oldMax = cfg.LevelMap.OldMax
			}
			if newMax == 0 {
				newMax = cfg.LevelMap.NewMax
			}
			if newMax > oldMax || oldMax < 2 || newMax < 2 {
				return fmt.Errorf("invalid mapping bounds: old-max=%d new-max=%d", oldMax, newMax)
			}

			lm := reconcile.LevelMap{OldMax: oldMax, NewMax: newMax}

			if outputJSON {
				mapping := make(map[int]int, oldMax+1)
				for level := 0; level <= oldMax; level++ {
					mapping[level] = lm.Map(level)
				}
				return outputAsJSON(mapping)
			}

			fmt.Print(report.RenderLevelMap(oldMax, newMax, lm.Map))
			return nil
		},
	}

	cmd.Flags().IntVar(&oldMax, "old-max", 0, "Top of the input level scale (default from config)")
	cmd.Flags().IntVar(&newMax, "new-max", 0, "Top of the output level scale (default from config)")
	return cmd
}
