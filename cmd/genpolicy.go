package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rulewarden/core"
	"rulewarden/policyio"

	"github.com/spf13/cobra"
)

// newGenPolicyCmd creates the 'gen-policy' subcommand.
func newGenPolicyCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "gen-policy <rules-dir>",
		Short: "Generate a policy file from the current rule levels",
		Long: `Read every rule file in the directory and write a policy file seeded
with each rule's current effective level. The result is the starting point
for review: edit the levels, then feed the file back with 'apply'.

The output format follows the file extension: .xlsx writes a workbook with
one worksheet per rule file, .json a flat id-to-level map, .yaml a list of
entries.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, cleanup, err := initRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			_, model, err := loadModel(args[0], log)
			if err != nil {
				return err
			}

			table := core.GeneratePolicy(model)

			if err := validateFilePath(output); err != nil {
				return err
			}
			switch strings.ToLower(filepath.Ext(output)) {
			case ".xlsx":
				err = policyio.WriteWorkbook(output, table)
			case ".json":
				var data []byte
				if data, err = policyio.ExportJSON(table); err == nil {
					err = os.WriteFile(output, data, 0644)
				}
			case ".yaml", ".yml":
				var data []byte
				if data, err = policyio.ExportYAML(table); err == nil {
					err = os.WriteFile(output, data, 0644)
				}
			default:
				return fmt.Errorf("unsupported policy format %q (want .xlsx, .json or .yaml)", filepath.Ext(output))
			}
			if err != nil {
				return fmt.Errorf("write policy: %w", err)
			}

			if !quiet {
				successColor.Printf("Wrote policy for %d rules to %s\n", table.Len(), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "policy.xlsx", "Policy file to write")
	return cmd
}
