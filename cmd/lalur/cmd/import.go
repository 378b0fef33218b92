package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sconzo/lalur-sub001/internal/importer"
)

type importFlags struct {
	company    int64
	fiscalYear int
	apply      bool
}

func newImportCmd(open Opener) *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "import <kind> <file>",
		Short: "Validate or load a CSV file",
		Long: `import reads a CSV file of ledger entries, fiscal adjustments, accounts or
reference accounts and prints the JSON report.

Without --apply the file is only validated (dry run) and nothing is written.
Use - as file to read standard input. The command fails when any line was skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, open, func(rt *Runtime) error {
				return runImport(cmd, rt.Imports, args[0], args[1], flags)
			})
		},
	}
	cmd.Flags().Int64Var(&flags.company, "company", 0, "company id (required)")
	cmd.Flags().IntVar(&flags.fiscalYear, "fiscal-year", 0, "fiscal year of the file")
	cmd.Flags().BoolVar(&flags.apply, "apply", false, "persist valid rows instead of a dry run")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func runImport(cmd *cobra.Command, imports Importer, kind, path string, flags importFlags) error {
	var src io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		src = f
	}

	report, err := imports.Run(cmd.Context(), kind, src, importer.Options{
		CompanyID:  flags.company,
		FiscalYear: flags.fiscalYear,
		DryRun:     !flags.apply,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if !report.Success {
		return fmt.Errorf("import %s: %d of %d lines skipped", kind, report.SkippedLines, report.TotalLines)
	}
	return nil
}
