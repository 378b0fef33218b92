package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sconzo/lalur-sub001/internal/exporter"
)

type exportFlags struct {
	company    int64
	fiscalYear int
	from       string
	to         string
	output     string
}

func newExportCmd(open Opener) *cobra.Command {
	var flags exportFlags
	cmd := &cobra.Command{
		Use:   "export <kind>",
		Short: "Write active records as CSV",
		Long: `export writes the active records of a company and fiscal year in the same
layout the import command reads. --from and --to narrow ledger exports by entry date.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}
			return withRuntime(cmd, open, func(rt *Runtime) error {
				return runExport(cmd, rt.Exports, args[0], q, flags.output)
			})
		},
	}
	cmd.Flags().Int64Var(&flags.company, "company", 0, "company id (required)")
	cmd.Flags().IntVar(&flags.fiscalYear, "fiscal-year", 0, "fiscal year (required)")
	cmd.Flags().StringVar(&flags.from, "from", "", "first entry date, YYYY-MM-DD")
	cmd.Flags().StringVar(&flags.to, "to", "", "last entry date, YYYY-MM-DD")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (default: stdout)")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("fiscal-year")
	return cmd
}

func (f exportFlags) query() (exporter.Query, error) {
	q := exporter.Query{CompanyID: f.company, FiscalYear: f.fiscalYear}
	var err error
	if q.From, err = parseFlagDate("from", f.from); err != nil {
		return q, err
	}
	if q.To, err = parseFlagDate("to", f.to); err != nil {
		return q, err
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return q, fmt.Errorf("--to %s is before --from %s", f.to, f.from)
	}
	return q, nil
}

func runExport(cmd *cobra.Command, exports Exporter, kind string, q exporter.Query, output string) error {
	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		w = f
		res, err := exports.Export(cmd.Context(), w, kind, q)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(output)
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d %s rows to %s\n", res.Rows, res.Kind, output)
		return nil
	}
	_, err := exports.Export(cmd.Context(), w, kind, q)
	return err
}

func parseFlagDate(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD: %w", name, err)
	}
	return t, nil
}
