// Package cmd holds the lalur command line: the HTTP server plus operator
// commands for bulk import, export and cutoff moves.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sconzo/lalur-sub001/internal/app"
	"github.com/Sconzo/lalur-sub001/internal/exporter"
	"github.com/Sconzo/lalur-sub001/internal/importer"
	"github.com/Sconzo/lalur-sub001/internal/periodlock"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Importer runs a bulk import of one kind.
type Importer interface {
	Run(ctx context.Context, kind string, src io.Reader, opts importer.Options) (importer.Report, error)
}

// Exporter writes a bulk export of one kind.
type Exporter interface {
	Export(ctx context.Context, w io.Writer, kind string, q exporter.Query) (exporter.Result, error)
}

// CutoffAdvancer moves a company cutoff forward.
type CutoffAdvancer interface {
	AdvanceCutoff(ctx context.Context, in periodlock.AdvanceInput) (periodlock.Change, error)
}

// Runtime is what the operator commands need from the wired application.
type Runtime struct {
	Imports Importer
	Exports Exporter
	Cutoffs CutoffAdvancer
	Close   func()
}

// Opener builds a Runtime for one command invocation.
type Opener func(ctx context.Context) (*Runtime, error)

// SetVersionInfo sets the version reported by --version.
func SetVersionInfo(v, c string) {
	version = v
	commit = c
}

// Execute runs the root command against the configured database.
func Execute() error {
	return NewRootCmd(openContainer).Execute()
}

// NewRootCmd assembles the command tree. open is called lazily by the
// commands that touch storage.
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "lalur",
		Short: "LALUR bookkeeping integrity service",
		Long: `lalur serves the LALUR HTTP API and runs operator tasks against the same
database: bulk CSV imports and exports and accounting cutoff moves.

Configuration comes from the environment (PG_DSN, REDIS_ADDR, LOG_LEVEL, ...).

Examples:
  lalur serve
  lalur import ledger lancamentos.csv --company 7 --fiscal-year 2024
  lalur import ledger lancamentos.csv --company 7 --fiscal-year 2024 --apply
  lalur export adjustments --company 7 --fiscal-year 2024 -o ajustes.csv
  lalur cutoff advance --company 7 --date 2024-03-31 --actor 12`,
		Version:       fmt.Sprintf("%s (commit %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newImportCmd(open))
	root.AddCommand(newExportCmd(open))
	root.AddCommand(newCutoffCmd(open))
	return root
}

func openContainer(ctx context.Context) (*Runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		Imports: container.Imports,
		Exports: container.Exporter,
		Cutoffs: container.Cutoffs,
		Close:   container.Close,
	}, nil
}

func withRuntime(cmd *cobra.Command, open Opener, fn func(rt *Runtime) error) error {
	rt, err := open(cmd.Context())
	if err != nil {
		return err
	}
	if rt.Close != nil {
		defer rt.Close()
	}
	return fn(rt)
}
