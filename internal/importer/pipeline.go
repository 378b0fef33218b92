package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// Options scope one import call.
type Options struct {
	CompanyID  int64 `validate:"required,gt=0"`
	FiscalYear int   `validate:"omitempty,gt=1900,lt=10000"`
	DryRun     bool
}

// Metrics counts import activity.
type Metrics interface {
	ObserveImportRow(kind, outcome string)
	ObserveImportRun(kind, mode string)
}

// CompanyChecker rejects imports for unknown or inactive companies.
type CompanyChecker interface {
	EnsureActive(ctx context.Context, companyID int64) error
}

type noopMetrics struct{}

func (noopMetrics) ObserveImportRow(string, string) {}
func (noopMetrics) ObserveImportRun(string, string) {}

// Deps are the collaborators shared by every importer.
type Deps struct {
	Companies CompanyChecker
	Metrics   Metrics
	Logger    *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Metrics == nil {
		d.Metrics = noopMetrics{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// plan describes how one record kind moves through PARSE, RESOLVE, VALIDATE and
// PREVIEW or PERSIST.
type plan[T any] struct {
	kind     string
	widths   []int
	parse    func(fields []string, width int) (T, error)
	resolve  func(ctx context.Context, row T) (T, error)
	key      func(row T) string
	check    func(ctx context.Context, row T) error
	preview  func(row T) any
	persist  func(ctx context.Context, row T) error
	needYear bool
}

// run drives src through p strictly in input order. A failing row is reported
// and skipped; the batch continues. Internal errors and cancellation stop the run
// and return the partial report together with the error.
func run[T any](ctx context.Context, deps Deps, p plan[T], r io.Reader, opts Options) (Report, error) {
	report := Report{RunID: uuid.NewString(), Kind: p.kind, DryRun: opts.DryRun}
	if opts.DryRun {
		report.Preview = []any{}
	}
	logger := deps.Logger.With(slog.String("run_id", report.RunID), slog.String("kind", p.kind), slog.Int64("company_id", opts.CompanyID))

	if opts.CompanyID <= 0 {
		return report, shared.NewFieldError(shared.ErrMissingParameter, "companyId", "company is required")
	}
	if p.needYear && opts.FiscalYear <= 0 {
		return report, shared.NewFieldError(shared.ErrMissingParameter, "fiscalYear", "fiscal year is required")
	}
	if deps.Companies != nil {
		if err := deps.Companies.EnsureActive(ctx, opts.CompanyID); err != nil {
			return report, err
		}
	}
	src, err := ReadLines(r)
	if err != nil {
		return report, err
	}
	width := len(src.Header)
	if !slices.Contains(p.widths, width) {
		return report, shared.NewFieldError(shared.ErrMalformedRow, "header",
			"header has %d columns, expected one of %v", width, p.widths)
	}
	mode := "apply"
	if opts.DryRun {
		mode = "dry_run"
	}
	deps.Metrics.ObserveImportRun(p.kind, mode)

	seen := map[string]int{}
	for _, line := range src.Lines {
		if err := ctx.Err(); err != nil {
			report.finish()
			logger.Warn("import interrupted", slog.Int("line", line.Number), slog.Any("error", err))
			return report, err
		}
		report.TotalLines++
		row, err := p.stage(ctx, line, width, seen, opts)
		if err == nil {
			if opts.DryRun {
				report.Preview = append(report.Preview, p.preview(row))
			} else {
				err = p.persist(ctx, row)
			}
		}
		if err != nil {
			if shared.KindOf(err) == shared.KindInternal {
				report.finish()
				logger.Error("import aborted", slog.Int("line", line.Number), slog.Any("error", err))
				return report, fmt.Errorf("importer: line %d: %w", line.Number, err)
			}
			report.skip(line.Number, err)
			deps.Metrics.ObserveImportRow(p.kind, "skipped")
			logger.Debug("import row skipped", slog.Int("line", line.Number), slog.String("error", err.Error()))
			continue
		}
		report.ProcessedLines++
		deps.Metrics.ObserveImportRow(p.kind, "processed")
	}
	report.finish()
	logger.Info("import finished",
		slog.Bool("dry_run", opts.DryRun),
		slog.Int("total", report.TotalLines),
		slog.Int("processed", report.ProcessedLines),
		slog.Int("skipped", report.SkippedLines))
	return report, nil
}

func (p plan[T]) stage(ctx context.Context, line Line, width int, seen map[string]int, opts Options) (T, error) {
	var zero T
	if line.Err != nil {
		return zero, line.Err
	}
	if len(line.Fields) != width {
		return zero, shared.NewFieldError(shared.ErrMalformedRow, "", "expected %d fields, found %d", width, len(line.Fields))
	}
	row, err := p.parse(line.Fields, width)
	if err != nil {
		return zero, err
	}
	if p.resolve != nil {
		if row, err = p.resolve(ctx, row); err != nil {
			return zero, err
		}
	}
	if p.key != nil {
		k := p.key(row)
		if first, ok := seen[k]; ok {
			return zero, shared.NewFieldError(shared.ErrDuplicate, "code", "duplicate of line %d", first)
		}
		seen[k] = line.Number
	}
	if opts.DryRun {
		if err := p.check(ctx, row); err != nil {
			return zero, err
		}
	}
	return row, nil
}
