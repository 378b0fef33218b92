// Package exporter renders ledger entries, fiscal adjustments and the chart of
// accounts in the layouts the importer reads back.
package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/Sconzo/lalur-sub001/internal/accounts"
	"github.com/Sconzo/lalur-sub001/internal/adjustments"
	"github.com/Sconzo/lalur-sub001/internal/importer"
	"github.com/Sconzo/lalur-sub001/internal/ledger"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// Encoding names accepted by New.
const (
	EncodingUTF8   = "UTF-8"
	EncodingLatin1 = "ISO-8859-1"
)

// LedgerSource lists ledger entries for export.
type LedgerSource interface {
	ListForExport(ctx context.Context, f ledger.Filter) ([]ledger.ExportRow, error)
}

// AdjustmentSource lists fiscal adjustments for export.
type AdjustmentSource interface {
	ListForExport(ctx context.Context, f adjustments.Filter) ([]adjustments.ExportRow, error)
}

// AccountSource lists the chart of accounts for export.
type AccountSource interface {
	ListForExport(ctx context.Context, companyID int64, fiscalYear int) ([]accounts.ExportRow, error)
}

// CompanyChecker rejects exports for unknown or inactive companies.
type CompanyChecker interface {
	EnsureActive(ctx context.Context, companyID int64) error
}

// Sources are the record stores an Exporter reads from.
type Sources struct {
	Ledger      LedgerSource
	Adjustments AdjustmentSource
	Accounts    AccountSource
}

// Exporter writes deterministic CSV files.
type Exporter struct {
	src       Sources
	companies CompanyChecker
	encoder   func() *encoding.Encoder
	logger    *slog.Logger
}

// New constructs an Exporter. An empty encoding means UTF-8.
func New(src Sources, companies CompanyChecker, enc string, logger *slog.Logger) (*Exporter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name, err := ParseEncoding(enc)
	if err != nil {
		return nil, err
	}
	e := &Exporter{src: src, companies: companies, logger: logger}
	if name == EncodingLatin1 {
		e.encoder = func() *encoding.Encoder {
			return encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
		}
	}
	return e, nil
}

// ParseEncoding returns the canonical name of a supported export encoding.
func ParseEncoding(enc string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(enc)) {
	case "", EncodingUTF8, "UTF8":
		return EncodingUTF8, nil
	case EncodingLatin1, "LATIN1", "LATIN-1":
		return EncodingLatin1, nil
	}
	return "", fmt.Errorf("exporter: unsupported encoding %q", enc)
}

// Result describes a finished export.
type Result struct {
	Kind string
	Rows int
}

// ExportLedger writes active entries of a fiscal year, optionally within a date
// range, ordered by reference date then id.
func (e *Exporter) ExportLedger(ctx context.Context, w io.Writer, f ledger.Filter) (Result, error) {
	if err := e.precheck(ctx, f.CompanyID, f.FiscalYear); err != nil {
		return Result{}, err
	}
	rows, err := e.src.Ledger.ListForExport(ctx, f)
	if err != nil {
		return Result{}, err
	}
	slices.SortStableFunc(rows, func(a, b ledger.ExportRow) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return compareID(a.ID, b.ID)
	})
	return e.write(w, importer.KindLedger, importer.LedgerExportHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.Debit.Code,
			r.Debit.Name,
			r.Credit.Code,
			r.Credit.Name,
			r.Date.Format(time.DateOnly),
			r.Amount.StringFixed(2),
			r.Memo,
			deref(r.DocumentNumber),
		}
	}, f.CompanyID)
}

// ExportAdjustments writes active adjustments of a fiscal year ordered by month then id.
func (e *Exporter) ExportAdjustments(ctx context.Context, w io.Writer, f adjustments.Filter) (Result, error) {
	if err := e.precheck(ctx, f.CompanyID, f.FiscalYear); err != nil {
		return Result{}, err
	}
	rows, err := e.src.Adjustments.ListForExport(ctx, f)
	if err != nil {
		return Result{}, err
	}
	slices.SortStableFunc(rows, func(a, b adjustments.ExportRow) int {
		if c := a.ReferenceDate().Compare(b.ReferenceDate()); c != 0 {
			return c
		}
		return compareID(a.ID, b.ID)
	})
	return e.write(w, importer.KindAdjustments, importer.AdjustmentHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			strconv.Itoa(r.Month),
			strconv.Itoa(r.Year),
			string(r.Apportionment),
			string(r.Relationship),
			r.LedgerAccountCode,
			r.AdjustmentAccountCode,
			r.TaxParameterCode,
			string(r.Direction),
			r.Description,
			r.Amount.StringFixed(2),
		}
	}, f.CompanyID)
}

// ExportAccounts writes the chart of accounts of a fiscal year ordered by code.
func (e *Exporter) ExportAccounts(ctx context.Context, w io.Writer, companyID int64, fiscalYear int) (Result, error) {
	if err := e.precheck(ctx, companyID, fiscalYear); err != nil {
		return Result{}, err
	}
	rows, err := e.src.Accounts.ListForExport(ctx, companyID, fiscalYear)
	if err != nil {
		return Result{}, err
	}
	slices.SortStableFunc(rows, func(a, b accounts.ExportRow) int {
		return strings.Compare(a.Code, b.Code)
	})
	return e.write(w, importer.KindAccounts, importer.AccountHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.Code,
			r.Name,
			string(r.Type),
			r.ReferenceCode,
			string(r.Class),
			strconv.Itoa(r.Level),
			string(r.Nature),
			accounts.FormatFlag(r.AffectsResult),
			accounts.FormatFlag(r.Deductible),
		}
	}, companyID)
}

func (e *Exporter) precheck(ctx context.Context, companyID int64, fiscalYear int) error {
	if companyID <= 0 {
		return shared.NewFieldError(shared.ErrMissingParameter, "companyId", "company is required")
	}
	if fiscalYear <= 0 {
		return shared.NewFieldError(shared.ErrMissingParameter, "fiscalYear", "fiscal year is required")
	}
	if e.companies != nil {
		return e.companies.EnsureActive(ctx, companyID)
	}
	return nil
}

func (e *Exporter) write(w io.Writer, kind string, header []string, n int, row func(int) []string, companyID int64) (Result, error) {
	var closer io.Closer
	if e.encoder != nil {
		encoded := e.encoder().Writer(w)
		closer, _ = encoded.(io.Closer)
		w = encoded
	}
	streamer := newCSVStreamer(w)
	if err := streamer.writeRow(slices.Clone(header)); err != nil {
		return Result{}, err
	}
	for i := 0; i < n; i++ {
		if err := streamer.writeRow(row(i)); err != nil {
			return Result{}, err
		}
	}
	if err := streamer.Close(); err != nil {
		return Result{}, err
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			return Result{}, err
		}
	}
	e.logger.Info("export finished", slog.String("kind", kind), slog.Int64("company_id", companyID), slog.Int("rows", n))
	return Result{Kind: kind, Rows: n}, nil
}

func compareID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Query scopes an export by kind.
type Query struct {
	CompanyID  int64
	FiscalYear int
	From       time.Time
	To         time.Time
}

// Kinds lists the exportable record kinds.
func Kinds() []string {
	return []string{importer.KindAccounts, importer.KindAdjustments, importer.KindLedger}
}

// Export dispatches to the export of kind.
func (e *Exporter) Export(ctx context.Context, w io.Writer, kind string, q Query) (Result, error) {
	switch kind {
	case importer.KindLedger:
		return e.ExportLedger(ctx, w, ledger.Filter{CompanyID: q.CompanyID, FiscalYear: q.FiscalYear, From: q.From, To: q.To})
	case importer.KindAdjustments:
		return e.ExportAdjustments(ctx, w, adjustments.Filter{CompanyID: q.CompanyID, FiscalYear: q.FiscalYear})
	case importer.KindAccounts:
		return e.ExportAccounts(ctx, w, q.CompanyID, q.FiscalYear)
	}
	return Result{}, shared.NewFieldError(shared.ErrValidation, "kind", "unknown export kind %q, expected one of %v", kind, Kinds())
}
