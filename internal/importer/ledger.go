package importer

import (
	"context"
	"io"
	"time"

	"github.com/Sconzo/lalur-sub001/internal/accounts"
	"github.com/Sconzo/lalur-sub001/internal/ledger"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// AccountResolver maps account codes to accounts of a company and fiscal year.
type AccountResolver interface {
	RefByCode(ctx context.Context, companyID int64, fiscalYear int, code string) (accounts.Ref, error)
}

// LedgerWriter is the ledger rulebook shared with single-record calls.
type LedgerWriter interface {
	Check(ctx context.Context, c ledger.Candidate) error
	CreateResolved(ctx context.Context, c ledger.Candidate) (ledger.Entry, error)
}

// LedgerPreview is a validated ledger row echoed back by a dry run.
type LedgerPreview struct {
	DebitAccountCode  string `json:"debitAccountCode"`
	DebitAccountName  string `json:"debitAccountName"`
	CreditAccountCode string `json:"creditAccountCode"`
	CreditAccountName string `json:"creditAccountName"`
	ReferenceDate     string `json:"referenceDate"`
	Amount            string `json:"amount"`
	Memo              string `json:"memo"`
	DocumentNumber    string `json:"documentNumber,omitempty"`
}

// LedgerImporter imports ledger entries in the canonical six column layout or the
// eight column layout produced by the exporter.
type LedgerImporter struct {
	accounts AccountResolver
	ledger   LedgerWriter
	deps     Deps
}

// NewLedgerImporter wires the importer.
func NewLedgerImporter(resolver AccountResolver, writer LedgerWriter, deps Deps) *LedgerImporter {
	return &LedgerImporter{accounts: resolver, ledger: writer, deps: deps.withDefaults()}
}

type ledgerRow struct {
	debitCode  string
	creditCode string
	candidate  ledger.Candidate
}

// Import reads r and validates or persists every row.
func (i *LedgerImporter) Import(ctx context.Context, r io.Reader, opts Options) (Report, error) {
	refs := newMemo(func(ctx context.Context, code string) (accounts.Ref, error) {
		return i.accounts.RefByCode(ctx, opts.CompanyID, opts.FiscalYear, code)
	})
	p := plan[ledgerRow]{
		kind:     KindLedger,
		widths:   []int{len(LedgerHeader), len(LedgerExportHeader)},
		needYear: true,
		parse: func(fields []string, width int) (ledgerRow, error) {
			return parseLedgerRow(fields, width, opts)
		},
		resolve: func(ctx context.Context, row ledgerRow) (ledgerRow, error) {
			debit, err := resolveAccount(ctx, refs, "debitAccountCode", row.debitCode, opts.FiscalYear)
			if err != nil {
				return row, err
			}
			credit, err := resolveAccount(ctx, refs, "creditAccountCode", row.creditCode, opts.FiscalYear)
			if err != nil {
				return row, err
			}
			row.candidate.Debit, row.candidate.Credit = &debit, &credit
			return row, nil
		},
		check: func(ctx context.Context, row ledgerRow) error {
			return i.ledger.Check(ctx, row.candidate)
		},
		preview: func(row ledgerRow) any {
			e := row.candidate.Entry
			return LedgerPreview{
				DebitAccountCode:  row.candidate.Debit.Code,
				DebitAccountName:  row.candidate.Debit.Name,
				CreditAccountCode: row.candidate.Credit.Code,
				CreditAccountName: row.candidate.Credit.Name,
				ReferenceDate:     e.Date.Format(time.DateOnly),
				Amount:            e.Amount.StringFixed(2),
				Memo:              e.Memo,
				DocumentNumber:    deref(e.DocumentNumber),
			}
		},
		persist: func(ctx context.Context, row ledgerRow) error {
			_, err := i.ledger.CreateResolved(ctx, row.candidate)
			return err
		},
	}
	return run(ctx, i.deps, p, r, opts)
}

func parseLedgerRow(fields []string, width int, opts Options) (ledgerRow, error) {
	debit, credit, rest := 0, 1, 2
	if width == len(LedgerExportHeader) {
		debit, credit, rest = 0, 2, 4
	}
	date, err := ParseDate("referenceDate", fields[rest])
	if err != nil {
		return ledgerRow{}, err
	}
	amount, err := ParseAmount("amount", fields[rest+1])
	if err != nil {
		return ledgerRow{}, err
	}
	return ledgerRow{
		debitCode:  fields[debit],
		creditCode: fields[credit],
		candidate: ledger.Candidate{Entry: ledger.Entry{
			CompanyID:      opts.CompanyID,
			Date:           date,
			Amount:         amount,
			Memo:           fields[rest+2],
			DocumentNumber: optional(fields[rest+3]),
			FiscalYear:     opts.FiscalYear,
		}},
	}, nil
}

func resolveAccount(ctx context.Context, refs *memo[string, accounts.Ref], field, code string, fiscalYear int) (accounts.Ref, error) {
	if code == "" {
		return accounts.Ref{}, shared.NewFieldError(shared.ErrUnresolvedReference, field, "%s is required", field)
	}
	ref, ok, err := refs.get(ctx, code)
	if err != nil {
		return accounts.Ref{}, err
	}
	if !ok {
		return accounts.Ref{}, shared.NewFieldError(shared.ErrUnresolvedReference, field,
			"account %s not found in fiscal year %d", code, fiscalYear)
	}
	return ref, nil
}
