package exporter

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/Sconzo/lalur-sub001/internal/accounts"
	"github.com/Sconzo/lalur-sub001/internal/adjustments"
	"github.com/Sconzo/lalur-sub001/internal/importer"
	"github.com/Sconzo/lalur-sub001/internal/ledger"
	"github.com/Sconzo/lalur-sub001/internal/periodlock"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

var (
	caixa = accounts.Ref{ID: 1, Code: "1.01", Name: "Caixa; geral", FiscalYear: 2024}
	forn  = accounts.Ref{ID: 2, Code: "2.01", Name: "Fornecedores", FiscalYear: 2024}
)

type ledgerRows []ledger.ExportRow

func (r ledgerRows) ListForExport(ctx context.Context, f ledger.Filter) ([]ledger.ExportRow, error) {
	return append([]ledger.ExportRow(nil), r...), nil
}

type adjustmentRows []adjustments.ExportRow

func (r adjustmentRows) ListForExport(ctx context.Context, f adjustments.Filter) ([]adjustments.ExportRow, error) {
	return append([]adjustments.ExportRow(nil), r...), nil
}

type accountRows []accounts.ExportRow

func (r accountRows) ListForExport(ctx context.Context, companyID int64, fiscalYear int) ([]accounts.ExportRow, error) {
	return append([]accounts.ExportRow(nil), r...), nil
}

type codeIndex map[string]accounts.Ref

func (c codeIndex) RefByCode(ctx context.Context, companyID int64, fiscalYear int, code string) (accounts.Ref, error) {
	ref, ok := c[code]
	if !ok {
		return accounts.Ref{}, shared.ErrNotFound
	}
	return ref, nil
}

type noLock struct{}

func (noLock) Cutoff(ctx context.Context, companyID int64) (time.Time, error) { return time.Time{}, nil }

type emptyLedger struct{}

func (emptyLedger) WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error {
	return fn(ctx, nil)
}

func (emptyLedger) Get(ctx context.Context, companyID, id int64) (ledger.Entry, error) {
	return ledger.Entry{}, shared.ErrNotFound
}

func (emptyLedger) ListForExport(ctx context.Context, f ledger.Filter) ([]ledger.ExportRow, error) {
	return nil, nil
}

func entry(id int64, date string, amount string, memo string, doc *string) ledger.ExportRow {
	d, _ := time.Parse(time.DateOnly, date)
	return ledger.ExportRow{
		Entry: ledger.Entry{
			ID:              id,
			CompanyID:       7,
			DebitAccountID:  caixa.ID,
			CreditAccountID: forn.ID,
			Date:            d,
			Amount:          decimal.RequireFromString(amount),
			Memo:            memo,
			DocumentNumber:  doc,
			FiscalYear:      2024,
			Status:          shared.StatusActive,
		},
		Debit:  caixa,
		Credit: forn,
	}
}

func TestExportLedgerIsDeterministic(t *testing.T) {
	doc := "NF 10"
	rows := ledgerRows{
		entry(3, "2024-02-01", "10", "later", nil),
		entry(2, "2024-01-15", "1234.5", "second \"quoted\"", &doc),
		entry(1, "2024-01-15", "0.1", "first", nil),
	}
	exp, err := New(Sources{Ledger: rows}, nil, "", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	res, err := exp.ExportLedger(context.Background(), &buf, ledger.Filter{CompanyID: 7, FiscalYear: 2024})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)

	want := "debitAccountCode;debitAccountName;creditAccountCode;creditAccountName;referenceDate;amount;memo;documentNumber\r\n" +
		"1.01;\"Caixa; geral\";2.01;Fornecedores;2024-01-15;0.10;first;\r\n" +
		"1.01;\"Caixa; geral\";2.01;Fornecedores;2024-01-15;1234.50;\"second \"\"quoted\"\"\";NF 10\r\n" +
		"1.01;\"Caixa; geral\";2.01;Fornecedores;2024-02-01;10.00;later;\r\n"
	assert.Equal(t, want, buf.String())

	var again bytes.Buffer
	_, err = exp.ExportLedger(context.Background(), &again, ledger.Filter{CompanyID: 7, FiscalYear: 2024})
	require.NoError(t, err)
	assert.Equal(t, buf.String(), again.String())
}

func TestExportLedgerRoundTrip(t *testing.T) {
	doc := "NF-77"
	rows := ledgerRows{
		entry(1, "2024-01-02", "100", "abertura", nil),
		entry(2, "2024-03-31", "1234.56", "multi\nline memo", &doc),
		entry(3, "2024-12-31", "0.01", "Depreciação", nil),
	}
	exp, err := New(Sources{Ledger: rows}, nil, EncodingLatin1, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = exp.ExportLedger(context.Background(), &buf, ledger.Filter{CompanyID: 7, FiscalYear: 2024})
	require.NoError(t, err)

	codes := codeIndex{caixa.Code: caixa, forn.Code: forn}
	svc := ledger.NewService(emptyLedger{}, nil, periodlock.NewGuard(noLock{}), nil, nil)
	imp := importer.NewLedgerImporter(codes, svc, importer.Deps{})
	report, err := imp.Import(context.Background(), &buf, importer.Options{CompanyID: 7, FiscalYear: 2024, DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Empty(t, report.Errors)
	require.Len(t, report.Preview, len(rows))
	for i, row := range rows {
		assert.Equal(t, importer.LedgerPreview{
			DebitAccountCode:  row.Debit.Code,
			DebitAccountName:  row.Debit.Name,
			CreditAccountCode: row.Credit.Code,
			CreditAccountName: row.Credit.Name,
			ReferenceDate:     row.Date.Format(time.DateOnly),
			Amount:            row.Amount.StringFixed(2),
			Memo:              strings.ReplaceAll(row.Memo, "\n", " "),
			DocumentNumber:    deref(row.DocumentNumber),
		}, report.Preview[i])
	}
}

func TestExportLatin1Encoding(t *testing.T) {
	rows := accountRows{{Account: accounts.Account{Code: "4.01", Name: "Depreciação", Type: accounts.TypeAnalytic,
		Class: accounts.ClassExpense, Level: 2, Nature: accounts.NatureDebit, Deductible: true}}}
	exp, err := New(Sources{Accounts: rows}, nil, "latin1", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = exp.ExportAccounts(context.Background(), &buf, 7, 2024)
	require.NoError(t, err)

	decoded, err := charmap.ISO8859_1.NewDecoder().String(buf.String())
	require.NoError(t, err)
	assert.Contains(t, decoded, "4.01;Depreciação;ANALYTIC;;EXPENSE;2;DEBIT;false;true\r\n")
	assert.NotContains(t, buf.String(), "ção")
}

func TestExportAdjustmentsOrderedByMonth(t *testing.T) {
	rows := adjustmentRows{
		{Adjustment: adjustments.Adjustment{ID: 9, Month: 5, Year: 2024, Apportionment: adjustments.ApportionmentCSLL,
			Relationship: adjustments.RelationshipAdjustmentAccount, Direction: adjustments.DirectionExclusion,
			Description: "may", Amount: decimal.NewFromInt(5)}, AdjustmentAccountCode: "B-1", TaxParameterCode: "EXC"},
		{Adjustment: adjustments.Adjustment{ID: 4, Month: 2, Year: 2024, Apportionment: adjustments.ApportionmentIRPJ,
			Relationship: adjustments.RelationshipLedgerAccount, Direction: adjustments.DirectionAddition,
			Description: "feb", Amount: decimal.RequireFromString("12.3")}, LedgerAccountCode: "1.01", TaxParameterCode: "ADD"},
	}
	exp, err := New(Sources{Adjustments: rows}, nil, "", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = exp.ExportAdjustments(context.Background(), &buf, adjustments.Filter{CompanyID: 7, FiscalYear: 2024})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(importer.AdjustmentHeader, ";"), lines[0])
	assert.Equal(t, "2;2024;IRPJ;LEDGER_ACCOUNT;1.01;;ADD;ADDITION;feb;12.30", lines[1])
	assert.Equal(t, "5;2024;CSLL;ADJUSTMENT_ACCOUNT;;B-1;EXC;EXCLUSION;may;5.00", lines[2])
}

func TestExportRequiresScope(t *testing.T) {
	exp, err := New(Sources{Ledger: ledgerRows{}}, nil, "", nil)
	require.NoError(t, err)

	_, err = exp.ExportLedger(context.Background(), &bytes.Buffer{}, ledger.Filter{FiscalYear: 2024})
	assert.ErrorIs(t, err, shared.ErrMissingParameter)
	_, err = exp.ExportLedger(context.Background(), &bytes.Buffer{}, ledger.Filter{CompanyID: 7})
	assert.ErrorIs(t, err, shared.ErrMissingParameter)

	_, err = New(Sources{}, nil, "EBCDIC", nil)
	assert.Error(t, err)
}
