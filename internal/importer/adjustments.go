package importer

import (
	"context"
	"io"

	"github.com/Sconzo/lalur-sub001/internal/accounts"
	"github.com/Sconzo/lalur-sub001/internal/adjustments"
	"github.com/Sconzo/lalur-sub001/internal/parameters"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// AdjustmentAccountResolver maps Parte B account codes of a company.
type AdjustmentAccountResolver interface {
	AdjustmentAccountByCode(ctx context.Context, companyID int64, code string) (accounts.AdjustmentAccount, error)
}

// ParameterResolver maps tax parameter codes.
type ParameterResolver interface {
	ParameterByCode(ctx context.Context, code string) (parameters.Parameter, error)
}

// AdjustmentWriter is the adjustment rulebook shared with single-record calls.
type AdjustmentWriter interface {
	Check(ctx context.Context, a adjustments.Adjustment) error
	CreateResolved(ctx context.Context, a adjustments.Adjustment) (adjustments.Adjustment, error)
}

// AdjustmentPreview is a validated adjustment row echoed back by a dry run.
type AdjustmentPreview struct {
	Month                 int    `json:"month"`
	Year                  int    `json:"year"`
	Apportionment         string `json:"apportionment"`
	Relationship          string `json:"relationship"`
	LedgerAccountCode     string `json:"ledgerAccountCode,omitempty"`
	AdjustmentAccountCode string `json:"adjustmentAccountCode,omitempty"`
	TaxParameterCode      string `json:"taxParameterCode"`
	Direction             string `json:"direction"`
	Description           string `json:"description"`
	Amount                string `json:"amount"`
}

// AdjustmentImporter imports fiscal adjustments.
type AdjustmentImporter struct {
	accounts    AccountResolver
	adjAccounts AdjustmentAccountResolver
	params      ParameterResolver
	writer      AdjustmentWriter
	deps        Deps
}

// NewAdjustmentImporter wires the importer.
func NewAdjustmentImporter(accts AccountResolver, adjAccounts AdjustmentAccountResolver, params ParameterResolver, writer AdjustmentWriter, deps Deps) *AdjustmentImporter {
	return &AdjustmentImporter{accounts: accts, adjAccounts: adjAccounts, params: params, writer: writer, deps: deps.withDefaults()}
}

type adjustmentRow struct {
	ledgerCode     string
	adjustmentCode string
	parameterCode  string
	adjustment     adjustments.Adjustment
}

// Import reads r and validates or persists every row.
func (i *AdjustmentImporter) Import(ctx context.Context, r io.Reader, opts Options) (Report, error) {
	ledgerRefs := newMemo(func(ctx context.Context, code string) (accounts.Ref, error) {
		return i.accounts.RefByCode(ctx, opts.CompanyID, opts.FiscalYear, code)
	})
	adjRefs := newMemo(func(ctx context.Context, code string) (accounts.AdjustmentAccount, error) {
		return i.adjAccounts.AdjustmentAccountByCode(ctx, opts.CompanyID, code)
	})
	params := newMemo(func(ctx context.Context, code string) (parameters.Parameter, error) {
		return i.params.ParameterByCode(ctx, code)
	})
	p := plan[adjustmentRow]{
		kind:     KindAdjustments,
		widths:   []int{len(AdjustmentHeader)},
		needYear: true,
		parse: func(fields []string, _ int) (adjustmentRow, error) {
			return parseAdjustmentRow(fields, opts)
		},
		resolve: func(ctx context.Context, row adjustmentRow) (adjustmentRow, error) {
			if row.ledgerCode != "" {
				ref, err := resolveAccount(ctx, ledgerRefs, "ledgerAccountCode", row.ledgerCode, opts.FiscalYear)
				if err != nil {
					return row, err
				}
				row.adjustment.LedgerAccountID = &ref.ID
			}
			if row.adjustmentCode != "" {
				acc, ok, err := adjRefs.get(ctx, row.adjustmentCode)
				if err != nil {
					return row, err
				}
				if !ok {
					return row, shared.NewFieldError(shared.ErrUnresolvedReference, "adjustmentAccountCode",
						"adjustment account %s not found", row.adjustmentCode)
				}
				row.adjustment.AdjustmentAccountID = &acc.ID
			}
			if row.parameterCode == "" {
				return row, shared.NewFieldError(shared.ErrUnresolvedReference, "taxParameterCode", "taxParameterCode is required")
			}
			param, ok, err := params.get(ctx, row.parameterCode)
			if err != nil {
				return row, err
			}
			if !ok {
				return row, shared.NewFieldError(shared.ErrUnresolvedReference, "taxParameterCode",
					"tax parameter %s not found", row.parameterCode)
			}
			row.adjustment.TaxParameterID = param.ID
			return row, nil
		},
		check: func(ctx context.Context, row adjustmentRow) error {
			return i.writer.Check(ctx, row.adjustment)
		},
		preview: func(row adjustmentRow) any {
			a := row.adjustment
			return AdjustmentPreview{
				Month:                 a.Month,
				Year:                  a.Year,
				Apportionment:         string(a.Apportionment),
				Relationship:          string(a.Relationship),
				LedgerAccountCode:     row.ledgerCode,
				AdjustmentAccountCode: row.adjustmentCode,
				TaxParameterCode:      row.parameterCode,
				Direction:             string(a.Direction),
				Description:           a.Description,
				Amount:                a.Amount.StringFixed(2),
			}
		},
		persist: func(ctx context.Context, row adjustmentRow) error {
			_, err := i.writer.CreateResolved(ctx, row.adjustment)
			return err
		},
	}
	return run(ctx, i.deps, p, r, opts)
}

func parseAdjustmentRow(fields []string, opts Options) (adjustmentRow, error) {
	month, err := ParseInt("month", fields[0])
	if err != nil {
		return adjustmentRow{}, err
	}
	year, err := ParseInt("year", fields[1])
	if err != nil {
		return adjustmentRow{}, err
	}
	if year != opts.FiscalYear {
		return adjustmentRow{}, shared.NewFieldError(shared.ErrFiscalYearMismatch, "year",
			"row year %d does not match fiscal year %d", year, opts.FiscalYear)
	}
	apportionment, err := adjustments.ParseApportionment(fields[2])
	if err != nil {
		return adjustmentRow{}, err
	}
	relationship, err := adjustments.ParseRelationship(fields[3])
	if err != nil {
		return adjustmentRow{}, err
	}
	direction, err := adjustments.ParseDirection(fields[7])
	if err != nil {
		return adjustmentRow{}, err
	}
	amount, err := ParseAmount("amount", fields[9])
	if err != nil {
		return adjustmentRow{}, err
	}
	return adjustmentRow{
		ledgerCode:     fields[4],
		adjustmentCode: fields[5],
		parameterCode:  fields[6],
		adjustment: adjustments.Adjustment{
			CompanyID:     opts.CompanyID,
			Month:         month,
			Year:          year,
			Apportionment: apportionment,
			Relationship:  relationship,
			Direction:     direction,
			Description:   fields[8],
			Amount:        amount,
		},
	}, nil
}
