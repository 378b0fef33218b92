package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Sconzo/lalur-sub001/internal/accounts"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// ReferenceAccountResolver maps referential chart codes for a validity year.
type ReferenceAccountResolver interface {
	ReferenceAccountByCode(ctx context.Context, code string, validityYear int) (accounts.ReferenceAccount, error)
}

// AccountWriter persists chart of accounts rows through the single-record service.
type AccountWriter interface {
	CreateAccount(ctx context.Context, a accounts.Account) (accounts.Account, error)
	CreateReferenceAccount(ctx context.Context, r accounts.ReferenceAccount) (accounts.ReferenceAccount, error)
}

// AccountPreview is a validated chart of accounts row echoed back by a dry run.
type AccountPreview struct {
	Code                 string `json:"code"`
	Name                 string `json:"name"`
	AccountType          string `json:"accountType"`
	ReferenceAccountCode string `json:"referenceAccountCode,omitempty"`
	Class                string `json:"class"`
	Level                int    `json:"level"`
	Nature               string `json:"nature"`
	AffectsResult        bool   `json:"affectsResult"`
	Deductible           bool   `json:"deductible"`
}

// ReferenceAccountPreview is a validated referential chart row echoed back by a dry run.
type ReferenceAccountPreview struct {
	Code         string `json:"code"`
	Description  string `json:"description"`
	ValidityYear int    `json:"validityYear"`
}

// AccountImporter imports the chart of accounts of a company and fiscal year, and
// the referential chart.
type AccountImporter struct {
	accounts   AccountResolver
	references ReferenceAccountResolver
	writer     AccountWriter
	deps       Deps
}

// NewAccountImporter wires the importer.
func NewAccountImporter(accts AccountResolver, references ReferenceAccountResolver, writer AccountWriter, deps Deps) *AccountImporter {
	return &AccountImporter{accounts: accts, references: references, writer: writer, deps: deps.withDefaults()}
}

type accountRow struct {
	referenceCode string
	account       accounts.Account
}

// Import reads a chart of accounts file.
func (i *AccountImporter) Import(ctx context.Context, r io.Reader, opts Options) (Report, error) {
	refs := newMemo(func(ctx context.Context, code string) (accounts.ReferenceAccount, error) {
		return i.references.ReferenceAccountByCode(ctx, code, opts.FiscalYear)
	})
	p := plan[accountRow]{
		kind:     KindAccounts,
		widths:   []int{len(AccountHeader)},
		needYear: true,
		parse: func(fields []string, _ int) (accountRow, error) {
			return parseAccountRow(fields, opts)
		},
		resolve: func(ctx context.Context, row accountRow) (accountRow, error) {
			if row.referenceCode == "" {
				return row, nil
			}
			ref, ok, err := refs.get(ctx, row.referenceCode)
			if err != nil {
				return row, err
			}
			if !ok {
				return row, shared.NewFieldError(shared.ErrUnresolvedReference, "referenceAccountCode",
					"reference account %s not found for %d", row.referenceCode, opts.FiscalYear)
			}
			row.account.ReferenceAccountID = &ref.ID
			return row, nil
		},
		key: func(row accountRow) string { return row.account.Code },
		check: func(ctx context.Context, row accountRow) error {
			if err := accounts.ValidateAccount(row.account); err != nil {
				return err
			}
			_, err := i.accounts.RefByCode(ctx, opts.CompanyID, opts.FiscalYear, row.account.Code)
			return existing(err, "account code %s already exists for fiscal year %d", row.account.Code, opts.FiscalYear)
		},
		preview: func(row accountRow) any {
			a := row.account
			return AccountPreview{
				Code:                 a.Code,
				Name:                 a.Name,
				AccountType:          string(a.Type),
				ReferenceAccountCode: row.referenceCode,
				Class:                string(a.Class),
				Level:                a.Level,
				Nature:               string(a.Nature),
				AffectsResult:        a.AffectsResult,
				Deductible:           a.Deductible,
			}
		},
		persist: func(ctx context.Context, row accountRow) error {
			_, err := i.writer.CreateAccount(ctx, row.account)
			return err
		},
	}
	return run(ctx, i.deps, p, r, opts)
}

// ImportReferenceAccounts reads a referential chart file. The validity year comes from each row.
func (i *AccountImporter) ImportReferenceAccounts(ctx context.Context, r io.Reader, opts Options) (Report, error) {
	p := plan[accounts.ReferenceAccount]{
		kind:   KindReferenceAccounts,
		widths: []int{len(ReferenceAccountHeader)},
		parse: func(fields []string, _ int) (accounts.ReferenceAccount, error) {
			year, err := ParseInt("validityYear", fields[2])
			if err != nil {
				return accounts.ReferenceAccount{}, err
			}
			return accounts.ReferenceAccount{Code: fields[0], Description: fields[1], ValidityYear: year}, nil
		},
		key: func(ref accounts.ReferenceAccount) string {
			return ref.Code + "|" + strconv.Itoa(ref.ValidityYear)
		},
		check: func(ctx context.Context, ref accounts.ReferenceAccount) error {
			if err := accounts.ValidateReferenceAccount(ref); err != nil {
				return err
			}
			_, err := i.references.ReferenceAccountByCode(ctx, ref.Code, ref.ValidityYear)
			return existing(err, "reference account %s already exists for %d", ref.Code, ref.ValidityYear)
		},
		preview: func(ref accounts.ReferenceAccount) any {
			return ReferenceAccountPreview{Code: ref.Code, Description: ref.Description, ValidityYear: ref.ValidityYear}
		},
		persist: func(ctx context.Context, ref accounts.ReferenceAccount) error {
			_, err := i.writer.CreateReferenceAccount(ctx, ref)
			return err
		},
	}
	return run(ctx, i.deps, p, r, opts)
}

func parseAccountRow(fields []string, opts Options) (accountRow, error) {
	accountType, err := accounts.ParseType(fields[2])
	if err != nil {
		return accountRow{}, err
	}
	class, err := accounts.ParseClass(fields[4])
	if err != nil {
		return accountRow{}, err
	}
	level, err := ParseInt("level", fields[5])
	if err != nil {
		return accountRow{}, err
	}
	nature, err := accounts.ParseNature(fields[6])
	if err != nil {
		return accountRow{}, err
	}
	affects, err := accounts.ParseFlag("affectsResult", fields[7])
	if err != nil {
		return accountRow{}, err
	}
	deductible, err := accounts.ParseFlag("deductible", fields[8])
	if err != nil {
		return accountRow{}, err
	}
	return accountRow{
		referenceCode: fields[3],
		account: accounts.Account{
			CompanyID:     opts.CompanyID,
			FiscalYear:    opts.FiscalYear,
			Code:          fields[0],
			Name:          fields[1],
			Type:          accountType,
			Class:         class,
			Level:         level,
			Nature:        nature,
			AffectsResult: affects,
			Deductible:    deductible,
		},
	}, nil
}

// existing turns a successful natural key lookup into a duplicate error.
func existing(lookupErr error, format string, args ...any) error {
	switch {
	case lookupErr == nil:
		return fmt.Errorf("%w: %s", shared.ErrDuplicate, fmt.Sprintf(format, args...))
	case errors.Is(lookupErr, shared.ErrNotFound):
		return nil
	default:
		return lookupErr
	}
}
