// Package ledger holds double-entry bookkeeping entries (lancamentos contabeis).
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sconzo/lalur-sub001/internal/accounts"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// Entry is a single debit/credit posting dated by its competencia.
type Entry struct {
	ID              int64
	CompanyID       int64
	DebitAccountID  int64
	CreditAccountID int64
	Date            time.Time
	Amount          decimal.Decimal
	Memo            string
	DocumentNumber  *string
	FiscalYear      int
	Status          shared.Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OwningCompany implements periodlock.Dated.
func (e Entry) OwningCompany() int64 { return e.CompanyID }

// ReferenceDate implements periodlock.Dated.
func (e Entry) ReferenceDate() time.Time { return e.Date }

// Candidate is an entry together with its resolved accounts. A nil account is unresolved.
type Candidate struct {
	Entry  Entry
	Debit  *accounts.Ref
	Credit *accounts.Ref
}

// ExportRow is an entry with the codes and names of both accounts.
type ExportRow struct {
	Entry
	Debit  accounts.Ref
	Credit accounts.Ref
}

// Filter selects entries for export. Zero From/To leave the range open.
type Filter struct {
	CompanyID  int64
	FiscalYear int
	From       time.Time
	To         time.Time
}

func (e Entry) normalized() Entry {
	e.Date = shared.DateOnly(e.Date)
	e.Memo = strings.TrimSpace(e.Memo)
	if e.DocumentNumber != nil {
		doc := strings.TrimSpace(*e.DocumentNumber)
		if doc == "" {
			e.DocumentNumber = nil
		} else {
			e.DocumentNumber = &doc
		}
	}
	return e
}
