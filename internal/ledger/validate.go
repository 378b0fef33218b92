package ledger

import (
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// ValidateEntry applies the ledger rulebook in a fixed order and returns the first violation:
// resolved accounts, distinct accounts, positive amount, matching fiscal years.
func ValidateEntry(c Candidate) error {
	if c.Debit == nil {
		return shared.NewFieldError(shared.ErrUnresolvedReference, "debitAccountId", "debit account not found")
	}
	if c.Credit == nil {
		return shared.NewFieldError(shared.ErrUnresolvedReference, "creditAccountId", "credit account not found")
	}
	if c.Debit.ID == c.Credit.ID {
		return shared.NewFieldError(shared.ErrDoubleEntry, "creditAccountId", "debit and credit accounts must be different")
	}
	if err := shared.CheckAmount("amount", c.Entry.Amount); err != nil {
		return err
	}
	fy := c.Entry.FiscalYear
	if c.Debit.FiscalYear != fy {
		return shared.NewFieldError(shared.ErrFiscalYearMismatch, "debitAccountId",
			"debit account %s belongs to fiscal year %d, entry is %d", c.Debit.Code, c.Debit.FiscalYear, fy)
	}
	if c.Credit.FiscalYear != fy {
		return shared.NewFieldError(shared.ErrFiscalYearMismatch, "creditAccountId",
			"credit account %s belongs to fiscal year %d, entry is %d", c.Credit.Code, c.Credit.FiscalYear, fy)
	}
	if c.Entry.Date.Year() != fy {
		return shared.NewFieldError(shared.ErrFiscalYearMismatch, "referenceDate",
			"reference date %s is outside fiscal year %d", c.Entry.Date.Format("2006-01-02"), fy)
	}
	return nil
}
