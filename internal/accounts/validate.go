package accounts

import (
	"strings"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// ValidateAccount checks a chart of accounts row before persistence.
func ValidateAccount(a Account) error {
	if a.CompanyID <= 0 {
		return shared.NewFieldError(shared.ErrMissingParameter, "companyId", "company is required")
	}
	if a.FiscalYear <= 0 {
		return shared.NewFieldError(shared.ErrMissingParameter, "fiscalYear", "fiscal year is required")
	}
	if strings.TrimSpace(a.Code) == "" {
		return shared.NewFieldError(shared.ErrValidation, "code", "account code is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return shared.NewFieldError(shared.ErrValidation, "name", "account name is required")
	}
	if !a.Type.valid() {
		return shared.NewFieldError(shared.ErrValidation, "accountType", "invalid account type %q", a.Type)
	}
	if !a.Class.valid() {
		return shared.NewFieldError(shared.ErrValidation, "class", "invalid account class %q", a.Class)
	}
	if !a.Nature.valid() {
		return shared.NewFieldError(shared.ErrValidation, "nature", "invalid account nature %q", a.Nature)
	}
	if a.Level < 1 {
		return shared.NewFieldError(shared.ErrValidation, "level", "account level must be at least 1")
	}
	return nil
}

// ValidateReferenceAccount checks a referential chart row.
func ValidateReferenceAccount(r ReferenceAccount) error {
	if strings.TrimSpace(r.Code) == "" {
		return shared.NewFieldError(shared.ErrValidation, "code", "reference account code is required")
	}
	if strings.TrimSpace(r.Description) == "" {
		return shared.NewFieldError(shared.ErrValidation, "description", "reference account description is required")
	}
	if r.ValidityYear < 1900 || r.ValidityYear > 9999 {
		return shared.NewFieldError(shared.ErrValidation, "validityYear", "invalid validity year %d", r.ValidityYear)
	}
	return nil
}
