package parameters

import (
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// ValidateTemporalValue checks v against the parameter nature and the values the
// association already owns.
func ValidateTemporalValue(nature Nature, v TemporalValue, existing []TemporalValue) error {
	switch nature {
	case NatureGlobal:
		return shared.NewFieldError(shared.ErrUnexpectedTemporalValue, "values", "global parameters do not accept periods")
	case NatureMonthly:
		if v.Quarter != nil {
			return shared.NewFieldError(shared.ErrInvalidTemporalValue, "quarter", "monthly parameter does not accept a quarter")
		}
		if v.Month == nil || *v.Month < 1 || *v.Month > 12 {
			return shared.NewFieldError(shared.ErrInvalidTemporalValue, "month", "month must be between 1 and 12")
		}
	case NatureQuarterly:
		if v.Month != nil {
			return shared.NewFieldError(shared.ErrInvalidTemporalValue, "month", "quarterly parameter does not accept a month")
		}
		if v.Quarter == nil || *v.Quarter < 1 || *v.Quarter > 4 {
			return shared.NewFieldError(shared.ErrInvalidTemporalValue, "quarter", "quarter must be between 1 and 4")
		}
	default:
		return shared.NewFieldError(shared.ErrValidation, "nature", "unknown parameter nature %q", nature)
	}
	if v.Year <= 0 {
		return shared.NewFieldError(shared.ErrInvalidTemporalValue, "year", "year is required")
	}
	for _, e := range existing {
		if e.sameSlot(v) {
			return shared.NewFieldError(shared.ErrDuplicateTemporalValue, "values", "period %s already registered", Label(v))
		}
	}
	return nil
}
