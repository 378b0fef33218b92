package lalurhttp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// scope is the company and year a request works on.
type scope struct {
	CompanyID  int64     `validate:"gt=0"`
	FiscalYear int       `validate:"omitempty,gte=1900,lte=9999"`
	From       time.Time `validate:"-"`
	To         time.Time `validate:"-"`
	Kind       string    `validate:"omitempty,oneof=ledger adjustments accounts reference-accounts"`
}

var jsonNames = map[string]string{
	"CompanyID":     "companyId",
	"FiscalYear":    "fiscalYear",
	"Kind":          "kind",
	"Cutoff":        "cutoff",
	"ReferenceDate": "referenceDate",
	"ParameterID":   "parameterId",
	"Year":          "year",
}

func parseScope(r *http.Request) (scope, error) {
	var s scope
	rawCompany := chi.URLParam(r, "companyID")
	id, err := strconv.ParseInt(rawCompany, 10, 64)
	if err != nil {
		return s, shared.NewFieldError(shared.ErrMissingParameter, "companyId", "invalid company id %q", rawCompany)
	}
	s.CompanyID = id
	s.Kind = chi.URLParam(r, "kind")
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("fiscalYear")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return s, shared.NewFieldError(shared.ErrValidation, "fiscalYear", "invalid fiscal year %q", raw)
		}
		s.FiscalYear = year
	}
	if s.From, err = parseDate(q.Get("from"), "from"); err != nil {
		return s, err
	}
	if s.To, err = parseDate(q.Get("to"), "to"); err != nil {
		return s, err
	}
	if !s.From.IsZero() && !s.To.IsZero() && s.To.Before(s.From) {
		return s, shared.NewFieldError(shared.ErrValidation, "to", "to must not be before from")
	}
	return s, nil
}

func parseDate(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, shared.NewFieldError(shared.ErrValidation, field, "invalid %s date %q, expected YYYY-MM-DD", field, raw)
	}
	return t, nil
}

// check runs struct validation and reports the first failing field.
func (h *Handler) check(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	field := first.StructField()
	if name, ok := jsonNames[field]; ok {
		field = name
	}
	sentinel := shared.ErrValidation
	if first.Tag() == "required" || (field == "companyId" && first.Tag() == "gt") {
		sentinel = shared.ErrMissingParameter
	}
	if first.Param() != "" {
		return shared.NewFieldError(sentinel, field, "%s failed %s=%s", field, first.Tag(), first.Param())
	}
	return shared.NewFieldError(sentinel, field, "%s failed %s", field, first.Tag())
}
