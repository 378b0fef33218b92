package importer

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// ParseAmount reads "1234.56", "1.234,56" or "1234,56". More than two decimal
// places is rejected rather than rounded.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	if s == "" {
		return decimal.Decimal{}, shared.NewFieldError(shared.ErrInvalidAmount, field, "%s is required", field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, shared.NewFieldError(shared.ErrInvalidAmount, field, "invalid amount %q", raw)
	}
	if !d.Equal(d.Round(shared.AmountScale)) {
		return decimal.Decimal{}, shared.NewFieldError(shared.ErrInvalidAmount, field,
			"amount %q has more than %d decimal places", raw, shared.AmountScale)
	}
	return d, nil
}

// ParseDate reads ISO dates and dd/mm/yyyy.
func ParseDate(field, raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, shared.NewFieldError(shared.ErrMalformedRow, field, "invalid date %q for %s", raw, field)
}

// ParseInt reads an integer column.
func ParseInt(field, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, shared.NewFieldError(shared.ErrMalformedRow, field, "invalid number %q for %s", raw, field)
	}
	return v, nil
}

func optional(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
