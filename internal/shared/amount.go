package shared

import "github.com/shopspring/decimal"

// AmountScale is the number of decimal places stored for monetary amounts.
const AmountScale = 2

// CheckAmount rejects amounts that are not positive or that carry more precision
// than the store keeps.
func CheckAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewFieldError(ErrInvalidAmount, field, "amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(AmountScale)) {
		return NewFieldError(ErrInvalidAmount, field, "amount %s has more than %d decimal places", amount.String(), AmountScale)
	}
	return nil
}
