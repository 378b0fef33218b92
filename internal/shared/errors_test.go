package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfClassifiesWrappedSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{fmt.Errorf("row: %w", ErrDoubleEntry), KindDoubleEntryViolation},
		{NewFieldError(ErrConditionalFK, "ledgerAccountId", "required"), KindConditionalFKViolation},
		{NewFieldError(ErrUnresolvedReference, "debitAccountCode", "x"), KindUnresolvedReference},
		{ErrEmptyFile, KindEmptyFile},
		{errors.New("socket"), KindInternal},
		{fmt.Errorf("%w", ErrDuplicate), KindDuplicateConstraint},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, KindOf(tc.err), tc.err.Error())
	}
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestFieldOfAndPublicMessage(t *testing.T) {
	err := fmt.Errorf("line 3: %w", NewFieldError(ErrConditionalFK, "adjustmentAccountId", "adjustmentAccountId must be empty"))
	assert.Equal(t, "adjustmentAccountId", FieldOf(err))
	assert.Equal(t, "internal error", PublicMessage(errors.New("pq: connection reset")))
	assert.Contains(t, PublicMessage(err), "must be empty")
}

func TestMapPgErrorHidesDriverDetail(t *testing.T) {
	err := MapPgError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_accounts_company_year_code", Detail: "Key (code)=(1.01) already exists."})
	require.ErrorIs(t, err, ErrDuplicate)
	assert.NotContains(t, err.Error(), "Key (code)")

	err = MapPgError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_temporal_values"})
	require.ErrorIs(t, err, ErrDuplicateTemporalValue)

	other := &pgconn.PgError{Code: "40001"}
	assert.Same(t, error(other), MapPgError(other))
	assert.NoError(t, MapPgError(nil))
}

func TestMapPgErrorClassifiesIntegrityViolations(t *testing.T) {
	cases := []struct {
		pgErr *pgconn.PgError
		want  Kind
	}{
		{&pgconn.PgError{Code: "23514", ConstraintName: "ledger_entries_amount_check"}, KindInvalidAmount},
		{&pgconn.PgError{Code: "23514", ConstraintName: "fiscal_adjustments_amount_check"}, KindInvalidAmount},
		{&pgconn.PgError{Code: "23514", ConstraintName: "chk_fiscal_adjustments_relationship"}, KindConditionalFKViolation},
		{&pgconn.PgError{Code: "23514", ConstraintName: "chk_ledger_entries_distinct_accounts"}, KindDoubleEntryViolation},
		{&pgconn.PgError{Code: "23514", ConstraintName: "accounts_level_check"}, KindValidation},
		{&pgconn.PgError{Code: "23503", ConstraintName: "ledger_entries_debit_account_id_fkey", Detail: "Key (debit_account_id)=(9) is not present"}, KindUnresolvedReference},
		{&pgconn.PgError{Code: "23502", ColumnName: "memo"}, KindValidation},
	}
	for _, tc := range cases {
		err := MapPgError(fmt.Errorf("insert: %w", tc.pgErr))
		assert.Equal(t, tc.want, KindOf(err), tc.pgErr.ConstraintName)
		assert.NotContains(t, err.Error(), "Key (")
	}
	assert.Equal(t, "memo", FieldOf(MapPgError(&pgconn.PgError{Code: "23502", ColumnName: "memo"})))
}

func TestCheckAmount(t *testing.T) {
	assert.NoError(t, CheckAmount("amount", decimal.RequireFromString("0.01")))
	assert.NoError(t, CheckAmount("amount", decimal.RequireFromString("12.300")))
	for _, raw := range []string{"0", "-3", "0.001", "1.234"} {
		err := CheckAmount("amount", decimal.RequireFromString(raw))
		require.ErrorIs(t, err, ErrInvalidAmount, raw)
		assert.Equal(t, "amount", FieldOf(err))
	}
}
