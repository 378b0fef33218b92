package shared

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind is the stable machine-readable category attached to every error surfaced to callers.
type Kind string

const (
	KindUnresolvedReference     Kind = "UNRESOLVED_REFERENCE"
	KindDoubleEntryViolation    Kind = "DOUBLE_ENTRY_VIOLATION"
	KindInvalidAmount           Kind = "INVALID_AMOUNT"
	KindFiscalYearMismatch      Kind = "FISCAL_YEAR_MISMATCH"
	KindConditionalFKViolation  Kind = "CONDITIONAL_FK_VIOLATION"
	KindMalformedRow            Kind = "MALFORMED_ROW"
	KindEmptyFile               Kind = "EMPTY_FILE"
	KindMissingParameter        Kind = "MISSING_PARAMETER"
	KindPeriodLockViolation     Kind = "PERIOD_LOCK_VIOLATION"
	KindDuplicateTemporalValue  Kind = "DUPLICATE_TEMPORAL_VALUE"
	KindUnexpectedTemporalValue Kind = "UNEXPECTED_TEMPORAL_VALUE"
	KindInvalidTemporalValue    Kind = "INVALID_TEMPORAL_VALUE"
	KindDuplicateConstraint     Kind = "DUPLICATE_CONSTRAINT_VIOLATION"
	KindInvalidCutoff           Kind = "INVALID_CUTOFF"
	KindNotFound                Kind = "NOT_FOUND"
	KindValidation              Kind = "VALIDATION"
	KindInternal                Kind = "INTERNAL"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnresolvedReference indicates a code or id that does not map to an existing record.
	ErrUnresolvedReference = errors.New("unresolved reference")
	// ErrDoubleEntry indicates debit and credit point at the same account.
	ErrDoubleEntry = errors.New("debit and credit accounts must be different")
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrFiscalYearMismatch indicates accounts and record disagree on the fiscal year.
	ErrFiscalYearMismatch = errors.New("fiscal year mismatch")
	// ErrConditionalFK indicates the populated foreign keys do not match the relationship kind.
	ErrConditionalFK = errors.New("conditional foreign key violation")
	// ErrMalformedRow indicates a line that cannot be split into the expected fields.
	ErrMalformedRow = errors.New("malformed row")
	// ErrEmptyFile indicates an upload without a header line.
	ErrEmptyFile = errors.New("file is empty")
	// ErrMissingParameter indicates a missing company context or fiscal year.
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrPeriodLocked indicates a mutation inside a closed accounting period.
	ErrPeriodLocked = errors.New("period locked")
	// ErrDuplicateTemporalValue indicates a repeated (association, year, month, quarter).
	ErrDuplicateTemporalValue = errors.New("duplicate temporal value")
	// ErrUnexpectedTemporalValue indicates a period attached to a GLOBAL parameter.
	ErrUnexpectedTemporalValue = errors.New("global parameter does not accept temporal values")
	// ErrInvalidTemporalValue indicates a month/quarter that does not fit the parameter nature.
	ErrInvalidTemporalValue = errors.New("invalid temporal value")
	// ErrDuplicate indicates a uniqueness constraint violation reported by the store.
	ErrDuplicate = errors.New("record already exists")
	// ErrInvalidCutoff indicates a rejected accounting period cutoff change.
	ErrInvalidCutoff = errors.New("invalid accounting period cutoff")
	// ErrValidation indicates a generic field validation failure.
	ErrValidation = errors.New("validation failed")
)

var kindTable = []struct {
	err  error
	kind Kind
}{
	{ErrUnresolvedReference, KindUnresolvedReference},
	{ErrDoubleEntry, KindDoubleEntryViolation},
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrFiscalYearMismatch, KindFiscalYearMismatch},
	{ErrConditionalFK, KindConditionalFKViolation},
	{ErrMalformedRow, KindMalformedRow},
	{ErrEmptyFile, KindEmptyFile},
	{ErrMissingParameter, KindMissingParameter},
	{ErrPeriodLocked, KindPeriodLockViolation},
	{ErrDuplicateTemporalValue, KindDuplicateTemporalValue},
	{ErrUnexpectedTemporalValue, KindUnexpectedTemporalValue},
	{ErrInvalidTemporalValue, KindInvalidTemporalValue},
	{ErrDuplicate, KindDuplicateConstraint},
	{ErrInvalidCutoff, KindInvalidCutoff},
	{ErrNotFound, KindNotFound},
	{ErrValidation, KindValidation},
}

// KindOf classifies err. Unknown errors are INTERNAL.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternal
}

// FieldError attaches the offending field to a sentinel.
type FieldError struct {
	Err     error
	Field   string
	Message string
}

// NewFieldError builds a FieldError with a formatted message.
func NewFieldError(err error, field, format string, args ...any) error {
	return &FieldError{Err: err, Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *FieldError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Err)
	}
	return e.Message
}

func (e *FieldError) Unwrap() error { return e.Err }

// FieldOf returns the field name carried by err, if any.
func FieldOf(err error) string {
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Field
	}
	return ""
}

// PublicMessage returns a message safe to show callers. Internal errors are masked.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if KindOf(err) == KindInternal {
		return "internal error"
	}
	return err.Error()
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

var constraintMessages = map[string]string{
	"uq_accounts_company_year_code":   "account code already exists for this fiscal year",
	"uq_reference_accounts_code_year": "reference account code already exists for this validity year",
	"uq_parameter_associations":       "parameter already associated with this company",
	"uq_temporal_values":              "temporal value already exists for this association",
}

var checkConstraints = map[string]error{
	"ledger_entries_amount_check":          ErrInvalidAmount,
	"fiscal_adjustments_amount_check":      ErrInvalidAmount,
	"chk_ledger_entries_distinct_accounts": ErrDoubleEntry,
	"chk_fiscal_adjustments_relationship":  ErrConditionalFK,
	"chk_temporal_values_one_period":       ErrInvalidTemporalValue,
	"chk_cutoff_forward":                   ErrInvalidCutoff,
}

// MapPgError translates storage errors into domain sentinels without leaking driver detail.
// Integrity violations map to row-level kinds; anything else is returned unchanged.
func MapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		if pgErr.ConstraintName == "uq_temporal_values" {
			return fmt.Errorf("%w: %s", ErrDuplicateTemporalValue, constraintMessages[pgErr.ConstraintName])
		}
		if msg, ok := constraintMessages[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicate, msg)
		}
		return ErrDuplicate
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: referenced record does not exist", ErrUnresolvedReference)
	case pgCheckViolation:
		if sentinel, ok := checkConstraints[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: rejected by %s", sentinel, pgErr.ConstraintName)
		}
		return fmt.Errorf("%w: rejected by %s", ErrValidation, pgErr.ConstraintName)
	case pgNotNullViolation:
		return NewFieldError(ErrValidation, pgErr.ColumnName, "%s is required", pgErr.ColumnName)
	}
	return err
}
