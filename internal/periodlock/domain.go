// Package periodlock enforces the per-company accounting period cutoff.
//
// Every dated record (ledger entries, fiscal adjustments, parameter periods) goes
// through Guard before a write. The cutoff itself only moves forward through
// Service.AdvanceCutoff, which appends an audit row in the same transaction.
package periodlock

import (
	"fmt"
	"time"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// Operation names the mutation being authorised.
type Operation string

const (
	OpCreate Operation = "CREATE"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Dated is implemented by every record that carries a reference date (competencia).
type Dated interface {
	OwningCompany() int64
	ReferenceDate() time.Time
}

// Change is one append-only audit row of a cutoff move.
type Change struct {
	ID        int64
	CompanyID int64
	Previous  time.Time
	New       time.Time
	ChangedBy int64
	ChangedAt time.Time
}

// AdvanceInput requests a new cutoff for a company.
type AdvanceInput struct {
	CompanyID int64     `validate:"required,gt=0"`
	NewCutoff time.Time `validate:"required"`
	ActorID   int64
}

// LockError reports a denied mutation with both dates so callers can explain it.
type LockError struct {
	Operation     Operation
	ReferenceDate time.Time
	Cutoff        time.Time
}

func (e *LockError) Error() string {
	return fmt.Sprintf("period locked: %s of record dated %s is not allowed before the accounting period cutoff %s",
		e.Operation, e.ReferenceDate.Format(time.DateOnly), e.Cutoff.Format(time.DateOnly))
}

// Is makes errors.Is(err, shared.ErrPeriodLocked) succeed.
func (e *LockError) Is(target error) bool {
	return target == shared.ErrPeriodLocked
}

// check applies the lock rule. The cutoff day itself is open.
func check(referenceDate, cutoff time.Time, op Operation) error {
	if cutoff.IsZero() {
		return nil
	}
	ref := shared.DateOnly(referenceDate)
	limit := shared.DateOnly(cutoff)
	if ref.Before(limit) {
		return &LockError{Operation: op, ReferenceDate: ref, Cutoff: limit}
	}
	return nil
}

// validateAdvance enforces current <= next <= today.
func validateAdvance(current, next, today time.Time) error {
	next = shared.DateOnly(next)
	if next.IsZero() {
		return fmt.Errorf("%w: new cutoff is required", shared.ErrInvalidCutoff)
	}
	if !current.IsZero() && next.Before(shared.DateOnly(current)) {
		return fmt.Errorf("%w: new cutoff %s is before the current cutoff %s", shared.ErrInvalidCutoff,
			next.Format(time.DateOnly), shared.DateOnly(current).Format(time.DateOnly))
	}
	if next.After(shared.DateOnly(today)) {
		return fmt.Errorf("%w: new cutoff %s is in the future", shared.ErrInvalidCutoff, next.Format(time.DateOnly))
	}
	return nil
}
