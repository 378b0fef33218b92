package periodlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

type fixedCutoff map[int64]time.Time

func (f fixedCutoff) Cutoff(ctx context.Context, companyID int64) (time.Time, error) {
	return f[companyID], nil
}

type record struct {
	company int64
	date    time.Time
}

func (r record) OwningCompany() int64 { return r.company }
func (r record) ReferenceDate() time.Time { return r.date }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGuardBoundaryIsInclusivePermit(t *testing.T) {
	guard := NewGuard(fixedCutoff{1: day(2024, 3, 31)})
	ctx := context.Background()

	require.NoError(t, guard.Authorize(ctx, 1, day(2024, 3, 31), OpUpdate))
	require.NoError(t, guard.Authorize(ctx, 1, day(2024, 4, 1), OpDelete))

	err := guard.Authorize(ctx, 1, day(2024, 3, 30), OpUpdate)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrPeriodLocked))
	assert.Equal(t, shared.KindPeriodLockViolation, shared.KindOf(err))

	var lockErr *LockError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, day(2024, 3, 30), lockErr.ReferenceDate)
	assert.Equal(t, day(2024, 3, 31), lockErr.Cutoff)
	assert.Contains(t, err.Error(), "2024-03-31")
}

func TestGuardIgnoresTimeOfDay(t *testing.T) {
	guard := NewGuard(fixedCutoff{1: day(2024, 3, 31)})
	late := time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC)
	require.NoError(t, guard.Authorize(context.Background(), 1, late, OpCreate))
}

func TestGuardWithoutCutoffPermitsEverything(t *testing.T) {
	guard := NewGuard(fixedCutoff{})
	require.NoError(t, guard.AuthorizeRecord(context.Background(), record{company: 7, date: day(1999, 1, 1)}, OpDelete))
}

func TestAuthorizeUpdateChecksBothDates(t *testing.T) {
	guard := NewGuard(fixedCutoff{1: day(2024, 6, 30)})
	ctx := context.Background()

	open := record{company: 1, date: day(2024, 7, 15)}
	closed := record{company: 1, date: day(2024, 5, 10)}

	require.NoError(t, guard.AuthorizeUpdate(ctx, open, open))
	assert.ErrorIs(t, guard.AuthorizeUpdate(ctx, closed, open), shared.ErrPeriodLocked, "editing a closed record")
	assert.ErrorIs(t, guard.AuthorizeUpdate(ctx, open, closed), shared.ErrPeriodLocked, "moving into a closed period")

	other := record{company: 2, date: day(2024, 7, 15)}
	assert.ErrorIs(t, guard.AuthorizeUpdate(ctx, open, other), shared.ErrValidation)
}

func TestGuardRequiresCompany(t *testing.T) {
	guard := NewGuard(fixedCutoff{})
	err := guard.Authorize(context.Background(), 0, day(2024, 1, 1), OpCreate)
	assert.ErrorIs(t, err, shared.ErrMissingParameter)
}

func TestAuthorizeInReadsTransactionCutoff(t *testing.T) {
	cached := NewGuard(fixedCutoff{})
	tx := fixedCutoff{1: day(2024, 6, 30)}
	ctx := context.Background()
	rec := record{company: 1, date: day(2024, 1, 15)}

	require.NoError(t, cached.AuthorizeRecord(ctx, rec, OpCreate))
	assert.ErrorIs(t, cached.AuthorizeRecordIn(ctx, tx, rec, OpCreate), shared.ErrPeriodLocked)
	assert.ErrorIs(t, cached.AuthorizeUpdateIn(ctx, tx, record{company: 1, date: day(2024, 7, 1)}, rec), shared.ErrPeriodLocked)
	require.NoError(t, cached.AuthorizeRecordIn(ctx, tx, record{company: 1, date: day(2024, 6, 30)}, OpDelete))
}
