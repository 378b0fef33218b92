package periodlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

type memoryRepo struct {
	mu      sync.Mutex
	cutoffs map[int64]time.Time
	changes []Change
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{cutoffs: map[int64]time.Time{1: {}}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memoryTx{cutoffs: map[int64]time.Time{}, repo: m}
	for k, v := range m.cutoffs {
		tx.cutoffs[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.cutoffs = tx.cutoffs
	m.changes = append(m.changes, tx.changes...)
	return nil
}

func (m *memoryRepo) Cutoff(ctx context.Context, companyID int64) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cutoffs[companyID], nil
}

func (m *memoryRepo) History(ctx context.Context, companyID int64) ([]Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Change(nil), m.changes...), nil
}

type memoryTx struct {
	repo    *memoryRepo
	cutoffs map[int64]time.Time
	changes []Change
}

func (t *memoryTx) LockCutoff(ctx context.Context, companyID int64) (time.Time, error) {
	cutoff, ok := t.cutoffs[companyID]
	if !ok {
		return time.Time{}, shared.ErrNotFound
	}
	return cutoff, nil
}

func (t *memoryTx) SetCutoff(ctx context.Context, companyID int64, cutoff time.Time) error {
	t.cutoffs[companyID] = cutoff
	return nil
}

func (t *memoryTx) InsertChange(ctx context.Context, change Change) (Change, error) {
	change.ID = int64(len(t.repo.changes) + len(t.changes) + 1)
	t.changes = append(t.changes, change)
	return change, nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(ctx context.Context, companyID int64) { c.calls++ }

type stubAudit struct{ logs []shared.AuditLog }

func (a *stubAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newTestService(repo *memoryRepo) (*Service, *countingInvalidator, *stubAudit) {
	inv := &countingInvalidator{}
	audit := &stubAudit{}
	svc := NewService(repo, audit, inv, nil)
	svc.WithNow(func() time.Time { return time.Date(2024, 12, 15, 10, 0, 0, 0, time.UTC) })
	return svc, inv, audit
}

func TestAdvanceCutoffIsMonotonic(t *testing.T) {
	repo := newMemoryRepo()
	svc, inv, audit := newTestService(repo)
	ctx := context.Background()

	attempts := []struct {
		cutoff time.Time
		ok     bool
	}{
		{day(2024, 3, 31), true},
		{day(2024, 1, 31), false},
		{day(2024, 3, 31), true},
		{day(2024, 6, 30), true},
		{day(2025, 1, 31), false},
		{day(2024, 5, 31), false},
		{day(2024, 12, 15), true},
	}
	accepted := 0
	previous := time.Time{}
	for _, a := range attempts {
		_, err := svc.AdvanceCutoff(ctx, AdvanceInput{CompanyID: 1, NewCutoff: a.cutoff, ActorID: 9})
		if a.ok {
			require.NoError(t, err, a.cutoff)
			accepted++
		} else {
			require.ErrorIs(t, err, shared.ErrInvalidCutoff, a.cutoff)
			assert.Equal(t, shared.KindInvalidCutoff, shared.KindOf(err))
		}
		current, err := svc.Cutoff(ctx, 1)
		require.NoError(t, err)
		assert.False(t, current.Before(previous), "cutoff moved backwards")
		previous = current
	}

	history, err := svc.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, accepted)
	assert.Equal(t, accepted, inv.calls)
	assert.Len(t, audit.logs, accepted)
	assert.True(t, history[0].Previous.IsZero())
	assert.Equal(t, day(2024, 3, 31), history[1].Previous)
	assert.Equal(t, int64(9), history[0].ChangedBy)
}

func TestAdvanceCutoffUnknownCompany(t *testing.T) {
	svc, inv, _ := newTestService(newMemoryRepo())
	_, err := svc.AdvanceCutoff(context.Background(), AdvanceInput{CompanyID: 42, NewCutoff: day(2024, 1, 31)})
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.Zero(t, inv.calls)

	_, err = svc.AdvanceCutoff(context.Background(), AdvanceInput{NewCutoff: day(2024, 1, 31)})
	assert.ErrorIs(t, err, shared.ErrMissingParameter)
}

func TestAdvanceCutoffRequiresDate(t *testing.T) {
	svc, _, _ := newTestService(newMemoryRepo())
	_, err := svc.AdvanceCutoff(context.Background(), AdvanceInput{CompanyID: 1})
	assert.ErrorIs(t, err, shared.ErrInvalidCutoff)
}

func TestConcurrentAdvancesNeverRegress(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	for m := time.January; m <= time.November; m++ {
		wg.Add(1)
		go func(m time.Month) {
			defer wg.Done()
			_, _ = svc.AdvanceCutoff(ctx, AdvanceInput{CompanyID: 1, NewCutoff: day(2024, m, 1)})
		}(m)
	}
	wg.Wait()

	history, err := svc.History(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].New.Before(history[i-1].New))
		assert.Equal(t, history[i-1].New, history[i].Previous)
	}
	current, _ := svc.Cutoff(ctx, 1)
	assert.Equal(t, history[len(history)-1].New, current)
}

func TestAdvanceCutoffUsesCompanyLocalDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	svc, _, _ := newTestService(newMemoryRepo())
	svc.WithLocation(loc)
	// 01:30 UTC on May 1st is still April 30th in Sao Paulo.
	svc.WithNow(func() time.Time { return time.Date(2024, 5, 1, 1, 30, 0, 0, time.UTC) })
	ctx := context.Background()

	_, err = svc.AdvanceCutoff(ctx, AdvanceInput{CompanyID: 1, NewCutoff: day(2024, 5, 1)})
	require.ErrorIs(t, err, shared.ErrInvalidCutoff)

	change, err := svc.AdvanceCutoff(ctx, AdvanceInput{CompanyID: 1, NewCutoff: day(2024, 4, 30)})
	require.NoError(t, err)
	assert.Equal(t, day(2024, 4, 30), change.New)
	assert.Equal(t, time.Date(2024, 5, 1, 1, 30, 0, 0, time.UTC), change.ChangedAt)
}
