package importer

import (
	"context"
	"sync"
	"time"

	"github.com/Sconzo/lalur-sub001/internal/accounts"
	"github.com/Sconzo/lalur-sub001/internal/adjustments"
	"github.com/Sconzo/lalur-sub001/internal/ledger"
	"github.com/Sconzo/lalur-sub001/internal/parameters"
	"github.com/Sconzo/lalur-sub001/internal/periodlock"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

const testCompany int64 = 7

// chart is an in-memory chart of accounts keyed by code.
type chart struct {
	mu      sync.Mutex
	byCode  map[string]accounts.Ref
	lookups int
}

func newChart(refs ...accounts.Ref) *chart {
	c := &chart{byCode: map[string]accounts.Ref{}}
	for _, ref := range refs {
		c.byCode[ref.Code] = ref
	}
	return c
}

func (c *chart) RefByCode(ctx context.Context, companyID int64, fiscalYear int, code string) (accounts.Ref, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	ref, ok := c.byCode[code]
	if !ok || ref.FiscalYear != fiscalYear {
		return accounts.Ref{}, shared.ErrNotFound
	}
	return ref, nil
}

func (c *chart) Ref(ctx context.Context, companyID, id int64) (accounts.Ref, error) {
	for _, ref := range c.byCode {
		if ref.ID == id {
			return ref, nil
		}
	}
	return accounts.Ref{}, shared.ErrNotFound
}

type ledgerStore struct {
	mu       sync.Mutex
	entries  []ledger.Entry
	failAt   int
	cutoff   time.Time
	reject   map[int]error
	attempts int
}

func (s *ledgerStore) WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error {
	return fn(ctx, ledgerTx{s})
}

func (s *ledgerStore) Get(ctx context.Context, companyID, id int64) (ledger.Entry, error) {
	return ledger.Entry{}, shared.ErrNotFound
}

func (s *ledgerStore) ListForExport(ctx context.Context, f ledger.Filter) ([]ledger.ExportRow, error) {
	return nil, nil
}

type ledgerTx struct{ s *ledgerStore }

func (t ledgerTx) Cutoff(ctx context.Context, companyID int64) (time.Time, error) {
	return t.s.cutoff, nil
}

func (t ledgerTx) Insert(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.attempts++
	if t.s.failAt > 0 && len(t.s.entries)+1 == t.s.failAt {
		return ledger.Entry{}, errStoreDown
	}
	if err, ok := t.s.reject[t.s.attempts]; ok {
		return ledger.Entry{}, shared.MapPgError(err)
	}
	e.ID = int64(len(t.s.entries) + 1)
	t.s.entries = append(t.s.entries, e)
	return e, nil
}

func (t ledgerTx) GetForUpdate(ctx context.Context, companyID, id int64) (ledger.Entry, error) {
	return ledger.Entry{}, shared.ErrNotFound
}

func (t ledgerTx) Update(ctx context.Context, e ledger.Entry) (ledger.Entry, error) { return e, nil }

func (t ledgerTx) SetStatus(ctx context.Context, companyID, id int64, status shared.Status) error {
	return nil
}

type storeError string

func (e storeError) Error() string { return string(e) }

const errStoreDown = storeError("connection refused")

type fixedCutoff time.Time

func (f fixedCutoff) Cutoff(ctx context.Context, companyID int64) (time.Time, error) {
	return time.Time(f), nil
}

func newLedgerService(c *chart, store *ledgerStore, cutoff time.Time) *ledger.Service {
	store.cutoff = cutoff
	return ledger.NewService(store, c, periodlock.NewGuard(fixedCutoff(cutoff)), nil, nil)
}

type countingMetrics struct {
	mu   sync.Mutex
	rows map[string]int
	runs map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{rows: map[string]int{}, runs: map[string]int{}}
}

func (m *countingMetrics) ObserveImportRow(kind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[kind+"/"+outcome]++
}

func (m *countingMetrics) ObserveImportRun(kind, mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[kind+"/"+mode]++
}

type companyStub map[int64]bool

func (c companyStub) EnsureActive(ctx context.Context, companyID int64) error {
	if !c[companyID] {
		return shared.ErrNotFound
	}
	return nil
}

// parteB serves Parte B accounts and tax parameters by code and id.
type parteB struct {
	accounts map[string]accounts.AdjustmentAccount
	params   map[string]parameters.Parameter
}

func (p parteB) AdjustmentAccountByCode(ctx context.Context, companyID int64, code string) (accounts.AdjustmentAccount, error) {
	acc, ok := p.accounts[code]
	if !ok {
		return accounts.AdjustmentAccount{}, shared.ErrNotFound
	}
	return acc, nil
}

func (p parteB) AdjustmentAccountByID(ctx context.Context, companyID, id int64) (accounts.AdjustmentAccount, error) {
	for _, acc := range p.accounts {
		if acc.ID == id {
			return acc, nil
		}
	}
	return accounts.AdjustmentAccount{}, shared.ErrNotFound
}

func (p parteB) ParameterByCode(ctx context.Context, code string) (parameters.Parameter, error) {
	param, ok := p.params[code]
	if !ok {
		return parameters.Parameter{}, shared.ErrNotFound
	}
	return param, nil
}

func (p parteB) ParameterExists(ctx context.Context, id int64) (bool, error) {
	for _, param := range p.params {
		if param.ID == id {
			return true, nil
		}
	}
	return false, nil
}

type adjustmentStore struct {
	rows   []adjustments.Adjustment
	cutoff time.Time
}

func (s *adjustmentStore) WithTx(ctx context.Context, fn func(context.Context, adjustments.TxRepository) error) error {
	return fn(ctx, adjustmentTx{s})
}

func (s *adjustmentStore) ListForExport(ctx context.Context, f adjustments.Filter) ([]adjustments.ExportRow, error) {
	return nil, nil
}

type adjustmentTx struct{ s *adjustmentStore }

func (t adjustmentTx) Cutoff(ctx context.Context, companyID int64) (time.Time, error) {
	return t.s.cutoff, nil
}

func (t adjustmentTx) Insert(ctx context.Context, a adjustments.Adjustment) (adjustments.Adjustment, error) {
	a.ID = int64(len(t.s.rows) + 1)
	t.s.rows = append(t.s.rows, a)
	return a, nil
}

func (t adjustmentTx) GetForUpdate(ctx context.Context, companyID, id int64) (adjustments.Adjustment, error) {
	return adjustments.Adjustment{}, shared.ErrNotFound
}

func (t adjustmentTx) Update(ctx context.Context, a adjustments.Adjustment) (adjustments.Adjustment, error) {
	return a, nil
}

func (t adjustmentTx) SetStatus(ctx context.Context, companyID, id int64, status shared.Status) error {
	return nil
}

// accountStore backs accounts.Service and the code resolvers of the chart importer.
type accountStore struct {
	accounts   []accounts.Account
	references []accounts.ReferenceAccount
}

func (s *accountStore) InsertAccount(ctx context.Context, a accounts.Account) (accounts.Account, error) {
	for _, existing := range s.accounts {
		if existing.Code == a.Code && existing.FiscalYear == a.FiscalYear {
			return accounts.Account{}, shared.ErrDuplicate
		}
	}
	a.ID = int64(len(s.accounts) + 1)
	s.accounts = append(s.accounts, a)
	return a, nil
}

func (s *accountStore) InsertReferenceAccount(ctx context.Context, r accounts.ReferenceAccount) (accounts.ReferenceAccount, error) {
	for _, existing := range s.references {
		if existing.Code == r.Code && existing.ValidityYear == r.ValidityYear {
			return accounts.ReferenceAccount{}, shared.ErrDuplicate
		}
	}
	r.ID = int64(len(s.references) + 1)
	s.references = append(s.references, r)
	return r, nil
}

func (s *accountStore) RefByID(ctx context.Context, companyID, id int64) (accounts.Ref, error) {
	return accounts.Ref{}, shared.ErrNotFound
}

func (s *accountStore) ListAccounts(ctx context.Context, companyID int64, fiscalYear int) ([]accounts.ExportRow, error) {
	return nil, nil
}

func (s *accountStore) RefByCode(ctx context.Context, companyID int64, fiscalYear int, code string) (accounts.Ref, error) {
	for _, a := range s.accounts {
		if a.Code == code && a.FiscalYear == fiscalYear {
			return a.Ref(), nil
		}
	}
	return accounts.Ref{}, shared.ErrNotFound
}

func (s *accountStore) ReferenceAccountByCode(ctx context.Context, code string, validityYear int) (accounts.ReferenceAccount, error) {
	for _, r := range s.references {
		if r.Code == code && r.ValidityYear == validityYear {
			return r, nil
		}
	}
	return accounts.ReferenceAccount{}, shared.ErrNotFound
}

// lookups joins the ledger chart with the Parte B catalogue for adjustments.Service.
type lookups struct {
	*chart
	parteB
}
