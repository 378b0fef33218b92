package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sconzo/lalur-sub001/internal/accounts"
	"github.com/Sconzo/lalur-sub001/internal/periodlock"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// RepositoryPort exposes ledger persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, companyID, id int64) (Entry, error)
	ListForExport(ctx context.Context, f Filter) ([]ExportRow, error)
}

// TxRepository is the transactional view of the ledger store. Its Cutoff holds the
// company cutoff steady until commit.
type TxRepository interface {
	periodlock.CutoffReader
	Insert(ctx context.Context, e Entry) (Entry, error)
	GetForUpdate(ctx context.Context, companyID, id int64) (Entry, error)
	Update(ctx context.Context, e Entry) (Entry, error)
	SetStatus(ctx context.Context, companyID, id int64, status shared.Status) error
}

// AccountLookup loads account facts by id.
type AccountLookup interface {
	Ref(ctx context.Context, companyID, id int64) (accounts.Ref, error)
}

// PeriodGuard blocks writes inside a closed accounting period. The In variants read
// the cutoff through the write transaction.
type PeriodGuard interface {
	AuthorizeRecord(ctx context.Context, rec periodlock.Dated, op periodlock.Operation) error
	AuthorizeRecordIn(ctx context.Context, src periodlock.CutoffReader, rec periodlock.Dated, op periodlock.Operation) error
	AuthorizeUpdateIn(ctx context.Context, src periodlock.CutoffReader, original, updated periodlock.Dated) error
}

// AuditPort records ledger mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates ledger entry mutations. The same rulebook backs single-record
// calls and bulk imports.
type Service struct {
	repo     RepositoryPort
	accounts AccountLookup
	guard    PeriodGuard
	audit    AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the ledger service. audit may be nil.
func NewService(repo RepositoryPort, lookup AccountLookup, guard PeriodGuard, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, accounts: lookup, guard: guard, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Resolve loads the accounts referenced by e. Unknown ids leave the side nil.
func (s *Service) Resolve(ctx context.Context, e Entry) (Candidate, error) {
	c := Candidate{Entry: e.normalized()}
	var err error
	if c.Debit, err = s.lookup(ctx, e.CompanyID, e.DebitAccountID); err != nil {
		return Candidate{}, err
	}
	if c.Credit, err = s.lookup(ctx, e.CompanyID, e.CreditAccountID); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

func (s *Service) lookup(ctx context.Context, companyID, id int64) (*accounts.Ref, error) {
	if id <= 0 {
		return nil, nil
	}
	ref, err := s.accounts.Ref(ctx, companyID, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// Check validates a candidate for creation without persisting it.
func (s *Service) Check(ctx context.Context, c Candidate) error {
	if c.Entry.CompanyID <= 0 {
		return shared.NewFieldError(shared.ErrMissingParameter, "companyId", "company is required")
	}
	if err := ValidateEntry(c); err != nil {
		return err
	}
	return s.guard.AuthorizeRecord(ctx, bind(c), periodlock.OpCreate)
}

// CreateResolved validates and inserts a candidate whose accounts are already resolved.
func (s *Service) CreateResolved(ctx context.Context, c Candidate) (Entry, error) {
	c.Entry = c.Entry.normalized()
	if err := s.Check(ctx, c); err != nil {
		return Entry{}, err
	}
	entry := bind(c)
	entry.Status = shared.StatusActive
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.guard.AuthorizeRecordIn(ctx, tx, entry, periodlock.OpCreate); err != nil {
			return err
		}
		var err error
		entry, err = tx.Insert(ctx, entry)
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, "ledger.create", entry)
	return entry, nil
}

// Create resolves the referenced accounts and inserts the entry.
func (s *Service) Create(ctx context.Context, e Entry) (Entry, error) {
	c, err := s.Resolve(ctx, e)
	if err != nil {
		return Entry{}, err
	}
	return s.CreateResolved(ctx, c)
}

// Update revalidates the full new entry and requires both the stored and the new
// reference date to be open.
func (s *Service) Update(ctx context.Context, e Entry) (Entry, error) {
	if e.ID <= 0 {
		return Entry{}, shared.NewFieldError(shared.ErrValidation, "id", "entry id is required")
	}
	c, err := s.Resolve(ctx, e)
	if err != nil {
		return Entry{}, err
	}
	if c.Entry.CompanyID <= 0 {
		return Entry{}, shared.NewFieldError(shared.ErrMissingParameter, "companyId", "company is required")
	}
	if err := ValidateEntry(c); err != nil {
		return Entry{}, err
	}
	updated := bind(c)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetForUpdate(ctx, updated.CompanyID, updated.ID)
		if err != nil {
			return err
		}
		if original.Status != shared.StatusActive {
			return fmt.Errorf("ledger entry %d: %w", updated.ID, shared.ErrNotFound)
		}
		if err := s.guard.AuthorizeUpdateIn(ctx, tx, original, updated); err != nil {
			return err
		}
		updated.Status = original.Status
		updated.CreatedAt = original.CreatedAt
		updated, err = tx.Update(ctx, updated)
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, "ledger.update", updated)
	return updated, nil
}

// Deactivate flips an entry to INACTIVE when its period is still open.
func (s *Service) Deactivate(ctx context.Context, companyID, id int64) error {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = tx.GetForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if err := s.guard.AuthorizeRecordIn(ctx, tx, entry, periodlock.OpDelete); err != nil {
			return err
		}
		return tx.SetStatus(ctx, companyID, id, shared.StatusInactive)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "ledger.deactivate", entry)
	return nil
}

// Get returns one entry of the company.
func (s *Service) Get(ctx context.Context, companyID, id int64) (Entry, error) {
	return s.repo.Get(ctx, companyID, id)
}

// ListForExport returns active entries ordered by reference date then id.
func (s *Service) ListForExport(ctx context.Context, f Filter) ([]ExportRow, error) {
	if f.CompanyID <= 0 {
		return nil, shared.NewFieldError(shared.ErrMissingParameter, "companyId", "company is required")
	}
	if f.FiscalYear <= 0 {
		return nil, shared.NewFieldError(shared.ErrMissingParameter, "fiscalYear", "fiscal year is required")
	}
	return s.repo.ListForExport(ctx, f)
}

func (s *Service) record(ctx context.Context, action string, e Entry) {
	if s.audit == nil {
		return
	}
	actor := shared.ActorFromContext(ctx)
	err := s.audit.Record(ctx, shared.AuditLog{
		CompanyID: e.CompanyID,
		ActorID:   actor,
		Action:    action,
		Entity:    "ledger_entry",
		EntityID:  fmt.Sprint(e.ID),
		Meta: map[string]any{
			"reference_date": e.Date.Format(time.DateOnly),
			"amount":         e.Amount.StringFixed(2),
		},
		At: s.now(),
	})
	if err != nil {
		s.logger.Warn("ledger audit failed", slog.String("action", action), slog.Int64("entry_id", e.ID), slog.Any("error", err))
	}
}

// bind copies the resolved account ids into the entry.
func bind(c Candidate) Entry {
	e := c.Entry
	if c.Debit != nil {
		e.DebitAccountID = c.Debit.ID
	}
	if c.Credit != nil {
		e.CreditAccountID = c.Credit.ID
	}
	return e
}
