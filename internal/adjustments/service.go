package adjustments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Sconzo/lalur-sub001/internal/accounts"
	"github.com/Sconzo/lalur-sub001/internal/periodlock"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// RepositoryPort exposes adjustment persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListForExport(ctx context.Context, f Filter) ([]ExportRow, error)
}

// TxRepository is the transactional view of the adjustment store.
type TxRepository interface {
	periodlock.CutoffReader
	Insert(ctx context.Context, a Adjustment) (Adjustment, error)
	GetForUpdate(ctx context.Context, companyID, id int64) (Adjustment, error)
	Update(ctx context.Context, a Adjustment) (Adjustment, error)
	SetStatus(ctx context.Context, companyID, id int64, status shared.Status) error
}

// AccountLookup loads the ledger and Parte B accounts an adjustment may point at.
type AccountLookup interface {
	Ref(ctx context.Context, companyID, id int64) (accounts.Ref, error)
	AdjustmentAccountByID(ctx context.Context, companyID, id int64) (accounts.AdjustmentAccount, error)
}

// ParameterLookup reports whether a tax parameter exists.
type ParameterLookup interface {
	ParameterExists(ctx context.Context, id int64) (bool, error)
}

// PeriodGuard blocks writes inside a closed accounting period. The In variants read
// the cutoff through the write transaction.
type PeriodGuard interface {
	AuthorizeRecord(ctx context.Context, rec periodlock.Dated, op periodlock.Operation) error
	AuthorizeRecordIn(ctx context.Context, src periodlock.CutoffReader, rec periodlock.Dated, op periodlock.Operation) error
	AuthorizeUpdateIn(ctx context.Context, src periodlock.CutoffReader, original, updated periodlock.Dated) error
}

// AuditPort records adjustment mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates fiscal adjustment mutations.
type Service struct {
	repo   RepositoryPort
	accts  AccountLookup
	params ParameterLookup
	guard  PeriodGuard
	audit  AuditPort
	logger *slog.Logger
}

// NewService constructs the adjustment service. audit may be nil.
func NewService(repo RepositoryPort, accts AccountLookup, params ParameterLookup, guard PeriodGuard, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, accts: accts, params: params, guard: guard, audit: audit, logger: logger}
}

// Check validates an adjustment for creation without persisting it.
func (s *Service) Check(ctx context.Context, a Adjustment) error {
	if err := ValidateRelationship(a); err != nil {
		return err
	}
	return s.guard.AuthorizeRecord(ctx, a, periodlock.OpCreate)
}

// CreateResolved inserts an adjustment whose references were resolved by the caller.
func (s *Service) CreateResolved(ctx context.Context, a Adjustment) (Adjustment, error) {
	a.Description = strings.TrimSpace(a.Description)
	if err := s.Check(ctx, a); err != nil {
		return Adjustment{}, err
	}
	a.Status = shared.StatusActive
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.guard.AuthorizeRecordIn(ctx, tx, a, periodlock.OpCreate); err != nil {
			return err
		}
		var err error
		a, err = tx.Insert(ctx, a)
		return err
	})
	if err != nil {
		return Adjustment{}, err
	}
	s.record(ctx, "adjustment.create", a)
	return a, nil
}

// Create verifies the referenced records exist and inserts the adjustment.
func (s *Service) Create(ctx context.Context, a Adjustment) (Adjustment, error) {
	a.Description = strings.TrimSpace(a.Description)
	if err := ValidateRelationship(a); err != nil {
		return Adjustment{}, err
	}
	if err := s.verifyReferences(ctx, a); err != nil {
		return Adjustment{}, err
	}
	return s.CreateResolved(ctx, a)
}

// Update revalidates the full new adjustment, even when the relationship kind changed.
func (s *Service) Update(ctx context.Context, a Adjustment) (Adjustment, error) {
	if a.ID <= 0 {
		return Adjustment{}, shared.NewFieldError(shared.ErrValidation, "id", "adjustment id is required")
	}
	a.Description = strings.TrimSpace(a.Description)
	if err := ValidateRelationship(a); err != nil {
		return Adjustment{}, err
	}
	if err := s.verifyReferences(ctx, a); err != nil {
		return Adjustment{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetForUpdate(ctx, a.CompanyID, a.ID)
		if err != nil {
			return err
		}
		if original.Status != shared.StatusActive {
			return fmt.Errorf("adjustment %d: %w", a.ID, shared.ErrNotFound)
		}
		if err := s.guard.AuthorizeUpdateIn(ctx, tx, original, a); err != nil {
			return err
		}
		a.Status = original.Status
		a.CreatedAt = original.CreatedAt
		a, err = tx.Update(ctx, a)
		return err
	})
	if err != nil {
		return Adjustment{}, err
	}
	s.record(ctx, "adjustment.update", a)
	return a, nil
}

// Deactivate flips an adjustment to INACTIVE when its month is still open.
func (s *Service) Deactivate(ctx context.Context, companyID, id int64) error {
	var a Adjustment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		a, err = tx.GetForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if err := s.guard.AuthorizeRecordIn(ctx, tx, a, periodlock.OpDelete); err != nil {
			return err
		}
		return tx.SetStatus(ctx, companyID, id, shared.StatusInactive)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "adjustment.deactivate", a)
	return nil
}

// ListForExport returns active adjustments ordered by year, month and id.
func (s *Service) ListForExport(ctx context.Context, f Filter) ([]ExportRow, error) {
	if f.CompanyID <= 0 {
		return nil, shared.NewFieldError(shared.ErrMissingParameter, "companyId", "company is required")
	}
	if f.FiscalYear <= 0 {
		return nil, shared.NewFieldError(shared.ErrMissingParameter, "fiscalYear", "fiscal year is required")
	}
	return s.repo.ListForExport(ctx, f)
}

func (s *Service) verifyReferences(ctx context.Context, a Adjustment) error {
	if a.LedgerAccountID != nil {
		ref, err := s.accts.Ref(ctx, a.CompanyID, *a.LedgerAccountID)
		if err != nil {
			return unresolved(err, "ledgerAccountId", "ledger account %d not found", *a.LedgerAccountID)
		}
		if ref.FiscalYear != a.Year {
			return shared.NewFieldError(shared.ErrFiscalYearMismatch, "ledgerAccountId",
				"ledger account %s belongs to fiscal year %d, adjustment is %d", ref.Code, ref.FiscalYear, a.Year)
		}
	}
	if a.AdjustmentAccountID != nil {
		if _, err := s.accts.AdjustmentAccountByID(ctx, a.CompanyID, *a.AdjustmentAccountID); err != nil {
			return unresolved(err, "adjustmentAccountId", "adjustment account %d not found", *a.AdjustmentAccountID)
		}
	}
	ok, err := s.params.ParameterExists(ctx, a.TaxParameterID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewFieldError(shared.ErrUnresolvedReference, "taxParameterId", "tax parameter %d not found", a.TaxParameterID)
	}
	return nil
}

func unresolved(err error, field, format string, args ...any) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewFieldError(shared.ErrUnresolvedReference, field, format, args...)
	}
	return err
}

func (s *Service) record(ctx context.Context, action string, a Adjustment) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		CompanyID: a.CompanyID,
		ActorID:   shared.ActorFromContext(ctx),
		Action:    action,
		Entity:    "fiscal_adjustment",
		EntityID:  fmt.Sprint(a.ID),
		Meta: map[string]any{
			"period":    fmt.Sprintf("%04d-%02d", a.Year, a.Month),
			"direction": string(a.Direction),
			"amount":    a.Amount.StringFixed(2),
		},
		At: time.Now(),
	})
	if err != nil {
		s.logger.Warn("adjustment audit failed", slog.String("action", action), slog.Int64("adjustment_id", a.ID), slog.Any("error", err))
	}
}
