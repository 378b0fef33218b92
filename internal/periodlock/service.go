package periodlock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// RepositoryPort exposes the cutoff store.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Cutoff(ctx context.Context, companyID int64) (time.Time, error)
	History(ctx context.Context, companyID int64) ([]Change, error)
}

// TxRepository is the transactional view used while advancing a cutoff.
type TxRepository interface {
	LockCutoff(ctx context.Context, companyID int64) (time.Time, error)
	SetCutoff(ctx context.Context, companyID int64, cutoff time.Time) error
	InsertChange(ctx context.Context, change Change) (Change, error)
}

// AuditPort mirrors cutoff moves into the generic audit log.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Invalidator drops cached cutoffs after a commit.
type Invalidator interface {
	Invalidate(ctx context.Context, companyID int64)
}

// Service moves the accounting period cutoff forward.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	cache  Invalidator
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

// NewService constructs the cutoff service. audit and cache may be nil.
func NewService(repo RepositoryPort, audit AuditPort, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, logger: logger, now: time.Now, loc: time.UTC}
}

// WithLocation sets the zone whose calendar date bounds a new cutoff.
func (s *Service) WithLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Cutoff returns the stored cutoff for a company.
func (s *Service) Cutoff(ctx context.Context, companyID int64) (time.Time, error) {
	return s.repo.Cutoff(ctx, companyID)
}

// History returns every accepted cutoff move, oldest first.
func (s *Service) History(ctx context.Context, companyID int64) ([]Change, error) {
	if companyID <= 0 {
		return nil, shared.NewFieldError(shared.ErrMissingParameter, "companyId", "companyId is required")
	}
	return s.repo.History(ctx, companyID)
}

// AdvanceCutoff locks the company row, checks monotonicity and writes the new cutoff
// together with its audit row.
func (s *Service) AdvanceCutoff(ctx context.Context, in AdvanceInput) (Change, error) {
	if in.CompanyID <= 0 {
		return Change{}, shared.NewFieldError(shared.ErrMissingParameter, "companyId", "companyId is required")
	}
	now := s.now()
	today := shared.DateOnly(now.In(s.loc))
	var change Change
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockCutoff(ctx, in.CompanyID)
		if err != nil {
			return err
		}
		if err := validateAdvance(current, in.NewCutoff, today); err != nil {
			return err
		}
		next := shared.DateOnly(in.NewCutoff)
		if err := tx.SetCutoff(ctx, in.CompanyID, next); err != nil {
			return err
		}
		change, err = tx.InsertChange(ctx, Change{
			CompanyID: in.CompanyID,
			Previous:  shared.DateOnly(current),
			New:       next,
			ChangedBy: in.ActorID,
			ChangedAt: now.UTC(),
		})
		return err
	})
	if err != nil {
		return Change{}, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, in.CompanyID)
	}
	if s.audit != nil {
		meta := map[string]any{"new": change.New.Format(time.DateOnly)}
		if !change.Previous.IsZero() {
			meta["previous"] = change.Previous.Format(time.DateOnly)
		}
		if err := s.audit.Record(ctx, shared.AuditLog{
			CompanyID: in.CompanyID,
			ActorID:   in.ActorID,
			Action:    "cutoff.advance",
			Entity:    "company",
			EntityID:  fmt.Sprint(in.CompanyID),
			Meta:      meta,
			At:        now.UTC(),
		}); err != nil {
			s.logger.Warn("cutoff audit mirror failed", slog.Int64("company_id", in.CompanyID), slog.Any("error", err))
		}
	}
	s.logger.Info("accounting cutoff advanced",
		slog.Int64("company_id", in.CompanyID),
		slog.String("previous", formatDate(change.Previous)),
		slog.String("cutoff", formatDate(change.New)))
	return change, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
