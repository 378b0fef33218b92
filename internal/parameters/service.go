package parameters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Sconzo/lalur-sub001/internal/periodlock"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// RepositoryPort exposes parameter catalogue and association persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ParameterByID(ctx context.Context, id int64) (Parameter, error)
	ParameterByCode(ctx context.Context, code string) (Parameter, error)
	ListTimeline(ctx context.Context, companyID int64) ([]TimelineItem, error)
}

// TxRepository is the transactional view of associations and their values.
type TxRepository interface {
	periodlock.CutoffReader
	InsertAssociation(ctx context.Context, a Association) (Association, error)
	GetAssociationForUpdate(ctx context.Context, companyID, id int64) (Association, error)
	ListValues(ctx context.Context, associationID int64) ([]TemporalValue, error)
	InsertValue(ctx context.Context, v TemporalValue) (TemporalValue, error)
	DeleteValue(ctx context.Context, associationID, valueID int64) error
	SetAssociationStatus(ctx context.Context, companyID, id int64, status shared.Status) error
}

// PeriodGuard blocks writes inside a closed accounting period, reading the cutoff
// through the write transaction.
type PeriodGuard interface {
	AuthorizeRecordIn(ctx context.Context, src periodlock.CutoffReader, rec periodlock.Dated, op periodlock.Operation) error
}

// AuditPort records association changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages parameter associations and their periods.
type Service struct {
	repo   RepositoryPort
	guard  PeriodGuard
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the parameter service. audit may be nil.
func NewService(repo RepositoryPort, guard PeriodGuard, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, guard: guard, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ParameterByCode resolves a catalogue code.
func (s *Service) ParameterByCode(ctx context.Context, code string) (Parameter, error) {
	return s.repo.ParameterByCode(ctx, strings.TrimSpace(code))
}

// ParameterExists reports whether a catalogue entry exists.
func (s *Service) ParameterExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.ParameterByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Associate links a parameter to a company. Periodic parameters need at least one
// period; global parameters accept none.
func (s *Service) Associate(ctx context.Context, in AssociateInput) (Association, error) {
	if in.CompanyID <= 0 {
		return Association{}, shared.NewFieldError(shared.ErrMissingParameter, "companyId", "company is required")
	}
	param, err := s.repo.ParameterByID(ctx, in.ParameterID)
	if errors.Is(err, shared.ErrNotFound) {
		return Association{}, shared.NewFieldError(shared.ErrUnresolvedReference, "parameterId", "tax parameter %d not found", in.ParameterID)
	}
	if err != nil {
		return Association{}, err
	}
	nature := param.Type.Nature
	if nature == NatureGlobal && len(in.Values) > 0 {
		return Association{}, shared.NewFieldError(shared.ErrUnexpectedTemporalValue, "values", "global parameter %s does not accept periods", param.Code)
	}
	if nature.Periodic() && len(in.Values) == 0 {
		return Association{}, shared.NewFieldError(shared.ErrInvalidTemporalValue, "values", "periodic parameter %s needs at least one period", param.Code)
	}
	accepted := make([]TemporalValue, 0, len(in.Values))
	for _, v := range in.Values {
		if err := ValidateTemporalValue(nature, v, accepted); err != nil {
			return Association{}, err
		}
		accepted = append(accepted, v)
	}

	assoc := Association{
		CompanyID:   in.CompanyID,
		ParameterID: param.ID,
		Nature:      nature,
		CreatedBy:   in.ActorID,
		CreatedAt:   s.now(),
		Status:      shared.StatusActive,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, v := range accepted {
			if err := s.guard.AuthorizeRecordIn(ctx, tx, DatedValue{CompanyID: in.CompanyID, Value: v}, periodlock.OpCreate); err != nil {
				return err
			}
		}
		var err error
		assoc, err = tx.InsertAssociation(ctx, assoc)
		if err != nil {
			return err
		}
		for _, v := range accepted {
			v.AssociationID = assoc.ID
			stored, err := tx.InsertValue(ctx, v)
			if err != nil {
				return err
			}
			assoc.Values = append(assoc.Values, stored)
		}
		return nil
	})
	if err != nil {
		return Association{}, err
	}
	s.record(ctx, "parameter.associate", assoc, map[string]any{"parameter": param.Code, "periods": len(assoc.Values)})
	return assoc, nil
}

// AddValue attaches one more period to an association.
func (s *Service) AddValue(ctx context.Context, companyID, associationID int64, v TemporalValue) (TemporalValue, error) {
	var assoc Association
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		assoc, err = s.activeAssociation(ctx, tx, companyID, associationID)
		if err != nil {
			return err
		}
		existing, err := tx.ListValues(ctx, associationID)
		if err != nil {
			return err
		}
		if err := ValidateTemporalValue(assoc.Nature, v, existing); err != nil {
			return err
		}
		if err := s.guard.AuthorizeRecordIn(ctx, tx, DatedValue{CompanyID: companyID, Value: v}, periodlock.OpCreate); err != nil {
			return err
		}
		v.AssociationID = associationID
		v, err = tx.InsertValue(ctx, v)
		return err
	})
	if err != nil {
		return TemporalValue{}, err
	}
	s.record(ctx, "parameter.value.add", assoc, map[string]any{"period": Label(v)})
	return v, nil
}

// RemoveValue deletes a period when it is still open. The last period of a
// periodic association cannot be removed; deactivate the association instead.
func (s *Service) RemoveValue(ctx context.Context, companyID, associationID, valueID int64) error {
	var (
		assoc   Association
		removed TemporalValue
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		assoc, err = s.activeAssociation(ctx, tx, companyID, associationID)
		if err != nil {
			return err
		}
		values, err := tx.ListValues(ctx, associationID)
		if err != nil {
			return err
		}
		found := false
		for _, v := range values {
			if v.ID == valueID {
				removed, found = v, true
				break
			}
		}
		if !found {
			return fmt.Errorf("temporal value %d: %w", valueID, shared.ErrNotFound)
		}
		if len(values) == 1 {
			return shared.NewFieldError(shared.ErrInvalidTemporalValue, "values", "periodic parameter needs at least one period")
		}
		if err := s.guard.AuthorizeRecordIn(ctx, tx, DatedValue{CompanyID: companyID, Value: removed}, periodlock.OpDelete); err != nil {
			return err
		}
		return tx.DeleteValue(ctx, associationID, valueID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "parameter.value.remove", assoc, map[string]any{"period": Label(removed)})
	return nil
}

// Deactivate flips an association to INACTIVE. Every period it owns must be open.
func (s *Service) Deactivate(ctx context.Context, companyID, associationID int64) error {
	var assoc Association
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		assoc, err = s.activeAssociation(ctx, tx, companyID, associationID)
		if err != nil {
			return err
		}
		values, err := tx.ListValues(ctx, associationID)
		if err != nil {
			return err
		}
		for _, v := range values {
			if err := s.guard.AuthorizeRecordIn(ctx, tx, DatedValue{CompanyID: companyID, Value: v}, periodlock.OpDelete); err != nil {
				return err
			}
		}
		return tx.SetAssociationStatus(ctx, companyID, associationID, shared.StatusInactive)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "parameter.deactivate", assoc, nil)
	return nil
}

// Timeline renders the company's periodic associations grouped by parameter type.
func (s *Service) Timeline(ctx context.Context, companyID int64) ([]TimelineGroup, error) {
	if companyID <= 0 {
		return nil, shared.NewFieldError(shared.ErrMissingParameter, "companyId", "company is required")
	}
	items, err := s.repo.ListTimeline(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return BuildTimeline(items), nil
}

func (s *Service) activeAssociation(ctx context.Context, tx TxRepository, companyID, id int64) (Association, error) {
	assoc, err := tx.GetAssociationForUpdate(ctx, companyID, id)
	if err != nil {
		return Association{}, err
	}
	if assoc.Status != shared.StatusActive {
		return Association{}, fmt.Errorf("association %d: %w", id, shared.ErrNotFound)
	}
	return assoc, nil
}

func (s *Service) record(ctx context.Context, action string, a Association, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		CompanyID: a.CompanyID,
		ActorID:   shared.ActorFromContext(ctx),
		Action:    action,
		Entity:    "parameter_association",
		EntityID:  fmt.Sprint(a.ID),
		Meta:      meta,
		At:        s.now(),
	})
	if err != nil {
		s.logger.Warn("parameter audit failed", slog.String("action", action), slog.Int64("association_id", a.ID), slog.Any("error", err))
	}
}
