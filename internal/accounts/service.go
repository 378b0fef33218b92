package accounts

import (
	"context"
	"strings"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// Store persists chart of accounts entities.
type Store interface {
	InsertAccount(ctx context.Context, a Account) (Account, error)
	InsertReferenceAccount(ctx context.Context, r ReferenceAccount) (ReferenceAccount, error)
	RefByID(ctx context.Context, companyID, id int64) (Ref, error)
	ListAccounts(ctx context.Context, companyID int64, fiscalYear int) ([]ExportRow, error)
}

// Service validates and persists chart of accounts rows.
type Service struct {
	store Store
}

// NewService constructs the service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateAccount validates and inserts a chart of accounts row. Code uniqueness per
// company and fiscal year is enforced by the store.
func (s *Service) CreateAccount(ctx context.Context, a Account) (Account, error) {
	a.Code = strings.TrimSpace(a.Code)
	a.Name = strings.TrimSpace(a.Name)
	if err := ValidateAccount(a); err != nil {
		return Account{}, err
	}
	a.Status = shared.StatusActive
	return s.store.InsertAccount(ctx, a)
}

// CreateReferenceAccount validates and inserts a referential chart row.
func (s *Service) CreateReferenceAccount(ctx context.Context, r ReferenceAccount) (ReferenceAccount, error) {
	r.Code = strings.TrimSpace(r.Code)
	r.Description = strings.TrimSpace(r.Description)
	if err := ValidateReferenceAccount(r); err != nil {
		return ReferenceAccount{}, err
	}
	r.Status = shared.StatusActive
	return s.store.InsertReferenceAccount(ctx, r)
}

// Ref loads an account reference by id.
func (s *Service) Ref(ctx context.Context, companyID, id int64) (Ref, error) {
	return s.store.RefByID(ctx, companyID, id)
}

// ListForExport returns the company's accounts for a fiscal year ordered by code.
func (s *Service) ListForExport(ctx context.Context, companyID int64, fiscalYear int) ([]ExportRow, error) {
	return s.store.ListAccounts(ctx, companyID, fiscalYear)
}
