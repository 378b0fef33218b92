package companies

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (Company, error) {
	if id <= 0 {
		return Company{}, shared.NewFieldError(shared.ErrMissingParameter, "companyId", "company is required")
	}
	return s.repo.Get(ctx, id)
}

// EnsureActive fails unless the company exists and is ACTIVE.
func (s *Service) EnsureActive(ctx context.Context, id int64) error {
	company, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if company.Status != shared.StatusActive {
		return fmt.Errorf("company %d is inactive: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, company Company) (Company, error) {
	company.CNPJ = digits(company.CNPJ)
	company.Name = strings.TrimSpace(company.Name)
	if err := validate(company); err != nil {
		return Company{}, err
	}
	company.Status = shared.StatusActive
	return s.repo.Create(ctx, company)
}

func validate(c Company) error {
	if len(c.CNPJ) != 14 {
		return shared.NewFieldError(shared.ErrValidation, "cnpj", "cnpj must have 14 digits")
	}
	if c.Name == "" {
		return shared.NewFieldError(shared.ErrValidation, "name", "company name is required")
	}
	return nil
}

func digits(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)
}
