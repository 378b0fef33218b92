package companies

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id int64) (Company, error)
	Create(ctx context.Context, company Company) (Company, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `SELECT id, cnpj, name, status, created_at, updated_at FROM companies WHERE id = $1`, id).
		Scan(&c.ID, &c.CNPJ, &c.Name, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, fmt.Errorf("company %d: %w", id, shared.ErrNotFound)
	}
	return c, err
}

func (r *repository) Create(ctx context.Context, company Company) (Company, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO companies (cnpj, name, status) VALUES ($1, $2, $3)
RETURNING id, created_at, updated_at`, company.CNPJ, company.Name, company.Status).Scan(&company.ID, &company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		return Company{}, shared.MapPgError(err)
	}
	return company, nil
}
