package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sconzo/lalur-sub001/internal/platform/db"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// Repository persists chart of accounts entities and serves code lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertAccount stores a chart of accounts row.
func (r *Repository) InsertAccount(ctx context.Context, a Account) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (company_id, fiscal_year, code, name, account_type, reference_account_id, class, level, nature, affects_result, deductible, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id, created_at, updated_at`,
		a.CompanyID, a.FiscalYear, a.Code, a.Name, a.Type, db.NullInt64(a.ReferenceAccountID), a.Class, a.Level, a.Nature, a.AffectsResult, a.Deductible, a.Status)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Account{}, shared.MapPgError(err)
	}
	return a, nil
}

// InsertReferenceAccount stores a referential chart row.
func (r *Repository) InsertReferenceAccount(ctx context.Context, ref ReferenceAccount) (ReferenceAccount, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO reference_accounts (code, description, validity_year, status)
VALUES ($1,$2,$3,$4) RETURNING id`, ref.Code, ref.Description, ref.ValidityYear, ref.Status)
	if err := row.Scan(&ref.ID); err != nil {
		return ReferenceAccount{}, shared.MapPgError(err)
	}
	return ref, nil
}

// RefByID loads an active account of the company.
func (r *Repository) RefByID(ctx context.Context, companyID, id int64) (Ref, error) {
	var ref Ref
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, fiscal_year FROM accounts
WHERE company_id=$1 AND id=$2 AND status='ACTIVE'`, companyID, id).Scan(&ref.ID, &ref.Code, &ref.Name, &ref.FiscalYear)
	if err != nil {
		return Ref{}, notFound(err, "account %d", id)
	}
	return ref, nil
}

// RefByCode resolves an account code within a company and fiscal year.
func (r *Repository) RefByCode(ctx context.Context, companyID int64, fiscalYear int, code string) (Ref, error) {
	var ref Ref
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, fiscal_year FROM accounts
WHERE company_id=$1 AND fiscal_year=$2 AND code=$3 AND status='ACTIVE'`, companyID, fiscalYear, code).Scan(&ref.ID, &ref.Code, &ref.Name, &ref.FiscalYear)
	if err != nil {
		return Ref{}, notFound(err, "account %s/%d", code, fiscalYear)
	}
	return ref, nil
}

// ReferenceAccountByCode resolves a referential chart code for a validity year.
func (r *Repository) ReferenceAccountByCode(ctx context.Context, code string, validityYear int) (ReferenceAccount, error) {
	var ref ReferenceAccount
	err := r.pool.QueryRow(ctx, `SELECT id, code, description, validity_year, status FROM reference_accounts
WHERE code=$1 AND validity_year=$2 AND status='ACTIVE'`, code, validityYear).Scan(&ref.ID, &ref.Code, &ref.Description, &ref.ValidityYear, &ref.Status)
	if err != nil {
		return ReferenceAccount{}, notFound(err, "reference account %s/%d", code, validityYear)
	}
	return ref, nil
}

// AdjustmentAccountByCode resolves a Parte B account code of the company.
func (r *Repository) AdjustmentAccountByCode(ctx context.Context, companyID int64, code string) (AdjustmentAccount, error) {
	return r.adjustmentAccount(ctx, `company_id=$1 AND code=$2`, companyID, code)
}

// AdjustmentAccountByID loads a Parte B account of the company.
func (r *Repository) AdjustmentAccountByID(ctx context.Context, companyID, id int64) (AdjustmentAccount, error) {
	return r.adjustmentAccount(ctx, `company_id=$1 AND id=$2`, companyID, id)
}

func (r *Repository) adjustmentAccount(ctx context.Context, where string, args ...any) (AdjustmentAccount, error) {
	var acc AdjustmentAccount
	err := r.pool.QueryRow(ctx, `SELECT id, company_id, code, description, status FROM adjustment_accounts
WHERE `+where+` AND status='ACTIVE'`, args...).Scan(&acc.ID, &acc.CompanyID, &acc.Code, &acc.Description, &acc.Status)
	if err != nil {
		return AdjustmentAccount{}, notFound(err, "adjustment account %v", args[1])
	}
	return acc, nil
}

// ListAccounts returns active accounts of a fiscal year ordered by code.
func (r *Repository) ListAccounts(ctx context.Context, companyID int64, fiscalYear int) ([]ExportRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.company_id, a.fiscal_year, a.code, a.name, a.account_type, a.reference_account_id,
a.class, a.level, a.nature, a.affects_result, a.deductible, a.status, a.created_at, a.updated_at, COALESCE(ra.code, '')
FROM accounts a LEFT JOIN reference_accounts ra ON ra.id = a.reference_account_id
WHERE a.company_id=$1 AND a.fiscal_year=$2 AND a.status='ACTIVE' ORDER BY a.code, a.id`, companyID, fiscalYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExportRow
	for rows.Next() {
		var row ExportRow
		if err := rows.Scan(&row.ID, &row.CompanyID, &row.FiscalYear, &row.Code, &row.Name, &row.Type, &row.ReferenceAccountID,
			&row.Class, &row.Level, &row.Nature, &row.AffectsResult, &row.Deductible, &row.Status, &row.CreatedAt, &row.UpdatedAt, &row.ReferenceCode); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), shared.ErrNotFound)
	}
	return err
}
