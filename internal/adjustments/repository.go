package adjustments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Sconzo/lalur-sub001/internal/periodlock"
	"github.com/Sconzo/lalur-sub001/internal/platform/db"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

const adjustmentColumns = `id, company_id, month, year, apportionment, relationship, ledger_account_id, adjustment_account_id,
tax_parameter_id, direction, description, amount::text, status, created_at, updated_at`

// Repository persists fiscal adjustments in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

type txRepository struct {
	tx pgx.Tx
}

// NewRepository constructs a Postgres backed adjustment repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// ListForExport returns active adjustments with codes for every reference.
func (r *Repository) ListForExport(ctx context.Context, f Filter) ([]ExportRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT fa.id, fa.company_id, fa.month, fa.year, fa.apportionment, fa.relationship,
fa.ledger_account_id, fa.adjustment_account_id, fa.tax_parameter_id, fa.direction, fa.description, fa.amount::text,
fa.status, fa.created_at, fa.updated_at, COALESCE(a.code, ''), COALESCE(aa.code, ''), tp.code
FROM fiscal_adjustments fa
LEFT JOIN accounts a ON a.id = fa.ledger_account_id
LEFT JOIN adjustment_accounts aa ON aa.id = fa.adjustment_account_id
JOIN tax_parameters tp ON tp.id = fa.tax_parameter_id
WHERE fa.company_id = $1 AND fa.year = $2 AND fa.status = 'ACTIVE'
ORDER BY fa.year, fa.month, fa.id`, f.CompanyID, f.FiscalYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExportRow
	for rows.Next() {
		var (
			row    ExportRow
			amount string
		)
		if err := rows.Scan(&row.ID, &row.CompanyID, &row.Month, &row.Year, &row.Apportionment, &row.Relationship,
			&row.LedgerAccountID, &row.AdjustmentAccountID, &row.TaxParameterID, &row.Direction, &row.Description, &amount,
			&row.Status, &row.CreatedAt, &row.UpdatedAt, &row.LedgerAccountCode, &row.AdjustmentAccountCode, &row.TaxParameterCode); err != nil {
			return nil, err
		}
		if row.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Cutoff reads the company cutoff under a share lock held until commit.
func (t *txRepository) Cutoff(ctx context.Context, companyID int64) (time.Time, error) {
	return periodlock.ShareCutoff(ctx, t.tx, companyID)
}

func (t *txRepository) Insert(ctx context.Context, a Adjustment) (Adjustment, error) {
	row := t.tx.QueryRow(ctx, `INSERT INTO fiscal_adjustments (company_id, month, year, apportionment, relationship,
ledger_account_id, adjustment_account_id, tax_parameter_id, direction, description, amount, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, $12) RETURNING id, created_at, updated_at`,
		a.CompanyID, a.Month, a.Year, a.Apportionment, a.Relationship, db.NullInt64(a.LedgerAccountID), db.NullInt64(a.AdjustmentAccountID),
		a.TaxParameterID, a.Direction, a.Description, a.Amount.StringFixed(2), a.Status)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Adjustment{}, shared.MapPgError(err)
	}
	return a, nil
}

func (t *txRepository) GetForUpdate(ctx context.Context, companyID, id int64) (Adjustment, error) {
	var (
		a      Adjustment
		amount string
	)
	err := t.tx.QueryRow(ctx, `SELECT `+adjustmentColumns+` FROM fiscal_adjustments WHERE company_id=$1 AND id=$2 FOR UPDATE`,
		companyID, id).Scan(&a.ID, &a.CompanyID, &a.Month, &a.Year, &a.Apportionment, &a.Relationship, &a.LedgerAccountID,
		&a.AdjustmentAccountID, &a.TaxParameterID, &a.Direction, &a.Description, &amount, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Adjustment{}, fmt.Errorf("adjustment %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return Adjustment{}, err
	}
	if a.Amount, err = decimal.NewFromString(amount); err != nil {
		return Adjustment{}, err
	}
	return a, nil
}

func (t *txRepository) Update(ctx context.Context, a Adjustment) (Adjustment, error) {
	row := t.tx.QueryRow(ctx, `UPDATE fiscal_adjustments SET month=$3, year=$4, apportionment=$5, relationship=$6,
ledger_account_id=$7, adjustment_account_id=$8, tax_parameter_id=$9, direction=$10, description=$11, amount=$12::numeric,
updated_at=NOW() WHERE company_id=$1 AND id=$2 RETURNING updated_at`,
		a.CompanyID, a.ID, a.Month, a.Year, a.Apportionment, a.Relationship, db.NullInt64(a.LedgerAccountID),
		db.NullInt64(a.AdjustmentAccountID), a.TaxParameterID, a.Direction, a.Description, a.Amount.StringFixed(2))
	if err := row.Scan(&a.UpdatedAt); err != nil {
		return Adjustment{}, shared.MapPgError(err)
	}
	return a, nil
}

func (t *txRepository) SetStatus(ctx context.Context, companyID, id int64, status shared.Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE fiscal_adjustments SET status=$3, updated_at=NOW() WHERE company_id=$1 AND id=$2`, companyID, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("adjustment %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
