package ledger

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

const entryColumns = `id, company_id, debit_account_id, credit_account_id, reference_date, amount::text, memo,
document_number, fiscal_year, status, created_at, updated_at`

// Repository persists ledger entries in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

type txRepository struct {
	tx pgx.Tx
}

// NewRepository constructs a Postgres backed ledger repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Get loads one entry regardless of status.
func (r *Repository) Get(ctx context.Context, companyID, id int64) (Entry, error) {
	return getEntry(ctx, r.pool, `SELECT `+entryColumns+` FROM ledger_entries WHERE company_id=$1 AND id=$2`, companyID, id)
}

// ListForExport returns active entries with both account refs ordered by reference date then id.
func (r *Repository) ListForExport(ctx context.Context, f Filter) ([]ExportRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT e.id, e.company_id, e.debit_account_id, e.credit_account_id, e.reference_date,
e.amount::text, e.memo, e.document_number, e.fiscal_year, e.status, e.created_at, e.updated_at,
d.code, d.name, d.fiscal_year, c.code, c.name, c.fiscal_year
FROM ledger_entries e
JOIN accounts d ON d.id = e.debit_account_id
JOIN accounts c ON c.id = e.credit_account_id
WHERE e.company_id = $1 AND e.fiscal_year = $2 AND e.status = 'ACTIVE'
AND ($3::date IS NULL OR e.reference_date >= $3)
AND ($4::date IS NULL OR e.reference_date <= $4)
ORDER BY e.reference_date, e.id`, f.CompanyID, f.FiscalYear, optionalDate(f.From), optionalDate(f.To))
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
		if err := rows.Scan(&row.ID, &row.CompanyID, &row.DebitAccountID, &row.CreditAccountID, &row.Date,
			&amount, &row.Memo, &row.DocumentNumber, &row.FiscalYear, &row.Status, &row.CreatedAt, &row.UpdatedAt,
			&row.Debit.Code, &row.Debit.Name, &row.Debit.FiscalYear,
			&row.Credit.Code, &row.Credit.Name, &row.Credit.FiscalYear); err != nil {
			return nil, err
		}
		if row.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		row.Debit.ID = row.DebitAccountID
		row.Credit.ID = row.CreditAccountID
		out = append(out, row)
	}
	return out, rows.Err()
}

// Cutoff reads the company cutoff under a share lock held until commit.
func (t *txRepository) Cutoff(ctx context.Context, companyID int64) (time.Time, error) {
	return periodlock.ShareCutoff(ctx, t.tx, companyID)
}

func (t *txRepository) Insert(ctx context.Context, e Entry) (Entry, error) {
	row := t.tx.QueryRow(ctx, `INSERT INTO ledger_entries (company_id, debit_account_id, credit_account_id, reference_date,
amount, memo, document_number, fiscal_year, status)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9) RETURNING id, created_at, updated_at`,
		e.CompanyID, e.DebitAccountID, e.CreditAccountID, e.Date, e.Amount.StringFixed(2), e.Memo, e.DocumentNumber, e.FiscalYear, e.Status)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Entry{}, shared.MapPgError(err)
	}
	return e, nil
}

func (t *txRepository) GetForUpdate(ctx context.Context, companyID, id int64) (Entry, error) {
	return getEntry(ctx, t.tx, `SELECT `+entryColumns+` FROM ledger_entries WHERE company_id=$1 AND id=$2 FOR UPDATE`, companyID, id)
}

func (t *txRepository) Update(ctx context.Context, e Entry) (Entry, error) {
	row := t.tx.QueryRow(ctx, `UPDATE ledger_entries SET debit_account_id=$3, credit_account_id=$4, reference_date=$5,
amount=$6::numeric, memo=$7, document_number=$8, fiscal_year=$9, updated_at=NOW()
WHERE company_id=$1 AND id=$2 RETURNING updated_at`,
		e.CompanyID, e.ID, e.DebitAccountID, e.CreditAccountID, e.Date, e.Amount.StringFixed(2), e.Memo, e.DocumentNumber, e.FiscalYear)
	if err := row.Scan(&e.UpdatedAt); err != nil {
		return Entry{}, shared.MapPgError(err)
	}
	return e, nil
}

func (t *txRepository) SetStatus(ctx context.Context, companyID, id int64, status shared.Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE ledger_entries SET status=$3, updated_at=NOW() WHERE company_id=$1 AND id=$2`, companyID, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ledger entry %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func getEntry(ctx context.Context, q db.Querier, sql string, args ...any) (Entry, error) {
	var (
		e      Entry
		amount string
	)
	err := q.QueryRow(ctx, sql, args...).Scan(&e.ID, &e.CompanyID, &e.DebitAccountID, &e.CreditAccountID, &e.Date,
		&amount, &e.Memo, &e.DocumentNumber, &e.FiscalYear, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, fmt.Errorf("ledger entry %v: %w", args[len(args)-1], shared.ErrNotFound)
	}
	if err != nil {
		return Entry{}, err
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func optionalDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return shared.DateOnly(t)
}
