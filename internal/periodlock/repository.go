package periodlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sconzo/lalur-sub001/internal/platform/db"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

const pgSerializationFailure = "40001"

// Repository stores cutoffs on the companies table and moves in accounting_cutoff_changes.
type Repository struct {
	pool *pgxpool.Pool
}

type txRepository struct {
	tx pgx.Tx
}

// NewRepository builds a Postgres backed repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return db.ErrNilPool
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Cutoff reads the stored cutoff; a company without one yields the zero time.
func (r *Repository) Cutoff(ctx context.Context, companyID int64) (time.Time, error) {
	var cutoff pgtype.Date
	err := r.pool.QueryRow(ctx, `SELECT accounting_cutoff FROM companies WHERE id = $1`, companyID).Scan(&cutoff)
	if err != nil {
		return time.Time{}, notFound(err, companyID)
	}
	return dateValue(cutoff), nil
}

// History lists accepted cutoff moves oldest first.
func (r *Repository) History(ctx context.Context, companyID int64) ([]Change, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, previous_cutoff, new_cutoff, COALESCE(changed_by, 0), changed_at
FROM accounting_cutoff_changes WHERE company_id = $1 ORDER BY changed_at, id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Change
	for rows.Next() {
		var (
			c        Change
			previous pgtype.Date
		)
		if err := rows.Scan(&c.ID, &c.CompanyID, &previous, &c.New, &c.ChangedBy, &c.ChangedAt); err != nil {
			return nil, err
		}
		c.Previous = dateValue(previous)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *txRepository) LockCutoff(ctx context.Context, companyID int64) (time.Time, error) {
	var cutoff pgtype.Date
	err := t.tx.QueryRow(ctx, `SELECT accounting_cutoff FROM companies WHERE id = $1 FOR UPDATE`, companyID).Scan(&cutoff)
	if err != nil {
		return time.Time{}, notFound(err, companyID)
	}
	return dateValue(cutoff), nil
}

// ShareCutoff reads the company cutoff under FOR SHARE inside q, a write
// transaction. The lock conflicts with LockCutoff, so the cutoff cannot move
// until the caller commits.
func ShareCutoff(ctx context.Context, q db.Querier, companyID int64) (time.Time, error) {
	var cutoff pgtype.Date
	err := q.QueryRow(ctx, `SELECT accounting_cutoff FROM companies WHERE id = $1 FOR SHARE`, companyID).Scan(&cutoff)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgSerializationFailure {
		return time.Time{}, fmt.Errorf("%w: accounting cutoff of company %d moved during the write, retry", shared.ErrPeriodLocked, companyID)
	}
	if err != nil {
		return time.Time{}, notFound(err, companyID)
	}
	return dateValue(cutoff), nil
}

func (t *txRepository) SetCutoff(ctx context.Context, companyID int64, cutoff time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE companies SET accounting_cutoff = $2, updated_at = NOW() WHERE id = $1`, companyID, cutoff)
	return err
}

func (t *txRepository) InsertChange(ctx context.Context, change Change) (Change, error) {
	var previous any
	if !change.Previous.IsZero() {
		previous = change.Previous
	}
	var actor any
	if change.ChangedBy != 0 {
		actor = change.ChangedBy
	}
	err := t.tx.QueryRow(ctx, `INSERT INTO accounting_cutoff_changes (company_id, previous_cutoff, new_cutoff, changed_by, changed_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, change.CompanyID, previous, change.New, actor, change.ChangedAt).Scan(&change.ID)
	if err != nil {
		return Change{}, err
	}
	return change, nil
}

func dateValue(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return shared.DateOnly(d.Time)
}

func notFound(err error, companyID int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: company %d", shared.ErrNotFound, companyID)
	}
	return err
}
