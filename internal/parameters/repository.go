package parameters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sconzo/lalur-sub001/internal/periodlock"
	"github.com/Sconzo/lalur-sub001/internal/platform/db"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

const parameterSelect = `SELECT p.id, p.code, p.description, p.status, t.id, t.name, t.nature
FROM tax_parameters p JOIN tax_parameter_types t ON t.id = p.type_id`

// Repository persists parameter associations in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

type txRepository struct {
	tx pgx.Tx
}

// NewRepository constructs a Postgres backed repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// ParameterByID loads an active catalogue entry.
func (r *Repository) ParameterByID(ctx context.Context, id int64) (Parameter, error) {
	return scanParameter(r.pool.QueryRow(ctx, parameterSelect+` WHERE p.id = $1 AND p.status = 'ACTIVE'`, id), id)
}

// ParameterByCode loads an active catalogue entry by code.
func (r *Repository) ParameterByCode(ctx context.Context, code string) (Parameter, error) {
	return scanParameter(r.pool.QueryRow(ctx, parameterSelect+` WHERE p.code = $1 AND p.status = 'ACTIVE'`, code), code)
}

// ListTimeline returns active periodic associations of a company with their values.
func (r *Repository) ListTimeline(ctx context.Context, companyID int64) ([]TimelineItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, p.id, p.code, p.description, p.status, t.id, t.name, t.nature,
v.id, v.year, v.month, v.quarter
FROM parameter_associations a
JOIN tax_parameters p ON p.id = a.tax_parameter_id
JOIN tax_parameter_types t ON t.id = p.type_id
JOIN temporal_values v ON v.association_id = a.id
WHERE a.company_id = $1 AND a.status = 'ACTIVE' AND t.nature <> 'GLOBAL'
ORDER BY a.id, v.year, v.month NULLS LAST, v.quarter NULLS LAST`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var (
		out   []TimelineItem
		index = map[int64]int{}
	)
	for rows.Next() {
		var (
			assocID int64
			p       Parameter
			v       TemporalValue
		)
		if err := rows.Scan(&assocID, &p.ID, &p.Code, &p.Description, &p.Status, &p.Type.ID, &p.Type.Name, &p.Type.Nature,
			&v.ID, &v.Year, &v.Month, &v.Quarter); err != nil {
			return nil, err
		}
		v.AssociationID = assocID
		i, ok := index[assocID]
		if !ok {
			i = len(out)
			index[assocID] = i
			out = append(out, TimelineItem{Parameter: p})
		}
		out[i].Values = append(out[i].Values, v)
	}
	return out, rows.Err()
}

// Cutoff reads the company cutoff under a share lock held until commit.
func (t *txRepository) Cutoff(ctx context.Context, companyID int64) (time.Time, error) {
	return periodlock.ShareCutoff(ctx, t.tx, companyID)
}

func (t *txRepository) InsertAssociation(ctx context.Context, a Association) (Association, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO parameter_associations (company_id, tax_parameter_id, created_by, created_at, status)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, a.CompanyID, a.ParameterID, nullActor(a.CreatedBy), a.CreatedAt, a.Status).Scan(&a.ID)
	if err != nil {
		return Association{}, shared.MapPgError(err)
	}
	return a, nil
}

func (t *txRepository) GetAssociationForUpdate(ctx context.Context, companyID, id int64) (Association, error) {
	var a Association
	err := t.tx.QueryRow(ctx, `SELECT a.id, a.company_id, a.tax_parameter_id, tt.nature, COALESCE(a.created_by, 0), a.created_at, a.status
FROM parameter_associations a
JOIN tax_parameters p ON p.id = a.tax_parameter_id
JOIN tax_parameter_types tt ON tt.id = p.type_id
WHERE a.company_id = $1 AND a.id = $2 FOR UPDATE OF a`, companyID, id).Scan(&a.ID, &a.CompanyID, &a.ParameterID, &a.Nature, &a.CreatedBy, &a.CreatedAt, &a.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Association{}, fmt.Errorf("association %d: %w", id, shared.ErrNotFound)
	}
	return a, err
}

func (t *txRepository) ListValues(ctx context.Context, associationID int64) ([]TemporalValue, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, association_id, year, month, quarter FROM temporal_values
WHERE association_id = $1 ORDER BY year, month NULLS LAST, quarter NULLS LAST`, associationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TemporalValue
	for rows.Next() {
		var v TemporalValue
		if err := rows.Scan(&v.ID, &v.AssociationID, &v.Year, &v.Month, &v.Quarter); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (t *txRepository) InsertValue(ctx context.Context, v TemporalValue) (TemporalValue, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO temporal_values (association_id, year, month, quarter)
VALUES ($1, $2, $3, $4) RETURNING id`, v.AssociationID, v.Year, v.Month, v.Quarter).Scan(&v.ID)
	if err != nil {
		return TemporalValue{}, shared.MapPgError(err)
	}
	return v, nil
}

func (t *txRepository) DeleteValue(ctx context.Context, associationID, valueID int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM temporal_values WHERE association_id = $1 AND id = $2`, associationID, valueID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("temporal value %d: %w", valueID, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepository) SetAssociationStatus(ctx context.Context, companyID, id int64, status shared.Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE parameter_associations SET status = $3 WHERE company_id = $1 AND id = $2`, companyID, id, status)
	return err
}

func scanParameter(row pgx.Row, key any) (Parameter, error) {
	var p Parameter
	err := row.Scan(&p.ID, &p.Code, &p.Description, &p.Status, &p.Type.ID, &p.Type.Name, &p.Type.Nature)
	if errors.Is(err, pgx.ErrNoRows) {
		return Parameter{}, fmt.Errorf("tax parameter %v: %w", key, shared.ErrNotFound)
	}
	return p, err
}

func nullActor(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
