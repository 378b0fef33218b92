package periodlock

import (
	"context"
	"fmt"
	"time"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// CutoffReader returns the company's current cutoff; the zero time means no lock.
type CutoffReader interface {
	Cutoff(ctx context.Context, companyID int64) (time.Time, error)
}

// Guard authorises writes to dated records against the company cutoff.
type Guard struct {
	cutoffs CutoffReader
}

// NewGuard builds a guard backed by reader.
func NewGuard(reader CutoffReader) *Guard {
	return &Guard{cutoffs: reader}
}

// Authorize permits op unless referenceDate falls before the company cutoff.
func (g *Guard) Authorize(ctx context.Context, companyID int64, referenceDate time.Time, op Operation) error {
	cutoff, err := g.cutoff(ctx, g.reader(), companyID)
	if err != nil {
		return err
	}
	return check(referenceDate, cutoff, op)
}

// AuthorizeRecord is Authorize for a Dated record.
func (g *Guard) AuthorizeRecord(ctx context.Context, rec Dated, op Operation) error {
	return g.Authorize(ctx, rec.OwningCompany(), rec.ReferenceDate(), op)
}

// AuthorizeRecordIn checks rec against the cutoff read through src, normally the
// write transaction holding a share lock on the company row. Writers must use it so
// a concurrent AdvanceCutoff cannot commit between the check and the write.
func (g *Guard) AuthorizeRecordIn(ctx context.Context, src CutoffReader, rec Dated, op Operation) error {
	cutoff, err := g.cutoff(ctx, src, rec.OwningCompany())
	if err != nil {
		return err
	}
	return check(rec.ReferenceDate(), cutoff, op)
}

// AuthorizeUpdate requires both the stored and the new reference date to be open.
func (g *Guard) AuthorizeUpdate(ctx context.Context, original, updated Dated) error {
	return g.AuthorizeUpdateIn(ctx, g.reader(), original, updated)
}

// AuthorizeUpdateIn is AuthorizeUpdate against the cutoff read through src.
func (g *Guard) AuthorizeUpdateIn(ctx context.Context, src CutoffReader, original, updated Dated) error {
	if original.OwningCompany() != updated.OwningCompany() {
		return fmt.Errorf("%w: record cannot move between companies", shared.ErrValidation)
	}
	cutoff, err := g.cutoff(ctx, src, original.OwningCompany())
	if err != nil {
		return err
	}
	if err := check(original.ReferenceDate(), cutoff, OpUpdate); err != nil {
		return err
	}
	return check(updated.ReferenceDate(), cutoff, OpUpdate)
}

func (g *Guard) reader() CutoffReader {
	if g == nil {
		return nil
	}
	return g.cutoffs
}

func (g *Guard) cutoff(ctx context.Context, src CutoffReader, companyID int64) (time.Time, error) {
	if g == nil || src == nil {
		return time.Time{}, nil
	}
	if companyID <= 0 {
		return time.Time{}, fmt.Errorf("%w: company is required", shared.ErrMissingParameter)
	}
	cutoff, err := src.Cutoff(ctx, companyID)
	if err != nil {
		return time.Time{}, fmt.Errorf("periodlock: load cutoff: %w", err)
	}
	return cutoff, nil
}
