package importer

import (
	"context"
	"io"
	"maps"
	"slices"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// Func runs one import call.
type Func func(ctx context.Context, r io.Reader, opts Options) (Report, error)

// Registry maps import kinds to importers.
type Registry map[string]Func

// NewRegistry registers every importer under its kind.
func NewRegistry(ledger *LedgerImporter, adjustments *AdjustmentImporter, chart *AccountImporter) Registry {
	return Registry{
		KindLedger:            ledger.Import,
		KindAdjustments:       adjustments.Import,
		KindAccounts:          chart.Import,
		KindReferenceAccounts: chart.ImportReferenceAccounts,
	}
}

// Kinds lists the registered kinds in alphabetical order.
func (r Registry) Kinds() []string {
	return slices.Sorted(maps.Keys(r))
}

// Run dispatches to the importer registered for kind.
func (r Registry) Run(ctx context.Context, kind string, src io.Reader, opts Options) (Report, error) {
	fn, ok := r[kind]
	if !ok {
		return Report{}, shared.NewFieldError(shared.ErrValidation, "kind", "unknown import kind %q, expected one of %v", kind, r.Kinds())
	}
	return fn(ctx, src, opts)
}
