// Package lalurhttp exposes bulk import and export, single record mutations, the
// accounting period cutoff and parameter associations over HTTP.
package lalurhttp

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/Sconzo/lalur-sub001/internal/adjustments"
	"github.com/Sconzo/lalur-sub001/internal/exporter"
	"github.com/Sconzo/lalur-sub001/internal/importer"
	"github.com/Sconzo/lalur-sub001/internal/ledger"
	"github.com/Sconzo/lalur-sub001/internal/parameters"
	"github.com/Sconzo/lalur-sub001/internal/periodlock"
)

// Importer runs bulk imports by kind.
type Importer interface {
	Run(ctx context.Context, kind string, src io.Reader, opts importer.Options) (importer.Report, error)
}

// Exporter renders exports by kind.
type Exporter interface {
	Export(ctx context.Context, w io.Writer, kind string, q exporter.Query) (exporter.Result, error)
}

// CutoffService reads and advances the accounting period cutoff.
type CutoffService interface {
	Cutoff(ctx context.Context, companyID int64) (time.Time, error)
	History(ctx context.Context, companyID int64) ([]periodlock.Change, error)
	AdvanceCutoff(ctx context.Context, in periodlock.AdvanceInput) (periodlock.Change, error)
}

// ParameterService manages parameter associations, their periods and the timeline.
type ParameterService interface {
	Timeline(ctx context.Context, companyID int64) ([]parameters.TimelineGroup, error)
	Associate(ctx context.Context, in parameters.AssociateInput) (parameters.Association, error)
	AddValue(ctx context.Context, companyID, associationID int64, v parameters.TemporalValue) (parameters.TemporalValue, error)
	RemoveValue(ctx context.Context, companyID, associationID, valueID int64) error
	Deactivate(ctx context.Context, companyID, associationID int64) error
}

// LedgerService mutates single ledger entries.
type LedgerService interface {
	Get(ctx context.Context, companyID, id int64) (ledger.Entry, error)
	Create(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	Update(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	Deactivate(ctx context.Context, companyID, id int64) error
}

// AdjustmentService mutates single fiscal adjustments.
type AdjustmentService interface {
	Create(ctx context.Context, a adjustments.Adjustment) (adjustments.Adjustment, error)
	Update(ctx context.Context, a adjustments.Adjustment) (adjustments.Adjustment, error)
	Deactivate(ctx context.Context, companyID, id int64) error
}

// Services are the domain collaborators behind the routes.
type Services struct {
	Imports     Importer
	Exports     Exporter
	Cutoffs     CutoffService
	Parameters  ParameterService
	Ledger      LedgerService
	Adjustments AdjustmentService
}

// Metrics counts cutoff moves.
type Metrics interface {
	ObserveCutoffAdvance()
}

// IdempotencyStore claims Idempotency-Key values of applied imports.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, scope string) error
	Delete(ctx context.Context, key, scope string) error
}

// Options tunes request limits. Keys may be nil, which disables Idempotency-Key handling.
type Options struct {
	MaxUploadBytes int64
	RatePerMinute  int
	Keys           IdempotencyStore
}

// Handler wires the LALUR endpoints.
type Handler struct {
	logger      *slog.Logger
	imports     Importer
	exports     Exporter
	cutoffs     CutoffService
	params      ParameterService
	ledger      LedgerService
	adjustments AdjustmentService
	metrics     Metrics
	keys        IdempotencyStore
	validate    *validator.Validate
	maxUpload   int64
	rateLimit   func(http.Handler) http.Handler
}

// NewHandler constructs the handler. metrics may be nil.
func NewHandler(logger *slog.Logger, svc Services, metrics Metrics, opts Options) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.RatePerMinute <= 0 {
		opts.RatePerMinute = 30
	}
	limiter := httprate.Limit(opts.RatePerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	return &Handler{
		logger:      logger,
		imports:     svc.Imports,
		exports:     svc.Exports,
		cutoffs:     svc.Cutoffs,
		params:      svc.Parameters,
		ledger:      svc.Ledger,
		adjustments: svc.Adjustments,
		metrics:     metrics,
		keys:        opts.Keys,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		maxUpload:   opts.MaxUploadBytes,
		rateLimit:   limiter,
	}
}

// MountRoutes registers the company scoped routes.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/companies/{companyID}", func(r chi.Router) {
		r.Get("/cutoff", h.handleGetCutoff)
		r.Post("/cutoff", h.handleAdvanceCutoff)
		r.Get("/cutoff/history", h.handleCutoffHistory)
		r.Get("/parameters/timeline", h.handleTimeline)
		r.Post("/parameters/associations", h.handleAssociate)
		r.Delete("/parameters/associations/{associationID}", h.handleDeactivateAssociation)
		r.Post("/parameters/associations/{associationID}/values", h.handleAddValue)
		r.Delete("/parameters/associations/{associationID}/values/{valueID}", h.handleRemoveValue)
		r.Post("/ledger-entries", h.handleCreateEntry)
		r.Get("/ledger-entries/{entryID}", h.handleGetEntry)
		r.Put("/ledger-entries/{entryID}", h.handleUpdateEntry)
		r.Delete("/ledger-entries/{entryID}", h.handleDeactivateEntry)
		r.Post("/adjustments", h.handleCreateAdjustment)
		r.Put("/adjustments/{adjustmentID}", h.handleUpdateAdjustment)
		r.Delete("/adjustments/{adjustmentID}", h.handleDeactivateAdjustment)
		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit)
			r.Post("/imports/{kind}", h.handleImport)
			r.Get("/exports/{kind}", h.handleExport)
		})
	})
}
