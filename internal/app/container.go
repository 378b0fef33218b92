package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Sconzo/lalur-sub001/internal/accounts"
	"github.com/Sconzo/lalur-sub001/internal/adjustments"
	"github.com/Sconzo/lalur-sub001/internal/companies"
	"github.com/Sconzo/lalur-sub001/internal/exporter"
	"github.com/Sconzo/lalur-sub001/internal/importer"
	lalurhttp "github.com/Sconzo/lalur-sub001/internal/lalur/http"
	"github.com/Sconzo/lalur-sub001/internal/ledger"
	"github.com/Sconzo/lalur-sub001/internal/observability"
	"github.com/Sconzo/lalur-sub001/internal/parameters"
	"github.com/Sconzo/lalur-sub001/internal/periodlock"
	"github.com/Sconzo/lalur-sub001/internal/platform/cache"
	"github.com/Sconzo/lalur-sub001/internal/platform/db"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// Container holds the wired services shared by the HTTP server and the CLI.
type Container struct {
	Pool        *pgxpool.Pool
	Redis       *redis.Client
	Metrics     *observability.Metrics
	Companies   *companies.Service
	Accounts    *accounts.Service
	Ledger      *ledger.Service
	Adjustments *adjustments.Service
	Parameters  *parameters.Service
	Cutoffs     *periodlock.Service
	Imports     importer.Registry
	Exporter    *exporter.Exporter
	Keys        *shared.IdempotencyStore

	logger *slog.Logger
}

// accountLookup adapts the accounts repository to id based lookups.
type accountLookup struct {
	*accounts.Repository
}

func (l accountLookup) Ref(ctx context.Context, companyID, id int64) (accounts.Ref, error) {
	return l.RefByID(ctx, companyID, id)
}

// NewContainer connects to PostgreSQL and Redis and wires every service. Redis is
// optional: when it cannot be reached the cutoff cache is disabled.
func NewContainer(ctx context.Context, cfg *Config, logger *slog.Logger) (*Container, error) {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return nil, err
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, cutoff cache disabled", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()
	audit := shared.NewAuditLogger(pool)

	companySvc := companies.NewService(companies.NewRepository(pool))
	accountRepo := accounts.NewRepository(pool)
	accountSvc := accounts.NewService(accountRepo)
	lookup := accountLookup{accountRepo}

	cutoffRepo := periodlock.NewRepository(pool)
	cutoffCache := periodlock.NewCache(cutoffRepo, redisClient, cfg.CutoffCacheTTL, logger)
	guard := periodlock.NewGuard(cutoffCache)
	cutoffSvc := periodlock.NewService(cutoffRepo, audit, cutoffCache, logger)
	cutoffSvc.WithLocation(cfg.Location)

	paramSvc := parameters.NewService(parameters.NewRepository(pool), guard, audit, logger)
	ledgerSvc := ledger.NewService(ledger.NewRepository(pool), lookup, guard, audit, logger)
	adjustmentSvc := adjustments.NewService(adjustments.NewRepository(pool), lookup, paramSvc, guard, audit, logger)

	deps := importer.Deps{Companies: companySvc, Metrics: metrics, Logger: logger}
	imports := importer.NewRegistry(
		importer.NewLedgerImporter(accountRepo, ledgerSvc, deps),
		importer.NewAdjustmentImporter(accountRepo, accountRepo, paramSvc, adjustmentSvc, deps),
		importer.NewAccountImporter(accountRepo, accountRepo, accountSvc, deps),
	)
	exp, err := exporter.New(exporter.Sources{Ledger: ledgerSvc, Adjustments: adjustmentSvc, Accounts: accountSvc},
		companySvc, cfg.ExportEncoding, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("app: %w", err)
	}

	return &Container{
		Pool:        pool,
		Redis:       redisClient,
		Metrics:     metrics,
		Companies:   companySvc,
		Accounts:    accountSvc,
		Ledger:      ledgerSvc,
		Adjustments: adjustmentSvc,
		Parameters:  paramSvc,
		Cutoffs:     cutoffSvc,
		Imports:     imports,
		Exporter:    exp,
		Keys:        shared.NewIdempotencyStore(pool),
		logger:      logger,
	}, nil
}

// Handler builds the HTTP handler over the container services.
func (c *Container) Handler(cfg *Config) *lalurhttp.Handler {
	svc := lalurhttp.Services{
		Imports:     c.Imports,
		Exports:     c.Exporter,
		Cutoffs:     c.Cutoffs,
		Parameters:  c.Parameters,
		Ledger:      c.Ledger,
		Adjustments: c.Adjustments,
	}
	return lalurhttp.NewHandler(c.logger, svc, c.Metrics, lalurhttp.Options{
		MaxUploadBytes: cfg.ImportMaxBytes,
		RatePerMinute:  cfg.ImportRatePerMinute,
		Keys:           c.Keys,
	})
}

// Ready pings the database.
func (c *Container) Ready(ctx context.Context) error {
	return c.Pool.Ping(ctx)
}

// Close releases connections.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Warn("redis close", slog.Any("error", err))
		}
	}
	c.Pool.Close()
}
