package periodlock

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

const noCutoff = "none"

// Cache is a redis read-through CutoffReader. Redis failures fall back to the source.
//
// A load only populates the cache when the company's generation counter is the one
// observed before reading the source. Invalidate bumps the counter, so a read that
// raced a cutoff move cannot write the old value back.
type Cache struct {
	source CutoffReader
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCache wraps source. A nil client disables caching.
func NewCache(source CutoffReader, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{source: source, client: client, ttl: ttl, logger: logger}
}

// Cutoff returns the cached cutoff or loads it once per key from the source.
func (c *Cache) Cutoff(ctx context.Context, companyID int64) (time.Time, error) {
	if c.client == nil {
		return c.source.Cutoff(ctx, companyID)
	}
	key := shared.CutoffCacheKey(companyID)
	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if cutoff, ok := decodeCutoff(raw); ok {
			return cutoff, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cutoff cache read failed", slog.Int64("company_id", companyID), slog.Any("error", err))
	}
	v, err, _ := c.group.Do(flightKey(companyID), func() (any, error) {
		gen, genErr := c.generation(ctx, companyID)
		cutoff, err := c.source.Cutoff(ctx, companyID)
		if err != nil {
			return time.Time{}, err
		}
		if genErr != nil {
			c.logger.Warn("cutoff cache generation read failed", slog.Int64("company_id", companyID), slog.Any("error", genErr))
			return cutoff, nil
		}
		c.store(ctx, companyID, gen, cutoff)
		return cutoff, nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return v.(time.Time), nil
}

// Invalidate drops the cached cutoff of a company and bumps its generation.
func (c *Cache) Invalidate(ctx context.Context, companyID int64) {
	if c == nil || c.client == nil {
		return
	}
	c.group.Forget(flightKey(companyID))
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, shared.CutoffGenerationKey(companyID))
		pipe.Del(ctx, shared.CutoffCacheKey(companyID))
		return nil
	})
	if err != nil {
		c.logger.Warn("cutoff cache invalidate failed", slog.Int64("company_id", companyID), slog.Any("error", err))
	}
}

func (c *Cache) generation(ctx context.Context, companyID int64) (int64, error) {
	gen, err := c.client.Get(ctx, shared.CutoffGenerationKey(companyID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// store writes cutoff under WATCH on the generation counter and gives up when
// an invalidation happened since gen was read.
func (c *Cache) store(ctx context.Context, companyID, gen int64, cutoff time.Time) {
	genKey := shared.CutoffGenerationKey(companyID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, shared.CutoffCacheKey(companyID), encodeCutoff(cutoff), c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("cutoff cache write skipped after invalidation", slog.Int64("company_id", companyID))
	default:
		c.logger.Warn("cutoff cache write failed", slog.Int64("company_id", companyID), slog.Any("error", err))
	}
}

var errStaleGeneration = errors.New("periodlock: cutoff generation moved")

func flightKey(companyID int64) string {
	return strconv.FormatInt(companyID, 10)
}

func encodeCutoff(t time.Time) string {
	if t.IsZero() {
		return noCutoff
	}
	return t.Format(time.DateOnly)
}

func decodeCutoff(raw string) (time.Time, bool) {
	if raw == noCutoff {
		return time.Time{}, true
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
