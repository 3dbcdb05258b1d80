package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

type backend interface {
	FetchActiveStatuses(ctx context.Context, tenantID string) ([]entity.StatusEntry, error)
	FetchLeadsWithHistory(ctx context.Context, tenantID string) ([]entity.Lead, error)
}

// Cache is the keyed read cache shared by every board and table view of a
// tenant. It is never patched: writers call Invalidate and the next read
// goes to the backend. Invalidate bumps a per-tenant epoch; a read that
// started before the bump never writes its rows back.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache wraps base. A nil client disables caching.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("cache.NewCache: base is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) FetchActiveStatuses(ctx context.Context, tenantID string) ([]entity.StatusEntry, error) {
	var statuses []entity.StatusEntry
	if c.load(ctx, statusesKey(tenantID), &statuses) && validStatuses(statuses) {
		return statuses, nil
	}

	epoch, ok := c.epoch(ctx, tenantID)
	statuses, err := c.base.FetchActiveStatuses(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if ok {
		c.store(ctx, tenantID, statusesKey(tenantID), epoch, statuses)
	}
	return statuses, nil
}

func (c *Cache) FetchLeadsWithHistory(ctx context.Context, tenantID string) ([]entity.Lead, error) {
	var leads []entity.Lead
	if c.load(ctx, leadsKey(tenantID), &leads) && validLeads(leads) {
		return leads, nil
	}

	epoch, ok := c.epoch(ctx, tenantID)
	leads, err := c.base.FetchLeadsWithHistory(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if ok {
		c.store(ctx, tenantID, leadsKey(tenantID), epoch, leads)
	}
	return leads, nil
}

// Invalidate drops every cached read of the tenant.
func (c *Cache) Invalidate(ctx context.Context, tenantID string) error {
	if c.redis == nil {
		return nil
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, epochKey(tenantID))
		pipe.Del(ctx, leadsKey(tenantID), statusesKey(tenantID))
		return nil
	})
	return err
}

func (c *Cache) Ping(ctx context.Context) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	return c.redis.Ping(ctx).Err()
}

func (c *Cache) load(ctx context.Context, key string, dst any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// fall back to the backend without failing the read
			log.WithError(err).WithField("key", key).Warn("redis read failed")
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

var errStaleRead = errors.New("cache: invalidated during read")

// epoch reads the tenant's invalidation counter. ok is false when nothing
// should be stored.
func (c *Cache) epoch(ctx context.Context, tenantID string) (int64, bool) {
	if c.redis == nil || c.ttl == 0 {
		return 0, false
	}
	n, err := c.redis.Get(ctx, epochKey(tenantID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, false
	}
	return n, true
}

// store writes v only if no Invalidate ran since epoch was read.
func (c *Cache) store(ctx context.Context, tenantID, key string, epoch int64, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, epochKey(tenantID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != epoch {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, epochKey(tenantID))
	if err != nil && !errors.Is(err, errStaleRead) && !errors.Is(err, redis.TxFailedErr) {
		log.WithError(err).WithField("key", key).Warn("redis write failed")
	}
}

// A cached payload that no longer passes row validation is treated as a miss.
func validLeads(leads []entity.Lead) bool {
	for i := range leads {
		if leads[i].Validate() != nil {
			return false
		}
	}
	return true
}

func validStatuses(statuses []entity.StatusEntry) bool {
	for i := range statuses {
		if statuses[i].Validate() != nil {
			return false
		}
	}
	return true
}

func leadsKey(tenantID string) string {
	return "pipeline:leads:" + tenantID
}

func statusesKey(tenantID string) string {
	return "pipeline:statuses:" + tenantID
}

func epochKey(tenantID string) string {
	return "pipeline:epoch:" + tenantID
}
