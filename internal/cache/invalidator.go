package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DomainProductList  = "product-list"
	DomainBrandList    = "brand-list"
	DomainCategoryList = "category-list"
)

// Invalidator drops read-side list caches after a stock- or
// catalog-affecting commit. Fire-and-forget: callers never see errors.
type Invalidator interface {
	Invalidate(ctx context.Context, domain string)
}

// RedisInvalidator bumps a per-domain version counter. The read side
// builds its cache keys from this counter, so every bump orphans the
// old entries.
type RedisInvalidator struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisInvalidator(client *redis.Client, logger *zap.Logger) *RedisInvalidator {
	return &RedisInvalidator{client: client, logger: logger}
}

func versionKey(domain string) string {
	return fmt.Sprintf("cache:version:%s", domain)
}

func (i *RedisInvalidator) Invalidate(ctx context.Context, domain string) {
	if err := i.client.Incr(ctx, versionKey(domain)).Err(); err != nil {
		i.logger.Warn("cache invalidation failed",
			zap.String("domain", domain), zap.Error(err))
	}
}
