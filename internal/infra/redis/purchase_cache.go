package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/repository"
	"content-marketplace/internal/infra/metrics"
)

var _ repository.PurchaseRepository = (*purchaseRepoCacheDecorator)(nil)

// purchaseRepoCacheDecorator remembers positive Exists answers only. A
// recorded purchase is never revoked, so a cached "yes" cannot go stale;
// "no" is always asked of the inner store.
type purchaseRepoCacheDecorator struct {
	inner repository.PurchaseRepository
	cache RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPurchaseRepoCacheDecorator(inner repository.PurchaseRepository, cache RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.PurchaseRepository {
	return &purchaseRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func entitlementKey(user, content string) string {
	return fmt.Sprintf("entitlement:%s:%s", user, content)
}

func (d *purchaseRepoCacheDecorator) Exists(ctx context.Context, userIdentifier, contentID string) (bool, error) {
	key := entitlementKey(userIdentifier, contentID)
	if _, err := d.cache.Get(ctx, key); err == nil {
		metrics.IncCacheRequest("entitlement", "hit")
		return true, nil
	} else if !IsMiss(err) {
		d.log.Warn().Err(err).Msg("entitlement cache read failed")
	}

	metrics.IncCacheRequest("entitlement", "miss")
	ok, err := d.inner.Exists(ctx, userIdentifier, contentID)
	if err != nil {
		return false, err
	}
	if ok {
		d.remember(ctx, key)
	}
	return ok, nil
}

func (d *purchaseRepoCacheDecorator) Insert(ctx context.Context, rec *model.PurchaseRecord) (model.InsertResult, error) {
	res, err := d.inner.Insert(ctx, rec)
	if err == nil {
		d.remember(ctx, entitlementKey(rec.UserIdentifier, rec.ContentID))
	}
	return res, err
}

func (d *purchaseRepoCacheDecorator) FindByUserAndContent(ctx context.Context, userIdentifier, contentID string) (*model.PurchaseRecord, error) {
	return d.inner.FindByUserAndContent(ctx, userIdentifier, contentID)
}

func (d *purchaseRepoCacheDecorator) ListByUser(ctx context.Context, userIdentifier string) ([]*model.PurchaseRecord, error) {
	return d.inner.ListByUser(ctx, userIdentifier)
}

func (d *purchaseRepoCacheDecorator) remember(ctx context.Context, key string) {
	if err := d.cache.Set(ctx, key, "1", d.ttl); err != nil {
		d.log.Warn().Err(err).Msg("entitlement cache write failed")
	}
}
