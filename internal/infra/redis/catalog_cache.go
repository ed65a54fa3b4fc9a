package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/adapter"
	"content-marketplace/internal/infra/metrics"
)

var _ adapter.ContentCatalog = (*catalogCacheDecorator)(nil)

// catalogCacheDecorator keeps JSON copies of catalog reads for ttl. Errors are
// never cached, and a broken cache only costs a round trip to the inner catalog.
type catalogCacheDecorator struct {
	inner adapter.ContentCatalog
	cache RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewCatalogCacheDecorator(inner adapter.ContentCatalog, cache RedisClient, ttl time.Duration, logger *zerolog.Logger) adapter.ContentCatalog {
	return &catalogCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

const (
	articlesKey = "catalog:articles"
	booksKey    = "catalog:books"
)

func articleKey(id string) string { return "catalog:article:" + id }
func bookKey(id string) string    { return "catalog:book:" + id }
func itemKey(t model.ContentType, id string) string {
	return "catalog:item:" + string(t) + ":" + id
}

func (d *catalogCacheDecorator) ListArticles(ctx context.Context) ([]*model.Article, error) {
	return cached(ctx, d, articlesKey, func() ([]*model.Article, error) { return d.inner.ListArticles(ctx) })
}

func (d *catalogCacheDecorator) ListBooks(ctx context.Context) ([]*model.Book, error) {
	return cached(ctx, d, booksKey, func() ([]*model.Book, error) { return d.inner.ListBooks(ctx) })
}

func (d *catalogCacheDecorator) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	return cached(ctx, d, articleKey(id), func() (*model.Article, error) { return d.inner.GetArticle(ctx, id) })
}

func (d *catalogCacheDecorator) GetBook(ctx context.Context, id string) (*model.Book, error) {
	return cached(ctx, d, bookKey(id), func() (*model.Book, error) { return d.inner.GetBook(ctx, id) })
}

func (d *catalogCacheDecorator) Lookup(ctx context.Context, contentType model.ContentType, id string) (*model.ContentItem, error) {
	return cached(ctx, d, itemKey(contentType, id), func() (*model.ContentItem, error) {
		return d.inner.Lookup(ctx, contentType, id)
	})
}

// Refresh reloads both listings from the inner catalog and overwrites the
// cached copies, so readers never wait on an expired listing.
func (d *catalogCacheDecorator) Refresh(ctx context.Context) error {
	articles, err := d.inner.ListArticles(ctx)
	if err != nil {
		return err
	}
	books, err := d.inner.ListBooks(ctx)
	if err != nil {
		return err
	}
	d.store(ctx, articlesKey, articles)
	d.store(ctx, booksKey, books)
	return nil
}

// WarmCatalog refreshes c when it is a cache decorator and is a no-op otherwise.
func WarmCatalog(ctx context.Context, c adapter.ContentCatalog) error {
	if r, ok := c.(interface{ Refresh(context.Context) error }); ok {
		return r.Refresh(ctx)
	}
	return nil
}

func (d *catalogCacheDecorator) store(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.log.Warn().Err(err).Msg("catalog cache write failed")
	}
}

func cached[T any](ctx context.Context, d *catalogCacheDecorator, key string, load func() (T, error)) (T, error) {
	if raw, err := d.cache.Get(ctx, key); err == nil {
		var v T
		if jerr := json.Unmarshal([]byte(raw), &v); jerr == nil {
			metrics.IncCacheRequest("catalog", "hit")
			return v, nil
		}
		d.log.Warn().Str("key", key).Msg("catalog cache entry undecodable")
	} else if !IsMiss(err) {
		d.log.Warn().Err(err).Msg("catalog cache read failed")
	}

	metrics.IncCacheRequest("catalog", "miss")
	v, err := load()
	if err != nil {
		return v, err
	}
	d.store(ctx, key, v)
	return v, nil
}
