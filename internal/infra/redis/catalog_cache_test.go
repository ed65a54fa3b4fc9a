//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
)

// mockCatalog counts calls to the wrapped catalog.
type mockCatalog struct {
	calls      int
	LookupFunc func(ctx context.Context, t model.ContentType, id string) (*model.ContentItem, error)
}

func (m *mockCatalog) ListArticles(ctx context.Context) ([]*model.Article, error) {
	m.calls++
	return []*model.Article{{ID: "post-1", Title: "Post", Price: 300}}, nil
}
func (m *mockCatalog) ListBooks(ctx context.Context) ([]*model.Book, error) {
	m.calls++
	return []*model.Book{{ID: "book-42", Price: 1800}}, nil
}
func (m *mockCatalog) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	m.calls++
	return &model.Article{ID: id, Content: "# body"}, nil
}
func (m *mockCatalog) GetBook(ctx context.Context, id string) (*model.Book, error) {
	m.calls++
	return nil, domain.ErrContentNotFound
}
func (m *mockCatalog) Lookup(ctx context.Context, t model.ContentType, id string) (*model.ContentItem, error) {
	m.calls++
	return m.LookupFunc(ctx, t, id)
}

func TestCatalogCacheDecorator(t *testing.T) {
	ctx := context.Background()

	t.Run("should serve repeated lookups from cache", func(t *testing.T) {
		// Arrange
		inner := &mockCatalog{LookupFunc: func(ctx context.Context, ct model.ContentType, id string) (*model.ContentItem, error) {
			return &model.ContentItem{ID: id, Price: 1800, ContentType: ct}, nil
		}}
		cache := newMockRedis()
		d := NewCatalogCacheDecorator(inner, cache, 5*time.Minute, newTestLogger())

		// Act
		_, _ = d.Lookup(ctx, model.ContentTypeBook, "book-42")
		item, err := d.Lookup(ctx, model.ContentTypeBook, "book-42")

		// Assert
		if err != nil || item.Price != 1800 || item.ContentType != model.ContentTypeBook {
			t.Fatalf("unexpected cached item: %+v (%v)", item, err)
		}
		if inner.calls != 1 {
			t.Errorf("expected one inner call, got %d", inner.calls)
		}
		if cache.Expires[itemKey(model.ContentTypeBook, "book-42")] != 5*time.Minute {
			t.Error("expected the configured ttl")
		}
	})

	t.Run("should keep bodies and lists through the cache", func(t *testing.T) {
		inner := &mockCatalog{}
		d := NewCatalogCacheDecorator(inner, newMockRedis(), time.Minute, newTestLogger())

		d.GetArticle(ctx, "post-1")
		a, _ := d.GetArticle(ctx, "post-1")
		d.ListArticles(ctx)
		list, _ := d.ListArticles(ctx)

		if a.Content != "# body" || len(list) != 1 || list[0].Price != 300 {
			t.Errorf("cached values lost data: %+v %+v", a, list)
		}
		if inner.calls != 2 {
			t.Errorf("expected two inner calls, got %d", inner.calls)
		}
	})

	t.Run("should not cache errors", func(t *testing.T) {
		inner := &mockCatalog{}
		d := NewCatalogCacheDecorator(inner, newMockRedis(), time.Minute, newTestLogger())

		for i := 0; i < 2; i++ {
			if _, err := d.GetBook(ctx, "missing"); !errors.Is(err, domain.ErrContentNotFound) {
				t.Fatalf("expected ErrContentNotFound, got %v", err)
			}
		}
		if inner.calls != 2 {
			t.Errorf("expected errors to reach the catalog every time, got %d", inner.calls)
		}
	})

	t.Run("should fall through when redis is down", func(t *testing.T) {
		inner := &mockCatalog{LookupFunc: func(ctx context.Context, ct model.ContentType, id string) (*model.ContentItem, error) {
			return &model.ContentItem{ID: id, Price: 300}, nil
		}}
		cache := newMockRedis()
		cache.GetFunc = func(ctx context.Context, key string) (string, error) { return "", errors.New("connection refused") }
		cache.SetFunc = func(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
			return errors.New("connection refused")
		}
		d := NewCatalogCacheDecorator(inner, cache, time.Minute, newTestLogger())

		item, err := d.Lookup(ctx, model.ContentTypeArticle, "post-1")
		if err != nil || item.Price != 300 {
			t.Errorf("expected inner answer, got %+v (%v)", item, err)
		}
	})

	t.Run("should overwrite cached listings on warm", func(t *testing.T) {
		inner := &mockCatalog{}
		d := NewCatalogCacheDecorator(inner, newMockRedis(), time.Minute, newTestLogger())

		d.ListArticles(ctx)
		if err := WarmCatalog(ctx, d); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		d.ListArticles(ctx)
		d.ListBooks(ctx)

		if inner.calls != 3 {
			t.Errorf("expected one miss plus two refresh calls, got %d", inner.calls)
		}
	})

	t.Run("should ignore catalogs without a cache", func(t *testing.T) {
		inner := &mockCatalog{}
		if err := WarmCatalog(ctx, inner); err != nil || inner.calls != 0 {
			t.Errorf("expected a no-op, got %v after %d calls", err, inner.calls)
		}
	})
}
