package web

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/adapter"
	"content-marketplace/internal/domain/ports/repository"
	"content-marketplace/internal/infra/adapters/payment"
	"content-marketplace/internal/infra/db/memory"
	"content-marketplace/internal/usecase"
)

const (
	testBaseURL       = "https://shop.example"
	testSessionSecret = "test-session-secret-please-change"
	testWebhookSecret = "whsec_test"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// --- Mock Catalog ---

type mockCatalog struct {
	articles map[string]*model.Article
	books    map[string]*model.Book
	Err      error
}

var _ adapter.ContentCatalog = (*mockCatalog)(nil)

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		articles: map[string]*model.Article{
			"free-post": {ID: "free-post", Title: "Free", Content: "free body"},
			"post-1":    {ID: "post-1", Title: "Paid", Price: 300, Content: "paid body"},
		},
		books: map[string]*model.Book{
			"book-42": {ID: "book-42", Title: "Go Book", Price: 1800, ChapterCount: 2, Chapters: []model.Chapter{
				{Slug: "1.intro", Title: "Intro", Order: 0, Free: true, Content: "intro body"},
				{Slug: "2.deep", Title: "Deep", Order: 1, Content: "deep body"},
			}},
			"free-book": {ID: "free-book", Title: "Free Book", ChapterCount: 1, Chapters: []model.Chapter{
				{Slug: "1.only", Title: "Only", Content: "only body"},
			}},
		},
	}
}

func (m *mockCatalog) ListArticles(ctx context.Context) ([]*model.Article, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*model.Article, 0, len(m.articles))
	for _, a := range m.articles {
		out = append(out, a)
	}
	return out, nil
}

func (m *mockCatalog) ListBooks(ctx context.Context) ([]*model.Book, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*model.Book, 0, len(m.books))
	for _, b := range m.books {
		out = append(out, b)
	}
	return out, nil
}

func (m *mockCatalog) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if a, ok := m.articles[id]; ok {
		return a, nil
	}
	return nil, domain.ErrContentNotFound
}

func (m *mockCatalog) GetBook(ctx context.Context, id string) (*model.Book, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if b, ok := m.books[id]; ok {
		return b, nil
	}
	return nil, domain.ErrContentNotFound
}

func (m *mockCatalog) Lookup(ctx context.Context, t model.ContentType, id string) (*model.ContentItem, error) {
	var item model.ContentItem
	switch t {
	case model.ContentTypeArticle:
		a, err := m.GetArticle(ctx, id)
		if err != nil {
			return nil, err
		}
		item = a.Item()
	case model.ContentTypeBook:
		b, err := m.GetBook(ctx, id)
		if err != nil {
			return nil, err
		}
		item = b.Item()
	default:
		return nil, domain.ErrInvalidRequest
	}
	return &item, nil
}

// --- Mock Limiter ---

type mockLimiter struct {
	mu    sync.Mutex
	limit int
	seen  map[string]int
	Err   error
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]int{}
	}
	m.seen[key]++
	return m.seen[key] <= m.limit, nil
}

// --- Harness ---

// testEnv is a full server on real use cases, the memory store and the noop
// gateway.
type testEnv struct {
	server  *Server
	repo    repository.PurchaseRepository
	gateway *payment.NoopPaymentGateway
	catalog *mockCatalog
	auth    *AuthManager
}

func newTestEnv(repo repository.PurchaseRepository, limiter RateLimiter) *testEnv {
	if repo == nil {
		repo = memory.NewPurchaseRepo()
	}
	logger := newTestLogger()
	catalog := newMockCatalog()
	gateway := payment.NewNoopPaymentGateway(testWebhookSecret, testBaseURL)
	auth := NewAuthManager(testSessionSecret, false, "", time.Hour)

	deps := Deps{
		Checkout: usecase.NewCheckoutUseCase(repo, catalog, gateway, testBaseURL, logger),
		Events:   usecase.NewPaymentEventUseCase(repo, gateway, nil, logger, true),
		Access:   usecase.NewAccessUseCase(repo, testBaseURL, logger),
		Library:  usecase.NewLibraryUseCase(repo, logger),
		Catalog:  catalog,
		Auth:     auth,
		OAuth:    NewGitHubOAuth("", "", testBaseURL, false),
		Limiter:  limiter,
		DevPay:   gateway,
	}
	opts := Options{BaseURL: testBaseURL, RequestTimeout: 5 * time.Second, Dev: true}
	return &testEnv{
		server:  NewServer(deps, opts, logger),
		repo:    repo,
		gateway: gateway,
		catalog: catalog,
		auth:    auth,
	}
}
