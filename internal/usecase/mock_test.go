//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/adapter"
	"content-marketplace/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

// ---- Mock PurchaseRepository ----

// MockPurchaseRepo is an in-memory store whose Insert is atomic, so it
// behaves like the real unique constraint under concurrent deliveries.
type MockPurchaseRepo struct {
	mu     sync.Mutex
	data   map[string]*model.PurchaseRecord
	Writes int

	ExistsFunc func(ctx context.Context, user, content string) (bool, error)
	InsertFunc func(ctx context.Context, rec *model.PurchaseRecord) (model.InsertResult, error)
	ListFunc   func(ctx context.Context, user string) ([]*model.PurchaseRecord, error)
}

var _ repository.PurchaseRepository = (*MockPurchaseRepo)(nil)

func NewMockPurchaseRepo() *MockPurchaseRepo {
	return &MockPurchaseRepo{data: map[string]*model.PurchaseRecord{}}
}

func pairKey(user, content string) string { return user + "#" + content }

func (r *MockPurchaseRepo) Exists(ctx context.Context, user, content string) (bool, error) {
	if r.ExistsFunc != nil {
		return r.ExistsFunc(ctx, user, content)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.data[pairKey(user, content)]
	return ok, nil
}

func (r *MockPurchaseRepo) Insert(ctx context.Context, rec *model.PurchaseRecord) (model.InsertResult, error) {
	if r.InsertFunc != nil {
		return r.InsertFunc(ctx, rec)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := pairKey(rec.UserIdentifier, rec.ContentID)
	if existing, ok := r.data[k]; ok {
		cp := *existing
		return model.InsertResult{Status: model.AlreadyExists, Record: &cp}, nil
	}
	cp := *rec
	r.data[k] = &cp
	r.Writes++
	return model.InsertResult{Status: model.Inserted, Record: rec}, nil
}

func (r *MockPurchaseRepo) FindByUserAndContent(ctx context.Context, user, content string) (*model.PurchaseRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[pairKey(user, content)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *MockPurchaseRepo) ListByUser(ctx context.Context, user string) ([]*model.PurchaseRecord, error) {
	if r.ListFunc != nil {
		return r.ListFunc(ctx, user)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PurchaseRecord
	for _, rec := range r.data {
		if rec.UserIdentifier == user {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Get is a test helper returning the stored record for a pair.
func (r *MockPurchaseRepo) Get(user, content string) *model.PurchaseRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[pairKey(user, content)]
}

func (r *MockPurchaseRepo) WriteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Writes
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

const validSignature = "sig-ok"

// testEvent is the wire form the mock gateway understands.
type testEvent struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	SessionID     string            `json:"session_id"`
	PaymentStatus string            `json:"payment_status"`
	PaymentRef    string            `json:"payment_reference_id"`
	Metadata      map[string]string `json:"metadata"`
}

type MockPaymentGateway struct {
	mu       sync.Mutex
	Sessions []adapter.SessionRequest

	CreateSessionFunc func(ctx context.Context, req adapter.SessionRequest) (adapter.SessionHandle, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (g *MockPaymentGateway) Name() string            { return "mock" }
func (g *MockPaymentGateway) SignatureHeader() string { return "X-Mock-Signature" }

func (g *MockPaymentGateway) CreateSession(ctx context.Context, req adapter.SessionRequest) (adapter.SessionHandle, error) {
	g.mu.Lock()
	g.Sessions = append(g.Sessions, req)
	n := len(g.Sessions)
	g.mu.Unlock()
	if g.CreateSessionFunc != nil {
		return g.CreateSessionFunc(ctx, req)
	}
	id := fmt.Sprintf("cs_test_%d", n)
	return adapter.SessionHandle{ID: id, URL: "https://pay.example/" + id}, nil
}

// VerifyAndParseEvent accepts only validSignature.
func (g *MockPaymentGateway) VerifyAndParseEvent(rawBody []byte, signatureHeader string) (*model.PaymentEvent, error) {
	if signatureHeader != validSignature {
		return nil, fmt.Errorf("%w: bad signature", domain.ErrAuthenticity)
	}
	var te testEvent
	if err := json.Unmarshal(rawBody, &te); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticity, err)
	}
	return &model.PaymentEvent{
		ID:                 te.ID,
		Type:               te.Type,
		SessionID:          te.SessionID,
		PaymentStatus:      te.PaymentStatus,
		PaymentReferenceID: te.PaymentRef,
		Metadata:           te.Metadata,
	}, nil
}

func (g *MockPaymentGateway) SessionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Sessions)
}

// ---- Mock ContentCatalog ----

type MockCatalog struct {
	Items map[string]*model.ContentItem // keyed by id

	LookupFunc func(ctx context.Context, t model.ContentType, id string) (*model.ContentItem, error)
}

var _ adapter.ContentCatalog = (*MockCatalog)(nil)

func NewMockCatalog(items ...*model.ContentItem) *MockCatalog {
	c := &MockCatalog{Items: map[string]*model.ContentItem{}}
	for _, it := range items {
		c.Items[it.ID] = it
	}
	return c
}

func (c *MockCatalog) ListArticles(ctx context.Context) ([]*model.Article, error) { return nil, nil }
func (c *MockCatalog) ListBooks(ctx context.Context) ([]*model.Book, error)       { return nil, nil }
func (c *MockCatalog) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	return nil, domain.ErrContentNotFound
}
func (c *MockCatalog) GetBook(ctx context.Context, id string) (*model.Book, error) {
	return nil, domain.ErrContentNotFound
}

func (c *MockCatalog) Lookup(ctx context.Context, t model.ContentType, id string) (*model.ContentItem, error) {
	if c.LookupFunc != nil {
		return c.LookupFunc(ctx, t, id)
	}
	it, ok := c.Items[id]
	if !ok || it.ContentType != t {
		return nil, domain.ErrContentNotFound
	}
	return it, nil
}

// ---- Mock PurchaseEventPublisher ----

type MockPublisher struct {
	mu        sync.Mutex
	Published []*model.PurchaseRecord
	Err       error
}

var _ adapter.PurchaseEventPublisher = (*MockPublisher)(nil)

func (p *MockPublisher) PublishPurchaseRecorded(ctx context.Context, rec *model.PurchaseRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Published = append(p.Published, rec)
	return p.Err
}

// =============================
// Helpers
// =============================

var errBackendDown = errors.New("connection refused")

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func completedEvent(id, status string, meta map[string]string) []byte {
	b, _ := json.Marshal(testEvent{
		ID:            id,
		Type:          model.EventTypeCheckoutCompleted,
		SessionID:     "cs_" + id,
		PaymentStatus: status,
		PaymentRef:    "pi_" + id,
		Metadata:      meta,
	})
	return b
}
