package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*PurchaseRepo)(nil)

// PurchaseRepo keeps purchases in process memory. Used in dev mode and tests.
type PurchaseRepo struct {
	mu     sync.RWMutex
	byPair map[pair]*model.PurchaseRecord
	writes int
}

func NewPurchaseRepo() *PurchaseRepo {
	return &PurchaseRepo{byPair: map[pair]*model.PurchaseRecord{}}
}

type pair struct{ user, content string }

func pairKey(user, content string) pair { return pair{user, content} }

func (r *PurchaseRepo) Exists(ctx context.Context, userIdentifier, contentID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPair[pairKey(userIdentifier, contentID)]
	return ok, nil
}

func (r *PurchaseRepo) Insert(ctx context.Context, rec *model.PurchaseRecord) (model.InsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := pairKey(rec.UserIdentifier, rec.ContentID)
	if existing, ok := r.byPair[k]; ok {
		cp := *existing
		return model.InsertResult{Status: model.AlreadyExists, Record: &cp}, nil
	}
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	r.byPair[k] = &cp
	r.writes++
	return model.InsertResult{Status: model.Inserted, Record: rec}, nil
}

func (r *PurchaseRepo) FindByUserAndContent(ctx context.Context, userIdentifier, contentID string) (*model.PurchaseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byPair[pairKey(userIdentifier, contentID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *PurchaseRepo) ListByUser(ctx context.Context, userIdentifier string) ([]*model.PurchaseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.PurchaseRecord
	for _, rec := range r.byPair {
		if rec.UserIdentifier == userIdentifier {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Writes counts successful inserts.
func (r *PurchaseRepo) Writes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}
