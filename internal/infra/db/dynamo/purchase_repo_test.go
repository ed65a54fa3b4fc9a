//go:build !integration

package dynamo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
)

func newRecord(t *testing.T, user, content string, amount int64) *model.PurchaseRecord {
	t.Helper()
	rec, err := model.NewPurchaseRecord("", user, content, "pi_1", amount)
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestPurchaseRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("should insert once and report duplicates", func(t *testing.T) {
		mock := newSimpleMock()
		repo := NewPurchaseRepo(mock, "purchases")

		res, err := repo.Insert(ctx, newRecord(t, "user-7", "book-42", 1800))
		if err != nil || res.Status != model.Inserted {
			t.Fatalf("first insert: %+v / %v", res, err)
		}
		res, err = repo.Insert(ctx, newRecord(t, "user-7", "book-42", 1800))
		if err != nil || res.Status != model.AlreadyExists {
			t.Fatalf("second insert: %+v / %v", res, err)
		}
		if res.Record == nil || res.Record.Amount != 1800 {
			t.Errorf("expected the existing record back, got %+v", res.Record)
		}
		if len(mock.table) != 1 {
			t.Errorf("expected one item, got %d", len(mock.table))
		}
	})

	t.Run("should keep pairs with separator characters apart", func(t *testing.T) {
		mock := newSimpleMock()
		repo := NewPurchaseRepo(mock, "purchases")

		first, err := repo.Insert(ctx, newRecord(t, "1", "2#3", 100))
		if err != nil {
			t.Fatal(err)
		}
		second, err := repo.Insert(ctx, newRecord(t, "1#2", "3", 100))
		if err != nil {
			t.Fatal(err)
		}

		if first.Status != model.Inserted || second.Status != model.Inserted {
			t.Fatalf("expected two inserts, got %v and %v", first.Status, second.Status)
		}
		if len(mock.table) != 2 {
			t.Errorf("expected two items, got %d", len(mock.table))
		}
	})

	t.Run("should answer Exists and FindByUserAndContent", func(t *testing.T) {
		repo := NewPurchaseRepo(newSimpleMock(), "purchases")
		repo.Insert(ctx, newRecord(t, "user-7", "book-42", 1800))

		if ok, err := repo.Exists(ctx, "user-7", "book-42"); err != nil || !ok {
			t.Errorf("expected purchase to exist, got %v / %v", ok, err)
		}
		if ok, err := repo.Exists(ctx, "user-7", "book-1"); err != nil || ok {
			t.Errorf("expected no purchase, got %v / %v", ok, err)
		}
		if _, err := repo.FindByUserAndContent(ctx, "user-8", "book-42"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		rec, err := repo.FindByUserAndContent(ctx, "user-7", "book-42")
		if err != nil || rec.PaymentReferenceID != "pi_1" || rec.ID == "" {
			t.Errorf("unexpected record %+v / %v", rec, err)
		}
	})

	t.Run("should list a user's purchases newest first", func(t *testing.T) {
		repo := NewPurchaseRepo(newSimpleMock(), "purchases")
		older := newRecord(t, "user-7", "post-1", 300)
		older.CreatedAt = time.Now().Add(-time.Hour)
		repo.Insert(ctx, older)
		repo.Insert(ctx, newRecord(t, "user-7", "book-42", 1800))
		repo.Insert(ctx, newRecord(t, "user-8", "book-42", 1800))

		list, err := repo.ListByUser(ctx, "user-7")
		if err != nil || len(list) != 2 {
			t.Fatalf("expected 2 purchases, got %d / %v", len(list), err)
		}
		if list[0].ContentID != "book-42" {
			t.Errorf("expected newest first, got %s", list[0].ContentID)
		}
	})

	t.Run("should keep a single item under concurrent inserts", func(t *testing.T) {
		mock := newSimpleMock()
		repo := NewPurchaseRepo(mock, "purchases")

		var wg sync.WaitGroup
		var mu sync.Mutex
		inserted := 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := repo.Insert(ctx, newRecord(t, "user-7", "book-42", 1800))
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if res.Status == model.Inserted {
					mu.Lock()
					inserted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if inserted != 1 || len(mock.table) != 1 {
			t.Errorf("expected exactly one insert, got %d (items %d)", inserted, len(mock.table))
		}
	})

	t.Run("should wrap backend failures as storage unavailable", func(t *testing.T) {
		mock := newSimpleMock()
		mock.err = errors.New("RequestTimeout")
		repo := NewPurchaseRepo(mock, "purchases")

		if _, err := repo.Exists(ctx, "user-7", "book-42"); !errors.Is(err, domain.ErrStorageUnavailable) {
			t.Errorf("Exists: expected ErrStorageUnavailable, got %v", err)
		}
		if _, err := repo.Insert(ctx, newRecord(t, "user-7", "book-42", 1)); !errors.Is(err, domain.ErrStorageUnavailable) {
			t.Errorf("Insert: expected ErrStorageUnavailable, got %v", err)
		}
		if _, err := repo.ListByUser(ctx, "user-7"); !errors.Is(err, domain.ErrStorageUnavailable) {
			t.Errorf("ListByUser: expected ErrStorageUnavailable, got %v", err)
		}
	})
}
