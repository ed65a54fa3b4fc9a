//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/usecase"
)

func TestAccessUseCase_CheckAccess(t *testing.T) {
	ctx := context.Background()
	user := &model.Identity{UserIdentifier: "user-7"}

	tests := []struct {
		name        string
		identity    *model.Identity
		contentID   string
		contentType model.ContentType
		owned       bool
		wantGranted bool
		wantTarget  string
	}{
		{"should send anonymous readers to sign in", nil, "book-42", model.ContentTypeBook, false, false, usecase.SignInPath},
		{"should send non-buyers of a book to its page", user, "book-42", model.ContentTypeBook, false, false, baseURL + "/books/book-42"},
		{"should send non-buyers of an article to the list", user, "post-1", model.ContentTypeArticle, false, false, baseURL + "/#articles"},
		{"should grant buyers of a book", user, "book-42", model.ContentTypeBook, true, true, ""},
		{"should grant buyers of an article", user, "post-1", model.ContentTypeArticle, true, true, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			repo := NewMockPurchaseRepo()
			if tc.owned {
				rec, _ := model.NewPurchaseRecord("p1", "user-7", tc.contentID, "", 100)
				repo.Insert(ctx, rec)
			}
			uc := usecase.NewAccessUseCase(repo, baseURL, newTestLogger())

			// Act
			dec, err := uc.CheckAccess(ctx, tc.identity, tc.contentID, tc.contentType)

			// Assert
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if dec.Granted != tc.wantGranted || dec.RedirectTarget != tc.wantTarget {
				t.Errorf("got %+v, want granted=%v target=%q", dec, tc.wantGranted, tc.wantTarget)
			}
		})
	}

	t.Run("should fail closed when storage is unavailable", func(t *testing.T) {
		repo := NewMockPurchaseRepo()
		repo.ExistsFunc = func(ctx context.Context, u, c string) (bool, error) { return true, errBackendDown }
		uc := usecase.NewAccessUseCase(repo, baseURL, newTestLogger())

		dec, err := uc.CheckAccess(ctx, user, "book-42", model.ContentTypeBook)

		if dec.Granted {
			t.Error("access must be denied on storage failure")
		}
		if !errors.Is(err, domain.ErrStorageUnavailable) {
			t.Errorf("expected ErrStorageUnavailable, got %v", err)
		}
	})
}
